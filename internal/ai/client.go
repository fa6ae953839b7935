package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/invopop/jsonschema"
)

const (
	defaultModel    = "openai/gpt-5.2"
	defaultEndpoint = "https://openrouter.ai/api/v1/chat/completions"
)

// Client generates shopping lists with an OpenRouter-compatible chat model,
// constrained to our schema via structured output.
type Client struct {
	apiKey string
	schema map[string]any
	model  string

	endpoint     string
	httpClient   *http.Client
	conversation *conversationStore
}

type conversationStore struct {
	mu    sync.RWMutex
	items map[string][]chatMessage
}

func newConversationStore() *conversationStore {
	return &conversationStore{items: make(map[string][]chatMessage)}
}

func (s *conversationStore) get(id string) ([]chatMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	messages, ok := s.items[id]
	if !ok {
		return nil, false
	}
	out := make([]chatMessage, len(messages))
	copy(out, messages)
	return out, true
}

func (s *conversationStore) put(id string, messages []chatMessage) {
	copyMessages := make([]chatMessage, len(messages))
	copy(copyMessages, messages)
	s.mu.Lock()
	s.items[id] = copyMessages
	s.mu.Unlock()
}

func NewClient(apiKey, model string) *Client {
	r := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := r.Reflect(&GeneratedList{})
	schemaJSON, _ := json.Marshal(schema)

	var m map[string]any
	_ = json.Unmarshal(schemaJSON, &m)

	selectedModel := strings.TrimSpace(model)
	if selectedModel == "" {
		selectedModel = defaultModel
	}

	endpoint := os.Getenv("OPENROUTER_ENDPOINT")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	return &Client{
		apiKey:       apiKey,
		schema:       m,
		model:        selectedModel,
		endpoint:     endpoint,
		httpClient:   &http.Client{Timeout: 90 * time.Second},
		conversation: newConversationStore(),
	}
}

// GenerateList satisfies the fetcher's last-resort synthesizer. It turns
// whatever menu details we have into a payload the extractor understands.
func (c *Client) GenerateList(ctx context.Context, menuDetails any) (any, error) {
	list, err := c.Generate(ctx, menuDetails)
	if err != nil {
		return nil, err
	}

	items := make([]any, 0, len(list.Items))
	for _, item := range list.Items {
		entry := map[string]any{"name": item.Name}
		if item.Quantity > 0 {
			entry["quantity"] = item.Quantity
		}
		if item.Unit != "" {
			entry["unit"] = item.Unit
		}
		if item.Notes != "" {
			entry["notes"] = item.Notes
		}
		items = append(items, entry)
	}
	return map[string]any{"items": items}, nil
}

// Generate produces a fresh list for the given menu and starts a conversation
// so follow-up edits can reference it.
func (c *Client) Generate(ctx context.Context, menuDetails any) (*GeneratedList, error) {
	detailsJSON, err := json.Marshal(menuDetails)
	if err != nil {
		return nil, fmt.Errorf("failed to encode menu details: %w", err)
	}

	messages := []chatMessage{
		{Role: "system", Content: systemMessage},
		userMessage("Build the shopping list for this menu:\n" + string(detailsJSON)),
	}

	list, assistantOutput, err := c.completeStructured(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to generate shopping list: %w", err)
	}

	conversationID := uuid.NewString()
	messages = append(messages, assistantMessage(assistantOutput))
	c.conversation.put(conversationID, messages)

	list.ConversationID = conversationID
	return list, nil
}

// Regenerate applies a new instruction to an existing conversation.
func (c *Client) Regenerate(ctx context.Context, instruction, conversationID string) (*GeneratedList, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("conversation ID is required for regeneration")
	}
	history, ok := c.conversation.get(conversationID)
	if !ok {
		history = []chatMessage{{Role: "system", Content: systemMessage}}
	}

	messages := append(history, userMessage(instruction))
	list, assistantOutput, err := c.completeStructured(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to regenerate shopping list: %w", err)
	}

	messages = append(messages, assistantMessage(assistantOutput))
	c.conversation.put(conversationID, messages)

	list.ConversationID = conversationID
	return list, nil
}

type chatRequest struct {
	Model          string             `json:"model"`
	Messages       []chatMessage      `json:"messages"`
	ResponseFormat chatResponseFormat `json:"response_format"`
}

type chatResponseFormat struct {
	Type       string         `json:"type"`
	JSONSchema chatJSONSchema `json:"json_schema"`
}

type chatJSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage json.RawMessage `json:"usage"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) completeStructured(ctx context.Context, messages []chatMessage) (*GeneratedList, string, error) {
	requestBody := chatRequest{
		Model:    c.model,
		Messages: messages,
		ResponseFormat: chatResponseFormat{
			Type: "json_schema",
			JSONSchema: chatJSONSchema{
				Name:   "shopping_list",
				Strict: true,
				Schema: c.schema,
			},
		},
	}

	body, err := json.Marshal(requestBody)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed reading chat response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr chatErrorResponse
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error.Message != "" {
			return nil, "", fmt.Errorf("chat error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, "", fmt.Errorf("chat error (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, "", fmt.Errorf("failed to decode chat response: %w", err)
	}

	if len(parsed.Choices) == 0 {
		return nil, "", fmt.Errorf("model returned no choices")
	}

	content, err := messageContent(parsed.Choices[0].Message.Content)
	if err != nil {
		return nil, "", err
	}

	if len(parsed.Usage) > 0 {
		slog.InfoContext(ctx, "API usage", slog.Any("usage", json.RawMessage(parsed.Usage)))
	}

	content = stripCodeFence(content)
	var list GeneratedList
	if err := json.Unmarshal([]byte(content), &list); err != nil {
		return nil, "", fmt.Errorf("failed to parse model response: %w", err)
	}

	return &list, content, nil
}

func messageContent(raw json.RawMessage) (string, error) {
	var content string
	if err := json.Unmarshal(raw, &content); err == nil {
		if strings.TrimSpace(content) == "" {
			return "", fmt.Errorf("model returned empty response content")
		}
		return content, nil
	}

	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", fmt.Errorf("unable to parse response message content: %w", err)
	}

	var builder strings.Builder
	for _, part := range parts {
		if part.Type == "text" {
			builder.WriteString(part.Text)
		}
	}
	content = strings.TrimSpace(builder.String())
	if content == "" {
		return "", fmt.Errorf("model returned empty text content")
	}
	return content, nil
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
