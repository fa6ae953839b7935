package instacart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"larder/internal/config"
)

// Client calls the Instacart connect API through the backend proxy.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg config.InstacartConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("API key is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}, nil
}

// Product is one catalog match.
type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Size     string  `json:"size"`
	ImageURL string  `json:"image_url"`
}

// ProductResults is the typed response for a product search.
type ProductResults struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}

// SearchProducts queries the catalog for a term.
func (c *Client) SearchProducts(ctx context.Context, term string) (*ProductResults, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, errors.New("search term is required")
	}

	params := url.Values{}
	params.Set("q", term)

	raw, err := c.get(ctx, "product search", "/v1/products/search?"+params.Encode())
	if err != nil {
		return nil, err
	}

	results, err := ParseProductResults(raw)
	if err != nil {
		return nil, fmt.Errorf("parse product search response: %w", err)
	}
	return results, nil
}

// CartSubmission is what we hand to Instacart when the user checks out.
type CartSubmission struct {
	Store string     `json:"store"`
	Items []CartItem `json:"items"`
}

type CartItem struct {
	ProductID string  `json:"product_id,omitempty"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity,omitempty"`
	Unit      string  `json:"unit,omitempty"`
}

// SubmitResult reports the created remote cart.
type SubmitResult struct {
	CartID      string `json:"cart_id"`
	CheckoutURL string `json:"checkout_url"`
}

// SubmitCart creates a remote cart from the submission.
func (c *Client) SubmitCart(ctx context.Context, submission CartSubmission) (*SubmitResult, error) {
	if len(submission.Items) == 0 {
		return nil, errors.New("cart is empty")
	}

	body, err := json.Marshal(submission)
	if err != nil {
		return nil, fmt.Errorf("marshal cart submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/carts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build cart request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	slog.InfoContext(ctx, "submitting Instacart cart", "store", submission.Store, "items", len(submission.Items))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request cart submit: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read cart response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		slog.ErrorContext(ctx, "received Instacart cart response", "status", resp.StatusCode)
		return nil, &StatusError{
			Operation:  "cart submit",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	var result SubmitResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode cart response: %w", err)
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, operation, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", operation, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", operation, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		slog.ErrorContext(ctx, "received Instacart response", "operation", operation, "status", resp.StatusCode)
		return nil, &StatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	return body, nil
}

// ParseProductResults unmarshals product search payloads from wrapped or bare
// array shapes.
func ParseProductResults(data []byte) (*ProductResults, error) {
	var wrapped struct {
		Products []Product `json:"products"`
		Results  []Product `json:"results"`
		Total    int       `json:"total"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil {
		var shape map[string]json.RawMessage
		if err := json.Unmarshal(data, &shape); err == nil {
			_, hasProducts := shape["products"]
			_, hasResults := shape["results"]
			if hasProducts || hasResults {
				products := wrapped.Products
				if len(products) == 0 && len(wrapped.Results) > 0 {
					products = wrapped.Results
				}
				total := wrapped.Total
				if total == 0 {
					total = len(products)
				}
				return &ProductResults{Products: products, Total: total}, nil
			}
		}
	}

	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("unmarshal product search payload: %w", err)
	}
	return &ProductResults{Products: products, Total: len(products)}, nil
}
