package menus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"larder/internal/cache"
	"larder/internal/config"

	"github.com/hashicorp/go-retryablehttp"
)

var (
	// ErrAuthExpired means the backend rejected our credential; callers get
	// one refresh-and-retry before this becomes ErrReconnectRequired.
	ErrAuthExpired = errors.New("backend token expired")
	// ErrReconnectRequired is the only blocking, user-visible failure the
	// fetcher produces ("please log in again").
	ErrReconnectRequired = errors.New("credential refresh failed, reconnect required")
)

// CredentialSource hands out the backend bearer credential and refreshes it
// when the backend says it expired.
type CredentialSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// Synthesizer builds a shopping list when the backend has nothing for us.
type Synthesizer interface {
	GenerateList(ctx context.Context, menuDetails any) (any, error)
}

// Fetcher pulls grocery payloads out of the menu backend. The backend's
// endpoints and shapes have churned across releases, so fetching is a chain
// of strategies tried strictly in sequence, first usable payload wins.
type Fetcher struct {
	baseURL string
	client  *retryablehttp.Client
	creds   CredentialSource
	cache   cache.Cache
	synth   Synthesizer

	now          func() time.Time
	pollInterval time.Duration
}

func NewFetcher(cfg config.BackendConfig, creds CredentialSource, c cache.Cache) *Fetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.HTTPClient.Timeout = 15 * time.Second
	client.Logger = slog.Default()

	return &Fetcher{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
		creds:   creds,
		cache:   c,
		now:     time.Now,

		pollInterval: pollInitialInterval,
	}
}

// WithSynthesizer enables last-resort AI list generation.
func (f *Fetcher) WithSynthesizer(s Synthesizer) *Fetcher {
	f.synth = s
	return f
}

type strategy struct {
	name string
	run  func(ctx context.Context, menuID string) (any, error)
}

func (f *Fetcher) strategies() []strategy {
	gets := func(path string) func(context.Context, string) (any, error) {
		return func(ctx context.Context, menuID string) (any, error) {
			return f.request(ctx, http.MethodGet, strings.ReplaceAll(path, "{id}", menuID), nil)
		}
	}
	posts := func(path string) func(context.Context, string) (any, error) {
		return func(ctx context.Context, menuID string) (any, error) {
			return f.request(ctx, http.MethodPost, path, map[string]string{"menu_id": menuID})
		}
	}
	return []strategy{
		{"grocery-list", gets("/menus/{id}/grocery-list")},
		{"menu-details", gets("/menus/{id}")},
		{"shopping-list", gets("/menus/{id}/shopping-list")},
		{"grocery-lists-by-id", gets("/grocery-lists/{id}")},
		{"api-groceries", gets("/api/menus/{id}/groceries")},
		{"post-grocery-lists", posts("/grocery-lists")},
		{"post-menu-grocery-list", posts("/menus/grocery-list")},
	}
}

// FetchGroceryPayload returns a payload the grocery pipeline can extract
// from, or an explicit empty payload when every avenue is exhausted. Only a
// credential failure comes back as an error.
func (f *Fetcher) FetchGroceryPayload(ctx context.Context, menuID string) (any, error) {
	if payload, ok := f.fromCache(ctx, menuID); ok {
		return payload, nil
	}

	var details any // menu-details payload kept for the synthesizer
	refreshed := false
	for _, s := range f.strategies() {
		payload, err := f.withRefresh(ctx, &refreshed, s.name, func() (any, error) {
			return s.run(ctx, menuID)
		})
		if err != nil {
			if errors.Is(err, ErrReconnectRequired) {
				return nil, err
			}
			slog.DebugContext(ctx, "fetch strategy failed", "strategy", s.name, "menu", menuID, "error", err)
			continue
		}
		if s.name == "menu-details" {
			details = payload
		}
		if usable(payload) {
			f.store(ctx, menuID, payload)
			return payload, nil
		}
	}

	payload, err := f.withRefresh(ctx, &refreshed, "meal-shopping-lists", func() (any, error) {
		return f.mealShoppingLists(ctx, menuID)
	})
	if err == nil && usable(payload) {
		f.store(ctx, menuID, payload)
		return payload, nil
	} else if err != nil {
		if errors.Is(err, ErrReconnectRequired) {
			return nil, err
		}
		slog.DebugContext(ctx, "meal shopping list fallback failed", "menu", menuID, "error", err)
	}

	if f.synth != nil && details != nil {
		if payload, err := f.synth.GenerateList(ctx, details); err == nil && usable(payload) {
			slog.InfoContext(ctx, "serving synthesized shopping list", "menu", menuID)
			return payload, nil
		} else if err != nil {
			slog.WarnContext(ctx, "shopping list synthesis failed", "menu", menuID, "error", err)
		}
	}

	slog.InfoContext(ctx, "no grocery data found for menu", "menu", menuID)
	return emptyPayload(), nil
}

// withRefresh runs one fetch step, refreshing the credential and retrying
// when the backend says the token expired. The refresh happens at most once
// per FetchGroceryPayload call; an expiry after a successful refresh means
// the stored credential is no good and the user has to reconnect.
func (f *Fetcher) withRefresh(ctx context.Context, refreshed *bool, step string, run func() (any, error)) (any, error) {
	payload, err := run()
	if !errors.Is(err, ErrAuthExpired) {
		return payload, err
	}

	if *refreshed || f.creds == nil {
		return nil, ErrReconnectRequired
	}
	slog.InfoContext(ctx, "backend token expired, refreshing", "step", step)
	if _, rerr := f.creds.Refresh(ctx); rerr != nil {
		return nil, fmt.Errorf("%w: %w", ErrReconnectRequired, rerr)
	}
	*refreshed = true

	payload, err = run()
	if errors.Is(err, ErrAuthExpired) {
		return nil, ErrReconnectRequired
	}
	return payload, err
}

// mealShoppingLists rebuilds a payload from the per-meal endpoint, tagging
// every ingredient with its source meal.
func (f *Fetcher) mealShoppingLists(ctx context.Context, menuID string) (any, error) {
	payload, err := f.request(ctx, http.MethodGet, "/menus/"+menuID+"/meal-shopping-lists", nil)
	if err != nil {
		return nil, err
	}

	meals := mealEntries(payload)
	if len(meals) == 0 {
		return nil, errors.New("no meals in meal shopping lists response")
	}
	// reuse the extractor's day/meal shape so source tagging comes for free
	return map[string]any{
		"days": []any{map[string]any{"meals": meals}},
	}, nil
}

func mealEntries(payload any) []any {
	list, ok := payload.([]any)
	if !ok {
		if m, isMap := payload.(map[string]any); isMap {
			for _, key := range []string{"meals", "data"} {
				if inner, found := m[key].([]any); found {
					list = inner
					break
				}
			}
		}
	}
	var meals []any
	for _, e := range list {
		meal, ok := e.(map[string]any)
		if !ok {
			continue
		}
		name, _ := meal["name"].(string)
		if name == "" {
			name, _ = meal["meal"].(string)
		}
		ingredients, ok := meal["ingredients"].([]any)
		if !ok {
			continue
		}
		meals = append(meals, map[string]any{"name": name, "ingredients": ingredients})
	}
	return meals
}

// recognizedKeys marks a payload as worth handing to the extractor.
var recognizedKeys = []string{
	"groceryList", "grocery_list", "ingredient_list", "ingredients",
	"items", "data", "ai_shopping_list", "days",
}

func usable(payload any) bool {
	switch p := payload.(type) {
	case []any:
		return len(p) > 0
	case map[string]any:
		for _, key := range recognizedKeys {
			if v, ok := p[key]; ok && !emptyValue(v) {
				return true
			}
		}
	}
	return false
}

func emptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	case string:
		return val == ""
	}
	return false
}

func emptyPayload() any {
	return map[string]any{"items": []any{}}
}

func (f *Fetcher) request(ctx context.Context, method, path string, body any) (any, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, f.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if f.creds != nil {
		token, err := f.creds.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("get credential: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrAuthExpired
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%s %s failed: status %d", method, path, resp.StatusCode)
	}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if expiredToken(payload) {
		return nil, ErrAuthExpired
	}
	return payload, nil
}

// the backend sometimes reports expiry with a 200 and a detail message
func expiredToken(payload any) bool {
	m, ok := payload.(map[string]any)
	if !ok {
		return false
	}
	detail, _ := m["detail"].(string)
	return strings.Contains(strings.ToLower(detail), "expired")
}
