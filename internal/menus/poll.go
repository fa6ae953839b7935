package menus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	pollInitialInterval = 500 * time.Millisecond
	pollMaxInterval     = 8 * time.Second
	pollMaxAttempts     = 10
)

var ErrAIListPending = errors.New("ai shopping list still processing")

// AwaitAIList polls the backend's asynchronous shopping-list job until it
// finishes, with exponential backoff and a fixed attempt cap. A job that is
// still running after the last attempt comes back as ErrAIListPending.
func (f *Fetcher) AwaitAIList(ctx context.Context, menuID string) (any, error) {
	interval := f.pollInterval
	for attempt := 1; attempt <= pollMaxAttempts; attempt++ {
		payload, err := f.request(ctx, http.MethodGet, "/menus/"+menuID+"/ai-shopping-list/status", nil)
		if err != nil {
			return nil, fmt.Errorf("poll ai shopping list: %w", err)
		}

		status, list := jobStatus(payload)
		switch status {
		case "done", "complete", "completed":
			return list, nil
		case "failed", "error":
			return nil, fmt.Errorf("ai shopping list job failed for menu %s", menuID)
		}

		slog.DebugContext(ctx, "ai shopping list not ready", "menu", menuID, "status", status, "attempt", attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
		interval = min(interval*2, pollMaxInterval)
	}
	return nil, ErrAIListPending
}

func jobStatus(payload any) (string, any) {
	m, ok := payload.(map[string]any)
	if !ok {
		return "", nil
	}
	status, _ := m["status"].(string)
	for _, key := range []string{"list", "ai_shopping_list", "data"} {
		if v, ok := m[key]; ok && v != nil {
			return status, v
		}
	}
	return status, nil
}
