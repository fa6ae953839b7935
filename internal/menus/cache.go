package menus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"larder/internal/cache"

	"github.com/samber/lo"
)

const payloadTTL = 24 * time.Hour

// envelope wraps a cached payload with its write time. Entries older than
// the freshness window are ignored, not deleted.
type envelope struct {
	Data      any   `json:"data"`
	Timestamp int64 `json:"timestamp"` // epoch millis
}

func cacheKey(menuID string) string {
	return "menu_" + menuID
}

func (f *Fetcher) fromCache(ctx context.Context, menuID string) (any, bool) {
	if f.cache == nil {
		return nil, false
	}
	reader, err := f.cache.Get(ctx, cacheKey(menuID))
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			slog.WarnContext(ctx, "menu cache read failed", "menu", menuID, "error", err)
		}
		return nil, false
	}
	defer func() {
		_ = reader.Close()
	}()

	var env envelope
	if err := json.NewDecoder(reader).Decode(&env); err != nil {
		slog.WarnContext(ctx, "menu cache entry malformed", "menu", menuID, "error", err)
		return nil, false
	}
	if f.now().UnixMilli()-env.Timestamp >= payloadTTL.Milliseconds() {
		return nil, false
	}
	slog.InfoContext(ctx, "serving cached grocery payload", "menu", menuID)
	return env.Data, true
}

// store caches a payload; failures are logged, never surfaced.
func (f *Fetcher) store(ctx context.Context, menuID string, payload any) {
	if f.cache == nil {
		return
	}
	env := envelope{Data: payload, Timestamp: f.now().UnixMilli()}
	if err := f.cache.Set(ctx, cacheKey(menuID), string(lo.Must(json.Marshal(env)))); err != nil {
		slog.WarnContext(ctx, "menu cache write failed", "menu", menuID, "error", err)
	}
}
