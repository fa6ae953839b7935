package cache

import (
	"context"
	"errors"
	"io"
	"testing"
)

func caches(t *testing.T) map[string]ListCache {
	return map[string]ListCache{
		"memory": NewInMemoryCache(),
		"file":   NewFileCache(t.TempDir()),
	}
}

func TestGetSetRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, c := range caches(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := c.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			if err := c.Set(ctx, "menu/42", `{"items":[]}`); err != nil {
				t.Fatalf("set failed: %v", err)
			}

			r, err := c.Get(ctx, "menu/42")
			if err != nil {
				t.Fatalf("get failed: %v", err)
			}
			defer r.Close()
			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("read failed: %v", err)
			}
			if string(got) != `{"items":[]}` {
				t.Errorf("unexpected value %q", got)
			}

			ok, err := c.Exists(ctx, "menu/42")
			if err != nil || !ok {
				t.Errorf("expected entry to exist, ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestListPrefix(t *testing.T) {
	ctx := context.Background()
	for name, c := range caches(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"menu/1", "menu/2", "prefs/u1"} {
				if err := c.Set(ctx, key, "x"); err != nil {
					t.Fatalf("set %s failed: %v", key, err)
				}
			}
			keys, err := c.List(ctx, "menu/")
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if len(keys) != 2 {
				t.Fatalf("expected 2 keys, got %v", keys)
			}
			if keys[0] != "1" || keys[1] != "2" {
				t.Errorf("unexpected keys %v", keys)
			}
		})
	}
}
