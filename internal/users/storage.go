package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"larder/internal/cache"
)

// Preferences are the dietary settings that shape list generation and
// retailer defaults.
type Preferences struct {
	Diets               []string  `json:"diets,omitempty"`
	Allergens           []string  `json:"allergens,omitempty"`
	DislikedIngredients []string  `json:"disliked_ingredients,omitempty"`
	DefaultStore        string    `json:"default_store,omitempty"`
	UpdatedAt           time.Time `json:"updated_at,omitzero"`
}

type Storage struct {
	cache cache.Cache
}

func NewStorage(c cache.Cache) *Storage {
	return &Storage{cache: c}
}

func prefsKey(userID string) string {
	return "prefs/" + userID
}

// Get returns the stored preferences, or zero-value preferences for users
// who never saved any.
func (s *Storage) Get(ctx context.Context, userID string) (*Preferences, error) {
	reader, err := s.cache.Get(ctx, prefsKey(userID))
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return &Preferences{}, nil
		}
		return nil, fmt.Errorf("read preferences: %w", err)
	}
	defer reader.Close()

	var prefs Preferences
	if err := json.NewDecoder(reader).Decode(&prefs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal preferences: %w", err)
	}
	return &prefs, nil
}

// Update overwrites the user's preferences, stamping UpdatedAt.
func (s *Storage) Update(ctx context.Context, userID string, prefs *Preferences) error {
	prefs.UpdatedAt = time.Now()
	encoded, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	if err := s.cache.Set(ctx, prefsKey(userID), string(encoded)); err != nil {
		return fmt.Errorf("store preferences: %w", err)
	}
	return nil
}
