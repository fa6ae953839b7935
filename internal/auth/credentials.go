package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"larder/internal/cache"
)

var (
	ErrNoCredential = errors.New("no backend credential stored")
)

const (
	credentialPrefix = "credentials/"
	// session-reconnect flows get a small fixed number of tries, then the
	// user has to log in again
	maxRefreshAttempts = 3
)

type credentialData struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Credentials stores one user's backend bearer credential on the cache and
// exchanges the refresh token when the backend reports expiry. It satisfies
// menus.CredentialSource.
type Credentials struct {
	cache      cache.Cache
	userID     string
	refreshURL string
	httpClient *http.Client
}

func NewCredentials(c cache.Cache, userID, refreshURL string) *Credentials {
	return &Credentials{
		cache:      c,
		userID:     userID,
		refreshURL: refreshURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Credentials) key() string {
	return credentialPrefix + c.userID
}

func (c *Credentials) load(ctx context.Context) (*credentialData, error) {
	reader, err := c.cache.Get(ctx, c.key())
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrNoCredential
		}
		return nil, fmt.Errorf("read credential: %w", err)
	}
	defer reader.Close()

	var data credentialData
	if err := json.NewDecoder(reader).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	return &data, nil
}

// Store saves a fresh credential pair, e.g. right after login.
func (c *Credentials) Store(ctx context.Context, accessToken, refreshToken string) error {
	data := credentialData{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		UpdatedAt:    time.Now(),
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}
	if err := c.cache.Set(ctx, c.key(), string(encoded)); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}

func (c *Credentials) Token(ctx context.Context) (string, error) {
	data, err := c.load(ctx)
	if err != nil {
		return "", err
	}
	return data.AccessToken, nil
}

// Refresh exchanges the stored refresh token for a new access token. Each
// call is one reconnect flow: a few quick attempts, then give up.
func (c *Credentials) Refresh(ctx context.Context) (string, error) {
	data, err := c.load(ctx)
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 1; attempt <= maxRefreshAttempts; attempt++ {
		token, err := c.exchange(ctx, data.RefreshToken)
		if err == nil {
			if err := c.Store(ctx, token.AccessToken, token.RefreshToken); err != nil {
				return "", err
			}
			return token.AccessToken, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("credential refresh failed after %d attempts: %w", maxRefreshAttempts, lastErr)
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (c *Credentials) exchange(ctx context.Context, refreshToken string) (*tokenPair, error) {
	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.refreshURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refresh request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("refresh rejected: status %d", resp.StatusCode)
	}

	var pair tokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return nil, fmt.Errorf("decode refresh response: %w", err)
	}
	if pair.AccessToken == "" {
		return nil, errors.New("refresh response missing access token")
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	return &pair, nil
}
