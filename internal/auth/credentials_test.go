package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"larder/internal/cache"
)

func TestCredentialRoundTrip(t *testing.T) {
	creds := NewCredentials(cache.NewInMemoryCache(), "user_1", "http://unused")
	ctx := context.Background()

	_, err := creds.Token(ctx)
	assert.ErrorIs(t, err, ErrNoCredential)

	require.NoError(t, creds.Store(ctx, "access-abc", "refresh-xyz"))

	token, err := creds.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-abc", token)
}

func TestRefreshExchangesToken(t *testing.T) {
	var gotRefresh string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotRefresh = body["refresh_token"]
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token":  "access-new",
			"refresh_token": "refresh-new",
		})
	}))
	defer server.Close()

	creds := NewCredentials(cache.NewInMemoryCache(), "user_1", server.URL)
	ctx := context.Background()
	require.NoError(t, creds.Store(ctx, "access-old", "refresh-old"))

	token, err := creds.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-new", token)
	assert.Equal(t, "refresh-old", gotRefresh)

	// the new pair is persisted for the next Token call
	token, err = creds.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-new", token)
}

func TestRefreshKeepsOldRefreshTokenWhenOmitted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "access-new"})
	}))
	defer server.Close()

	c := cache.NewInMemoryCache()
	creds := NewCredentials(c, "user_1", server.URL)
	ctx := context.Background()
	require.NoError(t, creds.Store(ctx, "access-old", "refresh-old"))

	_, err := creds.Refresh(ctx)
	require.NoError(t, err)

	reader, err := c.Get(ctx, "credentials/user_1")
	require.NoError(t, err)
	defer reader.Close()
	var stored credentialData
	require.NoError(t, json.NewDecoder(reader).Decode(&stored))
	assert.Equal(t, "refresh-old", stored.RefreshToken)
}

func TestRefreshGivesUpAfterRepeatedFailures(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer server.Close()

	creds := NewCredentials(cache.NewInMemoryCache(), "user_1", server.URL)
	ctx := context.Background()
	require.NoError(t, creds.Store(ctx, "access-old", "refresh-old"))

	_, err := creds.Refresh(ctx)
	require.Error(t, err)
	assert.Equal(t, maxRefreshAttempts, calls)
}
