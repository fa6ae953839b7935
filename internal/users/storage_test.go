package users

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"larder/internal/cache"
)

func TestGetReturnsZeroValueForNewUser(t *testing.T) {
	storage := NewStorage(cache.NewInMemoryCache())

	prefs, err := storage.Get(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Empty(t, prefs.Diets)
	assert.Empty(t, prefs.DefaultStore)
	assert.True(t, prefs.UpdatedAt.IsZero())
}

func TestUpdateRoundTrip(t *testing.T) {
	storage := NewStorage(cache.NewInMemoryCache())
	ctx := context.Background()

	require.NoError(t, storage.Update(ctx, "user_1", &Preferences{
		Diets:        []string{"vegetarian"},
		Allergens:    []string{"peanuts"},
		DefaultStore: "kroger",
	}))

	prefs, err := storage.Get(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"vegetarian"}, prefs.Diets)
	assert.Equal(t, []string{"peanuts"}, prefs.Allergens)
	assert.Equal(t, "kroger", prefs.DefaultStore)
	assert.False(t, prefs.UpdatedAt.IsZero())
}

func TestStorageIsolatesUsers(t *testing.T) {
	storage := NewStorage(cache.NewInMemoryCache())
	ctx := context.Background()

	require.NoError(t, storage.Update(ctx, "user_1", &Preferences{DefaultStore: "kroger"}))

	prefs, err := storage.Get(ctx, "user_2")
	require.NoError(t, err)
	assert.Empty(t, prefs.DefaultStore)
}

type fakeSessions struct {
	userID string
	err    error
}

func (f *fakeSessions) GetUserIDFromRequest(*http.Request) (string, error) {
	return f.userID, f.err
}

func newTestMux(t *testing.T, sessions SessionResolver) (*http.ServeMux, *Storage) {
	t.Helper()
	storage := NewStorage(cache.NewInMemoryCache())
	mux := http.NewServeMux()
	NewHandler(storage, sessions).Register(mux)
	return mux, storage
}

func TestHandlersRequireSession(t *testing.T) {
	mux, _ := newTestMux(t, &fakeSessions{err: http.ErrNoCookie})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/preferences", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPutThenGet(t *testing.T) {
	mux, _ := newTestMux(t, &fakeSessions{userID: "user_1"})

	body, err := json.Marshal(Preferences{Diets: []string{"vegan"}, DefaultStore: "instacart"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/preferences", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/preferences", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var prefs Preferences
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prefs))
	assert.Equal(t, []string{"vegan"}, prefs.Diets)
	assert.Equal(t, "instacart", prefs.DefaultStore)
}

func TestPutRejectsBadPayload(t *testing.T) {
	mux, _ := newTestMux(t, &fakeSessions{userID: "user_1"})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/preferences", bytes.NewReader([]byte("not json"))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
