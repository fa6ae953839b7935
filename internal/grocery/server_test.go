package grocery

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"larder/internal/menus"
)

type fakeFetcher struct {
	payload any
	err     error
}

func (f *fakeFetcher) FetchGroceryPayload(context.Context, string, string) (any, error) {
	return f.payload, f.err
}

type fakeSessions struct {
	userID string
	err    error
}

func (f *fakeSessions) GetUserIDFromRequest(*http.Request) (string, error) {
	return f.userID, f.err
}

func newListMux(t *testing.T, fetch PayloadFetcher) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	NewHandler(fetch, &fakeSessions{userID: "user_1"}).Register(mux)
	return mux
}

func TestListEndpoint(t *testing.T) {
	mux := newListMux(t, &fakeFetcher{payload: map[string]any{
		"items": []any{"2 cups flour", "1 lb tomatoes"},
	}})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/list?menu=m1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var list List
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.NotEmpty(t, list.Categories)
}

func TestListRequiresMenu(t *testing.T) {
	mux := newListMux(t, &fakeFetcher{})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/list", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListReconnectRequired(t *testing.T) {
	mux := newListMux(t, &fakeFetcher{err: menus.ErrReconnectRequired})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/list?menu=m1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckTogglePersistsAcrossListBuilds(t *testing.T) {
	mux := newListMux(t, &fakeFetcher{payload: map[string]any{
		"items": []any{"milk"},
	}})

	body, err := json.Marshal(checkRequest{Menu: "m1", Name: "milk", Checked: true})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/list/check", bytes.NewReader(body)))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/list?menu=m1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var list List
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.NotEmpty(t, list.Categories)
	require.NotEmpty(t, list.Categories[0].Items)
	assert.True(t, list.Categories[0].Items[0].Checked)

	// other menus are unaffected
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/list?menu=m2", nil))
	var other List
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &other))
	assert.False(t, other.Categories[0].Items[0].Checked)
}

func TestCheckStateIsPerUser(t *testing.T) {
	sessions := &fakeSessions{userID: "user_1"}
	mux := http.NewServeMux()
	NewHandler(&fakeFetcher{payload: map[string]any{"items": []any{"milk"}}}, sessions).Register(mux)

	body, err := json.Marshal(checkRequest{Menu: "m1", Name: "milk", Checked: true})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/list/check", bytes.NewReader(body)))
	require.Equal(t, http.StatusNoContent, rec.Code)

	// another user looking at the same menu starts unchecked
	sessions.userID = "user_2"
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/list?menu=m1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list List
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.NotEmpty(t, list.Categories)
	require.NotEmpty(t, list.Categories[0].Items)
	assert.False(t, list.Categories[0].Items[0].Checked)

	// while the first user's tick is still there
	sessions.userID = "user_1"
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/list?menu=m1", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.True(t, list.Categories[0].Items[0].Checked)
}

func TestCheckRejectsMissingFields(t *testing.T) {
	mux := newListMux(t, &fakeFetcher{})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/list/check", bytes.NewReader([]byte(`{"menu":"m1"}`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRequiresSession(t *testing.T) {
	mux := http.NewServeMux()
	NewHandler(&fakeFetcher{}, &fakeSessions{err: http.ErrNoCookie}).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/list?menu=m1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
