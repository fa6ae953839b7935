package cart

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	err error
}

func (f *fakeSessions) GetUserIDFromRequest(*http.Request) (string, error) {
	return "user_1", f.err
}

func newCartMux(t *testing.T) (*http.ServeMux, *Store, *fakeCheckout) {
	t.Helper()
	store := NewStore()
	checkout := &fakeCheckout{receipt: &Receipt{CartID: "c1"}}
	submitter := NewSubmitter(store, map[string]Checkout{"instacart": checkout})
	mux := http.NewServeMux()
	NewHandler(store, submitter, &fakeSessions{}).Register(mux)
	return mux, store, checkout
}

func TestCartAddGetDelete(t *testing.T) {
	mux, store, _ := newCartMux(t)

	body, err := json.Marshal(CartItem{Name: "Whole Milk", Store: "instacart", Price: 4.19})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cart", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var added CartItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	require.NotEmpty(t, added.ID)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart?store=instacart", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var response struct {
		Items  []CartItem        `json:"items"`
		Totals map[string]Totals `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response.Items, 1)
	assert.Equal(t, 1, response.Totals["instacart"].Items)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/cart?store=instacart&id="+added.ID, nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, store.Items("instacart"))
}

func TestCartDeleteClearsWithoutID(t *testing.T) {
	mux, store, _ := newCartMux(t)
	store.AddItem(CartItem{Name: "Milk", Store: "instacart"})
	store.AddItem(CartItem{Name: "Eggs", Store: "instacart"})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/cart?store=instacart", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, store.Items("instacart"))
}

func TestCartSubmitEndpoint(t *testing.T) {
	mux, store, checkout := newCartMux(t)
	store.AddItem(CartItem{Name: "Milk", Store: "instacart", Price: 4.19})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cart/submit?store=instacart", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var receipt Receipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
	assert.Equal(t, "c1", receipt.CartID)
	assert.Len(t, checkout.got, 1)
	assert.Empty(t, store.Items("instacart"))
}

func TestCartSubmitUnknownStore(t *testing.T) {
	mux, _, _ := newCartMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cart/submit?store=target", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartRejectsIncompleteItem(t *testing.T) {
	mux, _, _ := newCartMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cart", bytes.NewReader([]byte(`{"name":"Milk"}`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartRequiresSession(t *testing.T) {
	store := NewStore()
	mux := http.NewServeMux()
	NewHandler(store, NewSubmitter(store, nil), &fakeSessions{err: http.ErrNoCookie}).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart?store=instacart", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// the event stream is session-gated too, before any upgrade happens
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart/events", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
