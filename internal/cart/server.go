package cart

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// SessionResolver identifies the signed-in user for a request.
type SessionResolver interface {
	GetUserIDFromRequest(r *http.Request) (string, error)
}

type server struct {
	store     *Store
	submitter *Submitter
	sessions  SessionResolver
}

// NewHandler returns the handler serving the cart routes.
func NewHandler(store *Store, submitter *Submitter, sessions SessionResolver) *server {
	return &server{store: store, submitter: submitter, sessions: sessions}
}

func (s *server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /cart", s.handleGet)
	mux.HandleFunc("POST /cart", s.handleAdd)
	mux.HandleFunc("DELETE /cart", s.handleDelete)
	mux.HandleFunc("POST /cart/submit", s.handleSubmit)
	mux.HandleFunc("GET /cart/events", s.handleEvents)
}

func (s *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	// check the session before the websocket upgrade takes over the connection
	if !s.authorized(w, r) {
		return
	}
	s.store.EventsHandler()(w, r)
}

func (s *server) authorized(w http.ResponseWriter, r *http.Request) bool {
	if _, err := s.sessions.GetUserIDFromRequest(r); err != nil {
		http.Error(w, "not signed in", http.StatusUnauthorized)
		return false
	}
	return true
}

func (s *server) handleGet(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}
	store := strings.TrimSpace(r.URL.Query().Get("store"))
	if store == "" {
		http.Error(w, "provide a store with ?store=...", http.StatusBadRequest)
		return
	}

	response := struct {
		Items  []CartItem        `json:"items"`
		Totals map[string]Totals `json:"totals"`
	}{
		Items:  s.store.Items(store),
		Totals: s.store.StoreTotals(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode cart", "error", err)
	}
}

func (s *server) handleAdd(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}
	var item CartItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		http.Error(w, "invalid cart item", http.StatusBadRequest)
		return
	}
	if item.Name == "" || item.Store == "" {
		http.Error(w, "name and store are required", http.StatusBadRequest)
		return
	}

	added := s.store.AddItem(item)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(added); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode cart item", "error", err)
	}
}

func (s *server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}
	store := strings.TrimSpace(r.URL.Query().Get("store"))
	if store == "" {
		http.Error(w, "provide a store with ?store=...", http.StatusBadRequest)
		return
	}

	if id := strings.TrimSpace(r.URL.Query().Get("id")); id != "" {
		if !s.store.RemoveItem(store, id) {
			http.Error(w, "no such item", http.StatusNotFound)
			return
		}
	} else {
		s.store.Clear(store)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}
	ctx := r.Context()
	store := strings.TrimSpace(r.URL.Query().Get("store"))
	if store == "" {
		http.Error(w, "provide a store with ?store=...", http.StatusBadRequest)
		return
	}

	receipt, err := s.submitter.Submit(ctx, store)
	if err != nil {
		if errors.Is(err, ErrUnknownStore) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.ErrorContext(ctx, "cart submission failed", "store", store, "error", err)
		http.Error(w, "cart submission failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(receipt); err != nil {
		slog.ErrorContext(ctx, "failed to encode receipt", "error", err)
	}
}
