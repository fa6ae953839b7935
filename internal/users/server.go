package users

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// SessionResolver identifies the signed-in user for a request.
type SessionResolver interface {
	GetUserIDFromRequest(r *http.Request) (string, error)
}

type server struct {
	storage  *Storage
	sessions SessionResolver
}

// NewHandler returns the handler serving the preference routes.
func NewHandler(storage *Storage, sessions SessionResolver) *server {
	return &server{storage: storage, sessions: sessions}
}

func (s *server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /preferences", s.handleGet)
	mux.HandleFunc("PUT /preferences", s.handlePut)
}

func (s *server) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := s.sessions.GetUserIDFromRequest(r)
	if err != nil {
		http.Error(w, "not signed in", http.StatusUnauthorized)
		return
	}

	prefs, err := s.storage.Get(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load preferences", "user", userID, "error", err)
		http.Error(w, "unable to load preferences", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(prefs); err != nil {
		slog.ErrorContext(ctx, "failed to encode preferences", "error", err)
	}
}

func (s *server) handlePut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := s.sessions.GetUserIDFromRequest(r)
	if err != nil {
		http.Error(w, "not signed in", http.StatusUnauthorized)
		return
	}

	var prefs Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		http.Error(w, "invalid preferences payload", http.StatusBadRequest)
		return
	}

	if err := s.storage.Update(ctx, userID, &prefs); err != nil {
		slog.ErrorContext(ctx, "failed to update preferences", "user", userID, "error", err)
		http.Error(w, "unable to save preferences", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(prefs); err != nil {
		slog.ErrorContext(ctx, "failed to encode preferences", "error", err)
	}
}
