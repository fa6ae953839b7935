package grocery

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"larder/internal/menus"
)

// PayloadFetcher produces the raw grocery payload for a user's menu.
type PayloadFetcher interface {
	FetchGroceryPayload(ctx context.Context, userID, menuID string) (any, error)
}

// SessionResolver identifies the signed-in user for a request.
type SessionResolver interface {
	GetUserIDFromRequest(r *http.Request) (string, error)
}

type server struct {
	fetch    PayloadFetcher
	sessions SessionResolver

	mu      sync.Mutex
	checked map[string]map[string]bool // user/menu -> item name -> checked
}

// NewHandler returns the handler serving the shopping list routes.
func NewHandler(fetch PayloadFetcher, sessions SessionResolver) *server {
	return &server{
		fetch:    fetch,
		sessions: sessions,
		checked:  make(map[string]map[string]bool),
	}
}

func (s *server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /list", s.handleList)
	mux.HandleFunc("POST /list/check", s.handleCheck)
}

func (s *server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	menuID := strings.TrimSpace(r.URL.Query().Get("menu"))
	if menuID == "" {
		http.Error(w, "provide a menu id with ?menu=...", http.StatusBadRequest)
		return
	}

	userID, err := s.sessions.GetUserIDFromRequest(r)
	if err != nil {
		http.Error(w, "not signed in", http.StatusUnauthorized)
		return
	}

	payload, err := s.fetch.FetchGroceryPayload(ctx, userID, menuID)
	if err != nil {
		if errors.Is(err, menus.ErrReconnectRequired) {
			http.Error(w, "backend session expired, please log in again", http.StatusUnauthorized)
			return
		}
		slog.ErrorContext(ctx, "failed to fetch grocery payload", "menu", menuID, "error", err)
		http.Error(w, "unable to load shopping list", http.StatusBadGateway)
		return
	}

	list := Build(payload)
	s.applyChecked(userID, menuID, &list)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(list); err != nil {
		slog.ErrorContext(ctx, "failed to encode shopping list", "error", err)
	}
}

type checkRequest struct {
	Menu    string `json:"menu"`
	Name    string `json:"name"`
	Checked bool   `json:"checked"`
}

func (s *server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid check payload", http.StatusBadRequest)
		return
	}
	if req.Menu == "" || req.Name == "" {
		http.Error(w, "menu and name are required", http.StatusBadRequest)
		return
	}

	userID, err := s.sessions.GetUserIDFromRequest(r)
	if err != nil {
		http.Error(w, "not signed in", http.StatusUnauthorized)
		return
	}

	key := checkedKey(userID, req.Menu)
	s.mu.Lock()
	if s.checked[key] == nil {
		s.checked[key] = make(map[string]bool)
	}
	s.checked[key][req.Name] = req.Checked
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

// checked state is per user per menu, so two people on the same menu do not
// see each other's ticks
func checkedKey(userID, menuID string) string {
	return userID + "/" + menuID
}

func (s *server) applyChecked(userID, menuID string, list *List) {
	s.mu.Lock()
	defer s.mu.Unlock()
	checks := s.checked[checkedKey(userID, menuID)]
	if len(checks) == 0 {
		return
	}
	for ci := range list.Categories {
		for ii := range list.Categories[ci].Items {
			item := &list.Categories[ci].Items[ii]
			if checked, ok := checks[item.Name]; ok {
				item.Checked = checked
			}
		}
	}
}
