package cart

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// EventsHandler upgrades the request to a websocket and streams cart events
// as JSON text frames until the client hangs up.
func (s *Store) EventsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			slog.ErrorContext(r.Context(), "websocket upgrade failed", "error", err)
			return
		}

		events, cancel := s.Subscribe()

		// drain client frames so we notice the close handshake
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := wsutil.ReadClientData(conn); err != nil {
					return
				}
			}
		}()

		go func() {
			defer cancel()
			defer func() {
				_ = conn.Close()
			}()
			for {
				select {
				case <-done:
					return
				case event, ok := <-events:
					if !ok {
						return
					}
					frame, err := json.Marshal(event)
					if err != nil {
						slog.Error("marshal cart event", "error", err)
						continue
					}
					if err := wsutil.WriteServerText(conn, frame); err != nil {
						return
					}
				}
			}
		}()
	}
}
