// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jason-s-yu/kokodi/internal/game"
	"github.com/jason-s-yu/kokodi/internal/middleware"
	"github.com/jason-s-yu/kokodi/internal/models"
)

const (
	feedSubprotocol = "game"
	writeTimeout    = 3 * time.Second
)

// statusMessage is the first frame of every feed.
type statusMessage struct {
	Type   string           `json:"type"`
	Status *game.StatusView `json:"status"`
}

// GameWSHandler streams a session's committed events over WebSocket.
// Browsers cannot set headers on the upgrade request, so the token may also
// be passed as ?token=.
func (s *Server) GameWSHandler(w http.ResponseWriter, r *http.Request) {
	token := requestToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	userID, err := s.authenticate(token)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	sessionID, err := pathID(r)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	// Subscribe before reading the snapshot so no commit falls in between.
	events, cancel := s.Hub.Subscribe(sessionID)
	defer cancel()

	status, err := s.Engine.GetStatus(r.Context(), sessionID)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{feedSubprotocol},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.Logger.Warnf("WebSocket accept error for game %s: %v", sessionID, err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

	if c.Subprotocol() != feedSubprotocol {
		c.Close(BadSubprotocolError, "Client must use the 'game' subprotocol.")
		return
	}

	log := s.Logger.WithField("user_id", userID)
	middleware.LogWebSocketConnect(log, r.RemoteAddr, r.URL.Path)

	// Client frames are ignored; CloseRead cancels ctx when the client goes away.
	ctx := c.CloseRead(r.Context())

	err = s.streamEvents(ctx, c, status, events)
	middleware.LogWebSocketDisconnect(log, r.RemoteAddr, r.URL.Path, err)
}

func (s *Server) streamEvents(ctx context.Context, c *websocket.Conn, status *game.StatusView, events <-chan models.SessionEvent) error {
	if err := writeFrame(ctx, c, statusMessage{Type: "status", Status: status}); err != nil {
		return err
	}
	if status.State == models.StateFinished {
		return c.Close(SessionFinishedError, "session finished")
	}

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return c.Close(SlowConsumerError, "event feed fell behind")
			}
			if err := writeFrame(ctx, c, ev); err != nil {
				return err
			}
			if ev.Type == models.EventSessionFinished {
				return c.Close(SessionFinishedError, "session finished")
			}
		}
	}
}

func writeFrame(ctx context.Context, c *websocket.Conn, v interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c, v)
}
