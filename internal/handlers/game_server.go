// internal/handlers/game_server.go
package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/kokodi/internal/auth"
	"github.com/jason-s-yu/kokodi/internal/game"
	"github.com/jason-s-yu/kokodi/internal/middleware"
	"github.com/jason-s-yu/kokodi/internal/models"
	"github.com/sirupsen/logrus"
)

// UserDirectory lists every account for the debug routes.
type UserDirectory interface {
	List(ctx context.Context) ([]*models.User, error)
}

// SessionDirectory lists every session for the debug routes.
type SessionDirectory interface {
	List(ctx context.Context) ([]*models.Session, error)
}

// Server holds the dependencies shared by the HTTP and WebSocket handlers.
type Server struct {
	Engine   *game.Engine
	Accounts *auth.Service
	Users    UserDirectory
	Sessions SessionDirectory
	Hub      *Hub
	Logger   logrus.FieldLogger
}

// Routes registers every endpoint on a fresh mux wrapped in request logging.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/register", s.RegisterHandler)
	mux.HandleFunc("POST /auth/login", s.LoginHandler)

	mux.HandleFunc("POST /games", s.authed(s.CreateGameHandler))
	mux.HandleFunc("GET /games/{id}", s.authed(s.GameStatusHandler))
	mux.HandleFunc("POST /games/{id}/join", s.authed(s.JoinGameHandler))
	mux.HandleFunc("POST /games/{id}/start", s.authed(s.StartGameHandler))
	mux.HandleFunc("POST /games/{id}/turn", s.authed(s.PlayTurnHandler))
	mux.HandleFunc("GET /games/{id}/history", s.authed(s.TurnHistoryHandler))
	mux.HandleFunc("GET /games/{id}/ws", s.GameWSHandler)

	mux.HandleFunc("GET /debug/users", s.DebugUsersHandler)
	mux.HandleFunc("GET /debug/games", s.DebugGamesHandler)

	return middleware.LogMiddleware(s.Logger)(mux)
}

type authedHandler func(w http.ResponseWriter, r *http.Request, userID uuid.UUID)

// authed rejects requests without a valid token before calling next.
func (s *Server) authed(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.authenticate(requestToken(r))
		if err != nil {
			writeError(w, s.Logger, err)
			return
		}
		next(w, r, userID)
	}
}

func (s *Server) authenticate(token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, errUnauthenticated
	}
	return s.Accounts.Tokens().Authenticate(token)
}

// DebugUsersHandler lists all accounts. Password hashes are never serialized.
func (s *Server) DebugUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := s.Users.List(r.Context())
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// DebugGamesHandler dumps every stored session.
func (s *Server) DebugGamesHandler(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.Sessions.List(r.Context())
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	if sessions == nil {
		sessions = []*models.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}
