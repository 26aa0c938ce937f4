package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/kokodi/internal/models"
)

type createGameResponse struct {
	GameID  uuid.UUID `json:"gameId"`
	Message string    `json:"message"`
}

func (s *Server) CreateGameHandler(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	session, err := s.Engine.CreateSession(r.Context(), userID)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, createGameResponse{
		GameID:  session.ID,
		Message: "Game created successfully. Waiting for players.",
	})
}

func (s *Server) GameStatusHandler(w http.ResponseWriter, r *http.Request, _ uuid.UUID) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	status, err := s.Engine.GetStatus(r.Context(), id)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) JoinGameHandler(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	if _, err := s.Engine.JoinSession(r.Context(), id, userID); err != nil {
		writeError(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("Successfully joined game %s", id)})
}

func (s *Server) StartGameHandler(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	if _, err := s.Engine.StartSession(r.Context(), id, userID); err != nil {
		writeError(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("Game %s started", id)})
}

type turnRequest struct {
	TargetPlayerID string `json:"targetPlayerId"`
}

// PlayTurnHandler plays the caller's turn. The body is optional; Steal cards
// need {"targetPlayerId": "..."}.
func (s *Server) PlayTurnHandler(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	var req turnRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.Logger, err)
		return
	}
	target := uuid.Nil
	if raw := strings.TrimSpace(req.TargetPlayerID); raw != "" {
		if target, err = uuid.Parse(raw); err != nil {
			writeError(w, s.Logger, errBadRequest("invalid targetPlayerId"))
			return
		}
	}

	result, err := s.Engine.PlayTurn(r.Context(), id, userID, target)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) TurnHistoryHandler(w http.ResponseWriter, r *http.Request, _ uuid.UUID) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	history, err := s.Engine.TurnHistory(r.Context(), id)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	if history == nil {
		history = []models.TurnLogEntry{}
	}
	writeJSON(w, http.StatusOK, history)
}
