// internal/game/views.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/kokodi/internal/models"
)

// PlayerScore pairs a player's display name with their score.
type PlayerScore struct {
	UserID uuid.UUID `json:"userId"`
	Name   string    `json:"name"`
	Score  int       `json:"score"`
}

// TurnResult describes a resolved or skipped turn.
type TurnResult struct {
	CardPlayed      models.Card   `json:"cardPlayed"`
	Description     string        `json:"description"`
	UpdatedScores   []PlayerScore `json:"updatedScores"`
	CurrentPlayerID *uuid.UUID    `json:"currentPlayerId"`
	NextPlayerID    *uuid.UUID    `json:"nextPlayerId"`
	GameOver        bool          `json:"isGameOver"`
	WinnerID        *uuid.UUID    `json:"winnerId"`
	GameEndMessage  string        `json:"gameEndMessage,omitempty"`
}

// StatusView is the read-only display state of a session.
type StatusView struct {
	SessionID         uuid.UUID           `json:"gameId"`
	State             models.SessionState `json:"state"`
	Players           []PlayerScore       `json:"players"`
	CardsRemaining    int                 `json:"cardsRemaining"`
	CurrentPlayerID   *uuid.UUID          `json:"currentPlayerId"`
	NextPlayerID      *uuid.UUID          `json:"nextPlayerId"`
	NextPlayerSkipped bool                `json:"isNextPlayerSkipped"`
	WinnerID          *uuid.UUID          `json:"winnerId"`
	GameEndMessage    string              `json:"gameEndMessage,omitempty"`
}

func optionalID(id uuid.UUID, ok bool) *uuid.UUID {
	if !ok || id == uuid.Nil {
		return nil
	}
	return &id
}

func winnerOf(s *models.Session) *uuid.UUID {
	return optionalID(s.WinnerID, s.HasWinner())
}
