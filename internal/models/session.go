// internal/models/session.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the lifecycle phase of a session. Transitions only move
// forward: WAITING_FOR_PLAYERS -> IN_PROGRESS -> FINISHED.
type SessionState string

const (
	StateWaitingForPlayers SessionState = "WAITING_FOR_PLAYERS"
	StateInProgress        SessionState = "IN_PROGRESS"
	StateFinished          SessionState = "FINISHED"
)

const (
	DefaultMinPlayers = 2
	DefaultMaxPlayers = 4
)

// Session is one game instance: its players, deck, turn pointer and scores.
//
// A Session fetched from a store is a private copy. The engine mutates it
// while holding the session's guard and writes it back with Save.
type Session struct {
	ID        uuid.UUID    `json:"id"`
	PlayerIDs []uuid.UUID  `json:"playerIds"`
	State     SessionState `json:"state"`

	// Deck is drawn from the front.
	Deck []Card `json:"deck"`

	// TurnOrder is a permutation of PlayerIDs fixed when the session starts.
	TurnOrder          []uuid.UUID `json:"turnOrder"`
	CurrentPlayerIndex int         `json:"currentPlayerIndex"`
	NextPlayerSkipped  bool        `json:"isNextPlayerSkipped"`

	Scores      map[uuid.UUID]int `json:"scores"`
	TurnHistory []TurnLogEntry    `json:"turnHistory"`

	WinnerID       uuid.UUID `json:"winnerId"`
	GameEndMessage string    `json:"gameEndMessage,omitempty"`

	MinPlayers int `json:"minPlayers"`
	MaxPlayers int `json:"maxPlayers"`

	// Version increments on every committed mutation.
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewSession returns a waiting session with the creator seated and scored at zero.
func NewSession(id, creatorID uuid.UUID, minPlayers, maxPlayers int, now time.Time) *Session {
	return &Session{
		ID:                 id,
		PlayerIDs:          []uuid.UUID{creatorID},
		State:              StateWaitingForPlayers,
		Deck:               []Card{},
		TurnOrder:          []uuid.UUID{},
		CurrentPlayerIndex: -1,
		Scores:             map[uuid.UUID]int{creatorID: 0},
		TurnHistory:        []TurnLogEntry{},
		MinPlayers:         minPlayers,
		MaxPlayers:         maxPlayers,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// HasPlayer reports whether userID joined the session.
func (s *Session) HasPlayer(userID uuid.UUID) bool {
	for _, id := range s.PlayerIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// CurrentPlayerID returns the player whose turn it is. It is only defined
// while the session is in progress with a valid turn pointer.
func (s *Session) CurrentPlayerID() (uuid.UUID, bool) {
	if s.State != StateInProgress || s.CurrentPlayerIndex < 0 || s.CurrentPlayerIndex >= len(s.TurnOrder) {
		return uuid.Nil, false
	}
	return s.TurnOrder[s.CurrentPlayerIndex], true
}

// HasWinner reports whether a player won the session.
func (s *Session) HasWinner() bool {
	return s.WinnerID != uuid.Nil
}

// ScoresSnapshot copies the score map.
func (s *Session) ScoresSnapshot() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(s.Scores))
	for id, score := range s.Scores {
		out[id] = score
	}
	return out
}

// Clone returns a deep copy that shares no mutable state with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.PlayerIDs = append([]uuid.UUID(nil), s.PlayerIDs...)
	c.Deck = append([]Card(nil), s.Deck...)
	c.TurnOrder = append([]uuid.UUID(nil), s.TurnOrder...)
	c.Scores = s.ScoresSnapshot()
	c.TurnHistory = make([]TurnLogEntry, len(s.TurnHistory))
	for i, entry := range s.TurnHistory {
		c.TurnHistory[i] = entry.Clone()
	}
	return &c
}

// TurnLogEntry records one resolved turn. Entries are append-only.
type TurnLogEntry struct {
	TurnNumber     int               `json:"turnNumber"`
	PlayerID       uuid.UUID         `json:"playerId"`
	Card           Card              `json:"cardPlayed"`
	Description    string            `json:"description"`
	ScoresSnapshot map[uuid.UUID]int `json:"scoresSnapshot"`
	Timestamp      time.Time         `json:"timestamp"`
}

// Clone copies the entry including its score snapshot.
func (e TurnLogEntry) Clone() TurnLogEntry {
	c := e
	c.ScoresSnapshot = make(map[uuid.UUID]int, len(e.ScoresSnapshot))
	for id, score := range e.ScoresSnapshot {
		c.ScoresSnapshot[id] = score
	}
	return c
}
