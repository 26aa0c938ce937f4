// internal/models/event.go
package models

import "github.com/google/uuid"

// SessionEventType names a committed session mutation.
type SessionEventType string

const (
	EventSessionCreated  SessionEventType = "session_created"
	EventPlayerJoined    SessionEventType = "player_joined"
	EventSessionStarted  SessionEventType = "session_started"
	EventTurnPlayed      SessionEventType = "turn_played"
	EventTurnSkipped     SessionEventType = "turn_skipped"
	EventSessionFinished SessionEventType = "session_finished"
)

// SessionEvent is published after a mutation is persisted. Version is the
// session version the event produced, so consumers can order and dedupe.
type SessionEvent struct {
	SessionID uuid.UUID              `json:"session_id"`
	Version   int                    `json:"version"`
	ActorID   uuid.UUID              `json:"actor_user_id"`
	Type      SessionEventType       `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp int64                  `json:"timestamp"` // epoch millis
}
