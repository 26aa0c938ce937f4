// internal/game/errors.go
package game

import "errors"

// Domain errors returned by the Engine. They are always wrapped with context,
// so compare with errors.Is.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrSessionNotFound     = errors.New("session not found")
	ErrInvalidState        = errors.New("invalid session state")
	ErrSessionFull         = errors.New("session is full")
	ErrPlayerNotInSession  = errors.New("player not in session")
	ErrNotPlayerTurn       = errors.New("not player's turn")
	ErrInvalidActionTarget = errors.New("invalid action target")

	// ErrDeckEmpty is returned after the session was finished and persisted as
	// a draw. The call failed, but its state change is committed.
	ErrDeckEmpty = errors.New("deck is empty")

	// ErrGuardTimeout is returned when a session stays locked longer than the
	// configured acquisition timeout.
	ErrGuardTimeout = errors.New("timed out waiting for session")
)
