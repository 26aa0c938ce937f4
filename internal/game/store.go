// internal/game/store.go
package game

import (
	"context"

	"github.com/google/uuid"
	"github.com/jason-s-yu/kokodi/internal/models"
)

// SessionStore persists sessions. FindByID returns models.ErrNotFound for an
// unknown id. Implementations must hand out copies: a returned session may be
// mutated by the caller without affecting the stored record until Save.
type SessionStore interface {
	Save(ctx context.Context, s *models.Session) (*models.Session, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
}

// UserLookup resolves players. FindUser returns models.ErrNotFound for an
// unknown id.
type UserLookup interface {
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// EventPublisher receives an event after each committed session mutation.
// Publish errors are logged and never fail the operation.
type EventPublisher interface {
	Publish(ctx context.Context, ev models.SessionEvent) error
}
