// internal/store/session_store.go
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/kokodi/internal/models"
)

// SessionStore keeps sessions in memory. It stores and returns deep copies,
// so a caller mutating a fetched session never touches the stored record.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*models.Session
}

// NewSessionStore returns an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[uuid.UUID]*models.Session),
	}
}

// Save stores a copy of s and returns s.
func (st *SessionStore) Save(_ context.Context, s *models.Session) (*models.Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID] = s.Clone()
	return s, nil
}

// FindByID returns a copy of the session or models.ErrNotFound.
func (st *SessionStore) FindByID(_ context.Context, id uuid.UUID) (*models.Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return s.Clone(), nil
}

// List returns copies of all sessions, oldest first.
func (st *SessionStore) List(_ context.Context) ([]*models.Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]*models.Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Delete removes a session if present.
func (st *SessionStore) Delete(_ context.Context, id uuid.UUID) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
	return nil
}
