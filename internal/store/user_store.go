// internal/store/user_store.go
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/kokodi/internal/models"
)

// UserStore keeps accounts in memory, indexed by id and by login.
type UserStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]models.User
	byLogin map[string]uuid.UUID
}

// NewUserStore returns an empty in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[uuid.UUID]models.User),
		byLogin: make(map[string]uuid.UUID),
	}
}

// Save inserts or updates u. It returns models.ErrConflict when the login
// belongs to another user.
func (st *UserStore) Save(_ context.Context, u *models.User) (*models.User, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if owner, ok := st.byLogin[u.Login]; ok && owner != u.ID {
		return nil, models.ErrConflict
	}
	if prev, ok := st.byID[u.ID]; ok && prev.Login != u.Login {
		delete(st.byLogin, prev.Login)
	}
	st.byID[u.ID] = *u
	st.byLogin[u.Login] = u.ID
	return u, nil
}

// FindUser returns the user with the given id or models.ErrNotFound.
func (st *UserStore) FindUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	u, ok := st.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &u, nil
}

// FindByLogin returns the user with the given login or models.ErrNotFound.
func (st *UserStore) FindByLogin(_ context.Context, login string) (*models.User, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	id, ok := st.byLogin[login]
	if !ok {
		return nil, models.ErrNotFound
	}
	u := st.byID[id]
	return &u, nil
}

// List returns all users ordered by login.
func (st *UserStore) List(_ context.Context) ([]*models.User, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]*models.User, 0, len(st.byID))
	for _, u := range st.byID {
		u := u
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Login < out[j].Login })
	return out, nil
}
