package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/kokodi/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "kokodi:session:"
	sessionIndexKey  = "kokodi:sessions"
)

// SessionStore keeps each session as a JSON string under its own key.
// A zero ttl keeps sessions forever.
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl}
}

func sessionKey(id uuid.UUID) string {
	return sessionKeyPrefix + id.String()
}

// Save writes s and records its id in the session index.
func (st *SessionStore) Save(ctx context.Context, s *models.Session) (*models.Session, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal session %s: %w", s.ID, err)
	}

	_, err = st.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(s.ID), data, st.ttl)
		pipe.SAdd(ctx, sessionIndexKey, s.ID.String())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store session %s: %w", s.ID, err)
	}
	return s.Clone(), nil
}

// FindByID returns the session or models.ErrNotFound, including after the
// key has expired.
func (st *SessionStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	data, err := st.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	if s.Scores == nil {
		s.Scores = make(map[uuid.UUID]int)
	}
	return &s, nil
}

// List returns the indexed sessions that still exist, oldest first. Ids
// whose keys expired are pruned from the index.
func (st *SessionStore) List(ctx context.Context) ([]*models.Session, error) {
	ids, err := st.rdb.SMembers(ctx, sessionIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list session index: %w", err)
	}

	out := make([]*models.Session, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		s, err := st.FindByID(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			st.rdb.SRem(ctx, sessionIndexKey, raw)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
