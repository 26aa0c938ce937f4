// internal/database/session.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/kokodi/internal/models"
)

// SessionStore persists whole sessions as JSONB documents.
type SessionStore struct {
	pool *pgxpool.Pool
}

func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

// Save upserts s and returns it as written.
func (st *SessionStore) Save(ctx context.Context, s *models.Session) (*models.Session, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal session %s: %w", s.ID, err)
	}

	q := `
		INSERT INTO sessions (id, state, version, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id)
		DO UPDATE SET state=$2, version=$3, data=$4, updated_at=$6
	`
	err = pgx.BeginTxFunc(ctx, st.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q, s.ID, string(s.State), s.Version, data, s.CreatedAt, s.UpdatedAt)
		return execErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert session %s: %w", s.ID, err)
	}
	return s.Clone(), nil
}

// FindByID loads a session or returns models.ErrNotFound.
func (st *SessionStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var data []byte
	err := st.pool.QueryRow(ctx, `SELECT data FROM sessions WHERE id=$1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select session %s: %w", id, err)
	}
	return decodeSession(data)
}

// List returns every session, oldest first.
func (st *SessionStore) List(ctx context.Context) ([]*models.Session, error) {
	rows, err := st.pool.Query(ctx, `SELECT data FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*models.Session
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		s, err := decodeSession(data)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func decodeSession(data []byte) (*models.Session, error) {
	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.Scores == nil {
		s.Scores = make(map[uuid.UUID]int)
	}
	return &s, nil
}
