package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/kokodi/internal/models"
)

// EventStore appends session events to session_events.
type EventStore struct {
	pool *pgxpool.Pool
}

func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// WriteEvents inserts events in a single transaction. Redelivered events
// (same session, version and type) are ignored.
func (st *EventStore) WriteEvents(ctx context.Context, events []models.SessionEvent) error {
	if len(events) == 0 {
		return nil
	}
	q := `
		INSERT INTO session_events (session_id, version, event_type, actor_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, version, event_type) DO NOTHING
	`
	return pgx.BeginTxFunc(ctx, st.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, ev := range events {
			payload, err := json.Marshal(ev.Payload)
			if err != nil {
				return fmt.Errorf("marshal payload for session %s v%d: %w", ev.SessionID, ev.Version, err)
			}
			if _, err := tx.Exec(ctx, q,
				ev.SessionID, ev.Version, string(ev.Type), ev.ActorID, payload, time.UnixMilli(ev.Timestamp),
			); err != nil {
				return fmt.Errorf("insert event for session %s v%d: %w", ev.SessionID, ev.Version, err)
			}
		}
		return nil
	})
}

// ListEvents returns a session's events in commit order.
func (st *EventStore) ListEvents(ctx context.Context, sessionID uuid.UUID) ([]models.SessionEvent, error) {
	rows, err := st.pool.Query(ctx, `
		SELECT session_id, version, event_type, actor_id, payload, created_at
		FROM session_events
		WHERE session_id=$1
		ORDER BY version, created_at
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list events for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []models.SessionEvent
	for rows.Next() {
		var (
			ev      models.SessionEvent
			typ     string
			payload []byte
			created time.Time
		)
		if err := rows.Scan(&ev.SessionID, &ev.Version, &typ, &ev.ActorID, &payload, &created); err != nil {
			return nil, err
		}
		ev.Type = models.SessionEventType(typ)
		ev.Timestamp = created.UnixMilli()
		if err := json.Unmarshal(payload, &ev.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
