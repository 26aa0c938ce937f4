package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/kokodi/internal/models"
	"github.com/redis/go-redis/v9"
)

// EventQueue is a Redis list of session events. The server pushes, the
// historian pops.
type EventQueue struct {
	rdb  *redis.Client
	name string
}

func NewEventQueue(rdb *redis.Client, name string) *EventQueue {
	if name == "" {
		name = DefaultQueueName
	}
	return &EventQueue{rdb: rdb, name: name}
}

// Publish serializes ev and pushes it to the tail of the queue.
func (q *EventQueue) Publish(ctx context.Context, ev models.SessionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal SessionEvent: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.name, err)
	}
	return nil
}

// Pop blocks up to wait for the next event. ok is false when the wait ran
// out without a message.
func (q *EventQueue) Pop(ctx context.Context, wait time.Duration) (ev models.SessionEvent, ok bool, err error) {
	res, err := q.rdb.BLPop(ctx, wait, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return ev, false, nil
	}
	if err != nil {
		return ev, false, fmt.Errorf("BLPop %s: %w", q.name, err)
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return ev, false, nil
	}
	if err := json.Unmarshal([]byte(res[1]), &ev); err != nil {
		return ev, false, fmt.Errorf("invalid event record: %w", err)
	}
	return ev, true, nil
}

// Len reports how many events are waiting.
func (q *EventQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.name).Result()
}
