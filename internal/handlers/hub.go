package handlers

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/kokodi/internal/models"
	"github.com/sirupsen/logrus"
)

// subscriberBuffer is how many events a feed may lag before it is dropped.
const subscriberBuffer = 32

// Hub fans committed session events out to WebSocket feeds. It is an
// EventPublisher for the engine.
type Hub struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[*subscription]struct{}
	log  logrus.FieldLogger
}

type subscription struct {
	sessionID uuid.UUID
	ch        chan models.SessionEvent
}

func NewHub(logger logrus.FieldLogger) *Hub {
	return &Hub{
		subs: make(map[uuid.UUID]map[*subscription]struct{}),
		log:  logger,
	}
}

// Subscribe registers a feed for sessionID. The channel is closed if the
// subscriber falls behind; cancel releases it otherwise.
func (h *Hub) Subscribe(sessionID uuid.UUID) (events <-chan models.SessionEvent, cancel func()) {
	sub := &subscription{sessionID: sessionID, ch: make(chan models.SessionEvent, subscriberBuffer)}

	h.mu.Lock()
	set, ok := h.subs[sessionID]
	if !ok {
		set = make(map[*subscription]struct{})
		h.subs[sessionID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	return sub.ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.removeLocked(sub)
	}
}

// removeLocked detaches sub and closes its channel once. h.mu must be held.
func (h *Hub) removeLocked(sub *subscription) {
	set, ok := h.subs[sub.sessionID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.ch)
	if len(set) == 0 {
		delete(h.subs, sub.sessionID)
	}
}

// Publish never blocks on a slow reader.
func (h *Hub) Publish(_ context.Context, ev models.SessionEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[ev.SessionID] {
		select {
		case sub.ch <- ev:
		default:
			h.log.WithField("session_id", ev.SessionID).Warn("Dropping slow event subscriber")
			h.removeLocked(sub)
		}
	}
	return nil
}

// Subscribers reports how many feeds watch sessionID.
func (h *Hub) Subscribers(sessionID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sessionID])
}
