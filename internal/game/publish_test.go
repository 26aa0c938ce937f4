package game

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jason-s-yu/kokodi/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cancelOnSave cancels the request context as soon as a save commits, the way
// a client hanging up mid-request does.
type cancelOnSave struct {
	SessionStore
	cancel context.CancelFunc
}

func (s *cancelOnSave) Save(ctx context.Context, sess *models.Session) (*models.Session, error) {
	out, err := s.SessionStore.Save(ctx, sess)
	s.cancel()
	return out, err
}

// contextAwarePublisher fails on a done context like a network client would.
type contextAwarePublisher struct {
	mu     sync.Mutex
	events []models.SessionEvent
}

func (p *contextAwarePublisher) Publish(ctx context.Context, ev models.SessionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *contextAwarePublisher) types() []models.SessionEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.SessionEventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

func TestCommittedMutationPublishesAfterCallerCancels(t *testing.T) {
	f := newFixture(t)
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")
	seeded := f.seedInProgress(t, append([]models.Card{models.PointsCard("Points(5)", 5)}, filler(3)...), alice, bob)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, hook := test.NewNullLogger()
	pub := &contextAwarePublisher{}
	engine := NewEngine(&cancelOnSave{SessionStore: f.sessions, cancel: cancel}, f.users, testWinScore,
		WithLogger(logger),
		WithClock(quartz.NewMock(t)),
		WithRand(rand.New(rand.NewSource(1))),
		WithPublishers(pub),
	)

	_, err := engine.PlayTurn(ctx, seeded.ID, alice.ID, uuid.Nil)
	require.NoError(t, err)
	require.ErrorIs(t, ctx.Err(), context.Canceled)

	assert.Equal(t, 5, f.load(t, seeded.ID).Scores[alice.ID])
	assert.Equal(t, []models.SessionEventType{models.EventTurnPlayed}, pub.types())
	for _, entry := range hook.AllEntries() {
		assert.Greater(t, entry.Level, logrus.WarnLevel, entry.Message)
	}
}

func TestCreateSessionPublishesAfterCallerCancels(t *testing.T) {
	f := newFixture(t)
	alice := f.addUser(t, "alice")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, _ := test.NewNullLogger()
	pub := &contextAwarePublisher{}
	engine := NewEngine(&cancelOnSave{SessionStore: f.sessions, cancel: cancel}, f.users, testWinScore,
		WithLogger(logger),
		WithClock(quartz.NewMock(t)),
		WithPublishers(pub),
	)

	s, err := engine.CreateSession(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.SessionEventType{models.EventSessionCreated}, pub.types())
	assert.Equal(t, 1, pub.events[0].Version)
	assert.Equal(t, s.ID, pub.events[0].SessionID)
}
