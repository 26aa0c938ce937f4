package game

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jason-s-yu/kokodi/internal/models"
	"github.com/jason-s-yu/kokodi/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

// recordingPublisher collects published events instead of sending them anywhere.
type recordingPublisher struct {
	mu     sync.Mutex
	events []models.SessionEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev models.SessionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []models.SessionEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.SessionEventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	engine   *Engine
	sessions *store.SessionStore
	users    *store.UserStore
	clock    *quartz.Mock
	events   *recordingPublisher
	logs     *test.Hook
}

const testWinScore = 100

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	f := &fixture{
		sessions: store.NewSessionStore(),
		users:    store.NewUserStore(),
		clock:    quartz.NewMock(t),
		events:   &recordingPublisher{},
		logs:     hook,
	}
	f.engine = NewEngine(f.sessions, f.users, testWinScore,
		WithLogger(logger),
		WithClock(f.clock),
		WithRand(rand.New(rand.NewSource(1))),
		WithPublishers(f.events),
	)
	return f
}

func (f *fixture) addUser(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{ID: uuid.New(), Login: name, Name: name}
	_, err := f.users.Save(context.Background(), u)
	require.NoError(t, err)
	return u
}

// seedInProgress stores a started session whose turn order is the given
// players in order, with a hand-picked deck.
func (f *fixture) seedInProgress(t *testing.T, deck []models.Card, players ...*models.User) *models.Session {
	t.Helper()
	require.NotEmpty(t, players)
	s := models.NewSession(uuid.New(), players[0].ID, models.DefaultMinPlayers, models.DefaultMaxPlayers, f.clock.Now())
	s.PlayerIDs = nil
	for _, p := range players {
		s.PlayerIDs = append(s.PlayerIDs, p.ID)
		s.Scores[p.ID] = 0
	}
	s.State = models.StateInProgress
	s.TurnOrder = append([]uuid.UUID(nil), s.PlayerIDs...)
	s.CurrentPlayerIndex = 0
	s.Deck = deck
	_, err := f.sessions.Save(context.Background(), s)
	require.NoError(t, err)
	return s
}

func (f *fixture) setScores(t *testing.T, sessionID uuid.UUID, scores map[uuid.UUID]int) {
	t.Helper()
	ctx := context.Background()
	s, err := f.sessions.FindByID(ctx, sessionID)
	require.NoError(t, err)
	for id, score := range scores {
		s.Scores[id] = score
	}
	_, err = f.sessions.Save(ctx, s)
	require.NoError(t, err)
}

func (f *fixture) load(t *testing.T, sessionID uuid.UUID) *models.Session {
	t.Helper()
	s, err := f.sessions.FindByID(context.Background(), sessionID)
	require.NoError(t, err)
	return s
}

func scoreOf(scores []PlayerScore, id uuid.UUID) (int, bool) {
	for _, ps := range scores {
		if ps.UserID == id {
			return ps.Score, true
		}
	}
	return 0, false
}
