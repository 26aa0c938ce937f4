// internal/game/engine.go
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jason-s-yu/kokodi/internal/models"
	"github.com/sirupsen/logrus"
)

// Engine owns the session state machine. Join, start and play calls on the
// same session are serialized by a Guard; status reads are not.
type Engine struct {
	sessions SessionStore
	users    UserLookup
	guard    *Guard

	winScore     int
	minPlayers   int
	maxPlayers   int
	guardTimeout time.Duration

	log        logrus.FieldLogger
	clock      quartz.Clock
	publishers []EventPublisher

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock sets the clock used for timestamps.
func WithClock(c quartz.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithRand sets the random source for deck and turn order shuffles.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithPlayerBounds sets the seat limits applied to new sessions.
func WithPlayerBounds(minPlayers, maxPlayers int) Option {
	return func(e *Engine) {
		e.minPlayers = minPlayers
		e.maxPlayers = maxPlayers
	}
}

// WithGuardTimeout bounds how long a call waits for a busy session.
func WithGuardTimeout(d time.Duration) Option {
	return func(e *Engine) { e.guardTimeout = d }
}

// WithPublishers registers event publishers, called in order after each commit.
func WithPublishers(p ...EventPublisher) Option {
	return func(e *Engine) { e.publishers = append(e.publishers, p...) }
}

// NewEngine builds an Engine that finishes a session once a player reaches winScore.
func NewEngine(sessions SessionStore, users UserLookup, winScore int, opts ...Option) *Engine {
	e := &Engine{
		sessions:   sessions,
		users:      users,
		winScore:   winScore,
		minPlayers: models.DefaultMinPlayers,
		maxPlayers: models.DefaultMaxPlayers,
		log:        logrus.StandardLogger(),
		clock:      quartz.NewReal(),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.guard = NewGuard(e.guardTimeout)
	return e
}

// CreateSession opens a waiting session seated with its creator.
func (e *Engine) CreateSession(ctx context.Context, creatorID uuid.UUID) (*models.Session, error) {
	creator, err := e.loadUser(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	s := models.NewSession(id, creator.ID, e.minPlayers, e.maxPlayers, e.clock.Now())

	if err := e.save(ctx, s); err != nil {
		return nil, err
	}
	e.sessionLog(s).Infof("Session created by user %s (%s)", creator.ID, creator.Name)
	e.publish(ctx, s, creator.ID, models.EventSessionCreated, nil)
	return s, nil
}

// JoinSession seats userID in a waiting session.
func (e *Engine) JoinSession(ctx context.Context, sessionID, userID uuid.UUID) (*models.Session, error) {
	user, err := e.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var joined *models.Session
	err = e.guard.Do(ctx, sessionID, func() error {
		s, err := e.loadSession(ctx, sessionID)
		if err != nil {
			return err
		}

		if s.State != models.StateWaitingForPlayers {
			return fmt.Errorf("%w: session %s is not waiting for players (state %s)", ErrInvalidState, sessionID, s.State)
		}
		if len(s.PlayerIDs) >= s.MaxPlayers {
			return fmt.Errorf("%w: session %s already has %d players", ErrSessionFull, sessionID, len(s.PlayerIDs))
		}
		if s.HasPlayer(userID) {
			return fmt.Errorf("%w: user %s (%s) is already in session %s", ErrInvalidState, user.ID, user.Name, sessionID)
		}

		s.PlayerIDs = append(s.PlayerIDs, userID)
		s.Scores[userID] = 0

		if err := e.save(ctx, s); err != nil {
			return err
		}
		e.sessionLog(s).Infof("User %s (%s) joined. Players: %d", user.ID, user.Name, len(s.PlayerIDs))
		e.publish(ctx, s, userID, models.EventPlayerJoined, map[string]interface{}{
			"players": len(s.PlayerIDs),
		})
		joined = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return joined, nil
}

// StartSession deals a fresh deck, fixes a random turn order and moves the
// session to IN_PROGRESS. Any seated player may start it.
func (e *Engine) StartSession(ctx context.Context, sessionID, userID uuid.UUID) (*models.Session, error) {
	user, err := e.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var started *models.Session
	err = e.guard.Do(ctx, sessionID, func() error {
		s, err := e.loadSession(ctx, sessionID)
		if err != nil {
			return err
		}

		if !s.HasPlayer(userID) {
			return fmt.Errorf("%w: user %s is not in session %s", ErrPlayerNotInSession, userID, sessionID)
		}
		if s.State != models.StateWaitingForPlayers {
			return fmt.Errorf("%w: session %s cannot be started (state %s)", ErrInvalidState, sessionID, s.State)
		}
		if len(s.PlayerIDs) < s.MinPlayers {
			return fmt.Errorf("%w: session %s needs at least %d players to start, has %d",
				ErrInvalidState, sessionID, s.MinPlayers, len(s.PlayerIDs))
		}

		s.State = models.StateInProgress
		s.Deck, s.TurnOrder = e.shuffle(s.PlayerIDs)
		s.CurrentPlayerIndex = 0
		s.NextPlayerSkipped = false
		s.WinnerID = uuid.Nil
		s.GameEndMessage = ""
		for _, id := range s.TurnOrder {
			if _, ok := s.Scores[id]; !ok {
				s.Scores[id] = 0
			}
		}

		if err := e.save(ctx, s); err != nil {
			return err
		}
		e.sessionLog(s).Infof("Session started by user %s (%s). Turn order: %v. Deck size: %d",
			user.ID, user.Name, s.TurnOrder, len(s.Deck))
		e.publish(ctx, s, userID, models.EventSessionStarted, map[string]interface{}{
			"turnOrder": s.TurnOrder,
			"deckSize":  len(s.Deck),
		})
		started = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return started, nil
}

// GetStatus reads the display state of a session without taking its guard,
// so it may observe a session between two turns of a concurrent writer.
func (e *Engine) GetStatus(ctx context.Context, sessionID uuid.UUID) (*StatusView, error) {
	s, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	players, err := e.playerScores(ctx, s)
	if err != nil {
		return nil, err
	}

	next, hasNext := NextPlayerID(s)
	return &StatusView{
		SessionID:         s.ID,
		State:             s.State,
		Players:           players,
		CardsRemaining:    len(s.Deck),
		CurrentPlayerID:   optionalID(s.CurrentPlayerID()),
		NextPlayerID:      optionalID(next, hasNext),
		NextPlayerSkipped: s.NextPlayerSkipped,
		WinnerID:          winnerOf(s),
		GameEndMessage:    s.GameEndMessage,
	}, nil
}

// TurnHistory returns the turn log of a session, oldest first.
func (e *Engine) TurnHistory(ctx context.Context, sessionID uuid.UUID) ([]models.TurnLogEntry, error) {
	s, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.TurnHistory, nil
}

func (e *Engine) loadSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s, err := e.sessions.FindByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return s, nil
}

func (e *Engine) loadUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := e.users.FindUser(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", id, err)
	}
	return u, nil
}

// save stamps and persists s. Callers hold the session's guard, except for
// CreateSession where the id is not yet visible to anyone else.
func (e *Engine) save(ctx context.Context, s *models.Session) error {
	s.Version++
	s.UpdatedAt = e.clock.Now()
	if _, err := e.sessions.Save(ctx, s); err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

// playerScores lists seated players with their names. Players that no longer
// resolve are left out.
func (e *Engine) playerScores(ctx context.Context, s *models.Session) ([]PlayerScore, error) {
	out := make([]PlayerScore, 0, len(s.PlayerIDs))
	for _, id := range s.PlayerIDs {
		u, err := e.users.FindUser(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load user %s: %w", id, err)
		}
		out = append(out, PlayerScore{UserID: id, Name: u.Name, Score: s.Scores[id]})
	}
	return out, nil
}

// shuffle builds a fresh deck and an independent random turn order.
func (e *Engine) shuffle(playerIDs []uuid.UUID) ([]models.Card, []uuid.UUID) {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()

	deck := BuildShuffledDeck(e.rng)
	order := append([]uuid.UUID(nil), playerIDs...)
	e.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	return deck, order
}

// publishTimeout bounds delivery of an event for an already committed
// mutation. The caller's cancellation does not apply.
const publishTimeout = 5 * time.Second

func (e *Engine) publish(ctx context.Context, s *models.Session, actorID uuid.UUID, typ models.SessionEventType, payload map[string]interface{}) {
	if len(e.publishers) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if payload == nil {
		payload = make(map[string]interface{})
	}
	ev := models.SessionEvent{
		SessionID: s.ID,
		Version:   s.Version,
		ActorID:   actorID,
		Type:      typ,
		Payload:   payload,
		Timestamp: e.clock.Now().UnixMilli(),
	}
	for _, p := range e.publishers {
		if err := p.Publish(ctx, ev); err != nil {
			e.sessionLog(s).WithError(err).Warnf("Failed to publish %s event", typ)
		}
	}
}

func (e *Engine) sessionLog(s *models.Session) logrus.FieldLogger {
	return e.log.WithField("session_id", s.ID)
}
