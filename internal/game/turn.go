// internal/game/turn.go
package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/kokodi/internal/models"
)

const deckEmptyMessage = "Deck is empty. Game finished as a draw."

// PlayTurn plays userID's turn. targetID names the Steal target and is
// ignored by other cards; uuid.Nil means no target.
//
// If a Block is pending, the turn is consumed without drawing. If the deck is
// exhausted, the session is finished as a draw and persisted before
// ErrDeckEmpty is returned.
func (e *Engine) PlayTurn(ctx context.Context, sessionID, userID, targetID uuid.UUID) (*TurnResult, error) {
	var result *TurnResult
	err := e.guard.Do(ctx, sessionID, func() error {
		s, err := e.loadSession(ctx, sessionID)
		if err != nil {
			return err
		}
		user, err := e.loadUser(ctx, userID)
		if err != nil {
			return err
		}

		if s.State != models.StateInProgress {
			return fmt.Errorf("%w: session %s is not in progress (state %s)", ErrInvalidState, sessionID, s.State)
		}
		current, ok := s.CurrentPlayerID()
		if !ok {
			return fmt.Errorf("%w: session %s has an invalid turn order", ErrInvalidState, sessionID)
		}
		if userID != current {
			return fmt.Errorf("%w: it is not user %s's turn in session %s", ErrNotPlayerTurn, userID, sessionID)
		}

		switch {
		case s.NextPlayerSkipped:
			result, err = e.skipTurn(ctx, s, user)
		case len(s.Deck) == 0:
			err = e.finishOnEmptyDeck(ctx, s, user)
		default:
			result, err = e.drawAndResolve(ctx, s, user, targetID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// skipTurn consumes the caller's turn after a Block.
func (e *Engine) skipTurn(ctx context.Context, s *models.Session, user *models.User) (*TurnResult, error) {
	s.NextPlayerSkipped = false
	description := fmt.Sprintf("Player %s (%s) turn was skipped due to Block card.", user.ID, user.Name)
	e.sessionLog(s).Info(description)

	entry := e.appendHistory(s, user.ID, models.SkippedCard(), description)
	advanceTurn(s)

	result, err := e.turnResult(ctx, s, models.SkippedCard(), description)
	if err != nil {
		return nil, err
	}
	if err := e.save(ctx, s); err != nil {
		return nil, err
	}
	e.publish(ctx, s, user.ID, models.EventTurnSkipped, turnPayload(entry, result))
	return result, nil
}

func (e *Engine) finishOnEmptyDeck(ctx context.Context, s *models.Session, user *models.User) error {
	s.State = models.StateFinished
	s.GameEndMessage = deckEmptyMessage
	e.sessionLog(s).Warn("Deck is empty. Finishing session.")

	if err := e.save(ctx, s); err != nil {
		return err
	}
	e.publish(ctx, s, user.ID, models.EventSessionFinished, map[string]interface{}{
		"message": s.GameEndMessage,
	})
	return fmt.Errorf("%w: session %s cannot continue", ErrDeckEmpty, s.ID)
}

func (e *Engine) drawAndResolve(ctx context.Context, s *models.Session, user *models.User, targetID uuid.UUID) (*TurnResult, error) {
	card := s.Deck[0]
	s.Deck = s.Deck[1:]

	effect, err := e.resolveCard(ctx, s, user, card, targetID)
	if err != nil {
		return nil, err
	}
	description := fmt.Sprintf("Player %s (%s) played %s. %s", user.ID, user.Name, card.Name, effect)
	e.sessionLog(s).Info(description)

	entry := e.appendHistory(s, user.ID, card, description)

	if s.Scores[user.ID] >= e.winScore {
		s.State = models.StateFinished
		s.WinnerID = user.ID
		s.GameEndMessage = fmt.Sprintf("Player %s (%s) reached %d points and won!", user.ID, user.Name, e.winScore)
		e.sessionLog(s).Info(s.GameEndMessage)
	}
	if s.State == models.StateInProgress {
		advanceTurn(s)
		e.sessionLog(s).Debugf("Advanced turn to index %d (%s)", s.CurrentPlayerIndex, s.TurnOrder[s.CurrentPlayerIndex])
	}

	result, err := e.turnResult(ctx, s, card, description)
	if err != nil {
		return nil, err
	}
	if err := e.save(ctx, s); err != nil {
		return nil, err
	}
	e.publish(ctx, s, user.ID, models.EventTurnPlayed, turnPayload(entry, result))
	if s.State == models.StateFinished {
		e.publish(ctx, s, user.ID, models.EventSessionFinished, map[string]interface{}{
			"winnerId": s.WinnerID,
			"message":  s.GameEndMessage,
		})
	}
	return result, nil
}

// resolveCard applies card to s and describes the effect. Scores never exceed
// the win score. A Steal removes min(value, target score) from the target
// before the thief's score is capped, so points over the cap are lost.
func (e *Engine) resolveCard(ctx context.Context, s *models.Session, user *models.User, card models.Card, targetID uuid.UUID) (string, error) {
	switch card.Effect {
	case models.EffectPoints:
		score := min(s.Scores[user.ID]+card.Value, e.winScore)
		s.Scores[user.ID] = score
		return fmt.Sprintf("Score increased by %d to %d.", card.Value, score), nil

	case models.EffectBlock:
		s.NextPlayerSkipped = true
		return "The next player will miss their turn.", nil

	case models.EffectDoubleDown:
		score := min(s.Scores[user.ID]*card.Value, e.winScore)
		s.Scores[user.ID] = score
		return fmt.Sprintf("Score doubled to %d.", score), nil

	case models.EffectSteal:
		target, err := e.stealTarget(ctx, s, user, targetID)
		if err != nil {
			return "", err
		}
		targetScore := s.Scores[target.ID]
		amount := min(card.Value, targetScore)
		if amount == 0 {
			return fmt.Sprintf("Attempted to steal from %s, but they had no points.", target.Name), nil
		}
		s.Scores[target.ID] = targetScore - amount
		s.Scores[user.ID] = min(s.Scores[user.ID]+amount, e.winScore)
		return fmt.Sprintf("Stole %d points from %s. Player score is now %d, Target score is now %d.",
			amount, target.Name, s.Scores[user.ID], s.Scores[target.ID]), nil

	default:
		e.sessionLog(s).Warnf("Unhandled action card: %s", card.Name)
		return "Unknown action effect.", nil
	}
}

func (e *Engine) stealTarget(ctx context.Context, s *models.Session, user *models.User, targetID uuid.UUID) (*models.User, error) {
	if targetID == uuid.Nil {
		return nil, fmt.Errorf("%w: target player id is required for steal", ErrInvalidActionTarget)
	}
	if targetID == user.ID {
		return nil, fmt.Errorf("%w: cannot target yourself for steal", ErrInvalidActionTarget)
	}
	target, err := e.users.FindUser(ctx, targetID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: target player %s not found", ErrInvalidActionTarget, targetID)
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", targetID, err)
	}
	if !s.HasPlayer(targetID) {
		return nil, fmt.Errorf("%w: target player %s (%s) is not in this session", ErrInvalidActionTarget, targetID, target.Name)
	}
	return target, nil
}

func (e *Engine) appendHistory(s *models.Session, playerID uuid.UUID, card models.Card, description string) models.TurnLogEntry {
	entry := models.TurnLogEntry{
		TurnNumber:     len(s.TurnHistory) + 1,
		PlayerID:       playerID,
		Card:           card,
		Description:    description,
		ScoresSnapshot: s.ScoresSnapshot(),
		Timestamp:      e.clock.Now(),
	}
	s.TurnHistory = append(s.TurnHistory, entry)
	return entry
}

func (e *Engine) turnResult(ctx context.Context, s *models.Session, card models.Card, description string) (*TurnResult, error) {
	scores, err := e.playerScores(ctx, s)
	if err != nil {
		return nil, err
	}
	next, hasNext := NextPlayerID(s)
	return &TurnResult{
		CardPlayed:      card,
		Description:     description,
		UpdatedScores:   scores,
		CurrentPlayerID: optionalID(s.CurrentPlayerID()),
		NextPlayerID:    optionalID(next, hasNext),
		GameOver:        s.State == models.StateFinished,
		WinnerID:        winnerOf(s),
		GameEndMessage:  s.GameEndMessage,
	}, nil
}

// advanceTurn moves the turn pointer to the next player in turn order.
func advanceTurn(s *models.Session) {
	if len(s.TurnOrder) == 0 {
		return
	}
	s.CurrentPlayerIndex = (s.CurrentPlayerIndex + 1) % len(s.TurnOrder)
}

// NextPlayerID predicts who plays after the current player, accounting for a
// pending Block. It never mutates s, so the turn path and the status path
// agree on the answer.
func NextPlayerID(s *models.Session) (uuid.UUID, bool) {
	if s.State != models.StateInProgress || len(s.TurnOrder) == 0 {
		return uuid.Nil, false
	}
	n := len(s.TurnOrder)
	next := (s.CurrentPlayerIndex + 1) % n
	if s.NextPlayerSkipped {
		next = (next + 1) % n
	}
	return s.TurnOrder[next], true
}

func turnPayload(entry models.TurnLogEntry, result *TurnResult) map[string]interface{} {
	scores := make(map[string]int, len(entry.ScoresSnapshot))
	for id, score := range entry.ScoresSnapshot {
		scores[id.String()] = score
	}
	return map[string]interface{}{
		"turnNumber":      entry.TurnNumber,
		"card":            entry.Card,
		"description":     entry.Description,
		"scores":          scores,
		"currentPlayerId": result.CurrentPlayerID,
		"nextPlayerId":    result.NextPlayerID,
		"isGameOver":      result.GameOver,
	}
}
