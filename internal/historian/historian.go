// Package historian drains committed session events from a queue and
// persists them in batches.
package historian

import (
	"context"
	"errors"
	"time"

	"github.com/coder/quartz"
	"github.com/jason-s-yu/kokodi/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Queue yields events one at a time. ok is false when nothing arrived
// within wait.
type Queue interface {
	Pop(ctx context.Context, wait time.Duration) (ev models.SessionEvent, ok bool, err error)
}

// Sink stores a batch of events atomically.
type Sink interface {
	WriteEvents(ctx context.Context, events []models.SessionEvent) error
}

// Config tunes batching.
type Config struct {
	BatchSize  int
	FlushEvery time.Duration
	PopWait    time.Duration
}

// Service moves events from a Queue into a Sink. A batch is written when it
// reaches BatchSize, when FlushEvery elapses, and once more on shutdown.
type Service struct {
	queue Queue
	sink  Sink
	cfg   Config
	clock quartz.Clock
	log   logrus.FieldLogger

	batch []models.SessionEvent
}

func NewService(queue Queue, sink Sink, cfg Config, logger logrus.FieldLogger, clock quartz.Clock) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = 500 * time.Millisecond
	}
	if cfg.PopWait <= 0 {
		cfg.PopWait = 3 * time.Second
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Service{
		queue: queue,
		sink:  sink,
		cfg:   cfg,
		clock: clock,
		log:   logger,
		batch: make([]models.SessionEvent, 0, cfg.BatchSize),
	}
}

// Run blocks until ctx is cancelled, then flushes whatever is buffered.
func (s *Service) Run(ctx context.Context) error {
	events := make(chan models.SessionEvent, s.cfg.BatchSize)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(events)
		return s.readLoop(gctx, events)
	})
	g.Go(func() error {
		return s.batchLoop(ctx, events)
	})

	s.log.Info("historian started")
	err := g.Wait()
	s.log.Info("historian stopped")
	return err
}

func (s *Service) readLoop(ctx context.Context, out chan<- models.SessionEvent) error {
	for {
		ev, ok, err := s.queue.Pop(ctx, s.cfg.PopWait)
		if ok {
			// Already off the queue. batchLoop drains out until it is closed.
			out <- ev
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			s.log.WithError(err).Error("failed to pop event")
			if !s.pause(ctx, time.Second) {
				return nil
			}
		}
	}
}

func (s *Service) pause(ctx context.Context, d time.Duration) bool {
	timer := s.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Service) batchLoop(ctx context.Context, in <-chan models.SessionEvent) error {
	ticker := s.clock.NewTicker(s.cfg.FlushEvery)
	defer ticker.Stop()

	for {
		select {
		case ev, open := <-in:
			if !open {
				// The reader only exits on shutdown; write what is left with a
				// fresh deadline.
				flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				s.flush(flushCtx)
				return nil
			}
			s.batch = append(s.batch, ev)
			if len(s.batch) >= s.cfg.BatchSize {
				s.flush(ctx)
			}
		case <-ticker.C:
			s.flush(ctx)
		}
	}
}

// flush writes the buffered batch. On failure the batch is kept for the next
// attempt, up to ten batches' worth of events.
func (s *Service) flush(ctx context.Context) {
	if len(s.batch) == 0 {
		return
	}
	err := s.sink.WriteEvents(ctx, s.batch)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.log.WithError(err).Errorf("failed to flush %d events", len(s.batch))
		if limit := 10 * s.cfg.BatchSize; len(s.batch) > limit {
			dropped := len(s.batch) - limit
			s.batch = append(s.batch[:0], s.batch[dropped:]...)
			s.log.Warnf("dropped %d oldest events", dropped)
		}
		return
	}
	s.log.Debugf("flushed %d events", len(s.batch))
	s.batch = s.batch[:0]
}
