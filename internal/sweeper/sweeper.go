// Package sweeper runs the periodic expiry of stale sessions.
package sweeper

import (
	"context"
	"errors"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"presence-tracker/internal/telemetry"
)

const (
	// DefaultInterval is how often a sweep runs.
	DefaultInterval = 5 * time.Minute
	// DefaultThreshold is the inactivity bound after which a session is stale.
	DefaultThreshold = 15 * time.Minute
)

// Service is the slice of the tracking service the sweeper needs.
type Service interface {
	ExpireInactive(ctx context.Context, threshold time.Duration) (int64, error)
}

// Sweeper expires stale sessions on a fixed interval. A failed sweep is
// logged and retried on the next scheduled tick; it never stops the loop,
// and a missed sweep is not made up by running twice.
type Sweeper struct {
	svc       Service
	clock     quartz.Clock
	interval  time.Duration
	threshold time.Duration
	emitter   telemetry.EventEmitter
	logger    zerolog.Logger
}

// New returns a Sweeper. clk may be nil for the real clock; non-positive
// interval or threshold fall back to the defaults. emitter may be nil.
func New(svc Service, clk quartz.Clock, interval, threshold time.Duration, emitter telemetry.EventEmitter, logger zerolog.Logger) *Sweeper {
	if clk == nil {
		clk = quartz.NewReal()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Sweeper{
		svc:       svc,
		clock:     clk,
		interval:  interval,
		threshold: threshold,
		emitter:   emitter,
		logger:    logger,
	}
}

// Run blocks sweeping until ctx is canceled. Cancellation is a clean stop.
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.interval).
		Dur("threshold", s.threshold).
		Msg("sweeper started")

	waiter := s.clock.TickerFunc(ctx, s.interval, func() error {
		s.sweep(ctx)
		return nil
	}, "sweeper")

	err := waiter.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Info().Msg("sweeper stopped")
		return nil
	}
	return err
}

func (s *Sweeper) sweep(ctx context.Context) {
	expired, err := s.svc.ExpireInactive(ctx, s.threshold)
	if err != nil {
		s.logger.Error().Err(err).Msg("sweep failed, retrying next tick")
		return
	}
	if expired == 0 {
		return
	}
	telemetry.EmitAsync(s.emitter, ctx, &telemetry.Event{
		EventType: telemetry.EventSweep,
		Expired:   expired,
		Source:    "presence-tracker",
		CreatedAt: s.clock.Now().UTC(),
	})
}
