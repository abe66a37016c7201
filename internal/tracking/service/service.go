// Package service implements the session-tracking engine: it turns raw
// login/logout/heartbeat events into a consistent online count and daily
// rollups, with expiry of stale sessions driven by the sweeper.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	sessiondomain "presence-tracker/internal/session/domain"
	statsdomain "presence-tracker/internal/stats/domain"
	"presence-tracker/internal/tracking/repository"
)

// ErrInvalidUserID rejects malformed identifiers before the store is touched.
var ErrInvalidUserID = sessiondomain.ErrInvalidUserID

// TrackingService owns session lifecycle and stats reads. All time comes from
// the injected clock; the rendering timezone fixes the calendar-day key.
type TrackingService struct {
	repo   repository.Repository
	clock  quartz.Clock
	loc    *time.Location
	logger zerolog.Logger

	logins      metric.Int64Counter
	logouts     metric.Int64Counter
	heartbeats  metric.Int64Counter
	expirations metric.Int64Counter
}

// NewTrackingService returns a TrackingService with the given dependencies.
// clk may be nil for the real clock; loc may be nil for UTC.
func NewTrackingService(repo repository.Repository, clk quartz.Clock, loc *time.Location, logger zerolog.Logger) *TrackingService {
	if clk == nil {
		clk = quartz.NewReal()
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &TrackingService{
		repo:   repo,
		clock:  clk,
		loc:    loc,
		logger: logger,
	}
	meter := otel.Meter("presence-tracker/tracking")
	s.logins, _ = meter.Int64Counter("presence_logins_total",
		metric.WithDescription("Accepted login events by device class"))
	s.logouts, _ = meter.Int64Counter("presence_logouts_total",
		metric.WithDescription("Accepted logout events"))
	s.heartbeats, _ = meter.Int64Counter("presence_heartbeats_total",
		metric.WithDescription("Accepted heartbeat events"))
	s.expirations, _ = meter.Int64Counter("presence_sessions_expired_total",
		metric.WithDescription("Sessions closed by the expiry sweep"))
	return s
}

// RecordLogin closes any prior active session for the user and opens a new
// one classified from deviceHint, then applies the daily rollup. The close,
// the insert, and the rollup are one unit of work in the repository.
func (s *TrackingService) RecordLogin(ctx context.Context, userID, deviceHint, ipAddress string) (*sessiondomain.Session, error) {
	if err := sessiondomain.ValidateUserID(userID); err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	sess := &sessiondomain.Session{
		ID:             uuid.New().String(),
		UserID:         userID,
		DeviceType:     sessiondomain.ClassifyDevice(deviceHint),
		IPAddress:      ipAddress,
		ClientMetadata: deviceHint,
		IsActive:       true,
		LoginAt:        now,
		LastSeen:       now,
	}
	day := statsdomain.DayKey(now, s.loc)
	if err := s.repo.RecordLogin(ctx, sess, day); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	s.add(ctx, s.logins, 1, attribute.String("device", string(sess.DeviceType)))
	s.logger.Debug().Str("user_id", userID).Str("device", string(sess.DeviceType)).Msg("login recorded")
	return sess, nil
}

// RecordLogout closes all active sessions for the user. Idempotent: a logout
// with no active session is a no-op, not an error.
func (s *TrackingService) RecordLogout(ctx context.Context, userID string) error {
	if err := sessiondomain.ValidateUserID(userID); err != nil {
		return err
	}
	n, err := s.repo.DeactivateAllByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("record logout: %w", err)
	}
	s.add(ctx, s.logouts, 1)
	s.logger.Debug().Str("user_id", userID).Int64("closed", n).Msg("logout recorded")
	return nil
}

// Heartbeat advances last_seen on the user's active session. Safe to call
// frequently and when no session is active.
func (s *TrackingService) Heartbeat(ctx context.Context, userID string) error {
	if err := sessiondomain.ValidateUserID(userID); err != nil {
		return err
	}
	if _, err := s.repo.TouchActiveByUser(ctx, userID, s.clock.Now().UTC()); err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	s.add(ctx, s.heartbeats, 1)
	return nil
}

// ExpireInactive closes every active session idle for longer than threshold
// and returns how many were closed. The boundary is strict: a session whose
// last_seen equals the cutoff survives.
func (s *TrackingService) ExpireInactive(ctx context.Context, threshold time.Duration) (int64, error) {
	if threshold <= 0 {
		return 0, errors.New("expire inactive: threshold must be positive")
	}
	cutoff := s.clock.Now().UTC().Add(-threshold)
	n, err := s.repo.DeactivateStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire inactive: %w", err)
	}
	if n > 0 {
		s.add(ctx, s.expirations, n)
		s.logger.Info().Int64("expired", n).Time("cutoff", cutoff).Msg("stale sessions expired")
	}
	return n, nil
}

// GetStats computes the current snapshot: active sessions partitioned by
// device plus today's rollup. A missing rollup row means zeros, not an error.
// Pure read; expiry is the sweeper's job, never triggered from here.
func (s *TrackingService) GetStats(ctx context.Context) (*statsdomain.Snapshot, error) {
	now := s.clock.Now()
	counts, err := s.repo.ActiveCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	day := statsdomain.DayKey(now, s.loc)
	snap := &statsdomain.Snapshot{
		CurrentOnline:  counts.Total(),
		CurrentMobile:  counts.Mobile,
		CurrentDesktop: counts.Desktop,
		Date:           day,
		GeneratedAt:    now.UTC(),
	}
	stat, err := s.repo.DailyStat(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	if stat != nil {
		snap.TodayLogins = stat.TotalLogins
		snap.TodayMobile = stat.MobileLogins
		snap.TodayDesktop = stat.DesktopLogins
		snap.TodayUniqueUsers = len(stat.UniqueUserIDs)
	}
	return snap, nil
}

func (s *TrackingService) add(ctx context.Context, c metric.Int64Counter, n int64, attrs ...attribute.KeyValue) {
	if c != nil {
		c.Add(ctx, n, metric.WithAttributes(attrs...))
	}
}
