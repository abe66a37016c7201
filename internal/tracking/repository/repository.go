// Package repository persists sessions and daily rollups. Both tables belong
// to the tracking service and the login path writes them in one transaction.
package repository

import (
	"context"
	"time"

	sessiondomain "presence-tracker/internal/session/domain"
	statsdomain "presence-tracker/internal/stats/domain"
)

// ActiveCounts is the partition of currently active sessions by device class.
type ActiveCounts struct {
	Mobile  int
	Desktop int
}

// Total returns the number of active sessions across device classes.
func (c ActiveCounts) Total() int { return c.Mobile + c.Desktop }

// Repository defines persistence for sessions and daily stats.
type Repository interface {
	// RecordLogin closes any active sessions for the user, inserts the new
	// session, and applies the daily rollup for day — all in one transaction.
	RecordLogin(ctx context.Context, s *sessiondomain.Session, day string) error
	// DeactivateAllByUser closes all active sessions for the user and returns
	// how many were closed. Closing zero sessions is not an error.
	DeactivateAllByUser(ctx context.Context, userID string) (int64, error)
	// TouchActiveByUser advances last_seen on the user's active sessions.
	// last_seen never moves backwards.
	TouchActiveByUser(ctx context.Context, userID string, at time.Time) (int64, error)
	// DeactivateStale closes every active session with last_seen strictly
	// before cutoff and returns the number closed. Single conditional update,
	// safe to run concurrently with logins and heartbeats.
	DeactivateStale(ctx context.Context, cutoff time.Time) (int64, error)
	// ActiveCounts returns the active-session partition by device class.
	ActiveCounts(ctx context.Context) (ActiveCounts, error)
	// DailyStat returns the rollup for the given day key, or nil if no login
	// has happened that day. It returns an error only for database failures.
	DailyStat(ctx context.Context, day string) (*statsdomain.DailyStat, error)
}
