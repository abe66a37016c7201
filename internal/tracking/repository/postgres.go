package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	sessiondomain "presence-tracker/internal/session/domain"
	statsdomain "presence-tracker/internal/stats/domain"
)

// uniqueViolation is the Postgres error code raised by the partial unique
// index sessions_one_active_per_user when two logins for the same user race.
const uniqueViolation = "23505"

type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns a tracking repository that uses the given db for persistence.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// applyLoginSQL upserts the daily rollup for one login. The membership check
// on unique_user_ids and the counter increments happen in a single statement,
// so concurrent logins on the same day cannot drift total_logins away from
// the device sum or double-count a user.
const applyLoginSQL = `
INSERT INTO daily_stats (date, total_logins, mobile_logins, desktop_logins, unique_user_ids)
VALUES ($1::date, 1,
        CASE WHEN $2 = 'mobile' THEN 1 ELSE 0 END,
        CASE WHEN $2 = 'desktop' THEN 1 ELSE 0 END,
        jsonb_build_array($3::text))
ON CONFLICT (date) DO UPDATE SET
    total_logins    = daily_stats.total_logins + 1,
    mobile_logins   = daily_stats.mobile_logins + CASE WHEN $2 = 'mobile' THEN 1 ELSE 0 END,
    desktop_logins  = daily_stats.desktop_logins + CASE WHEN $2 = 'desktop' THEN 1 ELSE 0 END,
    unique_user_ids = CASE
        WHEN jsonb_exists(daily_stats.unique_user_ids, $3::text) THEN daily_stats.unique_user_ids
        ELSE daily_stats.unique_user_ids || jsonb_build_array($3::text)
    END`

// RecordLogin closes prior active sessions for the user, inserts the new one,
// and applies the daily rollup, all in one transaction. If a concurrent login
// for the same user wins the insert first, the unique index rejects ours and
// we retry once; the retry's deactivate step then closes the winner's session.
func (r *PostgresRepository) RecordLogin(ctx context.Context, s *sessiondomain.Session, day string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if err = r.recordLoginOnce(ctx, s, day); err == nil {
			return nil
		}
		if !isUniqueViolation(err) {
			return err
		}
	}
	return fmt.Errorf("record login for user %s: %w", s.UserID, err)
}

func (r *PostgresRepository) recordLoginOnce(ctx context.Context, s *sessiondomain.Session, day string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET is_active = FALSE WHERE user_id = $1 AND is_active`, s.UserID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, device_type, ip_address, client_metadata, is_active, login_at, last_seen)
		 VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7)`,
		s.ID, s.UserID, string(s.DeviceType), s.IPAddress, s.ClientMetadata, s.LoginAt, s.LastSeen); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, applyLoginSQL, day, string(s.DeviceType), s.UserID); err != nil {
		return err
	}
	return tx.Commit()
}

// DeactivateAllByUser closes all active sessions for the user. Idempotent: zero rows is a no-op.
func (r *PostgresRepository) DeactivateAllByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET is_active = FALSE WHERE user_id = $1 AND is_active`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// TouchActiveByUser advances last_seen on the user's active sessions. GREATEST
// keeps last_seen monotonic if a delayed heartbeat arrives out of order.
func (r *PostgresRepository) TouchActiveByUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET last_seen = GREATEST(last_seen, $2) WHERE user_id = $1 AND is_active`, userID, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeactivateStale closes active sessions whose last_seen is strictly before
// cutoff. One conditional bulk update, never read-then-write: a heartbeat that
// lands between scan and write simply keeps its row out of the predicate.
func (r *PostgresRepository) DeactivateStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET is_active = FALSE WHERE is_active AND last_seen < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ActiveCounts returns the number of active sessions per device class.
func (r *PostgresRepository) ActiveCounts(ctx context.Context) (ActiveCounts, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT device_type, COUNT(*) FROM sessions WHERE is_active GROUP BY device_type`)
	if err != nil {
		return ActiveCounts{}, err
	}
	defer rows.Close()

	var counts ActiveCounts
	for rows.Next() {
		var device string
		var n int
		if err := rows.Scan(&device, &n); err != nil {
			return ActiveCounts{}, err
		}
		switch sessiondomain.DeviceType(device) {
		case sessiondomain.DeviceMobile:
			counts.Mobile = n
		case sessiondomain.DeviceDesktop:
			counts.Desktop = n
		}
	}
	return counts, rows.Err()
}

type dailyStatRow struct {
	Date          time.Time `db:"date"`
	TotalLogins   int       `db:"total_logins"`
	MobileLogins  int       `db:"mobile_logins"`
	DesktopLogins int       `db:"desktop_logins"`
	UniqueUserIDs []byte    `db:"unique_user_ids"`
}

// DailyStat returns the rollup for day, or nil if no login has happened that day.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) DailyStat(ctx context.Context, day string) (*statsdomain.DailyStat, error) {
	var row dailyStatRow
	err := r.db.GetContext(ctx, &row,
		`SELECT date, total_logins, mobile_logins, desktop_logins, unique_user_ids
		 FROM daily_stats WHERE date = $1::date`, day)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var users []string
	if len(row.UniqueUserIDs) > 0 {
		if err := json.Unmarshal(row.UniqueUserIDs, &users); err != nil {
			return nil, fmt.Errorf("daily stat %s: decode unique_user_ids: %w", day, err)
		}
	}
	return &statsdomain.DailyStat{
		Date:          row.Date.Format(statsdomain.DayKeyFormat),
		TotalLogins:   row.TotalLogins,
		MobileLogins:  row.MobileLogins,
		DesktopLogins: row.DesktopLogins,
		UniqueUserIDs: users,
	}, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
