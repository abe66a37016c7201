package domain

import (
	"errors"
	"time"
	"unicode"
)

// Session is one continuous logged-in episode for a user, bounded by login
// and logout or expiry. Deactivation is terminal: a new login creates a new
// Session rather than reviving an old one.
type Session struct {
	ID             string
	UserID         string
	DeviceType     DeviceType
	IPAddress      string
	ClientMetadata string // raw device hint (e.g. user agent) the session was classified from
	IsActive       bool
	LoginAt        time.Time
	LastSeen       time.Time // monotonically non-decreasing while active; >= LoginAt
}

const maxUserIDLen = 128

var ErrInvalidUserID = errors.New("user id is empty, too long, or contains control characters")

// ValidateUserID rejects identifiers before they reach the store.
func ValidateUserID(userID string) error {
	if userID == "" || len(userID) > maxUserIDLen {
		return ErrInvalidUserID
	}
	for _, r := range userID {
		if unicode.IsControl(r) {
			return ErrInvalidUserID
		}
	}
	return nil
}

// Validate validates the session for persistence. Returns an error describing the first validation failure.
func (s *Session) Validate() error {
	if err := ValidateUserID(s.UserID); err != nil {
		return err
	}
	if s.DeviceType != DeviceMobile && s.DeviceType != DeviceDesktop {
		return errors.New("device type must be mobile or desktop")
	}
	if s.LastSeen.Before(s.LoginAt) {
		return errors.New("last seen must not precede login time")
	}
	return nil
}
