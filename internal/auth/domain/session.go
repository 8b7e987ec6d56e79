package domain

import "time"

// Session is one browser sign-in occupying a slot.
type Session struct {
	ID          string
	AccountID   string
	Slot        int
	Fingerprint string // fingerprint of the signed session token
	UserAgent   string
	IP          string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	RevokedAt   *time.Time
}

// LiveAt reports whether the session is unrevoked and unexpired at now.
func (s *Session) LiveAt(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
