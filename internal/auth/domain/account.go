package domain

import "time"

// Account is a local identity that can sign in.
type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string // argon2id PHC string
	Active       bool
	Approved     bool

	TOTPSecret        *string // base32, set once 2FA is confirmed
	TOTPPendingSecret *string // base32, set while setup is in progress
	TOTPEnabled       bool
	TOTPLastStep      int64 // last accepted 30s step, replay guard

	FailedLoginCount int
	LockedUntil      *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanSignIn reports whether the account may hold a session.
func (a *Account) CanSignIn() bool {
	return a.Active && a.Approved
}

// LockedAt reports whether the account is locked at now.
func (a *Account) LockedAt(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}
