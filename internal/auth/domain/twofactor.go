package domain

import "time"

// RecoveryCode is a single-use second factor. Only the fingerprint of the
// normalized code is stored.
type RecoveryCode struct {
	ID          string
	AccountID   string
	Fingerprint string
	UsedAt      *time.Time
	CreatedAt   time.Time
}

// TwoFactorChallenge is issued after a correct password when the account has
// 2FA enabled. The opaque token is given to the browser; only its
// fingerprint is stored.
type TwoFactorChallenge struct {
	ID          string
	AccountID   string
	Fingerprint string
	Attempts    int
	CreatedAt   time.Time
	ExpiresAt   time.Time
}
