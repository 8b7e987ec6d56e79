package domain

import "time"

type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Token is the server-side record of an issued token. Access tokens are
// keyed by their jti, refresh tokens by the fingerprint of the opaque value.
// Every token of one grant shares a FamilyID.
type Token struct {
	ID          string
	Kind        TokenKind
	Fingerprint string
	FamilyID    string
	ClientID    string
	AccountID   string
	SessionID   string
	Scope       string
	ExpiresAt   time.Time
	RevokedAt   *time.Time
	CreatedAt   time.Time
}
