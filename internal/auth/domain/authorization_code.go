package domain

import "time"

// AuthorizationCode represents an OAuth 2.0 authorization code issuance.
type AuthorizationCode struct {
	ID                  string
	Fingerprint         string
	ClientID            string
	AccountID           string
	SessionID           string
	RedirectURI         string
	Scope               string // space-delimited
	CodeChallenge       string
	CodeChallengeMethod string // S256 or plain, empty when PKCE was not used
	Nonce               string
	AuthTime            time.Time
	ExpiresAt           time.Time
	UsedAt              *time.Time
	CreatedAt           time.Time
}
