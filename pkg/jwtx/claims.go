package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token lifetimes. Services may override them through config.
const (
	// DefaultAccessTokenTTL bounds how long a revoked access token keeps
	// verifying offline, so it stays short.
	DefaultAccessTokenTTL = time.Hour

	// DefaultRefreshTokenTTL applies to opaque, server-side refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	// DefaultSessionTTL applies to browser session tokens.
	DefaultSessionTTL = 7 * 24 * time.Hour
)

// Values of the token_use claim. A verifier always checks it so a session
// token can never be replayed as an access token or the other way round.
const (
	TokenUseAccess  = "access"
	TokenUseSession = "session"
	TokenUseID      = "id"
)

// Claims covers all three token kinds issued by the auth service. Fields that
// don't apply to a kind are left empty and omitted.
type Claims struct {
	jwt.RegisteredClaims

	TokenUse string `json:"token_use,omitempty"`

	// OAuth2 access tokens (RFC 9068 style).
	ClientID string `json:"client_id,omitempty"`
	Scope    string `json:"scope,omitempty"`

	// Session the token was derived from.
	SID string `json:"sid,omitempty"`

	// Session slot, only on session tokens.
	Slot *int `json:"slot,omitempty"`

	// Authentication Methods Reference, e.g. ["pwd"] or ["pwd","otp"].
	AMR []string `json:"amr,omitempty"`

	// OIDC identity claims.
	PreferredUsername string           `json:"preferred_username,omitempty"`
	Email             string           `json:"email,omitempty"`
	Nonce             string           `json:"nonce,omitempty"`
	AuthTime          *jwt.NumericDate `json:"auth_time,omitempty"`
}

// NewClaims builds the registered part of a token of the given use. Callers
// fill in the kind-specific fields afterwards.
func NewClaims(use, issuer, subject string, audience []string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		TokenUse: use,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// Scopes splits the space-delimited scope claim.
func (c *Claims) Scopes() []string {
	return strings.Fields(c.Scope)
}

// HasScope reports whether scope was granted.
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes(), scope)
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected != "" && c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateUse checks the token_use claim.
func (c *Claims) ValidateUse(expected string) error {
	if expected != "" && c.TokenUse != expected {
		return ErrTokenUse
	}
	return nil
}
