package authsdk

import (
	"github.com/aussiebroadwan/kubarr/pkg/jwtx"
)

// ============================================================================
// Error Types
// ============================================================================

// ValidationErrorResponse is returned when a JSON body fails validation.
type ValidationErrorResponse struct {
	// Code is always "validation_error"
	Code string `json:"code"`

	// Message is a human-readable error message
	Message string `json:"message"`

	// Details maps a field name to what is wrong with it
	Details map[string]string `json:"details,omitempty"`
}

// ============================================================================
// Session Types
// ============================================================================

// LoginRequest signs an account in. Code may carry a TOTP or recovery code
// to finish two-factor in the same request.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required,max=254"`
	Password   string `json:"password" validate:"required,max=1024"`
	Code       string `json:"code,omitempty" validate:"omitempty,max=32"`
}

// CompleteChallengeRequest finishes a login that answered 409.
type CompleteChallengeRequest struct {
	ChallengeToken string `json:"challenge_token" validate:"required,max=128"`
	Code           string `json:"code" validate:"required,max=32"`
}

// LoginResponse describes the session just created or switched to. The
// session token itself travels in the slot cookie.
type LoginResponse struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	SessionID string `json:"session_id"`
	Slot      int    `json:"slot"`
	ExpiresAt int64  `json:"expires_at"` // epoch seconds
}

// SessionInfo is one live session of the caller.
type SessionInfo struct {
	ID        string `json:"id"`
	Slot      int    `json:"slot"`
	UserAgent string `json:"user_agent,omitempty"`
	IP        string `json:"ip,omitempty"`
	CreatedAt string `json:"created_at"` // RFC3339
	ExpiresAt string `json:"expires_at"` // RFC3339
	Current   bool   `json:"current"`
}

// ListSessionsResponse contains the caller's live sessions.
type ListSessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

// SignedInAccount is an account signed in on this browser.
type SignedInAccount struct {
	Slot      int    `json:"slot"`
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	Active    bool   `json:"active"`
}

// ListAccountsResponse lists every slot holding a valid session.
type ListAccountsResponse struct {
	Accounts []SignedInAccount `json:"accounts"`
}

// ============================================================================
// Two-Factor Types
// ============================================================================

// TwoFactorSetupResponse is returned when setup begins.
type TwoFactorSetupResponse struct {
	Secret    string `json:"secret" example:"JBSWY3DPEHPK3PXP"`
	URI       string `json:"uri" example:"otpauth://totp/kubarr:alice?secret=JBSWY3DPEHPK3PXP&issuer=kubarr"`
	QRCodePNG string `json:"qr_code_png"` // base64 PNG
}

// TwoFactorCodeRequest carries a 6-digit TOTP code.
type TwoFactorCodeRequest struct {
	Code string `json:"code" validate:"required,numeric,len=6"`
}

// TwoFactorDisableRequest re-proves the password before disabling.
type TwoFactorDisableRequest struct {
	Password string `json:"password" validate:"required,max=1024"`
}

// RecoveryCodesResponse returns plaintext recovery codes exactly once.
type RecoveryCodesResponse struct {
	Codes []string `json:"codes"`
}

// ============================================================================
// OAuth2 Types
// ============================================================================

// TokenResponse represents the OAuth2 token endpoint response per RFC 6749.
type TokenResponse struct {
	// AccessToken is the RS256 JWT access token
	AccessToken string `json:"access_token"`

	// RefreshToken is the opaque, rotating refresh token
	RefreshToken string `json:"refresh_token,omitempty"`

	// IDToken is present when the openid scope was granted
	IDToken string `json:"id_token,omitempty"`

	// TokenType is always "Bearer"
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int `json:"expires_in"`

	// Scope is the space-delimited list of granted scopes
	Scope string `json:"scope,omitempty"`
}

// IntrospectionResponse represents the RFC 7662 token introspection
// response. Status adds the reason a token is inactive.
type IntrospectionResponse struct {
	Active bool   `json:"active"`
	Status string `json:"status"` // active, expired, revoked or invalid

	Scope     string   `json:"scope,omitempty"`
	ClientID  string   `json:"client_id,omitempty"`
	Username  string   `json:"username,omitempty"`
	TokenType string   `json:"token_type,omitempty"`
	Exp       int64    `json:"exp,omitempty"`
	Iat       int64    `json:"iat,omitempty"`
	Nbf       int64    `json:"nbf,omitempty"`
	Sub       string   `json:"sub,omitempty"`
	Aud       []string `json:"aud,omitempty"`
	Iss       string   `json:"iss,omitempty"`
	Jti       string   `json:"jti,omitempty"`
	SessionID string   `json:"sid,omitempty"`
}

// UserInfoResponse is the OIDC userinfo document.
type UserInfoResponse struct {
	Sub               string `json:"sub"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	Email             string `json:"email,omitempty"`
}

// OpenIDConfiguration is the OIDC discovery document.
type OpenIDConfiguration struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	UserinfoEndpoint                  string   `json:"userinfo_endpoint"`
	JWKSURI                           string   `json:"jwks_uri"`
	IntrospectionEndpoint             string   `json:"introspection_endpoint"`
	RevocationEndpoint                string   `json:"revocation_endpoint"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	SubjectTypesSupported             []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported"`
	ScopesSupported                   []string `json:"scopes_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
	ClaimsSupported                   []string `json:"claims_supported"`
}

// JWKSResponse contains the JSON Web Key Set.
type JWKSResponse jwtx.JWKS

// ============================================================================
// Client Types
// ============================================================================

// CreateClientRequest registers a new OAuth2 client.
type CreateClientRequest struct {
	// ClientID is the stable identifier, e.g. "sonarr"
	ClientID string `json:"client_id" validate:"required,min=2,max=64,client_id"`

	// Name is the display name
	Name string `json:"name" validate:"required,max=100"`

	// RedirectURIs are compared byte for byte at authorization time
	RedirectURIs []string `json:"redirect_uris" validate:"required,min=1,dive,url,max=2048"`

	// Scopes the client may request. Defaults to "openid profile email".
	Scopes []string `json:"scopes,omitempty" validate:"omitempty,dive,min=1,max=64"`

	// Public clients have no secret and must use PKCE
	Public bool `json:"public"`
}

// CreateClientResponse returns the client secret exactly once.
type CreateClientResponse struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// ClientInfo describes a registered OAuth2 client.
type ClientInfo struct {
	ClientID     string   `json:"client_id"`
	Name         string   `json:"name"`
	RedirectURIs []string `json:"redirect_uris"`
	Scopes       []string `json:"scopes"`
	Public       bool     `json:"public"`
	CreatedAt    string   `json:"created_at"` // RFC3339
}

// ListClientsResponse contains a list of OAuth2 clients.
type ListClientsResponse struct {
	Clients []ClientInfo `json:"clients"`
}

// RegenerateSecretResponse returns the new secret exactly once.
type RegenerateSecretResponse struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// SigningKeyInfo describes one signing key. RetiredAt is nil while the
// key is in rotation.
type SigningKeyInfo struct {
	Kid       string  `json:"kid"`
	Algorithm string  `json:"alg"`
	CreatedAt string  `json:"created_at,omitempty"` // RFC3339
	RetiredAt *string `json:"retired_at,omitempty"` // RFC3339
}

// ListSigningKeysResponse lists known signing keys.
type ListSigningKeysResponse struct {
	Keys []SigningKeyInfo `json:"keys"`
}

// RotateKeyResponse names the new current key and every key still
// accepted for verification, oldest first.
type RotateKeyResponse struct {
	Kid        string   `json:"kid"`
	ActiveKids []string `json:"active_kids"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}
