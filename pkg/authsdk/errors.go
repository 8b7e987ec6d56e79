package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/kubarr/pkg/httpx"
)

// ============================================================================
// Error Codes
// ============================================================================

const (
	// OAuth2 error codes per RFC 6749
	ErrorCodeInvalidRequest          = "invalid_request"
	ErrorCodeInvalidClient           = "invalid_client"
	ErrorCodeInvalidGrant            = "invalid_grant"
	ErrorCodeUnauthorizedClient      = "unauthorized_client"
	ErrorCodeUnsupportedGrantType    = "unsupported_grant_type"
	ErrorCodeInvalidScope            = "invalid_scope"
	ErrorCodeServerError             = "server_error"
	ErrorCodeInvalidToken            = "invalid_token"
	ErrorCodeInsufficientScope       = "insufficient_scope"
	ErrorCodeAccessDenied            = "access_denied"
	ErrorCodeUnsupportedResponseType = "unsupported_response_type"

	// Session endpoint error codes
	ErrorCodeInvalidCredentials      = "invalid_credentials"
	ErrorCodeAccountLocked           = "account_locked"
	ErrorCodeTwoFactorRequired       = "two_factor_required"
	ErrorCodeTwoFactorSetupRequired  = "two_factor_setup_required"
	ErrorCodeInvalidTwoFactorCode    = "invalid_two_factor_code"
	ErrorCodeRecoveryCodesExhausted  = "recovery_codes_exhausted"
	ErrorCodeTwoFactorAlreadyEnabled = "two_factor_already_enabled"
	ErrorCodeNotFound                = "not_found"
	ErrorCodeForbidden               = "forbidden"
	ErrorCodeConflict                = "conflict"
)

// ============================================================================
// OAuth2Error
// ============================================================================

// OAuth2Error is the error body every endpoint uses, per RFC 6749 section
// 5.2. It is shared by the server (to write responses) and the client (to
// represent them).
type OAuth2Error struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is the error code (e.g., "invalid_request", "invalid_grant")
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *OAuth2Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches another OAuth2Error with the same code, so errors.Is works
// on errors decoded from a response.
func (e *OAuth2Error) Is(target error) bool {
	t, ok := target.(*OAuth2Error)
	return ok && t.Code == e.Code
}

// WriteError writes this OAuth2Error to an HTTP response writer.
func (e *OAuth2Error) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, e)
}

// WithDescription returns a copy with a different description.
func (e *OAuth2Error) WithDescription(desc string) *OAuth2Error {
	c := *e
	c.Description = desc
	return &c
}

// ============================================================================
// Predefined Errors
// ============================================================================

var (
	ErrInvalidRequest = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	ErrInvalidClient = &OAuth2Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidClient,
		Description: "invalid client",
	}

	// ErrInvalidGrant covers every code and refresh token failure. The
	// reason is never revealed to the caller.
	ErrInvalidGrant = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidGrant,
		Description: "the grant is invalid, expired or revoked",
	}

	ErrUnsupportedGrantType = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeUnsupportedGrantType,
		Description: "grant type not supported",
	}

	ErrInvalidScope = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidScope,
		Description: "requested scope is invalid",
	}

	ErrServerError = &OAuth2Error{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}

	ErrInvalidContentType = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "content-type must be application/x-www-form-urlencoded",
	}

	ErrInvalidFormBody = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "invalid form body",
	}

	ErrInvalidToken = &OAuth2Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the token is missing, invalid, expired or revoked",
	}

	ErrInsufficientScope = &OAuth2Error{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeInsufficientScope,
		Description: "the access token does not have the required scopes",
	}

	ErrAccessDenied = &OAuth2Error{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeAccessDenied,
		Description: "access denied",
	}

	ErrUnsupportedResponseType = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeUnsupportedResponseType,
		Description: "response type not supported",
	}

	// ErrInvalidCredentials is the single answer to a failed login, whatever
	// the reason.
	ErrInvalidCredentials = &OAuth2Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "invalid credentials",
	}

	ErrTwoFactorSetupRequired = &OAuth2Error{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeTwoFactorSetupRequired,
		Description: "a role on this account requires two-factor authentication to be set up",
	}

	ErrInvalidTwoFactorCode = &OAuth2Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidTwoFactorCode,
		Description: "invalid two-factor code",
	}

	ErrRecoveryCodesExhausted = &OAuth2Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeRecoveryCodesExhausted,
		Description: "no recovery codes remain",
	}

	ErrTwoFactorAlreadyEnabled = &OAuth2Error{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeTwoFactorAlreadyEnabled,
		Description: "two-factor authentication is already enabled",
	}

	ErrNotFound = &OAuth2Error{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "not found",
	}

	ErrForbidden = &OAuth2Error{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeForbidden,
		Description: "forbidden",
	}

	ErrConflict = &OAuth2Error{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeConflict,
		Description: "resource already exists",
	}
)

// NewOAuth2Error creates a new OAuth2Error with the given status code, error code, and description.
func NewOAuth2Error(statusCode int, code, description string) *OAuth2Error {
	return &OAuth2Error{
		StatusCode:  statusCode,
		Code:        code,
		Description: description,
	}
}

// ============================================================================
// Typed Login Errors
// ============================================================================

// TwoFactorRequiredError is returned with HTTP 409 Conflict when the password
// was right but a second factor is needed. The challenge token is submitted
// to POST /auth/login/2fa.
type TwoFactorRequiredError struct {
	ChallengeToken string   `json:"challenge_token"`
	ExpiresIn      int      `json:"expires_in"`
	Methods        []string `json:"methods"`
}

// Error implements the error interface.
func (e *TwoFactorRequiredError) Error() string {
	return fmt.Sprintf("two-factor authentication required: methods=%v", e.Methods)
}

// WriteError writes the challenge as a 409 Conflict.
func (e *TwoFactorRequiredError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, http.StatusConflict, map[string]any{
		"error":             ErrorCodeTwoFactorRequired,
		"error_description": "a second factor is required to complete sign in",
		"challenge_token":   e.ChallengeToken,
		"expires_in":        e.ExpiresIn,
		"methods":           e.Methods,
	})
}

// AccountLockedError is returned with HTTP 429 while an account is locked.
type AccountLockedError struct {
	RetryAfter int `json:"retry_after"` // seconds
}

// Error implements the error interface.
func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked: retry after %ds", e.RetryAfter)
}

// WriteError writes a 429 with a Retry-After header.
func (e *AccountLockedError) WriteError(w http.ResponseWriter) {
	w.Header().Set("Retry-After", strconv.Itoa(e.RetryAfter))
	httpx.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":             ErrorCodeAccountLocked,
		"error_description": "too many failed attempts, try again later",
		"retry_after":       e.RetryAfter,
	})
}

// ============================================================================
// Error Parsing
// ============================================================================

// parseErrorResponse turns a non-2xx response into a typed error.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var raw struct {
		Error            string   `json:"error"`
		ErrorDescription string   `json:"error_description"`
		ChallengeToken   string   `json:"challenge_token"`
		ExpiresIn        int      `json:"expires_in"`
		Methods          []string `json:"methods"`
		RetryAfter       int      `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &raw); err == nil && raw.Error != "" {
		switch {
		case raw.Error == ErrorCodeTwoFactorRequired && raw.ChallengeToken != "":
			return &TwoFactorRequiredError{
				ChallengeToken: raw.ChallengeToken,
				ExpiresIn:      raw.ExpiresIn,
				Methods:        raw.Methods,
			}
		case raw.Error == ErrorCodeAccountLocked:
			return &AccountLockedError{RetryAfter: raw.RetryAfter}
		}
		return &OAuth2Error{
			StatusCode:  resp.StatusCode,
			Code:        raw.Error,
			Description: raw.ErrorDescription,
		}
	}

	var valErr ValidationErrorResponse
	if err := json.Unmarshal(body, &valErr); err == nil && valErr.Code != "" {
		return &OAuth2Error{
			StatusCode:  resp.StatusCode,
			Code:        valErr.Code,
			Description: valErr.Message,
		}
	}

	return &OAuth2Error{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
