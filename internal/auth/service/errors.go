package service

import (
	"errors"
	"fmt"
	"time"
)

// Errors carry OAuth-style codes. The HTTP layer folds them into a small set
// of uniform responses, so the detail here is for logs and the audit sink.
var (
	ErrInvalidCredentials      = errors.New("invalid_credentials")
	ErrAccountLocked           = errors.New("account_locked")
	ErrAccountInactive         = errors.New("account_inactive")
	ErrAccountNotFound         = errors.New("account_not_found")
	ErrTwoFactorRequired       = errors.New("two_factor_required")
	ErrTwoFactorSetupRequired  = errors.New("two_factor_setup_required")
	ErrTwoFactorAlreadyEnabled = errors.New("two_factor_already_enabled")
	ErrTwoFactorNotEnabled     = errors.New("two_factor_not_enabled")
	ErrTwoFactorNotPending     = errors.New("two_factor_not_pending")
	ErrInvalidTwoFactorCode    = errors.New("invalid_two_factor_code")
	ErrRecoveryCodesExhausted  = errors.New("recovery_codes_exhausted")
	ErrChallengeInvalid        = errors.New("challenge_invalid")
	ErrTooManyAttempts         = errors.New("too_many_attempts")

	ErrUnauthenticated = errors.New("unauthenticated")
	ErrSessionNotFound = errors.New("session_not_found")
	ErrSessionRevoked  = errors.New("session_revoked")
	ErrForbidden       = errors.New("forbidden")

	ErrClientNotFound          = errors.New("client_not_found")
	ErrClientExists            = errors.New("client_exists")
	ErrRedirectURIMismatch     = errors.New("redirect_uri_mismatch")
	ErrCodeExpiredOrUsed       = errors.New("code_expired_or_used")
	ErrPKCEVerificationFailed  = errors.New("pkce_verification_failed")
	ErrTokenExpired            = errors.New("token_expired")
	ErrTokenRevoked            = errors.New("token_revoked")
	ErrInsufficientScope       = errors.New("insufficient_scope")
	ErrInvalidClient           = errors.New("invalid_client")
	ErrInvalidScope            = errors.New("invalid_scope")
	ErrInvalidRequest          = errors.New("invalid_request")
	ErrInvalidGrant            = errors.New("invalid_grant")
	ErrUnsupportedGrantType    = errors.New("unsupported_grant_type")
	ErrUnsupportedResponseType = errors.New("unsupported_response_type")
	ErrAccessDenied            = errors.New("access_denied")
)

// LockedOutError is returned while an account is locked, whether or not the
// password was right.
type LockedOutError struct {
	Until      time.Time
	RetryAfter time.Duration
}

func newLockedOutError(until, now time.Time) *LockedOutError {
	return &LockedOutError{Until: until, RetryAfter: until.Sub(now)}
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("account_locked: retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *LockedOutError) Is(target error) bool { return target == ErrAccountLocked }

// RetryAfterSeconds rounds up, never below one second.
func (e *LockedOutError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	return max(secs, 1)
}

// TwoFactorRequiredError is returned when the password was right and a second
// factor must follow. ChallengeToken is plaintext and shown once.
type TwoFactorRequiredError struct {
	ChallengeToken string
	ExpiresIn      time.Duration
	Methods        []string
}

func (e *TwoFactorRequiredError) Error() string {
	return fmt.Sprintf("two_factor_required: methods=%v", e.Methods)
}

func (e *TwoFactorRequiredError) Is(target error) bool { return target == ErrTwoFactorRequired }
