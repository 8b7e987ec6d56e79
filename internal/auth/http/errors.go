package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/kubarr/internal/auth/service"
	"github.com/aussiebroadwan/kubarr/pkg/authsdk"
	"github.com/aussiebroadwan/kubarr/pkg/slogx"
)

// writeError maps a service error to its response. Credential and grant
// failures collapse into one answer each; the reason is only logged.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	var (
		locked    *service.LockedOutError
		challenge *service.TwoFactorRequiredError
	)
	switch {
	case errors.As(err, &challenge):
		(&authsdk.TwoFactorRequiredError{
			ChallengeToken: challenge.ChallengeToken,
			ExpiresIn:      int(challenge.ExpiresIn.Seconds()),
			Methods:        challenge.Methods,
		}).WriteError(w)

	case errors.As(err, &locked):
		(&authsdk.AccountLockedError{RetryAfter: locked.RetryAfterSeconds()}).WriteError(w)

	case errors.Is(err, service.ErrUnauthenticated):
		log.Debug("request not authenticated", "err", err)
		writeBearerError(w)

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrAccountInactive),
		errors.Is(err, service.ErrChallengeInvalid),
		errors.Is(err, service.ErrTooManyAttempts):
		log.Info("sign in rejected", "err", err)
		authsdk.ErrInvalidCredentials.WriteError(w)

	case errors.Is(err, service.ErrTwoFactorSetupRequired):
		authsdk.ErrTwoFactorSetupRequired.WriteError(w)
	case errors.Is(err, service.ErrInvalidTwoFactorCode):
		authsdk.ErrInvalidTwoFactorCode.WriteError(w)
	case errors.Is(err, service.ErrRecoveryCodesExhausted):
		authsdk.ErrRecoveryCodesExhausted.WriteError(w)
	case errors.Is(err, service.ErrTwoFactorAlreadyEnabled):
		authsdk.ErrTwoFactorAlreadyEnabled.WriteError(w)
	case errors.Is(err, service.ErrTwoFactorNotEnabled),
		errors.Is(err, service.ErrTwoFactorNotPending):
		authsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)

	case errors.Is(err, service.ErrInvalidClient):
		authsdk.ErrInvalidClient.WriteError(w)
	case errors.Is(err, service.ErrInvalidGrant),
		errors.Is(err, service.ErrCodeExpiredOrUsed),
		errors.Is(err, service.ErrPKCEVerificationFailed),
		errors.Is(err, service.ErrRedirectURIMismatch),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrTokenRevoked):
		log.Info("grant rejected", "err", err)
		authsdk.ErrInvalidGrant.WriteError(w)
	case errors.Is(err, service.ErrInvalidScope):
		authsdk.ErrInvalidScope.WriteError(w)
	case errors.Is(err, service.ErrUnsupportedGrantType):
		authsdk.ErrUnsupportedGrantType.WriteError(w)
	case errors.Is(err, service.ErrUnsupportedResponseType):
		authsdk.ErrUnsupportedResponseType.WriteError(w)
	case errors.Is(err, service.ErrInsufficientScope):
		w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="openid"`)
		authsdk.ErrInsufficientScope.WriteError(w)

	case errors.Is(err, service.ErrForbidden):
		authsdk.ErrForbidden.WriteError(w)
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrClientNotFound),
		errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, service.ErrRoleNotFound):
		authsdk.ErrNotFound.WriteError(w)
	case errors.Is(err, service.ErrClientExists),
		errors.Is(err, service.ErrAccountExists),
		errors.Is(err, service.ErrRoleExists):
		authsdk.ErrConflict.WriteError(w)
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrWeakPassword):
		authsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)

	default:
		log.Error("request failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
	}
}

func writeBearerError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	authsdk.ErrInvalidToken.WriteError(w)
}
