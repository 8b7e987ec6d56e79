package http

import (
	"encoding/base64"
	"net/http"

	"github.com/aussiebroadwan/kubarr/internal/auth/service"
	"github.com/aussiebroadwan/kubarr/pkg/authsdk"
	"github.com/aussiebroadwan/kubarr/pkg/httpx"
	"github.com/aussiebroadwan/kubarr/pkg/slogx"
)

// TwoFactorHandler handles the TOTP endpoints of the signed-in account.
type TwoFactorHandler struct {
	TwoFactor *service.TwoFactorService
}

// HandleSetup handles POST /auth/2fa/setup
//
//	@Summary		Begin TOTP setup
//	@Description	Generates a pending secret with its otpauth URI and a QR code. It only becomes active after confirm.
//	@Tags			Two-Factor
//	@Produce		json
//	@Success		200	{object}	authsdk.TwoFactorSetupResponse
//	@Failure		401	{object}	authsdk.OAuth2Error
//	@Failure		409	{object}	authsdk.OAuth2Error	"two_factor_already_enabled"
//	@Router			/auth/2fa/setup [post]
func (h *TwoFactorHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	setup, err := h.TwoFactor.BeginSetup(r.Context(), id.Account.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TwoFactorSetupResponse{
		Secret:    setup.Secret,
		URI:       setup.URI,
		QRCodePNG: base64.StdEncoding.EncodeToString(setup.QRCodePNG),
	})
}

// HandleConfirm handles POST /auth/2fa/confirm
//
//	@Summary		Confirm TOTP setup
//	@Description	Enables two-factor with a code from the pending secret and returns the recovery codes once.
//	@Tags			Two-Factor
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.TwoFactorCodeRequest	true	"TOTP code"
//	@Success		200		{object}	authsdk.RecoveryCodesResponse
//	@Failure		400		{object}	authsdk.OAuth2Error
//	@Failure		401		{object}	authsdk.OAuth2Error	"invalid_two_factor_code"
//	@Router			/auth/2fa/confirm [post]
func (h *TwoFactorHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	var req authsdk.TwoFactorCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	codes, err := h.TwoFactor.ConfirmSetup(r.Context(), id.Account.ID, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slogx.FromContext(r.Context()).Info("two-factor enabled")
	httpx.WriteJSON(w, http.StatusOK, authsdk.RecoveryCodesResponse{Codes: codes})
}

// HandleDisable handles POST /auth/2fa/disable
//
//	@Summary		Disable two-factor
//	@Description	Requires the account password again. Removes the secret and every recovery code.
//	@Tags			Two-Factor
//	@Accept			json
//	@Param			request	body	authsdk.TwoFactorDisableRequest	true	"Password"
//	@Success		204
//	@Failure		401	{object}	authsdk.OAuth2Error
//	@Router			/auth/2fa/disable [post]
func (h *TwoFactorHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	var req authsdk.TwoFactorDisableRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.TwoFactor.Disable(r.Context(), id.Account.ID, req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRegenerateRecoveryCodes handles POST /auth/2fa/recovery-codes
//
//	@Summary		Replace the recovery codes
//	@Description	Requires a current TOTP code. Every earlier recovery code stops working.
//	@Tags			Two-Factor
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.TwoFactorCodeRequest	true	"TOTP code"
//	@Success		200		{object}	authsdk.RecoveryCodesResponse
//	@Failure		401		{object}	authsdk.OAuth2Error
//	@Router			/auth/2fa/recovery-codes [post]
func (h *TwoFactorHandler) HandleRegenerateRecoveryCodes(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	var req authsdk.TwoFactorCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	codes, err := h.TwoFactor.RegenerateRecoveryCodes(r.Context(), id.Account.ID, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.RecoveryCodesResponse{Codes: codes})
}
