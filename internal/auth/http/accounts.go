package http

import (
	"net/http"

	"github.com/aussiebroadwan/kubarr/internal/auth/service"
)

// AccountsHandler holds user administration routes. They require the
// users.manage permission.
type AccountsHandler struct {
	Accounts    *service.AccountService
	Credentials *service.CredentialService
}

// HandleUnlock handles POST /admin/accounts/{id}/unlock
//
//	@Summary		Clear login lockout
//	@Description	Forgets recent failed logins of an account so it can sign in before the window passes.
//	@Tags			Accounts
//	@Security		SessionCookie
//	@Param			id	path	string	true	"Account id, username or email"
//	@Success		204
//	@Failure		401	{object}	authsdk.OAuth2Error
//	@Failure		403	{object}	authsdk.OAuth2Error
//	@Failure		404	{object}	authsdk.OAuth2Error
//	@Router			/admin/accounts/{id}/unlock [post]
func (h *AccountsHandler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, err := h.Accounts.ResolveAccountID(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Credentials.ClearLockout(ctx, accountID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
