package http

import (
	"net/http"

	"github.com/aussiebroadwan/kubarr/internal/auth/service"
	"github.com/aussiebroadwan/kubarr/pkg/authsdk"
	"github.com/aussiebroadwan/kubarr/pkg/httpx"
)

// UserInfoHandler serves the OIDC userinfo endpoint. It runs behind
// httpx.AuthnMiddleware, which stores the verified access token claims.
type UserInfoHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		OIDC UserInfo
//	@Description	Returns the claims of the access token's subject. Requires the openid scope; email needs the email scope.
//	@Tags			OAuth2
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.UserInfoResponse
//	@Failure		401	{object}	authsdk.OAuth2Error	"invalid_token"
//	@Failure		403	{object}	authsdk.OAuth2Error	"insufficient_scope"
//	@Router			/oauth2/userinfo [get]
func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := httpx.ClaimsFromContext(ctx)
	if !ok {
		writeBearerError(w)
		return
	}

	info, err := h.TokenService.UserInfo(ctx, claims)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.UserInfoResponse{
		Sub:               info.Subject,
		PreferredUsername: info.PreferredUsername,
		Email:             info.Email,
	})
}
