package http

import (
	"net/http"

	"github.com/aussiebroadwan/kubarr/internal/auth/service"
	"github.com/aussiebroadwan/kubarr/pkg/httpx"
)

// RevokeHandler serves POST /oauth2/revoke following RFC 7009.
type RevokeHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Revocation Endpoint
//	@Description	Revokes a token of the calling client. A refresh token takes its whole family with it.
//	@Description	Unknown tokens and tokens of other clients still answer 200 (RFC 7009 section 2.2).
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Param			token			formData	string	true	"Token to revoke"
//	@Param			token_type_hint	formData	string	false	"Ignored"	Enums(access_token, refresh_token)
//	@Param			client_id		formData	string	false	"Client identifier, unless sent with HTTP Basic"
//	@Param			client_secret	formData	string	false	"Client secret, unless sent with HTTP Basic"
//	@Success		200
//	@Failure		401	{object}	authsdk.OAuth2Error	"invalid_client"
//	@Router			/oauth2/revoke [post]
func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	form, ok := parseForm(w, r)
	if !ok {
		return
	}

	clientID, clientSecret, basic := clientCredentials(r, form)
	client, err := h.TokenService.AuthenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		writeClientError(w, r, err, basic)
		return
	}

	if err := h.TokenService.Revoke(ctx, client, form.Get("token")); err != nil {
		writeError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusOK)
}
