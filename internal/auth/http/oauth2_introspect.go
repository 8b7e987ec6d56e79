package http

import (
	"net/http"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
	"github.com/aussiebroadwan/kubarr/internal/auth/service"
	"github.com/aussiebroadwan/kubarr/pkg/authsdk"
	"github.com/aussiebroadwan/kubarr/pkg/httpx"
)

// IntrospectHandler serves POST /oauth2/introspect following RFC 7662.
// Callers authenticate as a confidential client and see only their own
// tokens.
type IntrospectHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Introspection Endpoint
//	@Description	Reports whether an access or refresh token is active (RFC 7662). Status tells expired, revoked and invalid apart. Requires confidential client authentication; tokens of other clients read as inactive.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			token			formData	string							true	"The token to introspect"
//	@Param			token_type_hint	formData	string							false	"Ignored; the token format decides"	Enums(access_token, refresh_token)
//	@Param			client_id		formData	string							false	"Client identifier, unless sent with HTTP Basic"
//	@Param			client_secret	formData	string							false	"Client secret, unless sent with HTTP Basic"
//	@Success		200				{object}	authsdk.IntrospectionResponse	"Token introspection result"
//	@Failure		400				{object}	authsdk.OAuth2Error
//	@Failure		401				{object}	authsdk.OAuth2Error	"invalid_client"
//	@Header			200				{string}	Cache-Control	"no-store"
//	@Router			/oauth2/introspect [post]
func (h *IntrospectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	token := form.Get("token")
	if token == "" {
		authsdk.ErrInvalidRequest.WithDescription("token is required").WriteError(w)
		return
	}

	in, err := h.TokenService.IntrospectFor(ctx, client, token)
	if err != nil {
		writeClientError(w, r, err, basic)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, introspectionResponse(in))
}

// introspectionResponse only describes the token when it is active.
func introspectionResponse(in service.Introspection) authsdk.IntrospectionResponse {
	resp := authsdk.IntrospectionResponse{Active: in.Active(), Status: in.Status}
	if !in.Active() {
		return resp
	}

	resp.Username = in.Username
	if rec := in.Record; rec != nil {
		resp.Scope = rec.Scope
		resp.ClientID = rec.ClientID
		resp.Sub = rec.AccountID
		resp.SessionID = rec.SessionID
		resp.Exp = rec.ExpiresAt.Unix()
		resp.Iat = rec.CreatedAt.Unix()
	}

	switch in.Kind {
	case domain.TokenKindAccess:
		resp.TokenType = "access_token"
		if c := in.Claims; c != nil {
			resp.Iss = c.Issuer
			resp.Aud = c.Audience
			resp.Jti = c.ID
			if c.NotBefore != nil {
				resp.Nbf = c.NotBefore.Unix()
			}
		}
	case domain.TokenKindRefresh:
		resp.TokenType = "refresh_token"
	}
	return resp
}
