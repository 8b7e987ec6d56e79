package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/kubarr/internal/auth/service"
	"github.com/aussiebroadwan/kubarr/pkg/authsdk"
	"github.com/aussiebroadwan/kubarr/pkg/httpx"
)

// TokenHandler serves POST /oauth2/token
// Accepts application/x-www-form-urlencoded per the RFC 6749 framework.
type TokenHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Endpoint
//	@Description	Redeems an authorization code or rotates a refresh token. Every code or refresh failure answers invalid_grant.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			grant_type		formData	string					true	"Grant type"	Enums(authorization_code, refresh_token)
//	@Param			code			formData	string					false	"Authorization code (authorization_code grant)"
//	@Param			redirect_uri	formData	string					false	"Redirect URI used at authorization (authorization_code grant)"
//	@Param			code_verifier	formData	string					false	"PKCE code_verifier"
//	@Param			refresh_token	formData	string					false	"Refresh token (refresh_token grant)"
//	@Param			client_id		formData	string					false	"Client identifier, unless sent with HTTP Basic"
//	@Param			client_secret	formData	string					false	"Client secret of confidential clients, unless sent with HTTP Basic"
//	@Param			scope			formData	string					false	"Narrower scope for the refresh_token grant"
//	@Success		200				{object}	authsdk.TokenResponse	"access_token, refresh_token, id_token, token_type, expires_in, scope"
//	@Failure		400				{object}	authsdk.OAuth2Error		"error, error_description"
//	@Failure		401				{object}	authsdk.OAuth2Error		"invalid_client"
//	@Header			200				{string}	Cache-Control			"no-store"
//	@Header			200				{string}	Pragma					"no-cache"
//	@Router			/oauth2/token [post]
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	form, ok := parseForm(w, r)
	if !ok {
		return
	}

	clientID, clientSecret, basic := clientCredentials(r, form)
	res, err := h.TokenService.Exchange(r.Context(), service.TokenRequest{
		GrantType:    form.Get("grant_type"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Code:         form.Get("code"),
		RedirectURI:  form.Get("redirect_uri"),
		CodeVerifier: form.Get("code_verifier"),
		RefreshToken: form.Get("refresh_token"),
		Scope:        form.Get("scope"),
	})
	if err != nil {
		writeClientError(w, r, err, basic)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		IDToken:      res.IDToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(res.ExpiresIn.Seconds()),
		Scope:        res.Scope,
	})
}

// parseForm enforces the form content type and parses the body.
func parseForm(w http.ResponseWriter, r *http.Request) (url.Values, bool) {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		authsdk.ErrInvalidContentType.WriteError(w)
		return nil, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return nil, false
	}
	return r.PostForm, true
}

// clientCredentials reads client_secret_basic, falling back to
// client_secret_post. basic reports which one was used.
func clientCredentials(r *http.Request, form url.Values) (id, secret string, basic bool) {
	if user, pass, ok := r.BasicAuth(); ok {
		id, err1 := url.QueryUnescape(user)
		secret, err2 := url.QueryUnescape(pass)
		if err1 == nil && err2 == nil {
			return id, secret, true
		}
		return user, pass, true
	}
	return form.Get("client_id"), form.Get("client_secret"), false
}

// writeClientError adds the Basic challenge RFC 6749 section 5.2 asks for
// when a client that used HTTP Basic fails authentication.
func writeClientError(w http.ResponseWriter, r *http.Request, err error, basic bool) {
	if basic && errors.Is(err, service.ErrInvalidClient) {
		w.Header().Set("WWW-Authenticate", `Basic realm="kubarr"`)
	}
	writeError(w, r, err)
}
