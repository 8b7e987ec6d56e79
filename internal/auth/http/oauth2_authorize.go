package http

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/aussiebroadwan/kubarr/internal/auth/service"
	"github.com/aussiebroadwan/kubarr/pkg/authsdk"
	"github.com/aussiebroadwan/kubarr/pkg/httpx"
	"github.com/aussiebroadwan/kubarr/pkg/slogx"
)

// AuthorizeHandler serves the authorization endpoint of the code flow.
type AuthorizeHandler struct {
	AuthorizeService *service.AuthorizeService
	Sessions         *SessionHandler
}

// ServeHTTP handles GET /oauth2/authorize
//
//	@Summary		OAuth2 authorization endpoint
//	@Description	Issues a single-use authorization code for the active browser session.
//	@Description
//	@Description	**PKCE:** public clients must send code_challenge; the method defaults to S256.
//	@Description
//	@Description	**Response:**
//	@Description	- Success: 302 to redirect_uri with code and state
//	@Description	- No session: 401 JSON login_required
//	@Description	- Unknown client or unregistered redirect_uri: 400 JSON, never redirected
//	@Description	- Other request errors: 302 to redirect_uri with error and state
//	@Tags			OAuth2
//	@Produce		json
//	@Param			response_type			query		string	true	"Must be 'code'"	default(code)
//	@Param			client_id				query		string	true	"OAuth2 client identifier"
//	@Param			redirect_uri			query		string	true	"Registered callback URI, matched byte for byte"
//	@Param			scope					query		string	false	"Space-delimited scopes"	example("openid profile email")
//	@Param			state					query		string	false	"Opaque CSRF value echoed back"
//	@Param			nonce					query		string	false	"OIDC nonce copied into the ID token"
//	@Param			code_challenge			query		string	false	"PKCE code challenge"	example("E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM")
//	@Param			code_challenge_method	query		string	false	"PKCE method"	default(S256)	Enums(S256, plain)
//	@Success		302						{string}	string	"Redirect to redirect_uri with code and state"
//	@Failure		400						{object}	authsdk.OAuth2Error
//	@Failure		401						{object}	authsdk.OAuth2Error	"login_required"
//	@Router			/oauth2/authorize [get]
func (h *AuthorizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	q := r.URL.Query()

	req := service.AuthorizeRequest{
		ResponseType:        q.Get("response_type"),
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		Scope:               q.Get("scope"),
		State:               q.Get("state"),
		Nonce:               q.Get("nonce"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
	}

	id, err := h.Sessions.resolve(r)
	if err != nil {
		if !errors.Is(err, service.ErrUnauthenticated) {
			writeError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusUnauthorized, map[string]string{
			"error":             "login_required",
			"error_description": "sign in before authorizing a client",
		})
		return
	}

	res, err := h.AuthorizeService.Authorize(ctx, req, id)
	if err != nil {
		h.writeAuthorizeError(w, r, err, log)
		return
	}

	http.Redirect(w, r, withQuery(res.RedirectURI, map[string]string{
		"code":  res.Code,
		"state": res.State,
	}), http.StatusFound)
}

func (h *AuthorizeHandler) writeAuthorizeError(w http.ResponseWriter, r *http.Request, err error, log *slog.Logger) {
	// RFC 6749 section 4.1.2.1: an unknown client or an unregistered
	// redirect_uri is reported to the user agent, not redirected.
	switch {
	case errors.Is(err, service.ErrClientNotFound):
		authsdk.ErrInvalidRequest.WithDescription("unknown client_id").WriteError(w)
		return
	case errors.Is(err, service.ErrRedirectURIMismatch):
		authsdk.ErrInvalidRequest.WithDescription("redirect_uri is not registered for this client").WriteError(w)
		return
	}

	var ae *service.AuthorizeError
	if !errors.As(err, &ae) {
		writeError(w, r, err)
		return
	}

	code := authorizeErrorCode(ae.Err)
	log.Debug("authorize request rejected", "error_code", code, "err", err)

	http.Redirect(w, r, withQuery(ae.RedirectURI, map[string]string{
		"error": code,
		"state": ae.State,
	}), http.StatusFound)
}

func authorizeErrorCode(err error) string {
	switch {
	case errors.Is(err, service.ErrUnsupportedResponseType):
		return authsdk.ErrorCodeUnsupportedResponseType
	case errors.Is(err, service.ErrInvalidScope):
		return authsdk.ErrorCodeInvalidScope
	case errors.Is(err, service.ErrAccessDenied):
		return authsdk.ErrorCodeAccessDenied
	case errors.Is(err, service.ErrInvalidRequest):
		return authsdk.ErrorCodeInvalidRequest
	default:
		return authsdk.ErrorCodeServerError
	}
}

// withQuery appends non-empty params to a registered redirect URI, keeping
// whatever query it already carries.
func withQuery(base string, params map[string]string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}

	q := u.Query()
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
