package authsdk

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
)

// AuthorizeParams are the query parameters of GET /oauth2/authorize.
type AuthorizeParams struct {
	ClientID            string
	RedirectURI         string
	Scope               string
	State               string
	Nonce               string
	CodeChallenge       string
	CodeChallengeMethod string // S256 when empty
}

// NewPKCE returns a random code verifier and its S256 challenge.
func NewPKCE() (verifier, challenge string) {
	var b [32]byte
	_, _ = rand.Read(b[:])
	verifier = base64.RawURLEncoding.EncodeToString(b[:])
	sum := sha256.Sum256([]byte(verifier))
	return verifier, base64.RawURLEncoding.EncodeToString(sum[:])
}

// Authorize runs the authorization request with the active session and
// returns the code from the redirect.
func (c *Client) Authorize(ctx context.Context, p AuthorizeParams) (string, error) {
	method := p.CodeChallengeMethod
	if method == "" {
		method = "S256"
	}

	q := url.Values{
		"response_type": {"code"},
		"client_id":     {p.ClientID},
		"redirect_uri":  {p.RedirectURI},
	}
	for k, v := range map[string]string{
		"scope":                 p.Scope,
		"state":                 p.State,
		"nonce":                 p.Nonce,
		"code_challenge":        p.CodeChallenge,
		"code_challenge_method": method,
	} {
		if v != "" {
			q.Set(k, v)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/oauth2/authorize?"+q.Encode()), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode != http.StatusFound {
		return "", decodeJSON(resp, nil, http.StatusFound)
	}
	_ = resp.Body.Close()

	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		return "", fmt.Errorf("invalid redirect location: %w", err)
	}
	if e := loc.Query().Get("error"); e != "" {
		return "", NewOAuth2Error(http.StatusFound, e, loc.Query().Get("error_description"))
	}

	code := loc.Query().Get("code")
	if code == "" {
		return "", fmt.Errorf("redirect without code: %s", loc.Redacted())
	}
	return code, nil
}

// ExchangeCode redeems an authorization code. clientSecret is empty for
// public clients.
func (c *Client) ExchangeCode(
	ctx context.Context,
	clientID, clientSecret, code, redirectURI, codeVerifier string,
) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {redirectURI},
		"client_id":    {clientID},
	}
	if codeVerifier != "" {
		form.Set("code_verifier", codeVerifier)
	}
	if clientSecret != "" {
		form.Set("client_secret", clientSecret)
	}
	return c.requestToken(ctx, form)
}

// Refresh rotates a refresh token.
func (c *Client) Refresh(ctx context.Context, clientID, clientSecret, refreshToken string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {clientID},
	}
	if clientSecret != "" {
		form.Set("client_secret", clientSecret)
	}
	return c.requestToken(ctx, form)
}

func (c *Client) requestToken(ctx context.Context, form url.Values) (*TokenResponse, error) {
	var out TokenResponse
	if err := c.doForm(ctx, "/oauth2/token", form, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// Introspect asks the service about a token (RFC 7662).
func (c *Client) Introspect(ctx context.Context, clientID, clientSecret, token string) (*IntrospectionResponse, error) {
	form := url.Values{"token": {token}, "client_id": {clientID}}
	if clientSecret != "" {
		form.Set("client_secret", clientSecret)
	}

	var out IntrospectionResponse
	if err := c.doForm(ctx, "/oauth2/introspect", form, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// Revoke revokes a token (RFC 7009).
func (c *Client) Revoke(ctx context.Context, clientID, clientSecret, token string) error {
	form := url.Values{"token": {token}, "client_id": {clientID}}
	if clientSecret != "" {
		form.Set("client_secret", clientSecret)
	}
	return c.doForm(ctx, "/oauth2/revoke", form, nil, nil)
}

// UserInfo fetches the OIDC userinfo document with an access token.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (*UserInfoResponse, error) {
	var out UserInfoResponse
	headers := map[string]string{"Authorization": "Bearer " + accessToken}
	if err := c.doJSON(ctx, http.MethodGet, "/oauth2/userinfo", nil, &out, http.StatusOK, headers); err != nil {
		return nil, err
	}
	return &out, nil
}

// JWKS fetches the public signing keys.
func (c *Client) JWKS(ctx context.Context) (*JWKSResponse, error) {
	var out JWKSResponse
	if err := c.doJSON(ctx, http.MethodGet, "/oauth2/jwks", nil, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// Discovery fetches the OpenID configuration.
func (c *Client) Discovery(ctx context.Context) (*OpenIDConfiguration, error) {
	var out OpenIDConfiguration
	if err := c.doJSON(ctx, http.MethodGet, "/.well-known/openid-configuration", nil, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// Liveness calls GET /livez.
func (c *Client) Liveness(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/livez", nil, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}
