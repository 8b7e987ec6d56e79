package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
	"github.com/aussiebroadwan/kubarr/internal/auth/store"
	"github.com/aussiebroadwan/kubarr/pkg/cryptox"
	"github.com/aussiebroadwan/kubarr/pkg/idx"
	"github.com/aussiebroadwan/kubarr/pkg/slogx"
)

const (
	DefaultCodeTTL = 5 * time.Minute
	MaxCodeTTL     = 10 * time.Minute

	PKCEMethodS256  = "S256"
	PKCEMethodPlain = "plain"
)

// AuthorizeService encapsulates the OAuth2 authorization-code issuance flow.
type AuthorizeService struct {
	Store store.Store
	// Permissions, when set, limits each client to accounts holding an app
	// grant named after the client id.
	Permissions *PermissionService
	CodeTTL     time.Duration // default 5m, capped at 10m
	Now         func() time.Time
}

// AuthorizeRequest carries the query parameters of GET /oauth2/authorize.
type AuthorizeRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	Scope               string // space-delimited
	State               string
	Nonce               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// AuthorizeResult is the code to hand back on the redirect.
type AuthorizeResult struct {
	Code        string
	RedirectURI string
	State       string
	ExpiresAt   time.Time
}

// AuthorizeError is a request error that may be reported back to the client
// through its redirect_uri. Errors about the client or the redirect itself
// are returned bare and must never be redirected.
type AuthorizeError struct {
	Err         error
	RedirectURI string
	State       string
}

func (e *AuthorizeError) Error() string { return e.Err.Error() }
func (e *AuthorizeError) Unwrap() error { return e.Err }

func (s *AuthorizeService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthorizeService) codeTTL() time.Duration {
	ttl := s.CodeTTL
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	return min(ttl, MaxCodeTTL)
}

// Authorize validates the request for the signed-in identity and mints a
// single-use code. The redirect URI must equal a registered one byte for
// byte.
func (s *AuthorizeService) Authorize(ctx context.Context, req AuthorizeRequest, id Identity) (AuthorizeResult, error) {
	l := slogx.FromContext(ctx)

	client, err := s.Store.Clients().GetClientByID(ctx, strings.TrimSpace(req.ClientID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return AuthorizeResult{}, ErrClientNotFound
		}
		return AuthorizeResult{}, err
	}

	if req.RedirectURI == "" || !slices.Contains(client.RedirectURIs, req.RedirectURI) {
		l.Info("authorize redirect_uri mismatch", slog.String("client_id", client.ID))
		return AuthorizeResult{}, ErrRedirectURIMismatch
	}

	redirectable := func(err error) error {
		return &AuthorizeError{Err: err, RedirectURI: req.RedirectURI, State: req.State}
	}

	if req.ResponseType != "code" {
		return AuthorizeResult{}, redirectable(ErrUnsupportedResponseType)
	}

	if s.Permissions != nil {
		ok, err := s.Permissions.HasAppAccess(ctx, id.Account.ID, client.ID)
		if err != nil {
			return AuthorizeResult{}, err
		}
		if !ok {
			l.Info("authorize denied, no app grant",
				slog.String("client_id", client.ID),
				slog.String("account_id", id.Account.ID))
			return AuthorizeResult{}, redirectable(ErrAccessDenied)
		}
	}

	scopes, err := grantableScopes(req.Scope, client)
	if err != nil {
		return AuthorizeResult{}, redirectable(err)
	}

	challenge, method, err := validatePKCE(req.CodeChallenge, req.CodeChallengeMethod, client)
	if err != nil {
		return AuthorizeResult{}, redirectable(err)
	}

	code, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return AuthorizeResult{}, err
	}

	now := s.now()
	record := domain.AuthorizationCode{
		ID:                  idx.NewAt(now).String(),
		Fingerprint:         cryptox.FingerprintToken(code),
		ClientID:            client.ID,
		AccountID:           id.Account.ID,
		SessionID:           id.Session.ID,
		RedirectURI:         req.RedirectURI,
		Scope:               strings.Join(scopes, " "),
		CodeChallenge:       challenge,
		CodeChallengeMethod: method,
		Nonce:               req.Nonce,
		AuthTime:            id.Session.CreatedAt,
		ExpiresAt:           now.Add(s.codeTTL()),
		CreatedAt:           now,
	}
	if err := s.Store.AuthorizationCodes().CreateAuthorizationCode(ctx, record); err != nil {
		return AuthorizeResult{}, fmt.Errorf("store authorization code: %w", err)
	}

	return AuthorizeResult{
		Code:        code,
		RedirectURI: req.RedirectURI,
		State:       req.State,
		ExpiresAt:   record.ExpiresAt,
	}, nil
}

// grantableScopes checks the requested scopes against the client. An empty
// request grants every scope the client may hold.
func grantableScopes(requested string, client domain.Client) ([]string, error) {
	scopes := dedupe(strings.Fields(requested))
	if len(scopes) == 0 {
		scopes = slices.Clone(client.Scopes)
	}
	if len(scopes) == 0 {
		return nil, ErrInvalidScope
	}
	for _, sc := range scopes {
		if !slices.Contains(client.Scopes, sc) {
			return nil, ErrInvalidScope
		}
	}
	return scopes, nil
}

// validatePKCE normalizes the challenge method. Public clients must send a
// challenge; the method defaults to S256.
func validatePKCE(challenge, method string, client domain.Client) (string, string, error) {
	trimmedChallenge := strings.TrimSpace(challenge)
	trimmedMethod := strings.TrimSpace(method)

	if trimmedChallenge == "" {
		if client.IsPublic() {
			return "", "", ErrInvalidRequest
		}
		// Confidential clients may omit PKCE.
		return "", "", nil
	}

	var normalized string
	switch {
	case strings.EqualFold(trimmedMethod, PKCEMethodS256), trimmedMethod == "":
		normalized = PKCEMethodS256
	case strings.EqualFold(trimmedMethod, PKCEMethodPlain):
		normalized = PKCEMethodPlain
	default:
		return "", "", ErrInvalidRequest
	}

	return trimmedChallenge, normalized, nil
}
