package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
	"github.com/aussiebroadwan/kubarr/internal/auth/metrics"
	"github.com/aussiebroadwan/kubarr/internal/auth/store"
	"github.com/aussiebroadwan/kubarr/pkg/authsdk"
	"github.com/aussiebroadwan/kubarr/pkg/cryptox"
	"github.com/aussiebroadwan/kubarr/pkg/idx"
	"github.com/aussiebroadwan/kubarr/pkg/jwtx"
	"github.com/aussiebroadwan/kubarr/pkg/slogx"
	"github.com/golang-jwt/jwt/v5"
)

const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"

	ScopeOpenID  = "openid"
	ScopeProfile = "profile"
	ScopeEmail   = "email"
)

// Introspection statuses.
const (
	StatusActive  = "active"
	StatusExpired = "expired"
	StatusRevoked = "revoked"
	StatusInvalid = "invalid"
)

type TokenService struct {
	Store      store.Store
	KeyManager *jwtx.KeyManager
	Hasher     *cryptox.Hasher
	Audit      AuditSink
	Metrics    *metrics.Metrics // optional
	Issuer     string
	AccessTTL  time.Duration // default 1h
	RefreshTTL time.Duration // default 7d
	Now        func() time.Time
}

// TokenRequest is the form body of POST /oauth2/token with the client
// credentials already extracted from Basic auth or the body.
type TokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string
	Code         string
	RedirectURI  string
	CodeVerifier string
	RefreshToken string
	Scope        string
}

type TokenResult struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	ExpiresIn    time.Duration
	Scope        string
}

// Introspection is the outcome of looking a token up. Claims is set for
// verified access tokens, Record whenever a row was found.
type Introspection struct {
	Status   string
	Kind     domain.TokenKind
	Claims   *jwtx.Claims
	Record   *domain.Token
	Username string
}

// Active reports whether the token may still be used.
func (i Introspection) Active() bool { return i.Status == StatusActive }

type UserInfo struct {
	Subject           string
	PreferredUsername string
	Email             string
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *TokenService) accessTTL() time.Duration {
	if s.AccessTTL <= 0 {
		return jwtx.DefaultAccessTokenTTL
	}
	return s.AccessTTL
}

func (s *TokenService) refreshTTL() time.Duration {
	if s.RefreshTTL <= 0 {
		return jwtx.DefaultRefreshTokenTTL
	}
	return s.RefreshTTL
}

// AuthenticateClient checks client credentials. Confidential clients must
// present their secret; public clients are identified by id alone and must
// not send one.
func (s *TokenService) AuthenticateClient(ctx context.Context, clientID, secret string) (domain.Client, error) {
	l := slogx.FromContext(ctx)

	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return domain.Client{}, ErrInvalidClient
	}

	client, err := s.Store.Clients().GetClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Hasher.Burn(secret)
			return domain.Client{}, ErrInvalidClient
		}
		return domain.Client{}, err
	}

	if client.IsPublic() {
		if secret != "" {
			return domain.Client{}, ErrInvalidClient
		}
		return client, nil
	}

	if secret == "" || s.Hasher.Verify(secret, client.SecretHash) != nil {
		l.Info("client authentication failed", slog.String("client_id", clientID))
		return domain.Client{}, ErrInvalidClient
	}
	return client, nil
}

// Exchange runs the token endpoint for the supported grants.
func (s *TokenService) Exchange(ctx context.Context, req TokenRequest) (TokenResult, error) {
	switch req.GrantType {
	case GrantTypeAuthorizationCode:
		return s.ExchangeAuthorizationCode(ctx, req)
	case GrantTypeRefreshToken:
		return s.ExchangeRefreshToken(ctx, req)
	case "":
		return TokenResult{}, ErrInvalidRequest
	default:
		return TokenResult{}, ErrUnsupportedGrantType
	}
}

// grant is what a new token set is minted from.
type grant struct {
	familyID  string
	client    domain.Client
	account   domain.Account
	sessionID string
	scopes    []string
	nonce     string
	authTime  time.Time
}

// ExchangeAuthorizationCode implements the authorization_code grant. The
// code is marked used in the same transaction that writes the token rows,
// so a code either yields exactly one token set or none.
func (s *TokenService) ExchangeAuthorizationCode(ctx context.Context, req TokenRequest) (TokenResult, error) {
	client, err := s.AuthenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return TokenResult{}, err
	}

	code := strings.TrimSpace(req.Code)
	if code == "" || req.RedirectURI == "" {
		return TokenResult{}, ErrInvalidRequest
	}

	now := s.now()
	fp := cryptox.FingerprintToken(code)

	var (
		result   TokenResult
		replayed string // family of a code presented twice
	)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		ac, err := tx.AuthorizationCodes().GetAuthorizationCodeByFingerprint(ctx, fp)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}

		if ac.ClientID != client.ID {
			return ErrInvalidGrant
		}
		if ac.UsedAt != nil {
			replayed = ac.ID
			return ErrCodeExpiredOrUsed
		}
		if !now.Before(ac.ExpiresAt) {
			return ErrCodeExpiredOrUsed
		}
		if ac.RedirectURI != req.RedirectURI {
			return ErrRedirectURIMismatch
		}
		if client.IsPublic() && ac.CodeChallenge == "" {
			return ErrPKCEVerificationFailed
		}
		if !verifyCodeVerifier(ac.CodeChallenge, ac.CodeChallengeMethod, req.CodeVerifier) {
			return ErrPKCEVerificationFailed
		}

		acct, err := tx.Accounts().GetAccountByID(ctx, ac.AccountID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}
		if !acct.CanSignIn() {
			return ErrInvalidGrant
		}

		won, err := tx.AuthorizationCodes().MarkAuthorizationCodeUsed(ctx, ac.ID, now)
		if err != nil {
			return err
		}
		if !won {
			return ErrCodeExpiredOrUsed
		}

		result, err = s.issue(ctx, tx, grant{
			familyID:  ac.ID,
			client:    client,
			account:   acct,
			sessionID: ac.SessionID,
			scopes:    strings.Fields(ac.Scope),
			nonce:     ac.Nonce,
			authTime:  ac.AuthTime,
		}, now)
		return err
	})
	if err != nil {
		if replayed != "" {
			s.revokeFamily(ctx, replayed, client.ID, "authorization code replayed")
		}
		return TokenResult{}, err
	}

	s.countIssued(GrantTypeAuthorizationCode)
	return result, nil
}

// ExchangeRefreshToken rotates a refresh token. Presenting one that was
// already rotated revokes every token of its family.
func (s *TokenService) ExchangeRefreshToken(ctx context.Context, req TokenRequest) (TokenResult, error) {
	client, err := s.AuthenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return TokenResult{}, err
	}

	opaque := strings.TrimSpace(req.RefreshToken)
	if opaque == "" {
		return TokenResult{}, ErrInvalidRequest
	}

	now := s.now()
	fp := cryptox.FingerprintToken(opaque)

	var (
		result TokenResult
		reused string
	)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		rt, err := tx.Tokens().GetTokenByFingerprint(ctx, domain.TokenKindRefresh, fp)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}

		if rt.ClientID != client.ID {
			return ErrInvalidGrant
		}
		if rt.RevokedAt != nil {
			reused = rt.FamilyID
			return ErrTokenRevoked
		}
		if !now.Before(rt.ExpiresAt) {
			return ErrTokenExpired
		}

		scopes := strings.Fields(rt.Scope)
		if requested := dedupe(strings.Fields(req.Scope)); len(requested) > 0 {
			for _, sc := range requested {
				if !slices.Contains(scopes, sc) {
					return ErrInvalidScope
				}
			}
			scopes = requested
		}

		acct, err := tx.Accounts().GetAccountByID(ctx, rt.AccountID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}
		if !acct.CanSignIn() {
			return ErrInvalidGrant
		}

		changed, err := tx.Tokens().RevokeToken(ctx, rt.ID, now)
		if err != nil {
			return err
		}
		if !changed {
			reused = rt.FamilyID
			return ErrTokenRevoked
		}

		result, err = s.issue(ctx, tx, grant{
			familyID:  rt.FamilyID,
			client:    client,
			account:   acct,
			sessionID: rt.SessionID,
			scopes:    scopes,
		}, now)
		return err
	})
	if err != nil {
		if reused != "" {
			s.revokeFamily(ctx, reused, client.ID, "rotated refresh token presented")
		}
		return TokenResult{}, err
	}

	s.countIssued(GrantTypeRefreshToken)
	return result, nil
}

// issue signs the access, refresh and ID tokens of a grant and writes their
// rows through tx. Nothing is returned unless every step succeeds.
func (s *TokenService) issue(ctx context.Context, tx store.Tx, g grant, now time.Time) (TokenResult, error) {
	scope := strings.Join(g.scopes, " ")
	accessTTL := s.accessTTL()

	access := jwtx.NewClaims(jwtx.TokenUseAccess, s.Issuer, g.account.ID, []string{g.client.ID}, accessTTL, now)
	access.ClientID = g.client.ID
	access.Scope = scope
	access.SID = g.sessionID

	accessToken, err := s.KeyManager.Sign(access)
	if err != nil {
		return TokenResult{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return TokenResult{}, err
	}

	var idToken string
	if slices.Contains(g.scopes, ScopeOpenID) {
		id := jwtx.NewClaims(jwtx.TokenUseID, s.Issuer, g.account.ID, []string{g.client.ID}, accessTTL, now)
		id.SID = g.sessionID
		id.Nonce = g.nonce
		id.PreferredUsername = g.account.Username
		if slices.Contains(g.scopes, ScopeEmail) {
			id.Email = g.account.Email
		}
		if !g.authTime.IsZero() {
			id.AuthTime = jwt.NewNumericDate(g.authTime)
		}

		idToken, err = s.KeyManager.Sign(id)
		if err != nil {
			return TokenResult{}, fmt.Errorf("sign id token: %w", err)
		}
	}

	rows := []domain.Token{
		{
			ID:          idx.NewAt(now).String(),
			Kind:        domain.TokenKindAccess,
			Fingerprint: access.ID,
			FamilyID:    g.familyID,
			ClientID:    g.client.ID,
			AccountID:   g.account.ID,
			SessionID:   g.sessionID,
			Scope:       scope,
			ExpiresAt:   access.ExpiresAt.Time,
			CreatedAt:   now,
		},
		{
			ID:          idx.NewAt(now).String(),
			Kind:        domain.TokenKindRefresh,
			Fingerprint: cryptox.FingerprintToken(refreshToken),
			FamilyID:    g.familyID,
			ClientID:    g.client.ID,
			AccountID:   g.account.ID,
			SessionID:   g.sessionID,
			Scope:       scope,
			ExpiresAt:   now.Add(s.refreshTTL()),
			CreatedAt:   now,
		},
	}
	for _, row := range rows {
		if err := tx.Tokens().CreateToken(ctx, row); err != nil {
			return TokenResult{}, err
		}
	}

	auditOrNop(s.Audit).Record(ctx, AuditEvent{
		Type:      AuditTokenIssued,
		AccountID: g.account.ID,
		ClientID:  g.client.ID,
		SessionID: g.sessionID,
		At:        now,
	})

	return TokenResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		IDToken:      idToken,
		ExpiresIn:    accessTTL,
		Scope:        scope,
	}, nil
}

func (s *TokenService) revokeFamily(ctx context.Context, familyID, clientID, reason string) {
	l := slogx.FromContext(ctx)
	now := s.now()

	n, err := s.Store.Tokens().RevokeTokenFamily(ctx, familyID, now)
	if err != nil {
		l.Error("failed to revoke token family", slog.String("family_id", familyID), slog.Any("error", err))
		return
	}

	if s.Metrics != nil {
		s.Metrics.ReuseDetected.Inc()
	}
	l.Warn("token reuse detected", slog.String("client_id", clientID), slog.Int64("revoked", n))
	auditOrNop(s.Audit).Record(ctx, AuditEvent{
		Type:     AuditTokenReuseDetected,
		ClientID: clientID,
		Reason:   reason,
		At:       now,
	})
}

func (s *TokenService) countIssued(grantType string) {
	if s.Metrics != nil {
		s.Metrics.TokensIssued.WithLabelValues(grantType).Inc()
	}
}

// Introspect reports the state of an access or refresh token. Access
// tokens are JWTs looked up by jti, refresh tokens are opaque and looked up
// by fingerprint.
func (s *TokenService) Introspect(ctx context.Context, token string) (Introspection, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Introspection{Status: StatusInvalid}, nil
	}

	if strings.Count(token, ".") == 2 {
		return s.introspectAccess(ctx, token)
	}
	return s.introspectRefresh(ctx, token)
}

// IntrospectFor answers an introspection request from client. Only
// confidential clients may introspect, and only tokens issued to them;
// anything else reads as an invalid token.
func (s *TokenService) IntrospectFor(ctx context.Context, client domain.Client, token string) (Introspection, error) {
	if client.IsPublic() {
		return Introspection{}, ErrInvalidClient
	}

	in, err := s.Introspect(ctx, token)
	if err != nil {
		return Introspection{}, err
	}
	if in.Record != nil && in.Record.ClientID != client.ID {
		return Introspection{Status: StatusInvalid, Kind: in.Kind}, nil
	}
	if in.Record == nil && in.Status != StatusInvalid {
		// Expired access tokens are not looked up, so their owner is unknown.
		return Introspection{Status: StatusInvalid, Kind: in.Kind}, nil
	}
	return in, nil
}

func (s *TokenService) introspectAccess(ctx context.Context, token string) (Introspection, error) {
	out := Introspection{Status: StatusInvalid, Kind: domain.TokenKindAccess}

	claims, err := s.KeyManager.Verifier.WithUse(jwtx.TokenUseAccess).Verify(token)
	switch {
	case errors.Is(err, jwtx.ErrExpired):
		out.Status = StatusExpired
		return out, nil
	case err != nil:
		return out, nil
	}

	row, err := s.Store.Tokens().GetTokenByFingerprint(ctx, domain.TokenKindAccess, claims.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return out, nil
		}
		return out, err
	}

	out.Claims = &claims
	out.Record = &row
	out.Username = s.username(ctx, row.AccountID)
	if row.RevokedAt != nil {
		out.Status = StatusRevoked
	} else {
		out.Status = StatusActive
	}
	return out, nil
}

func (s *TokenService) introspectRefresh(ctx context.Context, token string) (Introspection, error) {
	out := Introspection{Status: StatusInvalid, Kind: domain.TokenKindRefresh}

	row, err := s.Store.Tokens().GetTokenByFingerprint(ctx, domain.TokenKindRefresh, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return out, nil
		}
		return out, err
	}

	out.Record = &row
	switch {
	case row.RevokedAt != nil:
		out.Status = StatusRevoked
	case !s.now().Before(row.ExpiresAt):
		out.Status = StatusExpired
	default:
		out.Status = StatusActive
		out.Username = s.username(ctx, row.AccountID)
	}
	return out, nil
}

func (s *TokenService) username(ctx context.Context, accountID string) string {
	acct, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		return ""
	}
	return acct.Username
}

// Revoke marks a token of the calling client revoked. Revoking a refresh
// token revokes its whole family. Unknown tokens and tokens of other
// clients succeed silently.
func (s *TokenService) Revoke(ctx context.Context, client domain.Client, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	now := s.now()

	var (
		row domain.Token
		err error
	)
	if strings.Count(token, ".") == 2 {
		claims, verr := s.KeyManager.Verifier.WithUse(jwtx.TokenUseAccess).Verify(token)
		if verr != nil {
			return nil
		}
		row, err = s.Store.Tokens().GetTokenByFingerprint(ctx, domain.TokenKindAccess, claims.ID)
	} else {
		row, err = s.Store.Tokens().GetTokenByFingerprint(ctx, domain.TokenKindRefresh, cryptox.FingerprintToken(token))
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if row.ClientID != client.ID {
		return nil
	}

	if row.Kind == domain.TokenKindRefresh {
		_, err = s.Store.Tokens().RevokeTokenFamily(ctx, row.FamilyID, now)
	} else {
		_, err = s.Store.Tokens().RevokeToken(ctx, row.ID, now)
	}
	if err != nil {
		return err
	}

	if s.Metrics != nil {
		s.Metrics.TokensRevoked.Inc()
	}
	auditOrNop(s.Audit).Record(ctx, AuditEvent{
		Type:      AuditTokenRevoked,
		AccountID: row.AccountID,
		ClientID:  client.ID,
		SessionID: row.SessionID,
		At:        now,
	})
	return nil
}

// VerifyAccessToken verifies a bearer access token and rejects it once its
// row is revoked.
func (s *TokenService) VerifyAccessToken(ctx context.Context, token string) (jwtx.Claims, error) {
	claims, err := s.KeyManager.Verifier.WithUse(jwtx.TokenUseAccess).Verify(token)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			return jwtx.Claims{}, ErrTokenExpired
		}
		return jwtx.Claims{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	row, err := s.Store.Tokens().GetTokenByFingerprint(ctx, domain.TokenKindAccess, claims.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return jwtx.Claims{}, ErrUnauthenticated
		}
		return jwtx.Claims{}, err
	}
	if row.RevokedAt != nil {
		return jwtx.Claims{}, ErrTokenRevoked
	}
	return claims, nil
}

// UserInfo returns the OIDC claims of the token subject. Email is only
// released with the email scope.
func (s *TokenService) UserInfo(ctx context.Context, claims jwtx.Claims) (UserInfo, error) {
	if !claims.HasScope(ScopeOpenID) {
		return UserInfo{}, ErrInsufficientScope
	}

	acct, err := s.Store.Accounts().GetAccountByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return UserInfo{}, ErrUnauthenticated
		}
		return UserInfo{}, err
	}

	info := UserInfo{Subject: acct.ID, PreferredUsername: acct.Username}
	if claims.HasScope(ScopeEmail) {
		info.Email = acct.Email
	}
	return info, nil
}

// JWKS publishes every verification key.
func (s *TokenService) JWKS() jwtx.JWKS {
	return s.KeyManager.KeySet.PublicJWKS()
}

// OpenIDConfiguration builds the discovery document relative to the issuer.
func (s *TokenService) OpenIDConfiguration() authsdk.OpenIDConfiguration {
	base := strings.TrimRight(s.Issuer, "/")
	return authsdk.OpenIDConfiguration{
		Issuer:                            s.Issuer,
		AuthorizationEndpoint:             base + "/oauth2/authorize",
		TokenEndpoint:                     base + "/oauth2/token",
		UserinfoEndpoint:                  base + "/oauth2/userinfo",
		JWKSURI:                           base + "/oauth2/jwks",
		IntrospectionEndpoint:             base + "/oauth2/introspect",
		RevocationEndpoint:                base + "/oauth2/revoke",
		ResponseTypesSupported:            []string{"code"},
		GrantTypesSupported:               []string{GrantTypeAuthorizationCode, GrantTypeRefreshToken},
		SubjectTypesSupported:             []string{"public"},
		IDTokenSigningAlgValuesSupported:  []string{s.KeyManager.Algorithm()},
		ScopesSupported:                   []string{ScopeOpenID, ScopeProfile, ScopeEmail},
		TokenEndpointAuthMethodsSupported: []string{"client_secret_basic", "client_secret_post", "none"},
		CodeChallengeMethodsSupported:     []string{PKCEMethodS256, PKCEMethodPlain},
		ClaimsSupported:                   []string{"sub", "iss", "aud", "exp", "iat", "auth_time", "nonce", "sid", "preferred_username", "email"},
	}
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func verifyCodeVerifier(challenge, method, verifier string) bool {
	challenge = strings.TrimSpace(challenge)
	if challenge == "" {
		// No PKCE challenge stored; accept regardless of verifier.
		return true
	}

	verifier = strings.TrimSpace(verifier)
	if verifier == "" {
		return false
	}

	method = strings.TrimSpace(method)
	switch {
	case strings.EqualFold(method, PKCEMethodPlain):
		return subtle.ConstantTimeCompare([]byte(challenge), []byte(verifier)) == 1
	case method == "" || strings.EqualFold(method, PKCEMethodS256):
		sum := sha256.Sum256([]byte(verifier))
		expected := base64.RawURLEncoding.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(challenge), []byte(expected)) == 1
	default:
		return false
	}
}
