package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
	"github.com/aussiebroadwan/kubarr/internal/auth/store"
	"github.com/aussiebroadwan/kubarr/pkg/cryptox"
	"github.com/aussiebroadwan/kubarr/pkg/slogx"
)

// DefaultClientScopes is granted to clients registered without scopes.
var DefaultClientScopes = []string{ScopeOpenID, ScopeProfile, ScopeEmail}

type ClientService struct {
	Store  store.Store
	Hasher *cryptox.Hasher
	Audit  AuditSink
	Now    func() time.Time
}

// ClientInput registers a client.
type ClientInput struct {
	ID           string
	Name         string
	RedirectURIs []string
	Scopes       []string
	Public       bool
}

func (s *ClientService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CreateClient registers an OAuth2 client. Confidential clients get a
// generated secret which is returned here and never again.
func (s *ClientService) CreateClient(ctx context.Context, in ClientInput) (domain.Client, string, error) {
	l := slogx.FromContext(ctx)

	id := strings.TrimSpace(in.ID)
	if id == "" || len(in.RedirectURIs) == 0 {
		return domain.Client{}, "", ErrInvalidRequest
	}
	for _, uri := range in.RedirectURIs {
		if err := validateRedirectURI(uri); err != nil {
			return domain.Client{}, "", err
		}
	}

	scopes := dedupe(in.Scopes)
	if len(scopes) == 0 {
		scopes = slices.Clone(DefaultClientScopes)
	}

	var secret, secretHash string
	if !in.Public {
		var err error
		secret, secretHash, err = s.newSecret()
		if err != nil {
			return domain.Client{}, "", err
		}
	}

	now := s.now()
	client := domain.Client{
		ID:           id,
		Name:         strings.TrimSpace(in.Name),
		SecretHash:   secretHash,
		RedirectURIs: dedupe(in.RedirectURIs),
		Scopes:       scopes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Clients().CreateClient(ctx, client); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Client{}, "", ErrClientExists
		}
		return domain.Client{}, "", err
	}

	l.Info("client created", "client_id", id, "public", in.Public)
	auditOrNop(s.Audit).Record(ctx, AuditEvent{Type: AuditClientCreated, ClientID: id, At: now})
	return client, secret, nil
}

func (s *ClientService) GetClient(ctx context.Context, clientID string) (domain.Client, error) {
	c, err := s.Store.Clients().GetClientByID(ctx, clientID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Client{}, ErrClientNotFound
	}
	return c, err
}

// ListClients returns all OAuth2 clients, newest first.
func (s *ClientService) ListClients(ctx context.Context) ([]domain.Client, error) {
	return s.Store.Clients().ListClients(ctx)
}

// DeleteClient removes a client. Codes and tokens it was issued go with it.
func (s *ClientService) DeleteClient(ctx context.Context, clientID string) error {
	if err := s.Store.Clients().DeleteClient(ctx, clientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrClientNotFound
		}
		return err
	}

	slogx.FromContext(ctx).Info("client deleted", "client_id", clientID)
	auditOrNop(s.Audit).Record(ctx, AuditEvent{Type: AuditClientDeleted, ClientID: clientID, At: s.now()})
	return nil
}

// RegenerateClientSecret replaces the secret of a confidential client. The
// old secret stops working immediately.
func (s *ClientService) RegenerateClientSecret(ctx context.Context, clientID string) (string, error) {
	client, err := s.GetClient(ctx, clientID)
	if err != nil {
		return "", err
	}
	if client.IsPublic() {
		return "", fmt.Errorf("%w: public clients have no secret", ErrInvalidRequest)
	}

	secret, hash, err := s.newSecret()
	if err != nil {
		return "", err
	}

	now := s.now()
	if err := s.Store.Clients().UpdateClientSecretHash(ctx, client.ID, hash, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrClientNotFound
		}
		return "", err
	}

	auditOrNop(s.Audit).Record(ctx, AuditEvent{Type: AuditClientSecretRotated, ClientID: client.ID, At: now})
	return secret, nil
}

func (s *ClientService) newSecret() (string, string, error) {
	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", "", err
	}
	hash, err := s.Hasher.Hash(secret)
	if err != nil {
		return "", "", fmt.Errorf("hash client secret: %w", err)
	}
	return secret, hash, nil
}

// validateRedirectURI accepts absolute http(s) URIs without a fragment.
// Registered URIs are stored as given and later compared byte for byte.
func validateRedirectURI(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" || u.Fragment != "" {
		return fmt.Errorf("%w: invalid redirect_uri %q", ErrInvalidRequest, raw)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("%w: redirect_uri scheme must be http or https", ErrInvalidRequest)
	}
	return nil
}
