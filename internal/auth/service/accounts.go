package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
	"github.com/aussiebroadwan/kubarr/internal/auth/store"
	"github.com/aussiebroadwan/kubarr/pkg/cryptox"
	"github.com/aussiebroadwan/kubarr/pkg/idx"
)

var (
	ErrAccountExists = errors.New("account_exists")
	ErrRoleExists    = errors.New("role_exists")
	ErrRoleNotFound  = errors.New("role_not_found")
	ErrWeakPassword  = errors.New("weak_password")
)

// MinPasswordLength applies to passwords set through the service.
const MinPasswordLength = 8

// AccountService provisions accounts and roles for the CLI and admin API.
type AccountService struct {
	Store  store.Store
	Hasher *cryptox.Hasher
	Now    func() time.Time
}

type AccountInput struct {
	Username string
	Email    string
	Password string
	Roles    []string // role names
}

func (s *AccountService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CreateAccount creates an active, approved account and assigns the named
// roles in one transaction.
func (s *AccountService) CreateAccount(ctx context.Context, in AccountInput) (domain.Account, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" || email == "" {
		return domain.Account{}, ErrInvalidRequest
	}
	if len(in.Password) < MinPasswordLength {
		return domain.Account{}, ErrWeakPassword
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	acct := domain.Account{
		ID:           idx.NewAt(now).String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Active:       true,
		Approved:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().CreateAccount(ctx, acct); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrAccountExists
			}
			return err
		}
		for _, name := range in.Roles {
			role, err := tx.Roles().GetRoleByName(ctx, name)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("%w: %s", ErrRoleNotFound, name)
				}
				return err
			}
			if err := tx.Roles().AssignRole(ctx, acct.ID, role.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Account{}, err
	}
	return acct, nil
}

// ListAccounts returns every account.
func (s *AccountService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	return s.Store.Accounts().ListAccounts(ctx)
}

// SetStatus activates, deactivates, approves or unapproves an account. A
// deactivated account loses its sessions.
func (s *AccountService) SetStatus(ctx context.Context, accountID string, active, approved bool) error {
	now := s.now()
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().UpdateAccountStatus(ctx, accountID, active, approved); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrAccountNotFound
			}
			return err
		}
		if !active || !approved {
			_, err := tx.Sessions().RevokeAccountSessions(ctx, accountID, now)
			return err
		}
		return nil
	})
}

// CreateRole registers a role with its permissions and app grants. App
// grants also appear as "app.<name>" permissions.
func (s *AccountService) CreateRole(ctx context.Context, role domain.Role) (domain.Role, error) {
	role.Name = strings.TrimSpace(role.Name)
	if role.Name == "" {
		return domain.Role{}, ErrInvalidRequest
	}

	now := s.now()
	role.ID = idx.NewAt(now).String()
	role.CreatedAt = now
	role.UpdatedAt = now
	role.Permissions = dedupe(role.Permissions)
	role.AppGrants = dedupe(role.AppGrants)

	if err := s.Store.Roles().CreateRole(ctx, role); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Role{}, ErrRoleExists
		}
		return domain.Role{}, err
	}
	return role, nil
}

// GrantRole assigns a role by name to the account matching identifier.
func (s *AccountService) GrantRole(ctx context.Context, identifier, roleName string) error {
	acct, err := s.Store.Accounts().GetAccountByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}

	role, err := s.Store.Roles().GetRoleByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrRoleNotFound
		}
		return err
	}

	return s.Store.Roles().AssignRole(ctx, acct.ID, role.ID)
}

// ResolveAccountID maps a username, email or id to the account id.
func (s *AccountService) ResolveAccountID(ctx context.Context, identifier string) (string, error) {
	acct, err := s.Store.Accounts().GetAccountByIdentifier(ctx, identifier)
	if err == nil {
		return acct.ID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	acct, err = s.Store.Accounts().GetAccountByID(ctx, identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrAccountNotFound
		}
		return "", err
	}
	return acct.ID, nil
}
