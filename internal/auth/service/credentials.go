package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
	"github.com/aussiebroadwan/kubarr/internal/auth/store"
	"github.com/aussiebroadwan/kubarr/pkg/cryptox"
)

const (
	DefaultLockoutThreshold = 10
	DefaultLockoutWindow    = 15 * time.Minute
)

// CredentialService verifies passwords and enforces the failed-login lockout.
type CredentialService struct {
	Store     store.Store
	Hasher    *cryptox.Hasher
	Audit     AuditSink
	Threshold int           // failures before lockout, default 10
	Window    time.Duration // lockout duration, default 15m
	Now       func() time.Time
}

func (s *CredentialService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *CredentialService) threshold() int {
	if s.Threshold <= 0 {
		return DefaultLockoutThreshold
	}
	return s.Threshold
}

func (s *CredentialService) window() time.Duration {
	if s.Window <= 0 {
		return DefaultLockoutWindow
	}
	return s.Window
}

// VerifyLogin resolves identifier by username, then email, and checks the
// password. It returns ErrInvalidCredentials, *LockedOutError or
// ErrAccountInactive on failure. For an account with a second factor the
// failure counter is left untouched; the caller settles it with
// RecordSecondFactorFailure or SettleLogin once the code is checked.
func (s *CredentialService) VerifyLogin(ctx context.Context, identifier, password string) (domain.Account, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		s.Hasher.Burn(password)
		return domain.Account{}, ErrInvalidCredentials
	}

	acct, err := s.Store.Accounts().GetAccountByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Hasher.Burn(password)
			auditOrNop(s.Audit).Record(ctx, AuditEvent{
				Type:   AuditLoginFailed,
				Reason: "unknown identifier",
				At:     s.now(),
			})
			return domain.Account{}, ErrInvalidCredentials
		}
		return domain.Account{}, err
	}

	return s.verify(ctx, acct, password, !acct.TOTPEnabled)
}

// VerifyPassword re-proves the password of a signed-in account. Failures
// count towards the lockout like a login.
func (s *CredentialService) VerifyPassword(ctx context.Context, accountID, password string) error {
	acct, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	_, err = s.verify(ctx, acct, password, true)
	return err
}

// RecordSecondFactorFailure counts a wrong TOTP or recovery code towards the
// same lockout as a wrong password.
func (s *CredentialService) RecordSecondFactorFailure(ctx context.Context, accountID string) error {
	return s.recordFailure(ctx, accountID, "wrong second factor", s.now())
}

// SettleLogin clears the failure counter once every factor has passed. It
// returns *LockedOutError when the account was locked in the meantime.
func (s *CredentialService) SettleLogin(ctx context.Context, accountID string) error {
	return s.settle(ctx, accountID, s.now())
}

// ClearLockout resets the failure counter and any active lock.
func (s *CredentialService) ClearLockout(ctx context.Context, accountID string) error {
	if err := s.Store.Accounts().ClearLockout(ctx, accountID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	auditOrNop(s.Audit).Record(ctx, AuditEvent{
		Type:      AuditAccountUnlocked,
		AccountID: accountID,
		At:        s.now(),
	})
	return nil
}

func (s *CredentialService) verify(ctx context.Context, acct domain.Account, password string, settle bool) (domain.Account, error) {
	audit := auditOrNop(s.Audit)
	now := s.now()

	// A locked account never has its password checked.
	if acct.LockedAt(now) {
		audit.Record(ctx, AuditEvent{Type: AuditLoginFailed, AccountID: acct.ID, Reason: "account locked", At: now})
		return domain.Account{}, newLockedOutError(*acct.LockedUntil, now)
	}

	if err := s.Hasher.Verify(password, acct.PasswordHash); err != nil {
		if rerr := s.recordFailure(ctx, acct.ID, "wrong password", now); rerr != nil {
			return domain.Account{}, rerr
		}
		return domain.Account{}, ErrInvalidCredentials
	}

	if settle {
		if err := s.settle(ctx, acct.ID, now); err != nil {
			return domain.Account{}, err
		}
		acct.FailedLoginCount = 0
		acct.LockedUntil = nil
	}

	if !acct.CanSignIn() {
		audit.Record(ctx, AuditEvent{Type: AuditLoginFailed, AccountID: acct.ID, Reason: "account inactive", At: now})
		return domain.Account{}, ErrAccountInactive
	}
	return acct, nil
}

func (s *CredentialService) recordFailure(ctx context.Context, accountID, reason string, now time.Time) error {
	audit := auditOrNop(s.Audit)

	count, lockedUntil, err := s.Store.Accounts().RecordLoginFailure(ctx, accountID, now, s.threshold(), s.window())
	if err != nil {
		return err
	}

	audit.Record(ctx, AuditEvent{Type: AuditLoginFailed, AccountID: accountID, Reason: reason, At: now})
	if lockedUntil != nil && count >= s.threshold() {
		audit.Record(ctx, AuditEvent{Type: AuditAccountLocked, AccountID: accountID, At: now})
	}
	return nil
}

func (s *CredentialService) settle(ctx context.Context, accountID string, now time.Time) error {
	reset, err := s.Store.Accounts().ResetLoginFailures(ctx, accountID, now)
	if err != nil {
		return err
	}
	if reset {
		return nil
	}

	// A concurrent failure locked the account between read and reset.
	fresh, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if fresh.LockedUntil != nil {
		return newLockedOutError(*fresh.LockedUntil, now)
	}
	return newLockedOutError(now.Add(s.window()), now)
}
