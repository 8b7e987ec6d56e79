package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement it and
// expose sub-repositories per aggregate. A Tx exposes the same repos, so
// service code reads the same inside and outside a transaction.
type Store interface {
	Accounts() Accounts
	Sessions() Sessions
	RecoveryCodes() RecoveryCodes
	Challenges() Challenges
	Roles() Roles
	Clients() Clients
	AuthorizationCodes() AuthorizationCodes
	Tokens() Tokens
	SigningKeys() SigningKeys

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when it returns nil.
	// Only the repos of tx may be used inside fn.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountByIdentifier matches the username exactly, then the email.
	GetAccountByIdentifier(ctx context.Context, identifier string) (domain.Account, error)

	ListAccounts(ctx context.Context) ([]domain.Account, error)
	CreateAccount(ctx context.Context, a domain.Account) error
	UpdateAccountStatus(ctx context.Context, id string, active, approved bool) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error

	// RecordLoginFailure increments the failure counter in one statement.
	// A lock that has already elapsed restarts the count at one. When the
	// count reaches threshold, locked_until becomes now+window.
	RecordLoginFailure(ctx context.Context, id string, now time.Time, threshold int, window time.Duration) (count int, lockedUntil *time.Time, err error)

	// ResetLoginFailures clears the counter unless the account is locked at
	// now. It reports false when the lock won.
	ResetLoginFailures(ctx context.Context, id string, now time.Time) (bool, error)

	// ClearLockout resets the counter and lock unconditionally.
	ClearLockout(ctx context.Context, id string) error

	SetPendingTOTPSecret(ctx context.Context, id, secret string) error

	// EnableTOTP promotes the pending secret. ErrNotFound when none is pending.
	EnableTOTP(ctx context.Context, id string) error

	// DisableTOTP clears every TOTP field.
	DisableTOTP(ctx context.Context, id string) error

	// AdvanceTOTPStep records step as used if it is newer than the last
	// accepted step. It reports false for a replay.
	AdvanceTOTPStep(ctx context.Context, id string, step int64) (bool, error)
}

type Sessions interface {
	CreateSession(ctx context.Context, s domain.Session) error
	GetSessionByID(ctx context.Context, id string) (domain.Session, error)
	ListLiveSessions(ctx context.Context, accountID string, now time.Time) ([]domain.Session, error)

	// RevokeSession sets revoked_at if unset. It reports whether a row changed.
	RevokeSession(ctx context.Context, id string, now time.Time) (bool, error)

	// RevokeSlotSessions revokes live sessions of the account in slot.
	RevokeSlotSessions(ctx context.Context, accountID string, slot int, now time.Time) (int64, error)

	RevokeAccountSessions(ctx context.Context, accountID string, now time.Time) (int64, error)
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type RecoveryCodes interface {
	// ReplaceRecoveryCodes deletes every code of the account and inserts the
	// given fingerprints.
	ReplaceRecoveryCodes(ctx context.Context, accountID string, fingerprints []string, now time.Time) error
	CountUnusedRecoveryCodes(ctx context.Context, accountID string) (int, error)

	// UseRecoveryCode marks an unused code used. It reports false when no
	// unused code matched.
	UseRecoveryCode(ctx context.Context, accountID, fingerprint string, now time.Time) (bool, error)

	DeleteRecoveryCodes(ctx context.Context, accountID string) error
}

type Challenges interface {
	CreateChallenge(ctx context.Context, c domain.TwoFactorChallenge) error
	GetChallengeByFingerprint(ctx context.Context, fingerprint string) (domain.TwoFactorChallenge, error)

	// IncrementChallengeAttempts returns the new attempt count.
	IncrementChallengeAttempts(ctx context.Context, id string) (int, error)

	// DeleteChallenge returns ErrNotFound when the row is already gone, so
	// only one caller can consume a challenge.
	DeleteChallenge(ctx context.Context, id string) error

	DeleteExpiredChallenges(ctx context.Context, now time.Time) (int64, error)
}

type Roles interface {
	CreateRole(ctx context.Context, r domain.Role) error
	GetRoleByName(ctx context.Context, name string) (domain.Role, error)
	ListRoles(ctx context.Context) ([]domain.Role, error)

	// ListRolesForAccount loads the account's roles with permissions and app grants.
	ListRolesForAccount(ctx context.Context, accountID string) ([]domain.Role, error)

	AssignRole(ctx context.Context, accountID, roleID string) error
	UnassignRole(ctx context.Context, accountID, roleID string) error
	AddPermission(ctx context.Context, roleID, permission string) error
	AddAppGrant(ctx context.Context, roleID, app string) error
}

type Clients interface {
	GetClientByID(ctx context.Context, id string) (domain.Client, error)

	// ListClients returns all clients ordered by creation date (newest first).
	ListClients(ctx context.Context) ([]domain.Client, error)

	CreateClient(ctx context.Context, c domain.Client) error
	UpdateClientSecretHash(ctx context.Context, clientID, secretHash string, now time.Time) error
	DeleteClient(ctx context.Context, clientID string) error
}

type AuthorizationCodes interface {
	CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error
	GetAuthorizationCodeByFingerprint(ctx context.Context, fingerprint string) (domain.AuthorizationCode, error)

	// MarkAuthorizationCodeUsed sets used_at only if it is still NULL and
	// reports whether this call won.
	MarkAuthorizationCodeUsed(ctx context.Context, id string, now time.Time) (bool, error)

	DeleteExpiredAuthorizationCodes(ctx context.Context, now time.Time) (int64, error)
}

type Tokens interface {
	CreateToken(ctx context.Context, t domain.Token) error
	GetTokenByFingerprint(ctx context.Context, kind domain.TokenKind, fingerprint string) (domain.Token, error)

	// RevokeToken sets revoked_at if unset and reports whether a row changed.
	RevokeToken(ctx context.Context, id string, now time.Time) (bool, error)

	RevokeTokenFamily(ctx context.Context, familyID string, now time.Time) (int64, error)
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

type SigningKeys interface {
	CreateSigningKey(ctx context.Context, key domain.SigningKey) error

	// ListActiveSigningKeys returns non-retired keys, oldest first.
	ListActiveSigningKeys(ctx context.Context) ([]domain.SigningKey, error)

	// ListAllSigningKeys returns every key, newest first.
	ListAllSigningKeys(ctx context.Context) ([]domain.SigningKey, error)

	RetireSigningKey(ctx context.Context, kid string, at time.Time) error

	// DeleteRetiredSigningKeys removes keys retired before cutoff.
	DeleteRetiredSigningKeys(ctx context.Context, cutoff time.Time) (int64, error)
}
