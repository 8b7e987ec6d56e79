package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
	"github.com/aussiebroadwan/kubarr/internal/auth/store"
	"github.com/aussiebroadwan/kubarr/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/kubarr/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedAccount(t *testing.T, s store.Store, username string) domain.Account {
	t.Helper()

	a := domain.Account{
		ID:           idx.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$argon2id$stub",
		Active:       true,
		Approved:     true,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.Accounts().CreateAccount(context.Background(), a))
	return a
}

func seedClient(t *testing.T, s store.Store, id string) domain.Client {
	t.Helper()

	c := domain.Client{
		ID:           id,
		Name:         id,
		RedirectURIs: []string{"https://" + id + ".example.com/callback"},
		Scopes:       []string{"openid", "profile"},
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.Clients().CreateClient(context.Background(), c))
	return c
}

func TestAccounts_Identifier(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	alice := seedAccount(t, s, "alice")

	got, err := s.Accounts().GetAccountByIdentifier(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.ID)

	got, err = s.Accounts().GetAccountByIdentifier(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.ID)

	_, err = s.Accounts().GetAccountByIdentifier(ctx, "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)

	dup := alice
	dup.ID = idx.New().String()
	require.ErrorIs(t, s.Accounts().CreateAccount(ctx, dup), store.ErrAlreadyExists)
}

func TestAccounts_LoginFailures(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	a := seedAccount(t, s, "bob")
	now := time.Unix(1_700_000_000, 0).UTC()

	for i := 1; i < 3; i++ {
		count, locked, err := s.Accounts().RecordLoginFailure(ctx, a.ID, now, 3, 15*time.Minute)
		require.NoError(t, err)
		require.Equal(t, i, count)
		require.Nil(t, locked)
	}

	count, locked, err := s.Accounts().RecordLoginFailure(ctx, a.ID, now, 3, 15*time.Minute)
	require.NoError(t, err)
	require.Equal(t, 3, count)
	require.NotNil(t, locked)
	require.True(t, now.Add(15*time.Minute).Equal(*locked))

	// A reset loses against an active lock.
	ok, err := s.Accounts().ResetLoginFailures(ctx, a.ID, now.Add(time.Minute))
	require.NoError(t, err)
	require.False(t, ok)

	// Once the lock elapses the count starts again.
	later := now.Add(16 * time.Minute)
	count, locked, err = s.Accounts().RecordLoginFailure(ctx, a.ID, later, 3, 15*time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Nil(t, locked)

	ok, err = s.Accounts().ResetLoginFailures(ctx, a.ID, later)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := s.Accounts().GetAccountByID(ctx, a.ID)
	require.NoError(t, err)
	require.Zero(t, got.FailedLoginCount)
	require.Nil(t, got.LockedUntil)
}

func TestAccounts_TOTP(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	a := seedAccount(t, s, "carol")

	require.ErrorIs(t, s.Accounts().EnableTOTP(ctx, a.ID), store.ErrNotFound)

	require.NoError(t, s.Accounts().SetPendingTOTPSecret(ctx, a.ID, "JBSWY3DPEHPK3PXP"))
	require.NoError(t, s.Accounts().EnableTOTP(ctx, a.ID))

	got, err := s.Accounts().GetAccountByID(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, got.TOTPEnabled)
	require.NotNil(t, got.TOTPSecret)
	require.Equal(t, "JBSWY3DPEHPK3PXP", *got.TOTPSecret)
	require.Nil(t, got.TOTPPendingSecret)

	// Setup cannot restart while enabled.
	require.ErrorIs(t, s.Accounts().SetPendingTOTPSecret(ctx, a.ID, "OTHER"), store.ErrNotFound)

	ok, err := s.Accounts().AdvanceTOTPStep(ctx, a.ID, 100)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Accounts().AdvanceTOTPStep(ctx, a.ID, 100)
	require.NoError(t, err)
	require.False(t, ok, "replayed step")

	require.NoError(t, s.Accounts().DisableTOTP(ctx, a.ID))
	got, err = s.Accounts().GetAccountByID(ctx, a.ID)
	require.NoError(t, err)
	require.False(t, got.TOTPEnabled)
	require.Nil(t, got.TOTPSecret)
}

func TestSessions_OneLivePerSlot(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	a := seedAccount(t, s, "dave")
	now := time.Now().UTC().Truncate(time.Second)

	newSession := func() domain.Session {
		return domain.Session{
			ID:          idx.New().String(),
			AccountID:   a.ID,
			Slot:        0,
			Fingerprint: idx.New().String(),
			CreatedAt:   now,
			ExpiresAt:   now.Add(time.Hour),
		}
	}

	first := newSession()
	require.NoError(t, s.Sessions().CreateSession(ctx, first))
	require.ErrorIs(t, s.Sessions().CreateSession(ctx, newSession()), store.ErrAlreadyExists)

	n, err := s.Sessions().RevokeSlotSessions(ctx, a.ID, 0, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	second := newSession()
	require.NoError(t, s.Sessions().CreateSession(ctx, second))

	live, err := s.Sessions().ListLiveSessions(ctx, a.ID, now)
	require.NoError(t, err)
	require.Len(t, live, 1)
	require.Equal(t, second.ID, live[0].ID)

	ok, err := s.Sessions().RevokeSession(ctx, second.ID, now)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Sessions().RevokeSession(ctx, second.ID, now)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRecoveryCodes_SingleUse(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	a := seedAccount(t, s, "erin")
	now := time.Now().UTC()

	require.NoError(t, s.RecoveryCodes().ReplaceRecoveryCodes(ctx, a.ID, []string{"fp-1", "fp-2"}, now))

	ok, err := s.RecoveryCodes().UseRecoveryCode(ctx, a.ID, "fp-1", now)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.RecoveryCodes().UseRecoveryCode(ctx, a.ID, "fp-1", now)
	require.NoError(t, err)
	require.False(t, ok)

	n, err := s.RecoveryCodes().CountUnusedRecoveryCodes(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, s.RecoveryCodes().ReplaceRecoveryCodes(ctx, a.ID, []string{"fp-3"}, now))
	ok, err = s.RecoveryCodes().UseRecoveryCode(ctx, a.ID, "fp-2", now)
	require.NoError(t, err)
	require.False(t, ok, "replaced codes are gone")
}

func TestChallenges_ConsumeOnce(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	a := seedAccount(t, s, "frank")
	now := time.Now().UTC()

	c := domain.TwoFactorChallenge{
		ID:          idx.New().String(),
		AccountID:   a.ID,
		Fingerprint: "challenge-fp",
		CreatedAt:   now,
		ExpiresAt:   now.Add(5 * time.Minute),
	}
	require.NoError(t, s.Challenges().CreateChallenge(ctx, c))

	attempts, err := s.Challenges().IncrementChallengeAttempts(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, 1, attempts)

	got, err := s.Challenges().GetChallengeByFingerprint(ctx, "challenge-fp")
	require.NoError(t, err)
	require.Equal(t, 1, got.Attempts)

	require.NoError(t, s.Challenges().DeleteChallenge(ctx, c.ID))
	require.ErrorIs(t, s.Challenges().DeleteChallenge(ctx, c.ID), store.ErrNotFound)
}

func TestRoles_ForAccount(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	a := seedAccount(t, s, "grace")
	now := time.Now().UTC()

	viewer := domain.Role{
		ID:          idx.New().String(),
		Name:        "viewer",
		Permissions: []string{"media.read"},
		AppGrants:   []string{"sonarr", "radarr"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.Roles().CreateRole(ctx, viewer))
	require.NoError(t, s.Roles().AssignRole(ctx, a.ID, viewer.ID))
	require.NoError(t, s.Roles().AssignRole(ctx, a.ID, viewer.ID)) // idempotent
	require.NoError(t, s.Roles().AddPermission(ctx, viewer.ID, "media.write"))

	roles, err := s.Roles().ListRolesForAccount(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	require.ElementsMatch(t, []string{"media.read", "media.write"}, roles[0].Permissions)
	require.ElementsMatch(t, []string{"sonarr", "radarr"}, roles[0].AppGrants)

	_, err = s.Roles().GetRoleByName(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Roles().UnassignRole(ctx, a.ID, viewer.ID))
	roles, err = s.Roles().ListRolesForAccount(ctx, a.ID)
	require.NoError(t, err)
	require.Empty(t, roles)
}

func TestAuthorizationCodes_MarkUsedOnce(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	a := seedAccount(t, s, "heidi")
	c := seedClient(t, s, "sonarr")
	now := time.Now().UTC()

	code := domain.AuthorizationCode{
		ID:          idx.New().String(),
		Fingerprint: "code-fp",
		ClientID:    c.ID,
		AccountID:   a.ID,
		SessionID:   "sess",
		RedirectURI: c.RedirectURIs[0],
		Scope:       "openid",
		AuthTime:    now,
		ExpiresAt:   now.Add(5 * time.Minute),
		CreatedAt:   now,
	}
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, code))

	ok, err := s.AuthorizationCodes().MarkAuthorizationCodeUsed(ctx, code.ID, now)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.AuthorizationCodes().MarkAuthorizationCodeUsed(ctx, code.ID, now)
	require.NoError(t, err)
	require.False(t, ok)

	got, err := s.AuthorizationCodes().GetAuthorizationCodeByFingerprint(ctx, "code-fp")
	require.NoError(t, err)
	require.NotNil(t, got.UsedAt)

	n, err := s.AuthorizationCodes().DeleteExpiredAuthorizationCodes(ctx, now.Add(10*time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestTokens_FamilyRevocation(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	a := seedAccount(t, s, "ivan")
	c := seedClient(t, s, "radarr")
	now := time.Now().UTC()

	family := idx.New().String()
	for _, fp := range []string{"r1", "r2"} {
		require.NoError(t, s.Tokens().CreateToken(ctx, domain.Token{
			ID:          idx.New().String(),
			Kind:        domain.TokenKindRefresh,
			Fingerprint: fp,
			FamilyID:    family,
			ClientID:    c.ID,
			AccountID:   a.ID,
			ExpiresAt:   now.Add(time.Hour),
			CreatedAt:   now,
		}))
	}

	n, err := s.Tokens().RevokeTokenFamily(ctx, family, now)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	tok, err := s.Tokens().GetTokenByFingerprint(ctx, domain.TokenKindRefresh, "r2")
	require.NoError(t, err)
	require.NotNil(t, tok.RevokedAt)

	_, err = s.Tokens().GetTokenByFingerprint(ctx, domain.TokenKindAccess, "r2")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestClients_SpaceDelimitedFields(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	c := seedClient(t, s, "overseerr")

	got, err := s.Clients().GetClientByID(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, c.RedirectURIs, got.RedirectURIs)
	require.Equal(t, c.Scopes, got.Scopes)
	require.True(t, got.IsPublic())

	require.NoError(t, s.Clients().UpdateClientSecretHash(ctx, c.ID, "$argon2id$new", time.Now()))
	got, err = s.Clients().GetClientByID(ctx, c.ID)
	require.NoError(t, err)
	require.False(t, got.IsPublic())

	require.NoError(t, s.Clients().DeleteClient(ctx, c.ID))
	require.ErrorIs(t, s.Clients().DeleteClient(ctx, c.ID), store.ErrNotFound)
}

func TestSigningKeys_Retire(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Unix(1_700_000_000, 0).UTC()

	for i, kid := range []string{"kubarr-a", "kubarr-b"} {
		require.NoError(t, s.SigningKeys().CreateSigningKey(ctx, domain.SigningKey{
			ID:                  idx.New().String(),
			Kid:                 kid,
			Algorithm:           "RS256",
			PrivateKeyEncrypted: []byte("sealed"),
			CreatedAt:           now.Add(time.Duration(i) * time.Second),
		}))
	}

	active, err := s.SigningKeys().ListActiveSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, "kubarr-a", active[0].Kid)

	require.NoError(t, s.SigningKeys().RetireSigningKey(ctx, "kubarr-a", now))
	require.ErrorIs(t, s.SigningKeys().RetireSigningKey(ctx, "kubarr-a", now), store.ErrNotFound)

	active, err = s.SigningKeys().ListActiveSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	n, err := s.SigningKeys().DeleteRetiredSigningKeys(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestWithTx_RollsBack(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Accounts().CreateAccount(ctx, domain.Account{
			ID:        idx.New().String(),
			Username:  "rolled",
			Email:     "rolled@example.com",
			CreatedAt: time.Now(),
		}))
		return store.ErrAlreadyExists
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	_, err = s.Accounts().GetAccountByIdentifier(ctx, "rolled")
	require.ErrorIs(t, err, store.ErrNotFound)
}
