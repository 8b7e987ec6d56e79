package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestChooseSlot(t *testing.T) {
	t.Parallel()

	full := []OccupiedSlot{
		{Slot: 0, AccountID: "a", SessionID: "s0"},
		{Slot: 1, AccountID: "b", SessionID: "s1"},
		{Slot: 2, AccountID: "c", SessionID: "s2"},
	}

	cases := []struct {
		name     string
		account  string
		occupied []OccupiedSlot
		slot     int
		evicted  string
	}{
		{"empty browser", "x", nil, 0, ""},
		{"same account reuses slot", "b", full, 1, ""},
		{"lowest free slot", "x", []OccupiedSlot{{Slot: 0, AccountID: "a"}, {Slot: 2, AccountID: "c"}}, 1, ""},
		{"full evicts slot zero", "x", full, 0, "s0"},
		{"out of range slots are ignored", "x", []OccupiedSlot{{Slot: 7, AccountID: "z"}}, 0, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			slot, evicted := ChooseSlot(tc.account, tc.occupied, 3)
			require.Equal(t, tc.slot, slot)
			if tc.evicted == "" {
				require.Nil(t, evicted)
			} else {
				require.NotNil(t, evicted)
				require.Equal(t, tc.evicted, evicted.SessionID)
			}
		})
	}
}

func TestLogin_CreatesResolvableSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	acct := env.createAccount(t, "alice")

	res := env.login(t, "alice")
	require.Equal(t, 0, res.Session.Slot)
	require.Equal(t, acct.ID, res.Account.ID)
	require.NotEmpty(t, res.Token)
	require.WithinDuration(t, env.clock.Now().Add(7*24*time.Hour), res.Session.ExpiresAt, 0)

	id, err := env.sessions.Resolve(ctx, res.Token)
	require.NoError(t, err)
	require.Equal(t, res.Session.ID, id.Session.ID)
	require.Equal(t, []string{AMRPassword}, id.Claims.AMR)
	require.NotNil(t, id.Claims.Slot)
	require.Equal(t, 0, *id.Claims.Slot)

	env.clock.Advance(7 * 24 * time.Hour)
	_, err = env.sessions.Resolve(ctx, res.Token)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestLogin_SecondAccountTakesNextSlot(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createAccount(t, "alice")
	env.createAccount(t, "bob")

	a := env.login(t, "alice")
	b := env.login(t, "bob", OccupiedSlot{Slot: 0, AccountID: a.Account.ID, SessionID: a.Session.ID})
	require.Equal(t, 1, b.Session.Slot)

	// Revoking one slot leaves the other untouched.
	require.NoError(t, env.sessions.Revoke(ctx, b.Account.ID, b.Session.ID))

	_, err := env.sessions.Resolve(ctx, b.Token)
	require.ErrorIs(t, err, ErrUnauthenticated)
	require.ErrorIs(t, err, ErrSessionRevoked)

	_, err = env.sessions.Resolve(ctx, a.Token)
	require.NoError(t, err)
}

func TestLogin_SameAccountReplacesSlotSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createAccount(t, "alice")

	first := env.login(t, "alice")
	second := env.login(t, "alice", OccupiedSlot{Slot: 0, AccountID: first.Account.ID, SessionID: first.Session.ID})
	require.Equal(t, 0, second.Session.Slot)

	_, err := env.sessions.Resolve(ctx, first.Token)
	require.ErrorIs(t, err, ErrSessionRevoked)

	live, err := env.sessions.List(ctx, first.Account.ID)
	require.NoError(t, err)
	require.Len(t, live, 1)
	require.Equal(t, second.Session.ID, live[0].ID)
}

func TestLogin_FullBrowserEvictsSlotZero(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	names := []string{"a1", "a2", "a3", "a4", "a5", "a6"}
	for _, n := range names {
		env.createAccount(t, n)
	}

	var (
		occupied []OccupiedSlot
		results  []LoginResult
	)
	for _, n := range names[:DefaultSessionSlots] {
		res := env.login(t, n, occupied...)
		occupied = append(occupied, OccupiedSlot{Slot: res.Session.Slot, AccountID: res.Account.ID, SessionID: res.Session.ID})
		results = append(results, res)
	}
	for i, res := range results {
		require.Equal(t, i, res.Session.Slot)
	}

	sixth := env.login(t, "a6", occupied...)
	require.Equal(t, 0, sixth.Session.Slot)
	require.NotNil(t, sixth.Evicted)
	require.Equal(t, results[0].Session.ID, sixth.Evicted.SessionID)

	_, err := env.sessions.Resolve(ctx, results[0].Token)
	require.ErrorIs(t, err, ErrUnauthenticated)

	for _, res := range results[1:] {
		_, err := env.sessions.Resolve(ctx, res.Token)
		require.NoError(t, err)
	}
}

func TestLogin_TwoFactorChallenge(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	acct := env.createAccount(t, "alice")
	secret, _ := env.enableTwoFactor(t, acct.ID)

	_, err := env.sessions.Login(ctx, LoginInput{Identifier: "alice", Password: testPassword})
	var challenge *TwoFactorRequiredError
	require.True(t, errors.As(err, &challenge))
	require.ErrorIs(t, err, ErrTwoFactorRequired)
	require.NotEmpty(t, challenge.ChallengeToken)
	require.Equal(t, []string{MethodTOTP, MethodRecoveryCode}, challenge.Methods)

	res, err := env.sessions.CompleteChallenge(ctx, ChallengeInput{
		ChallengeToken: challenge.ChallengeToken,
		Code:           env.totpCode(t, secret),
	})
	require.NoError(t, err)
	require.Equal(t, acct.ID, res.Account.ID)

	id, err := env.sessions.Resolve(ctx, res.Token)
	require.NoError(t, err)
	require.Equal(t, []string{AMRPassword, AMROTP, AMRMFA}, id.Claims.AMR)

	// The challenge is consumed.
	_, err = env.sessions.CompleteChallenge(ctx, ChallengeInput{ChallengeToken: challenge.ChallengeToken, Code: "x"})
	require.ErrorIs(t, err, ErrChallengeInvalid)
}

func TestLogin_CodeInSameRequest(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	acct := env.createAccount(t, "alice")
	_, codes := env.enableTwoFactor(t, acct.ID)

	res, err := env.sessions.Login(ctx, LoginInput{Identifier: "alice", Password: testPassword, Code: codes[0]})
	require.NoError(t, err)

	id, err := env.sessions.Resolve(ctx, res.Token)
	require.NoError(t, err)
	require.Equal(t, []string{AMRPassword, AMRMFA}, id.Claims.AMR)
}

func TestCompleteChallenge_AttemptLimit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	acct := env.createAccount(t, "alice")
	secret, _ := env.enableTwoFactor(t, acct.ID)

	_, err := env.sessions.Login(ctx, LoginInput{Identifier: "alice", Password: testPassword})
	var challenge *TwoFactorRequiredError
	require.True(t, errors.As(err, &challenge))

	for range MaxChallengeAttempts {
		_, err := env.sessions.CompleteChallenge(ctx, ChallengeInput{ChallengeToken: challenge.ChallengeToken, Code: "not-a-code"})
		require.ErrorIs(t, err, ErrInvalidTwoFactorCode)
	}

	_, err = env.sessions.CompleteChallenge(ctx, ChallengeInput{
		ChallengeToken: challenge.ChallengeToken,
		Code:           env.totpCode(t, secret),
	})
	require.ErrorIs(t, err, ErrChallengeInvalid)
}

func TestLogin_WrongInlineCodeCountsTowardsLockout(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	acct := env.createAccount(t, "alice")
	secret, _ := env.enableTwoFactor(t, acct.ID)

	for i := range DefaultLockoutThreshold {
		_, err := env.sessions.Login(ctx, LoginInput{Identifier: "alice", Password: testPassword, Code: "000000"})
		require.ErrorIs(t, err, ErrInvalidTwoFactorCode, "attempt %d", i)
	}

	fresh, err := env.store.Accounts().GetAccountByID(ctx, acct.ID)
	require.NoError(t, err)
	require.Equal(t, DefaultLockoutThreshold, fresh.FailedLoginCount)
	require.True(t, fresh.LockedAt(env.clock.Now()))
	require.Equal(t, 1, env.audit.count(AuditAccountLocked))

	// The right code no longer helps once the account is locked.
	_, err = env.sessions.Login(ctx, LoginInput{Identifier: "alice", Password: testPassword, Code: env.totpCode(t, secret)})
	require.ErrorIs(t, err, ErrAccountLocked)
}

func TestLogin_SecondFactorSuccessClearsCounter(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	acct := env.createAccount(t, "alice")
	secret, _ := env.enableTwoFactor(t, acct.ID)

	for range 3 {
		_, err := env.sessions.Login(ctx, LoginInput{Identifier: "alice", Password: testPassword, Code: "000000"})
		require.ErrorIs(t, err, ErrInvalidTwoFactorCode)
	}

	_, err := env.sessions.Login(ctx, LoginInput{Identifier: "alice", Password: testPassword, Code: env.totpCode(t, secret)})
	require.NoError(t, err)

	fresh, err := env.store.Accounts().GetAccountByID(ctx, acct.ID)
	require.NoError(t, err)
	require.Zero(t, fresh.FailedLoginCount)
}

func TestCompleteChallenge_FailuresSpanChallenges(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	acct := env.createAccount(t, "alice")
	secret, _ := env.enableTwoFactor(t, acct.ID)

	challenge := func() string {
		_, err := env.sessions.Login(ctx, LoginInput{Identifier: "alice", Password: testPassword})
		var ch *TwoFactorRequiredError
		require.True(t, errors.As(err, &ch))
		return ch.ChallengeToken
	}

	// Fresh challenges do not reset the count of wrong codes.
	for range DefaultLockoutThreshold / MaxChallengeAttempts {
		token := challenge()
		for range MaxChallengeAttempts {
			_, err := env.sessions.CompleteChallenge(ctx, ChallengeInput{ChallengeToken: token, Code: "000000"})
			require.ErrorIs(t, err, ErrInvalidTwoFactorCode)
		}
	}

	_, err := env.sessions.Login(ctx, LoginInput{Identifier: "alice", Password: testPassword})
	require.ErrorIs(t, err, ErrAccountLocked)

	env.clock.Advance(DefaultLockoutWindow)
	token := challenge()
	_, err = env.sessions.CompleteChallenge(ctx, ChallengeInput{ChallengeToken: token, Code: env.totpCode(t, secret)})
	require.NoError(t, err)
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	require.Equal(t, "abc", truncate("abc", 5))
	require.Equal(t, "ab", truncate("abcdef", 2))
	// "é" is two bytes; cutting inside it backs up to the rune start.
	require.Equal(t, "a", truncate("aé", 2))
	require.Equal(t, "aé", truncate("aéz", 3))
	require.Equal(t, "", truncate("日本", 2))
}

func TestCompleteChallenge_Expired(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	acct := env.createAccount(t, "alice")
	secret, _ := env.enableTwoFactor(t, acct.ID)

	_, err := env.sessions.Login(ctx, LoginInput{Identifier: "alice", Password: testPassword})
	var challenge *TwoFactorRequiredError
	require.True(t, errors.As(err, &challenge))

	env.clock.Advance(DefaultChallengeTTL)

	_, err = env.sessions.CompleteChallenge(ctx, ChallengeInput{
		ChallengeToken: challenge.ChallengeToken,
		Code:           env.totpCode(t, secret),
	})
	require.ErrorIs(t, err, ErrChallengeInvalid)
}

func TestLogin_RoleRequiresTwoFactorSetup(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createRole(t, domain.Role{Name: "admin", RequiresTwoFactor: true})
	acct := env.createAccount(t, "alice", "admin")

	_, err := env.sessions.Login(ctx, LoginInput{Identifier: "alice", Password: testPassword})
	require.ErrorIs(t, err, ErrTwoFactorSetupRequired)

	secret, _ := env.enableTwoFactor(t, acct.ID)
	_, err = env.sessions.Login(ctx, LoginInput{Identifier: "alice", Password: testPassword, Code: env.totpCode(t, secret)})
	require.NoError(t, err)
}

func TestResolve_RejectsDeactivatedAccount(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createAccount(t, "alice")
	res := env.login(t, "alice")

	require.NoError(t, env.accounts.SetStatus(ctx, res.Account.ID, false, true))

	_, err := env.sessions.Resolve(ctx, res.Token)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolve_RejectsForgedAndForeignTokens(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.sessions.Resolve(ctx, "not-a-jwt")
	require.ErrorIs(t, err, ErrUnauthenticated)

	other := newTestEnv(t)
	other.createAccount(t, "alice")
	res := other.login(t, "alice")

	_, err = env.sessions.Resolve(ctx, res.Token)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSwitch(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createAccount(t, "alice")
	env.createAccount(t, "bob")

	a := env.login(t, "alice")
	b := env.login(t, "bob", OccupiedSlot{Slot: 0, AccountID: a.Account.ID, SessionID: a.Session.ID})

	id, err := env.sessions.Switch(ctx, b.Token, 1)
	require.NoError(t, err)
	require.Equal(t, b.Account.ID, id.Account.ID)

	_, err = env.sessions.Switch(ctx, b.Token, 0)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRevoke_OwnershipAndLogout(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createAccount(t, "alice")
	env.createAccount(t, "bob")

	a := env.login(t, "alice")
	b := env.login(t, "bob")

	require.ErrorIs(t, env.sessions.Revoke(ctx, a.Account.ID, b.Session.ID), ErrSessionNotFound)
	require.ErrorIs(t, env.sessions.Revoke(ctx, a.Account.ID, "missing"), ErrSessionNotFound)

	require.NoError(t, env.sessions.Logout(ctx, a.Session.ID))
	require.NoError(t, env.sessions.Logout(ctx, a.Session.ID))
	require.Equal(t, 1, env.audit.count(AuditSessionRevoked))

	_, err := env.sessions.Resolve(ctx, a.Token)
	require.ErrorIs(t, err, ErrSessionRevoked)
	_, err = env.sessions.Resolve(ctx, b.Token)
	require.NoError(t, err)
}
