package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTwoFactor_SetupAndReplay(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	acct := env.createAccount(t, "alice")

	setup, err := env.twoFactor.BeginSetup(ctx, acct.ID)
	require.NoError(t, err)
	require.NotEmpty(t, setup.Secret)
	require.Contains(t, setup.URI, "otpauth://totp/")
	require.NotEmpty(t, setup.QRCodePNG)

	status, err := env.twoFactor.Status(ctx, acct.ID)
	require.NoError(t, err)
	require.True(t, status.Pending)
	require.False(t, status.Enabled)

	_, err = env.twoFactor.ConfirmSetup(ctx, acct.ID, "000000x")
	require.ErrorIs(t, err, ErrInvalidTwoFactorCode)

	code := env.totpCode(t, setup.Secret)
	codes, err := env.twoFactor.ConfirmSetup(ctx, acct.ID, code)
	require.NoError(t, err)
	require.Len(t, codes, RecoveryCodeCount)

	// The confirming code cannot sign in again.
	require.ErrorIs(t, env.twoFactor.VerifyCode(ctx, acct.ID, code), ErrInvalidTwoFactorCode)

	env.clock.Advance(30 * time.Second)
	next := env.totpCode(t, setup.Secret)
	require.NoError(t, env.twoFactor.VerifyCode(ctx, acct.ID, next))
	require.ErrorIs(t, env.twoFactor.VerifyCode(ctx, acct.ID, next), ErrInvalidTwoFactorCode)

	_, err = env.twoFactor.BeginSetup(ctx, acct.ID)
	require.ErrorIs(t, err, ErrTwoFactorAlreadyEnabled)
}

func TestTwoFactor_RecoveryCodesSingleUse(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	acct := env.createAccount(t, "alice")
	_, codes := env.enableTwoFactor(t, acct.ID)

	res, err := env.twoFactor.VerifyRecovery(ctx, acct.ID, codes[0])
	require.NoError(t, err)
	require.Equal(t, RecoveryCodeCount-1, res.Remaining)
	require.False(t, res.Disabled)

	_, err = env.twoFactor.VerifyRecovery(ctx, acct.ID, codes[0])
	require.ErrorIs(t, err, ErrInvalidTwoFactorCode)

	// Codes are normalized before lookup.
	_, err = env.twoFactor.VerifyRecovery(ctx, acct.ID, " "+strings.ToLower(codes[1])+" ")
	require.NoError(t, err)
}

func TestTwoFactor_RecoveryExhaustionDisables(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	acct := env.createAccount(t, "alice")
	_, codes := env.enableTwoFactor(t, acct.ID)

	var last RecoveryResult
	for _, code := range codes {
		res, err := env.twoFactor.VerifyRecovery(ctx, acct.ID, code)
		require.NoError(t, err)
		last = res
	}
	require.Zero(t, last.Remaining)
	require.True(t, last.Disabled)

	fresh, err := env.store.Accounts().GetAccountByID(ctx, acct.ID)
	require.NoError(t, err)
	require.False(t, fresh.TOTPEnabled)
	require.Nil(t, fresh.TOTPSecret)

	_, err = env.twoFactor.VerifyRecovery(ctx, acct.ID, codes[0])
	require.ErrorIs(t, err, ErrTwoFactorNotEnabled)

	// The account now signs in with the password alone.
	_, err = env.sessions.Login(ctx, LoginInput{Identifier: "alice", Password: testPassword})
	require.NoError(t, err)
}

func TestTwoFactor_DisableRequiresPassword(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	acct := env.createAccount(t, "alice")
	env.enableTwoFactor(t, acct.ID)

	require.ErrorIs(t, env.twoFactor.Disable(ctx, acct.ID, "wrong"), ErrInvalidCredentials)
	require.NoError(t, env.twoFactor.Disable(ctx, acct.ID, testPassword))

	status, err := env.twoFactor.Status(ctx, acct.ID)
	require.NoError(t, err)
	require.False(t, status.Enabled)
	require.Zero(t, status.RemainingRecoveryCodes)
}

func TestTwoFactor_RegenerateRecoveryCodes(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	acct := env.createAccount(t, "alice")
	secret, old := env.enableTwoFactor(t, acct.ID)

	fresh, err := env.twoFactor.RegenerateRecoveryCodes(ctx, acct.ID, env.totpCode(t, secret))
	require.NoError(t, err)
	require.Len(t, fresh, RecoveryCodeCount)

	_, err = env.twoFactor.VerifyRecovery(ctx, acct.ID, old[0])
	require.ErrorIs(t, err, ErrInvalidTwoFactorCode)

	_, err = env.twoFactor.VerifyRecovery(ctx, acct.ID, fresh[0])
	require.NoError(t, err)
}
