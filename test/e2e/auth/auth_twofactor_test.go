package auth_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/kubarr/pkg/authsdk"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestTwoFactor(t *testing.T) {
	svc := setupAuthContainer(t)
	ctx := t.Context()

	c := svc.newClient(t)
	login(t, c, memberUsername, memberPassword)

	setup, err := c.BeginTwoFactorSetup(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, setup.Secret)
	require.Contains(t, setup.URI, "otpauth://totp/")
	require.NotEmpty(t, setup.QRCodePNG)

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	recovery, err := c.ConfirmTwoFactorSetup(ctx, code)
	require.NoError(t, err)
	require.Len(t, recovery.Codes, 10)

	// A fresh browser now gets a challenge after the password.
	fresh := svc.newClient(t)
	_, err = fresh.Login(ctx, authsdk.LoginRequest{Identifier: memberUsername, Password: memberPassword})
	var challenge *authsdk.TwoFactorRequiredError
	require.ErrorAs(t, err, &challenge)
	require.NotEmpty(t, challenge.ChallengeToken)

	_, err = fresh.CompleteChallenge(ctx, authsdk.CompleteChallengeRequest{
		ChallengeToken: challenge.ChallengeToken,
		Code:           "000000",
	})
	require.Error(t, err)

	res, err := fresh.CompleteChallenge(ctx, authsdk.CompleteChallengeRequest{
		ChallengeToken: challenge.ChallengeToken,
		Code:           recovery.Codes[0],
	})
	require.NoError(t, err)
	require.Equal(t, memberUsername, res.Username)

	t.Run("recovery codes are single use", func(t *testing.T) {
		again := svc.newClient(t)
		_, err := again.Login(ctx, authsdk.LoginRequest{Identifier: memberUsername, Password: memberPassword})
		require.ErrorAs(t, err, &challenge)

		_, err = again.CompleteChallenge(ctx, authsdk.CompleteChallengeRequest{
			ChallengeToken: challenge.ChallengeToken,
			Code:           recovery.Codes[0],
		})
		require.Error(t, err)
	})

	t.Run("disable needs the password", func(t *testing.T) {
		require.Error(t, c.DisableTwoFactor(ctx, "wrong"))
		require.NoError(t, c.DisableTwoFactor(ctx, memberPassword))

		login(t, svc.newClient(t), memberUsername, memberPassword)
	})
}
