package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/kubarr/pkg/cryptox"
	"github.com/aussiebroadwan/kubarr/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "https://auth.kubarr.test"

func newTestSigner(t *testing.T, kid string) (jwtx.Signer, *jwtx.KeySet) {
	t.Helper()

	pemKey, err := cryptox.GenerateRSAKey(2048)
	require.NoError(t, err)

	signer, err := jwtx.NewSignerRS256(kid, pemKey)
	require.NoError(t, err)

	ks := jwtx.NewKeySet()
	require.NoError(t, ks.AddSigner(signer))
	return signer, ks
}

func TestRS256SignAndVerify(t *testing.T) {
	signer, ks := newTestSigner(t, "test-key")
	require.Equal(t, jwtx.AlgorithmRS256, signer.Alg())

	now := time.Now().UTC().Truncate(time.Second)
	claims := jwtx.NewClaims(jwtx.TokenUseAccess, exampleIssuer, "acct-123", []string{"sonarr"}, 2*time.Minute, now)
	claims.ClientID = "sonarr"
	claims.Scope = "openid profile"

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	v := jwtx.NewVerifierRS256(ks, jwtx.VerifyOptions{
		Issuer:   exampleIssuer,
		Audience: []string{"sonarr"},
		Use:      jwtx.TokenUseAccess,
		Now:      func() time.Time { return now },
	})

	got, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "acct-123", got.Subject)
	require.Equal(t, "sonarr", got.ClientID)
	require.True(t, got.HasScope("profile"))
	require.False(t, got.HasScope("email"))
}

func TestRS256ExpiryBoundary(t *testing.T) {
	signer, ks := newTestSigner(t, "exp-key")

	now := time.Now().UTC().Truncate(time.Second)
	ttl := time.Minute
	token, err := signer.Sign(jwtx.NewClaims(jwtx.TokenUseAccess, exampleIssuer, "acct", nil, ttl, now))
	require.NoError(t, err)

	verifyAt := func(at time.Time) error {
		v := jwtx.NewVerifierRS256(ks, jwtx.VerifyOptions{
			Issuer: exampleIssuer,
			Now:    func() time.Time { return at },
		})
		_, err := v.Verify(token)
		return err
	}

	require.NoError(t, verifyAt(now.Add(ttl-time.Second)))
	require.ErrorIs(t, verifyAt(now.Add(ttl+time.Second)), jwtx.ErrExpired)
	require.ErrorIs(t, verifyAt(now.Add(-time.Minute)), jwtx.ErrNotYetValid)
}

func TestRS256VerifyRejects(t *testing.T) {
	signer, ks := newTestSigner(t, "key-a")
	_, otherKS := newTestSigner(t, "key-b")

	now := time.Now().UTC()
	session := jwtx.NewClaims(jwtx.TokenUseSession, exampleIssuer, "acct", nil, time.Hour, now)
	token, err := signer.Sign(session)
	require.NoError(t, err)

	t.Run("unknown kid", func(t *testing.T) {
		v := jwtx.NewVerifierRS256(otherKS, jwtx.VerifyOptions{Issuer: exampleIssuer})
		_, err := v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrUnknownKID)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		v := jwtx.NewVerifierRS256(ks, jwtx.VerifyOptions{Issuer: "https://other"})
		_, err := v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("session token used as access token", func(t *testing.T) {
		v := jwtx.NewVerifierRS256(ks, jwtx.VerifyOptions{Issuer: exampleIssuer}).WithUse(jwtx.TokenUseAccess)
		_, err := v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrTokenUse)
	})

	t.Run("audience mismatch", func(t *testing.T) {
		v := jwtx.NewVerifierRS256(ks, jwtx.VerifyOptions{Issuer: exampleIssuer, Audience: []string{"radarr"}})
		_, err := v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrAudience)
	})

	t.Run("tampered payload", func(t *testing.T) {
		v := jwtx.NewVerifierRS256(ks, jwtx.VerifyOptions{Issuer: exampleIssuer})
		_, err := v.Verify(token[:len(token)-4] + "AAAA")
		require.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		v := jwtx.NewVerifierRS256(ks, jwtx.VerifyOptions{Issuer: exampleIssuer})
		_, err := v.Verify("not-a-jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})
}

func TestNewSignerRS256_InvalidInput(t *testing.T) {
	_, err := jwtx.NewSignerRS256("", []byte("x"))
	require.Error(t, err)

	_, err = jwtx.NewSignerRS256("kid", []byte("not pem"))
	require.Error(t, err)
}
