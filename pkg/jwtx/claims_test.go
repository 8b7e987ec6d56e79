package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/kubarr/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestNewClaims(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	c := jwtx.NewClaims(jwtx.TokenUseSession, "iss", "sub", []string{"aud"}, time.Hour, now)

	require.Equal(t, jwtx.TokenUseSession, c.TokenUse)
	require.True(t, now.Equal(c.IssuedAt.Time))
	require.True(t, now.Add(time.Hour).Equal(c.ExpiresAt.Time))
	require.NotEmpty(t, c.ID)

	other := jwtx.NewClaims(jwtx.TokenUseSession, "iss", "sub", nil, time.Hour, now)
	require.NotEqual(t, c.ID, other.ID)
}

func TestClaimsValidation(t *testing.T) {
	c := jwtx.NewClaims(jwtx.TokenUseAccess, "iss", "sub", []string{"a", "b"}, time.Hour, time.Now())

	require.NoError(t, c.ValidateIssuer(""))
	require.NoError(t, c.ValidateIssuer("iss"))
	require.ErrorIs(t, c.ValidateIssuer("other"), jwtx.ErrIssuer)

	require.NoError(t, c.ValidateAudience(nil))
	require.NoError(t, c.ValidateAudience([]string{"x", "b"}))
	require.ErrorIs(t, c.ValidateAudience([]string{"x"}), jwtx.ErrAudience)

	require.NoError(t, c.ValidateUse(jwtx.TokenUseAccess))
	require.ErrorIs(t, c.ValidateUse(jwtx.TokenUseID), jwtx.ErrTokenUse)
}

func TestClaimsScopes(t *testing.T) {
	c := jwtx.Claims{Scope: " openid  profile email "}
	require.Equal(t, []string{"openid", "profile", "email"}, c.Scopes())
	require.True(t, c.HasScope("email"))
	require.False(t, c.HasScope("offline_access"))
}
