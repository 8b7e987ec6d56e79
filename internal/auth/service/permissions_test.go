package service

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestNewCapabilities(t *testing.T) {
	t.Parallel()

	t.Run("union of roles", func(t *testing.T) {
		c := NewCapabilities([]domain.Role{
			{Name: "viewer", Permissions: []string{"apps.view"}, AppGrants: []string{"sonarr"}},
			{Name: "ops", Permissions: []string{"apps.view", "logs.view"}, AppGrants: []string{"radarr"}},
		})

		require.Equal(t, []string{"app.radarr", "app.sonarr", "apps.view", "logs.view"}, c.Permissions())
		require.Equal(t, AppAccess{Named: []string{"radarr", "sonarr"}}, c.AppAccess())
		require.True(t, c.HasAppAccess("sonarr"))
		require.False(t, c.HasAppAccess("lidarr"))
		require.False(t, c.RequiresTwoFactor())
	})

	t.Run("app permission grants the app", func(t *testing.T) {
		c := NewCapabilities([]domain.Role{{Permissions: []string{"app.lidarr"}}})
		require.True(t, c.HasAppAccess("lidarr"))
		require.True(t, c.AppAccess().Allows("lidarr"))
	})

	t.Run("wildcard grants every app", func(t *testing.T) {
		c := NewCapabilities([]domain.Role{
			{Name: "admin", Permissions: []string{domain.PermissionAllApps}, RequiresTwoFactor: true},
			{Name: "viewer", AppGrants: []string{"sonarr"}},
		})

		require.Equal(t, AppAccess{All: true}, c.AppAccess())
		require.True(t, c.HasAppAccess("anything"))
		require.True(t, c.HasPermission(domain.PermissionAllApps))
		require.True(t, c.RequiresTwoFactor())
	})

	t.Run("no roles", func(t *testing.T) {
		c := NewCapabilities(nil)
		require.Empty(t, c.Permissions())
		require.False(t, c.AppAccess().All)
		require.Empty(t, c.AppAccess().Named)
	})
}

func TestPermissionService_ResolvesFresh(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createRole(t, domain.Role{Name: "viewer", AppGrants: []string{"sonarr"}})
	env.createRole(t, domain.Role{Name: "admin", Permissions: []string{domain.PermissionAllApps, domain.PermissionClientsManage}})
	acct := env.createAccount(t, "alice", "viewer")

	ok, err := env.permissions.HasAppAccess(ctx, acct.ID, "radarr")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = env.permissions.HasPermission(ctx, acct.ID, domain.PermissionClientsManage)
	require.NoError(t, err)
	require.False(t, ok)

	// A role granted after the first lookup applies on the next one.
	require.NoError(t, env.accounts.GrantRole(ctx, "alice", "admin"))

	access, err := env.permissions.EffectiveAppAccess(ctx, acct.ID)
	require.NoError(t, err)
	require.True(t, access.All)

	perms, err := env.permissions.EffectivePermissions(ctx, acct.ID)
	require.NoError(t, err)
	require.Contains(t, perms, domain.PermissionClientsManage)
	require.Contains(t, perms, "app.sonarr")
}
