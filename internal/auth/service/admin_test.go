package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
	"github.com/aussiebroadwan/kubarr/internal/auth/metrics"
	"github.com/aussiebroadwan/kubarr/internal/auth/store"
	"github.com/aussiebroadwan/kubarr/pkg/cryptox"
	"github.com/aussiebroadwan/kubarr/pkg/jwtx"
	"github.com/aussiebroadwan/kubarr/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestClientService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("confidential client gets a secret", func(t *testing.T) {
		c, secret, err := env.clients.CreateClient(ctx, ClientInput{
			ID:           "radarr",
			Name:         " Radarr ",
			RedirectURIs: []string{"https://radarr.example.com/cb", "https://radarr.example.com/cb"},
		})
		require.NoError(t, err)
		require.NotEmpty(t, secret)
		require.False(t, c.IsPublic())
		require.Equal(t, "Radarr", c.Name)
		require.Equal(t, []string{"https://radarr.example.com/cb"}, c.RedirectURIs)
		require.Equal(t, DefaultClientScopes, c.Scopes)
	})

	t.Run("duplicate id", func(t *testing.T) {
		_, _, err := env.clients.CreateClient(ctx, ClientInput{ID: "radarr", RedirectURIs: []string{"https://x.example.com/cb"}})
		require.ErrorIs(t, err, ErrClientExists)
	})

	t.Run("redirect uri validation", func(t *testing.T) {
		for _, uri := range []string{"/relative", "ftp://x.example.com/cb", "https://x.example.com/cb#frag", "https:///cb"} {
			_, _, err := env.clients.CreateClient(ctx, ClientInput{ID: "bad", RedirectURIs: []string{uri}})
			require.ErrorIs(t, err, ErrInvalidRequest, uri)
		}

		_, _, err := env.clients.CreateClient(ctx, ClientInput{ID: "none"})
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("list get delete", func(t *testing.T) {
		_, _, err := env.clients.CreateClient(ctx, ClientInput{ID: "lidarr", RedirectURIs: []string{"http://localhost:8686/cb"}, Public: true})
		require.NoError(t, err)

		all, err := env.clients.ListClients(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)

		got, err := env.clients.GetClient(ctx, "lidarr")
		require.NoError(t, err)
		require.True(t, got.IsPublic())

		require.NoError(t, env.clients.DeleteClient(ctx, "lidarr"))
		require.ErrorIs(t, env.clients.DeleteClient(ctx, "lidarr"), ErrClientNotFound)

		_, err = env.clients.GetClient(ctx, "lidarr")
		require.ErrorIs(t, err, ErrClientNotFound)
	})
}

func TestAccountService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		_, err := env.accounts.CreateAccount(ctx, AccountInput{Username: "bob", Email: "bob@example.com", Password: "short"})
		require.ErrorIs(t, err, ErrWeakPassword)

		_, err = env.accounts.CreateAccount(ctx, AccountInput{Username: " ", Email: "bob@example.com", Password: testPassword})
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("unknown role rolls back the account", func(t *testing.T) {
		_, err := env.accounts.CreateAccount(ctx, AccountInput{
			Username: "carol", Email: "carol@example.com", Password: testPassword, Roles: []string{"ghost"},
		})
		require.ErrorIs(t, err, ErrRoleNotFound)

		_, err = env.accounts.ResolveAccountID(ctx, "carol")
		require.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("duplicates", func(t *testing.T) {
		env.createAccount(t, "dave")
		_, err := env.accounts.CreateAccount(ctx, AccountInput{Username: "dave", Email: "other@example.com", Password: testPassword})
		require.ErrorIs(t, err, ErrAccountExists)

		env.createRole(t, domain.Role{Name: "viewers"})
		_, err = env.accounts.CreateRole(ctx, domain.Role{Name: "viewers"})
		require.ErrorIs(t, err, ErrRoleExists)
	})

	t.Run("grant role", func(t *testing.T) {
		acct := env.createAccount(t, "erin")
		env.createRole(t, domain.Role{Name: "media", AppGrants: []string{"sonarr"}})

		require.NoError(t, env.accounts.GrantRole(ctx, "erin@example.com", "media"))
		require.ErrorIs(t, env.accounts.GrantRole(ctx, "erin", "ghost"), ErrRoleNotFound)
		require.ErrorIs(t, env.accounts.GrantRole(ctx, "nobody", "media"), ErrAccountNotFound)

		caps, err := env.permissions.Resolve(ctx, acct.ID)
		require.NoError(t, err)
		require.True(t, caps.HasAppAccess("sonarr"))

		id, err := env.accounts.ResolveAccountID(ctx, acct.ID)
		require.NoError(t, err)
		require.Equal(t, acct.ID, id)
	})

	t.Run("deactivation revokes sessions", func(t *testing.T) {
		acct := env.createAccount(t, "frank")
		res := env.login(t, "frank")

		require.NoError(t, env.accounts.SetStatus(ctx, acct.ID, false, true))

		_, err := env.sessions.Resolve(ctx, res.Token)
		require.ErrorIs(t, err, ErrUnauthenticated)

		require.ErrorIs(t, env.accounts.SetStatus(ctx, "missing", true, true), ErrAccountNotFound)
	})
}

func TestHousekeepingService_Cleanup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f := &oauthFixture{env: env}
	env.createAccount(t, "alice")
	f.identity = identityFor(t, env, env.login(t, "alice"))
	var err error
	f.public, _, err = env.clients.CreateClient(ctx, ClientInput{ID: "sonarr", RedirectURIs: []string{testRedirect}, Public: true})
	require.NoError(t, err)

	f.code(t, "openid", "v")
	_, err = f.exchange(f.code(t, "openid", "v"), "v")
	require.NoError(t, err)

	m := metrics.New()
	hk := NewHousekeepingService(env.store, slogx.Discard(), m, time.Minute)
	hk.Now = env.clock.Now

	deleted := hk.Cleanup(ctx)
	require.Zero(t, deleted["authorization_codes"])
	require.Zero(t, deleted["sessions"])

	env.clock.Advance(8 * 24 * time.Hour)
	deleted = hk.Cleanup(ctx)
	require.EqualValues(t, 2, deleted["authorization_codes"])
	require.EqualValues(t, 1, deleted["sessions"])

	deleted = hk.Cleanup(ctx)
	for table, n := range deleted {
		require.Zero(t, n, table)
	}
}

func TestHousekeepingService_StartStop(t *testing.T) {
	env := newTestEnv(t)

	hk := NewHousekeepingService(env.store, slogx.Discard(), nil, 0)
	require.Equal(t, time.Hour, hk.Interval)

	hk.Start()
	hk.Stop()
}

func TestKeyRotationService_Ephemeral(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	before := env.keys.KIDs()
	oldToken, err := env.keys.Sign(jwtx.NewClaims(jwtx.TokenUseAccess, testIssuer, "sub", []string{"c"}, time.Hour, env.clock.Now()))
	require.NoError(t, err)

	svc := &KeyRotationService{Store: env.store, KeyManager: env.keys, Audit: env.audit, Metrics: metrics.New(), Now: env.clock.Now}
	res, err := svc.RotateKey(ctx)
	require.NoError(t, err)
	require.Len(t, res.ActiveKids, jwtx.MinKeys)
	require.Equal(t, res.Kid, res.ActiveKids[len(res.ActiveKids)-1])
	require.NotContains(t, res.ActiveKids, before[0])
	require.Equal(t, 1, env.audit.count(AuditSigningKeyRotated))

	// The previous current key still verifies.
	_, err = env.keys.Verifier.WithUse(jwtx.TokenUseAccess).Verify(oldToken)
	require.NoError(t, err)

	keys, err := svc.ListSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, jwtx.MinKeys)
	require.Equal(t, res.Kid, keys[0].Kid)
}

func TestKeyRotationService_Persistent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cipher, err := cryptox.NewKeyCipher([]byte("master key for tests"))
	require.NoError(t, err)

	opts := jwtx.PersistentKeyManagerOptions{
		KeyManagerOptions: jwtx.KeyManagerOptions{Issuer: testIssuer, RSABits: 2048, Now: env.clock.Now},
		Store:             store.NewKeyStoreAdapter(env.store),
		Cipher:            cipher,
	}
	km, err := jwtx.NewPersistentKeyManager(ctx, opts)
	require.NoError(t, err)

	svc := &KeyRotationService{Store: env.store, KeyManager: km, Persistent: true, Now: env.clock.Now}
	_, err = svc.RotateKey(ctx)
	require.NoError(t, err)

	keys, err := svc.ListSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, jwtx.MinKeys+1)

	var retired int
	for _, k := range keys {
		require.Nil(t, k.PrivateKeyEncrypted)
		if k.RetiredAt != nil {
			retired++
		}
	}
	require.Equal(t, 1, retired)

	// A restart loads the same keys.
	reloaded, err := jwtx.NewPersistentKeyManager(ctx, opts)
	require.NoError(t, err)
	require.ElementsMatch(t, km.KIDs(), reloaded.KIDs())

	env.clock.Advance(DefaultRetiredKeyRetention + time.Hour)
	deleted := NewHousekeepingService(env.store, slogx.Discard(), nil, 0)
	deleted.Now = env.clock.Now
	require.EqualValues(t, 1, deleted.Cleanup(ctx)["signing_keys"])
}
