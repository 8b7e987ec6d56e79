package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
	"github.com/aussiebroadwan/kubarr/internal/auth/store"
	"github.com/aussiebroadwan/kubarr/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/kubarr/pkg/cryptox"
	"github.com/aussiebroadwan/kubarr/pkg/jwtx"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://auth.kubarr.test"
	testPassword = "correct horse battery"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingAudit struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (r *recordingAudit) Record(_ context.Context, ev AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingAudit) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, ev := range r.events {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

type testEnv struct {
	store  store.Store
	clock  *testClock
	audit  *recordingAudit
	hasher *cryptox.Hasher
	keys   *jwtx.KeyManager

	credentials *CredentialService
	twoFactor   *TwoFactorService
	permissions *PermissionService
	sessions    *SessionService
	authorize   *AuthorizeService
	tokens      *TokenService
	clients     *ClientService
	accounts    *AccountService
}

var (
	hasherOnce sync.Once
	testHasher *cryptox.Hasher
)

func sharedHasher(t *testing.T) *cryptox.Hasher {
	t.Helper()
	hasherOnce.Do(func() {
		h, err := cryptox.NewHasher("test-pepper")
		if err != nil {
			panic(err)
		}
		testHasher = h
	})
	return testHasher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	clock := &testClock{t: time.Unix(1_800_000_000, 0).UTC()}
	audit := &recordingAudit{}
	hasher := sharedHasher(t)

	keys, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Issuer:  testIssuer,
		RSABits: 2048,
		Now:     clock.Now,
	})
	require.NoError(t, err)

	env := &testEnv{store: st, clock: clock, audit: audit, hasher: hasher, keys: keys}
	env.credentials = &CredentialService{Store: st, Hasher: hasher, Audit: audit, Now: clock.Now}
	env.twoFactor = &TwoFactorService{Store: st, Credentials: env.credentials, Audit: audit, Issuer: "kubarr", Now: clock.Now}
	env.permissions = &PermissionService{Store: st}
	env.sessions = &SessionService{
		Store:       st,
		Credentials: env.credentials,
		TwoFactor:   env.twoFactor,
		Permissions: env.permissions,
		KeyManager:  keys,
		Audit:       audit,
		Issuer:      testIssuer,
		Now:         clock.Now,
	}
	env.authorize = &AuthorizeService{Store: st, Now: clock.Now}
	env.tokens = &TokenService{Store: st, KeyManager: keys, Hasher: hasher, Audit: audit, Issuer: testIssuer, Now: clock.Now}
	env.clients = &ClientService{Store: st, Hasher: hasher, Audit: audit, Now: clock.Now}
	env.accounts = &AccountService{Store: st, Hasher: hasher, Now: clock.Now}
	return env
}

func (e *testEnv) createAccount(t *testing.T, username string, roles ...string) domain.Account {
	t.Helper()

	acct, err := e.accounts.CreateAccount(context.Background(), AccountInput{
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
		Roles:    roles,
	})
	require.NoError(t, err)
	return acct
}

func (e *testEnv) createRole(t *testing.T, role domain.Role) domain.Role {
	t.Helper()

	r, err := e.accounts.CreateRole(context.Background(), role)
	require.NoError(t, err)
	return r
}

// enableTwoFactor runs setup for the account and returns the TOTP secret
// and the recovery codes. The clock is moved past the confirming step.
func (e *testEnv) enableTwoFactor(t *testing.T, accountID string) (string, []string) {
	t.Helper()
	ctx := context.Background()

	setup, err := e.twoFactor.BeginSetup(ctx, accountID)
	require.NoError(t, err)

	code, err := totp.GenerateCode(setup.Secret, e.clock.Now())
	require.NoError(t, err)

	codes, err := e.twoFactor.ConfirmSetup(ctx, accountID, code)
	require.NoError(t, err)
	require.Len(t, codes, RecoveryCodeCount)

	e.clock.Advance(totpPeriod * time.Second)
	return setup.Secret, codes
}

func (e *testEnv) totpCode(t *testing.T, secret string) string {
	t.Helper()

	code, err := totp.GenerateCode(secret, e.clock.Now())
	require.NoError(t, err)
	return code
}

func (e *testEnv) login(t *testing.T, username string, occupied ...OccupiedSlot) LoginResult {
	t.Helper()

	res, err := e.sessions.Login(context.Background(), LoginInput{
		Identifier: username,
		Password:   testPassword,
		Occupied:   occupied,
	})
	require.NoError(t, err)
	return res
}
