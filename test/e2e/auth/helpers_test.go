package auth_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/kubarr/pkg/authsdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcexec "github.com/testcontainers/testcontainers-go/exec"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helper functions for auth service end-to-end tests.
 * This includes container setup, seeding through the CLI, and assertions.
 */

const (
	testImageName = "kubarr-auth-test:latest"

	adminUsername  = "alice"
	adminPassword  = "correct horse battery staple"
	memberUsername = "bob"
	memberPassword = "tr0ub4dor&3-but-longer"

	publicClientID = "sonarr"
	redirectURI    = "http://localhost/callback"
)

// TestMain builds the Docker image once before all tests and removes it
// after they complete.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building Auth Service Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Auth Service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.CommandContext(context.Background(), "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/auth/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	return cmd.Run()
}

func cleanupDockerImage() {
	cmd := exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // image might not exist
}

// authService is one running container.
type authService struct {
	BaseURL   string
	container testcontainers.Container
}

// baseEnv is the environment every test container starts with.
func baseEnv() map[string]string {
	return map[string]string{
		"AUTH_ISSUER":          "http://localhost:8080",
		"AUTH_RSA_BITS":        "2048",
		"AUTH_COOKIE_INSECURE": "true",
		"ENV":                  "test",
		"LOG_LEVEL":            "info",
		"LOG_FORMAT":           "json",
	}
}

// relaxedLimits lifts the rate limits so tests can make many rapid requests.
func relaxedLimits(env map[string]string) map[string]string {
	for _, profile := range []string{"STRICT", "MODERATE", "LENIENT"} {
		env["RATELIMIT_"+profile+"_REQUESTS"] = "1000"
		env["RATELIMIT_"+profile+"_BURST"] = "1000"
	}
	return env
}

// setupAuthContainer starts a seeded service with relaxed rate limits.
func setupAuthContainer(t *testing.T) *authService {
	t.Helper()
	return startAuthContainer(t, relaxedLimits(baseEnv()))
}

// setupAuthContainerWithDefaultRateLimits keeps the production limits, for
// the rate limit tests only.
func setupAuthContainerWithDefaultRateLimits(t *testing.T) *authService {
	t.Helper()
	return startAuthContainer(t, baseEnv())
}

func startAuthContainer(t *testing.T, env map[string]string) *authService {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        testImageName,
			ExposedPorts: []string{"8080/tcp"},
			Env:          env,
			WaitingFor: wait.ForHTTP("/readyz").
				WithPort("8080/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	svc := &authService{
		BaseURL:   fmt.Sprintf("http://%s:%s", host, port.Port()),
		container: container,
	}
	svc.seed(t)
	return svc
}

// cli runs kubarr-auth inside the container and returns its output.
func (s *authService) cli(t *testing.T, args ...string) string {
	t.Helper()

	code, reader, err := s.container.Exec(context.Background(), append([]string{"kubarr-auth"}, args...), tcexec.Multiplexed())
	require.NoError(t, err)
	out, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Equal(t, 0, code, "kubarr-auth %s: %s", strings.Join(args, " "), out)
	return string(out)
}

// seed creates an admin and a member account plus a public client.
func (s *authService) seed(t *testing.T) {
	t.Helper()

	s.cli(t, "role", "create", "admin",
		"--permission", "oauth.clients.manage",
		"--permission", "users.manage",
		"--permission", "keys.manage",
		"--permission", "app.*")
	s.cli(t, "role", "create", "family", "--app", publicClientID)

	s.cli(t, "account", "create", adminUsername, "--email", "alice@example.com", "--password", adminPassword, "--role", "admin")
	s.cli(t, "account", "create", memberUsername, "--email", "bob@example.com", "--password", memberPassword, "--role", "family")

	s.cli(t, "client", "create", publicClientID, "--public", "--name", "Sonarr", "--redirect-uri", redirectURI)
}

// newClient returns an SDK client with an empty cookie jar.
func (s *authService) newClient(t *testing.T) *authsdk.Client {
	t.Helper()
	c, err := authsdk.NewClient(s.BaseURL)
	require.NoError(t, err)
	return c
}

// login signs username in on c and returns the login response.
func login(t *testing.T, c *authsdk.Client, username, password string) *authsdk.LoginResponse {
	t.Helper()
	resp, err := c.Login(t.Context(), authsdk.LoginRequest{Identifier: username, Password: password})
	require.NoError(t, err, "login %s", username)
	return resp
}

// authorizeCode runs a PKCE authorization request with the active session.
func authorizeCode(t *testing.T, c *authsdk.Client, clientID, scope string) (code, verifier string) {
	t.Helper()

	verifier, challenge := authsdk.NewPKCE()
	code, err := c.Authorize(t.Context(), authsdk.AuthorizeParams{
		ClientID:      clientID,
		RedirectURI:   redirectURI,
		Scope:         scope,
		State:         "xyz",
		Nonce:         "n-0S6_WzA2Mj",
		CodeChallenge: challenge,
	})
	require.NoError(t, err)
	return code, verifier
}

// assertTokenResponse verifies a token response has all required fields.
func assertTokenResponse(t *testing.T, resp *authsdk.TokenResponse) {
	t.Helper()
	require.NotNil(t, resp)
	require.NotEmpty(t, resp.AccessToken, "Access token should not be empty")
	require.NotEmpty(t, resp.RefreshToken, "Refresh token should not be empty")
	require.Equal(t, "Bearer", resp.TokenType, "Token type should be Bearer")
	require.Positive(t, resp.ExpiresIn)
}

// requireOAuth2Error asserts err is an OAuth2Error with the given code.
func requireOAuth2Error(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, &authsdk.OAuth2Error{Code: code}, "got %v", err)
}
