package auth_test

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRateLimitDefaults(t *testing.T) {
	svc := setupAuthContainerWithDefaultRateLimits(t)

	post := func() int {
		body := `{"identifier":"alice","password":"wrong"}`
		resp, err := http.Post(svc.BaseURL+"/auth/login", "application/json", bytes.NewBufferString(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		return resp.StatusCode
	}

	// Strict profile: 5 per minute per IP and identifier.
	for i := range 5 {
		require.Equal(t, http.StatusUnauthorized, post(), "attempt %d", i+1)
	}
	require.Equal(t, http.StatusTooManyRequests, post())

	resp, err := http.Get(svc.BaseURL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	metrics, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(metrics), `route="login"`), "rejections are counted per route")
}
