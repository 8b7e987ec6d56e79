package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/aussiebroadwan/kubarr/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestParseTrustedProxies(t *testing.T) {
	got, err := httpx.ParseTrustedProxies(" 10.0.0.0/8, 127.0.0.1 ,,::1")
	require.NoError(t, err)
	require.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("127.0.0.1/32"),
		netip.MustParsePrefix("::1/128"),
	}, got)

	none, err := httpx.ParseTrustedProxies("")
	require.NoError(t, err)
	require.Empty(t, none)

	_, err = httpx.ParseTrustedProxies("10.0.0.0/33")
	require.Error(t, err)
	_, err = httpx.ParseTrustedProxies("proxy.local")
	require.Error(t, err)
}

func TestRealIP(t *testing.T) {
	trusted, err := httpx.ParseTrustedProxies("10.0.0.0/8")
	require.NoError(t, err)

	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"untrusted peer keeps its address", "192.0.2.7:5000", map[string]string{"X-Forwarded-For": "203.0.113.9"}, "192.0.2.7"},
		{"trusted peer without headers", "10.0.0.1:5000", nil, "10.0.0.1"},
		{"trusted peer forwards", "10.0.0.1:5000", map[string]string{"X-Forwarded-For": "203.0.113.9"}, "203.0.113.9"},
		{"rightmost untrusted hop wins", "10.0.0.1:5000", map[string]string{
			"X-Forwarded-For": "198.51.100.1, 203.0.113.9, 10.0.0.2",
		}, "203.0.113.9"},
		{"garbage hop stops the walk", "10.0.0.1:5000", map[string]string{"X-Forwarded-For": "nonsense, 10.0.0.2"}, "10.0.0.2"},
		{"real ip header", "10.0.0.1:5000", map[string]string{"X-Real-IP": "203.0.113.4"}, "203.0.113.4"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			h := httpx.RealIP(trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = httpx.IPKeyExtractor(r)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	h := httpx.RateLimitByIP(once(1))(okHandler())

	codes := make([]int, 0, 2)
	for _, xff := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "192.0.2.7:5000"
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}
