package httpx_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/kubarr/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func once(limit int) httpx.RateLimitConfig {
	return httpx.RateLimitConfig{RequestsPerWindow: limit, Window: time.Minute, Burst: limit}
}

func TestKeyExtractors(t *testing.T) {
	t.Run("ip", func(t *testing.T) {
		tests := []struct {
			name    string
			remote  string
			headers map[string]string
			want    string
		}{
			{"remote addr", "192.168.1.1:12345", nil, "192.168.1.1"},
			{"remote without port", "192.168.1.1", nil, "192.168.1.1"},
			{"forwarded header ignored", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, "10.0.0.1"},
			{"real ip header ignored", "10.0.0.1:1", map[string]string{"X-Real-IP": "198.51.100.4"}, "10.0.0.1"},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				req := httptest.NewRequest(http.MethodGet, "/", nil)
				req.RemoteAddr = tc.remote
				for k, v := range tc.headers {
					req.Header.Set(k, v)
				}
				require.Equal(t, tc.want, httpx.IPKeyExtractor(req))
			})
		}
	})

	t.Run("form field", func(t *testing.T) {
		form := url.Values{"client_id": {"sonarr"}}
		req := httptest.NewRequest(http.MethodPost, "/oauth2/token", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		require.Equal(t, "sonarr", httpx.FormFieldKeyExtractor("client_id")(req))

		req = httptest.NewRequest(http.MethodGet, "/oauth2/authorize?client_id=radarr", nil)
		require.Equal(t, "radarr", httpx.FormFieldKeyExtractor("client_id")(req))
		require.Empty(t, httpx.FormFieldKeyExtractor("missing")(req))
	})

	t.Run("json field keeps body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/login",
			strings.NewReader(`{"identifier":"  Alice ","password":"x"}`))
		require.Equal(t, "alice", httpx.JSONFieldKeyExtractor("identifier")(req))

		var body map[string]string
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		require.Equal(t, "x", body["password"])

		req = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`not json`))
		require.Empty(t, httpx.JSONFieldKeyExtractor("identifier")(req))
	})

	t.Run("json field keeps oversized body", func(t *testing.T) {
		body := `{"identifier":"alice","pad":"` + strings.Repeat("x", 100<<10) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))

		// The peeked prefix is not complete JSON, so only the IP keys the limit.
		require.Empty(t, httpx.JSONFieldKeyExtractor("identifier")(req))

		got, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.Equal(t, body, string(got))
		require.NoError(t, req.Body.Close())
	})

	t.Run("account and composite", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/sessions", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		key := httpx.CompositeKeyExtractor(":", httpx.AccountKeyExtractor, httpx.IPKeyExtractor)

		require.Equal(t, "192.168.1.1", key(req))

		req = req.WithContext(httpx.WithAccount(context.Background(), "acct-1"))
		require.Equal(t, "acct-1", httpx.AccountKeyExtractor(req))
		require.Equal(t, "acct-1:192.168.1.1", key(req))
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	send := func(h http.Handler, remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("limits per key", func(t *testing.T) {
		h := httpx.RateLimitByIP(once(2))(okHandler())

		require.Equal(t, http.StatusOK, send(h, "192.168.1.1:1").Code)
		require.Equal(t, http.StatusOK, send(h, "192.168.1.1:2").Code)
		require.Equal(t, http.StatusTooManyRequests, send(h, "192.168.1.1:3").Code)
		require.Equal(t, http.StatusOK, send(h, "192.168.1.2:1").Code)
	})

	t.Run("rejection shape", func(t *testing.T) {
		h := httpx.RateLimitByIP(once(1))(okHandler())
		send(h, "192.168.1.1:1")
		rec := send(h, "192.168.1.1:1")

		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
		require.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "rate_limit_exceeded", body["error"])
		require.NotEmpty(t, body["error_description"])
	})

	t.Run("empty key passes", func(t *testing.T) {
		h := httpx.RateLimitMiddleware(once(1), func(*http.Request) string { return "" })(okHandler())
		for range 3 {
			require.Equal(t, http.StatusOK, send(h, "192.168.1.1:1").Code)
		}
	})
}

func TestRateLimitByIPAndFormField(t *testing.T) {
	h := httpx.RateLimitByIPAndFormField(once(1), "client_id")(okHandler())

	send := func(clientID string) int {
		form := url.Values{"client_id": {clientID}, "grant_type": {"refresh_token"}}
		req := httptest.NewRequest(http.MethodPost, "/oauth2/token", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.RemoteAddr = "192.168.1.1:12345"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, send("sonarr"))
	require.Equal(t, http.StatusTooManyRequests, send("sonarr"))
	require.Equal(t, http.StatusOK, send("radarr"))
}

func TestRateLimitByIPAndJSONField(t *testing.T) {
	var seen []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Identifier string `json:"identifier"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		seen = append(seen, body.Identifier)
		w.WriteHeader(http.StatusOK)
	})
	h := httpx.RateLimitByIPAndJSONField(once(1), "identifier")(handler)

	send := func(identifier string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login",
			strings.NewReader(`{"identifier":"`+identifier+`","password":"x"}`))
		req.RemoteAddr = "192.168.1.1:12345"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, send("alice"))
	require.Equal(t, http.StatusTooManyRequests, send("Alice"))
	require.Equal(t, http.StatusOK, send("bob"))
	require.Equal(t, []string{"alice", "bob"}, seen)
}

func TestRateLimitOnReject(t *testing.T) {
	var rejected []string
	config := once(1)
	config.OnReject = func(r *http.Request) { rejected = append(rejected, r.URL.Path) }
	h := httpx.RateLimitByIP(config)(okHandler())

	for _, want := range []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.7:4000"
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)
		require.Equal(t, want, rec.Code)
	}
	require.Equal(t, []string{"/auth/login", "/auth/login"}, rejected)
}

func TestRateLimitProfiles(t *testing.T) {
	d := httpx.DefaultRateLimits()
	require.Equal(t, 5, d.Strict.RequestsPerWindow)
	require.Equal(t, 20, d.Moderate.RequestsPerWindow)
	require.Equal(t, 100, d.Lenient.RequestsPerWindow)
	require.Equal(t, 1000, d.Public.RequestsPerWindow)

	t.Setenv("RATELIMIT_STRICT_REQUESTS", "3")
	t.Setenv("RATELIMIT_PUBLIC_WINDOW_SEC", "10")
	env := httpx.RateLimitsFromEnv()
	require.Equal(t, 3, env.Strict.RequestsPerWindow)
	require.Equal(t, d.Strict.Burst, env.Strict.Burst)
	require.Equal(t, 10*time.Second, env.Public.Window)
	require.Equal(t, d.Moderate, env.Moderate)
}

func TestParseRateLimitFromEnv(t *testing.T) {
	def := httpx.RateLimitConfig{RequestsPerWindow: 10, Window: time.Minute, Burst: 10}

	tests := []struct {
		name string
		env  map[string]string
		want httpx.RateLimitConfig
	}{
		{"unset keeps default", nil, def},
		{"all set", map[string]string{
			"RATELIMIT_TEST_REQUESTS":   "50",
			"RATELIMIT_TEST_WINDOW_SEC": "30",
			"RATELIMIT_TEST_BURST":      "60",
		}, httpx.RateLimitConfig{RequestsPerWindow: 50, Window: 30 * time.Second, Burst: 60}},
		{"not a number", map[string]string{"RATELIMIT_TEST_REQUESTS": "lots"}, def},
		{"zero", map[string]string{"RATELIMIT_TEST_BURST": "0"}, def},
		{"negative", map[string]string{"RATELIMIT_TEST_WINDOW_SEC": "-5"}, def},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			require.Equal(t, tc.want, httpx.ParseRateLimitFromEnv("TEST", def))
		})
	}
}

func BenchmarkRateLimitMiddleware(b *testing.B) {
	h := httpx.RateLimitByIP(once(1_000_000))(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"

	b.ResetTimer()
	for range b.N {
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
}
