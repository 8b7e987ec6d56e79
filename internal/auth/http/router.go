package http

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
	"github.com/aussiebroadwan/kubarr/internal/auth/metrics"
	"github.com/aussiebroadwan/kubarr/internal/auth/service"
	"github.com/aussiebroadwan/kubarr/internal/auth/store"
	"github.com/aussiebroadwan/kubarr/pkg/httpx"
	"github.com/aussiebroadwan/kubarr/pkg/jwtx"
	"github.com/aussiebroadwan/kubarr/pkg/slogx"

	_ "github.com/aussiebroadwan/kubarr/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeyManager
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	// CookieInsecure drops the Secure cookie flag for plain-HTTP dev setups.
	CookieInsecure bool
	// TrustedProxies may set the client address through X-Forwarded-For.
	TrustedProxies []netip.Prefix
	// RateLimits defaults to httpx.DefaultRateLimits.
	RateLimits *httpx.RateLimits
	// Metrics is optional; without it /metrics is not mounted.
	Metrics *metrics.Metrics

	SessionService     *service.SessionService
	TwoFactorService   *service.TwoFactorService
	TokenService       *service.TokenService
	AuthorizeService   *service.AuthorizeService
	ClientService      *service.ClientService
	AccountService     *service.AccountService
	CredentialService  *service.CredentialService
	PermissionService  *service.PermissionService
	KeyRotationService *service.KeyRotationService
}

func NewRouter(keys *jwtx.KeyManager, buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	limits := httpx.DefaultRateLimits()
	if r.RateLimits != nil {
		limits = *r.RateLimits
	}

	if len(r.TrustedProxies) > 0 {
		r.middlewares = append([]httpx.Middleware{httpx.RealIP(r.TrustedProxies)}, r.middlewares...)
	}

	sessions := NewSessionHandler(r.SessionService, r.CookieInsecure)

	r.registerSessions(sessions, limits)
	r.registerTwoFactor(sessions, limits)
	r.registerOAuth2(sessions, limits)
	r.registerAdmin(sessions, limits)
	r.registerSystem(limits)

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Kubarr Auth API
//	@version		0.1.0
//	@description	Single sign-on for the media stack. Browsers sign in with session cookies, one per account slot,
//	@description	and the *arr apps sign them in through OAuth2 authorization code with PKCE.
//	@description
//	@description				Access and ID tokens are RS256 JWTs that verify against the JWKS endpoint.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/kubarr
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	SessionCookie
//	@in							cookie
//	@name						kubarr_active_session
//	@description				Slot cookies kubarr_session_{n} plus the active slot pointer set by login.
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// limit counts rejections per route when metrics are enabled.
func (r *Router) limit(cfg httpx.RateLimitConfig, route string) httpx.RateLimitConfig {
	if r.Metrics != nil {
		counter := r.Metrics.RateLimited.WithLabelValues(route)
		cfg.OnReject = func(*http.Request) { counter.Inc() }
	}
	return cfg
}

func (r *Router) registerSessions(h *SessionHandler, limits httpx.RateLimits) {
	// Login attempts are limited per IP and identifier to slow down guessing.
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(r.limit(limits.Strict, "login"), "identifier"),
		),
	)
	r.Mux.Handle("POST /auth/login/2fa",
		httpx.Chain(http.HandlerFunc(h.HandleCompleteChallenge),
			httpx.RateLimitByIPAndJSONField(r.limit(limits.Strict, "login_2fa"), "challenge_token"),
		),
	)

	// Switching only needs the slot cookie, not a resolved active session.
	r.Mux.Handle("POST /auth/switch/{slot}",
		httpx.Chain(http.HandlerFunc(h.HandleSwitch),
			httpx.RateLimitByIP(r.limit(limits.Moderate, "switch")),
		),
	)
	r.Mux.Handle("GET /auth/accounts",
		httpx.Chain(http.HandlerFunc(h.HandleAccounts),
			httpx.RateLimitByIP(r.limit(limits.Lenient, "accounts")),
		),
	)

	// Logout clears cookies even when the session is already gone.
	r.Mux.Handle("POST /auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(r.limit(limits.Moderate, "logout")),
		),
	)
	r.Mux.Handle("GET /auth/sessions", r.session(h, http.HandlerFunc(h.HandleList), limits.Lenient, "sessions"))
	r.Mux.Handle("DELETE /auth/sessions/{id}", r.session(h, http.HandlerFunc(h.HandleRevoke), limits.Moderate, "sessions_revoke"))
}

func (r *Router) registerTwoFactor(sessions *SessionHandler, limits httpx.RateLimits) {
	h := &TwoFactorHandler{TwoFactor: r.TwoFactorService}

	r.Mux.Handle("POST /auth/2fa/setup", r.session(sessions, http.HandlerFunc(h.HandleSetup), limits.Moderate, "2fa_setup"))
	// Confirm and disable check codes or passwords, so they get the strict profile.
	r.Mux.Handle("POST /auth/2fa/confirm", r.session(sessions, http.HandlerFunc(h.HandleConfirm), limits.Strict, "2fa_confirm"))
	r.Mux.Handle("POST /auth/2fa/disable", r.session(sessions, http.HandlerFunc(h.HandleDisable), limits.Strict, "2fa_disable"))
	r.Mux.Handle("POST /auth/2fa/recovery-codes",
		r.session(sessions, http.HandlerFunc(h.HandleRegenerateRecoveryCodes), limits.Strict, "2fa_recovery"))
}

func (r *Router) registerOAuth2(sessions *SessionHandler, limits httpx.RateLimits) {
	authorize := &AuthorizeHandler{AuthorizeService: r.AuthorizeService, Sessions: sessions}
	r.Mux.Handle("GET /oauth2/authorize",
		httpx.Chain(authorize, httpx.RateLimitByIP(r.limit(limits.Lenient, "authorize"))),
	)

	token := &TokenHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /oauth2/token",
		httpx.Chain(token, httpx.RateLimitByIPAndFormField(r.limit(limits.Strict, "token"), "client_id")),
	)

	introspect := &IntrospectHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /oauth2/introspect",
		httpx.Chain(introspect, httpx.RateLimitByIP(r.limit(limits.Moderate, "introspect"))),
	)

	revoke := &RevokeHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /oauth2/revoke",
		httpx.Chain(revoke, httpx.RateLimitByIP(r.limit(limits.Moderate, "revoke"))),
	)

	userinfo := httpx.Chain(&UserInfoHandler{TokenService: r.TokenService},
		httpx.RateLimitByIP(r.limit(limits.Lenient, "userinfo")),
		httpx.AuthnMiddleware(r.TokenService),
		httpx.RequireAnyScope(service.ScopeOpenID),
	)
	r.Mux.Handle("GET /oauth2/userinfo", userinfo)
	r.Mux.Handle("POST /oauth2/userinfo", userinfo)

	jwks := httpx.Chain(JWKSHandler(r.TokenService), httpx.RateLimitByIP(r.limit(limits.Public, "jwks")))
	r.Mux.Handle("GET /oauth2/jwks", jwks)
	r.Mux.Handle("GET /.well-known/jwks.json", jwks)
	r.Mux.Handle("GET /.well-known/openid-configuration",
		httpx.Chain(DiscoveryHandler(r.TokenService), httpx.RateLimitByIP(r.limit(limits.Public, "discovery"))),
	)
}

func (r *Router) registerAdmin(sessions *SessionHandler, limits httpx.RateLimits) {
	clients := &ClientsHandler{ClientService: r.ClientService}
	accounts := &AccountsHandler{Accounts: r.AccountService, Credentials: r.CredentialService}
	keys := &KeyRotationHandler{KeyRotationService: r.KeyRotationService}

	admin := func(h http.HandlerFunc, perm, route string) http.Handler {
		return httpx.Chain(h,
			sessions.RequireSession,
			httpx.RequirePermission(r.PermissionService, perm),
			httpx.RateLimitByAccount(r.limit(limits.Moderate, route)),
		)
	}

	r.Mux.Handle("POST /admin/clients", admin(clients.HandleCreate, domain.PermissionClientsManage, "clients_create"))
	r.Mux.Handle("GET /admin/clients", admin(clients.HandleList, domain.PermissionClientsManage, "clients_list"))
	r.Mux.Handle("DELETE /admin/clients/{id}", admin(clients.HandleDelete, domain.PermissionClientsManage, "clients_delete"))
	r.Mux.Handle("POST /admin/clients/{id}/secret",
		admin(clients.HandleRegenerateSecret, domain.PermissionClientsManage, "clients_secret"))

	r.Mux.Handle("POST /admin/accounts/{id}/unlock", admin(accounts.HandleUnlock, domain.PermissionUsersManage, "accounts_unlock"))

	r.Mux.Handle("GET /admin/keys", admin(keys.HandleListKeys, domain.PermissionKeysManage, "keys_list"))
	r.Mux.Handle("POST /admin/keys/rotate", admin(keys.HandleRotate, domain.PermissionKeysManage, "keys_rotate"))
}

func (r *Router) registerSystem(limits httpx.RateLimits) {
	// Probes poll often, so they get the lenient profile.
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion), httpx.RateLimitByIP(limits.Lenient)),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys), httpx.RateLimitByIP(limits.Lenient)),
	)

	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics", r.Metrics.Handler())
	}
}

// session wraps a handler that needs the caller's live session.
func (r *Router) session(sessions *SessionHandler, h http.Handler, cfg httpx.RateLimitConfig, route string) http.Handler {
	return httpx.Chain(h,
		sessions.RequireSession,
		httpx.RateLimitByAccount(r.limit(cfg, route)),
	)
}
