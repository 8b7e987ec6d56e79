package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/kubarr/internal/auth/http"
	"github.com/aussiebroadwan/kubarr/internal/auth/metrics"
	"github.com/aussiebroadwan/kubarr/internal/auth/service"
	"github.com/aussiebroadwan/kubarr/internal/auth/store"
	"github.com/aussiebroadwan/kubarr/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/kubarr/pkg/cryptox"
	"github.com/aussiebroadwan/kubarr/pkg/httpx"
	"github.com/aussiebroadwan/kubarr/pkg/jwtx"
	"github.com/aussiebroadwan/kubarr/pkg/slogx"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	// Core dependencies
	db         store.Store
	hasher     *cryptox.Hasher
	keyManager *jwtx.KeyManager
	audit      service.AuditSink

	// Services
	credentialService   *service.CredentialService
	twoFactorService    *service.TwoFactorService
	permissionService   *service.PermissionService
	sessionService      *service.SessionService
	accountService      *service.AccountService
	clientService       *service.ClientService
	authorizeService    *service.AuthorizeService
	tokenService        *service.TokenService
	keyRotationService  *service.KeyRotationService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "kubarr-auth",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
}

// New creates a new Application instance with all dependencies initialized
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg:     cfg,
		logger:  NewLogger(cfg),
		metrics: metrics.New(),
	}

	db, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	app.db = db
	app.logger.Info("database migrations applied successfully", "file", cfg.DatabaseFile)

	hasher, err := NewHasher(cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	app.hasher = hasher

	// Keys come after the database since persistent mode loads them from it.
	keyManager, err := InitAuthKeys(ctx, cfg, db, app.logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}
	app.keyManager = keyManager

	proxies, err := httpx.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP(proxies)

	return app, nil
}

// OpenStore opens the SQLite database and applies pending migrations.
func OpenStore(cfg Config) (*sqlite.Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	return db, nil
}

// NewHasher loads (or creates) the pepper and builds the password hasher.
func NewHasher(cfg Config) (*cryptox.Hasher, error) {
	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return nil, err
	}
	return cryptox.NewHasher(pepper)
}

// Handler returns the HTTP handler, mainly for tests.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion, "issuer", app.cfg.Issuer)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			_ = app.db.Close()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.audit = &service.LogAuditSink{Logger: app.logger, Metrics: app.metrics}

	app.credentialService = &service.CredentialService{
		Store:     app.db,
		Hasher:    app.hasher,
		Audit:     app.audit,
		Threshold: app.cfg.LockoutThreshold,
		Window:    app.cfg.LockoutWindow,
	}
	app.twoFactorService = &service.TwoFactorService{
		Store:       app.db,
		Credentials: app.credentialService,
		Audit:       app.audit,
		Issuer:      "Kubarr",
	}
	app.permissionService = &service.PermissionService{Store: app.db}

	app.sessionService = &service.SessionService{
		Store:       app.db,
		Credentials: app.credentialService,
		TwoFactor:   app.twoFactorService,
		Permissions: app.permissionService,
		KeyManager:  app.keyManager,
		Audit:       app.audit,
		Metrics:     app.metrics,
		Issuer:      app.cfg.Issuer,
		Slots:       app.cfg.SessionSlots,
		SessionTTL:  app.cfg.SessionTTL,
	}

	app.accountService = &service.AccountService{Store: app.db, Hasher: app.hasher}
	app.clientService = &service.ClientService{Store: app.db, Hasher: app.hasher, Audit: app.audit}

	app.authorizeService = &service.AuthorizeService{
		Store:   app.db,
		CodeTTL: app.cfg.CodeTTL,
	}
	if app.cfg.EnforceAppAccess {
		app.authorizeService.Permissions = app.permissionService
	}

	app.tokenService = &service.TokenService{
		Store:      app.db,
		KeyManager: app.keyManager,
		Hasher:     app.hasher,
		Audit:      app.audit,
		Metrics:    app.metrics,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	}

	app.keyRotationService = &service.KeyRotationService{
		Store:      app.db,
		KeyManager: app.keyManager,
		Persistent: app.cfg.KeyStorageMode == KeyStoragePersistent,
		Audit:      app.audit,
		Metrics:    app.metrics,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.metrics,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP(trustedProxies []netip.Prefix) {
	router := httpapi.NewRouter(app.keyManager, BuildVersion, app.db, app.logger)

	limits := httpx.RateLimitsFromEnv()
	router.RateLimits = &limits
	router.CookieInsecure = app.cfg.CookieInsecure
	router.TrustedProxies = trustedProxies
	router.Metrics = app.metrics

	router.SessionService = app.sessionService
	router.TwoFactorService = app.twoFactorService
	router.TokenService = app.tokenService
	router.AuthorizeService = app.authorizeService
	router.ClientService = app.clientService
	router.AccountService = app.accountService
	router.CredentialService = app.credentialService
	router.PermissionService = app.permissionService
	router.KeyRotationService = app.keyRotationService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// Admin bundles the services the CLI needs. It skips key generation and
// the HTTP stack.
type Admin struct {
	Store       store.Store
	Accounts    *service.AccountService
	Credentials *service.CredentialService
	Clients     *service.ClientService
}

// OpenAdmin opens the database for offline administration.
func OpenAdmin(cfg Config) (*Admin, error) {
	db, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	hasher, err := NewHasher(cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	audit := &service.LogAuditSink{Logger: NewLogger(cfg)}
	return &Admin{
		Store:       db,
		Accounts:    &service.AccountService{Store: db, Hasher: hasher},
		Credentials: &service.CredentialService{Store: db, Hasher: hasher, Audit: audit},
		Clients:     &service.ClientService{Store: db, Hasher: hasher, Audit: audit},
	}, nil
}

func (a *Admin) Close() error { return a.Store.Close() }
