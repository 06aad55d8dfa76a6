package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/gatekeeper/internal/auth/http"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/metrics"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/policy"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/provider"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/service"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store/drivers/postgres"
	redisstore "github.com/aussiebroadwan/gatekeeper/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the session service with all its dependencies.
type Application struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	// Core dependencies
	db         store.Store
	stateStore store.StateStore // nil when states live in db
	states     store.OAuth2States

	// Services
	sessionService      *service.SessionService
	loginService        *service.LoginService
	housekeepingService *service.HousekeepingService
	policyClient        *policy.Client

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gatekeeper",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: metrics.New(),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initStateStore(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.initServices(); err != nil {
		app.closeStores()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Handler exposes the fully wired router.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("gatekeeper starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"provider", app.cfg.OAuthProvider,
		"authz_enabled", app.cfg.AuthzEnabled,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			app.housekeepingService.Stop()
			app.closeStores()
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

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gatekeeper...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if app.stateStore != nil {
		if err := app.stateStore.Close(); err != nil {
			app.logger.Error("error closing state store", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("gatekeeper stopped")
	return nil
}

// initDatabase opens the configured driver and applies migrations.
func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)

	switch app.cfg.DatabaseDriver {
	case DriverPostgres:
		db, err = postgres.NewStore(app.cfg.DatabaseURL)
	default:
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
		db, err = sqlite.NewStore(dsn)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// initStateStore picks where in-flight logins are kept.
func (app *Application) initStateStore() error {
	if app.cfg.StateStore != StateStoreRedis {
		app.states = app.db.OAuth2States()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rs, err := redisstore.NewStateStore(ctx, redisstore.Config{
		Addr:     app.cfg.RedisAddr,
		Password: app.cfg.RedisPassword,
		DB:       app.cfg.RedisDB,
		TTL:      app.cfg.StateTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize state store: %w", err)
	}

	app.stateStore = rs
	app.states = rs
	app.logger.Info("oauth2 states stored in redis", "addr", app.cfg.RedisAddr)
	return nil
}

// initServices builds the business logic services.
func (app *Application) initServices() error {
	key := []byte(app.cfg.TokenKey)

	sealer, err := cryptox.NewSealer(key, "oauth2-state")
	if err != nil {
		return fmt.Errorf("failed to initialize state sealer: %w", err)
	}

	idp, err := provider.New(provider.Config{
		Name:         app.cfg.OAuthProvider,
		ClientID:     app.cfg.OAuthClientID,
		ClientSecret: app.cfg.OAuthClientSecret,
		RedirectURL:  app.cfg.OAuthRedirectURL,
		TenantID:     app.cfg.OAuthTenantID,
		AuthURL:      app.cfg.OAuthAuthURL,
		TokenURL:     app.cfg.OAuthTokenURL,
		UserInfoURL:  app.cfg.OAuthUserInfoURL,
		Scopes:       app.cfg.OAuthScopes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize identity provider: %w", err)
	}

	if app.cfg.AuthzEnabled {
		app.policyClient = policy.NewClient(policy.Config{
			URL:             app.cfg.PolicyURL,
			Timeout:         app.cfg.PolicyTimeout,
			BreakerFailures: app.cfg.PolicyBreakerFailures,
			BreakerCooldown: app.cfg.PolicyBreakerCooldown,
			Logger:          app.logger,
		})
	} else {
		app.logger.Warn("authorization disabled, every authenticated request is allowed")
	}

	app.sessionService = &service.SessionService{
		Users:         app.db.Users(),
		Key:           key,
		TokenDuration: app.cfg.TokenDuration,
		MaxLifetime:   app.cfg.TokenMaxLifetime,
		SessionTTL:    app.cfg.SessionTTL,
	}

	app.loginService = &service.LoginService{
		Store:    app.db,
		States:   app.states,
		Provider: idp,
		Sessions: app.sessionService,
		Sealer:   sealer,
		ReturnURLs: service.ReturnURLValidator{
			AllowedHosts: app.cfg.ReturnURLAllowedHosts,
			AllowedPaths: app.cfg.ReturnURLAllowedPaths,
			DefaultPath:  app.cfg.DefaultRedirectPath,
		},
		StateTTL: app.cfg.StateTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.states,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.StateTTL,
	)
	app.housekeepingService.Metrics = app.metrics

	return nil
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.logger)

	router.Store = app.db
	if app.stateStore != nil {
		router.StateStore = app.stateStore
	}
	router.Sessions = app.sessionService
	router.Login = app.loginService
	if app.policyClient != nil {
		router.Policy = app.policyClient
	}
	router.Metrics = app.metrics
	router.Cookie = httpx.CookieConfig{
		Name:     app.cfg.CookieName,
		Domain:   app.cfg.CookieDomain,
		Secure:   app.cfg.CookieSecure,
		SameSite: httpx.ParseSameSite(app.cfg.CookieSameSite),
	}
	router.AuthzEnabled = app.cfg.AuthzEnabled
	router.DefaultRedirectPath = app.cfg.DefaultRedirectPath
	router.CORSOrigins = app.cfg.CORSAllowedOrigins
	router.LoginLimit = app.cfg.LoginRateLimit
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

func (app *Application) closeStores() {
	if app.stateStore != nil {
		_ = app.stateStore.Close()
	}
	_ = app.db.Close()
}
