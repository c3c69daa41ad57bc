package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aussiebroadwan/techpost/internal/auth/authn"
	"github.com/aussiebroadwan/techpost/internal/auth/federation"
	httpapi "github.com/aussiebroadwan/techpost/internal/auth/http"
	"github.com/aussiebroadwan/techpost/internal/auth/service"
	"github.com/aussiebroadwan/techpost/internal/auth/store"
	"github.com/aussiebroadwan/techpost/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/techpost/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/techpost/internal/auth/store/drivers/valkey"
	"github.com/aussiebroadwan/techpost/pkg/cryptox"
	"github.com/aussiebroadwan/techpost/pkg/jwtx"
	"github.com/aussiebroadwan/techpost/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db          *sqlite.Store
	revocations store.Revocations
	valkey      *valkey.Store // nil unless the valkey backend is selected
	codec       *jwtx.Codec
	registry    *prometheus.Registry
	metrics     *service.Metrics

	// Services
	sessions            *service.SessionAuthority
	unifier             *service.IdentityUnifier
	authenticator       *authn.Authenticator
	providers           *federation.Registry
	housekeepingService *service.HousekeepingService // nil for backends with native expiry

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initRevocations(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	key, err := InitSigningKey(app.cfg, app.logger)
	if err != nil {
		app.closeStores()
		return nil, fmt.Errorf("failed to initialize JWT key: %w", err)
	}

	app.codec, err = jwtx.NewCodec(key, jwtx.CodecOptions{
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	})
	if err != nil {
		app.closeStores()
		return nil, fmt.Errorf("failed to build token codec: %w", err)
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

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	if app.housekeepingService != nil {
		app.housekeepingService.Start()
	}

	app.logger.Info("auth service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"revocation_backend", app.cfg.RevocationBackend,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.housekeepingService != nil {
		app.housekeepingService.Stop()
	}

	if err := app.closeStores(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) closeStores() error {
	var errs []error
	if app.valkey != nil {
		if err := app.valkey.Close(); err != nil {
			app.logger.Error("error closing valkey", "error", err)
			errs = append(errs, err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite",
		app.cfg.DatabaseFile,
	)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initRevocations selects the revocation store backend.
func (app *Application) initRevocations() error {
	switch app.cfg.RevocationBackend {
	case BackendValkey:
		vs, err := valkey.New(valkey.Config{
			Address:   app.cfg.Valkey.Address,
			Password:  app.cfg.Valkey.Password,
			DB:        app.cfg.Valkey.DB,
			KeyPrefix: app.cfg.Valkey.KeyPrefix,
			Logger:    app.logger,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to valkey: %w", err)
		}
		app.valkey = vs
		app.revocations = vs

	case BackendMemory:
		app.revocations = memory.New(time.Now)
		app.logger.Warn("in-memory revocation store, sessions will not survive a restart")

	default:
		app.revocations = app.db.Revocations()
	}

	app.logger.Info("revocation store ready", "backend", app.cfg.RevocationBackend)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = service.NewMetrics(app.registry)

	users := app.db.Users()
	timeout := app.cfg.StoreTimeout

	app.sessions = &service.SessionAuthority{
		Codec:        app.codec,
		Users:        users,
		Revocations:  app.revocations,
		Credentials:  &service.CredentialVerifier{Users: users, StoreTimeout: timeout},
		StoreTimeout: timeout,
		Metrics:      app.metrics,
	}
	app.unifier = &service.IdentityUnifier{
		Users:        users,
		StoreTimeout: timeout,
		Metrics:      app.metrics,
	}
	app.authenticator = &authn.Authenticator{
		Codec:        app.codec,
		Users:        users,
		StoreTimeout: timeout,
	}

	if len(app.cfg.OAuth) > 0 {
		providers, err := federation.NewRegistry(app.cfg.OAuth, nil)
		if err != nil {
			return fmt.Errorf("failed to configure oauth providers: %w", err)
		}
		app.providers = providers
		app.logger.Info("federated login enabled", "providers", len(app.cfg.OAuth))
	}

	// Valkey expires records natively; the other backends need sweeping.
	if sweeper, ok := app.revocations.(store.Sweeper); ok {
		app.housekeepingService = service.NewHousekeepingService(
			sweeper,
			app.logger,
			app.cfg.HousekeepingInterval,
		)
		app.housekeepingService.Metrics = app.metrics
	}

	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.logger)

	router.Sessions = app.sessions
	router.Unifier = app.unifier
	router.Authenticator = app.authenticator
	router.Providers = app.providers
	router.Cookie.Secure = app.cfg.CookieSecure
	router.OAuthSuccessURL = app.cfg.OAuthSuccessURL
	router.OAuthFailureURL = app.cfg.OAuthFailureURL
	router.UsersPing = app.db
	router.RevocationsPing = app.revocations
	router.Gatherer = app.registry
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
