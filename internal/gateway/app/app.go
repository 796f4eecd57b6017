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

	httpapi "github.com/openlearnco/classgate/internal/gateway/http"
	"github.com/openlearnco/classgate/internal/gateway/service"
	"github.com/openlearnco/classgate/internal/gateway/store"
	"github.com/openlearnco/classgate/internal/gateway/store/drivers/memory"
	"github.com/openlearnco/classgate/internal/gateway/store/drivers/redis"
	"github.com/openlearnco/classgate/internal/gateway/store/drivers/sqlite"
	"github.com/openlearnco/classgate/internal/gateway/upstream"
	"github.com/openlearnco/classgate/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the gateway with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	sessions store.Store
	idp      *upstream.IdentityClient
	resource *upstream.ResourceClient

	// Services
	refreshService      *service.RefreshService
	dispatchService     *service.DispatchService
	handshakeService    *service.HandshakeService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "classgate",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.IdentityProviderURL == "" {
		return nil, fmt.Errorf("GATEWAY_IDP_URL is required")
	}
	if cfg.ResourceServerURL == "" {
		return nil, fmt.Errorf("GATEWAY_RESOURCE_URL is required")
	}

	if err := app.initStore(); err != nil {
		return nil, err
	}

	app.idp = upstream.NewIdentityClient(cfg.IdentityProviderURL)
	app.resource = upstream.NewResourceClient(cfg.ResourceServerURL)

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("gateway starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"store_backend", app.cfg.StoreBackend)

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
		if err != nil && err != http.ErrServerClosed {
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
	app.logger.Info("shutting down gateway...")

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

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	// Close the session store
	if err := app.sessions.Close(); err != nil {
		app.logger.Error("error closing session store", "error", err)
		return err
	}

	app.logger.Info("gateway stopped")
	return nil
}

// initStore initializes the configured session store backend and applies
// migrations where the backend needs them
func (app *Application) initStore() error {
	switch app.cfg.StoreBackend {
	case "redis":
		app.sessions = redis.NewStore(app.cfg.RedisAddr)

	case "sqlite":
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", app.cfg.DatabaseFile)
		db, err := sqlite.NewStore(dsn)
		if err != nil {
			return fmt.Errorf("failed to initialize session database: %w", err)
		}
		app.sessions = db

	case "memory":
		app.logger.Warn("using in-memory session store; sessions will not survive restarts")
		app.sessions = memory.NewStore()

	default:
		return fmt.Errorf("unknown store backend %q", app.cfg.StoreBackend)
	}

	if err := app.sessions.ApplyMigrations(); err != nil {
		_ = app.sessions.Close()
		return fmt.Errorf("failed to apply store migrations: %w", err)
	}

	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.refreshService = &service.RefreshService{
		Store:      app.sessions,
		IdP:        app.idp,
		SessionTTL: app.cfg.AuthorizedTTL,
	}

	app.dispatchService = &service.DispatchService{
		Store:     app.sessions,
		Refresher: app.refreshService,
		Resource:  app.resource,
		Skew:      app.cfg.TokenSkew,
	}

	app.handshakeService = &service.HandshakeService{
		Store:          app.sessions,
		IdP:            app.idp,
		FallbackPolicy: service.ParseFallbackPolicy(app.cfg.LoginFallbackPolicy),
		AnonymousTTL:   app.cfg.AnonymousTTL,
		AuthorizedTTL:  app.cfg.AuthorizedTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.sessions,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.sessions, app.logger)

	// Wire services to router
	router.HandshakeService = app.handshakeService
	router.DispatchService = app.dispatchService
	router.LoginRedirectPath = app.cfg.LoginRedirectPath
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
