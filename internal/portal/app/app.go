package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/examprep/internal/portal/http"
	"github.com/aussiebroadwan/examprep/pkg/authclient"
	"github.com/aussiebroadwan/examprep/pkg/session"
	"github.com/aussiebroadwan/examprep/pkg/slogx"
	"github.com/aussiebroadwan/examprep/pkg/tokenstore"
	"github.com/aussiebroadwan/examprep/pkg/tokenstore/redis"
	"github.com/aussiebroadwan/examprep/pkg/tokenstore/sqlite"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application is the portal with all of its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	durable    tokenstore.Storage
	closer     io.Closer
	store      *tokenstore.Store
	controller *session.Controller
	transport  *session.Transport

	server *http.Server
	router *httpapi.Router
}

// New creates an Application and restores any stored session.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "portal",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initStorage(context.Background()); err != nil {
		return nil, err
	}
	if err := app.initSession(); err != nil {
		_ = app.closeStorage()
		return nil, err
	}
	if err := app.initHTTP(); err != nil {
		_ = app.closeStorage()
		return nil, err
	}

	return app, nil
}

// Handler exposes the portal router, mainly for tests.
func (app *Application) Handler() http.Handler { return app.router }

// Controller exposes the session controller.
func (app *Application) Controller() *session.Controller { return app.controller }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.logger.Info("portal starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"api", app.cfg.APIBaseURL,
		"storage", app.cfg.Storage,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// Shutdown stops the HTTP server and releases the storage backend. The
// stored session is kept so the next start can restore it.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down portal...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.controller.Close()

	if err := app.closeStorage(); err != nil {
		app.logger.Error("error closing token storage", "error", err)
		return err
	}

	app.logger.Info("portal stopped")
	return nil
}

// initStorage opens the durable area selected by cfg.Storage.
func (app *Application) initStorage(ctx context.Context) error {
	switch app.cfg.Storage {
	case StorageSQLite:
		db, err := sqlite.Open(app.cfg.DatabaseFile)
		if err != nil {
			return fmt.Errorf("failed to open token database: %w", err)
		}
		app.durable, app.closer = db, db
	case StorageRedis:
		rdb, err := redis.Open(ctx, redis.Options{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPass,
			DB:       app.cfg.RedisDB,
			Prefix:   app.cfg.RedisPrefix,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.durable, app.closer = rdb, rdb
	default:
		app.durable = tokenstore.NewMemory()
	}

	app.logger.Info("token storage ready", "backend", app.cfg.Storage)
	return nil
}

func (app *Application) closeStorage() error {
	if app.closer == nil {
		return nil
	}
	return app.closer.Close()
}

// initSession builds the token store, controller and transport, then
// restores whatever session the durable area holds.
func (app *Application) initSession() error {
	app.store = tokenstore.New(tokenstore.NewMemory(), app.durable, app.logger)

	client := authclient.NewClient(app.cfg.APIBaseURL)
	client.HTTPClient.Timeout = app.cfg.HTTPTimeout
	client.ProfilePath = app.cfg.ProfilePath

	app.controller = session.NewController(session.Config{
		Backend: client,
		Store:   app.store,
		Logger:  app.logger,
	})

	transport, err := session.NewTransport(app.controller, app.cfg.APIBaseURL, nil)
	if err != nil {
		return err
	}
	app.transport = transport

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.HTTPTimeout)
	defer cancel()
	state := app.controller.Init(ctx)
	app.logger.Info("session initialized", "status", state.Status.String())
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() error {
	router, err := httpapi.NewRouter(
		app.controller,
		app.transport,
		app.cfg.APIBaseURL,
		BuildVersion,
		app.logger,
	)
	if err != nil {
		return err
	}
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
