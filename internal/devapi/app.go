package devapi

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

	"github.com/aussiebroadwan/examprep/pkg/authclient"
	"github.com/aussiebroadwan/examprep/pkg/cryptox"
	"github.com/aussiebroadwan/examprep/pkg/httpx"
	"github.com/aussiebroadwan/examprep/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
var BuildVersion = "v0.1.0"

// DemoUsers are seeded into every cmd/devapi instance.
var DemoUsers = []SeedUser{
	{Username: "alice", Password: "Secret1!", Email: "alice@example.com", FirstName: "Alice", LastName: "Martin", Role: authclient.RoleUser},
	{Username: "admin", Password: "Admin123!", Email: "admin@example.com", FirstName: "Ada", LastName: "Admin", Role: authclient.RoleAdmin},
	{Username: "moderator", Password: "Moder123!", Email: "moderator@example.com", FirstName: "Malik", LastName: "Modo", Role: authclient.RoleModerator},
}

// Application runs the development backend as a standalone HTTP server.
type Application struct {
	cfg    Config
	logger *slog.Logger
	server *http.Server
}

func NewApplication(cfg Config) (*Application, error) {
	logger := slogx.New(slogx.Config{
		Service: "devapi",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	srv, err := New(Options{
		Issuer:        cfg.Issuer,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		RotateRefresh: cfg.RotateRefresh,
		Hasher:        cryptox.PasswordHasher{Pepper: pepper},
		LoginLimit:    httpx.StrictLimit,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}
	if err := srv.Seed(DemoUsers...); err != nil {
		return nil, err
	}

	return &Application{
		cfg:    cfg,
		logger: logger,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Run starts the server and blocks until a shutdown signal or server error.
func (app *Application) Run() error {
	app.logger.Info("devapi starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"rotate_refresh", app.cfg.RotateRefresh,
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
		return app.Shutdown()
	}
	return nil
}

// Shutdown gracefully stops the server.
func (app *Application) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		return app.server.Close()
	}
	app.logger.Info("devapi stopped")
	return nil
}
