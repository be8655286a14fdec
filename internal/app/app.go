package app

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/peermeet/signal-server/internal/auth"
	"github.com/peermeet/signal-server/internal/config"
	"github.com/peermeet/signal-server/internal/core"
	"github.com/peermeet/signal-server/internal/persist"
	"github.com/peermeet/signal-server/internal/persist/sqlite"
	transporthttp "github.com/peermeet/signal-server/internal/transport/http"
)

// App wires together core, persistence and transport layers.
type App struct {
	server          *stdhttp.Server
	gateway         *persist.Gateway
	shutdownTimeout time.Duration
	log             *zerolog.Logger
}

// New constructs the application with the provided configuration.
// The durable store is never a hard dependency: if it cannot be
// opened, the server runs fully in-memory.
func New(cfg config.Config, logger *zerolog.Logger) *App {
	var store persist.Store
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		logger.Warn().Err(err).Str("db_path", cfg.DatabasePath).Msg("durable store unavailable, running in-memory")
	} else {
		logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")
		store = st
	}

	gateway := persist.NewGateway(store, cfg.StoreRetryBackoff, logger)
	registry := core.NewRegistry(cfg.RoomCapacity, gateway, logger)
	router := core.NewRouter(registry, logger)
	authService := auth.NewService(cfg.JWTSecret, cfg.JWTIssuer)

	server := transporthttp.NewServer(registry, router, gateway, authService, cfg, logger)

	return &App{
		server:          server,
		gateway:         gateway,
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}
}

// Run starts the HTTP server and blocks until context cancellation or
// a fatal error.
func (a *App) Run(ctx context.Context) error {
	go a.gateway.Run(ctx)

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

func (a *App) cleanup() {
	if err := a.gateway.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close store")
	}
}
