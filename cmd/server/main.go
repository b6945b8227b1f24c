package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/agenthands/kwmerge/internal/config"
	"github.com/agenthands/kwmerge/internal/core"
	"github.com/agenthands/kwmerge/internal/driver"
	"github.com/agenthands/kwmerge/internal/observability"
	"github.com/agenthands/kwmerge/internal/server"
)

func main() {
	envErr := godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, found, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.ApplyEnv(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "kwmerge",
	})
	if envErr != nil {
		logger.Debug().Msg("no .env file found, using environment")
	}
	if !found {
		logger.Warn().Str("path", cfgPath).Msg("config file not found, using defaults")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = serve(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

// serve runs the HTTP server until ctx is cancelled or the listener fails.
// The store is closed before serve returns either way.
func serve(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	store, err := driver.Open(ctx, cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("failed to open keyword store: %w", err)
	}
	defer store.Close(context.Background())

	engine := core.NewEngine(store, cfg.Matching, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server.NewServer(engine, logger).SetupRouter(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Server.Port).Str("driver", cfg.Store.Driver).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve on port %s: %w", cfg.Server.Port, err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	return nil
}
