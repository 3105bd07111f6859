// @title           docsync API
// @version         1.0
// @description     Shared single-document store with last-writer-wins saves.
// @BasePath        /
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/collabedit/docsync/internal/api"
	"github.com/collabedit/docsync/internal/core/service"
	"github.com/collabedit/docsync/internal/discovery"
	"github.com/collabedit/docsync/internal/infrastructure/config"
	"github.com/collabedit/docsync/internal/infrastructure/db/storage"
	"github.com/collabedit/docsync/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "docsync-server: %v\n", err)
		return 1
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "docsync-server",
	})

	if err := serve(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	seeds, err := config.ParseSeedUsers(cfg.Auth.SeedUsers)
	if err != nil {
		return err
	}

	backend, err := storage.Open(ctx, storage.Options{
		DSN:            cfg.Store.DSN,
		Database:       cfg.Store.Database,
		Timeout:        cfg.Store.Timeout,
		ConnectRetries: cfg.Store.ConnectRetries,
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := backend.Close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("failed to close storage")
		}
	}()

	documents := service.NewDocumentService(backend.Documents, cfg.MaxContentBytes, log)
	auth := service.NewAuthService(backend.Users, cfg.Auth.BcryptCost, log)
	if err := auth.SeedUsers(ctx, seeds); err != nil {
		return err
	}

	e := api.NewRouter(api.Deps{
		Documents:  documents,
		Auth:       auth,
		Health:     backend.Health,
		Logger:     log,
		Registerer: prometheus.DefaultRegisterer,
		Gatherer:   prometheus.DefaultGatherer,
		Swagger:    true,

		MaxBodyBytes: api.BodyLimit(cfg.MaxContentBytes),
	})

	if cfg.MDNS.Enabled {
		port, err := strconv.Atoi(cfg.Port)
		if err != nil {
			return fmt.Errorf("mdns: invalid port %q: %w", cfg.Port, err)
		}
		announcer, err := discovery.Announce(cfg.MDNS.Instance, port)
		if err != nil {
			log.Warn().Err(err).Msg("mdns announcement disabled")
		} else {
			defer announcer.Shutdown()
			log.Info().Str("instance", cfg.MDNS.Instance).Msg("announcing on mdns")
		}
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", backendName(cfg.Store.DSN)).Msg("docsync server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// backendName is the DSN scheme, which is safe to log unlike the full DSN.
func backendName(dsn string) string {
	scheme, _, found := strings.Cut(dsn, "://")
	if !found || scheme == "" {
		return "memory"
	}
	return scheme
}
