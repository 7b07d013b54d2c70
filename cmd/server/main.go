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

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/catalogmatch/backend/config"
	"github.com/catalogmatch/backend/internal/bootstrap"
	httpDelivery "github.com/catalogmatch/backend/internal/delivery/http"
	"github.com/catalogmatch/backend/internal/infrastructure/events"
	"github.com/catalogmatch/backend/internal/infrastructure/logging"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "catalogmatch",
	})

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("catalog", cfg.Catalog.Backend).
		Str("cache", cfg.Cache.Type).
		Str("vector_index", cfg.Vector.Backend).
		Str("llm_provider", cfg.LLM.Provider).
		Msg("starting catalogmatch backend")

	res, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn().Err(err).Msg("error while releasing resources")
		}
	}()

	services := bootstrap.NewServices(cfg, res, logger)
	go bootstrap.WarmIndex(ctx, cfg, services, logger)

	if cfg.Events.NatsURL != "" {
		nc, err := nats.Connect(cfg.Events.NatsURL, nats.Name("catalogmatch"))
		if err != nil {
			return fmt.Errorf("connect to nats: %w", err)
		}
		defer func() { _ = nc.Drain() }()

		consumer := events.NewConsumer(res.Catalog, services.Indexer, logger)
		if _, err := consumer.Subscribe(nc, cfg.Events.Subject); err != nil {
			return err
		}
		logger.Info().Str("subject", cfg.Events.Subject).Msg("listening for catalog changes")
	}

	handler := httpDelivery.NewHandler(services.Recommendations, services.Search, logger)
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           otelhttp.NewHandler(router, "catalogmatch"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
