package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"flight-scraper/config"
	"flight-scraper/metrics"
	"flight-scraper/scraper/emirates"
	"flight-scraper/scraper/qatar"
	"flight-scraper/server"
	"flight-scraper/services"
	"flight-scraper/storage"
	"flight-scraper/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	m := metrics.New("flightscraper", prometheus.DefaultRegisterer)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := openStore(ctx, cfg)
	cancel()
	if err != nil {
		logger.Fatal("storage init failed", "backend", cfg.StorageBackend, "error", err)
	}

	var dump *storage.RawDumpWriter
	if cfg.RawDumpPath != "" {
		dump, err = storage.NewRawDumpWriter(cfg.RawDumpPath)
		if err != nil {
			logger.Fatal("raw dump writer init failed", "path", cfg.RawDumpPath, "error", err)
		}
	}

	cache := services.NewFlightCache(store, cfg.CacheTTL, m, logger)
	insights := services.NewInsightService(logger)
	aggregator := services.NewAggregator(
		qatar.New(cfg, logger, dump),
		emirates.New(cfg, logger, dump),
		cache, insights, m, logger,
	)

	srv := server.New(cfg, server.NewHandlers(cache, aggregator, logger))

	go func() {
		logger.Info("server listening", "port", cfg.Port, "backend", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if dump != nil {
		if err := dump.Close(); err != nil {
			logger.Error("raw dump close failed", "error", err)
		}
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.Error("storage close failed", "error", err)
	}
	logger.Info("shutdown complete")
}

// openStore picks the persistence backend. Mongo is the default; postgres
// and an in-process map are available for environments without it.
func openStore(ctx context.Context, cfg *config.Config) (storage.FlightStore, error) {
	switch cfg.StorageBackend {
	case "postgres":
		return storage.NewPostgresStore(cfg.DSN())
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		return storage.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB)
	}
}
