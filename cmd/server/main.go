// Package main runs the analytics service: the listing collection is loaded
// once in the background, then recomputations are served over HTTP and
// websocket sessions, with Prometheus metrics on /metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"car-market-lab/internal/analytics"
	"car-market-lab/internal/api"
	"car-market-lab/internal/config"
	"car-market-lab/internal/ingestion"
	"car-market-lab/internal/observability"
	"car-market-lab/internal/scoring"
	pgstore "car-market-lab/internal/storage/postgres"
)

func main() {
	cfg := config.Load()

	// Parse flags (env vars as defaults)
	listingsPath := flag.String("listings", cfg.ListingsPath, "Listings JSON document")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "Load listings from PostgreSQL instead of the JSON document")
	httpAddr := flag.String("http-addr", cfg.HTTPAddr, "HTTP listen address")
	currentYear := flag.Int("current-year", cfg.CurrentYear, "Reference year for ages (0 = calendar year)")
	valueMetric := flag.String("value-metric", cfg.ValueMetric, "Default value metric (price_per_10k, value_score)")
	distancePerYear := flag.Float64("distance-per-year", cfg.DistancePerYear, "Default yearly distance for projections")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg.CurrentYear = *currentYear
	cfg.DistancePerYear = *distancePerYear
	metric, err := analytics.ParseValueMetric(*valueMetric)
	if err != nil {
		logger.Fatalf("Invalid --value-metric: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Choose listing source
	var source ingestion.Source
	if *postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		defer pool.Close()
		source = ingestion.StoreSource(pgstore.NewListingStore(pool))
		logger.Println("Loading listings from PostgreSQL")
	} else {
		source = ingestion.FileSource(*listingsPath)
		logger.Printf("Loading listings from %s", *listingsPath)
	}

	engine := analytics.NewEngine(analytics.EngineOptions{
		Loader:  ingestion.NewLoader(source),
		Metrics: observability.DefaultMetrics,
		Logger:  logger,
	})
	engine.Start(ctx)

	apiServer := api.NewServer(api.ServerOptions{
		Engine: engine,
		Defaults: analytics.Options{
			CurrentYear:     cfg.Year(time.Now()),
			Weights:         scoring.DefaultWeights(),
			ValueMetric:     metric,
			DistancePerYear: cfg.DistancePerYear,
		},
		Metrics: observability.DefaultMetrics,
		Logger:  logger,
	})

	httpServer := &http.Server{
		Addr:              *httpAddr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("Starting HTTP server on %s", *httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Println("Received shutdown signal, shutting down...")
	case err := <-errCh:
		if err != nil {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Websocket connections are hijacked, so Shutdown does not wait for them.
	apiServer.Close()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP shutdown error: %v", err)
	}
	logger.Println("Shutdown complete")
}
