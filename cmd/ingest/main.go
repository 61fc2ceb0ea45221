// Package main imports a listings JSON document into PostgreSQL.
// Re-importing the same document is safe: already stored listings are skipped.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"car-market-lab/internal/config"
	"car-market-lab/internal/ingestion"
	"car-market-lab/internal/observability"
	"car-market-lab/internal/storage/migrations"
	pgstore "car-market-lab/internal/storage/postgres"
)

func main() {
	cfg := config.Load()

	// Parse flags (env vars as defaults)
	listingsPath := flag.String("listings", cfg.ListingsPath, "Listings JSON document")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	dryRun := flag.Bool("dry-run", false, "Parse and report statistics without writing")
	flag.Parse()

	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	if !*dryRun && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --dry-run to only parse)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	coll, err := ingestion.LoadFile(*listingsPath)
	if err != nil {
		logger.Fatalf("Failed to read listings: %v", err)
	}

	stats := coll.Stats()
	logger.Printf("Parsed %s: %d records, %d accepted, %d skipped, %d duplicates",
		*listingsPath, stats.Records, stats.Accepted, stats.Skipped, stats.Duplicates)
	for _, f := range sortedFields(stats.Missing) {
		logger.Printf("  missing %-14s %d", f, stats.Missing[f])
	}

	if *dryRun {
		logger.Println("Dry run, nothing written")
		return
	}

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	store := pgstore.NewListingStore(pool)

	start := time.Now()
	inserted, err := store.InsertMissing(ctx, coll.All())
	if err != nil {
		logger.Fatalf("Failed to import listings: %v", err)
	}
	observability.RecordImported(inserted)

	total, err := store.Count(ctx)
	if err != nil {
		logger.Fatalf("Failed to count listings: %v", err)
	}
	logger.Printf("Imported %d new listings (%d already stored, %d total) in %v",
		inserted, stats.Accepted-inserted, total, time.Since(start).Round(time.Millisecond))
}
