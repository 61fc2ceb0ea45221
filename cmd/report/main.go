// Package main generates a one-shot comparative report over a listing
// collection: Markdown plus CSV files, and optionally a metrics snapshot
// per filter set stored in ClickHouse for comparison with later runs.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"car-market-lab/internal/analytics"
	"car-market-lab/internal/config"
	"car-market-lab/internal/filter"
	"car-market-lab/internal/ingestion"
	"car-market-lab/internal/observability"
	"car-market-lab/internal/reporting"
	"car-market-lab/internal/scoring"
	"car-market-lab/internal/storage"
	chstore "car-market-lab/internal/storage/clickhouse"
	"car-market-lab/internal/storage/migrations"
	pgstore "car-market-lab/internal/storage/postgres"
)

// selection is the optional --selection document: the filter state and the
// non-filter options, each falling back to defaults when omitted.
type selection struct {
	State   *filter.State      `json:"state"`
	Options *analytics.Options `json:"options"`
}

func main() {
	cfg := config.Load()

	// Parse flags (env vars as defaults)
	listingsPath := flag.String("listings", cfg.ListingsPath, "Listings JSON document")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "Read listings from PostgreSQL instead of the JSON document")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickhouseDSN, "Store metrics snapshots in ClickHouse (optional)")
	outputDir := flag.String("output-dir", cfg.OutputDir, "Output directory for generated files")
	selectionPath := flag.String("selection", "", "JSON file with filter state and options (optional)")
	currentYear := flag.Int("current-year", cfg.CurrentYear, "Reference year for ages (0 = calendar year)")
	valueMetric := flag.String("value-metric", cfg.ValueMetric, "Value metric (price_per_10k, value_score)")
	distancePerYear := flag.Float64("distance-per-year", cfg.DistancePerYear, "Default yearly distance for projections")
	flag.Parse()

	ctx := context.Background()
	cfg.CurrentYear = *currentYear
	cfg.DistancePerYear = *distancePerYear

	metric, err := analytics.ParseValueMetric(*valueMetric)
	if err != nil {
		fail("invalid --value-metric: %v", err)
	}

	// A selection file overrides only the options it names.
	opts := analytics.Options{
		CurrentYear:     cfg.Year(time.Now()),
		Weights:         scoring.DefaultWeights(),
		ValueMetric:     metric,
		DistancePerYear: cfg.DistancePerYear,
	}
	sel := selection{Options: &opts}
	if *selectionPath != "" {
		if sel, err = readSelection(*selectionPath, opts); err != nil {
			fail("%v", err)
		}
	}
	state := sel.State
	if state == nil {
		state = filter.NewState()
	}
	if sel.Options != nil {
		opts = *sel.Options
	}

	coll, err := loadCollection(ctx, *listingsPath, *postgresDSN)
	if err != nil {
		fail("loading listings: %v", err)
	}

	var snapshotStore storage.SnapshotStore
	if *clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			fail("connecting to ClickHouse: %v", err)
		}
		defer conn.Close()
		snapshotStore = chstore.NewSnapshotStore(conn)
	}

	gen := reporting.NewGenerator(snapshotStore)
	report, err := gen.Generate(ctx, coll, state, opts)
	if err != nil {
		fail("generating report: %v", err)
	}
	observability.RecordReportGenerated()

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fail("creating output directory: %v", err)
	}
	files := map[string]string{
		"REPORT.md":   reporting.RenderMarkdown(report),
		"METRICS.csv": reporting.RenderCSV(report),
		"MARKET.csv":  reporting.RenderMarketCSV(report),
	}
	for _, name := range []string{"REPORT.md", "METRICS.csv", "MARKET.csv"} {
		if err := os.WriteFile(filepath.Join(*outputDir, name), []byte(files[name]), 0o644); err != nil {
			fail("writing %s: %v", name, err)
		}
	}

	if snapshotStore != nil {
		if err := gen.Store(ctx, report); err != nil {
			fail("storing snapshots: %v", err)
		}
		observability.RecordSnapshotsStored(len(report.FilterSets))
	}

	fmt.Printf("Report %s generated (%d listings, %d filter sets):\n",
		report.RunID, report.DataSummary.Accepted, len(report.FilterSets))
	fmt.Printf("  - %s/REPORT.md\n", *outputDir)
	fmt.Printf("  - %s/METRICS.csv\n", *outputDir)
	fmt.Printf("  - %s/MARKET.csv\n", *outputDir)
}

// loadCollection reads listings from PostgreSQL when dsn is set, otherwise from path.
func loadCollection(ctx context.Context, path, dsn string) (*ingestion.Collection, error) {
	if dsn == "" {
		return ingestion.LoadFile(path)
	}
	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	return ingestion.StoreSource(pgstore.NewListingStore(pool))(ctx)
}

func readSelection(path string, defaults analytics.Options) (selection, error) {
	sel := selection{Options: &defaults}
	data, err := os.ReadFile(path)
	if err != nil {
		return sel, fmt.Errorf("read selection: %w", err)
	}
	if err := json.Unmarshal(data, &sel); err != nil {
		return sel, fmt.Errorf("decode selection: %w", err)
	}
	return sel, nil
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error "+format+"\n", args...)
	os.Exit(1)
}
