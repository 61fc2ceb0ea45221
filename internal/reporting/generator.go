package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"car-market-lab/internal/analytics"
	"car-market-lab/internal/domain"
	"car-market-lab/internal/filter"
	"car-market-lab/internal/ingestion"
	"car-market-lab/internal/market"
	"car-market-lab/internal/storage"
)

// ErrNoSnapshotStore is returned by Store when the generator has no snapshot store.
var ErrNoSnapshotStore = errors.New("no snapshot store configured")

// metricLabels are the display names of the comparison rows.
var metricLabels = map[domain.MetricField]string{
	domain.MetricSampleSize:                "Sample size",
	domain.MetricAveragePrice:              "Average price",
	domain.MetricAveragePricePerDistance:   "Price per 1000 km",
	domain.MetricAverageYearlyDepreciation: "Yearly depreciation",
	domain.MetricAverageTimeOnMarket:       "Time on market (days)",
}

// Generator produces reports from a listing collection.
type Generator struct {
	snapshotStore storage.SnapshotStore // optional
	now           func() time.Time      // Injectable clock for deterministic output
	newRunID      func() string
}

// NewGenerator creates a new report generator. snapshotStore may be nil.
func NewGenerator(snapshotStore storage.SnapshotStore) *Generator {
	return &Generator{
		snapshotStore: snapshotStore,
		now:           func() time.Time { return time.Now().UTC() },
		newRunID:      uuid.NewString,
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithRunID sets a custom run identifier source for deterministic output.
func (g *Generator) WithRunID(newRunID func() string) *Generator {
	g.newRunID = newRunID
	return g
}

// Generate recomputes the filter state over coll and builds a report.
// With a snapshot store configured, earlier snapshots of the same filter
// descriptions are attached as history.
func (g *Generator) Generate(ctx context.Context, coll *ingestion.Collection, state *filter.State, opts analytics.Options) (*Report, error) {
	derived, err := analytics.Recompute(ctx, coll, state, opts)
	if err != nil {
		return nil, fmt.Errorf("recompute: %w", err)
	}

	r := &Report{
		RunID:       g.newRunID(),
		GeneratedAt: g.now(),
		CurrentYear: derived.CurrentYear,
		DataSummary: generateDataSummary(coll.Stats()),
		FilterSets:  generateFilterSets(derived.Sets),
		Comparison:  generateComparison(derived),
		Market:      generateMarket(derived.Market),
	}
	if p := derived.Projection; p != nil {
		r.Projection = &ProjectionSection{Model: p.Model, FuelType: p.FuelType, Steps: p.Steps}
	}

	if g.snapshotStore != nil {
		history, err := g.generateHistory(ctx, r)
		if err != nil {
			return nil, err
		}
		r.History = history
	}
	return r, nil
}

func generateDataSummary(stats ingestion.Stats) DataSummary {
	ds := DataSummary{
		Records:    stats.Records,
		Accepted:   stats.Accepted,
		Skipped:    stats.Skipped,
		Duplicates: stats.Duplicates,
	}
	for field, n := range stats.Missing {
		if n > 0 {
			ds.Missing = append(ds.Missing, MissingFieldRow{Field: field.String(), Count: n})
		}
	}
	sort.Slice(ds.Missing, func(i, j int) bool { return ds.Missing[i].Field < ds.Missing[j].Field })
	return ds
}

// SetLabel returns the display label of a set index.
func SetLabel(index int) string {
	if index == 0 {
		return "Primary"
	}
	return fmt.Sprintf("Comparison %d", index)
}

func generateFilterSets(sets []analytics.SetSummary) []FilterSetRow {
	rows := make([]FilterSetRow, len(sets))
	for i, s := range sets {
		rows[i] = FilterSetRow{
			Index:       s.Index,
			Label:       SetLabel(s.Index),
			Description: s.Description,
			Count:       s.Count,
			Metrics:     s.Metrics,
		}
	}
	return rows
}

func generateComparison(d *analytics.Derived) []ComparisonRow {
	rows := make([]ComparisonRow, len(d.Comparison.Rows))
	for i, row := range d.Comparison.Rows {
		rows[i] = ComparisonRow{
			Field:  row.Field,
			Label:  metricLabels[row.Field],
			Values: row.Values,
			Flags:  row.Flags,
		}
	}
	return rows
}

func generateMarket(buckets []domain.YearBucket) []MarketRow {
	rows := make([]MarketRow, len(buckets))
	for i, b := range buckets {
		rows[i] = MarketRow{Year: b.Year, Count: b.Count, Top: b.Top(market.TopListings)}
	}
	return rows
}

// generateHistory loads earlier snapshots whose description matches one of the report's sets.
func (g *Generator) generateHistory(ctx context.Context, r *Report) ([]HistoryRow, error) {
	snapshots, err := g.snapshotStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}

	wanted := make(map[string]struct{}, len(r.FilterSets))
	for _, fs := range r.FilterSets {
		wanted[fs.Description] = struct{}{}
	}

	var rows []HistoryRow
	for _, s := range snapshots {
		if s.RunID == r.RunID {
			continue
		}
		if _, ok := wanted[s.Description]; !ok {
			continue
		}
		rows = append(rows, HistoryRow{
			RunID:       s.RunID,
			CreatedAt:   s.CreatedAt,
			Description: s.Description,
			SampleSize:  s.Metrics.SampleSize,
			Metrics:     s.Metrics,
		})
	}
	return rows, nil
}

// Snapshots converts the report's filter sets into metrics snapshots.
func Snapshots(r *Report) []*domain.MetricsSnapshot {
	out := make([]*domain.MetricsSnapshot, len(r.FilterSets))
	for i, fs := range r.FilterSets {
		out[i] = &domain.MetricsSnapshot{
			RunID:       r.RunID,
			SetIndex:    fs.Index,
			Description: fs.Description,
			CurrentYear: r.CurrentYear,
			Metrics:     fs.Metrics,
			CreatedAt:   r.GeneratedAt,
		}
	}
	return out
}

// Store persists the report's snapshots.
// Returns storage.ErrDuplicateKey if the run was already stored.
func (g *Generator) Store(ctx context.Context, r *Report) error {
	if g.snapshotStore == nil {
		return ErrNoSnapshotStore
	}
	return g.snapshotStore.InsertBulk(ctx, Snapshots(r))
}
