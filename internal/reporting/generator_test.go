package reporting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"car-market-lab/internal/analytics"
	"car-market-lab/internal/depreciation"
	"car-market-lab/internal/domain"
	"car-market-lab/internal/filter"
	"car-market-lab/internal/ingestion"
	"car-market-lab/internal/scoring"
	"car-market-lab/internal/storage"
	"car-market-lab/internal/storage/memory"
)

func ptr[T any](v T) *T { return &v }

var fixedClock = func() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func setupTestData(t *testing.T) (*ingestion.Collection, *filter.State) {
	t.Helper()

	coll := ingestion.NewCollection([]*domain.Listing{
		{
			ID: "a", URL: "https://example.com/a", Make: "Tesla", Model: "Model 3", FuelType: "El",
			Price: ptr(int64(300000)), Mileage: ptr(int64(50000)), ModelYear: ptr(2020),
		},
		{
			ID: "b", URL: "https://example.com/b", Make: "Tesla", Model: "Model 3", FuelType: "El",
			Price: ptr(int64(200000)), Mileage: ptr(int64(100000)), ModelYear: ptr(2018),
		},
		{
			ID: "c", URL: "https://example.com/c", Make: "Tesla", Model: "Model Y", FuelType: "El",
			Price: ptr(int64(450000)), Mileage: ptr(int64(20000)), ModelYear: ptr(2022),
		},
	})

	state := filter.NewState()
	if _, err := state.AddComparison(domain.FilterSet{Model: domain.Exactly("Model Y")}); err != nil {
		t.Fatalf("AddComparison failed: %v", err)
	}
	return coll, state
}

func testOptions() analytics.Options {
	return analytics.Options{CurrentYear: 2024, Weights: scoring.DefaultWeights()}
}

func runID(id string) func() string {
	return func() string { return id }
}

func TestGenerate_Deterministic(t *testing.T) {
	coll, state := setupTestData(t)
	ctx := context.Background()

	var outputs []string
	for i := 0; i < 3; i++ {
		generator := NewGenerator(nil).WithClock(fixedClock).WithRunID(runID("run-1"))
		report, err := generator.Generate(ctx, coll, state, testOptions())
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		outputs = append(outputs, RenderMarkdown(report)+RenderCSV(report))
	}

	for i := 1; i < len(outputs); i++ {
		if outputs[i] != outputs[0] {
			t.Errorf("output %d differs from output 0", i)
		}
	}
}

func TestGenerate_WithClock(t *testing.T) {
	coll, state := setupTestData(t)

	report, err := NewGenerator(nil).WithClock(fixedClock).Generate(context.Background(), coll, state, testOptions())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !report.GeneratedAt.Equal(fixedClock()) {
		t.Errorf("expected GeneratedAt %v, got %v", fixedClock(), report.GeneratedAt)
	}
	if report.RunID == "" {
		t.Error("expected a generated run id")
	}
}

func TestGenerate_NotLoaded(t *testing.T) {
	_, err := NewGenerator(nil).Generate(context.Background(), nil, filter.NewState(), testOptions())
	if !errors.Is(err, analytics.ErrNotLoaded) {
		t.Errorf("expected ErrNotLoaded, got %v", err)
	}
}

func TestGenerate_Sections(t *testing.T) {
	coll, state := setupTestData(t)

	report, err := NewGenerator(nil).WithClock(fixedClock).WithRunID(runID("run-1")).
		Generate(context.Background(), coll, state, testOptions())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if report.DataSummary.Accepted != 3 {
		t.Errorf("expected 3 accepted listings, got %d", report.DataSummary.Accepted)
	}
	if len(report.FilterSets) != 2 {
		t.Fatalf("expected 2 filter sets, got %d", len(report.FilterSets))
	}
	if report.FilterSets[1].Label != "Comparison 1" || report.FilterSets[1].Count != 1 {
		t.Errorf("unexpected comparison set: %+v", report.FilterSets[1])
	}
	if len(report.Comparison) != len(domain.MetricFields) {
		t.Errorf("expected %d comparison rows, got %d", len(domain.MetricFields), len(report.Comparison))
	}
	if len(report.Market) != 3 || report.Market[0].Year != 2018 {
		t.Errorf("unexpected market rows: %+v", report.Market)
	}
	if report.Projection != nil {
		t.Error("expected no projection section")
	}
}

func TestRenderMarkdown_Format(t *testing.T) {
	coll, state := setupTestData(t)

	report, err := NewGenerator(nil).WithClock(fixedClock).WithRunID(runID("run-1")).
		Generate(context.Background(), coll, state, testOptions())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	md := RenderMarkdown(report)

	expected := []string{
		"# Car Market Report",
		"Generated: 2024-06-01T12:00:00Z",
		"## Data Summary",
		"## Filter Sets",
		"| Comparison 1 | model=Model Y | 1 |",
		"## Metrics Comparison",
		"| Average price | 316667 (worst) | 450000 (best) |",
		"| Sample size | 3 (best) | 1 (worst) |",
		"| Time on market (days) | - | - |",
		"## Market by Model Year",
		"| 2018 | 1 | [2018 Tesla Model 3](https://example.com/b) |",
	}
	for _, section := range expected {
		if !strings.Contains(md, section) {
			t.Errorf("markdown missing %q", section)
		}
	}
	if strings.Contains(md, "## Depreciation Projection") || strings.Contains(md, "## Previous Runs") {
		t.Error("optional sections must be omitted")
	}
}

func TestRenderMarkdown_Projection(t *testing.T) {
	coll, state := setupTestData(t)
	opts := testOptions()
	opts.Projection = &analytics.ProjectionRequest{
		Model:    "Model 3",
		FuelType: "El",
		Input:    depreciation.Input{Age: 4, Price: 100000, Mileage: 40000},
	}

	report, err := NewGenerator(nil).WithClock(fixedClock).Generate(context.Background(), coll, state, opts)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	md := RenderMarkdown(report)

	for _, want := range []string{
		"## Depreciation Projection",
		"Comparables: Model 3 El",
		"| +0 | 100000 | 40000 | 15.0% | fallback |",
		"| +1 | 85000 | 55000 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderCSV_DeterministicOrder(t *testing.T) {
	coll, state := setupTestData(t)

	report, err := NewGenerator(nil).WithRunID(runID("run-1")).Generate(context.Background(), coll, state, testOptions())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	csv := RenderCSV(report)
	lines := strings.Split(strings.TrimSpace(csv), "\n")

	if lines[0] != "run_id,metric,set_index,set_description,value,flag" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	// header + 5 metrics x 2 sets
	if len(lines) != 11 {
		t.Fatalf("expected 11 lines, got %d", len(lines))
	}
	if lines[1] != "run-1,sample_size,0,all listings,3.00,best" {
		t.Errorf("unexpected first row: %s", lines[1])
	}
	if !strings.Contains(csv, "run-1,average_price,1,model=Model Y,450000.00,best\n") {
		t.Errorf("missing comparison price row in:\n%s", csv)
	}
	if !strings.Contains(csv, "run-1,average_time_on_market,0,all listings,,\n") {
		t.Errorf("missing empty time on market row in:\n%s", csv)
	}
}

func TestRenderMarketCSV(t *testing.T) {
	coll, state := setupTestData(t)

	report, err := NewGenerator(nil).Generate(context.Background(), coll, state, testOptions())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	want := "year,count\n2018,1\n2020,1\n2022,1\n"
	if got := RenderMarketCSV(report); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestStore_AndHistory(t *testing.T) {
	coll, state := setupTestData(t)
	ctx := context.Background()
	store := memory.NewSnapshotStore()

	first, err := NewGenerator(store).WithClock(fixedClock).WithRunID(runID("run-1")).
		Generate(ctx, coll, state, testOptions())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(first.History) != 0 {
		t.Errorf("expected empty history, got %d rows", len(first.History))
	}

	generator := NewGenerator(store).WithClock(fixedClock).WithRunID(runID("run-1"))
	if err := generator.Store(ctx, first); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := generator.Store(ctx, first); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey on second store, got %v", err)
	}

	stored, err := store.GetByRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByRun failed: %v", err)
	}
	if len(stored) != 2 || stored[1].Description != "model=Model Y" {
		t.Fatalf("unexpected stored snapshots: %+v", stored)
	}

	second, err := NewGenerator(store).WithClock(fixedClock).WithRunID(runID("run-2")).
		Generate(ctx, coll, state, testOptions())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(second.History) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(second.History))
	}
	if second.History[0].RunID != "run-1" || second.History[0].SampleSize != 3 {
		t.Errorf("unexpected history row: %+v", second.History[0])
	}
	if !strings.Contains(RenderMarkdown(second), "## Previous Runs") {
		t.Error("markdown missing previous runs section")
	}
}

func TestStore_NoSnapshotStore(t *testing.T) {
	if err := NewGenerator(nil).Store(context.Background(), &Report{}); !errors.Is(err, ErrNoSnapshotStore) {
		t.Errorf("expected ErrNoSnapshotStore, got %v", err)
	}
}

func TestFormatFixed(t *testing.T) {
	tests := []struct {
		in     *float64
		places int32
		want   string
	}{
		{nil, 0, "-"},
		{ptr(316666.666), 0, "316667"},
		{ptr(2.5), 0, "3"},
		{ptr(12.25), 1, "12.3"},
		{ptr(0.0), 2, "0.00"},
	}
	for _, tt := range tests {
		if got := formatFixed(tt.in, tt.places); got != tt.want {
			t.Errorf("formatFixed(%v, %d) = %q, want %q", tt.in, tt.places, got, tt.want)
		}
	}
}
