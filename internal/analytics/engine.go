package analytics

import (
	"context"
	"io"
	"log"
	"time"

	"car-market-lab/internal/filter"
	"car-market-lab/internal/ingestion"
	"car-market-lab/internal/observability"
)

// EngineOptions configures an Engine.
type EngineOptions struct {
	Loader  *ingestion.Loader
	Metrics *observability.Metrics // optional
	Logger  *log.Logger            // optional
}

// Engine serves recomputations over the collection produced by a Loader.
type Engine struct {
	loader  *ingestion.Loader
	metrics *observability.Metrics
	logger  *log.Logger
}

// NewEngine creates an engine. The loader is not started.
func NewEngine(opts EngineOptions) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Engine{
		loader:  opts.Loader,
		metrics: opts.Metrics,
		logger:  logger,
	}
}

// Start begins loading and reports the outcome once it completes.
func (e *Engine) Start(ctx context.Context) {
	e.loader.Start(ctx)
	go func() {
		coll, err := e.loader.Wait(context.WithoutCancel(ctx))
		if err != nil {
			return
		}
		e.reportLoad(coll)
	}()
}

func (e *Engine) reportLoad(coll *ingestion.Collection) {
	stats := coll.Stats()
	loadErr := e.loader.Err()
	if loadErr != nil {
		e.logger.Printf("Listing load failed, continuing with empty collection: %v", loadErr)
	} else {
		e.logger.Printf("Loaded %d listings (%d records, %d skipped, %d duplicates)",
			stats.Accepted, stats.Records, stats.Skipped, stats.Duplicates)
	}
	if e.metrics == nil {
		return
	}
	missing := make(map[string]int, len(stats.Missing))
	for f, n := range stats.Missing {
		missing[f.String()] = n
	}
	e.metrics.RecordLoad(observability.LoadStats{
		Accepted:   stats.Accepted,
		Skipped:    stats.Skipped,
		Duplicates: stats.Duplicates,
		Missing:    missing,
	}, loadErr)
}

// Ready is closed once the collection is loaded.
func (e *Engine) Ready() <-chan struct{} {
	return e.loader.Done()
}

// Status is the engine's load state.
type Status struct {
	State ingestion.State `json:"state"`
	Stats ingestion.Stats `json:"stats"`
	Error string          `json:"error,omitempty"`
}

// Status returns the current load state and, once ready, its statistics.
func (e *Engine) Status() Status {
	st := Status{State: e.loader.State()}
	if coll, ok := e.loader.Collection(); ok {
		st.Stats = coll.Stats()
		if err := e.loader.Err(); err != nil {
			st.Error = err.Error()
		}
	}
	return st
}

// Catalog is the data-derived configuration surface: selectable values and range bounds.
type Catalog struct {
	Options filter.Options `json:"options"`
	Bounds  filter.Bounds  `json:"bounds"`
}

// Catalog returns selectable filter values and range bounds.
// Returns ErrNotLoaded while pending.
func (e *Engine) Catalog() (Catalog, error) {
	coll, ok := e.loader.Collection()
	if !ok {
		return Catalog{}, ErrNotLoaded
	}
	all := coll.All()
	return Catalog{
		Options: filter.ComputeOptions(all),
		Bounds:  filter.ComputeBounds(all),
	}, nil
}

// Recompute derives every view for state. Returns ErrNotLoaded while pending.
func (e *Engine) Recompute(ctx context.Context, state *filter.State, opts Options) (*Derived, error) {
	coll, ok := e.loader.Collection()
	if !ok {
		return nil, ErrNotLoaded
	}

	start := time.Now()
	d, err := Recompute(ctx, coll, state, opts)
	if e.metrics != nil {
		var sizes []int
		if d != nil {
			sizes = d.SubsetSizes()
		}
		e.metrics.RecordRecompute(time.Since(start), sizes, err)
	}
	return d, err
}
