// Package analytics recomputes every derived view of the filter state over a
// loaded listing collection.
package analytics

import (
	"context"
	"errors"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"car-market-lab/internal/depreciation"
	"car-market-lab/internal/domain"
	"car-market-lab/internal/filter"
	"car-market-lab/internal/ingestion"
	"car-market-lab/internal/market"
	"car-market-lab/internal/metrics"
	"car-market-lab/internal/scoring"
	"car-market-lab/internal/trend"
)

// ErrNotLoaded is returned while the listing collection is still loading.
var ErrNotLoaded = errors.New("listings not loaded")

const valueScoreScale = 1e9

// Trend is a scatter series with its fitted lines.
type Trend struct {
	Points    []domain.ScoredPoint `json:"points"`
	Linear    []domain.Point       `json:"linear"`
	Quadratic []domain.Point       `json:"quadratic"`
}

// SetSummary is the filtered subset size and metrics of one filter set.
type SetSummary struct {
	Index       int            `json:"index"` // 0 = primary
	Description string         `json:"description"`
	Count       int            `json:"count"`
	Metrics     domain.Metrics `json:"metrics"`
}

// Projection is the depreciation forecast of a hypothetical listing.
type Projection struct {
	Model      string              `json:"model"`
	FuelType   string              `json:"fuel_type"`
	Curve      depreciation.Curve  `json:"curve"`
	CurveTrend []domain.Point      `json:"curve_trend"`
	Steps      []depreciation.Step `json:"steps"`
}

// Derived holds every view computed from one filter state.
type Derived struct {
	CurrentYear int            `json:"current_year"`
	Bounds      filter.Bounds  `json:"bounds"`
	Options     filter.Options `json:"options"`

	PriceVsMileage Trend                `json:"price_vs_mileage"`
	PriceVsAge     Trend                `json:"price_vs_age"`
	ValueMetric    ValueMetric          `json:"value_metric"`
	ValueByYear    []domain.ScoredPoint `json:"value_by_year"`
	Scores         []domain.ScoredPoint `json:"scores"`
	Market         []domain.YearBucket  `json:"market"`
	Projection     *Projection          `json:"projection,omitempty"`

	Sets       []SetSummary  `json:"sets"`
	Comparison metrics.Table `json:"comparison"`
}

// SubsetSizes returns the filtered subset size per set index.
func (d *Derived) SubsetSizes() []int {
	out := make([]int, len(d.Sets))
	for i, s := range d.Sets {
		out[i] = s.Count
	}
	return out
}

// Recompute derives every view from scratch. The primary set drives the
// scatter, score, market and projection views; every set gets metrics.
// Per-set work runs concurrently and is stored by set index.
func Recompute(ctx context.Context, coll *ingestion.Collection, state *filter.State, opts Options) (*Derived, error) {
	if coll == nil {
		return nil, ErrNotLoaded
	}
	if state == nil {
		state = filter.NewState()
	}
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}

	all := coll.All()
	bounds := filter.ComputeBounds(all)
	sets := state.Sets()

	subsets := make([][]*domain.Listing, len(sets))
	summaries := make([]SetSummary, len(sets))

	g, gctx := errgroup.WithContext(ctx)
	for i, fs := range sets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			subset := filter.ApplyWithin(all, fs, bounds)
			subsets[i] = subset
			summaries[i] = SetSummary{
				Index:       i,
				Description: fs.Describe(),
				Count:       len(subset),
				Metrics:     metrics.Summarize(subset, opts.CurrentYear),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	primary := subsets[0]
	comparisons := make([]domain.Metrics, 0, len(summaries)-1)
	for _, s := range summaries[1:] {
		comparisons = append(comparisons, s.Metrics)
	}

	d := &Derived{
		CurrentYear:    opts.CurrentYear,
		Bounds:         bounds,
		Options:        filter.ComputeOptions(all),
		PriceVsMileage: priceVsMileage(primary),
		PriceVsAge:     priceVsAge(primary, opts.CurrentYear),
		ValueMetric:    opts.ValueMetric,
		ValueByYear:    valueByYear(primary, opts.ValueMetric),
		Scores:         scoring.Series(primary, opts.Weights, opts.CurrentYear),
		Market:         market.Aggregate(primary),
		Sets:           summaries,
		Comparison:     metrics.Compare(summaries[0].Metrics, comparisons),
	}
	if opts.Projection != nil {
		req := *opts.Projection
		if req.DistancePerYear <= 0 {
			req.DistancePerYear = opts.DistancePerYear
		}
		d.Projection = project(all, state.Primary, req, opts.CurrentYear)
	}
	return d, nil
}

func newTrend(points []domain.ScoredPoint) Trend {
	xy := make([]domain.Point, len(points))
	for i, p := range points {
		xy[i] = p.Point
	}
	return Trend{
		Points:    points,
		Linear:    trend.Linear(xy),
		Quadratic: trend.Quadratic(xy),
	}
}

func scatterPoint(l *domain.Listing, x, y float64, age *int) domain.ScoredPoint {
	return domain.ScoredPoint{
		Point:   domain.Point{X: x, Y: y},
		ID:      l.ID,
		URL:     l.URL,
		Title:   l.Title(),
		Mileage: l.Mileage,
		Price:   l.Price,
		Power:   l.Power,
		Age:     age,
	}
}

func priceVsMileage(records []*domain.Listing) Trend {
	valid := domain.SelectValid(records, filter.RequiredFields...)
	points := make([]domain.ScoredPoint, 0, len(valid))
	for _, l := range valid {
		points = append(points, scatterPoint(l, float64(*l.Mileage), float64(*l.Price), nil))
	}
	return newTrend(points)
}

func priceVsAge(records []*domain.Listing, currentYear int) Trend {
	valid := domain.SelectValid(records, filter.RequiredFields...)
	points := make([]domain.ScoredPoint, 0, len(valid))
	for _, l := range valid {
		age, _ := l.Age(currentYear)
		points = append(points, scatterPoint(l, float64(age), float64(*l.Price), &age))
	}
	return newTrend(points)
}

// valueByYear plots the selected value metric against model year, ascending.
// Non-finite values are left out.
func valueByYear(records []*domain.Listing, metric ValueMetric) []domain.ScoredPoint {
	valid := domain.SelectValid(records, filter.RequiredFields...)
	out := make([]domain.ScoredPoint, 0, len(valid))
	for _, l := range valid {
		var y float64
		switch metric {
		case ValueScore:
			y = valueScoreScale / (float64(*l.Price) * float64(*l.Mileage))
		default:
			if !l.Has(domain.FieldPricePer10k) {
				continue
			}
			y = *l.PricePer10k
		}
		if math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		out = append(out, scatterPoint(l, float64(*l.ModelYear), y, nil))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].X < out[j].X })
	return out
}

// project calibrates against the whole collection, not the filtered subset.
func project(all []*domain.Listing, primary domain.FilterSet, req ProjectionRequest, currentYear int) *Projection {
	model := req.Model
	if model == "" && primary.Model.Kind == domain.ConstraintExactly {
		model = primary.Model.Value
	}
	fuel := req.FuelType
	if fuel == "" && primary.FuelType.Kind == domain.ConstraintExactly {
		fuel = primary.FuelType.Value
	}

	p := &Projection{Model: model, FuelType: fuel, Curve: depreciation.Curve{}}
	if model != "" {
		p.Curve = depreciation.Calibrate(all, model, fuel, currentYear)
	}
	p.CurveTrend = trend.Quadratic(p.Curve.Points())
	p.Steps = depreciation.Project(p.Curve, req.Input)
	return p
}
