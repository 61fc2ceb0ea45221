package filter

import (
	"testing"

	"car-market-lab/internal/domain"
)

func strPtr(s string) *string { return &s }

func listing(url, model string, year int, price, mileage int64) *domain.Listing {
	return &domain.Listing{
		ID:        url,
		URL:       url,
		Status:    domain.StatusActive,
		Make:      "Tesla",
		Model:     model,
		ModelYear: &year,
		Price:     &price,
		Mileage:   &mileage,
		FuelType:  "Elektrisitet",
	}
}

func fixture() []*domain.Listing {
	a := listing("a", "Model 3", 2019, 250000, 80000)
	a.ServiceHistory = strPtr("BRA")
	a.Status = domain.StatusSold

	b := listing("b", "Model 3", 2021, 330000, 20000)
	b.ServiceHistory = strPtr(UnknownLabel)

	c := listing("c", "Model Y", 2022, 420000, 15000)

	d := listing("d", "all", 2018, 180000, 120000)
	d.ServiceHistory = strPtr("MIDDELS")
	d.Drivetrain = "Firehjulsdrift"

	return []*domain.Listing{a, b, c, d}
}

func urls(ls []*domain.Listing) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.URL
	}
	return out
}

func equalURLs(a, b []*domain.Listing) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestApply_DefaultReturnsAll(t *testing.T) {
	records := fixture()
	got := Apply(records, domain.DefaultFilterSet())
	if !equalURLs(got, records) {
		t.Errorf("Expected all listings, got %v", urls(got))
	}
}

func TestApply_Categorical(t *testing.T) {
	records := fixture()

	fs := domain.DefaultFilterSet()
	fs.Model = domain.Exactly("Model 3")
	got := Apply(records, fs)
	if len(got) != 2 || got[0].URL != "a" || got[1].URL != "b" {
		t.Errorf("Expected [a b], got %v", urls(got))
	}

	fs.ModelYear = domain.Exactly("2021")
	got = Apply(records, fs)
	if len(got) != 1 || got[0].URL != "b" {
		t.Errorf("Expected [b], got %v", urls(got))
	}
}

func TestApply_LiteralAllIsNotWildcard(t *testing.T) {
	fs := domain.DefaultFilterSet()
	fs.Model = domain.Exactly("all")
	got := Apply(fixture(), fs)
	if len(got) != 1 || got[0].URL != "d" {
		t.Errorf("Expected only the listing whose model is literally 'all', got %v", urls(got))
	}
}

func TestApply_UnknownCategorical(t *testing.T) {
	fs := domain.DefaultFilterSet()
	fs.Drivetrain = domain.Unknown()
	got := Apply(fixture(), fs)
	if len(got) != 3 {
		t.Errorf("Expected 3 listings with unknown drivetrain, got %v", urls(got))
	}
}

func TestApply_MissingMetadataFallback(t *testing.T) {
	records := fixture()

	fs := domain.DefaultFilterSet()
	fs.ServiceHistory = domain.Unknown()
	got := Apply(records, fs)
	// c has no metadata, b carries the unknown label explicitly
	if len(got) != 2 || got[0].URL != "b" || got[1].URL != "c" {
		t.Errorf("Expected [b c], got %v", urls(got))
	}

	fs.ServiceHistory = domain.Exactly(UnknownLabel)
	if again := Apply(records, fs); !equalURLs(again, got) {
		t.Errorf("Expected Exactly(UKJENT) to behave like Unknown, got %v", urls(again))
	}

	for _, v := range []string{"BRA", "MIDDELS", "DÅRLIG"} {
		fs.ServiceHistory = domain.Exactly(v)
		for _, l := range Apply(records, fs) {
			if l.URL == "c" {
				t.Errorf("Listing without metadata matched %q", v)
			}
		}
	}
}

func TestApply_ShowOnlySold(t *testing.T) {
	fs := domain.DefaultFilterSet()
	fs.ShowOnlySold = true
	got := Apply(fixture(), fs)
	if len(got) != 1 || got[0].URL != "a" {
		t.Errorf("Expected [a], got %v", urls(got))
	}
}

func TestApply_Ranges(t *testing.T) {
	records := fixture()

	fs := domain.DefaultFilterSet()
	fs.MileageRange = &domain.Range{Min: 15000, Max: 80000}
	got := Apply(records, fs)
	if len(got) != 3 {
		t.Errorf("Expected 3 listings in [15000, 80000], got %v", urls(got))
	}

	fs.PriceRange = &domain.Range{Min: 0, Max: 330000}
	got = Apply(records, fs)
	if len(got) != 2 || got[0].URL != "a" || got[1].URL != "b" {
		t.Errorf("Expected [a b], got %v", urls(got))
	}
}

func TestApply_FullRangeIsBypassed(t *testing.T) {
	records := append(fixture(), &domain.Listing{URL: "no-mileage", Model: "Model 3"})

	fs := domain.DefaultFilterSet()
	fs.MileageRange = &domain.Range{Min: -1, Max: 1e9}
	got := Apply(records, fs)
	if len(got) != len(records)-1 {
		t.Errorf("Expected range covering the bounds to be bypassed, got %v", urls(got))
	}

	fs.MileageRange = &domain.Range{Min: 0, Max: 100000}
	got = Apply(records, fs)
	for _, l := range got {
		if l.URL == "no-mileage" {
			t.Error("Listing without mileage passed an active range")
		}
	}
}

func TestApply_IdempotentAndSubset(t *testing.T) {
	records := fixture()
	sets := []domain.FilterSet{
		domain.DefaultFilterSet(),
		{Model: domain.Exactly("Model 3")},
		{ServiceHistory: domain.Unknown(), MileageRange: &domain.Range{Min: 10000, Max: 50000}},
		{ShowOnlySold: true, PriceRange: &domain.Range{Min: 200000, Max: 300000}},
		{Model: domain.Exactly("missing")},
	}

	for _, fs := range sets {
		once := Apply(records, fs)
		twice := Apply(once, fs)
		if !equalURLs(once, twice) {
			t.Errorf("%s: not idempotent: %v vs %v", fs.Describe(), urls(once), urls(twice))
		}

		in := make(map[*domain.Listing]bool, len(records))
		for _, l := range records {
			in[l] = true
		}
		for _, l := range once {
			if !in[l] {
				t.Errorf("%s: result is not a subset", fs.Describe())
			}
		}
	}
}

func TestApply_DefaultReturnsValidSubset(t *testing.T) {
	noPrice := listing("no-price", "Model 3", 2020, 0, 30000)
	noPrice.Price = nil
	noModel := listing("no-model", "", 2020, 200000, 30000)
	noMake := listing("no-make", "Model Y", 2021, 300000, 10000)
	noMake.Make = ""
	noYear := listing("no-year", "Model Y", 2021, 300000, 10000)
	noYear.ModelYear = nil
	negative := listing("negative-mileage", "Model Y", 2021, 300000, -1)

	records := append(fixture(), noPrice, noModel, noMake, noYear, negative)
	want := domain.SelectValid(records, RequiredFields...)
	if len(want) != 4 {
		t.Fatalf("Expected 4 valid fixture listings, got %v", urls(want))
	}

	got := Apply(records, domain.DefaultFilterSet())
	if !equalURLs(got, want) {
		t.Errorf("Expected valid subset %v, got %v", urls(want), urls(got))
	}

	fs := domain.DefaultFilterSet()
	fs.Model = domain.Exactly("Model Y")
	got = Apply(records, fs)
	if len(got) != 1 || got[0].URL != "c" {
		t.Errorf("Expected [c], got %v", urls(got))
	}
}

func TestApply_ZeroMileageInsideRange(t *testing.T) {
	fresh := listing("new", "Model 3", 2024, 450000, 0)
	used := listing("used", "Model 3", 2020, 280000, 40000)
	old := listing("old", "Model 3", 2015, 120000, 200000)
	records := []*domain.Listing{fresh, used, old}

	b := ComputeBounds(records)
	if b.Mileage.Min != 0 || b.Mileage.Max != 200000 {
		t.Errorf("Unexpected mileage bounds: %+v", b.Mileage)
	}

	fs := domain.DefaultFilterSet()
	fs.MileageRange = &domain.Range{Min: 0, Max: 50000}
	got := Apply(records, fs)
	if len(got) != 2 || got[0].URL != "new" || got[1].URL != "used" {
		t.Errorf("Expected [new used], got %v", urls(got))
	}
}

func TestApply_EmptyResult(t *testing.T) {
	fs := domain.DefaultFilterSet()
	fs.Model = domain.Exactly("Model S")
	got := Apply(fixture(), fs)
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil slice, got %v", got)
	}
}

func TestComputeBounds(t *testing.T) {
	records := fixture()
	zero := int64(0)
	records = append(records, &domain.Listing{URL: "z", Mileage: &zero, Price: &zero})

	b := ComputeBounds(records)
	if b.Mileage.Min != 0 || b.Mileage.Max != 120000 {
		t.Errorf("Unexpected mileage bounds: %+v", b.Mileage)
	}
	if b.Price.Min != 180000 || b.Price.Max != 420000 {
		t.Errorf("Unexpected price bounds: %+v", b.Price)
	}

	if empty := ComputeBounds(nil); empty != DefaultBounds() {
		t.Errorf("Expected default bounds for empty input, got %+v", empty)
	}
}

func TestComputeOptions(t *testing.T) {
	opts := ComputeOptions(fixture())

	wantModels := []string{"Model 3", "Model Y", "all"}
	if len(opts.Models) != len(wantModels) {
		t.Fatalf("Expected models %v, got %v", wantModels, opts.Models)
	}
	for i := range wantModels {
		if opts.Models[i] != wantModels[i] {
			t.Errorf("Models[%d] = %q, want %q", i, opts.Models[i], wantModels[i])
		}
	}

	wantYears := []string{"2018", "2019", "2021", "2022"}
	for i := range wantYears {
		if opts.ModelYears[i] != wantYears[i] {
			t.Errorf("ModelYears[%d] = %q, want %q", i, opts.ModelYears[i], wantYears[i])
		}
	}

	if len(opts.ServiceHistories) != 3 {
		t.Errorf("Expected observed service histories, got %v", opts.ServiceHistories)
	}
	if len(opts.Conditions) != len(DefaultConditions) {
		t.Errorf("Expected default conditions, got %v", opts.Conditions)
	}
	if len(opts.SellerTypes) != len(DefaultSellerTypes) {
		t.Errorf("Expected default seller types, got %v", opts.SellerTypes)
	}
}
