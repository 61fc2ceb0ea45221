package scoring

import (
	"math"
	"testing"

	"car-market-lab/internal/domain"
)

const currentYear = 2024

func car(price, mileage int64, year int, power int64) *domain.Listing {
	return &domain.Listing{
		ID:        "id",
		URL:       "https://example.com/ad",
		Make:      "Tesla",
		Model:     "Model 3",
		Price:     &price,
		Mileage:   &mileage,
		ModelYear: &year,
		Power:     &power,
	}
}

func TestTerms_Formula(t *testing.T) {
	l := car(200000, 100000, 2020, 300)
	b, ok := Terms(l, DefaultWeights(), currentYear)
	if !ok {
		t.Fatal("Expected listing to be scored")
	}

	want := Breakdown{
		PriceEfficiency: (100000.0 / 10000) / 200000,
		Age:             10 / math.Pow(4, 1.5),
		Mileage:         1 - 100000.0/500000,
		Power:           1,
	}
	if math.Abs(b.PriceEfficiency-want.PriceEfficiency) > 1e-12 ||
		math.Abs(b.Age-want.Age) > 1e-12 ||
		math.Abs(b.Mileage-want.Mileage) > 1e-12 ||
		math.Abs(b.Power-want.Power) > 1e-12 {
		t.Errorf("Got %+v, want %+v", b, want)
	}
}

func TestTerms_Weights(t *testing.T) {
	l := car(200000, 100000, 2020, 300)
	base, _ := Terms(l, DefaultWeights(), currentYear)

	w := Weights{PriceEfficiency: 2, Age: 0, Mileage: 0.5, Power: 1}
	b, _ := Terms(l, w, currentYear)

	if b.Age != 0 {
		t.Errorf("Expected zero-weight age term, got %v", b.Age)
	}
	if math.Abs(b.PriceEfficiency-2*base.PriceEfficiency) > 1e-12 {
		t.Errorf("Expected doubled price efficiency term")
	}
	if math.Abs(b.Mileage-0.5*base.Mileage) > 1e-12 {
		t.Errorf("Expected halved mileage term")
	}
}

func TestTerms_AgeZeroGuarded(t *testing.T) {
	for _, year := range []int{currentYear, currentYear + 1} {
		b, ok := Terms(car(300000, 0, year, 200), DefaultWeights(), currentYear)
		if !ok {
			t.Fatalf("Expected model year %d to be scored", year)
		}
		if b.Age != 10 {
			t.Errorf("Expected age floored at 1 (term 10), got %v", b.Age)
		}
	}
}

func TestTerms_MileageTermGoesNegative(t *testing.T) {
	b, ok := Terms(car(50000, 600000, 2010, 150), DefaultWeights(), currentYear)
	if !ok {
		t.Fatal("Expected listing to be scored")
	}
	if b.Mileage >= 0 {
		t.Errorf("Expected negative mileage term past the ceiling, got %v", b.Mileage)
	}
}

func TestTerms_MileageMonotonic(t *testing.T) {
	prev := math.Inf(1)
	for _, km := range []int64{0, 10000, 50000, 200000, 600000} {
		b, _ := Terms(car(200000, km, 2020, 300), DefaultWeights(), currentYear)
		if b.Mileage >= prev {
			t.Errorf("Mileage term did not decrease at %d km: %v >= %v", km, b.Mileage, prev)
		}
		prev = b.Mileage
	}
}

func TestTerms_AgeMonotonic(t *testing.T) {
	prev := math.Inf(1)
	for age := 2; age <= 15; age++ {
		b, _ := Terms(car(200000, 50000, currentYear-age, 300), DefaultWeights(), currentYear)
		if b.Age >= prev {
			t.Errorf("Age term did not decrease at age %d: %v >= %v", age, b.Age, prev)
		}
		prev = b.Age
	}
}

func TestTerms_MissingFieldsExcluded(t *testing.T) {
	noPower := car(200000, 50000, 2020, 0)
	noPower.Power = nil
	zeroPrice := car(0, 50000, 2020, 100)
	noYear := car(200000, 50000, 2020, 100)
	noYear.ModelYear = nil

	for name, l := range map[string]*domain.Listing{"no power": noPower, "zero price": zeroPrice, "no year": noYear, "nil": nil} {
		if _, ok := Score(l, DefaultWeights(), currentYear); ok {
			t.Errorf("%s: expected listing to be excluded", name)
		}
	}
}

func TestSeries(t *testing.T) {
	noPower := car(200000, 50000, 2020, 0)
	noPower.Power = nil
	records := []*domain.Listing{
		car(200000, 100000, 2020, 300),
		noPower,
		car(300000, 20000, 2022, 450),
	}

	got := Series(records, DefaultWeights(), currentYear)
	if len(got) != 2 {
		t.Fatalf("Expected 2 scored points, got %d", len(got))
	}
	if got[0].Y != 200000 || got[1].Y != 300000 {
		t.Errorf("Expected Y to be price, got %v and %v", got[0].Y, got[1].Y)
	}
	if got[0].Title != "2020 Tesla Model 3" {
		t.Errorf("Unexpected title %q", got[0].Title)
	}
	if got[0].Age == nil || *got[0].Age != 4 {
		t.Errorf("Expected age 4, got %v", got[0].Age)
	}
	want, _ := Score(records[0], DefaultWeights(), currentYear)
	if got[0].X != want {
		t.Errorf("Expected X to be the score %v, got %v", want, got[0].X)
	}
}

func TestWeights_Clamp(t *testing.T) {
	w := Weights{PriceEfficiency: -1, Age: 2.5, Mileage: 0.34, Power: math.NaN()}.Clamp()
	if w.PriceEfficiency != 0 {
		t.Errorf("Expected 0, got %v", w.PriceEfficiency)
	}
	if w.Age != 2 {
		t.Errorf("Expected 2, got %v", w.Age)
	}
	if math.Abs(w.Mileage-0.3) > 1e-12 {
		t.Errorf("Expected 0.3, got %v", w.Mileage)
	}
	if w.Power != 1 {
		t.Errorf("Expected default for NaN, got %v", w.Power)
	}
}
