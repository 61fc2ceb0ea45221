package domain

// Point is a generic numeric pair.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ScoredPoint is a chart point annotated with listing identity and display metadata.
type ScoredPoint struct {
	Point
	ID      string `json:"id"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Mileage *int64 `json:"mileage,omitempty"`
	Price   *int64 `json:"price,omitempty"`
	Power   *int64 `json:"power,omitempty"`
	Age     *int   `json:"age,omitempty"`
}

// YearBucket groups listings that share a model year.
type YearBucket struct {
	Year     int          `json:"year"`
	Count    int          `json:"count"`
	Listings []ListingRef `json:"listings"`
}

// Top returns up to n listing references in bucket order.
func (b YearBucket) Top(n int) []ListingRef {
	if n < 0 || n >= len(b.Listings) {
		return b.Listings
	}
	return b.Listings[:n]
}
