package domain

// OpeningRange is the high/low of a strategy's range window on one
// trading day. Derived from bars strictly inside the window and never
// mutated after the window closes.
type OpeningRange struct {
	Day  string // YYYY-MM-DD, UTC
	High float64
	Low  float64
}

// Size returns the range height in price points.
func (r OpeningRange) Size() float64 {
	return r.High - r.Low
}
