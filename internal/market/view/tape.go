package view

import "github.com/zappabad/agriflow/internal/ring"

// PricePoint is one observed quote. Seq is zero for a quote that was read
// from storage rather than produced by a refresh.
type PricePoint struct {
	Seq   int64
	Time  int64
	Price float64
}

// PriceTape holds the recent quotes of a single instrument.
type PriceTape struct {
	points *ring.Ring[PricePoint]
}

// NewPriceTape creates a tape that keeps at most capacity quotes.
func NewPriceTape(capacity int) *PriceTape {
	return &PriceTape{points: ring.New[PricePoint](capacity)}
}

// Append records a quote. Once the tape is full the oldest quote is dropped.
func (t *PriceTape) Append(p PricePoint) {
	t.points.Push(p)
}

// Last returns up to n quotes in chronological order.
func (t *PriceTape) Last(n int) []PricePoint {
	return t.points.Last(n)
}

// Len returns the number of quotes held.
func (t *PriceTape) Len() int {
	return t.points.Len()
}
