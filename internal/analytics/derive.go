package analytics

import (
	"math"

	"github.com/datapulse/datapulse/internal/sales"
)

// Totals accumulates revenue and cost over a set of sale records. Profit and
// margin are derived, never stored, so the invariant profit == revenue - cost
// holds by construction.
type Totals struct {
	Revenue float64
	Cost    float64
}

// Add folds one record into the running totals.
func (t *Totals) Add(s sales.Sale) {
	qty := float64(s.Quantity)
	t.Revenue += qty * s.UnitPrice
	t.Cost += qty * s.CostPrice
}

// Profit returns revenue minus cost.
func (t Totals) Profit() float64 {
	return t.Revenue - t.Cost
}

// MarginPercent returns profit as a percentage of revenue. Zero revenue
// yields zero margin regardless of cost sign.
func (t Totals) MarginPercent() float64 {
	if t.Revenue == 0 {
		return 0
	}
	return t.Profit() / t.Revenue * 100
}

// Sum derives totals for a record slice. An empty slice yields zero totals.
func Sum(records []sales.Sale) Totals {
	var t Totals
	for _, s := range records {
		t.Add(s)
	}
	return t
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
