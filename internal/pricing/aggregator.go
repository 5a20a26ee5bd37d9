package pricing

import (
	"math"
	"sort"

	"tranzac/internal/models"
)

// Aggregate prices a set of booking slots and rolls them up into per-slot
// aggregates plus grand totals. It is pure: identical inputs always yield
// identical output, and the input slice is never mutated.
func Aggregate(calc *Calculator, slots []models.BookingSlot, taxRate float64) ([]models.CostEstimateSlot, models.Totals, error) {
	out := make([]models.CostEstimateSlot, 0, len(slots))
	for _, slot := range slots {
		priced, err := calc.SlotCost(slot)
		if err != nil {
			return nil, models.Totals{}, err
		}
		out = append(out, priced)
	}

	// Group by calendar date (venue-local), then start time, then id, so
	// the same slot set always aggregates in the same order.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})

	return out, SumTotals(out, taxRate), nil
}

// SumTotals derives the grand total, tax and total-with-tax for a slot set.
// Recomputing with no intervening change yields the same values.
func SumTotals(slots []models.CostEstimateSlot, taxRate float64) models.Totals {
	var grand float64
	for i := range slots {
		grand += slots[i].SlotTotal
	}
	tax := grand * taxRate
	return models.Totals{
		GrandTotal:   grand,
		Tax:          tax,
		TotalWithTax: grand + tax,
	}
}

// Round2 rounds to cents. Applied only at the output boundary; internal
// arithmetic keeps full precision.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
