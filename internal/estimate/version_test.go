package estimate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tranzac/internal/models"
	"tranzac/internal/pricing"
)

var testNow = time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

func testCalculator() *pricing.Calculator {
	return pricing.NewCalculator(pricing.DefaultTable(), time.UTC)
}

// slotOn builds a booking slot on the given date with hour-of-day bounds.
func slotOn(id, date string, startHour, endHour int, rooms ...string) models.BookingSlot {
	day, err := time.Parse(models.DateKeyFormat, date)
	if err != nil {
		panic(err)
	}
	return models.BookingSlot{
		ID:      id,
		Date:    date,
		Start:   day.Add(time.Duration(startHour) * time.Hour),
		End:     day.Add(time.Duration(endHour) * time.Hour),
		Rooms:   rooms,
		Private: true,
	}
}

func pricedSlots(t *testing.T, slots ...models.BookingSlot) ([]models.CostEstimateSlot, models.Totals) {
	t.Helper()
	out, totals, err := pricing.Aggregate(testCalculator(), slots, models.DefaultTaxRate)
	require.NoError(t, err)
	return out, totals
}

func TestNewEstimateStartsAsDraftWithoutVersions(t *testing.T) {
	est := NewEstimate("rental-1", testNow)

	assert.Equal(t, "rental-1", est.RentalRequestID)
	assert.Equal(t, models.StatusDraft, est.Status)
	assert.Equal(t, -1, est.CurrentVersion)
	assert.Empty(t, est.Versions)
}

func TestAppendVersionNumbersAreZeroBasedAndGapFree(t *testing.T) {
	est := NewEstimate("rental-1", testNow)
	slots, totals := pricedSlots(t, slotOn("s1", "2026-01-07", 9, 12, "living-room"))

	for i := 0; i < 3; i++ {
		v := AppendVersion(est, slots, totals, "", "admin", testNow)
		assert.Equal(t, i, v.Version)
		assert.Equal(t, i, est.CurrentVersion)
	}
	require.Len(t, est.Versions, 3)
	for i, v := range est.Versions {
		assert.Equal(t, i, v.Version)
	}
}

func TestAppendVersionSeedsStatusHistoryWithCreatedEvent(t *testing.T) {
	est := NewEstimate("rental-1", testNow)
	slots, totals := pricedSlots(t, slotOn("s1", "2026-01-07", 9, 12, "living-room"))

	v := AppendVersion(est, slots, totals, "initial", "admin@tranzac.org", testNow)

	require.Len(t, v.StatusHistory, 1)
	assert.Equal(t, models.StatusCreated, v.StatusHistory[0].Status)
	assert.Equal(t, "admin@tranzac.org", v.StatusHistory[0].ChangedBy)
	assert.Equal(t, testNow, v.StatusHistory[0].Timestamp)
}

func TestAppendVersionDefaultsActorToSystem(t *testing.T) {
	est := NewEstimate("rental-1", testNow)
	slots, totals := pricedSlots(t, slotOn("s1", "2026-01-07", 9, 12, "living-room"))

	v := AppendVersion(est, slots, totals, "", "", testNow)

	require.Len(t, v.StatusHistory, 1)
	assert.Equal(t, "system", v.StatusHistory[0].ChangedBy)
}

func TestAppendVersionSnapshotsAreIsolated(t *testing.T) {
	est := NewEstimate("rental-1", testNow)
	slots, totals := pricedSlots(t, slotOn("s1", "2026-01-07", 9, 12, "living-room"))

	v0 := AppendVersion(est, slots, totals, "", "admin", testNow)
	v0Total := v0.TotalCost

	// Mutating the caller's slice after the snapshot must not leak in.
	slots[0].Rooms[0].DaytimeCostItem.Cost = 9999
	slots[0].RecomputeTotal()

	v1 := AppendVersion(est, slots, totals, "", "admin", testNow)

	assert.Equal(t, v0Total, est.Versions[0].TotalCost)
	assert.Equal(t, v0Total, roomTotal(t, &est.Versions[0]))
	assert.NotEqual(t, roomTotal(t, &est.Versions[0]), roomTotal(t, v1))
}

func roomTotal(t *testing.T, v *models.EstimateVersion) float64 {
	t.Helper()
	require.NotEmpty(t, v.CostEstimates)
	require.NotEmpty(t, v.CostEstimates[0].Rooms)
	return v.CostEstimates[0].Rooms[0].TotalCost
}

func TestEditingOneVersionLeavesOthersUntouched(t *testing.T) {
	est := NewEstimate("rental-1", testNow)
	slots, totals := pricedSlots(t, slotOn("s1", "2026-01-07", 9, 12, "living-room"))

	AppendVersion(est, slots, totals, "", "admin", testNow)
	AppendVersion(est, slots, totals, "", "admin", testNow)

	v1 := &est.Versions[1]
	require.NoError(t, UpdateItem(v1, "s1", "s1:living-room:daytime", 500, models.DefaultTaxRate))

	assert.Equal(t, totals.GrandTotal, est.Versions[0].TotalCost)
	assert.Equal(t, 500.0, est.Versions[1].TotalCost)
}

func TestAppendStatusEventIsAppendOnly(t *testing.T) {
	est := NewEstimate("rental-1", testNow)
	slots, totals := pricedSlots(t, slotOn("s1", "2026-01-07", 9, 12, "living-room"))
	v := AppendVersion(est, slots, totals, "", "admin", testNow)

	AppendStatusEvent(v, models.StatusSent, "admin", testNow.Add(time.Hour))
	AppendStatusEvent(v, models.StatusAccepted, "admin", testNow.Add(2*time.Hour))

	require.Len(t, v.StatusHistory, 3)
	assert.Equal(t, models.StatusCreated, v.StatusHistory[0].Status)
	assert.Equal(t, models.StatusSent, v.StatusHistory[1].Status)
	assert.Equal(t, models.StatusAccepted, v.StatusHistory[2].Status)
}

func TestAppendStatusEventDefaultsTimestamp(t *testing.T) {
	est := NewEstimate("rental-1", testNow)
	slots, totals := pricedSlots(t, slotOn("s1", "2026-01-07", 9, 12, "living-room"))
	v := AppendVersion(est, slots, totals, "", "admin", testNow)

	before := time.Now()
	AppendStatusEvent(v, models.StatusSent, "admin", time.Time{})

	last := v.StatusHistory[len(v.StatusHistory)-1]
	assert.False(t, last.Timestamp.Before(before))
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		wantErr bool
	}{
		{"draft to sent", models.StatusDraft, models.StatusSent, false},
		{"sent to accepted", models.StatusSent, models.StatusAccepted, false},
		{"sent to rejected", models.StatusSent, models.StatusRejected, false},
		{"resend after edits", models.StatusSent, models.StatusSent, false},
		{"draft straight to accepted", models.StatusDraft, models.StatusAccepted, true},
		{"accepted is terminal", models.StatusAccepted, models.StatusSent, true},
		{"rejected is terminal", models.StatusRejected, models.StatusSent, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := NewEstimate("rental-1", testNow)
			est.Status = tt.from

			err := Transition(est, tt.to)
			if tt.wantErr {
				require.ErrorIs(t, err, models.ErrInvalidTransition)
				assert.Equal(t, tt.from, est.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, est.Status)
		})
	}
}

func TestRecomputeTotalsIsIdempotent(t *testing.T) {
	est := NewEstimate("rental-1", testNow)
	slots, totals := pricedSlots(t,
		slotOn("s1", "2026-01-07", 9, 12, "living-room"),
		slotOn("s2", "2026-01-08", 19, 22, "zine-library"),
	)
	v := AppendVersion(est, slots, totals, "", "admin", testNow)

	RecomputeTotals(v, models.DefaultTaxRate)
	first := v.TotalWithTax
	RecomputeTotals(v, models.DefaultTaxRate)

	assert.Equal(t, first, v.TotalWithTax)
	assert.Equal(t, totals.GrandTotal, v.TotalCost)
	assert.InDelta(t, v.TotalCost*models.DefaultTaxRate, v.Tax, 1e-9)
}
