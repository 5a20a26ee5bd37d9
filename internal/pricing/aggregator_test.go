package pricing

import (
	"testing"

	"tranzac/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateTotals(t *testing.T) {
	calc := newTestCalculator()

	slots := []models.BookingSlot{
		slotAt("a1", monday, 9, 10, []string{"zine-library"}, true),   // 50
		slotAt("a2", saturday, 19, 22, []string{"main-hall"}, true),   // 450
	}

	priced, totals, err := Aggregate(calc, slots, 0.13)
	require.NoError(t, err)
	require.Len(t, priced, 2)

	assert.Equal(t, 500.0, totals.GrandTotal)
	assert.InDelta(t, 65.0, totals.Tax, 1e-9)
	assert.InDelta(t, 565.0, totals.TotalWithTax, 1e-9)
}

func TestAggregateIsIdempotent(t *testing.T) {
	calc := newTestCalculator()

	slots := []models.BookingSlot{
		slotAt("b1", saturday, 14, 23, []string{"main-hall", "parking-lot"}, false, "tech"),
		slotAt("b2", monday, 16, 20, []string{"living-room"}, true),
	}

	first, firstTotals, err := Aggregate(calc, slots, 0.13)
	require.NoError(t, err)
	second, secondTotals, err := Aggregate(calc, slots, 0.13)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstTotals, secondTotals)
	for i := range first {
		assert.Equal(t, first[i].SlotTotal, second[i].SlotTotal)
	}
}

func TestAggregateOrdersByDateThenStart(t *testing.T) {
	calc := newTestCalculator()

	slots := []models.BookingSlot{
		slotAt("later", monday, 16, 18, []string{"living-room"}, true),
		slotAt("weekend", saturday, 10, 12, []string{"living-room"}, true),
		slotAt("earlier", monday, 9, 11, []string{"living-room"}, true),
	}

	priced, _, err := Aggregate(calc, slots, 0.13)
	require.NoError(t, err)
	require.Len(t, priced, 3)

	assert.Equal(t, "weekend", priced[0].ID) // Jan 3 before Jan 5
	assert.Equal(t, "earlier", priced[1].ID)
	assert.Equal(t, "later", priced[2].ID)
}

func TestAggregateEmptyInput(t *testing.T) {
	calc := newTestCalculator()

	priced, totals, err := Aggregate(calc, nil, 0.13)
	require.NoError(t, err)
	assert.Empty(t, priced)
	assert.Equal(t, models.Totals{}, totals)
}

func TestAggregatePropagatesErrors(t *testing.T) {
	calc := newTestCalculator()

	slots := []models.BookingSlot{
		slotAt("ok", monday, 9, 10, []string{"living-room"}, true),
		slotAt("bad", monday, 9, 10, []string{"no-such-room"}, true),
	}

	_, _, err := Aggregate(calc, slots, 0.13)
	assert.ErrorIs(t, err, models.ErrRuleNotFound)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 65.0, Round2(64.999999999))
	assert.Equal(t, 12.35, Round2(12.345))
	assert.Equal(t, 0.0, Round2(0))
}
