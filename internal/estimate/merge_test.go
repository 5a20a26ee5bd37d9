package estimate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tranzac/internal/models"
	"tranzac/internal/pricing"
)

func recalc(t *testing.T, slots ...models.BookingSlot) []models.CostEstimateSlot {
	t.Helper()
	out, _, err := pricing.Aggregate(testCalculator(), slots, models.DefaultTaxRate)
	require.NoError(t, err)
	return out
}

func TestMergeWithoutEditsMatchesFreshComputation(t *testing.T) {
	booking := slotOn("s1", "2026-01-03", 19, 23, "main-hall")
	booking.Resources = []string{"bar"}
	v := saturdayVersion(t)

	Merge(v, recalc(t, booking), models.DefaultTaxRate)

	assert.Equal(t, 500.0, v.TotalCost)
	require.Len(t, v.CostEstimates, 1)
	assert.Equal(t, 500.0, v.CostEstimates[0].SlotTotal)
}

func TestMergeKeepsManualPriceOverride(t *testing.T) {
	booking := slotOn("s1", "2026-01-03", 19, 23, "main-hall")
	booking.Resources = []string{"bar"}
	v := saturdayVersion(t)
	require.NoError(t, UpdateItem(v, "s1", "s1:main-hall:evening", 250, models.DefaultTaxRate))

	Merge(v, recalc(t, booking), models.DefaultTaxRate)

	room := &v.CostEstimates[0].Rooms[0]
	require.NotNil(t, room.EveningCostItem)
	assert.Equal(t, 250.0, room.EveningCostItem.Cost)
	assert.True(t, room.EveningCostItem.Manual)
	assert.Equal(t, 450.0, v.TotalCost)
}

func TestMergeKeepsManualSurchargeEdit(t *testing.T) {
	booking := slotOn("s1", "2026-01-03", 19, 23, "main-hall")
	booking.Resources = []string{"bar"}
	v := saturdayVersion(t)
	require.NoError(t, UpdateItem(v, "s1", "s1:resource:bar", 80, models.DefaultTaxRate))

	Merge(v, recalc(t, booking), models.DefaultTaxRate)

	room := &v.CostEstimates[0].Rooms[0]
	bar := func() *models.CostItem {
		for i := range room.AdditionalCosts {
			if room.AdditionalCosts[i].ID == "s1:resource:bar" {
				return &room.AdditionalCosts[i]
			}
		}
		return nil
	}()
	require.NotNil(t, bar)
	assert.Equal(t, 80.0, bar.Cost)
	assert.True(t, bar.Manual)
}

func TestMergeCarriesCustomItemsForward(t *testing.T) {
	booking := slotOn("s1", "2026-01-03", 19, 23, "main-hall")
	booking.Resources = []string{"bar"}
	v := saturdayVersion(t)
	item, err := AddCustomItem(v, "s1", "Cleaning fee", 75, models.DefaultTaxRate)
	require.NoError(t, err)

	Merge(v, recalc(t, booking), models.DefaultTaxRate)

	require.Len(t, v.CostEstimates[0].CustomLineItems, 1)
	assert.Equal(t, item.ID, v.CostEstimates[0].CustomLineItems[0].ID)
	assert.Equal(t, 575.0, v.TotalCost)
}

func TestMergeTakesStructureFromFreshComputation(t *testing.T) {
	v := saturdayVersion(t)

	// The booking moved to a Wednesday daytime in a different room; the
	// old slot's system items do not survive, only the structure of the
	// fresh computation does.
	moved := slotOn("s1", "2026-01-07", 9, 12, "living-room")
	Merge(v, recalc(t, moved), models.DefaultTaxRate)

	require.Len(t, v.CostEstimates, 1)
	slot := &v.CostEstimates[0]
	assert.Equal(t, "2026-01-07", slot.Date)
	require.Len(t, slot.Rooms, 1)
	assert.Equal(t, "living-room", slot.Rooms[0].RoomSlug)
	assert.Nil(t, slot.Rooms[0].EveningCostItem)
	_, err := Locate(v, "s1", "s1:surcharge:weekend")
	assert.ErrorIs(t, err, models.ErrItemNotFound)
}

func TestMergeDropsRemovedSlots(t *testing.T) {
	v := saturdayVersion(t)

	Merge(v, nil, models.DefaultTaxRate)

	assert.Empty(t, v.CostEstimates)
	assert.Zero(t, v.TotalCost)
}

func TestMergeAddsNewSlots(t *testing.T) {
	v := saturdayVersion(t)
	first := slotOn("s1", "2026-01-03", 19, 23, "main-hall")
	first.Resources = []string{"bar"}
	second := slotOn("s2", "2026-01-07", 9, 12, "living-room")

	Merge(v, recalc(t, first, second), models.DefaultTaxRate)

	require.Len(t, v.CostEstimates, 2)
	assert.Equal(t, "s1", v.CostEstimates[0].ID)
	assert.Equal(t, "s2", v.CostEstimates[1].ID)
}

func TestMergeCarriesOrphanedManualAdditionalCost(t *testing.T) {
	booking := slotOn("s1", "2026-01-03", 19, 23, "main-hall")
	v := saturdayVersion(t)
	// The bar was manually repriced, then removed from the booking's
	// resources. The manual charge survives the recalculation.
	require.NoError(t, UpdateItem(v, "s1", "s1:resource:bar", 80, models.DefaultTaxRate))

	Merge(v, recalc(t, booking), models.DefaultTaxRate)

	ref, err := Locate(v, "s1", "s1:resource:bar")
	require.NoError(t, err)
	assert.Equal(t, KindRoomAdditional, ref.Kind)
	// 300 evening + 50 weekend + 100 after-hours + 80 manual bar.
	assert.Equal(t, 530.0, v.TotalCost)
}

func TestMergeDropsUntouchedSystemItemsNoLongerProduced(t *testing.T) {
	booking := slotOn("s1", "2026-01-03", 19, 23, "main-hall")
	v := saturdayVersion(t)

	// Bar dropped from the booking without any manual edit: it vanishes.
	Merge(v, recalc(t, booking), models.DefaultTaxRate)

	_, err := Locate(v, "s1", "s1:resource:bar")
	assert.ErrorIs(t, err, models.ErrItemNotFound)
	assert.Equal(t, 450.0, v.TotalCost)
}

func TestMergeIsDeterministic(t *testing.T) {
	booking := slotOn("s1", "2026-01-03", 19, 23, "main-hall")
	booking.Resources = []string{"bar"}

	v1 := saturdayVersion(t)
	require.NoError(t, UpdateItem(v1, "s1", "s1:main-hall:evening", 250, models.DefaultTaxRate))
	v2 := saturdayVersion(t)
	require.NoError(t, UpdateItem(v2, "s1", "s1:main-hall:evening", 250, models.DefaultTaxRate))

	Merge(v1, recalc(t, booking), models.DefaultTaxRate)
	Merge(v2, recalc(t, booking), models.DefaultTaxRate)

	assert.Equal(t, v1.TotalCost, v2.TotalCost)
	assert.Equal(t, v1.CostEstimates, v2.CostEstimates)
}
