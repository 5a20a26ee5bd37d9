package pricing

import (
	"testing"
	"time"

	"tranzac/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCalculator() *Calculator {
	return NewCalculator(DefaultTable(), time.UTC)
}

// 2026-01-05 is a Monday, 2026-01-03 a Saturday.
func slotAt(id string, day time.Time, startHour, endHour int, rooms []string, private bool, resources ...string) models.BookingSlot {
	return models.BookingSlot{
		ID:        id,
		Date:      day.Format(models.DateKeyFormat),
		Start:     time.Date(day.Year(), day.Month(), day.Day(), startHour, 0, 0, 0, time.UTC),
		End:       time.Date(day.Year(), day.Month(), day.Day(), endHour, 0, 0, 0, time.UTC),
		Rooms:     rooms,
		Private:   private,
		Resources: resources,
	}
}

var (
	monday   = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	saturday = time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
)

func TestFlatRoomWithWeekendAndAfterHoursSurcharges(t *testing.T) {
	calc := newTestCalculator()

	slot := slotAt("s1", saturday, 19, 22, []string{"main-hall"}, true)
	priced, err := calc.SlotCost(slot)
	require.NoError(t, err)

	require.Len(t, priced.Rooms, 1)
	hall := priced.Rooms[0]

	// Flat evening rate regardless of the 3-hour duration.
	require.NotNil(t, hall.EveningCostItem)
	assert.Equal(t, 300.0, hall.EveningCostItem.Cost)
	assert.Nil(t, hall.DaytimeCostItem)
	assert.Equal(t, models.RateFlat, hall.EveningRateType)

	descs := make(map[string]float64)
	for _, item := range hall.AdditionalCosts {
		descs[item.Description] = item.Cost
	}
	assert.Equal(t, 50.0, descs["Weekend surcharge"])
	assert.Equal(t, 100.0, descs["After-hours surcharge"])

	assert.Equal(t, 450.0, hall.TotalCost)
	assert.Equal(t, 450.0, priced.SlotTotal)
}

func TestResourceSurcharge(t *testing.T) {
	calc := newTestCalculator()

	slot := slotAt("s2", monday, 9, 10, []string{"zine-library"}, true, "piano")
	priced, err := calc.SlotCost(slot)
	require.NoError(t, err)

	require.Len(t, priced.Rooms, 1)
	lib := priced.Rooms[0]

	// One morning hour at the hourly rate, plus the piano, nothing else.
	require.NotNil(t, lib.DaytimeCostItem)
	assert.Equal(t, 50.0, lib.DaytimeCostItem.Cost)
	require.Len(t, lib.AdditionalCosts, 1)
	assert.Equal(t, "Piano", lib.AdditionalCosts[0].Description)
	assert.Equal(t, 200.0, lib.AdditionalCosts[0].Cost)
	assert.Equal(t, 250.0, priced.SlotTotal)
}

func TestSplitDaytimeEveningSlot(t *testing.T) {
	calc := newTestCalculator()

	slot := slotAt("s3", monday, 16, 20, []string{"living-room"}, true)
	priced, err := calc.SlotCost(slot)
	require.NoError(t, err)

	require.Len(t, priced.Rooms, 1)
	room := priced.Rooms[0]

	assert.Equal(t, 2.0, room.DaytimeHours)
	assert.Equal(t, 2.0, room.EveningHours)
	assert.Equal(t, 150.0, room.DaytimeRate) // Monday afternoon hourly
	assert.Equal(t, 200.0, room.EveningRate)
	require.NotNil(t, room.DaytimeCostItem)
	require.NotNil(t, room.EveningCostItem)
	assert.Equal(t, 300.0, room.DaytimeCostItem.Cost)
	assert.Equal(t, 400.0, room.EveningCostItem.Cost)

	// After-hours surcharge applies once for the evening overlap.
	assert.Equal(t, 800.0, priced.SlotTotal)
}

func TestMissingRuleIsAnError(t *testing.T) {
	calc := newTestCalculator()

	slot := slotAt("s4", monday, 9, 11, []string{"secret-lair"}, true)
	_, err := calc.SlotCost(slot)
	assert.ErrorIs(t, err, models.ErrRuleNotFound)
}

func TestUnknownResourceIsAnError(t *testing.T) {
	calc := newTestCalculator()

	slot := slotAt("s5", monday, 9, 11, []string{"living-room"}, true, "fog-machine")
	_, err := calc.SlotCost(slot)
	assert.ErrorIs(t, err, models.ErrResourceNotFound)
}

func TestFractionalHours(t *testing.T) {
	calc := newTestCalculator()

	slot := slotAt("s6", monday, 9, 9, []string{"living-room"}, true)
	slot.End = slot.Start.Add(90 * time.Minute)

	priced, err := calc.SlotCost(slot)
	require.NoError(t, err)
	room := priced.Rooms[0]
	assert.InDelta(t, 1.5, room.DaytimeHours, 1e-9)
	assert.InDelta(t, 150.0, room.DaytimeCostItem.Cost, 1e-9) // 1.5h * $100
}

func TestSlotSpanningMidnightBillsAsEvening(t *testing.T) {
	calc := newTestCalculator()

	slot := models.BookingSlot{
		ID:      "s7",
		Start:   time.Date(2026, 1, 3, 20, 0, 0, 0, time.UTC),
		End:     time.Date(2026, 1, 4, 1, 0, 0, 0, time.UTC),
		Rooms:   []string{"living-room"},
		Private: true,
	}

	priced, err := calc.SlotCost(slot)
	require.NoError(t, err)
	room := priced.Rooms[0]
	assert.Equal(t, 0.0, room.DaytimeHours)
	assert.InDelta(t, 5.0, room.EveningHours, 1e-9)
	// Saturday evening hourly: 5h * $300.
	assert.InDelta(t, 1500.0, room.EveningCostItem.Cost, 1e-9)
}

func TestFullDayFlatRate(t *testing.T) {
	calc := newTestCalculator()

	slot := slotAt("s8", monday, 10, 20, []string{"main-hall"}, true)
	priced, err := calc.SlotCost(slot)
	require.NoError(t, err)

	hall := priced.Rooms[0]
	require.NotNil(t, hall.FullDayCostItem)
	assert.Nil(t, hall.DaytimeCostItem)
	assert.Nil(t, hall.EveningCostItem)
	// Monday morning flat 200 + Monday evening flat 300.
	assert.Equal(t, 500.0, hall.FullDayCostItem.Cost)
}

func TestSurchargesAppliedOncePerSlotAcrossRooms(t *testing.T) {
	calc := newTestCalculator()

	slot := slotAt("s9", saturday, 19, 21, []string{"living-room", "zine-library"}, true)
	priced, err := calc.SlotCost(slot)
	require.NoError(t, err)
	require.Len(t, priced.Rooms, 2)

	// Surcharges land on the first room only, never duplicated.
	var count int
	for _, room := range priced.Rooms {
		for _, item := range room.AdditionalCosts {
			if item.Description == "Weekend surcharge" || item.Description == "After-hours surcharge" {
				count++
			}
		}
	}
	assert.Equal(t, 2, count)
	assert.Empty(t, priced.Rooms[1].AdditionalCosts)
}

func TestSlotWithoutRoomsCarriesSurchargesPerSlot(t *testing.T) {
	calc := newTestCalculator()

	slot := slotAt("s10", saturday, 19, 21, nil, true, "bar")
	priced, err := calc.SlotCost(slot)
	require.NoError(t, err)

	assert.Empty(t, priced.Rooms)
	require.Len(t, priced.PerSlotCosts, 3) // weekend, after-hours, bar
	assert.Equal(t, 200.0, priced.SlotTotal)
}

func TestRoomCostConservation(t *testing.T) {
	calc := newTestCalculator()

	slots := []models.BookingSlot{
		slotAt("c1", monday, 9, 12, []string{"living-room"}, true, "bar"),
		slotAt("c2", saturday, 14, 23, []string{"main-hall", "parking-lot"}, false, "tech", "door"),
		slotAt("c3", monday, 16, 20, []string{"southern-cross"}, true),
	}

	for _, slot := range slots {
		priced, err := calc.SlotCost(slot)
		require.NoError(t, err)
		for _, room := range priced.Rooms {
			sum := 0.0
			if room.FullDayCostItem != nil {
				sum += room.FullDayCostItem.Cost
			} else {
				sum += room.DaytimePrice() + room.EveningPrice()
			}
			for _, item := range room.AdditionalCosts {
				sum += item.Cost
			}
			assert.Equal(t, sum, room.TotalCost, "room %s in slot %s", room.RoomSlug, slot.ID)
		}
	}
}
