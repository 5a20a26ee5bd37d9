package cms

import (
	"context"
	"net/http"
	"testing"
	"time"

	"tranzac/internal/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const splitSlotFixture = `{
  "data": {
    "rental": {
      "id": "rental-2",
      "organizationName": "Toronto Zine Collective",
      "private": true,
      "workflowStatus": "estimate_requested",
      "dates": [
        {
          "id": "d1",
          "date": "2026-01-05",
          "slots": [
            {
              "id": "s1",
              "title": "Rehearsal",
              "startTime": {"time": "16:00"},
              "endTime": {"time": "20:00"},
              "rooms": [{"id": "r1", "name": "Living Room"}]
            }
          ]
        }
      ]
    }
  }
}`

// Slot wall-clock times come from the CMS venue-local; they must stay
// anchored in the venue timezone all the way into the calculator, or the
// daytime/evening split lands on the wrong hours.
func TestNormalizedSlotsKeepVenueWallClock(t *testing.T) {
	toronto, err := time.LoadLocation("America/Toronto")
	require.NoError(t, err)

	client := newTestClientIn(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(splitSlotFixture))
	}), toronto)

	slots, err := client.GetBookingSlots(context.Background(), "rental-2")
	require.NoError(t, err)
	require.Len(t, slots, 1)

	slot := slots[0]
	assert.Equal(t, toronto, slot.Start.Location())
	assert.Equal(t, 16, slot.Start.Hour())
	assert.Equal(t, 20, slot.End.Hour())
	assert.Equal(t, "2026-01-05", slot.Start.Format("2006-01-02"))

	calc := pricing.NewCalculator(pricing.DefaultTable(), toronto)
	priced, err := calc.SlotCost(slot)
	require.NoError(t, err)

	require.Len(t, priced.Rooms, 1)
	room := priced.Rooms[0]
	assert.Equal(t, 2.0, room.DaytimeHours)
	assert.Equal(t, 2.0, room.EveningHours)
	assert.Equal(t, 800.0, priced.SlotTotal)
}
