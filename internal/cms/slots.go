package cms

import (
	"fmt"
	"strings"
	"time"

	"tranzac/internal/models"
)

// normalizeSlot flattens one CMS slot into the shape the calculator takes.
// The CMS stores the date on the parent group and wall-clock times on the
// slot; both are venue-local. An end at or before the start means the slot
// runs past midnight, which the calculator resolves.
func normalizeSlot(date string, slot rentalSlot, rentalPrivate bool, loc *time.Location) (models.BookingSlot, error) {
	day, err := time.ParseInLocation(models.DateKeyFormat, date, loc)
	if err != nil {
		return models.BookingSlot{}, fmt.Errorf("slot %q has invalid date %q: %w", slot.ID, date, models.ErrValidation)
	}

	start, err := atTime(day, slot.StartTime)
	if err != nil {
		return models.BookingSlot{}, fmt.Errorf("slot %q start: %w", slot.ID, err)
	}
	end, err := atTime(day, slot.EndTime)
	if err != nil {
		return models.BookingSlot{}, fmt.Errorf("slot %q end: %w", slot.ID, err)
	}

	rooms := make([]string, 0, len(slot.Rooms))
	for _, room := range slot.Rooms {
		rooms = append(rooms, Slugify(room.Name))
	}

	return models.BookingSlot{
		ID:                 slot.ID,
		Date:               date,
		Start:              start,
		End:                end,
		Rooms:              rooms,
		Private:            slot.Private || rentalPrivate,
		Resources:          append([]string(nil), slot.Resources...),
		ExpectedAttendance: slot.ExpectedAttendance,
		Title:              slot.Title,
		Description:        slot.Description,
		EventType:          slot.EventType,
	}, nil
}

func atTime(day time.Time, tod *timeOfDay) (time.Time, error) {
	if tod == nil || tod.Time == "" {
		return time.Time{}, fmt.Errorf("missing time: %w", models.ErrValidation)
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		if parsed, err := time.Parse(layout, tod.Time); err == nil {
			return time.Date(day.Year(), day.Month(), day.Day(),
				parsed.Hour(), parsed.Minute(), parsed.Second(), 0, day.Location()), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time %q: %w", tod.Time, models.ErrValidation)
}

// Slugify maps a CMS room name to its pricing-table slug
// ("Living Room" -> "living-room").
func Slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
