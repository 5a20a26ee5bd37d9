package pricing

import (
	"fmt"
	"time"

	"tranzac/internal/models"
)

// Calculator prices booking slots against the rate table. All time math is
// done in the venue's fixed local timezone, never the caller's.
type Calculator struct {
	table               *Table
	loc                 *time.Location
	weekendSurcharge    float64
	afterHoursSurcharge float64
}

// NewCalculator builds a calculator for the given table and venue timezone.
func NewCalculator(table *Table, loc *time.Location) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	return &Calculator{
		table:               table,
		loc:                 loc,
		weekendSurcharge:    models.WeekendSurcharge,
		afterHoursSurcharge: models.AfterHoursSurcharge,
	}
}

// Location exposes the venue timezone.
func (c *Calculator) Location() *time.Location { return c.loc }

// Table exposes the underlying rate table.
func (c *Calculator) Table() *Table { return c.table }

// slotWindow is a slot's start/end resolved to venue time, split at the
// evening boundary. Hours past midnight bill as evening.
type slotWindow struct {
	start, end   time.Time
	day          time.Weekday
	daytimeHours float64
	eveningHours float64
	daytimeStart time.Time
}

func (c *Calculator) window(slot models.BookingSlot) (slotWindow, error) {
	if slot.Start.IsZero() || slot.End.IsZero() {
		return slotWindow{}, fmt.Errorf("slot %s has no start/end: %w", slot.ID, models.ErrValidation)
	}
	start := slot.Start.In(c.loc)
	end := slot.End.In(c.loc)
	if !end.After(start) {
		// A slot ending at or before its start spans midnight.
		end = end.AddDate(0, 0, 1)
	}

	boundary := time.Date(start.Year(), start.Month(), start.Day(),
		models.EveningStartHour, 0, 0, 0, c.loc)

	w := slotWindow{start: start, end: end, day: start.Weekday(), daytimeStart: start}
	if start.Before(boundary) {
		dayEnd := end
		if dayEnd.After(boundary) {
			dayEnd = boundary
		}
		w.daytimeHours = dayEnd.Sub(start).Hours()
	}
	if end.After(boundary) {
		evStart := start
		if evStart.Before(boundary) {
			evStart = boundary
		}
		w.eveningHours = end.Sub(evStart).Hours()
	}
	return w, nil
}

// daytimePeriod picks the rate bucket for the daytime sub-interval: the
// period in which it begins.
func daytimePeriod(start time.Time) models.Period {
	if start.Hour() < models.AfternoonStartHour {
		return models.PeriodMorning
	}
	return models.PeriodAfternoon
}

// RoomCost computes one room's cost line for a slot. A slot spanning the
// evening boundary is split into daytime and evening sub-costs, each billed
// flat or hourly per the room's rate card.
func (c *Calculator) RoomCost(slot models.BookingSlot, roomSlug string) (models.RoomCostLine, error) {
	room, ok := c.table.Room(roomSlug)
	if !ok {
		return models.RoomCostLine{}, fmt.Errorf("room %q: %w", roomSlug, models.ErrRuleNotFound)
	}

	w, err := c.window(slot)
	if err != nil {
		return models.RoomCostLine{}, err
	}

	daytimeType, eveningType, err := c.table.RateTypes(roomSlug)
	if err != nil {
		return models.RoomCostLine{}, err
	}

	line := models.RoomCostLine{
		RoomSlug:        room.Slug,
		RoomName:        room.Name,
		DaytimeHours:    w.daytimeHours,
		EveningHours:    w.eveningHours,
		DaytimeRateType: daytimeType,
		EveningRateType: eveningType,
	}

	var daytimePrice, eveningPrice float64
	if w.daytimeHours > 0 {
		rate, err := c.table.BasePrice(roomSlug, w.day, daytimePeriod(w.daytimeStart), slot.Private)
		if err != nil {
			return models.RoomCostLine{}, err
		}
		line.DaytimeRate = rate
		if daytimeType == models.RateFlat {
			daytimePrice = rate
		} else {
			daytimePrice = w.daytimeHours * rate
		}
	}
	if w.eveningHours > 0 {
		rate, err := c.table.BasePrice(roomSlug, w.day, models.PeriodEvening, slot.Private)
		if err != nil {
			return models.RoomCostLine{}, err
		}
		line.EveningRate = rate
		if eveningType == models.RateFlat {
			eveningPrice = rate
		} else {
			eveningPrice = w.eveningHours * rate
		}
	}

	// A flat-rate room booked across both periods bills one full-day price.
	if w.daytimeHours > 0 && w.eveningHours > 0 &&
		daytimeType == models.RateFlat && eveningType == models.RateFlat {
		line.FullDayCostItem = &models.CostItem{
			ID:          itemID(slot.ID, room.Slug, "fullday"),
			Description: "Full Day Flat Rate",
			Cost:        daytimePrice + eveningPrice,
			SlotID:      slot.ID,
		}
	} else {
		if w.daytimeHours > 0 {
			line.DaytimeCostItem = &models.CostItem{
				ID:          itemID(slot.ID, room.Slug, "daytime"),
				Description: "Daytime",
				Cost:        daytimePrice,
				SlotID:      slot.ID,
			}
		}
		if w.eveningHours > 0 {
			line.EveningCostItem = &models.CostItem{
				ID:          itemID(slot.ID, room.Slug, "evening"),
				Description: "Evening",
				Cost:        eveningPrice,
				SlotID:      slot.ID,
			}
		}
	}

	line.RecomputeTotal()
	return line, nil
}

// SlotCost prices an entire slot: every room plus resource and condition
// surcharges. Condition surcharges (weekend, after-hours) apply exactly once
// per slot regardless of how many rooms it spans; they and the resource
// costs are folded into the first room's additional costs, or carried as
// per-slot costs when the slot has no rooms.
func (c *Calculator) SlotCost(slot models.BookingSlot) (models.CostEstimateSlot, error) {
	w, err := c.window(slot)
	if err != nil {
		return models.CostEstimateSlot{}, err
	}

	out := models.CostEstimateSlot{
		ID:        slot.ID,
		Date:      w.start.Format(models.DateKeyFormat),
		Start:     w.start,
		End:       w.end,
		Title:     slot.Title,
		EventType: slot.EventType,
		Private:   slot.Private,
		Resources: append([]string(nil), slot.Resources...),
	}

	for _, roomSlug := range slot.Rooms {
		line, err := c.RoomCost(slot, roomSlug)
		if err != nil {
			return models.CostEstimateSlot{}, err
		}
		out.Rooms = append(out.Rooms, line)
	}

	var extras []models.CostItem

	if w.day == time.Saturday || w.day == time.Sunday {
		extras = append(extras, models.CostItem{
			ID:          itemID(slot.ID, "surcharge", "weekend"),
			Description: "Weekend surcharge",
			Cost:        c.weekendSurcharge,
			SlotID:      slot.ID,
		})
	}
	if w.eveningHours > 0 {
		extras = append(extras, models.CostItem{
			ID:          itemID(slot.ID, "surcharge", "afterhours"),
			Description: "After-hours surcharge",
			Cost:        c.afterHoursSurcharge,
			SlotID:      slot.ID,
		})
	}

	for _, res := range slot.Resources {
		cost, err := c.table.ResourceCost(res)
		if err != nil {
			return models.CostEstimateSlot{}, err
		}
		extras = append(extras, models.CostItem{
			ID:          itemID(slot.ID, "resource", res),
			Description: c.table.ResourceLabel(res),
			Cost:        cost,
			SlotID:      slot.ID,
		})
	}

	if len(out.Rooms) > 0 {
		out.Rooms[0].AdditionalCosts = append(out.Rooms[0].AdditionalCosts, extras...)
	} else {
		out.PerSlotCosts = append(out.PerSlotCosts, extras...)
	}

	out.RecomputeTotal()
	return out, nil
}

// itemID derives a stable line-item id so that recalculation produces the
// same ids and the merge can match items across versions.
func itemID(slotID, scope, kind string) string {
	return fmt.Sprintf("%s:%s:%s", slotID, scope, kind)
}
