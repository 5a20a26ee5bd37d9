package estimate

import (
	"tranzac/internal/models"
)

// Merge reconciles a freshly recalculated slot set into an existing
// version. The system-computed structure (slot list, dates, times, rooms)
// is authoritative; manual monetary edits and custom line items carry
// forward from the existing version. Matching is by stable item id, never
// by array position, so the result is order-independent within a slot.
func Merge(v *models.EstimateVersion, fresh []models.CostEstimateSlot, taxRate float64) {
	existing := make(map[string]*models.CostEstimateSlot, len(v.CostEstimates))
	for i := range v.CostEstimates {
		existing[v.CostEstimates[i].ID] = &v.CostEstimates[i]
	}

	merged := CloneSlots(fresh)
	for i := range merged {
		prior, ok := existing[merged[i].ID]
		if !ok {
			continue
		}
		mergeSlot(&merged[i], prior)
	}

	v.CostEstimates = merged
	RecomputeTotals(v, taxRate)
}

// mergeSlot overlays one prior slot's manual state onto its recalculated
// counterpart.
func mergeSlot(fresh *models.CostEstimateSlot, prior *models.CostEstimateSlot) {
	priorIdx := itemIndex(prior)

	overlay := func(item *models.CostItem) {
		if item == nil {
			return
		}
		ref, ok := priorIdx[item.ID]
		if !ok {
			return
		}
		if old := resolveItem(prior, ref); old != nil && old.Manual {
			item.Cost = old.Cost
			item.Manual = true
		}
	}

	for i := range fresh.PerSlotCosts {
		overlay(&fresh.PerSlotCosts[i])
	}
	for r := range fresh.Rooms {
		room := &fresh.Rooms[r]
		overlay(room.DaytimeCostItem)
		overlay(room.EveningCostItem)
		overlay(room.FullDayCostItem)
		for i := range room.AdditionalCosts {
			overlay(&room.AdditionalCosts[i])
		}
	}

	// Custom line items never come out of a recalculation; they carry
	// forward wholesale.
	fresh.CustomLineItems = cloneItems(prior.CustomLineItems)

	// Manual items the recalculation no longer produces (an admin-added
	// surcharge on a room that still exists, say) survive the merge.
	carryOrphans(fresh, prior, priorIdx)
}

func carryOrphans(fresh *models.CostEstimateSlot, prior *models.CostEstimateSlot, priorIdx map[string]ItemRef) {
	freshIdx := itemIndex(fresh)

	for id, ref := range priorIdx {
		if _, stillThere := freshIdx[id]; stillThere {
			continue
		}
		item := resolveItem(prior, ref)
		if item == nil || !item.Manual {
			continue
		}
		switch ref.Kind {
		case KindPerSlot:
			fresh.PerSlotCosts = append(fresh.PerSlotCosts, *item)
		case KindRoomAdditional:
			if room := roomBySlug(fresh, ref.RoomSlug); room != nil {
				room.AdditionalCosts = append(room.AdditionalCosts, *item)
			} else {
				// The room was removed from the booking; keep the manual
				// charge visible at slot level rather than dropping it.
				fresh.PerSlotCosts = append(fresh.PerSlotCosts, *item)
			}
		case KindRoomDaytime, KindRoomEvening, KindRoomFullDay:
			// Period prices only exist for rooms the calculator billed;
			// a manual price for a removed room/period does not survive
			// a structural change.
		case KindCustom:
			// Already carried forward wholesale.
		}
	}
}
