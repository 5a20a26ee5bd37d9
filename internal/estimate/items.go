package estimate

import (
	"fmt"

	"tranzac/internal/models"

	"github.com/google/uuid"
)

// ItemKind tags where in a slot a line item lives. Earlier revisions
// duck-typed their way through the nested arrays; the tagged reference
// makes the lookup explicit and indexable.
type ItemKind string

const (
	KindPerSlot        ItemKind = "perSlot"
	KindRoomDaytime    ItemKind = "daytime"
	KindRoomEvening    ItemKind = "evening"
	KindRoomFullDay    ItemKind = "fullDay"
	KindRoomAdditional ItemKind = "additional"
	KindCustom         ItemKind = "custom"
)

// ItemRef locates one line item within a version.
type ItemRef struct {
	Kind     ItemKind
	SlotID   string
	RoomSlug string
	ItemID   string
}

// itemIndex maps item ids to their location within a slot, built in the
// canonical search order (perSlotCosts, room period items, room additional
// costs, customLineItems); the first occurrence of an id wins.
func itemIndex(slot *models.CostEstimateSlot) map[string]ItemRef {
	idx := make(map[string]ItemRef)
	put := func(id string, ref ItemRef) {
		if id == "" {
			return
		}
		if _, exists := idx[id]; !exists {
			idx[id] = ref
		}
	}

	for i := range slot.PerSlotCosts {
		put(slot.PerSlotCosts[i].ID, ItemRef{Kind: KindPerSlot, SlotID: slot.ID, ItemID: slot.PerSlotCosts[i].ID})
	}
	for r := range slot.Rooms {
		room := &slot.Rooms[r]
		if room.DaytimeCostItem != nil {
			put(room.DaytimeCostItem.ID, ItemRef{Kind: KindRoomDaytime, SlotID: slot.ID, RoomSlug: room.RoomSlug, ItemID: room.DaytimeCostItem.ID})
		}
		if room.EveningCostItem != nil {
			put(room.EveningCostItem.ID, ItemRef{Kind: KindRoomEvening, SlotID: slot.ID, RoomSlug: room.RoomSlug, ItemID: room.EveningCostItem.ID})
		}
		if room.FullDayCostItem != nil {
			put(room.FullDayCostItem.ID, ItemRef{Kind: KindRoomFullDay, SlotID: slot.ID, RoomSlug: room.RoomSlug, ItemID: room.FullDayCostItem.ID})
		}
		for i := range room.AdditionalCosts {
			put(room.AdditionalCosts[i].ID, ItemRef{Kind: KindRoomAdditional, SlotID: slot.ID, RoomSlug: room.RoomSlug, ItemID: room.AdditionalCosts[i].ID})
		}
	}
	for i := range slot.CustomLineItems {
		put(slot.CustomLineItems[i].ID, ItemRef{Kind: KindCustom, SlotID: slot.ID, ItemID: slot.CustomLineItems[i].ID})
	}
	return idx
}

// Locate finds a line item by id within a version's slot.
func Locate(v *models.EstimateVersion, slotID, itemID string) (ItemRef, error) {
	slot := findSlot(v, slotID)
	if slot == nil {
		return ItemRef{}, fmt.Errorf("slot %q: %w", slotID, models.ErrNotFound)
	}
	ref, ok := itemIndex(slot)[itemID]
	if !ok {
		return ItemRef{}, fmt.Errorf("item %q in slot %q: %w", itemID, slotID, models.ErrItemNotFound)
	}
	return ref, nil
}

func findSlot(v *models.EstimateVersion, slotID string) *models.CostEstimateSlot {
	for i := range v.CostEstimates {
		if v.CostEstimates[i].ID == slotID {
			return &v.CostEstimates[i]
		}
	}
	return nil
}

func resolveItem(slot *models.CostEstimateSlot, ref ItemRef) *models.CostItem {
	switch ref.Kind {
	case KindPerSlot:
		return itemByID(slot.PerSlotCosts, ref.ItemID)
	case KindCustom:
		return itemByID(slot.CustomLineItems, ref.ItemID)
	case KindRoomDaytime, KindRoomEvening, KindRoomFullDay, KindRoomAdditional:
		room := roomBySlug(slot, ref.RoomSlug)
		if room == nil {
			return nil
		}
		switch ref.Kind {
		case KindRoomDaytime:
			return room.DaytimeCostItem
		case KindRoomEvening:
			return room.EveningCostItem
		case KindRoomFullDay:
			return room.FullDayCostItem
		default:
			return itemByID(room.AdditionalCosts, ref.ItemID)
		}
	}
	return nil
}

func itemByID(items []models.CostItem, id string) *models.CostItem {
	for i := range items {
		if items[i].ID == id {
			return &items[i]
		}
	}
	return nil
}

func roomBySlug(slot *models.CostEstimateSlot, slug string) *models.RoomCostLine {
	for i := range slot.Rooms {
		if slot.Rooms[i].RoomSlug == slug {
			return &slot.Rooms[i]
		}
	}
	return nil
}

// UpdateItem sets a line item's cost, marks it as manually overridden, and
// cascades the recompute of the slot total and version totals.
func UpdateItem(v *models.EstimateVersion, slotID, itemID string, newCost float64, taxRate float64) error {
	slot := findSlot(v, slotID)
	if slot == nil {
		return fmt.Errorf("slot %q: %w", slotID, models.ErrNotFound)
	}
	ref, err := Locate(v, slotID, itemID)
	if err != nil {
		return err
	}
	item := resolveItem(slot, ref)
	if item == nil {
		return fmt.Errorf("item %q in slot %q: %w", itemID, slotID, models.ErrItemNotFound)
	}

	item.Cost = newCost
	item.Manual = true

	RecomputeTotals(v, taxRate)
	return nil
}

// RemoveItem deletes a line item from wherever it lives and cascades the
// recompute. Removing a room's period price clears that period's billing.
func RemoveItem(v *models.EstimateVersion, slotID, itemID string, taxRate float64) error {
	slot := findSlot(v, slotID)
	if slot == nil {
		return fmt.Errorf("slot %q: %w", slotID, models.ErrNotFound)
	}
	ref, err := Locate(v, slotID, itemID)
	if err != nil {
		return err
	}

	switch ref.Kind {
	case KindPerSlot:
		slot.PerSlotCosts = removeByID(slot.PerSlotCosts, itemID)
	case KindCustom:
		slot.CustomLineItems = removeByID(slot.CustomLineItems, itemID)
	default:
		room := roomBySlug(slot, ref.RoomSlug)
		if room == nil {
			return fmt.Errorf("room %q in slot %q: %w", ref.RoomSlug, slotID, models.ErrItemNotFound)
		}
		switch ref.Kind {
		case KindRoomDaytime:
			room.DaytimeCostItem = nil
		case KindRoomEvening:
			room.EveningCostItem = nil
		case KindRoomFullDay:
			room.FullDayCostItem = nil
		case KindRoomAdditional:
			room.AdditionalCosts = removeByID(room.AdditionalCosts, itemID)
		}
	}

	RecomputeTotals(v, taxRate)
	return nil
}

func removeByID(items []models.CostItem, id string) []models.CostItem {
	out := items[:0]
	for i := range items {
		if items[i].ID != id {
			out = append(out, items[i])
		}
	}
	return out
}

// AddCustomItem appends a free-form line item to a slot and cascades the
// recompute. Custom items always count as manual: recalculation carries
// them forward untouched.
func AddCustomItem(v *models.EstimateVersion, slotID, description string, cost float64, taxRate float64) (*models.CostItem, error) {
	slot := findSlot(v, slotID)
	if slot == nil {
		return nil, fmt.Errorf("slot %q: %w", slotID, models.ErrNotFound)
	}

	item := models.CostItem{
		ID:          uuid.NewString(),
		Description: description,
		Cost:        cost,
		SlotID:      slotID,
		Manual:      true,
	}
	slot.CustomLineItems = append(slot.CustomLineItems, item)

	RecomputeTotals(v, taxRate)
	return &slot.CustomLineItems[len(slot.CustomLineItems)-1], nil
}
