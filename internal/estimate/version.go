package estimate

import (
	"fmt"
	"time"

	"tranzac/internal/models"
	"tranzac/internal/pricing"
)

// NewEstimate creates the aggregate root for a rental request. Versions are
// added separately; the aggregate is never hard-deleted.
func NewEstimate(rentalRequestID string, now time.Time) *models.CostEstimate {
	return &models.CostEstimate{
		RentalRequestID: rentalRequestID,
		Status:          models.StatusDraft,
		CurrentVersion:  -1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// AppendVersion snapshots the given slots as the next version of the
// estimate and makes it current. Version numbers are zero-based and
// gap-free: the new number is always the current length of the list.
func AppendVersion(est *models.CostEstimate, slots []models.CostEstimateSlot, totals models.Totals, label, createdBy string, now time.Time) *models.EstimateVersion {
	version := models.EstimateVersion{
		Version:       len(est.Versions),
		Label:         label,
		CostEstimates: CloneSlots(slots),
		TotalCost:     totals.GrandTotal,
		Tax:           totals.Tax,
		TotalWithTax:  totals.TotalWithTax,
		CreatedAt:     now,
		CreatedBy:     createdBy,
		StatusHistory: []models.StatusEvent{{
			Status:    models.StatusCreated,
			ChangedBy: systemActor(createdBy),
			Timestamp: now,
		}},
	}

	est.Versions = append(est.Versions, version)
	est.CurrentVersion = version.Version
	est.UpdatedAt = now
	return &est.Versions[len(est.Versions)-1]
}

func systemActor(createdBy string) string {
	if createdBy == "" {
		return "system"
	}
	return createdBy
}

// AppendStatusEvent records a status change on a version's audit trail.
// The history is append-only: prior events are never altered or removed.
func AppendStatusEvent(v *models.EstimateVersion, status, changedBy string, ts time.Time) {
	if ts.IsZero() {
		ts = time.Now()
	}
	v.StatusHistory = append(v.StatusHistory, models.StatusEvent{
		Status:    status,
		ChangedBy: changedBy,
		Timestamp: ts,
	})
}

// Transition moves the aggregate's status through the lifecycle
// draft -> sent -> {accepted, rejected}. Sending again after edits is
// allowed; terminal states are not.
func Transition(est *models.CostEstimate, to string) error {
	allowed := map[string][]string{
		models.StatusDraft: {models.StatusSent},
		models.StatusSent:  {models.StatusSent, models.StatusAccepted, models.StatusRejected},
	}
	for _, next := range allowed[est.Status] {
		if next == to {
			est.Status = to
			est.UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("%s -> %s: %w", est.Status, to, models.ErrInvalidTransition)
}

// RecomputeTotals re-derives every slot total and the version's grand
// total, tax and total-with-tax. Called after any line-item mutation so
// derived values are never stale.
func RecomputeTotals(v *models.EstimateVersion, taxRate float64) {
	for i := range v.CostEstimates {
		v.CostEstimates[i].RecomputeTotal()
	}
	totals := pricing.SumTotals(v.CostEstimates, taxRate)
	v.TotalCost = totals.GrandTotal
	v.Tax = totals.Tax
	v.TotalWithTax = totals.TotalWithTax
}

// CloneSlots deep-copies a slot list so a version snapshot never aliases
// the caller's data.
func CloneSlots(slots []models.CostEstimateSlot) []models.CostEstimateSlot {
	if slots == nil {
		return nil
	}
	out := make([]models.CostEstimateSlot, len(slots))
	for i := range slots {
		out[i] = cloneSlot(slots[i])
	}
	return out
}

func cloneSlot(s models.CostEstimateSlot) models.CostEstimateSlot {
	c := s
	c.Resources = append([]string(nil), s.Resources...)
	c.PerSlotCosts = cloneItems(s.PerSlotCosts)
	c.CustomLineItems = cloneItems(s.CustomLineItems)
	c.Rooms = make([]models.RoomCostLine, len(s.Rooms))
	for i := range s.Rooms {
		c.Rooms[i] = cloneRoom(s.Rooms[i])
	}
	return c
}

func cloneRoom(r models.RoomCostLine) models.RoomCostLine {
	c := r
	c.DaytimeCostItem = cloneItem(r.DaytimeCostItem)
	c.EveningCostItem = cloneItem(r.EveningCostItem)
	c.FullDayCostItem = cloneItem(r.FullDayCostItem)
	c.AdditionalCosts = cloneItems(r.AdditionalCosts)
	return c
}

func cloneItems(items []models.CostItem) []models.CostItem {
	if items == nil {
		return nil
	}
	return append([]models.CostItem(nil), items...)
}

func cloneItem(item *models.CostItem) *models.CostItem {
	if item == nil {
		return nil
	}
	c := *item
	return &c
}
