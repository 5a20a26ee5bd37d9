package models

import (
	"time"
)

// Room is static reference data loaded from configuration.
type Room struct {
	ID   string `yaml:"id" json:"id" bson:"id"`
	Name string `yaml:"name" json:"name" bson:"name"`
	Slug string `yaml:"slug" json:"slug" bson:"slug"`
}

// RateType describes how a room period is billed.
type RateType string

const (
	RateFlat   RateType = "flat"
	RateHourly RateType = "hourly"
)

// Period is a time-of-day pricing bucket.
type Period string

const (
	PeriodMorning   Period = "morning"
	PeriodAfternoon Period = "afternoon"
	PeriodEvening   Period = "evening"
)

// BookingSlot is one bookable time window within a rental request,
// normalized from the CMS record.
type BookingSlot struct {
	ID                 string    `json:"id"`
	Date               string    `json:"date"` // yyyy-MM-dd in venue time
	Start              time.Time `json:"start"`
	End                time.Time `json:"end"`
	Rooms              []string  `json:"rooms"` // room slugs
	Private            bool      `json:"private"`
	Resources          []string  `json:"resources"`
	ExpectedAttendance int       `json:"expectedAttendance,omitempty"`
	Title              string    `json:"title,omitempty"`
	Description        string    `json:"description,omitempty"`
	EventType          string    `json:"eventType,omitempty"`
}

// CostItem is a single line item: a billed room period, a resource or
// condition surcharge, or a free-form custom entry. SlotID back-references
// the owning slot, never the reverse.
type CostItem struct {
	ID          string  `json:"id" bson:"id"`
	Description string  `json:"description" bson:"description"`
	Cost        float64 `json:"cost" bson:"cost"`
	SlotID      string  `json:"slotId,omitempty" bson:"slotid,omitempty"`
	// Manual marks an admin edit; recalculation never overwrites it.
	Manual bool `json:"manual,omitempty" bson:"manual,omitempty"`
}

// RoomCostLine is the computed cost of one room within one slot.
// Period prices are carried as CostItems so they can be edited and
// merged by stable id like every other line item.
type RoomCostLine struct {
	RoomSlug        string    `json:"roomSlug" bson:"roomslug"`
	RoomName        string    `json:"roomName" bson:"roomname"`
	DaytimeHours    float64   `json:"daytimeHours" bson:"daytimehours"`
	EveningHours    float64   `json:"eveningHours" bson:"eveninghours"`
	DaytimeRate     float64   `json:"daytimeRate" bson:"daytimerate"`
	EveningRate     float64   `json:"eveningRate" bson:"eveningrate"`
	DaytimeRateType RateType  `json:"daytimeRateType" bson:"daytimeratetype"`
	EveningRateType RateType  `json:"eveningRateType" bson:"eveningratetype"`
	DaytimeCostItem *CostItem `json:"daytimeCostItem,omitempty" bson:"daytimecostitem,omitempty"`
	EveningCostItem *CostItem `json:"eveningCostItem,omitempty" bson:"eveningcostitem,omitempty"`
	FullDayCostItem *CostItem `json:"fullDayCostItem,omitempty" bson:"fulldaycostitem,omitempty"`
	AdditionalCosts []CostItem `json:"additionalCosts" bson:"additionalcosts"`
	TotalCost       float64   `json:"totalCost" bson:"totalcost"`
}

// DaytimePrice returns the billed daytime amount, zero when the period
// does not apply.
func (r *RoomCostLine) DaytimePrice() float64 {
	if r.DaytimeCostItem == nil {
		return 0
	}
	return r.DaytimeCostItem.Cost
}

// EveningPrice returns the billed evening amount.
func (r *RoomCostLine) EveningPrice() float64 {
	if r.EveningCostItem == nil {
		return 0
	}
	return r.EveningCostItem.Cost
}

// FullDayPrice returns the flat full-day amount when it applies.
func (r *RoomCostLine) FullDayPrice() float64 {
	if r.FullDayCostItem == nil {
		return 0
	}
	return r.FullDayCostItem.Cost
}

// RecomputeTotal re-derives TotalCost from the line's constituents.
// Invariant: TotalCost == daytime + evening (or full day) + sum(additional).
func (r *RoomCostLine) RecomputeTotal() {
	total := 0.0
	if r.FullDayCostItem != nil {
		total += r.FullDayCostItem.Cost
	} else {
		total += r.DaytimePrice() + r.EveningPrice()
	}
	for i := range r.AdditionalCosts {
		total += r.AdditionalCosts[i].Cost
	}
	r.TotalCost = total
}

// CostEstimateSlot is the per-slot aggregate of computed costs.
type CostEstimateSlot struct {
	ID              string         `json:"id" bson:"id"`
	Date            string         `json:"date" bson:"date"`
	Start           time.Time      `json:"start" bson:"start"`
	End             time.Time      `json:"end" bson:"end"`
	Title           string         `json:"title,omitempty" bson:"title,omitempty"`
	EventType       string         `json:"eventType,omitempty" bson:"eventtype,omitempty"`
	Private         bool           `json:"private" bson:"private"`
	Resources       []string       `json:"resources,omitempty" bson:"resources,omitempty"`
	PerSlotCosts    []CostItem     `json:"perSlotCosts" bson:"perslotcosts"`
	Rooms           []RoomCostLine `json:"rooms" bson:"rooms"`
	CustomLineItems []CostItem     `json:"customLineItems" bson:"customlineitems"`
	SlotTotal       float64        `json:"slotTotal" bson:"slottotal"`
}

// RecomputeTotal cascades room totals and re-derives SlotTotal. Idempotent.
func (s *CostEstimateSlot) RecomputeTotal() {
	total := 0.0
	for i := range s.PerSlotCosts {
		total += s.PerSlotCosts[i].Cost
	}
	for i := range s.Rooms {
		s.Rooms[i].RecomputeTotal()
		total += s.Rooms[i].TotalCost
	}
	for i := range s.CustomLineItems {
		total += s.CustomLineItems[i].Cost
	}
	s.SlotTotal = total
}

// StatusEvent is one entry in the append-only status audit trail.
type StatusEvent struct {
	Status    string    `json:"status" bson:"status"`
	ChangedBy string    `json:"changedBy" bson:"changedby"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// EstimateVersion is one snapshot of a cost estimate. Version numbers are
// zero-based and gap-free within a rental request. Edits mutate the version
// document in place but never touch prior versions.
type EstimateVersion struct {
	Version       int                `json:"version" bson:"version"`
	Label         string             `json:"label,omitempty" bson:"label,omitempty"`
	CostEstimates []CostEstimateSlot `json:"costEstimates" bson:"costestimates"`
	TotalCost     float64            `json:"totalCost" bson:"totalcost"`
	Tax           float64            `json:"tax" bson:"tax"`
	TotalWithTax  float64            `json:"totalWithTax" bson:"totalwithtax"`
	StatusHistory []StatusEvent      `json:"statusHistory" bson:"statushistory"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdat"`
	CreatedBy     string             `json:"createdBy,omitempty" bson:"createdby,omitempty"`
}

// CostEstimate is the aggregate root, keyed by rental request. It owns its
// versions and is never hard-deleted.
type CostEstimate struct {
	RentalRequestID string            `json:"rentalRequestId" bson:"rentalrequestid"`
	Versions        []EstimateVersion `json:"versions" bson:"versions"`
	CurrentVersion  int               `json:"currentVersion" bson:"currentversion"`
	Status          string            `json:"status" bson:"status"`
	// Revision is the optimistic-concurrency token; every persisted write
	// must compare-and-swap on it.
	Revision  int64     `json:"revision" bson:"revision"`
	CreatedAt time.Time `json:"createdAt" bson:"createdat"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedat"`
}

// Version returns the version with the given number, or nil.
func (c *CostEstimate) Version(n int) *EstimateVersion {
	for i := range c.Versions {
		if c.Versions[i].Version == n {
			return &c.Versions[i]
		}
	}
	return nil
}

// Totals is the aggregated money summary for a set of slots.
type Totals struct {
	GrandTotal   float64 `json:"grandTotal"`
	Tax          float64 `json:"tax"`
	TotalWithTax float64 `json:"totalWithTax"`
}

// ResourceOption pairs a resource id with its display label.
type ResourceOption struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}
