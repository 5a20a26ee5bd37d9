package models

import "time"

// RentalRequest is the CMS-side record an estimate is attached to. Only
// the fields the estimate workflow reads are mapped; the CMS document
// carries plenty more.
type RentalRequest struct {
	ID               string        `json:"id"`
	OrganizationName string        `json:"organizationName"`
	ContactName      string        `json:"contactName"`
	ContactEmail     string        `json:"contactEmail"`
	EventTitle       string        `json:"eventTitle"`
	EventType        string        `json:"eventType"`
	Private          bool          `json:"private"`
	WorkflowStatus   string        `json:"workflowStatus"`
	Slots            []BookingSlot `json:"slots"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}
