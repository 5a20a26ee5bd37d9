package models

import "time"

// SyncTask is one queued workflow-status push to the CMS.
type SyncTask struct {
	ID              string    `json:"id"`
	RentalRequestID string    `json:"rental_request_id"`
	WorkflowStatus  string    `json:"workflow_status"`
	RetryCount      int       `json:"retry_count"`
	LastError       string    `json:"last_error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
