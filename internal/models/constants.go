package models

// Estimate lifecycle statuses. Canonical vocabulary: earlier snapshots also
// used "approved" and "workflowStatus"; those map onto these values.
const (
	StatusDraft    = "draft"
	StatusSent     = "sent"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// Status-history event emitted when a version is first created.
const StatusCreated = "created"

const (
	// DefaultTaxRate applies when the config does not override it (HST).
	DefaultTaxRate = 0.13

	// DefaultTimezone is the venue's fixed local timezone. All rate
	// boundaries and day-of-week decisions are evaluated in it.
	DefaultTimezone = "America/Toronto"

	// EveningStartHour is the daytime/evening billing boundary.
	EveningStartHour = 18

	// AfternoonStartHour splits the daytime super-period for rate lookup.
	AfternoonStartHour = 12

	// WeekendSurcharge and AfterHoursSurcharge are fixed per-slot add-ons.
	WeekendSurcharge    = 50.0
	AfterHoursSurcharge = 100.0
)

const (
	// DefaultPDFPollAttempts bounds the PDF status poll loop.
	DefaultPDFPollAttempts = 30

	// DefaultSessionTTL is the admin session lifetime in seconds.
	DefaultSessionTTL = 24 * 60 * 60

	// WorkerQueueSize is the CMS sync worker buffer.
	WorkerQueueSize = 1000
)

// DateKeyFormat is the calendar-date grouping key, venue-local.
const DateKeyFormat = "2006-01-02"
