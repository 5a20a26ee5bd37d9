package models

// EstimateDocument is the presentation-shaped payload a PDF is rendered
// from. Monetary values arrive already rounded to cents; the renderer
// never does arithmetic.
type EstimateDocument struct {
	RentalRequestID  string         `json:"rentalRequestId"`
	Version          int            `json:"version"`
	OrganizationName string         `json:"organizationName"`
	ContactName      string         `json:"contactName"`
	EventTitle       string         `json:"eventTitle"`
	IssuedOn         string         `json:"issuedOn"`
	Slots            []DocumentSlot `json:"slots"`
	TotalCost        float64        `json:"totalCost"`
	Tax              float64        `json:"tax"`
	TotalWithTax     float64        `json:"totalWithTax"`
	CurrentDate      string         `json:"currentDate"`
}

// DocumentSlot is one dated booking with its formatted line items.
type DocumentSlot struct {
	Date      string         `json:"date"`
	TimeRange string         `json:"timeRange"`
	Title     string         `json:"title,omitempty"`
	Lines     []DocumentLine `json:"lines"`
	SlotTotal float64        `json:"slotTotal"`
}

// DocumentLine is a single billed line, description already expanded
// ("Living Room: 3h Daytime @ $40/hour").
type DocumentLine struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// EstimateEmail is everything the mailer needs to deliver one estimate.
type EstimateEmail struct {
	To          []string `json:"to"`
	Subject     string   `json:"subject"`
	Body        string   `json:"body"`
	Attachment  []byte   `json:"-"`
	AttachName  string   `json:"attachName"`
	ReplyTo     string   `json:"replyTo,omitempty"`
}
