package domain

import (
	"context"
	"time"

	"tranzac/internal/models"
)

type EstimateRepository interface {
	GetByRentalRequestID(ctx context.Context, rentalRequestID string) (*models.CostEstimate, error)
	Save(ctx context.Context, estimate *models.CostEstimate) error
	List(ctx context.Context, status string, limit int64) ([]*models.CostEstimate, error)
	Ping(ctx context.Context) error
}

type SessionRepository interface {
	GetSession(ctx context.Context, token string) (*models.Session, error)
	SetSession(ctx context.Context, session *models.Session, ttl time.Duration) error
	DeleteSession(ctx context.Context, token string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// CMSClient is the content-management backend holding rental requests and
// their workflow state.
type CMSClient interface {
	GetRentalRequest(ctx context.Context, id string) (*models.RentalRequest, error)
	GetBookingSlots(ctx context.Context, rentalRequestID string) ([]models.BookingSlot, error)
	UpdateWorkflowStatus(ctx context.Context, rentalRequestID, status string) error
	ListRentalRequests(ctx context.Context, workflowStatus string, limit int) ([]models.RentalRequest, error)
}

type Mailer interface {
	SendEstimate(ctx context.Context, msg models.EstimateEmail) error
}

type PDFGenerator interface {
	GenerateEstimatePDF(ctx context.Context, doc models.EstimateDocument) ([]byte, error)
}

type SyncWorker interface {
	EnqueueStatusSync(ctx context.Context, rentalRequestID, workflowStatus string) error
}

type EstimateService interface {
	CreateEstimate(ctx context.Context, rentalRequestID, label, createdBy string) (*models.CostEstimate, error)
	GetEstimate(ctx context.Context, rentalRequestID string) (*models.CostEstimate, error)
	GetVersion(ctx context.Context, rentalRequestID string, version int) (*models.EstimateVersion, error)
	CreateVersion(ctx context.Context, rentalRequestID, label, createdBy string) (*models.CostEstimate, error)
	ReplaceVersion(ctx context.Context, rentalRequestID string, version int, slots []models.CostEstimateSlot, changedBy string) (*models.EstimateVersion, error)
	UpdateVersionLabel(ctx context.Context, rentalRequestID string, version int, label, changedBy string) (*models.EstimateVersion, error)
	UpdateLineItem(ctx context.Context, rentalRequestID string, version int, slotID, itemID string, cost float64, changedBy string) (*models.EstimateVersion, error)
	RemoveLineItem(ctx context.Context, rentalRequestID string, version int, slotID, itemID string, changedBy string) (*models.EstimateVersion, error)
	AddCustomLineItem(ctx context.Context, rentalRequestID string, version int, slotID, description string, cost float64, changedBy string) (*models.EstimateVersion, error)
	Recalculate(ctx context.Context, rentalRequestID string, version int, changedBy string) (*models.EstimateVersion, error)
	ChangeStatus(ctx context.Context, rentalRequestID, status, changedBy string) (*models.CostEstimate, error)
	Accept(ctx context.Context, rentalRequestID, changedBy string) (*models.CostEstimate, error)
	Reject(ctx context.Context, rentalRequestID, changedBy string) (*models.CostEstimate, error)
}

type EstimateSender interface {
	SendEstimate(ctx context.Context, rentalRequestID string, version int, recipients []string, message, changedBy string) error
}
