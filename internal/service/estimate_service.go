package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tranzac/internal/domain"
	"tranzac/internal/estimate"
	"tranzac/internal/events"
	"tranzac/internal/metrics"
	"tranzac/internal/models"
	"tranzac/internal/pricing"

	"github.com/rs/zerolog"
)

// workflow statuses pushed to the CMS when an estimate changes state.
const (
	workflowEstimateSent     = "estimate_sent"
	workflowEstimateAccepted = "estimate_accepted"
	workflowEstimateRejected = "estimate_rejected"
)

// EstimateService owns the estimate lifecycle: version creation, line-item
// edits, recalculation and status transitions. Mutations are serialized
// per rental request and written back through the repository's revision
// check.
type EstimateService struct {
	repo       domain.EstimateRepository
	cms        domain.CMSClient
	calc       *pricing.Calculator
	eventBus   domain.EventPublisher
	syncWorker domain.SyncWorker
	taxRate    float64
	locks      *keyedMutex
	logger     *zerolog.Logger
}

func NewEstimateService(
	repo domain.EstimateRepository,
	cms domain.CMSClient,
	calc *pricing.Calculator,
	eventBus domain.EventPublisher,
	syncWorker domain.SyncWorker,
	taxRate float64,
	logger *zerolog.Logger,
) *EstimateService {
	if taxRate <= 0 {
		taxRate = models.DefaultTaxRate
	}
	return &EstimateService{
		repo:       repo,
		cms:        cms,
		calc:       calc,
		eventBus:   eventBus,
		syncWorker: syncWorker,
		taxRate:    taxRate,
		locks:      newKeyedMutex(),
		logger:     logger,
	}
}

// TaxRate exposes the configured rate for presentation layers.
func (s *EstimateService) TaxRate() float64 { return s.taxRate }

// CreateEstimate computes a fresh version from the rental's current slots
// and appends it, creating the aggregate when this is the first estimate
// for the rental request.
func (s *EstimateService) CreateEstimate(ctx context.Context, rentalRequestID, label, createdBy string) (*models.CostEstimate, error) {
	if rentalRequestID == "" {
		return nil, fmt.Errorf("rentalRequestId is required: %w", models.ErrValidation)
	}

	s.locks.Lock(rentalRequestID)
	defer s.locks.Unlock(rentalRequestID)

	slots, err := s.cms.GetBookingSlots(ctx, rentalRequestID)
	if err != nil {
		return nil, err
	}
	priced, totals, err := pricing.Aggregate(s.calc, slots, s.taxRate)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	est, err := s.repo.GetByRentalRequestID(ctx, rentalRequestID)
	created := false
	switch {
	case errors.Is(err, models.ErrNotFound):
		est = estimate.NewEstimate(rentalRequestID, now)
		created = true
	case err != nil:
		return nil, err
	}

	v := estimate.AppendVersion(est, priced, totals, label, createdBy, now)
	if err := s.repo.Save(ctx, est); err != nil {
		return nil, err
	}

	eventType := events.EventVersionCreated
	if created {
		eventType = events.EventEstimateCreated
	}
	s.publish(eventType, est, v, createdBy)

	s.logger.Info().
		Str("rental_request_id", rentalRequestID).
		Int("version", v.Version).
		Float64("total", v.TotalCost).
		Msg("Estimate version created")
	return est, nil
}

// CreateVersion appends a freshly computed version to an existing estimate.
func (s *EstimateService) CreateVersion(ctx context.Context, rentalRequestID, label, createdBy string) (*models.CostEstimate, error) {
	s.locks.Lock(rentalRequestID)
	defer s.locks.Unlock(rentalRequestID)

	est, err := s.repo.GetByRentalRequestID(ctx, rentalRequestID)
	if err != nil {
		return nil, err
	}

	slots, err := s.cms.GetBookingSlots(ctx, rentalRequestID)
	if err != nil {
		return nil, err
	}
	priced, totals, err := pricing.Aggregate(s.calc, slots, s.taxRate)
	if err != nil {
		return nil, err
	}

	v := estimate.AppendVersion(est, priced, totals, label, createdBy, time.Now())
	if err := s.repo.Save(ctx, est); err != nil {
		return nil, err
	}

	s.publish(events.EventVersionCreated, est, v, createdBy)
	return est, nil
}

func (s *EstimateService) GetEstimate(ctx context.Context, rentalRequestID string) (*models.CostEstimate, error) {
	return s.repo.GetByRentalRequestID(ctx, rentalRequestID)
}

func (s *EstimateService) GetVersion(ctx context.Context, rentalRequestID string, version int) (*models.EstimateVersion, error) {
	est, err := s.repo.GetByRentalRequestID(ctx, rentalRequestID)
	if err != nil {
		return nil, err
	}
	v := est.Version(version)
	if v == nil {
		return nil, fmt.Errorf("version %d of estimate %q: %w", version, rentalRequestID, models.ErrNotFound)
	}
	return v, nil
}

// ReplaceVersion overwrites a version's slot set wholesale, the way the
// admin UI saves a hand-edited version. Totals are re-derived server-side;
// client-sent totals are ignored.
func (s *EstimateService) ReplaceVersion(ctx context.Context, rentalRequestID string, version int, slots []models.CostEstimateSlot, changedBy string) (*models.EstimateVersion, error) {
	return s.mutateVersion(ctx, rentalRequestID, version, changedBy, func(v *models.EstimateVersion) error {
		v.CostEstimates = estimate.CloneSlots(slots)
		estimate.RecomputeTotals(v, s.taxRate)
		return nil
	})
}

// UpdateLineItem sets one line item's cost and marks it manual.
// UpdateVersionLabel renames a version without touching its line items.
func (s *EstimateService) UpdateVersionLabel(ctx context.Context, rentalRequestID string, version int, label, changedBy string) (*models.EstimateVersion, error) {
	return s.mutateVersion(ctx, rentalRequestID, version, changedBy, func(v *models.EstimateVersion) error {
		v.Label = label
		return nil
	})
}

func (s *EstimateService) UpdateLineItem(ctx context.Context, rentalRequestID string, version int, slotID, itemID string, cost float64, changedBy string) (*models.EstimateVersion, error) {
	return s.mutateVersion(ctx, rentalRequestID, version, changedBy, func(v *models.EstimateVersion) error {
		return estimate.UpdateItem(v, slotID, itemID, cost, s.taxRate)
	})
}

// RemoveLineItem deletes one line item.
func (s *EstimateService) RemoveLineItem(ctx context.Context, rentalRequestID string, version int, slotID, itemID string, changedBy string) (*models.EstimateVersion, error) {
	return s.mutateVersion(ctx, rentalRequestID, version, changedBy, func(v *models.EstimateVersion) error {
		return estimate.RemoveItem(v, slotID, itemID, s.taxRate)
	})
}

// AddCustomLineItem appends a free-form line item to a slot.
func (s *EstimateService) AddCustomLineItem(ctx context.Context, rentalRequestID string, version int, slotID, description string, cost float64, changedBy string) (*models.EstimateVersion, error) {
	if description == "" {
		return nil, fmt.Errorf("description is required: %w", models.ErrValidation)
	}
	return s.mutateVersion(ctx, rentalRequestID, version, changedBy, func(v *models.EstimateVersion) error {
		_, err := estimate.AddCustomItem(v, slotID, description, cost, s.taxRate)
		return err
	})
}

// Recalculate reprices a version from the rental's current slots, keeping
// manual edits and custom line items.
func (s *EstimateService) Recalculate(ctx context.Context, rentalRequestID string, version int, changedBy string) (*models.EstimateVersion, error) {
	slots, err := s.cms.GetBookingSlots(ctx, rentalRequestID)
	if err != nil {
		metrics.IncRecalculation("error")
		return nil, err
	}

	v, err := s.mutateVersion(ctx, rentalRequestID, version, changedBy, func(v *models.EstimateVersion) error {
		fresh, _, err := pricing.Aggregate(s.calc, slots, s.taxRate)
		if err != nil {
			return err
		}
		estimate.Merge(v, fresh, s.taxRate)
		return nil
	})
	if err != nil {
		metrics.IncRecalculation("error")
		return nil, err
	}

	metrics.IncRecalculation("ok")
	if s.eventBus != nil {
		_ = s.eventBus.PublishJSON(events.EventRecalculated, events.EstimateEventPayload{
			RentalRequestID: rentalRequestID,
			Version:         v.Version,
			TotalCost:       v.TotalCost,
			TotalWithTax:    v.TotalWithTax,
			ChangedBy:       changedBy,
		})
	}
	return v, nil
}

// ChangeStatus moves the estimate through its lifecycle and records the
// event on the current version's history.
func (s *EstimateService) ChangeStatus(ctx context.Context, rentalRequestID, status, changedBy string) (*models.CostEstimate, error) {
	s.locks.Lock(rentalRequestID)
	defer s.locks.Unlock(rentalRequestID)

	est, err := s.repo.GetByRentalRequestID(ctx, rentalRequestID)
	if err != nil {
		return nil, err
	}

	if err := estimate.Transition(est, status); err != nil {
		return nil, err
	}
	if v := est.Version(est.CurrentVersion); v != nil {
		estimate.AppendStatusEvent(v, status, changedBy, time.Now())
	}

	if err := s.repo.Save(ctx, est); err != nil {
		return nil, err
	}

	s.afterStatusChange(ctx, est, status, changedBy)
	return est, nil
}

func (s *EstimateService) Accept(ctx context.Context, rentalRequestID, changedBy string) (*models.CostEstimate, error) {
	return s.ChangeStatus(ctx, rentalRequestID, models.StatusAccepted, changedBy)
}

func (s *EstimateService) Reject(ctx context.Context, rentalRequestID, changedBy string) (*models.CostEstimate, error) {
	return s.ChangeStatus(ctx, rentalRequestID, models.StatusRejected, changedBy)
}

func (s *EstimateService) afterStatusChange(ctx context.Context, est *models.CostEstimate, status, changedBy string) {
	var eventType, workflow string
	switch status {
	case models.StatusSent:
		eventType, workflow = events.EventEstimateSent, workflowEstimateSent
	case models.StatusAccepted:
		eventType, workflow = events.EventEstimateAccepted, workflowEstimateAccepted
	case models.StatusRejected:
		eventType, workflow = events.EventEstimateRejected, workflowEstimateRejected
	default:
		eventType = events.EventEstimateUpdated
	}

	s.publish(eventType, est, est.Version(est.CurrentVersion), changedBy)

	if workflow != "" && s.syncWorker != nil {
		if err := s.syncWorker.EnqueueStatusSync(ctx, est.RentalRequestID, workflow); err != nil {
			s.logger.Error().Err(err).
				Str("rental_request_id", est.RentalRequestID).
				Msg("Failed to enqueue workflow sync")
		}
	}
}

// mutateVersion runs one locked load-mutate-save cycle against a version.
func (s *EstimateService) mutateVersion(ctx context.Context, rentalRequestID string, version int, changedBy string, mutate func(*models.EstimateVersion) error) (*models.EstimateVersion, error) {
	s.locks.Lock(rentalRequestID)
	defer s.locks.Unlock(rentalRequestID)

	est, err := s.repo.GetByRentalRequestID(ctx, rentalRequestID)
	if err != nil {
		return nil, err
	}
	v := est.Version(version)
	if v == nil {
		return nil, fmt.Errorf("version %d of estimate %q: %w", version, rentalRequestID, models.ErrNotFound)
	}

	if err := mutate(v); err != nil {
		return nil, err
	}
	est.UpdatedAt = time.Now()

	if err := s.repo.Save(ctx, est); err != nil {
		return nil, err
	}

	s.publish(events.EventEstimateUpdated, est, v, changedBy)
	return v, nil
}

func (s *EstimateService) publish(eventType string, est *models.CostEstimate, v *models.EstimateVersion, changedBy string) {
	if s.eventBus == nil {
		return
	}
	payload := events.EstimateEventPayload{
		RentalRequestID: est.RentalRequestID,
		Status:          est.Status,
		ChangedBy:       changedBy,
	}
	if v != nil {
		payload.Version = v.Version
		payload.TotalCost = v.TotalCost
		payload.TotalWithTax = v.TotalWithTax
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("Failed to publish event")
	}
}
