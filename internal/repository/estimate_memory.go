package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tranzac/internal/estimate"
	"tranzac/internal/models"
)

// MemoryEstimateRepository mirrors the Mongo repository's semantics,
// revision check included, for tests and local development without a
// database.
type MemoryEstimateRepository struct {
	mu        sync.RWMutex
	estimates map[string]models.CostEstimate
}

func NewMemoryEstimateRepository() *MemoryEstimateRepository {
	return &MemoryEstimateRepository{
		estimates: make(map[string]models.CostEstimate),
	}
}

func (r *MemoryEstimateRepository) GetByRentalRequestID(ctx context.Context, rentalRequestID string) (*models.CostEstimate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.estimates[rentalRequestID]
	if !ok {
		return nil, fmt.Errorf("estimate for rental request %q: %w", rentalRequestID, models.ErrNotFound)
	}
	copied := clone(stored)
	return &copied, nil
}

func (r *MemoryEstimateRepository) Save(ctx context.Context, estimate *models.CostEstimate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.estimates[estimate.RentalRequestID]
	if exists && stored.Revision != estimate.Revision {
		return fmt.Errorf("estimate for rental request %q: %w", estimate.RentalRequestID, models.ErrConcurrentModification)
	}
	if !exists && estimate.Revision != 0 {
		return fmt.Errorf("estimate for rental request %q: %w", estimate.RentalRequestID, models.ErrConcurrentModification)
	}

	estimate.Revision++
	r.estimates[estimate.RentalRequestID] = clone(*estimate)
	return nil
}

func (r *MemoryEstimateRepository) List(ctx context.Context, status string, limit int64) ([]*models.CostEstimate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.CostEstimate
	for _, stored := range r.estimates {
		if status != "" && stored.Status != status {
			continue
		}
		copied := clone(stored)
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryEstimateRepository) Ping(ctx context.Context) error {
	return nil
}

// clone round-trips through the version snapshot helpers so stored state
// never aliases a caller's slices.
func clone(est models.CostEstimate) models.CostEstimate {
	out := est
	out.Versions = make([]models.EstimateVersion, len(est.Versions))
	for i, v := range est.Versions {
		cv := v
		cv.CostEstimates = estimate.CloneSlots(v.CostEstimates)
		cv.StatusHistory = append([]models.StatusEvent(nil), v.StatusHistory...)
		out.Versions[i] = cv
	}
	return out
}
