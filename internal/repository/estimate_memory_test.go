package repository

import (
	"context"
	"testing"
	"time"

	"tranzac/internal/estimate"
	"tranzac/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEstimateRepositorySaveAndLoad(t *testing.T) {
	repo := NewMemoryEstimateRepository()
	ctx := context.Background()

	est := estimate.NewEstimate("rental-1", time.Now())
	require.NoError(t, repo.Save(ctx, est))
	assert.Equal(t, int64(1), est.Revision)

	got, err := repo.GetByRentalRequestID(ctx, "rental-1")
	require.NoError(t, err)
	assert.Equal(t, "rental-1", got.RentalRequestID)
	assert.Equal(t, models.StatusDraft, got.Status)
}

func TestMemoryEstimateRepositoryNotFound(t *testing.T) {
	repo := NewMemoryEstimateRepository()

	_, err := repo.GetByRentalRequestID(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryEstimateRepositoryRevisionConflict(t *testing.T) {
	repo := NewMemoryEstimateRepository()
	ctx := context.Background()

	est := estimate.NewEstimate("rental-1", time.Now())
	require.NoError(t, repo.Save(ctx, est))

	a, err := repo.GetByRentalRequestID(ctx, "rental-1")
	require.NoError(t, err)
	b, err := repo.GetByRentalRequestID(ctx, "rental-1")
	require.NoError(t, err)

	a.Status = models.StatusSent
	require.NoError(t, repo.Save(ctx, a))

	b.Status = models.StatusRejected
	err = repo.Save(ctx, b)
	assert.ErrorIs(t, err, models.ErrConcurrentModification)

	got, err := repo.GetByRentalRequestID(ctx, "rental-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, got.Status)
}

func TestMemoryEstimateRepositoryStaleCreateConflicts(t *testing.T) {
	repo := NewMemoryEstimateRepository()
	ctx := context.Background()

	first := estimate.NewEstimate("rental-1", time.Now())
	require.NoError(t, repo.Save(ctx, first))

	second := estimate.NewEstimate("rental-1", time.Now())
	err := repo.Save(ctx, second)
	assert.ErrorIs(t, err, models.ErrConcurrentModification)
}

func TestMemoryEstimateRepositoryIsolation(t *testing.T) {
	repo := NewMemoryEstimateRepository()
	ctx := context.Background()

	est := estimate.NewEstimate("rental-1", time.Now())
	require.NoError(t, repo.Save(ctx, est))

	got, err := repo.GetByRentalRequestID(ctx, "rental-1")
	require.NoError(t, err)
	got.Status = models.StatusAccepted

	again, err := repo.GetByRentalRequestID(ctx, "rental-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, again.Status)
}

func TestMemoryEstimateRepositoryList(t *testing.T) {
	repo := NewMemoryEstimateRepository()
	ctx := context.Background()

	now := time.Now()
	a := estimate.NewEstimate("rental-a", now.Add(-time.Hour))
	require.NoError(t, repo.Save(ctx, a))
	b := estimate.NewEstimate("rental-b", now)
	b.Status = models.StatusSent
	require.NoError(t, repo.Save(ctx, b))

	all, err := repo.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "rental-b", all[0].RentalRequestID)

	sent, err := repo.List(ctx, models.StatusSent, 0)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "rental-b", sent[0].RentalRequestID)

	limited, err := repo.List(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
