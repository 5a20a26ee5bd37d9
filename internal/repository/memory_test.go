package repository

import (
	"context"
	"testing"
	"time"

	"tranzac/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionRepository(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()

	t.Run("SetAndGetSession", func(t *testing.T) {
		session := &models.Session{Token: "tok-1", UserID: "u-1"}
		require.NoError(t, repo.SetSession(ctx, session, time.Hour))

		got, err := repo.GetSession(ctx, "tok-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "u-1", got.UserID)
	})

	t.Run("ExpiredSessionIsGone", func(t *testing.T) {
		session := &models.Session{Token: "tok-2", UserID: "u-2"}
		require.NoError(t, repo.SetSession(ctx, session, -time.Minute))

		got, err := repo.GetSession(ctx, "tok-2")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("DeleteSession", func(t *testing.T) {
		session := &models.Session{Token: "tok-3", UserID: "u-3"}
		require.NoError(t, repo.SetSession(ctx, session, time.Hour))
		require.NoError(t, repo.DeleteSession(ctx, "tok-3"))

		got, _ := repo.GetSession(ctx, "tok-3")
		assert.Nil(t, got)
	})

	t.Run("RateLimit", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			allowed, err := repo.CheckRateLimit(ctx, "k", 5, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed)
		}
		allowed, err := repo.CheckRateLimit(ctx, "k", 5, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)
	})
}
