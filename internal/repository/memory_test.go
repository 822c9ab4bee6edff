package repository

import (
	"context"
	"testing"
	"time"

	"xparking/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryExitCache(t *testing.T) {
	cache := NewMemoryExitCache(50 * time.Millisecond)
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		v := &models.ExitVerification{Found: true, TicketCode: "VEDEADBEEF", LicensePlate: "59A123456"}
		require.NoError(t, cache.SetExitVerification(ctx, "59A123456", v))

		got, ok, err := cache.GetExitVerification(ctx, "59A123456")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "VEDEADBEEF", got.TicketCode)
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		_, ok, err := cache.GetExitVerification(ctx, "99Z999999")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Expiry", func(t *testing.T) {
		v := &models.ExitVerification{Found: true, LicensePlate: "51B777777"}
		require.NoError(t, cache.SetExitVerification(ctx, "51B777777", v))

		time.Sleep(60 * time.Millisecond)

		_, ok, err := cache.GetExitVerification(ctx, "51B777777")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Invalidate", func(t *testing.T) {
		v := &models.ExitVerification{Found: true, LicensePlate: "30F111111"}
		require.NoError(t, cache.SetExitVerification(ctx, "30F111111", v))
		require.NoError(t, cache.InvalidateExitVerification(ctx, "30F111111"))

		_, ok, _ := cache.GetExitVerification(ctx, "30F111111")
		assert.False(t, ok)
	})
}
