package repository

import (
	"context"
	"testing"
	"time"

	"xparking/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisExitCache(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	defer client.Close()

	cache := NewRedisExitCache(client, 5*time.Minute)
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		v := &models.ExitVerification{
			Found:        true,
			TicketCode:   "VE1A2B3C4D",
			LicensePlate: "59A123456",
			AllowExit:    true,
		}

		err := cache.SetExitVerification(ctx, "59A123456", v)
		require.NoError(t, err)

		got, ok, err := cache.GetExitVerification(ctx, "59A123456")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, v.TicketCode, got.TicketCode)
		assert.True(t, got.AllowExit)
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		got, ok, err := cache.GetExitVerification(ctx, "99Z999999")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("Expiry", func(t *testing.T) {
		v := &models.ExitVerification{Found: true, LicensePlate: "51B777777"}
		require.NoError(t, cache.SetExitVerification(ctx, "51B777777", v))

		s.FastForward(5*time.Minute + time.Second)

		_, ok, err := cache.GetExitVerification(ctx, "51B777777")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Invalidate", func(t *testing.T) {
		v := &models.ExitVerification{Found: true, LicensePlate: "30F111111"}
		require.NoError(t, cache.SetExitVerification(ctx, "30F111111", v))

		err := cache.InvalidateExitVerification(ctx, "30F111111")
		require.NoError(t, err)

		_, ok, _ := cache.GetExitVerification(ctx, "30F111111")
		assert.False(t, ok)
	})

	t.Run("NilClient", func(t *testing.T) {
		cache := NewRedisExitCache(nil, time.Minute)
		_, _, err := cache.GetExitVerification(ctx, "59A123456")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "redis client is nil")
	})

	t.Run("Ping", func(t *testing.T) {
		err := Ping(ctx, client)
		assert.NoError(t, err)
	})

	t.Run("Close", func(t *testing.T) {
		err := Close(client)
		assert.NoError(t, err)
	})
}
