package database

import (
	"context"
	"os"
	"testing"
	"time"

	"xparking/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(os.Stdout)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func setupTestDBWithSlots(t *testing.T, codes ...string) *DB {
	t.Helper()
	db := setupTestDB(t)
	require.NoError(t, db.SyncSlots(context.Background(), codes))
	return db
}

func TestSyncSlotsIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SyncSlots(ctx, []string{"A1", "A2"}))
	require.NoError(t, db.SyncSlots(ctx, []string{"A1", "A2", "A3"}))

	slots, err := db.ListSlots(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, "A1", slots[0].Code)
	assert.Equal(t, models.SlotEmpty, slots[0].Status)
}

func TestSyncSlotsKeepsExistingStatus(t *testing.T) {
	db := setupTestDBWithSlots(t, "A1")
	ctx := context.Background()
	now := time.Now()

	slot, err := db.GetSlotByCode(ctx, "A1")
	require.NoError(t, err)
	require.NoError(t, db.SetSlotMaintenance(ctx, slot.ID, true, now))

	require.NoError(t, db.SyncSlots(ctx, []string{"A1"}))

	slot, err = db.GetSlotByCode(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, models.SlotMaintenance, slot.Status)
}
