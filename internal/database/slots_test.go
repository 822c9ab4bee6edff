package database

import (
	"context"
	"testing"
	"time"

	"xparking/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetSlotMaintenance(t *testing.T) {
	db := setupTestDBWithSlots(t, "A1")
	ctx := context.Background()
	now := time.Now()

	slot, err := db.GetSlotByCode(ctx, "A1")
	require.NoError(t, err)

	require.NoError(t, db.SetSlotMaintenance(ctx, slot.ID, true, now))

	slot, err = db.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SlotMaintenance, slot.Status)

	require.NoError(t, db.SetSlotMaintenance(ctx, slot.ID, false, now))
	slot, err = db.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SlotEmpty, slot.Status)
}

func TestSetSlotMaintenanceRejectsOccupied(t *testing.T) {
	db := setupTestDBWithSlots(t, "A1")
	ctx := context.Background()
	now := time.Now()

	slot, err := db.GetSlotByCode(ctx, "A1")
	require.NoError(t, err)

	_, err = db.CheckIn(ctx, CheckInParams{
		LicensePlate:  "59A123456",
		SlotID:        slot.ID,
		NewTicketCode: "VE00000001",
	}, now)
	require.NoError(t, err)

	err = db.SetSlotMaintenance(ctx, slot.ID, true, now)
	assert.ErrorIs(t, err, ErrSlotOccupied)
}

func TestSetSlotMaintenanceNotFound(t *testing.T) {
	db := setupTestDB(t)
	err := db.SetSlotMaintenance(context.Background(), 999, true, time.Now())
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestCountUsableSlots(t *testing.T) {
	db := setupTestDBWithSlots(t, "A1", "A2", "A3")
	ctx := context.Background()
	now := time.Now()

	count, err := db.CountUsableSlots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	slot, err := db.GetSlotByCode(ctx, "A2")
	require.NoError(t, err)
	require.NoError(t, db.SetSlotMaintenance(ctx, slot.ID, true, now))

	count, err = db.CountUsableSlots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestUpdateSlotStatusWithVersion(t *testing.T) {
	db := setupTestDBWithSlots(t, "A1")
	ctx := context.Background()
	now := time.Now()

	slot, err := db.GetSlotByCode(ctx, "A1")
	require.NoError(t, err)

	require.NoError(t, db.UpdateSlotStatusWithVersion(ctx, slot.ID, slot.Version, models.SlotReserved, now))

	// Stale version must be rejected.
	err = db.UpdateSlotStatusWithVersion(ctx, slot.ID, slot.Version, models.SlotEmpty, now)
	assert.ErrorIs(t, err, ErrConcurrentModification)
}
