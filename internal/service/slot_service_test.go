package service

import (
	"context"
	"testing"

	"xparking/internal/database"
	"xparking/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotServiceMaintenance(t *testing.T) {
	env := setupEnv(t, "A1", "A2")
	ctx := context.Background()

	slot, err := env.slots.SetMaintenance(ctx, "A1", true)
	require.NoError(t, err)
	assert.Equal(t, models.SlotMaintenance, slot.Status)

	slot, err = env.slots.SetMaintenance(ctx, "A1", false)
	require.NoError(t, err)
	assert.Equal(t, models.SlotEmpty, slot.Status)

	_, err = env.slots.SetMaintenance(ctx, "Z9", true)
	assert.ErrorIs(t, err, database.ErrSlotNotFound)
}

func TestSlotServiceList(t *testing.T) {
	env := setupEnv(t, "B2", "A1")

	slots, err := env.slots.List(context.Background())
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "A1", slots[0].Code)
	assert.Equal(t, "B2", slots[1].Code)
}
