package service

import (
	"context"

	"xparking/internal/clock"
	"xparking/internal/database"
	"xparking/internal/models"

	"github.com/rs/zerolog"
)

type SlotService struct {
	db     *database.DB
	clock  clock.Clock
	logger *zerolog.Logger
}

func NewSlotService(db *database.DB, clk clock.Clock, logger *zerolog.Logger) *SlotService {
	return &SlotService{db: db, clock: clk, logger: logger}
}

// Sync makes sure every configured slot code exists, leaving known slots
// untouched.
func (s *SlotService) Sync(ctx context.Context, codes []string) error {
	return s.db.SyncSlots(ctx, codes)
}

func (s *SlotService) List(ctx context.Context) ([]*models.Slot, error) {
	return s.db.ListSlots(ctx)
}

// SetMaintenance toggles the maintenance flag for a slot by code. Enabling
// it on an occupied slot is refused.
func (s *SlotService) SetMaintenance(ctx context.Context, code string, enable bool) (*models.Slot, error) {
	slot, err := s.db.GetSlotByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.db.SetSlotMaintenance(ctx, slot.ID, enable, s.clock.Now()); err != nil {
		return nil, err
	}

	s.logger.Info().Str("slot_code", code).Bool("maintenance", enable).Msg("Slot maintenance updated")
	return s.db.GetSlot(ctx, slot.ID)
}
