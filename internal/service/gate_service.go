package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"xparking/internal/clock"
	"xparking/internal/database"
	"xparking/internal/domain"
	"xparking/internal/events"
	"xparking/internal/metrics"
	"xparking/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ExitDeniedError carries the machine-readable reason the barrier stays shut.
type ExitDeniedError struct {
	Reason string
}

func (e *ExitDeniedError) Error() string {
	return fmt.Sprintf("exit denied: %s", e.Reason)
}

type GateService struct {
	db       *database.DB
	cache    domain.ExitCache
	eventBus domain.EventPublisher
	clock    clock.Clock
	logger   *zerolog.Logger
}

func NewGateService(db *database.DB, cache domain.ExitCache, eventBus domain.EventPublisher, clk clock.Clock, logger *zerolog.Logger) *GateService {
	return &GateService{
		db:       db,
		cache:    cache,
		eventBus: eventBus,
		clock:    clk,
		logger:   logger,
	}
}

// NewTicketCode mints a short ticket code for printing on the gate slip.
func NewTicketCode() string {
	id := uuid.New()
	return "VE" + strings.ToUpper(hex.EncodeToString(id[:4]))
}

// CheckIn admits a vehicle through the entry gate. A pre-issued ticket code
// is honored when given; otherwise a confirmed booking for the plate is
// consumed when one exists, and the entry falls back to a walk-in with a
// fresh pending ticket.
func (s *GateService) CheckIn(ctx context.Context, plate, slotCode string, bookingID int64, ticketCode string) (*database.CheckInResult, error) {
	normalized, err := models.NormalizePlate(plate)
	if err != nil {
		metrics.IncCheckIn("rejected")
		return nil, err
	}

	slot, err := s.db.GetSlotByCode(ctx, slotCode)
	if err != nil {
		metrics.IncCheckIn("rejected")
		return nil, err
	}

	result, err := s.db.CheckIn(ctx, database.CheckInParams{
		LicensePlate:  normalized,
		SlotID:        slot.ID,
		BookingID:     bookingID,
		TicketCode:    ticketCode,
		NewTicketCode: NewTicketCode(),
	}, s.clock.Now())
	if err != nil {
		metrics.IncCheckIn("rejected")
		return nil, err
	}

	metrics.IncCheckIn("success")
	s.invalidateCache(ctx, normalized)
	s.publishGateEvent(events.EventVehicleCheckedIn, result.Vehicle)

	s.logger.Info().
		Str("license_plate", normalized).
		Str("slot_code", slotCode).
		Str("ticket_code", result.Ticket.Code).
		Bool("walk_in", result.Booking == nil).
		Msg("Vehicle checked in")

	return result, nil
}

// CheckOut releases a vehicle through the exit gate. The ticket must be
// authorized to exit, otherwise the denial reason is returned and nothing
// changes. When the exit camera supplies a plate it has to match the one the
// ticket was issued for.
func (s *GateService) CheckOut(ctx context.Context, ticketCode, scannedPlate string) (*database.CheckOutResult, error) {
	ticket, err := s.db.GetTicketByCode(ctx, ticketCode)
	if err != nil {
		metrics.IncCheckOut("rejected")
		return nil, err
	}

	if scannedPlate != "" && !ticket.MatchesPlate(scannedPlate) {
		metrics.IncCheckOut("denied")
		return nil, &ExitDeniedError{Reason: models.ReasonPlateMismatch}
	}

	if decision := ComputeExitDecision(ticket); !decision.Allow {
		metrics.IncCheckOut("denied")
		return nil, &ExitDeniedError{Reason: decision.Reason}
	}

	result, err := s.db.CheckOut(ctx, ticketCode, s.clock.Now())
	if err != nil {
		metrics.IncCheckOut("rejected")
		return nil, err
	}

	metrics.IncCheckOut("success")
	s.invalidateCache(ctx, result.Vehicle.LicensePlate)
	s.publishGateEvent(events.EventVehicleCheckedOut, result.Vehicle)

	s.logger.Info().
		Str("license_plate", result.Vehicle.LicensePlate).
		Str("ticket_code", ticketCode).
		Msg("Vehicle checked out")

	return result, nil
}

func (s *GateService) invalidateCache(ctx context.Context, plate string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateExitVerification(ctx, plate); err != nil {
		s.logger.Warn().Err(err).Str("license_plate", plate).Msg("Failed to invalidate exit cache")
	}
}

func (s *GateService) publishGateEvent(eventType string, vehicle *models.Vehicle) {
	if s.eventBus == nil {
		return
	}
	err := s.eventBus.PublishJSON(eventType, events.GateEventPayload{
		VehicleID:    vehicle.ID,
		LicensePlate: vehicle.LicensePlate,
		SlotID:       vehicle.SlotID,
		BookingID:    vehicle.BookingID,
		TicketCode:   vehicle.TicketCode,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("Failed to publish gate event")
	}
}
