package service

import (
	"context"
	"errors"
	"time"

	"xparking/internal/clock"
	"xparking/internal/config"
	"xparking/internal/database"
	"xparking/internal/domain"
	"xparking/internal/metrics"
	"xparking/internal/models"
	"xparking/internal/sepay"

	"github.com/rs/zerolog"
)

const exitTimeLayout = "2006-01-02 15:04:05"

// ExitService answers the exit camera: is this plate allowed out, and if not,
// what does the driver still owe. Results are cached per plate so repeated
// camera frames do not hammer the database.
type ExitService struct {
	db       *database.DB
	pricing  *Pricing
	cache    domain.ExitCache
	sepayCfg config.SePayConfig
	location *time.Location
	ttl      time.Duration
	clock    clock.Clock
	logger   *zerolog.Logger
}

func NewExitService(db *database.DB, pricing *Pricing, cache domain.ExitCache, sepayCfg config.SePayConfig, location *time.Location, ttl time.Duration, clk clock.Clock, logger *zerolog.Logger) *ExitService {
	return &ExitService{
		db:       db,
		pricing:  pricing,
		cache:    cache,
		sepayCfg: sepayCfg,
		location: location,
		ttl:      ttl,
		clock:    clk,
		logger:   logger,
	}
}

// Verify builds the verification payload for a plate seen at the exit gate.
// Denial reasons are reported in a fixed order: vehicle not inside, missing
// ticket, unknown ticket, then ticket-level reasons.
func (s *ExitService) Verify(ctx context.Context, plate string) (*models.ExitVerification, error) {
	normalized, err := models.NormalizePlate(plate)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cached, ok, cacheErr := s.cache.GetExitVerification(ctx, normalized); cacheErr == nil && ok {
			return cached, nil
		}
	}

	v, err := s.verify(ctx, normalized)
	if err != nil {
		return nil, err
	}

	if v.AllowExit {
		metrics.IncExitDecision("allowed")
	} else {
		metrics.IncExitDecision("denied")
	}

	if s.cache != nil {
		if cacheErr := s.cache.SetExitVerification(ctx, normalized, v); cacheErr != nil {
			s.logger.Warn().Err(cacheErr).Str("license_plate", normalized).Msg("Failed to cache exit verification")
		}
	}

	return v, nil
}

func (s *ExitService) verify(ctx context.Context, plate string) (*models.ExitVerification, error) {
	now := s.clock.Now()

	vehicle, err := s.db.GetVehicleInParking(ctx, plate)
	if errors.Is(err, database.ErrVehicleNotFound) {
		return &models.ExitVerification{
			Found:        false,
			LicensePlate: plate,
			ErrorReason:  models.ReasonNotInParking,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	v := &models.ExitVerification{
		Found:        true,
		LicensePlate: plate,
		VehicleID:    vehicle.ID,
		SlotID:       vehicle.SlotID,
		TimeIn:       vehicle.EntryTime.In(s.location).Format(exitTimeLayout),
		TimeOut:      now.In(s.location).Format(exitTimeLayout),
		Minutes:      int64(now.Sub(vehicle.EntryTime).Minutes()),
		BookingID:    vehicle.BookingID,
		IsBooking:    vehicle.BookingID > 0,
	}

	if vehicle.TicketCode == "" {
		v.Found = false
		v.ErrorReason = models.ReasonNoTicket
		return v, nil
	}
	v.TicketCode = vehicle.TicketCode

	ticket, err := s.db.GetTicketByCode(ctx, vehicle.TicketCode)
	if errors.Is(err, database.ErrTicketNotFound) {
		v.Found = false
		v.ErrorReason = models.ReasonTicketNotFound
		return v, nil
	}
	if err != nil {
		return nil, err
	}

	if !ticket.TimeIn.IsZero() {
		v.TimeIn = ticket.TimeIn.In(s.location).Format(exitTimeLayout)
		v.Minutes = int64(now.Sub(ticket.TimeIn).Minutes())
	}

	if ticket.Status == models.TicketPending {
		if err := s.ensureWalkInCharge(ctx, vehicle, ticket, now, v); err != nil {
			return nil, err
		}
	} else if v.IsBooking {
		if err := s.ensureOverstayCharge(ctx, vehicle, ticket, now, v); err != nil {
			return nil, err
		}
	}

	v.Status = string(ticket.Status)
	v.Amount = ticket.Amount
	v.HasOverstay = ticket.OverstayAmount > 0
	v.OverstayMinutes = ticket.OverstayMinutes
	v.OverstayAmount = ticket.OverstayAmount
	if ticket.HasUnpaidOverstay() {
		v.OverstayPaymentRef = ticket.OverstayPaymentRef
		v.PaymentRef = ticket.OverstayPaymentRef
		v.QRURL = sepay.QRImageURL(s.sepayCfg, ticket.OverstayPaymentRef, ticket.OverstayAmount)
	}

	decision := ComputeExitDecision(ticket)
	v.AllowExit = decision.Allow
	v.ErrorReason = decision.Reason

	return v, nil
}

// ensureWalkInCharge prices an unpaid walk-in stay and keeps one open payment
// intent for it, reminting after the previous intent expired.
func (s *ExitService) ensureWalkInCharge(ctx context.Context, vehicle *models.Vehicle, ticket *models.Ticket, now time.Time, v *models.ExitVerification) error {
	pending, err := s.db.GetPendingPaymentByVehicle(ctx, vehicle.ID)
	if err != nil && !errors.Is(err, database.ErrPaymentNotFound) {
		return err
	}

	if pending != nil && now.Sub(pending.CreatedAt) > s.ttl {
		expireErr := s.db.UpdatePaymentStatusWithVersion(ctx, pending.ID, pending.Version, models.PaymentExpired, now)
		if expireErr != nil && !errors.Is(expireErr, database.ErrConcurrentModification) {
			return expireErr
		}
		pending = nil
	}

	if pending == nil {
		amount := s.pricing.PriceFor(vehicle.EntryTime, now)
		pending = &models.Payment{
			PaymentRef: models.ExitPaymentRef(now, vehicle.ID),
			VehicleID:  vehicle.ID,
			Amount:     amount,
			Status:     models.PaymentPending,
		}
		if err := s.db.CreatePayment(ctx, pending, now); err != nil {
			return err
		}
		if err := s.db.SetTicketAmount(ctx, ticket.ID, amount, now); err != nil {
			return err
		}
		ticket.Amount = amount
	} else {
		ticket.Amount = pending.Amount
	}

	v.PaymentRef = pending.PaymentRef
	v.QRURL = sepay.QRImageURL(s.sepayCfg, pending.PaymentRef, pending.Amount)
	return nil
}

// ensureOverstayCharge records an overstay charge the first time a booked
// vehicle is seen past its window, and remints the intent when the previous
// one lapsed unpaid.
func (s *ExitService) ensureOverstayCharge(ctx context.Context, vehicle *models.Vehicle, ticket *models.Ticket, now time.Time, v *models.ExitVerification) error {
	if vehicle.BookingID == 0 || ticket.OverstayPaid {
		return nil
	}

	booking, err := s.db.GetBooking(ctx, vehicle.BookingID)
	if err != nil {
		return err
	}
	if !now.After(booking.EndTime) {
		return nil
	}

	if ticket.OverstayAmount > 0 {
		payment, err := s.db.GetPaymentByRef(ctx, ticket.OverstayPaymentRef)
		if err != nil && !errors.Is(err, database.ErrPaymentNotFound) {
			return err
		}
		if payment != nil && payment.Status == models.PaymentPending && now.Sub(payment.CreatedAt) <= s.ttl {
			return nil
		}
		if payment != nil && payment.Status == models.PaymentPending {
			expireErr := s.db.UpdatePaymentStatusWithVersion(ctx, payment.ID, payment.Version, models.PaymentExpired, now)
			if expireErr != nil && !errors.Is(expireErr, database.ErrConcurrentModification) {
				return expireErr
			}
		}
	}

	minutes := int64(now.Sub(booking.EndTime).Minutes())
	amount := s.pricing.PriceFor(booking.EndTime, now)
	ref := models.ExitPaymentRef(now, vehicle.ID)

	payment := &models.Payment{
		PaymentRef: ref,
		VehicleID:  vehicle.ID,
		Amount:     amount,
		Status:     models.PaymentPending,
	}
	if err := s.db.CreatePayment(ctx, payment, now); err != nil {
		return err
	}
	if err := s.db.SetTicketOverstay(ctx, ticket.ID, minutes, amount, ref, now); err != nil {
		return err
	}

	ticket.OverstayMinutes = minutes
	ticket.OverstayAmount = amount
	ticket.OverstayPaymentRef = ref

	s.logger.Info().
		Str("license_plate", vehicle.LicensePlate).
		Int64("booking_id", booking.ID).
		Int64("overstay_minutes", minutes).
		Int64("overstay_amount", amount).
		Msg("Overstay charge recorded")

	return nil
}
