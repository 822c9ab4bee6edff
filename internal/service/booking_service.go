package service

import (
	"context"
	"errors"
	"time"

	"xparking/internal/clock"
	"xparking/internal/config"
	"xparking/internal/database"
	"xparking/internal/domain"
	"xparking/internal/events"
	"xparking/internal/metrics"
	"xparking/internal/models"
	"xparking/internal/sepay"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidTimeRange = errors.New("booking end time must be after start time")
	ErrPastStart        = errors.New("booking start time is in the past")
)

// BookingCreated bundles the persisted booking with its payment intent.
type BookingCreated struct {
	Booking *models.Booking `json:"booking"`
	Payment *models.Payment `json:"payment"`
	QRURL   string          `json:"qr_url"`
}

type BookingService struct {
	db       *database.DB
	pricing  *Pricing
	eventBus domain.EventPublisher
	queue    domain.ReconcileQueue
	sepayCfg config.SePayConfig
	clock    clock.Clock
	logger   *zerolog.Logger
}

func NewBookingService(db *database.DB, pricing *Pricing, eventBus domain.EventPublisher, queue domain.ReconcileQueue, sepayCfg config.SePayConfig, clk clock.Clock, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		db:       db,
		pricing:  pricing,
		eventBus: eventBus,
		queue:    queue,
		sepayCfg: sepayCfg,
		clock:    clk,
		logger:   logger,
	}
}

// SetQueue wires the reconcile queue after construction. The worker that
// serves the queue sweeps expired bookings through this service, so the two
// cannot be built in one pass.
func (s *BookingService) SetQueue(queue domain.ReconcileQueue) {
	s.queue = queue
}

// CreateBooking reserves capacity for the window, prices it and opens a
// payment intent with a bank transfer reference and QR code. The capacity
// check and the insert run in one transaction, so concurrent requests cannot
// oversell the lot.
func (s *BookingService) CreateBooking(ctx context.Context, userID int64, plate string, start, end time.Time) (*BookingCreated, error) {
	normalized, err := models.NormalizePlate(plate)
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, ErrInvalidTimeRange
	}

	now := s.clock.Now()
	// Small grace period so a "book from now" request does not race the clock.
	if start.Before(now.Add(-5 * time.Minute)) {
		return nil, ErrPastStart
	}

	booking := &models.Booking{
		UserID:       userID,
		LicensePlate: normalized,
		StartTime:    start,
		EndTime:      end,
		Amount:       s.pricing.PriceFor(start, end),
		Status:       models.BookingPending,
	}

	if err := s.db.CreateBookingWithCapacity(ctx, booking, now); err != nil {
		return nil, err
	}

	ref := models.BookingPaymentRef(now, booking.ID)
	if err := s.db.SetBookingPaymentRef(ctx, booking.ID, ref, now); err != nil {
		return nil, err
	}
	booking.PaymentRef = ref

	payment := &models.Payment{
		PaymentRef: ref,
		BookingID:  booking.ID,
		Amount:     booking.Amount,
		Status:     models.PaymentPending,
	}
	if err := s.db.CreatePayment(ctx, payment, now); err != nil {
		return nil, err
	}

	metrics.IncBookingCreated()
	s.publishBookingEvent(events.EventBookingCreated, booking)
	s.wakeReconciler(ctx, ref)

	s.logger.Info().
		Int64("booking_id", booking.ID).
		Str("license_plate", booking.LicensePlate).
		Str("payment_ref", ref).
		Int64("amount", booking.Amount).
		Msg("Booking created")

	return &BookingCreated{
		Booking: booking,
		Payment: payment,
		QRURL:   sepay.QRImageURL(s.sepayCfg, ref, booking.Amount),
	}, nil
}

// CancelBooking cancels an active booking and voids its pending payment.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, userID, version int64) error {
	booking, err := s.db.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.UserID != userID {
		return database.ErrNotOwner
	}
	if !booking.Status.CanTransitionTo(models.BookingCancelled) {
		return database.ErrInvalidTransition
	}
	// Callers that track optimistic versions pass one; everyone else cancels
	// against the freshly loaded row.
	if version == 0 {
		version = booking.Version
	}

	now := s.clock.Now()
	if err := s.db.UpdateBookingStatusWithVersion(ctx, bookingID, version, models.BookingCancelled, now); err != nil {
		return err
	}
	booking.Status = models.BookingCancelled

	if booking.PaymentRef != "" {
		if err := s.voidPendingPayment(ctx, booking.PaymentRef, now); err != nil {
			s.logger.Warn().Err(err).
				Str("payment_ref", booking.PaymentRef).
				Msg("Failed to void payment for cancelled booking")
		}
	}

	s.publishBookingEvent(events.EventBookingCancelled, booking)
	return nil
}

func (s *BookingService) GetBooking(ctx context.Context, bookingID int64) (*models.Booking, error) {
	return s.db.GetBooking(ctx, bookingID)
}

func (s *BookingService) ListUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error) {
	return s.db.ListUserBookings(ctx, userID)
}

// ExpireOverdue sweeps bookings whose window passed without a check-in.
func (s *BookingService) ExpireOverdue(ctx context.Context) (int64, error) {
	expired, err := s.db.ExpireOverdueBookings(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	for _, booking := range expired {
		s.publishBookingEvent(events.EventBookingExpired, booking)
	}
	if len(expired) > 0 {
		s.logger.Info().Int("count", len(expired)).Msg("Expired overdue bookings")
	}
	return int64(len(expired)), nil
}

func (s *BookingService) voidPendingPayment(ctx context.Context, ref string, now time.Time) error {
	payment, err := s.db.GetPaymentByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, database.ErrPaymentNotFound) {
			return nil
		}
		return err
	}
	if payment.Status.Terminal() {
		return nil
	}
	return s.db.UpdatePaymentStatusWithVersion(ctx, payment.ID, payment.Version, models.PaymentCancelled, now)
}

func (s *BookingService) publishBookingEvent(eventType string, booking *models.Booking) {
	if s.eventBus == nil {
		return
	}
	err := s.eventBus.PublishJSON(eventType, events.BookingEventPayload{
		BookingID:    booking.ID,
		UserID:       booking.UserID,
		LicensePlate: booking.LicensePlate,
		Status:       string(booking.Status),
		StartTime:    booking.StartTime,
		EndTime:      booking.EndTime,
		Amount:       booking.Amount,
		PaymentRef:   booking.PaymentRef,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("Failed to publish booking event")
	}
}

func (s *BookingService) wakeReconciler(ctx context.Context, ref string) {
	if s.queue == nil {
		return
	}
	if err := s.queue.EnqueueRef(ctx, ref); err != nil {
		s.logger.Warn().Err(err).Str("payment_ref", ref).Msg("Failed to enqueue payment for reconciliation")
	}
}
