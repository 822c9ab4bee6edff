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

type PaymentService struct {
	db       *database.DB
	feed     sepay.FeedClient
	matcher  sepay.Matcher
	cache    domain.ExitCache
	eventBus domain.EventPublisher
	sepayCfg config.SePayConfig
	location *time.Location
	ttl      time.Duration
	feedSize int
	clock    clock.Clock
	logger   *zerolog.Logger
}

func NewPaymentService(db *database.DB, feed sepay.FeedClient, matcher sepay.Matcher, cache domain.ExitCache, eventBus domain.EventPublisher, sepayCfg config.SePayConfig, location *time.Location, ttl time.Duration, clk clock.Clock, logger *zerolog.Logger) *PaymentService {
	feedSize := sepayCfg.FeedLimit
	if feedSize <= 0 {
		feedSize = 20
	}
	return &PaymentService{
		db:       db,
		feed:     feed,
		matcher:  matcher,
		cache:    cache,
		eventBus: eventBus,
		sepayCfg: sepayCfg,
		location: location,
		ttl:      ttl,
		feedSize: feedSize,
		clock:    clk,
		logger:   logger,
	}
}

// PaymentIntent bundles a fresh payment with the QR link a payer scans.
type PaymentIntent struct {
	Payment *models.Payment `json:"payment"`
	QRURL   string          `json:"qr_url"`
}

var ErrIntentTarget = errors.New("payment intent needs exactly one of booking id or vehicle id")

// CreateIntent opens a pending payment for a booking or a vehicle. The
// reference routes settlement back to its owner during reconciliation.
func (s *PaymentService) CreateIntent(ctx context.Context, amount, bookingID, vehicleID int64) (*PaymentIntent, error) {
	if amount <= 0 {
		return nil, ErrIntentTarget
	}
	if (bookingID > 0) == (vehicleID > 0) {
		return nil, ErrIntentTarget
	}

	now := s.clock.Now()
	payment := &models.Payment{
		Amount: amount,
		Status: models.PaymentPending,
	}
	if bookingID > 0 {
		if _, err := s.db.GetBooking(ctx, bookingID); err != nil {
			return nil, err
		}
		payment.BookingID = bookingID
		payment.PaymentRef = models.BookingPaymentRef(now, bookingID)
	} else {
		if _, err := s.db.GetVehicle(ctx, vehicleID); err != nil {
			return nil, err
		}
		payment.VehicleID = vehicleID
		payment.PaymentRef = models.ExitPaymentRef(now, vehicleID)
	}

	if err := s.db.CreatePayment(ctx, payment, now); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("payment_ref", payment.PaymentRef).
		Int64("amount", amount).
		Msg("Payment intent created")

	return &PaymentIntent{
		Payment: payment,
		QRURL:   sepay.QRImageURL(s.sepayCfg, payment.PaymentRef, amount),
	}, nil
}

// Status returns the payment for ref, expiring it lazily when its TTL passed
// while it was still pending.
func (s *PaymentService) Status(ctx context.Context, ref string) (*models.Payment, error) {
	payment, err := s.db.GetPaymentByRef(ctx, ref)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if payment.Status == models.PaymentPending && now.Sub(payment.CreatedAt) > s.ttl {
		err := s.db.UpdatePaymentStatusWithVersion(ctx, payment.ID, payment.Version, models.PaymentExpired, now)
		if err != nil && !errors.Is(err, database.ErrConcurrentModification) {
			return nil, err
		}
		if err == nil {
			payment.Status = models.PaymentExpired
			s.publishPaymentEvent(events.EventPaymentExpired, payment)
		}
		return s.db.GetPaymentByRef(ctx, ref)
	}

	return payment, nil
}

// Reconcile checks the bank feed for a transfer matching the pending payment
// and completes it on a hit. Returns the payment in its resulting state and
// whether this call settled it.
func (s *PaymentService) Reconcile(ctx context.Context, ref string) (*models.Payment, bool, error) {
	payment, err := s.Status(ctx, ref)
	if err != nil {
		return nil, false, err
	}
	if payment.Status != models.PaymentPending {
		metrics.IncReconcile("skipped")
		return payment, false, nil
	}

	txns, err := s.feed.RecentTransactions(ctx, s.feedSize)
	if err != nil {
		metrics.IncReconcile("feed_error")
		return payment, false, err
	}

	txn, ok := s.matcher.Match(txns, payment.PaymentRef, payment.Amount, s.clock.Now(), s.location)
	if !ok {
		metrics.IncReconcile("no_match")
		return payment, false, nil
	}

	if err := s.Complete(ctx, payment, txn.ID); err != nil {
		if errors.Is(err, database.ErrConcurrentModification) {
			// Another reconciler settled it first.
			metrics.IncReconcile("skipped")
			settled, getErr := s.db.GetPaymentByRef(ctx, ref)
			if getErr != nil {
				return payment, false, getErr
			}
			return settled, false, nil
		}
		metrics.IncReconcile("error")
		return payment, false, err
	}

	metrics.IncReconcile("matched")
	settled, err := s.db.GetPaymentByRef(ctx, ref)
	if err != nil {
		return payment, true, err
	}
	return settled, true, nil
}

// Complete marks the payment completed and settles the entity its reference
// routes to: a booking gets confirmed with a paid ticket issued, a vehicle
// gets its walk-in ticket paid or its overstay charge cleared.
func (s *PaymentService) Complete(ctx context.Context, payment *models.Payment, bankTxnID string) error {
	now := s.clock.Now()
	if err := s.db.CompletePaymentWithVersion(ctx, payment.ID, payment.Version, bankTxnID, now); err != nil {
		return err
	}
	payment.Status = models.PaymentCompleted
	payment.BankTxnID = bankTxnID

	var settleErr error
	var path string
	if models.IsBookingRef(payment.PaymentRef) {
		path = "booking"
		settleErr = s.settleBooking(ctx, payment, now)
	} else {
		path = "vehicle"
		settleErr = s.settleVehicle(ctx, payment, now)
	}
	if settleErr != nil {
		return settleErr
	}

	metrics.IncPaymentCompleted(path)
	s.publishPaymentEvent(events.EventPaymentCompleted, payment)

	s.logger.Info().
		Str("payment_ref", payment.PaymentRef).
		Str("bank_txn_id", bankTxnID).
		Str("path", path).
		Int64("amount", payment.Amount).
		Msg("Payment completed")

	return nil
}

// Cancel voids a payment. A completed payment cannot be cancelled; an
// already-cancelled one is a no-op. A pending payment whose TTL has lapsed
// finalizes as expired instead of cancelled, and a linked booking is
// cancelled alongside either way.
func (s *PaymentService) Cancel(ctx context.Context, ref string) (*models.Payment, error) {
	payment, err := s.db.GetPaymentByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	switch payment.Status {
	case models.PaymentCompleted:
		return nil, database.ErrInvalidTransition
	case models.PaymentCancelled:
		return payment, nil
	}

	now := s.clock.Now()
	next := models.PaymentCancelled
	if now.Sub(payment.CreatedAt) >= s.ttl {
		next = models.PaymentExpired
	}
	if err := s.db.UpdatePaymentStatusWithVersion(ctx, payment.ID, payment.Version, next, now); err != nil {
		return nil, err
	}
	payment.Status = next

	if payment.BookingID > 0 {
		if err := s.cancelLinkedBooking(ctx, payment.BookingID, now); err != nil {
			s.logger.Warn().Err(err).
				Int64("booking_id", payment.BookingID).
				Msg("Failed to cancel booking for voided payment")
		}
	}

	if next == models.PaymentExpired {
		s.publishPaymentEvent(events.EventPaymentExpired, payment)
	}

	return s.db.GetPaymentByRef(ctx, ref)
}

func (s *PaymentService) cancelLinkedBooking(ctx context.Context, bookingID int64, now time.Time) error {
	booking, err := s.db.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if !booking.Status.CanTransitionTo(models.BookingCancelled) {
		return nil
	}
	if err := s.db.UpdateBookingStatusWithVersion(ctx, booking.ID, booking.Version, models.BookingCancelled, now); err != nil {
		return err
	}
	booking.Status = models.BookingCancelled
	s.publishBookingEvent(events.EventBookingCancelled, booking)
	return nil
}

func (s *PaymentService) publishBookingEvent(eventType string, booking *models.Booking) {
	if s.eventBus == nil {
		return
	}
	_ = s.eventBus.PublishJSON(eventType, events.BookingEventPayload{
		BookingID:    booking.ID,
		UserID:       booking.UserID,
		LicensePlate: booking.LicensePlate,
		Status:       string(booking.Status),
		StartTime:    booking.StartTime,
		EndTime:      booking.EndTime,
		PaymentRef:   booking.PaymentRef,
	})
}

// ExpireOverdue sweeps pending payments older than the TTL.
func (s *PaymentService) ExpireOverdue(ctx context.Context) (int64, error) {
	now := s.clock.Now()
	n, err := s.db.ExpireOverduePayments(ctx, now.Add(-s.ttl), now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info().Int64("count", n).Msg("Expired overdue payments")
	}
	return n, nil
}

func (s *PaymentService) settleBooking(ctx context.Context, payment *models.Payment, now time.Time) error {
	booking, err := s.db.GetBooking(ctx, payment.BookingID)
	if err != nil {
		return err
	}
	if booking.Status == models.BookingPending {
		if err := s.db.UpdateBookingStatusWithVersion(ctx, booking.ID, booking.Version, models.BookingConfirmed, now); err != nil {
			return err
		}
		booking.Status = models.BookingConfirmed
		s.publishBookingEvent(events.EventBookingConfirmed, booking)
	}

	if _, err := s.db.IssueBookingTicket(ctx, booking.ID, NewTicketCode(), booking.Amount, booking.StartTime, now); err != nil {
		return err
	}

	s.invalidateCache(ctx, booking.LicensePlate)
	return nil
}

func (s *PaymentService) settleVehicle(ctx context.Context, payment *models.Payment, now time.Time) error {
	vehicle, exited, err := s.db.SettleExitPayment(ctx, payment.VehicleID, payment.PaymentRef, now)
	if err != nil {
		return err
	}

	if exited {
		s.publishGateEvent(events.EventVehicleCheckedOut, vehicle)
	}
	s.invalidateCache(ctx, vehicle.LicensePlate)
	return nil
}

func (s *PaymentService) publishGateEvent(eventType string, vehicle *models.Vehicle) {
	if s.eventBus == nil {
		return
	}
	_ = s.eventBus.PublishJSON(eventType, events.GateEventPayload{
		VehicleID:    vehicle.ID,
		LicensePlate: vehicle.LicensePlate,
		SlotID:       vehicle.SlotID,
		BookingID:    vehicle.BookingID,
		TicketCode:   vehicle.TicketCode,
	})
}

func (s *PaymentService) invalidateCache(ctx context.Context, plate string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateExitVerification(ctx, plate); err != nil {
		s.logger.Warn().Err(err).Str("license_plate", plate).Msg("Failed to invalidate exit cache")
	}
}

func (s *PaymentService) publishPaymentEvent(eventType string, payment *models.Payment) {
	if s.eventBus == nil {
		return
	}
	err := s.eventBus.PublishJSON(eventType, events.PaymentEventPayload{
		PaymentRef: payment.PaymentRef,
		BookingID:  payment.BookingID,
		VehicleID:  payment.VehicleID,
		Amount:     payment.Amount,
		Status:     string(payment.Status),
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("Failed to publish payment event")
	}
}
