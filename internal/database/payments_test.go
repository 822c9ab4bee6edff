package database

import (
	"context"
	"testing"
	"time"

	"xparking/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetPayment(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	p := &models.Payment{
		PaymentRef: "BOOKS17300000001",
		BookingID:  1,
		Amount:     40000,
		Status:     models.PaymentPending,
	}
	require.NoError(t, db.CreatePayment(ctx, p, now))
	assert.NotZero(t, p.ID)

	got, err := db.GetPaymentByRef(ctx, "BOOKS17300000001")
	require.NoError(t, err)
	assert.Equal(t, int64(40000), got.Amount)
	assert.Equal(t, models.PaymentPending, got.Status)
	assert.Equal(t, int64(1), got.BookingID)

	_, err = db.GetPaymentByRef(ctx, "BOOKS99999999999")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestCompletePaymentWithVersion(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	p := &models.Payment{PaymentRef: "BOOKS17300000001", BookingID: 1, Amount: 40000, Status: models.PaymentPending}
	require.NoError(t, db.CreatePayment(ctx, p, now))

	require.NoError(t, db.CompletePaymentWithVersion(ctx, p.ID, p.Version, "txn-1", now))

	got, err := db.GetPaymentByRef(ctx, p.PaymentRef)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, got.Status)
	assert.Equal(t, "txn-1", got.BankTxnID)
	assert.WithinDuration(t, now, got.CompletedAt, time.Second)

	// A second completion hits the status guard.
	err = db.CompletePaymentWithVersion(ctx, got.ID, got.Version, "txn-2", now)
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestExpireOverduePayments(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	stale := &models.Payment{PaymentRef: "BOOKS17300000001", BookingID: 1, Amount: 40000, Status: models.PaymentPending}
	require.NoError(t, db.CreatePayment(ctx, stale, now.Add(-20*time.Minute)))

	fresh := &models.Payment{PaymentRef: "BOOKS17300000002", BookingID: 2, Amount: 40000, Status: models.PaymentPending}
	require.NoError(t, db.CreatePayment(ctx, fresh, now))

	affected, err := db.ExpireOverduePayments(ctx, now.Add(-10*time.Minute), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	got, err := db.GetPaymentByRef(ctx, stale.PaymentRef)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentExpired, got.Status)

	got, err = db.GetPaymentByRef(ctx, fresh.PaymentRef)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, got.Status)
}

func TestListPendingPayments(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	first := &models.Payment{PaymentRef: "BOOKS17300000001", BookingID: 1, Amount: 5000, Status: models.PaymentPending}
	require.NoError(t, db.CreatePayment(ctx, first, now.Add(-time.Minute)))

	second := &models.Payment{PaymentRef: "EXITS17300000002", VehicleID: 2, Amount: 10000, Status: models.PaymentPending}
	require.NoError(t, db.CreatePayment(ctx, second, now))

	done := &models.Payment{PaymentRef: "BOOKS17300000003", BookingID: 3, Amount: 5000, Status: models.PaymentPending}
	require.NoError(t, db.CreatePayment(ctx, done, now))
	require.NoError(t, db.CompletePaymentWithVersion(ctx, done.ID, done.Version, "txn", now))

	pending, err := db.ListPendingPayments(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.PaymentRef, pending[0].PaymentRef)
	assert.Equal(t, second.PaymentRef, pending[1].PaymentRef)
}

func TestIssueBookingTicketIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	first, err := db.IssueBookingTicket(ctx, 42, "VETICKET01", 40000, now, now)
	require.NoError(t, err)
	assert.Equal(t, models.TicketPaid, first.Status)

	// Same booking, different candidate code: the existing ticket wins.
	second, err := db.IssueBookingTicket(ctx, 42, "VETICKET02", 40000, now, now)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "VETICKET01", second.Code)
}

func TestTicketOverstay(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	ticket := &models.Ticket{Code: "VETICKET01", Status: models.TicketPaid}
	require.NoError(t, db.CreateTicket(ctx, ticket, now))

	require.NoError(t, db.SetTicketOverstay(ctx, ticket.ID, 90, 10000, "EXITS17300000001", now))

	got, err := db.GetTicketByCode(ctx, "VETICKET01")
	require.NoError(t, err)
	assert.Equal(t, int64(90), got.OverstayMinutes)
	assert.Equal(t, int64(10000), got.OverstayAmount)
	assert.True(t, got.HasUnpaidOverstay())
}
