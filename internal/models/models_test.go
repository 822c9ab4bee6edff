package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketStatusTransitions(t *testing.T) {
	assert.True(t, TicketPending.CanTransitionTo(TicketPaid))
	assert.True(t, TicketPaid.CanTransitionTo(TicketUsed))

	// Monotonic: no way back, no skipping forward checks.
	assert.False(t, TicketPaid.CanTransitionTo(TicketPending))
	assert.False(t, TicketUsed.CanTransitionTo(TicketPaid))
	assert.False(t, TicketUsed.CanTransitionTo(TicketPending))
	assert.False(t, TicketPending.CanTransitionTo(TicketUsed))
}

func TestBookingStatusTransitions(t *testing.T) {
	assert.True(t, BookingPending.CanTransitionTo(BookingConfirmed))
	assert.True(t, BookingPending.CanTransitionTo(BookingCancelled))
	assert.True(t, BookingPending.CanTransitionTo(BookingExpired))
	assert.True(t, BookingConfirmed.CanTransitionTo(BookingCheckedIn))
	assert.True(t, BookingCheckedIn.CanTransitionTo(BookingCompleted))
	assert.True(t, BookingCheckedIn.CanTransitionTo(BookingCancelled))
	assert.False(t, BookingCheckedIn.CanTransitionTo(BookingExpired))

	assert.False(t, BookingPending.CanTransitionTo(BookingCheckedIn))
	assert.False(t, BookingCompleted.CanTransitionTo(BookingPending))
	assert.False(t, BookingCancelled.CanTransitionTo(BookingConfirmed))
	assert.False(t, BookingExpired.CanTransitionTo(BookingConfirmed))
}

func TestBookingStatusActive(t *testing.T) {
	assert.True(t, BookingPending.Active())
	assert.True(t, BookingConfirmed.Active())
	assert.False(t, BookingCheckedIn.Active())
	assert.False(t, BookingCancelled.Active())
	assert.False(t, BookingExpired.Active())
}

func TestPaymentStatusTransitions(t *testing.T) {
	assert.True(t, PaymentPending.CanTransitionTo(PaymentCompleted))
	assert.True(t, PaymentPending.CanTransitionTo(PaymentCancelled))
	assert.True(t, PaymentPending.CanTransitionTo(PaymentExpired))

	assert.False(t, PaymentCompleted.CanTransitionTo(PaymentCancelled))
	assert.False(t, PaymentExpired.CanTransitionTo(PaymentCompleted))
	assert.False(t, PaymentCancelled.CanTransitionTo(PaymentPending))
}

func TestSlotStatusCanOccupy(t *testing.T) {
	assert.True(t, SlotEmpty.CanOccupy())
	assert.True(t, SlotReserved.CanOccupy())
	assert.False(t, SlotOccupied.CanOccupy())
	assert.False(t, SlotMaintenance.CanOccupy())
}

func TestPaymentRefs(t *testing.T) {
	now := time.Unix(1730000000, 0)

	ref := BookingPaymentRef(now, 42)
	assert.True(t, strings.HasPrefix(ref, "BOOKS173000000042"))
	assert.True(t, IsBookingRef(ref))

	exitRef := ExitPaymentRef(now, 7)
	assert.True(t, strings.HasPrefix(exitRef, "EXITS17300000007"))
	assert.False(t, IsBookingRef(exitRef))
}

func TestPaymentRefsUniqueWithinSecond(t *testing.T) {
	now := time.Unix(1730000000, 0)
	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		ref := BookingPaymentRef(now, 42)
		assert.False(t, seen[ref], "duplicate ref %s", ref)
		seen[ref] = true
	}
}

func TestNormalizePlate(t *testing.T) {
	plate, err := NormalizePlate("59-a1 234.56")
	require.NoError(t, err)
	assert.Equal(t, "59A123456", plate)

	plate, err = NormalizePlate("  51f99999 ")
	require.NoError(t, err)
	assert.Equal(t, "51F99999", plate)

	_, err = NormalizePlate("a-1")
	assert.ErrorIs(t, err, ErrInvalidPlate)
}

func TestTicketMatchesPlate(t *testing.T) {
	ticket := &Ticket{LicensePlate: "59A123456"}

	assert.True(t, ticket.MatchesPlate("59A123456"))
	assert.True(t, ticket.MatchesPlate("59-a1 234.56"))
	assert.False(t, ticket.MatchesPlate("51B999999"))
	assert.False(t, ticket.MatchesPlate(""))
	assert.False(t, (&Ticket{}).MatchesPlate("59A123456"))
}

func TestTicketHasUnpaidOverstay(t *testing.T) {
	ticket := &Ticket{OverstayAmount: 5000}
	assert.True(t, ticket.HasUnpaidOverstay())

	ticket.OverstayPaid = true
	assert.False(t, ticket.HasUnpaidOverstay())

	assert.False(t, (&Ticket{}).HasUnpaidOverstay())
}
