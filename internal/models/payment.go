package models

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the closed set of payment intent states.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentExpired   PaymentStatus = "expired"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentCancelled, PaymentExpired:
		return true
	}
	return false
}

// Terminal reports whether the payment can no longer change.
func (s PaymentStatus) Terminal() bool {
	return s != PaymentPending
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	if s != PaymentPending {
		return false
	}
	return next == PaymentCompleted || next == PaymentCancelled || next == PaymentExpired
}

// Payment reference routing prefixes. The prefix encodes which entity
// settles when the payment completes.
const (
	RefPrefixBooking = "BOOK"
	RefPrefixExit    = "EXIT"
)

// BookingPaymentRef builds the reference for a booking payment,
// e.g. BOOKS1730000000423F0A.
func BookingPaymentRef(now time.Time, bookingID int64) string {
	return fmt.Sprintf("%sS%d%d%s", RefPrefixBooking, now.Unix(), bookingID, refNonce())
}

// ExitPaymentRef builds the reference for an exit or overstay payment,
// e.g. EXITS173000000071B4C.
func ExitPaymentRef(now time.Time, vehicleID int64) string {
	return fmt.Sprintf("%sS%d%d%s", RefPrefixExit, now.Unix(), vehicleID, refNonce())
}

// refNonce disambiguates references minted for the same row within one
// second, keeping payment_ref globally unique.
func refNonce() string {
	u := uuid.New()
	return strings.ToUpper(hex.EncodeToString(u[:2]))
}

// IsBookingRef reports whether the reference routes to a booking.
func IsBookingRef(ref string) bool {
	return strings.HasPrefix(ref, RefPrefixBooking)
}

type Payment struct {
	ID          int64         `json:"id"`
	PaymentRef  string        `json:"payment_ref"`
	BookingID   int64         `json:"booking_id,omitempty"`
	VehicleID   int64         `json:"vehicle_id,omitempty"`
	Amount      int64         `json:"amount"`
	Status      PaymentStatus `json:"status"`
	BankTxnID   string        `json:"bank_txn_id,omitempty"`
	CompletedAt time.Time     `json:"completed_at,omitempty"`
	Version     int64         `json:"version"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
