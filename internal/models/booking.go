package models

import "time"

// BookingStatus is the closed set of booking states.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCheckedIn BookingStatus = "checked_in"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
	BookingExpired   BookingStatus = "expired"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCheckedIn,
		BookingCompleted, BookingCancelled, BookingExpired:
		return true
	}
	return false
}

// Active reports whether the booking still holds capacity.
func (s BookingStatus) Active() bool {
	return s == BookingPending || s == BookingConfirmed
}

// Terminal reports whether no further transitions are allowed.
func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingCancelled || s == BookingExpired
}

// CanTransitionTo enforces the booking state machine:
// pending -> confirmed | cancelled | expired
// confirmed -> checked_in | cancelled | expired
// checked_in -> completed | cancelled
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingPending:
		return next == BookingConfirmed || next == BookingCancelled || next == BookingExpired
	case BookingConfirmed:
		return next == BookingCheckedIn || next == BookingCancelled || next == BookingExpired
	case BookingCheckedIn:
		return next == BookingCompleted || next == BookingCancelled
	}
	return false
}

type Booking struct {
	ID           int64         `json:"id"`
	UserID       int64         `json:"user_id"`
	LicensePlate string        `json:"license_plate"`
	SlotID       int64         `json:"slot_id,omitempty"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	Amount       int64         `json:"amount"`
	Status       BookingStatus `json:"status"`
	PaymentRef   string        `json:"payment_ref,omitempty"`
	Version      int64         `json:"version"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
