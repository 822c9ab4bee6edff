package models

import "time"

// TicketStatus is the closed set of ticket states. Transitions are
// monotonic: pending -> paid -> used, no way back.
type TicketStatus string

const (
	TicketPending TicketStatus = "pending"
	TicketPaid    TicketStatus = "paid"
	TicketUsed    TicketStatus = "used"
)

func (s TicketStatus) Valid() bool {
	return s == TicketPending || s == TicketPaid || s == TicketUsed
}

func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	switch s {
	case TicketPending:
		return next == TicketPaid
	case TicketPaid:
		return next == TicketUsed
	}
	return false
}

type Ticket struct {
	ID                 int64        `json:"id"`
	Code               string       `json:"code"`
	BookingID          int64        `json:"booking_id,omitempty"`
	VehicleID          int64        `json:"vehicle_id,omitempty"`
	LicensePlate       string       `json:"license_plate,omitempty"`
	Status             TicketStatus `json:"status"`
	Amount             int64        `json:"amount"`
	OverstayMinutes    int64        `json:"overstay_minutes,omitempty"`
	OverstayAmount     int64        `json:"overstay_amount,omitempty"`
	OverstayPaymentRef string       `json:"overstay_payment_ref,omitempty"`
	OverstayPaid       bool         `json:"overstay_paid,omitempty"`
	TimeIn             time.Time    `json:"time_in,omitempty"`
	TimeOut            time.Time    `json:"time_out,omitempty"`
	UsedAt             time.Time    `json:"used_at,omitempty"`
	Version            int64        `json:"version"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// HasUnpaidOverstay reports whether an overstay charge exists and is unsettled.
func (t *Ticket) HasUnpaidOverstay() bool {
	return t.OverstayAmount > 0 && !t.OverstayPaid
}

// MatchesPlate reports whether a scanned plate belongs to this ticket. Both
// sides are normalized first, so separators and case from the camera read do
// not matter.
func (t *Ticket) MatchesPlate(scanned string) bool {
	own, err := NormalizePlate(t.LicensePlate)
	if err != nil {
		return false
	}
	read, err := NormalizePlate(scanned)
	if err != nil {
		return false
	}
	return own == read
}
