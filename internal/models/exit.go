package models

// Exit denial reason codes, machine-checkable. Vehicle-level reasons are
// checked first, ticket-level reasons after, in this order.
const (
	ReasonNotInParking      = "BSX_NOT_IN_PARKING"
	ReasonNoTicket          = "NO_TICKET"
	ReasonTicketNotFound    = "TICKET_NOT_FOUND"
	ReasonPlateMismatch     = "PLATE_MISMATCH"
	ReasonTicketAlreadyUsed = "TICKET_ALREADY_USED"
	ReasonPaymentPending    = "PAYMENT_PENDING"
	ReasonOverstayUnpaid    = "OVERSTAY_UNPAID"
	ReasonInvalidStatus     = "INVALID_STATUS"
)

// ExitDecision is the outcome of exit authorization for one vehicle.
type ExitDecision struct {
	Allow  bool   `json:"allow_exit"`
	Reason string `json:"error_reason,omitempty"`
}

// ExitVerification is the full gate-facing verification payload.
type ExitVerification struct {
	Found              bool   `json:"found"`
	TicketCode         string `json:"ticket_code,omitempty"`
	LicensePlate       string `json:"license_plate,omitempty"`
	VehicleID          int64  `json:"vehicle_id,omitempty"`
	SlotID             int64  `json:"slot_id,omitempty"`
	Status             string `json:"status,omitempty"`
	TimeIn             string `json:"time_in,omitempty"`
	TimeOut            string `json:"time_out,omitempty"`
	Minutes            int64  `json:"minutes"`
	Amount             int64  `json:"amount"`
	HasOverstay        bool   `json:"has_overstay"`
	OverstayMinutes    int64  `json:"overstay_minutes,omitempty"`
	OverstayAmount     int64  `json:"overstay_amount,omitempty"`
	OverstayPaymentRef string `json:"overstay_payment_ref,omitempty"`
	PaymentRef         string `json:"payment_ref,omitempty"`
	QRURL              string `json:"qr_url,omitempty"`
	BookingID          int64  `json:"booking_id,omitempty"`
	IsBooking          bool   `json:"is_booking"`
	AllowExit          bool   `json:"allow_exit"`
	ErrorReason        string `json:"error_reason,omitempty"`
}
