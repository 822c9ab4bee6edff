package models

import "time"

// VehicleStatus is the closed set of vehicle presence states.
type VehicleStatus string

const (
	VehicleInParking VehicleStatus = "in_parking"
	VehicleExited    VehicleStatus = "exited"
)

func (s VehicleStatus) Valid() bool {
	return s == VehicleInParking || s == VehicleExited
}

type Vehicle struct {
	ID           int64         `json:"id"`
	LicensePlate string        `json:"license_plate"`
	SlotID       int64         `json:"slot_id"`
	BookingID    int64         `json:"booking_id,omitempty"`
	TicketCode   string        `json:"ticket_code,omitempty"`
	Status       VehicleStatus `json:"status"`
	EntryTime    time.Time     `json:"entry_time"`
	ExitTime     time.Time     `json:"exit_time,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
