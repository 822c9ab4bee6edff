package models

import "time"

// SlotStatus is the closed set of parking slot states.
type SlotStatus string

const (
	SlotEmpty       SlotStatus = "empty"
	SlotReserved    SlotStatus = "reserved"
	SlotOccupied    SlotStatus = "occupied"
	SlotMaintenance SlotStatus = "maintenance"
)

// Valid reports whether the status belongs to the closed set.
func (s SlotStatus) Valid() bool {
	switch s {
	case SlotEmpty, SlotReserved, SlotOccupied, SlotMaintenance:
		return true
	}
	return false
}

// CanOccupy reports whether a vehicle may take the slot.
// Occupied and maintenance slots reject new vehicles.
func (s SlotStatus) CanOccupy() bool {
	return s == SlotEmpty || s == SlotReserved
}

type Slot struct {
	ID        int64      `json:"id"`
	Code      string     `json:"code"`
	Status    SlotStatus `json:"status"`
	Version   int64      `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
