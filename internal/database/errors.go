package database

import "errors"

var (
	ErrSlotNotFound    = errors.New("slot not found")
	ErrSlotUnavailable = errors.New("slot is not available")
	ErrSlotOccupied    = errors.New("slot is occupied")
	ErrNoCapacity      = errors.New("no booking capacity left")

	ErrBookingNotFound = errors.New("booking not found")
	ErrVehicleNotFound = errors.New("vehicle not found in parking")
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrPaymentNotFound = errors.New("payment not found")

	ErrNotOwner               = errors.New("booking belongs to another user")
	ErrDuplicateEntry         = errors.New("vehicle already in parking")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)
