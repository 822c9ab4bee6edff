package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"xparking/internal/models"
)

const vehicleColumns = `id, license_plate, slot_id, COALESCE(booking_id, 0), COALESCE(ticket_code, ''),
	status, entry_time, exit_time, created_at, updated_at`

func scanVehicleRow(scan func(...any) error) (*models.Vehicle, error) {
	v := &models.Vehicle{}
	var exitTime sql.NullTime
	err := scan(
		&v.ID, &v.LicensePlate, &v.SlotID, &v.BookingID, &v.TicketCode,
		&v.Status, &v.EntryTime, &exitTime, &v.CreatedAt, &v.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVehicleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan vehicle: %w", err)
	}
	if exitTime.Valid {
		v.ExitTime = exitTime.Time
	}
	return v, nil
}

// CheckInParams carries everything a gate entry needs. BookingID zero means
// resolve the earliest confirmed booking for the plate, or fall back to a
// walk-in entry minting NewTicketCode. TicketCode, when set, reuses a
// pre-issued ticket instead of minting one.
type CheckInParams struct {
	LicensePlate  string
	SlotID        int64
	BookingID     int64
	TicketCode    string
	NewTicketCode string
}

type CheckInResult struct {
	Vehicle *models.Vehicle
	Booking *models.Booking
	Ticket  *models.Ticket
}

// CheckIn runs the gate entry as one transaction over the slot, booking,
// vehicle and ticket rows. Any failure rolls everything back.
func (db *DB) CheckIn(ctx context.Context, params CheckInParams, now time.Time) (*CheckInResult, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 1. Slot must accept a vehicle.
	var slotStatus models.SlotStatus
	var slotVersion int64
	err = tx.QueryRowContext(ctx,
		`SELECT status, version FROM parking_slots WHERE id = ?`,
		params.SlotID).Scan(&slotStatus, &slotVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load slot in tx: %w", err)
	}
	if !slotStatus.CanOccupy() {
		return nil, ErrSlotUnavailable
	}

	// 2. The plate must not already be inside.
	var existing int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vehicles WHERE license_plate = ? AND status = ?`,
		params.LicensePlate, models.VehicleInParking).Scan(&existing)
	if err != nil {
		return nil, fmt.Errorf("failed to check duplicate entry in tx: %w", err)
	}
	if existing > 0 {
		return nil, ErrDuplicateEntry
	}

	// 3. Resolve the booking: explicit id, else earliest confirmed for the
	// plate, else walk-in.
	var booking *models.Booking
	if params.BookingID > 0 {
		booking, err = scanBookingRow(tx.QueryRowContext(ctx,
			`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, params.BookingID).Scan)
		if err != nil {
			return nil, err
		}
		if booking.Status != models.BookingConfirmed {
			return nil, ErrInvalidTransition
		}
	} else {
		booking, err = scanBookingRow(tx.QueryRowContext(ctx,
			`SELECT `+bookingColumns+` FROM bookings
			 WHERE license_plate = ? AND status = ? ORDER BY start_time ASC LIMIT 1`,
			params.LicensePlate, models.BookingConfirmed).Scan)
		if err != nil && !errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		if errors.Is(err, ErrBookingNotFound) {
			booking = nil
		}
	}

	// 4. Resolve or mint the ticket. A pre-issued code takes precedence.
	var ticket *models.Ticket
	if params.TicketCode != "" {
		ticket, err = scanTicketRow(tx.QueryRowContext(ctx,
			`SELECT `+ticketColumns+` FROM tickets WHERE code = ?`, params.TicketCode).Scan)
		if err != nil {
			return nil, err
		}
		if ticket.Status == models.TicketUsed {
			return nil, ErrInvalidTransition
		}
		if booking == nil && ticket.BookingID > 0 {
			booking, err = scanBookingRow(tx.QueryRowContext(ctx,
				`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, ticket.BookingID).Scan)
			if err != nil {
				return nil, err
			}
			if booking.Status != models.BookingConfirmed {
				return nil, ErrInvalidTransition
			}
		}
	} else if booking != nil {
		ticket, err = scanTicketRow(tx.QueryRowContext(ctx,
			`SELECT `+ticketColumns+` FROM tickets WHERE booking_id = ?`, booking.ID).Scan)
		if err != nil && !errors.Is(err, ErrTicketNotFound) {
			return nil, err
		}
		if errors.Is(err, ErrTicketNotFound) {
			// Confirmed booking without a ticket: issue a paid one now.
			ticket, err = insertTicket(ctx, tx, &models.Ticket{
				Code:         params.NewTicketCode,
				BookingID:    booking.ID,
				LicensePlate: params.LicensePlate,
				Status:       models.TicketPaid,
				Amount:       booking.Amount,
				TimeIn:       booking.StartTime,
			}, now)
			if err != nil {
				return nil, err
			}
		}
	} else {
		if params.NewTicketCode == "" {
			return nil, fmt.Errorf("walk-in entry requires a new ticket code")
		}
		ticket, err = insertTicket(ctx, tx, &models.Ticket{
			Code:         params.NewTicketCode,
			LicensePlate: params.LicensePlate,
			Status:       models.TicketPending,
			TimeIn:       now,
		}, now)
		if err != nil {
			return nil, err
		}
	}

	// 5. Insert the vehicle row.
	var bookingID sql.NullInt64
	if booking != nil {
		bookingID = sql.NullInt64{Int64: booking.ID, Valid: true}
	}
	result, err := tx.ExecContext(ctx,
		`INSERT INTO vehicles (license_plate, slot_id, booking_id, ticket_code, status, entry_time, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		params.LicensePlate, params.SlotID, bookingID, ticket.Code,
		models.VehicleInParking, now, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert vehicle in tx: %w", err)
	}
	vehicleID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle id in tx: %w", err)
	}

	// 6. Occupy the slot.
	res, err := tx.ExecContext(ctx,
		`UPDATE parking_slots SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
		models.SlotOccupied, now, params.SlotID, slotVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to occupy slot in tx: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return nil, ErrConcurrentModification
	}

	// 7. Attach the booking and the ticket to the vehicle.
	if booking != nil {
		res, err = tx.ExecContext(ctx,
			`UPDATE bookings SET status = ?, slot_id = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
			models.BookingCheckedIn, params.SlotID, now, booking.ID, booking.Version)
		if err != nil {
			return nil, fmt.Errorf("failed to update booking in tx: %w", err)
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return nil, ErrConcurrentModification
		}
		booking.Status = models.BookingCheckedIn
		booking.SlotID = params.SlotID
		booking.Version++
	}

	if ticket.TimeIn.IsZero() {
		ticket.TimeIn = now
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE tickets SET vehicle_id = ?, license_plate = ?, time_in = ?, updated_at = ? WHERE id = ?`,
		vehicleID, params.LicensePlate, ticket.TimeIn, now, ticket.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to attach ticket in tx: %w", err)
	}
	ticket.VehicleID = vehicleID
	ticket.LicensePlate = params.LicensePlate

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit check-in: %w", err)
	}

	vehicle := &models.Vehicle{
		ID:           vehicleID,
		LicensePlate: params.LicensePlate,
		SlotID:       params.SlotID,
		TicketCode:   ticket.Code,
		Status:       models.VehicleInParking,
		EntryTime:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if booking != nil {
		vehicle.BookingID = booking.ID
	}

	return &CheckInResult{Vehicle: vehicle, Booking: booking, Ticket: ticket}, nil
}

type CheckOutResult struct {
	Vehicle *models.Vehicle
	Ticket  *models.Ticket
}

// CheckOut closes the stay for the vehicle holding ticketCode: the vehicle
// exits, the slot frees, the booking completes and the ticket is consumed.
// One transaction; the ticket must be paid.
func (db *DB) CheckOut(ctx context.Context, ticketCode string, now time.Time) (*CheckOutResult, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	vehicle, err := scanVehicleRow(tx.QueryRowContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE ticket_code = ? AND status = ?`,
		ticketCode, models.VehicleInParking).Scan)
	if err != nil {
		return nil, err
	}

	ticket, err := scanTicketRow(tx.QueryRowContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE code = ?`, ticketCode).Scan)
	if err != nil {
		return nil, err
	}
	if !ticket.Status.CanTransitionTo(models.TicketUsed) {
		return nil, ErrInvalidTransition
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE vehicles SET status = ?, exit_time = ?, updated_at = ? WHERE id = ?`,
		models.VehicleExited, now, now, vehicle.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark vehicle exited in tx: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE parking_slots SET status = ?, version = version + 1, updated_at = ? WHERE id = ?`,
		models.SlotEmpty, now, vehicle.SlotID)
	if err != nil {
		return nil, fmt.Errorf("failed to free slot in tx: %w", err)
	}

	if vehicle.BookingID > 0 {
		_, err = tx.ExecContext(ctx,
			`UPDATE bookings SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND status = ?`,
			models.BookingCompleted, now, vehicle.BookingID, models.BookingCheckedIn)
		if err != nil {
			return nil, fmt.Errorf("failed to complete booking in tx: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE tickets SET status = ?, time_out = ?, used_at = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
		models.TicketUsed, now, now, now, ticket.ID, ticket.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to consume ticket in tx: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return nil, ErrConcurrentModification
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit check-out: %w", err)
	}

	vehicle.Status = models.VehicleExited
	vehicle.ExitTime = now
	ticket.Status = models.TicketUsed
	ticket.TimeOut = now
	ticket.UsedAt = now
	ticket.Version++

	return &CheckOutResult{Vehicle: vehicle, Ticket: ticket}, nil
}

// SettleExitPayment applies a completed exit payment to its vehicle: the
// ticket settles (walk-in paid, or the overstay charge cleared when
// paymentRef minted it), the vehicle exits and its slot frees. One
// transaction. A vehicle that already left keeps its slot untouched, since
// another stay may hold it by now.
func (db *DB) SettleExitPayment(ctx context.Context, vehicleID int64, paymentRef string, now time.Time) (*models.Vehicle, bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	vehicle, err := scanVehicleRow(tx.QueryRowContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE id = ?`, vehicleID).Scan)
	if err != nil {
		return nil, false, err
	}

	ticket, err := scanTicketRow(tx.QueryRowContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE code = ?`, vehicle.TicketCode).Scan)
	if err != nil {
		return nil, false, err
	}

	switch {
	case ticket.OverstayPaymentRef == paymentRef && !ticket.OverstayPaid:
		_, err = tx.ExecContext(ctx,
			`UPDATE tickets SET overstay_paid = 1, version = version + 1, updated_at = ? WHERE id = ?`,
			now, ticket.ID)
	case ticket.Status == models.TicketPending:
		_, err = tx.ExecContext(ctx,
			`UPDATE tickets SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
			models.TicketPaid, now, ticket.ID, ticket.Version)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to settle ticket in tx: %w", err)
	}

	exited := false
	if vehicle.Status == models.VehicleInParking {
		_, err = tx.ExecContext(ctx,
			`UPDATE vehicles SET status = ?, exit_time = ?, updated_at = ? WHERE id = ?`,
			models.VehicleExited, now, now, vehicle.ID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to mark vehicle exited in tx: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE parking_slots SET status = ?, version = version + 1, updated_at = ? WHERE id = ?`,
			models.SlotEmpty, now, vehicle.SlotID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to free slot in tx: %w", err)
		}

		if vehicle.BookingID > 0 {
			_, err = tx.ExecContext(ctx,
				`UPDATE bookings SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND status = ?`,
				models.BookingCompleted, now, vehicle.BookingID, models.BookingCheckedIn)
			if err != nil {
				return nil, false, fmt.Errorf("failed to complete booking in tx: %w", err)
			}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE tickets SET time_out = ?, updated_at = ? WHERE id = ?`,
			now, now, ticket.ID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to stamp ticket exit in tx: %w", err)
		}

		vehicle.Status = models.VehicleExited
		vehicle.ExitTime = now
		exited = true
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit exit settlement: %w", err)
	}
	return vehicle, exited, nil
}

// GetVehicleInParking returns the active stay for a normalized plate.
func (db *DB) GetVehicleInParking(ctx context.Context, plate string) (*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE license_plate = ? AND status = ?`
	return scanVehicleRow(db.QueryRowContext(ctx, query, plate, models.VehicleInParking).Scan)
}

func (db *DB) GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = ?`
	return scanVehicleRow(db.QueryRowContext(ctx, query, id).Scan)
}
