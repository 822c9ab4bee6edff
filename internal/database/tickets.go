package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"xparking/internal/models"
)

const ticketColumns = `id, code, COALESCE(booking_id, 0), COALESCE(vehicle_id, 0), COALESCE(license_plate, ''),
	status, amount, overstay_minutes, overstay_amount, COALESCE(overstay_payment_ref, ''), overstay_paid,
	time_in, time_out, used_at, version, created_at, updated_at`

func scanTicketRow(scan func(...any) error) (*models.Ticket, error) {
	t := &models.Ticket{}
	var timeIn, timeOut, usedAt sql.NullTime
	err := scan(
		&t.ID, &t.Code, &t.BookingID, &t.VehicleID, &t.LicensePlate,
		&t.Status, &t.Amount, &t.OverstayMinutes, &t.OverstayAmount, &t.OverstayPaymentRef, &t.OverstayPaid,
		&timeIn, &timeOut, &usedAt, &t.Version, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan ticket: %w", err)
	}
	if timeIn.Valid {
		t.TimeIn = timeIn.Time
	}
	if timeOut.Valid {
		t.TimeOut = timeOut.Time
	}
	if usedAt.Valid {
		t.UsedAt = usedAt.Time
	}
	return t, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertTicket(ctx context.Context, ex execer, ticket *models.Ticket, now time.Time) (*models.Ticket, error) {
	var bookingID, vehicleID sql.NullInt64
	if ticket.BookingID > 0 {
		bookingID = sql.NullInt64{Int64: ticket.BookingID, Valid: true}
	}
	if ticket.VehicleID > 0 {
		vehicleID = sql.NullInt64{Int64: ticket.VehicleID, Valid: true}
	}

	var timeIn sql.NullTime
	if !ticket.TimeIn.IsZero() {
		timeIn = sql.NullTime{Time: ticket.TimeIn, Valid: true}
	}

	result, err := ex.ExecContext(ctx,
		`INSERT INTO tickets (code, booking_id, vehicle_id, license_plate, status, amount, time_in, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ticket.Code, bookingID, vehicleID, ticket.LicensePlate, ticket.Status, ticket.Amount, timeIn, 1, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert ticket: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket id: %w", err)
	}
	ticket.ID = id
	ticket.Version = 1
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	return ticket, nil
}

func (db *DB) CreateTicket(ctx context.Context, ticket *models.Ticket, now time.Time) error {
	_, err := insertTicket(ctx, db.DB, ticket, now)
	return err
}

func (db *DB) GetTicketByCode(ctx context.Context, code string) (*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE code = ?`
	return scanTicketRow(db.QueryRowContext(ctx, query, code).Scan)
}

func (db *DB) GetTicketByBookingID(ctx context.Context, bookingID int64) (*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE booking_id = ?`
	return scanTicketRow(db.QueryRowContext(ctx, query, bookingID).Scan)
}

func (db *DB) UpdateTicketStatusWithVersion(ctx context.Context, id, fromVersion int64, status models.TicketStatus, now time.Time) error {
	query := `UPDATE tickets SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, now, id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update ticket status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// SetTicketOverstay records the overstay charge and its payment reference.
func (db *DB) SetTicketOverstay(ctx context.Context, id, minutes, amount int64, ref string, now time.Time) error {
	query := `UPDATE tickets SET overstay_minutes = ?, overstay_amount = ?, overstay_payment_ref = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, minutes, amount, ref, now, id)
	if err != nil {
		return fmt.Errorf("failed to set ticket overstay: %w", err)
	}
	return nil
}

// SetTicketAmount stores the priced amount for a walk-in ticket.
func (db *DB) SetTicketAmount(ctx context.Context, id, amount int64, now time.Time) error {
	query := `UPDATE tickets SET amount = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, amount, now, id)
	if err != nil {
		return fmt.Errorf("failed to set ticket amount: %w", err)
	}
	return nil
}

// IssueBookingTicket creates a paid ticket for a booking exactly once,
// stamped with the booking's start as time_in. A second call returns the
// existing ticket unchanged.
func (db *DB) IssueBookingTicket(ctx context.Context, bookingID int64, code string, amount int64, timeIn, now time.Time) (*models.Ticket, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	existing, err := scanTicketRow(tx.QueryRowContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE booking_id = ?`, bookingID).Scan)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrTicketNotFound) {
		return nil, err
	}

	ticket, err := insertTicket(ctx, tx, &models.Ticket{
		Code:      code,
		BookingID: bookingID,
		Status:    models.TicketPaid,
		Amount:    amount,
		TimeIn:    timeIn,
	}, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit ticket issue: %w", err)
	}
	return ticket, nil
}
