package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"xparking/internal/models"
)

const bookingColumns = `id, user_id, license_plate, COALESCE(slot_id, 0), start_time, end_time,
	amount, status, COALESCE(payment_ref, ''), version, created_at, updated_at`

func scanBookingRow(scan func(...any) error) (*models.Booking, error) {
	b := &models.Booking{}
	err := scan(
		&b.ID, &b.UserID, &b.LicensePlate, &b.SlotID, &b.StartTime, &b.EndTime,
		&b.Amount, &b.Status, &b.PaymentRef, &b.Version, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan booking: %w", err)
	}
	return b, nil
}

// CreateBookingWithCapacity inserts a booking only if free capacity remains.
// The count and the insert run in one transaction: capacity is the number of
// usable slots minus bookings still holding capacity.
func (db *DB) CreateBookingWithCapacity(ctx context.Context, booking *models.Booking, now time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var usable int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM parking_slots WHERE status != ?`,
		models.SlotMaintenance).Scan(&usable)
	if err != nil {
		return fmt.Errorf("failed to count slots in tx: %w", err)
	}

	var active int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE status IN (?, ?)`,
		models.BookingPending, models.BookingConfirmed).Scan(&active)
	if err != nil {
		return fmt.Errorf("failed to count active bookings in tx: %w", err)
	}

	if active >= usable {
		return ErrNoCapacity
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (user_id, license_plate, start_time, end_time, amount, status, payment_ref, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.UserID, booking.LicensePlate, booking.StartTime, booking.EndTime,
		booking.Amount, booking.Status, booking.PaymentRef, 1, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	booking.ID = id
	booking.Version = 1
	booking.CreatedAt = now
	booking.UpdatedAt = now

	return tx.Commit()
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	return scanBookingRow(db.QueryRowContext(ctx, query, id).Scan)
}

func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status models.BookingStatus, now time.Time) error {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, now, id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

func (db *DB) SetBookingPaymentRef(ctx context.Context, id int64, ref string, now time.Time) error {
	query := `UPDATE bookings SET payment_ref = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, ref, now, id)
	if err != nil {
		return fmt.Errorf("failed to set booking payment ref: %w", err)
	}
	return nil
}

// FindEarliestConfirmedBooking resolves the booking a vehicle checks in
// against when the gate does not name one: earliest confirmed start wins.
func (db *DB) FindEarliestConfirmedBooking(ctx context.Context, plate string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE license_plate = ? AND status = ? ORDER BY start_time ASC LIMIT 1`
	return scanBookingRow(db.QueryRowContext(ctx, query, plate, models.BookingConfirmed).Scan)
}

func (db *DB) ListUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBookingRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (db *DB) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE start_time >= ? AND start_time < ? ORDER BY start_time ASC`
	rows, err := db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings by date range: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBookingRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// ExpireOverdueBookings moves pending and confirmed bookings whose window has
// fully passed to expired, releasing their capacity. Returns the bookings
// that expired.
func (db *DB) ExpireOverdueBookings(ctx context.Context, now time.Time) ([]*models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE status IN (?, ?) AND end_time < ?`,
		models.BookingPending, models.BookingConfirmed, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue bookings: %w", err)
	}
	var expired []*models.Booking
	for rows.Next() {
		b, err := scanBookingRow(rows.Scan)
		if err != nil {
			rows.Close()
			return nil, err
		}
		expired = append(expired, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list overdue bookings: %w", err)
	}
	if len(expired) == 0 {
		return nil, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, version = version + 1, updated_at = ?
		WHERE status IN (?, ?) AND end_time < ?`,
		models.BookingExpired, now, models.BookingPending, models.BookingConfirmed, now)
	if err != nil {
		return nil, fmt.Errorf("failed to expire overdue bookings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit booking expiry: %w", err)
	}

	for _, b := range expired {
		b.Status = models.BookingExpired
		b.Version++
	}
	return expired, nil
}
