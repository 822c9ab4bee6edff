package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"xparking/internal/models"
)

const paymentColumns = `id, payment_ref, COALESCE(booking_id, 0), COALESCE(vehicle_id, 0), amount,
	status, COALESCE(bank_txn_id, ''), completed_at, version, created_at, updated_at`

func scanPaymentRow(scan func(...any) error) (*models.Payment, error) {
	p := &models.Payment{}
	var completedAt sql.NullTime
	err := scan(
		&p.ID, &p.PaymentRef, &p.BookingID, &p.VehicleID, &p.Amount,
		&p.Status, &p.BankTxnID, &completedAt, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	if completedAt.Valid {
		p.CompletedAt = completedAt.Time
	}
	return p, nil
}

func (db *DB) CreatePayment(ctx context.Context, payment *models.Payment, now time.Time) error {
	var bookingID, vehicleID sql.NullInt64
	if payment.BookingID > 0 {
		bookingID = sql.NullInt64{Int64: payment.BookingID, Valid: true}
	}
	if payment.VehicleID > 0 {
		vehicleID = sql.NullInt64{Int64: payment.VehicleID, Valid: true}
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO payments (payment_ref, booking_id, vehicle_id, amount, status, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.PaymentRef, bookingID, vehicleID, payment.Amount, payment.Status, 1, now, now)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get payment id: %w", err)
	}
	payment.ID = id
	payment.Version = 1
	payment.CreatedAt = now
	payment.UpdatedAt = now
	return nil
}

func (db *DB) GetPaymentByRef(ctx context.Context, ref string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE payment_ref = ?`
	return scanPaymentRow(db.QueryRowContext(ctx, query, ref).Scan)
}

// GetPendingPaymentByVehicle returns the most recent open payment intent for
// a vehicle, if any.
func (db *DB) GetPendingPaymentByVehicle(ctx context.Context, vehicleID int64) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE vehicle_id = ? AND status = ? ORDER BY id DESC LIMIT 1`
	return scanPaymentRow(db.QueryRowContext(ctx, query, vehicleID, models.PaymentPending).Scan)
}

// CompletePaymentWithVersion moves a pending payment to completed. The
// status guard in the WHERE clause keeps completion idempotent under races.
func (db *DB) CompletePaymentWithVersion(ctx context.Context, id, fromVersion int64, bankTxnID string, now time.Time) error {
	query := `UPDATE payments SET status = ?, bank_txn_id = ?, completed_at = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ? AND status = ?`
	result, err := db.ExecContext(ctx, query,
		models.PaymentCompleted, bankTxnID, now, now, id, fromVersion, models.PaymentPending)
	if err != nil {
		return fmt.Errorf("failed to complete payment: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

func (db *DB) UpdatePaymentStatusWithVersion(ctx context.Context, id, fromVersion int64, status models.PaymentStatus, now time.Time) error {
	query := `UPDATE payments SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ? AND status = ?`
	result, err := db.ExecContext(ctx, query, status, now, id, fromVersion, models.PaymentPending)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

func (db *DB) ListPendingPayments(ctx context.Context, limit int) ([]*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE status = ? ORDER BY created_at ASC LIMIT ?`
	rows, err := db.QueryContext(ctx, query, models.PaymentPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPaymentRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// ExpireOverduePayments marks pending payments created before the cutoff as
// expired. Returns affected rows.
func (db *DB) ExpireOverduePayments(ctx context.Context, cutoff, now time.Time) (int64, error) {
	query := `UPDATE payments SET status = ?, version = version + 1, updated_at = ?
		WHERE status = ? AND created_at < ?`
	result, err := db.ExecContext(ctx, query, models.PaymentExpired, now, models.PaymentPending, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to expire overdue payments: %w", err)
	}
	return result.RowsAffected()
}

// GetCompletedPaymentsByDateRange feeds the revenue report.
func (db *DB) GetCompletedPaymentsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE status = ? AND completed_at >= ? AND completed_at < ? ORDER BY completed_at ASC`
	rows, err := db.QueryContext(ctx, query, models.PaymentCompleted, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get completed payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPaymentRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
