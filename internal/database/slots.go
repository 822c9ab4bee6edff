package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"xparking/internal/models"
)

const slotColumns = `id, code, status, version, created_at, updated_at`

func scanSlot(row *sql.Row) (*models.Slot, error) {
	var s models.Slot
	err := row.Scan(&s.ID, &s.Code, &s.Status, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan slot: %w", err)
	}
	return &s, nil
}

// SyncSlots inserts configured slot codes that do not exist yet. Existing
// slots keep their current status.
func (db *DB) SyncSlots(ctx context.Context, codes []string) error {
	for _, code := range codes {
		_, err := db.ExecContext(ctx,
			`INSERT OR IGNORE INTO parking_slots (code, status) VALUES (?, ?)`,
			code, models.SlotEmpty)
		if err != nil {
			return fmt.Errorf("failed to sync slot %s: %w", code, err)
		}
	}
	return nil
}

func (db *DB) GetSlot(ctx context.Context, id int64) (*models.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM parking_slots WHERE id = ?`
	return scanSlot(db.QueryRowContext(ctx, query, id))
}

func (db *DB) GetSlotByCode(ctx context.Context, code string) (*models.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM parking_slots WHERE code = ?`
	return scanSlot(db.QueryRowContext(ctx, query, code))
}

func (db *DB) ListSlots(ctx context.Context) ([]*models.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM parking_slots ORDER BY code ASC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	defer rows.Close()

	var slots []*models.Slot
	for rows.Next() {
		s := &models.Slot{}
		if err := rows.Scan(&s.ID, &s.Code, &s.Status, &s.Version, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// CountUsableSlots returns the number of slots not under maintenance.
func (db *DB) CountUsableSlots(ctx context.Context) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM parking_slots WHERE status != ?`,
		models.SlotMaintenance).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count usable slots: %w", err)
	}
	return count, nil
}

// UpdateSlotStatusWithVersion performs an optimistically locked status write.
func (db *DB) UpdateSlotStatusWithVersion(ctx context.Context, id, fromVersion int64, status models.SlotStatus, now time.Time) error {
	query := `UPDATE parking_slots SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, now, id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update slot status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// SetSlotMaintenance toggles maintenance mode. Enabling is rejected while a
// vehicle occupies the slot; disabling returns the slot to empty.
func (db *DB) SetSlotMaintenance(ctx context.Context, id int64, enable bool, now time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var status models.SlotStatus
	var version int64
	err = tx.QueryRowContext(ctx,
		`SELECT status, version FROM parking_slots WHERE id = ?`, id).Scan(&status, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSlotNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load slot in tx: %w", err)
	}

	next := models.SlotEmpty
	if enable {
		if status == models.SlotOccupied {
			return ErrSlotOccupied
		}
		next = models.SlotMaintenance
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE parking_slots SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
		next, now, id, version)
	if err != nil {
		return fmt.Errorf("failed to update slot in tx: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}

	return tx.Commit()
}
