package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hubbook/internal/models"
)

// GetDaySlots returns the capacity rows for (hubID, date) in schedule order.
// An empty result means no capacity record was materialized yet.
func (db *DB) GetDaySlots(ctx context.Context, hubID int64, date string) ([]models.Slot, error) {
	query := `SELECT slot_time, capacity, booked FROM slot_capacity
              WHERE hub_id = ? AND date = ? ORDER BY position, slot_time`

	rows, err := db.QueryContext(ctx, query, hubID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get day slots: %w", err)
	}
	defer rows.Close()

	var slots []models.Slot
	for rows.Next() {
		var s models.Slot
		if err := rows.Scan(&s.Time, &s.Capacity, &s.Booked); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read day slots: %w", err)
	}
	return slots, nil
}

// HasDaySlots reports whether any capacity row exists for (hubID, date).
func (db *DB) HasDaySlots(ctx context.Context, hubID int64, date string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM slot_capacity WHERE hub_id = ? AND date = ?)`
	var exists bool
	if err := db.QueryRowContext(ctx, query, hubID, date).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check day slots: %w", err)
	}
	return exists, nil
}

// SeedDaySlots materializes capacity rows for the given labels with the
// default capacity and booked = 0. Existing rows are left untouched, so
// concurrent seeders converge on a single record set.
func (db *DB) SeedDaySlots(ctx context.Context, hubID int64, date string, labels []string, capacity int) error {
	query := `INSERT INTO slot_capacity (hub_id, date, slot_time, position, capacity, booked)
              VALUES (?, ?, ?, ?, ?, 0)
              ON CONFLICT(hub_id, date, slot_time) DO NOTHING`

	for i, label := range labels {
		if _, err := db.ExecContext(ctx, query, hubID, date, label, i, capacity); err != nil {
			return fmt.Errorf("failed to seed slot %s: %w", label, err)
		}
	}
	return nil
}

// SetSlotCapacity is the admin capacity-edit path. Shrinking below the
// current booked count is rejected so 0 <= booked <= capacity always holds.
func (db *DB) SetSlotCapacity(ctx context.Context, hubID int64, date, slot string, capacity int) error {
	query := `UPDATE slot_capacity SET capacity = ?
              WHERE hub_id = ? AND date = ? AND slot_time = ? AND booked <= ?`

	result, err := db.ExecContext(ctx, query, capacity, hubID, date, slot, capacity)
	if err != nil {
		return fmt.Errorf("failed to set slot capacity: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows > 0 {
		return nil
	}

	exists := false
	check := `SELECT EXISTS(SELECT 1 FROM slot_capacity WHERE hub_id = ? AND date = ? AND slot_time = ?)`
	if err := db.QueryRowContext(ctx, check, hubID, date, slot).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check slot row: %w", err)
	}
	if exists {
		return ErrCapacityBelowBooked
	}
	return ErrSlotNotOffered
}

// ApplyDaySchedule replaces the offered slot list of (hubID, date). The
// schedule override and the capacity rows change in one transaction, so a
// rejected update leaves both untouched. Retained labels keep their capacity
// and booked counts, new labels start at the default capacity, and labels no
// longer offered are removed. Removing a slot that still has active bookings
// rejects the whole update rather than orphaning its appointments.
func (db *DB) ApplyDaySchedule(ctx context.Context, hubID int64, date string, labels []string, capacity int) error {
	if labels == nil {
		labels = []string{}
	}
	slotsJSON, err := json.Marshal(labels)
	if err != nil {
		return fmt.Errorf("failed to encode slot list: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	keep := make(map[string]bool, len(labels))
	for _, label := range labels {
		keep[label] = true
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT slot_time, booked FROM slot_capacity WHERE hub_id = ? AND date = ?`, hubID, date)
	if err != nil {
		return fmt.Errorf("failed to read existing slots: %w", err)
	}
	var removed []string
	for rows.Next() {
		var slotTime string
		var booked int
		if err := rows.Scan(&slotTime, &booked); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan existing slot: %w", err)
		}
		if keep[slotTime] {
			continue
		}
		if booked > 0 {
			rows.Close()
			return fmt.Errorf("cannot remove slot %s: %w", slotTime, ErrSlotHasBookings)
		}
		removed = append(removed, slotTime)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read existing slots: %w", err)
	}

	for _, slotTime := range removed {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM slot_capacity WHERE hub_id = ? AND date = ? AND slot_time = ?`,
			hubID, date, slotTime); err != nil {
			return fmt.Errorf("failed to remove slot %s: %w", slotTime, err)
		}
	}

	upsert := `INSERT INTO slot_capacity (hub_id, date, slot_time, position, capacity, booked)
               VALUES (?, ?, ?, ?, ?, 0)
               ON CONFLICT(hub_id, date, slot_time) DO UPDATE SET position = excluded.position`
	for i, label := range labels {
		if _, err := tx.ExecContext(ctx, upsert, hubID, date, label, i, capacity); err != nil {
			return fmt.Errorf("failed to upsert slot %s: %w", label, err)
		}
	}

	now := time.Now()
	override := `INSERT INTO schedule_overrides (hub_id, date, is_day_off, slots, created_at, updated_at)
	             VALUES (?, ?, 0, ?, ?, ?)
	             ON CONFLICT(hub_id, date) DO UPDATE SET
	                 is_day_off = 0,
	                 slots = excluded.slots,
	                 updated_at = excluded.updated_at`
	if _, err := tx.ExecContext(ctx, override, hubID, date, string(slotsJSON), now, now); err != nil {
		return fmt.Errorf("failed to upsert schedule override: %w", err)
	}

	return tx.Commit()
}
