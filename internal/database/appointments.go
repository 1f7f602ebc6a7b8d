package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hubbook/internal/models"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// BookSlot performs the booking transaction: a conditional increment of the
// slot's booked counter guarded by booked < capacity, then the appointment
// insert. Both happen inside one SQLite transaction, so a failed insert
// rolls the increment back and a lost compare-and-swap mutates nothing.
func (db *DB) BookSlot(ctx context.Context, hubID int64, date, slot string, userID int64) (*models.Appointment, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// The store evaluates the guard and applies the increment as one
	// indivisible statement; zero rows affected means the slot is full.
	result, err := tx.ExecContext(ctx,
		`UPDATE slot_capacity SET booked = booked + 1
         WHERE hub_id = ? AND date = ? AND slot_time = ? AND booked < capacity`,
		hubID, date, slot)
	if err != nil {
		return nil, fmt.Errorf("failed to increment booked counter: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, ErrSlotFull
	}

	now := time.Now()
	appointment := &models.Appointment{
		Ref:       uuid.NewString(),
		UserID:    userID,
		HubID:     hubID,
		Date:      date,
		SlotTime:  slot,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	insert, err := tx.ExecContext(ctx,
		`INSERT INTO appointments (ref, user_id, hub_id, date, slot_time, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		appointment.Ref, userID, hubID, date, slot, appointment.Status, now, now)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return nil, ErrDuplicateBooking
		}
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	id, err := insert.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment id: %w", err)
	}
	appointment.ID = id

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit booking: %w", err)
	}
	return appointment, nil
}

// CancelBooking flips the user's active appointment for the slot to
// cancelled and decrements the booked counter, as one transaction. The
// booked > 0 guard defends against double-cancellation races; if it fails
// the status flip is rolled back too.
func (db *DB) CancelBooking(ctx context.Context, hubID int64, date, slot string, userID int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx,
		`UPDATE appointments SET status = ?, updated_at = ?
         WHERE user_id = ? AND hub_id = ? AND date = ? AND slot_time = ?
           AND status IN (?, ?)`,
		models.StatusCancelled, time.Now(), userID, hubID, date, slot,
		models.StatusPending, models.StatusConfirmed)
	if err != nil {
		return fmt.Errorf("failed to cancel appointment: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrAppointmentNotFound
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE slot_capacity SET booked = booked - 1
         WHERE hub_id = ? AND date = ? AND slot_time = ? AND booked > 0`,
		hubID, date, slot)
	if err != nil {
		return fmt.Errorf("failed to decrement booked counter: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("booked counter already zero for hub %d %s %s", hubID, date, slot)
	}

	return tx.Commit()
}

// CountActiveAppointments returns the number of slot-consuming appointments
// for one (hub, date, time). It must always equal the slot's booked counter.
func (db *DB) CountActiveAppointments(ctx context.Context, hubID int64, date, slot string) (int, error) {
	query := `SELECT COUNT(*) FROM appointments
              WHERE hub_id = ? AND date = ? AND slot_time = ? AND status IN (?, ?)`

	var count int
	err := db.QueryRowContext(ctx, query, hubID, date, slot,
		models.StatusPending, models.StatusConfirmed).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active appointments: %w", err)
	}
	return count, nil
}

// GetUserAppointments returns the user's appointments, newest first.
func (db *DB) GetUserAppointments(ctx context.Context, userID int64) ([]*models.Appointment, error) {
	query := `SELECT id, ref, user_id, hub_id, date, slot_time, status, created_at, updated_at
              FROM appointments WHERE user_id = ? ORDER BY created_at DESC`

	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user appointments: %w", err)
	}
	defer rows.Close()

	var appointments []*models.Appointment
	for rows.Next() {
		a := &models.Appointment{}
		if err := rows.Scan(&a.ID, &a.Ref, &a.UserID, &a.HubID, &a.Date, &a.SlotTime,
			&a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appointments = append(appointments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read appointments: %w", err)
	}
	return appointments, nil
}
