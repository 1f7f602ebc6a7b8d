package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hubbook/internal/models"
)

// GetOverride returns the schedule override for (hubID, date), or nil when
// no override exists (hub defaults apply, day is open).
func (db *DB) GetOverride(ctx context.Context, hubID int64, date string) (*models.ScheduleOverride, error) {
	query := `SELECT is_day_off, slots FROM schedule_overrides WHERE hub_id = ? AND date = ?`

	var slotsJSON string
	override := &models.ScheduleOverride{HubID: hubID, Date: date}
	err := db.QueryRowContext(ctx, query, hubID, date).Scan(&override.IsDayOff, &slotsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule override: %w", err)
	}

	if err := json.Unmarshal([]byte(slotsJSON), &override.Slots); err != nil {
		return nil, fmt.Errorf("failed to decode override slots: %w", err)
	}
	return override, nil
}

// UpsertOverride writes the override for (hubID, date), creating it on first
// use. Calling it twice with the same payload leaves identical state.
func (db *DB) UpsertOverride(ctx context.Context, override *models.ScheduleOverride) error {
	slots := override.Slots
	if slots == nil {
		slots = []string{}
	}
	slotsJSON, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("failed to encode override slots: %w", err)
	}

	query := `INSERT INTO schedule_overrides (hub_id, date, is_day_off, slots, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?)
              ON CONFLICT(hub_id, date) DO UPDATE SET
                  is_day_off = excluded.is_day_off,
                  slots = excluded.slots,
                  updated_at = excluded.updated_at`

	now := time.Now()
	if _, err := db.ExecContext(ctx, query, override.HubID, override.Date, override.IsDayOff, string(slotsJSON), now, now); err != nil {
		return fmt.Errorf("failed to upsert schedule override: %w", err)
	}
	return nil
}
