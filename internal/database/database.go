package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"hubbook/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DB wraps the SQLite handle holding the schedule, capacity and appointment
// stores, plus the in-memory hub catalog loaded from configuration.
type DB struct {
	*sql.DB
	logger *zerolog.Logger

	mu         sync.RWMutex
	hubs       map[int64]*models.Hub
	sortedHubs []*models.Hub
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL lets concurrent booking requests proceed; busy_timeout makes
	// writers queue instead of failing with SQLITE_BUSY.
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{DB: db, logger: logger, hubs: make(map[int64]*models.Hub)}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS schedule_overrides (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            hub_id INTEGER NOT NULL,
            date TEXT NOT NULL,
            is_day_off BOOLEAN NOT NULL DEFAULT 0,
            slots TEXT NOT NULL DEFAULT '[]',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            UNIQUE(hub_id, date)
        )`,
		`CREATE TABLE IF NOT EXISTS slot_capacity (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            hub_id INTEGER NOT NULL,
            date TEXT NOT NULL,
            slot_time TEXT NOT NULL,
            position INTEGER NOT NULL DEFAULT 0,
            capacity INTEGER NOT NULL,
            booked INTEGER NOT NULL DEFAULT 0,
            UNIQUE(hub_id, date, slot_time),
            CHECK(capacity >= 0),
            CHECK(booked >= 0 AND booked <= capacity)
        )`,
		`CREATE TABLE IF NOT EXISTS appointments (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            ref TEXT UNIQUE NOT NULL,
            user_id INTEGER NOT NULL,
            hub_id INTEGER NOT NULL,
            date TEXT NOT NULL,
            slot_time TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE INDEX IF NOT EXISTS idx_overrides_hub_date ON schedule_overrides(hub_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_capacity_hub_date ON slot_capacity(hub_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_slot ON appointments(hub_id, date, slot_time)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_user ON appointments(user_id)`,

		// One active appointment per user per slot.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_appointments_active_unique
            ON appointments(user_id, hub_id, date, slot_time)
            WHERE status IN ('pending', 'confirmed')`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// SetHubs replaces the in-memory hub catalog. Order of the slice is kept for
// listing endpoints.
func (db *DB) SetHubs(hubs []*models.Hub) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.hubs = make(map[int64]*models.Hub, len(hubs))
	for _, hub := range hubs {
		db.hubs[hub.ID] = hub
	}
	db.sortedHubs = hubs
}

// GetHub returns the hub by ID or ErrHubNotFound. Inactive hubs are treated
// as unknown so they disappear from the booking surface without data churn.
func (db *DB) GetHub(id int64) (*models.Hub, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	hub, ok := db.hubs[id]
	if !ok || !hub.Active {
		return nil, ErrHubNotFound
	}
	return hub, nil
}

// GetHubs returns the configured hub catalog in configuration order.
func (db *DB) GetHubs() []*models.Hub {
	db.mu.RLock()
	defer db.mu.RUnlock()
	hubs := make([]*models.Hub, len(db.sortedHubs))
	copy(hubs, db.sortedHubs)
	return hubs
}

func (db *DB) Close() error {
	return db.DB.Close()
}
