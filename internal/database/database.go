// Package database is the sqlite-backed Storage implementation. All SQL lives
// here; table names carry an environment prefix so dev and prod can share one
// database file.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	*sql.DB
	prefix string
	logger zerolog.Logger
}

// NewDB opens (or creates) the sqlite database and ensures the schema exists.
// prefix is prepended to every table name, e.g. "dev_" or "prod_".
func NewDB(path, prefix string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "database").Logger()
	}

	db := &DB{DB: sqlDB, prefix: prefix, logger: base}
	if err := db.createTables(); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	db.logger.Info().Str("path", path).Str("prefix", prefix).Msg("database initialized")
	return db, nil
}

// table resolves a logical table name to its prefixed physical name.
func (db *DB) table(name string) string {
	return db.prefix + name
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS %[1]stime_slots (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            start_time DATETIME NOT NULL,
            end_time DATETIME NOT NULL,
            price_cents INTEGER NOT NULL,
            status TEXT NOT NULL DEFAULT 'available',
            reservation_expiry DATETIME,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            UNIQUE(start_time)
        )`,
		`CREATE TABLE IF NOT EXISTS %[1]sbookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            reference TEXT UNIQUE NOT NULL,
            customer_name TEXT NOT NULL,
            email TEXT NOT NULL,
            phone TEXT NOT NULL,
            equipment_rental BOOLEAN NOT NULL DEFAULT 0,
            comment TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS %[1]sbooking_time_slots (
            booking_id INTEGER NOT NULL REFERENCES %[1]sbookings(id),
            time_slot_id INTEGER NOT NULL REFERENCES %[1]stime_slots(id),
            PRIMARY KEY (booking_id, time_slot_id)
        )`,
		`CREATE TABLE IF NOT EXISTS %[1]soperating_hours (
            weekday INTEGER PRIMARY KEY,
            open_time TEXT NOT NULL,
            close_time TEXT NOT NULL,
            is_closed BOOLEAN NOT NULL DEFAULT 0
        )`,
		`CREATE TABLE IF NOT EXISTS %[1]spricing_rules (
            name TEXT PRIMARY KEY,
            price_cents INTEGER NOT NULL,
            start_time TEXT,
            end_time TEXT,
            applies_weekends BOOLEAN NOT NULL DEFAULT 0
        )`,
		`CREATE TABLE IF NOT EXISTS %[1]slead_time_settings (
            id INTEGER PRIMARY KEY CHECK (id = 1),
            mode TEXT NOT NULL DEFAULT 'off',
            lead_time_days INTEGER NOT NULL DEFAULT 0,
            operator_on_site BOOLEAN NOT NULL DEFAULT 0,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS %[1]sconfiguration (
            name TEXT PRIMARY KEY,
            value TEXT NOT NULL,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS %[1]ssync_queue (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            task_type TEXT NOT NULL,
            booking_id INTEGER NOT NULL,
            payload TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            processed_at DATETIME,
            next_retry_at DATETIME
        )`,

		`CREATE INDEX IF NOT EXISTS idx_%[1]stime_slots_start ON %[1]stime_slots(start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_%[1]stime_slots_status ON %[1]stime_slots(status)`,
		`CREATE INDEX IF NOT EXISTS idx_%[1]sbookings_reference ON %[1]sbookings(reference)`,
		`CREATE INDEX IF NOT EXISTS idx_%[1]sbts_slot ON %[1]sbooking_time_slots(time_slot_id)`,
		`CREATE INDEX IF NOT EXISTS idx_%[1]ssync_queue_status ON %[1]ssync_queue(status)`,
	}

	for _, q := range queries {
		query := fmt.Sprintf(q, db.prefix)
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("exec %s: %w", firstLine(query), err)
		}
	}
	return nil
}

func firstLine(q string) string {
	q = strings.TrimSpace(q)
	if i := strings.IndexByte(q, '\n'); i > 0 {
		return q[:i]
	}
	return q
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
