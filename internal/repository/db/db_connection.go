package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

// InitDB opens/creates the SQLite file at path and ensures every table exists.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// One writer: the persistence worker and the API share this handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

const schemaSettings = `
CREATE TABLE IF NOT EXISTS settings (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    target_heat_f REAL NOT NULL,
    target_cool_f REAL NOT NULL,
    mode TEXT NOT NULL,
    fan_mode TEXT NOT NULL,
    source TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaSettingHistory = `
CREATE TABLE IF NOT EXISTS setting_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    occurred_at TIMESTAMP NOT NULL,
    source TEXT NOT NULL,
    snapshot TEXT NOT NULL
);
`

const schemaSchedules = `
CREATE TABLE IF NOT EXISTS schedules (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT UNIQUE NOT NULL,
    days_of_week TEXT NOT NULL,
    time_of_day TEXT NOT NULL,
    target_heat_f REAL,
    target_cool_f REAL,
    mode TEXT,
    enabled BOOLEAN NOT NULL DEFAULT 1
);
`

const schemaStageConfigs = `
CREATE TABLE IF NOT EXISTS stage_configs (
    kind TEXT NOT NULL CHECK (kind IN ('heat', 'cool')),
    stage_number INTEGER NOT NULL CHECK (stage_number >= 1),
    relay_channel INTEGER UNIQUE NOT NULL,
    temp_offset_f REAL NOT NULL CHECK (temp_offset_f >= 0),
    min_run_s INTEGER NOT NULL,
    min_rest_s INTEGER NOT NULL,
    enabled BOOLEAN NOT NULL DEFAULT 1,
    PRIMARY KEY (kind, stage_number)
);
`

const schemaSensors = `
CREATE TABLE IF NOT EXISTS sensors (
    sensor_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    enabled BOOLEAN NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL
);
`

const schemaSensorHistory = `
CREATE TABLE IF NOT EXISTS sensor_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    sensor_id TEXT NOT NULL,
    sensor_name TEXT NOT NULL,
    temperature_f REAL NOT NULL,
    compromised BOOLEAN NOT NULL,
    recorded_at TIMESTAMP NOT NULL
);
`

const schemaHVACHistory = `
CREATE TABLE IF NOT EXISTS hvac_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    system_temp_f REAL,
    target_heat_f REAL NOT NULL,
    target_cool_f REAL NOT NULL,
    mode TEXT NOT NULL,
    fan_mode TEXT NOT NULL,
    heat_stages TEXT NOT NULL,
    cool_stages TEXT NOT NULL,
    fan BOOLEAN NOT NULL,
    recorded_at TIMESTAMP NOT NULL
);
`

const schemaEvents = `
CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    occurred_at TIMESTAMP NOT NULL,
    type TEXT NOT NULL,
    source TEXT,
    message TEXT NOT NULL,
    meta TEXT
);
`

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL
);
`

const schemaIndexes = `
CREATE INDEX IF NOT EXISTS idx_sensor_history_recorded ON sensor_history (recorded_at);
CREATE INDEX IF NOT EXISTS idx_sensor_history_sensor ON sensor_history (sensor_id, recorded_at);
CREATE INDEX IF NOT EXISTS idx_hvac_history_recorded ON hvac_history (recorded_at);
CREATE INDEX IF NOT EXISTS idx_setting_history_occurred ON setting_history (occurred_at);
CREATE INDEX IF NOT EXISTS idx_events_occurred ON events (occurred_at);
`

// EnsureSchema applies all CREATE statements in one transaction.
func EnsureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range []string{
		schemaSettings,
		schemaSettingHistory,
		schemaSchedules,
		schemaStageConfigs,
		schemaSensors,
		schemaSensorHistory,
		schemaHVACHistory,
		schemaEvents,
		schemaUsers,
		schemaIndexes,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
