package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Register driver
)

// DB wraps the sql.DB connection.
type DB struct {
	*sql.DB
}

// Init opens the database and runs migrations.
func Init(path string) (*DB, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	// Enable WAL mode for better concurrency and set busy timeout
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000;"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	d := &DB{db}
	// Enforce single connection to avoid SQLITE_BUSY errors during concurrent writes
	db.SetMaxOpenConns(1)

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return d, nil
}

// PruneCache removes cache entries older than the specified duration.
func (d *DB) PruneCache(olderThan time.Duration) error {
	// Format time compatible with SQLite DEFAULT CURRENT_TIMESTAMP (YYYY-MM-DD HH:MM:SS)
	deadline := time.Now().Add(-olderThan).UTC().Format("2006-01-02 15:04:05")
	_, err := d.Exec("DELETE FROM cache WHERE created_at < ?", deadline)
	return err
}

// PruneSessions removes sessions (and their checkpoints) that have not been
// touched for the specified duration.
func (d *DB) PruneSessions(olderThan time.Duration) error {
	deadline := time.Now().Add(-olderThan).UTC().Format("2006-01-02 15:04:05")
	if _, err := d.Exec(`DELETE FROM checkpoints WHERE session_id IN
		(SELECT session_id FROM sessions WHERE updated_at < ?)`, deadline); err != nil {
		return err
	}
	_, err := d.Exec("DELETE FROM sessions WHERE updated_at < ?", deadline)
	return err
}

func (d *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			state TEXT,
			seq INTEGER DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS checkpoints (
			session_id TEXT,
			seq INTEGER,
			state TEXT,
			snapshot BLOB,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (session_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS destinations (
			id TEXT PRIMARY KEY,
			name TEXT,
			locality TEXT,
			country TEXT,
			description TEXT,
			photogenic INTEGER,
			safety INTEGER,
			tags TEXT,
			vibes TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS hidden_spots (
			id TEXT PRIMARY KEY,
			destination_id TEXT,
			name TEXT,
			lat REAL,
			lon REAL,
			photo_tips TEXT,
			crowd TEXT,
			best_visit_time TEXT,
			authenticity REAL,
			photogenic REAL,
			accessibility REAL,
			safety REAL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_hidden_spots_dest ON hidden_spots (destination_id);`,
		`CREATE TABLE IF NOT EXISTS images (
			id TEXT PRIMARY KEY,
			session_id TEXT,
			spot_id TEXT,
			prompt TEXT,
			revised_prompt TEXT,
			asset_ref TEXT,
			width INTEGER,
			height INTEGER,
			attempts INTEGER,
			failures TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS persistent_state (
			key TEXT PRIMARY KEY,
			value TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS cache (
			key TEXT PRIMARY KEY,
			value BLOB,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}

	for _, q := range queries {
		if _, err := d.Exec(q); err != nil {
			return fmt.Errorf("exec error: %w query: %s", err, q)
		}
	}

	// Migration: Add vibes if missing (pre-1.1 databases)
	var colCount int
	err := d.QueryRow("SELECT count(*) FROM pragma_table_info('destinations') WHERE name='vibes'").Scan(&colCount)
	if err == nil && colCount == 0 {
		if _, err := d.Exec("ALTER TABLE destinations ADD COLUMN vibes TEXT"); err != nil {
			return fmt.Errorf("failed to add vibes column: %w", err)
		}
	}

	return nil
}
