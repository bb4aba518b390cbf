// ABOUTME: SQLite handle for the local store, settings cache, and device state.
// ABOUTME: Pragmas ride on the DSN so every pooled connection gets them.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// schemaVersion is stored in PRAGMA user_version after initSchema runs.
const schemaVersion = 1

// DB is the local SQLite database.
type DB struct {
	db   *sql.DB
	path string
}

var (
	_ Repository    = (*DB)(nil)
	_ SettingsCache = (*DB)(nil)
	_ Device        = (*DB)(nil)
)

func dsn(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
}

// Open opens or creates the database at path, creating its directory first.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer; settings writes and job rows never contend
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set database permissions: %w", err)
	}

	d := &DB{db: conn, path: path}
	if err := d.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) migrate() error {
	var version int
	if err := d.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported %d", version, schemaVersion)
	}
	if err := d.initSchema(); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	if _, err := d.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}
	return nil
}

// DataDir returns $XDG_DATA_HOME/migraine, defaulting to ~/.local/share.
func DataDir() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "migraine")
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}
