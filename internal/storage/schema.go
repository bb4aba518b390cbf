// ABOUTME: SQLite schema definition and initialization.
// ABOUTME: Defines tables for settings, menstruation, journal, and device state.
package storage

// initSchema creates or updates the database schema.
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS metric_settings (
		metric TEXT NOT NULL,
		preferred_source TEXT NOT NULL DEFAULT '',
		enabled INTEGER NOT NULL,
		allowed_sources TEXT NOT NULL DEFAULT '',
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (metric, preferred_source)
	);

	CREATE TABLE IF NOT EXISTS menstruation_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		last_period_date TEXT,
		avg_cycle_length_days INTEGER NOT NULL,
		auto_update_average INTEGER NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS migraines (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		severity INTEGER NOT NULL,
		notes TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS journal_items (
		id TEXT PRIMARY KEY,
		migraine_id TEXT,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		amount REAL,
		unit TEXT,
		recorded_at DATETIME NOT NULL,
		notes TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (migraine_id) REFERENCES migraines(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS permissions (
		permission TEXT PRIMARY KEY,
		granted INTEGER NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS wearable_connections (
		source TEXT PRIMARY KEY,
		connected_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS scheduled_jobs (
		job_id TEXT PRIMARY KEY,
		schedule_id TEXT NOT NULL,
		watchdog INTEGER NOT NULL,
		scheduled_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_migraines_started ON migraines(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_journal_items_migraine ON journal_items(migraine_id);
	CREATE INDEX IF NOT EXISTS idx_journal_items_kind_recorded ON journal_items(kind, recorded_at DESC);
	`

	_, err := d.db.Exec(schema)
	return err
}
