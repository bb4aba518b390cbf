// ABOUTME: Device-local state for SQLite storage: permissions, wearables, job schedules.
// ABOUTME: This state never leaves the device and is not part of export or sync.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/migraine/internal/models"
)

// ScheduledJob is a background job registered with the device scheduler.
type ScheduledJob struct {
	ID          models.JobID `json:"id" yaml:"id"`
	ScheduleID  string       `json:"schedule_id" yaml:"schedule_id"`
	Watchdog    bool         `json:"watchdog" yaml:"watchdog"`
	ScheduledAt time.Time    `json:"scheduled_at" yaml:"scheduled_at"`
}

// Permissions returns the granted state of every known permission.
// Permissions never recorded are reported as not granted.
func (d *DB) Permissions(ctx context.Context) (map[models.Permission]bool, error) {
	perms := make(map[models.Permission]bool, len(models.AllPermissions))
	for _, p := range models.AllPermissions {
		perms[p] = false
	}

	rows, err := d.db.QueryContext(ctx, "SELECT permission, granted FROM permissions")
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var granted int
		if err := rows.Scan(&name, &granted); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		perms[models.Permission(name)] = granted != 0
	}
	return perms, rows.Err()
}

// SetPermission records whether p is granted.
func (d *DB) SetPermission(ctx context.Context, p models.Permission, granted bool) error {
	if !models.IsValidPermission(string(p)) {
		return fmt.Errorf("unknown permission: %s", p)
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO permissions (permission, granted, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(permission) DO UPDATE SET granted = excluded.granted, updated_at = excluded.updated_at
	`, string(p), boolToInt(granted), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("set permission: %w", err)
	}
	return nil
}

// ConnectedSources returns the wearable sources currently connected.
func (d *DB) ConnectedSources(ctx context.Context) (map[string]bool, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT source FROM wearable_connections")
	if err != nil {
		return nil, fmt.Errorf("list wearable connections: %w", err)
	}
	defer rows.Close()

	connected := make(map[string]bool)
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, fmt.Errorf("scan wearable connection: %w", err)
		}
		connected[source] = true
	}
	return connected, rows.Err()
}

// SetSourceConnected records a wearable connection or disconnection.
func (d *DB) SetSourceConnected(ctx context.Context, source string, connected bool) error {
	if !models.IsValidSource(source) {
		return fmt.Errorf("unknown wearable source: %s", source)
	}

	var err error
	if connected {
		_, err = d.db.ExecContext(ctx, `
			INSERT INTO wearable_connections (source, connected_at) VALUES (?, ?)
			ON CONFLICT(source) DO NOTHING
		`, source, time.Now().UTC().Format(time.RFC3339Nano))
	} else {
		_, err = d.db.ExecContext(ctx, "DELETE FROM wearable_connections WHERE source = ?", source)
	}
	if err != nil {
		return fmt.Errorf("set wearable connection: %w", err)
	}
	return nil
}

// ListJobs returns the scheduled jobs ordered by id.
func (d *DB) ListJobs(ctx context.Context) ([]*ScheduledJob, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT job_id, schedule_id, watchdog, scheduled_at
		FROM scheduled_jobs
		ORDER BY job_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*ScheduledJob
	for rows.Next() {
		var j ScheduledJob
		var id, scheduledAt string
		var watchdog int
		if err := rows.Scan(&id, &j.ScheduleID, &watchdog, &scheduledAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		j.ID = models.JobID(id)
		j.Watchdog = watchdog != 0
		j.ScheduledAt, _ = time.Parse(time.RFC3339Nano, scheduledAt)
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

// PutJob registers or replaces a scheduled job.
func (d *DB) PutJob(ctx context.Context, j *ScheduledJob) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO scheduled_jobs (job_id, schedule_id, watchdog, scheduled_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			schedule_id = excluded.schedule_id,
			watchdog = excluded.watchdog,
			scheduled_at = excluded.scheduled_at
	`, string(j.ID), j.ScheduleID, boolToInt(j.Watchdog), j.ScheduledAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put job: %w", err)
	}
	return nil
}

// RemoveJob unregisters a job. It reports whether the job was scheduled.
func (d *DB) RemoveJob(ctx context.Context, id models.JobID) (bool, error) {
	result, err := d.db.ExecContext(ctx, "DELETE FROM scheduled_jobs WHERE job_id = ?", string(id))
	if err != nil {
		return false, fmt.Errorf("remove job: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove job: %w", err)
	}
	return affected > 0, nil
}
