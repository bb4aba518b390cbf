// ABOUTME: Metric and menstruation settings for SQLite storage.
// ABOUTME: Implements Repository and SettingsCache methods for settings tables.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/migraine/internal/models"
)

// ListSettings returns every stored metric setting ordered by metric and source.
func (d *DB) ListSettings(ctx context.Context) ([]*models.MetricSetting, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT metric, preferred_source, enabled, allowed_sources, updated_at
		FROM metric_settings
		ORDER BY metric, preferred_source
	`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []*models.MetricSetting
	for rows.Next() {
		var s models.MetricSetting
		var source, allowed, updatedAt string
		var enabled int

		if err := rows.Scan(&s.Metric, &source, &enabled, &allowed, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}

		s.Enabled = enabled != 0
		s.WithSource(source)
		if allowed != "" {
			s.AllowedSources = strings.Split(allowed, ",")
		}
		s.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

		settings = append(settings, &s)
	}

	return settings, rows.Err()
}

// UpsertSetting inserts or replaces the setting for its (metric, source) key.
func (d *DB) UpsertSetting(ctx context.Context, s *models.MetricSetting) error {
	return upsertSetting(ctx, d.db, s)
}

// ReplaceSettings swaps the full settings table for the given rows.
func (d *DB) ReplaceSettings(ctx context.Context, settings []*models.MetricSetting) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace settings: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM metric_settings"); err != nil {
		return fmt.Errorf("clear settings: %w", err)
	}
	for _, s := range settings {
		if err := upsertSetting(ctx, tx, s); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace settings: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertSetting(ctx context.Context, ex execer, s *models.MetricSetting) error {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}

	_, err := ex.ExecContext(ctx, `
		INSERT INTO metric_settings (metric, preferred_source, enabled, allowed_sources, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (metric, preferred_source) DO UPDATE SET
			enabled = excluded.enabled,
			allowed_sources = excluded.allowed_sources,
			updated_at = excluded.updated_at
	`,
		s.Metric,
		s.Source(),
		boolToInt(s.Enabled),
		strings.Join(s.AllowedSources, ","),
		s.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert setting %s: %w", s.Key(), err)
	}
	return nil
}

// GetMenstruationSettings returns the stored settings, or defaults when none are saved.
func (d *DB) GetMenstruationSettings(ctx context.Context) (*models.MenstruationSettings, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT last_period_date, avg_cycle_length_days, auto_update_average, updated_at
		FROM menstruation_settings
		WHERE id = 1
	`)

	m := &models.MenstruationSettings{}
	var lastPeriod sql.NullString
	var auto int
	var updatedAt string

	err := row.Scan(&lastPeriod, &m.AvgCycleLengthDays, &auto, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DefaultMenstruationSettings(), nil
		}
		return nil, fmt.Errorf("get menstruation settings: %w", err)
	}

	m.AutoUpdateAverage = auto != 0
	m.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	if lastPeriod.Valid {
		t, err := time.Parse(time.DateOnly, lastPeriod.String)
		if err == nil {
			m.LastPeriodDate = &t
		}
	}

	return m, nil
}

// SaveMenstruationSettings validates and stores the settings.
func (d *DB) SaveMenstruationSettings(ctx context.Context, m *models.MenstruationSettings) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now()
	}

	var lastPeriod *string
	if m.LastPeriodDate != nil {
		s := m.LastPeriodDate.Format(time.DateOnly)
		lastPeriod = &s
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO menstruation_settings (id, last_period_date, avg_cycle_length_days, auto_update_average, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			last_period_date = excluded.last_period_date,
			avg_cycle_length_days = excluded.avg_cycle_length_days,
			auto_update_average = excluded.auto_update_average,
			updated_at = excluded.updated_at
	`, lastPeriod, m.AvgCycleLengthDays, boolToInt(m.AutoUpdateAverage), m.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save menstruation settings: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
