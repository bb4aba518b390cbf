// ABOUTME: Migraine and JournalItem CRUD operations for SQLite storage.
// ABOUTME: Implements Repository interface methods for the journal with cascade delete.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/migraine/internal/models"
)

// CreateMigraine stores a new migraine in the database.
func (d *DB) CreateMigraine(ctx context.Context, m *models.Migraine) error {
	if err := m.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO migraines (id, started_at, ended_at, severity, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := d.db.ExecContext(ctx, query,
		m.ID.String(),
		m.StartedAt.UTC().Format(time.RFC3339),
		formatTimePtr(m.EndedAt),
		m.Severity,
		m.Notes,
		m.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("create migraine: %w", err)
	}
	return nil
}

// GetMigraine retrieves a migraine by ID or ID prefix (without items).
func (d *DB) GetMigraine(ctx context.Context, idOrPrefix string) (*models.Migraine, error) {
	id, err := d.resolveID(ctx, "migraines", idOrPrefix)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, started_at, ended_at, severity, notes, created_at
		FROM migraines
		WHERE id = ?
	`
	return scanMigraine(d.db.QueryRowContext(ctx, query, id))
}

// GetMigraineWithItems retrieves a migraine with all its journal items.
func (d *DB) GetMigraineWithItems(ctx context.Context, idOrPrefix string) (*models.Migraine, error) {
	m, err := d.GetMigraine(ctx, idOrPrefix)
	if err != nil {
		return nil, err
	}

	items, err := d.ListJournalItems(ctx, ItemFilter{MigraineID: &m.ID})
	if err != nil {
		return nil, fmt.Errorf("list journal items: %w", err)
	}

	for _, it := range items {
		m.Items = append(m.Items, *it)
	}

	return m, nil
}

// ListMigraines retrieves migraines sorted by StartedAt descending (most recent first).
func (d *DB) ListMigraines(ctx context.Context, limit int) ([]*models.Migraine, error) {
	query := `
		SELECT id, started_at, ended_at, severity, notes, created_at
		FROM migraines
		ORDER BY started_at DESC
	`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list migraines: %w", err)
	}
	defer rows.Close()

	var migraines []*models.Migraine
	for rows.Next() {
		m, err := scanMigraine(rows)
		if err != nil {
			return nil, err
		}
		migraines = append(migraines, m)
	}

	return migraines, rows.Err()
}

// UpdateMigraine rewrites the mutable fields of an existing migraine.
func (d *DB) UpdateMigraine(ctx context.Context, m *models.Migraine) error {
	if err := m.Validate(); err != nil {
		return err
	}

	result, err := d.db.ExecContext(ctx, `
		UPDATE migraines SET started_at = ?, ended_at = ?, severity = ?, notes = ?
		WHERE id = ?
	`,
		m.StartedAt.UTC().Format(time.RFC3339),
		formatTimePtr(m.EndedAt),
		m.Severity,
		m.Notes,
		m.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update migraine: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update migraine: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("not found: %s", m.ID)
	}
	return nil
}

// DeleteMigraine removes a migraine and all its items (cascade delete).
func (d *DB) DeleteMigraine(ctx context.Context, idOrPrefix string) error {
	id, err := d.resolveID(ctx, "migraines", idOrPrefix)
	if err != nil {
		return fmt.Errorf("delete migraine: %w", err)
	}

	// CASCADE is enabled, so deleting the migraine deletes its items
	result, err := d.db.ExecContext(ctx, "DELETE FROM migraines WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete migraine: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete migraine: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("not found: %s", idOrPrefix)
	}

	return nil
}

// AddJournalItem stores a new journal item in the database.
func (d *DB) AddJournalItem(ctx context.Context, it *models.JournalItem) error {
	if !models.IsValidItemKind(string(it.Kind)) {
		return fmt.Errorf("unknown item kind: %s", it.Kind)
	}

	var migraineID *string
	if it.MigraineID != nil {
		s := it.MigraineID.String()
		migraineID = &s
	}

	query := `
		INSERT INTO journal_items (id, migraine_id, kind, name, amount, unit, recorded_at, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := d.db.ExecContext(ctx, query,
		it.ID.String(),
		migraineID,
		string(it.Kind),
		it.Name,
		it.Amount,
		it.Unit,
		it.RecordedAt.UTC().Format(time.RFC3339),
		it.Notes,
		it.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("add journal item: %w", err)
	}
	return nil
}

// ListJournalItems retrieves items matching filter, most recent first.
func (d *DB) ListJournalItems(ctx context.Context, filter ItemFilter) ([]*models.JournalItem, error) {
	query := `
		SELECT id, migraine_id, kind, name, amount, unit, recorded_at, notes, created_at
		FROM journal_items
	`
	var where []string
	var args []interface{}

	if filter.Kind != nil {
		where = append(where, "kind = ?")
		args = append(args, string(*filter.Kind))
	}
	if filter.MigraineID != nil {
		where = append(where, "migraine_id = ?")
		args = append(args, filter.MigraineID.String())
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY recorded_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list journal items: %w", err)
	}
	defer rows.Close()

	var items []*models.JournalItem
	for rows.Next() {
		var it models.JournalItem
		var idStr, kind, recordedAt, createdAt string
		var migraineID, unit, notes sql.NullString
		var amount sql.NullFloat64

		err := rows.Scan(&idStr, &migraineID, &kind, &it.Name, &amount, &unit, &recordedAt, &notes, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan journal item: %w", err)
		}

		it.ID, _ = uuid.Parse(idStr)
		it.Kind = models.ItemKind(kind)
		it.RecordedAt, _ = time.Parse(time.RFC3339, recordedAt)
		it.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if migraineID.Valid {
			if id, err := uuid.Parse(migraineID.String); err == nil {
				it.MigraineID = &id
			}
		}
		if amount.Valid {
			it.Amount = &amount.Float64
		}
		if unit.Valid {
			it.Unit = &unit.String
		}
		if notes.Valid {
			it.Notes = &notes.String
		}

		items = append(items, &it)
	}

	return items, rows.Err()
}

// DeleteJournalItem removes a journal item by ID or prefix.
func (d *DB) DeleteJournalItem(ctx context.Context, idOrPrefix string) error {
	id, err := d.resolveID(ctx, "journal_items", idOrPrefix)
	if err != nil {
		return fmt.Errorf("delete journal item: %w", err)
	}

	result, err := d.db.ExecContext(ctx, "DELETE FROM journal_items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete journal item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete journal item: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("not found: %s", idOrPrefix)
	}

	return nil
}

// resolveID finds the full ID in table from a prefix.
func (d *DB) resolveID(ctx context.Context, table, idOrPrefix string) (string, error) {
	// If it looks like a full UUID, use it directly
	if len(idOrPrefix) == 36 && strings.Count(idOrPrefix, "-") == 4 {
		return idOrPrefix, nil
	}

	query := fmt.Sprintf(`SELECT id FROM %s WHERE id LIKE ? || '%%'`, table)
	rows, err := d.db.QueryContext(ctx, query, idOrPrefix)
	if err != nil {
		return "", fmt.Errorf("resolve ID: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan ID: %w", err)
		}
		matches = append(matches, id)
	}

	return MatchPrefix(idOrPrefix, matches)
}

// MatchPrefix returns the single id in matches, or a not-found / ambiguous error.
func MatchPrefix(idOrPrefix string, matches []string) (string, error) {
	if len(matches) == 0 {
		return "", fmt.Errorf("not found: %s", idOrPrefix)
	}
	if len(matches) > 1 {
		return "", fmt.Errorf("ambiguous prefix %s: matches multiple records", idOrPrefix)
	}
	return matches[0], nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanMigraine scans a single row into a Migraine struct.
func scanMigraine(row rowScanner) (*models.Migraine, error) {
	var m models.Migraine
	var idStr, startedAt, createdAt string
	var endedAt, notes sql.NullString

	err := row.Scan(&idStr, &startedAt, &endedAt, &m.Severity, &notes, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("not found")
		}
		return nil, fmt.Errorf("scan migraine: %w", err)
	}

	m.ID, _ = uuid.Parse(idStr)
	m.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if endedAt.Valid {
		if t, err := time.Parse(time.RFC3339, endedAt.String); err == nil {
			m.EndedAt = &t
		}
	}
	if notes.Valid {
		m.Notes = &notes.String
	}

	return &m, nil
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
