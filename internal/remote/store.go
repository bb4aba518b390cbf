// ABOUTME: Remote Repository implementation backed by PostgREST tables.
// ABOUTME: All rows are scoped to one user id; id prefixes are resolved client-side.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/migraine/internal/models"
	"github.com/harperreed/migraine/internal/storage"
	"golang.org/x/sync/errgroup"
)

// Remote table names.
const (
	TableMetricSettings       = "metric_settings"
	TableMenstruationSettings = "menstruation_settings"
	TableMigraines            = "migraines"
	TableJournalItems         = "journal_items"
)

// Store is the remote authoritative store for a single user.
type Store struct {
	client *Client
	userID string
}

// Compile-time interface check.
var _ storage.Repository = (*Store)(nil)

// NewStore creates a store scoped to userID.
func NewStore(client *Client, userID string) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	return &Store{client: client, userID: userID}, nil
}

// Close is a no-op; the HTTP client holds no per-store resources.
func (s *Store) Close() error {
	return nil
}

// settingRow is the wire form of a metric setting. A missing preferred
// source is stored as the empty string so it participates in the unique key.
type settingRow struct {
	UserID          string    `json:"user_id"`
	Metric          string    `json:"metric"`
	PreferredSource string    `json:"preferred_source"`
	Enabled         bool      `json:"enabled"`
	AllowedSources  []string  `json:"allowed_sources"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ListSettings returns every stored metric setting for the user.
func (s *Store) ListSettings(ctx context.Context) ([]*models.MetricSetting, error) {
	resp, err := s.client.From(TableMetricSettings).
		Select("*").
		Eq("user_id", s.userID).
		Order("metric", true).
		Order("preferred_source", true).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}

	var rows []settingRow
	if err := resp.JSON(&rows); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}

	settings := make([]*models.MetricSetting, 0, len(rows))
	for _, r := range rows {
		ms := &models.MetricSetting{
			Metric:         r.Metric,
			Enabled:        r.Enabled,
			AllowedSources: r.AllowedSources,
			UpdatedAt:      r.UpdatedAt,
		}
		settings = append(settings, ms.WithSource(r.PreferredSource))
	}
	return settings, nil
}

// UpsertSetting writes the setting for its (metric, source) key.
func (s *Store) UpsertSetting(ctx context.Context, ms *models.MetricSetting) error {
	if ms.UpdatedAt.IsZero() {
		ms.UpdatedAt = time.Now()
	}
	row := settingRow{
		UserID:          s.userID,
		Metric:          ms.Metric,
		PreferredSource: ms.Source(),
		Enabled:         ms.Enabled,
		AllowedSources:  ms.AllowedSources,
		UpdatedAt:       ms.UpdatedAt.UTC(),
	}
	if row.AllowedSources == nil {
		row.AllowedSources = []string{}
	}

	_, err := s.client.From(TableMetricSettings).
		Upsert("user_id,metric,preferred_source").
		ExecuteInsert(ctx, row)
	if err != nil {
		return fmt.Errorf("upsert setting %s: %w", ms.Key(), err)
	}
	return nil
}

type menstruationRow struct {
	UserID             string    `json:"user_id"`
	LastPeriodDate     *string   `json:"last_period_date"`
	AvgCycleLengthDays int       `json:"avg_cycle_length_days"`
	AutoUpdateAverage  bool      `json:"auto_update_average"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// GetMenstruationSettings returns the stored settings, or defaults when none are saved.
func (s *Store) GetMenstruationSettings(ctx context.Context) (*models.MenstruationSettings, error) {
	resp, err := s.client.From(TableMenstruationSettings).
		Select("*").
		Eq("user_id", s.userID).
		Limit(1).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("get menstruation settings: %w", err)
	}

	var rows []menstruationRow
	if err := resp.JSON(&rows); err != nil {
		return nil, fmt.Errorf("get menstruation settings: %w", err)
	}
	if len(rows) == 0 {
		return models.DefaultMenstruationSettings(), nil
	}

	r := rows[0]
	m := &models.MenstruationSettings{
		AvgCycleLengthDays: r.AvgCycleLengthDays,
		AutoUpdateAverage:  r.AutoUpdateAverage,
		UpdatedAt:          r.UpdatedAt,
	}
	if r.LastPeriodDate != nil {
		if t, err := time.Parse(time.DateOnly, *r.LastPeriodDate); err == nil {
			m.LastPeriodDate = &t
		}
	}
	return m, nil
}

// SaveMenstruationSettings validates and stores the settings.
func (s *Store) SaveMenstruationSettings(ctx context.Context, m *models.MenstruationSettings) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now()
	}

	row := menstruationRow{
		UserID:             s.userID,
		AvgCycleLengthDays: m.AvgCycleLengthDays,
		AutoUpdateAverage:  m.AutoUpdateAverage,
		UpdatedAt:          m.UpdatedAt.UTC(),
	}
	if m.LastPeriodDate != nil {
		d := m.LastPeriodDate.Format(time.DateOnly)
		row.LastPeriodDate = &d
	}

	_, err := s.client.From(TableMenstruationSettings).
		Upsert("user_id").
		ExecuteInsert(ctx, row)
	if err != nil {
		return fmt.Errorf("save menstruation settings: %w", err)
	}
	return nil
}

type migraineRow struct {
	ID        uuid.UUID  `json:"id"`
	UserID    string     `json:"user_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
	Severity  int        `json:"severity"`
	Notes     *string    `json:"notes"`
	CreatedAt time.Time  `json:"created_at"`
}

func (r migraineRow) model() *models.Migraine {
	return &models.Migraine{
		ID:        r.ID,
		StartedAt: r.StartedAt,
		EndedAt:   r.EndedAt,
		Severity:  r.Severity,
		Notes:     r.Notes,
		CreatedAt: r.CreatedAt,
	}
}

func (s *Store) migraineRow(m *models.Migraine) migraineRow {
	return migraineRow{
		ID:        m.ID,
		UserID:    s.userID,
		StartedAt: m.StartedAt.UTC(),
		EndedAt:   m.EndedAt,
		Severity:  m.Severity,
		Notes:     m.Notes,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

// CreateMigraine stores a new migraine.
func (s *Store) CreateMigraine(ctx context.Context, m *models.Migraine) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if _, err := s.client.From(TableMigraines).ExecuteInsert(ctx, s.migraineRow(m)); err != nil {
		return fmt.Errorf("create migraine: %w", err)
	}
	return nil
}

// GetMigraine retrieves a migraine by ID or ID prefix (without items).
func (s *Store) GetMigraine(ctx context.Context, idOrPrefix string) (*models.Migraine, error) {
	id, err := s.resolveID(ctx, TableMigraines, idOrPrefix)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.From(TableMigraines).
		Select("*").
		Eq("user_id", s.userID).
		Eq("id", id).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("get migraine: %w", err)
	}

	var rows []migraineRow
	if err := resp.JSON(&rows); err != nil {
		return nil, fmt.Errorf("get migraine: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("not found: %s", idOrPrefix)
	}
	return rows[0].model(), nil
}

// GetMigraineWithItems retrieves a migraine with all its journal items.
func (s *Store) GetMigraineWithItems(ctx context.Context, idOrPrefix string) (*models.Migraine, error) {
	m, err := s.GetMigraine(ctx, idOrPrefix)
	if err != nil {
		return nil, err
	}

	items, err := s.ListJournalItems(ctx, storage.ItemFilter{MigraineID: &m.ID})
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		m.Items = append(m.Items, *it)
	}
	return m, nil
}

// ListMigraines retrieves migraines, most recent first.
func (s *Store) ListMigraines(ctx context.Context, limit int) ([]*models.Migraine, error) {
	resp, err := s.client.From(TableMigraines).
		Select("*").
		Eq("user_id", s.userID).
		Order("started_at", false).
		Limit(limit).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("list migraines: %w", err)
	}

	var rows []migraineRow
	if err := resp.JSON(&rows); err != nil {
		return nil, fmt.Errorf("list migraines: %w", err)
	}

	migraines := make([]*models.Migraine, 0, len(rows))
	for _, r := range rows {
		migraines = append(migraines, r.model())
	}
	return migraines, nil
}

// UpdateMigraine rewrites the mutable fields of an existing migraine.
func (s *Store) UpdateMigraine(ctx context.Context, m *models.Migraine) error {
	if err := m.Validate(); err != nil {
		return err
	}

	patch := map[string]any{
		"started_at": m.StartedAt.UTC(),
		"ended_at":   m.EndedAt,
		"severity":   m.Severity,
		"notes":      m.Notes,
	}
	resp, err := s.client.From(TableMigraines).
		Eq("user_id", s.userID).
		Eq("id", m.ID.String()).
		ExecuteUpdate(ctx, patch)
	if err != nil {
		return fmt.Errorf("update migraine: %w", err)
	}
	return affected(resp, m.ID.String())
}

// DeleteMigraine removes a migraine and all its items.
func (s *Store) DeleteMigraine(ctx context.Context, idOrPrefix string) error {
	id, err := s.resolveID(ctx, TableMigraines, idOrPrefix)
	if err != nil {
		return fmt.Errorf("delete migraine: %w", err)
	}

	// Items first so the cascade does not depend on the remote schema
	_, err = s.client.From(TableJournalItems).
		Eq("user_id", s.userID).
		Eq("migraine_id", id).
		ExecuteDelete(ctx)
	if err != nil {
		return fmt.Errorf("delete migraine items: %w", err)
	}

	resp, err := s.client.From(TableMigraines).
		Eq("user_id", s.userID).
		Eq("id", id).
		ExecuteDelete(ctx)
	if err != nil {
		return fmt.Errorf("delete migraine: %w", err)
	}
	return affected(resp, idOrPrefix)
}

type itemRow struct {
	ID         uuid.UUID  `json:"id"`
	UserID     string     `json:"user_id"`
	MigraineID *uuid.UUID `json:"migraine_id"`
	Kind       string     `json:"kind"`
	Name       string     `json:"name"`
	Amount     *float64   `json:"amount"`
	Unit       *string    `json:"unit"`
	RecordedAt time.Time  `json:"recorded_at"`
	Notes      *string    `json:"notes"`
	CreatedAt  time.Time  `json:"created_at"`
}

// AddJournalItem stores a new journal item.
func (s *Store) AddJournalItem(ctx context.Context, it *models.JournalItem) error {
	if !models.IsValidItemKind(string(it.Kind)) {
		return fmt.Errorf("unknown item kind: %s", it.Kind)
	}

	row := itemRow{
		ID:         it.ID,
		UserID:     s.userID,
		MigraineID: it.MigraineID,
		Kind:       string(it.Kind),
		Name:       it.Name,
		Amount:     it.Amount,
		Unit:       it.Unit,
		RecordedAt: it.RecordedAt.UTC(),
		Notes:      it.Notes,
		CreatedAt:  it.CreatedAt.UTC(),
	}
	if _, err := s.client.From(TableJournalItems).ExecuteInsert(ctx, row); err != nil {
		return fmt.Errorf("add journal item: %w", err)
	}
	return nil
}

// ListJournalItems retrieves items matching filter, most recent first.
func (s *Store) ListJournalItems(ctx context.Context, filter storage.ItemFilter) ([]*models.JournalItem, error) {
	q := s.client.From(TableJournalItems).
		Select("*").
		Eq("user_id", s.userID)
	if filter.Kind != nil {
		q = q.Eq("kind", string(*filter.Kind))
	}
	if filter.MigraineID != nil {
		q = q.Eq("migraine_id", filter.MigraineID.String())
	}
	resp, err := q.Order("recorded_at", false).Limit(filter.Limit).Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("list journal items: %w", err)
	}

	var rows []itemRow
	if err := resp.JSON(&rows); err != nil {
		return nil, fmt.Errorf("list journal items: %w", err)
	}

	items := make([]*models.JournalItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, &models.JournalItem{
			ID:         r.ID,
			MigraineID: r.MigraineID,
			Kind:       models.ItemKind(r.Kind),
			Name:       r.Name,
			Amount:     r.Amount,
			Unit:       r.Unit,
			RecordedAt: r.RecordedAt,
			Notes:      r.Notes,
			CreatedAt:  r.CreatedAt,
		})
	}
	return items, nil
}

// DeleteJournalItem removes a journal item by ID or prefix.
func (s *Store) DeleteJournalItem(ctx context.Context, idOrPrefix string) error {
	id, err := s.resolveID(ctx, TableJournalItems, idOrPrefix)
	if err != nil {
		return fmt.Errorf("delete journal item: %w", err)
	}

	resp, err := s.client.From(TableJournalItems).
		Eq("user_id", s.userID).
		Eq("id", id).
		ExecuteDelete(ctx)
	if err != nil {
		return fmt.Errorf("delete journal item: %w", err)
	}
	return affected(resp, idOrPrefix)
}

// GetAllData fetches every table concurrently for export.
func (s *Store) GetAllData(ctx context.Context) (*storage.ExportData, error) {
	data := storage.NewExportData()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data.Settings, err = s.ListSettings(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		data.Menstruation, err = s.GetMenstruationSettings(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		data.Migraines, err = s.ListMigraines(gctx, 0)
		return err
	})
	g.Go(func() error {
		var err error
		data.Items, err = s.ListJournalItems(gctx, storage.ItemFilter{})
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}

// ImportData imports an export into the remote store.
func (s *Store) ImportData(ctx context.Context, data *storage.ExportData) error {
	return storage.ImportInto(ctx, s, data)
}

// resolveID finds the full ID in table from a prefix. PostgREST cannot
// LIKE-match uuid columns, so candidate ids are filtered locally.
func (s *Store) resolveID(ctx context.Context, table, idOrPrefix string) (string, error) {
	if _, err := uuid.Parse(idOrPrefix); err == nil && len(idOrPrefix) == 36 {
		return idOrPrefix, nil
	}

	resp, err := s.client.From(table).
		Select("id").
		Eq("user_id", s.userID).
		Execute(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve ID: %w", err)
	}

	var rows []struct {
		ID string `json:"id"`
	}
	if err := resp.JSON(&rows); err != nil {
		return "", fmt.Errorf("resolve ID: %w", err)
	}

	var matches []string
	for _, r := range rows {
		if strings.HasPrefix(r.ID, idOrPrefix) {
			matches = append(matches, r.ID)
		}
	}
	return storage.MatchPrefix(idOrPrefix, matches)
}

// affected reports not found when a representation response is empty.
func affected(resp *Response, id string) error {
	var rows []map[string]any
	if err := resp.JSON(&rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("not found: %s", id)
	}
	return nil
}

// IsUnauthorized reports whether err is a remote auth failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
