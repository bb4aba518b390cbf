// ABOUTME: Export and import functionality for migraine data.
// ABOUTME: Supports JSON, YAML, and Markdown export formats over any Repository.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harperreed/migraine/internal/models"
	"gopkg.in/yaml.v3"
)

// ExportVersion is the current export format version.
const ExportVersion = "1.0"

// ExportData represents the full export format for a user's data.
// Device state (permissions, wearables, jobs) is never exported.
type ExportData struct {
	Version      string                       `json:"version" yaml:"version"`
	ExportedAt   time.Time                    `json:"exported_at" yaml:"exported_at"`
	Tool         string                       `json:"tool" yaml:"tool"`
	Settings     []*models.MetricSetting      `json:"settings" yaml:"settings"`
	Menstruation *models.MenstruationSettings `json:"menstruation,omitempty" yaml:"menstruation,omitempty"`
	Migraines    []*models.Migraine           `json:"migraines" yaml:"migraines"`
	Items        []*models.JournalItem        `json:"items" yaml:"items"`
}

// NewExportData stamps an empty export with version and time.
func NewExportData() *ExportData {
	return &ExportData{
		Version:    ExportVersion,
		ExportedAt: time.Now(),
		Tool:       "migraine",
	}
}

// GetAllData retrieves all data for export.
func (d *DB) GetAllData(ctx context.Context) (*ExportData, error) {
	data := NewExportData()
	var err error

	if data.Settings, err = d.ListSettings(ctx); err != nil {
		return nil, err
	}
	if data.Menstruation, err = d.GetMenstruationSettings(ctx); err != nil {
		return nil, err
	}
	if data.Migraines, err = d.ListMigraines(ctx, 0); err != nil {
		return nil, err
	}
	if data.Items, err = d.ListJournalItems(ctx, ItemFilter{}); err != nil {
		return nil, err
	}

	return data, nil
}

// ImportData imports data from an export into the database.
func (d *DB) ImportData(ctx context.Context, data *ExportData) error {
	return ImportInto(ctx, d, data)
}

// ImportInto writes data through the Repository methods of dst.
// Migraines are created before items so item references resolve.
func ImportInto(ctx context.Context, dst Repository, data *ExportData) error {
	for _, s := range data.Settings {
		if err := dst.UpsertSetting(ctx, s); err != nil {
			return fmt.Errorf("import setting: %w", err)
		}
	}

	if data.Menstruation != nil {
		if err := dst.SaveMenstruationSettings(ctx, data.Menstruation); err != nil {
			return fmt.Errorf("import menstruation settings: %w", err)
		}
	}

	for _, m := range data.Migraines {
		// Nested items are imported from the flat Items list
		nested := m.Items
		m.Items = nil
		if err := dst.CreateMigraine(ctx, m); err != nil {
			return fmt.Errorf("import migraine: %w", err)
		}
		for i := range nested {
			it := nested[i]
			it.MigraineID = &m.ID
			if err := dst.AddJournalItem(ctx, &it); err != nil {
				return fmt.Errorf("import journal item: %w", err)
			}
		}
	}

	for _, it := range data.Items {
		if err := dst.AddJournalItem(ctx, it); err != nil {
			return fmt.Errorf("import journal item: %w", err)
		}
	}

	return nil
}

// ExportJSON exports all data in repo as JSON.
func ExportJSON(ctx context.Context, repo Repository) ([]byte, error) {
	data, err := repo.GetAllData(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

// ExportYAML exports all data in repo as YAML, with items nested under their migraine.
func ExportYAML(ctx context.Context, repo Repository) ([]byte, error) {
	data, err := repo.GetAllData(ctx)
	if err != nil {
		return nil, err
	}

	yamlData := struct {
		Version      string                       `yaml:"version"`
		ExportedAt   string                       `yaml:"exported_at"`
		Tool         string                       `yaml:"tool"`
		Settings     map[string]yamlSetting       `yaml:"settings"`
		Menstruation *models.MenstruationSettings `yaml:"menstruation,omitempty"`
		Migraines    []yamlMigraine               `yaml:"migraines"`
		Items        map[string][]yamlItem        `yaml:"items,omitempty"`
	}{
		Version:      data.Version,
		ExportedAt:   data.ExportedAt.Format(time.RFC3339),
		Tool:         data.Tool,
		Settings:     make(map[string]yamlSetting),
		Menstruation: data.Menstruation,
		Migraines:    make([]yamlMigraine, 0, len(data.Migraines)),
		Items:        make(map[string][]yamlItem),
	}

	for _, s := range data.Settings {
		yamlData.Settings[s.Key()] = yamlSetting{Enabled: s.Enabled, Source: s.Source()}
	}

	byMigraine := make(map[string][]yamlItem)
	for _, it := range data.Items {
		yi := toYAMLItem(it)
		if it.MigraineID != nil {
			key := it.MigraineID.String()
			byMigraine[key] = append(byMigraine[key], yi)
			continue
		}
		// Standalone items are grouped by kind
		yamlData.Items[string(it.Kind)] = append(yamlData.Items[string(it.Kind)], yi)
	}

	for _, m := range data.Migraines {
		ym := yamlMigraine{
			ID:        m.ID.String()[:8],
			StartedAt: m.StartedAt.Format(time.RFC3339),
			Severity:  m.Severity,
			Items:     byMigraine[m.ID.String()],
		}
		if m.EndedAt != nil {
			ym.EndedAt = m.EndedAt.Format(time.RFC3339)
		}
		if m.Notes != nil {
			ym.Notes = *m.Notes
		}
		yamlData.Migraines = append(yamlData.Migraines, ym)
	}

	return yaml.Marshal(yamlData)
}

type yamlSetting struct {
	Enabled bool   `yaml:"enabled"`
	Source  string `yaml:"source,omitempty"`
}

type yamlMigraine struct {
	ID        string     `yaml:"id"`
	StartedAt string     `yaml:"started_at"`
	EndedAt   string     `yaml:"ended_at,omitempty"`
	Severity  int        `yaml:"severity"`
	Notes     string     `yaml:"notes,omitempty"`
	Items     []yamlItem `yaml:"items,omitempty"`
}

type yamlItem struct {
	ID         string   `yaml:"id"`
	Kind       string   `yaml:"kind"`
	Name       string   `yaml:"name"`
	Amount     *float64 `yaml:"amount,omitempty"`
	Unit       string   `yaml:"unit,omitempty"`
	RecordedAt string   `yaml:"recorded_at"`
	Notes      string   `yaml:"notes,omitempty"`
}

func toYAMLItem(it *models.JournalItem) yamlItem {
	yi := yamlItem{
		ID:         it.ID.String()[:8],
		Kind:       string(it.Kind),
		Name:       it.Name,
		Amount:     it.Amount,
		RecordedAt: it.RecordedAt.Format(time.RFC3339),
	}
	if it.Unit != nil {
		yi.Unit = *it.Unit
	}
	if it.Notes != nil {
		yi.Notes = *it.Notes
	}
	return yi
}

// ExportMarkdown exports migraines and journal items as Markdown, optionally
// limited to entries at or after since.
func ExportMarkdown(ctx context.Context, repo Repository, since *time.Time) (string, error) {
	migraines, err := repo.ListMigraines(ctx, 0)
	if err != nil {
		return "", err
	}
	items, err := repo.ListJournalItems(ctx, ItemFilter{})
	if err != nil {
		return "", err
	}

	if since != nil {
		var fm []*models.Migraine
		for _, m := range migraines {
			if !m.StartedAt.Before(*since) {
				fm = append(fm, m)
			}
		}
		migraines = fm

		var fi []*models.JournalItem
		for _, it := range items {
			if !it.RecordedAt.Before(*since) {
				fi = append(fi, it)
			}
		}
		items = fi
	}

	var sb strings.Builder
	now := time.Now()

	sb.WriteString(fmt.Sprintf("# Migraine Journal - %s\n\n", now.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", now.Format(time.RFC3339)))

	if len(migraines) > 0 {
		sb.WriteString("## Migraines\n\n")
		sb.WriteString("| Started | Duration | Severity | Notes |\n")
		sb.WriteString("|---------|----------|----------|-------|\n")
		for _, m := range migraines {
			duration := "ongoing"
			if m.EndedAt != nil {
				duration = m.Duration().Round(time.Minute).String()
			}
			notes := ""
			if m.Notes != nil {
				notes = *m.Notes
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s |\n",
				m.StartedAt.Format("2006-01-02 15:04"), duration, m.Severity, notes))
		}
		sb.WriteString("\n")
	}

	grouped := make(map[models.ItemKind][]*models.JournalItem)
	for _, it := range items {
		grouped[it.Kind] = append(grouped[it.Kind], it)
	}

	// Sort kinds for consistent output
	var kinds []models.ItemKind
	for k := range grouped {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		return string(kinds[i]) < string(kinds[j])
	})

	for _, k := range kinds {
		sb.WriteString(fmt.Sprintf("## %s\n\n", k))
		sb.WriteString("| Date | Name | Amount | Notes |\n")
		sb.WriteString("|------|------|--------|-------|\n")
		for _, it := range grouped[k] {
			amount := ""
			if it.Amount != nil {
				amount = fmt.Sprintf("%g", *it.Amount)
				if it.Unit != nil {
					amount += " " + *it.Unit
				}
			}
			notes := ""
			if it.Notes != nil {
				notes = *it.Notes
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				it.RecordedAt.Format("2006-01-02 15:04"), it.Name, amount, notes))
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

// ImportJSON imports data from JSON bytes into repo.
func ImportJSON(ctx context.Context, repo Repository, data []byte) error {
	var exportData ExportData
	if err := json.Unmarshal(data, &exportData); err != nil {
		return fmt.Errorf("unmarshal JSON: %w", err)
	}
	return repo.ImportData(ctx, &exportData)
}
