// ABOUTME: Data migration between migraine storage backends.
// ABOUTME: Copies settings, menstruation, migraines, and journal items from source to destination.

package storage

import (
	"context"
	"fmt"
	"os"
)

// MigrateSummary holds counts of migrated entities.
type MigrateSummary struct {
	Settings     int
	Menstruation bool
	Migraines    int
	Items        int
}

// MigrateData copies all data from src to dst storage.
// Settings are upserted; migraines and items are created, so the destination
// should hold no journal entries before calling this function.
func MigrateData(ctx context.Context, src, dst Repository) (*MigrateSummary, error) {
	summary := &MigrateSummary{}

	settings, err := src.ListSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list source settings: %w", err)
	}
	for _, s := range settings {
		if err := dst.UpsertSetting(ctx, s); err != nil {
			return nil, fmt.Errorf("upsert setting %s: %w", s.Key(), err)
		}
		summary.Settings++
	}

	ms, err := src.GetMenstruationSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("get source menstruation settings: %w", err)
	}
	// Defaults have never been saved and are not worth copying
	if !ms.UpdatedAt.IsZero() {
		if err := dst.SaveMenstruationSettings(ctx, ms); err != nil {
			return nil, fmt.Errorf("save menstruation settings: %w", err)
		}
		summary.Menstruation = true
	}

	migraines, err := src.ListMigraines(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("list source migraines: %w", err)
	}
	for _, m := range migraines {
		m.Items = nil
		if err := dst.CreateMigraine(ctx, m); err != nil {
			return nil, fmt.Errorf("create migraine %s: %w", m.ID, err)
		}
		summary.Migraines++
	}

	// Items go after migraines so their references exist in dst
	items, err := src.ListJournalItems(ctx, ItemFilter{})
	if err != nil {
		return nil, fmt.Errorf("list source journal items: %w", err)
	}
	for _, it := range items {
		if err := dst.AddJournalItem(ctx, it); err != nil {
			return nil, fmt.Errorf("add journal item %s: %w", it.ID, err)
		}
		summary.Items++
	}

	return summary, nil
}

// IsDirNonEmpty checks whether a directory exists and contains any files or subdirectories.
// Returns false if the directory does not exist or is empty.
func IsDirNonEmpty(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read directory %q: %w", path, err)
	}
	return len(entries) > 0, nil
}
