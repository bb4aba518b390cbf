// ABOUTME: Repository interface for migraine data storage.
// ABOUTME: Defines contract for settings, menstruation, and journal operations.
package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/harperreed/migraine/internal/models"
)

// Repository defines the storage interface for a user's migraine data.
// It is implemented by the local SQLite DB and by the remote store.
type Repository interface {
	// Metric settings
	ListSettings(ctx context.Context) ([]*models.MetricSetting, error)
	UpsertSetting(ctx context.Context, s *models.MetricSetting) error

	// Menstruation settings
	GetMenstruationSettings(ctx context.Context) (*models.MenstruationSettings, error)
	SaveMenstruationSettings(ctx context.Context, s *models.MenstruationSettings) error

	// Migraine operations
	CreateMigraine(ctx context.Context, m *models.Migraine) error
	GetMigraine(ctx context.Context, idOrPrefix string) (*models.Migraine, error)
	GetMigraineWithItems(ctx context.Context, idOrPrefix string) (*models.Migraine, error)
	ListMigraines(ctx context.Context, limit int) ([]*models.Migraine, error)
	UpdateMigraine(ctx context.Context, m *models.Migraine) error
	DeleteMigraine(ctx context.Context, idOrPrefix string) error

	// Journal item operations
	AddJournalItem(ctx context.Context, it *models.JournalItem) error
	ListJournalItems(ctx context.Context, filter ItemFilter) ([]*models.JournalItem, error)
	DeleteJournalItem(ctx context.Context, idOrPrefix string) error

	// Export/Import
	GetAllData(ctx context.Context) (*ExportData, error)
	ImportData(ctx context.Context, data *ExportData) error

	// Lifecycle
	Close() error
}

// ItemFilter narrows ListJournalItems. Zero values match everything.
type ItemFilter struct {
	Kind       *models.ItemKind
	MigraineID *uuid.UUID
	Limit      int
}

// SettingsCache is a local mirror of the authoritative settings.
type SettingsCache interface {
	ListSettings(ctx context.Context) ([]*models.MetricSetting, error)
	UpsertSetting(ctx context.Context, s *models.MetricSetting) error
	ReplaceSettings(ctx context.Context, settings []*models.MetricSetting) error
}

// Device is the device-local platform state: permissions, wearable
// connections, and background job schedules.
type Device interface {
	Permissions(ctx context.Context) (map[models.Permission]bool, error)
	SetPermission(ctx context.Context, p models.Permission, granted bool) error
	ConnectedSources(ctx context.Context) (map[string]bool, error)
	SetSourceConnected(ctx context.Context, source string, connected bool) error
	ListJobs(ctx context.Context) ([]*ScheduledJob, error)
	PutJob(ctx context.Context, j *ScheduledJob) error
	RemoveJob(ctx context.Context, id models.JobID) (bool, error)
}
