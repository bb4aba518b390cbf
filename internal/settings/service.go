// ABOUTME: Settings service: the single write path for metric enablement.
// ABOUTME: The remote store is authoritative; the local cache is replaced on every refresh.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harperreed/migraine/internal/gating"
	"github.com/harperreed/migraine/internal/metrics"
	"github.com/harperreed/migraine/internal/models"
	"github.com/harperreed/migraine/internal/storage"
)

// Authority is the store that owns metric settings.
type Authority interface {
	ListSettings(ctx context.Context) ([]*models.MetricSetting, error)
	UpsertSetting(ctx context.Context, s *models.MetricSetting) error
}

// Scheduler schedules and cancels background jobs idempotently.
type Scheduler interface {
	Schedule(ctx context.Context, job models.JobID) (bool, error)
	Cancel(ctx context.Context, job models.JobID) (bool, error)
}

// Config wires a Service. Cache is optional.
type Config struct {
	Store     Authority
	Cache     storage.SettingsCache
	Device    storage.Device
	Scheduler Scheduler
	Logger    *slog.Logger
}

// Service evaluates and mutates metric settings.
type Service struct {
	store     Authority
	cache     storage.SettingsCache
	device    storage.Device
	scheduler Scheduler
	logger    *slog.Logger

	// mu serializes read-evaluate-write sequences
	mu sync.Mutex
}

// View is the evaluated settings screen.
type View struct {
	Rows []gating.RowState
	// Stale is set when the authority was unreachable and rows come from the cache.
	Stale bool
	// Corrections counts the corrective writes applied during this refresh.
	Corrections int
}

// Row returns the state of metric in the view.
func (v *View) Row(metric string) (gating.RowState, bool) {
	for _, r := range v.Rows {
		if r.Row.Table == metric {
			return r, true
		}
	}
	return gating.RowState{}, false
}

// New creates a Service.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("settings store is required")
	}
	if cfg.Device == nil {
		return nil, errors.New("device state is required")
	}
	if cfg.Scheduler == nil {
		return nil, errors.New("scheduler is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     cfg.Store,
		cache:     cfg.Cache,
		device:    cfg.Device,
		scheduler: cfg.Scheduler,
		logger:    logger,
	}, nil
}

// Rows returns the evaluated settings screen. It is Refresh.
func (s *Service) Rows(ctx context.Context) (*View, error) {
	return s.Refresh(ctx)
}

// Refresh pulls settings from the authority, replaces the cache, applies any
// corrective writes the gating rules require, and returns the evaluated rows.
// When the authority is unreachable, cached rows are returned marked stale and
// no corrections are applied.
func (s *Service) Refresh(ctx context.Context) (*View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, view, err := s.refresh(ctx)
	if err != nil {
		return nil, err
	}
	view.Rows = plan.Rows
	return view, nil
}

// Plan returns the gating plan after a refresh.
func (s *Service) Plan(ctx context.Context) (*gating.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, _, err := s.refresh(ctx)
	return plan, err
}

func (s *Service) refresh(ctx context.Context) (*gating.Plan, *View, error) {
	settings, err := s.store.ListSettings(ctx)
	if err != nil {
		if s.cache == nil {
			return nil, nil, fmt.Errorf("load settings: %w", err)
		}
		s.logger.Warn("settings authority unreachable, serving cache", "error", err)
		metrics.StaleRefreshTotal.Inc()

		cached, cerr := s.cache.ListSettings(ctx)
		if cerr != nil {
			return nil, nil, fmt.Errorf("load settings: %w", errors.Join(err, cerr))
		}
		snap, derr := s.deviceSnapshot(ctx, cached)
		if derr != nil {
			return nil, nil, derr
		}
		return gating.Evaluate(snap), &View{Stale: true}, nil
	}

	if s.cache != nil {
		if err := s.cache.ReplaceSettings(ctx, settings); err != nil {
			s.logger.Warn("failed to replace settings cache", "error", err)
		}
	}

	snap, err := s.deviceSnapshot(ctx, settings)
	if err != nil {
		return nil, nil, err
	}

	plan := gating.Evaluate(snap)
	view := &View{}
	if len(plan.Corrections) == 0 {
		return plan, view, nil
	}

	for _, c := range plan.Corrections {
		if err := s.applyCorrection(ctx, c); err != nil {
			// Left for the next refresh to retry
			s.logger.Warn("corrective write failed", "metric", c.Setting.Metric, "rule", c.Rule, "error", err)
			continue
		}
		snap.Settings = withSetting(snap.Settings, c.Setting)
		view.Corrections++
	}

	return gating.Evaluate(snap), view, nil
}

func (s *Service) applyCorrection(ctx context.Context, c gating.Correction) error {
	if err := s.write(ctx, c.Setting); err != nil {
		return err
	}
	metrics.CorrectiveWritesTotal.WithLabelValues(c.Rule).Inc()
	s.logger.Info("applied corrective write",
		"metric", c.Setting.Metric,
		"source", c.Setting.Source(),
		"rule", c.Rule,
	)

	if c.CancelJob != "" {
		if _, err := s.scheduler.Cancel(ctx, c.CancelJob); err != nil {
			s.logger.Warn("failed to cancel job", "job", c.CancelJob, "error", err)
		}
	}
	return nil
}

// SetEnabled switches metric on or off. The authority is written first; if that
// write fails nothing else changes. On success the cache is updated, the row's
// background job is scheduled or cancelled, and dependents are disabled.
func (s *Service) SetEnabled(ctx context.Context, metric string, on bool) (gating.RowState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.snapshot(ctx)
	if err != nil {
		return gating.RowState{}, err
	}

	st, err := gating.CheckToggle(snap, metric, on)
	if err != nil {
		return st, err
	}

	setting := models.NewMetricSetting(metric, on).WithSource(st.Source)
	if err := s.write(ctx, setting); err != nil {
		return st, err
	}
	snap.Settings = withSetting(snap.Settings, setting)

	if job := st.Row.Job; job != "" {
		var jerr error
		if on {
			_, jerr = s.scheduler.Schedule(ctx, job)
		} else {
			_, jerr = s.scheduler.Cancel(ctx, job)
		}
		if jerr != nil {
			s.logger.Warn("job update failed, watchdog will reconcile", "job", job, "error", jerr)
		}
	}

	if !on {
		for _, c := range gating.CascadeOff(snap, metric, st.Source) {
			if err := s.applyCorrection(ctx, c); err != nil {
				s.logger.Warn("cascade write failed", "metric", c.Setting.Metric, "error", err)
				continue
			}
			snap.Settings = withSetting(snap.Settings, c.Setting)
		}
	}

	row, _ := gating.Evaluate(snap).Row(metric)
	return row, nil
}

// SelectSource makes source the preferred source of a wearable metric. The
// existing enabled flag for that source is kept; a new source starts enabled.
func (s *Service) SelectSource(ctx context.Context, metric, source string) (gating.RowState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.snapshot(ctx)
	if err != nil {
		return gating.RowState{}, err
	}
	if err := gating.CheckSource(snap, metric, source); err != nil {
		return gating.RowState{}, err
	}

	row, _ := models.LookupRow(metric)
	enabled := row.DefaultEnabled()
	key := models.SettingKey(metric, source)
	for _, existing := range snap.Settings {
		if existing.Key() == key {
			enabled = existing.Enabled
			break
		}
	}

	setting := models.NewMetricSetting(metric, enabled).WithSource(source)
	if err := s.write(ctx, setting); err != nil {
		return gating.RowState{}, err
	}
	snap.Settings = withSetting(snap.Settings, setting)

	st, _ := gating.Evaluate(snap).Row(metric)
	return st, nil
}

// ConnectWearable records a wearable connection and refreshes.
func (s *Service) ConnectWearable(ctx context.Context, source string) (*View, error) {
	if !models.IsValidSource(source) {
		return nil, fmt.Errorf("%w: %s", gating.ErrSourceNotAllowed, source)
	}
	if err := s.device.SetSourceConnected(ctx, source, true); err != nil {
		return nil, err
	}
	s.logger.Info("wearable connected", "source", source)
	return s.Refresh(ctx)
}

// DisconnectWearable records a wearable disconnection and refreshes.
func (s *Service) DisconnectWearable(ctx context.Context, source string) (*View, error) {
	if !models.IsValidSource(source) {
		return nil, fmt.Errorf("%w: %s", gating.ErrSourceNotAllowed, source)
	}
	if err := s.device.SetSourceConnected(ctx, source, false); err != nil {
		return nil, err
	}
	s.logger.Info("wearable disconnected", "source", source)
	return s.Refresh(ctx)
}

// SetPermission records a permission grant or revocation and refreshes.
// Revoking a permission disables its enabled metrics and cancels their jobs.
// Granting never enables anything: unsaved gated rows are saved as off.
func (s *Service) SetPermission(ctx context.Context, p models.Permission, granted bool) (*View, error) {
	written, err := s.changePermission(ctx, p, granted)
	if err != nil {
		return nil, err
	}
	view, err := s.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	view.Corrections += written
	return view, nil
}

// changePermission records the permission and applies the writes the change
// requires, returning how many were written.
func (s *Service) changePermission(ctx context.Context, p models.Permission, granted bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, serr := s.snapshot(ctx)
	if err := s.device.SetPermission(ctx, p, granted); err != nil {
		return 0, err
	}
	s.logger.Info("permission changed", "permission", p, "granted", granted)
	if serr != nil {
		// Only the device state could be recorded
		s.logger.Warn("settings unavailable, permission writes skipped", "permission", p, "error", serr)
		return 0, nil
	}

	var written int
	for _, c := range gating.PermissionChange(snap, p, granted) {
		if err := s.applyCorrection(ctx, c); err != nil {
			s.logger.Warn("permission write failed", "metric", c.Setting.Metric, "rule", c.Rule, "error", err)
			continue
		}
		written++
	}
	return written, nil
}

// snapshot reads the current authoritative settings and device state.
func (s *Service) snapshot(ctx context.Context) (gating.Snapshot, error) {
	settings, err := s.store.ListSettings(ctx)
	if err != nil {
		return gating.Snapshot{}, fmt.Errorf("load settings: %w", err)
	}
	return s.deviceSnapshot(ctx, settings)
}

func (s *Service) deviceSnapshot(ctx context.Context, settings []*models.MetricSetting) (gating.Snapshot, error) {
	connected, err := s.device.ConnectedSources(ctx)
	if err != nil {
		return gating.Snapshot{}, fmt.Errorf("load wearables: %w", err)
	}
	perms, err := s.device.Permissions(ctx)
	if err != nil {
		return gating.Snapshot{}, fmt.Errorf("load permissions: %w", err)
	}
	return gating.Snapshot{Settings: settings, Connected: connected, Permissions: perms}, nil
}

// write saves setting to the authority, then mirrors it into the cache.
func (s *Service) write(ctx context.Context, setting *models.MetricSetting) error {
	setting.UpdatedAt = time.Now()
	if err := s.store.UpsertSetting(ctx, setting); err != nil {
		metrics.SettingWritesTotal.WithLabelValues(setting.Metric, metrics.ResultFailure).Inc()
		s.logger.Warn("setting write failed", "metric", setting.Metric, "source", setting.Source(), "error", err)
		return fmt.Errorf("save %s: %w", setting.Key(), err)
	}
	metrics.SettingWritesTotal.WithLabelValues(setting.Metric, metrics.ResultSuccess).Inc()

	if s.cache != nil {
		if err := s.cache.UpsertSetting(ctx, setting); err != nil {
			s.logger.Warn("failed to mirror setting to cache", "metric", setting.Metric, "error", err)
		}
	}
	return nil
}

// withSetting returns settings with s replacing any entry of the same key.
func withSetting(settings []*models.MetricSetting, s *models.MetricSetting) []*models.MetricSetting {
	out := make([]*models.MetricSetting, 0, len(settings)+1)
	for _, existing := range settings {
		if existing.Key() != s.Key() {
			out = append(out, existing)
		}
	}
	return append(out, s)
}
