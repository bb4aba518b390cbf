// ABOUTME: Metric-enablement gating rules for the data-settings screen.
// ABOUTME: Pure evaluation of stored settings against wearables and permissions.
package gating

import (
	"fmt"
	"strings"

	"github.com/harperreed/migraine/internal/models"
)

// Correction rules.
const (
	RuleDependency        = "dependency"
	RulePermissionRevoked = "permission_revoked"
	RulePermissionGranted = "permission_granted"
	RuleCascade           = "cascade"
)

// Snapshot is everything the rules look at.
type Snapshot struct {
	Settings    []*models.MetricSetting
	Connected   map[string]bool
	Permissions map[models.Permission]bool
}

// RowState is the evaluated display state of one catalog row.
type RowState struct {
	Row             models.DataRow
	Source          string
	StoredEnabled   bool
	Enabled         bool
	Togglable       bool
	Greyed          bool
	NeedsPermission bool
	Reason          string
}

// Correction is a write the rules require to bring stored state in line,
// optionally paired with a background job to cancel.
type Correction struct {
	Setting   *models.MetricSetting
	Rule      string
	CancelJob models.JobID
}

// Plan is the result of evaluating a snapshot.
type Plan struct {
	Rows        []RowState
	Corrections []Correction
}

// Row returns the evaluated state of metric.
func (p *Plan) Row(metric string) (RowState, bool) {
	for _, r := range p.Rows {
		if r.Row.Table == metric {
			return r, true
		}
	}
	return RowState{}, false
}

// DesiredJobs returns the primary jobs that should be scheduled, keyed by job id.
// Jobs of rows that are not effectively enabled map to false.
func (p *Plan) DesiredJobs() map[models.JobID]bool {
	jobs := make(map[models.JobID]bool)
	for _, r := range p.Rows {
		if r.Row.Job == "" {
			continue
		}
		jobs[r.Row.Job] = r.Enabled
	}
	return jobs
}

type index map[string]*models.MetricSetting

func newIndex(settings []*models.MetricSetting) index {
	idx := make(index, len(settings))
	for _, s := range settings {
		if s == nil {
			continue
		}
		idx[s.Key()] = s
	}
	return idx
}

func (idx index) stored(row models.DataRow, source string) bool {
	if s, ok := idx[models.SettingKey(row.Table, source)]; ok {
		return s.Enabled
	}
	return row.DefaultEnabled()
}

// explicit reports whether a setting for row and source has been saved.
func (idx index) explicit(row models.DataRow, source string) bool {
	_, ok := idx[models.SettingKey(row.Table, source)]
	return ok
}

func (idx index) storedMetric(metric, source string) bool {
	row, ok := models.LookupRow(metric)
	if !ok {
		return false
	}
	return idx.stored(row, source)
}

// selectedSource picks the source a wearable row reads from: the most recently
// updated stored source that is connected, else the default source if connected,
// else the first connected allowed source.
func (idx index) selectedSource(row models.DataRow, connected map[string]bool) string {
	var best *models.MetricSetting
	for _, src := range row.AllowedSources {
		if !connected[src] {
			continue
		}
		s, ok := idx[models.SettingKey(row.Table, src)]
		if !ok {
			continue
		}
		if best == nil || s.UpdatedAt.After(best.UpdatedAt) ||
			(s.UpdatedAt.Equal(best.UpdatedAt) && src == row.DefaultWearableSource) {
			best = s
		}
	}
	if best != nil {
		return best.Source()
	}
	if connected[row.DefaultWearableSource] && row.AllowsSource(row.DefaultWearableSource) {
		return row.DefaultWearableSource
	}
	for _, src := range row.AllowedSources {
		if connected[src] {
			return src
		}
	}
	return ""
}

// Evaluate applies the gating rules to every catalog row.
func Evaluate(snap Snapshot) *Plan {
	idx := newIndex(snap.Settings)
	plan := &Plan{Rows: make([]RowState, 0, len(models.Catalog))}

	locationRow, _ := models.LookupRow(models.MetricLocation)
	locationOn := idx.stored(locationRow, "") && snap.Permissions[locationRow.Permission]

	for _, row := range models.Catalog {
		st := RowState{Row: row}

		switch row.CollectedBy {
		case models.CollectedByReference:
			st.StoredEnabled = idx.stored(row, "")
			st.Greyed = true
			st.Reason = "reference only"

		case models.CollectedByWearable:
			st.Source = idx.selectedSource(row, snap.Connected)
			if st.Source == "" {
				st.StoredEnabled = idx.stored(row, row.DefaultWearableSource)
				st.Greyed = true
				st.Reason = "no wearable connected"
				break
			}
			st.StoredEnabled = idx.stored(row, st.Source)

			var missing []string
			for _, req := range row.Requires {
				if !idx.storedMetric(req, st.Source) {
					missing = append(missing, req)
				}
			}
			if len(missing) > 0 {
				st.Greyed = true
				st.Reason = fmt.Sprintf("requires %s (%s)", strings.Join(missing, ", "), st.Source)
				if st.StoredEnabled {
					plan.Corrections = append(plan.Corrections, Correction{
						Setting: models.NewMetricSetting(row.Table, false).WithSource(st.Source),
						Rule:    RuleDependency,
					})
				}
				break
			}
			st.Enabled = st.StoredEnabled
			st.Togglable = true

		case models.CollectedByPhone:
			st.StoredEnabled = idx.stored(row, "")
			switch {
			case row.DependsOnLocation:
				if !locationOn {
					st.Greyed = true
					st.Reason = "requires location"
					break
				}
				st.Enabled = st.StoredEnabled
				st.Togglable = true

			case row.Permission != "":
				granted := snap.Permissions[row.Permission]
				st.Togglable = true
				st.Enabled = st.StoredEnabled && granted
				if !granted {
					st.NeedsPermission = true
					st.Reason = fmt.Sprintf("%s permission not granted", row.Permission)
					// Unsaved rows are settled by PermissionChange when the permission moves
					if st.StoredEnabled && idx.explicit(row, "") {
						plan.Corrections = append(plan.Corrections, Correction{
							Setting:   models.NewMetricSetting(row.Table, false),
							Rule:      RulePermissionRevoked,
							CancelJob: row.Job,
						})
					}
				}

			default:
				st.Enabled = st.StoredEnabled
				st.Togglable = true
			}

		default:
			st.StoredEnabled = idx.stored(row, "")
			st.Enabled = st.StoredEnabled
			st.Togglable = true
		}

		plan.Rows = append(plan.Rows, st)
	}

	return plan
}

// CheckToggle validates a request to switch metric on or off and returns the
// row state the write applies to.
func CheckToggle(snap Snapshot, metric string, on bool) (RowState, error) {
	if _, ok := models.LookupRow(metric); !ok {
		return RowState{}, fmt.Errorf("%w: %s", ErrUnknownMetric, metric)
	}
	st, _ := Evaluate(snap).Row(metric)

	switch {
	case st.Row.CollectedBy == models.CollectedByReference:
		return st, fmt.Errorf("%w: %s is reference only", ErrNotTogglable, metric)
	case st.Row.CollectedBy == models.CollectedByWearable && st.Source == "":
		return st, fmt.Errorf("%w: %s", ErrNoWearableConnected, metric)
	}

	if !on {
		return st, nil
	}
	if !st.Togglable {
		return st, fmt.Errorf("%w: %s %s", ErrDependencyDisabled, metric, st.Reason)
	}
	if st.NeedsPermission {
		return st, &PermissionRequiredError{
			Metric:     metric,
			Permission: st.Row.Permission,
			Settings:   models.PermissionSettings[st.Row.Permission],
		}
	}
	return st, nil
}

// CheckSource validates selecting source for a wearable metric.
func CheckSource(snap Snapshot, metric, source string) error {
	row, ok := models.LookupRow(metric)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMetric, metric)
	}
	if row.CollectedBy != models.CollectedByWearable {
		return fmt.Errorf("%w: %s has no wearable sources", ErrSourceNotAllowed, metric)
	}
	if !row.AllowsSource(source) {
		return fmt.Errorf("%w: %s for %s", ErrSourceNotAllowed, source, metric)
	}
	if !snap.Connected[source] {
		return fmt.Errorf("%w: %s", ErrSourceNotConnected, source)
	}
	return nil
}

// CascadeOff returns the writes needed after metric is disabled for source:
// every dependent metric whose selected source is source and that is still
// stored enabled there is disabled. Dependents reading from another source are
// left alone.
func CascadeOff(snap Snapshot, metric, source string) []Correction {
	idx := newIndex(snap.Settings)
	var out []Correction
	for _, dep := range models.Dependents(metric) {
		if idx.selectedSource(dep, snap.Connected) != source {
			continue
		}
		if idx.stored(dep, source) {
			out = append(out, Correction{
				Setting: models.NewMetricSetting(dep.Table, false).WithSource(source),
				Rule:    RuleCascade,
			})
		}
	}
	return out
}

// PermissionChange returns the writes needed when p moves to granted, given the
// snapshot from before the change. Granting saves every unsaved row gated by p
// as off, so a grant never turns a metric on. Revoking a granted permission
// disables every gated row that was effectively on and cancels its job; the
// written flag keeps a later grant from bringing it back.
func PermissionChange(snap Snapshot, p models.Permission, granted bool) []Correction {
	if snap.Permissions[p] == granted {
		return nil
	}
	idx := newIndex(snap.Settings)
	plan := Evaluate(snap)

	var out []Correction
	for _, st := range plan.Rows {
		row := st.Row
		if row.CollectedBy != models.CollectedByPhone || row.DependsOnLocation || row.Permission != p {
			continue
		}
		switch {
		case granted && !idx.explicit(row, ""):
			out = append(out, Correction{
				Setting: models.NewMetricSetting(row.Table, false),
				Rule:    RulePermissionGranted,
			})
		case !granted && st.Enabled:
			out = append(out, Correction{
				Setting:   models.NewMetricSetting(row.Table, false),
				Rule:      RulePermissionRevoked,
				CancelJob: row.Job,
			})
		}
	}
	return out
}
