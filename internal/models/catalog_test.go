// ABOUTME: Tests for the data-row catalog.
// ABOUTME: Validates lookups, defaults, dependencies, and job/permission wiring.
package models

import (
	"testing"
)

func TestCatalogTablesUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, r := range Catalog {
		if seen[r.Table] {
			t.Errorf("duplicate catalog table %s", r.Table)
		}
		seen[r.Table] = true
	}
}

func TestDefaultEnabled(t *testing.T) {
	tests := []struct {
		metric string
		want   bool
	}{
		{MetricHRV, true},
		{MetricAmbientNoise, true},
		{MetricTriggerLog, true},
		{MetricAirQuality, false},
		{MetricPollenIndex, false},
	}

	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			row, ok := LookupRow(tt.metric)
			if !ok {
				t.Fatalf("LookupRow(%s) not found", tt.metric)
			}
			if got := row.DefaultEnabled(); got != tt.want {
				t.Errorf("DefaultEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWearableRowsHaveSources(t *testing.T) {
	for _, r := range Catalog {
		if r.CollectedBy != CollectedByWearable {
			continue
		}
		if len(r.AllowedSources) == 0 {
			t.Errorf("%s has no allowed sources", r.Table)
		}
		if !r.AllowsSource(r.DefaultWearableSource) {
			t.Errorf("%s default source %q not allowed", r.Table, r.DefaultWearableSource)
		}
	}
}

func TestStressRequiresHRVAndRestingHR(t *testing.T) {
	deps := Dependents(MetricHRV)
	if len(deps) != 1 || deps[0].Table != MetricStressIndex {
		t.Fatalf("Dependents(hrv) = %v, want stress index", deps)
	}
	deps = Dependents(MetricRestingHR)
	if len(deps) != 1 || deps[0].Table != MetricStressIndex {
		t.Fatalf("Dependents(resting_hr) = %v, want stress index", deps)
	}
	if len(Dependents(MetricSteps)) != 0 {
		t.Error("steps should have no dependents")
	}
}

func TestRowForJob(t *testing.T) {
	for _, job := range AllJobs {
		row, ok := RowForJob(job)
		if !ok {
			t.Errorf("no row owns job %s", job)
			continue
		}
		if row.Permission == "" {
			t.Errorf("job row %s has no permission gate", row.Table)
		}
	}
	if _, ok := RowForJob("nope"); ok {
		t.Error("expected unknown job to have no row")
	}
}

func TestWatchdogID(t *testing.T) {
	if got := JobScreenTime.Watchdog(); got != "screen_time_watchdog" {
		t.Errorf("Watchdog() = %s, want screen_time_watchdog", got)
	}
}

func TestPermissionsHaveSettingsScreens(t *testing.T) {
	for _, p := range AllPermissions {
		if PermissionSettings[p] == "" {
			t.Errorf("permission %s has no settings screen", p)
		}
	}
	if !IsValidPermission("microphone") || IsValidPermission("camera") {
		t.Error("IsValidPermission mismatch")
	}
}
