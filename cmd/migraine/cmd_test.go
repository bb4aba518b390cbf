// ABOUTME: Tests for CLI helper functions and command execution.
// ABOUTME: Runs commands end to end against a temp data directory.
package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harperreed/migraine/internal/gating"
	"github.com/harperreed/migraine/internal/models"
	"github.com/harperreed/migraine/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"date and time with space", "2025-01-31 08:30", false},
		{"date and time with T", "2025-01-31T08:30", false},
		{"date only", "2025-01-31", false},
		{"RFC3339", "2025-01-31T08:30:00Z", false},
		{"RFC3339 with offset", "2025-01-31T08:30:00+05:00", false},
		{"invalid format", "31-01-2025", true},
		{"invalid random string", "not a date", true},
		{"empty string", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseTime(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseTime(%q) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseTime(%q) unexpected error: %v", tt.input, err)
			}
			if result.IsZero() {
				t.Errorf("parseTime(%q) returned zero time", tt.input)
			}
		})
	}
}

func TestParseTimeIsLocal(t *testing.T) {
	got, err := parseTime("2025-01-31 08:30")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2025, 1, 31, 8, 30, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("parseTime = %v, want %v", got, want)
	}
}

func TestTruncateAndPad(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("a much longer sentence", 10); got != "a much ..." {
		t.Errorf("truncate = %q", got)
	}
	if got := padRight("ab", 4); got != "ab  " {
		t.Errorf("padRight = %q", got)
	}
	if got := padRight("abcdef", 4); got != "abcdef" {
		t.Errorf("padRight = %q", got)
	}
}

func TestRelativeDays(t *testing.T) {
	tests := map[int]string{
		0:  "today",
		1:  "tomorrow",
		5:  "in 5 days",
		-1: "1 day overdue",
		-3: "3 days overdue",
	}
	for days, want := range tests {
		if got := relativeDays(days); got != want {
			t.Errorf("relativeDays(%d) = %q, want %q", days, got, want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	start := time.Date(2025, 1, 31, 8, 0, 0, 0, time.UTC)
	m := models.NewMigraine(5).WithStartedAt(start)
	if got := formatDuration(m); got != "ongoing" {
		t.Errorf("formatDuration = %q", got)
	}
	m.WithEndedAt(start.Add(150 * time.Minute))
	if got := formatDuration(m); got != "2h30m0s" {
		t.Errorf("formatDuration = %q", got)
	}
}

func TestRootCmd(t *testing.T) {
	if rootCmd.Use != "migraine" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "migraine")
	}
	if rootCmd.PersistentFlags().Lookup("metrics-addr") == nil {
		t.Error("Expected --metrics-addr persistent flag")
	}
}

func TestCommandTree(t *testing.T) {
	want := map[*cobra.Command][]string{
		settingsCmd:     {"list", "enable", "disable", "source"},
		wearableCmd:     {"list", "connect", "disconnect"},
		permissionCmd:   {"list", "grant", "revoke"},
		jobsCmd:         {"list", "watch"},
		menstruationCmd: {"show", "set", "log", "predict"},
		migraineCmd:     {"add", "list", "show", "end", "delete", "item", "items"},
		syncCmd:         {"pull", "status"},
	}

	for parent, names := range want {
		have := make(map[string]bool)
		for _, c := range parent.Commands() {
			have[c.Name()] = true
		}
		for _, name := range names {
			if !have[name] {
				t.Errorf("Expected %s %s subcommand", parent.Name(), name)
			}
		}
	}

	for _, name := range []string{"export", "import", "migrate", "mcp", "install-skill"} {
		if c, _, err := rootCmd.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("Expected %s command to be registered", name)
		}
	}
}

func TestExportCmdValidArgs(t *testing.T) {
	want := []string{"json", "yaml", "markdown"}
	if len(exportCmd.ValidArgs) != len(want) {
		t.Fatalf("ValidArgs = %v", exportCmd.ValidArgs)
	}
	for i, a := range want {
		if exportCmd.ValidArgs[i] != a {
			t.Errorf("ValidArgs[%d] = %q, want %q", i, exportCmd.ValidArgs[i], a)
		}
	}
}

// resetFlags restores every flag in the tree to its default so state does
// not leak between executions of the shared rootCmd.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// setupTestCLI points data and config at a temp directory and returns the
// database path the CLI will use.
func setupTestCLI(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	for _, key := range []string{
		"MIGRAINE_REMOTE_URL", "MIGRAINE_API_KEY", "MIGRAINE_ACCESS_TOKEN",
		"MIGRAINE_USER_ID", "MIGRAINE_LOG_LEVEL", "MIGRAINE_BACKEND",
	} {
		t.Setenv(key, "")
	}
	t.Cleanup(func() { _ = closeAll() })

	return filepath.Join(dir, "data", "migraine", "migraine.db")
}

// run executes the CLI with args and releases its resources.
func run(t *testing.T, args ...string) error {
	t.Helper()
	resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if cerr := closeAll(); cerr != nil {
		t.Fatalf("closeAll: %v", cerr)
	}
	return err
}

func mustRun(t *testing.T, args ...string) {
	t.Helper()
	if err := run(t, args...); err != nil {
		t.Fatalf("%v failed: %v", args, err)
	}
}

func openDB(t *testing.T, path string) *storage.DB {
	t.Helper()
	db, err := storage.Open(path)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigraineJournalFlow(t *testing.T) {
	dbPath := setupTestCLI(t)
	ctx := context.Background()

	mustRun(t, "migraine", "add", "7", "--at", "2025-01-31 08:00", "--notes", "aura first")

	db := openDB(t, dbPath)
	ms, err := db.ListMigraines(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 1 {
		t.Fatalf("Expected 1 migraine, got %d", len(ms))
	}
	m := ms[0]
	if m.Severity != 7 || m.Notes == nil || *m.Notes != "aura first" {
		t.Errorf("Unexpected migraine: %+v", m)
	}
	prefix := m.ID.String()[:8]
	db.Close()

	mustRun(t, "migraine", "item", "medicine", "ibuprofen", "--migraine", prefix, "--amount", "400", "--unit", "mg")
	mustRun(t, "migraine", "item", "trigger", "red wine")
	mustRun(t, "migraine", "end", prefix, "--at", "2025-01-31 14:00")
	mustRun(t, "migraine", "show", prefix)
	mustRun(t, "migraine", "list")
	mustRun(t, "migraine", "items")

	db = openDB(t, dbPath)
	full, err := db.GetMigraineWithItems(ctx, prefix)
	if err != nil {
		t.Fatal(err)
	}
	if full.EndedAt == nil || full.Duration() != 6*time.Hour {
		t.Errorf("Expected 6h migraine, got ended=%v", full.EndedAt)
	}
	if len(full.Items) != 1 || full.Items[0].Amount == nil || *full.Items[0].Amount != 400 {
		t.Errorf("Expected attached 400mg ibuprofen, got %+v", full.Items)
	}
	items, _ := db.ListJournalItems(ctx, storage.ItemFilter{})
	if len(items) != 2 {
		t.Errorf("Expected 2 items, got %d", len(items))
	}
	db.Close()

	mustRun(t, "migraine", "delete", prefix)

	db = openDB(t, dbPath)
	if _, err := db.GetMigraine(ctx, prefix); err == nil {
		t.Error("Expected migraine to be deleted")
	}
	items, _ = db.ListJournalItems(ctx, storage.ItemFilter{})
	if len(items) != 1 {
		t.Errorf("Expected standalone trigger to survive, got %d items", len(items))
	}
}

func TestMigraineAddValidation(t *testing.T) {
	setupTestCLI(t)

	if err := run(t, "migraine", "add", "11"); err == nil || !strings.Contains(err.Error(), "severity") {
		t.Errorf("Expected severity error, got %v", err)
	}
	if err := run(t, "migraine", "add", "bad"); err == nil {
		t.Error("Expected error for non-numeric severity")
	}
	if err := run(t, "migraine", "add", "5", "--at", "yesterday"); err == nil {
		t.Error("Expected error for bad timestamp")
	}
	if err := run(t, "migraine", "item", "mood", "happy"); err == nil {
		t.Error("Expected error for unknown item kind")
	}
}

func TestSettingsPermissionFlow(t *testing.T) {
	dbPath := setupTestCLI(t)
	ctx := context.Background()

	err := run(t, "settings", "enable", models.MetricScreenTime)
	var permErr *gating.PermissionRequiredError
	if !errors.As(err, &permErr) {
		t.Fatalf("Expected permission error, got %v", err)
	}

	mustRun(t, "permission", "grant", "usage_stats")
	mustRun(t, "settings", "enable", models.MetricScreenTime)

	db := openDB(t, dbPath)
	js, _ := db.ListJobs(ctx)
	if len(js) != 2 {
		t.Errorf("Expected job and watchdog, got %d", len(js))
	}
	db.Close()

	mustRun(t, "permission", "revoke", "usage_stats")

	db = openDB(t, dbPath)
	js, _ = db.ListJobs(ctx)
	if len(js) != 0 {
		t.Errorf("Expected jobs cancelled on revoke, got %d", len(js))
	}
	settings, _ := db.ListSettings(ctx)
	for _, s := range settings {
		if s.Metric == models.MetricScreenTime && s.Enabled {
			t.Error("Expected screen time to be switched off")
		}
	}
	db.Close()

	mustRun(t, "settings", "list")
	mustRun(t, "settings", "list", "--group", "Weather")
	mustRun(t, "permission", "list")
	mustRun(t, "jobs", "list")
}

func TestWearableAndSource(t *testing.T) {
	dbPath := setupTestCLI(t)
	ctx := context.Background()

	if err := run(t, "settings", "enable", models.MetricHRV); !errors.Is(err, gating.ErrNoWearableConnected) {
		t.Errorf("Expected ErrNoWearableConnected, got %v", err)
	}

	mustRun(t, "wearable", "connect", "whoop")
	if err := run(t, "settings", "source", models.MetricHRV, "oura"); !errors.Is(err, gating.ErrSourceNotConnected) {
		t.Errorf("Expected ErrSourceNotConnected, got %v", err)
	}

	mustRun(t, "wearable", "connect", "oura")
	mustRun(t, "settings", "source", models.MetricHRV, "oura")
	mustRun(t, "wearable", "list")

	db := openDB(t, dbPath)
	settings, _ := db.ListSettings(ctx)
	found := false
	for _, s := range settings {
		if s.Metric == models.MetricHRV && s.Source() == models.SourceOura {
			found = true
		}
	}
	if !found {
		t.Error("Expected hrv_daily oura setting")
	}
	db.Close()

	mustRun(t, "wearable", "disconnect", "oura")
	if err := run(t, "wearable", "connect", "fitbit"); err == nil {
		t.Error("Expected error for unknown wearable")
	}
}

func TestMenstruationFlow(t *testing.T) {
	dbPath := setupTestCLI(t)

	mustRun(t, "menstruation", "predict")
	mustRun(t, "menstruation", "set", "--last", "2025-03-01", "--avg", "30")
	mustRun(t, "menstruation", "log", "2025-03-29")
	mustRun(t, "menstruation", "show")

	db := openDB(t, dbPath)
	m, err := db.GetMenstruationSettings(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if m.LastPeriodDate == nil || m.LastPeriodDate.Format(time.DateOnly) != "2025-03-29" {
		t.Errorf("LastPeriodDate = %v", m.LastPeriodDate)
	}
	if m.AvgCycleLengthDays != 29 {
		t.Errorf("Expected average to move to 29, got %d", m.AvgCycleLengthDays)
	}
	db.Close()

	if err := run(t, "menstruation", "set", "--avg", "90"); err == nil {
		t.Error("Expected validation error")
	}
	if err := run(t, "menstruation", "set", "--auto", "maybe"); err == nil {
		t.Error("Expected error for bad --auto")
	}
}

func TestJobsWatchOnceReschedulesMissingJobs(t *testing.T) {
	dbPath := setupTestCLI(t)
	ctx := context.Background()

	mustRun(t, "permission", "grant", "microphone")
	mustRun(t, "settings", "enable", models.MetricAmbientNoise)

	// Lose the schedule rows behind the service's back
	db := openDB(t, dbPath)
	for _, id := range []models.JobID{models.JobAmbientNoise, models.JobAmbientNoise.Watchdog()} {
		if _, err := db.RemoveJob(ctx, id); err != nil {
			t.Fatalf("RemoveJob: %v", err)
		}
	}
	db.Close()

	mustRun(t, "jobs", "watch", "--once")

	db = openDB(t, dbPath)
	js, _ := db.ListJobs(ctx)
	ids := make(map[models.JobID]bool)
	for _, j := range js {
		ids[j.ID] = true
	}
	if !ids[models.JobAmbientNoise] || !ids[models.JobAmbientNoise.Watchdog()] {
		t.Errorf("Expected ambient noise jobs, got %v", ids)
	}
	db.Close()

	mustRun(t, "jobs", "watch", "--once")
}

func TestExportImportRoundTrip(t *testing.T) {
	setupTestCLI(t)

	mustRun(t, "migraine", "add", "6", "--at", "2025-02-01 09:00")
	mustRun(t, "migraine", "item", "relief", "dark room")

	out := filepath.Join(t.TempDir(), "backup.json")
	mustRun(t, "export", "json", "-o", out)
	mustRun(t, "export", "yaml", "-o", filepath.Join(t.TempDir(), "backup.yaml"))
	mustRun(t, "export", "markdown", "--since", "2025-01-01")

	if err := run(t, "export", "csv"); err == nil {
		t.Error("Expected error for unknown format")
	}
	if err := run(t, "export", "markdown", "--since", "Feb"); err == nil {
		t.Error("Expected error for bad --since")
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"dark room"`) {
		t.Error("Expected export to contain the relief item")
	}

	// Fresh data directory
	dbPath := setupTestCLI(t)
	mustRun(t, "import", out)

	db := openDB(t, dbPath)
	ms, _ := db.ListMigraines(context.Background(), 0)
	if len(ms) != 1 || ms[0].Severity != 6 {
		t.Errorf("Expected imported migraine, got %d", len(ms))
	}
}

func TestSyncAndMigrateWithoutRemote(t *testing.T) {
	setupTestCLI(t)

	mustRun(t, "sync", "pull")
	mustRun(t, "sync", "status")

	if err := run(t, "migrate"); err == nil || !strings.Contains(err.Error(), "remote backend needs") {
		t.Errorf("Expected remote configuration error, got %v", err)
	}
}
