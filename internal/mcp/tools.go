// ABOUTME: MCP tool implementations for data settings and the migraine journal.
// ABOUTME: Setting changes go through the settings service; journal writes go to the repository.
package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/migraine/internal/gating"
	"github.com/harperreed/migraine/internal/models"
	"github.com/harperreed/migraine/internal/settings"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerTools() {
	// Data settings
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_data_settings",
		Description: "List every collectable metric with its effective enabled state, source, and why it is greyed out",
	}, s.handleListDataSettings)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "set_metric_enabled",
		Description: "Turn collection of a metric on or off",
	}, s.handleSetMetricEnabled)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "select_metric_source",
		Description: "Choose which connected wearable feeds a metric",
	}, s.handleSelectMetricSource)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "connect_wearable",
		Description: "Mark a wearable (whoop, oura) as connected",
	}, s.handleConnectWearable)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "disconnect_wearable",
		Description: "Mark a wearable as disconnected",
	}, s.handleDisconnectWearable)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "set_permission",
		Description: "Record an OS permission as granted or revoked",
	}, s.handleSetPermission)

	// Menstruation
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_menstruation_settings",
		Description: "Get cycle settings and the predicted next period",
	}, s.handleGetMenstruationSettings)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "save_menstruation_settings",
		Description: "Save the last period date and average cycle length",
	}, s.handleSaveMenstruationSettings)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "log_period",
		Description: "Record the start of a period, updating the cycle average when enabled",
	}, s.handleLogPeriod)

	// Journal
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "log_migraine",
		Description: "Record a migraine episode",
	}, s.handleLogMigraine)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_journal_item",
		Description: "Record a trigger, medicine, or relief, optionally attached to a migraine",
	}, s.handleAddJournalItem)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_migraines",
		Description: "List recent migraines",
	}, s.handleListMigraines)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_migraine",
		Description: "Get a migraine with its journal items",
	}, s.handleGetMigraine)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_migraine",
		Description: "Delete a migraine and its journal items",
	}, s.handleDeleteMigraine)
}

// Tool input/output types

type emptyInput struct{}

type rowOutput struct {
	Metric          string `json:"metric"`
	Label           string `json:"label"`
	Group           string `json:"group"`
	CollectedBy     string `json:"collected_by"`
	Source          string `json:"source,omitempty"`
	Enabled         bool   `json:"enabled"`
	StoredEnabled   bool   `json:"stored_enabled"`
	Togglable       bool   `json:"togglable"`
	Greyed          bool   `json:"greyed"`
	NeedsPermission bool   `json:"needs_permission,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

func toRowOutput(st gating.RowState) rowOutput {
	return rowOutput{
		Metric:          st.Row.Table,
		Label:           st.Row.Label,
		Group:           st.Row.Group,
		CollectedBy:     string(st.Row.CollectedBy),
		Source:          st.Source,
		Enabled:         st.Enabled,
		StoredEnabled:   st.StoredEnabled,
		Togglable:       st.Togglable,
		Greyed:          st.Greyed,
		NeedsPermission: st.NeedsPermission,
		Reason:          st.Reason,
	}
}

type settingsOutput struct {
	Stale       bool        `json:"stale"`
	Corrections int         `json:"corrections"`
	Rows        []rowOutput `json:"rows"`
}

func toSettingsOutput(v *settings.View) settingsOutput {
	out := settingsOutput{Stale: v.Stale, Corrections: v.Corrections, Rows: make([]rowOutput, 0, len(v.Rows))}
	for _, r := range v.Rows {
		out.Rows = append(out.Rows, toRowOutput(r))
	}
	return out
}

type setMetricEnabledInput struct {
	Metric  string `json:"metric" jsonschema:"Metric id such as hrv_daily or screen_time_daily"`
	Enabled bool   `json:"enabled" jsonschema:"True to collect the metric"`
}

type selectSourceInput struct {
	Metric string `json:"metric" jsonschema:"Wearable metric id"`
	Source string `json:"source" jsonschema:"Wearable source (whoop or oura)"`
}

type wearableInput struct {
	Source string `json:"source" jsonschema:"Wearable source (whoop or oura)"`
}

type setPermissionInput struct {
	Permission string `json:"permission" jsonschema:"Permission name such as microphone or usage_stats"`
	Granted    bool   `json:"granted" jsonschema:"True when the permission is granted"`
}

type menstruationOutput struct {
	LastPeriodDate     string `json:"last_period_date,omitempty"`
	AvgCycleLengthDays int    `json:"avg_cycle_length_days"`
	AutoUpdateAverage  bool   `json:"auto_update_average"`
	PredictedNext      string `json:"predicted_next,omitempty"`
}

func toMenstruationOutput(m *models.MenstruationSettings) menstruationOutput {
	out := menstruationOutput{
		AvgCycleLengthDays: m.AvgCycleLengthDays,
		AutoUpdateAverage:  m.AutoUpdateAverage,
	}
	if m.LastPeriodDate != nil {
		out.LastPeriodDate = m.LastPeriodDate.Format(time.DateOnly)
	}
	if next, ok := m.PredictNext(); ok {
		out.PredictedNext = next.Format(time.DateOnly)
	}
	return out
}

type saveMenstruationInput struct {
	LastPeriodDate     string `json:"last_period_date,omitempty" jsonschema:"Start of the last period (YYYY-MM-DD)"`
	AvgCycleLengthDays int    `json:"avg_cycle_length_days,omitempty" jsonschema:"Average cycle length in days (15-60)"`
	AutoUpdateAverage  *bool  `json:"auto_update_average,omitempty" jsonschema:"Recompute the average when periods are logged"`
}

type logPeriodInput struct {
	Date string `json:"date,omitempty" jsonschema:"Period start (YYYY-MM-DD), defaults to today"`
}

type logMigraineInput struct {
	Severity  int    `json:"severity" jsonschema:"Severity from 1 to 10"`
	StartedAt string `json:"started_at,omitempty" jsonschema:"Start time (ISO 8601), defaults to now"`
	EndedAt   string `json:"ended_at,omitempty" jsonschema:"End time (ISO 8601)"`
	Notes     string `json:"notes,omitempty" jsonschema:"Optional notes"`
}

type migraineOutput struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type addJournalItemInput struct {
	Kind       string  `json:"kind" jsonschema:"Item kind: trigger, medicine, or relief"`
	Name       string  `json:"name" jsonschema:"What it was, e.g. red wine or ibuprofen"`
	MigraineID string  `json:"migraine_id,omitempty" jsonschema:"Migraine ID or prefix to attach to"`
	Amount     float64 `json:"amount,omitempty" jsonschema:"Amount taken"`
	Unit       string  `json:"unit,omitempty" jsonschema:"Unit of the amount"`
	RecordedAt string  `json:"recorded_at,omitempty" jsonschema:"Timestamp (ISO 8601), defaults to now"`
	Notes      string  `json:"notes,omitempty" jsonschema:"Optional notes"`
}

type listMigrainesInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Max results (default 20)"`
}

type idInput struct {
	ID string `json:"id" jsonschema:"Migraine ID or prefix"`
}

type simpleOutput struct {
	Message string `json:"message"`
}

// parseTime accepts RFC3339, "2006-01-02 15:04", or a bare date.
func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (use RFC3339 or YYYY-MM-DD)", s)
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

// Tool handlers

func (s *Server) handleListDataSettings(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, settingsOutput, error) {
	view, err := s.settings.Refresh(ctx)
	if err != nil {
		return nil, settingsOutput{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return nil, toSettingsOutput(view), nil
}

func (s *Server) handleSetMetricEnabled(ctx context.Context, req *mcp.CallToolRequest, input setMetricEnabledInput) (*mcp.CallToolResult, rowOutput, error) {
	st, err := s.settings.SetEnabled(ctx, input.Metric, input.Enabled)
	if err != nil {
		return nil, rowOutput{}, err
	}
	return nil, toRowOutput(st), nil
}

func (s *Server) handleSelectMetricSource(ctx context.Context, req *mcp.CallToolRequest, input selectSourceInput) (*mcp.CallToolResult, rowOutput, error) {
	st, err := s.settings.SelectSource(ctx, input.Metric, input.Source)
	if err != nil {
		return nil, rowOutput{}, err
	}
	return nil, toRowOutput(st), nil
}

func (s *Server) handleConnectWearable(ctx context.Context, req *mcp.CallToolRequest, input wearableInput) (*mcp.CallToolResult, settingsOutput, error) {
	view, err := s.settings.ConnectWearable(ctx, input.Source)
	if err != nil {
		return nil, settingsOutput{}, err
	}
	return nil, toSettingsOutput(view), nil
}

func (s *Server) handleDisconnectWearable(ctx context.Context, req *mcp.CallToolRequest, input wearableInput) (*mcp.CallToolResult, settingsOutput, error) {
	view, err := s.settings.DisconnectWearable(ctx, input.Source)
	if err != nil {
		return nil, settingsOutput{}, err
	}
	return nil, toSettingsOutput(view), nil
}

func (s *Server) handleSetPermission(ctx context.Context, req *mcp.CallToolRequest, input setPermissionInput) (*mcp.CallToolResult, settingsOutput, error) {
	view, err := s.settings.SetPermission(ctx, models.Permission(input.Permission), input.Granted)
	if err != nil {
		return nil, settingsOutput{}, err
	}
	return nil, toSettingsOutput(view), nil
}

func (s *Server) handleGetMenstruationSettings(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, menstruationOutput, error) {
	m, err := s.repo.GetMenstruationSettings(ctx)
	if err != nil {
		return nil, menstruationOutput{}, fmt.Errorf("failed to load menstruation settings: %w", err)
	}
	return nil, toMenstruationOutput(m), nil
}

func (s *Server) handleSaveMenstruationSettings(ctx context.Context, req *mcp.CallToolRequest, input saveMenstruationInput) (*mcp.CallToolResult, menstruationOutput, error) {
	m, err := s.repo.GetMenstruationSettings(ctx)
	if err != nil {
		return nil, menstruationOutput{}, fmt.Errorf("failed to load menstruation settings: %w", err)
	}

	if input.LastPeriodDate != "" {
		t, err := parseTime(input.LastPeriodDate)
		if err != nil {
			return nil, menstruationOutput{}, err
		}
		m.WithLastPeriodDate(t)
	}
	if input.AvgCycleLengthDays != 0 {
		m.AvgCycleLengthDays = input.AvgCycleLengthDays
	}
	if input.AutoUpdateAverage != nil {
		m.AutoUpdateAverage = *input.AutoUpdateAverage
	}
	if err := m.Validate(); err != nil {
		return nil, menstruationOutput{}, err
	}
	m.UpdatedAt = time.Now()

	if err := s.repo.SaveMenstruationSettings(ctx, m); err != nil {
		return nil, menstruationOutput{}, fmt.Errorf("failed to save menstruation settings: %w", err)
	}
	return nil, toMenstruationOutput(m), nil
}

func (s *Server) handleLogPeriod(ctx context.Context, req *mcp.CallToolRequest, input logPeriodInput) (*mcp.CallToolResult, menstruationOutput, error) {
	start := time.Now()
	if input.Date != "" {
		t, err := parseTime(input.Date)
		if err != nil {
			return nil, menstruationOutput{}, err
		}
		start = t
	}

	m, err := s.repo.GetMenstruationSettings(ctx)
	if err != nil {
		return nil, menstruationOutput{}, fmt.Errorf("failed to load menstruation settings: %w", err)
	}
	m.LogPeriod(start)

	if err := s.repo.SaveMenstruationSettings(ctx, m); err != nil {
		return nil, menstruationOutput{}, fmt.Errorf("failed to save menstruation settings: %w", err)
	}
	return nil, toMenstruationOutput(m), nil
}

func (s *Server) handleLogMigraine(ctx context.Context, req *mcp.CallToolRequest, input logMigraineInput) (*mcp.CallToolResult, migraineOutput, error) {
	m := models.NewMigraine(input.Severity)
	if input.StartedAt != "" {
		t, err := parseTime(input.StartedAt)
		if err != nil {
			return nil, migraineOutput{}, err
		}
		m.WithStartedAt(t)
	}
	if input.EndedAt != "" {
		t, err := parseTime(input.EndedAt)
		if err != nil {
			return nil, migraineOutput{}, err
		}
		m.WithEndedAt(t)
	}
	if input.Notes != "" {
		m.WithNotes(input.Notes)
	}
	if err := m.Validate(); err != nil {
		return nil, migraineOutput{}, err
	}

	if err := s.repo.CreateMigraine(ctx, m); err != nil {
		return nil, migraineOutput{}, fmt.Errorf("failed to create migraine: %w", err)
	}

	return nil, migraineOutput{
		ID:      shortID(m.ID),
		Message: fmt.Sprintf("Logged migraine, severity %d (ID: %s)", m.Severity, shortID(m.ID)),
	}, nil
}

func (s *Server) handleAddJournalItem(ctx context.Context, req *mcp.CallToolRequest, input addJournalItemInput) (*mcp.CallToolResult, simpleOutput, error) {
	if !models.IsValidItemKind(input.Kind) {
		return nil, simpleOutput{}, fmt.Errorf("unknown item kind: %s", input.Kind)
	}

	it := models.NewJournalItem(models.ItemKind(input.Kind), input.Name)
	if input.MigraineID != "" {
		m, err := s.repo.GetMigraine(ctx, input.MigraineID)
		if err != nil {
			return nil, simpleOutput{}, fmt.Errorf("migraine not found: %s", input.MigraineID)
		}
		it.ForMigraine(m.ID)
	}
	if input.Amount != 0 {
		it.WithAmount(input.Amount, input.Unit)
	}
	if input.RecordedAt != "" {
		t, err := parseTime(input.RecordedAt)
		if err != nil {
			return nil, simpleOutput{}, err
		}
		it.WithRecordedAt(t)
	}
	if input.Notes != "" {
		it.WithNotes(input.Notes)
	}

	if err := s.repo.AddJournalItem(ctx, it); err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to add %s: %w", input.Kind, err)
	}

	return nil, simpleOutput{
		Message: fmt.Sprintf("Added %s: %s (ID: %s)", input.Kind, input.Name, shortID(it.ID)),
	}, nil
}

func (s *Server) handleListMigraines(ctx context.Context, req *mcp.CallToolRequest, input listMigrainesInput) (*mcp.CallToolResult, any, error) {
	if input.Limit <= 0 {
		input.Limit = 20
	}

	migraines, err := s.repo.ListMigraines(ctx, input.Limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list migraines: %w", err)
	}

	if len(migraines) == 0 {
		return nil, map[string]any{"message": "No migraines found."}, nil
	}

	return nil, map[string]any{"migraines": migraines}, nil
}

func (s *Server) handleGetMigraine(ctx context.Context, req *mcp.CallToolRequest, input idInput) (*mcp.CallToolResult, any, error) {
	m, err := s.repo.GetMigraineWithItems(ctx, input.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("migraine not found: %s", input.ID)
	}
	return nil, m, nil
}

func (s *Server) handleDeleteMigraine(ctx context.Context, req *mcp.CallToolRequest, input idInput) (*mcp.CallToolResult, simpleOutput, error) {
	if err := s.repo.DeleteMigraine(ctx, input.ID); err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to delete migraine: %w", err)
	}

	return nil, simpleOutput{
		Message: fmt.Sprintf("Deleted migraine: %s", input.ID),
	}, nil
}
