// ABOUTME: MCP resource implementations for the migraine journal.
// ABOUTME: Provides migraine://settings, migraine://migraines/recent, and migraine://menstruation.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harperreed/migraine/internal/models"
	"github.com/harperreed/migraine/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	uriSettings     = "migraine://settings"
	uriRecent       = "migraine://migraines/recent"
	uriMenstruation = "migraine://menstruation"
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         uriSettings,
		Name:        "Data Settings",
		Description: "Every collectable metric with its effective state",
		MIMEType:    "application/json",
	}, s.handleSettingsResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         uriRecent,
		Name:        "Recent Migraines",
		Description: "Last 10 migraines plus standalone triggers, medicines, and reliefs from the past week",
		MIMEType:    "application/json",
	}, s.handleRecentResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         uriMenstruation,
		Name:        "Menstruation Settings",
		Description: "Cycle settings and the predicted next period",
		MIMEType:    "application/json",
	}, s.handleMenstruationResource)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// Resource handlers

func (s *Server) handleSettingsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	view, err := s.settings.Refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	byGroup := make(map[string][]rowOutput)
	enabled := 0
	for _, r := range view.Rows {
		byGroup[r.Row.Group] = append(byGroup[r.Row.Group], toRowOutput(r))
		if r.Enabled {
			enabled++
		}
	}

	return jsonResource(uriSettings, map[string]any{
		"stale":   view.Stale,
		"groups":  byGroup,
		"enabled": enabled,
		"total":   len(view.Rows),
	})
}

func (s *Server) handleRecentResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	migraines, err := s.repo.ListMigraines(ctx, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to list migraines: %w", err)
	}

	items, err := s.repo.ListJournalItems(ctx, storage.ItemFilter{Limit: 100})
	if err != nil {
		return nil, fmt.Errorf("failed to list journal items: %w", err)
	}

	weekAgo := time.Now().AddDate(0, 0, -7)
	var standalone []*models.JournalItem
	for _, it := range items {
		if it.MigraineID == nil && !it.RecordedAt.Before(weekAgo) {
			standalone = append(standalone, it)
		}
	}

	return jsonResource(uriRecent, map[string]any{
		"migraines": migraines,
		"items":     standalone,
		"counts": map[string]int{
			"migraines": len(migraines),
			"items":     len(standalone),
		},
	})
}

func (s *Server) handleMenstruationResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	m, err := s.repo.GetMenstruationSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load menstruation settings: %w", err)
	}
	return jsonResource(uriMenstruation, toMenstruationOutput(m))
}
