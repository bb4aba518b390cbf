// ABOUTME: MetricSetting model for per-metric data-collection preferences.
// ABOUTME: Settings are keyed by metric and, for wearable rows, by preferred source.
package models

import (
	"time"
)

// MetricSetting is the stored enablement of one metric (and source).
type MetricSetting struct {
	Metric          string    `json:"metric" yaml:"metric"`
	Enabled         bool      `json:"enabled" yaml:"enabled"`
	PreferredSource *string   `json:"preferred_source,omitempty" yaml:"preferred_source,omitempty"`
	AllowedSources  []string  `json:"allowed_sources,omitempty" yaml:"allowed_sources,omitempty"`
	UpdatedAt       time.Time `json:"updated_at" yaml:"updated_at"`
}

// NewMetricSetting creates a setting for metric with the catalog's allowed sources.
func NewMetricSetting(metric string, enabled bool) *MetricSetting {
	s := &MetricSetting{
		Metric:    metric,
		Enabled:   enabled,
		UpdatedAt: time.Now(),
	}
	if row, ok := LookupRow(metric); ok && len(row.AllowedSources) > 0 {
		s.AllowedSources = append([]string(nil), row.AllowedSources...)
	}
	return s
}

// WithSource sets the preferred source.
func (s *MetricSetting) WithSource(source string) *MetricSetting {
	if source == "" {
		s.PreferredSource = nil
		return s
	}
	s.PreferredSource = &source
	return s
}

// Source returns the preferred source or "" when none is set.
func (s *MetricSetting) Source() string {
	if s.PreferredSource == nil {
		return ""
	}
	return *s.PreferredSource
}

// Key returns the composite key of this setting.
func (s *MetricSetting) Key() string {
	return SettingKey(s.Metric, s.Source())
}

// SettingKey builds the composite key used for (metric, source) pairs,
// e.g. "hrv_daily_whoop". Settings without a source are keyed by metric alone.
func SettingKey(metric, source string) string {
	if source == "" {
		return metric
	}
	return metric + "_" + source
}
