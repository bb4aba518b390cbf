// ABOUTME: MenstruationSettings model with cycle prediction helpers.
// ABOUTME: One record per user; mutated only through explicit save actions.
package models

import (
	"fmt"
	"math"
	"time"
)

const (
	DefaultCycleLengthDays = 28
	MinCycleLengthDays     = 15
	MaxCycleLengthDays     = 60
)

// MenstruationSettings holds the cycle information used for predictions.
type MenstruationSettings struct {
	LastPeriodDate     *time.Time `json:"last_period_date,omitempty" yaml:"last_period_date,omitempty"`
	AvgCycleLengthDays int        `json:"avg_cycle_length_days" yaml:"avg_cycle_length_days"`
	AutoUpdateAverage  bool       `json:"auto_update_average" yaml:"auto_update_average"`
	UpdatedAt          time.Time  `json:"updated_at" yaml:"updated_at"`
}

// DefaultMenstruationSettings returns the settings used before the user saves any.
func DefaultMenstruationSettings() *MenstruationSettings {
	return &MenstruationSettings{
		AvgCycleLengthDays: DefaultCycleLengthDays,
		AutoUpdateAverage:  true,
	}
}

// Validate checks the cycle length range.
func (m *MenstruationSettings) Validate() error {
	if m.AvgCycleLengthDays < MinCycleLengthDays || m.AvgCycleLengthDays > MaxCycleLengthDays {
		return fmt.Errorf("average cycle length must be between %d and %d days, got %d",
			MinCycleLengthDays, MaxCycleLengthDays, m.AvgCycleLengthDays)
	}
	return nil
}

// WithLastPeriodDate sets the last period date, truncated to a calendar day.
func (m *MenstruationSettings) WithLastPeriodDate(t time.Time) *MenstruationSettings {
	d := truncateDay(t)
	m.LastPeriodDate = &d
	return m
}

// LogPeriod records a new period start. When AutoUpdateAverage is set and the
// gap since the previous start is a plausible cycle, the average moves halfway
// towards the observed gap.
func (m *MenstruationSettings) LogPeriod(start time.Time) {
	start = truncateDay(start)
	if m.LastPeriodDate != nil && m.AutoUpdateAverage && start.After(*m.LastPeriodDate) {
		gap := int(math.Round(start.Sub(*m.LastPeriodDate).Hours() / 24))
		if gap >= MinCycleLengthDays && gap <= MaxCycleLengthDays {
			m.AvgCycleLengthDays = int(math.Round(float64(m.AvgCycleLengthDays+gap) / 2))
		}
	}
	if m.LastPeriodDate == nil || start.After(*m.LastPeriodDate) {
		m.LastPeriodDate = &start
	}
	m.UpdatedAt = time.Now()
}

// PredictNext returns the predicted start of the next period.
// The second return value is false when no last period date is known.
func (m *MenstruationSettings) PredictNext() (time.Time, bool) {
	if m.LastPeriodDate == nil {
		return time.Time{}, false
	}
	avg := m.AvgCycleLengthDays
	if avg <= 0 {
		avg = DefaultCycleLengthDays
	}
	return m.LastPeriodDate.AddDate(0, 0, avg), true
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
