// ABOUTME: Tests for MenstruationSettings validation and predictions.
// ABOUTME: Covers defaults, average updates, and next-period prediction.
package models

import (
	"testing"
	"time"
)

func TestDefaultMenstruationSettings(t *testing.T) {
	m := DefaultMenstruationSettings()
	if m.AvgCycleLengthDays != 28 {
		t.Errorf("AvgCycleLengthDays = %d, want 28", m.AvgCycleLengthDays)
	}
	if m.LastPeriodDate != nil {
		t.Error("expected no last period date")
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestMenstruationValidate(t *testing.T) {
	for _, days := range []int{0, 14, 61} {
		m := &MenstruationSettings{AvgCycleLengthDays: days}
		if err := m.Validate(); err == nil {
			t.Errorf("Validate() with %d days expected error", days)
		}
	}
}

func TestPredictNext(t *testing.T) {
	m := DefaultMenstruationSettings()
	if _, ok := m.PredictNext(); ok {
		t.Error("expected no prediction without a last period date")
	}

	m.WithLastPeriodDate(time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC))
	got, ok := m.PredictNext()
	if !ok {
		t.Fatal("expected a prediction")
	}
	want := time.Date(2026, 3, 29, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("PredictNext() = %v, want %v", got, want)
	}
}

func TestLogPeriodUpdatesAverage(t *testing.T) {
	m := DefaultMenstruationSettings()
	m.WithLastPeriodDate(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	m.LogPeriod(time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)) // 32 day gap

	if m.AvgCycleLengthDays != 30 {
		t.Errorf("AvgCycleLengthDays = %d, want 30", m.AvgCycleLengthDays)
	}
	if !m.LastPeriodDate.Equal(time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("LastPeriodDate = %v", m.LastPeriodDate)
	}
}

func TestLogPeriodKeepsAverage(t *testing.T) {
	tests := []struct {
		name string
		auto bool
		next time.Time
	}{
		{"auto update off", false, time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)},
		{"implausible gap", true, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := DefaultMenstruationSettings()
			m.AutoUpdateAverage = tt.auto
			m.WithLastPeriodDate(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

			m.LogPeriod(tt.next)

			if m.AvgCycleLengthDays != 28 {
				t.Errorf("AvgCycleLengthDays = %d, want 28", m.AvgCycleLengthDays)
			}
			if !m.LastPeriodDate.Equal(tt.next) {
				t.Errorf("LastPeriodDate = %v, want %v", m.LastPeriodDate, tt.next)
			}
		})
	}
}

func TestLogPeriodIgnoresOlderDate(t *testing.T) {
	m := DefaultMenstruationSettings()
	last := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	m.WithLastPeriodDate(last)

	m.LogPeriod(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))

	if !m.LastPeriodDate.Equal(last) {
		t.Errorf("LastPeriodDate moved backwards to %v", m.LastPeriodDate)
	}
}
