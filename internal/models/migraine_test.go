// ABOUTME: Tests for Migraine and JournalItem models.
// ABOUTME: Validates constructors, builders, and validation rules.
package models

import (
	"testing"
	"time"
)

func TestNewMigraine(t *testing.T) {
	m := NewMigraine(6)

	if m.ID.String() == "" {
		t.Error("expected UUID to be set")
	}
	if m.Severity != 6 {
		t.Errorf("Severity = %d, want 6", m.Severity)
	}
	if m.StartedAt.IsZero() {
		t.Error("expected StartedAt to be set")
	}
	if m.Duration() != 0 {
		t.Error("expected zero duration for ongoing migraine")
	}
}

func TestMigraineValidate(t *testing.T) {
	start := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		m       *Migraine
		wantErr bool
	}{
		{"valid", NewMigraine(5).WithStartedAt(start), false},
		{"valid with end", NewMigraine(5).WithStartedAt(start).WithEndedAt(start.Add(3 * time.Hour)), false},
		{"severity too low", NewMigraine(0), true},
		{"severity too high", NewMigraine(11), true},
		{"ends before start", NewMigraine(5).WithStartedAt(start).WithEndedAt(start.Add(-time.Hour)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMigraineDuration(t *testing.T) {
	start := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	m := NewMigraine(4).WithStartedAt(start).WithEndedAt(start.Add(90 * time.Minute))

	if m.Duration() != 90*time.Minute {
		t.Errorf("Duration() = %v, want 1h30m", m.Duration())
	}
}

func TestNewJournalItem(t *testing.T) {
	m := NewMigraine(7)
	it := NewJournalItem(ItemMedicine, "ibuprofen").ForMigraine(m.ID).WithAmount(400, "mg")

	if it.MigraineID == nil || *it.MigraineID != m.ID {
		t.Error("expected MigraineID to match")
	}
	if it.Kind != ItemMedicine {
		t.Errorf("Kind = %s, want medicine", it.Kind)
	}
	if it.Amount == nil || *it.Amount != 400 {
		t.Error("expected Amount to be 400")
	}
	if it.Unit == nil || *it.Unit != "mg" {
		t.Error("expected Unit to be mg")
	}
}

func TestJournalItemNoUnit(t *testing.T) {
	it := NewJournalItem(ItemTrigger, "red wine").WithAmount(2, "")
	if it.Unit != nil {
		t.Error("expected nil unit")
	}
	if !IsValidItemKind("relief") || IsValidItemKind("symptom") {
		t.Error("IsValidItemKind mismatch")
	}
}
