// ABOUTME: Migraine and JournalItem models for the migraine journal.
// ABOUTME: Items (triggers, medicines, reliefs) may stand alone or attach to a migraine.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ItemKind is the type of a journal item.
type ItemKind string

const (
	ItemTrigger  ItemKind = "trigger"
	ItemMedicine ItemKind = "medicine"
	ItemRelief   ItemKind = "relief"
)

// AllItemKinds lists the valid journal item kinds.
var AllItemKinds = []ItemKind{ItemTrigger, ItemMedicine, ItemRelief}

// IsValidItemKind checks if a string is a valid item kind.
func IsValidItemKind(s string) bool {
	for _, k := range AllItemKinds {
		if string(k) == s {
			return true
		}
	}
	return false
}

const (
	MinSeverity = 1
	MaxSeverity = 10
)

// Migraine is a single migraine episode.
type Migraine struct {
	ID        uuid.UUID     `json:"id" yaml:"id"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
	Severity  int           `json:"severity" yaml:"severity"`
	Notes     *string       `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt time.Time     `json:"created_at" yaml:"created_at"`
	Items     []JournalItem `json:"items,omitempty" yaml:"items,omitempty"` // Populated when fetching full migraine
}

// NewMigraine creates a new Migraine starting now.
func NewMigraine(severity int) *Migraine {
	now := time.Now()
	return &Migraine{
		ID:        uuid.New(),
		StartedAt: now,
		Severity:  severity,
		CreatedAt: now,
	}
}

// Validate checks severity and time ordering.
func (m *Migraine) Validate() error {
	if m.Severity < MinSeverity || m.Severity > MaxSeverity {
		return fmt.Errorf("severity must be between %d and %d, got %d", MinSeverity, MaxSeverity, m.Severity)
	}
	if m.EndedAt != nil && m.EndedAt.Before(m.StartedAt) {
		return fmt.Errorf("migraine cannot end before it starts")
	}
	return nil
}

// WithStartedAt sets a custom start timestamp.
func (m *Migraine) WithStartedAt(t time.Time) *Migraine {
	m.StartedAt = t
	return m
}

// WithEndedAt sets the end timestamp.
func (m *Migraine) WithEndedAt(t time.Time) *Migraine {
	m.EndedAt = &t
	return m
}

// WithNotes sets notes on the migraine.
func (m *Migraine) WithNotes(notes string) *Migraine {
	m.Notes = &notes
	return m
}

// Duration returns how long the migraine lasted, or zero while it is ongoing.
func (m *Migraine) Duration() time.Duration {
	if m.EndedAt == nil {
		return 0
	}
	return m.EndedAt.Sub(m.StartedAt)
}

// JournalItem is a trigger, medicine, or relief entry.
type JournalItem struct {
	ID         uuid.UUID  `json:"id" yaml:"id"`
	MigraineID *uuid.UUID `json:"migraine_id,omitempty" yaml:"migraine_id,omitempty"`
	Kind       ItemKind   `json:"kind" yaml:"kind"`
	Name       string     `json:"name" yaml:"name"`
	Amount     *float64   `json:"amount,omitempty" yaml:"amount,omitempty"`
	Unit       *string    `json:"unit,omitempty" yaml:"unit,omitempty"`
	RecordedAt time.Time  `json:"recorded_at" yaml:"recorded_at"`
	Notes      *string    `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at" yaml:"created_at"`
}

// NewJournalItem creates a new standalone JournalItem recorded now.
func NewJournalItem(kind ItemKind, name string) *JournalItem {
	now := time.Now()
	return &JournalItem{
		ID:         uuid.New(),
		Kind:       kind,
		Name:       name,
		RecordedAt: now,
		CreatedAt:  now,
	}
}

// ForMigraine attaches the item to a migraine.
func (i *JournalItem) ForMigraine(id uuid.UUID) *JournalItem {
	i.MigraineID = &id
	return i
}

// WithAmount sets the amount and optional unit.
func (i *JournalItem) WithAmount(amount float64, unit string) *JournalItem {
	i.Amount = &amount
	if unit != "" {
		i.Unit = &unit
	}
	return i
}

// WithRecordedAt sets a custom recorded_at timestamp.
func (i *JournalItem) WithRecordedAt(t time.Time) *JournalItem {
	i.RecordedAt = t
	return i
}

// WithNotes sets notes on the item.
func (i *JournalItem) WithNotes(notes string) *JournalItem {
	i.Notes = &notes
	return i
}
