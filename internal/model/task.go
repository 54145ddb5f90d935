package model

import (
	"strings"
	"time"
)

// Frequency is how often a task recurs.
type Frequency string

const (
	FrequencyDaily    Frequency = "DAILY"
	FrequencyWeekly   Frequency = "WEEKLY"
	FrequencyBiweekly Frequency = "BIWEEKLY"
	FrequencyMonthly  Frequency = "MONTHLY"
	FrequencyOnce     Frequency = "ONCE"
)

var knownFrequencies = map[Frequency]bool{
	FrequencyDaily:    true,
	FrequencyWeekly:   true,
	FrequencyBiweekly: true,
	FrequencyMonthly:  true,
	FrequencyOnce:     true,
}

// ParseFrequency normalizes casing. Unrecognized values are returned as-is
// so callers can apply the weekly fallback.
func ParseFrequency(s string) Frequency {
	return Frequency(strings.ToUpper(strings.TrimSpace(s)))
}

func (f Frequency) Valid() bool {
	return knownFrequencies[f]
}

// Recurring reports whether completing an occurrence should spawn another.
func (f Frequency) Recurring() bool {
	return f != FrequencyOnce
}

type Task struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	Name        string    `json:"name"`
	Frequency   Frequency `json:"frequency"`
	Weight      int       `json:"weight"`
	MinAge      *int      `json:"min_age"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
