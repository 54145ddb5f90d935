package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dukerupert/fairshare/internal/model"
)

func endOf(y int, m time.Month, d int, loc *time.Location) time.Time {
	return time.Date(y, m, d, 23, 59, 59, 999_000_000, loc)
}

func TestComputeDueDate(t *testing.T) {
	loc := time.UTC
	from := time.Date(2026, 2, 5, 14, 30, 0, 0, loc)

	tests := []struct {
		name string
		freq model.Frequency
		want time.Time
	}{
		{"daily is end of same day", model.FrequencyDaily, endOf(2026, 2, 5, loc)},
		{"once is end of same day", model.FrequencyOnce, endOf(2026, 2, 5, loc)},
		{"weekly adds seven days", model.FrequencyWeekly, endOf(2026, 2, 12, loc)},
		{"biweekly adds fourteen days", model.FrequencyBiweekly, endOf(2026, 2, 19, loc)},
		{"monthly keeps day of month", model.FrequencyMonthly, endOf(2026, 3, 5, loc)},
		{"unknown falls back to weekly", model.Frequency("FORTNIGHTLY-ISH"), endOf(2026, 2, 12, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(ComputeDueDate(tt.freq, from)), "got %v", ComputeDueDate(tt.freq, from))
		})
	}
}

func TestComputeDueDateMonthlyClamps(t *testing.T) {
	tests := []struct {
		from time.Time
		want time.Time
	}{
		{time.Date(2026, 1, 31, 8, 0, 0, 0, time.UTC), endOf(2026, 2, 28, time.UTC)},
		{time.Date(2028, 1, 31, 8, 0, 0, 0, time.UTC), endOf(2028, 2, 29, time.UTC)},
		{time.Date(2026, 3, 31, 8, 0, 0, 0, time.UTC), endOf(2026, 4, 30, time.UTC)},
		{time.Date(2026, 12, 15, 8, 0, 0, 0, time.UTC), endOf(2027, 1, 15, time.UTC)},
	}
	for _, tt := range tests {
		got := ComputeDueDate(model.FrequencyMonthly, tt.from)
		assert.True(t, tt.want.Equal(got), "from %v: got %v, want %v", tt.from, got, tt.want)
	}
}

func TestComputeDueDateUsesLocalDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 02:00 UTC on Feb 6 is still Feb 5 in New York.
	from := time.Date(2026, 2, 6, 2, 0, 0, 0, time.UTC).In(loc)
	got := ComputeDueDate(model.FrequencyDaily, from)
	assert.True(t, endOf(2026, 2, 5, loc).Equal(got), "got %v", got)
}

func TestAdvanceAnchorsAtNoon(t *testing.T) {
	from := time.Date(2026, 2, 5, 23, 59, 59, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 2, 6, 12, 0, 0, 0, time.UTC), Advance(model.FrequencyDaily, from))
	assert.Equal(t, time.Date(2026, 2, 5, 12, 0, 0, 0, time.UTC), Advance(model.FrequencyOnce, from))
	assert.Equal(t, time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC), Advance(model.FrequencyWeekly, from))
	assert.Equal(t, time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC), Advance(model.FrequencyBiweekly, from))
	assert.Equal(t, time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC), Advance(model.FrequencyMonthly, from))
	assert.Equal(t, time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC), Advance(model.Frequency(""), from))
}

func TestAdvanceAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// Clocks move forward on 2026-03-29.
	from := time.Date(2026, 3, 25, 12, 0, 0, 0, loc)
	got := Advance(model.FrequencyWeekly, from)
	assert.Equal(t, 12, got.Hour())
	assert.Equal(t, 1, got.Day())
	assert.Equal(t, time.April, got.Month())
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2026, 2, 1, 23, 0, 0, 0, time.UTC)
	b := time.Date(2026, 2, 4, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 3, DaysBetween(a, b))
	assert.Equal(t, -3, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a))
}
