// Package schedule computes due instants for recurring tasks.
//
// All calculations happen in the location carried by the reference instant;
// callers convert to the household's location first.
package schedule

import (
	"time"

	"github.com/dukerupert/fairshare/internal/model"
)

// step is how far one occurrence of a frequency lies from the previous one.
type step struct {
	days   int
	months int
}

var steps = map[model.Frequency]step{
	model.FrequencyDaily:    {},
	model.FrequencyOnce:     {},
	model.FrequencyWeekly:   {days: 7},
	model.FrequencyBiweekly: {days: 14},
	model.FrequencyMonthly:  {months: 1},
}

// stepFor falls back to the weekly step for unknown frequencies.
func stepFor(f model.Frequency) step {
	if s, ok := steps[f]; ok {
		return s
	}
	return steps[model.FrequencyWeekly]
}

// ComputeDueDate returns the end of the day on which an occurrence created
// at from is due. DAILY and ONCE are due the same day; WEEKLY, BIWEEKLY and
// MONTHLY one step later.
func ComputeDueDate(freq model.Frequency, from time.Time) time.Time {
	return EndOfDay(shift(StartOfDay(from), stepFor(freq)))
}

// Advance returns the next rotation instant after from, anchored at local
// noon rather than the end of the day. A daily rotation moves one day; the
// other frequencies use the due-date steps. ONCE yields from's own noon, and
// rotations of that frequency are retired by the caller after firing.
func Advance(freq model.Frequency, from time.Time) time.Time {
	s := stepFor(freq)
	if freq == model.FrequencyDaily {
		s = step{days: 1}
	}
	return shift(Noon(from), s)
}

func shift(t time.Time, s step) time.Time {
	if s.months != 0 {
		t = AddMonthsClamped(t, s.months)
	}
	return t.AddDate(0, 0, s.days)
}

// AddMonthsClamped adds calendar months keeping the day of month, clamped to
// the last day of a shorter target month (Jan 31 + 1 month = Feb 28/29).
func AddMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := DaysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999 on t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

func Noon(t time.Time) time.Time {
	return At(t, 12)
}

// At returns hour:00 on t's calendar day.
func At(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
}

// DaysBetween counts calendar-day boundaries from a to b in b's location.
// It is negative when b's day precedes a's.
func DaysBetween(a, b time.Time) int {
	a = a.In(b.Location())
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
