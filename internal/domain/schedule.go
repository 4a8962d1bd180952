package domain

import "time"

// Frequency is the cadence of a recurring invoice.
type Frequency string

const (
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Valid reports whether f is a supported cadence.
func (f Frequency) Valid() bool {
	return f == FrequencyMonthly || f == FrequencyYearly
}

func (f Frequency) months() int {
	if f == FrequencyYearly {
		return 12
	}
	return 1
}

// NextOccurrence returns start advanced by cycles whole cadence units.
//
// Days that do not exist in the target month clamp to its last day, so a
// monthly schedule starting 2024-01-31 yields 2024-02-29, then 2024-03-31.
// Every occurrence is computed from start, never from the previous
// occurrence, so a short month does not drift the schedule. Postgres date
// arithmetic (date + n * interval '1 month') follows the same rule.
func NextOccurrence(start time.Time, f Frequency, cycles int) time.Time {
	return AddMonthsClamped(start, f.months()*cycles)
}

// AddMonthsClamped adds months to t, clamping the day to the end of the
// resulting month instead of overflowing into the next one.
func AddMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
