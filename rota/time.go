package rota

import (
	"time"
)

// =============================================================================
// DATE - Day-granularity time abstraction (scheduling is per calendar day)
// =============================================================================

type Date struct {
	Time time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar day (UTC).
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.normalize().Before(other.normalize()) }
func (d Date) Equal(other Date) bool         { return d.normalize().Equal(other.normalize()) }
func (d Date) After(other Date) bool         { return d.normalize().After(other.normalize()) }
func (d Date) BeforeOrEqual(other Date) bool { return d.Before(other) || d.Equal(other) }
func (d Date) AfterOrEqual(other Date) bool  { return d.After(other) || d.Equal(other) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

// Properties
func (d Date) Year() int             { return d.Time.Year() }
func (d Date) Month() time.Month     { return d.Time.Month() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Date) IsZero() bool          { return d.Time.IsZero() }

func (d Date) String() string { return d.normalize().Format("2006-01-02") }

// At combines the date with a wall-clock time into a concrete timestamp (UTC).
func (d Date) At(t TimeOfDay) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, 0, 0, time.UTC)
}

// DaysBetween returns to - from in whole days. Negative when to < from.
func DaysBetween(from, to Date) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}

// WeeksBetween returns floor((to - from) / 7 days). Floored (not truncated)
// so that dates before the anchor land in the correct earlier week.
func WeeksBetween(from, to Date) int {
	return floorDiv(DaysBetween(from, to), 7)
}

// floorDiv / floorMod implement floored (not truncated) integer division,
// which keeps cycle positions stable when a date precedes its anchor.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	m := a % b
	if m != 0 && ((a < 0) != (b < 0)) {
		m += b
	}
	return m
}

// =============================================================================
// DATE RANGE - Inclusive [Start, End] span of calendar days
// =============================================================================

type DateRange struct {
	Start Date
	End   Date
}

// Contains returns true if the date is within [Start, End].
func (r DateRange) Contains(d Date) bool {
	return d.AfterOrEqual(r.Start) && d.BeforeOrEqual(r.End)
}

// Days returns every day in the range, in order.
func (r DateRange) Days() []Date {
	var days []Date
	current := r.Start
	for current.BeforeOrEqual(r.End) {
		days = append(days, current)
		current = current.AddDays(1)
	}
	return days
}

// Len returns the number of days in the range.
func (r DateRange) Len() int { return DaysBetween(r.Start, r.End) + 1 }

func (r DateRange) Validate() error {
	if r.End.Before(r.Start) {
		return ErrInvalidRange
	}
	return nil
}

func (r DateRange) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}

// =============================================================================
// CLOCK - Injected so archiving and reconciliation are testable
// =============================================================================

type Clock interface {
	Now() time.Time
	Today() Date
}

// SystemClock reads the real time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
func (SystemClock) Today() Date    { return DateOf(time.Now()) }

// FrozenClock always reports the same instant. For tests.
type FrozenClock struct {
	Current time.Time
}

func (c FrozenClock) Now() time.Time { return c.Current }
func (c FrozenClock) Today() Date    { return DateOf(c.Current) }
