package billing

import "time"

// Interval is a closed date interval [Start, End] at day granularity.
// All billing math runs over these instead of ad hoc date comparisons:
// both endpoints are inclusive and dates are timezone-naive (normalized
// to UTC midnight before any arithmetic).
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval builds an interval from two dates, normalizing both to UTC
// midnight.
func NewInterval(start, end time.Time) Interval {
	return Interval{Start: DateOnly(start), End: DateOnly(end)}
}

// Valid reports whether the interval spans at least one day.
func (iv Interval) Valid() bool {
	return !iv.End.Before(iv.Start)
}

// Days returns the inclusive day count of the interval. A single-day
// interval counts as 1; an invalid interval counts as 0.
func (iv Interval) Days() int {
	if !iv.Valid() {
		return 0
	}
	return int(iv.End.Sub(iv.Start).Hours()/24) + 1
}

// Intersect returns the overlap of two intervals and whether they overlap
// at all.
func (iv Interval) Intersect(other Interval) (Interval, bool) {
	out := Interval{Start: maxDate(iv.Start, other.Start), End: minDate(iv.End, other.End)}
	if !out.Valid() {
		return Interval{}, false
	}
	return out, true
}

// Contains reports whether the given date falls inside the interval.
func (iv Interval) Contains(t time.Time) bool {
	d := DateOnly(t)
	return !d.Before(iv.Start) && !d.After(iv.End)
}

// DateOnly truncates a timestamp to its calendar date at UTC midnight.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO date as delivered by the data-fetch layer.
// Full timestamps are tolerated and truncated to their date. The boolean
// is false for empty or malformed input; callers treat that as "absent"
// rather than an error.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return DateOnly(t), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOnly(t), true
	}
	return time.Time{}, false
}

func maxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
