package entities

import "time"

// Interval is a half-open time window [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewInterval creates a new interval
func NewInterval(start, end time.Time) Interval {
	return Interval{Start: start, End: end}
}

// Valid reports whether the interval is non-empty.
func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

// Overlaps reports whether the two intervals share any instant. The bounds
// are half-open, so an interval ending exactly when another starts does not
// overlap it.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && i.End.After(other.Start)
}

// Contains reports whether t falls inside the interval. The start bound is
// inclusive, the end bound exclusive.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Duration returns the interval's length.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}
