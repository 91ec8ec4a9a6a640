package entities

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time of day expressed as minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses a "15:04" style clock string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// TimeOfDayOf extracts the wall-clock time of day from an instant.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// String renders the time of day as "15:04".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// At projects the time of day onto the calendar date of d, in d's location.
func (t TimeOfDay) At(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), int(t)/60, int(t)%60, 0, 0, d.Location())
}

// TimeOfDayRange is a wall-clock window within a single day.
type TimeOfDayRange struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Valid reports whether the range has positive length.
func (r TimeOfDayRange) Valid() bool {
	return r.End > r.Start
}

// Overlaps reports whether two ranges share wall-clock time. Same strict
// boundary rule as Interval.Overlaps: touching ranges do not overlap.
func (r TimeOfDayRange) Overlaps(other TimeOfDayRange) bool {
	return r.Start < other.End && r.End > other.Start
}

// ContainsInclusive reports whether t falls inside the range, counting both
// bounds. Availability membership is inclusive on purpose: a doctor whose
// window ends at 12:00 is still reachable at 12:00 sharp.
func (r TimeOfDayRange) ContainsInclusive(t TimeOfDay) bool {
	return t >= r.Start && t <= r.End
}

// AvailabilitySlot is one recurring weekly availability window owned by a
// doctor. A slot with SpecificDate set applies only on that literal date;
// without it the slot recurs every matching weekday indefinitely.
type AvailabilitySlot struct {
	ID           string       `json:"id" db:"id"`
	DoctorID     string       `json:"doctor_id" db:"doctor_id"`
	DayOfWeek    time.Weekday `json:"day_of_week" db:"day_of_week"`
	StartTime    TimeOfDay    `json:"start_time" db:"start_minute"`
	EndTime      TimeOfDay    `json:"end_time" db:"end_minute"`
	SpecificDate *time.Time   `json:"specific_date,omitempty" db:"specific_date"`
	IsActive     bool         `json:"is_active" db:"is_active"`
	Notes        string       `json:"notes" db:"notes"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// Range returns the slot's wall-clock window.
func (s *AvailabilitySlot) Range() TimeOfDayRange {
	return TimeOfDayRange{Start: s.StartTime, End: s.EndTime}
}

// AppliesOn reports whether the slot covers the given calendar date.
func (s *AvailabilitySlot) AppliesOn(date time.Time) bool {
	if s.SpecificDate != nil {
		return sameDate(*s.SpecificDate, date)
	}
	return s.DayOfWeek == date.Weekday()
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
