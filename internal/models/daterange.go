package models

import (
	"fmt"
	"time"
)

// DateRange is a half-open time interval [Start, End).
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange returns the interval between start and end, swapping them if reversed.
func NewDateRange(start, end time.Time) DateRange {
	if end.Before(start) {
		start, end = end, start
	}
	return DateRange{Start: start, End: end}
}

// DayRange returns the calendar day containing t in t's location.
func DayRange(t time.Time) DateRange {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return DateRange{Start: start, End: start.AddDate(0, 0, 1)}
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Overlaps reports whether the two ranges share any instant.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Equal compares ranges by instant, ignoring location.
func (r DateRange) Equal(other DateRange) bool {
	return r.Start.Equal(other.Start) && r.End.Equal(other.End)
}

// Duration returns End - Start.
func (r DateRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// IsZero reports whether both bounds are unset.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Key returns a stable comparable representation usable as a map key.
func (r DateRange) Key() string {
	return fmt.Sprintf("%d-%d", r.Start.UnixNano(), r.End.UnixNano())
}

func (r DateRange) String() string {
	return r.Start.Format(time.RFC3339) + "/" + r.End.Format(time.RFC3339)
}
