package domain

import (
	"fmt"
	"time"
)

const DateFormat = "2006-01-02"

// DateRange is an inclusive pair of calendar days. Both endpoints are
// normalized to midnight UTC so comparisons never suffer from stray
// time-of-day components.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewDateRange(start, end time.Time) (DateRange, error) {
	s, e := Midnight(start), Midnight(end)
	if e.Before(s) {
		return DateRange{}, &ValidationError{Field: "range", Reason: "end date is before start date"}
	}
	return DateRange{Start: s, End: e}, nil
}

func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.ParseInLocation(DateFormat, start, time.UTC)
	if err != nil {
		return DateRange{}, &ValidationError{Field: "start", Reason: "expected YYYY-MM-DD"}
	}
	e, err := time.ParseInLocation(DateFormat, end, time.UTC)
	if err != nil {
		return DateRange{}, &ValidationError{Field: "end", Reason: "expected YYYY-MM-DD"}
	}
	return NewDateRange(s, e)
}

// Midnight truncates t to day granularity in UTC.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Overlaps uses inclusive-inclusive semantics: a shared boundary day counts
// as overlap, so a new stay cannot start on another stay's checkout day.
func (r DateRange) Overlaps(other DateRange) bool {
	return !r.End.Before(other.Start) && !r.Start.After(other.End)
}

func (r DateRange) Contains(day time.Time) bool {
	d := Midnight(day)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days is the billable day count: end minus start in whole days. The
// checkout day is not billed, although it still blocks availability.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start) / (24 * time.Hour))
}

func (r DateRange) Equal(other DateRange) bool {
	return r.Start.Equal(other.Start) && r.End.Equal(other.End)
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", r.Start.Format(DateFormat), r.End.Format(DateFormat))
}

// DaysUntil counts whole calendar days between now's day and day.
func DaysUntil(now, day time.Time) int {
	return int(Midnight(day).Sub(Midnight(now)) / (24 * time.Hour))
}
