package dateutil

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the canonical wire format for calendar dates.
const DateLayout = "2006-01-02"

var (
	// ErrNonPositiveCount is returned when a working-day count is zero or negative.
	ErrNonPositiveCount = errors.New("working day count must be positive")
	// ErrInvalidRange is returned when a range's start date falls after its end date.
	ErrInvalidRange = errors.New("start date must be before or equal to end date")
)

// HolidaySet is a lookup table of non-working calendar dates keyed by ISO date.
type HolidaySet map[string]struct{}

// NewHolidaySet builds a set from the given dates.
func NewHolidaySet(dates ...time.Time) HolidaySet {
	set := make(HolidaySet, len(dates))
	for _, d := range dates {
		set.Add(d)
	}
	return set
}

// Add registers a date in the set.
func (s HolidaySet) Add(date time.Time) {
	s[FormatDate(date)] = struct{}{}
}

// Contains reports whether the date is in the set.
func (s HolidaySet) Contains(date time.Time) bool {
	if s == nil {
		return false
	}
	_, ok := s[FormatDate(date)]
	return ok
}

// ParseDate parses a strict YYYY-MM-DD string into a UTC midnight time.
// Impossible dates such as 2025-02-30 are rejected.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return t.UTC(), nil
}

// FormatDate renders a time as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// StartOfDay truncates a time to UTC midnight.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsWeekend reports whether the date is a Saturday or Sunday.
func IsWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsWorkingDay reports whether the date is neither a weekend nor a listed holiday.
func IsWorkingDay(date time.Time, holidays HolidaySet) bool {
	return !IsWeekend(date) && !holidays.Contains(date)
}

// NextWorkingDay returns the first working day strictly after the given date.
func NextWorkingDay(date time.Time, holidays HolidaySet) time.Time {
	next := StartOfDay(date)
	for {
		next = next.AddDate(0, 0, 1)
		if IsWorkingDay(next, holidays) {
			return next
		}
	}
}

// AddWorkingDays returns the date reached after counting n working days from
// start. The count is inclusive: when start itself is a working day it counts
// as day one, so AddWorkingDays(d, 1) returns d for any working day d.
func AddWorkingDays(start time.Time, n int, holidays HolidaySet) (time.Time, error) {
	if n <= 0 {
		return time.Time{}, ErrNonPositiveCount
	}

	current := StartOfDay(start)
	counted := 0
	for {
		if IsWorkingDay(current, holidays) {
			counted++
			if counted == n {
				return current, nil
			}
		}
		current = current.AddDate(0, 0, 1)
	}
}

// WorkingDayBreakdown summarizes a counted date range.
type WorkingDayBreakdown struct {
	TotalDays   int `json:"total_days"`
	WorkingDays int `json:"working_days"`
	Weekends    int `json:"weekends"`
	Holidays    int `json:"holidays"`
}

// CountWorkingDays walks the inclusive range [start, end] and classifies each
// day. Weekend days are never double-counted as holidays.
func CountWorkingDays(start, end time.Time, holidays HolidaySet) (WorkingDayBreakdown, error) {
	start = StartOfDay(start)
	end = StartOfDay(end)
	if start.After(end) {
		return WorkingDayBreakdown{}, ErrInvalidRange
	}

	var breakdown WorkingDayBreakdown
	for current := start; !current.After(end); current = current.AddDate(0, 0, 1) {
		breakdown.TotalDays++
		switch {
		case IsWeekend(current):
			breakdown.Weekends++
		case holidays.Contains(current):
			breakdown.Holidays++
		default:
			breakdown.WorkingDays++
		}
	}
	return breakdown, nil
}
