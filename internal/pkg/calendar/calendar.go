package calendar

import (
	"errors"
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

var (
	ErrInvalidRange  = errors.New("end date is before start date")
	ErrInvalidPeriod = errors.New("invalid period")
)

// WeekendPolicy decides which days are not counted as business days.
type WeekendPolicy struct {
	Weekend  []time.Weekday
	Holidays map[string]bool // keyed by DateLayout
}

// DefaultWeekendPolicy excludes Saturday and Sunday.
func DefaultWeekendPolicy() WeekendPolicy {
	return WeekendPolicy{Weekend: []time.Weekday{time.Saturday, time.Sunday}}
}

// WithHolidays returns a copy of p that also excludes the given dates.
func (p WeekendPolicy) WithHolidays(dates ...time.Time) WeekendPolicy {
	holidays := make(map[string]bool, len(p.Holidays)+len(dates))
	for k, v := range p.Holidays {
		holidays[k] = v
	}
	for _, d := range dates {
		holidays[d.Format(DateLayout)] = true
	}
	p.Holidays = holidays
	return p
}

// IsBusinessDay reports whether d counts under the policy.
func (p WeekendPolicy) IsBusinessDay(d time.Time) bool {
	for _, wd := range p.Weekend {
		if d.Weekday() == wd {
			return false
		}
	}
	return !p.Holidays[d.Format(DateLayout)]
}

// Date truncates t to midnight UTC of its own calendar date.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateOf returns the calendar date of t as observed in loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Date(t.In(loc))
}

// BusinessDaysBetween counts the days in [start, end] that the policy treats as
// business days.
func BusinessDaysBetween(start, end time.Time, policy WeekendPolicy) (int, error) {
	start, end = Date(start), Date(end)
	if end.Before(start) {
		return 0, ErrInvalidRange
	}

	days := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if policy.IsBusinessDay(d) {
			days++
		}
	}
	return days, nil
}

// CalendarDaysBetween counts every day in [start, end].
func CalendarDaysBetween(start, end time.Time) (int, error) {
	start, end = Date(start), Date(end)
	if end.Before(start) {
		return 0, ErrInvalidRange
	}
	return int(end.Sub(start).Hours()/24) + 1, nil
}

// RangesOverlap reports whether the closed intervals [aStart, aEnd] and
// [bStart, bEnd] share at least one instant.
func RangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !bStart.After(aEnd)
}

// PeriodBounds returns the first and last day of the given month.
func PeriodBounds(year, month int) (time.Time, time.Time, error) {
	if month < 1 || month > 12 || year < 1 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %04d-%02d", ErrInvalidPeriod, year, month)
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first, last, nil
}

// CountingRule selects how days in a range are counted.
type CountingRule string

const (
	CountBusinessDays CountingRule = "business_days"
	CountCalendarDays CountingRule = "calendar_days"
)

// Count applies the rule to [start, end].
func (r CountingRule) Count(start, end time.Time, policy WeekendPolicy) (int, error) {
	switch r {
	case CountBusinessDays:
		return BusinessDaysBetween(start, end, policy)
	case CountCalendarDays:
		return CalendarDaysBetween(start, end)
	default:
		return 0, fmt.Errorf("unknown counting rule %q", r)
	}
}
