package attendance

import (
	"time"

	"github.com/cmlabs-hris/workforce-engine/internal/pkg/calendar"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPresent  Status = "present"
	StatusAbsent   Status = "absent"
	StatusLate     Status = "late"
	StatusHalfDay  Status = "half_day"
	StatusOvertime Status = "overtime"
)

// Record is the attendance of one employee on one calendar date.
type Record struct {
	ID            string
	EmployeeID    string
	Date          time.Time
	CheckIn       *time.Time
	CheckOut      *time.Time
	BreakStart    *time.Time
	BreakEnd      *time.Time
	TotalHours    decimal.Decimal
	OvertimeHours decimal.Decimal
	Status        Status
	Finalized     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsOpen reports whether the employee is checked in and has not checked out.
func (r Record) IsOpen() bool {
	return r.CheckIn != nil && r.CheckOut == nil && !r.Finalized
}

// Attended reports whether the record counts as a day worked.
func (r Record) Attended() bool {
	return r.CheckIn != nil && r.Status != StatusAbsent
}

// Summary aggregates attendance over a date range. PresentDays and AbsentDays
// partition the TotalDays business days; work on weekends or holidays is
// counted in NonBusinessDays and still adds to the hour totals.
// AverageHours is taken over checked-out days only.
type Summary struct {
	EmployeeID      string
	StartDate       time.Time
	EndDate         time.Time
	TotalDays       int
	PresentDays     int
	AbsentDays      int
	LateDays        int
	NonBusinessDays int
	OpenDays        int
	TotalHours      decimal.Decimal
	OvertimeHours   decimal.Decimal
	AverageHours    decimal.Decimal
}

// Policy holds the classification thresholds.
type Policy struct {
	Location        *time.Location
	LateAfter       time.Duration // offset from local midnight
	StandardHours   decimal.Decimal
	HalfDayFraction decimal.Decimal
	Calendar        calendar.WeekendPolicy
}

// DefaultPolicy: 09:00 start, 8 hour day, half day below 50%.
func DefaultPolicy() Policy {
	return Policy{
		Location:        time.UTC,
		LateAfter:       9 * time.Hour,
		StandardHours:   decimal.NewFromInt(8),
		HalfDayFraction: decimal.NewFromFloat(0.5),
		Calendar:        calendar.DefaultWeekendPolicy(),
	}
}
