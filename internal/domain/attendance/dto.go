package attendance

import (
	"time"

	"github.com/cmlabs-hris/workforce-engine/internal/pkg/calendar"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========================================
// ATTENDANCE DTOs
// ========================================

type CheckInRequest struct {
	EmployeeID string     `json:"employee_id"`
	At         *time.Time `json:"at,omitempty"` // nil = now
}

func (r *CheckInRequest) Validate() error {
	return validateEmployee(r.EmployeeID)
}

type CheckOutRequest struct {
	EmployeeID string     `json:"employee_id"`
	At         *time.Time `json:"at,omitempty"`
}

func (r *CheckOutRequest) Validate() error {
	return validateEmployee(r.EmployeeID)
}

type BreakRequest struct {
	EmployeeID string     `json:"employee_id"`
	At         *time.Time `json:"at,omitempty"`
}

func (r *BreakRequest) Validate() error {
	return validateEmployee(r.EmployeeID)
}

func validateEmployee(employeeID string) error {
	var errs validator.ValidationErrors
	errs.Required("employee_id", employeeID)
	return errs.Err()
}

type SummaryRequest struct {
	EmployeeID string `json:"employee_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

// Parse validates the request and returns the parsed bounds.
func (r *SummaryRequest) Parse() (time.Time, time.Time, error) {
	var errs validator.ValidationErrors

	errs.Required("employee_id", r.EmployeeID)
	start, end := errs.DateRange("start_date", r.StartDate, "end_date", r.EndDate)

	if err := errs.Err(); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

type RecordResponse struct {
	ID            string          `json:"id"`
	EmployeeID    string          `json:"employee_id"`
	Date          string          `json:"date"`
	CheckIn       *string         `json:"check_in,omitempty"`
	CheckOut      *string         `json:"check_out,omitempty"`
	BreakStart    *string         `json:"break_start,omitempty"`
	BreakEnd      *string         `json:"break_end,omitempty"`
	TotalHours    decimal.Decimal `json:"total_hours"`
	OvertimeHours decimal.Decimal `json:"overtime_hours"`
	Status        string          `json:"status"`
	Finalized     bool            `json:"finalized"`
}

type SummaryResponse struct {
	EmployeeID      string          `json:"employee_id"`
	StartDate       string          `json:"start_date"`
	EndDate         string          `json:"end_date"`
	TotalDays       int             `json:"total_days"`
	PresentDays     int             `json:"present_days"`
	AbsentDays      int             `json:"absent_days"`
	LateDays        int             `json:"late_days"`
	NonBusinessDays int             `json:"non_business_days"`
	OpenDays        int             `json:"open_days"`
	TotalHours      decimal.Decimal `json:"total_hours"`
	OvertimeHours   decimal.Decimal `json:"overtime_hours"`
	AverageHours    decimal.Decimal `json:"average_hours"`
}

func timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func NewRecordResponse(r Record) RecordResponse {
	return RecordResponse{
		ID:            r.ID,
		EmployeeID:    r.EmployeeID,
		Date:          r.Date.Format(calendar.DateLayout),
		CheckIn:       timePtrToString(r.CheckIn),
		CheckOut:      timePtrToString(r.CheckOut),
		BreakStart:    timePtrToString(r.BreakStart),
		BreakEnd:      timePtrToString(r.BreakEnd),
		TotalHours:    r.TotalHours,
		OvertimeHours: r.OvertimeHours,
		Status:        string(r.Status),
		Finalized:     r.Finalized,
	}
}

func NewSummaryResponse(s Summary) SummaryResponse {
	return SummaryResponse{
		EmployeeID:      s.EmployeeID,
		StartDate:       s.StartDate.Format(calendar.DateLayout),
		EndDate:         s.EndDate.Format(calendar.DateLayout),
		TotalDays:       s.TotalDays,
		PresentDays:     s.PresentDays,
		AbsentDays:      s.AbsentDays,
		LateDays:        s.LateDays,
		NonBusinessDays: s.NonBusinessDays,
		OpenDays:        s.OpenDays,
		TotalHours:      s.TotalHours,
		OvertimeHours:   s.OvertimeHours,
		AverageHours:    s.AverageHours,
	}
}
