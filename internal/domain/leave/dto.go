package leave

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/workforce-engine/internal/pkg/calendar"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/validator"
)

type CreateRequest struct {
	EmployeeID string `json:"employee_id"`
	Type       Type   `json:"leave_type"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Reason     string `json:"reason"`
}

// Parse validates the request and returns the parsed date range.
func (r *CreateRequest) Parse() (time.Time, time.Time, error) {
	var errs validator.ValidationErrors

	errs.Required("employee_id", r.EmployeeID)
	if !r.Type.Valid() {
		errs.Add("leave_type", "leave_type must be one of annual, sick, maternity, paternity, unpaid, other")
	}
	start, end := errs.DateRange("start_date", r.StartDate, "end_date", r.EndDate)
	if len(r.Reason) > 1000 {
		errs.Add("reason", "reason must not exceed 1000 characters")
	}

	if err := errs.Err(); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

func (r *RejectRequest) Validate() error {
	var errs validator.ValidationErrors
	errs.Required("reason", r.Reason)
	return errs.Err()
}

type SetEntitlementRequest struct {
	EmployeeID string `json:"employee_id"`
	Year       int    `json:"year"`
	AnnualDays int    `json:"annual_days"`
}

func (r *SetEntitlementRequest) Validate() error {
	var errs validator.ValidationErrors

	errs.Required("employee_id", r.EmployeeID)
	if r.Year < 1900 || r.Year > 9999 {
		errs.Add("year", "year is invalid")
	}
	if r.AnnualDays < 0 {
		errs.Add("annual_days", "annual_days must not be negative")
	}

	return errs.Err()
}

// ListRequest carries raw query parameters for List.
type ListRequest struct {
	EmployeeID string
	Status     string
	Type       string
	Year       string
}

func (r ListRequest) ToFilter() (Filter, error) {
	var (
		filter Filter
		errs   validator.ValidationErrors
	)

	if !validator.IsEmpty(r.EmployeeID) {
		employeeID := strings.TrimSpace(r.EmployeeID)
		filter.EmployeeID = &employeeID
	}
	if r.Status != "" {
		status := Status(r.Status)
		switch status {
		case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
			filter.Status = &status
		default:
			errs.Add("status", "status is invalid")
		}
	}
	if r.Type != "" {
		leaveType := Type(r.Type)
		if leaveType.Valid() {
			filter.Type = &leaveType
		} else {
			errs.Add("leave_type", "leave_type is invalid")
		}
	}
	if r.Year != "" {
		if year, ok := errs.Year("year", r.Year); ok {
			filter.Year = &year
		}
	}

	if len(errs) > 0 {
		return Filter{}, errs
	}
	return filter, nil
}

type RecordResponse struct {
	ID              string  `json:"id"`
	EmployeeID      string  `json:"employee_id"`
	Type            string  `json:"leave_type"`
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
	Days            int     `json:"days"`
	Status          string  `json:"status"`
	Reason          string  `json:"reason"`
	ApprovedBy      *string `json:"approved_by,omitempty"`
	ApprovedAt      *string `json:"approved_at,omitempty"`
	RejectedBy      *string `json:"rejected_by,omitempty"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
	CancelledBy     *string `json:"cancelled_by,omitempty"`
	CancelledAt     *string `json:"cancelled_at,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

type AnnualBalanceResponse struct {
	Total     int `json:"total"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

type BalanceResponse struct {
	EmployeeID string                `json:"employee_id"`
	Year       int                   `json:"year"`
	Annual     AnnualBalanceResponse `json:"annual"`
	Used       map[string]int        `json:"used"`
}

type EntitlementResponse struct {
	EmployeeID string `json:"employee_id"`
	Year       int    `json:"year"`
	AnnualDays int    `json:"annual_days"`
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func NewRecordResponse(r Record) RecordResponse {
	return RecordResponse{
		ID:              r.ID,
		EmployeeID:      r.EmployeeID,
		Type:            string(r.Type),
		StartDate:       r.StartDate.Format(calendar.DateLayout),
		EndDate:         r.EndDate.Format(calendar.DateLayout),
		Days:            r.Days,
		Status:          string(r.Status),
		Reason:          r.Reason,
		ApprovedBy:      r.ApprovedBy,
		ApprovedAt:      formatTime(r.ApprovedAt),
		RejectedBy:      r.RejectedBy,
		RejectionReason: r.RejectionReason,
		CancelledBy:     r.CancelledBy,
		CancelledAt:     formatTime(r.CancelledAt),
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}
}

func NewBalanceResponse(b Balance) BalanceResponse {
	used := make(map[string]int, len(b.Used))
	for t, days := range b.Used {
		used[string(t)] = days
	}
	return BalanceResponse{
		EmployeeID: b.EmployeeID,
		Year:       b.Year,
		Annual: AnnualBalanceResponse{
			Total:     b.Annual.Total,
			Used:      b.Annual.Used,
			Remaining: b.Annual.Remaining,
		},
		Used: used,
	}
}

func NewEntitlementResponse(e Entitlement) EntitlementResponse {
	return EntitlementResponse{
		EmployeeID: e.EmployeeID,
		Year:       e.Year,
		AnnualDays: e.AnnualDays,
	}
}
