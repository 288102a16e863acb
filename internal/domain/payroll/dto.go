package payroll

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cmlabs-hris/workforce-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== PAYROLL RECORD DTOs ==========

type LineItemRequest struct {
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

type ComputeRequest struct {
	EmployeeID  string            `json:"employee_id"`
	PeriodYear  int               `json:"period_year"`
	PeriodMonth int               `json:"period_month"`
	BaseSalary  decimal.Decimal   `json:"base_salary"`
	Allowances  []LineItemRequest `json:"allowances,omitempty"`
	Deductions  []LineItemRequest `json:"deductions,omitempty"`
	Bonuses     []LineItemRequest `json:"bonuses,omitempty"`
	// OvertimeHours is taken from the attendance summary when nil.
	OvertimeHours *decimal.Decimal `json:"overtime_hours,omitempty"`
	// OvertimeRate falls back to the configured default when nil.
	OvertimeRate *decimal.Decimal `json:"overtime_rate,omitempty"`
	Notes        *string          `json:"notes,omitempty"`
}

func (r *ComputeRequest) Validate() error {
	var errs validator.ValidationErrors

	errs.Required("employee_id", r.EmployeeID)
	if r.PeriodMonth < 1 || r.PeriodMonth > 12 {
		errs.Add("period_month", "must be between 1 and 12")
	}
	if r.PeriodYear < 1900 || r.PeriodYear > 9999 {
		errs.Add("period_year", "is invalid")
	}
	if r.BaseSalary.IsNegative() {
		errs.Add("base_salary", "must be non-negative")
	}
	errs = append(errs, validateItems("allowances", r.Allowances)...)
	errs = append(errs, validateItems("deductions", r.Deductions)...)
	errs = append(errs, validateItems("bonuses", r.Bonuses)...)
	if r.OvertimeHours != nil && r.OvertimeHours.IsNegative() {
		errs.Add("overtime_hours", "must be non-negative")
	}
	if r.OvertimeRate != nil && r.OvertimeRate.IsNegative() {
		errs.Add("overtime_rate", "must be non-negative")
	}

	return errs.Err()
}

func validateItems(field string, items []LineItemRequest) validator.ValidationErrors {
	var errs validator.ValidationErrors
	for i, item := range items {
		if validator.IsEmpty(item.Type) {
			errs.Add(fmt.Sprintf("%s[%d].type", field, i), "is required")
		}
		if item.Amount.IsNegative() {
			errs.Add(fmt.Sprintf("%s[%d].amount", field, i), "must be non-negative")
		}
	}
	return errs
}

// ToLineItems keeps the request order.
func ToLineItems(items []LineItemRequest) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, item := range items {
		out = append(out, LineItem{Type: item.Type, Amount: item.Amount})
	}
	return out
}

// ListRequest carries raw query parameters for List.
type ListRequest struct {
	EmployeeID  string
	PeriodYear  string
	PeriodMonth string
	Status      string
}

func (r ListRequest) ToFilter() (PayrollFilter, error) {
	var (
		filter PayrollFilter
		errs   validator.ValidationErrors
	)

	if !validator.IsEmpty(r.EmployeeID) {
		filter.EmployeeID = &r.EmployeeID
	}
	if r.PeriodYear != "" {
		year, err := strconv.Atoi(r.PeriodYear)
		if err != nil {
			errs.Add("period_year", "must be a number")
		} else {
			filter.PeriodYear = &year
		}
	}
	if r.PeriodMonth != "" {
		month, err := strconv.Atoi(r.PeriodMonth)
		if err != nil || month < 1 || month > 12 {
			errs.Add("period_month", "must be between 1 and 12")
		} else {
			filter.PeriodMonth = &month
		}
	}
	if r.Status != "" {
		status := PayrollStatus(r.Status)
		switch status {
		case PayrollStatusDraft, PayrollStatusPending, PayrollStatusApproved, PayrollStatusPaid:
			filter.Status = &status
		default:
			errs.Add("status", "is invalid")
		}
	}

	if len(errs) > 0 {
		return PayrollFilter{}, errs
	}
	return filter, nil
}

type LineItemResponse struct {
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

type PayrollRecordResponse struct {
	ID              string             `json:"id"`
	EmployeeID      string             `json:"employee_id"`
	PeriodMonth     int                `json:"period_month"`
	PeriodYear      int                `json:"period_year"`
	BaseSalary      decimal.Decimal    `json:"base_salary"`
	Allowances      []LineItemResponse `json:"allowances"`
	Deductions      []LineItemResponse `json:"deductions"`
	Bonuses         []LineItemResponse `json:"bonuses"`
	OvertimeHours   decimal.Decimal    `json:"overtime_hours"`
	OvertimeRate    decimal.Decimal    `json:"overtime_rate"`
	OvertimeAmount  decimal.Decimal    `json:"overtime_amount"`
	GrossSalary     decimal.Decimal    `json:"gross_salary"`
	TotalDeductions decimal.Decimal    `json:"total_deductions"`
	NetSalary       decimal.Decimal    `json:"net_salary"`
	Status          string             `json:"status"`
	ApprovedBy      *string            `json:"approved_by,omitempty"`
	ApprovedAt      *string            `json:"approved_at,omitempty"`
	PaidAt          *string            `json:"paid_at,omitempty"`
	Notes           *string            `json:"notes,omitempty"`
}

type PeriodFailureResponse struct {
	RecordID   string `json:"record_id"`
	EmployeeID string `json:"employee_id"`
	Error      string `json:"error"`
}

type PeriodResultResponse struct {
	PeriodMonth  int                     `json:"period_month"`
	PeriodYear   int                     `json:"period_year"`
	Transitioned []PayrollRecordResponse `json:"transitioned"`
	Failed       []PeriodFailureResponse `json:"failed"`
}

type PayrollSummaryResponse struct {
	PeriodMonth      int             `json:"period_month"`
	PeriodYear       int             `json:"period_year"`
	TotalEmployees   int             `json:"total_employees"`
	TotalGrossSalary decimal.Decimal `json:"total_gross_salary"`
	TotalDeductions  decimal.Decimal `json:"total_deductions"`
	TotalNetSalary   decimal.Decimal `json:"total_net_salary"`
	AverageSalary    decimal.Decimal `json:"average_salary"`
	DraftCount       int             `json:"draft_count"`
	PendingCount     int             `json:"pending_count"`
	ApprovedCount    int             `json:"approved_count"`
	PaidCount        int             `json:"paid_count"`
}

func toLineItemResponses(items []LineItem) []LineItemResponse {
	out := make([]LineItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, LineItemResponse{Type: item.Type, Amount: item.Amount})
	}
	return out
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func NewPayrollRecordResponse(r PayrollRecord) PayrollRecordResponse {
	return PayrollRecordResponse{
		ID:              r.ID,
		EmployeeID:      r.EmployeeID,
		PeriodMonth:     r.PeriodMonth,
		PeriodYear:      r.PeriodYear,
		BaseSalary:      r.BaseSalary,
		Allowances:      toLineItemResponses(r.Allowances),
		Deductions:      toLineItemResponses(r.Deductions),
		Bonuses:         toLineItemResponses(r.Bonuses),
		OvertimeHours:   r.OvertimeHours,
		OvertimeRate:    r.OvertimeRate,
		OvertimeAmount:  r.OvertimeAmount(),
		GrossSalary:     r.TotalGross,
		TotalDeductions: r.TotalDeductions,
		NetSalary:       r.NetSalary,
		Status:          string(r.Status),
		ApprovedBy:      r.ApprovedBy,
		ApprovedAt:      formatTime(r.ApprovedAt),
		PaidAt:          formatTime(r.PaidAt),
		Notes:           r.Notes,
	}
}

func NewPeriodResultResponse(res PeriodResult) PeriodResultResponse {
	resp := PeriodResultResponse{
		PeriodMonth:  res.PeriodMonth,
		PeriodYear:   res.PeriodYear,
		Transitioned: make([]PayrollRecordResponse, 0, len(res.Transitioned)),
		Failed:       make([]PeriodFailureResponse, 0, len(res.Failed)),
	}
	for _, r := range res.Transitioned {
		resp.Transitioned = append(resp.Transitioned, NewPayrollRecordResponse(r))
	}
	for _, f := range res.Failed {
		resp.Failed = append(resp.Failed, PeriodFailureResponse{
			RecordID:   f.RecordID,
			EmployeeID: f.EmployeeID,
			Error:      f.Err.Error(),
		})
	}
	return resp
}

func NewPayrollSummaryResponse(s PayrollSummary) PayrollSummaryResponse {
	return PayrollSummaryResponse{
		PeriodMonth:      s.PeriodMonth,
		PeriodYear:       s.PeriodYear,
		TotalEmployees:   s.TotalEmployees,
		TotalGrossSalary: s.TotalGross,
		TotalDeductions:  s.TotalDeductions,
		TotalNetSalary:   s.TotalNet,
		AverageSalary:    s.AverageSalary,
		DraftCount:       s.DraftCount,
		PendingCount:     s.PendingCount,
		ApprovedCount:    s.ApprovedCount,
		PaidCount:        s.PaidCount,
	}
}
