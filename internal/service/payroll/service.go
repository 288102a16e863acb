package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/workforce-engine/internal/domain/identity"
	"github.com/cmlabs-hris/workforce-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/workforce-engine/internal/domain/tx"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/calendar"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/clock"
	"github.com/shopspring/decimal"
)

// AttendanceSummarizer supplies the overtime worked in a period.
type AttendanceSummarizer interface {
	Summarize(ctx context.Context, employeeID string, start, end time.Time) (attendance.Summary, error)
}

type PayrollServiceImpl struct {
	db         tx.Transactor
	repo       payroll.PayrollRepository
	attendance AttendanceSummarizer
	clock      clock.Clock
	policy     payroll.Policy
}

func NewPayrollService(
	db tx.Transactor,
	repo payroll.PayrollRepository,
	attendance AttendanceSummarizer,
	clk clock.Clock,
	policy payroll.Policy,
) *PayrollServiceImpl {
	return &PayrollServiceImpl{
		db:         db,
		repo:       repo,
		attendance: attendance,
		clock:      clk,
		policy:     policy,
	}
}

// Compute implements payroll.PayrollService.
func (s *PayrollServiceImpl) Compute(ctx context.Context, actor identity.Actor, req payroll.ComputeRequest) (payroll.PayrollRecord, error) {
	if err := identity.Require(actor); err != nil {
		return payroll.PayrollRecord{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.PayrollRecord{}, err
	}

	start, end, err := calendar.PeriodBounds(req.PeriodYear, req.PeriodMonth)
	if err != nil {
		return payroll.PayrollRecord{}, payroll.ErrInvalidPeriod
	}

	overtimeHours := decimal.Zero
	if req.OvertimeHours != nil {
		overtimeHours = *req.OvertimeHours
	} else {
		summary, err := s.attendance.Summarize(ctx, req.EmployeeID, start, end)
		if err != nil {
			return payroll.PayrollRecord{}, fmt.Errorf("failed to get attendance summary: %w", err)
		}
		overtimeHours = summary.OvertimeHours
	}

	overtimeRate := s.policy.DefaultOvertimeRate
	if req.OvertimeRate != nil {
		overtimeRate = *req.OvertimeRate
	}

	now := s.clock.Now()
	record := payroll.PayrollRecord{
		EmployeeID:    req.EmployeeID,
		PeriodYear:    req.PeriodYear,
		PeriodMonth:   req.PeriodMonth,
		BaseSalary:    req.BaseSalary,
		Allowances:    payroll.ToLineItems(req.Allowances),
		Deductions:    payroll.ToLineItems(req.Deductions),
		Bonuses:       payroll.ToLineItems(req.Bonuses),
		OvertimeHours: overtimeHours,
		OvertimeRate:  overtimeRate,
		Status:        payroll.PayrollStatusDraft,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	record.Calculate()

	if record.NetSalary.IsNegative() {
		slog.Warn("Payroll net salary is negative",
			"employee_id", record.EmployeeID,
			"period_year", record.PeriodYear,
			"period_month", record.PeriodMonth,
			"total_gross", record.TotalGross.String(),
			"total_deductions", record.TotalDeductions.String(),
			"net_salary", record.NetSalary.String())
	}

	var saved payroll.PayrollRecord
	err = s.db.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByEmployeePeriod(ctx, req.EmployeeID, req.PeriodYear, req.PeriodMonth)
		switch {
		case errors.Is(err, payroll.ErrPayrollRecordNotFound):
			saved, err = s.repo.Create(ctx, record)
			return err
		case err != nil:
			return apperror.Collaborator("failed to check existing payroll record", err)
		}

		if existing.Status.Locked() {
			return payroll.ErrImmutableRecord
		}
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
		saved, err = s.repo.Recompute(ctx, record)
		return err
	})
	if err != nil {
		return payroll.PayrollRecord{}, err
	}

	return saved, nil
}

// Submit implements payroll.PayrollService.
func (s *PayrollServiceImpl) Submit(ctx context.Context, actor identity.Actor, id string) (payroll.PayrollRecord, error) {
	return s.advance(ctx, actor, id, payroll.PayrollStatusDraft, s.clock.Now())
}

// Approve implements payroll.PayrollService.
func (s *PayrollServiceImpl) Approve(ctx context.Context, actor identity.Actor, id string) (payroll.PayrollRecord, error) {
	return s.advance(ctx, actor, id, payroll.PayrollStatusPending, s.clock.Now())
}

// MarkAsPaid implements payroll.PayrollService.
func (s *PayrollServiceImpl) MarkAsPaid(ctx context.Context, actor identity.Actor, id string) (payroll.PayrollRecord, error) {
	return s.advance(ctx, actor, id, payroll.PayrollStatusApproved, s.clock.Now())
}

// advance moves one record from `from` to the next status.
func (s *PayrollServiceImpl) advance(ctx context.Context, actor identity.Actor, id string, from payroll.PayrollStatus, at time.Time) (payroll.PayrollRecord, error) {
	if err := identity.Require(actor); err != nil {
		return payroll.PayrollRecord{}, err
	}

	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}
	if record.Status != from {
		return payroll.PayrollRecord{}, payroll.ErrInvalidState
	}
	if !record.Reconciles() {
		return payroll.PayrollRecord{}, payroll.ErrReconciliationFailed
	}

	to, _ := from.Next()
	return s.repo.Transition(ctx, payroll.Transition{
		ID:      id,
		From:    from,
		To:      to,
		ActorID: actor.UserID,
		At:      at,
	})
}

// ApprovePeriod implements payroll.PayrollService.
func (s *PayrollServiceImpl) ApprovePeriod(ctx context.Context, actor identity.Actor, year, month int) (payroll.PeriodResult, error) {
	return s.transitionPeriod(ctx, actor, year, month, payroll.PayrollStatusPending)
}

// MarkPeriodAsPaid implements payroll.PayrollService.
func (s *PayrollServiceImpl) MarkPeriodAsPaid(ctx context.Context, actor identity.Actor, year, month int) (payroll.PeriodResult, error) {
	return s.transitionPeriod(ctx, actor, year, month, payroll.PayrollStatusApproved)
}

// transitionPeriod advances every record of the period that is in `from`.
// Each record is its own unit of work; failures are collected, not returned.
func (s *PayrollServiceImpl) transitionPeriod(ctx context.Context, actor identity.Actor, year, month int, from payroll.PayrollStatus) (payroll.PeriodResult, error) {
	if err := identity.Require(actor); err != nil {
		return payroll.PeriodResult{}, err
	}
	if _, _, err := calendar.PeriodBounds(year, month); err != nil {
		return payroll.PeriodResult{}, payroll.ErrInvalidPeriod
	}

	records, err := s.repo.List(ctx, payroll.PayrollFilter{
		PeriodYear:  &year,
		PeriodMonth: &month,
		Status:      &from,
	})
	if err != nil {
		return payroll.PeriodResult{}, apperror.Collaborator("failed to list payroll records", err)
	}

	to, _ := from.Next()
	// One stamp for the whole run.
	at := s.clock.Now()

	result := payroll.PeriodResult{
		PeriodYear:   year,
		PeriodMonth:  month,
		Transitioned: make([]payroll.PayrollRecord, 0, len(records)),
	}

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			result.Failed = append(result.Failed, payroll.Failure{RecordID: record.ID, EmployeeID: record.EmployeeID, Err: err})
			continue
		}

		if !record.Reconciles() {
			s.reportFailure(&result, record, to, payroll.ErrReconciliationFailed)
			continue
		}

		updated, err := s.repo.Transition(ctx, payroll.Transition{
			ID:      record.ID,
			From:    from,
			To:      to,
			ActorID: actor.UserID,
			At:      at,
		})
		if err != nil {
			s.reportFailure(&result, record, to, err)
			continue
		}
		result.Transitioned = append(result.Transitioned, updated)
	}

	slog.Info("Payroll period transition finished",
		"period_year", year,
		"period_month", month,
		"to_status", string(to),
		"transitioned", len(result.Transitioned),
		"failed", len(result.Failed))

	return result, nil
}

func (s *PayrollServiceImpl) reportFailure(result *payroll.PeriodResult, record payroll.PayrollRecord, to payroll.PayrollStatus, err error) {
	slog.Error("Failed to transition payroll record",
		"payroll_id", record.ID,
		"employee_id", record.EmployeeID,
		"to_status", string(to),
		"error", err)
	result.Failed = append(result.Failed, payroll.Failure{
		RecordID:   record.ID,
		EmployeeID: record.EmployeeID,
		Err:        err,
	})
}

// GetSummary implements payroll.PayrollService.
func (s *PayrollServiceImpl) GetSummary(ctx context.Context, year, month int) (payroll.PayrollSummary, error) {
	if _, _, err := calendar.PeriodBounds(year, month); err != nil {
		return payroll.PayrollSummary{}, payroll.ErrInvalidPeriod
	}

	summary, err := s.repo.Summarize(ctx, year, month)
	if err != nil {
		return payroll.PayrollSummary{}, apperror.Collaborator("failed to summarize payroll", err)
	}

	summary.AverageSalary = decimal.Zero
	if summary.TotalEmployees > 0 {
		summary.AverageSalary = summary.TotalNet.Div(decimal.NewFromInt(int64(summary.TotalEmployees))).Round(2)
	}
	return summary, nil
}

// Get implements payroll.PayrollService.
func (s *PayrollServiceImpl) Get(ctx context.Context, id string) (payroll.PayrollRecord, error) {
	return s.repo.GetByID(ctx, id)
}

// List implements payroll.PayrollService.
func (s *PayrollServiceImpl) List(ctx context.Context, filter payroll.PayrollFilter) ([]payroll.PayrollRecord, error) {
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperror.Collaborator("failed to list payroll records", err)
	}
	return records, nil
}
