package workforce

import (
	"context"
	"iter"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/workforce-engine/internal/domain/event"
	"github.com/cmlabs-hris/workforce-engine/internal/domain/identity"
	"github.com/cmlabs-hris/workforce-engine/internal/domain/leave"
	"github.com/cmlabs-hris/workforce-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/calendar"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/clock"
	"github.com/google/uuid"
)

// Service is the single entry point of the engine. It sequences the
// attendance, leave and payroll services and publishes a domain event after
// each mutation that has committed.
type Service struct {
	attendance attendance.AttendanceService
	leave      leave.LeaveService
	payroll    payroll.PayrollService
	events     event.Sink
	clock      clock.Clock
}

func NewService(
	attendanceService attendance.AttendanceService,
	leaveService leave.LeaveService,
	payrollService payroll.PayrollService,
	events event.Sink,
	clk clock.Clock,
) *Service {
	return &Service{
		attendance: attendanceService,
		leave:      leaveService,
		payroll:    payrollService,
		events:     events,
		clock:      clk,
	}
}

// emit never fails the caller: the mutation is already durable.
func (s *Service) emit(ctx context.Context, e event.Event) {
	e.ID = uuid.Must(uuid.NewV7()).String()
	e.OccurredAt = s.clock.Now()

	if err := s.events.Publish(context.WithoutCancel(ctx), e); err != nil {
		slog.Warn("Event delivery incomplete",
			"event_id", e.ID,
			"event_type", string(e.Type),
			"entity_id", e.EntityID,
			"error", err)
	}
}

// ========================================
// ATTENDANCE
// ========================================

func (s *Service) CheckIn(ctx context.Context, actor identity.Actor, req attendance.CheckInRequest) (attendance.Record, error) {
	if err := identity.Require(actor); err != nil {
		return attendance.Record{}, err
	}
	return s.attendance.CheckIn(ctx, req)
}

func (s *Service) CheckOut(ctx context.Context, actor identity.Actor, req attendance.CheckOutRequest) (attendance.Record, error) {
	if err := identity.Require(actor); err != nil {
		return attendance.Record{}, err
	}

	record, err := s.attendance.CheckOut(ctx, req)
	if err != nil {
		return attendance.Record{}, err
	}

	if record.OvertimeHours.IsPositive() {
		s.emit(ctx, event.Event{
			Type:       event.TypeAttendanceOvertimeDetected,
			EntityID:   record.ID,
			EmployeeID: record.EmployeeID,
			ActorID:    actor.UserID,
			Data: map[string]interface{}{
				"date":           record.Date.Format(calendar.DateLayout),
				"total_hours":    record.TotalHours.String(),
				"overtime_hours": record.OvertimeHours.String(),
			},
		})
	}
	return record, nil
}

func (s *Service) StartBreak(ctx context.Context, actor identity.Actor, req attendance.BreakRequest) (attendance.Record, error) {
	if err := identity.Require(actor); err != nil {
		return attendance.Record{}, err
	}
	return s.attendance.StartBreak(ctx, req)
}

func (s *Service) EndBreak(ctx context.Context, actor identity.Actor, req attendance.BreakRequest) (attendance.Record, error) {
	if err := identity.Require(actor); err != nil {
		return attendance.Record{}, err
	}
	return s.attendance.EndBreak(ctx, req)
}

func (s *Service) SummarizeAttendance(ctx context.Context, employeeID string, start, end time.Time) (attendance.Summary, error) {
	return s.attendance.Summarize(ctx, employeeID, start, end)
}

func (s *Service) ListAttendance(ctx context.Context, filter attendance.Filter) ([]attendance.Record, error) {
	return s.attendance.List(ctx, filter)
}

// FinalizeStaleAttendance closes open records dated before the given time.
func (s *Service) FinalizeStaleAttendance(ctx context.Context, before time.Time) (int, error) {
	return s.attendance.FinalizeStale(ctx, before)
}

// ========================================
// LEAVE
// ========================================

func (s *Service) RequestLeave(ctx context.Context, actor identity.Actor, req leave.CreateRequest) (leave.Record, error) {
	return s.leave.Request(ctx, actor, req)
}

func (s *Service) ApproveLeave(ctx context.Context, actor identity.Actor, leaveID string) (leave.Record, error) {
	record, err := s.leave.Approve(ctx, actor, leaveID)
	if err != nil {
		return leave.Record{}, err
	}

	s.emit(ctx, event.Event{
		Type:       event.TypeLeaveApproved,
		EntityID:   record.ID,
		EmployeeID: record.EmployeeID,
		ActorID:    actor.UserID,
		Data: map[string]interface{}{
			"leave_type": string(record.Type),
			"start_date": record.StartDate.Format(calendar.DateLayout),
			"end_date":   record.EndDate.Format(calendar.DateLayout),
			"days":       record.Days,
		},
	})
	return record, nil
}

func (s *Service) RejectLeave(ctx context.Context, actor identity.Actor, leaveID string, reason string) (leave.Record, error) {
	record, err := s.leave.Reject(ctx, actor, leaveID, reason)
	if err != nil {
		return leave.Record{}, err
	}

	data := map[string]interface{}{
		"leave_type": string(record.Type),
	}
	if record.RejectionReason != nil {
		data["reason"] = *record.RejectionReason
	}
	s.emit(ctx, event.Event{
		Type:       event.TypeLeaveRejected,
		EntityID:   record.ID,
		EmployeeID: record.EmployeeID,
		ActorID:    actor.UserID,
		Data:       data,
	})
	return record, nil
}

func (s *Service) CancelLeave(ctx context.Context, actor identity.Actor, leaveID string) (leave.Record, error) {
	return s.leave.Cancel(ctx, actor, leaveID)
}

func (s *Service) GetLeave(ctx context.Context, leaveID string) (leave.Record, error) {
	return s.leave.Get(ctx, leaveID)
}

func (s *Service) ListLeave(ctx context.Context, filter leave.Filter) ([]leave.Record, error) {
	return s.leave.List(ctx, filter)
}

func (s *Service) PendingLeave(ctx context.Context) iter.Seq2[leave.Record, error] {
	return s.leave.ListPending(ctx)
}

func (s *Service) LeaveBalance(ctx context.Context, employeeID string, year int) (leave.Balance, error) {
	return s.leave.GetBalance(ctx, employeeID, year)
}

func (s *Service) SetLeaveEntitlement(ctx context.Context, actor identity.Actor, req leave.SetEntitlementRequest) (leave.Entitlement, error) {
	return s.leave.SetEntitlement(ctx, actor, req)
}

// ========================================
// PAYROLL
// ========================================

func (s *Service) ComputePayroll(ctx context.Context, actor identity.Actor, req payroll.ComputeRequest) (payroll.PayrollRecord, error) {
	return s.payroll.Compute(ctx, actor, req)
}

func (s *Service) SubmitPayroll(ctx context.Context, actor identity.Actor, id string) (payroll.PayrollRecord, error) {
	return s.payroll.Submit(ctx, actor, id)
}

func (s *Service) ApprovePayroll(ctx context.Context, actor identity.Actor, id string) (payroll.PayrollRecord, error) {
	return s.payroll.Approve(ctx, actor, id)
}

func (s *Service) MarkPayrollAsPaid(ctx context.Context, actor identity.Actor, id string) (payroll.PayrollRecord, error) {
	record, err := s.payroll.MarkAsPaid(ctx, actor, id)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}
	s.emitPaid(ctx, actor, record)
	return record, nil
}

func (s *Service) ApprovePayrollPeriod(ctx context.Context, actor identity.Actor, year, month int) (payroll.PeriodResult, error) {
	return s.payroll.ApprovePeriod(ctx, actor, year, month)
}

func (s *Service) MarkPayrollPeriodAsPaid(ctx context.Context, actor identity.Actor, year, month int) (payroll.PeriodResult, error) {
	result, err := s.payroll.MarkPeriodAsPaid(ctx, actor, year, month)
	if err != nil {
		return payroll.PeriodResult{}, err
	}
	for _, record := range result.Transitioned {
		s.emitPaid(ctx, actor, record)
	}
	return result, nil
}

func (s *Service) emitPaid(ctx context.Context, actor identity.Actor, record payroll.PayrollRecord) {
	data := map[string]interface{}{
		"period_year":  record.PeriodYear,
		"period_month": record.PeriodMonth,
		"net_salary":   record.NetSalary.String(),
	}
	if record.PaidAt != nil {
		data["paid_at"] = record.PaidAt.Format(time.RFC3339)
	}
	s.emit(ctx, event.Event{
		Type:       event.TypePayrollPaid,
		EntityID:   record.ID,
		EmployeeID: record.EmployeeID,
		ActorID:    actor.UserID,
		Data:       data,
	})
}

func (s *Service) PayrollSummary(ctx context.Context, year, month int) (payroll.PayrollSummary, error) {
	return s.payroll.GetSummary(ctx, year, month)
}

func (s *Service) GetPayroll(ctx context.Context, id string) (payroll.PayrollRecord, error) {
	return s.payroll.Get(ctx, id)
}

func (s *Service) ListPayroll(ctx context.Context, filter payroll.PayrollFilter) ([]payroll.PayrollRecord, error) {
	return s.payroll.List(ctx, filter)
}
