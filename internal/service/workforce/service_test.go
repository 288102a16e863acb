package workforce

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/workforce-engine/internal/domain/event"
	"github.com/cmlabs-hris/workforce-engine/internal/domain/identity"
	"github.com/cmlabs-hris/workforce-engine/internal/domain/leave"
	"github.com/cmlabs-hris/workforce-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/clock"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/cron"
	"github.com/cmlabs-hris/workforce-engine/internal/repository/memory"
	attendanceService "github.com/cmlabs-hris/workforce-engine/internal/service/attendance"
	leaveService "github.com/cmlabs-hris/workforce-engine/internal/service/leave"
	payrollService "github.com/cmlabs-hris/workforce-engine/internal/service/payroll"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	employee = identity.Actor{UserID: "user-1", EmployeeID: "emp-1", Role: identity.RoleEmployee}
	manager  = identity.Actor{UserID: "user-2", EmployeeID: "emp-2", Role: identity.RoleManager}
	hr       = identity.Actor{UserID: "user-3", EmployeeID: "emp-3", Role: identity.RoleHR}
)

type recordingSink struct {
	mu     sync.Mutex
	events []event.Event
	err    error
}

func (r *recordingSink) Publish(ctx context.Context, e event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingSink) ofType(t event.Type) []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newTestService(t *testing.T) (*Service, *recordingSink, *clock.Fixed) {
	t.Helper()

	clk := clock.NewFixed(time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC))
	db := memory.NewTransactor()

	att := attendanceService.NewAttendanceService(db, memory.NewAttendanceRepository(), clk, attendance.DefaultPolicy())
	lv := leaveService.NewLeaveService(db, memory.NewLeaveRepository(), memory.NewEntitlementRepository(), clk, leave.DefaultPolicy())
	pay := payrollService.NewPayrollService(db, memory.NewPayrollRepository(), att, clk, payroll.Policy{
		DefaultOvertimeRate: decimal.NewFromInt(1500),
	})

	sink := &recordingSink{}
	return NewService(att, lv, pay, sink, clk), sink, clk
}

func computeRequest(employeeID string) payroll.ComputeRequest {
	zero := decimal.Zero
	return payroll.ComputeRequest{
		EmployeeID:    employeeID,
		PeriodYear:    2024,
		PeriodMonth:   3,
		BaseSalary:    decimal.NewFromInt(500000),
		OvertimeHours: &zero,
	}
}

func TestApproveLeave_EmitsOnceAfterCommit(t *testing.T) {
	svc, sink, clk := newTestService(t)
	ctx := context.Background()

	rec, err := svc.RequestLeave(ctx, employee, leave.CreateRequest{
		EmployeeID: "emp-1",
		Type:       leave.TypeAnnual,
		StartDate:  "2024-03-11",
		EndDate:    "2024-03-12",
	})
	require.NoError(t, err)
	assert.Zero(t, sink.count(), "requesting leave publishes nothing")

	approved, err := svc.ApproveLeave(ctx, manager, rec.ID)
	require.NoError(t, err)

	events := sink.ofType(event.TypeLeaveApproved)
	require.Len(t, events, 1)
	e := events[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, approved.ID, e.EntityID)
	assert.Equal(t, "emp-1", e.EmployeeID)
	assert.Equal(t, manager.UserID, e.ActorID)
	assert.Equal(t, clk.Now(), e.OccurredAt)
	assert.Equal(t, 2, e.Data["days"])

	// A failed second approval publishes nothing.
	_, err = svc.ApproveLeave(ctx, manager, rec.ID)
	assert.ErrorIs(t, err, leave.ErrInvalidState)
	assert.Equal(t, 1, sink.count())
}

func TestRejectLeave_EmitsWithReason(t *testing.T) {
	svc, sink, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.RequestLeave(ctx, employee, leave.CreateRequest{
		EmployeeID: "emp-1",
		Type:       leave.TypeSick,
		StartDate:  "2024-03-11",
		EndDate:    "2024-03-11",
	})
	require.NoError(t, err)

	_, err = svc.RejectLeave(ctx, manager, rec.ID, "")
	require.Error(t, err)
	assert.Zero(t, sink.count())

	_, err = svc.RejectLeave(ctx, manager, rec.ID, "coverage")
	require.NoError(t, err)

	events := sink.ofType(event.TypeLeaveRejected)
	require.Len(t, events, 1)
	assert.Equal(t, "coverage", events[0].Data["reason"])
}

func TestSinkFailureDoesNotFailOperation(t *testing.T) {
	svc, sink, _ := newTestService(t)
	sink.err = errors.New("broker unavailable")
	ctx := context.Background()

	rec, err := svc.RequestLeave(ctx, employee, leave.CreateRequest{
		EmployeeID: "emp-1",
		Type:       leave.TypeAnnual,
		StartDate:  "2024-03-11",
		EndDate:    "2024-03-11",
	})
	require.NoError(t, err)

	approved, err := svc.ApproveLeave(ctx, manager, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, approved.Status)
	assert.Equal(t, 1, sink.count())

	balance, err := svc.LeaveBalance(ctx, "emp-1", 2024)
	require.NoError(t, err)
	assert.Equal(t, 1, balance.Annual.Used)
}

func TestCheckOut_OvertimeEvent(t *testing.T) {
	svc, sink, clk := newTestService(t)
	ctx := context.Background()

	_, err := svc.CheckIn(ctx, employee, attendance.CheckInRequest{EmployeeID: "emp-1"})
	require.NoError(t, err)

	clk.Advance(10 * time.Hour)
	rec, err := svc.CheckOut(ctx, employee, attendance.CheckOutRequest{EmployeeID: "emp-1"})
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusOvertime, rec.Status)

	events := sink.ofType(event.TypeAttendanceOvertimeDetected)
	require.Len(t, events, 1)
	assert.Equal(t, rec.ID, events[0].EntityID)
	assert.Equal(t, "2", events[0].Data["overtime_hours"])
}

func TestCheckOut_RegularDayEmitsNothing(t *testing.T) {
	svc, sink, clk := newTestService(t)
	ctx := context.Background()

	_, err := svc.CheckIn(ctx, employee, attendance.CheckInRequest{EmployeeID: "emp-1"})
	require.NoError(t, err)
	clk.Advance(8 * time.Hour)
	_, err = svc.CheckOut(ctx, employee, attendance.CheckOutRequest{EmployeeID: "emp-1"})
	require.NoError(t, err)

	assert.Zero(t, sink.count())
}

func TestAttendance_RequiresActor(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CheckIn(context.Background(), identity.Actor{}, attendance.CheckInRequest{EmployeeID: "emp-1"})
	assert.ErrorIs(t, err, identity.ErrMissingIdentity)
}

func TestMarkPayrollPeriodAsPaid_EmitsPerRecord(t *testing.T) {
	svc, sink, _ := newTestService(t)
	ctx := context.Background()

	for _, id := range []string{"emp-1", "emp-2", "emp-4"} {
		rec, err := svc.ComputePayroll(ctx, hr, computeRequest(id))
		require.NoError(t, err)
		_, err = svc.SubmitPayroll(ctx, hr, rec.ID)
		require.NoError(t, err)
	}
	// emp-5 stays in draft and is never paid
	_, err := svc.ComputePayroll(ctx, hr, computeRequest("emp-5"))
	require.NoError(t, err)

	approved, err := svc.ApprovePayrollPeriod(ctx, manager, 2024, 3)
	require.NoError(t, err)
	require.Len(t, approved.Transitioned, 3)
	assert.Zero(t, sink.count(), "approval publishes nothing")

	paid, err := svc.MarkPayrollPeriodAsPaid(ctx, hr, 2024, 3)
	require.NoError(t, err)
	require.Len(t, paid.Transitioned, 3)

	events := sink.ofType(event.TypePayrollPaid)
	require.Len(t, events, 3)
	seen := map[string]bool{}
	for _, e := range events {
		seen[e.EmployeeID] = true
		assert.Equal(t, "500000", e.Data["net_salary"])
	}
	assert.Equal(t, map[string]bool{"emp-1": true, "emp-2": true, "emp-4": true}, seen)
}

func TestMarkPayrollAsPaid_EmitsOnlyOnSuccess(t *testing.T) {
	svc, sink, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.ComputePayroll(ctx, hr, computeRequest("emp-1"))
	require.NoError(t, err)

	_, err = svc.MarkPayrollAsPaid(ctx, hr, rec.ID)
	assert.ErrorIs(t, err, payroll.ErrInvalidState)
	assert.Zero(t, sink.count())

	_, err = svc.SubmitPayroll(ctx, hr, rec.ID)
	require.NoError(t, err)
	_, err = svc.ApprovePayroll(ctx, manager, rec.ID)
	require.NoError(t, err)
	paid, err := svc.MarkPayrollAsPaid(ctx, hr, rec.ID)
	require.NoError(t, err)

	events := sink.ofType(event.TypePayrollPaid)
	require.Len(t, events, 1)
	assert.Equal(t, paid.ID, events[0].EntityID)
	assert.Equal(t, paid.PaidAt.Format(time.RFC3339), events[0].Data["paid_at"])
}

func TestFinalizeJob_KeepsOvernightShiftOpen(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()
	jobs := cron.NewAttendanceJobs(svc, clk, time.UTC, time.Hour, 24*time.Hour)

	clk.Set(time.Date(2024, 3, 4, 22, 0, 0, 0, time.UTC))
	_, err := svc.CheckIn(ctx, employee, attendance.CheckInRequest{EmployeeID: "emp-1"})
	require.NoError(t, err)
	_, err = svc.CheckIn(ctx, manager, attendance.CheckInRequest{EmployeeID: "emp-2"})
	require.NoError(t, err)

	clk.Set(time.Date(2024, 3, 5, 0, 15, 0, 0, time.UTC))
	require.NoError(t, jobs.FinalizeStaleAttendance(ctx))

	clk.Set(time.Date(2024, 3, 5, 6, 0, 0, 0, time.UTC))
	rec, err := svc.CheckOut(ctx, employee, attendance.CheckOutRequest{EmployeeID: "emp-1"})
	require.NoError(t, err)
	assert.False(t, rec.Finalized)
	assert.True(t, rec.TotalHours.Equal(decimal.NewFromInt(8)), rec.TotalHours.String())

	// emp-2 never checked out; the record goes once the grace has passed.
	clk.Set(time.Date(2024, 3, 6, 0, 15, 0, 0, time.UTC))
	require.NoError(t, jobs.FinalizeStaleAttendance(ctx))

	emp2 := "emp-2"
	records, err := svc.ListAttendance(ctx, attendance.Filter{EmployeeID: &emp2})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Finalized)
	assert.Equal(t, attendance.StatusAbsent, records[0].Status)

	_, err = svc.CheckOut(ctx, manager, attendance.CheckOutRequest{EmployeeID: "emp-2"})
	assert.ErrorIs(t, err, attendance.ErrNoOpenCheckIn)
}
