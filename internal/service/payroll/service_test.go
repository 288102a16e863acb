package payroll

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/workforce-engine/internal/domain/identity"
	"github.com/cmlabs-hris/workforce-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/clock"
	"github.com/cmlabs-hris/workforce-engine/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hr = identity.Actor{UserID: "user-hr", EmployeeID: "emp-hr", Role: identity.RoleHR}

type stubAttendance struct {
	overtime decimal.Decimal
	err      error
	calls    int
	start    time.Time
	end      time.Time
}

func (s *stubAttendance) Summarize(ctx context.Context, employeeID string, start, end time.Time) (attendance.Summary, error) {
	s.calls++
	s.start, s.end = start, end
	if s.err != nil {
		return attendance.Summary{}, s.err
	}
	return attendance.Summary{EmployeeID: employeeID, OvertimeHours: s.overtime}, nil
}

type fixture struct {
	svc        *PayrollServiceImpl
	repo       payroll.PayrollRepository
	attendance *stubAttendance
	clock      *clock.Fixed
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo := memory.NewPayrollRepository()
	att := &stubAttendance{overtime: decimal.Zero}
	clk := clock.NewFixed(time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC))
	svc := NewPayrollService(memory.NewTransactor(), repo, att, clk, payroll.Policy{
		DefaultOvertimeRate: decimal.NewFromInt(1500),
	})
	return fixture{svc: svc, repo: repo, attendance: att, clock: clk}
}

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func dp(v int64) *decimal.Decimal {
	x := decimal.NewFromInt(v)
	return &x
}

func sampleRequest(employeeID string) payroll.ComputeRequest {
	return payroll.ComputeRequest{
		EmployeeID:    employeeID,
		PeriodYear:    2024,
		PeriodMonth:   3,
		BaseSalary:    d(500000),
		Allowances:    []payroll.LineItemRequest{{Type: "housing", Amount: d(50000)}},
		Deductions:    []payroll.LineItemRequest{{Type: "tax", Amount: d(30000)}},
		Bonuses:       []payroll.LineItemRequest{},
		OvertimeHours: dp(10),
		OvertimeRate:  dp(2000),
	}
}

func (f fixture) compute(t *testing.T, employeeID string) payroll.PayrollRecord {
	t.Helper()
	rec, err := f.svc.Compute(context.Background(), hr, sampleRequest(employeeID))
	require.NoError(t, err)
	return rec
}

func (f fixture) pending(t *testing.T, employeeID string) payroll.PayrollRecord {
	t.Helper()
	rec := f.compute(t, employeeID)
	rec, err := f.svc.Submit(context.Background(), hr, rec.ID)
	require.NoError(t, err)
	return rec
}

func (f fixture) approved(t *testing.T, employeeID string) payroll.PayrollRecord {
	t.Helper()
	rec := f.pending(t, employeeID)
	rec, err := f.svc.Approve(context.Background(), hr, rec.ID)
	require.NoError(t, err)
	return rec
}

func assertDecimal(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(d(want)), "want %d, got %s", want, got)
}

func TestCompute_Formula(t *testing.T) {
	f := newFixture(t)

	rec := f.compute(t, "emp-1")

	assertDecimal(t, 570000, rec.TotalGross)
	assertDecimal(t, 30000, rec.TotalDeductions)
	assertDecimal(t, 540000, rec.NetSalary)
	assert.Equal(t, payroll.PayrollStatusDraft, rec.Status)
	assert.True(t, rec.Reconciles())
	assert.Zero(t, f.attendance.calls, "explicit overtime must not query attendance")
}

func TestCompute_FractionalOvertimeAdvancesToPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hours := decimal.RequireFromString("1.25")
	rate := decimal.RequireFromString("1000.50")
	req := sampleRequest("emp-1")
	req.Allowances, req.Deductions = nil, nil
	req.OvertimeHours, req.OvertimeRate = &hours, &rate

	rec, err := f.svc.Compute(ctx, hr, req)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("501250.63").Equal(rec.TotalGross), rec.TotalGross.String())

	stored, err := f.repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, stored.Reconciles())

	rec, err = f.svc.Submit(ctx, hr, rec.ID)
	require.NoError(t, err)
	rec, err = f.svc.Approve(ctx, hr, rec.ID)
	require.NoError(t, err)
	rec, err = f.svc.MarkAsPaid(ctx, hr, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PayrollStatusPaid, rec.Status)
}

func TestCompute_OvertimeFromAttendanceAndDefaultRate(t *testing.T) {
	f := newFixture(t)
	f.attendance.overtime = decimal.NewFromFloat(3.5)

	req := sampleRequest("emp-1")
	req.OvertimeHours = nil
	req.OvertimeRate = nil

	rec, err := f.svc.Compute(context.Background(), hr, req)
	require.NoError(t, err)

	assert.Equal(t, 1, f.attendance.calls)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), f.attendance.start)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), f.attendance.end)
	assertDecimal(t, 1500, rec.OvertimeRate)
	// 500000 + 50000 + 3.5 x 1500
	assertDecimal(t, 555250, rec.TotalGross)
}

func TestCompute_AttendanceFailure(t *testing.T) {
	f := newFixture(t)
	f.attendance.err = apperror.Collaborator("failed to list attendance", errors.New("timeout"))

	req := sampleRequest("emp-1")
	req.OvertimeHours = nil

	_, err := f.svc.Compute(context.Background(), hr, req)
	require.Error(t, err)
	assert.True(t, apperror.IsRetryable(err))
}

func TestCompute_NegativeNetIsKept(t *testing.T) {
	f := newFixture(t)

	req := sampleRequest("emp-1")
	req.Deductions = []payroll.LineItemRequest{{Type: "loan", Amount: d(900000)}}

	rec, err := f.svc.Compute(context.Background(), hr, req)
	require.NoError(t, err)
	assertDecimal(t, -330000, rec.NetSalary)
}

func TestCompute_Validation(t *testing.T) {
	f := newFixture(t)

	req := sampleRequest("emp-1")
	req.PeriodMonth = 13
	req.Allowances = []payroll.LineItemRequest{{Type: "", Amount: d(-1)}}

	_, err := f.svc.Compute(context.Background(), hr, req)
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestCompute_RecomputeRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft := f.compute(t, "emp-1")
	req := sampleRequest("emp-1")
	req.BaseSalary = d(600000)
	updated, err := f.svc.Compute(ctx, hr, req)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, updated.ID)
	assertDecimal(t, 670000, updated.TotalGross)

	pending := f.pending(t, "emp-2")
	reset, err := f.svc.Compute(ctx, hr, sampleRequest("emp-2"))
	require.NoError(t, err)
	assert.Equal(t, pending.ID, reset.ID)
	assert.Equal(t, payroll.PayrollStatusDraft, reset.Status)

	f.approved(t, "emp-3")
	_, err = f.svc.Compute(ctx, hr, sampleRequest("emp-3"))
	assert.ErrorIs(t, err, payroll.ErrImmutableRecord)
	assert.Equal(t, apperror.KindImmutableRecord, apperror.KindOf(err))
}

func TestStateMachine_StrictlyForward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.compute(t, "emp-1")

	_, err := f.svc.MarkAsPaid(ctx, hr, rec.ID)
	assert.ErrorIs(t, err, payroll.ErrInvalidState)
	_, err = f.svc.Approve(ctx, hr, rec.ID)
	assert.ErrorIs(t, err, payroll.ErrInvalidState)

	rec, err = f.svc.Submit(ctx, hr, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PayrollStatusPending, rec.Status)

	rec, err = f.svc.Approve(ctx, hr, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PayrollStatusApproved, rec.Status)
	require.NotNil(t, rec.ApprovedBy)
	assert.Nil(t, rec.PaidAt)

	f.clock.Advance(2 * time.Hour)
	rec, err = f.svc.MarkAsPaid(ctx, hr, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PayrollStatusPaid, rec.Status)
	require.NotNil(t, rec.PaidAt)
	assert.Equal(t, f.clock.Now(), *rec.PaidAt)

	_, err = f.svc.MarkAsPaid(ctx, hr, rec.ID)
	assert.ErrorIs(t, err, payroll.ErrInvalidState)

	_, err = f.svc.Submit(ctx, hr, "missing")
	assert.ErrorIs(t, err, payroll.ErrPayrollRecordNotFound)
}

func TestApprovePeriod_OnlyPendingRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alreadyApproved := map[string]payroll.PayrollRecord{}
	for i := 1; i <= 5; i++ {
		f.pending(t, fmt.Sprintf("emp-p%d", i))
	}
	for i := 1; i <= 2; i++ {
		rec := f.approved(t, fmt.Sprintf("emp-a%d", i))
		alreadyApproved[rec.ID] = rec
	}
	draft := f.compute(t, "emp-d1")

	f.clock.Advance(time.Hour)
	result, err := f.svc.ApprovePeriod(ctx, hr, 2024, 3)
	require.NoError(t, err)

	assert.Len(t, result.Transitioned, 5)
	assert.Empty(t, result.Failed)
	for _, rec := range result.Transitioned {
		assert.Equal(t, payroll.PayrollStatusApproved, rec.Status)
		_, wasApproved := alreadyApproved[rec.ID]
		assert.False(t, wasApproved)
	}

	for id, before := range alreadyApproved {
		after, err := f.svc.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, before.ApprovedAt, after.ApprovedAt)
	}

	stillDraft, err := f.svc.Get(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PayrollStatusDraft, stillDraft.Status)

	// running it again is a no-op
	again, err := f.svc.ApprovePeriod(ctx, hr, 2024, 3)
	require.NoError(t, err)
	assert.Empty(t, again.Transitioned)
}

func TestMarkPeriodAsPaid_UniformStampAndPartialFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.approved(t, "emp-1")
	f.approved(t, "emp-2")

	// A record whose totals were tampered with in storage.
	broken, err := f.repo.Create(ctx, payroll.PayrollRecord{
		EmployeeID:      "emp-3",
		PeriodYear:      2024,
		PeriodMonth:     3,
		BaseSalary:      d(100),
		TotalGross:      d(999),
		TotalDeductions: d(0),
		NetSalary:       d(999),
		OvertimeHours:   decimal.Zero,
		OvertimeRate:    decimal.Zero,
		Status:          payroll.PayrollStatusApproved,
	})
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)
	result, err := f.svc.MarkPeriodAsPaid(ctx, hr, 2024, 3)
	require.NoError(t, err)

	require.Len(t, result.Transitioned, 2)
	stamp := f.clock.Now()
	for _, rec := range result.Transitioned {
		require.NotNil(t, rec.PaidAt)
		assert.Equal(t, stamp, *rec.PaidAt)
	}

	require.Len(t, result.Failed, 1)
	assert.Equal(t, broken.ID, result.Failed[0].RecordID)
	assert.ErrorIs(t, result.Failed[0].Err, payroll.ErrReconciliationFailed)

	stored, err := f.svc.Get(ctx, broken.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PayrollStatusApproved, stored.Status)
}

func TestPeriodOperations_InvalidPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ApprovePeriod(ctx, hr, 2024, 13)
	assert.ErrorIs(t, err, payroll.ErrInvalidPeriod)
	_, err = f.svc.MarkPeriodAsPaid(ctx, hr, 2024, 0)
	assert.ErrorIs(t, err, payroll.ErrInvalidPeriod)
	_, err = f.svc.GetSummary(ctx, 2024, 0)
	assert.ErrorIs(t, err, payroll.ErrInvalidPeriod)
	_, err = f.svc.ApprovePeriod(ctx, identity.Actor{}, 2024, 3)
	assert.ErrorIs(t, err, identity.ErrMissingIdentity)
}

func TestGetSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.compute(t, "emp-1")
	f.approved(t, "emp-2")
	req := sampleRequest("emp-3")
	req.BaseSalary = d(800000)
	_, err := f.svc.Compute(ctx, hr, req)
	require.NoError(t, err)

	// another period is excluded
	other := sampleRequest("emp-1")
	other.PeriodMonth = 4
	_, err = f.svc.Compute(ctx, hr, other)
	require.NoError(t, err)

	summary, err := f.svc.GetSummary(ctx, 2024, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalEmployees)
	assertDecimal(t, 570000*2+870000, summary.TotalGross)
	assertDecimal(t, 90000, summary.TotalDeductions)
	assertDecimal(t, 540000*2+840000, summary.TotalNet)
	assertDecimal(t, 640000, summary.AverageSalary)
	assert.Equal(t, 2, summary.DraftCount)
	assert.Equal(t, 1, summary.ApprovedCount)

	empty, err := f.svc.GetSummary(ctx, 2023, 1)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalEmployees)
	assert.True(t, empty.AverageSalary.IsZero())
}
