package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/clock"
	"github.com/cmlabs-hris/workforce-engine/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const employeeID = "emp-1"

// Monday 4 March 2024.
func at(day, hour, minute int) time.Time {
	return time.Date(2024, 3, day, hour, minute, 0, 0, time.UTC)
}

func newTestService(t *testing.T) (*AttendanceServiceImpl, *clock.Fixed) {
	t.Helper()
	clk := clock.NewFixed(at(4, 8, 0))
	svc := NewAttendanceService(
		memory.NewTransactor(),
		memory.NewAttendanceRepository(),
		clk,
		attendance.DefaultPolicy(),
	)
	return svc, clk
}

func hours(h float64) decimal.Decimal {
	return decimal.NewFromFloat(h)
}

func checkInAt(t *testing.T, svc *AttendanceServiceImpl, ts time.Time) attendance.Record {
	t.Helper()
	rec, err := svc.CheckIn(context.Background(), attendance.CheckInRequest{EmployeeID: employeeID, At: &ts})
	require.NoError(t, err)
	return rec
}

func checkOutAt(t *testing.T, svc *AttendanceServiceImpl, ts time.Time) attendance.Record {
	t.Helper()
	rec, err := svc.CheckOut(context.Background(), attendance.CheckOutRequest{EmployeeID: employeeID, At: &ts})
	require.NoError(t, err)
	return rec
}

func TestCheckInCheckOut_EightHoursIsPresent(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	rec, err := svc.CheckIn(ctx, attendance.CheckInRequest{EmployeeID: employeeID})
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusPresent, rec.Status)
	assert.True(t, rec.IsOpen())

	_, err = svc.CheckIn(ctx, attendance.CheckInRequest{EmployeeID: employeeID})
	assert.ErrorIs(t, err, attendance.ErrDuplicateCheckIn)
	assert.Equal(t, apperror.KindDuplicateCheckIn, apperror.KindOf(err))

	clk.Advance(8 * time.Hour)
	rec, err = svc.CheckOut(ctx, attendance.CheckOutRequest{EmployeeID: employeeID})
	require.NoError(t, err)

	assert.True(t, rec.TotalHours.Equal(hours(8)), "total hours = %s", rec.TotalHours)
	assert.True(t, rec.OvertimeHours.IsZero())
	assert.Equal(t, attendance.StatusPresent, rec.Status)
	assert.False(t, rec.IsOpen())

	_, err = svc.CheckIn(ctx, attendance.CheckInRequest{EmployeeID: employeeID})
	assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedOut)
}

func TestCheckOut_WithoutCheckIn(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CheckOut(context.Background(), attendance.CheckOutRequest{EmployeeID: employeeID})
	assert.ErrorIs(t, err, attendance.ErrNoOpenCheckIn)
	assert.Equal(t, apperror.KindNoOpenCheckIn, apperror.KindOf(err))
}

func TestCheckOut_BeforeCheckIn(t *testing.T) {
	svc, _ := newTestService(t)
	checkInAt(t, svc, at(4, 10, 0))

	early := at(4, 9, 0)
	_, err := svc.CheckOut(context.Background(), attendance.CheckOutRequest{EmployeeID: employeeID, At: &early})
	assert.ErrorIs(t, err, attendance.ErrTimestampTooEarly)
}

func TestCheckIn_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CheckIn(context.Background(), attendance.CheckInRequest{EmployeeID: "  "})
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestCheckOut_Classification(t *testing.T) {
	cases := []struct {
		name         string
		in, out      time.Time
		wantStatus   attendance.Status
		wantTotal    float64
		wantOvertime float64
	}{
		{"on time full day", at(4, 8, 0), at(4, 16, 0), attendance.StatusPresent, 8, 0},
		{"late arrival", at(4, 9, 30), at(4, 17, 30), attendance.StatusLate, 8, 0},
		{"half day", at(4, 8, 0), at(4, 11, 0), attendance.StatusHalfDay, 3, 0},
		{"half day wins over late", at(4, 10, 0), at(4, 12, 0), attendance.StatusHalfDay, 2, 0},
		{"overtime", at(4, 8, 0), at(4, 18, 30), attendance.StatusOvertime, 10.5, 2.5},
		{"late wins over overtime", at(4, 9, 30), at(4, 19, 30), attendance.StatusLate, 10, 2},
		{"exactly the half day threshold", at(4, 8, 0), at(4, 12, 0), attendance.StatusPresent, 4, 0},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			checkInAt(t, svc, c.in)
			rec := checkOutAt(t, svc, c.out)

			assert.Equal(t, c.wantStatus, rec.Status)
			assert.True(t, rec.TotalHours.Equal(hours(c.wantTotal)), "total hours = %s", rec.TotalHours)
			assert.True(t, rec.OvertimeHours.Equal(hours(c.wantOvertime)), "overtime hours = %s", rec.OvertimeHours)
		})
	}
}

func TestBreak_IsDeducted(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	checkInAt(t, svc, at(4, 8, 0))

	breakStart, breakEnd := at(4, 12, 0), at(4, 13, 0)
	_, err := svc.StartBreak(ctx, attendance.BreakRequest{EmployeeID: employeeID, At: &breakStart})
	require.NoError(t, err)
	_, err = svc.StartBreak(ctx, attendance.BreakRequest{EmployeeID: employeeID, At: &breakStart})
	assert.ErrorIs(t, err, attendance.ErrBreakAlreadyTaken)

	_, err = svc.EndBreak(ctx, attendance.BreakRequest{EmployeeID: employeeID, At: &breakEnd})
	require.NoError(t, err)
	_, err = svc.EndBreak(ctx, attendance.BreakRequest{EmployeeID: employeeID, At: &breakEnd})
	assert.ErrorIs(t, err, attendance.ErrNoOpenBreak)

	rec := checkOutAt(t, svc, at(4, 17, 0))
	assert.True(t, rec.TotalHours.Equal(hours(8)), "total hours = %s", rec.TotalHours)
	assert.Equal(t, attendance.StatusPresent, rec.Status)
}

func TestBreak_OpenAtCheckOutIsClosed(t *testing.T) {
	svc, _ := newTestService(t)
	checkInAt(t, svc, at(4, 8, 0))

	breakStart := at(4, 14, 0)
	_, err := svc.StartBreak(context.Background(), attendance.BreakRequest{EmployeeID: employeeID, At: &breakStart})
	require.NoError(t, err)

	rec := checkOutAt(t, svc, at(4, 16, 0))
	require.NotNil(t, rec.BreakEnd)
	assert.Equal(t, at(4, 16, 0), *rec.BreakEnd)
	assert.True(t, rec.TotalHours.Equal(hours(6)), "total hours = %s", rec.TotalHours)
}

func TestBreak_RequiresCheckIn(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.StartBreak(context.Background(), attendance.BreakRequest{EmployeeID: employeeID})
	assert.ErrorIs(t, err, attendance.ErrNoOpenCheckIn)
}

func TestCheckIn_FinalizesPreviousOpenRecord(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	checkInAt(t, svc, at(4, 8, 0))
	checkInAt(t, svc, at(5, 8, 0))

	mondayFrom, mondayTo := at(4, 0, 0), at(4, 0, 0)
	records, err := svc.List(ctx, attendance.Filter{EmployeeID: ptr(employeeID), From: &mondayFrom, To: &mondayTo})
	require.NoError(t, err)
	require.Len(t, records, 1)

	monday := records[0]
	assert.True(t, monday.Finalized)
	assert.Equal(t, attendance.StatusAbsent, monday.Status)
	assert.True(t, monday.TotalHours.IsZero())

	rec := checkOutAt(t, svc, at(5, 16, 0))
	assert.Equal(t, at(5, 0, 0), rec.Date)
	assert.True(t, rec.TotalHours.Equal(hours(8)))
}

func TestCheckOut_OvernightShift(t *testing.T) {
	svc, _ := newTestService(t)

	checkInAt(t, svc, at(4, 22, 0))
	rec := checkOutAt(t, svc, at(5, 6, 0))

	assert.Equal(t, at(4, 0, 0), rec.Date)
	assert.True(t, rec.TotalHours.Equal(hours(8)))
	assert.Equal(t, attendance.StatusLate, rec.Status)
}

func TestFinalizeStale_OnlyRecordsDatedBeforeCutoff(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	checkInAt(t, svc, at(4, 22, 0))

	// The cutoff day itself is left alone, so the overnight shift can close.
	closed, err := svc.FinalizeStale(ctx, at(4, 23, 59))
	require.NoError(t, err)
	assert.Zero(t, closed)
	rec := checkOutAt(t, svc, at(5, 6, 0))
	assert.False(t, rec.Finalized)

	checkInAt(t, svc, at(5, 8, 0))

	closed, err = svc.FinalizeStale(ctx, at(6, 0, 30))
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	closed, err = svc.FinalizeStale(ctx, at(6, 0, 30))
	require.NoError(t, err)
	assert.Zero(t, closed)

	late := at(6, 1, 0)
	_, err = svc.CheckOut(ctx, attendance.CheckOutRequest{EmployeeID: employeeID, At: &late})
	assert.ErrorIs(t, err, attendance.ErrNoOpenCheckIn)
}

func TestSummarize(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Mon present, Tue late, Wed absent, Thu overtime, Fri absent.
	checkInAt(t, svc, at(4, 8, 0))
	checkOutAt(t, svc, at(4, 16, 0))
	checkInAt(t, svc, at(5, 9, 30))
	checkOutAt(t, svc, at(5, 17, 30))
	checkInAt(t, svc, at(7, 8, 0))
	checkOutAt(t, svc, at(7, 18, 0))

	summary, err := svc.Summarize(ctx, employeeID, at(4, 0, 0), at(10, 0, 0))
	require.NoError(t, err)

	assert.Equal(t, 5, summary.TotalDays)
	assert.Equal(t, 3, summary.PresentDays)
	assert.Equal(t, 2, summary.AbsentDays)
	assert.Equal(t, 1, summary.LateDays)
	assert.True(t, summary.TotalHours.Equal(hours(26)), "total = %s", summary.TotalHours)
	assert.True(t, summary.OvertimeHours.Equal(hours(2)), "overtime = %s", summary.OvertimeHours)
	assert.True(t, summary.AverageHours.Equal(hours(8.67)), "average = %s", summary.AverageHours)
}

func TestSummarize_WeekendWorkAndOpenDays(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Mon and Tue worked, Sat worked, Fri checked in but not out yet.
	checkInAt(t, svc, at(4, 8, 0))
	checkOutAt(t, svc, at(4, 16, 0))
	checkInAt(t, svc, at(5, 8, 0))
	checkOutAt(t, svc, at(5, 18, 0))
	checkInAt(t, svc, at(9, 8, 0))
	checkOutAt(t, svc, at(9, 14, 0))
	checkInAt(t, svc, at(8, 8, 0))

	summary, err := svc.Summarize(ctx, employeeID, at(4, 0, 0), at(10, 0, 0))
	require.NoError(t, err)

	assert.Equal(t, 5, summary.TotalDays)
	assert.Equal(t, 3, summary.PresentDays)
	assert.Equal(t, 2, summary.AbsentDays)
	assert.Equal(t, summary.TotalDays, summary.PresentDays+summary.AbsentDays)
	assert.Equal(t, 1, summary.NonBusinessDays)
	assert.Equal(t, 1, summary.OpenDays)
	assert.True(t, summary.TotalHours.Equal(hours(24)), "total = %s", summary.TotalHours)
	assert.True(t, summary.OvertimeHours.Equal(hours(2)), "overtime = %s", summary.OvertimeHours)
	assert.True(t, summary.AverageHours.Equal(hours(8)), "average = %s", summary.AverageHours)
}

func TestSummarize_NoAttendanceAveragesZero(t *testing.T) {
	svc, _ := newTestService(t)

	summary, err := svc.Summarize(context.Background(), employeeID, at(1, 0, 0), at(31, 0, 0))
	require.NoError(t, err)

	assert.Equal(t, 21, summary.TotalDays)
	assert.Zero(t, summary.PresentDays)
	assert.Equal(t, 21, summary.AbsentDays)
	assert.True(t, summary.AverageHours.IsZero())
}

func TestSummarize_InvertedRange(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Summarize(context.Background(), employeeID, at(10, 0, 0), at(4, 0, 0))
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func ptr[T any](v T) *T {
	return &v
}
