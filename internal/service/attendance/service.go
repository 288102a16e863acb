package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/workforce-engine/internal/domain/tx"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/calendar"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/clock"
	"github.com/shopspring/decimal"
)

type AttendanceServiceImpl struct {
	db tx.Transactor
	attendance.AttendanceRepository
	clock  clock.Clock
	policy attendance.Policy
}

func NewAttendanceService(
	db tx.Transactor,
	attendanceRepo attendance.AttendanceRepository,
	clk clock.Clock,
	policy attendance.Policy,
) *AttendanceServiceImpl {
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	return &AttendanceServiceImpl{
		db:                   db,
		AttendanceRepository: attendanceRepo,
		clock:                clk,
		policy:               policy,
	}
}

func (a *AttendanceServiceImpl) at(ts *time.Time) time.Time {
	if ts != nil {
		return ts.UTC()
	}
	return a.clock.Now().UTC()
}

// CheckIn implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) CheckIn(ctx context.Context, req attendance.CheckInRequest) (attendance.Record, error) {
	if err := req.Validate(); err != nil {
		return attendance.Record{}, err
	}

	now := a.at(req.At)
	date := calendar.DateOf(now, a.policy.Location)

	var result attendance.Record
	err := a.db.WithinTx(ctx, func(ctx context.Context) error {
		// Checking in on a new day locks every earlier open record.
		if _, err := a.finalizeOpen(ctx, &req.EmployeeID, date); err != nil {
			return err
		}

		existing, err := a.AttendanceRepository.GetByEmployeeAndDate(ctx, req.EmployeeID, date)
		switch {
		case err == nil:
			if existing.IsOpen() {
				return attendance.ErrDuplicateCheckIn
			}
			if existing.CheckIn != nil {
				return attendance.ErrAlreadyCheckedOut
			}
			if existing.Finalized {
				return attendance.ErrRecordFinalized
			}
			existing.CheckIn = &now
			existing.Status = a.arrivalStatus(now)
			result, err = a.AttendanceRepository.Update(ctx, existing)
			return err
		case errors.Is(err, attendance.ErrAttendanceNotFound):
			record := attendance.Record{
				EmployeeID:    req.EmployeeID,
				Date:          date,
				CheckIn:       &now,
				TotalHours:    decimal.Zero,
				OvertimeHours: decimal.Zero,
				Status:        a.arrivalStatus(now),
			}
			result, err = a.AttendanceRepository.Create(ctx, record)
			if errors.Is(err, attendance.ErrRecordAlreadyExist) {
				return attendance.ErrDuplicateCheckIn
			}
			return err
		default:
			return fmt.Errorf("failed to get attendance for %s: %w", date.Format(calendar.DateLayout), err)
		}
	})
	if err != nil {
		return attendance.Record{}, err
	}

	return result, nil
}

// CheckOut implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) CheckOut(ctx context.Context, req attendance.CheckOutRequest) (attendance.Record, error) {
	if err := req.Validate(); err != nil {
		return attendance.Record{}, err
	}

	now := a.at(req.At)

	var result attendance.Record
	err := a.db.WithinTx(ctx, func(ctx context.Context) error {
		record, err := a.openSession(ctx, req.EmployeeID, now)
		if err != nil {
			return err
		}
		if now.Before(*record.CheckIn) {
			return attendance.ErrTimestampTooEarly
		}

		record.CheckOut = &now
		if record.BreakStart != nil && record.BreakEnd == nil {
			record.BreakEnd = &now
		}

		record.TotalHours = a.workedHours(record)
		record.OvertimeHours = decimal.Max(decimal.Zero, record.TotalHours.Sub(a.policy.StandardHours))
		record.Status = a.classify(record)

		result, err = a.AttendanceRepository.Update(ctx, record)
		return err
	})
	if err != nil {
		return attendance.Record{}, err
	}

	return result, nil
}

// StartBreak implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) StartBreak(ctx context.Context, req attendance.BreakRequest) (attendance.Record, error) {
	if err := req.Validate(); err != nil {
		return attendance.Record{}, err
	}

	now := a.at(req.At)

	var result attendance.Record
	err := a.db.WithinTx(ctx, func(ctx context.Context) error {
		record, err := a.openSession(ctx, req.EmployeeID, now)
		if err != nil {
			return err
		}
		if record.BreakStart != nil {
			return attendance.ErrBreakAlreadyTaken
		}
		if now.Before(*record.CheckIn) {
			return attendance.ErrTimestampTooEarly
		}
		record.BreakStart = &now
		result, err = a.AttendanceRepository.Update(ctx, record)
		return err
	})
	if err != nil {
		return attendance.Record{}, err
	}

	return result, nil
}

// EndBreak implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) EndBreak(ctx context.Context, req attendance.BreakRequest) (attendance.Record, error) {
	if err := req.Validate(); err != nil {
		return attendance.Record{}, err
	}

	now := a.at(req.At)

	var result attendance.Record
	err := a.db.WithinTx(ctx, func(ctx context.Context) error {
		record, err := a.openSession(ctx, req.EmployeeID, now)
		if err != nil {
			return err
		}
		if record.BreakStart == nil || record.BreakEnd != nil {
			return attendance.ErrNoOpenBreak
		}
		if now.Before(*record.BreakStart) {
			return attendance.ErrTimestampTooEarly
		}
		record.BreakEnd = &now
		result, err = a.AttendanceRepository.Update(ctx, record)
		return err
	})
	if err != nil {
		return attendance.Record{}, err
	}

	return result, nil
}

// Summarize implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) Summarize(ctx context.Context, employeeID string, start, end time.Time) (attendance.Summary, error) {
	start, end = calendar.Date(start), calendar.Date(end)
	totalDays, err := calendar.BusinessDaysBetween(start, end, a.policy.Calendar)
	if err != nil {
		return attendance.Summary{}, apperror.New(apperror.KindValidation, err.Error())
	}

	records, err := a.AttendanceRepository.List(ctx, attendance.Filter{
		EmployeeID: &employeeID,
		From:       &start,
		To:         &end,
	})
	if err != nil {
		return attendance.Summary{}, fmt.Errorf("failed to list attendance: %w", err)
	}

	summary := attendance.Summary{
		EmployeeID:    employeeID,
		StartDate:     start,
		EndDate:       end,
		TotalDays:     totalDays,
		TotalHours:    decimal.Zero,
		OvertimeHours: decimal.Zero,
		AverageHours:  decimal.Zero,
	}

	attended := make(map[string]bool, len(records))
	closedDays := 0
	for _, r := range records {
		if !r.Attended() {
			continue
		}
		if a.policy.Calendar.IsBusinessDay(r.Date) {
			attended[r.Date.Format(calendar.DateLayout)] = true
			summary.PresentDays++
			if r.Status == attendance.StatusLate {
				summary.LateDays++
			}
		} else {
			summary.NonBusinessDays++
		}
		if r.CheckOut == nil {
			summary.OpenDays++
			continue
		}
		closedDays++
		summary.TotalHours = summary.TotalHours.Add(r.TotalHours)
		summary.OvertimeHours = summary.OvertimeHours.Add(r.OvertimeHours)
	}

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if a.policy.Calendar.IsBusinessDay(d) && !attended[d.Format(calendar.DateLayout)] {
			summary.AbsentDays++
		}
	}

	if closedDays > 0 {
		summary.AverageHours = summary.TotalHours.Div(decimal.NewFromInt(int64(closedDays))).Round(2)
	}

	return summary, nil
}

// FinalizeStale implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) FinalizeStale(ctx context.Context, before time.Time) (int, error) {
	return a.finalizeOpen(ctx, nil, calendar.DateOf(before, a.policy.Location))
}

// List implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) List(ctx context.Context, filter attendance.Filter) ([]attendance.Record, error) {
	return a.AttendanceRepository.List(ctx, filter)
}

// finalizeOpen closes open records dated strictly before date. Each record is
// its own unit: one failure is logged and the rest still get closed.
func (a *AttendanceServiceImpl) finalizeOpen(ctx context.Context, employeeID *string, date time.Time) (int, error) {
	to := date.AddDate(0, 0, -1)
	stale, err := a.AttendanceRepository.List(ctx, attendance.Filter{
		EmployeeID: employeeID,
		To:         &to,
		OpenOnly:   true,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list open attendance: %w", err)
	}

	closed := 0
	for _, record := range stale {
		record.Finalized = true
		record.Status = attendance.StatusAbsent
		record.TotalHours = decimal.Zero
		record.OvertimeHours = decimal.Zero
		if _, err := a.AttendanceRepository.Update(ctx, record); err != nil {
			if errors.Is(err, attendance.ErrRecordFinalized) {
				continue
			}
			if employeeID != nil {
				return closed, err
			}
			slog.Error("Failed to finalize stale attendance",
				"attendance_id", record.ID,
				"employee_id", record.EmployeeID,
				"error", err)
			continue
		}
		closed++
	}

	return closed, nil
}

// openSession returns the open record for today, falling back to yesterday's
// record for shifts that run past midnight.
func (a *AttendanceServiceImpl) openSession(ctx context.Context, employeeID string, now time.Time) (attendance.Record, error) {
	date := calendar.DateOf(now, a.policy.Location)

	for _, d := range []time.Time{date, date.AddDate(0, 0, -1)} {
		record, err := a.AttendanceRepository.GetByEmployeeAndDate(ctx, employeeID, d)
		if err != nil {
			if errors.Is(err, attendance.ErrAttendanceNotFound) {
				continue
			}
			return attendance.Record{}, err
		}
		if record.IsOpen() {
			return record, nil
		}
		if d.Equal(date) {
			// Today exists but is closed; yesterday is locked by today's check-in.
			return attendance.Record{}, attendance.ErrNoOpenCheckIn
		}
	}

	return attendance.Record{}, attendance.ErrNoOpenCheckIn
}

func (a *AttendanceServiceImpl) workedHours(r attendance.Record) decimal.Decimal {
	worked := r.CheckOut.Sub(*r.CheckIn)
	if r.BreakStart != nil && r.BreakEnd != nil && r.BreakEnd.After(*r.BreakStart) {
		worked -= r.BreakEnd.Sub(*r.BreakStart)
	}
	if worked < 0 {
		worked = 0
	}
	return decimal.NewFromFloat(worked.Hours()).Round(2)
}

func (a *AttendanceServiceImpl) isLate(checkIn time.Time) bool {
	local := checkIn.In(a.policy.Location)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, a.policy.Location)
	return local.Sub(midnight) > a.policy.LateAfter
}

func (a *AttendanceServiceImpl) arrivalStatus(checkIn time.Time) attendance.Status {
	if a.isLate(checkIn) {
		return attendance.StatusLate
	}
	return attendance.StatusPresent
}

// classify: half_day, then late, then overtime, then present.
func (a *AttendanceServiceImpl) classify(r attendance.Record) attendance.Status {
	halfDay := a.policy.StandardHours.Mul(a.policy.HalfDayFraction)
	switch {
	case r.TotalHours.LessThan(halfDay):
		return attendance.StatusHalfDay
	case a.isLate(*r.CheckIn):
		return attendance.StatusLate
	case r.TotalHours.GreaterThan(a.policy.StandardHours):
		return attendance.StatusOvertime
	default:
		return attendance.StatusPresent
	}
}
