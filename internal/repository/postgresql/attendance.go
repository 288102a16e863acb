package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/calendar"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

const attendanceColumns = `
	id, employee_id, date, check_in, check_out, break_start, break_end,
	total_hours, overtime_hours, status, finalized, created_at, updated_at`

func scanAttendance(row pgx.Row) (attendance.Record, error) {
	var rec attendance.Record
	err := row.Scan(
		&rec.ID, &rec.EmployeeID, &rec.Date, &rec.CheckIn, &rec.CheckOut, &rec.BreakStart, &rec.BreakEnd,
		&rec.TotalHours, &rec.OvertimeHours, &rec.Status, &rec.Finalized, &rec.CreatedAt, &rec.UpdatedAt,
	)
	return rec, err
}

// Create implements attendance.AttendanceRepository.
func (a *attendanceRepository) Create(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	if record.ID == "" {
		record.ID = uuid.Must(uuid.NewV7()).String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	record.UpdatedAt = record.CreatedAt
	record.Date = calendar.Date(record.Date)

	query := `
		INSERT INTO attendance_records (
			id, employee_id, date, check_in, check_out, break_start, break_end,
			total_hours, overtime_hours, status, finalized, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		) RETURNING ` + attendanceColumns

	created, err := scanAttendance(q.QueryRow(ctx, query,
		record.ID,
		record.EmployeeID,
		record.Date,
		record.CheckIn,
		record.CheckOut,
		record.BreakStart,
		record.BreakEnd,
		record.TotalHours,
		record.OvertimeHours,
		record.Status,
		record.Finalized,
		record.CreatedAt,
		record.UpdatedAt,
	))
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return attendance.Record{}, attendance.ErrRecordAlreadyExist
		}
		return attendance.Record{}, apperror.Collaborator("failed to create attendance", err)
	}

	return created, nil
}

// GetByEmployeeAndDate implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + `
		FROM attendance_records
		WHERE employee_id = $1
		  AND date = $2
		LIMIT 1
	`

	rec, err := scanAttendance(q.QueryRow(ctx, query, employeeID, calendar.Date(date)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Record{}, apperror.Collaborator("failed to get attendance by employee and date", err)
	}

	return rec, nil
}

// Update implements attendance.AttendanceRepository.
func (a *attendanceRepository) Update(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendance_records SET
			check_in = $2,
			check_out = $3,
			break_start = $4,
			break_end = $5,
			total_hours = $6,
			overtime_hours = $7,
			status = $8,
			finalized = $9,
			updated_at = NOW()
		WHERE id = $1
		  AND finalized = FALSE
		RETURNING ` + attendanceColumns

	updated, err := scanAttendance(q.QueryRow(ctx, query,
		record.ID,
		record.CheckIn,
		record.CheckOut,
		record.BreakStart,
		record.BreakEnd,
		record.TotalHours,
		record.OvertimeHours,
		record.Status,
		record.Finalized,
	))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return attendance.Record{}, apperror.Collaborator("failed to update attendance", err)
	}

	// Nothing matched: tell a missing row from a finalized one.
	var finalized bool
	err = q.QueryRow(ctx, `SELECT finalized FROM attendance_records WHERE id = $1`, record.ID).Scan(&finalized)
	if errors.Is(err, pgx.ErrNoRows) {
		return attendance.Record{}, attendance.ErrAttendanceNotFound
	}
	if err != nil {
		return attendance.Record{}, apperror.Collaborator("failed to update attendance", err)
	}
	return attendance.Record{}, attendance.ErrRecordFinalized
}

// List implements attendance.AttendanceRepository.
func (a *attendanceRepository) List(ctx context.Context, filter attendance.Filter) ([]attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	var conditions []string
	var args []interface{}
	argIdx := 1

	if filter.EmployeeID != nil {
		conditions = append(conditions, fmt.Sprintf("employee_id = $%d", argIdx))
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", argIdx))
		args = append(args, calendar.Date(*filter.From))
		argIdx++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", argIdx))
		args = append(args, calendar.Date(*filter.To))
		argIdx++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.OpenOnly {
		conditions = append(conditions, "check_in IS NOT NULL AND check_out IS NULL AND finalized = FALSE")
	}

	query := `SELECT ` + attendanceColumns + ` FROM attendance_records`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date, employee_id"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, apperror.Collaborator("failed to list attendance", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, apperror.Collaborator("failed to scan attendance", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Collaborator("failed to list attendance", err)
	}

	return records, nil
}
