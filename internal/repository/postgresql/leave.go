package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/leave"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/calendar"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type leaveRepository struct {
	db *database.DB
}

func NewLeaveRepository(db *database.DB) leave.LeaveRepository {
	return &leaveRepository{db: db}
}

const leaveColumns = `
	id, employee_id, type, start_date, end_date, days, status, reason,
	approved_by, approved_at, rejected_by, rejection_reason, cancelled_by, cancelled_at,
	created_at, updated_at`

func scanLeave(row pgx.Row) (leave.Record, error) {
	var rec leave.Record
	err := row.Scan(
		&rec.ID, &rec.EmployeeID, &rec.Type, &rec.StartDate, &rec.EndDate, &rec.Days, &rec.Status, &rec.Reason,
		&rec.ApprovedBy, &rec.ApprovedAt, &rec.RejectedBy, &rec.RejectionReason, &rec.CancelledBy, &rec.CancelledAt,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	return rec, err
}

func collectLeaves(rows pgx.Rows) ([]leave.Record, error) {
	defer rows.Close()

	var records []leave.Record
	for rows.Next() {
		rec, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Create implements leave.LeaveRepository. The ex_leave_overlap exclusion
// constraint rejects overlapping active records even under concurrent inserts.
func (r *leaveRepository) Create(ctx context.Context, record leave.Record) (leave.Record, error) {
	q := GetQuerier(ctx, r.db)

	if record.ID == "" {
		record.ID = uuid.Must(uuid.NewV7()).String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	record.UpdatedAt = record.CreatedAt

	query := `
		INSERT INTO leave_records (
			id, employee_id, type, start_date, end_date, days, status, reason, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + leaveColumns

	created, err := scanLeave(q.QueryRow(ctx, query,
		record.ID,
		record.EmployeeID,
		record.Type,
		calendar.Date(record.StartDate),
		calendar.Date(record.EndDate),
		record.Days,
		record.Status,
		record.Reason,
		record.CreatedAt,
		record.UpdatedAt,
	))
	if err != nil {
		if pgErrorCode(err) == pgExclusionViolation {
			return leave.Record{}, leave.ErrOverlappingLeave
		}
		return leave.Record{}, apperror.Collaborator("failed to create leave request", err)
	}

	return created, nil
}

// GetByID implements leave.LeaveRepository.
func (r *leaveRepository) GetByID(ctx context.Context, id string) (leave.Record, error) {
	q := GetQuerier(ctx, r.db)

	if _, err := uuid.Parse(id); err != nil {
		return leave.Record{}, leave.ErrLeaveNotFound
	}

	rec, err := scanLeave(q.QueryRow(ctx, `SELECT `+leaveColumns+` FROM leave_records WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.Record{}, leave.ErrLeaveNotFound
		}
		return leave.Record{}, apperror.Collaborator("failed to get leave request", err)
	}

	return rec, nil
}

// List implements leave.LeaveRepository.
func (r *leaveRepository) List(ctx context.Context, filter leave.Filter) ([]leave.Record, error) {
	q := GetQuerier(ctx, r.db)

	var conditions []string
	var args []interface{}
	argIdx := 1

	if filter.EmployeeID != nil {
		conditions = append(conditions, fmt.Sprintf("employee_id = $%d", argIdx))
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIdx))
		args = append(args, *filter.Type)
		argIdx++
	}
	if filter.Year != nil {
		conditions = append(conditions, fmt.Sprintf("EXTRACT(YEAR FROM start_date) = $%d", argIdx))
		args = append(args, *filter.Year)
		argIdx++
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("end_date >= $%d", argIdx))
		args = append(args, calendar.Date(*filter.From))
		argIdx++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("start_date <= $%d", argIdx))
		args = append(args, calendar.Date(*filter.To))
		argIdx++
	}

	query := `SELECT ` + leaveColumns + ` FROM leave_records`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, apperror.Collaborator("failed to list leave requests", err)
	}
	records, err := collectLeaves(rows)
	if err != nil {
		return nil, apperror.Collaborator("failed to scan leave requests", err)
	}

	return records, nil
}

// HasOverlap implements leave.LeaveRepository.
func (r *leaveRepository) HasOverlap(ctx context.Context, employeeID string, start, end time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM leave_records
			WHERE employee_id = $1
			  AND status IN ('pending', 'approved')
			  AND start_date <= $3
			  AND end_date >= $2
		)
	`

	var exists bool
	if err := q.QueryRow(ctx, query, employeeID, calendar.Date(start), calendar.Date(end)).Scan(&exists); err != nil {
		return false, apperror.Collaborator("failed to check overlapping leave", err)
	}
	return exists, nil
}

// Transition implements leave.LeaveRepository.
func (r *leaveRepository) Transition(ctx context.Context, t leave.Transition) (leave.Record, error) {
	q := GetQuerier(ctx, r.db)

	args := []interface{}{t.ID, t.From, t.To, t.ActorID, t.At}
	var set string
	switch t.To {
	case leave.StatusApproved:
		set = "approved_by = $4, approved_at = $5"
	case leave.StatusRejected:
		set = "rejected_by = $4, rejection_reason = $6"
		args = append(args, t.Reason)
	case leave.StatusCancelled:
		set = "cancelled_by = $4, cancelled_at = $5"
	default:
		return leave.Record{}, fmt.Errorf("unsupported leave transition to %q", t.To)
	}

	query := `
		UPDATE leave_records SET
			status = $3, ` + set + `, updated_at = $5
		WHERE id = $1
		  AND status = $2
		RETURNING ` + leaveColumns

	updated, err := scanLeave(q.QueryRow(ctx, query, args...))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return leave.Record{}, apperror.Collaborator("failed to update leave status", err)
	}

	// Either the record is gone or another caller moved it first.
	if _, err := r.GetByID(ctx, t.ID); err != nil {
		return leave.Record{}, err
	}
	return leave.Record{}, leave.ErrInvalidState
}

// ListPendingAfter implements leave.LeaveRepository.
func (r *leaveRepository) ListPendingAfter(ctx context.Context, cursor leave.Cursor, limit int) ([]leave.Record, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + leaveColumns + `
		FROM leave_records
		WHERE status = 'pending'
		  AND (created_at, id) > ($1, $2::uuid)
		ORDER BY created_at, id
		LIMIT $3
	`

	after, afterID := cursor.CreatedAt, cursor.ID
	if afterID == "" {
		after, afterID = time.Time{}, uuid.Nil.String()
	}

	rows, err := q.Query(ctx, query, after, afterID, limit)
	if err != nil {
		return nil, apperror.Collaborator("failed to list pending leave requests", err)
	}
	records, err := collectLeaves(rows)
	if err != nil {
		return nil, apperror.Collaborator("failed to scan pending leave requests", err)
	}

	return records, nil
}

// SumApprovedDays implements leave.LeaveRepository.
func (r *leaveRepository) SumApprovedDays(ctx context.Context, employeeID string, year int) (map[leave.Type]int, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT type, COALESCE(SUM(days), 0)
		FROM leave_records
		WHERE employee_id = $1
		  AND status = 'approved'
		  AND EXTRACT(YEAR FROM start_date) = $2
		GROUP BY type
	`

	rows, err := q.Query(ctx, query, employeeID, year)
	if err != nil {
		return nil, apperror.Collaborator("failed to sum approved leave", err)
	}
	defer rows.Close()

	used := make(map[leave.Type]int)
	for rows.Next() {
		var (
			t    leave.Type
			days int
		)
		if err := rows.Scan(&t, &days); err != nil {
			return nil, apperror.Collaborator("failed to scan approved leave", err)
		}
		used[t] = days
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Collaborator("failed to sum approved leave", err)
	}

	return used, nil
}

type entitlementRepository struct {
	db *database.DB
}

func NewEntitlementRepository(db *database.DB) leave.EntitlementRepository {
	return &entitlementRepository{db: db}
}

// Get implements leave.EntitlementRepository.
func (r *entitlementRepository) Get(ctx context.Context, employeeID string, year int) (leave.Entitlement, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT employee_id, year, annual_days, updated_at
		FROM leave_entitlements
		WHERE employee_id = $1 AND year = $2
	`

	var e leave.Entitlement
	err := q.QueryRow(ctx, query, employeeID, year).Scan(&e.EmployeeID, &e.Year, &e.AnnualDays, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.Entitlement{}, leave.ErrEntitlementNotFound
		}
		return leave.Entitlement{}, apperror.Collaborator("failed to get leave entitlement", err)
	}

	return e, nil
}

// Lock implements leave.EntitlementRepository. Must run inside a transaction
// for the row lock to outlive the call.
func (r *entitlementRepository) Lock(ctx context.Context, employeeID string, year int, defaultDays int) (leave.Entitlement, error) {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		INSERT INTO leave_entitlements (employee_id, year, annual_days, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (employee_id, year) DO NOTHING
	`, employeeID, year, defaultDays)
	if err != nil {
		return leave.Entitlement{}, apperror.Collaborator("failed to seed leave entitlement", err)
	}

	var e leave.Entitlement
	err = q.QueryRow(ctx, `
		SELECT employee_id, year, annual_days, updated_at
		FROM leave_entitlements
		WHERE employee_id = $1 AND year = $2
		FOR UPDATE
	`, employeeID, year).Scan(&e.EmployeeID, &e.Year, &e.AnnualDays, &e.UpdatedAt)
	if err != nil {
		return leave.Entitlement{}, apperror.Collaborator("failed to lock leave entitlement", err)
	}

	return e, nil
}

// Upsert implements leave.EntitlementRepository.
func (r *entitlementRepository) Upsert(ctx context.Context, entitlement leave.Entitlement) (leave.Entitlement, error) {
	q := GetQuerier(ctx, r.db)

	if entitlement.UpdatedAt.IsZero() {
		entitlement.UpdatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO leave_entitlements (employee_id, year, annual_days, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (employee_id, year) DO UPDATE SET
			annual_days = EXCLUDED.annual_days,
			updated_at = EXCLUDED.updated_at
		RETURNING employee_id, year, annual_days, updated_at
	`

	var e leave.Entitlement
	err := q.QueryRow(ctx, query,
		entitlement.EmployeeID, entitlement.Year, entitlement.AnnualDays, entitlement.UpdatedAt,
	).Scan(&e.EmployeeID, &e.Year, &e.AnnualDays, &e.UpdatedAt)
	if err != nil {
		return leave.Entitlement{}, apperror.Collaborator("failed to upsert leave entitlement", err)
	}

	return e, nil
}
