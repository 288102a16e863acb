package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

// lineItemJSON is the JSONB shape of a line item. Amounts are kept as
// strings so no precision is lost.
type lineItemJSON struct {
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

func encodeItems(items []payroll.LineItem) ([]byte, error) {
	rows := make([]lineItemJSON, 0, len(items))
	for _, item := range items {
		rows = append(rows, lineItemJSON{Type: item.Type, Amount: item.Amount})
	}
	return json.Marshal(rows)
}

func decodeItems(raw []byte) ([]payroll.LineItem, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var rows []lineItemJSON
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	items := make([]payroll.LineItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, payroll.LineItem{Type: row.Type, Amount: row.Amount})
	}
	return items, nil
}

const payrollColumns = `
	id, employee_id, period_year, period_month, base_salary,
	allowances, deductions, bonuses, overtime_hours, overtime_rate,
	total_gross, total_deductions, net_salary, status,
	approved_by, approved_at, paid_by, paid_at, notes, created_at, updated_at`

func scanPayroll(row pgx.Row) (payroll.PayrollRecord, error) {
	var rec payroll.PayrollRecord
	var allowances, deductions, bonuses []byte
	err := row.Scan(
		&rec.ID, &rec.EmployeeID, &rec.PeriodYear, &rec.PeriodMonth, &rec.BaseSalary,
		&allowances, &deductions, &bonuses, &rec.OvertimeHours, &rec.OvertimeRate,
		&rec.TotalGross, &rec.TotalDeductions, &rec.NetSalary, &rec.Status,
		&rec.ApprovedBy, &rec.ApprovedAt, &rec.PaidBy, &rec.PaidAt, &rec.Notes, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}

	if rec.Allowances, err = decodeItems(allowances); err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to decode allowances: %w", err)
	}
	if rec.Deductions, err = decodeItems(deductions); err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to decode deductions: %w", err)
	}
	if rec.Bonuses, err = decodeItems(bonuses); err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to decode bonuses: %w", err)
	}
	return rec, nil
}

func encodeAllItems(record payroll.PayrollRecord) (allowances, deductions, bonuses []byte, err error) {
	if allowances, err = encodeItems(record.Allowances); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal allowances: %w", err)
	}
	if deductions, err = encodeItems(record.Deductions); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal deductions: %w", err)
	}
	if bonuses, err = encodeItems(record.Bonuses); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal bonuses: %w", err)
	}
	return allowances, deductions, bonuses, nil
}

// Create implements payroll.PayrollRepository.
func (r *payrollRepository) Create(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	if record.ID == "" {
		record.ID = uuid.Must(uuid.NewV7()).String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	record.UpdatedAt = record.CreatedAt

	allowances, deductions, bonuses, err := encodeAllItems(record)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}

	query := `
		INSERT INTO payroll_records (
			id, employee_id, period_year, period_month, base_salary,
			allowances, deductions, bonuses, overtime_hours, overtime_rate,
			total_gross, total_deductions, net_salary, status,
			approved_by, approved_at, paid_by, paid_at, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING ` + payrollColumns

	created, err := scanPayroll(q.QueryRow(ctx, query,
		record.ID, record.EmployeeID, record.PeriodYear, record.PeriodMonth, record.BaseSalary,
		allowances, deductions, bonuses, record.OvertimeHours, record.OvertimeRate,
		record.TotalGross, record.TotalDeductions, record.NetSalary, record.Status,
		record.ApprovedBy, record.ApprovedAt, record.PaidBy, record.PaidAt, record.Notes, record.CreatedAt, record.UpdatedAt,
	))
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordAlreadyExists
		}
		return payroll.PayrollRecord{}, apperror.Collaborator("failed to create payroll record", err)
	}

	return created, nil
}

// GetByID implements payroll.PayrollRepository.
func (r *payrollRepository) GetByID(ctx context.Context, id string) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	if _, err := uuid.Parse(id); err != nil {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
	}

	rec, err := scanPayroll(q.QueryRow(ctx, `SELECT `+payrollColumns+` FROM payroll_records WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
		}
		return payroll.PayrollRecord{}, apperror.Collaborator("failed to get payroll record", err)
	}

	return rec, nil
}

// GetByEmployeePeriod implements payroll.PayrollRepository.
func (r *payrollRepository) GetByEmployeePeriod(ctx context.Context, employeeID string, year, month int) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payrollColumns + `
		FROM payroll_records
		WHERE employee_id = $1 AND period_year = $2 AND period_month = $3
	`

	rec, err := scanPayroll(q.QueryRow(ctx, query, employeeID, year, month))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
		}
		return payroll.PayrollRecord{}, apperror.Collaborator("failed to get payroll record by period", err)
	}

	return rec, nil
}

// Recompute implements payroll.PayrollRepository.
func (r *payrollRepository) Recompute(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	allowances, deductions, bonuses, err := encodeAllItems(record)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}

	query := `
		UPDATE payroll_records SET
			base_salary = $2,
			allowances = $3,
			deductions = $4,
			bonuses = $5,
			overtime_hours = $6,
			overtime_rate = $7,
			total_gross = $8,
			total_deductions = $9,
			net_salary = $10,
			notes = $11,
			status = 'draft',
			updated_at = $12
		WHERE id = $1
		  AND status IN ('draft', 'pending')
		RETURNING ` + payrollColumns

	updated, err := scanPayroll(q.QueryRow(ctx, query,
		record.ID, record.BaseSalary, allowances, deductions, bonuses,
		record.OvertimeHours, record.OvertimeRate,
		record.TotalGross, record.TotalDeductions, record.NetSalary,
		record.Notes, record.UpdatedAt,
	))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return payroll.PayrollRecord{}, apperror.Collaborator("failed to recompute payroll record", err)
	}

	if _, err := r.GetByID(ctx, record.ID); err != nil {
		return payroll.PayrollRecord{}, err
	}
	return payroll.PayrollRecord{}, payroll.ErrImmutableRecord
}

// Transition implements payroll.PayrollRepository.
func (r *payrollRepository) Transition(ctx context.Context, t payroll.Transition) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	args := []interface{}{t.ID, t.From, t.To, t.At}
	set := ""
	switch t.To {
	case payroll.PayrollStatusPending:
	case payroll.PayrollStatusApproved:
		set = ", approved_by = $5, approved_at = $4"
		args = append(args, t.ActorID)
	case payroll.PayrollStatusPaid:
		set = ", paid_by = $5, paid_at = $4"
		args = append(args, t.ActorID)
	default:
		return payroll.PayrollRecord{}, fmt.Errorf("unsupported payroll transition to %q", t.To)
	}

	query := `
		UPDATE payroll_records SET
			status = $3, updated_at = $4` + set + `
		WHERE id = $1
		  AND status = $2
		RETURNING ` + payrollColumns

	updated, err := scanPayroll(q.QueryRow(ctx, query, args...))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return payroll.PayrollRecord{}, apperror.Collaborator("failed to update payroll status", err)
	}

	if _, err := r.GetByID(ctx, t.ID); err != nil {
		return payroll.PayrollRecord{}, err
	}
	return payroll.PayrollRecord{}, payroll.ErrInvalidState
}

// List implements payroll.PayrollRepository.
func (r *payrollRepository) List(ctx context.Context, filter payroll.PayrollFilter) ([]payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	var conditions []string
	var args []interface{}
	argIdx := 1

	if filter.EmployeeID != nil {
		conditions = append(conditions, fmt.Sprintf("employee_id = $%d", argIdx))
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.PeriodYear != nil {
		conditions = append(conditions, fmt.Sprintf("period_year = $%d", argIdx))
		args = append(args, *filter.PeriodYear)
		argIdx++
	}
	if filter.PeriodMonth != nil {
		conditions = append(conditions, fmt.Sprintf("period_month = $%d", argIdx))
		args = append(args, *filter.PeriodMonth)
		argIdx++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *filter.Status)
		argIdx++
	}

	query := `SELECT ` + payrollColumns + ` FROM payroll_records`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY period_year, period_month, employee_id"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, apperror.Collaborator("failed to list payroll records", err)
	}
	defer rows.Close()

	var records []payroll.PayrollRecord
	for rows.Next() {
		rec, err := scanPayroll(rows)
		if err != nil {
			return nil, apperror.Collaborator("failed to scan payroll record", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Collaborator("failed to list payroll records", err)
	}

	return records, nil
}

// Summarize implements payroll.PayrollRepository.
func (r *payrollRepository) Summarize(ctx context.Context, year, month int) (payroll.PayrollSummary, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(total_gross), 0),
			COALESCE(SUM(total_deductions), 0),
			COALESCE(SUM(net_salary), 0),
			COUNT(*) FILTER (WHERE status = 'draft'),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COUNT(*) FILTER (WHERE status = 'paid')
		FROM payroll_records
		WHERE period_year = $1 AND period_month = $2
	`

	summary := payroll.PayrollSummary{PeriodYear: year, PeriodMonth: month}
	err := q.QueryRow(ctx, query, year, month).Scan(
		&summary.TotalEmployees,
		&summary.TotalGross,
		&summary.TotalDeductions,
		&summary.TotalNet,
		&summary.DraftCount,
		&summary.PendingCount,
		&summary.ApprovedCount,
		&summary.PaidCount,
	)
	if err != nil {
		return payroll.PayrollSummary{}, apperror.Collaborator("failed to summarize payroll", err)
	}

	return summary, nil
}
