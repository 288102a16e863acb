package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

type payrollRepository struct {
	mu       sync.RWMutex
	records  map[string]payroll.PayrollRecord
	byPeriod map[string]string // employee|year|month -> id
}

func NewPayrollRepository() payroll.PayrollRepository {
	return &payrollRepository{
		records:  make(map[string]payroll.PayrollRecord),
		byPeriod: make(map[string]string),
	}
}

func periodKey(employeeID string, year, month int) string {
	return fmt.Sprintf("%s|%04d|%02d", employeeID, year, month)
}

func cloneItems(items []payroll.LineItem) []payroll.LineItem {
	if items == nil {
		return nil
	}
	out := make([]payroll.LineItem, len(items))
	copy(out, items)
	return out
}

func clonePayroll(r payroll.PayrollRecord) payroll.PayrollRecord {
	r.Allowances = cloneItems(r.Allowances)
	r.Deductions = cloneItems(r.Deductions)
	r.Bonuses = cloneItems(r.Bonuses)
	return r
}

// Create implements payroll.PayrollRepository.
func (r *payrollRepository) Create(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := periodKey(record.EmployeeID, record.PeriodYear, record.PeriodMonth)
	if _, exists := r.byPeriod[key]; exists {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordAlreadyExists
	}

	record = record.Rounded()
	if record.ID == "" {
		record.ID = newID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now()
	}
	record.UpdatedAt = record.CreatedAt

	r.records[record.ID] = clonePayroll(record)
	r.byPeriod[key] = record.ID
	return clonePayroll(record), nil
}

// GetByID implements payroll.PayrollRepository.
func (r *payrollRepository) GetByID(ctx context.Context, id string) (payroll.PayrollRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
	}
	return clonePayroll(rec), nil
}

// GetByEmployeePeriod implements payroll.PayrollRepository.
func (r *payrollRepository) GetByEmployeePeriod(ctx context.Context, employeeID string, year, month int) (payroll.PayrollRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byPeriod[periodKey(employeeID, year, month)]
	if !ok {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
	}
	return clonePayroll(r.records[id]), nil
}

// Recompute implements payroll.PayrollRepository.
func (r *payrollRepository) Recompute(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[record.ID]
	if !ok {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
	}
	if stored.Status.Locked() {
		return payroll.PayrollRecord{}, payroll.ErrImmutableRecord
	}

	record = record.Rounded()
	stored.BaseSalary = record.BaseSalary
	stored.Allowances = cloneItems(record.Allowances)
	stored.Deductions = cloneItems(record.Deductions)
	stored.Bonuses = cloneItems(record.Bonuses)
	stored.OvertimeHours = record.OvertimeHours
	stored.OvertimeRate = record.OvertimeRate
	stored.TotalGross = record.TotalGross
	stored.TotalDeductions = record.TotalDeductions
	stored.NetSalary = record.NetSalary
	stored.Notes = record.Notes
	stored.Status = payroll.PayrollStatusDraft
	stored.UpdatedAt = record.UpdatedAt
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = now()
	}

	r.records[stored.ID] = stored
	return clonePayroll(stored), nil
}

// Transition implements payroll.PayrollRepository.
func (r *payrollRepository) Transition(ctx context.Context, t payroll.Transition) (payroll.PayrollRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[t.ID]
	if !ok {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
	}
	if rec.Status != t.From {
		return payroll.PayrollRecord{}, payroll.ErrInvalidState
	}

	actor, at := t.ActorID, t.At
	switch t.To {
	case payroll.PayrollStatusApproved:
		rec.ApprovedBy, rec.ApprovedAt = &actor, &at
	case payroll.PayrollStatusPaid:
		rec.PaidBy, rec.PaidAt = &actor, &at
	}
	rec.Status = t.To
	rec.UpdatedAt = at

	r.records[rec.ID] = rec
	return clonePayroll(rec), nil
}

// List implements payroll.PayrollRepository.
func (r *payrollRepository) List(ctx context.Context, filter payroll.PayrollFilter) ([]payroll.PayrollRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []payroll.PayrollRecord
	for _, rec := range r.records {
		if filter.EmployeeID != nil && rec.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.PeriodYear != nil && rec.PeriodYear != *filter.PeriodYear {
			continue
		}
		if filter.PeriodMonth != nil && rec.PeriodMonth != *filter.PeriodMonth {
			continue
		}
		if filter.Status != nil && rec.Status != *filter.Status {
			continue
		}
		out = append(out, clonePayroll(rec))
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.PeriodYear != b.PeriodYear {
			return a.PeriodYear < b.PeriodYear
		}
		if a.PeriodMonth != b.PeriodMonth {
			return a.PeriodMonth < b.PeriodMonth
		}
		return a.EmployeeID < b.EmployeeID
	})
	return out, nil
}

// Summarize implements payroll.PayrollRepository.
func (r *payrollRepository) Summarize(ctx context.Context, year, month int) (payroll.PayrollSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summary := payroll.PayrollSummary{
		PeriodYear:      year,
		PeriodMonth:     month,
		TotalGross:      decimal.Zero,
		TotalDeductions: decimal.Zero,
		TotalNet:        decimal.Zero,
	}
	for _, rec := range r.records {
		if rec.PeriodYear != year || rec.PeriodMonth != month {
			continue
		}
		summary.TotalEmployees++
		summary.TotalGross = summary.TotalGross.Add(rec.TotalGross)
		summary.TotalDeductions = summary.TotalDeductions.Add(rec.TotalDeductions)
		summary.TotalNet = summary.TotalNet.Add(rec.NetSalary)
		switch rec.Status {
		case payroll.PayrollStatusDraft:
			summary.DraftCount++
		case payroll.PayrollStatusPending:
			summary.PendingCount++
		case payroll.PayrollStatusApproved:
			summary.ApprovedCount++
		case payroll.PayrollStatusPaid:
			summary.PaidCount++
		}
	}
	return summary, nil
}
