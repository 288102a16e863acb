package payroll

import "context"

// PayrollFilter narrows List. Nil fields are ignored.
type PayrollFilter struct {
	EmployeeID  *string
	PeriodYear  *int
	PeriodMonth *int
	Status      *PayrollStatus
}

// PayrollRepository defines data access methods for payroll records.
type PayrollRepository interface {
	// Create inserts a draft. ErrPayrollRecordAlreadyExists when the
	// employee already has a record for the period.
	Create(ctx context.Context, record PayrollRecord) (PayrollRecord, error)
	GetByID(ctx context.Context, id string) (PayrollRecord, error)
	GetByEmployeePeriod(ctx context.Context, employeeID string, year, month int) (PayrollRecord, error)

	// Recompute overwrites the amounts of a draft or pending record and resets
	// it to draft. ErrImmutableRecord when the stored record is approved or paid.
	Recompute(ctx context.Context, record PayrollRecord) (PayrollRecord, error)

	// Transition applies t only while the stored status equals t.From.
	// ErrInvalidState otherwise.
	Transition(ctx context.Context, t Transition) (PayrollRecord, error)

	// List returns records ordered by period, then employee.
	List(ctx context.Context, filter PayrollFilter) ([]PayrollRecord, error)

	// Summarize totals every record of the period. AverageSalary is left to
	// the caller.
	Summarize(ctx context.Context, year, month int) (PayrollSummary, error)
}
