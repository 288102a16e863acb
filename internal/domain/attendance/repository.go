package attendance

import (
	"context"
	"time"
)

// Filter narrows List. Every field is optional; nil means "no constraint".
type Filter struct {
	// EmployeeID restricts to one employee.
	EmployeeID *string
	// From and To bound Date inclusively.
	From *time.Time
	To   *time.Time
	// Status restricts to one classification.
	Status *Status
	// OpenOnly keeps records that are checked in, not checked out and not finalized.
	OpenOnly bool
}

// AttendanceRepository defines data access methods for attendance records.
type AttendanceRepository interface {
	// Create inserts a record; ErrRecordAlreadyExist when (employee, date) is taken.
	Create(ctx context.Context, record Record) (Record, error)

	GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (Record, error)

	// Update writes the mutable fields of a record that is not finalized yet.
	// ErrRecordFinalized when the stored record is already finalized.
	Update(ctx context.Context, record Record) (Record, error)

	// List returns records ordered by date, then employee.
	List(ctx context.Context, filter Filter) ([]Record, error)
}
