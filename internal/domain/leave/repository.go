package leave

import (
	"context"
	"time"
)

// Filter narrows List. Nil fields are ignored.
type Filter struct {
	EmployeeID *string
	Status     *Status
	Type       *Type
	// Year matches the year of StartDate.
	Year *int
	// From and To keep records whose range intersects [From, To].
	From *time.Time
	To   *time.Time
}

// Cursor marks the last pending record already returned; the zero value
// starts from the beginning.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// LeaveRepository - interface for leave_records table
type LeaveRepository interface {
	// Create inserts a pending record. ErrOverlappingLeave when the store
	// detects an overlap with an active record of the same employee.
	Create(ctx context.Context, record Record) (Record, error)
	GetByID(ctx context.Context, id string) (Record, error)
	List(ctx context.Context, filter Filter) ([]Record, error)

	// HasOverlap reports whether an active record of the employee intersects
	// [start, end].
	HasOverlap(ctx context.Context, employeeID string, start, end time.Time) (bool, error)

	// Transition applies t only when the stored status equals t.From.
	// ErrLeaveNotFound when the record is absent, ErrInvalidState when the
	// status no longer matches.
	Transition(ctx context.Context, t Transition) (Record, error)

	// ListPendingAfter returns up to limit pending records strictly after
	// cursor, ordered by (CreatedAt, ID).
	ListPendingAfter(ctx context.Context, cursor Cursor, limit int) ([]Record, error)

	// SumApprovedDays totals approved days per type for the year.
	SumApprovedDays(ctx context.Context, employeeID string, year int) (map[Type]int, error)
}

// EntitlementRepository - interface for leave_entitlements table
type EntitlementRepository interface {
	Get(ctx context.Context, employeeID string, year int) (Entitlement, error)

	// Lock makes sure the row exists, seeding it with defaultDays, and holds a
	// row lock on it until the surrounding transaction ends.
	Lock(ctx context.Context, employeeID string, year int, defaultDays int) (Entitlement, error)

	Upsert(ctx context.Context, entitlement Entitlement) (Entitlement, error)
}
