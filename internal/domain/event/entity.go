package event

import (
	"time"
)

// Type names a domain event.
type Type string

const (
	TypeLeaveApproved              Type = "leave.approved"
	TypeLeaveRejected              Type = "leave.rejected"
	TypePayrollPaid                Type = "payroll.paid"
	TypeAttendanceOvertimeDetected Type = "attendance.overtime_detected"
)

// AllTypes returns all published event types
func AllTypes() []Type {
	return []Type{
		TypeLeaveApproved,
		TypeLeaveRejected,
		TypePayrollPaid,
		TypeAttendanceOvertimeDetected,
	}
}

// Event is emitted after a state change has been committed.
type Event struct {
	ID         string
	Type       Type
	EntityID   string
	EmployeeID string
	ActorID    string
	OccurredAt time.Time
	Data       map[string]interface{}
}
