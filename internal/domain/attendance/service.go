package attendance

import (
	"context"
	"time"
)

// AttendanceService aggregates raw check-in/check-out events.
type AttendanceService interface {
	CheckIn(ctx context.Context, req CheckInRequest) (Record, error)
	CheckOut(ctx context.Context, req CheckOutRequest) (Record, error)
	StartBreak(ctx context.Context, req BreakRequest) (Record, error)
	EndBreak(ctx context.Context, req BreakRequest) (Record, error)

	// Summarize aggregates [start, end] for one employee.
	Summarize(ctx context.Context, employeeID string, start, end time.Time) (Summary, error)

	// FinalizeStale closes every open record dated before the given date.
	FinalizeStale(ctx context.Context, before time.Time) (int, error)

	List(ctx context.Context, filter Filter) ([]Record, error)
}
