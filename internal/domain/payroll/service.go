package payroll

import (
	"context"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/identity"
)

type PayrollService interface {
	Compute(ctx context.Context, actor identity.Actor, req ComputeRequest) (PayrollRecord, error)
	Submit(ctx context.Context, actor identity.Actor, id string) (PayrollRecord, error)
	Approve(ctx context.Context, actor identity.Actor, id string) (PayrollRecord, error)
	MarkAsPaid(ctx context.Context, actor identity.Actor, id string) (PayrollRecord, error)

	// Period operations transition each eligible record on its own; one
	// failure never undoes another record's transition.
	ApprovePeriod(ctx context.Context, actor identity.Actor, year, month int) (PeriodResult, error)
	MarkPeriodAsPaid(ctx context.Context, actor identity.Actor, year, month int) (PeriodResult, error)

	GetSummary(ctx context.Context, year, month int) (PayrollSummary, error)
	Get(ctx context.Context, id string) (PayrollRecord, error)
	List(ctx context.Context, filter PayrollFilter) ([]PayrollRecord, error)
}
