package leave

import (
	"context"
	"iter"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/identity"
)

type LeaveService interface {
	// Request
	Request(ctx context.Context, actor identity.Actor, req CreateRequest) (Record, error)
	Approve(ctx context.Context, actor identity.Actor, leaveID string) (Record, error)
	Reject(ctx context.Context, actor identity.Actor, leaveID string, reason string) (Record, error)
	Cancel(ctx context.Context, actor identity.Actor, leaveID string) (Record, error)
	Get(ctx context.Context, leaveID string) (Record, error)
	List(ctx context.Context, filter Filter) ([]Record, error)

	// ListPending yields every pending record, oldest first, fetching pages
	// lazily. Iteration stops after the first error.
	ListPending(ctx context.Context) iter.Seq2[Record, error]

	// Balance
	GetBalance(ctx context.Context, employeeID string, year int) (Balance, error)
	SetEntitlement(ctx context.Context, actor identity.Actor, req SetEntitlementRequest) (Entitlement, error)
}
