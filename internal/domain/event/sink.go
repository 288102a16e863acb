package event

import "context"

// Sink receives committed domain events. Delivery is fire-and-forget from the
// publisher's point of view: an error is reported, never rolled back.
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event) error

func (f SinkFunc) Publish(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// Repository stores the event log used as the audit trail.
type Repository interface {
	Append(ctx context.Context, e Event) error
	ListByEntity(ctx context.Context, entityID string) ([]Event, error)
}
