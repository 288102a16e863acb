package memory

import (
	"context"
	"sync"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/event"
)

type eventRepository struct {
	mu     sync.RWMutex
	events []event.Event
}

func NewEventRepository() event.Repository {
	return &eventRepository{}
}

// Append implements event.Repository.
func (r *eventRepository) Append(ctx context.Context, e event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.ID == "" {
		e.ID = newID()
	}
	r.events = append(r.events, e)
	return nil
}

// ListByEntity implements event.Repository.
func (r *eventRepository) ListByEntity(ctx context.Context, entityID string) ([]event.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []event.Event
	for _, e := range r.events {
		if e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}
