package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/event"
	"golang.org/x/sync/errgroup"
)

type namedSink struct {
	name string
	sink event.Sink
}

// Dispatcher fans a committed event out to every registered sink. It is itself
// an event.Sink.
type Dispatcher struct {
	mu    sync.RWMutex
	sinks []namedSink
}

// NewDispatcher creates a dispatcher with no sinks.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Register adds a sink under a name used in logs.
func (d *Dispatcher) Register(name string, sink event.Sink) *Dispatcher {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks = append(d.sinks, namedSink{name: name, sink: sink})
	return d
}

// Publish delivers e to all sinks concurrently. Every sink is attempted even
// when another one fails; the failures are logged and joined.
func (d *Dispatcher) Publish(ctx context.Context, e event.Event) error {
	d.mu.RLock()
	sinks := make([]namedSink, len(d.sinks))
	copy(sinks, d.sinks)
	d.mu.RUnlock()

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, s := range sinks {
		g.Go(func() error {
			if err := s.sink.Publish(ctx, e); err != nil {
				slog.Error("Failed to deliver event",
					"sink", s.name,
					"event_id", e.ID,
					"event_type", string(e.Type),
					"entity_id", e.EntityID,
					"error", err)

				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
