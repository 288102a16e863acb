package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/event"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/sse"
)

// Payload is the JSON body streamed to SSE clients.
type Payload struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	EntityID   string                 `json:"entity_id"`
	EmployeeID string                 `json:"employee_id,omitempty"`
	ActorID    string                 `json:"actor_id,omitempty"`
	OccurredAt string                 `json:"occurred_at"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

func toPayload(e event.Event) Payload {
	return Payload{
		ID:         e.ID,
		Type:       string(e.Type),
		EntityID:   e.EntityID,
		EmployeeID: e.EmployeeID,
		ActorID:    e.ActorID,
		OccurredAt: e.OccurredAt.Format(time.RFC3339),
		Data:       e.Data,
	}
}

// NewHubSink pushes events to the employee's topic and to the broadcast topic.
func NewHubSink(hub *sse.Hub) event.Sink {
	return event.SinkFunc(func(ctx context.Context, e event.Event) error {
		msg := sse.Event{
			ID:   e.ID,
			Name: string(e.Type),
			Data: toPayload(e),
		}
		topics := []string{sse.Broadcast}
		if e.EmployeeID != "" {
			topics = append(topics, e.EmployeeID)
		}
		if dropped := hub.PublishToMany(topics, msg); dropped > 0 {
			slog.Warn("SSE subscribers lagging, event dropped",
				"event_id", e.ID,
				"dropped", dropped)
		}
		return nil
	})
}

// NewStoreSink appends events to the audit log.
func NewStoreSink(repo event.Repository) event.Sink {
	return event.SinkFunc(func(ctx context.Context, e event.Event) error {
		return repo.Append(ctx, e)
	})
}

// NewLogSink writes one structured line per event.
func NewLogSink(logger *slog.Logger) event.Sink {
	return event.SinkFunc(func(ctx context.Context, e event.Event) error {
		logger.InfoContext(ctx, "Domain event",
			"event_id", e.ID,
			"event_type", string(e.Type),
			"entity_id", e.EntityID,
			"employee_id", e.EmployeeID,
			"actor_id", e.ActorID,
			"occurred_at", e.OccurredAt)
		return nil
	})
}
