package postgresql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/event"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/database"
	"github.com/google/uuid"
)

type eventRepository struct {
	db *database.DB
}

// NewEventRepository creates the domain event log repository
func NewEventRepository(db *database.DB) event.Repository {
	return &eventRepository{db: db}
}

// Append stores an event; an event already stored under the same id is ignored.
func (r *eventRepository) Append(ctx context.Context, e event.Event) error {
	q := GetQuerier(ctx, r.db)

	if e.ID == "" {
		e.ID = uuid.Must(uuid.NewV7()).String()
	}

	dataJSON, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	query := `
		INSERT INTO domain_events (id, type, entity_id, employee_id, actor_id, occurred_at, data)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7)
		ON CONFLICT (id) DO NOTHING
	`

	_, err = q.Exec(ctx, query,
		e.ID,
		string(e.Type),
		e.EntityID,
		e.EmployeeID,
		e.ActorID,
		e.OccurredAt,
		dataJSON,
	)
	if err != nil {
		return apperror.Collaborator("failed to append event", err)
	}

	return nil
}

// ListByEntity returns the events of one entity, oldest first.
func (r *eventRepository) ListByEntity(ctx context.Context, entityID string) ([]event.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, type, entity_id, COALESCE(employee_id, ''), COALESCE(actor_id, ''), occurred_at, data
		FROM domain_events
		WHERE entity_id = $1
		ORDER BY occurred_at, id
	`

	rows, err := q.Query(ctx, query, entityID)
	if err != nil {
		return nil, apperror.Collaborator("failed to list events", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var e event.Event
		var dataBytes []byte
		if err := rows.Scan(&e.ID, &e.Type, &e.EntityID, &e.EmployeeID, &e.ActorID, &e.OccurredAt, &dataBytes); err != nil {
			return nil, apperror.Collaborator("failed to scan event", err)
		}
		if len(dataBytes) > 0 {
			if err := json.Unmarshal(dataBytes, &e.Data); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Collaborator("failed to list events", err)
	}

	return events, nil
}
