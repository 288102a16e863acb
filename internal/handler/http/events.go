package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/event"
	"github.com/cmlabs-hris/workforce-engine/internal/domain/identity"
	"github.com/cmlabs-hris/workforce-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/sse"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/validator"
)

type EventHandler interface {
	GetSSEToken(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
	History(w http.ResponseWriter, r *http.Request)
}

type eventHandlerImpl struct {
	hub        *sse.Hub
	events     event.Repository
	jwtService jwt.Service
	keepalive  time.Duration
}

func NewEventHandler(hub *sse.Hub, events event.Repository, jwtService jwt.Service) EventHandler {
	return &eventHandlerImpl{
		hub:        hub,
		events:     events,
		jwtService: jwtService,
		keepalive:  30 * time.Second,
	}
}

type sseTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

type eventResponse struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	EntityID   string                 `json:"entity_id"`
	EmployeeID string                 `json:"employee_id,omitempty"`
	ActorID    string                 `json:"actor_id,omitempty"`
	OccurredAt string                 `json:"occurred_at"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// canSeeAll reports whether the role may observe every employee's events.
func canSeeAll(role identity.Role) bool {
	return identity.HasPermission(role, identity.PermissionAttendanceViewAll) ||
		identity.HasPermission(role, identity.PermissionLeaveViewAll)
}

// GetSSEToken generates a short-lived token for SSE connections
func (h *eventHandlerImpl) GetSSEToken(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	token, expiresIn, err := h.jwtService.GenerateSSEToken(actor.UserID, actor.EmployeeID, actor.Role)
	if err != nil {
		response.InternalServerError(w, "Failed to generate SSE token")
		return
	}

	response.Success(w, sseTokenResponse{
		Token:     token,
		ExpiresIn: expiresIn,
	})
}

// Stream handles the SSE connection for domain events. Privileged roles see
// every event, employees only their own.
func (h *eventHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	// SSE clients cannot send an Authorization header
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.jwtService.ValidateSSEToken(tokenStr)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	actor, err := identity.Authorize(claims.UserID, claims.EmployeeID, claims.Role, identity.PermissionEventsSubscribe)
	if err != nil {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	topic := sse.Broadcast
	if !canSeeAll(actor.Role) {
		if actor.EmployeeID == "" {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		topic = actor.EmployeeID
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(topic)
	defer cleanup()

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"user_id\":%q}\n\n", actor.UserID)
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(e.Data)
			if err != nil {
				slog.Warn("Failed to encode SSE event", "event_id", e.ID, "error", err)
				continue
			}
			fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", e.ID, e.Name, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// History serves GET /events?entity_id from the audit log.
func (h *eventHandlerImpl) History(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	entityID := r.URL.Query().Get("entity_id")
	if validator.IsEmpty(entityID) {
		response.HandleError(w, validator.ValidationErrors{{Field: "entity_id", Message: "entity_id is required"}})
		return
	}

	events, err := h.events.ListByEntity(r.Context(), entityID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	all := canSeeAll(actor.Role)
	resp := make([]eventResponse, 0, len(events))
	for _, e := range events {
		if !all && !actor.IsSelf(e.EmployeeID) {
			continue
		}
		resp = append(resp, eventResponse{
			ID:         e.ID,
			Type:       string(e.Type),
			EntityID:   e.EntityID,
			EmployeeID: e.EmployeeID,
			ActorID:    e.ActorID,
			OccurredAt: e.OccurredAt.Format(time.RFC3339),
			Data:       e.Data,
		})
	}
	response.Success(w, resp)
}
