package event

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/event"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() event.Event {
	return event.Event{
		ID:         "evt-1",
		Type:       event.TypeLeaveApproved,
		EntityID:   "leave-1",
		EmployeeID: "emp-1",
		ActorID:    "user-1",
		OccurredAt: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
	}
}

func TestDispatcher_DeliversToEverySinkDespiteFailure(t *testing.T) {
	var delivered atomic.Int32
	counting := event.SinkFunc(func(ctx context.Context, e event.Event) error {
		delivered.Add(1)
		return nil
	})
	failing := event.SinkFunc(func(ctx context.Context, e event.Event) error {
		return errors.New("broker down")
	})

	d := NewDispatcher().
		Register("first", counting).
		Register("broken", failing).
		Register("second", counting)

	err := d.Publish(context.Background(), sampleEvent())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: broker down")
	assert.Equal(t, int32(2), delivered.Load())
}

func TestDispatcher_NoSinks(t *testing.T) {
	assert.NoError(t, NewDispatcher().Publish(context.Background(), sampleEvent()))
}

func TestHubSink_PublishesToEmployeeAndBroadcast(t *testing.T) {
	hub := sse.NewHub()
	own, cleanupOwn := hub.Subscribe("emp-1")
	defer cleanupOwn()
	all, cleanupAll := hub.Subscribe(sse.Broadcast)
	defer cleanupAll()

	require.NoError(t, NewHubSink(hub).Publish(context.Background(), sampleEvent()))

	for _, ch := range []<-chan sse.Event{own, all} {
		select {
		case got := <-ch:
			assert.Equal(t, "leave.approved", got.Name)
			payload, ok := got.Data.(Payload)
			require.True(t, ok)
			assert.Equal(t, "leave-1", payload.EntityID)
			assert.Equal(t, "2024-03-04T10:00:00Z", payload.OccurredAt)
		default:
			t.Fatal("expected an event")
		}
	}
}

type recordingRepo struct {
	appended []event.Event
}

func (r *recordingRepo) Append(ctx context.Context, e event.Event) error {
	r.appended = append(r.appended, e)
	return nil
}

func (r *recordingRepo) ListByEntity(ctx context.Context, entityID string) ([]event.Event, error) {
	return r.appended, nil
}

func TestStoreSink_Appends(t *testing.T) {
	repo := &recordingRepo{}
	require.NoError(t, NewStoreSink(repo).Publish(context.Background(), sampleEvent()))
	require.Len(t, repo.appended, 1)
	assert.Equal(t, "evt-1", repo.appended[0].ID)
}
