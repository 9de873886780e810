package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Inspection", uuid.New())}
}

type testHandler struct {
	eventTypes []string
	mu         sync.Mutex
	handled    []shared.DomainEvent
	err        error
	panics     bool
	done       chan struct{}
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	h.mu.Lock()
	h.handled = append(h.handled, ev)
	done := h.done
	h.mu.Unlock()
	if done != nil {
		done <- struct{}{}
	}
	if h.panics {
		panic("boom")
	}
	return h.err
}

func (h *testHandler) EventTypes() []string { return h.eventTypes }

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_PublishSync(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := newTestHandler("DefectReported")
	bus.Subscribe(h)

	ev := newTestEvent("DefectReported")
	require.NoError(t, bus.Publish(context.Background(), ev, newTestEvent("Other"), nil))

	require.Equal(t, 1, h.count())
	assert.Same(t, ev, h.handled[0])
}

func TestInMemoryEventBus_FailuresAreIsolated(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	failing := newTestHandler("InspectionCompleted")
	failing.err = errors.New("db down")
	panicking := newTestHandler("InspectionCompleted")
	panicking.panics = true
	healthy := newTestHandler("InspectionCompleted")

	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("InspectionCompleted")))

	assert.Equal(t, 1, healthy.count())
	assert.Equal(t, int64(2), bus.FailedDeliveries())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := newTestHandler("DefectReported")
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("DefectReported")))
	assert.Zero(t, h.count())
}

func TestInMemoryEventBus_Async(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), WithAsync(2, 8))
	h := newTestHandler("DefectReported")
	h.done = make(chan struct{}, 8)
	bus.Subscribe(h)
	require.NoError(t, bus.Start(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bus.Publish(ctx, newTestEvent("DefectReported"), newTestEvent("DefectReported")))
	cancel()

	for range 2 {
		select {
		case <-h.done:
		case <-time.After(time.Second):
			t.Fatal("event was not delivered")
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, bus.Stop(stopCtx))
	assert.Equal(t, 2, h.count())

	// After Stop the bus falls back to synchronous delivery
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("DefectReported")))
	<-h.done
	assert.Equal(t, 3, h.count())
}

func TestInMemoryEventBus_StopWithoutStart(t *testing.T) {
	bus := NewInMemoryEventBus(nil, WithAsync(1, 1))
	assert.NoError(t, bus.Stop(context.Background()))
}
