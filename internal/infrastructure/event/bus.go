// Package event carries domain events from the services that raise them to
// the handlers that react, such as alert creation and cache invalidation.
package event

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/qcdash/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryEventBus implements EventBus with in-process pub/sub. By default
// handlers run synchronously inside Publish. WithAsync hands events to a
// worker pool instead, so slow handlers do not delay the HTTP response.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger

	workers int
	queue   chan envelope
	running atomic.Bool
	mu      sync.RWMutex
	wg      sync.WaitGroup
	failed  atomic.Int64
}

type envelope struct {
	ctx   context.Context
	event shared.DomainEvent
}

// BusOption configures an InMemoryEventBus
type BusOption func(*InMemoryEventBus)

// WithAsync dispatches events on workers goroutines reading a queue of queueSize
func WithAsync(workers, queueSize int) BusOption {
	return func(b *InMemoryEventBus) {
		if workers > 0 {
			b.workers = workers
			b.queue = make(chan envelope, max(queueSize, 1))
		}
	}
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers events to their handlers. Handler failures are logged and
// counted, never returned, so one broken subscriber cannot fail a write.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	b.mu.RLock()
	if b.queue == nil || !b.running.Load() {
		b.mu.RUnlock()
		for _, ev := range events {
			if ev != nil {
				b.dispatch(ctx, ev)
			}
		}
		return nil
	}
	defer b.mu.RUnlock()

	for _, ev := range events {
		if ev == nil {
			continue
		}
		select {
		case b.queue <- envelope{ctx: context.WithoutCancel(ctx), event: ev}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe registers a handler for specific event types
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("Handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start launches the worker pool in async mode
func (b *InMemoryEventBus) Start(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running.Swap(true) {
		return nil
	}
	for range b.workers {
		b.wg.Add(1)
		go b.work()
	}
	b.logger.Info("Event bus started", zap.Int("workers", b.workers))
	return nil
}

// Stop drains queued events and waits for the workers, or gives up when ctx ends
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	wasRunning := b.running.Swap(false)
	if wasRunning && b.queue != nil {
		close(b.queue)
	}
	b.mu.Unlock()
	if !wasRunning {
		return nil
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		b.logger.Info("Event bus stopped", zap.Int64("failed_deliveries", b.failed.Load()))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event bus stop: %w", ctx.Err())
	}
}

// FailedDeliveries returns how many handler invocations failed or panicked
func (b *InMemoryEventBus) FailedDeliveries() int64 {
	return b.failed.Load()
}

func (b *InMemoryEventBus) work() {
	defer b.wg.Done()
	for env := range b.queue {
		b.dispatch(env.ctx, env.event)
	}
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, ev shared.DomainEvent) {
	for _, handler := range b.registry.GetHandlers(ev.EventType()) {
		if err := b.invoke(ctx, handler, ev); err != nil {
			b.failed.Add(1)
			b.logger.Error("Event handler failed",
				zap.String("event_type", ev.EventType()),
				zap.String("event_id", ev.EventID().String()),
				zap.String("aggregate_id", ev.AggregateID().String()),
				zap.Error(err),
			)
		}
	}
}

func (b *InMemoryEventBus) invoke(ctx context.Context, handler shared.EventHandler, ev shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, ev)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
