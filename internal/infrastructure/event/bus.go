// Package event delivers domain events to in-process handlers.
package event

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/escola/backend/internal/domain/shared"
	"github.com/escola/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const defaultQueueSize = 256

type envelope struct {
	ctx   context.Context
	event shared.DomainEvent
}

// InMemoryEventBus dispatches events to registered handlers. Before Start, or
// after Stop, Publish delivers synchronously. While running, events are queued
// and delivered by background workers so that slow notifiers never hold up a
// payment request.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	workers   int
	queueSize int
	queue     chan envelope
	running   atomic.Bool
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

// BusOption configures an InMemoryEventBus
type BusOption func(*InMemoryEventBus)

// WithWorkers sets the number of delivery goroutines started by Start
func WithWorkers(n int) BusOption {
	return func(b *InMemoryEventBus) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithQueueSize sets the capacity of the delivery queue
func WithQueueSize(n int) BusOption {
	return func(b *InMemoryEventBus) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	b := &InMemoryEventBus{
		registry:  NewHandlerRegistry(),
		logger:    logger.Named("event_bus"),
		workers:   1,
		queueSize: defaultQueueSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish hands events to their handlers. Handler failures are logged and never
// returned to the publisher.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, event := range events {
		if !b.running.Load() {
			b.deliver(ctx, event)
			continue
		}
		// Request cancellation must not abort delivery of an accepted event.
		env := envelope{ctx: context.WithoutCancel(ctx), event: event}
		select {
		case b.queue <- env:
		default:
			b.logger.Warn("event queue full, delivering inline",
				zap.String("event_type", event.EventType()),
			)
			b.deliver(ctx, event)
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
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start launches the delivery workers on a fresh queue. Calling Start twice is
// a no-op.
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running.Load() {
		return nil
	}
	b.queue = make(chan envelope, b.queueSize)
	b.running.Store(true)
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.work(b.queue)
	}
	b.logger.Info("event bus started", zap.Int("workers", b.workers))
	return nil
}

// Stop drains the queue and waits for the workers, or returns ctx's error
// if they do not finish in time. Workers left behind by a timeout keep
// draining the closed queue; a later Start does not reuse it.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running.Load() {
		b.mu.Unlock()
		return nil
	}
	b.running.Store(false)
	close(b.queue)
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *InMemoryEventBus) work(queue <-chan envelope) {
	defer b.wg.Done()
	for env := range queue {
		b.deliver(env.ctx, env.event)
	}
}

func (b *InMemoryEventBus) deliver(ctx context.Context, event shared.DomainEvent) {
	ctx, span := telemetry.StartSpan(ctx, "event.deliver",
		telemetry.WithAttribute("event_type", event.EventType()),
		telemetry.WithAttribute("event_id", event.EventID().String()),
	)
	defer span.End()

	for _, handler := range b.registry.GetHandlers(event.EventType()) {
		if err := b.dispatchToHandler(ctx, handler, event); err != nil {
			telemetry.RecordError(span, err)
			b.logger.Error("handler failed to process event",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.Error(err),
			)
		}
	}
}

// dispatchToHandler shields the bus from panicking handlers
func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
			)
		}
	}()
	return handler.Handle(ctx, event)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
