package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/narwhalmedia/medialibrary/pkg/interfaces"
)

// InMemoryEventBus is an in-process EventBus. PublishAsync appends to an unbounded
// FIFO queue drained by a single dispatcher goroutine, so delivery order matches
// publish order and a slow handler never blocks a publisher.
type InMemoryEventBus struct {
	handlers map[string][]interfaces.EventHandler
	mu       sync.RWMutex
	logger   interfaces.Logger

	queueMu  sync.Mutex
	queue    []queuedEvent
	inflight int
	idle     *sync.Cond
	started  bool
	stopped  bool
	wakeup   chan struct{}

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	onFailure func(eventType string, err error)
}

type queuedEvent struct {
	ctx   context.Context
	event interfaces.Event
}

// Option configures an InMemoryEventBus.
type Option func(*InMemoryEventBus)

// WithFailureHook registers a callback invoked whenever a handler fails or panics.
func WithFailureHook(fn func(eventType string, err error)) Option {
	return func(eb *InMemoryEventBus) {
		eb.onFailure = fn
	}
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger interfaces.Logger, opts ...Option) *InMemoryEventBus {
	ctx, cancel := context.WithCancel(context.Background())
	eb := &InMemoryEventBus{
		handlers: make(map[string][]interfaces.EventHandler),
		logger:   logger,
		wakeup:   make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
	eb.idle = sync.NewCond(&eb.queueMu)
	for _, opt := range opts {
		opt(eb)
	}
	return eb
}

// Publish delivers an event to every current subscriber before returning.
// Handler errors and panics are logged and never returned.
func (eb *InMemoryEventBus) Publish(ctx context.Context, event interfaces.Event) error {
	eb.mu.RLock()
	handlers := eb.handlers[event.EventType()]
	eb.mu.RUnlock()

	for _, handler := range handlers {
		if err := eb.invoke(ctx, handler, event); err != nil {
			eb.logger.Error("Event handler failed",
				interfaces.String("event_type", event.EventType()),
				interfaces.String("aggregate_id", event.AggregateID()),
				interfaces.Error(err))
			if eb.onFailure != nil {
				eb.onFailure(event.EventType(), err)
			}
		}
	}

	return nil
}

func (eb *InMemoryEventBus) invoke(ctx context.Context, handler interfaces.EventHandler, event interfaces.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler for %s panicked: %v", handler.EventType(), r)
		}
	}()
	return handler.Handle(ctx, event)
}

// PublishAsync enqueues an event for ordered delivery by the dispatcher.
func (eb *InMemoryEventBus) PublishAsync(ctx context.Context, event interfaces.Event) {
	eb.queueMu.Lock()
	if eb.stopped {
		eb.queueMu.Unlock()
		eb.logger.Warn("Event dropped, bus stopped",
			interfaces.String("event_type", event.EventType()))
		return
	}
	eb.queue = append(eb.queue, queuedEvent{ctx: context.WithoutCancel(ctx), event: event})
	eb.inflight++
	eb.queueMu.Unlock()

	select {
	case eb.wakeup <- struct{}{}:
	default:
	}
}

// Subscribe registers a handler for a specific event type
func (eb *InMemoryEventBus) Subscribe(eventType string, handler interfaces.EventHandler) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	current := eb.handlers[eventType]
	next := make([]interfaces.EventHandler, 0, len(current)+1)
	next = append(next, current...)
	eb.handlers[eventType] = append(next, handler)

	eb.logger.Debug("Event handler subscribed",
		interfaces.String("event_type", eventType),
		interfaces.String("handler", handler.EventType()))

	return nil
}

// Unsubscribe removes a handler for a specific event type. Dispatches already
// in progress keep their snapshot.
func (eb *InMemoryEventBus) Unsubscribe(eventType string, handler interfaces.EventHandler) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	current := eb.handlers[eventType]
	next := make([]interfaces.EventHandler, 0, len(current))
	for _, h := range current {
		if h != handler {
			next = append(next, h)
		}
	}
	if len(next) == 0 {
		delete(eb.handlers, eventType)
		return nil
	}
	eb.handlers[eventType] = next

	return nil
}

// SubscriberCount returns the number of handlers registered for an event type.
func (eb *InMemoryEventBus) SubscriberCount(eventType string) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.handlers[eventType])
}

// Start launches the dispatcher goroutine. Calling it twice is a no-op.
func (eb *InMemoryEventBus) Start(ctx context.Context) error {
	eb.queueMu.Lock()
	if eb.started {
		eb.queueMu.Unlock()
		return nil
	}
	eb.started = true
	eb.queueMu.Unlock()

	eb.wg.Add(1)
	go eb.dispatch()

	select {
	case eb.wakeup <- struct{}{}:
	default:
	}

	eb.logger.Info("Event bus started")
	return nil
}

func (eb *InMemoryEventBus) dispatch() {
	defer eb.wg.Done()

	for {
		select {
		case <-eb.wakeup:
		case <-eb.ctx.Done():
		}

		for {
			batch := eb.take()
			if len(batch) == 0 {
				break
			}
			for _, q := range batch {
				_ = eb.Publish(q.ctx, q.event)
			}
			eb.delivered(len(batch))
		}

		if eb.ctx.Err() != nil {
			return
		}
	}
}

func (eb *InMemoryEventBus) take() []queuedEvent {
	eb.queueMu.Lock()
	defer eb.queueMu.Unlock()

	batch := eb.queue
	eb.queue = nil
	return batch
}

func (eb *InMemoryEventBus) delivered(n int) {
	eb.queueMu.Lock()
	eb.inflight -= n
	if eb.inflight == 0 {
		eb.idle.Broadcast()
	}
	eb.queueMu.Unlock()
}

// WaitIdle blocks until every event enqueued so far has been delivered.
// It returns immediately when the dispatcher is not running.
func (eb *InMemoryEventBus) WaitIdle() {
	eb.queueMu.Lock()
	defer eb.queueMu.Unlock()

	for eb.inflight > 0 && eb.started && !eb.stopped {
		eb.idle.Wait()
	}
}

// Stop delivers what is still queued and stops the dispatcher.
func (eb *InMemoryEventBus) Stop() error {
	eb.queueMu.Lock()
	if eb.stopped {
		eb.queueMu.Unlock()
		return nil
	}
	eb.stopped = true
	started := eb.started
	eb.idle.Broadcast()
	eb.queueMu.Unlock()

	eb.cancel()
	if started {
		eb.wg.Wait()
	}
	eb.logger.Info("Event bus stopped")
	return nil
}

var _ interfaces.EventBus = (*InMemoryEventBus)(nil)
