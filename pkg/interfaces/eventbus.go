package interfaces

import (
	"context"
)

// Event represents a notification flowing through the bus.
type Event interface {
	// EventType returns the type of the event
	EventType() string

	// Timestamp returns when the event occurred
	Timestamp() int64

	// AggregateID returns the key the event is ordered under (an entry point or media id)
	AggregateID() string
}

// EventHandler handles events of a specific type.
type EventHandler interface {
	// Handle processes an event
	Handle(ctx context.Context, event Event) error

	// EventType returns the type of events this handler processes
	EventType() string
}

// EventBus provides pub/sub functionality for library events.
type EventBus interface {
	// Publish delivers an event to all subscribers before returning
	Publish(ctx context.Context, event Event) error

	// PublishAsync enqueues an event for ordered background delivery
	PublishAsync(ctx context.Context, event Event)

	// Subscribe registers a handler for a specific event type
	Subscribe(eventType string, handler EventHandler) error

	// Unsubscribe removes a handler for a specific event type
	Unsubscribe(eventType string, handler EventHandler) error

	// Start starts the event bus
	Start(ctx context.Context) error

	// Stop drains pending events and stops the event bus
	Stop() error
}
