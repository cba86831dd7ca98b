package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
	"github.com/narwhalmedia/medialibrary/pkg/events"
	"github.com/narwhalmedia/medialibrary/pkg/interfaces"
)

// Bus is the typed notification layer over the in-memory event bus.
// Events are delivered in publish order by a single dispatcher, so observers
// of one entry point see its events in order.
type Bus struct {
	events *events.InMemoryEventBus
	logger interfaces.Logger

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// Subscription is returned by every Subscribe call and given back to Unsubscribe.
type Subscription struct {
	handlers []*handler
}

type handler struct {
	eventType string
	fn        func(ctx context.Context, event interfaces.Event) error
}

func (h *handler) Handle(ctx context.Context, event interfaces.Event) error {
	return h.fn(ctx, event)
}

func (h *handler) EventType() string {
	return h.eventType
}

// NewBus creates a new notification bus.
func NewBus(eventBus *events.InMemoryEventBus, logger interfaces.Logger) *Bus {
	return &Bus{
		events: eventBus,
		logger: logger,
		subs:   make(map[*Subscription]struct{}),
	}
}

// Start starts the dispatcher.
func (b *Bus) Start(ctx context.Context) error {
	return b.events.Start(ctx)
}

// Stop delivers pending events and stops the dispatcher.
func (b *Bus) Stop() error {
	return b.events.Stop()
}

// WaitIdle blocks until every event published so far has been delivered.
func (b *Bus) WaitIdle() {
	b.events.WaitIdle()
}

// Publish enqueues an event for ordered delivery.
func (b *Bus) Publish(ctx context.Context, event interfaces.Event) {
	b.events.PublishAsync(ctx, event)
}

// Attach subscribes a raw handler to every given event type. Used by mirrors.
func (b *Bus) Attach(h interfaces.EventHandler, eventTypes ...string) *Subscription {
	sub := &Subscription{}
	for _, eventType := range eventTypes {
		sub.handlers = append(sub.handlers, &handler{eventType: eventType, fn: h.Handle})
	}
	return b.register(sub)
}

// SubscribeDiscovery registers a discovery lifecycle observer.
func (b *Bus) SubscribeDiscovery(o DiscoveryObserver) *Subscription {
	return b.register(&Subscription{handlers: []*handler{
		{eventType: domain.EventDiscoveryStarted, fn: func(_ context.Context, e interfaces.Event) error {
			ev, err := cast[*domain.DiscoveryStartedEvent](e)
			if err != nil {
				return err
			}
			o.OnDiscoveryStarted(ev.EntryPoint)
			return nil
		}},
		{eventType: domain.EventDiscoveryProgress, fn: func(_ context.Context, e interfaces.Event) error {
			ev, err := cast[*domain.DiscoveryProgressEvent](e)
			if err != nil {
				return err
			}
			o.OnDiscoveryProgress(ev.EntryPoint, ev.Folder)
			return nil
		}},
		{eventType: domain.EventDiscoveryCompleted, fn: func(_ context.Context, e interfaces.Event) error {
			ev, err := cast[*domain.DiscoveryCompletedEvent](e)
			if err != nil {
				return err
			}
			o.OnDiscoveryCompleted(ev.EntryPoint, ev.Err)
			return nil
		}},
	}})
}

// SubscribeParsing registers a parsing progress observer.
func (b *Bus) SubscribeParsing(o ParsingObserver) *Subscription {
	return b.register(&Subscription{handlers: []*handler{
		{eventType: domain.EventParsingProgress, fn: func(_ context.Context, e interfaces.Event) error {
			ev, err := cast[*domain.ParsingProgressEvent](e)
			if err != nil {
				return err
			}
			o.OnParsingStatsUpdated(ev.EntryPoint, ev.Percent)
			return nil
		}},
	}})
}

// SubscribeMediaAdded registers an observer for the media kinds selected by kinds.
// Batches without a matching media are not delivered.
func (b *Bus) SubscribeMediaAdded(o MediaAddedObserver, kinds domain.MediaKind) *Subscription {
	return b.register(&Subscription{handlers: []*handler{
		{eventType: domain.EventMediaAdded, fn: func(_ context.Context, e interfaces.Event) error {
			ev, err := cast[*domain.MediaAddedEvent](e)
			if err != nil {
				return err
			}
			if media := filterKinds(ev.Media, kinds); len(media) > 0 {
				o.OnMediaAdded(media)
			}
			return nil
		}},
	}})
}

// SubscribeMediaUpdated registers an observer for the media kinds selected by kinds.
func (b *Bus) SubscribeMediaUpdated(o MediaUpdatedObserver, kinds domain.MediaKind) *Subscription {
	return b.register(&Subscription{handlers: []*handler{
		{eventType: domain.EventMediaUpdated, fn: func(_ context.Context, e interfaces.Event) error {
			ev, err := cast[*domain.MediaUpdatedEvent](e)
			if err != nil {
				return err
			}
			if media := filterKinds(ev.Media, kinds); len(media) > 0 {
				o.OnMediaUpdated(media)
			}
			return nil
		}},
	}})
}

// SubscribeMediaDeleted registers a media removal observer.
func (b *Bus) SubscribeMediaDeleted(o MediaDeletedObserver) *Subscription {
	return b.register(&Subscription{handlers: []*handler{
		{eventType: domain.EventMediaDeleted, fn: func(_ context.Context, e interfaces.Event) error {
			ev, err := cast[*domain.MediaDeletedEvent](e)
			if err != nil {
				return err
			}
			o.OnMediaDeleted(ev.IDs)
			return nil
		}},
	}})
}

// SubscribeIndexingFailures registers an indexing failure observer.
func (b *Bus) SubscribeIndexingFailures(o IndexingFailureObserver) *Subscription {
	return b.register(&Subscription{handlers: []*handler{
		{eventType: domain.EventIndexingFailed, fn: func(_ context.Context, e interfaces.Event) error {
			ev, err := cast[*domain.IndexingFailedEvent](e)
			if err != nil {
				return err
			}
			o.OnIndexingFailed(ev.EntryPoint, ev.Path, ev.Err)
			return nil
		}},
	}})
}

// Unsubscribe removes every handler of sub. Deliveries already in progress
// complete on their snapshot.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	_, ok := b.subs[sub]
	delete(b.subs, sub)
	b.mu.Unlock()
	if !ok {
		return
	}

	for _, h := range sub.handlers {
		if err := b.events.Unsubscribe(h.eventType, h); err != nil {
			b.logger.Warn("Failed to unsubscribe observer",
				interfaces.String("event_type", h.eventType),
				interfaces.Error(err))
		}
	}
}

// Subscriptions returns the number of live subscriptions.
func (b *Bus) Subscriptions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Bus) register(sub *Subscription) *Subscription {
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	for _, h := range sub.handlers {
		if err := b.events.Subscribe(h.eventType, h); err != nil {
			b.logger.Warn("Failed to subscribe observer",
				interfaces.String("event_type", h.eventType),
				interfaces.Error(err))
		}
	}
	return sub
}

func cast[T interfaces.Event](e interfaces.Event) (T, error) {
	ev, ok := e.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unexpected event %T for %s", e, e.EventType())
	}
	return ev, nil
}

func filterKinds(media []*domain.Media, kinds domain.MediaKind) []*domain.Media {
	out := make([]*domain.Media, 0, len(media))
	for _, m := range media {
		if m.Kind()&kinds != 0 {
			out = append(out, m)
		}
	}
	return out
}
