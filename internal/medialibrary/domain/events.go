package domain

import (
	"time"
)

// Event types published on the bus. Every event is keyed by its entry point.
const (
	EventDiscoveryStarted   = "medialibrary.discovery.started"
	EventDiscoveryProgress  = "medialibrary.discovery.progress"
	EventDiscoveryCompleted = "medialibrary.discovery.completed"
	EventParsingProgress    = "medialibrary.parsing.progress"
	EventMediaAdded         = "medialibrary.media.added"
	EventMediaUpdated       = "medialibrary.media.updated"
	EventMediaDeleted       = "medialibrary.media.deleted"
	EventIndexingFailed     = "medialibrary.indexing.failed"
)

// AllEventTypes lists every event type, in lifecycle order.
var AllEventTypes = []string{
	EventDiscoveryStarted,
	EventDiscoveryProgress,
	EventDiscoveryCompleted,
	EventParsingProgress,
	EventMediaAdded,
	EventMediaUpdated,
	EventMediaDeleted,
	EventIndexingFailed,
}

type baseEvent struct {
	entryPoint string
	timestamp  int64
}

func newBaseEvent(entryPoint string) baseEvent {
	return baseEvent{entryPoint: entryPoint, timestamp: time.Now().Unix()}
}

func (e baseEvent) Timestamp() int64 {
	return e.timestamp
}

func (e baseEvent) AggregateID() string {
	return e.entryPoint
}

// DiscoveryStartedEvent is published when a pass over an entry point begins
type DiscoveryStartedEvent struct {
	baseEvent
	EntryPoint string
}

func NewDiscoveryStartedEvent(entryPoint string) *DiscoveryStartedEvent {
	return &DiscoveryStartedEvent{baseEvent: newBaseEvent(entryPoint), EntryPoint: entryPoint}
}

func (e *DiscoveryStartedEvent) EventType() string {
	return EventDiscoveryStarted
}

// DiscoveryProgressEvent is published for every folder entered
type DiscoveryProgressEvent struct {
	baseEvent
	EntryPoint string
	Folder     string
}

func NewDiscoveryProgressEvent(entryPoint, folder string) *DiscoveryProgressEvent {
	return &DiscoveryProgressEvent{baseEvent: newBaseEvent(entryPoint), EntryPoint: entryPoint, Folder: folder}
}

func (e *DiscoveryProgressEvent) EventType() string {
	return EventDiscoveryProgress
}

// DiscoveryCompletedEvent is published when a pass ends. Err is set when the
// entry point could not be walked at all.
type DiscoveryCompletedEvent struct {
	baseEvent
	EntryPoint string
	Err        error
}

func NewDiscoveryCompletedEvent(entryPoint string, err error) *DiscoveryCompletedEvent {
	return &DiscoveryCompletedEvent{baseEvent: newBaseEvent(entryPoint), EntryPoint: entryPoint, Err: err}
}

func (e *DiscoveryCompletedEvent) EventType() string {
	return EventDiscoveryCompleted
}

// ParsingProgressEvent carries the percentage of candidates processed in a pass
type ParsingProgressEvent struct {
	baseEvent
	EntryPoint string
	Percent    int
}

func NewParsingProgressEvent(entryPoint string, percent int) *ParsingProgressEvent {
	return &ParsingProgressEvent{baseEvent: newBaseEvent(entryPoint), EntryPoint: entryPoint, Percent: percent}
}

func (e *ParsingProgressEvent) EventType() string {
	return EventParsingProgress
}

// MediaAddedEvent carries a batch of newly indexed media
type MediaAddedEvent struct {
	baseEvent
	EntryPoint string
	Media      []*Media
}

func NewMediaAddedEvent(entryPoint string, media []*Media) *MediaAddedEvent {
	return &MediaAddedEvent{baseEvent: newBaseEvent(entryPoint), EntryPoint: entryPoint, Media: media}
}

func (e *MediaAddedEvent) EventType() string {
	return EventMediaAdded
}

// MediaUpdatedEvent carries a batch of re-parsed media
type MediaUpdatedEvent struct {
	baseEvent
	EntryPoint string
	Media      []*Media
}

func NewMediaUpdatedEvent(entryPoint string, media []*Media) *MediaUpdatedEvent {
	return &MediaUpdatedEvent{baseEvent: newBaseEvent(entryPoint), EntryPoint: entryPoint, Media: media}
}

func (e *MediaUpdatedEvent) EventType() string {
	return EventMediaUpdated
}

// MediaDeletedEvent carries the ids of soft-deleted media
type MediaDeletedEvent struct {
	baseEvent
	EntryPoint string
	IDs        []int64
}

func NewMediaDeletedEvent(entryPoint string, ids []int64) *MediaDeletedEvent {
	return &MediaDeletedEvent{baseEvent: newBaseEvent(entryPoint), EntryPoint: entryPoint, IDs: ids}
}

func (e *MediaDeletedEvent) EventType() string {
	return EventMediaDeleted
}

// IndexingFailedEvent reports a file that could not be committed to the store
type IndexingFailedEvent struct {
	baseEvent
	EntryPoint string
	Path       string
	Err        error
}

func NewIndexingFailedEvent(entryPoint, path string, err error) *IndexingFailedEvent {
	return &IndexingFailedEvent{baseEvent: newBaseEvent(entryPoint), EntryPoint: entryPoint, Path: path, Err: err}
}

func (e *IndexingFailedEvent) EventType() string {
	return EventIndexingFailed
}
