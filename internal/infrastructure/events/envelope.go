package events

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
	"github.com/narwhalmedia/medialibrary/internal/metrics"
	"github.com/narwhalmedia/medialibrary/pkg/interfaces"
)

// AllTypes is the handler type reported by mirrors, which receive every event.
const AllTypes = "*"

// Envelope is the wire form of a library event on external brokers.
type Envelope struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	EntryPoint string     `json:"entry_point"`
	OccurredAt int64      `json:"occurred_at"`
	Folder     string     `json:"folder,omitempty"`
	Path       string     `json:"path,omitempty"`
	Percent    *int       `json:"percent,omitempty"`
	Error      string     `json:"error,omitempty"`
	Media      []MediaRef `json:"media,omitempty"`
	MediaIDs   []int64    `json:"media_ids,omitempty"`
}

// MediaRef is the subset of a media row carried by added/updated events.
type MediaRef struct {
	ID    int64  `json:"id"`
	URI   string `json:"uri"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

// NewEnvelope flattens a bus event. Unknown event types keep only the header.
func NewEnvelope(event interfaces.Event) Envelope {
	env := Envelope{
		ID:         uuid.NewString(),
		Type:       event.EventType(),
		EntryPoint: event.AggregateID(),
		OccurredAt: event.Timestamp(),
	}

	switch e := event.(type) {
	case *domain.DiscoveryProgressEvent:
		env.Folder = e.Folder
	case *domain.DiscoveryCompletedEvent:
		env.Error = errString(e.Err)
	case *domain.ParsingProgressEvent:
		percent := e.Percent
		env.Percent = &percent
	case *domain.MediaAddedEvent:
		env.Media = refs(e.Media)
	case *domain.MediaUpdatedEvent:
		env.Media = refs(e.Media)
	case *domain.MediaDeletedEvent:
		env.MediaIDs = e.IDs
	case *domain.IndexingFailedEvent:
		env.Path = e.Path
		env.Error = errString(e.Err)
	}
	return env
}

// Marshal encodes the envelope as JSON.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Subject maps an event type onto a broker subject under prefix, e.g.
// "medialibrary.media.added" becomes "<prefix>.media.added".
func Subject(prefix, eventType string) string {
	rest := strings.TrimPrefix(eventType, "medialibrary.")
	if prefix == "" {
		return rest
	}
	return prefix + "." + rest
}

// Record counts one mirrored event for backend.
func Record(backend string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.EventsMirroredTotal.WithLabelValues(backend, status).Inc()
}

func refs(media []*domain.Media) []MediaRef {
	out := make([]MediaRef, 0, len(media))
	for _, m := range media {
		out = append(out, MediaRef{ID: m.ID, URI: m.URI, Type: m.Type.String(), Title: m.GetTitle()})
	}
	return out
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
