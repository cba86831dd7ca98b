package notify

import "github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"

// DiscoveryObserver follows discovery passes, keyed by entry point.
type DiscoveryObserver interface {
	OnDiscoveryStarted(entryPoint string)
	OnDiscoveryProgress(entryPoint, folder string)
	OnDiscoveryCompleted(entryPoint string, err error)
}

// ParsingObserver receives the percentage of candidates processed in a pass.
type ParsingObserver interface {
	OnParsingStatsUpdated(entryPoint string, percent int)
}

// MediaAddedObserver receives batches of newly indexed media.
type MediaAddedObserver interface {
	OnMediaAdded(media []*domain.Media)
}

// MediaUpdatedObserver receives batches of re-parsed media.
type MediaUpdatedObserver interface {
	OnMediaUpdated(media []*domain.Media)
}

// MediaDeletedObserver receives the ids of removed media.
type MediaDeletedObserver interface {
	OnMediaDeleted(ids []int64)
}

// IndexingFailureObserver receives files that could not be committed.
type IndexingFailureObserver interface {
	OnIndexingFailed(entryPoint, path string, err error)
}
