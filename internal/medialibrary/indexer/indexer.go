package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/narwhalmedia/medialibrary/internal/medialibrary/artwork"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/repository"
	"github.com/narwhalmedia/medialibrary/internal/metrics"
	"github.com/narwhalmedia/medialibrary/pkg/interfaces"
)

// Result is the outcome of indexing one file.
type Result int

const (
	Unchanged Result = iota
	Added
	Updated
	Failed
)

func (r Result) String() string {
	switch r {
	case Unchanged:
		return "unchanged"
	case Added:
		return "added"
	case Updated:
		return "updated"
	default:
		return "failed"
	}
}

// Publisher enqueues events for observers.
type Publisher interface {
	Publish(ctx context.Context, event interfaces.Event)
}

// Options tunes pass batching.
type Options struct {
	ProgressStep int // percent between parsing progress events
	BatchSize    int // media per added/updated event
}

// Indexer decides, per discovered file, whether to add, update or skip it.
// Every file is committed in its own transaction.
type Indexer struct {
	repo        repository.MediaRepository
	extractor   domain.MetadataExtractor
	classifiers domain.ClassifierChain
	artwork     artwork.Store
	publisher   Publisher
	logger      interfaces.Logger
	opts        Options
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithArtworkStore stores embedded cover art.
func WithArtworkStore(store artwork.Store) Option {
	return func(ix *Indexer) {
		ix.artwork = store
	}
}

// WithClassifiers replaces the default classifier chain.
func WithClassifiers(chain domain.ClassifierChain) Option {
	return func(ix *Indexer) {
		ix.classifiers = chain
	}
}

// New creates a new indexer.
func New(
	repo repository.MediaRepository,
	extractor domain.MetadataExtractor,
	publisher Publisher,
	logger interfaces.Logger,
	opts Options,
	options ...Option,
) *Indexer {
	if opts.ProgressStep <= 0 {
		opts.ProgressStep = 10
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	ix := &Indexer{
		repo:        repo,
		extractor:   extractor,
		classifiers: domain.DefaultClassifiers(),
		publisher:   publisher,
		logger:      logger,
		opts:        opts,
	}
	for _, o := range options {
		o(ix)
	}
	return ix
}

// Index brings the store in line with the file at path. The returned media
// is nil for Unchanged and Failed.
func (ix *Indexer) Index(ctx context.Context, entryPoint, path string, lastModified int64) (Result, *domain.Media, error) {
	result, media, err := ix.index(ctx, entryPoint, path, lastModified)
	metrics.IndexerFilesTotal.WithLabelValues(result.String()).Inc()
	return result, media, err
}

func (ix *Indexer) index(ctx context.Context, entryPoint, path string, lastModified int64) (Result, *domain.Media, error) {
	uri := domain.FileURI(path)

	existing, err := ix.repo.GetMediaByURI(ctx, uri)
	if err != nil && !errors.Is(err, domain.ErrMediaNotFound) {
		ix.storeFailure(ctx, entryPoint, path, err)
		return Failed, nil, err
	}
	if existing != nil && !existing.IsDeleted() && existing.LastModified >= lastModified {
		return Unchanged, nil, nil
	}

	md, err := ix.extractor.Extract(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return Failed, nil, ctx.Err()
		}
		metrics.IndexerExtractionErrors.Inc()
		ix.logger.Warn("Failed to extract metadata",
			interfaces.String("path", path),
			interfaces.Error(err))
		return Failed, nil, err
	}
	md.Normalize()

	mediaType := ix.classifiers.Classify(path, md)
	if mediaType == domain.MediaTypeUnknown {
		ix.logger.Debug("Skipping unsupported file", interfaces.String("path", path))
		return Failed, nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedMedia, path)
	}

	result := Added
	media := existing
	switch {
	case media == nil:
		media = domain.NewMedia(path, entryPoint, lastModified)
	case media.IsDeleted():
		// restored rows keep their id and count as new again
		media.EntryPoint = entryPoint
	default:
		result = Updated
	}
	media.LastModified = lastModified
	media.ApplyMetadata(md, mediaType)
	if url := ix.storeArtwork(ctx, media, md); url != "" {
		media.ArtworkURL = url
	}

	if err := ix.repo.SaveMedia(ctx, media); err != nil {
		ix.storeFailure(ctx, entryPoint, path, err)
		return Failed, nil, err
	}

	ix.logger.Debug("Media indexed",
		interfaces.String("path", path),
		interfaces.String("result", result.String()),
		interfaces.Int64("media_id", media.ID))
	return result, media, nil
}

func (ix *Indexer) storeArtwork(ctx context.Context, media *domain.Media, md *domain.Metadata) string {
	if ix.artwork == nil || md.Artwork == nil {
		return ""
	}
	key := artwork.Key(media.ReferenceArtist(), media.AlbumTitle, media.Path, md.Artwork)
	url, err := artwork.Put(ctx, ix.artwork, key, md.Artwork)
	if err != nil {
		ix.logger.Warn("Failed to store artwork",
			interfaces.String("path", media.Path),
			interfaces.Error(err))
		return ""
	}
	return url
}

func (ix *Indexer) storeFailure(ctx context.Context, entryPoint, path string, err error) {
	ix.logger.Error("Failed to commit media",
		interfaces.String("path", path),
		interfaces.Error(err))
	ix.publisher.Publish(ctx, domain.NewIndexingFailedEvent(entryPoint, path, err))
}

// Remove soft-deletes media by id and notifies observers.
func (ix *Indexer) Remove(ctx context.Context, entryPoint string, ids ...int64) ([]int64, error) {
	removed, err := ix.repo.RemoveMedia(ctx, ids...)
	if err != nil {
		return nil, err
	}
	ix.PublishDeleted(ctx, entryPoint, removed)
	return removed, nil
}

// RemoveMissing soft-deletes the live media below folder whose path was not
// seen during a pass.
func (ix *Indexer) RemoveMissing(ctx context.Context, entryPoint, folder string, seen map[string]struct{}) ([]int64, error) {
	stored, err := ix.repo.ListMediaUnder(ctx, folder)
	if err != nil {
		return nil, err
	}

	var missing []int64
	for _, m := range stored {
		if _, ok := seen[m.Path]; !ok {
			missing = append(missing, m.ID)
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}

	ix.logger.Info("Pruning missing media",
		interfaces.String("entry_point", entryPoint),
		interfaces.String("folder", folder),
		interfaces.Int("count", len(missing)))
	return ix.Remove(ctx, entryPoint, missing...)
}

// PublishDeleted notifies observers of removed media.
func (ix *Indexer) PublishDeleted(ctx context.Context, entryPoint string, ids []int64) {
	if len(ids) == 0 {
		return
	}
	metrics.IndexerMediaDeletedTotal.Add(float64(len(ids)))
	ix.publisher.Publish(ctx, domain.NewMediaDeletedEvent(entryPoint, ids))
}
