package discovery

import (
	"context"
	"errors"
	"time"

	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/indexer"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/repository"
	"github.com/narwhalmedia/medialibrary/internal/metrics"
	"github.com/narwhalmedia/medialibrary/pkg/interfaces"
)

// Checkpoint is called between files. It blocks while background work is
// paused and returns an error once the pass must stop.
type Checkpoint func(ctx context.Context) error

// Engine runs discovery passes over entry points and feeds the indexer.
type Engine struct {
	entryPoints   repository.EntryPointRepository
	media         repository.MediaRepository
	indexer       *indexer.Indexer
	walker        *Walker
	publisher     indexer.Publisher
	logger        interfaces.Logger
	recursiveBans bool
}

// NewEngine creates a discovery engine.
func NewEngine(
	entryPoints repository.EntryPointRepository,
	media repository.MediaRepository,
	ix *indexer.Indexer,
	walker *Walker,
	publisher indexer.Publisher,
	logger interfaces.Logger,
) *Engine {
	return &Engine{
		entryPoints:   entryPoints,
		media:         media,
		indexer:       ix,
		walker:        walker,
		publisher:     publisher,
		logger:        logger,
		recursiveBans: walker.recursiveBans,
	}
}

// Discover runs one pass over scope, a folder at or below entryPoint.
// Failures are reported on the bus; only cancellation is returned.
func (e *Engine) Discover(ctx context.Context, entryPoint, scope string, checkpoint Checkpoint) error {
	if scope == "" {
		scope = entryPoint
	}
	start := time.Now()
	log := e.logger.WithFields(
		interfaces.String("entry_point", entryPoint),
		interfaces.String("scope", scope))

	if _, err := e.entryPoints.AddEntryPoint(ctx, entryPoint); err != nil {
		log.Error("Failed to register entry point", interfaces.Error(err))
		e.publisher.Publish(ctx, domain.NewDiscoveryStartedEvent(entryPoint))
		e.publisher.Publish(ctx, domain.NewDiscoveryCompletedEvent(entryPoint, err))
		return nil
	}

	e.publisher.Publish(ctx, domain.NewDiscoveryStartedEvent(entryPoint))
	log.Info("Discovery started")

	result, err := e.walk(ctx, entryPoint, scope)
	if err != nil {
		if ctx.Err() != nil {
			return e.cancelled(ctx, log, nil)
		}
		metrics.DiscoveryPassesTotal.WithLabelValues("missing").Inc()
		log.Warn("Entry point unavailable", interfaces.Error(err))
		e.publisher.Publish(ctx, domain.NewDiscoveryCompletedEvent(entryPoint, err))
		return nil
	}

	pass := e.indexer.NewPass(entryPoint, len(result.Candidates))
	for _, c := range result.Candidates {
		if checkpoint != nil {
			if err := checkpoint(ctx); err != nil {
				return e.cancelled(ctx, log, pass)
			}
		}
		if ctx.Err() != nil {
			return e.cancelled(ctx, log, pass)
		}
		pass.Index(ctx, c.Path, c.LastModified)
	}
	if ctx.Err() != nil {
		return e.cancelled(ctx, log, pass)
	}
	pass.Flush(ctx)

	if err := e.keepUnreadable(ctx, pass, result.Unreadable); err != nil {
		log.Error("Failed to list media below unreadable folders", interfaces.Error(err))
	} else if _, err := e.indexer.RemoveMissing(ctx, entryPoint, scope, pass.Seen()); err != nil {
		log.Error("Failed to prune missing media", interfaces.Error(err))
	}

	if err := e.entryPoints.MarkDiscovered(ctx, entryPoint, time.Now()); err != nil {
		log.Warn("Failed to record discovery time", interfaces.Error(err))
	}

	stats := pass.Stats()
	metrics.DiscoveryPassesTotal.WithLabelValues("completed").Inc()
	metrics.DiscoveryPassDuration.Observe(time.Since(start).Seconds())
	log.Info("Discovery completed",
		interfaces.Int("added", stats.Added),
		interfaces.Int("updated", stats.Updated),
		interfaces.Int("unchanged", stats.Unchanged),
		interfaces.Int("failed", stats.Failed),
		interfaces.Duration("duration", time.Since(start)))
	e.publisher.Publish(ctx, domain.NewDiscoveryCompletedEvent(entryPoint, nil))
	return nil
}

func (e *Engine) walk(ctx context.Context, entryPoint, scope string) (*WalkResult, error) {
	if err := CheckRoot(entryPoint); err != nil {
		return nil, err
	}

	bans, err := e.bannedPaths(ctx)
	if err != nil {
		return nil, err
	}

	result, err := e.walker.Walk(ctx, scope, bans, func(folder string) {
		metrics.DiscoveryFoldersTotal.Inc()
		e.publisher.Publish(ctx, domain.NewDiscoveryProgressEvent(entryPoint, folder))
	})
	if errors.Is(err, domain.ErrEntryPointMissing) && scope != entryPoint {
		// the folder is gone but its root is not; everything below it is missing
		return &WalkResult{}, nil
	}
	return result, err
}

func (e *Engine) bannedPaths(ctx context.Context) ([]string, error) {
	banned, err := e.entryPoints.ListBannedFolders(ctx)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(banned))
	for _, b := range banned {
		paths = append(paths, b.Path)
	}
	return paths, nil
}

func (e *Engine) keepUnreadable(ctx context.Context, pass *indexer.Pass, folders []string) error {
	for _, folder := range folders {
		stored, err := e.media.ListMediaUnder(ctx, folder)
		if err != nil {
			return err
		}
		for _, m := range stored {
			pass.MarkSeen(m.Path)
		}
	}
	return nil
}

func (e *Engine) cancelled(ctx context.Context, log interfaces.Logger, pass *indexer.Pass) error {
	if pass != nil {
		pass.FlushPending(ctx)
	}
	metrics.DiscoveryPassesTotal.WithLabelValues("cancelled").Inc()
	log.Info("Discovery cancelled")
	return ctx.Err()
}

// BanFolder excludes path from future passes and removes the media it covered.
func (e *Engine) BanFolder(ctx context.Context, path string) ([]int64, error) {
	removed, err := e.entryPoints.BanFolder(ctx, path, e.recursiveBans)
	if err != nil {
		return nil, err
	}
	e.logger.Info("Folder banned",
		interfaces.String("path", path),
		interfaces.Bool("recursive", e.recursiveBans),
		interfaces.Int("removed", len(removed)))
	e.indexer.PublishDeleted(ctx, path, removed)
	return removed, nil
}

// UnbanFolder lifts a ban; the folder is picked up by the next pass.
func (e *Engine) UnbanFolder(ctx context.Context, path string) error {
	return e.entryPoints.UnbanFolder(ctx, path)
}

// RemoveEntryPoint forgets a root and soft-deletes everything indexed below it.
func (e *Engine) RemoveEntryPoint(ctx context.Context, path string) ([]int64, error) {
	removed, err := e.entryPoints.RemoveEntryPoint(ctx, path)
	if err != nil {
		return nil, err
	}
	e.logger.Info("Entry point removed",
		interfaces.String("entry_point", path),
		interfaces.Int("removed", len(removed)))
	e.indexer.PublishDeleted(ctx, path, removed)
	return removed, nil
}
