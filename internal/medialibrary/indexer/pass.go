package indexer

import (
	"context"

	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
)

// Stats counts the results of a pass.
type Stats struct {
	Added     int
	Updated   int
	Unchanged int
	Failed    int
}

// Pass indexes the candidates of one discovery pass. It batches added and
// updated notifications and reports parsing progress in configured steps.
// A Pass is used by a single goroutine.
type Pass struct {
	ix         *Indexer
	entryPoint string
	total      int
	processed  int
	nextStep   int
	reported   bool

	added   []*domain.Media
	updated []*domain.Media
	seen    map[string]struct{}
	stats   Stats
}

// NewPass starts a pass over total candidates.
func (ix *Indexer) NewPass(entryPoint string, total int) *Pass {
	return &Pass{
		ix:         ix,
		entryPoint: entryPoint,
		total:      total,
		nextStep:   ix.opts.ProgressStep,
		seen:       make(map[string]struct{}, total),
	}
}

// Index indexes one candidate.
func (p *Pass) Index(ctx context.Context, path string, lastModified int64) Result {
	p.seen[path] = struct{}{}

	result, media, _ := p.ix.Index(ctx, p.entryPoint, path, lastModified)
	switch result {
	case Added:
		p.stats.Added++
		p.added = append(p.added, media)
		if len(p.added) >= p.ix.opts.BatchSize {
			p.flushAdded(ctx)
		}
	case Updated:
		p.stats.Updated++
		p.updated = append(p.updated, media)
		if len(p.updated) >= p.ix.opts.BatchSize {
			p.flushUpdated(ctx)
		}
	case Unchanged:
		p.stats.Unchanged++
	case Failed:
		p.stats.Failed++
	}

	p.processed++
	p.reportProgress(ctx)
	return result
}

// MarkSeen records a path that must survive pruning without being indexed.
func (p *Pass) MarkSeen(path string) {
	p.seen[path] = struct{}{}
}

// Seen returns the paths visited so far.
func (p *Pass) Seen() map[string]struct{} {
	return p.seen
}

// Stats returns the results so far.
func (p *Pass) Stats() Stats {
	return p.stats
}

// Flush delivers pending batches and the final progress report.
func (p *Pass) Flush(ctx context.Context) {
	p.FlushPending(ctx)
	if !p.reported {
		p.reported = true
		p.ix.publisher.Publish(ctx, domain.NewParsingProgressEvent(p.entryPoint, 100))
	}
}

// FlushPending delivers pending batches only. A stopped pass calls it so that
// media already stored are still announced.
func (p *Pass) FlushPending(ctx context.Context) {
	p.flushAdded(ctx)
	p.flushUpdated(ctx)
}

func (p *Pass) reportProgress(ctx context.Context) {
	if p.total <= 0 || p.reported {
		return
	}
	percent := p.processed * 100 / p.total
	if percent > 100 {
		percent = 100
	}
	if percent < p.nextStep && percent < 100 {
		return
	}

	step := p.ix.opts.ProgressStep
	p.nextStep = (percent/step + 1) * step
	if percent == 100 {
		p.reported = true
	}
	p.ix.publisher.Publish(ctx, domain.NewParsingProgressEvent(p.entryPoint, percent))
}

func (p *Pass) flushAdded(ctx context.Context) {
	if len(p.added) == 0 {
		return
	}
	p.ix.publisher.Publish(ctx, domain.NewMediaAddedEvent(p.entryPoint, p.added))
	p.added = nil
}

func (p *Pass) flushUpdated(ctx context.Context) {
	if len(p.updated) == 0 {
		return
	}
	p.ix.publisher.Publish(ctx, domain.NewMediaUpdatedEvent(p.entryPoint, p.updated))
	p.updated = nil
}
