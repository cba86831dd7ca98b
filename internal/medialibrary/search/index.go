package search

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
	"github.com/narwhalmedia/medialibrary/pkg/interfaces"
)

// DefaultLimit caps search results when the caller does not.
const DefaultLimit = 100

// Index is a full-text index over media titles, artists, albums and genres.
// It follows the library through the media observers, so it is eventually
// consistent with the store.
type Index struct {
	index  bleve.Index
	logger interfaces.Logger
}

// Open opens the index at path, creating it if needed. An empty path keeps
// the index in memory.
func Open(path string, logger interfaces.Logger) (*Index, error) {
	var (
		idx bleve.Index
		err error
	)
	switch {
	case path == "":
		idx, err = bleve.NewMemOnly(bleve.NewIndexMapping())
	case exists(path):
		idx, err = bleve.Open(path)
	default:
		idx, err = bleve.New(path, bleve.NewIndexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open search index: %w", err)
	}
	return &Index{index: idx, logger: logger}, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

// Close closes the index.
func (i *Index) Close() error {
	return i.index.Close()
}

// IndexMedia adds or replaces media in one batch.
func (i *Index) IndexMedia(media []*domain.Media) error {
	batch := i.index.NewBatch()
	for _, m := range media {
		if err := batch.Index(docID(m.ID), document(m)); err != nil {
			return err
		}
	}
	return i.index.Batch(batch)
}

// Delete removes media by id.
func (i *Index) Delete(ids []int64) error {
	batch := i.index.NewBatch()
	for _, id := range ids {
		batch.Delete(docID(id))
	}
	return i.index.Batch(batch)
}

// Search runs a query string (e.g. "artist:beatles" or plain words) and
// returns matching media ids by relevance.
func (i *Index) Search(input string, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var q query.Query
	if strings.TrimSpace(input) == "" {
		q = bleve.NewMatchAllQuery()
	} else {
		q = bleve.NewQueryStringQuery(input)
	}

	res, err := i.index.Search(bleve.NewSearchRequestOptions(q, limit, 0, false))
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	ids := make([]int64, 0, len(res.Hits))
	for _, hit := range res.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Count returns the number of indexed media.
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}

func (i *Index) OnMediaAdded(media []*domain.Media) {
	if err := i.IndexMedia(media); err != nil {
		i.logger.Error("Failed to index media", interfaces.Error(err))
	}
}

func (i *Index) OnMediaUpdated(media []*domain.Media) {
	i.OnMediaAdded(media)
}

func (i *Index) OnMediaDeleted(ids []int64) {
	if err := i.Delete(ids); err != nil {
		i.logger.Error("Failed to remove media from index", interfaces.Error(err))
	}
}

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func document(m *domain.Media) map[string]interface{} {
	return map[string]interface{}{
		"title":  m.GetTitle(),
		"artist": m.ReferenceArtist(),
		"album":  m.AlbumTitle,
		"genre":  strings.Join(m.Genres, " "),
		"type":   m.Type.String(),
		"year":   m.Year,
	}
}
