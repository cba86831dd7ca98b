package service

import (
	"context"
	stderrors "errors"

	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/repository"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/search"
	"github.com/narwhalmedia/medialibrary/pkg/errors"
	"github.com/narwhalmedia/medialibrary/pkg/interfaces"
)

// store returns the repository, or an unavailable error before Initialize.
func (m *MediaLibrary) store() (*repository.GormRepository, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		return nil, notInitialized()
	}
	return m.repo, nil
}

// GetMedia retrieves a live media item by id.
func (m *MediaLibrary) GetMedia(ctx context.Context, id int64) (*domain.Media, error) {
	repo, err := m.store()
	if err != nil {
		return nil, err
	}
	media, err := repo.GetMedia(ctx, id)
	if stderrors.Is(err, domain.ErrMediaNotFound) {
		return nil, errors.Wrap(errors.ErrorTypeNotFound, "media not found", err)
	}
	return media, err
}

func (m *MediaLibrary) GetAudio(ctx context.Context) ([]*domain.Media, error) {
	repo, err := m.store()
	if err != nil {
		return nil, err
	}
	return repo.ListMedia(ctx, domain.MediaTypeAudio)
}

func (m *MediaLibrary) GetVideos(ctx context.Context) ([]*domain.Media, error) {
	repo, err := m.store()
	if err != nil {
		return nil, err
	}
	return repo.ListMedia(ctx, domain.MediaTypeVideo)
}

func (m *MediaLibrary) GetAlbums(ctx context.Context) ([]*domain.Album, error) {
	repo, err := m.store()
	if err != nil {
		return nil, err
	}
	return repo.ListAlbums(ctx)
}

// GetAlbumTracks lists the tracks of an album by disc and track number.
func (m *MediaLibrary) GetAlbumTracks(ctx context.Context, albumID int64) ([]*domain.Media, error) {
	repo, err := m.store()
	if err != nil {
		return nil, err
	}
	album, err := repo.GetAlbum(ctx, albumID)
	if err != nil {
		return nil, err
	}
	return album.Tracks, nil
}

func (m *MediaLibrary) GetArtists(ctx context.Context) ([]*domain.Artist, error) {
	repo, err := m.store()
	if err != nil {
		return nil, err
	}
	return repo.ListArtists(ctx)
}

func (m *MediaLibrary) GetArtistMedia(ctx context.Context, artistID int64) ([]*domain.Media, error) {
	repo, err := m.store()
	if err != nil {
		return nil, err
	}
	return repo.ListMediaByArtist(ctx, artistID)
}

func (m *MediaLibrary) GetGenres(ctx context.Context) ([]*domain.Genre, error) {
	repo, err := m.store()
	if err != nil {
		return nil, err
	}
	return repo.ListGenres(ctx)
}

func (m *MediaLibrary) GetGenreMedia(ctx context.Context, genreID int64) ([]*domain.Media, error) {
	repo, err := m.store()
	if err != nil {
		return nil, err
	}
	return repo.ListMediaByGenre(ctx, genreID)
}

func (m *MediaLibrary) GetAudioCount(ctx context.Context) (int64, error) {
	repo, err := m.store()
	if err != nil {
		return 0, err
	}
	return repo.CountMedia(ctx, domain.MediaTypeAudio)
}

func (m *MediaLibrary) GetVideoCount(ctx context.Context) (int64, error) {
	repo, err := m.store()
	if err != nil {
		return 0, err
	}
	return repo.CountMedia(ctx, domain.MediaTypeVideo)
}

// LastMediaPlayed lists played media, most recent first.
func (m *MediaLibrary) LastMediaPlayed(ctx context.Context) ([]*domain.Media, error) {
	repo, err := m.store()
	if err != nil {
		return nil, err
	}
	return repo.ListLastPlayed(ctx, m.cfg.Library.LastPlayedLimit)
}

// DeletedMedia lists soft-deleted media.
func (m *MediaLibrary) DeletedMedia(ctx context.Context) ([]*domain.Media, error) {
	repo, err := m.store()
	if err != nil {
		return nil, err
	}
	return repo.ListDeletedMedia(ctx)
}

func (m *MediaLibrary) EntryPoints(ctx context.Context) ([]*domain.EntryPoint, error) {
	repo, err := m.store()
	if err != nil {
		return nil, err
	}
	return repo.ListEntryPoints(ctx)
}

func (m *MediaLibrary) BannedFolders(ctx context.Context) ([]*domain.BannedFolder, error) {
	repo, err := m.store()
	if err != nil {
		return nil, err
	}
	return repo.ListBannedFolders(ctx)
}

// SearchMedia runs a full-text query. Hits whose media has been removed since
// they were indexed are skipped.
func (m *MediaLibrary) SearchMedia(ctx context.Context, query string, limit int) ([]*domain.Media, error) {
	m.mu.RLock()
	idx, repo, ok := m.search, m.repo, m.initialized
	m.mu.RUnlock()
	if !ok {
		return nil, notInitialized()
	}
	if idx == nil {
		return nil, errors.Unavailable("search is disabled")
	}
	if limit <= 0 {
		limit = search.DefaultLimit
	}

	ids, err := idx.Search(query, limit)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeBadRequest, "invalid search query", err)
	}

	out := make([]*domain.Media, 0, len(ids))
	for _, id := range ids {
		media, err := repo.GetMedia(ctx, id)
		if stderrors.Is(err, domain.ErrMediaNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, media)
	}
	return out, nil
}

// MediaCounts reports live media per type, for the metrics collector.
func (m *MediaLibrary) MediaCounts(ctx context.Context) (map[string]int64, error) {
	repo, err := m.store()
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64)
	for _, t := range []domain.MediaType{
		domain.MediaTypeAudio,
		domain.MediaTypeVideo,
		domain.MediaTypePlaylist,
		domain.MediaTypeSubtitle,
	} {
		n, err := repo.CountMedia(ctx, t)
		if err != nil {
			return nil, err
		}
		counts[t.String()] = n
	}
	return counts, nil
}

// IncreasePlayCount bumps the play count and last played time. It returns
// false for unknown media.
func (m *MediaLibrary) IncreasePlayCount(ctx context.Context, id int64) bool {
	if id <= 0 {
		return false
	}
	repo, err := m.store()
	if err != nil {
		return false
	}
	ok, err := repo.IncrementPlayCount(ctx, id)
	if err != nil {
		m.logger.Error("Failed to increase play count", interfaces.Int64("media_id", id), interfaces.Error(err))
		return false
	}
	return ok
}

// UpdateProgress records the playback position.
func (m *MediaLibrary) UpdateProgress(ctx context.Context, id int64, position int64) bool {
	if id == 0 {
		return false
	}
	repo, err := m.store()
	if err != nil {
		return false
	}
	ok, err := repo.UpdateProgress(ctx, id, position)
	if err != nil {
		m.logger.Error("Failed to update progress", interfaces.Int64("media_id", id), interfaces.Error(err))
		return false
	}
	return ok
}

func (m *MediaLibrary) SetMediaFlags(ctx context.Context, id int64, flags int) bool {
	if id <= 0 {
		return false
	}
	repo, err := m.store()
	if err != nil {
		return false
	}
	ok, err := repo.SetFlags(ctx, id, flags)
	if err != nil {
		m.logger.Error("Failed to set media flags", interfaces.Int64("media_id", id), interfaces.Error(err))
		return false
	}
	return ok
}

// Remove schedules a rescan of the folder containing media, which prunes the
// row once its file is gone. It returns false for media the store does not
// know.
func (m *MediaLibrary) Remove(ctx context.Context, media *domain.Media) bool {
	if media == nil || media.ID == 0 {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		return false
	}

	stored, err := m.repo.GetMedia(ctx, media.ID)
	if err != nil {
		return false
	}
	entryPoint := stored.EntryPoint
	if entryPoint == "" {
		entryPoint = stored.Folder
	}
	m.schedule(entryPoint, stored.Folder)
	return true
}
