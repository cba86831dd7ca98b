package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
	pkgerrors "github.com/narwhalmedia/medialibrary/pkg/errors"
	"github.com/narwhalmedia/medialibrary/pkg/interfaces"
	"github.com/narwhalmedia/medialibrary/pkg/repository"
)

// deleteChunkSize bounds the number of ids bound into one statement.
const deleteChunkSize = 500

// GormRepository implements the repository interfaces using GORM.
// Writes are serialized by a single lock; composite reads run in a read
// transaction so they observe one snapshot.
type GormRepository struct {
	db     *gorm.DB
	logger interfaces.Logger
	mu     sync.Mutex
}

// NewGormRepository creates a new GORM repository.
func NewGormRepository(db *gorm.DB, logger interfaces.Logger) *GormRepository {
	return &GormRepository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates or updates every table.
func (r *GormRepository) Migrate(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.db.WithContext(ctx).AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

func (r *GormRepository) write(ctx context.Context, fn func(tx *gorm.DB) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *GormRepository) read(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var opts []*sql.TxOptions
	if r.db.Dialector.Name() == "postgres" {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	}
	return r.db.WithContext(ctx).Transaction(fn, opts...)
}

// GetMedia retrieves a live media item by ID.
func (r *GormRepository) GetMedia(ctx context.Context, id int64) (*domain.Media, error) {
	row, err := repository.FindByID[Media](ctx, r.db, id, "Genres")
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, domain.ErrMediaNotFound
		}
		return nil, fmt.Errorf("failed to get media: %w", err)
	}
	return toDomainMedia(row), nil
}

// GetMediaByURI retrieves a media item by URI, soft-deleted rows included.
func (r *GormRepository) GetMediaByURI(ctx context.Context, uri string) (*domain.Media, error) {
	var row Media
	err := r.db.WithContext(ctx).Unscoped().Preload("Genres").Where("uri = ?", uri).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMediaNotFound
		}
		return nil, fmt.Errorf("failed to get media by uri: %w", err)
	}
	return toDomainMedia(&row), nil
}

var playbackColumns = []string{"progress", "play_count", "last_played_at", "flags", "audio_track", "spu_track"}

// SaveMedia inserts a new media (ID 0) or rewrites an existing one, restoring
// it when soft-deleted. Album, artist and genres are resolved in the same
// transaction and the media is updated with the resulting ids. The playback
// state of an existing row is kept as stored.
func (r *GormRepository) SaveMedia(ctx context.Context, media *domain.Media) error {
	return r.write(ctx, func(tx *gorm.DB) error {
		row := toModelMedia(media)

		artistID, err := resolveArtist(tx, media.ReferenceArtist())
		if err != nil {
			return err
		}
		row.ArtistID = artistID

		albumID, err := resolveAlbum(tx, media.AlbumTitle, artistID, media.Year, media.ArtworkURL)
		if err != nil {
			return err
		}
		row.AlbumID = albumID

		genres, err := resolveGenres(tx, media.Genres)
		if err != nil {
			return err
		}

		if row.ID == 0 {
			if err := tx.Omit(clause.Associations).Create(row).Error; err != nil {
				if pkgerrors.IsDuplicateError(err) {
					return pkgerrors.Wrap(pkgerrors.ErrorTypeConflict, "media already exists", err)
				}
				return fmt.Errorf("failed to create media: %w", err)
			}
		} else {
			row.DeletedAt = gorm.DeletedAt{}
			// playback state is owned by the playback setters, never by a re-parse
			if err := tx.Unscoped().Omit(append([]string{clause.Associations}, playbackColumns...)...).Save(row).Error; err != nil {
				return fmt.Errorf("failed to update media: %w", err)
			}
			var stored Media
			if err := tx.Unscoped().Select(playbackColumns).First(&stored, row.ID).Error; err != nil {
				return fmt.Errorf("failed to reload playback state: %w", err)
			}
			media.Time = stored.Progress
			media.PlayCount = stored.PlayCount
			media.LastPlayedAt = stored.LastPlayedAt
			media.Flags = stored.Flags
			media.AudioTrack = stored.AudioTrack
			media.SpuTrack = stored.SpuTrack
		}

		assoc := tx.Model(row).Association("Genres")
		switch {
		case len(genres) > 0:
			err = assoc.Replace(genres)
		case media.ID != 0:
			err = assoc.Clear()
		}
		if err != nil {
			return fmt.Errorf("failed to link genres: %w", err)
		}

		if media.ID != 0 {
			// a re-parse may have moved the media to another album or artist
			if err := cleanupOrphans(tx); err != nil {
				return err
			}
		}

		media.ID = row.ID
		media.AlbumID = deref(row.AlbumID)
		media.ArtistID = deref(row.ArtistID)
		media.CreatedAt = row.CreatedAt
		media.UpdatedAt = row.UpdatedAt
		media.DeletedAt = nil
		return nil
	})
}

// RemoveMedia soft-deletes the given live media and returns the ids actually removed.
func (r *GormRepository) RemoveMedia(ctx context.Context, ids ...int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var removed []int64
	err := r.write(ctx, func(tx *gorm.DB) error {
		for _, chunk := range chunks(ids) {
			var live []int64
			if err := tx.Model(&Media{}).Where("id IN ?", chunk).Order("id").Pluck("id", &live).Error; err != nil {
				return err
			}
			removed = append(removed, live...)
		}
		return softDelete(tx, removed)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to remove media: %w", err)
	}
	return removed, nil
}

// RemoveMediaUnder soft-deletes every live media below folder, at any depth.
func (r *GormRepository) RemoveMediaUnder(ctx context.Context, folder string) ([]int64, error) {
	var removed []int64
	err := r.write(ctx, func(tx *gorm.DB) error {
		var err error
		removed, err = removeUnder(tx, folder)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to remove media under %s: %w", folder, err)
	}
	return removed, nil
}

// RemoveMediaInFolder soft-deletes the live media directly inside folder.
func (r *GormRepository) RemoveMediaInFolder(ctx context.Context, folder string) ([]int64, error) {
	var removed []int64
	err := r.write(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(&Media{}).Where("folder = ?", folder).Order("id").Pluck("id", &removed).Error; err != nil {
			return err
		}
		return softDelete(tx, removed)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to remove media in %s: %w", folder, err)
	}
	return removed, nil
}

// ListMediaUnder returns the live media below folder.
func (r *GormRepository) ListMediaUnder(ctx context.Context, folder string) ([]*domain.Media, error) {
	prefix := domain.FolderPrefix(folder)
	rows, err := repository.List[Media](ctx, r.db, "id", "substr(path, 1, ?) = ?", utf8.RuneCountInString(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list media under %s: %w", folder, err)
	}
	return toDomainMediaList(rows), nil
}

// IncrementPlayCount bumps the play count and stamps the last played time.
func (r *GormRepository) IncrementPlayCount(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.write(ctx, func(tx *gorm.DB) error {
		var err error
		ok, err = repository.UpdateColumns[Media](ctx, tx, id, map[string]interface{}{
			"play_count":     gorm.Expr("play_count + ?", 1),
			"last_played_at": time.Now().UTC(),
		})
		return err
	})
	return ok, err
}

// UpdateProgress stores the last playback position.
func (r *GormRepository) UpdateProgress(ctx context.Context, id int64, position int64) (bool, error) {
	var ok bool
	err := r.write(ctx, func(tx *gorm.DB) error {
		var err error
		ok, err = repository.UpdateColumns[Media](ctx, tx, id, map[string]interface{}{"progress": position})
		return err
	})
	return ok, err
}

// SetFlags replaces the user flags of a media.
func (r *GormRepository) SetFlags(ctx context.Context, id int64, flags int) (bool, error) {
	var ok bool
	err := r.write(ctx, func(tx *gorm.DB) error {
		var err error
		ok, err = repository.UpdateColumns[Media](ctx, tx, id, map[string]interface{}{"flags": flags})
		return err
	})
	return ok, err
}

// AddEntryPoint registers a discovery root. Registering it again is a no-op.
func (r *GormRepository) AddEntryPoint(ctx context.Context, path string) (*domain.EntryPoint, error) {
	var ep *EntryPoint
	err := r.write(ctx, func(tx *gorm.DB) error {
		existing, err := repository.FindOneBy[EntryPoint](ctx, tx, "path = ?", path)
		if err == nil {
			ep = existing
			return nil
		}
		if !pkgerrors.IsNotFound(err) {
			return err
		}
		ep = &EntryPoint{Path: path}
		return repository.Create(ctx, tx, ep)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add entry point: %w", err)
	}
	return toDomainEntryPoint(ep), nil
}

// GetEntryPoint retrieves an entry point by path.
func (r *GormRepository) GetEntryPoint(ctx context.Context, path string) (*domain.EntryPoint, error) {
	ep, err := repository.FindOneBy[EntryPoint](ctx, r.db, "path = ?", path)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, domain.ErrEntryPointNotFound
		}
		return nil, err
	}
	return toDomainEntryPoint(ep), nil
}

// MarkDiscovered stamps the end of a complete pass.
func (r *GormRepository) MarkDiscovered(ctx context.Context, path string, at time.Time) error {
	return r.write(ctx, func(tx *gorm.DB) error {
		return tx.Model(&EntryPoint{}).Where("path = ?", path).Update("last_discovered_at", at.UTC()).Error
	})
}

// RemoveEntryPoint forgets a root and soft-deletes its media.
func (r *GormRepository) RemoveEntryPoint(ctx context.Context, path string) ([]int64, error) {
	var removed []int64
	err := r.write(ctx, func(tx *gorm.DB) error {
		result := tx.Where("path = ?", path).Delete(&EntryPoint{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrEntryPointNotFound
		}
		var err error
		removed, err = removeUnder(tx, path)
		return err
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// ListEntryPoints lists every registered root.
func (r *GormRepository) ListEntryPoints(ctx context.Context) ([]*domain.EntryPoint, error) {
	rows, err := repository.List[EntryPoint](ctx, r.db, "path", "")
	if err != nil {
		return nil, fmt.Errorf("failed to list entry points: %w", err)
	}
	out := make([]*domain.EntryPoint, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainEntryPoint(row))
	}
	return out, nil
}

// BanFolder adds folder to the ban list and soft-deletes the media it covers:
// everything below it when recursive, only its direct children otherwise.
func (r *GormRepository) BanFolder(ctx context.Context, path string, recursive bool) ([]int64, error) {
	var removed []int64
	err := r.write(ctx, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&BannedFolder{Path: path}).Error; err != nil {
			return err
		}
		if recursive {
			var err error
			removed, err = removeUnder(tx, path)
			return err
		}
		if err := tx.Model(&Media{}).Where("folder = ?", path).Order("id").Pluck("id", &removed).Error; err != nil {
			return err
		}
		return softDelete(tx, removed)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ban folder: %w", err)
	}
	return removed, nil
}

// UnbanFolder removes folder from the ban list.
func (r *GormRepository) UnbanFolder(ctx context.Context, path string) error {
	return r.write(ctx, func(tx *gorm.DB) error {
		return tx.Where("path = ?", path).Delete(&BannedFolder{}).Error
	})
}

// ListBannedFolders lists the ban list.
func (r *GormRepository) ListBannedFolders(ctx context.Context) ([]*domain.BannedFolder, error) {
	rows, err := repository.List[BannedFolder](ctx, r.db, "path", "")
	if err != nil {
		return nil, fmt.Errorf("failed to list banned folders: %w", err)
	}
	out := make([]*domain.BannedFolder, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainBannedFolder(row))
	}
	return out, nil
}

// ListMedia lists the live media of a type.
func (r *GormRepository) ListMedia(ctx context.Context, mediaType domain.MediaType) ([]*domain.Media, error) {
	var rows []*Media
	err := r.db.WithContext(ctx).Preload("Genres").
		Where("type = ?", int(mediaType)).
		Order("title, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	return toDomainMediaList(rows), nil
}

// CountMedia counts the live media of a type.
func (r *GormRepository) CountMedia(ctx context.Context, mediaType domain.MediaType) (int64, error) {
	return repository.Count[Media](ctx, r.db, "type = ?", int(mediaType))
}

// ListMediaByArtist lists the media whose reference artist is artistID.
func (r *GormRepository) ListMediaByArtist(ctx context.Context, artistID int64) ([]*domain.Media, error) {
	var rows []*Media
	err := r.db.WithContext(ctx).Preload("Genres").
		Where("artist_id = ?", artistID).
		Order("album_title, disc, track, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list media by artist: %w", err)
	}
	return toDomainMediaList(rows), nil
}

// ListMediaByGenre lists the media tagged with genreID.
func (r *GormRepository) ListMediaByGenre(ctx context.Context, genreID int64) ([]*domain.Media, error) {
	var rows []*Media
	err := r.db.WithContext(ctx).Preload("Genres").
		Joins("JOIN media_genres ON media_genres.media_id = media.id").
		Where("media_genres.genre_id = ?", genreID).
		Order("media.title, media.id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list media by genre: %w", err)
	}
	return toDomainMediaList(rows), nil
}

// ListLastPlayed lists played media, most recent first.
func (r *GormRepository) ListLastPlayed(ctx context.Context, limit int) ([]*domain.Media, error) {
	var rows []*Media
	q := r.db.WithContext(ctx).Preload("Genres").
		Where("last_played_at IS NOT NULL").
		Order("last_played_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list last played media: %w", err)
	}
	return toDomainMediaList(rows), nil
}

// ListDeletedMedia lists soft-deleted media.
func (r *GormRepository) ListDeletedMedia(ctx context.Context) ([]*domain.Media, error) {
	var rows []*Media
	err := r.db.WithContext(ctx).Unscoped().
		Where("deleted_at IS NOT NULL").
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list deleted media: %w", err)
	}
	return toDomainMediaList(rows), nil
}

type albumStats struct {
	AlbumID  int64
	NbTracks int
	Duration int64
}

// ListAlbums lists albums with their track counts.
func (r *GormRepository) ListAlbums(ctx context.Context) ([]*domain.Album, error) {
	var out []*domain.Album
	err := r.read(ctx, func(tx *gorm.DB) error {
		var rows []*Album
		if err := tx.Preload("Artist").Order("title, id").Find(&rows).Error; err != nil {
			return err
		}

		var stats []albumStats
		err := tx.Model(&Media{}).
			Select("album_id, COUNT(*) AS nb_tracks, COALESCE(SUM(duration), 0) AS duration").
			Where("album_id IS NOT NULL").
			Group("album_id").
			Scan(&stats).Error
		if err != nil {
			return err
		}
		byAlbum := make(map[int64]albumStats, len(stats))
		for _, s := range stats {
			byAlbum[s.AlbumID] = s
		}

		out = make([]*domain.Album, 0, len(rows))
		for _, row := range rows {
			a := toDomainAlbum(row)
			a.NbTracks = byAlbum[row.ID].NbTracks
			a.Duration = byAlbum[row.ID].Duration
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list albums: %w", err)
	}
	return out, nil
}

// GetAlbum retrieves an album with its tracks ordered by disc, then track.
func (r *GormRepository) GetAlbum(ctx context.Context, id int64) (*domain.Album, error) {
	var album *domain.Album
	err := r.read(ctx, func(tx *gorm.DB) error {
		row, err := repository.FindByID[Album](ctx, tx, id, "Artist")
		if err != nil {
			return err
		}
		var tracks []*Media
		if err := tx.Preload("Genres").Where("album_id = ?", id).Order("disc, track, id").Find(&tracks).Error; err != nil {
			return err
		}

		album = toDomainAlbum(row)
		album.Tracks = toDomainMediaList(tracks)
		album.NbTracks = len(tracks)
		for _, t := range tracks {
			album.Duration += t.Duration
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return album, nil
}

type countRow struct {
	ID    int64
	Count int
}

// ListArtists lists artists with their album and track counts.
func (r *GormRepository) ListArtists(ctx context.Context) ([]*domain.Artist, error) {
	var out []*domain.Artist
	err := r.read(ctx, func(tx *gorm.DB) error {
		var rows []*Artist
		if err := tx.Order("name, id").Find(&rows).Error; err != nil {
			return err
		}

		var albums, tracks []countRow
		if err := tx.Model(&Album{}).Select("artist_id AS id, COUNT(*) AS count").
			Where("artist_id IS NOT NULL").Group("artist_id").Scan(&albums).Error; err != nil {
			return err
		}
		if err := tx.Model(&Media{}).Select("artist_id AS id, COUNT(*) AS count").
			Where("artist_id IS NOT NULL").Group("artist_id").Scan(&tracks).Error; err != nil {
			return err
		}
		nbAlbums, nbTracks := countMap(albums), countMap(tracks)

		out = make([]*domain.Artist, 0, len(rows))
		for _, row := range rows {
			out = append(out, &domain.Artist{
				ID:         row.ID,
				Name:       row.Name,
				ArtworkURL: row.ArtworkURL,
				NbAlbums:   nbAlbums[row.ID],
				NbTracks:   nbTracks[row.ID],
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list artists: %w", err)
	}
	return out, nil
}

// ListGenres lists genres with their track counts.
func (r *GormRepository) ListGenres(ctx context.Context) ([]*domain.Genre, error) {
	var out []*domain.Genre
	err := r.read(ctx, func(tx *gorm.DB) error {
		var rows []*Genre
		if err := tx.Order("name, id").Find(&rows).Error; err != nil {
			return err
		}

		var tracks []countRow
		if err := tx.Table("media_genres").Select("genre_id AS id, COUNT(*) AS count").
			Group("genre_id").Scan(&tracks).Error; err != nil {
			return err
		}
		nbTracks := countMap(tracks)

		out = make([]*domain.Genre, 0, len(rows))
		for _, row := range rows {
			out = append(out, &domain.Genre{ID: row.ID, Name: row.Name, NbTracks: nbTracks[row.ID]})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list genres: %w", err)
	}
	return out, nil
}

func resolveArtist(tx *gorm.DB, name string) (*int64, error) {
	key := domain.NormalizeName(name)
	if key == "" {
		return nil, nil
	}

	var artist Artist
	err := tx.Where("normalized_name = ?", key).Take(&artist).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		artist = Artist{Name: name, NormalizedName: key}
		err = tx.Create(&artist).Error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve artist %q: %w", name, err)
	}
	return &artist.ID, nil
}

func resolveAlbum(tx *gorm.DB, title string, artistID *int64, year int, artworkURL string) (*int64, error) {
	key := domain.NormalizeName(title)
	if key == "" {
		return nil, nil
	}

	q := tx.Where("normalized_title = ?", key)
	if artistID == nil {
		q = q.Where("artist_id IS NULL")
	} else {
		q = q.Where("artist_id = ?", *artistID)
	}

	var album Album
	err := q.Take(&album).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		album = Album{Title: title, NormalizedTitle: key, ArtistID: artistID, Year: year, ArtworkURL: artworkURL}
		err = tx.Omit(clause.Associations).Create(&album).Error
	case err == nil:
		updates := map[string]interface{}{}
		if album.Year == 0 && year != 0 {
			updates["year"] = year
		}
		if album.ArtworkURL == "" && artworkURL != "" {
			updates["artwork_url"] = artworkURL
		}
		if len(updates) > 0 {
			err = tx.Model(&album).Updates(updates).Error
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve album %q: %w", title, err)
	}
	return &album.ID, nil
}

func resolveGenres(tx *gorm.DB, names []string) ([]Genre, error) {
	genres := make([]Genre, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = domain.NormalizeGenre(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		var genre Genre
		err := tx.Where("name = ?", name).Take(&genre).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			genre = Genre{Name: name}
			err = tx.Create(&genre).Error
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve genre %q: %w", name, err)
		}
		genres = append(genres, genre)
	}
	return genres, nil
}

func removeUnder(tx *gorm.DB, folder string) ([]int64, error) {
	prefix := domain.FolderPrefix(folder)
	var ids []int64
	err := tx.Model(&Media{}).
		Where("substr(path, 1, ?) = ?", utf8.RuneCountInString(prefix), prefix).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, softDelete(tx, ids)
}

// softDelete detaches the media from albums, artists and genres, marks them
// deleted and removes whatever was left unreferenced.
func softDelete(tx *gorm.DB, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, chunk := range chunks(ids) {
		err := tx.Model(&Media{}).Where("id IN ?", chunk).Updates(map[string]interface{}{
			"deleted_at": now,
			"album_id":   nil,
			"artist_id":  nil,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to soft delete media: %w", err)
		}
		if err := tx.Exec("DELETE FROM media_genres WHERE media_id IN ?", chunk).Error; err != nil {
			return fmt.Errorf("failed to unlink genres: %w", err)
		}
	}
	return cleanupOrphans(tx)
}

func cleanupOrphans(tx *gorm.DB) error {
	statements := []string{
		`DELETE FROM albums WHERE id NOT IN (
			SELECT album_id FROM media WHERE album_id IS NOT NULL AND deleted_at IS NULL)`,
		`DELETE FROM artists WHERE id NOT IN (
			SELECT artist_id FROM media WHERE artist_id IS NOT NULL AND deleted_at IS NULL)
		AND id NOT IN (SELECT artist_id FROM albums WHERE artist_id IS NOT NULL)`,
		`DELETE FROM genres WHERE id NOT IN (SELECT genre_id FROM media_genres)`,
	}
	for _, stmt := range statements {
		if err := tx.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to clean up orphans: %w", err)
		}
	}
	return nil
}

func chunks(ids []int64) [][]int64 {
	var out [][]int64
	for len(ids) > deleteChunkSize {
		out = append(out, ids[:deleteChunkSize])
		ids = ids[deleteChunkSize:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

func countMap(rows []countRow) map[int64]int {
	m := make(map[int64]int, len(rows))
	for _, row := range rows {
		m[row.ID] = row.Count
	}
	return m
}

func deref(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
