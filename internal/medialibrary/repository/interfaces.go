package repository

import (
	"context"
	"time"

	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
)

// MediaRepository defines media writes and lookups used while indexing.
type MediaRepository interface {
	GetMedia(ctx context.Context, id int64) (*domain.Media, error)
	GetMediaByURI(ctx context.Context, uri string) (*domain.Media, error)
	SaveMedia(ctx context.Context, media *domain.Media) error
	RemoveMedia(ctx context.Context, ids ...int64) ([]int64, error)
	RemoveMediaUnder(ctx context.Context, folder string) ([]int64, error)
	RemoveMediaInFolder(ctx context.Context, folder string) ([]int64, error)
	ListMediaUnder(ctx context.Context, folder string) ([]*domain.Media, error)
}

// PlaybackRepository defines playback bookkeeping updates.
type PlaybackRepository interface {
	IncrementPlayCount(ctx context.Context, id int64) (bool, error)
	UpdateProgress(ctx context.Context, id int64, position int64) (bool, error)
	SetFlags(ctx context.Context, id int64, flags int) (bool, error)
}

// EntryPointRepository defines entry point and ban list access.
type EntryPointRepository interface {
	AddEntryPoint(ctx context.Context, path string) (*domain.EntryPoint, error)
	GetEntryPoint(ctx context.Context, path string) (*domain.EntryPoint, error)
	MarkDiscovered(ctx context.Context, path string, at time.Time) error
	RemoveEntryPoint(ctx context.Context, path string) ([]int64, error)
	ListEntryPoints(ctx context.Context) ([]*domain.EntryPoint, error)

	BanFolder(ctx context.Context, path string, recursive bool) ([]int64, error)
	UnbanFolder(ctx context.Context, path string) error
	ListBannedFolders(ctx context.Context) ([]*domain.BannedFolder, error)
}

// QueryRepository defines the read side served to library clients.
type QueryRepository interface {
	ListMedia(ctx context.Context, mediaType domain.MediaType) ([]*domain.Media, error)
	CountMedia(ctx context.Context, mediaType domain.MediaType) (int64, error)
	ListMediaByArtist(ctx context.Context, artistID int64) ([]*domain.Media, error)
	ListMediaByGenre(ctx context.Context, genreID int64) ([]*domain.Media, error)
	ListLastPlayed(ctx context.Context, limit int) ([]*domain.Media, error)
	ListDeletedMedia(ctx context.Context) ([]*domain.Media, error)
	ListAlbums(ctx context.Context) ([]*domain.Album, error)
	GetAlbum(ctx context.Context, id int64) (*domain.Album, error)
	ListArtists(ctx context.Context) ([]*domain.Artist, error)
	ListGenres(ctx context.Context) ([]*domain.Genre, error)
}

// Repository aggregates all repository interfaces.
type Repository interface {
	MediaRepository
	PlaybackRepository
	EntryPointRepository
	QueryRepository

	Migrate(ctx context.Context) error
}

var _ Repository = (*GormRepository)(nil)
