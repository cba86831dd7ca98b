package service

import (
	"context"
	"io"

	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/scheduler"
)

// Library is the surface the HTTP API and CLI depend on.
type Library interface {
	// Discovery
	DiscoverEntryPoint(ctx context.Context, path string) error
	RemoveEntryPoint(ctx context.Context, path string) error
	BanFolder(ctx context.Context, path string) error
	UnbanFolder(ctx context.Context, path string) error
	Reload(ctx context.Context) error
	ReloadEntryPoint(ctx context.Context, path string) error

	// Background work
	PauseBackgroundOperations()
	ResumeBackgroundOperations()
	IsWorking() bool
	State() scheduler.State

	// Queries
	GetMedia(ctx context.Context, id int64) (*domain.Media, error)
	GetAudio(ctx context.Context) ([]*domain.Media, error)
	GetVideos(ctx context.Context) ([]*domain.Media, error)
	GetAlbums(ctx context.Context) ([]*domain.Album, error)
	GetAlbumTracks(ctx context.Context, albumID int64) ([]*domain.Media, error)
	GetArtists(ctx context.Context) ([]*domain.Artist, error)
	GetArtistMedia(ctx context.Context, artistID int64) ([]*domain.Media, error)
	GetGenres(ctx context.Context) ([]*domain.Genre, error)
	GetGenreMedia(ctx context.Context, genreID int64) ([]*domain.Media, error)
	GetAudioCount(ctx context.Context) (int64, error)
	GetVideoCount(ctx context.Context) (int64, error)
	LastMediaPlayed(ctx context.Context) ([]*domain.Media, error)
	SearchMedia(ctx context.Context, query string, limit int) ([]*domain.Media, error)
	EntryPoints(ctx context.Context) ([]*domain.EntryPoint, error)
	BannedFolders(ctx context.Context) ([]*domain.BannedFolder, error)

	// Playback bookkeeping
	IncreasePlayCount(ctx context.Context, id int64) bool
	UpdateProgress(ctx context.Context, id int64, position int64) bool
	SetMediaFlags(ctx context.Context, id int64, flags int) bool
	Remove(ctx context.Context, media *domain.Media) bool

	// Artwork
	OpenArtwork(ctx context.Context, key string) (io.ReadCloser, error)
}

var _ Library = (*MediaLibrary)(nil)
