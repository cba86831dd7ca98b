package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/repository"
	"github.com/narwhalmedia/medialibrary/pkg/logger"
	"github.com/narwhalmedia/medialibrary/test/testutil"
)

func TestGormRepository_Postgres(t *testing.T) {
	db := testutil.SetupPostgres(t)
	repo := repository.NewGormRepository(db, logger.NewNoopLogger())
	ctx := context.Background()
	require.NoError(t, repo.Migrate(ctx))

	// Arrange
	second := testutil.Track("/music/X/02.mp3", "/music", "X", "A", 1, 2)
	first := testutil.Track("/music/X/01.mp3", "/music", "X", "A", 1, 1)
	other := testutil.Track("/music/Y/01.mp3", "/music", "Y", "B", 1, 1)
	for _, m := range []*domain.Media{second, first, other} {
		require.NoError(t, repo.SaveMedia(ctx, m))
	}

	// Act
	albums, err := repo.ListAlbums(ctx)
	require.NoError(t, err)
	removed, err := repo.RemoveMediaUnder(ctx, "/music/Y")
	require.NoError(t, err)
	remaining, err := repo.ListArtists(ctx)
	require.NoError(t, err)

	// Assert
	require.Len(t, albums, 2)
	album, err := repo.GetAlbum(ctx, albums[0].ID)
	require.NoError(t, err)
	require.Len(t, album.Tracks, 2)
	assert.Equal(t, first.ID, album.Tracks[0].ID)
	assert.Equal(t, second.ID, album.Tracks[1].ID)

	assert.Equal(t, []int64{other.ID}, removed)
	require.Len(t, remaining, 1)
	assert.Equal(t, "A", remaining[0].Name)
}
