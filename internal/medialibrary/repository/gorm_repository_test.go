package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	persistence "github.com/narwhalmedia/medialibrary/internal/infrastructure/persistence/gorm"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/repository"
	"github.com/narwhalmedia/medialibrary/pkg/logger"
	"github.com/narwhalmedia/medialibrary/test/testutil"
)

type RepositoryTestSuite struct {
	suite.Suite
	repo *repository.GormRepository
	ctx  context.Context
}

func (suite *RepositoryTestSuite) SetupTest() {
	suite.ctx = context.Background()
	db := persistence.NewTestDB(suite.T())
	suite.repo = repository.NewGormRepository(db, logger.NewNoopLogger())
	suite.Require().NoError(suite.repo.Migrate(suite.ctx))
}

func (suite *RepositoryTestSuite) newTrack(path, album, albumArtist string, disc, track int) *domain.Media {
	return testutil.Track(path, "/music", album, albumArtist, disc, track)
}

func (suite *RepositoryTestSuite) save(m *domain.Media) *domain.Media {
	suite.Require().NoError(suite.repo.SaveMedia(suite.ctx, m))
	return m
}

func (suite *RepositoryTestSuite) TestSaveMedia_Insert() {
	// Arrange
	m := suite.newTrack("/music/X/01.mp3", "X", "A", 1, 1)

	// Act
	err := suite.repo.SaveMedia(suite.ctx, m)

	// Assert
	suite.Require().NoError(err)
	suite.NotZero(m.ID)
	suite.NotZero(m.AlbumID)
	suite.NotZero(m.ArtistID)

	retrieved, err := suite.repo.GetMedia(suite.ctx, m.ID)
	suite.Require().NoError(err)
	suite.Equal(m.URI, retrieved.URI)
	suite.Equal(domain.MediaTypeAudio, retrieved.Type)
	suite.Equal([]string{"Rock"}, retrieved.Genres)
	suite.Equal(domain.TrackUnset, retrieved.AudioTrack)
}

func (suite *RepositoryTestSuite) TestSaveMedia_DuplicateURIConflicts() {
	suite.save(suite.newTrack("/music/X/01.mp3", "X", "A", 1, 1))

	err := suite.repo.SaveMedia(suite.ctx, suite.newTrack("/music/X/01.mp3", "X", "A", 1, 1))

	suite.Error(err)
}

func (suite *RepositoryTestSuite) TestAlbumWithOrderedTracks() {
	// Arrange
	second := suite.save(suite.newTrack("/music/X/02.mp3", "X", "A", 1, 2))
	first := suite.save(suite.newTrack("/music/X/01.mp3", "X", "A", 1, 1))

	// Act
	albums, err := suite.repo.ListAlbums(suite.ctx)
	suite.Require().NoError(err)
	artists, err := suite.repo.ListArtists(suite.ctx)
	suite.Require().NoError(err)

	// Assert
	suite.Require().Len(albums, 1)
	suite.Equal("X", albums[0].Title)
	suite.Equal("A", albums[0].ArtistName)
	suite.Equal(2, albums[0].NbTracks)
	suite.Equal(int64(2000), albums[0].Duration)

	suite.Require().Len(artists, 1)
	suite.Equal("A", artists[0].Name)
	suite.Equal(1, artists[0].NbAlbums)
	suite.Equal(2, artists[0].NbTracks)

	album, err := suite.repo.GetAlbum(suite.ctx, albums[0].ID)
	suite.Require().NoError(err)
	suite.Require().Len(album.Tracks, 2)
	suite.Equal(first.ID, album.Tracks[0].ID)
	suite.Equal(second.ID, album.Tracks[1].ID)
}

func (suite *RepositoryTestSuite) TestDeduplication_NormalizedNames() {
	suite.save(suite.newTrack("/music/X/01.mp3", "X", "The Band", 1, 1))
	suite.save(suite.newTrack("/music/X/02.mp3", " x ", "the band ", 1, 2))

	albums, err := suite.repo.ListAlbums(suite.ctx)
	suite.Require().NoError(err)
	artists, err := suite.repo.ListArtists(suite.ctx)
	suite.Require().NoError(err)
	genres, err := suite.repo.ListGenres(suite.ctx)
	suite.Require().NoError(err)

	suite.Len(albums, 1)
	suite.Len(artists, 1)
	suite.Require().Len(genres, 1)
	suite.Equal(2, genres[0].NbTracks)
}

func (suite *RepositoryTestSuite) TestAlbumsScopedByArtist() {
	suite.save(suite.newTrack("/music/A/X/01.mp3", "X", "A", 1, 1))
	suite.save(suite.newTrack("/music/B/X/01.mp3", "X", "B", 1, 1))
	suite.save(suite.newTrack("/music/none/X/01.mp3", "X", "", 1, 1))
	suite.save(suite.newTrack("/music/none/X/02.mp3", "X", "", 1, 2))

	albums, err := suite.repo.ListAlbums(suite.ctx)
	suite.Require().NoError(err)

	suite.Len(albums, 3)
}

func (suite *RepositoryTestSuite) TestRemoveMedia_OrphanCleanup() {
	// Arrange
	a := suite.save(suite.newTrack("/music/X/01.mp3", "X", "A", 1, 1))
	b := suite.save(suite.newTrack("/music/X/02.mp3", "X", "A", 1, 2))

	// Act
	removed, err := suite.repo.RemoveMedia(suite.ctx, a.ID)
	suite.Require().NoError(err)

	// Assert
	suite.Equal([]int64{a.ID}, removed)
	albums, _ := suite.repo.ListAlbums(suite.ctx)
	suite.Len(albums, 1)

	removed, err = suite.repo.RemoveMedia(suite.ctx, b.ID, a.ID)
	suite.Require().NoError(err)
	suite.Equal([]int64{b.ID}, removed)

	albums, _ = suite.repo.ListAlbums(suite.ctx)
	artists, _ := suite.repo.ListArtists(suite.ctx)
	genres, _ := suite.repo.ListGenres(suite.ctx)
	suite.Empty(albums)
	suite.Empty(artists)
	suite.Empty(genres)

	_, err = suite.repo.GetMedia(suite.ctx, a.ID)
	suite.ErrorIs(err, domain.ErrMediaNotFound)

	deleted, err := suite.repo.ListDeletedMedia(suite.ctx)
	suite.Require().NoError(err)
	suite.Len(deleted, 2)
	suite.True(deleted[0].IsDeleted())
}

func (suite *RepositoryTestSuite) TestSaveMedia_RestoresSoftDeletedRow() {
	// Arrange
	m := suite.save(suite.newTrack("/music/X/01.mp3", "X", "A", 1, 1))
	_, err := suite.repo.RemoveMedia(suite.ctx, m.ID)
	suite.Require().NoError(err)

	// Act
	stored, err := suite.repo.GetMediaByURI(suite.ctx, m.URI)
	suite.Require().NoError(err)
	suite.Require().True(stored.IsDeleted())
	stored.ApplyMetadata(&domain.Metadata{Title: "01", Album: "X", AlbumArtist: "A"}, domain.MediaTypeAudio)
	suite.Require().NoError(suite.repo.SaveMedia(suite.ctx, stored))

	// Assert
	suite.Equal(m.ID, stored.ID)
	restored, err := suite.repo.GetMedia(suite.ctx, m.ID)
	suite.Require().NoError(err)
	suite.False(restored.IsDeleted())
	suite.NotZero(restored.AlbumID)
}

func (suite *RepositoryTestSuite) TestSaveMedia_ReparseMovesAlbum() {
	m := suite.save(suite.newTrack("/music/X/01.mp3", "X", "A", 1, 1))

	m.ApplyMetadata(&domain.Metadata{Title: "01", Album: "Y", AlbumArtist: "A"}, domain.MediaTypeAudio)
	suite.Require().NoError(suite.repo.SaveMedia(suite.ctx, m))

	albums, err := suite.repo.ListAlbums(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(albums, 1)
	suite.Equal("Y", albums[0].Title)
	genres, _ := suite.repo.ListGenres(suite.ctx)
	suite.Empty(genres)
}

func (suite *RepositoryTestSuite) TestRemoveMediaUnder_PrefixIsFolderAware() {
	a := suite.save(suite.newTrack("/music/X/01.mp3", "X", "A", 1, 1))
	suite.save(suite.newTrack("/music/Xtra/01.mp3", "Xtra", "A", 1, 1))

	removed, err := suite.repo.RemoveMediaUnder(suite.ctx, "/music/X")

	suite.Require().NoError(err)
	suite.Equal([]int64{a.ID}, removed)
}

func (suite *RepositoryTestSuite) TestBanFolder_Recursive() {
	a := suite.save(suite.newTrack("/music/X/01.mp3", "X", "A", 1, 1))
	b := suite.save(suite.newTrack("/music/X/CD2/01.mp3", "X", "A", 2, 1))
	suite.save(suite.newTrack("/music/Y/01.mp3", "Y", "A", 1, 1))

	removed, err := suite.repo.BanFolder(suite.ctx, "/music/X", true)

	suite.Require().NoError(err)
	suite.ElementsMatch([]int64{a.ID, b.ID}, removed)
	banned, _ := suite.repo.ListBannedFolders(suite.ctx)
	suite.Require().Len(banned, 1)
	suite.Equal("/music/X", banned[0].Path)
}

func (suite *RepositoryTestSuite) TestBanFolder_ExactIsIdempotent() {
	a := suite.save(suite.newTrack("/music/X/01.mp3", "X", "A", 1, 1))
	suite.save(suite.newTrack("/music/X/CD2/01.mp3", "X", "A", 2, 1))

	removed, err := suite.repo.BanFolder(suite.ctx, "/music/X", false)
	suite.Require().NoError(err)
	suite.Equal([]int64{a.ID}, removed)

	removed, err = suite.repo.BanFolder(suite.ctx, "/music/X", false)
	suite.Require().NoError(err)
	suite.Empty(removed)

	banned, _ := suite.repo.ListBannedFolders(suite.ctx)
	suite.Len(banned, 1)

	suite.Require().NoError(suite.repo.UnbanFolder(suite.ctx, "/music/X"))
	banned, _ = suite.repo.ListBannedFolders(suite.ctx)
	suite.Empty(banned)
}

func (suite *RepositoryTestSuite) TestEntryPoints() {
	// Arrange
	first, err := suite.repo.AddEntryPoint(suite.ctx, "/music")
	suite.Require().NoError(err)
	again, err := suite.repo.AddEntryPoint(suite.ctx, "/music")
	suite.Require().NoError(err)
	suite.Equal(first.ID, again.ID)

	m := suite.save(suite.newTrack("/music/X/01.mp3", "X", "A", 1, 1))
	now := time.Now()
	suite.Require().NoError(suite.repo.MarkDiscovered(suite.ctx, "/music", now))

	ep, err := suite.repo.GetEntryPoint(suite.ctx, "/music")
	suite.Require().NoError(err)
	suite.Require().NotNil(ep.LastDiscoveredAt)

	// Act
	removed, err := suite.repo.RemoveEntryPoint(suite.ctx, "/music")

	// Assert
	suite.Require().NoError(err)
	suite.Equal([]int64{m.ID}, removed)
	eps, _ := suite.repo.ListEntryPoints(suite.ctx)
	suite.Empty(eps)

	_, err = suite.repo.RemoveEntryPoint(suite.ctx, "/music")
	suite.ErrorIs(err, domain.ErrEntryPointNotFound)
	_, err = suite.repo.GetEntryPoint(suite.ctx, "/music")
	suite.ErrorIs(err, domain.ErrEntryPointNotFound)
}

func (suite *RepositoryTestSuite) TestPlaybackBookkeeping() {
	m := suite.save(suite.newTrack("/music/X/01.mp3", "X", "A", 1, 1))
	other := suite.save(suite.newTrack("/music/X/02.mp3", "X", "A", 1, 2))

	ok, err := suite.repo.IncrementPlayCount(suite.ctx, m.ID)
	suite.Require().NoError(err)
	suite.True(ok)
	time.Sleep(10 * time.Millisecond)
	_, err = suite.repo.IncrementPlayCount(suite.ctx, other.ID)
	suite.Require().NoError(err)

	ok, err = suite.repo.UpdateProgress(suite.ctx, m.ID, 4200)
	suite.Require().NoError(err)
	suite.True(ok)

	ok, err = suite.repo.SetFlags(suite.ctx, m.ID, domain.FlagPaused)
	suite.Require().NoError(err)
	suite.True(ok)

	ok, err = suite.repo.IncrementPlayCount(suite.ctx, 9999)
	suite.Require().NoError(err)
	suite.False(ok)

	stored, err := suite.repo.GetMedia(suite.ctx, m.ID)
	suite.Require().NoError(err)
	suite.Equal(1, stored.PlayCount)
	suite.Equal(int64(4200), stored.Time)
	suite.True(stored.HasFlag(domain.FlagPaused))
	suite.NotNil(stored.LastPlayedAt)

	last, err := suite.repo.ListLastPlayed(suite.ctx, 10)
	suite.Require().NoError(err)
	suite.Require().Len(last, 2)
	suite.Equal(other.ID, last[0].ID)
	suite.Equal(m.ID, last[1].ID)

	last, _ = suite.repo.ListLastPlayed(suite.ctx, 1)
	suite.Len(last, 1)
}

func (suite *RepositoryTestSuite) TestQueriesByTypeArtistGenre() {
	audio := suite.save(suite.newTrack("/music/X/01.mp3", "X", "A", 1, 1))
	video := domain.NewMedia("/videos/clip.mkv", "/videos", 1)
	video.ApplyMetadata(&domain.Metadata{Title: "clip", Width: 1920, Height: 1080}, domain.MediaTypeVideo)
	suite.save(video)

	videos, err := suite.repo.ListMedia(suite.ctx, domain.MediaTypeVideo)
	suite.Require().NoError(err)
	suite.Require().Len(videos, 1)
	suite.Equal(1920, videos[0].Width)

	count, err := suite.repo.CountMedia(suite.ctx, domain.MediaTypeAudio)
	suite.Require().NoError(err)
	suite.Equal(int64(1), count)

	byArtist, err := suite.repo.ListMediaByArtist(suite.ctx, audio.ArtistID)
	suite.Require().NoError(err)
	suite.Len(byArtist, 1)

	genres, _ := suite.repo.ListGenres(suite.ctx)
	suite.Require().Len(genres, 1)
	byGenre, err := suite.repo.ListMediaByGenre(suite.ctx, genres[0].ID)
	suite.Require().NoError(err)
	suite.Require().Len(byGenre, 1)
	suite.Equal(audio.ID, byGenre[0].ID)

	under, err := suite.repo.ListMediaUnder(suite.ctx, "/music")
	suite.Require().NoError(err)
	suite.Len(under, 1)
}

func (suite *RepositoryTestSuite) TestConcurrentReadsDuringWrites() {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			m := domain.NewMedia("/music/X/"+string(rune('a'+i))+".mp3", "/music", 1)
			m.ApplyMetadata(&domain.Metadata{Album: "X", AlbumArtist: "A", Track: i}, domain.MediaTypeAudio)
			assert.NoError(suite.T(), suite.repo.SaveMedia(suite.ctx, m))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			_, err := suite.repo.ListAlbums(suite.ctx)
			assert.NoError(suite.T(), err)
		}
	}()
	wg.Wait()

	count, err := suite.repo.CountMedia(suite.ctx, domain.MediaTypeAudio)
	suite.Require().NoError(err)
	suite.Equal(int64(20), count)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func TestAllModels(t *testing.T) {
	require.Len(t, repository.AllModels(), 6)
}
