package indexer_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	persistence "github.com/narwhalmedia/medialibrary/internal/infrastructure/persistence/gorm"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/artwork"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/indexer"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/repository"
	"github.com/narwhalmedia/medialibrary/pkg/interfaces"
	"github.com/narwhalmedia/medialibrary/pkg/logger"
)

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, path string) (*domain.Metadata, error) {
	args := m.Called(ctx, path)
	md, _ := args.Get(0).(*domain.Metadata)
	return md, args.Error(1)
}

type capturePublisher struct {
	mu     sync.Mutex
	events []interfaces.Event
}

func (p *capturePublisher) Publish(_ context.Context, event interfaces.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *capturePublisher) ofType(eventType string) []interfaces.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []interfaces.Event
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (p *capturePublisher) percents() []int {
	var out []int
	for _, e := range p.ofType(domain.EventParsingProgress) {
		out = append(out, e.(*domain.ParsingProgressEvent).Percent)
	}
	return out
}

func audio(title, artist, album string, track int) *domain.Metadata {
	return &domain.Metadata{
		Title:       title,
		Artist:      artist,
		AlbumArtist: artist,
		Album:       album,
		Track:       track,
		Tracks:      []domain.TrackKind{domain.TrackKindAudio},
	}
}

type IndexerTestSuite struct {
	suite.Suite
	ctx       context.Context
	repo      *repository.GormRepository
	extractor *mockExtractor
	publisher *capturePublisher
	indexer   *indexer.Indexer
}

func (suite *IndexerTestSuite) SetupTest() {
	suite.ctx = context.Background()
	db := persistence.NewTestDB(suite.T())
	suite.repo = repository.NewGormRepository(db, logger.NewNoopLogger())
	suite.Require().NoError(suite.repo.Migrate(suite.ctx))

	suite.extractor = new(mockExtractor)
	suite.publisher = &capturePublisher{}
	suite.indexer = indexer.New(suite.repo, suite.extractor, suite.publisher, logger.NewNoopLogger(),
		indexer.Options{ProgressStep: 10, BatchSize: 2})
}

func (suite *IndexerTestSuite) TestIndex_NewFileIsAdded() {
	// Arrange
	suite.extractor.On("Extract", mock.Anything, "/music/X/01.mp3").
		Return(audio("One", "A", "X", 1), nil).Once()

	// Act
	result, media, err := suite.indexer.Index(suite.ctx, "/music", "/music/X/01.mp3", 100)

	// Assert
	suite.Require().NoError(err)
	suite.Equal(indexer.Added, result)
	suite.Require().NotNil(media)
	suite.NotZero(media.ID)
	suite.Equal(domain.MediaTypeAudio, media.Type)
	suite.Equal("One", media.Title)
	suite.extractor.AssertExpectations(suite.T())
}

func (suite *IndexerTestSuite) TestIndex_UnchangedSkipsExtraction() {
	// Arrange
	suite.extractor.On("Extract", mock.Anything, "/music/X/01.mp3").
		Return(audio("One", "A", "X", 1), nil).Once()
	_, _, err := suite.indexer.Index(suite.ctx, "/music", "/music/X/01.mp3", 100)
	suite.Require().NoError(err)

	// Act
	result, media, err := suite.indexer.Index(suite.ctx, "/music", "/music/X/01.mp3", 100)

	// Assert
	suite.NoError(err)
	suite.Equal(indexer.Unchanged, result)
	suite.Nil(media)
	suite.extractor.AssertNumberOfCalls(suite.T(), "Extract", 1)
}

func (suite *IndexerTestSuite) TestIndex_NewerFileIsUpdatedInPlace() {
	// Arrange
	suite.extractor.On("Extract", mock.Anything, "/music/X/01.mp3").
		Return(audio("One", "A", "X", 1), nil).Once()
	_, first, err := suite.indexer.Index(suite.ctx, "/music", "/music/X/01.mp3", 100)
	suite.Require().NoError(err)
	suite.Require().NoError(func() error {
		_, err := suite.repo.IncrementPlayCount(suite.ctx, first.ID)
		return err
	}())
	suite.extractor.On("Extract", mock.Anything, "/music/X/01.mp3").
		Return(audio("One (remaster)", "A", "X", 1), nil).Once()

	// Act
	result, media, err := suite.indexer.Index(suite.ctx, "/music", "/music/X/01.mp3", 200)

	// Assert
	suite.Require().NoError(err)
	suite.Equal(indexer.Updated, result)
	suite.Equal(first.ID, media.ID)
	stored, err := suite.repo.GetMedia(suite.ctx, first.ID)
	suite.Require().NoError(err)
	suite.Equal("One (remaster)", stored.Title)
	suite.Equal(int64(200), stored.LastModified)
	suite.Equal(1, stored.PlayCount)
}

func (suite *IndexerTestSuite) TestIndex_ReparseKeepsConcurrentPlaybackWrites() {
	// Arrange
	suite.extractor.On("Extract", mock.Anything, "/music/X/01.mp3").
		Return(audio("One", "A", "X", 1), nil).Once()
	_, first, err := suite.indexer.Index(suite.ctx, "/music", "/music/X/01.mp3", 100)
	suite.Require().NoError(err)
	suite.extractor.On("Extract", mock.Anything, "/music/X/01.mp3").
		Run(func(mock.Arguments) {
			_, err := suite.repo.UpdateProgress(suite.ctx, first.ID, 42000)
			suite.Require().NoError(err)
			_, err = suite.repo.IncrementPlayCount(suite.ctx, first.ID)
			suite.Require().NoError(err)
			_, err = suite.repo.SetFlags(suite.ctx, first.ID, domain.FlagNoHWAccel)
			suite.Require().NoError(err)
		}).
		Return(audio("One (remaster)", "A", "X", 1), nil).Once()

	// Act
	result, media, err := suite.indexer.Index(suite.ctx, "/music", "/music/X/01.mp3", 200)

	// Assert
	suite.Require().NoError(err)
	suite.Equal(indexer.Updated, result)
	suite.Equal(int64(42000), media.Time)
	stored, err := suite.repo.GetMedia(suite.ctx, first.ID)
	suite.Require().NoError(err)
	suite.Equal("One (remaster)", stored.Title)
	suite.Equal(int64(42000), stored.Time)
	suite.Equal(1, stored.PlayCount)
	suite.NotNil(stored.LastPlayedAt)
	suite.Equal(domain.FlagNoHWAccel, stored.Flags)
}

func (suite *IndexerTestSuite) TestIndex_ExtractionFailureIsNotPublished() {
	// Arrange
	suite.extractor.On("Extract", mock.Anything, "/music/broken.mp3").
		Return(nil, errors.New("corrupt header")).Once()

	// Act
	result, media, err := suite.indexer.Index(suite.ctx, "/music", "/music/broken.mp3", 100)

	// Assert
	suite.Error(err)
	suite.Equal(indexer.Failed, result)
	suite.Nil(media)
	suite.Empty(suite.publisher.ofType(domain.EventIndexingFailed))
	_, err = suite.repo.GetMediaByURI(suite.ctx, domain.FileURI("/music/broken.mp3"))
	suite.ErrorIs(err, domain.ErrMediaNotFound)
}

func (suite *IndexerTestSuite) TestIndex_UnclassifiedFileFails() {
	// Arrange
	suite.extractor.On("Extract", mock.Anything, "/music/notes.bin").
		Return(&domain.Metadata{}, nil).Once()

	// Act
	result, _, err := suite.indexer.Index(suite.ctx, "/music", "/music/notes.bin", 100)

	// Assert
	suite.ErrorIs(err, domain.ErrUnsupportedMedia)
	suite.Equal(indexer.Failed, result)
}

func (suite *IndexerTestSuite) TestIndex_DeletedMediaIsRestoredAsAdded() {
	// Arrange
	suite.extractor.On("Extract", mock.Anything, "/music/X/01.mp3").
		Return(audio("One", "A", "X", 1), nil)
	_, first, err := suite.indexer.Index(suite.ctx, "/music", "/music/X/01.mp3", 100)
	suite.Require().NoError(err)
	_, err = suite.indexer.Remove(suite.ctx, "/music", first.ID)
	suite.Require().NoError(err)

	// Act
	result, media, err := suite.indexer.Index(suite.ctx, "/music", "/music/X/01.mp3", 100)

	// Assert
	suite.Require().NoError(err)
	suite.Equal(indexer.Added, result)
	suite.Equal(first.ID, media.ID)
	stored, err := suite.repo.GetMedia(suite.ctx, first.ID)
	suite.Require().NoError(err)
	suite.False(stored.IsDeleted())
}

func (suite *IndexerTestSuite) TestIndex_StoresArtwork() {
	// Arrange
	store, err := artwork.NewLocalStore(suite.T().TempDir(), logger.NewNoopLogger())
	suite.Require().NoError(err)
	ix := indexer.New(suite.repo, suite.extractor, suite.publisher, logger.NewNoopLogger(),
		indexer.Options{}, indexer.WithArtworkStore(store))
	md := audio("One", "A", "X", 1)
	md.Artwork = &domain.Artwork{Data: []byte{0xff, 0xd8, 0xff}, MIMEType: "image/jpeg"}
	suite.extractor.On("Extract", mock.Anything, "/music/X/01.mp3").Return(md, nil).Once()

	// Act
	_, media, err := ix.Index(suite.ctx, "/music", "/music/X/01.mp3", 100)

	// Assert
	suite.Require().NoError(err)
	suite.Contains(media.ArtworkURL, artwork.URLPrefix)
	exists, err := store.Exists(suite.ctx, media.ArtworkURL[len(artwork.URLPrefix):])
	suite.Require().NoError(err)
	suite.True(exists)
}

func (suite *IndexerTestSuite) TestRemoveMissing_PrunesUnseen() {
	// Arrange
	suite.extractor.On("Extract", mock.Anything, mock.Anything).Return(audio("t", "A", "X", 1), nil)
	_, kept, err := suite.indexer.Index(suite.ctx, "/music", "/music/X/01.mp3", 100)
	suite.Require().NoError(err)
	_, gone, err := suite.indexer.Index(suite.ctx, "/music", "/music/X/02.mp3", 100)
	suite.Require().NoError(err)
	seen := map[string]struct{}{"/music/X/01.mp3": {}}

	// Act
	removed, err := suite.indexer.RemoveMissing(suite.ctx, "/music", "/music", seen)

	// Assert
	suite.Require().NoError(err)
	suite.Equal([]int64{gone.ID}, removed)
	_, err = suite.repo.GetMedia(suite.ctx, kept.ID)
	suite.NoError(err)
	deleted := suite.publisher.ofType(domain.EventMediaDeleted)
	suite.Require().Len(deleted, 1)
	suite.Equal([]int64{gone.ID}, deleted[0].(*domain.MediaDeletedEvent).IDs)
}

func (suite *IndexerTestSuite) TestRemoveMissing_NothingMissing() {
	// Act
	removed, err := suite.indexer.RemoveMissing(suite.ctx, "/music", "/music", map[string]struct{}{})

	// Assert
	suite.NoError(err)
	suite.Empty(removed)
	suite.Empty(suite.publisher.ofType(domain.EventMediaDeleted))
}

func TestIndexerTestSuite(t *testing.T) {
	suite.Run(t, new(IndexerTestSuite))
}
