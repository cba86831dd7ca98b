package search_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/search"
	"github.com/narwhalmedia/medialibrary/pkg/logger"
)

type IndexTestSuite struct {
	suite.Suite
	index *search.Index
}

func (suite *IndexTestSuite) SetupTest() {
	idx, err := search.Open("", logger.NewNoopLogger())
	suite.Require().NoError(err)
	suite.index = idx
}

func (suite *IndexTestSuite) TearDownTest() {
	suite.NoError(suite.index.Close())
}

func media(id int64, title, artist, album string) *domain.Media {
	return &domain.Media{
		ID:         id,
		Type:       domain.MediaTypeAudio,
		Title:      title,
		Artist:     artist,
		AlbumTitle: album,
		Genres:     []string{"Rock"},
	}
}

func (suite *IndexTestSuite) seed() {
	suite.index.OnMediaAdded([]*domain.Media{
		media(1, "Yesterday", "The Beatles", "Help"),
		media(2, "Help", "The Beatles", "Help"),
		media(3, "Paranoid", "Black Sabbath", "Paranoid"),
	})
}

func (suite *IndexTestSuite) TestSearch_FreeText() {
	// Arrange
	suite.seed()

	// Act
	ids, err := suite.index.Search("beatles", 0)

	// Assert
	suite.Require().NoError(err)
	suite.ElementsMatch([]int64{1, 2}, ids)
}

func (suite *IndexTestSuite) TestSearch_FieldScoped() {
	// Arrange
	suite.seed()

	// Act
	ids, err := suite.index.Search("title:yesterday", 0)

	// Assert
	suite.Require().NoError(err)
	suite.Equal([]int64{1}, ids)
}

func (suite *IndexTestSuite) TestSearch_EmptyMatchesAll() {
	// Arrange
	suite.seed()

	// Act
	ids, err := suite.index.Search("", 2)

	// Assert
	suite.Require().NoError(err)
	suite.Len(ids, 2)
	count, err := suite.index.Count()
	suite.Require().NoError(err)
	suite.Equal(uint64(3), count)
}

func (suite *IndexTestSuite) TestOnMediaUpdated_ReplacesDocument() {
	// Arrange
	suite.seed()

	// Act
	suite.index.OnMediaUpdated([]*domain.Media{media(3, "Iron Man", "Black Sabbath", "Paranoid")})

	// Assert
	ids, err := suite.index.Search("title:iron", 0)
	suite.Require().NoError(err)
	suite.Equal([]int64{3}, ids)
	ids, err = suite.index.Search("title:paranoid", 0)
	suite.Require().NoError(err)
	suite.Empty(ids)
}

func (suite *IndexTestSuite) TestOnMediaDeleted_RemovesDocuments() {
	// Arrange
	suite.seed()

	// Act
	suite.index.OnMediaDeleted([]int64{1, 2})

	// Assert
	ids, err := suite.index.Search("beatles", 0)
	suite.Require().NoError(err)
	suite.Empty(ids)
}

func TestIndexTestSuite(t *testing.T) {
	suite.Run(t, new(IndexTestSuite))
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "search.bleve")
	idx, err := search.Open(path, logger.NewNoopLogger())
	require.NoError(t, err)
	require.NoError(t, idx.IndexMedia([]*domain.Media{media(7, "Yesterday", "The Beatles", "Help")}))
	require.NoError(t, idx.Close())

	// Act
	reopened, err := search.Open(path, logger.NewNoopLogger())
	require.NoError(t, err)
	defer reopened.Close()
	ids, err := reopened.Search("yesterday", 0)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, ids)
}
