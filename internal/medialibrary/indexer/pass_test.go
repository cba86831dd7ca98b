package indexer_test

import (
	"fmt"

	"github.com/stretchr/testify/mock"

	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/indexer"
)

func (suite *IndexerTestSuite) TestPass_BatchesAddedMedia() {
	// Arrange
	suite.extractor.On("Extract", mock.Anything, mock.Anything).Return(audio("t", "A", "X", 1), nil)
	pass := suite.indexer.NewPass("/music", 5)

	// Act
	for i := 1; i <= 5; i++ {
		pass.Index(suite.ctx, fmt.Sprintf("/music/X/%02d.mp3", i), 100)
	}
	pass.Flush(suite.ctx)

	// Assert
	batches := suite.publisher.ofType(domain.EventMediaAdded)
	suite.Require().Len(batches, 3)
	sizes := []int{}
	for _, b := range batches {
		sizes = append(sizes, len(b.(*domain.MediaAddedEvent).Media))
	}
	suite.Equal([]int{2, 2, 1}, sizes)
	suite.Equal(indexer.Stats{Added: 5}, pass.Stats())
	suite.Len(pass.Seen(), 5)
}

func (suite *IndexerTestSuite) TestPass_TouchedFileYieldsOneUpdate() {
	// Arrange
	suite.extractor.On("Extract", mock.Anything, mock.Anything).Return(audio("t", "A", "X", 1), nil)
	first := suite.indexer.NewPass("/music", 2)
	first.Index(suite.ctx, "/music/X/01.mp3", 100)
	first.Index(suite.ctx, "/music/X/02.mp3", 100)
	first.Flush(suite.ctx)
	suite.publisher.events = nil

	// Act
	second := suite.indexer.NewPass("/music", 2)
	second.Index(suite.ctx, "/music/X/01.mp3", 100)
	second.Index(suite.ctx, "/music/X/02.mp3", 150)
	second.Flush(suite.ctx)

	// Assert
	suite.Empty(suite.publisher.ofType(domain.EventMediaAdded))
	updates := suite.publisher.ofType(domain.EventMediaUpdated)
	suite.Require().Len(updates, 1)
	media := updates[0].(*domain.MediaUpdatedEvent).Media
	suite.Require().Len(media, 1)
	suite.Equal("/music/X/02.mp3", media[0].Path)
	suite.Equal(indexer.Stats{Updated: 1, Unchanged: 1}, second.Stats())
}

func (suite *IndexerTestSuite) TestPass_ProgressInSteps() {
	// Arrange
	suite.extractor.On("Extract", mock.Anything, mock.Anything).Return(audio("t", "A", "X", 1), nil)
	pass := suite.indexer.NewPass("/music", 3)

	// Act
	for i := 1; i <= 3; i++ {
		pass.Index(suite.ctx, fmt.Sprintf("/music/X/%02d.mp3", i), 100)
	}
	pass.Flush(suite.ctx)

	// Assert
	suite.Equal([]int{33, 66, 100}, suite.publisher.percents())
}

func (suite *IndexerTestSuite) TestPass_EveryStepReportedOnce() {
	// Arrange
	suite.extractor.On("Extract", mock.Anything, mock.Anything).Return(audio("t", "A", "X", 1), nil)
	pass := suite.indexer.NewPass("/music", 20)

	// Act
	for i := 1; i <= 20; i++ {
		pass.Index(suite.ctx, fmt.Sprintf("/music/X/%02d.mp3", i), 100)
	}
	pass.Flush(suite.ctx)

	// Assert
	suite.Equal([]int{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}, suite.publisher.percents())
}

func (suite *IndexerTestSuite) TestPass_EmptyPassReportsCompletion() {
	// Arrange
	pass := suite.indexer.NewPass("/music", 0)

	// Act
	pass.Flush(suite.ctx)

	// Assert
	suite.Equal([]int{100}, suite.publisher.percents())
	suite.Empty(suite.publisher.ofType(domain.EventMediaAdded))
}

func (suite *IndexerTestSuite) TestPass_FailuresCounted() {
	// Arrange
	suite.extractor.On("Extract", mock.Anything, "/music/ok.mp3").Return(audio("t", "A", "X", 1), nil)
	suite.extractor.On("Extract", mock.Anything, "/music/bad.mp3").Return(nil, fmt.Errorf("truncated"))
	pass := suite.indexer.NewPass("/music", 2)

	// Act
	pass.Index(suite.ctx, "/music/ok.mp3", 100)
	pass.Index(suite.ctx, "/music/bad.mp3", 100)
	pass.Flush(suite.ctx)

	// Assert
	suite.Equal(indexer.Stats{Added: 1, Failed: 1}, pass.Stats())
	suite.Contains(pass.Seen(), "/music/bad.mp3")
}

func (suite *IndexerTestSuite) TestPass_FlushPendingSkipsCompletionReport() {
	// Arrange
	suite.extractor.On("Extract", mock.Anything, mock.Anything).Return(audio("t", "A", "X", 1), nil)
	pass := suite.indexer.NewPass("/music", 20)
	for i := 1; i <= 3; i++ {
		pass.Index(suite.ctx, fmt.Sprintf("/music/X/%02d.mp3", i), 100)
	}

	// Act
	pass.FlushPending(suite.ctx)

	// Assert
	batches := suite.publisher.ofType(domain.EventMediaAdded)
	suite.Require().Len(batches, 2)
	suite.Len(batches[1].(*domain.MediaAddedEvent).Media, 1)
	suite.NotContains(suite.publisher.percents(), 100)
}
