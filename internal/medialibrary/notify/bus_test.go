package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
	"github.com/narwhalmedia/medialibrary/pkg/events"
	"github.com/narwhalmedia/medialibrary/pkg/logger"
)

type recorder struct {
	mu      sync.Mutex
	calls   []string
	added   []*domain.Media
	deleted []int64
	percent []int
	failed  []string
}

func (r *recorder) record(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) OnDiscoveryStarted(ep string)               { r.record("started:" + ep) }
func (r *recorder) OnDiscoveryProgress(ep, folder string)      { r.record("progress:" + folder) }
func (r *recorder) OnDiscoveryCompleted(ep string, err error) {
	if err != nil {
		r.record("completed-with-error:" + ep)
		return
	}
	r.record("completed:" + ep)
}

func (r *recorder) OnParsingStatsUpdated(_ string, percent int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.percent = append(r.percent, percent)
}

func (r *recorder) OnMediaAdded(media []*domain.Media) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.added = append(r.added, media...)
}

func (r *recorder) OnMediaDeleted(ids []int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, ids...)
}

func (r *recorder) OnIndexingFailed(_, path string, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, path)
}

type BusTestSuite struct {
	suite.Suite
	bus *Bus
	ctx context.Context
}

func (suite *BusTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.bus = NewBus(events.NewInMemoryEventBus(logger.NewNoopLogger()), logger.NewNoopLogger())
	suite.Require().NoError(suite.bus.Start(suite.ctx))
}

func (suite *BusTestSuite) TearDownTest() {
	suite.Require().NoError(suite.bus.Stop())
}

func (suite *BusTestSuite) TestDiscoveryLifecycleInOrder() {
	// Arrange
	rec := &recorder{}
	suite.bus.SubscribeDiscovery(rec)

	// Act
	suite.bus.Publish(suite.ctx, domain.NewDiscoveryStartedEvent("/music"))
	suite.bus.Publish(suite.ctx, domain.NewDiscoveryProgressEvent("/music", "/music/X"))
	suite.bus.Publish(suite.ctx, domain.NewDiscoveryCompletedEvent("/music", nil))
	suite.bus.Publish(suite.ctx, domain.NewDiscoveryCompletedEvent("/gone", domain.ErrEntryPointMissing))
	suite.bus.WaitIdle()

	// Assert
	suite.Equal([]string{
		"started:/music",
		"progress:/music/X",
		"completed:/music",
		"completed-with-error:/gone",
	}, rec.calls)
}

func (suite *BusTestSuite) TestMediaAdded_FilteredByKind() {
	// Arrange
	audioOnly, videoOnly, both := &recorder{}, &recorder{}, &recorder{}
	suite.bus.SubscribeMediaAdded(audioOnly, domain.KindAudio)
	suite.bus.SubscribeMediaAdded(videoOnly, domain.KindVideo)
	suite.bus.SubscribeMediaAdded(both, domain.KindAll)

	audio := &domain.Media{ID: 1, Type: domain.MediaTypeAudio}
	video := &domain.Media{ID: 2, Type: domain.MediaTypeVideo}
	subtitle := &domain.Media{ID: 3, Type: domain.MediaTypeSubtitle}

	// Act
	suite.bus.Publish(suite.ctx, domain.NewMediaAddedEvent("/m", []*domain.Media{audio, video, subtitle}))
	suite.bus.Publish(suite.ctx, domain.NewMediaAddedEvent("/m", []*domain.Media{subtitle}))
	suite.bus.WaitIdle()

	// Assert
	suite.Equal([]*domain.Media{audio}, audioOnly.added)
	suite.Equal([]*domain.Media{video}, videoOnly.added)
	suite.Equal([]*domain.Media{audio, video}, both.added)
}

func (suite *BusTestSuite) TestOtherFamilies() {
	rec := &recorder{}
	suite.bus.SubscribeParsing(rec)
	suite.bus.SubscribeMediaDeleted(rec)
	suite.bus.SubscribeIndexingFailures(rec)

	suite.bus.Publish(suite.ctx, domain.NewParsingProgressEvent("/m", 50))
	suite.bus.Publish(suite.ctx, domain.NewMediaDeletedEvent("/m", []int64{4, 5}))
	suite.bus.Publish(suite.ctx, domain.NewIndexingFailedEvent("/m", "/m/a.mp3", errors.New("disk full")))
	suite.bus.WaitIdle()

	suite.Equal([]int{50}, rec.percent)
	suite.Equal([]int64{4, 5}, rec.deleted)
	suite.Equal([]string{"/m/a.mp3"}, rec.failed)
}

func (suite *BusTestSuite) TestUnsubscribe() {
	rec := &recorder{}
	sub := suite.bus.SubscribeDiscovery(rec)
	suite.Equal(1, suite.bus.Subscriptions())

	suite.bus.Unsubscribe(sub)
	suite.bus.Unsubscribe(sub)
	suite.bus.Publish(suite.ctx, domain.NewDiscoveryStartedEvent("/music"))
	suite.bus.WaitIdle()

	suite.Empty(rec.calls)
	suite.Equal(0, suite.bus.Subscriptions())
}

func (suite *BusTestSuite) TestPanickingObserverDoesNotStopDelivery() {
	suite.bus.SubscribeMediaDeleted(panicker{})
	rec := &recorder{}
	suite.bus.SubscribeMediaDeleted(rec)

	suite.bus.Publish(suite.ctx, domain.NewMediaDeletedEvent("/m", []int64{1}))
	suite.bus.Publish(suite.ctx, domain.NewMediaDeletedEvent("/m", []int64{2}))
	suite.bus.WaitIdle()

	suite.Equal([]int64{1, 2}, rec.deleted)
}

type panicker struct{}

func (panicker) OnMediaDeleted([]int64) { panic("observer bug") }

func TestBusTestSuite(t *testing.T) {
	suite.Run(t, new(BusTestSuite))
}
