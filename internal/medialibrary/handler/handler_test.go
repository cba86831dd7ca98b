package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/handler"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/scheduler"
	"github.com/narwhalmedia/medialibrary/pkg/errors"
	"github.com/narwhalmedia/medialibrary/pkg/logger"
)

type mockLibrary struct {
	mock.Mock
}

func (m *mockLibrary) DiscoverEntryPoint(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *mockLibrary) RemoveEntryPoint(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *mockLibrary) BanFolder(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *mockLibrary) UnbanFolder(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *mockLibrary) Reload(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockLibrary) ReloadEntryPoint(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *mockLibrary) PauseBackgroundOperations()  { m.Called() }
func (m *mockLibrary) ResumeBackgroundOperations() { m.Called() }
func (m *mockLibrary) IsWorking() bool             { return m.Called().Bool(0) }

func (m *mockLibrary) State() scheduler.State {
	return m.Called().Get(0).(scheduler.State)
}

func (m *mockLibrary) mediaList(args mock.Arguments) ([]*domain.Media, error) {
	media, _ := args.Get(0).([]*domain.Media)
	return media, args.Error(1)
}

func (m *mockLibrary) GetMedia(ctx context.Context, id int64) (*domain.Media, error) {
	args := m.Called(ctx, id)
	media, _ := args.Get(0).(*domain.Media)
	return media, args.Error(1)
}

func (m *mockLibrary) GetAudio(ctx context.Context) ([]*domain.Media, error) {
	return m.mediaList(m.Called(ctx))
}

func (m *mockLibrary) GetVideos(ctx context.Context) ([]*domain.Media, error) {
	return m.mediaList(m.Called(ctx))
}

func (m *mockLibrary) GetAlbums(ctx context.Context) ([]*domain.Album, error) {
	args := m.Called(ctx)
	albums, _ := args.Get(0).([]*domain.Album)
	return albums, args.Error(1)
}

func (m *mockLibrary) GetAlbumTracks(ctx context.Context, albumID int64) ([]*domain.Media, error) {
	return m.mediaList(m.Called(ctx, albumID))
}

func (m *mockLibrary) GetArtists(ctx context.Context) ([]*domain.Artist, error) {
	args := m.Called(ctx)
	artists, _ := args.Get(0).([]*domain.Artist)
	return artists, args.Error(1)
}

func (m *mockLibrary) GetArtistMedia(ctx context.Context, artistID int64) ([]*domain.Media, error) {
	return m.mediaList(m.Called(ctx, artistID))
}

func (m *mockLibrary) GetGenres(ctx context.Context) ([]*domain.Genre, error) {
	args := m.Called(ctx)
	genres, _ := args.Get(0).([]*domain.Genre)
	return genres, args.Error(1)
}

func (m *mockLibrary) GetGenreMedia(ctx context.Context, genreID int64) ([]*domain.Media, error) {
	return m.mediaList(m.Called(ctx, genreID))
}

func (m *mockLibrary) GetAudioCount(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLibrary) GetVideoCount(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLibrary) LastMediaPlayed(ctx context.Context) ([]*domain.Media, error) {
	return m.mediaList(m.Called(ctx))
}

func (m *mockLibrary) SearchMedia(ctx context.Context, query string, limit int) ([]*domain.Media, error) {
	return m.mediaList(m.Called(ctx, query, limit))
}

func (m *mockLibrary) EntryPoints(ctx context.Context) ([]*domain.EntryPoint, error) {
	args := m.Called(ctx)
	eps, _ := args.Get(0).([]*domain.EntryPoint)
	return eps, args.Error(1)
}

func (m *mockLibrary) BannedFolders(ctx context.Context) ([]*domain.BannedFolder, error) {
	args := m.Called(ctx)
	banned, _ := args.Get(0).([]*domain.BannedFolder)
	return banned, args.Error(1)
}

func (m *mockLibrary) IncreasePlayCount(ctx context.Context, id int64) bool {
	return m.Called(ctx, id).Bool(0)
}

func (m *mockLibrary) UpdateProgress(ctx context.Context, id int64, position int64) bool {
	return m.Called(ctx, id, position).Bool(0)
}

func (m *mockLibrary) SetMediaFlags(ctx context.Context, id int64, flags int) bool {
	return m.Called(ctx, id, flags).Bool(0)
}

func (m *mockLibrary) Remove(ctx context.Context, media *domain.Media) bool {
	return m.Called(ctx, media).Bool(0)
}

func (m *mockLibrary) OpenArtwork(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

type HandlerTestSuite struct {
	suite.Suite
	library *mockLibrary
	router  http.Handler
}

func (suite *HandlerTestSuite) SetupTest() {
	suite.library = new(mockLibrary)
	suite.router = handler.NewHandler(suite.library, logger.NewNoopLogger()).Router("/metrics")
}

func (suite *HandlerTestSuite) TearDownTest() {
	suite.library.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) do(method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	suite.router.ServeHTTP(rec, req)
	return rec
}

func (suite *HandlerTestSuite) TestListAudio() {
	// Arrange
	suite.library.On("GetAudio", mock.Anything).Return([]*domain.Media{
		{ID: 1, Type: domain.MediaTypeAudio, Title: "Song", AlbumTitle: "X", AlbumArtist: "A", Track: 1},
	}, nil)

	// Act
	rec := suite.do(http.MethodGet, "/api/media/audio", "")

	// Assert
	suite.Equal(http.StatusOK, rec.Code)
	var body []map[string]interface{}
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	suite.Require().Len(body, 1)
	suite.Equal("Song", body[0]["title"])
	suite.Equal("audio", body[0]["type"])
	suite.Equal("X - A", body[0]["description"])
}

func (suite *HandlerTestSuite) TestGetMedia_NotFound() {
	// Arrange
	suite.library.On("GetMedia", mock.Anything, int64(9)).Return(nil, errors.NotFound("media not found"))

	// Act
	rec := suite.do(http.MethodGet, "/api/media/9", "")

	// Assert
	suite.Equal(http.StatusNotFound, rec.Code)
}

func (suite *HandlerTestSuite) TestGetMedia_InvalidID() {
	// Act
	rec := suite.do(http.MethodGet, "/api/media/abc", "")

	// Assert
	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *HandlerTestSuite) TestUnavailableBeforeInitialize() {
	// Arrange
	suite.library.On("GetAlbums", mock.Anything).
		Return(nil, errors.Wrap(errors.ErrorTypeUnavailable, "media library is not initialized", domain.ErrNotInitialized))

	// Act
	rec := suite.do(http.MethodGet, "/api/albums", "")

	// Assert
	suite.Equal(http.StatusServiceUnavailable, rec.Code)
}

func (suite *HandlerTestSuite) TestPlay() {
	// Arrange
	suite.library.On("IncreasePlayCount", mock.Anything, int64(3)).Return(true)
	suite.library.On("IncreasePlayCount", mock.Anything, int64(4)).Return(false)

	// Act
	ok := suite.do(http.MethodPost, "/api/media/3/play", "")
	missing := suite.do(http.MethodPost, "/api/media/4/play", "")

	// Assert
	suite.Equal(http.StatusNoContent, ok.Code)
	suite.Equal(http.StatusNotFound, missing.Code)
}

func (suite *HandlerTestSuite) TestProgress() {
	// Arrange
	suite.library.On("UpdateProgress", mock.Anything, int64(3), int64(42000)).Return(true)

	// Act
	rec := suite.do(http.MethodPut, "/api/media/3/progress", `{"position_ms":42000}`)
	bad := suite.do(http.MethodPut, "/api/media/3/progress", `{`)

	// Assert
	suite.Equal(http.StatusNoContent, rec.Code)
	suite.Equal(http.StatusBadRequest, bad.Code)
}

func (suite *HandlerTestSuite) TestRemoveMedia() {
	// Arrange
	media := &domain.Media{ID: 5, Path: "/music/X/song.mp3"}
	suite.library.On("GetMedia", mock.Anything, int64(5)).Return(media, nil)
	suite.library.On("Remove", mock.Anything, media).Return(true)

	// Act
	rec := suite.do(http.MethodDelete, "/api/media/5", "")

	// Assert
	suite.Equal(http.StatusAccepted, rec.Code)
}

func (suite *HandlerTestSuite) TestEntryPoints() {
	// Arrange
	suite.library.On("DiscoverEntryPoint", mock.Anything, "/music").Return(nil)
	suite.library.On("RemoveEntryPoint", mock.Anything, "/video").
		Return(errors.NotFound("entry point not found"))

	// Act
	added := suite.do(http.MethodPost, "/api/entry-points", `{"path":"/music"}`)
	missingPath := suite.do(http.MethodPost, "/api/entry-points", `{}`)
	removed := suite.do(http.MethodDelete, "/api/entry-points?path=/video", "")

	// Assert
	suite.Equal(http.StatusAccepted, added.Code)
	suite.Equal(http.StatusBadRequest, missingPath.Code)
	suite.Equal(http.StatusNotFound, removed.Code)
}

func (suite *HandlerTestSuite) TestPauseResumeStatus() {
	// Arrange
	suite.library.On("PauseBackgroundOperations").Return().Once()
	suite.library.On("ResumeBackgroundOperations").Return().Once()
	suite.library.On("State").Return(scheduler.Paused)
	suite.library.On("IsWorking").Return(true)

	// Act
	paused := suite.do(http.MethodPost, "/api/pause", "")
	status := suite.do(http.MethodGet, "/api/status", "")
	resumed := suite.do(http.MethodPost, "/api/resume", "")

	// Assert
	suite.Equal(http.StatusNoContent, paused.Code)
	suite.Equal(http.StatusNoContent, resumed.Code)
	suite.JSONEq(`{"state":"paused","working":true}`, status.Body.String())
}

func (suite *HandlerTestSuite) TestSearch() {
	// Arrange
	suite.library.On("SearchMedia", mock.Anything, "beatles", 5).Return([]*domain.Media{{ID: 1, Title: "Help"}}, nil)

	// Act
	rec := suite.do(http.MethodGet, "/api/media/search?q=beatles&limit=5", "")
	bad := suite.do(http.MethodGet, "/api/media/search?q=beatles&limit=x", "")

	// Assert
	suite.Equal(http.StatusOK, rec.Code)
	suite.Contains(rec.Body.String(), `"title":"Help"`)
	suite.Equal(http.StatusBadRequest, bad.Code)
}

func (suite *HandlerTestSuite) TestArtwork() {
	// Arrange
	key := "0cc175b9c0f1b6a831c399e269772661.png"
	suite.library.On("OpenArtwork", mock.Anything, key).Return(io.NopCloser(strings.NewReader("png-bytes")), nil)
	suite.library.On("OpenArtwork", mock.Anything, "missing.jpg").Return(nil, errors.NotFound("artwork not found"))

	// Act
	rec := suite.do(http.MethodGet, "/api/artwork/"+key, "")
	missing := suite.do(http.MethodGet, "/api/artwork/missing.jpg", "")

	// Assert
	suite.Equal(http.StatusOK, rec.Code)
	suite.Equal("image/png", rec.Header().Get("Content-Type"))
	suite.Equal("png-bytes", rec.Body.String())
	suite.Equal(http.StatusNotFound, missing.Code)
}

func (suite *HandlerTestSuite) TestMetricsEndpoint() {
	// Act
	rec := suite.do(http.MethodGet, "/metrics", "")

	// Assert
	suite.Equal(http.StatusOK, rec.Code)
	suite.Contains(rec.Body.String(), "medialibrary_")
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}
