package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	persistence "github.com/narwhalmedia/medialibrary/internal/infrastructure/persistence/gorm"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/artwork"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/discovery"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/extractor"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/indexer"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/notify"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/repository"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/scheduler"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/search"
	"github.com/narwhalmedia/medialibrary/internal/metrics"
	"github.com/narwhalmedia/medialibrary/pkg/config"
	"github.com/narwhalmedia/medialibrary/pkg/errors"
	"github.com/narwhalmedia/medialibrary/pkg/events"
	"github.com/narwhalmedia/medialibrary/pkg/interfaces"
	"github.com/narwhalmedia/medialibrary/pkg/logger"
)

// MediaLibrary is the engine facade: one instance per storage root, with
// explicit Initialize and Close.
type MediaLibrary struct {
	cfg    *config.MediaLibraryConfig
	logger interfaces.Logger

	extractor     domain.MetadataExtractor
	customArtwork artwork.Store

	mu          sync.RWMutex
	initialized bool
	root        string
	db          *gorm.DB
	closeDB     func()
	repo        *repository.GormRepository
	artwork     artwork.Store
	bus         *notify.Bus
	scheduler   *scheduler.Scheduler
	engine      *discovery.Engine
	search      *search.Index
	searchSubs  []*notify.Subscription
}

// Option configures a MediaLibrary.
type Option func(*MediaLibrary)

// WithExtractor replaces the tag based metadata extractor.
func WithExtractor(e domain.MetadataExtractor) Option {
	return func(m *MediaLibrary) {
		m.extractor = e
	}
}

// WithArtworkStore replaces the configured artwork backend.
func WithArtworkStore(store artwork.Store) Option {
	return func(m *MediaLibrary) {
		m.customArtwork = store
	}
}

// New creates an uninitialized media library.
func New(cfg *config.MediaLibraryConfig, logger interfaces.Logger, opts ...Option) *MediaLibrary {
	m := &MediaLibrary{
		cfg:    cfg,
		logger: logger,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Initialize opens the store under storageRoot and starts background work.
// Calling it again with the same root is a no-op.
func (m *MediaLibrary) Initialize(ctx context.Context, storageRoot string) error {
	root, err := filepath.Abs(storageRoot)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeBadRequest, "invalid storage root", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		if m.root == root {
			return nil
		}
		return errors.Wrap(errors.ErrorTypeConflict,
			fmt.Sprintf("already initialized with %s", m.root), domain.ErrAlreadyInitialized)
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("failed to create storage root: %w", err)
	}

	db, closeDB, err := persistence.NewDB(m.cfg.Database, root, zapOf(m.logger))
	if err != nil {
		return err
	}
	repo := repository.NewGormRepository(db, m.logger)
	if err := repo.Migrate(ctx); err != nil {
		closeDB()
		return err
	}

	eventBus := events.NewInMemoryEventBus(m.logger, events.WithFailureHook(func(eventType string, _ error) {
		metrics.ObserverFailuresTotal.WithLabelValues(eventType).Inc()
	}))
	bus := notify.NewBus(eventBus, m.logger)
	if err := bus.Start(context.Background()); err != nil {
		closeDB()
		return err
	}

	store := m.customArtwork
	if store == nil {
		if store, err = newArtworkStore(ctx, m.cfg.Artwork, root, m.logger); err != nil {
			bus.Stop()
			closeDB()
			return err
		}
	}

	ext := m.extractor
	if ext == nil {
		ext = extractor.NewTagExtractor(m.logger)
	}

	var ixOpts []indexer.Option
	if store != nil {
		ixOpts = append(ixOpts, indexer.WithArtworkStore(store))
	}
	ix := indexer.New(repo, ext, bus, m.logger, indexer.Options{
		ProgressStep: m.cfg.Library.ProgressStep,
		BatchSize:    m.cfg.Library.NotifyBatchSize,
	}, ixOpts...)
	walker := discovery.NewWalker(m.cfg.Library.BanMode != config.BanModeExact, m.cfg.Library.SkipHidden, m.logger)

	if m.cfg.Search.Enabled {
		idx, err := search.Open(config.ResolvePath(root, m.cfg.Search.Path), m.logger)
		if err != nil {
			bus.Stop()
			closeDB()
			return err
		}
		m.search = idx
		m.searchSubs = []*notify.Subscription{
			bus.SubscribeMediaAdded(idx, domain.KindAll),
			bus.SubscribeMediaUpdated(idx, domain.KindAll),
			bus.SubscribeMediaDeleted(idx),
		}
	}

	var schedOpts []scheduler.Option
	if m.cfg.Library.ReloadInterval > 0 {
		schedOpts = append(schedOpts, scheduler.WithReload(m.cfg.Library.ReloadInterval, func() {
			if err := m.Reload(context.Background()); err != nil {
				m.logger.Warn("Periodic reload failed", interfaces.Error(err))
			}
		}))
	}
	sched := scheduler.New(m.logger, schedOpts...)

	m.db = db
	m.closeDB = closeDB
	m.repo = repo
	m.bus = bus
	m.artwork = store
	m.engine = discovery.NewEngine(repo, repo, ix, walker, bus, m.logger)
	m.scheduler = sched
	m.root = root
	m.initialized = true

	if m.search != nil {
		if err := m.seedSearch(ctx); err != nil {
			m.logger.Warn("Failed to seed search index", interfaces.Error(err))
		}
	}

	sched.Start(context.Background())

	for _, ep := range m.cfg.Library.EntryPoints {
		if err := m.discoverLocked(config.ResolvePath(root, ep)); err != nil {
			m.logger.Warn("Skipping default entry point",
				interfaces.String("entry_point", ep),
				interfaces.Error(err))
		}
	}

	m.logger.Info("Media library initialized",
		interfaces.String("storage_root", root),
		interfaces.String("driver", m.cfg.Database.Driver))
	return nil
}

// Close stops background work, drains the bus and closes the store.
func (m *MediaLibrary) Close() error {
	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return nil
	}
	m.initialized = false
	sched, bus, idx, closeDB, root := m.scheduler, m.bus, m.search, m.closeDB, m.root
	m.search, m.searchSubs, m.artwork, m.root = nil, nil, nil, ""
	m.mu.Unlock()

	// mu must not be held here: the periodic reload takes it
	sched.Stop()
	if err := bus.Stop(); err != nil {
		m.logger.Warn("Failed to stop notification bus", interfaces.Error(err))
	}
	if idx != nil {
		if err := idx.Close(); err != nil {
			m.logger.Warn("Failed to close search index", interfaces.Error(err))
		}
	}
	closeDB()

	m.logger.Info("Media library closed", interfaces.String("storage_root", root))
	return nil
}

// StorageRoot returns the root passed to Initialize.
func (m *MediaLibrary) StorageRoot() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.root
}

// Bus exposes the notification bus, for mirrors and observers.
func (m *MediaLibrary) Bus() (*notify.Bus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		return nil, notInitialized()
	}
	return m.bus, nil
}

// WaitIdle blocks until background work is finished and every event it
// published has been delivered.
func (m *MediaLibrary) WaitIdle(ctx context.Context) error {
	m.mu.RLock()
	sched, bus, ok := m.scheduler, m.bus, m.initialized
	m.mu.RUnlock()
	if !ok {
		return notInitialized()
	}

	if err := sched.WaitIdle(ctx); err != nil {
		return err
	}
	bus.WaitIdle()
	return nil
}

// DiscoverEntryPoint schedules a pass over path. A pass already queued or
// running for path absorbs the request.
func (m *MediaLibrary) DiscoverEntryPoint(ctx context.Context, path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		return notInitialized()
	}
	return m.discoverLocked(path)
}

func (m *MediaLibrary) discoverLocked(path string) error {
	root, err := domain.CleanPath(path)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeBadRequest, "invalid entry point", err)
	}
	m.schedule(root, root)
	return nil
}

func (m *MediaLibrary) schedule(entryPoint, scope string) {
	engine := m.engine
	m.scheduler.Schedule(scheduler.Task{
		Key:   scope,
		Group: entryPoint,
		Run: func(ctx context.Context, checkpoint func(context.Context) error) error {
			return engine.Discover(ctx, entryPoint, scope, checkpoint)
		},
	})
}

// RemoveEntryPoint stops any pass over path and soft-deletes its media.
func (m *MediaLibrary) RemoveEntryPoint(ctx context.Context, path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		return notInitialized()
	}

	root, err := domain.CleanPath(path)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeBadRequest, "invalid entry point", err)
	}
	// passes scheduled before the row is gone are dropped, not run
	release := m.scheduler.Hold(root)
	defer release()

	if _, err := m.engine.RemoveEntryPoint(ctx, root); err != nil {
		if stderrors.Is(err, domain.ErrEntryPointNotFound) {
			return errors.Wrap(errors.ErrorTypeNotFound, "entry point not found", err)
		}
		return err
	}
	return nil
}

// BanFolder excludes path from discovery and removes the media it covered.
func (m *MediaLibrary) BanFolder(ctx context.Context, path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		return notInitialized()
	}

	folder, err := domain.CleanPath(path)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeBadRequest, "invalid folder", err)
	}
	_, err = m.engine.BanFolder(ctx, folder)
	return err
}

// UnbanFolder lifts a ban and rescans the entry point containing path.
func (m *MediaLibrary) UnbanFolder(ctx context.Context, path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		return notInitialized()
	}

	folder, err := domain.CleanPath(path)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeBadRequest, "invalid folder", err)
	}
	if err := m.engine.UnbanFolder(ctx, folder); err != nil {
		return err
	}

	eps, err := m.repo.ListEntryPoints(ctx)
	if err != nil {
		return err
	}
	for _, ep := range eps {
		if domain.IsUnder(folder, ep.Path) {
			m.schedule(ep.Path, folder)
		}
	}
	return nil
}

// Reload rescans every known entry point.
func (m *MediaLibrary) Reload(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		return notInitialized()
	}

	eps, err := m.repo.ListEntryPoints(ctx)
	if err != nil {
		return err
	}
	for _, ep := range eps {
		m.schedule(ep.Path, ep.Path)
	}
	return nil
}

// ReloadEntryPoint rescans a known entry point.
func (m *MediaLibrary) ReloadEntryPoint(ctx context.Context, path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		return notInitialized()
	}

	root, err := domain.CleanPath(path)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeBadRequest, "invalid entry point", err)
	}
	if _, err := m.repo.GetEntryPoint(ctx, root); err != nil {
		if stderrors.Is(err, domain.ErrEntryPointNotFound) {
			return errors.Wrap(errors.ErrorTypeNotFound, "entry point not found", err)
		}
		return err
	}
	m.schedule(root, root)
	return nil
}

func (m *MediaLibrary) PauseBackgroundOperations() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.initialized {
		m.scheduler.Pause()
	}
}

func (m *MediaLibrary) ResumeBackgroundOperations() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.initialized {
		m.scheduler.Resume()
	}
}

// IsWorking reports whether discovery is running or pending.
func (m *MediaLibrary) IsWorking() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized && m.scheduler.IsWorking()
}

func (m *MediaLibrary) State() scheduler.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		return scheduler.Idle
	}
	return m.scheduler.State()
}

// OpenArtwork opens stored cover art by key.
func (m *MediaLibrary) OpenArtwork(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	store := m.artwork
	m.mu.RUnlock()

	if store == nil || !artwork.ValidKey(key) {
		return nil, errors.NotFound("artwork not found")
	}
	rc, err := store.Open(ctx, key)
	if stderrors.Is(err, artwork.ErrNotFound) {
		return nil, errors.Wrap(errors.ErrorTypeNotFound, "artwork not found", err)
	}
	return rc, err
}

func (m *MediaLibrary) seedSearch(ctx context.Context) error {
	count, err := m.search.Count()
	if err != nil || count > 0 {
		return err
	}
	for _, t := range []domain.MediaType{domain.MediaTypeAudio, domain.MediaTypeVideo} {
		media, err := m.repo.ListMedia(ctx, t)
		if err != nil {
			return err
		}
		if len(media) > 0 {
			if err := m.search.IndexMedia(media); err != nil {
				return err
			}
		}
	}
	return nil
}

func newArtworkStore(ctx context.Context, cfg config.ArtworkConfig, root string, logger interfaces.Logger) (artwork.Store, error) {
	switch cfg.Backend {
	case config.ArtworkLocal:
		return artwork.NewLocalStore(config.ResolvePath(root, cfg.Dir), logger)
	case config.ArtworkS3:
		return artwork.NewS3Store(ctx, cfg.S3, logger)
	default:
		return nil, nil
	}
}

func notInitialized() error {
	return errors.Wrap(errors.ErrorTypeUnavailable, "media library is not initialized", domain.ErrNotInitialized)
}

func zapOf(log interfaces.Logger) *zap.Logger {
	if zl, ok := log.(*logger.ZapLogger); ok {
		return zl.Zap()
	}
	return zap.NewNop()
}
