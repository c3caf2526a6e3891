package filesync

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/e-code/agent/internal/shared/metrics"
)

const (
	defaultSettleWindow  = 200 * time.Millisecond
	defaultMaxConcurrent = 4
)

// Uploader mirrors local file changes to the platform.
type Uploader interface {
	UploadFile(ctx context.Context, projectID, relPath string, content []byte) error
	DeleteFile(ctx context.Context, projectID, relPath string) error
}

// Config holds syncer configuration.
type Config struct {
	Root      string
	ProjectID string
	// SettleWindow coalesces rapid write bursts to the same path before
	// uploading. Editors commonly emit several events per save.
	SettleWindow  time.Duration
	MaxConcurrent int
}

// Syncer watches the project root recursively and mirrors file changes
// to the platform: writes and creates upload, removes and renames
// delete. Transfer failures are logged and counted; the watcher keeps
// running.
type Syncer struct {
	cfg      Config
	uploader Uploader
	rules    *Rules
	watcher  *fsnotify.Watcher
	metrics  *metrics.Metrics
	logger   *zap.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	stopped bool

	semaphore chan struct{}
	stopCh    chan struct{}
	wg        sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a file syncer. The metrics parameter may be nil.
func New(cfg Config, uploader Uploader, m *metrics.Metrics, logger *zap.Logger) *Syncer {
	if cfg.SettleWindow <= 0 {
		cfg.SettleWindow = defaultSettleWindow
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{
		cfg:       cfg,
		uploader:  uploader,
		metrics:   m,
		logger:    logger.Named("filesync"),
		pending:   make(map[string]*time.Timer),
		semaphore: make(chan struct{}, cfg.MaxConcurrent),
		stopCh:    make(chan struct{}),
	}
}

// Start loads ignore rules, begins watching the project tree and starts
// the event loop.
func (s *Syncer) Start(ctx context.Context) error {
	rules, err := LoadRules(s.cfg.Root)
	if err != nil {
		return err
	}
	s.rules = rules

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	if err := s.watchTree(s.cfg.Root, false); err != nil {
		_ = watcher.Close()
		return err
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.eventLoop()

	s.logger.Info("file sync started",
		zap.String("root", s.cfg.Root),
		zap.String("project_id", s.cfg.ProjectID),
		zap.Duration("settle_window", s.cfg.SettleWindow),
	)
	return nil
}

// Stop cancels pending uploads, stops the watcher and drains in-flight
// workers.
func (s *Syncer) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for path, timer := range s.pending {
		timer.Stop()
		delete(s.pending, path)
	}
	s.mu.Unlock()

	close(s.stopCh)
	if s.cancel != nil {
		s.cancel()
	}
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	s.wg.Wait()

	s.logger.Info("file sync stopped")
}

func (s *Syncer) eventLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(ev)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (s *Syncer) handleEvent(ev fsnotify.Event) {
	rel, err := filepath.Rel(s.cfg.Root, ev.Name)
	if err != nil {
		return
	}

	switch {
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		// The path is gone; directory watches vanish with it.
		if s.rules.Ignored(rel, false) {
			return
		}
		s.cancelPending(rel)
		s.dispatch(func(ctx context.Context) { s.remove(ctx, rel) })

	case ev.Op.Has(fsnotify.Create):
		info, err := os.Stat(ev.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			if s.rules.Ignored(rel, true) {
				return
			}
			// New subtree: watch it and upload any files already inside.
			if err := s.watchTree(ev.Name, true); err != nil {
				s.logger.Warn("watch new directory failed",
					zap.String("path", rel),
					zap.Error(err),
				)
			}
			return
		}
		if s.rules.Ignored(rel, false) {
			return
		}
		s.schedule(rel)

	case ev.Op.Has(fsnotify.Write):
		if s.rules.Ignored(rel, false) {
			return
		}
		s.schedule(rel)
	}
}

// watchTree adds the directory and its subdirectories to the watcher,
// skipping ignored subtrees. With uploadFiles set, files found along the
// way are scheduled for upload.
func (s *Syncer) watchTree(dir string, uploadFiles bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.cfg.Root, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if s.rules.Ignored(rel, true) {
				return filepath.SkipDir
			}
			return s.watcher.Add(path)
		}
		if uploadFiles && !s.rules.Ignored(rel, false) {
			s.schedule(rel)
		}
		return nil
	})
}

// schedule queues an upload for the path after the settle window,
// resetting the timer on every new event for the same path.
func (s *Syncer) schedule(rel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if timer, ok := s.pending[rel]; ok {
		timer.Stop()
	}
	s.pending[rel] = time.AfterFunc(s.cfg.SettleWindow, func() {
		s.mu.Lock()
		delete(s.pending, rel)
		stopped := s.stopped
		s.mu.Unlock()
		if stopped {
			return
		}
		s.dispatch(func(ctx context.Context) { s.upload(ctx, rel) })
	})
}

func (s *Syncer) cancelPending(rel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.pending[rel]; ok {
		timer.Stop()
		delete(s.pending, rel)
	}
}

// dispatch runs fn on a worker slot, bounded by the semaphore.
func (s *Syncer) dispatch(fn func(context.Context)) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		select {
		case s.semaphore <- struct{}{}:
		case <-s.stopCh:
			return
		}
		defer func() { <-s.semaphore }()

		fn(s.ctx)
	}()
}

func (s *Syncer) upload(ctx context.Context, rel string) {
	content, err := os.ReadFile(filepath.Join(s.cfg.Root, rel))
	if err != nil {
		// Deleted or unreadable since the event fired.
		s.logger.Debug("skipping unreadable file", zap.String("path", rel), zap.Error(err))
		return
	}

	start := time.Now()
	err = s.uploader.UploadFile(ctx, s.cfg.ProjectID, filepath.ToSlash(rel), content)
	if s.metrics != nil {
		s.metrics.RecordSyncUpload(err == nil, time.Since(start))
	}
	if err != nil {
		s.logger.Warn("upload failed", zap.String("path", rel), zap.Error(err))
		return
	}
	s.logger.Debug("uploaded", zap.String("path", rel), zap.Int("bytes", len(content)))
}

func (s *Syncer) remove(ctx context.Context, rel string) {
	err := s.uploader.DeleteFile(ctx, s.cfg.ProjectID, filepath.ToSlash(rel))
	if s.metrics != nil {
		s.metrics.RecordSyncDelete(err == nil)
	}
	if err != nil {
		s.logger.Warn("delete failed", zap.String("path", rel), zap.Error(err))
		return
	}
	s.logger.Debug("deleted", zap.String("path", rel))
}
