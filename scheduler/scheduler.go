// Package scheduler runs the background documentation refresh loop.
package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/aqua777/codelens/config"
	"github.com/aqua777/codelens/index"
	"github.com/aqua777/codelens/reader"
	"github.com/aqua777/codelens/schema"
)

// Schedule intervals in seconds.
const (
	dailyInterval   = 86400 * time.Second
	weeklyInterval  = 604800 * time.Second
	monthlyInterval = 2592000 * time.Second
	retryInterval   = 3600 * time.Second
)

// RefreshScheduler periodically reconciles the configured framework
// docs collections against their on-disk sources.
type RefreshScheduler struct {
	store    *index.Store
	cfg      *config.Config
	log      *zap.Logger
	interval time.Duration
	retry    time.Duration
}

// Option configures a RefreshScheduler.
type Option func(*RefreshScheduler)

// WithIntervals overrides the schedule and retry intervals. Tests use
// this to tick in milliseconds.
func WithIntervals(interval, retry time.Duration) Option {
	return func(s *RefreshScheduler) {
		s.interval = interval
		s.retry = retry
	}
}

// New builds a scheduler. The interval follows the configured schedule
// (daily, weekly, monthly); anything else falls back to daily.
func New(store *index.Store, cfg *config.Config, log *zap.Logger, opts ...Option) *RefreshScheduler {
	s := &RefreshScheduler{
		store:    store,
		cfg:      cfg,
		log:      log,
		interval: intervalFor(cfg.Documentation.Refresh.Schedule),
		retry:    retryInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func intervalFor(schedule string) time.Duration {
	switch schedule {
	case "weekly":
		return weeklyInterval
	case "monthly":
		return monthlyInterval
	default:
		return dailyInterval
	}
}

// Run loops until the context is cancelled. Disabled refresh returns
// immediately. A failing pass logs and retries after the shorter retry
// interval instead of the schedule interval.
func (s *RefreshScheduler) Run(ctx context.Context) error {
	if !s.cfg.Documentation.Refresh.Enabled {
		s.log.Info("documentation refresh disabled")
		return nil
	}
	s.log.Info("documentation refresh started",
		zap.String("schedule", s.cfg.Documentation.Refresh.Schedule),
		zap.Strings("frameworks", s.cfg.Documentation.Refresh.Frameworks))

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		wait := s.interval
		if err := s.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Error("documentation refresh failed", zap.Error(err))
			wait = s.retry
		}
		timer.Reset(wait)
	}
}

// RunOnce refreshes every configured framework. A framework whose docs
// path is missing is logged and skipped; backend errors abort the pass.
func (s *RefreshScheduler) RunOnce(ctx context.Context) error {
	for _, framework := range s.cfg.Documentation.Refresh.Frameworks {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := s.docsPath(framework)
		if _, err := os.Stat(path); err != nil {
			s.log.Warn("docs path not found, skipping",
				zap.String("framework", framework), zap.String("path", path))
			continue
		}

		collection := schema.DocsCollection(framework)
		if !s.store.Exists(ctx, collection) {
			result, err := s.store.IndexDocs(ctx, path, framework, s.cfg)
			if err != nil {
				return err
			}
			s.log.Info("indexed framework docs",
				zap.String("framework", framework), zap.Int("documents", result.Indexed))
			continue
		}

		docs, err := docsReader(path).LoadDocuments(ctx)
		if err != nil {
			return err
		}
		result, err := s.store.Refresh(ctx, collection, docs)
		if err != nil {
			return err
		}
		s.log.Info("refreshed framework docs",
			zap.String("framework", framework),
			zap.Int("total", result.Total),
			zap.Int("refreshed", result.Refreshed),
			zap.Int("unchanged", result.Unchanged))
	}
	return nil
}

func docsReader(path string) reader.Reader {
	return reader.NewDirectoryReader(path,
		reader.WithRequiredExts(".md", ".rst", ".txt", ".html", ".pdf"))
}

// docsPath resolves where a framework's docs live on disk.
func (s *RefreshScheduler) docsPath(framework string) string {
	docs := s.cfg.Documentation
	if docs.OfflineDocsPath != "" {
		return filepath.Join(docs.OfflineDocsPath, framework)
	}
	return filepath.Join(docs.SharedDocsPath, framework)
}
