// Package sweeps runs the periodic timer jobs: issue and inbox snooze
// expiry, suppression rule expiry and reconciliation, and regression watch
// closure. Every job is idempotent and claims rows with SKIP LOCKED, so
// overlapping runs and multiple instances are safe.
package sweeps

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/pulse/internal/issues"
	"github.com/JaimeStill/pulse/pkg/lifecycle"
)

// Scheduler owns the cron loop and the sweep jobs.
type Scheduler struct {
	db       *sql.DB
	config   Config
	archiver issues.Archiver
	cron     *cron.Cron
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler. The archiver terminalizes inbox
// proposals when a sweep closes their issue.
func NewScheduler(db *sql.DB, config Config, archiver issues.Archiver, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		db:       db,
		config:   config,
		archiver: archiver,
		cron:     cron.New(),
		logger:   logger.With("system", "sweeps"),
	}
}

// Start registers the sweep cycle with the coordinator: the cron loop starts
// on startup and drains on shutdown.
func (s *Scheduler) Start(coordinator *lifecycle.Coordinator) error {
	ctx := coordinator.Context()

	_, err := s.cron.AddFunc(s.config.Schedule, func() {
		if err := s.Sweep(ctx); err != nil {
			s.logger.Error("sweep cycle failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	coordinator.OnStartup(func() {
		if s.config.RunOnStartup {
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error("startup sweep failed", "error", err)
			}
		}
		s.cron.Start()
		s.logger.Info("sweep scheduler started", "schedule", s.config.Schedule)
	})

	coordinator.OnShutdown(func() {
		<-ctx.Done()
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
		s.logger.Info("sweep scheduler stopped")
	})

	return nil
}

// Sweep runs one cycle of all four jobs. Jobs run concurrently; row claims
// never overlap, so ordering between them does not matter.
func (s *Scheduler) Sweep(ctx context.Context) error {
	started := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.expireIssueSnoozes(ctx) })
	g.Go(func() error { return s.resurfaceInboxItems(ctx) })
	g.Go(func() error { return s.expireSuppressionRules(ctx) })
	g.Go(func() error { return s.closeRegressionWatches(ctx) })

	err := g.Wait()
	s.logger.Info("sweep cycle complete", "elapsed", time.Since(started))
	return err
}
