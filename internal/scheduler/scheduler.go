package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmsales/internal/config"
	"github.com/mamadbah2/farmsales/internal/domain/models"
)

const jobTimeout = 2 * time.Minute

// Reporter produces the periodic sales reports.
type Reporter interface {
	WeeklySummary(ctx context.Context) (string, error)
	DailySnapshot(ctx context.Context) (models.SalesSnapshot, error)
}

// Notifier delivers a text to the farm manager.
type Notifier interface {
	NotifyManager(ctx context.Context, message string) error
}

// SnapshotStore keeps daily KPI snapshots.
type SnapshotStore interface {
	SaveSalesSnapshot(ctx context.Context, snapshot models.SalesSnapshot) error
}

// Scheduler manages scheduled tasks. Jobs whose collaborator is nil are not scheduled.
type Scheduler struct {
	cron      *cron.Cron
	cfg       config.ReportingConfig
	reporter  Reporter
	notifier  Notifier
	snapshots SnapshotStore
	logger    *zap.Logger
}

// NewScheduler creates a new scheduler instance running in the configured time zone.
func NewScheduler(cfg config.ReportingConfig, reporter Reporter, notifier Notifier, snapshots SnapshotStore, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load scheduler timezone: %w", err)
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		cfg:       cfg,
		reporter:  reporter,
		notifier:  notifier,
		snapshots: snapshots,
		logger:    logger,
	}, nil
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler")

	if s.notifier != nil {
		if _, err := s.cron.AddFunc(s.cfg.WeeklyCron, s.sendWeeklySummary); err != nil {
			return fmt.Errorf("schedule weekly summary %q: %w", s.cfg.WeeklyCron, err)
		}
	}
	if s.snapshots != nil {
		if _, err := s.cron.AddFunc(s.cfg.DailyCron, s.storeDailySnapshot); err != nil {
			return fmt.Errorf("schedule daily snapshot %q: %w", s.cfg.DailyCron, err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// Jobs returns how many jobs are registered.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) sendWeeklySummary() {
	s.logger.Info("generating weekly sales summary")
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	summary, err := s.reporter.WeeklySummary(ctx)
	if err != nil {
		s.logger.Error("failed to generate weekly summary", zap.Error(err))
		return
	}

	if err := s.notifier.NotifyManager(ctx, summary); err != nil {
		s.logger.Error("failed to send weekly summary", zap.Error(err))
		return
	}
	s.logger.Info("weekly summary sent successfully")
}

func (s *Scheduler) storeDailySnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	snapshot, err := s.reporter.DailySnapshot(ctx)
	if err != nil {
		s.logger.Error("failed to compute daily snapshot", zap.Error(err))
		return
	}

	if err := s.snapshots.SaveSalesSnapshot(ctx, snapshot); err != nil {
		s.logger.Error("failed to store daily snapshot", zap.String("date", snapshot.Date), zap.Error(err))
		return
	}
	s.logger.Info("daily snapshot stored", zap.String("date", snapshot.Date), zap.Int("records", snapshot.RecordCount))
}
