// Package cron runs the retention job that expires old upload batches,
// using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/quangtd/invoice2sap/internal/domain/archive"
	"github.com/quangtd/invoice2sap/internal/metrics"
	"github.com/quangtd/invoice2sap/pkg/storage"
)

// Scheduler manages background scheduled jobs.
type Scheduler struct {
	cron          *cron.Cron
	repo          *archive.Repository
	search        *archive.SearchIndex
	store         storage.Store
	retentionDays int
	schedule      string
	logger        *slog.Logger
}

// NewScheduler creates the retention scheduler. retentionDays of zero
// disables the job.
func NewScheduler(repo *archive.Repository, search *archive.SearchIndex, store storage.Store, retentionDays int, schedule string, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:          c,
		repo:          repo,
		search:        search,
		store:         store,
		retentionDays: retentionDays,
		schedule:      schedule,
		logger:        logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	if s.retentionDays <= 0 {
		s.logger.Info("upload retention disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.schedule, s.purgeExpiredBatches)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("schedule", s.schedule),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the retention job.
func (s *Scheduler) RunNow() {
	go s.purgeExpiredBatches()
}

// purgeExpiredBatches drops expired batches from the database, the
// search index and disk.
func (s *Scheduler) purgeExpiredBatches() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	s.logger.Info("starting upload retention purge",
		slog.Time("cutoff", cutoff),
	)

	ids, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to delete expired batches", slog.Any("error", err))
		return
	}

	purged := 0
	for _, id := range ids {
		if err := s.search.DeleteBatch(id); err != nil {
			s.logger.Warn("failed to remove batch from search index",
				slog.String("batch_id", id.String()),
				slog.Any("error", err),
			)
		}
		if err := s.store.DeleteBatch(ctx, id); err != nil {
			s.logger.Warn("failed to remove batch files",
				slog.String("batch_id", id.String()),
				slog.Any("error", err),
			)
			continue
		}
		purged++
		metrics.RetentionPurgesTotal.Inc()
	}

	// Batches uploaded but never archived expire by file age.
	orphaned, err := s.store.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Warn("failed to purge orphaned uploads", slog.Any("error", err))
	}

	s.logger.Info("upload retention purge completed",
		slog.Int("batches_purged", purged),
		slog.Int("orphans_purged", orphaned),
	)
}
