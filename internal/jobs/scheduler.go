// Package jobs implements the maintenance scheduler (C8): a nightly
// cron sweep across every known pair plus an ingest-milestone trigger
// fired by the memory engine every N ingests. Grounded on
// _examples/rubicon-ClaraVerse/backend/internal/services/scheduler_service.go's
// gocron + "CRON_TZ=%s %s" construction for the nightly sweep.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"charactermemory/internal/memory"
	"charactermemory/internal/storage"
)

// Scheduler runs the nightly maintenance sweep and reacts to ingest
// milestones reported by the memory engine.
type Scheduler struct {
	gocron   gocron.Scheduler
	registry *storage.Registry
	memEngine *memory.Engine
	logger   *slog.Logger
}

// New constructs a Scheduler. cronExpr is a standard 5-field cron
// expression (default "0 3 * * *"); tz is an IANA timezone name (default
// "UTC"), combined per the teacher's "CRON_TZ=%s %s" convention.
func New(registry *storage.Registry, memEngine *memory.Engine, cronExpr, tz string, logger *slog.Logger) (*Scheduler, error) {
	if cronExpr == "" {
		cronExpr = "0 3 * * *"
	}
	if tz == "" {
		tz = "UTC"
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("jobs: invalid timezone %s: %w", tz, err)
	}

	sched, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("jobs: create scheduler: %w", err)
	}

	s := &Scheduler{gocron: sched, registry: registry, memEngine: memEngine, logger: logger}

	cronWithTZ := fmt.Sprintf("CRON_TZ=%s %s", tz, cronExpr)
	if _, err := sched.NewJob(
		gocron.CronJob(cronWithTZ, false),
		gocron.NewTask(s.runNightlySweep),
		gocron.WithName("nightly-maintenance-sweep"),
	); err != nil {
		return nil, fmt.Errorf("jobs: register nightly sweep: %w", err)
	}

	memEngine.OnMilestone(s.onIngestMilestone)

	return s, nil
}

// Start begins running the nightly sweep job.
func (s *Scheduler) Start() {
	s.gocron.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	return s.gocron.Shutdown()
}

// runNightlySweep runs RunMaintenance for every known pair, as listed by
// the registry's pairs manifest.
func (s *Scheduler) runNightlySweep() {
	logger := s.loggerOrDefault()
	ctx := context.Background()

	pairs, err := s.registry.Pairs()
	if err != nil {
		logger.Warn("nightly sweep: failed to enumerate pairs", "error", err)
		return
	}

	logger.Info("nightly sweep starting", "pairs", len(pairs))
	for _, p := range pairs {
		if err := s.memEngine.RunMaintenance(ctx, p.CharacterID, p.UserID); err != nil {
			logger.Warn("nightly sweep: maintenance failed", "character_id", p.CharacterID, "user_id", p.UserID, "error", err)
		}
	}
	logger.Info("nightly sweep complete")
}

// onIngestMilestone runs an opportunistic maintenance pass for a single
// pair, fired every IngestMilestone ingests (default 100).
func (s *Scheduler) onIngestMilestone(characterID, userID string) {
	logger := s.loggerOrDefault()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.memEngine.RunMaintenance(ctx, characterID, userID); err != nil {
		logger.Warn("ingest-milestone maintenance failed", "character_id", characterID, "user_id", userID, "error", err)
	}
}

func (s *Scheduler) loggerOrDefault() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
