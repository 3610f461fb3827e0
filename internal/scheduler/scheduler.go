package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"MarketPulse/internal/collector"
	"MarketPulse/internal/config"
	"MarketPulse/internal/ingest"
	"MarketPulse/internal/model"
	"MarketPulse/internal/notifier"
)

// Notifier delivers messages to operators.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages all cron tasks and operator commands.
type Scheduler struct {
	Cron      *cron.Cron
	Runner    *ingest.Runner
	Collector *collector.Collector
	Notifier  Notifier // optional
	Logger    zerolog.Logger
	Ctx       context.Context
	Now       func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, runner *ingest.Runner, col *collector.Collector, n Notifier, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Runner:    runner,
		Collector: col,
		Notifier:  n,
		Logger:    logger,
		Ctx:       ctx,
		Now:       time.Now,
	}
}

// RegisterAll registers the scheduled ingest and the cache sweep. A disabled schedule skips its task.
func (s *Scheduler) RegisterAll(ingestCron, sweepCron string) error {
	if config.Enabled(ingestCron) {
		if _, err := s.Cron.AddFunc(ingestCron, s.ingestTask); err != nil {
			return fmt.Errorf("register ingest task: %w", err)
		}
	} else {
		s.Logger.Info().Msg("scheduled ingest disabled")
	}
	if config.Enabled(sweepCron) {
		if _, err := s.Cron.AddFunc(sweepCron, s.sweepTask); err != nil {
			return fmt.Errorf("register sweep task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info().Int("tasks", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running tasks.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info().Msg("scheduler stopped")
}

// RunIngestNow starts an ingest job immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunIngestNow() (*model.IngestJob, error) {
	return s.Runner.Start(s.Ctx, ingest.Options{})
}

func (s *Scheduler) ingestTask() {
	s.Logger.Info().Msg("running scheduled ingest")
	if _, err := s.RunIngestNow(); err != nil {
		s.Logger.Error().Err(err).Msg("scheduled ingest")
		s.trySend(fmt.Sprintf("❌ Scheduled ingest failed to start: %v", err))
	}
}

func (s *Scheduler) sweepTask() {
	n, err := s.Collector.EvictExpired(s.Ctx, s.Now())
	if err != nil {
		s.Logger.Warn().Err(err).Msg("cache sweep")
		return
	}
	if n > 0 {
		s.Logger.Debug().Int("evicted", n).Msg("cache sweep")
	}
}

// NotifyIngest reports a finished job. Used as the runner's completion hook.
func (s *Scheduler) NotifyIngest(job model.IngestJob) {
	s.trySend(notifier.FormatIngestSummary(&job))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	switch fields[0] {
	case "/ingest":
		job, err := s.Runner.Start(ctx, ingest.Options{})
		if err != nil {
			return fmt.Sprintf("❌ Ingest failed to start: %v", err)
		}
		return fmt.Sprintf("⏳ Ingest started: %s (%d symbols)", job.ID, job.Total)
	case "/jobs":
		jobs, err := s.Runner.RecentJobs(5)
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return notifier.FormatJobs(jobs)
	case "/heatmap":
		h := model.Horizon1D
		if len(fields) > 1 {
			var ok bool
			if h, ok = model.ParseHorizon(fields[1]); !ok {
				return "Invalid duration. Use one of 1d, 1w, 1m, 3m, 6m, 1y."
			}
		}
		hm, err := s.Collector.SectorHeatmap(ctx, h)
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		if len(hm.Sectors) == 0 {
			return "No data available. Run ingest first."
		}
		return notifier.FormatHeatmap(hm)
	case "/analysis":
		if len(fields) < 2 {
			return "Usage: /analysis SYMBOL"
		}
		sym := strings.ToUpper(fields[1])
		snap, err := s.Collector.Indicators(ctx, sym)
		if errors.Is(err, collector.ErrSourceUnavailable) {
			return fmt.Sprintf("No data for %s.", sym)
		}
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return notifier.FormatSnapshot(sym, snap)
	default:
		return helpText
	}
}

const helpText = "Available commands:\n• /ingest\n• /jobs\n• /heatmap [1d|1w|1m|3m|6m|1y]\n• /analysis SYMBOL"

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.Logger.Error().Err(err).Msg("send notification")
	}
}
