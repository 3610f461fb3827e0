package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"MarketPulse/internal/collector"
	"MarketPulse/internal/metrics"
	"MarketPulse/internal/model"
	"MarketPulse/internal/recorder"
)

// ErrJobNotFound is returned when no progress exists for a job id.
var ErrJobNotFound = errors.New("ingest job not found")

// Config holds the ingest settings.
type Config struct {
	UniversePath      string
	OutDir            string
	LogsDir           string
	HistoryYears      int
	RequestsPerSecond float64 // <= 0 disables throttling
	Limit             int     // default symbol cap, 0 = all
}

// Options narrows a single run. Zero values fall back to the configured defaults.
type Options struct {
	Start   time.Time
	End     time.Time
	Limit   int
	Symbols []string
}

// Runner downloads daily history for the universe in background jobs.
type Runner struct {
	cfg      Config
	fetcher  collector.Fetcher
	recorder recorder.Recorder
	limiter  *rate.Limiter
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
	onFinish func(model.IngestJob)

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Runner.
type Option func(*Runner)

// WithMetrics wires Prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithLogger sets the service logger. Each job additionally writes its own log file.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithOnFinish registers a callback invoked with the final state of every job.
func WithOnFinish(fn func(model.IngestJob)) Option {
	return func(r *Runner) { r.onFinish = fn }
}

// NewRunner creates a runner. Jobs outlive the request that started them and stop on Close.
func NewRunner(cfg Config, fetcher collector.Fetcher, rec recorder.Recorder, opts ...Option) *Runner {
	if cfg.HistoryYears <= 0 {
		cfg.HistoryYears = 5
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	r := &Runner{
		cfg:      cfg,
		fetcher:  fetcher,
		recorder: rec,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.base, r.cancel = context.WithCancel(context.Background())
	return r
}

// Start resolves the symbol list, creates the job files and launches the download in the background.
func (r *Runner) Start(ctx context.Context, opts Options) (*model.IngestJob, error) {
	symbols, err := r.symbols(opts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, dir := range []string{r.cfg.OutDir, r.cfg.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	now := r.now()
	end := opts.End
	if end.IsZero() {
		end = now
	}
	start := opts.Start
	if start.IsZero() {
		start = now.AddDate(0, 0, -365*r.cfg.HistoryYears)
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("start %s is not before end %s", start.Format(model.DateLayout), end.Format(model.DateLayout))
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	job := &model.IngestJob{
		ID:           id,
		LogPath:      filepath.Join(r.cfg.LogsDir, id+".log"),
		ProgressPath: r.progressPath(id),
		StartedAt:    now,
		Total:        len(symbols),
		Status:       model.IngestRunning,
	}

	logFile, err := os.OpenFile(job.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, fileMode)
	if err != nil {
		return nil, fmt.Errorf("open job log: %w", err)
	}
	jobLog := zerolog.New(logFile).With().Timestamp().Str("job_id", id).Logger()

	if err := writeJSON(job.ProgressPath, model.IngestProgress{Total: job.Total, Status: model.IngestRunning}); err != nil {
		logFile.Close()
		return nil, fmt.Errorf("write progress: %w", err)
	}
	if err := r.recorder.RecordIngestJob(job); err != nil {
		r.logger.Warn().Err(err).Str("job_id", id).Msg("record ingest job")
	}
	if r.metrics != nil {
		r.metrics.IngestJobs.Inc()
	}

	r.logger.Info().Str("job_id", id).Int("symbols", len(symbols)).
		Str("start", start.Format(model.DateLayout)).Str("end", end.Format(model.DateLayout)).
		Msg("ingest job started")
	jobLog.Info().Int("symbols", len(symbols)).
		Str("start", start.Format(model.DateLayout)).Str("end", end.Format(model.DateLayout)).
		Msg("starting download")

	snapshot := *job
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer logFile.Close()
		r.run(job, symbols, start, end, jobLog)
	}()
	return &snapshot, nil
}

func (r *Runner) symbols(opts Options) ([]string, error) {
	symbols := opts.Symbols
	if len(symbols) == 0 {
		universe, err := collector.ReadUniverse(r.cfg.UniversePath)
		if err != nil {
			return nil, err
		}
		symbols = collector.Symbols(universe)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = r.cfg.Limit
	}
	if limit > 0 && len(symbols) > limit {
		symbols = symbols[:limit]
	}
	return symbols, nil
}

func (r *Runner) run(job *model.IngestJob, symbols []string, start, end time.Time, jobLog zerolog.Logger) {
	ctx := r.base
	done := 0
	for _, sym := range symbols {
		if err := r.limiter.Wait(ctx); err != nil {
			break
		}
		rows, err := r.ingestSymbol(ctx, sym, start, end)
		res := &recorder.SymbolResult{JobID: job.ID, Symbol: sym, Rows: rows, At: r.now()}
		if err != nil {
			job.Failed++
			res.Err = err.Error()
			jobLog.Error().Err(err).Str("symbol", sym).Msg("download failed")
			r.countSymbol("failed")
		} else {
			job.Succeeded++
			jobLog.Info().Str("symbol", sym).Int("rows", rows).Msg("saved")
			r.countSymbol("ok")
		}
		if err := r.recorder.RecordSymbolResult(res); err != nil {
			jobLog.Warn().Err(err).Msg("record symbol result")
		}

		done++
		current := sym
		r.writeProgress(job, jobLog, model.IngestProgress{Total: job.Total, Done: done, Current: &current, Status: model.IngestRunning})
	}

	job.FinishedAt = r.now()
	final := model.IngestProgress{Total: job.Total, Done: done, Status: model.IngestFinished}
	if ctx.Err() != nil {
		job.Status = model.IngestFailed
		final.Status = model.IngestFailed
		jobLog.Warn().Int("done", done).Msg("download interrupted")
	} else {
		job.Status = model.IngestFinished
		final.Done = job.Total
		jobLog.Info().Int("succeeded", job.Succeeded).Int("failed", job.Failed).
			Str("out_dir", r.cfg.OutDir).Msg("download finished")
	}
	r.writeProgress(job, jobLog, final)
	if err := r.recorder.RecordIngestJob(job); err != nil {
		r.logger.Warn().Err(err).Str("job_id", job.ID).Msg("record ingest job")
	}
	r.logger.Info().Str("job_id", job.ID).Str("status", string(job.Status)).
		Int("succeeded", job.Succeeded).Int("failed", job.Failed).Msg("ingest job done")
	if r.onFinish != nil {
		r.onFinish(*job)
	}
}

func (r *Runner) ingestSymbol(ctx context.Context, symbol string, start, end time.Time) (int, error) {
	bars, err := r.fetcher.FetchDailyBars(ctx, symbol, start, end)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("no data for %s", symbol)
	}
	src := collector.NewCSVSource(r.cfg.OutDir)
	if err := writeBars(src.Path(symbol), bars); err != nil {
		return 0, fmt.Errorf("save %s: %w", symbol, err)
	}
	return len(bars), nil
}

func (r *Runner) writeProgress(job *model.IngestJob, jobLog zerolog.Logger, p model.IngestProgress) {
	if err := writeJSON(job.ProgressPath, p); err != nil {
		jobLog.Error().Err(err).Str("path", job.ProgressPath).Msg("write progress")
	}
}

func (r *Runner) countSymbol(outcome string) {
	if r.metrics != nil {
		r.metrics.IngestSymbols.WithLabelValues(outcome).Inc()
	}
}

func (r *Runner) progressPath(jobID string) string {
	return filepath.Join(r.cfg.LogsDir, jobID+".progress.json")
}

// Progress returns the latest progress document of a job.
func (r *Runner) Progress(jobID string) (*model.IngestProgress, error) {
	if !validJobID(jobID) {
		return nil, ErrJobNotFound
	}
	p, err := readProgress(r.progressPath(jobID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return p, nil
}

// RecentJobs lists recorded jobs, newest first.
func (r *Runner) RecentJobs(limit int) ([]model.IngestJob, error) {
	return r.recorder.RecentIngestJobs(limit)
}

// Wait blocks until every started job has finished.
func (r *Runner) Wait() { r.wg.Wait() }

// Close interrupts running jobs and waits for them to record their final state.
func (r *Runner) Close() {
	r.cancel()
	r.wg.Wait()
}

func validJobID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, c := range id {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}
