package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // exchange zones for session dates

	"github.com/rs/zerolog"

	"MarketPulse/internal/api"
	"MarketPulse/internal/cache"
	"MarketPulse/internal/collector"
	"MarketPulse/internal/config"
	"MarketPulse/internal/ingest"
	"MarketPulse/internal/metrics"
	"MarketPulse/internal/model"
	"MarketPulse/internal/normalize"
	"MarketPulse/internal/notifier"
	"MarketPulse/internal/recorder"
	"MarketPulse/internal/scheduler"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		boot := bootLogger()
		boot.Fatal().Err(err).Msg("load config")
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("config validation")
	}
	logger.Info().Str("config", cfgPath).Msg("MarketPulse starting")

	m := metrics.New()

	// Init cache store
	var store cache.Store = cache.NewMemoryStore()
	if cfg.Cache.Backend == "redis" {
		rs, err := cache.NewRedisStore(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPass,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("init redis cache failed, using memory")
		} else {
			store = rs
			defer rs.Close()
		}
	}

	// Init collector
	col := collector.NewCollector(
		collector.NewCSVSource(cfg.Data.OHLCVDir),
		store,
		collector.Config{
			UniversePath: cfg.Data.UniverseFile,
			TTL:          cfg.Cache.TTL,
			Policy:       normalize.DefaultPolicy,
		},
		collector.WithMetrics(m),
		collector.WithLogger(component(logger, "collector")),
	)

	// Init fetcher
	var fetcher collector.Fetcher
	if cfg.Ingest.Provider == "mock" {
		fetcher = &collector.MockFetcher{Price: 100}
	} else {
		fetcher = collector.NewYahooFetcher(cfg.Proxy)
	}
	logger.Info().Str("provider", fetcher.Name()).Msg("data source")

	// Init recorder
	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if config.Enabled(cfg.Database.SQLitePath) {
		if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
			logger.Warn().Err(err).Msg("create data dir")
		}
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, component(logger, "recorder"))
		if err != nil {
			logger.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			rec = sr
			defer sr.Close()
		}
	}

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init Telegram notifier
	var tn *notifier.TelegramNotifier
	var n scheduler.Notifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, component(logger, "telegram"))
		n = tn
	}

	// Init ingest runner and scheduler; the runner reports finished jobs through the scheduler
	var sched *scheduler.Scheduler
	runner := ingest.NewRunner(ingest.Config{
		UniversePath:      cfg.Data.UniverseFile,
		OutDir:            cfg.Data.OHLCVDir,
		LogsDir:           cfg.Data.IngestLogsDir,
		HistoryYears:      cfg.Ingest.HistoryYears,
		RequestsPerSecond: cfg.Ingest.RequestsPerSecond,
		Limit:             cfg.Ingest.Limit,
	}, fetcher, rec,
		ingest.WithMetrics(m),
		ingest.WithLogger(component(logger, "ingest")),
		ingest.WithOnFinish(func(job model.IngestJob) { sched.NotifyIngest(job) }),
	)
	defer runner.Close()

	sched = scheduler.NewScheduler(ctx, runner, col, n, component(logger, "scheduler"))
	if err := sched.RegisterAll(cfg.Ingest.Cron, cfg.Cache.SweepCron); err != nil {
		logger.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		logger.Info().Msg("telegram polling started")
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		logger.Info().Msg("RUN_ON_START enabled, starting ingest now")
		if _, err := sched.RunIngestNow(); err != nil {
			logger.Error().Err(err).Msg("ingest on start")
		}
	}

	srv := api.New(col, runner, m, component(logger, "api"), cfg.Server.RequestTimeout)
	if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
		logger.Error().Err(err).Msg("HTTP server")
	}
	logger.Info().Msg("MarketPulse stopped")
}

func bootLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.Log.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

func component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
