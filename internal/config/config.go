package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Disabled switches off an optional cron job or the SQLite recorder.
const Disabled = "off"

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr           string        `yaml:"addr"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"server"`
	Data struct {
		Dir           string `yaml:"dir"`
		UniverseFile  string `yaml:"universe_file"`
		OHLCVDir      string `yaml:"ohlcv_dir"`
		IngestLogsDir string `yaml:"ingest_logs_dir"`
	} `yaml:"data"`
	Cache struct {
		Backend   string        `yaml:"backend"`
		TTL       time.Duration `yaml:"ttl"`
		SweepCron string        `yaml:"sweep_cron"`
		RedisAddr string        `yaml:"redis_addr"`
		RedisPass string        `yaml:"redis_password"`
		RedisDB   int           `yaml:"redis_db"`
	} `yaml:"cache"`
	Ingest struct {
		Provider          string  `yaml:"provider"`
		Cron              string  `yaml:"cron"`
		HistoryYears      int     `yaml:"history_years"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Limit             int     `yaml:"limit"`
	} `yaml:"ingest"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then a .env file if present, then applies environment
// variable overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env never overrides variables already set in the process environment
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.RedisPass = v
	}
	if v := os.Getenv("INGEST_PROVIDER"); v != "" {
		cfg.Ingest.Provider = v
	}
	if v := os.Getenv("CRON_INGEST"); v != "" {
		cfg.Ingest.Cron = v
	}
	if v := os.Getenv("INGEST_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingest.Limit = n
		}
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_PRETTY"); v != "" {
		cfg.Log.Pretty = v == "true" || v == "1"
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":5000"
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 30 * time.Second
	}
	if cfg.Data.Dir == "" {
		cfg.Data.Dir = "data"
	}
	if cfg.Data.UniverseFile == "" {
		cfg.Data.UniverseFile = filepath.Join(cfg.Data.Dir, "universe_sample.json")
	}
	if cfg.Data.OHLCVDir == "" {
		cfg.Data.OHLCVDir = filepath.Join(cfg.Data.Dir, "ohlcv")
	}
	if cfg.Data.IngestLogsDir == "" {
		cfg.Data.IngestLogsDir = filepath.Join(cfg.Data.Dir, "ingest_logs")
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 60 * time.Second
	}
	if cfg.Cache.SweepCron == "" {
		cfg.Cache.SweepCron = "0 * * * * *"
	}
	if cfg.Ingest.Provider == "" {
		cfg.Ingest.Provider = "yahoo"
	}
	if cfg.Ingest.Cron == "" {
		cfg.Ingest.Cron = "0 30 22 * * 1-5"
	}
	if cfg.Ingest.HistoryYears == 0 {
		cfg.Ingest.HistoryYears = 5
	}
	if cfg.Ingest.RequestsPerSecond == 0 {
		cfg.Ingest.RequestsPerSecond = 4
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = filepath.Join(cfg.Data.Dir, "marketpulse.db")
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate checks that the settings are consistent.
func (c *Config) Validate() error {
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend %q is not one of memory, redis", c.Cache.Backend)
	}
	switch c.Ingest.Provider {
	case "yahoo", "mock":
	default:
		return fmt.Errorf("ingest.provider %q is not one of yahoo, mock", c.Ingest.Provider)
	}
	if c.Ingest.RequestsPerSecond <= 0 {
		return fmt.Errorf("ingest.requests_per_second must be positive")
	}
	if c.Ingest.HistoryYears < 0 {
		return fmt.Errorf("ingest.history_years must not be negative")
	}
	if c.Ingest.Limit < 0 {
		return fmt.Errorf("ingest.limit must not be negative")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// Enabled reports whether an optional setting is switched on.
func Enabled(v string) bool {
	return v != "" && v != Disabled
}

// TelegramEnabled reports whether ingest notifications and bot commands are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
