package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog"

	"MarketPulse/internal/analysis"
	"MarketPulse/internal/cache"
	"MarketPulse/internal/metrics"
	"MarketPulse/internal/model"
	"MarketPulse/internal/normalize"
	"MarketPulse/internal/sector"
)

// Config holds the collector settings.
type Config struct {
	UniversePath string
	TTL          time.Duration
	Policy       normalize.Policy
}

// Collector orchestrates reading raw rows, normalization and indicator computation,
// memoizing results in a TTL cache.
type Collector struct {
	source       RowSource
	universePath string
	ttl          time.Duration
	policy       normalize.Policy
	metrics      *metrics.Metrics
	logger       zerolog.Logger
	cacheOpts    []cache.Option

	indicators *cache.Cache[*model.IndicatorSnapshot]
	changes    *cache.Cache[*model.ChangeSummary]
}

// Option configures a Collector.
type Option func(*Collector)

// WithMetrics wires Prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Collector) { c.metrics = m }
}

// WithLogger sets the collector logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Collector) { c.logger = l }
}

// WithCacheOptions forwards options to the underlying caches.
func WithCacheOptions(opts ...cache.Option) Option {
	return func(c *Collector) { c.cacheOpts = append(c.cacheOpts, opts...) }
}

// NewCollector creates a new Collector.
func NewCollector(source RowSource, store cache.Store, cfg Config, opts ...Option) *Collector {
	c := &Collector{
		source:       source,
		universePath: cfg.UniversePath,
		ttl:          cfg.TTL,
		policy:       cfg.Policy,
		logger:       zerolog.Nop(),
	}
	if c.policy.MinRows == 0 {
		c.policy = normalize.DefaultPolicy
	}
	for _, opt := range opts {
		opt(c)
	}

	base := []cache.Option{cache.WithLogger(c.logger)}
	if c.metrics != nil {
		base = append(base, cache.WithObserver(c.metrics.ObserveCache))
	}
	base = append(base, c.cacheOpts...)
	c.indicators = cache.New[*model.IndicatorSnapshot]("indicators", store, base...)
	c.changes = cache.New[*model.ChangeSummary]("change", store, base...)
	return c
}

// Series reads and normalizes the history of one symbol.
func (c *Collector) Series(ctx context.Context, symbol string) (model.PriceSeries, error) {
	records, err := c.source.ReadRows(ctx, symbol)
	if err != nil {
		return model.PriceSeries{Symbol: symbol}, err
	}
	series, rep := normalize.Normalize(symbol, records, c.policy)
	if rep.CloseFallback {
		c.logger.Debug().Str("symbol", symbol).Msg("no close column, using column 1")
	}
	if c.metrics != nil {
		c.metrics.NormalizedDrops.WithLabelValues("discarded").Add(float64(rep.Discarded))
		c.metrics.NormalizedDrops.WithLabelValues("malformed").Add(float64(rep.Malformed))
		c.metrics.NormalizedDrops.WithLabelValues("duplicate").Add(float64(rep.Duplicates))
	}
	return series, nil
}

// Indicators returns the indicator snapshot of symbol, nil when its history is insufficient.
func (c *Collector) Indicators(ctx context.Context, symbol string) (*model.IndicatorSnapshot, error) {
	return c.indicators.GetOrCompute(ctx, c.indicators.Key(symbol), c.ttl,
		func(ctx context.Context) (*model.IndicatorSnapshot, error) {
			series, err := c.Series(ctx, symbol)
			if err != nil {
				return nil, err
			}
			snap := analysis.ComputeIndicatorsWith(series, c.policy)
			c.count("indicators", snap != nil)
			return snap, nil
		})
}

// Change returns the change summary of symbol over h, nil when the history has no usable close.
func (c *Collector) Change(ctx context.Context, symbol string, h model.Horizon) (*model.ChangeSummary, error) {
	return c.changes.GetOrCompute(ctx, c.changes.Key(symbol, string(h)), c.ttl,
		func(ctx context.Context) (*model.ChangeSummary, error) {
			series, err := c.Series(ctx, symbol)
			if err != nil {
				return nil, err
			}
			sum := analysis.ComputeChange(series, h)
			c.count("change", sum != nil)
			return sum, nil
		})
}

// Analysis computes snapshots for every universe symbol plus an optional selected symbol.
// A missing universe yields an empty symbol set.
func (c *Collector) Analysis(ctx context.Context, selected string) (*model.Analysis, error) {
	universe, err := ReadUniverse(c.universePath)
	if err != nil && !errors.Is(err, ErrUniverseUnavailable) {
		return nil, err
	}

	out := &model.Analysis{Symbols: make(map[string]*model.IndicatorSnapshot)}
	for _, sym := range Symbols(universe) {
		snap, err := c.Indicators(ctx, sym)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.logger.Warn().Err(err).Str("symbol", sym).Msg("indicators unavailable")
			continue
		}
		if snap != nil {
			out.Symbols[sym] = snap
		}
	}

	if selected != "" {
		out.Selected.Symbol = null.StringFrom(selected)
		snap, err := c.Indicators(ctx, selected)
		if err != nil && !errors.Is(err, ErrSourceUnavailable) {
			return nil, fmt.Errorf("indicators for %s: %w", selected, err)
		}
		out.Selected.Data = snap
	}
	return out, nil
}

// SectorHeatmap groups the universe by sector with per-symbol changes over h.
func (c *Collector) SectorHeatmap(ctx context.Context, h model.Horizon) (*model.SectorHeatmap, error) {
	universe, err := ReadUniverse(c.universePath)
	if err != nil {
		return nil, err
	}
	sectors := sector.Aggregate(universe, func(symbol string) (*model.ChangeSummary, bool) {
		sum, err := c.Change(ctx, symbol, h)
		if err != nil {
			c.logger.Warn().Err(err).Str("symbol", symbol).Msg("no data for symbol")
			return nil, false
		}
		return sum, sum != nil
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &model.SectorHeatmap{Duration: h, Sectors: sectors}, nil
}

// EvictExpired sweeps expired entries of every cache kind.
func (c *Collector) EvictExpired(ctx context.Context, now time.Time) (int, error) {
	// both kinds share one store, one sweep covers them
	n, err := c.indicators.EvictExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("evict expired: %w", err)
	}
	if c.metrics != nil {
		c.metrics.CacheEvictions.Add(float64(n))
	}
	return n, nil
}

func (c *Collector) count(kind string, ok bool) {
	if c.metrics == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "insufficient"
	}
	c.metrics.Computations.WithLabelValues(kind, outcome).Inc()
}
