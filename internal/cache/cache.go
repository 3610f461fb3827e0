package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Observer is notified of every lookup outcome.
type Observer func(kind string, hit bool)

// Cache memoizes computations of type T in a Store.
type Cache[T any] struct {
	kind    string
	store   Store
	now     func() time.Time
	observe Observer
	logger  zerolog.Logger
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now     func() time.Time
	observe Observer
	logger  zerolog.Logger
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithObserver registers a hit/miss callback.
func WithObserver(fn Observer) Option {
	return func(o *options) { o.observe = fn }
}

// WithLogger sets the logger used for store failures.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates a cache for one computation kind, e.g. "indicators".
func New[T any](kind string, store Store, opts ...Option) *Cache[T] {
	o := options{now: time.Now, observe: func(string, bool) {}, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[T]{
		kind:    kind,
		store:   store,
		now:     o.now,
		observe: o.observe,
		logger:  o.logger,
	}
}

// Key builds a key in this cache's kind namespace.
func (c *Cache[T]) Key(parts ...string) string {
	return Key(c.kind, parts...)
}

// GetOrCompute returns the cached value for key when it has not expired, otherwise runs compute
// and stores its result for ttl. Compute errors are returned and never cached.
// Store failures degrade to recomputation.
func (c *Cache[T]) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	now := c.now()
	if v, ok := c.lookup(ctx, key, now); ok {
		c.observe(c.kind, true)
		return v, nil
	}
	c.observe(c.kind, false)

	v, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if ttl <= 0 {
		return v, nil
	}

	raw, err := msgpack.Marshal(v)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("encode cache value")
		return v, nil
	}
	if err := c.store.Set(ctx, key, Entry{Value: raw, ExpiresAt: now.Add(ttl)}); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("store cache value")
	}
	return v, nil
}

func (c *Cache[T]) lookup(ctx context.Context, key string, now time.Time) (T, bool) {
	var v T
	e, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("read cache entry")
		return v, false
	}
	if !ok || e.Expired(now) {
		return v, false
	}
	if err := msgpack.Unmarshal(e.Value, &v); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("decode cache value")
		return v, false
	}
	return v, true
}

// Invalidate drops a single key.
func (c *Cache[T]) Invalidate(ctx context.Context, key string) error {
	if err := c.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("invalidate %s: %w", key, err)
	}
	return nil
}

// EvictExpired sweeps entries expired at now from the underlying store.
func (c *Cache[T]) EvictExpired(ctx context.Context, now time.Time) (int, error) {
	return c.store.Sweep(ctx, now)
}
