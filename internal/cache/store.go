package cache

import (
	"context"
	"strings"
	"time"
)

// Namespace prefixes every cache key.
const Namespace = "marketpulse"

// Entry is a stored value with its expiry.
type Entry struct {
	Value     []byte    `msgpack:"v"`
	ExpiresAt time.Time `msgpack:"e"`
}

// Expired reports whether the entry is no longer valid at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Store is a keyed byte store carrying explicit expiry metadata.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry) error
	Delete(ctx context.Context, key string) error
	// Sweep removes entries expired at now and returns how many were removed.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// Key builds a namespaced key such as "marketpulse:indicators:AAPL".
// Blank parts are skipped.
func Key(kind string, parts ...string) string {
	values := make([]string, 0, len(parts)+2)
	values = append(values, Namespace, strings.TrimSpace(kind))
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}
