package cache

import (
	"context"
	"time"
)

// Well-known cache namespaces. Each namespace carries its own capacity,
// entry lifetime and fetch strategy.
const (
	NamespaceStatic  = "static"
	NamespaceAPI     = "api"
	NamespaceDynamic = "dynamic"
)

// Strategy selects how a request class is served from cache and network.
type Strategy string

const (
	CacheFirst           Strategy = "cache-first"
	NetworkFirst         Strategy = "network-first"
	StaleWhileRevalidate Strategy = "stale-while-revalidate"
)

// NamespaceConfig describes one logical cache and its serving strategy.
// The strategy is fixed per namespace, never negotiated per request.
type NamespaceConfig struct {
	Name       string
	MaxEntries int
	MaxAge     time.Duration
	Strategy   Strategy
}

// DefaultNamespaces returns the built-in cache topology: immutable static
// assets, API responses, and latency-sensitive dynamic content.
func DefaultNamespaces() []NamespaceConfig {
	return []NamespaceConfig{
		{Name: NamespaceStatic, MaxEntries: 60, MaxAge: 7 * 24 * time.Hour, Strategy: CacheFirst},
		{Name: NamespaceAPI, MaxEntries: 100, MaxAge: time.Hour, Strategy: NetworkFirst},
		{Name: NamespaceDynamic, MaxEntries: 50, MaxAge: 5 * time.Minute, Strategy: StaleWhileRevalidate},
	}
}

// Entry is a cached payload with its storage instant and lifetime.
type Entry struct {
	Key      string
	Payload  []byte
	StoredAt time.Time
	TTL      time.Duration
}

// Valid reports whether the entry is within its TTL. Expired entries are
// logically absent for strategies that require freshness, even though the
// store retains them physically until eviction.
func (e Entry) Valid(now time.Time) bool {
	return now.Sub(e.StoredAt) <= e.TTL
}

// Store is a namespaced key-value cache. Implementations must be safe for
// concurrent use. Get reports a miss for keys that were never stored or
// were evicted; TTL validity is left to the caller so stale entries can
// still be served where the strategy allows it.
type Store interface {
	Get(ctx context.Context, namespace, key string) (Entry, bool, error)
	Put(ctx context.Context, namespace, key string, payload []byte, ttl time.Duration) error
	Delete(ctx context.Context, namespace string, keys ...string) error
}
