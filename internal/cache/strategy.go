package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aryan-mod/suraksha-setu/pkg/logger"
	"github.com/aryan-mod/suraksha-setu/pkg/metrics"
)

// DefaultNetworkTimeout bounds the network leg of every strategy.
const DefaultNetworkTimeout = 10 * time.Second

// FetchFunc retrieves a payload from the origin for a cache key.
type FetchFunc func(ctx context.Context, key string) ([]byte, error)

// Engine serves requests according to the strategy fixed by the request's
// namespace. Store failures are treated as cache misses and never fail the
// request on their own.
type Engine struct {
	store      Store
	fetch      FetchFunc
	namespaces map[string]NamespaceConfig
	timeout    time.Duration
	clock      func() time.Time
	log        *zap.Logger

	// onRefresh is invoked after a background revalidation completes.
	onRefresh func(key string, err error)
}

// EngineOption customises the strategy engine.
type EngineOption func(*Engine)

// WithNetworkTimeout bounds the network leg of each strategy.
func WithNetworkTimeout(timeout time.Duration) EngineOption {
	return func(e *Engine) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

// WithEngineClock overrides the time source, primarily for tests.
func WithEngineClock(clock func() time.Time) EngineOption {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithRefreshHook registers a callback fired when a stale-while-revalidate
// background refresh finishes. Used by tests to synchronise.
func WithRefreshHook(hook func(key string, err error)) EngineOption {
	return func(e *Engine) {
		e.onRefresh = hook
	}
}

// NewEngine constructs a strategy engine over the supplied store and origin fetch.
func NewEngine(store Store, fetch FetchFunc, configs []NamespaceConfig, opts ...EngineOption) *Engine {
	engine := &Engine{
		store:      store,
		fetch:      fetch,
		namespaces: make(map[string]NamespaceConfig, len(configs)),
		timeout:    DefaultNetworkTimeout,
		clock:      time.Now,
		log:        logger.WithModule("cache.strategy"),
	}
	for _, cfg := range configs {
		engine.namespaces[cfg.Name] = cfg
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Fetch serves a key for the given request class. A class with no
// configured namespace defaults to network-first against the origin with
// no caching side effect.
func (e *Engine) Fetch(ctx context.Context, class, key string) ([]byte, error) {
	cfg, ok := e.namespaces[class]
	if !ok {
		return e.fetchNetwork(ctx, key)
	}

	switch cfg.Strategy {
	case CacheFirst:
		return e.cacheFirst(ctx, cfg, key)
	case StaleWhileRevalidate:
		return e.staleWhileRevalidate(ctx, cfg, key)
	default:
		return e.networkFirst(ctx, cfg, key)
	}
}

// cacheFirst returns a valid cached entry, otherwise fetches and stores.
// A network failure with no valid entry propagates: static assets cannot
// be stale, so a miss is a genuine absence.
func (e *Engine) cacheFirst(ctx context.Context, cfg NamespaceConfig, key string) ([]byte, error) {
	if entry, ok := e.lookup(ctx, cfg.Name, key); ok {
		if entry.Valid(e.clock()) {
			metrics.CacheRequests.WithLabelValues(cfg.Name, "hit").Inc()
			return entry.Payload, nil
		}
		metrics.CacheRequests.WithLabelValues(cfg.Name, "expired").Inc()
	} else {
		metrics.CacheRequests.WithLabelValues(cfg.Name, "miss").Inc()
	}

	payload, err := e.fetchNetwork(ctx, key)
	if err != nil {
		return nil, err
	}
	e.storePayload(ctx, cfg, key, payload)
	return payload, nil
}

// networkFirst prioritises freshness but falls back to the cache, stale or
// not, when the origin is unreachable.
func (e *Engine) networkFirst(ctx context.Context, cfg NamespaceConfig, key string) ([]byte, error) {
	payload, err := e.fetchNetwork(ctx, key)
	if err == nil {
		e.storePayload(ctx, cfg, key, payload)
		return payload, nil
	}

	if entry, ok := e.lookup(ctx, cfg.Name, key); ok {
		result := "hit"
		if !entry.Valid(e.clock()) {
			result = "stale"
		}
		metrics.CacheRequests.WithLabelValues(cfg.Name, result).Inc()
		e.log.Debug("origin unreachable, serving cached entry",
			zap.String("namespace", cfg.Name),
			zap.String("key", key),
			zap.Error(err),
		)
		return entry.Payload, nil
	}

	metrics.CacheRequests.WithLabelValues(cfg.Name, "miss").Inc()
	return nil, err
}

// staleWhileRevalidate returns whatever is cached immediately, TTL or not,
// and refreshes in the background for the next call. An empty cache makes
// this call behave like network-first.
func (e *Engine) staleWhileRevalidate(ctx context.Context, cfg NamespaceConfig, key string) ([]byte, error) {
	entry, ok := e.lookup(ctx, cfg.Name, key)
	if !ok {
		metrics.CacheRequests.WithLabelValues(cfg.Name, "miss").Inc()
		return e.networkFirst(ctx, cfg, key)
	}

	result := "hit"
	if !entry.Valid(e.clock()) {
		result = "stale"
	}
	metrics.CacheRequests.WithLabelValues(cfg.Name, result).Inc()

	// The refresh is detached from the request: it completes and overwrites
	// the cache even if the caller has gone away.
	go func() {
		refreshCtx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()

		payload, err := e.fetch(refreshCtx, key)
		if err == nil {
			e.storePayload(refreshCtx, cfg, key, payload)
		} else {
			e.log.Debug("background revalidation failed",
				zap.String("namespace", cfg.Name),
				zap.String("key", key),
				zap.Error(err),
			)
		}
		if e.onRefresh != nil {
			e.onRefresh(key, err)
		}
	}()

	return entry.Payload, nil
}

func (e *Engine) fetchNetwork(ctx context.Context, key string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	fetchCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	return e.fetch(fetchCtx, key)
}

func (e *Engine) lookup(ctx context.Context, namespace, key string) (Entry, bool) {
	entry, ok, err := e.store.Get(ctx, namespace, key)
	if err != nil {
		e.log.Warn("cache read failed, treating as miss",
			zap.String("namespace", namespace),
			zap.String("key", key),
			zap.Error(err),
		)
		return Entry{}, false
	}
	return entry, ok
}

func (e *Engine) storePayload(ctx context.Context, cfg NamespaceConfig, key string, payload []byte) {
	if err := e.store.Put(ctx, cfg.Name, key, payload, cfg.MaxAge); err != nil {
		e.log.Warn("cache write failed",
			zap.String("namespace", cfg.Name),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
