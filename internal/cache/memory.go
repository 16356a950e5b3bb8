package cache

import (
	"context"
	"sync"
	"time"

	"github.com/aryan-mod/suraksha-setu/pkg/metrics"
)

// MemoryStore is the in-process cache tier. Capacity eviction is FIFO by
// insertion order and synchronous with Put, independent of TTL expiry.
type MemoryStore struct {
	mu         sync.Mutex
	namespaces map[string]*memoryNamespace
	clock      func() time.Time
}

type memoryNamespace struct {
	config  NamespaceConfig
	entries map[string]Entry
	order   []string // insertion order, oldest first
}

// MemoryOption customises a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewMemoryStore constructs a MemoryStore with the supplied namespaces.
func NewMemoryStore(configs []NamespaceConfig, opts ...MemoryOption) *MemoryStore {
	store := &MemoryStore{
		namespaces: make(map[string]*memoryNamespace, len(configs)),
		clock:      time.Now,
	}
	for _, cfg := range configs {
		store.namespaces[cfg.Name] = &memoryNamespace{
			config:  cfg,
			entries: make(map[string]Entry),
		}
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Namespace returns the configuration for a named cache, if configured.
func (s *MemoryStore) Namespace(name string) (NamespaceConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[name]
	if !ok {
		return NamespaceConfig{}, false
	}
	return ns.config, true
}

// Get returns the stored entry for the key, expired or not.
func (s *MemoryStore) Get(_ context.Context, namespace, key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		return Entry{}, false, nil
	}

	entry, ok := ns.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	return entry, true, nil
}

// Put overwrites any prior entry for the key and evicts the oldest entries
// when the namespace exceeds its capacity.
func (s *MemoryStore) Put(_ context.Context, namespace, key string, payload []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		// Unknown namespaces never cache; callers fall through to network.
		return nil
	}

	if ttl == 0 {
		ttl = ns.config.MaxAge
	}

	if _, exists := ns.entries[key]; exists {
		ns.removeFromOrder(key)
	}

	ns.entries[key] = Entry{
		Key:      key,
		Payload:  payload,
		StoredAt: s.clock(),
		TTL:      ttl,
	}
	ns.order = append(ns.order, key)

	for ns.config.MaxEntries > 0 && len(ns.entries) > ns.config.MaxEntries {
		oldest := ns.order[0]
		ns.order = ns.order[1:]
		delete(ns.entries, oldest)
		metrics.CacheEvictions.WithLabelValues(namespace).Inc()
	}

	return nil
}

// Delete removes keys from a namespace.
func (s *MemoryStore) Delete(_ context.Context, namespace string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		return nil
	}
	for _, key := range keys {
		if _, exists := ns.entries[key]; exists {
			delete(ns.entries, key)
			ns.removeFromOrder(key)
		}
	}
	return nil
}

// Len reports the number of entries held in a namespace.
func (s *MemoryStore) Len(namespace string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		return 0
	}
	return len(ns.entries)
}

func (ns *memoryNamespace) removeFromOrder(key string) {
	for i, k := range ns.order {
		if k == key {
			ns.order = append(ns.order[:i], ns.order[i+1:]...)
			return
		}
	}
}
