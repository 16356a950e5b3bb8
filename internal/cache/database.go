package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aryan-mod/suraksha-setu/internal/models"
	"github.com/aryan-mod/suraksha-setu/pkg/metrics"
)

// DatabaseStore is the persistent cache tier backed by the primary SQL
// database. It survives process restarts, which the memory tier does not.
type DatabaseStore struct {
	db         *gorm.DB
	namespaces map[string]NamespaceConfig
	seq        atomic.Int64
}

// NewDatabaseStore constructs a database-backed Store.
func NewDatabaseStore(db *gorm.DB, configs []NamespaceConfig) *DatabaseStore {
	if db == nil {
		return nil
	}
	store := &DatabaseStore{
		db:         db,
		namespaces: make(map[string]NamespaceConfig, len(configs)),
	}
	for _, cfg := range configs {
		store.namespaces[cfg.Name] = cfg
	}
	store.seq.Store(time.Now().UnixNano())
	return store
}

// Get retrieves an entry by namespace and key. Expired rows are returned
// as-is; validity is the caller's decision.
func (s *DatabaseStore) Get(ctx context.Context, namespace, key string) (Entry, bool, error) {
	if s == nil {
		return Entry{}, false, errors.New("cache: database store not initialised")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var row models.CacheEntry
	err := s.db.WithContext(ctx).Take(&row, "namespace = ? AND key = ?", namespace, key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	return Entry{
		Key:      row.Key,
		Payload:  row.Payload,
		StoredAt: row.StoredAt,
		TTL:      row.ExpiresAt.Sub(row.StoredAt),
	}, true, nil
}

// Put upserts the entry and synchronously evicts the oldest rows when the
// namespace exceeds its configured capacity.
func (s *DatabaseStore) Put(ctx context.Context, namespace, key string, payload []byte, ttl time.Duration) error {
	if s == nil {
		return errors.New("cache: database store not initialised")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, ok := s.namespaces[namespace]
	if !ok {
		return nil
	}
	if ttl == 0 {
		ttl = cfg.MaxAge
	}

	now := time.Now()
	row := models.CacheEntry{
		Namespace: namespace,
		Key:       key,
		Payload:   payload,
		Sequence:  s.seq.Add(1),
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "namespace"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "sequence", "stored_at", "expires_at"}),
		}).Create(&row).Error
	if err != nil {
		return err
	}

	return s.evictOverCapacity(ctx, cfg)
}

// Delete removes keys from the namespace.
func (s *DatabaseStore) Delete(ctx context.Context, namespace string, keys ...string) error {
	if s == nil {
		return errors.New("cache: database store not initialised")
	}
	if len(keys) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	return s.db.WithContext(ctx).
		Where("namespace = ? AND key IN ?", namespace, keys).
		Delete(&models.CacheEntry{}).Error
}

// CleanupExpired deletes rows past their expiry. Invoked from the periodic
// maintenance sweep, never from the request path.
func (s *DatabaseStore) CleanupExpired(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, errors.New("cache: database store not initialised")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := s.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&models.CacheEntry{})
	return result.RowsAffected, result.Error
}

func (s *DatabaseStore) evictOverCapacity(ctx context.Context, cfg NamespaceConfig) error {
	if cfg.MaxEntries <= 0 {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.CacheEntry{}).
		Where("namespace = ?", cfg.Name).Count(&count).Error; err != nil {
		return err
	}

	excess := count - int64(cfg.MaxEntries)
	if excess <= 0 {
		return nil
	}

	var victims []models.CacheEntry
	if err := s.db.WithContext(ctx).
		Where("namespace = ?", cfg.Name).
		Order("sequence ASC").
		Limit(int(excess)).
		Find(&victims).Error; err != nil {
		return err
	}

	keys := make([]string, 0, len(victims))
	for _, victim := range victims {
		keys = append(keys, victim.Key)
	}
	metrics.CacheEvictions.WithLabelValues(cfg.Name).Add(float64(len(keys)))

	return s.Delete(ctx, cfg.Name, keys...)
}
