package models

import (
	"time"
)

// CacheEntry represents a cached payload persisted in the database-backed
// cache store. Namespace scopes the key; Sequence preserves insertion order
// for FIFO capacity eviction.
type CacheEntry struct {
	Namespace string `gorm:"primaryKey;size:32"`
	Key       string `gorm:"primaryKey;size:256"`
	Payload   []byte `gorm:"type:blob"`

	Sequence  int64     `gorm:"index;not null"`
	StoredAt  time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index"`
}
