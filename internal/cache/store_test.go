package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aryan-mod/suraksha-setu/internal/database/testutil"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore(DefaultNamespaces())
	ctx := context.Background()

	payload := []byte(`{"zones":3}`)
	require.NoError(t, store.Put(ctx, NamespaceAPI, "/api/safe-zones", payload, time.Minute))

	entry, ok, err := store.Get(ctx, NamespaceAPI, "/api/safe-zones")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, payload, entry.Payload)
	require.True(t, entry.Valid(time.Now()))
}

func TestMemoryStoreExpiryIsLogicalNotPhysical(t *testing.T) {
	now := time.Now()
	store := NewMemoryStore(DefaultNamespaces(), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, NamespaceAPI, "k", []byte("v"), time.Second))

	entry, ok, err := store.Get(ctx, NamespaceAPI, "k")
	require.NoError(t, err)
	require.True(t, ok, "expired entries stay physically present until eviction")
	require.True(t, entry.Valid(now))
	require.False(t, entry.Valid(now.Add(2*time.Second)))
}

func TestMemoryStoreFIFOEviction(t *testing.T) {
	configs := []NamespaceConfig{{Name: NamespaceStatic, MaxEntries: 3, MaxAge: time.Hour, Strategy: CacheFirst}}
	store := NewMemoryStore(configs)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		key := fmt.Sprintf("asset-%d", i)
		require.NoError(t, store.Put(ctx, NamespaceStatic, key, []byte(key), time.Hour))
	}

	require.Equal(t, 3, store.Len(NamespaceStatic))

	_, ok, err := store.Get(ctx, NamespaceStatic, "asset-0")
	require.NoError(t, err)
	require.False(t, ok, "oldest inserted key should be evicted first")

	for i := 1; i < 4; i++ {
		_, ok, err := store.Get(ctx, NamespaceStatic, fmt.Sprintf("asset-%d", i))
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestMemoryStoreOverwriteReinserts(t *testing.T) {
	configs := []NamespaceConfig{{Name: NamespaceStatic, MaxEntries: 2, MaxAge: time.Hour, Strategy: CacheFirst}}
	store := NewMemoryStore(configs)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, NamespaceStatic, "a", []byte("1"), time.Hour))
	require.NoError(t, store.Put(ctx, NamespaceStatic, "b", []byte("2"), time.Hour))
	require.NoError(t, store.Put(ctx, NamespaceStatic, "a", []byte("3"), time.Hour))
	require.NoError(t, store.Put(ctx, NamespaceStatic, "c", []byte("4"), time.Hour))

	// "b" became the oldest once "a" was rewritten.
	_, ok, _ := store.Get(ctx, NamespaceStatic, "b")
	require.False(t, ok)

	entry, ok, _ := store.Get(ctx, NamespaceStatic, "a")
	require.True(t, ok)
	require.Equal(t, []byte("3"), entry.Payload)
}

func TestMemoryStoreUnknownNamespace(t *testing.T) {
	store := NewMemoryStore(DefaultNamespaces())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "unconfigured", "k", []byte("v"), time.Minute))
	_, ok, err := store.Get(ctx, "unconfigured", "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDatabaseStoreRoundTripAndEviction(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	configs := []NamespaceConfig{{Name: NamespaceAPI, MaxEntries: 2, MaxAge: time.Hour, Strategy: NetworkFirst}}
	store := NewDatabaseStore(db, configs)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, NamespaceAPI, "one", []byte("1"), time.Hour))
	require.NoError(t, store.Put(ctx, NamespaceAPI, "two", []byte("2"), time.Hour))

	entry, ok, err := store.Get(ctx, NamespaceAPI, "one")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("1"), entry.Payload)

	require.NoError(t, store.Put(ctx, NamespaceAPI, "three", []byte("3"), time.Hour))

	_, ok, err = store.Get(ctx, NamespaceAPI, "one")
	require.NoError(t, err)
	require.False(t, ok, "capacity eviction removes the oldest insertion")

	_, ok, _ = store.Get(ctx, NamespaceAPI, "two")
	require.True(t, ok)
	_, ok, _ = store.Get(ctx, NamespaceAPI, "three")
	require.True(t, ok)
}

func TestDatabaseStoreCleanupExpired(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db, DefaultNamespaces())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, NamespaceAPI, "stale", []byte("v"), -time.Minute))
	require.NoError(t, store.Put(ctx, NamespaceAPI, "fresh", []byte("v"), time.Hour))

	removed, err := store.CleanupExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	_, ok, _ := store.Get(ctx, NamespaceAPI, "fresh")
	require.True(t, ok)
}
