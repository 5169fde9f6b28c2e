// internal/directory/directory_test.go
package directory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"finsight/internal/analytics"
	"finsight/internal/common/config"
	"finsight/internal/common/database"
	"finsight/internal/common/logger"
	"finsight/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	calls    int32
	listings map[string][]analytics.SymbolListing
	err      error
}

func (f *fakeLister) ListSymbols(_ context.Context, namespace string) ([]analytics.SymbolListing, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.listings[namespace], nil
}

func newTestRedis(t *testing.T) *database.RedisClient {
	t.Helper()
	mr := miniredis.RunT(t)
	return &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
}

func testLister() *fakeLister {
	return &fakeLister{
		listings: map[string][]analytics.SymbolListing{
			"US": {
				{Symbol: "AAPL.US", Name: "Apple Inc", Currency: "USD"},
				{Symbol: "MSFT.US", Name: "Microsoft Corporation", Currency: "USD"},
			},
			"MOEX": {
				{Symbol: "SBER.MOEX", Name: "Sberbank", Currency: "RUB"},
			},
			"COMM": {
				{Symbol: "XAU.COMM", Name: "Gold", Currency: ""},
			},
		},
	}
}

func TestRefreshBuildsSnapshot(t *testing.T) {
	svc := NewService(testLister(), newTestRedis(t), config.DirectoryConfig{CacheTTL: 60}, logger.NewTestLogger(t))

	snap, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, snap.Size())

	entry, ok := snap.Lookup("AAPL.US")
	require.True(t, ok)
	assert.Equal(t, "Apple Inc", entry.Name)
	assert.Equal(t, models.NamespaceUS, entry.Namespace)

	// Currency falls back to the namespace default when the provider omits it.
	gold, ok := snap.Lookup("XAU.COMM")
	require.True(t, ok)
	assert.Equal(t, "USD", gold.Currency)

	assert.Len(t, snap.InNamespace(models.NamespaceMOEX), 1)
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	svc := NewService(testLister(), newTestRedis(t), config.DirectoryConfig{CacheTTL: 60}, logger.NewTestLogger(t))

	snap, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	_, ok := snap.Lookup("aapl.us")
	assert.True(t, ok)
}

func TestLoadPrefersMemoryThenCache(t *testing.T) {
	rdb := newTestRedis(t)
	lister := testLister()
	svc := NewService(lister, rdb, config.DirectoryConfig{CacheTTL: 60}, logger.NewTestLogger(t))

	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	callsAfterRefresh := atomic.LoadInt32(&lister.calls)

	// In-memory hit: no new provider calls.
	_, err = svc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, callsAfterRefresh, atomic.LoadInt32(&lister.calls))

	// Fresh service with the same redis: cache hit, still no provider calls.
	svc2 := NewService(lister, rdb, config.DirectoryConfig{CacheTTL: 60}, logger.NewTestLogger(t))
	snap, err := svc2.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, snap.Size())
	assert.Equal(t, callsAfterRefresh, atomic.LoadInt32(&lister.calls))

	_, ok := snap.Lookup("SBER.MOEX")
	assert.True(t, ok)
}

func TestRefreshFailurePreservesCurrentSnapshot(t *testing.T) {
	lister := testLister()
	svc := NewService(lister, newTestRedis(t), config.DirectoryConfig{CacheTTL: 60}, logger.NewTestLogger(t))

	first, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	lister.err = errors.New("provider down")
	_, err = svc.Refresh(context.Background())
	require.Error(t, err)

	assert.Same(t, first, svc.Current())
}
