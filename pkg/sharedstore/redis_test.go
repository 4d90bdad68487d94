package sharedstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitewatch/platform/pkg/types"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStoreFromClient(client), mr
}

func TestRedisStore_SyncSiteRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	defer store.Close()
	ctx := context.Background()

	site := types.SiteConfig{ID: "site-1", URL: "https://example.com", CheckInterval: 5, IsActive: true, OwnerID: "user-1"}
	require.NoError(t, store.SyncSite(ctx, site))

	got, err := store.ListSiteConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, site.ID, got[0].ID)
	assert.Equal(t, site.URL, got[0].URL)
}

func TestRedisStore_RemoveSite(t *testing.T) {
	store, _ := newTestStore(t)
	defer store.Close()
	ctx := context.Background()

	site := types.SiteConfig{ID: "site-1", URL: "https://example.com", CheckInterval: 5, IsActive: true}
	require.NoError(t, store.SyncSite(ctx, site))
	require.NoError(t, store.RemoveSite(ctx, "site-1"))

	got, err := store.ListSiteConfigs(ctx)
	require.NoError(t, err)
	assert.Empty(t, got, "expected empty registry after remove")
}

func TestRedisStore_BulkSyncReplacesRegistry(t *testing.T) {
	store, _ := newTestStore(t)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.SyncSite(ctx, types.SiteConfig{ID: "stale", URL: "https://stale.example.com", CheckInterval: 1, IsActive: true}))

	fresh := []types.SiteConfig{
		{ID: "site-a", URL: "https://a.example.com", CheckInterval: 1, IsActive: true},
		{ID: "site-b", URL: "https://b.example.com", CheckInterval: 5, IsActive: false},
	}
	require.NoError(t, store.BulkSync(ctx, fresh))

	ok, err := store.VerifySync(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, ok, "expected registry to verify against the bulk-synced set")

	got, err := store.ListSiteConfigs(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2, "expected stale entry to be replaced")
}

func TestRedisStore_VerifySyncDetectsDrift(t *testing.T) {
	store, _ := newTestStore(t)
	defer store.Close()
	ctx := context.Background()

	site := types.SiteConfig{ID: "site-1", URL: "https://example.com", CheckInterval: 5, IsActive: true}
	require.NoError(t, store.SyncSite(ctx, site))

	drifted := site
	drifted.CheckInterval = 10
	ok, err := store.VerifySync(ctx, []types.SiteConfig{drifted})
	require.NoError(t, err)
	assert.False(t, ok, "expected drift in checkInterval to fail verification")
}

func TestRedisStore_MeasurementRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	defer store.Close()
	ctx := context.Background()

	m := &types.Measurement{
		URL:       "https://example.com",
		CheckedAt: time.Now().UTC().Truncate(time.Second),
		WorkerID:  "worker-1",
		IsUp:      true,
		HTTP:      types.HTTPResult{Up: true, StatusCode: 200},
	}
	require.NoError(t, store.PutMeasurement(ctx, "site-1", "worker-1", m))

	got, ok, err := store.GetMeasurement(ctx, "site-1", "worker-1")
	require.NoError(t, err)
	require.True(t, ok, "expected measurement to be present")
	assert.Equal(t, m.WorkerID, got.WorkerID)
	assert.Equal(t, m.IsUp, got.IsUp)
}

func TestRedisStore_GetMeasurementMissing(t *testing.T) {
	store, _ := newTestStore(t)
	defer store.Close()
	ctx := context.Background()

	_, ok, err := store.GetMeasurement(ctx, "no-such-site", "worker-1")
	require.NoError(t, err)
	assert.False(t, ok, "expected missing measurement to report ok=false, not an error")
}

func TestRedisStore_HeartbeatAndListPresentWorkers(t *testing.T) {
	store, mr := newTestStore(t)
	defer store.Close()
	ctx := context.Background()

	presence := types.WorkerPresence{
		WorkerID:      "worker-1",
		Region:        "us-east",
		StartedAt:     time.Now().UTC().Truncate(time.Second),
		LastHeartbeat: time.Now().UTC().Truncate(time.Second),
		ActiveSites:   3,
	}
	require.NoError(t, store.Heartbeat(ctx, presence))

	workers, err := store.ListPresentWorkers(ctx)
	require.NoError(t, err)
	require.Len(t, workers, 1)
	assert.Equal(t, "worker-1", workers[0].WorkerID)
	assert.Equal(t, 3, workers[0].ActiveSites)

	mr.FastForward(61 * time.Second)

	workers, err = store.ListPresentWorkers(ctx)
	require.NoError(t, err)
	assert.Empty(t, workers, "expected presence to expire after TTL")
}

func TestRedisStore_SubscribeRegistryUpdates(t *testing.T) {
	store, _ := newTestStore(t)
	defer store.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, closeSub := store.SubscribeRegistryUpdates(ctx)
	defer closeSub()

	time.Sleep(50 * time.Millisecond) // allow the subscription to register before publishing

	site := types.SiteConfig{ID: "site-1", URL: "https://example.com", CheckInterval: 5, IsActive: true}
	require.NoError(t, store.SyncSite(ctx, site))

	select {
	case update := <-updates:
		assert.Equal(t, types.RegistryActionUpdate, update.Action)
		require.NotNil(t, update.Site)
		assert.Equal(t, site.ID, update.Site.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for registry update")
	}
}

func TestRedisStore_BulkSyncPublishesBulkAction(t *testing.T) {
	store, _ := newTestStore(t)
	defer store.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, closeSub := store.SubscribeRegistryUpdates(ctx)
	defer closeSub()
	time.Sleep(50 * time.Millisecond)

	sites := []types.SiteConfig{{ID: "site-a", URL: "https://a.example.com", CheckInterval: 1, IsActive: true}}
	require.NoError(t, store.BulkSync(ctx, sites))

	select {
	case update := <-updates:
		assert.Equal(t, types.RegistryActionBulk, update.Action)
		assert.Len(t, update.Sites, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for bulk update")
	}
}
