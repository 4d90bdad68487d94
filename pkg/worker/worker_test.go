package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitewatch/platform/pkg/types"
)

// fakeStore is an in-memory sharedstore.Store substitute for unit
// tests that don't need the real Redis wire protocol.
type fakeStore struct {
	mu           sync.Mutex
	configs      []types.SiteConfig
	measurements map[string]*types.Measurement
	presence     []types.WorkerPresence
	updates      chan types.RegistryUpdate
}

func newFakeStore(configs []types.SiteConfig) *fakeStore {
	return &fakeStore{
		configs:      configs,
		measurements: make(map[string]*types.Measurement),
		updates:      make(chan types.RegistryUpdate, 8),
	}
}

func (f *fakeStore) SyncSite(ctx context.Context, site types.SiteConfig) error { return nil }
func (f *fakeStore) RemoveSite(ctx context.Context, siteID string) error      { return nil }
func (f *fakeStore) BulkSync(ctx context.Context, sites []types.SiteConfig) error {
	return nil
}
func (f *fakeStore) VerifySync(ctx context.Context, sites []types.SiteConfig) (bool, error) {
	return true, nil
}
func (f *fakeStore) ListSiteConfigs(ctx context.Context) ([]types.SiteConfig, error) {
	return f.configs, nil
}
func (f *fakeStore) SubscribeRegistryUpdates(ctx context.Context) (<-chan types.RegistryUpdate, func() error) {
	return f.updates, func() error { return nil }
}
func (f *fakeStore) PutMeasurement(ctx context.Context, siteID, workerID string, m *types.Measurement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.measurements[siteID+":"+workerID] = m
	return nil
}
func (f *fakeStore) GetMeasurement(ctx context.Context, siteID, workerID string) (*types.Measurement, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.measurements[siteID+":"+workerID]
	return m, ok, nil
}
func (f *fakeStore) Heartbeat(ctx context.Context, presence types.WorkerPresence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presence = append(f.presence, presence)
	return nil
}
func (f *fakeStore) ListPresentWorkers(ctx context.Context) ([]types.WorkerPresence, error) {
	return f.presence, nil
}
func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) countMeasurements() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.measurements)
}

// fakeProber returns a canned measurement and counts invocations.
type fakeProber struct {
	mu    sync.Mutex
	calls int
}

func (p *fakeProber) Run(ctx context.Context, rawURL, workerID string) *types.Measurement {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return &types.Measurement{URL: rawURL, WorkerID: workerID, IsUp: true}
}

func (p *fakeProber) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestWorker_StartSchedulesActiveSites(t *testing.T) {
	store := newFakeStore([]types.SiteConfig{
		{ID: "site-1", URL: "https://example.com", CheckInterval: 60, IsActive: true},
		{ID: "site-2", URL: "https://inactive.example.com", CheckInterval: 60, IsActive: false},
	})
	p := &fakeProber{}
	w := New(Config{WorkerID: "worker-1", Region: "us-east"}, store, p)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)

	w.sitesMu.Lock()
	n := len(w.sites)
	w.sitesMu.Unlock()
	assert.Equal(t, 1, n, "expected exactly 1 active site scheduled")
	assert.Equal(t, 1, store.countMeasurements(), "expected the immediate initial probe to publish")
	assert.Equal(t, StateRunning, w.State())
}

func TestWorker_RegistryUpdateAddsSite(t *testing.T) {
	store := newFakeStore(nil)
	p := &fakeProber{}
	w := New(Config{WorkerID: "worker-1"}, store, p)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	site := types.SiteConfig{ID: "site-new", URL: "https://new.example.com", CheckInterval: 60, IsActive: true}
	store.updates <- types.RegistryUpdate{Action: types.RegistryActionAdd, Site: &site}

	time.Sleep(50 * time.Millisecond)

	w.sitesMu.Lock()
	_, ok := w.sites["site-new"]
	w.sitesMu.Unlock()
	assert.True(t, ok, "expected site-new to be scheduled after an add update")
}

func TestWorker_RegistryDeleteRemovesSite(t *testing.T) {
	store := newFakeStore([]types.SiteConfig{
		{ID: "site-1", URL: "https://example.com", CheckInterval: 60, IsActive: true},
	})
	p := &fakeProber{}
	w := New(Config{WorkerID: "worker-1"}, store, p)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()
	time.Sleep(20 * time.Millisecond)

	store.updates <- types.RegistryUpdate{Action: types.RegistryActionDelete, Site: &types.SiteConfig{ID: "site-1"}}
	time.Sleep(50 * time.Millisecond)

	w.sitesMu.Lock()
	_, ok := w.sites["site-1"]
	w.sitesMu.Unlock()
	assert.False(t, ok, "expected site-1 to be unscheduled after a delete update")
}

func TestWorker_BulkUpdateReconciles(t *testing.T) {
	store := newFakeStore([]types.SiteConfig{
		{ID: "site-stale", URL: "https://stale.example.com", CheckInterval: 60, IsActive: true},
	})
	p := &fakeProber{}
	w := New(Config{WorkerID: "worker-1"}, store, p)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()
	time.Sleep(20 * time.Millisecond)

	store.updates <- types.RegistryUpdate{
		Action: types.RegistryActionBulk,
		Sites: []types.SiteConfig{
			{ID: "site-fresh", URL: "https://fresh.example.com", CheckInterval: 60, IsActive: true},
		},
	}
	time.Sleep(50 * time.Millisecond)

	w.sitesMu.Lock()
	_, hasStale := w.sites["site-stale"]
	_, hasFresh := w.sites["site-fresh"]
	w.sitesMu.Unlock()
	assert.False(t, hasStale, "expected stale site to be dropped by bulk reconciliation")
	assert.True(t, hasFresh, "expected fresh site to be scheduled by bulk reconciliation")
}

func TestWorker_StopCancelsAllSchedules(t *testing.T) {
	store := newFakeStore([]types.SiteConfig{
		{ID: "site-1", URL: "https://example.com", CheckInterval: 60, IsActive: true},
	})
	p := &fakeProber{}
	w := New(Config{WorkerID: "worker-1"}, store, p)

	require.NoError(t, w.Start(context.Background()))
	time.Sleep(20 * time.Millisecond)

	w.Stop()

	assert.Equal(t, StateStopped, w.State())
	w.sitesMu.Lock()
	n := len(w.sites)
	w.sitesMu.Unlock()
	assert.Equal(t, 0, n, "expected no scheduled sites after Stop")
}
