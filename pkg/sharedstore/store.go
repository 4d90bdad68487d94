package sharedstore

import (
	"context"

	"github.com/sitewatch/platform/pkg/types"
)

// Store is the shared-store protocol the coordinator and probe workers
// both depend on. It is implemented by RedisStore; this package's own
// tests run RedisStore against miniredis, so the wire behavior under
// test is the real Redis protocol. Tests in the packages that consume
// Store (coordinator, worker, api) use hand-written in-memory fakes.
type Store interface {
	// Registry (coordinator-only writes; workers read).
	SyncSite(ctx context.Context, site types.SiteConfig) error
	RemoveSite(ctx context.Context, siteID string) error
	BulkSync(ctx context.Context, sites []types.SiteConfig) error
	VerifySync(ctx context.Context, sites []types.SiteConfig) (bool, error)
	ListSiteConfigs(ctx context.Context) ([]types.SiteConfig, error)

	// Registry update fan-out.
	SubscribeRegistryUpdates(ctx context.Context) (<-chan types.RegistryUpdate, func() error)

	// Measurements (single-writer per (site, worker), multi-reader).
	PutMeasurement(ctx context.Context, siteID, workerID string, m *types.Measurement) error
	GetMeasurement(ctx context.Context, siteID, workerID string) (*types.Measurement, bool, error)

	// Presence.
	Heartbeat(ctx context.Context, presence types.WorkerPresence) error
	ListPresentWorkers(ctx context.Context) ([]types.WorkerPresence, error)

	Close() error
}
