package durastore

import (
	"context"
	"time"

	"github.com/sitewatch/platform/pkg/types"
)

// Store is the durable persistence contract for sites and their
// status history.
type Store interface {
	CreateSite(ctx context.Context, site *types.Site) error
	GetSite(ctx context.Context, id string) (*types.Site, error)
	ListActiveSites(ctx context.Context) ([]*types.Site, error)
	ListSitesByOwner(ctx context.Context, ownerID string) ([]*types.Site, error)
	UpdateSite(ctx context.Context, site *types.Site) error
	DeleteSite(ctx context.Context, id string) error

	InsertSiteStatus(ctx context.Context, status *types.SiteStatus) error
	LatestConsensus(ctx context.Context, siteID string) (*types.SiteStatus, error)
	ListStatusHistory(ctx context.Context, siteID string, since time.Time, limit int) ([]*types.SiteStatus, error)

	ListNotificationSettings(ctx context.Context, siteID string) ([]types.NotificationSetting, error)

	Close() error
}
