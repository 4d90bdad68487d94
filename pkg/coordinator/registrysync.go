package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sitewatch/platform/pkg/durastore"
	"github.com/sitewatch/platform/pkg/log"
	"github.com/sitewatch/platform/pkg/sharedstore"
	"github.com/sitewatch/platform/pkg/types"
)

const (
	verifySyncRetries = 3
	verifySyncDelay    = 5 * time.Second
)

// RegistrySync bridges the durable store and the shared store: it
// bulk-loads the registry at startup and keeps it in sync on every
// site create/update/delete, alongside installing or tearing down
// that site's Coordinator Scheduler tick.
type RegistrySync struct {
	durable   durastore.Store
	shared    sharedstore.Store
	scheduler *Scheduler
	logger    zerolog.Logger
}

// NewRegistrySync builds a RegistrySync over its collaborators.
func NewRegistrySync(durable durastore.Store, shared sharedstore.Store, scheduler *Scheduler) *RegistrySync {
	return &RegistrySync{
		durable:   durable,
		shared:    shared,
		scheduler: scheduler,
		logger:    log.WithComponent("registrysync"),
	}
}

// Start runs the coordinator startup sequence: load active sites,
// bulk-sync the shared store, verify with retry, then start each
// site's Coordinator Scheduler tick.
func (r *RegistrySync) Start(ctx context.Context) error {
	sites, err := r.durable.ListActiveSites(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active sites: %w", err)
	}

	configs := make([]types.SiteConfig, 0, len(sites))
	for _, s := range sites {
		configs = append(configs, types.ProjectSiteConfig(s))
	}

	if err := r.shared.BulkSync(ctx, configs); err != nil {
		return fmt.Errorf("failed to bulk-sync registry: %w", err)
	}

	if err := r.verifyWithRetry(ctx, configs); err != nil {
		return fmt.Errorf("registry verification failed after startup: %w", err)
	}

	for _, s := range sites {
		r.scheduler.AddSiteSchedule(s.ID)
	}

	r.logger.Info().Int("sites", len(sites)).Msg("registry sync complete")
	return nil
}

func (r *RegistrySync) verifyWithRetry(ctx context.Context, configs []types.SiteConfig) error {
	var lastErr error
	for attempt := 1; attempt <= verifySyncRetries+1; attempt++ {
		ok, err := r.shared.VerifySync(ctx, configs)
		if err != nil {
			lastErr = err
		} else if ok {
			return nil
		} else {
			lastErr = fmt.Errorf("registry verification mismatch")
		}

		r.logger.Warn().Err(lastErr).Int("attempt", attempt).Msg("registry verification failed, retrying")
		if attempt <= verifySyncRetries {
			time.Sleep(verifySyncDelay)
		}
	}
	return lastErr
}

// CreateSite persists a new site, projects it into the shared store,
// and installs its consensus tick.
func (r *RegistrySync) CreateSite(ctx context.Context, site *types.Site) error {
	if err := r.durable.CreateSite(ctx, site); err != nil {
		return fmt.Errorf("failed to create site: %w", err)
	}
	if err := r.shared.SyncSite(ctx, types.ProjectSiteConfig(site)); err != nil {
		return fmt.Errorf("failed to sync new site to shared store: %w", err)
	}
	r.scheduler.AddSiteSchedule(site.ID)
	return nil
}

// UpdateSite persists a site's changes and re-syncs its projection
// and schedule.
func (r *RegistrySync) UpdateSite(ctx context.Context, site *types.Site) error {
	if err := r.durable.UpdateSite(ctx, site); err != nil {
		return fmt.Errorf("failed to update site: %w", err)
	}
	if err := r.shared.SyncSite(ctx, types.ProjectSiteConfig(site)); err != nil {
		return fmt.Errorf("failed to sync updated site to shared store: %w", err)
	}
	r.scheduler.UpdateSiteSchedule(site.ID)
	return nil
}

// DeleteSite removes a site's durable rows (status history first),
// its shared-store projection, and its consensus tick.
func (r *RegistrySync) DeleteSite(ctx context.Context, siteID string) error {
	if err := r.durable.DeleteSite(ctx, siteID); err != nil {
		return fmt.Errorf("failed to delete site: %w", err)
	}
	if err := r.shared.RemoveSite(ctx, siteID); err != nil {
		return fmt.Errorf("failed to remove site from shared store: %w", err)
	}
	r.scheduler.RemoveSiteSchedule(siteID)
	return nil
}
