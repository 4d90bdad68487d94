package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/sitewatch/platform/pkg/log"
	"github.com/sitewatch/platform/pkg/metrics"
	"github.com/sitewatch/platform/pkg/types"
)

// SettingsLoader is the subset of durastore.Store the dispatcher
// depends on, so tests can substitute a fake without satisfying the
// whole durable-store contract.
type SettingsLoader interface {
	ListNotificationSettings(ctx context.Context, siteID string) ([]types.NotificationSetting, error)
}

// Notifier is the capability every channel adapter implements. The
// dispatcher depends only on this interface; concrete adapters are
// external collaborators.
type Notifier interface {
	VerifyTarget(target string) bool
	Send(ctx context.Context, target, message string) error
}

// Dispatcher routes state-change messages to each site's enabled
// notification channels.
type Dispatcher struct {
	store     SettingsLoader
	notifiers map[types.NotifyChannel]Notifier
	logger    zerolog.Logger
}

// NewDispatcher builds a Dispatcher over the given channel registry.
func NewDispatcher(store SettingsLoader, notifiers map[types.NotifyChannel]Notifier) *Dispatcher {
	return &Dispatcher{
		store:     store,
		notifiers: notifiers,
		logger:    log.WithComponent("notify"),
	}
}

// Dispatch loads site's enabled settings and sends message to each
// configured channel. Per-channel errors are logged, never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, siteID, message string, category types.NotifyCategory) {
	settings, err := d.store.ListNotificationSettings(ctx, siteID)
	if err != nil {
		d.logger.Error().Err(err).Str("site_id", siteID).Msg("failed to load notification settings")
		return
	}

	for _, setting := range settings {
		if !setting.Enabled {
			continue
		}
		notifier, ok := d.notifiers[setting.Channel]
		if !ok {
			d.logger.Warn().Str("site_id", siteID).Str("channel", string(setting.Channel)).Msg("no notifier registered for channel")
			continue
		}
		if err := notifier.Send(ctx, setting.Target, message); err != nil {
			metrics.NotificationsSentTotal.WithLabelValues(string(setting.Channel), "error").Inc()
			d.logger.Error().
				Err(err).
				Str("site_id", siteID).
				Str("channel", string(setting.Channel)).
				Str("category", string(category)).
				Msg("notification send failed")
			continue
		}
		metrics.NotificationsSentTotal.WithLabelValues(string(setting.Channel), "sent").Inc()
	}
}
