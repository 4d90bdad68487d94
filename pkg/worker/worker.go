package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sitewatch/platform/pkg/log"
	"github.com/sitewatch/platform/pkg/metrics"
	"github.com/sitewatch/platform/pkg/sharedstore"
	"github.com/sitewatch/platform/pkg/types"
)

// State is one of the worker process's lifecycle states.
type State string

const (
	StateStarting State = "STARTING"
	StateRunning  State = "RUNNING"
	StateDraining State = "DRAINING"
	StateStopped  State = "STOPPED"
)

const (
	heartbeatInterval    = 30 * time.Second
	reconnectBackoffMin  = 1 * time.Second
	reconnectBackoffMax  = 30 * time.Second
)

// prober is the subset of probe.Prober that Worker depends on, so
// tests can substitute a fake without spinning up real network I/O.
type prober interface {
	Run(ctx context.Context, rawURL, workerID string) *types.Measurement
}

// Config holds the settings needed to start a worker process.
type Config struct {
	WorkerID string
	Region   string
}

// Worker is a single probe worker process.
type Worker struct {
	id     string
	region string

	store  sharedstore.Store
	prober prober
	logger zerolog.Logger

	state   State
	stateMu sync.RWMutex

	sites   map[string]*siteSchedule
	sitesMu sync.Mutex

	unsubscribe func() error
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// siteSchedule tracks one site's ticker and in-flight guard.
type siteSchedule struct {
	config   types.SiteConfig
	cancel   context.CancelFunc
	inFlight sync.Mutex
}

// New constructs a worker bound to the given shared store and prober.
func New(cfg Config, store sharedstore.Store, p prober) *Worker {
	return &Worker{
		id:     cfg.WorkerID,
		region: cfg.Region,
		store:  store,
		prober: p,
		logger: log.WithWorkerID(cfg.WorkerID),
		state:  StateStarting,
		sites:  make(map[string]*siteSchedule),
		stopCh: make(chan struct{}),
	}
}

// Start runs the STARTING and RUNNING phases. It returns once the
// worker is actively scheduling sites; it does not block for the
// worker's lifetime.
func (w *Worker) Start(ctx context.Context) error {
	w.setState(StateStarting)

	presence := types.WorkerPresence{
		WorkerID:      w.id,
		Region:        w.region,
		StartedAt:     time.Now().UTC(),
		LastHeartbeat: time.Now().UTC(),
	}
	if err := w.store.Heartbeat(ctx, presence); err != nil {
		w.setState(StateStopped)
		return fmt.Errorf("failed to claim presence: %w", err)
	}

	w.wg.Add(1)
	go w.heartbeatLoop(ctx)

	w.setState(StateRunning)

	configs, err := w.store.ListSiteConfigs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load registry snapshot: %w", err)
	}
	for _, sc := range configs {
		if sc.IsActive {
			w.addSiteSchedule(sc)
		}
	}

	updates, unsubscribe := w.store.SubscribeRegistryUpdates(ctx)
	w.unsubscribe = unsubscribe

	w.wg.Add(1)
	go w.registryLoop(ctx, updates)

	w.logger.Info().Int("sites", len(w.sites)).Msg("worker running")
	return nil
}

// Stop enters DRAINING: cancel every per-site ticker, stop
// heartbeating, and let the presence key expire on its own TTL.
func (w *Worker) Stop() {
	w.setState(StateDraining)
	close(w.stopCh)

	if w.unsubscribe != nil {
		if err := w.unsubscribe(); err != nil {
			w.logger.Warn().Err(err).Msg("failed to unsubscribe from registry updates")
		}
	}

	w.sitesMu.Lock()
	for id, sched := range w.sites {
		sched.cancel()
		delete(w.sites, id)
	}
	w.sitesMu.Unlock()

	w.wg.Wait()
	w.setState(StateStopped)
}

func (w *Worker) setState(s State) {
	w.stateMu.Lock()
	w.state = s
	w.stateMu.Unlock()
}

// State reports the worker's current lifecycle state.
func (w *Worker) State() State {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	return w.state
}

func (w *Worker) heartbeatLoop(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	disconnected := false
	for {
		select {
		case <-ticker.C:
			w.sitesMu.Lock()
			active := len(w.sites)
			w.sitesMu.Unlock()

			presence := types.WorkerPresence{
				WorkerID:      w.id,
				Region:        w.region,
				LastHeartbeat: time.Now().UTC(),
				ActiveSites:   active,
			}
			if err := w.store.Heartbeat(ctx, presence); err != nil {
				if !disconnected {
					disconnected = true
					w.logger.Error().Err(err).Msg("heartbeat failed, entering reconnect loop")
					w.wg.Add(1)
					go func() {
						defer w.wg.Done()
						w.reconnectLoop(ctx)
					}()
				}
			} else {
				disconnected = false
			}
		case <-w.stopCh:
			return
		}
	}
}

// reconnectLoop retries the shared-store connection with exponential
// backoff. Scheduled probes keep running best-effort against the
// last-known registry in the meantime (spec §4.B). Once a heartbeat
// succeeds again, the worker re-reads the registry snapshot and
// reconciles its schedules, since it may have missed pub/sub updates
// while disconnected.
func (w *Worker) reconnectLoop(ctx context.Context) {
	backoff := reconnectBackoffMin
	for {
		select {
		case <-w.stopCh:
			return
		case <-time.After(backoff):
		}

		presence := types.WorkerPresence{
			WorkerID:      w.id,
			Region:        w.region,
			LastHeartbeat: time.Now().UTC(),
		}
		if err := w.store.Heartbeat(ctx, presence); err != nil {
			backoff *= 2
			if backoff > reconnectBackoffMax {
				backoff = reconnectBackoffMax
			}
			continue
		}

		w.logger.Info().Msg("reconnected to shared store, reconciling registry")
		configs, err := w.store.ListSiteConfigs(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("failed to reconcile registry after reconnect")
			return
		}
		w.reconcileBulk(configs)
		return
	}
}

func (w *Worker) registryLoop(ctx context.Context, updates <-chan types.RegistryUpdate) {
	defer w.wg.Done()
	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			w.handleRegistryUpdate(update)
		case <-w.stopCh:
			return
		}
	}
}

func (w *Worker) handleRegistryUpdate(update types.RegistryUpdate) {
	switch update.Action {
	case types.RegistryActionAdd, types.RegistryActionUpdate:
		if update.Site == nil {
			return
		}
		if update.Site.IsActive {
			w.updateSiteSchedule(*update.Site)
		} else {
			w.removeSiteSchedule(update.Site.ID)
		}
	case types.RegistryActionDelete:
		if update.Site != nil {
			w.removeSiteSchedule(update.Site.ID)
		}
	case types.RegistryActionBulk:
		w.reconcileBulk(update.Sites)
	}
}

// reconcileBulk supersedes any prior add/update/delete: sites no
// longer present or no longer active are removed, others are
// (re)scheduled.
func (w *Worker) reconcileBulk(sites []types.SiteConfig) {
	wanted := make(map[string]types.SiteConfig, len(sites))
	for _, sc := range sites {
		if sc.IsActive {
			wanted[sc.ID] = sc
		}
	}

	w.sitesMu.Lock()
	var stale []string
	for id := range w.sites {
		if _, ok := wanted[id]; !ok {
			stale = append(stale, id)
		}
	}
	w.sitesMu.Unlock()

	for _, id := range stale {
		w.removeSiteSchedule(id)
	}
	for _, sc := range wanted {
		w.updateSiteSchedule(sc)
	}
}

// addSiteSchedule installs a periodic tick for a newly active site and
// fires an immediate initial probe. Idempotent: an existing schedule
// for the same site is replaced.
func (w *Worker) addSiteSchedule(sc types.SiteConfig) {
	w.sitesMu.Lock()
	if existing, ok := w.sites[sc.ID]; ok {
		existing.cancel()
		delete(w.sites, sc.ID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sched := &siteSchedule{config: sc, cancel: cancel}
	w.sites[sc.ID] = sched
	metrics.SiteSchedulesActive.Set(float64(len(w.sites)))
	w.sitesMu.Unlock()

	w.wg.Add(1)
	go w.runSiteSchedule(ctx, sched)
}

// updateSiteSchedule replaces an existing schedule with one reflecting
// the site's current configuration.
func (w *Worker) updateSiteSchedule(sc types.SiteConfig) {
	w.addSiteSchedule(sc)
}

// removeSiteSchedule cancels a site's ticker. Idempotent: removing an
// unknown site id is a no-op.
func (w *Worker) removeSiteSchedule(siteID string) {
	w.sitesMu.Lock()
	sched, ok := w.sites[siteID]
	if ok {
		delete(w.sites, siteID)
	}
	metrics.SiteSchedulesActive.Set(float64(len(w.sites)))
	w.sitesMu.Unlock()

	if ok {
		sched.cancel()
	}
}

func (w *Worker) runSiteSchedule(ctx context.Context, sched *siteSchedule) {
	defer w.wg.Done()

	interval := time.Duration(sched.config.CheckInterval) * time.Minute
	if interval <= 0 {
		interval = time.Minute
	}

	w.probeSite(ctx, sched)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if sched.inFlight.TryLock() {
				go func() {
					defer sched.inFlight.Unlock()
					w.probeSite(ctx, sched)
				}()
			} else {
				metrics.SiteTicksSkipped.Inc()
			}
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) probeSite(ctx context.Context, sched *siteSchedule) {
	timer := metrics.NewTimer()
	m := w.prober.Run(ctx, sched.config.URL, w.id)
	timer.ObserveDuration(metrics.ProbeDuration)

	result := "down"
	if m.IsUp {
		result = "up"
	}
	metrics.ProbesTotal.WithLabelValues(result).Inc()

	if err := w.store.PutMeasurement(ctx, sched.config.ID, w.id, m); err != nil {
		w.logger.Error().Err(err).Str("site_id", sched.config.ID).Msg("failed to publish measurement")
	}
}
