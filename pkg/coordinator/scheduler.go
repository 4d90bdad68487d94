package coordinator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sitewatch/platform/pkg/consensus"
	"github.com/sitewatch/platform/pkg/durastore"
	"github.com/sitewatch/platform/pkg/log"
	"github.com/sitewatch/platform/pkg/metrics"
	"github.com/sitewatch/platform/pkg/notify"
	"github.com/sitewatch/platform/pkg/sharedstore"
	"github.com/sitewatch/platform/pkg/types"
)

const tickInterval = time.Minute

// Scheduler runs the one-minute consensus tick independently for
// every active site, regardless of that site's own checkInterval.
type Scheduler struct {
	shared     sharedstore.Store
	durable    durastore.Store
	engine     *consensus.Engine
	dispatcher *notify.Dispatcher
	logger     zerolog.Logger

	sitesMu sync.Mutex
	sites   map[string]*siteTick
}

type siteTick struct {
	cancel   context.CancelFunc
	inFlight sync.Mutex
}

// NewScheduler builds a Coordinator Scheduler over its collaborators.
func NewScheduler(shared sharedstore.Store, durable durastore.Store, engine *consensus.Engine, dispatcher *notify.Dispatcher) *Scheduler {
	return &Scheduler{
		shared:     shared,
		durable:    durable,
		engine:     engine,
		dispatcher: dispatcher,
		logger:     log.WithComponent("coordinator"),
		sites:      make(map[string]*siteTick),
	}
}

// AddSiteSchedule installs the minute tick for siteID. Idempotent: an
// existing schedule for the same site is replaced.
func (s *Scheduler) AddSiteSchedule(siteID string) {
	s.sitesMu.Lock()
	if existing, ok := s.sites[siteID]; ok {
		existing.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	tick := &siteTick{cancel: cancel}
	s.sites[siteID] = tick
	s.sitesMu.Unlock()

	go s.runSiteTicker(ctx, siteID, tick)
}

// UpdateSiteSchedule replaces siteID's schedule. It is equivalent to
// AddSiteSchedule since the tick's cadence never varies per site.
func (s *Scheduler) UpdateSiteSchedule(siteID string) {
	s.AddSiteSchedule(siteID)
}

// RemoveSiteSchedule cancels siteID's tick. Idempotent: removing an
// unknown site id is a no-op.
func (s *Scheduler) RemoveSiteSchedule(siteID string) {
	s.sitesMu.Lock()
	tick, ok := s.sites[siteID]
	if ok {
		delete(s.sites, siteID)
	}
	s.sitesMu.Unlock()

	if ok {
		tick.cancel()
	}
}

// Stop cancels every scheduled site.
func (s *Scheduler) Stop() {
	s.sitesMu.Lock()
	defer s.sitesMu.Unlock()
	for id, tick := range s.sites {
		tick.cancel()
		delete(s.sites, id)
	}
}

func (s *Scheduler) runSiteTicker(ctx context.Context, siteID string, tick *siteTick) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if tick.inFlight.TryLock() {
				go func() {
					defer tick.inFlight.Unlock()
					s.runTick(ctx, siteID)
				}()
			} else {
				s.logger.Warn().Str("site_id", siteID).Msg("consensus tick skipped, previous tick still in flight")
			}
		case <-ctx.Done():
			return
		}
	}
}

// runTick performs one consensus cycle for a site: gather present
// workers' measurements, compute consensus, persist, and notify on a
// state change.
func (s *Scheduler) runTick(ctx context.Context, siteID string) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ConsensusTickDuration)

	workers, err := s.shared.ListPresentWorkers(ctx)
	if err != nil {
		metrics.ConsensusTicksTotal.WithLabelValues("error").Inc()
		s.logger.Error().Err(err).Str("site_id", siteID).Msg("failed to list present workers")
		return
	}

	regionByWorker := make(map[string]string, len(workers))
	var votes []consensus.WorkerMeasurement
	for _, w := range workers {
		regionByWorker[w.WorkerID] = w.Region
		m, ok, err := s.shared.GetMeasurement(ctx, siteID, w.WorkerID)
		if err != nil {
			s.logger.Error().Err(err).Str("site_id", siteID).Str("worker_id", w.WorkerID).Msg("failed to read measurement")
			continue
		}
		if !ok {
			continue
		}
		votes = append(votes, consensus.WorkerMeasurement{WorkerID: w.WorkerID, Measurement: m})
	}

	result, ok := s.engine.Compute(siteID, votes)
	if !ok {
		metrics.ConsensusTicksTotal.WithLabelValues("no_quorum").Inc()
		return
	}
	metrics.ConsensusTicksTotal.WithLabelValues("computed").Inc()

	for _, v := range votes {
		row := measurementToStatus(siteID, v.WorkerID, regionByWorker[v.WorkerID], v.Measurement)
		if err := s.durable.InsertSiteStatus(ctx, row); err != nil {
			s.logger.Error().Err(err).Str("site_id", siteID).Str("worker_id", v.WorkerID).Msg("failed to persist worker status")
		}
	}

	// Fetch the previous consensus row before writing this tick's, so
	// the comparison below reflects the prior tick, not this one.
	previous, previousErr := s.durable.LatestConsensus(ctx, siteID)

	if err := s.durable.InsertSiteStatus(ctx, result); err != nil {
		s.logger.Error().Err(err).Str("site_id", siteID).Msg("failed to persist consensus status")
		return
	}

	s.maybeNotify(ctx, siteID, previous, previousErr, result)
}

func (s *Scheduler) maybeNotify(ctx context.Context, siteID string, previous *types.SiteStatus, previousErr error, result *types.SiteStatus) {
	var changed bool
	switch {
	case errors.Is(previousErr, sql.ErrNoRows):
		changed = true
	case previousErr != nil:
		s.logger.Error().Err(previousErr).Str("site_id", siteID).Msg("failed to load previous consensus, skipping notification check")
		return
	default:
		changed = previous.IsUp != result.IsUp
	}

	if !changed {
		return
	}

	metrics.StateTransitionsTotal.WithLabelValues(stateLabel(result.IsUp)).Inc()

	message := fmt.Sprintf("site %s is now %s", siteID, stateLabel(result.IsUp))
	s.dispatcher.Dispatch(ctx, siteID, message, types.NotifyCategoryStateChange)
}

func stateLabel(up bool) string {
	if up {
		return "up"
	}
	return "down"
}

func measurementToStatus(siteID, workerID, region string, m *types.Measurement) *types.SiteStatus {
	return &types.SiteStatus{
		SiteID:    siteID,
		WorkerID:  workerID,
		Region:    region,
		CheckedAt: m.CheckedAt,
		IsUp:      m.IsUp,
		DNS:       m.DNS,
		TCP:       m.TCP,
		Ping:      m.Ping,
		HTTP:      m.HTTP,
	}
}
