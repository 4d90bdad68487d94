package consensus

import (
	"sort"
	"time"

	"github.com/sitewatch/platform/pkg/types"
)

// WorkerMeasurement pairs a measurement with the worker that produced
// it, as retrieved from checks:{siteId}:{workerId}.
type WorkerMeasurement struct {
	WorkerID    string
	Measurement *types.Measurement
}

// Engine computes the consensus SiteStatus for a site from the
// measurements its present workers most recently reported.
type Engine struct{}

// New returns a ready Engine. It carries no state.
func New() *Engine {
	return &Engine{}
}

// Compute derives the consensus row for a site from V, the measurements
// retrieved for its currently present workers. ok is false iff V is
// empty, in which case the engine has no opinion for this tick.
func (e *Engine) Compute(siteID string, v []WorkerMeasurement) (status *types.SiteStatus, ok bool) {
	if len(v) == 0 {
		return nil, false
	}

	ordered := make([]WorkerMeasurement, len(v))
	copy(ordered, v)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].WorkerID < ordered[j].WorkerID })

	n := len(ordered)
	status = &types.SiteStatus{
		SiteID:    siteID,
		WorkerID:  types.ConsensusWorkerID,
		CheckedAt: time.Now().UTC(),
	}

	status.IsUp = majorityUp(n, downCount(ordered, func(m *types.Measurement) bool { return !m.IsUp }))
	status.Ping.Up = majorityUp(n, downCount(ordered, func(m *types.Measurement) bool { return !m.Ping.Up }))
	status.HTTP.Up = majorityUp(n, downCount(ordered, func(m *types.Measurement) bool { return !m.HTTP.Up }))
	status.DNS.Resolved = majorityUp(n, downCount(ordered, func(m *types.Measurement) bool { return !m.DNS.Resolved }))

	for _, wm := range ordered {
		if wm.Measurement.HasSSL() {
			status.HTTP.SSL = wm.Measurement.HTTP.SSL
			break
		}
	}

	for _, wm := range ordered {
		if wm.Measurement.DNS.Resolved {
			status.DNS.Addresses = wm.Measurement.DNS.Addresses
			status.DNS.Nameservers = wm.Measurement.DNS.Nameservers
			break
		}
	}

	status.TCP = consensusTCP(ordered, n)

	return status, true
}

// majorityUp applies the boolean-majority-with-up-bias rule: with two
// or more voters, it takes at least two dissenters to call a layer
// down; with exactly one voter, that voter's dissent is never enough.
func majorityUp(voters, dissenters int) bool {
	if voters >= 2 {
		return dissenters < 2
	}
	return true
}

func downCount(v []WorkerMeasurement, isDown func(*types.Measurement) bool) int {
	count := 0
	for _, wm := range v {
		if isDown(wm.Measurement) {
			count++
		}
	}
	return count
}

// consensusTCP aggregates per-port connectivity across V, preserving
// the port order of the first measurement that reports any ports.
func consensusTCP(v []WorkerMeasurement, voters int) []types.TCPPortResult {
	var order []int
	seen := make(map[int]bool)
	disconnects := make(map[int]int)

	for _, wm := range v {
		for _, port := range wm.Measurement.TCP {
			if !seen[port.Port] {
				seen[port.Port] = true
				order = append(order, port.Port)
			}
			if !port.Connected {
				disconnects[port.Port]++
			}
		}
	}

	results := make([]types.TCPPortResult, 0, len(order))
	for _, port := range order {
		results = append(results, types.TCPPortResult{
			Port:      port,
			Connected: majorityUp(voters, disconnects[port]),
		})
	}
	return results
}
