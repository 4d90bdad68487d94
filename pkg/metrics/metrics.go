package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Probe metrics
	ProbesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitewatch_probes_total",
			Help: "Total number of probes run by result",
		},
		[]string{"result"},
	)

	ProbeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sitewatch_probe_duration_seconds",
			Help:    "Time taken for a full probe (all sub-checks) in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SiteSchedulesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sitewatch_worker_sites_scheduled",
			Help: "Number of sites this worker currently schedules",
		},
	)

	SiteTicksSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sitewatch_worker_ticks_skipped_total",
			Help: "Total number of site ticks skipped because a probe was still in flight",
		},
	)

	// Shared store metrics
	SharedStoreOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sitewatch_sharedstore_op_duration_seconds",
			Help:    "Shared store operation latency in seconds by operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	WorkersPresent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sitewatch_workers_present",
			Help: "Number of workers the coordinator currently sees as present",
		},
	)

	// Consensus metrics
	ConsensusTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitewatch_consensus_ticks_total",
			Help: "Total number of consensus ticks by outcome",
		},
		[]string{"outcome"},
	)

	ConsensusTickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sitewatch_consensus_tick_duration_seconds",
			Help:    "Time taken for one consensus tick in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	StateTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitewatch_state_transitions_total",
			Help: "Total number of consensus state transitions by new state",
		},
		[]string{"state"},
	)

	// Notification metrics
	NotificationsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitewatch_notifications_sent_total",
			Help: "Total number of notifications sent by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitewatch_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sitewatch_api_request_duration_seconds",
			Help:    "API request duration in seconds by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(ProbesTotal)
	prometheus.MustRegister(ProbeDuration)
	prometheus.MustRegister(SiteSchedulesActive)
	prometheus.MustRegister(SiteTicksSkipped)
	prometheus.MustRegister(SharedStoreOpDuration)
	prometheus.MustRegister(WorkersPresent)
	prometheus.MustRegister(ConsensusTicksTotal)
	prometheus.MustRegister(ConsensusTickDuration)
	prometheus.MustRegister(StateTransitionsTotal)
	prometheus.MustRegister(NotificationsSentTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
