/*
Package api exposes the coordinator's HTTP surface: site registry CRUD,
worker presence listing, and status history reads, plus the liveness,
readiness, and Prometheus endpoints served alongside them on the same
mux.

Handlers translate domain errors to status codes through a single
writeError helper rather than scattering http.Error calls, and every
site, worker and status handler is wrapped by an instrumenting
middleware that records request count and latency. The /health, /ready
and /metrics handlers are mounted without it.
*/
package api
