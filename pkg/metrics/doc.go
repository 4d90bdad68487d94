/*
Package metrics defines and registers the Prometheus instruments shared
by the probe worker and the coordinator: probe counts and latency,
shared-store operation latency, consensus tick counts and latency,
state transitions, notification dispatch outcomes, and API request
counts and latency. All instruments are registered at package init and
exposed over Handler() for scraping.

Collector polls gauge-shaped values (worker presence) on a 15-second
interval since they otherwise only change on tick boundaries. Timer is
a small helper for observing elapsed time into a histogram or
histogram vector.

health.go carries the liveness/readiness machinery used by both
binaries' HTTP servers; it is independent of the Prometheus registry.
*/
package metrics
