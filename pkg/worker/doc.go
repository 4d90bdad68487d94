/*
Package worker implements the probe worker process: a STARTING ->
RUNNING -> DRAINING state machine that schedules a recurring Probe per
active site and publishes the outcome to the shared store.

# State machine

	STARTING   claim a presence key, begin the heartbeat loop
	RUNNING    load the registry snapshot, subscribe to updates, schedule sites
	DRAINING   cancel every per-site ticker, stop heartbeating, let presence expire

# Per-site scheduling

Each active site gets its own ticker at its configured check interval.
The first probe for a site runs immediately on scheduling rather than
waiting for the first tick. A site's ticks never overlap: if a probe
is still in flight when the next tick fires, that tick is skipped, not
queued. Different sites' tickers run independently and in parallel.

Presence is not explicitly deleted on shutdown — the heartbeat simply
stops, and the 60s TTL on the presence key lets the coordinator observe
the worker going offline without a synchronous release step.
*/
package worker
