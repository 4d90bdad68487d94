/*
Package sharedstore implements the Redis-backed protocol binding probe
workers to the coordinator (spec §4.C): the site registry hash, the
measurement TTL cache, worker presence, the site-config-updates pub/sub
channel, and the bulk-sync advisory lock.

# Keys and channels

	sites:config              hash   siteId -> JSON SiteConfig
	checks:{siteId}:{workerId} string JSON Measurement, TTL 600s
	workers:{workerId}        hash   region, startedAt, lastHeartbeat, activeSites, TTL 60s
	sync:lock                 string epoch millis, TTL 60s, SET NX
	site-config-updates       channel JSON RegistryUpdate

All operations surface transport errors to the caller (spec §4.C) and
none is retried here — this package is a thin, honest wrapper over
Redis. The worker heartbeat is retried by pkg/worker's reconnect loop;
pkg/coordinator calls BulkSync once at startup without retrying it and
retries only the VerifySync that follows.
*/
package sharedstore
