/*
Package types defines the core data structures shared across the monitoring
platform: the site registry, probe measurements, worker presence, and the
durable status rows the coordinator persists.

# Architecture

The types package is the foundation of the platform's data model. It
defines:

  - Site registry (authoritative Site, shared-store SiteConfig projection)
  - Measurement: one probe's DNS/TCP/Ping/HTTP outcome for a site
  - WorkerPresence: a worker's liveness record
  - SiteStatus: a durable row, either per-worker or the consensus aggregate
  - NotificationSetting: a site's configured alert channels

All types are designed to be:
  - Serializable (JSON) for shared-store and durable-store round-trips
  - Immutable where convenient (new instances for updates)
  - Self-documenting (clear field names, typed enums)

# Core Types

Registry:
  - Site: authoritative record owned by the durable store
  - SiteConfig: the projection synced into the shared store's registry hash

Measurement:
  - Measurement: one probe's result for a (site, worker) pair
  - DNSResult, TCPPortResult, PingResult, HTTPResult, SSLInfo: sub-check payloads

Presence:
  - WorkerPresence: region, timestamps, active site count for a worker

Durable rows:
  - SiteStatus: persisted measurement or consensus outcome
  - NotificationSetting: a site's enabled alert channel + target

# Usage

Building a SiteConfig projection from a Site:

	cfg := types.SiteConfig{
		ID:            site.ID,
		URL:           site.URL,
		CheckInterval: site.CheckInterval,
		IsActive:      site.IsActive,
		OwnerID:       site.OwnerID,
	}

Deriving IsUp from a Measurement:

	m.IsUp = m.HTTP.Up

# Design Patterns

Enumeration Pattern: enums use typed string constants, e.g. NotifyChannel.

Optional Fields: *SSLInfo is nil when the probe did not observe a
certificate (non-HTTPS URL, or, on a consensus row, none of the
reporting measurements obtained one).

# Thread Safety

Values in this package carry no internal synchronization. Callers that
share a *Measurement or *SiteConfig across goroutines must not mutate it
concurrently; the shared-store and durable-store layers only ever hand out
values they will not mutate afterwards.
*/
package types
