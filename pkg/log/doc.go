/*
Package log provides structured logging via zerolog: a package-level
Logger initialized once by Init, plus context-logger helpers that attach
component/site/worker fields so downstream aggregation can filter by them.

Usage:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stdout})
	siteLog := log.WithSiteID(site.ID)
	siteLog.Info().Str("worker_id", workerID).Msg("measurement published")

Do: use structured fields (.Str, .Err) instead of string concatenation.
Don't: log notifier targets (email addresses, webhook URLs) at Info level
without redaction — they're PII, not diagnostic context.
*/
package log
