/*
Package probe implements the measurement engine: given a site URL, it runs
DNS, TCP, ICMP ping, and HTTP(S) sub-checks concurrently and returns a
types.Measurement. No sub-check ever returns an error to the caller — a
failing sub-check captures its failure inside the result structure, so a
Prober.Run call always completes with a fully-populated Measurement.

# Architecture

	Run(ctx, url, workerID)
	  ├─ dnsCheck(ctx, host)    -> DNSResult
	  ├─ tcpCheck(ctx, host, ports) -> []TCPPortResult
	  ├─ pingCheck(ctx, host)   -> PingResult
	  └─ httpCheck(ctx, url)    -> HTTPResult (+ SSLInfo on https)

All four run in their own goroutine under a single context carrying the
probe's deadline (default 30s); Run waits for all four before returning.
*/
package probe
