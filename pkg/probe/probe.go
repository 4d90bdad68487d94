package probe

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/sitewatch/platform/pkg/types"
)

// DefaultTimeout is the per-check deadline applied when a Prober is not
// given an explicit one.
const DefaultTimeout = 30 * time.Second

// DefaultPorts are the TCP ports checked when none are supplied.
var DefaultPorts = []int{80, 443}

// Prober executes one full measurement (DNS + TCP + Ping + HTTP) for a
// site URL. It is safe for concurrent use: Run holds no mutable state.
type Prober struct {
	// Timeout bounds every sub-check; zero means DefaultTimeout.
	Timeout time.Duration

	// Ports overrides DefaultPorts for the TCP sub-check.
	Ports []int
}

// New creates a Prober with the given timeout (DefaultTimeout if zero)
// and ports (DefaultPorts if empty).
func New(timeout time.Duration, ports []int) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if len(ports) == 0 {
		ports = DefaultPorts
	}
	return &Prober{Timeout: timeout, Ports: ports}
}

// Run performs one measurement for rawURL, attributed to workerID. It
// never returns an error: every sub-check failure is captured in the
// returned Measurement.
func (p *Prober) Run(ctx context.Context, rawURL, workerID string) *types.Measurement {
	checkedAt := time.Now().UTC()

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	u, parseErr := url.Parse(rawURL)
	host := ""
	if parseErr == nil {
		host = u.Hostname()
	}

	var wg sync.WaitGroup
	var dnsResult types.DNSResult
	var tcpResults []types.TCPPortResult
	var pingResult types.PingResult
	var httpResult types.HTTPResult

	wg.Add(4)

	go func() {
		defer wg.Done()
		if parseErr != nil {
			dnsResult = types.DNSResult{Error: parseErr.Error()}
			return
		}
		dnsResult = dnsCheck(ctx, host)
	}()

	go func() {
		defer wg.Done()
		if parseErr != nil {
			return
		}
		tcpResults = tcpCheck(ctx, host, p.Ports)
	}()

	go func() {
		defer wg.Done()
		if parseErr != nil {
			pingResult = types.PingResult{Error: parseErr.Error()}
			return
		}
		pingResult = pingCheck(ctx, host)
	}()

	go func() {
		defer wg.Done()
		if parseErr != nil {
			httpResult = types.HTTPResult{}
			return
		}
		httpResult = httpCheck(ctx, rawURL)
	}()

	wg.Wait()

	return &types.Measurement{
		URL:       rawURL,
		CheckedAt: checkedAt,
		WorkerID:  workerID,
		IsUp:      httpResult.Up,
		DNS:       dnsResult,
		TCP:       tcpResults,
		Ping:      pingResult,
		HTTP:      httpResult,
	}
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
