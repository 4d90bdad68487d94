package probe

import (
	"context"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"github.com/sitewatch/platform/pkg/types"
)

const (
	pingCount   = 3
	pingTimeout = 5 * time.Second
)

// pingCheck issues ICMP echo requests to host. A timeout or send error
// is treated as "not alive", never as a propagated error (spec §4.A).
func pingCheck(ctx context.Context, host string) types.PingResult {
	start := time.Now()

	pinger, err := probing.NewPinger(host)
	if err != nil {
		return types.PingResult{
			Up:         false,
			ResponseMs: elapsedMs(start),
			Error:      err.Error(),
		}
	}

	pinger.Count = pingCount
	pinger.Timeout = pingTimeout
	// Unprivileged (UDP datagram) mode works without raw-socket
	// capabilities. The pinger always runs in this mode; raw ICMP is
	// not used even when the process holds CAP_NET_RAW.
	pinger.SetPrivileged(false)

	if err := pinger.RunWithContext(ctx); err != nil {
		return types.PingResult{
			Up:         false,
			ResponseMs: elapsedMs(start),
			Error:      err.Error(),
		}
	}

	stats := pinger.Statistics()
	up := stats.PacketsRecv > 0

	var errMsg string
	if !up {
		errMsg = "no echo reply received"
	}

	return types.PingResult{
		Up:         up,
		ResponseMs: elapsedMs(start),
		Error:      errMsg,
	}
}
