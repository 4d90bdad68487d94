package probe

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sitewatch/platform/pkg/types"
)

// tcpDialTimeout bounds a single port's connection attempt so one slow
// port cannot starve the others of the overall probe deadline.
const tcpDialTimeout = 5 * time.Second

// tcpCheck opens a socket to host on each port, recording whether the
// handshake completed. The socket is closed on every exit path.
func tcpCheck(ctx context.Context, host string, ports []int) []types.TCPPortResult {
	results := make([]types.TCPPortResult, len(ports))
	for i, port := range ports {
		results[i] = tcpCheckPort(ctx, host, port)
	}
	return results
}

func tcpCheckPort(ctx context.Context, host string, port int) types.TCPPortResult {
	start := time.Now()

	dialCtx, cancel := context.WithTimeout(ctx, tcpDialTimeout)
	defer cancel()

	dialer := &net.Dialer{}
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	conn, err := dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return types.TCPPortResult{
			Port:       port,
			Connected:  false,
			ResponseMs: elapsedMs(start),
			Error:      err.Error(),
		}
	}
	defer conn.Close()

	return types.TCPPortResult{
		Port:       port,
		Connected:  true,
		ResponseMs: elapsedMs(start),
	}
}
