package probe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPCheck_Up(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	result := httpCheck(context.Background(), server.URL)

	require.True(t, result.Up, "expected up, got down (status %d)", result.StatusCode)
	assert.Equal(t, http.StatusOK, result.StatusCode)
}

func TestHTTPCheck_404IsDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	result := httpCheck(context.Background(), server.URL)

	assert.False(t, result.Up, "expected 404 to be treated as down")
}

func TestHTTPCheck_UnreachableIsDown(t *testing.T) {
	result := httpCheck(context.Background(), "http://127.0.0.1:1")

	assert.False(t, result.Up, "expected unreachable host to be down")
	assert.GreaterOrEqual(t, result.ResponseMs, int64(0), "expected non-negative elapsed time")
}

func TestHTTPCheck_SSLCapture(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	result := httpCheck(context.Background(), server.URL)

	require.NotNil(t, result.SSL, "expected SSL info on https response")
	assert.False(t, result.SSL.ValidTo.Before(result.SSL.ValidFrom), "expected validTo after validFrom")
}

func TestTCPCheck_ConnectedAndRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	openPort := ln.Addr().(*net.TCPAddr).Port

	results := tcpCheck(context.Background(), "127.0.0.1", []int{openPort, 1})

	require.Len(t, results, 2)
	assert.True(t, results[0].Connected, "expected port %d to connect, got error %q", openPort, results[0].Error)
	assert.False(t, results[1].Connected, "expected port 1 to fail to connect")
}

func TestProbeRun_AlwaysReturnsCompleteMeasurement(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := New(2*time.Second, []int{1})
	m := p.Run(context.Background(), server.URL, "worker-1")

	require.NotNil(t, m)
	assert.Equal(t, "worker-1", m.WorkerID)
	assert.Equal(t, m.HTTP.Up, m.IsUp, "expected IsUp to mirror HTTP.Up")
	assert.Len(t, m.TCP, 1)
}

func TestProbeRun_InvalidURLStillReturnsMeasurement(t *testing.T) {
	p := New(time.Second, nil)
	m := p.Run(context.Background(), "://not-a-url", "worker-1")

	require.NotNil(t, m, "expected non-nil measurement even for an invalid URL")
	assert.NotEmpty(t, m.DNS.Error, "expected DNS error to be captured for an invalid URL")
}
