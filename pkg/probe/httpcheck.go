package probe

import (
	"context"
	"crypto/tls"
	"net/http"
	"strings"
	"time"

	"github.com/sitewatch/platform/pkg/types"
)

const (
	httpRequestTimeout = 10 * time.Second
	maxRedirects       = 10
)

// httpCheck issues a GET request, following redirects up to maxRedirects,
// and captures the peer TLS certificate on https URLs. Self-signed
// certificates are recorded, never rejected (spec §4.A).
func httpCheck(ctx context.Context, rawURL string) types.HTTPResult {
	start := time.Now()

	client := &http.Client{
		Timeout: httpRequestTimeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return types.HTTPResult{ResponseMs: elapsedMs(start)}
	}

	resp, err := client.Do(req)
	if err != nil {
		return types.HTTPResult{ResponseMs: elapsedMs(start)}
	}
	defer resp.Body.Close()

	result := types.HTTPResult{
		Up:         resp.StatusCode != 0 && resp.StatusCode != http.StatusNotFound,
		StatusCode: resp.StatusCode,
		ResponseMs: elapsedMs(start),
	}

	if resp.TLS != nil && len(resp.TLS.PeerCertificates) > 0 {
		cert := resp.TLS.PeerCertificates[0]
		issuer := cert.Issuer.CommonName
		if issuer == "" && len(cert.Issuer.Organization) > 0 {
			issuer = strings.Join(cert.Issuer.Organization, ", ")
		}
		result.SSL = &types.SSLInfo{
			ValidFrom:       cert.NotBefore,
			ValidTo:         cert.NotAfter,
			Issuer:          issuer,
			DaysUntilExpiry: int(time.Until(cert.NotAfter).Hours() / 24),
		}
	}

	return result
}
