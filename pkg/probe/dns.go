package probe

import (
	"context"
	"time"

	"github.com/miekg/dns"
	"github.com/sitewatch/platform/pkg/types"
)

// resolverAddr is the DNS server queried for A/NS records. A fixed
// public resolver keeps the check independent of host resolv.conf
// quirks, matching what the probe is trying to observe: whether the
// site's domain resolves on the public internet.
const resolverAddr = "8.8.8.8:53"

// dnsCheck resolves A records and NS records for host. resolved is true
// iff at least one A record came back; NS failure never fails the check
// (spec §4.A).
func dnsCheck(ctx context.Context, host string) types.DNSResult {
	start := time.Now()

	addrs, err := lookupType(ctx, host, dns.TypeA)
	if err != nil {
		return types.DNSResult{
			Resolved:   false,
			ResponseMs: elapsedMs(start),
			Error:      err.Error(),
		}
	}

	nameservers, _ := lookupType(ctx, host, dns.TypeNS)

	return types.DNSResult{
		Resolved:    len(addrs) > 0,
		Addresses:   addrs,
		Nameservers: nameservers,
		ResponseMs:  elapsedMs(start),
	}
}

func lookupType(ctx context.Context, host string, qtype uint16) ([]string, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), qtype)
	m.RecursionDesired = true

	client := new(dns.Client)
	client.DialTimeout = 5 * time.Second
	client.ReadTimeout = 5 * time.Second

	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining < client.ReadTimeout {
			client.ReadTimeout = remaining
		}
	}

	resp, _, err := client.ExchangeContext(ctx, m, resolverAddr)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, rr := range resp.Answer {
		switch qtype {
		case dns.TypeA:
			if a, ok := rr.(*dns.A); ok {
				out = append(out, a.A.String())
			}
		case dns.TypeNS:
			if ns, ok := rr.(*dns.NS); ok {
				out = append(out, ns.Ns)
			}
		}
	}
	return out, nil
}
