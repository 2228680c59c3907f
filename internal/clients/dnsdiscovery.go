package clients

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// Resolver performs reverse-DNS lookups for peers the registry has no
// configured display name for, using an explicit PTR query rather than
// the resolver library, sent to the server and bounded by the timeout
// the caller sets (cmd/radiusd takes the server from /etc/resolv.conf).
type Resolver struct {
	Server  string
	Timeout time.Duration
}

// NewResolver returns a Resolver querying server (host:port, e.g.
// "127.0.0.1:53") with the given per-query timeout.
func NewResolver(server string, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Resolver{Server: server, Timeout: timeout}
}

// DisplayName resolves addr's PTR record and returns it with the
// trailing dot stripped. It returns an error if the query fails or no
// PTR record is present.
func (r *Resolver) DisplayName(addr net.IP) (string, error) {
	reverseName, err := dns.ReverseAddr(addr.String())
	if err != nil {
		return "", fmt.Errorf("building reverse name for %s: %w", addr, err)
	}

	msg := new(dns.Msg)
	msg.SetQuestion(reverseName, dns.TypePTR)
	msg.RecursionDesired = true

	client := &dns.Client{Timeout: r.Timeout}
	resp, _, err := client.Exchange(msg, r.Server)
	if err != nil {
		return "", fmt.Errorf("querying PTR for %s: %w", addr, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return "", fmt.Errorf("PTR query for %s: %s", addr, dns.RcodeToString[resp.Rcode])
	}

	for _, rr := range resp.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			return strings.TrimSuffix(ptr.Ptr, "."), nil
		}
	}
	return "", fmt.Errorf("no PTR record for %s", addr)
}
