// Package clients implements the peer lookup table the dispatcher
// consults after decoding a packet: shared secret, display name, and
// authentication policy keyed by the sender's address.
package clients

import (
	"fmt"
	"net"
	"sync"

	"github.com/radiusd-go/radiusd/internal/metrics"
)

// AuthPolicy controls how the dispatcher treats requests from a peer.
type AuthPolicy int

const (
	// PolicyAccept authenticates and processes requests normally.
	PolicyAccept AuthPolicy = iota
	// PolicyReject answers every Access-Request from the peer with an
	// Access-Reject.
	PolicyReject
	// PolicyProxyOnly forwards requests upstream without local handling.
	PolicyProxyOnly
)

func (p AuthPolicy) String() string {
	switch p {
	case PolicyAccept:
		return "accept"
	case PolicyReject:
		return "reject"
	case PolicyProxyOnly:
		return "proxy-only"
	default:
		return "unknown"
	}
}

// Client is one entry in the registry: a peer's shared secret, display
// name, and policy. Lifetime spans configuration reload boundaries.
type Client struct {
	DisplayName string
	Secret      []byte
	AuthPolicy  AuthPolicy
}

type entry struct {
	net    *net.IPNet
	client *Client
}

// Registry looks peers up by source IP against a set of CIDR or
// single-host entries, narrowest match wins. A config reload replaces
// the whole table atomically so an in-flight lookup never observes a
// half-loaded set.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
}

// New returns an empty registry; callers populate it via Reload.
func New() *Registry {
	return &Registry{}
}

// Load replaces the registry contents. keys may be bare IPs
// ("10.0.0.1") or CIDRs ("10.0.0.0/24"); a bare IP is treated as a
// /32 (or /128 for IPv6).
func Load(cidrs map[string]*Client) (*Registry, error) {
	r := New()
	if err := r.reload(cidrs); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload swaps the registry's contents for cidrs, rejecting the whole
// update if any key fails to parse.
func (r *Registry) Reload(cidrs map[string]*Client) error {
	return r.reload(cidrs)
}

func (r *Registry) reload(cidrs map[string]*Client) error {
	entries := make([]entry, 0, len(cidrs))
	for key, c := range cidrs {
		ipnet, err := parseKey(key)
		if err != nil {
			metrics.ReloadsTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("client registry entry %q: %w", key, err)
		}
		entries = append(entries, entry{net: ipnet, client: c})
	}

	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()
	metrics.ClientsLoaded.Set(float64(len(entries)))
	metrics.ReloadsTotal.WithLabelValues("ok").Inc()
	return nil
}

func parseKey(key string) (*net.IPNet, error) {
	if _, ipnet, err := net.ParseCIDR(key); err == nil {
		return ipnet, nil
	}
	ip := net.ParseIP(key)
	if ip == nil {
		return nil, fmt.Errorf("not an IP address or CIDR")
	}
	bits := 32
	if ip.To4() == nil {
		bits = 128
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, nil
}

// Lookup returns the client entry covering addr, preferring the
// narrowest matching CIDR (highest prefix length). It reports ok=false
// when no entry matches.
func (r *Registry) Lookup(addr net.IP) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *entry
	bestBits := -1
	for i := range r.entries {
		e := &r.entries[i]
		if !e.net.Contains(addr) {
			continue
		}
		bits, _ := e.net.Mask.Size()
		if bits > bestBits {
			best = e
			bestBits = bits
		}
	}
	if best == nil {
		return nil, false
	}
	return best.client, true
}

// Len reports the number of configured entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
