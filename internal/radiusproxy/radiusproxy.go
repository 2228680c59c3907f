// Package radiusproxy implements the dispatcher's proxy-send and
// proxy-receive hooks, generalizing a subnet-keyed outbound RADIUS
// client into an upstream-proxy leg usable by any request classifier
// rather than a single DHCP-specific authentication shortcut.
package radiusproxy

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
	"layeh.com/radius/rfc2869"

	"github.com/radiusd-go/radiusd/internal/metrics"
	"github.com/radiusd-go/radiusd/internal/packet"
	"github.com/radiusd-go/radiusd/internal/radiuscodec"
)

// Target holds one upstream RADIUS proxy server's connection settings.
type Target struct {
	Address string
	Secret  []byte
	Timeout time.Duration
	Retries int
}

// Info carries relay-agent-derived context (RFC 4014 Option-82
// sub-options, generalized) that a proxy send attaches as NAS
// attributes on the forwarded request.
type Info struct {
	CircuitID string
	RemoteID  string
	NASAddr   net.IP
}

// Client tracks per-peer proxy targets. It keeps no table of in-flight
// requests: each Send waits for its own upstream reply via
// radius.Exchange.
type Client struct {
	mu      sync.RWMutex
	targets map[string]*Target
}

// NewClient returns an empty proxy client; targets are populated via
// SetTarget as client-registry entries are loaded/reloaded.
func NewClient() *Client {
	return &Client{targets: make(map[string]*Target)}
}

// SetTarget configures (or replaces) the proxy target for key, an
// opaque identifier the caller chooses — typically the peer's client
// registry key.
func (c *Client) SetTarget(key string, t *Target) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targets[key] = t
}

// RemoveTarget clears any proxy target configured for key.
func (c *Client) RemoveTarget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.targets, key)
}

func (c *Client) target(key string) (*Target, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.targets[key]
	return t, ok
}

// Send implements the proxy-send hook: if a target is configured for
// key, forward req upstream and return its reply (claimed=true);
// otherwise the dispatcher keeps the request (claimed=false) and
// continues normal processing.
func (c *Client) Send(ctx context.Context, key string, req *packet.Packet, info *Info) (claimed bool, reply *packet.Packet, err error) {
	t, ok := c.target(key)
	if !ok {
		return false, nil, nil
	}

	rp := radiuscodec.ToRadiusPacket(req, t.Secret)
	if info != nil {
		if info.CircuitID != "" {
			rfc2869.NASPortID_SetString(rp, info.CircuitID)
		}
		if info.RemoteID != "" {
			rfc2865.CalledStationID_SetString(rp, info.RemoteID)
		}
		if info.NASAddr != nil {
			rfc2865.NASIPAddress_Set(rp, info.NASAddr)
		}
	}

	retries := t.Retries
	if retries < 0 {
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		cctx, cancel := context.WithTimeout(ctx, t.Timeout)
		resp, exchangeErr := radius.Exchange(cctx, rp, t.Address)
		cancel()
		if exchangeErr == nil {
			metrics.ProxyExchanges.WithLabelValues("ok").Inc()
			return true, radiuscodec.FromRadiusPacket(resp), nil
		}
		lastErr = exchangeErr
	}
	if ctx.Err() != nil {
		metrics.ProxyExchanges.WithLabelValues("timeout").Inc()
	} else {
		metrics.ProxyExchanges.WithLabelValues("error").Inc()
	}
	return true, nil, fmt.Errorf("proxy exchange to %s: %w", t.Address, lastErr)
}

// Receive is the proxy-receive hook; it returns reply unchanged. The
// dispatcher does not call it: a reply arriving on the proxy socket is
// classified as a proxy reply and dropped without being matched to any
// request.
func Receive(reply *packet.Packet) *packet.Packet {
	return reply
}
