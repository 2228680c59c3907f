package dispatch

import (
	"fmt"

	"github.com/radiusd-go/radiusd/internal/packet"
	"github.com/radiusd-go/radiusd/internal/radiuscodec"
)

// SocketKind identifies which of the three RADIUS-only sockets (or the
// DHCP bridge) a datagram arrived on; classification rules differ by
// socket.
type SocketKind int

const (
	SocketAuth SocketKind = iota
	SocketAcct
	SocketProxy
	SocketDHCP
)

// Action is the outcome of classifying one packet: which handler, if
// any, should run, and whether the packet should be dropped outright.
type Action int

const (
	ActionReject Action = iota
	ActionAuthenticate
	ActionAccounting
	ActionDHCP
	ActionProxyReply
)

// Classify implements the classification rules a RADIUS daemon applies
// per arrival socket before a request reaches the Request Table:
// Access-Request and Accounting-Request are rejected outright on the
// proxy socket (that socket only carries replies to requests this
// process itself forwarded upstream); Access-Accept/-Reject/-Challenge
// and Accounting-Response are only meaningful there and nowhere else;
// the deprecated password codes are always rejected; anything else is
// rejected.
func Classify(kind SocketKind, p *packet.Packet) (Action, error) {
	if kind == SocketDHCP {
		return ActionDHCP, nil
	}

	switch p.Code {
	case radiuscodec.CodeAccessRequest:
		if kind == SocketProxy {
			return ActionReject, fmt.Errorf("access-request received on proxy socket")
		}
		return ActionAuthenticate, nil

	case radiuscodec.CodeAccountingRequest:
		if kind == SocketProxy {
			return ActionReject, fmt.Errorf("accounting-request received on proxy socket")
		}
		return ActionAccounting, nil

	case radiuscodec.CodeAccessAccept, radiuscodec.CodeAccessReject, radiuscodec.CodeAccessChallenge,
		radiuscodec.CodeAccountingResponse:
		if kind != SocketProxy {
			return ActionReject, fmt.Errorf("proxy reply code %d received on non-proxy socket", p.Code)
		}
		return ActionProxyReply, nil

	case radiuscodec.CodePasswordRequest, radiuscodec.CodePasswordAck, radiuscodec.CodePasswordReject:
		return ActionReject, fmt.Errorf("deprecated password code %d rejected", p.Code)

	default:
		return ActionReject, fmt.Errorf("unrecognized RADIUS code %d", p.Code)
	}
}
