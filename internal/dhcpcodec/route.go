package dhcpcodec

import (
	"net"

	"github.com/radiusd-go/radiusd/internal/dictionary"
	"github.com/radiusd-go/radiusd/internal/packet"
	"github.com/radiusd-go/radiusd/pkg/dhcpv4"
)

// Route computes the UDP destination for a reply, applying the giaddr /
// NAK / ciaddr / broadcast-flag ordered rules against the original
// request. The source address is the original request's destination;
// the caller is expected to set dst_port = original.src_port and
// src_port = original.dst_port, per the port-swap convention for BOOTP
// relay traffic.
func Route(reply *packet.Packet, original *packet.Packet) net.IP {
	giaddr := headerIP(original, dictionary.HdrGIAddr)
	if giaddr != nil && !giaddr.IsUnspecified() {
		return giaddr
	}

	if reply.Code == dhcpv4.DHCPOffset+uint32(dhcpv4.MessageTypeNak) {
		return dhcpv4.BroadcastIP
	}

	ciaddr := headerIP(original, dictionary.HdrCIAddr)
	if ciaddr != nil && !ciaddr.IsUnspecified() {
		return ciaddr
	}

	if broadcastFlagSet(original) {
		return dhcpv4.BroadcastIP
	}

	yiaddr := headerIP(reply, dictionary.HdrYIAddr)
	if yiaddr == nil || yiaddr.IsUnspecified() {
		return dhcpv4.BroadcastIP
	}
	return yiaddr
}

func headerIP(p *packet.Packet, field uint32) net.IP {
	if p == nil {
		return nil
	}
	a, ok := p.Get(dictionary.DHCPHeader(field))
	if !ok {
		return nil
	}
	ip, err := a.IPAddr()
	if err != nil {
		return nil
	}
	return ip
}

func broadcastFlagSet(p *packet.Packet) bool {
	if p == nil {
		return false
	}
	a, ok := p.Get(dictionary.DHCPHeader(dictionary.HdrFlags))
	if !ok {
		return false
	}
	v, err := a.Short()
	if err != nil {
		return false
	}
	return v&0x8000 != 0
}

// routingPorts mirrors the source/destination-port swap used for every
// reply: the original request's destination becomes the source, and its
// source port becomes the destination port.
func routingPorts(original *packet.Packet) (srcPort, dstPort int) {
	if original == nil || original.DstAddr == nil || original.SrcAddr == nil {
		return dhcpv4.ServerPort, dhcpv4.ClientPort
	}
	return original.DstAddr.Port, original.SrcAddr.Port
}
