// Package packet defines the wire-protocol-agnostic Packet carried through
// the request-dispatch engine. Both the RADIUS and DHCPv4
// codecs decode into, and encode from, this one shared type; DHCP codes
// are offset by dhcpv4.DHCPOffset so the two protocols' Code values
// never overlap.
package packet

import (
	"net"

	"github.com/radiusd-go/radiusd/internal/avp"
)

// Packet is the in-flight representation of one inbound or outbound
// datagram, shared by every protocol the dispatcher speaks.
type Packet struct {
	Code   uint32   // protocol-specific message type tag
	ID     uint32   // 8-bit RADIUS identifier or 32-bit DHCP xid, widened to uint32
	Vector [16]byte // authenticator / dedup vector

	SrcAddr *net.UDPAddr
	DstAddr *net.UDPAddr
	Socket  *net.UDPConn

	Data []byte  // raw bytes as received/about to be sent
	VPs  *avp.AVP // head of the attribute-pair chain
}

// Get returns the first AVP matching attribute.
func (p *Packet) Get(attribute uint32) (*avp.AVP, bool) {
	a := avp.Find(p.VPs, attribute)
	return a, a != nil
}

// GetAll returns every AVP matching attribute, in wire order.
func (p *Packet) GetAll(attribute uint32) []*avp.AVP {
	return avp.FindAll(p.VPs, attribute)
}

// Add appends an AVP to the packet's attribute chain.
func (p *Packet) Add(a *avp.AVP) {
	p.VPs = avp.Append(p.VPs, a)
}

// VectorEqual reports whether two dedup vectors are byte-identical
// (used for duplicate-request detection on admission).
func VectorEqual(a, b [16]byte) bool {
	return a == b
}
