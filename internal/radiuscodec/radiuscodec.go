// Package radiuscodec translates between RADIUS wire packets and the
// shared Packet/AVP model, using layeh.com/radius for the
// actual byte-level framing and authenticator arithmetic rather than
// hand-rolling RFC 2865 parsing.
package radiuscodec

import (
	"fmt"

	"layeh.com/radius"

	"github.com/radiusd-go/radiusd/internal/avp"
	"github.com/radiusd-go/radiusd/internal/dictionary"
	"github.com/radiusd-go/radiusd/internal/packet"
)

// Decode parses a RADIUS datagram into a shared Packet. secret is the
// peer's shared secret, looked up by the caller via the client registry
// before decode — RADIUS framing needs it to validate response-style
// authenticators embedded in certain attributes.
func Decode(data, secret []byte) (*packet.Packet, error) {
	rp, err := radius.Parse(data, secret)
	if err != nil {
		return nil, fmt.Errorf("parsing radius packet: %w", err)
	}
	p := FromRadiusPacket(rp)
	p.Data = append([]byte(nil), data...)
	return p, nil
}

// FromRadiusPacket rebuilds a shared Packet from an already-parsed
// layeh.com/radius Packet. Exported so internal/radiusproxy can reuse
// the same attribute-mapping logic for replies it receives directly
// from radius.Exchange, without a raw-bytes round trip.
func FromRadiusPacket(rp *radius.Packet) *packet.Packet {
	p := &packet.Packet{
		Code: uint32(rp.Code),
		ID:   uint32(rp.Identifier),
	}
	copy(p.Vector[:], rp.Authenticator[:])

	for t, attrs := range rp.Attributes {
		entry, ok := dictionary.LookupRADIUS(byte(t))
		typ := avp.TypeOctets
		code := dictionary.RADIUSAttr(byte(t))
		if ok {
			typ = entry.Type
			code = entry.Code
		}
		for _, raw := range attrs {
			p.Add(&avp.AVP{Attribute: code, Type: typ, Value: append([]byte(nil), []byte(raw)...)})
		}
	}
	return p
}

// Encode serializes a Packet back to RADIUS wire bytes. For a reply
// packet (Access-Accept/Reject, Accounting-Response), the caller must
// set reply.Vector to the *original request's* authenticator before
// calling Encode — radius.Packet.Encode uses the Authenticator field as
// the request authenticator input when computing a response
// authenticator, per RFC 2865 §3.
func Encode(p *packet.Packet, secret []byte) ([]byte, error) {
	rp := ToRadiusPacket(p, secret)
	out, err := rp.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding radius packet: %w", err)
	}
	return out, nil
}

// ToRadiusPacket builds a layeh.com/radius Packet from a shared Packet,
// without encoding it to bytes. internal/radiusproxy uses this to build
// an outbound proxy request, adding its own NAS-identifying attributes
// before handing the packet to radius.Exchange.
func ToRadiusPacket(p *packet.Packet, secret []byte) *radius.Packet {
	rp := radius.New(radius.Code(p.Code), secret)
	rp.Identifier = byte(p.ID)
	copy(rp.Authenticator[:], p.Vector[:])

	for cur := p.VPs; cur != nil; cur = cur.Next {
		ns, code := dictionary.Split(cur.Attribute)
		if ns != dictionary.NamespaceRADIUS {
			continue
		}
		rp.Add(radius.Type(code), radius.Attribute(cur.Value))
	}
	return rp
}

// VectorFrom extracts the 16-byte authenticator dedup vector directly
// from raw wire bytes, without a full Decode: the authenticator bytes
// sit at a fixed offset (bytes 4..20). The dispatcher does not use it;
// it takes the vector from Decode's result.
func VectorFrom(data []byte) ([16]byte, error) {
	var v [16]byte
	if len(data) < 20 {
		return v, fmt.Errorf("radius frame too short for header: %d bytes", len(data))
	}
	copy(v[:], data[4:20])
	return v, nil
}
