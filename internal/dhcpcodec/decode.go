// Package dhcpcodec implements the DHCPv4 wire codec: byte frame ↔ typed
// AVP-list translation, including array/aggregation option semantics and
// the bridge that lets DHCP packets share the RADIUS request-dispatch
// engine's dedup machinery.
package dhcpcodec

import (
	"encoding/binary"
	"fmt"

	"github.com/radiusd-go/radiusd/internal/avp"
	"github.com/radiusd-go/radiusd/internal/dictionary"
	"github.com/radiusd-go/radiusd/internal/packet"
	"github.com/radiusd-go/radiusd/pkg/dhcpv4"
)

// headerWidths are the 14 named fixed-header fields, in wire order.
var headerWidths = [14]int{1, 1, 1, 1, 4, 2, 2, 4, 4, 4, 4, 16, 64, 128}

// Decode parses a raw DHCPv4 frame received from a client (or relay) into
// a shared Packet. It does not set SrcAddr/DstAddr/Socket — callers fill
// those in from the UDP read.
func Decode(data []byte) (*packet.Packet, error) {
	if len(data) < dhcpv4.MinFrameSize {
		return nil, fmt.Errorf("dhcp frame too short: %d bytes (minimum %d)", len(data), dhcpv4.MinFrameSize)
	}
	if len(data) > dhcpv4.MaxFrameSize {
		return nil, fmt.Errorf("dhcp frame too long: %d bytes (maximum %d)", len(data), dhcpv4.MaxFrameSize)
	}

	op := data[0]
	if op != byte(dhcpv4.OpCodeBootRequest) {
		return nil, fmt.Errorf("dhcp frame opcode %d, want BOOTREQUEST (1)", op)
	}
	htype := data[1]
	if htype != byte(dhcpv4.HardwareTypeEthernet) {
		return nil, fmt.Errorf("dhcp frame htype %d, want ethernet (1)", htype)
	}
	hlen := data[2]
	if hlen != 6 {
		return nil, fmt.Errorf("dhcp frame hlen %d, want 6", hlen)
	}

	cookie := data[236:240]
	if !bytesEqual(cookie, dhcpv4.MagicCookie) {
		return nil, fmt.Errorf("invalid dhcp magic cookie: %v", cookie)
	}

	if data[240] != byte(dhcpv4.OptionDHCPMessageType) || data[241] != 1 {
		return nil, fmt.Errorf("dhcp frame does not lead options with message-type")
	}
	msgType := data[242]
	if msgType < 1 || msgType > 7 {
		return nil, fmt.Errorf("dhcp message-type %d out of range [1,7]", msgType)
	}

	xid := binary.BigEndian.Uint32(data[4:8])
	chaddr := append([]byte(nil), data[28:34]...)

	var vector [16]byte
	copy(vector[:6], chaddr)
	vector[6] = msgType

	p := &packet.Packet{
		Code:   dhcpv4.DHCPOffset + uint32(msgType),
		ID:     xid,
		Vector: vector,
		Data:   append([]byte(nil), data...),
	}

	decodeHeaderAVPs(p, data)

	opts := data[dhcpv4.HeaderLen+4:]
	if err := decodeOptions(p, opts); err != nil {
		return nil, fmt.Errorf("decoding dhcp options: %w", err)
	}

	applyPostDecodeAdjustments(p, p.Data)

	if err := validateMessageSize(p); err != nil {
		return nil, err
	}

	return p, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// decodeHeaderAVPs walks the 14 named fixed-header fields and emits them
// as pseudo-attribute AVPs alongside the decoded options. Empty strings
// are dropped rather than emitted (SName/File).
func decodeHeaderAVPs(p *packet.Packet, data []byte) {
	off := 0
	field := 0
	for _, w := range headerWidths {
		val := data[off : off+w]
		switch field {
		case 0:
			p.Add(avp.NewByte(dictionary.DHCPHeader(dictionary.HdrOp), val[0]))
		case 1:
			p.Add(avp.NewByte(dictionary.DHCPHeader(dictionary.HdrHType), val[0]))
		case 2:
			p.Add(avp.NewByte(dictionary.DHCPHeader(dictionary.HdrHLen), val[0]))
		case 3:
			p.Add(avp.NewByte(dictionary.DHCPHeader(dictionary.HdrHops), val[0]))
		case 4:
			p.Add(avp.NewInteger(dictionary.DHCPHeader(dictionary.HdrXID), binary.BigEndian.Uint32(val)))
		case 5:
			p.Add(avp.NewShort(dictionary.DHCPHeader(dictionary.HdrSecs), binary.BigEndian.Uint16(val)))
		case 6:
			p.Add(avp.NewShort(dictionary.DHCPHeader(dictionary.HdrFlags), binary.BigEndian.Uint16(val)))
		case 7:
			p.Add(avp.NewIPAddr(dictionary.DHCPHeader(dictionary.HdrCIAddr), val))
		case 8:
			p.Add(avp.NewIPAddr(dictionary.DHCPHeader(dictionary.HdrYIAddr), val))
		case 9:
			p.Add(avp.NewIPAddr(dictionary.DHCPHeader(dictionary.HdrSIAddr), val))
		case 10:
			p.Add(avp.NewIPAddr(dictionary.DHCPHeader(dictionary.HdrGIAddr), val))
		case 11:
			hlen := int(data[2])
			if htype := data[1]; htype == byte(dhcpv4.HardwareTypeEthernet) && hlen == 6 {
				p.Add(avp.NewEthernet(dictionary.DHCPHeader(dictionary.HdrCHAddr), val[:6]))
			} else {
				n := hlen
				if n > len(val) {
					n = len(val)
				}
				p.Add(avp.NewOctets(dictionary.DHCPHeader(dictionary.HdrCHAddr), val[:n]))
			}
		case 12:
			if s := trimTrailingZero(val); len(s) > 0 {
				p.Add(avp.NewString(dictionary.DHCPHeader(dictionary.HdrSName), string(s)))
			}
		case 13:
			if s := trimTrailingZero(val); len(s) > 0 {
				p.Add(avp.NewString(dictionary.DHCPHeader(dictionary.HdrFile), string(s)))
			}
		}
		off += w
		field++
	}
}

func trimTrailingZero(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] != 0 {
		i++
	}
	return b[:i]
}

// decodeOptions walks the TLV option stream starting just past the
// magic cookie, applying pad/end, length-overflow skip, array
// partitioning, and the client-identifier ethernet special case.
func decodeOptions(p *packet.Packet, data []byte) error {
	i := 0
	for i < len(data) {
		tag := data[i]
		i++

		if tag == 0 { // pad
			continue
		}
		if tag == 255 { // end
			break
		}
		if i >= len(data) {
			return fmt.Errorf("truncated option %d: no length byte", tag)
		}
		length := int(data[i])
		i++
		if length > 252 {
			// Skipped without a log line: Decode has no logger, and the
			// skip is not reported to the caller.
			i += length
			continue
		}
		if i+length > len(data) {
			return fmt.Errorf("truncated option %d: need %d bytes, have %d", tag, length, len(data)-i)
		}
		value := data[i : i+length]
		i += length

		if tag == 0x3d && length == 7 && value[0] == 1 {
			p.Add(avp.NewEthernet(dictionary.DHCPOption(tag), value[1:7]))
			continue
		}

		if tag == 82 {
			decodeRelayAgentInfo(p, value)
			continue
		}

		entry, ok := dictionary.LookupDHCPOption(tag)
		if !ok {
			continue // unknown tag: skip
		}

		if entry.Array {
			width := entry.Type.Width()
			if width > 0 && len(value)%width == 0 && len(value) > 0 {
				for off := 0; off < len(value); off += width {
					p.Add(&avp.AVP{Attribute: entry.Code, Type: entry.Type, Value: append([]byte(nil), value[off:off+width]...)})
				}
				continue
			}
			// non-divisible length: fall back to raw octets for the whole value
			p.Add(avp.NewOctets(entry.Code, value))
			continue
		}

		if w := entry.Type.Width(); w > 0 && len(value) != w {
			// fixed-width non-array mismatch: fall back to raw octets
			p.Add(avp.NewOctets(entry.Code, value))
			continue
		}

		p.Add(&avp.AVP{Attribute: entry.Code, Type: entry.Type, Value: append([]byte(nil), value...)})
	}
	return nil
}

// applyPostDecodeAdjustments implements the MSFT 98 broadcast-bit
// workaround: some old clients set giaddr/ciaddr to 0 and Vendor-Class
// "MSFT 98" but never set the broadcast flag, so the reply would be
// unicast to an address the client can't yet receive on.
func applyPostDecodeAdjustments(p *packet.Packet, data []byte) {
	giaddr, _ := p.Get(dictionary.DHCPHeader(dictionary.HdrGIAddr))
	if giaddr == nil {
		return
	}
	ip, err := giaddr.IPAddr()
	if err != nil || !ip.IsUnspecified() {
		return
	}
	if p.Code != dhcpv4.DHCPOffset+uint32(dhcpv4.MessageTypeRequest) {
		return
	}
	vci, ok := p.Get(dictionary.DHCPOption(60))
	if !ok || vci.String() != "MSFT 98" {
		return
	}
	flags, ok := p.Get(dictionary.DHCPHeader(dictionary.HdrFlags))
	if !ok {
		return
	}
	v, _ := flags.Short()
	v |= 0x8000
	flags.Value = []byte{byte(v >> 8), byte(v)}
	if len(data) >= 12 {
		data[10] |= 0x80
	}
}

// validateMessageSize enforces the Maximum-Message-Size / Interface-MTU
// floor and capping rules.
func validateMessageSize(p *packet.Packet) error {
	mtuAVP, hasMTU := p.Get(dictionary.DHCPOption(26))
	var mtu uint16
	if hasMTU {
		mtu, _ = mtuAVP.Short()
		if mtu < dhcpv4.MTUFloor {
			return fmt.Errorf("interface-mtu %d below floor %d", mtu, dhcpv4.MTUFloor)
		}
	}

	mmsAVP, hasMMS := p.Get(dictionary.DHCPOption(57))
	if !hasMMS {
		return nil
	}
	mms, _ := mmsAVP.Short()
	if mms < dhcpv4.MTUFloor {
		mms = dhcpv4.MTUFloor
	}
	if hasMTU && mms > mtu {
		mms = mtu
	}
	mmsAVP.Value = []byte{byte(mms >> 8), byte(mms)}
	return nil
}
