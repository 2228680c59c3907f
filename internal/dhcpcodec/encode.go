package dhcpcodec

import (
	"encoding/binary"
	"math/rand"
	"sort"

	"github.com/radiusd-go/radiusd/internal/avp"
	"github.com/radiusd-go/radiusd/internal/dictionary"
	"github.com/radiusd-go/radiusd/internal/packet"
	"github.com/radiusd-go/radiusd/pkg/dhcpv4"
)

// optionOrder gives the sort key for an option's attribute id: Message-Type
// first, Relay-Agent-Information last, else ascending attribute id.
func optionOrder(code byte) int {
	switch code {
	case 53:
		return -1
	case 82:
		return 1<<31 - 1
	default:
		return int(code)
	}
}

// Encode serializes a reply packet to bytes, given the original request it
// answers (nil when sending as a client with no prior request, e.g. a
// DHCPDISCOVER).
func Encode(reply *packet.Packet, original *packet.Packet, logf func(format string, args ...any)) ([]byte, error) {
	if logf == nil {
		logf = func(string, ...any) {}
	}

	mms := effectiveMaxMessageSize(original)
	buf := make([]byte, dhcpv4.HeaderLen+4, mms)

	var origData []byte
	if original != nil {
		origData = original.Data
	}
	writeHeader(buf, reply, origData)

	optBytes, err := encodeOptions(reply, logf)
	if err != nil {
		return nil, err
	}
	out := append(buf, optBytes...)
	out = append(out, byte(dhcpv4.OptionEnd))

	if len(out) < dhcpv4.MinPacketSize {
		out = append(out, make([]byte, dhcpv4.MinPacketSize-len(out))...)
	}
	return out, nil
}

func effectiveMaxMessageSize(original *packet.Packet) int {
	if original == nil {
		return dhcpv4.DefaultPacketSize
	}
	mms := uint16(dhcpv4.DefaultPacketSize)
	if mmsAVP, ok := original.Get(dictionary.DHCPOption(57)); ok {
		if v, err := mmsAVP.Short(); err == nil {
			mms = v
		}
	}
	if int(mms) > dhcpv4.MaxPacketSize {
		mms = dhcpv4.MaxPacketSize
	}
	if int(mms) < dhcpv4.MinPacketSize {
		mms = dhcpv4.MinPacketSize
	}
	return int(mms)
}

// writeHeader fills in buf[0:240]: the fixed 236-byte header plus the
// 4-byte magic cookie. buf must already have this much capacity/length.
func writeHeader(buf []byte, reply *packet.Packet, origData []byte) {
	buf[0] = byte(dhcpv4.OpCodeBootReply)
	if origData == nil {
		buf[0] = byte(dhcpv4.OpCodeBootRequest)
	}
	buf[1] = byte(dhcpv4.HardwareTypeEthernet)

	hlen := byte(6)
	var xid uint32
	var flags uint16
	var ciaddr []byte

	if origData != nil {
		hlen = origData[2]
		xid = binary.BigEndian.Uint32(origData[4:8])
		flags = binary.BigEndian.Uint16(origData[10:12])
		ciaddr = origData[12:16]
	} else {
		xid = rand.Uint32()
	}
	buf[2] = hlen
	buf[3] = 0 // hops
	binary.BigEndian.PutUint32(buf[4:8], xid)
	binary.BigEndian.PutUint16(buf[8:10], 0) // secs
	binary.BigEndian.PutUint16(buf[10:12], flags)
	if ciaddr != nil {
		copy(buf[12:16], ciaddr)
	}

	if yi, ok := reply.Get(dictionary.DHCPHeader(dictionary.HdrYIAddr)); ok {
		if ip, err := yi.IPAddr(); err == nil {
			copy(buf[16:20], ip.To4())
		}
	}
	// siaddr (20:24) and giaddr (24:28) are left zero: this codec answers
	// as the server or relay itself, never forwards on another's behalf.
	if origData != nil {
		copy(buf[28:44], origData[28:44]) // chaddr
	}
	copy(buf[236:240], dhcpv4.MagicCookie)
}

// encodeOptions sorts, coalesces, and serializes the reply's option AVPs,
// folding any Option-82 sub-option AVPs into one trailing nested-TLV
// Relay-Agent-Information option.
func encodeOptions(reply *packet.Packet, logf func(string, ...any)) ([]byte, error) {
	var opts []*avp.AVP
	var relaySubs []*avp.AVP
	for cur := reply.VPs; cur != nil; cur = cur.Next {
		ns, _ := dictionary.Split(cur.Attribute)
		switch ns {
		case dictionary.NamespaceDHCP:
			opts = append(opts, cur)
		case dictionary.NamespaceDHCPRelay:
			relaySubs = append(relaySubs, cur)
		}
	}

	sort.SliceStable(opts, func(i, j int) bool {
		_, ci := dictionary.Split(opts[i].Attribute)
		_, cj := dictionary.Split(opts[j].Attribute)
		return optionOrder(byte(ci)) < optionOrder(byte(cj))
	})

	var out []byte
	i := 0
	for i < len(opts) {
		_, code := dictionary.Split(opts[i].Attribute)

		j := i + 1
		for j < len(opts) && opts[j].Attribute == opts[i].Attribute {
			j++
		}
		run := opts[i:j]

		if byte(code) == 61 && len(run) == 1 && run[0].Type == avp.TypeEthernet && run[0].Len() == 6 {
			value := append([]byte{1}, run[0].Value...)
			out = append(out, byte(code), byte(len(value)))
			out = append(out, value...)
			i = j
			continue
		}

		var value []byte
		for _, a := range run {
			if len(value)+len(a.Value) > 255 {
				logf("dropping option %d: coalesced length would exceed 255, stopping at %d bytes", code, len(value))
				break
			}
			value = append(value, a.Value...)
		}
		if len(value) > 0 {
			out = append(out, byte(code), byte(len(value)))
			out = append(out, value...)
		}
		i = j
	}

	if len(relaySubs) > 0 {
		inner, err := encodeRelayAgentInfo(relaySubs)
		if err != nil {
			return nil, err
		}
		out = append(out, 82, byte(len(inner)))
		out = append(out, inner...)
	}

	return out, nil
}
