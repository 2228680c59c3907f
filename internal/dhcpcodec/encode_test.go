package dhcpcodec

import (
	"net"
	"testing"

	"github.com/radiusd-go/radiusd/internal/avp"
	"github.com/radiusd-go/radiusd/internal/dictionary"
	"github.com/radiusd-go/radiusd/internal/packet"
	"github.com/radiusd-go/radiusd/pkg/dhcpv4"
)

func TestEncodeRoundTrip(t *testing.T) {
	mac := net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	data := buildDiscover(mac, 0x12345678)
	original, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}

	reply := &packet.Packet{Code: dhcpv4.DHCPOffset + uint32(dhcpv4.MessageTypeOffer)}
	reply.Add(avp.NewByte(dictionary.DHCPOption(byte(dhcpv4.OptionDHCPMessageType)), byte(dhcpv4.MessageTypeOffer)))
	reply.Add(avp.NewIPAddr(dictionary.DHCPHeader(dictionary.HdrYIAddr), net.IPv4(192, 168, 1, 50)))
	reply.Add(avp.NewIPAddr(dictionary.DHCPOption(byte(dhcpv4.OptionSubnetMask)), net.IPv4(255, 255, 255, 0)))

	out, err := Encode(reply, original, nil)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if len(out) < dhcpv4.MinPacketSize {
		t.Errorf("encoded length %d below minimum %d", len(out), dhcpv4.MinPacketSize)
	}

	decoded, err := Decode(out)
	if err == nil {
		// the reply carries opcode BOOTREPLY but Decode accepts only
		// BOOTREQUEST; confirm it is rejected rather than silently
		// misparsed.
		t.Fatalf("expected reply frame to be rejected by client-side Decode, got %+v", decoded)
	}

	if out[0] != byte(dhcpv4.OpCodeBootReply) {
		t.Errorf("opcode = %d, want BOOTREPLY", out[0])
	}
	if string(out[28:34]) != string(mac) {
		t.Errorf("chaddr = %v, want %v", out[28:34], []byte(mac))
	}
	if string(out[236:240]) != string(dhcpv4.MagicCookie) {
		t.Error("magic cookie missing from encoded frame")
	}
	if out[240] != byte(dhcpv4.OptionDHCPMessageType) {
		t.Errorf("first option byte = 0x%02x, want message-type (0x35)", out[240])
	}
	if net.IP(out[16:20]).String() != "192.168.1.50" {
		t.Errorf("yiaddr = %v, want 192.168.1.50", net.IP(out[16:20]))
	}
}

func TestEncodeCarriesForwardMSFT98BroadcastBit(t *testing.T) {
	mac := net.HardwareAddr{1, 2, 3, 4, 5, 6}
	data := buildDiscover(mac, 1)
	data[240+2] = byte(dhcpv4.MessageTypeRequest)

	vci := "MSFT 98"
	data[243] = byte(dhcpv4.OptionVendorClassID)
	data[244] = byte(len(vci))
	copy(data[245:245+len(vci)], vci)
	data[245+len(vci)] = byte(dhcpv4.OptionEnd)

	original, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if original.Data[10]&0x80 == 0 {
		t.Fatal("precondition failed: broadcast bit not forced into decoded packet's raw buffer")
	}

	reply := &packet.Packet{Code: dhcpv4.DHCPOffset + uint32(dhcpv4.MessageTypeAck)}
	reply.Add(avp.NewByte(dictionary.DHCPOption(byte(dhcpv4.OptionDHCPMessageType)), byte(dhcpv4.MessageTypeAck)))
	reply.Add(avp.NewIPAddr(dictionary.DHCPHeader(dictionary.HdrYIAddr), net.IPv4(192, 168, 1, 50)))

	out, err := Encode(reply, original, nil)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	flags := uint16(out[10])<<8 | uint16(out[11])
	if flags&0x8000 == 0 {
		t.Error("encoded reply lost the MSFT 98 broadcast-bit workaround forced at decode time")
	}
}

func TestEncodeSortsMessageTypeFirstAndRelayLast(t *testing.T) {
	reply := &packet.Packet{Code: dhcpv4.DHCPOffset + uint32(dhcpv4.MessageTypeOffer)}
	reply.Add(avp.NewIPAddr(dictionary.DHCPOption(byte(dhcpv4.OptionSubnetMask)), net.IPv4(255, 255, 255, 0)))
	reply.Add(avp.NewOctets(dictionary.RelaySubOption(dhcpv4.RelaySubOptionCircuitID), []byte{0x01, 0x02}))
	reply.Add(avp.NewByte(dictionary.DHCPOption(byte(dhcpv4.OptionDHCPMessageType)), byte(dhcpv4.MessageTypeOffer)))

	out, err := Encode(reply, nil, nil)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if out[240] != byte(dhcpv4.OptionDHCPMessageType) {
		t.Fatalf("first option = 0x%02x, want message-type", out[240])
	}

	// Walk options to find the last one before the terminator; it should
	// be Relay-Agent-Information (option 82).
	i := 240
	lastTag := byte(0)
	for i < len(out) {
		tag := out[i]
		if tag == byte(dhcpv4.OptionEnd) {
			break
		}
		length := int(out[i+1])
		lastTag = tag
		i += 2 + length
	}
	if lastTag != byte(dhcpv4.OptionRelayAgentInfo) {
		t.Errorf("last option tag = %d, want Relay-Agent-Information (82)", lastTag)
	}
}

func TestEncodeClientIdentifierSpecialCase(t *testing.T) {
	reply := &packet.Packet{Code: dhcpv4.DHCPOffset + uint32(dhcpv4.MessageTypeRequest)}
	mac := net.HardwareAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	reply.Add(avp.NewEthernet(dictionary.DHCPOption(byte(dhcpv4.OptionClientIdentifier)), mac))

	out, err := Encode(reply, nil, nil)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if out[240] != byte(dhcpv4.OptionClientIdentifier) {
		t.Fatalf("option tag = %d, want client-identifier (61)", out[240])
	}
	if out[241] != 7 {
		t.Errorf("option length = %d, want 7", out[241])
	}
	if out[242] != 1 {
		t.Errorf("hardware-type byte = %d, want 1", out[242])
	}
	if string(out[243:249]) != string(mac) {
		t.Errorf("mac bytes = %v, want %v", out[243:249], []byte(mac))
	}
}

func TestEncodeCoalescesAndDropsOnlyOverflowingEntries(t *testing.T) {
	reply := &packet.Packet{Code: dhcpv4.DHCPOffset + uint32(dhcpv4.MessageTypeOffer)}
	const entries = 65 // 65*4 = 260 bytes, past the 255-byte option-length limit
	for i := 0; i < entries; i++ {
		reply.Add(avp.NewIPAddr(dictionary.DHCPOption(byte(dhcpv4.OptionRouter)), net.IPv4(10, 0, 0, byte(i))))
	}

	var logged []string
	out, err := Encode(reply, nil, func(format string, args ...any) {
		logged = append(logged, format)
	})
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if len(logged) == 0 {
		t.Error("expected overflow to be logged")
	}
	if out[240] != byte(dhcpv4.OptionRouter) {
		t.Fatalf("option tag = %d, want router (%d) — entries that fit must still be emitted", out[240], dhcpv4.OptionRouter)
	}
	length := int(out[241])
	if length == 0 {
		t.Fatal("coalesced option length is 0 — overflow must not drop the whole attribute")
	}
	if length > 255 {
		t.Errorf("coalesced option length = %d, exceeds 255", length)
	}
	if length%4 != 0 {
		t.Errorf("coalesced option length = %d, want a multiple of 4 (whole router entries only)", length)
	}
	if length >= entries*4 {
		t.Errorf("coalesced option length = %d, want fewer than all %d entries' bytes", length, entries)
	}
}
