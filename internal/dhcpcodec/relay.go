package dhcpcodec

import (
	"fmt"

	"github.com/radiusd-go/radiusd/internal/avp"
	"github.com/radiusd-go/radiusd/internal/dictionary"
	"github.com/radiusd-go/radiusd/internal/packet"
)

// decodeRelayAgentInfo parses an Option-82 (RFC 3046) nested TLV value into
// one AVP per sub-option, keyed by dictionary.RelaySubOption. A truncated
// sub-option stops parsing rather than erroring the whole decode, since
// other options in the packet may still be usable.
func decodeRelayAgentInfo(p *packet.Packet, value []byte) {
	i := 0
	for i+2 <= len(value) {
		subType := value[i]
		subLen := int(value[i+1])
		i += 2
		if i+subLen > len(value) {
			break
		}
		sub := append([]byte(nil), value[i:i+subLen]...)
		i += subLen
		p.Add(avp.NewOctets(dictionary.RelaySubOption(subType), sub))
	}
}

// encodeRelayAgentInfo packs Option-82 sub-option AVPs back into a single
// nested-TLV option value, in the order given.
func encodeRelayAgentInfo(subs []*avp.AVP) ([]byte, error) {
	var inner []byte
	for _, a := range subs {
		subType, ok := dictionary.SplitRelaySubOption(a.Attribute)
		if !ok {
			continue
		}
		if len(a.Value) > 253 {
			return nil, fmt.Errorf("relay sub-option %d too large: %d bytes", subType, len(a.Value))
		}
		inner = append(inner, subType, byte(len(a.Value)))
		inner = append(inner, a.Value...)
	}
	if len(inner) > 253 {
		return nil, fmt.Errorf("relay-agent-information too large: %d bytes", len(inner))
	}
	return inner, nil
}
