// Package dictionary provides attribute-name/type lookup for the RADIUS
// and DHCPv4 namespaces. It stands in for the "dictionary file" collaborator
// a real RADIUS daemon loads from disk: a fixed, in-memory
// table covering the attributes the wire codecs and dispatcher need.
package dictionary

import "github.com/radiusd-go/radiusd/internal/avp"

// Namespace separates RADIUS and DHCP attribute numbering so that a shared
// 32-bit attribute identifier never collides between the two
// protocols that feed the same Request Table.
type Namespace uint32

const (
	nsShift            = 24
	NamespaceRADIUS    Namespace = 0
	NamespaceDHCP      Namespace = 1
	NamespaceDHCPHdr   Namespace = 2 // pseudo-namespace for DHCP fixed-header fields
	NamespaceDHCPRelay Namespace = 3 // pseudo-namespace for Option-82 sub-options
)

// Attr builds a namespace-prefixed attribute identifier from a bare
// protocol-level code (RFC attribute/option number, or vendor-combined
// code for vendor-specific attributes).
func Attr(ns Namespace, code uint32) uint32 {
	return uint32(ns)<<nsShift | (code & 0x00FFFFFF)
}

// Split recovers the namespace and bare code from a full attribute id.
func Split(attribute uint32) (Namespace, uint32) {
	return Namespace(attribute >> nsShift), attribute & 0x00FFFFFF
}

// Entry describes one dictionary-known attribute.
type Entry struct {
	Code   uint32 // namespace-prefixed, see Attr
	Name   string
	Type   avp.Type
	Array  bool // RFC 3396-style: value may be split into Type.Width()-sized entries
	Vendor uint32
}

type registry map[uint32]Entry

var (
	dhcpEntries    = registry{}
	dhcpHdrEntries = registry{}
	radiusEntries  = registry{}
)

func register(r registry, ns Namespace, code uint32, name string, typ avp.Type, array bool) {
	id := Attr(ns, code)
	r[id] = Entry{Code: id, Name: name, Type: typ, Array: array}
}

// Lookup finds an attribute's dictionary entry by its full id.
func Lookup(attribute uint32) (Entry, bool) {
	ns, _ := Split(attribute)
	switch ns {
	case NamespaceDHCP:
		e, ok := dhcpEntries[attribute]
		return e, ok
	case NamespaceDHCPHdr:
		e, ok := dhcpHdrEntries[attribute]
		return e, ok
	default:
		e, ok := radiusEntries[attribute]
		return e, ok
	}
}

// LookupDHCPOption looks up a bare DHCP option code (0-255).
func LookupDHCPOption(code byte) (Entry, bool) {
	e, ok := dhcpEntries[Attr(NamespaceDHCP, uint32(code))]
	return e, ok
}

// LookupRADIUS looks up a bare RADIUS attribute code (1-255, no vendor).
func LookupRADIUS(code byte) (Entry, bool) {
	e, ok := radiusEntries[Attr(NamespaceRADIUS, uint32(code))]
	return e, ok
}

// DHCPOption builds the full attribute id for a DHCP option code.
func DHCPOption(code byte) uint32 { return Attr(NamespaceDHCP, uint32(code)) }

// RADIUSAttr builds the full attribute id for a bare RADIUS attribute code.
func RADIUSAttr(code byte) uint32 { return Attr(NamespaceRADIUS, uint32(code)) }

// DHCP fixed-header pseudo-attribute codes ("decode the fixed
// header into AVPs"). These never appear on the wire; they exist so the
// header can be represented uniformly alongside options in a Packet's AVP
// chain.
const (
	HdrOp uint32 = iota
	HdrHType
	HdrHLen
	HdrHops
	HdrXID
	HdrSecs
	HdrFlags
	HdrCIAddr
	HdrYIAddr
	HdrSIAddr
	HdrGIAddr
	HdrCHAddr
	HdrSName
	HdrFile
)

// DHCPHeader builds the full attribute id for a fixed-header pseudo-field.
func DHCPHeader(field uint32) uint32 { return Attr(NamespaceDHCPHdr, field) }

// RelaySubOption builds the attribute id for an Option-82 (Relay Agent
// Information) sub-option, keyed by its RFC 3046 sub-type byte. These live
// in their own namespace so a single AVP chain can carry several
// sub-options without colliding with option 82 itself or with each other.
func RelaySubOption(subType byte) uint32 { return Attr(NamespaceDHCPRelay, uint32(subType)) }

// SplitRelaySubOption recovers the sub-type byte from a RelaySubOption id.
func SplitRelaySubOption(attribute uint32) (byte, bool) {
	ns, code := Split(attribute)
	if ns != NamespaceDHCPRelay {
		return 0, false
	}
	return byte(code), true
}
