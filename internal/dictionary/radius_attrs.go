package dictionary

import "github.com/radiusd-go/radiusd/internal/avp"

// A minimal RFC 2865/2866/2869 attribute table — enough for the
// dispatcher's username normalization, accounting record writer, and
// RADIUS proxy hooks to look up an attribute's name and type by its
// code (LookupRADIUS). layeh.com/radius's own rfc2865/rfc2869
// sub-packages remain the source of truth for wire-level attribute
// construction (internal/radiuscodec); this table backs dispatcher-level
// AVP inspection once a packet has been converted to our shared model.
func init() {
	type def struct {
		code byte
		name string
		typ  avp.Type
	}
	defs := []def{
		{1, "User-Name", avp.TypeString},
		{2, "User-Password", avp.TypeOctets},
		{3, "CHAP-Password", avp.TypeOctets},
		{4, "NAS-IP-Address", avp.TypeIPAddr},
		{5, "NAS-Port", avp.TypeInteger},
		{6, "Service-Type", avp.TypeInteger},
		{7, "Framed-Protocol", avp.TypeInteger},
		{8, "Framed-IP-Address", avp.TypeIPAddr},
		{9, "Framed-IP-Netmask", avp.TypeIPAddr},
		{18, "Reply-Message", avp.TypeString},
		{24, "State", avp.TypeOctets},
		{26, "Vendor-Specific", avp.TypeOctets},
		{27, "Session-Timeout", avp.TypeInteger},
		{30, "Called-Station-Id", avp.TypeString},
		{31, "Calling-Station-Id", avp.TypeString},
		{32, "NAS-Identifier", avp.TypeString},
		{40, "Acct-Status-Type", avp.TypeInteger},
		{41, "Acct-Delay-Time", avp.TypeInteger},
		{42, "Acct-Input-Octets", avp.TypeInteger},
		{43, "Acct-Output-Octets", avp.TypeInteger},
		{44, "Acct-Session-Id", avp.TypeString},
		{45, "Acct-Authentic", avp.TypeInteger},
		{46, "Acct-Session-Time", avp.TypeInteger},
		{61, "NAS-Port-Type", avp.TypeInteger},
		{87, "NAS-Port-Id", avp.TypeString},
	}
	for _, d := range defs {
		register(radiusEntries, NamespaceRADIUS, uint32(d.code), d.name, d.typ, false)
	}
}
