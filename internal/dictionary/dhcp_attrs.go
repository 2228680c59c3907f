package dictionary

import "github.com/radiusd-go/radiusd/internal/avp"

// DHCP option dictionary, grounded on the option table in
// pkg/dhcpv4/constants.go, with each option's type given below.
// Array-capable options (list-of-fixed-width-value) are marked per the
// aggregation rule.
func init() {
	type def struct {
		code  byte
		name  string
		typ   avp.Type
		array bool
	}
	defs := []def{
		{1, "Subnet-Mask", avp.TypeIPAddr, false},
		{2, "Time-Offset", avp.TypeInteger, false},
		{3, "Router", avp.TypeIPAddr, true},
		{4, "Time-Server", avp.TypeIPAddr, true},
		{5, "Name-Server", avp.TypeIPAddr, true},
		{6, "Domain-Name-Server", avp.TypeIPAddr, true},
		{7, "Log-Server", avp.TypeIPAddr, true},
		{8, "Cookie-Server", avp.TypeIPAddr, true},
		{9, "LPR-Server", avp.TypeIPAddr, true},
		{10, "Impress-Server", avp.TypeIPAddr, true},
		{11, "Resource-Location-Server", avp.TypeIPAddr, true},
		{12, "Host-Name", avp.TypeString, false},
		{13, "Boot-File-Size", avp.TypeShort, false},
		{14, "Merit-Dump-File", avp.TypeString, false},
		{15, "Domain-Name", avp.TypeString, false},
		{16, "Swap-Server", avp.TypeIPAddr, false},
		{17, "Root-Path", avp.TypeString, false},
		{18, "Extensions-Path", avp.TypeString, false},
		{19, "IP-Forwarding", avp.TypeByte, false},
		{20, "Non-Local-Source-Routing", avp.TypeByte, false},
		{21, "Policy-Filter", avp.TypeOctets, false},
		{22, "Max-Datagram-Reassembly", avp.TypeShort, false},
		{23, "Default-IP-TTL", avp.TypeByte, false},
		{24, "Path-MTU-Aging-Timeout", avp.TypeInteger, false},
		{25, "Path-MTU-Plateau-Table", avp.TypeShort, true},
		{26, "Interface-MTU", avp.TypeShort, false},
		{27, "All-Subnets-Local", avp.TypeByte, false},
		{28, "Broadcast-Address", avp.TypeIPAddr, false},
		{29, "Perform-Mask-Discovery", avp.TypeByte, false},
		{30, "Mask-Supplier", avp.TypeByte, false},
		{31, "Perform-Router-Discovery", avp.TypeByte, false},
		{32, "Router-Solicitation-Address", avp.TypeIPAddr, false},
		{33, "Static-Route", avp.TypeOctets, false},
		{34, "Trailer-Encapsulation", avp.TypeByte, false},
		{35, "ARP-Cache-Timeout", avp.TypeInteger, false},
		{36, "Ethernet-Encapsulation", avp.TypeByte, false},
		{37, "TCP-Default-TTL", avp.TypeByte, false},
		{38, "TCP-Keepalive-Interval", avp.TypeInteger, false},
		{39, "TCP-Keepalive-Garbage", avp.TypeByte, false},
		{40, "NIS-Domain", avp.TypeString, false},
		{41, "NIS-Servers", avp.TypeIPAddr, true},
		{42, "NTP-Servers", avp.TypeIPAddr, true},
		{43, "Vendor-Specific", avp.TypeOctets, false},
		{44, "NetBIOS-Name-Server", avp.TypeIPAddr, true},
		{45, "NetBIOS-Datagram-Dist", avp.TypeIPAddr, true},
		{46, "NetBIOS-Node-Type", avp.TypeByte, false},
		{47, "NetBIOS-Scope", avp.TypeString, false},
		{48, "X-Window-Font-Server", avp.TypeIPAddr, true},
		{49, "X-Window-Display-Manager", avp.TypeIPAddr, true},
		{50, "Requested-IP-Address", avp.TypeIPAddr, false},
		{51, "IP-Address-Lease-Time", avp.TypeInteger, false},
		{52, "Option-Overload", avp.TypeByte, false},
		{53, "DHCP-Message-Type", avp.TypeByte, false},
		{54, "Server-Identifier", avp.TypeIPAddr, false},
		{55, "Parameter-Request-List", avp.TypeByte, true},
		{56, "Message", avp.TypeString, false},
		{57, "Maximum-DHCP-Message-Size", avp.TypeShort, false},
		{58, "Renewal-Time", avp.TypeInteger, false},
		{59, "Rebinding-Time", avp.TypeInteger, false},
		{60, "Vendor-Class-Identifier", avp.TypeString, false},
		{61, "Client-Identifier", avp.TypeOctets, false}, // special-cased in codec (ethernet form)
		{62, "NetWare-IP-Domain", avp.TypeString, false},
		{63, "NetWare-IP-Option", avp.TypeOctets, false},
		{66, "TFTP-Server-Name", avp.TypeString, false},
		{67, "Bootfile-Name", avp.TypeString, false},
		{77, "User-Class", avp.TypeOctets, false},
		{81, "Client-FQDN", avp.TypeOctets, false},
		{82, "Relay-Agent-Information", avp.TypeOctets, false}, // nested TLV, handled specially
		{118, "Subnet-Selection", avp.TypeIPAddr, false},
		{121, "Classless-Static-Route", avp.TypeOctets, false},
		{124, "Vendor-Identifying-Vendor-Class", avp.TypeOctets, false},
		{125, "Vendor-Identifying-Vendor-Specific", avp.TypeOctets, false},
		{150, "TFTP-Server-Address", avp.TypeIPAddr, true},
	}
	for _, d := range defs {
		register(dhcpEntries, NamespaceDHCP, uint32(d.code), d.name, d.typ, d.array)
	}

	hdr := []struct {
		field uint32
		name  string
		typ   avp.Type
	}{
		{HdrOp, "DHCP-Opcode", avp.TypeByte},
		{HdrHType, "DHCP-Hardware-Type", avp.TypeByte},
		{HdrHLen, "DHCP-Hardware-Length", avp.TypeByte},
		{HdrHops, "DHCP-Hops", avp.TypeByte},
		{HdrXID, "DHCP-Transaction-Id", avp.TypeInteger},
		{HdrSecs, "DHCP-Seconds", avp.TypeShort},
		{HdrFlags, "DHCP-Flags", avp.TypeShort},
		{HdrCIAddr, "DHCP-Client-IP-Address", avp.TypeIPAddr},
		{HdrYIAddr, "DHCP-Your-IP-Address", avp.TypeIPAddr},
		{HdrSIAddr, "DHCP-Server-IP-Address", avp.TypeIPAddr},
		{HdrGIAddr, "DHCP-Gateway-IP-Address", avp.TypeIPAddr},
		{HdrCHAddr, "DHCP-Client-Hardware-Address", avp.TypeEthernet},
		{HdrSName, "DHCP-Server-Host-Name", avp.TypeString},
		{HdrFile, "DHCP-Boot-File-Name", avp.TypeString},
	}
	for _, h := range hdr {
		register(dhcpHdrEntries, NamespaceDHCPHdr, h.field, h.name, h.typ, false)
	}
}
