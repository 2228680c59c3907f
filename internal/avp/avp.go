// Package avp implements the typed attribute-value-pair carrier shared by
// the RADIUS and DHCPv4 wire codecs.
package avp

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

// Type identifies how an AVP's raw value bytes are interpreted.
type Type int

const (
	TypeByte Type = iota
	TypeShort
	TypeInteger
	TypeIPAddr
	TypeEthernet
	TypeString
	TypeOctets
	TypeDate
)

func (t Type) String() string {
	switch t {
	case TypeByte:
		return "byte"
	case TypeShort:
		return "short"
	case TypeInteger:
		return "integer"
	case TypeIPAddr:
		return "ipaddr"
	case TypeEthernet:
		return "ethernet"
	case TypeString:
		return "string"
	case TypeOctets:
		return "octets"
	case TypeDate:
		return "date"
	default:
		return "unknown"
	}
}

// Width returns the fixed wire width of a type, or 0 for variable-length
// types (string, octets). Used to partition array-attribute values.
func (t Type) Width() int {
	switch t {
	case TypeByte:
		return 1
	case TypeShort:
		return 2
	case TypeInteger, TypeIPAddr, TypeDate:
		return 4
	case TypeEthernet:
		return 6
	default:
		return 0
	}
}

// AVP carries one dictionary-identified attribute. Attribute is a
// namespace-prefixed 32-bit identifier (see package dictionary); Next
// forms a singly-linked list matching a decoded packet's attribute order.
type AVP struct {
	Attribute uint32
	Type      Type
	Value     []byte
	Next      *AVP
}

// New builds an AVP, copying value so callers may reuse their buffer.
func New(attribute uint32, typ Type, value []byte) *AVP {
	v := make([]byte, len(value))
	copy(v, value)
	return &AVP{Attribute: attribute, Type: typ, Value: v}
}

// Len reports the AVP's value length (RFC 2132 §2 — "length" field).
func (a *AVP) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Value)
}

// Append adds avp to the end of the chain rooted at head and returns the
// (possibly unchanged) head.
func Append(head *AVP, a *AVP) *AVP {
	if head == nil {
		return a
	}
	cur := head
	for cur.Next != nil {
		cur = cur.Next
	}
	cur.Next = a
	return head
}

// Find returns the first AVP in the chain matching attribute, or nil.
func Find(head *AVP, attribute uint32) *AVP {
	for cur := head; cur != nil; cur = cur.Next {
		if cur.Attribute == attribute {
			return cur
		}
	}
	return nil
}

// FindAll returns every AVP in the chain matching attribute, in order.
func FindAll(head *AVP, attribute uint32) []*AVP {
	var out []*AVP
	for cur := head; cur != nil; cur = cur.Next {
		if cur.Attribute == attribute {
			out = append(out, cur)
		}
	}
	return out
}

// Count returns the number of AVPs in the chain.
func Count(head *AVP) int {
	n := 0
	for cur := head; cur != nil; cur = cur.Next {
		n++
	}
	return n
}

// ToSlice flattens the chain into a slice, preserving order.
func ToSlice(head *AVP) []*AVP {
	out := make([]*AVP, 0, Count(head))
	for cur := head; cur != nil; cur = cur.Next {
		out = append(out, cur)
	}
	return out
}

// FromSlice rebuilds a chain from a slice, preserving order.
func FromSlice(avps []*AVP) *AVP {
	var head, tail *AVP
	for _, a := range avps {
		if head == nil {
			head = a
			tail = a
			continue
		}
		tail.Next = a
		tail = a
	}
	if tail != nil {
		tail.Next = nil
	}
	return head
}

// Clone deep-copies the chain.
func Clone(head *AVP) *AVP {
	var out []*AVP
	for cur := head; cur != nil; cur = cur.Next {
		out = append(out, New(cur.Attribute, cur.Type, cur.Value))
	}
	return FromSlice(out)
}

// Byte returns the AVP's value as a single byte.
func (a *AVP) Byte() (byte, error) {
	if len(a.Value) != 1 {
		return 0, fmt.Errorf("avp %d: byte value must be 1 byte, got %d", a.Attribute, len(a.Value))
	}
	return a.Value[0], nil
}

// Short returns the AVP's value as a big-endian uint16.
func (a *AVP) Short() (uint16, error) {
	if len(a.Value) != 2 {
		return 0, fmt.Errorf("avp %d: short value must be 2 bytes, got %d", a.Attribute, len(a.Value))
	}
	return binary.BigEndian.Uint16(a.Value), nil
}

// Integer returns the AVP's value as a big-endian uint32.
func (a *AVP) Integer() (uint32, error) {
	if len(a.Value) != 4 {
		return 0, fmt.Errorf("avp %d: integer value must be 4 bytes, got %d", a.Attribute, len(a.Value))
	}
	return binary.BigEndian.Uint32(a.Value), nil
}

// IPAddr returns the AVP's value as an IPv4 address.
func (a *AVP) IPAddr() (net.IP, error) {
	if len(a.Value) != 4 {
		return nil, fmt.Errorf("avp %d: ipaddr value must be 4 bytes, got %d", a.Attribute, len(a.Value))
	}
	ip := make(net.IP, 4)
	copy(ip, a.Value)
	return ip, nil
}

// Ethernet returns the AVP's value as a hardware address.
func (a *AVP) Ethernet() (net.HardwareAddr, error) {
	if len(a.Value) != 6 {
		return nil, fmt.Errorf("avp %d: ethernet value must be 6 bytes, got %d", a.Attribute, len(a.Value))
	}
	mac := make(net.HardwareAddr, 6)
	copy(mac, a.Value)
	return mac, nil
}

// String returns the AVP's value as a NUL-trimmed string.
func (a *AVP) String() string {
	v := a.Value
	if i := indexZero(v); i >= 0 {
		v = v[:i]
	}
	return string(v)
}

// Date returns the AVP's value as seconds-since-epoch, per RFC 2865 §5.x.
func (a *AVP) Date() (time.Time, error) {
	secs, err := a.Integer()
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(secs), 0).UTC(), nil
}

func indexZero(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return -1
}

// NewString builds a TypeString AVP whose Value holds the bytes of s
// with no NUL terminator, so Length (len(Value)) is the string length.
func NewString(attribute uint32, s string) *AVP {
	return &AVP{Attribute: attribute, Type: TypeString, Value: []byte(s)}
}

// NewByte builds a TypeByte AVP.
func NewByte(attribute uint32, v byte) *AVP {
	return &AVP{Attribute: attribute, Type: TypeByte, Value: []byte{v}}
}

// NewShort builds a TypeShort AVP.
func NewShort(attribute uint32, v uint16) *AVP {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, v)
	return &AVP{Attribute: attribute, Type: TypeShort, Value: buf}
}

// NewInteger builds a TypeInteger AVP.
func NewInteger(attribute uint32, v uint32) *AVP {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return &AVP{Attribute: attribute, Type: TypeInteger, Value: buf}
}

// NewIPAddr builds a TypeIPAddr AVP.
func NewIPAddr(attribute uint32, ip net.IP) *AVP {
	v4 := ip.To4()
	if v4 == nil {
		v4 = net.IPv4zero.To4()
	}
	return &AVP{Attribute: attribute, Type: TypeIPAddr, Value: append([]byte(nil), v4...)}
}

// NewEthernet builds a TypeEthernet AVP. Invariant: exactly 6 bytes.
func NewEthernet(attribute uint32, mac net.HardwareAddr) *AVP {
	v := make([]byte, 6)
	copy(v, mac)
	return &AVP{Attribute: attribute, Type: TypeEthernet, Value: v}
}

// NewOctets builds a TypeOctets AVP.
func NewOctets(attribute uint32, b []byte) *AVP {
	return &AVP{Attribute: attribute, Type: TypeOctets, Value: append([]byte(nil), b...)}
}
