package radiuscodec

import (
	"encoding/binary"
	"testing"

	"github.com/radiusd-go/radiusd/internal/dictionary"
)

// buildAccessRequest hand-builds a minimal Access-Request frame:
// code, identifier, length, 16-byte authenticator, one User-Name attr.
func buildAccessRequest(id byte, authenticator [16]byte, username string) []byte {
	attrLen := 2 + len(username)
	total := 20 + attrLen
	buf := make([]byte, total)
	buf[0] = 1 // Access-Request
	buf[1] = id
	binary.BigEndian.PutUint16(buf[2:4], uint16(total))
	copy(buf[4:20], authenticator[:])
	buf[20] = 1 // User-Name
	buf[21] = byte(attrLen)
	copy(buf[22:], username)
	return buf
}

func TestVectorFrom(t *testing.T) {
	var auth [16]byte
	for i := range auth {
		auth[i] = byte(i + 1)
	}
	data := buildAccessRequest(42, auth, "bob")

	v, err := VectorFrom(data)
	if err != nil {
		t.Fatalf("VectorFrom error: %v", err)
	}
	if v != auth {
		t.Errorf("VectorFrom = %v, want %v", v, auth)
	}
}

func TestVectorFromTooShort(t *testing.T) {
	if _, err := VectorFrom(make([]byte, 10)); err == nil {
		t.Error("expected error for short frame")
	}
}

func TestDecodeExtractsCodeAndAttributes(t *testing.T) {
	var auth [16]byte
	data := buildAccessRequest(7, auth, "alice")

	p, err := Decode(data, []byte("testing123"))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if p.Code != 1 {
		t.Errorf("Code = %d, want 1 (Access-Request)", p.Code)
	}
	if p.ID != 7 {
		t.Errorf("ID = %d, want 7", p.ID)
	}

	un, ok := p.Get(dictionary.RADIUSAttr(1))
	if !ok {
		t.Fatal("User-Name AVP not found")
	}
	if un.String() != "alice" {
		t.Errorf("User-Name = %q, want alice", un.String())
	}
}
