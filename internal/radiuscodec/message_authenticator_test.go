package radiuscodec

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/binary"
	"testing"
)

func buildWithMessageAuthenticator(secret []byte) []byte {
	total := 20 + 18
	buf := make([]byte, total)
	buf[0] = 1
	buf[1] = 1
	binary.BigEndian.PutUint16(buf[2:4], uint16(total))
	buf[20] = messageAuthenticatorType
	buf[21] = 18
	// value left zero for the MAC computation, then filled in below

	mac := hmac.New(md5.New, secret)
	mac.Write(buf)
	sum := mac.Sum(nil)
	copy(buf[22:38], sum)
	return buf
}

func TestVerifyMessageAuthenticatorValid(t *testing.T) {
	secret := []byte("sharedsecret")
	data := buildWithMessageAuthenticator(secret)

	ok, err := VerifyMessageAuthenticator(data, secret)
	if err != nil {
		t.Fatalf("VerifyMessageAuthenticator error: %v", err)
	}
	if !ok {
		t.Error("expected valid message-authenticator to verify")
	}
}

func TestVerifyMessageAuthenticatorWrongSecret(t *testing.T) {
	data := buildWithMessageAuthenticator([]byte("sharedsecret"))

	ok, err := VerifyMessageAuthenticator(data, []byte("othersecret"))
	if err != nil {
		t.Fatalf("VerifyMessageAuthenticator error: %v", err)
	}
	if ok {
		t.Error("expected wrong-secret verification to fail")
	}
}

func TestVerifyMessageAuthenticatorAbsent(t *testing.T) {
	data := make([]byte, 20)
	data[0] = 1
	binary.BigEndian.PutUint16(data[2:4], 20)

	ok, err := VerifyMessageAuthenticator(data, []byte("secret"))
	if err != nil {
		t.Fatalf("VerifyMessageAuthenticator error: %v", err)
	}
	if !ok {
		t.Error("expected absent message-authenticator to be treated as not-rejected")
	}
}
