package radiuscodec

import (
	"crypto/hmac"
	"crypto/md5"
	"fmt"
)

const messageAuthenticatorType = 80

// VerifyMessageAuthenticator validates the RFC 2869 §5.14
// Message-Authenticator attribute, when present, against secret. A
// packet with no Message-Authenticator attribute is not rejected here;
// callers decide whether its absence is itself a policy failure.
func VerifyMessageAuthenticator(data, secret []byte) (bool, error) {
	off, val, err := findMessageAuthenticator(data)
	if err != nil {
		return false, err
	}
	if off < 0 {
		return true, nil
	}

	check := append([]byte(nil), data...)
	for i := 0; i < 16; i++ {
		check[off+i] = 0
	}

	mac := hmac.New(md5.New, secret)
	mac.Write(check)

	return hmac.Equal(mac.Sum(nil), val), nil
}

func findMessageAuthenticator(data []byte) (offset int, value []byte, err error) {
	if len(data) < 20 {
		return -1, nil, fmt.Errorf("radius frame too short: %d bytes", len(data))
	}
	i := 20
	for i+2 <= len(data) {
		typ := data[i]
		length := int(data[i+1])
		if length < 2 || i+length > len(data) {
			return -1, nil, fmt.Errorf("malformed attribute at offset %d", i)
		}
		if typ == messageAuthenticatorType {
			if length != 18 {
				return -1, nil, fmt.Errorf("message-authenticator length %d, want 18", length)
			}
			return i + 2, data[i+2 : i+length], nil
		}
		i += length
	}
	return -1, nil, nil
}
