package cryptox

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"errors"
)

// ErrInvalidKey is returned when the MAC cannot be keyed.
var ErrInvalidKey = errors.New("cryptox: invalid signing key")

// Sign computes HMAC-SHA512 over content followed by salt and returns the
// MAC as unpadded base64url. The write order is part of the token format.
func Sign(key []byte, content, salt string) (string, error) {
	if len(key) == 0 {
		return "", ErrInvalidKey
	}

	mac := hmac.New(sha512.New, key)
	mac.Write([]byte(content))
	mac.Write([]byte(salt))

	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

// SignatureEqual compares two encoded signatures in constant time.
func SignatureEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
