package cryptox

import (
	"encoding/base64"
	"errors"
	"unicode/utf8"
)

// ErrDecode reports input that is not unpadded base64url or does not decode to UTF-8 text.
var ErrDecode = errors.New("cryptox: invalid base64url text")

// Encode returns text as unpadded base64url.
func Encode(text string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(text))
}

// Decode reverses Encode. The decoded bytes must be valid UTF-8.
func Decode(s string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return "", ErrDecode
	}
	if !utf8.Valid(raw) {
		return "", ErrDecode
	}
	return string(raw), nil
}
