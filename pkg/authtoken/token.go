// Package authtoken implements the session token carried in the auth cookie.
//
// A token serializes as three dot-separated parts:
//
//	base64url(identifier) "." base64url(rfc3339(expiration)) "." signature
//
// where signature is HMAC-SHA512 over the first two parts followed by the
// owning user's token salt. The salt is not part of the token; rotating it
// invalidates every token issued for that user.
package authtoken

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
)

var (
	ErrInvalidFormat    = errors.New("authtoken: invalid format")
	ErrDecodeIdentifier = errors.New("authtoken: failed to decode identifier")
	ErrDecodeExpiration = errors.New("authtoken: failed to decode expiration")
	ErrParseExpiration  = errors.New("authtoken: failed to parse expiration")
	ErrSignatureInvalid = errors.New("authtoken: signature invalid")
	ErrExpired          = errors.New("authtoken: expired")
	ErrEmptyIdentifier  = errors.New("authtoken: identifier is empty")
)

// Token is an immutable session token value.
type Token struct {
	Identifier string
	Expiration time.Time
	Signature  string
}

// New signs identifier and expiration with salt and key. The expiration is
// normalised to UTC whole seconds so the token survives a round trip.
func New(identifier string, expiration time.Time, salt string, key []byte) (Token, error) {
	if identifier == "" {
		return Token{}, ErrEmptyIdentifier
	}

	t := Token{
		Identifier: identifier,
		Expiration: expiration.UTC().Truncate(time.Second),
	}

	sig, err := cryptox.Sign(key, t.payload(), salt)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	t.Signature = sig

	return t, nil
}

// Parse reads a serialized token. The signature part is kept verbatim and is
// not checked here; call Verify with the owner's salt.
func Parse(s string) (Token, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Token{}, ErrInvalidFormat
	}

	identifier, err := cryptox.Decode(parts[0])
	if err != nil {
		return Token{}, ErrDecodeIdentifier
	}

	rawExp, err := cryptox.Decode(parts[1])
	if err != nil {
		return Token{}, ErrDecodeExpiration
	}

	exp, err := time.Parse(time.RFC3339, rawExp)
	if err != nil {
		return Token{}, ErrParseExpiration
	}

	return Token{
		Identifier: identifier,
		Expiration: exp.UTC(),
		Signature:  parts[2],
	}, nil
}

// String returns the cookie value for t.
func (t Token) String() string {
	return t.payload() + "." + t.Signature
}

// Verify recomputes the signature with the given salt and key and compares it
// to the carried one in constant time.
func (t Token) Verify(salt string, key []byte) error {
	want, err := cryptox.Sign(key, t.payload(), salt)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	if !cryptox.SignatureEqual(want, t.Signature) {
		return ErrSignatureInvalid
	}
	return nil
}

// Expired reports whether t is no longer usable at now. A token whose
// expiration equals now is expired.
func (t Token) Expired(now time.Time) bool {
	return !now.Before(t.Expiration)
}

// Extend returns a freshly signed token for the same identifier with the
// expiration moved forward by d.
func (t Token) Extend(d time.Duration, salt string, key []byte) (Token, error) {
	return New(t.Identifier, t.Expiration.Add(d), salt, key)
}

// Equal reports whether two tokens carry the same fields.
func (t Token) Equal(o Token) bool {
	return t.Identifier == o.Identifier &&
		t.Expiration.Equal(o.Expiration) &&
		t.Signature == o.Signature
}

func (t Token) payload() string {
	return cryptox.Encode(t.Identifier) + "." + cryptox.Encode(t.Expiration.UTC().Format(time.RFC3339))
}
