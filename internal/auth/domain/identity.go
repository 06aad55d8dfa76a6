package domain

import "time"

// Identity is the authenticated caller resolved from the session cookie.
type Identity struct {
	UserID      string    `json:"id"`
	Email       string    `json:"email"`
	TokenExpiry time.Time `json:"token_expiry"`
}

// UserInfo is the subset of the identity provider's userinfo response the
// login flow relies on.
type UserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
}
