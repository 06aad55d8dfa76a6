package service

import "errors"

// Session resume failures. Every one of them leaves the caller anonymous.
var (
	ErrMalformedToken   = errors.New("service: malformed session token")
	ErrUnknownUser      = errors.New("service: session user not found")
	ErrInvalidSignature = errors.New("service: session signature invalid")
	ErrSessionExpired   = errors.New("service: session expired")
)

// Login flow failures.
var (
	ErrStateNotFound    = errors.New("service: oauth2 state not found")
	ErrCSRFMismatch     = errors.New("service: csrf state mismatch")
	ErrCodeExchange     = errors.New("service: authorization code exchange failed")
	ErrUserInfo         = errors.New("service: userinfo lookup failed")
	ErrEmailNotVerified = errors.New("service: email address not verified")
)
