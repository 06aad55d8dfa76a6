package domain

import "time"

// OAuth2State is one in-flight login attempt, created at /login and consumed
// once at the provider callback.
type OAuth2State struct {
	ID           string
	CSRFState    string // Lookup key, sent to the provider as `state`
	CodeVerifier string // PKCE verifier, sealed while at rest
	ReturnURL    string // Already validated against the allow-list
	CreatedAt    time.Time
}

// Expired reports whether the state is older than ttl at now.
func (s OAuth2State) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && !now.Before(s.CreatedAt.Add(ttl))
}
