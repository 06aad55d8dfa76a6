package service

import (
	"net/url"
	"slices"
	"strings"
)

// ReturnURLValidator decides where a browser may be sent after login.
type ReturnURLValidator struct {
	// AllowedHosts are host[:port] values compared case-insensitively.
	AllowedHosts []string
	// AllowedPaths are compared exactly.
	AllowedPaths []string
	// DefaultPath is used whenever a candidate is rejected.
	DefaultPath string
}

// Resolve returns raw when it is an absolute http(s) URL whose host and path
// are both allow-listed, and DefaultPath otherwise. It never fails.
func (v ReturnURLValidator) Resolve(raw string) string {
	if u, ok := v.validate(raw); ok {
		return u
	}
	return v.DefaultPath
}

func (v ReturnURLValidator) validate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.User != nil {
		return "", false
	}

	host := strings.ToLower(u.Host)
	if !slices.ContainsFunc(v.AllowedHosts, func(h string) bool { return strings.EqualFold(h, host) }) {
		return "", false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	if !slices.Contains(v.AllowedPaths, path) {
		return "", false
	}

	return u.String(), true
}
