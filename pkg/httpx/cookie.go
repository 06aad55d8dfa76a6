package httpx

import (
	"net/http"
	"strings"
	"time"
)

// CookieConfig describes the session cookie. Path is always "/" and the
// cookie is always HttpOnly.
type CookieConfig struct {
	Name     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// ParseSameSite maps "lax", "strict" or "none" to http.SameSite. Anything
// else yields Lax.
func ParseSameSite(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// Read returns the cookie value from the request.
func (c CookieConfig) Read(r *http.Request) (string, bool) {
	ck, err := r.Cookie(c.Name)
	if err != nil {
		return "", false
	}
	return ck.Value, true
}

// Set writes the cookie with the given value and expiry. A cookie of the same
// name already queued on this response is replaced.
func (c CookieConfig) Set(w http.ResponseWriter, value string, expires time.Time) {
	maxAge := int(time.Until(expires).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	c.write(w, &http.Cookie{
		Value:   value,
		Expires: expires.UTC(),
		MaxAge:  maxAge,
	})
}

// Clear expires the cookie in the browser.
func (c CookieConfig) Clear(w http.ResponseWriter) {
	c.write(w, &http.Cookie{
		Value:   "",
		Expires: time.Unix(0, 0).UTC(),
		MaxAge:  -1,
	})
}

func (c CookieConfig) write(w http.ResponseWriter, ck *http.Cookie) {
	ck.Name = c.Name
	ck.Domain = c.Domain
	ck.Path = "/"
	ck.HttpOnly = true
	ck.Secure = c.Secure
	ck.SameSite = c.SameSite

	h := w.Header()
	var kept []string
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, c.Name+"=") {
			kept = append(kept, v)
		}
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}

	http.SetCookie(w, ck)
}
