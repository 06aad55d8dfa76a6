// Package providertest runs an in-process OAuth2 identity provider for tests.
package providertest

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
)

// IdP issues codes from /authorize, exchanges them at /token (checking the
// PKCE verifier) and answers /userinfo for the issued access token.
type IdP struct {
	*httptest.Server

	ClientID     string
	ClientSecret string

	mu       sync.Mutex
	email    string
	verified bool
	codes    map[string]string // code -> S256 challenge
	tokens   map[string]bool
	seq      int
}

func New() *IdP {
	idp := &IdP{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		email:        "user@example.com",
		verified:     true,
		codes:        make(map[string]string),
		tokens:       make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /authorize", idp.authorize)
	mux.HandleFunc("POST /token", idp.token)
	mux.HandleFunc("GET /userinfo", idp.userinfo)
	idp.Server = httptest.NewServer(mux)
	return idp
}

// SetUser changes who the next userinfo call reports.
func (p *IdP) SetUser(email string, verified bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.email = email
	p.verified = verified
}

func (p *IdP) AuthURL() string     { return p.URL + "/authorize" }
func (p *IdP) TokenURL() string    { return p.URL + "/token" }
func (p *IdP) UserInfoURL() string { return p.URL + "/userinfo" }

// IssueCode registers a code bound to challenge, as /authorize would.
func (p *IdP) IssueCode(challenge string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	code := fmt.Sprintf("code-%d", p.seq)
	p.codes[code] = challenge
	return code
}

func (p *IdP) authorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("client_id") != p.ClientID || q.Get("code_challenge_method") != "S256" {
		http.Error(w, "bad authorize request", http.StatusBadRequest)
		return
	}

	redirect, err := url.Parse(q.Get("redirect_uri"))
	if err != nil || redirect.String() == "" {
		http.Error(w, "bad redirect_uri", http.StatusBadRequest)
		return
	}

	code := p.IssueCode(q.Get("code_challenge"))

	rq := redirect.Query()
	rq.Set("code", code)
	rq.Set("state", q.Get("state"))
	redirect.RawQuery = rq.Encode()
	http.Redirect(w, r, redirect.String(), http.StatusFound)
}

func (p *IdP) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, "invalid_request")
		return
	}

	id, secret, ok := r.BasicAuth()
	if !ok {
		id, secret = r.PostForm.Get("client_id"), r.PostForm.Get("client_secret")
	}
	if id != p.ClientID || secret != p.ClientSecret {
		writeOAuthError(w, "invalid_client")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	code := r.PostForm.Get("code")
	challenge, found := p.codes[code]
	delete(p.codes, code)
	if !found || challenge != S256(r.PostForm.Get("code_verifier")) {
		writeOAuthError(w, "invalid_grant")
		return
	}

	access := "at-" + code
	p.tokens[access] = true

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": access,
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func (p *IdP) userinfo(w http.ResponseWriter, r *http.Request) {
	access := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	p.mu.Lock()
	known := p.tokens[access]
	email, verified := p.email, p.verified
	p.mu.Unlock()

	if !known {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"email":          email,
		"verified_email": verified,
	})
}

func writeOAuthError(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}

// S256 is the PKCE S256 challenge for verifier.
func S256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
