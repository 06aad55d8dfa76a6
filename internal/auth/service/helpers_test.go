package service_test

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/service"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())
	return st
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeProvider hands out one code per AuthCodeURL call and checks the
// verifier on exchange.
type fakeProvider struct {
	mu        sync.Mutex
	verifiers map[string]string // state -> verifier
	codes     map[string]string // code -> verifier

	info        domain.UserInfo
	exchangeErr error
	userInfoErr error
}

func newFakeProvider(email string, verified bool) *fakeProvider {
	return &fakeProvider{
		verifiers: make(map[string]string),
		codes:     make(map[string]string),
		info:      domain.UserInfo{Email: email, VerifiedEmail: verified},
	}
}

func (p *fakeProvider) AuthCodeURL(state, verifier string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.verifiers[state] = verifier
	p.codes["code-"+state] = verifier
	return "https://idp.example/authorize?" + url.Values{"state": {state}}.Encode()
}

func (p *fakeProvider) Exchange(_ context.Context, code, verifier string) (*oauth2.Token, error) {
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	want, ok := p.codes[code]
	if !ok || want != verifier {
		return nil, errors.New("invalid_grant")
	}
	delete(p.codes, code)
	return &oauth2.Token{AccessToken: "at", TokenType: "Bearer"}, nil
}

func (p *fakeProvider) UserInfo(context.Context, *oauth2.Token) (domain.UserInfo, error) {
	if p.userInfoErr != nil {
		return domain.UserInfo{}, p.userInfoErr
	}
	return p.info, nil
}

type loginFixture struct {
	store    *sqlite.Store
	provider *fakeProvider
	clock    *clock
	sessions *service.SessionService
	login    *service.LoginService
}

func newLoginFixture(t *testing.T) *loginFixture {
	t.Helper()

	st := newStore(t)
	clk := newClock()
	sealer, err := cryptox.NewSealer(testKey, "oauth2-state")
	require.NoError(t, err)

	sessions := &service.SessionService{
		Users:         st.Users(),
		Key:           testKey,
		TokenDuration: time.Hour,
		SessionTTL:    24 * time.Hour,
		Now:           clk.Now,
	}
	prov := newFakeProvider("Alice@Example.com", true)

	return &loginFixture{
		store:    st,
		provider: prov,
		clock:    clk,
		sessions: sessions,
		login: &service.LoginService{
			Store:    st,
			States:   st.OAuth2States(),
			Provider: prov,
			Sessions: sessions,
			Sealer:   sealer,
			ReturnURLs: service.ReturnURLValidator{
				AllowedHosts: []string{"localhost:5173"},
				AllowedPaths: []string{"/", "/profile"},
				DefaultPath:  "/swagger/index.html",
			},
			StateTTL: 10 * time.Minute,
			Now:      clk.Now,
		},
	}
}

// begin starts a login and returns the csrf state from the provider URL.
func (f *loginFixture) begin(t *testing.T, returnURL string) string {
	t.Helper()
	redirect, err := f.login.Begin(context.Background(), returnURL)
	require.NoError(t, err)

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}
