package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	authhttp "github.com/aussiebroadwan/gatekeeper/internal/auth/http"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/metrics"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/policy"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/provider"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/provider/providertest"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/service"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const (
	cookieName  = "auth-token"
	callbackURL = "http://localhost:8080/auth/callback"
	defaultPath = "/swagger/index.html"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

type clock struct {
	mu  sync.Mutex
	now time.Time
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

// policyEngine is a fake policy server whose answer can be changed per test.
type policyEngine struct {
	*httptest.Server

	mu     sync.Mutex
	status int
	body   string
	inputs []map[string]any
}

func newPolicyEngine(t *testing.T) *policyEngine {
	t.Helper()
	pe := &policyEngine{status: http.StatusOK, body: `{"result":{"allow":true}}`}
	pe.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input map[string]any `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		pe.mu.Lock()
		pe.inputs = append(pe.inputs, req.Input)
		status, body := pe.status, pe.body
		pe.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(pe.Close)
	return pe
}

func (pe *policyEngine) answer(status int, body string) {
	pe.mu.Lock()
	defer pe.mu.Unlock()
	pe.status, pe.body = status, body
}

func (pe *policyEngine) lastInput() map[string]any {
	pe.mu.Lock()
	defer pe.mu.Unlock()
	if len(pe.inputs) == 0 {
		return nil
	}
	return pe.inputs[len(pe.inputs)-1]
}

type harness struct {
	router   *authhttp.Router
	store    *sqlite.Store
	idp      *providertest.IdP
	policy   *policyEngine
	clock    *clock
	sessions *service.SessionService
}

type harnessOption func(*authhttp.Router)

func withAuthzDisabled() harnessOption {
	return func(r *authhttp.Router) { r.AuthzEnabled = false }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	idp := providertest.New()
	t.Cleanup(idp.Close)

	prov, err := provider.New(provider.Config{
		Name:         provider.Custom,
		ClientID:     idp.ClientID,
		ClientSecret: idp.ClientSecret,
		RedirectURL:  callbackURL,
		AuthURL:      idp.AuthURL(),
		TokenURL:     idp.TokenURL(),
		UserInfoURL:  idp.UserInfoURL(),
	})
	require.NoError(t, err)

	sealer, err := cryptox.NewSealer(testKey, "oauth2-state")
	require.NoError(t, err)

	clk := &clock{now: time.Now().UTC().Truncate(time.Second)}
	sessions := &service.SessionService{
		Users:         st.Users(),
		Key:           testKey,
		TokenDuration: time.Hour,
		SessionTTL:    24 * time.Hour,
		Now:           clk.Now,
	}

	pe := newPolicyEngine(t)

	r := authhttp.NewRouter("test", slogx.Discard())
	r.Store = st
	r.Sessions = sessions
	r.Login = &service.LoginService{
		Store:    st,
		States:   st.OAuth2States(),
		Provider: prov,
		Sessions: sessions,
		Sealer:   sealer,
		ReturnURLs: service.ReturnURLValidator{
			AllowedHosts: []string{"localhost:5173", "localhost:8080"},
			AllowedPaths: []string{"/", "/profile"},
			DefaultPath:  defaultPath,
		},
		StateTTL: 10 * time.Minute,
		Now:      clk.Now,
	}
	r.Policy = policy.NewClient(policy.Config{URL: pe.URL, BreakerFailures: 100})
	r.Metrics = metrics.New()
	r.Cookie = httpx.CookieConfig{Name: cookieName, SameSite: http.SameSiteLaxMode}
	r.AuthzEnabled = true
	r.DefaultRedirectPath = defaultPath
	r.CORSOrigins = []string{"http://localhost:5173"}

	for _, opt := range opts {
		opt(r)
	}
	r.ApplyRoutes()

	return &harness{router: r, store: st, idp: idp, policy: pe, clock: clk, sessions: sessions}
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return h.do(req)
}

// login runs /login, the provider's consent step and /auth/callback, and
// returns the callback response.
func (h *harness) login(t *testing.T, returnURL string) *httptest.ResponseRecorder {
	t.Helper()

	rec := h.get("/login?return_url=" + url.QueryEscape(returnURL))
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	code, state := h.consent(t, rec.Header().Get("Location"))
	return h.get("/auth/callback?code=" + url.QueryEscape(code) + "&state=" + url.QueryEscape(state))
}

// consent follows the provider redirect the way a browser would and returns
// the code and state handed back to the callback.
func (h *harness) consent(t *testing.T, authorizeURL string) (code, state string) {
	t.Helper()

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Get(authorizeURL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, callbackURL, loc.Scheme+"://"+loc.Host+loc.Path)
	return loc.Query().Get("code"), loc.Query().Get("state")
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	return nil
}

func requireCleared(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	c := sessionCookie(t, rec)
	require.NotNil(t, c, "expected the session cookie to be cleared")
	require.Empty(t, c.Value)
	require.Negative(t, c.MaxAge)
}

func requireAPIError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, code, body["error"])
	require.NotEmpty(t, body["error_description"])
}
