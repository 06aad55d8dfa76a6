package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	authhttp "github.com/aussiebroadwan/gatekeeper/internal/auth/http"
	"github.com/aussiebroadwan/gatekeeper/pkg/authtoken"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	h := newHarness(t)
	good := sessionCookie(t, h.login(t, ""))
	require.NotNil(t, good)

	user, err := h.store.Users().GetUserByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)

	mint := func(t *testing.T, email, salt string, exp time.Time) *http.Cookie {
		t.Helper()
		tok, err := authtoken.New(email, exp, salt, testKey)
		require.NoError(t, err)
		return &http.Cookie{Name: cookieName, Value: tok.String()}
	}

	t.Run("no cookie stays anonymous and untouched", func(t *testing.T) {
		rec := h.get("/protected")
		requireAPIError(t, rec, http.StatusUnauthorized, httpx.ErrorCodeUnauthorized)
		require.Empty(t, rec.Header().Values("Set-Cookie"))
	})

	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{name: "malformed", cookie: &http.Cookie{Name: cookieName, Value: "garbage"}},
		{name: "unknown user", cookie: mint(t, "ghost@example.com", user.TokenSalt, h.clock.Now().Add(time.Hour))},
		{name: "bad signature", cookie: mint(t, user.Email, "not-the-salt", h.clock.Now().Add(time.Hour))},
		{name: "expires now", cookie: mint(t, user.Email, user.TokenSalt, h.clock.Now())},
		{name: "expired", cookie: mint(t, user.Email, user.TokenSalt, h.clock.Now().Add(-time.Second))},
	}
	for _, tt := range tests {
		t.Run(tt.name+" clears the cookie and continues anonymously", func(t *testing.T) {
			rec := h.get("/protected", tt.cookie)
			requireAPIError(t, rec, http.StatusUnauthorized, httpx.ErrorCodeUnauthorized)
			requireCleared(t, rec)
		})
	}

	t.Run("public route still reachable with a bad cookie", func(t *testing.T) {
		rec := h.get("/logout", &http.Cookie{Name: cookieName, Value: "garbage"})
		require.Equal(t, http.StatusSeeOther, rec.Code)
	})

	t.Run("valid for one more second", func(t *testing.T) {
		rec := h.get("/protected", mint(t, user.Email, user.TokenSalt, h.clock.Now().Add(time.Second)))
		require.Equal(t, http.StatusOK, rec.Code)

		rotated := sessionCookie(t, rec)
		require.NotNil(t, rotated)
		require.True(t, rotated.Expires.Equal(h.clock.Now().Add(time.Second+time.Hour)))
	})
}

func TestAuthorize(t *testing.T) {
	t.Run("deny is 403", func(t *testing.T) {
		h := newHarness(t)
		h.policy.answer(http.StatusOK, `{"result":{"allow":false}}`)

		requireAPIError(t, h.get("/protected"), http.StatusForbidden, httpx.ErrorCodeAccessDenied)
	})

	failures := []struct {
		name   string
		status int
		body   string
	}{
		{name: "engine error", status: http.StatusInternalServerError, body: `{"result":{"allow":true}}`},
		{name: "malformed body", status: http.StatusOK, body: `not json`},
		{name: "missing allow", status: http.StatusOK, body: `{"result":{}}`},
		{name: "non-boolean allow", status: http.StatusOK, body: `{"result":{"allow":"yes"}}`},
	}
	for _, tt := range failures {
		t.Run(tt.name+" fails closed with 500", func(t *testing.T) {
			h := newHarness(t)
			h.policy.answer(tt.status, tt.body)

			rec := h.get("/protected")
			requireAPIError(t, rec, http.StatusInternalServerError, httpx.ErrorCodeServerError)
			require.Equal(t, "internal server error", httpx.ErrServerError.Description)
		})
	}

	t.Run("unreachable engine fails closed with 500", func(t *testing.T) {
		h := newHarness(t)
		h.policy.Close()

		requireAPIError(t, h.get("/v1/me"), http.StatusInternalServerError, httpx.ErrorCodeServerError)
	})

	t.Run("disabled passes through", func(t *testing.T) {
		h := newHarness(t, withAuthzDisabled())
		h.policy.answer(http.StatusOK, `{"result":{"allow":false}}`)

		require.Equal(t, http.StatusSeeOther, h.get("/logout").Code)
		require.Nil(t, h.policy.lastInput())
	})

	t.Run("system routes bypass the policy", func(t *testing.T) {
		h := newHarness(t)
		h.policy.answer(http.StatusOK, `{"result":{"allow":false}}`)

		for _, path := range []string{"/livez", "/readyz", "/metrics"} {
			require.Equal(t, http.StatusOK, h.get(path).Code, path)
		}
		require.Nil(t, h.policy.lastInput())
	})
}

func TestPolicyInput(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/sessions/revoke/", nil)
		req.Header.Add("X-Custom", "a")
		req.Header.Add("X-Custom", "b")
		req.Header.Set("Accept", "application/json")

		in := authhttp.PolicyInput(req)
		require.Equal(t, http.MethodPost, in.Method)
		require.Equal(t, []string{"v1", "sessions", "revoke"}, in.Path)
		require.Equal(t, "a, b", in.Headers["x-custom"])
		require.Equal(t, "application/json", in.Headers["accept"])
		require.Equal(t, "example.com", in.Headers["host"])
		require.Nil(t, in.User)
	})

	t.Run("root path", func(t *testing.T) {
		in := authhttp.PolicyInput(httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, []string{""}, in.Path)
	})
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/me", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := h.do(req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
