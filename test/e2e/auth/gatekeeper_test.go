package auth_test

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHealthEndpoints(t *testing.T) {
	baseURL := setupGatekeeper(t, nil)

	for _, path := range []string{"/livez", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			resp, body := do(t, http.MethodGet, baseURL+path, "")
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var health struct {
				Status  string `json:"status"`
				Version string `json:"version"`
			}
			require.NoError(t, json.Unmarshal(body, &health))
			require.Equal(t, "ok", health.Status)
			require.NotEmpty(t, health.Version)
		})
	}

	t.Run("/metrics", func(t *testing.T) {
		resp, body := do(t, http.MethodGet, baseURL+"/metrics", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, string(body), "go_goroutines")
	})
}

func TestLoginRedirect(t *testing.T) {
	baseURL := setupGatekeeper(t, nil)

	resp, _ := do(t, http.MethodGet, baseURL+"/login?return_url="+url.QueryEscape("http://localhost:8080/profile"), "")
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "idp.example.com", loc.Host)
	require.Equal(t, "/authorize", loc.Path)

	q := loc.Query()
	require.Equal(t, "e2e-client", q.Get("client_id"))
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))
	require.NotEmpty(t, q.Get("code_challenge"))
	require.NotEmpty(t, q.Get("state"))
}

func TestCallbackRejectsUnknownState(t *testing.T) {
	baseURL := setupGatekeeper(t, nil)

	t.Run("missing parameters", func(t *testing.T) {
		resp, body := do(t, http.MethodGet, baseURL+"/auth/callback", "")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		requireErrorCode(t, body, "invalid_request")
	})

	t.Run("state never issued", func(t *testing.T) {
		resp, body := do(t, http.MethodGet, baseURL+"/auth/callback?code=abc&state=forged", "")
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		requireErrorCode(t, body, "access_denied")
		require.Nil(t, findCookie(resp, cookieName), "no session is created")
	})
}

func TestProtectedRequiresSession(t *testing.T) {
	baseURL := setupGatekeeper(t, nil)

	t.Run("anonymous", func(t *testing.T) {
		resp, body := do(t, http.MethodGet, baseURL+"/protected", "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		requireErrorCode(t, body, "unauthorized")
	})

	t.Run("forged cookie is cleared", func(t *testing.T) {
		resp, _ := do(t, http.MethodGet, baseURL+"/v1/me", "Zm9yZ2Vk.MjA5OS0wMS0wMVQwMDowMDowMFo.c2ln")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		c := findCookie(resp, cookieName)
		require.NotNil(t, c)
		require.Empty(t, c.Value)
		require.Negative(t, c.MaxAge)
	})
}

func TestLogout(t *testing.T) {
	baseURL := setupGatekeeper(t, nil)

	resp, _ := do(t, http.MethodGet, baseURL+"/logout", "anything")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/"))

	c := findCookie(resp, cookieName)
	require.NotNil(t, c)
	require.Empty(t, c.Value)
}

// TestLoginRateLimit runs with the default login limit lowered so the
// limiter trips quickly.
func TestLoginRateLimit(t *testing.T) {
	baseURL := setupGatekeeper(t, map[string]string{
		"RATELIMIT_LOGIN_REQUESTS":   "3",
		"RATELIMIT_LOGIN_WINDOW_SEC": "60",
		"RATELIMIT_LOGIN_BURST":      "3",
	})

	for i := 0; i < 3; i++ {
		resp, _ := do(t, http.MethodGet, baseURL+"/login", "")
		require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode, "request %d", i+1)
	}

	resp, body := do(t, http.MethodGet, baseURL+"/login", "")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))
	requireErrorCode(t, body, "rate_limit_exceeded")
}
