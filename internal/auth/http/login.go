package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/metrics"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/service"
	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// LoginHandler starts and finishes the OAuth2 login flow.
type LoginHandler struct {
	Login               *service.LoginService
	Cookie              httpx.CookieConfig
	DefaultRedirectPath string
	Metrics             *metrics.Metrics
}

// HandleLogin starts a login.
//
//	@Summary		Start login
//	@Description	Redirects the browser to the identity provider. A caller that already has a session is sent to the default landing page instead.
//	@Description	`return_url` must match the allow-list; anything else silently falls back to the default landing page.
//	@Tags			Auth
//	@Param			return_url	query		string	false	"Where to go after login"	example(http://localhost:5173/profile)
//	@Success		307			{string}	string	"Redirect to the identity provider"
//	@Failure		429			{object}	httpx.APIError
//	@Failure		500			{object}	httpx.APIError
//	@Router			/login [get]
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := IdentityFromContext(r.Context()); ok {
		http.Redirect(w, r, h.DefaultRedirectPath, http.StatusTemporaryRedirect)
		return
	}

	redirect, err := h.Login.Begin(r.Context(), r.URL.Query().Get("return_url"))
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to start login", "err", err)
		h.Metrics.Login(metrics.LoginError)
		httpx.ErrServerError.WriteError(w)
		return
	}

	h.Metrics.Login(metrics.LoginStarted)
	httpx.NoCache(w)
	http.Redirect(w, r, redirect, http.StatusTemporaryRedirect)
}

// HandleCallback finishes a login.
//
//	@Summary		OAuth2 callback
//	@Description	Validates `state`, exchanges `code` with the identity provider, provisions the user on first login and sets the session cookie.
//	@Tags			Auth
//	@Param			code	query		string	true	"Authorization code"
//	@Param			state	query		string	true	"CSRF state issued by /login"
//	@Success		303		{string}	string	"Redirect to the return URL"
//	@Failure		400		{object}	httpx.APIError
//	@Failure		403		{object}	httpx.APIError
//	@Failure		429		{object}	httpx.APIError
//	@Failure		500		{object}	httpx.APIError
//	@Router			/auth/callback [get]
func (h *LoginHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	q := r.URL.Query()
	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		if e := q.Get("error"); e != "" {
			log.Info("identity provider returned an error", "error", e, "description", q.Get("error_description"))
		}
		h.Metrics.Login(metrics.LoginBadRequest)
		httpx.NewAPIError(http.StatusBadRequest, httpx.ErrorCodeInvalidRequest, "code and state are required").WriteError(w)
		return
	}

	log = log.With("state_fp", cryptox.Fingerprint(state))

	res, err := h.Login.Complete(ctx, code, state)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrStateNotFound):
			log.Warn("login rejected: unknown or expired state", "err", err)
			h.Metrics.Login(metrics.LoginStateRejected)
			httpx.ErrAccessDenied.WriteError(w)
		case errors.Is(err, service.ErrCSRFMismatch):
			log.Warn("login rejected: csrf state mismatch")
			h.Metrics.Login(metrics.LoginStateRejected)
			httpx.ErrAccessDenied.WriteError(w)
		case errors.Is(err, service.ErrEmailNotVerified):
			log.Warn("login rejected: email not verified")
			h.Metrics.Login(metrics.LoginUnverified)
			httpx.NewAPIError(http.StatusForbidden, httpx.ErrorCodeAccessDenied, "email address not verified").WriteError(w)
		case errors.Is(err, service.ErrCodeExchange):
			log.Error("authorization code exchange failed", "err", err)
			h.Metrics.Login(metrics.LoginError)
			httpx.ErrServerError.WriteError(w)
		default:
			log.Error("failed to complete login", "err", err)
			h.Metrics.Login(metrics.LoginError)
			httpx.ErrServerError.WriteError(w)
		}
		return
	}

	log.Info("login succeeded", "user_id", res.User.ID)
	h.Metrics.Login(metrics.LoginSucceeded)

	h.Cookie.Set(w, res.Token.String(), res.Token.Expiration)
	httpx.NoCache(w)
	http.Redirect(w, r, res.ReturnURL, http.StatusSeeOther)
}

// HandleLogout clears the session cookie.
//
//	@Summary		Log out
//	@Description	Clears the session cookie and redirects to the default landing page. Works without a session.
//	@Tags			Auth
//	@Success		303	{string}	string	"Redirect to the default landing page"
//	@Router			/logout [get]
//	@Router			/logout [post]
func (h *LoginHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.Cookie.Clear(w)
	httpx.NoCache(w)
	http.Redirect(w, r, h.DefaultRedirectPath, http.StatusSeeOther)
}
