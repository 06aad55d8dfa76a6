package http

import (
	"net/http"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/service"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// SessionHandler serves the routes that act on the caller's own session.
type SessionHandler struct {
	Sessions *service.SessionService
	Cookie   httpx.CookieConfig
}

// HandleProtected is a minimal route that only answers authenticated callers.
//
//	@Summary		Protected sample route
//	@Tags			Session
//	@Produce		plain
//	@Success		200	{string}	string	"protected"
//	@Failure		401	{object}	httpx.APIError
//	@Failure		403	{object}	httpx.APIError
//	@Router			/protected [get]
func (h *SessionHandler) HandleProtected(w http.ResponseWriter, r *http.Request) {
	if _, ok := IdentityFromContext(r.Context()); !ok {
		httpx.ErrUnauthorized.WriteError(w)
		return
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("protected"))
}

// HandleMe returns the caller's identity.
//
//	@Summary		Current user
//	@Tags			Session
//	@Produce		json
//	@Success		200	{object}	domain.Identity
//	@Failure		401	{object}	httpx.APIError
//	@Failure		403	{object}	httpx.APIError
//	@Router			/v1/me [get]
func (h *SessionHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		httpx.ErrUnauthorized.WriteError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, id)
}

// HandleRevoke signs the caller out everywhere by rotating their token salt.
//
//	@Summary		Revoke all sessions
//	@Description	Invalidates every session token issued to the caller, including the current one.
//	@Tags			Session
//	@Success		204
//	@Failure		401	{object}	httpx.APIError
//	@Failure		403	{object}	httpx.APIError
//	@Failure		500	{object}	httpx.APIError
//	@Router			/v1/sessions/revoke [post]
func (h *SessionHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := IdentityFromContext(ctx)
	if !ok {
		httpx.ErrUnauthorized.WriteError(w)
		return
	}

	if err := h.Sessions.RevokeAll(ctx, id.UserID); err != nil {
		slogx.FromContext(ctx).Error("failed to revoke sessions", "err", err)
		httpx.ErrServerError.WriteError(w)
		return
	}

	slogx.FromContext(ctx).Info("all sessions revoked")
	h.Cookie.Clear(w)
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
