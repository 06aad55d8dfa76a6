package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/metrics"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/service"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// Authenticate resolves the session cookie into an Identity. It never
// rejects a request: any cookie that does not resolve is cleared and the
// request continues anonymously. A resolved session has its cookie
// re-issued with the rotated token.
func Authenticate(sessions *service.SessionService, cookie httpx.CookieConfig, m *metrics.Metrics) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := cookie.Read(r)
			if !ok {
				m.Authn(metrics.AuthnAnonymous)
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			log := slogx.FromContext(ctx)

			sess, err := sessions.Resume(ctx, raw)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrMalformedToken):
					log.Info("session cookie malformed", "err", err)
					m.Authn(metrics.AuthnMalformed)
				case errors.Is(err, service.ErrUnknownUser):
					log.Info("session user no longer exists")
					m.Authn(metrics.AuthnUnknownUser)
				case errors.Is(err, service.ErrInvalidSignature):
					log.Warn("session signature rejected")
					m.Authn(metrics.AuthnBadSignature)
				case errors.Is(err, service.ErrSessionExpired):
					log.Info("session expired")
					m.Authn(metrics.AuthnExpired)
				default:
					log.Error("failed to resume session", "err", err)
					m.Authn(metrics.AuthnError)
				}

				cookie.Clear(w)
				next.ServeHTTP(w, r)
				return
			}

			cookie.Set(w, sess.Token.String(), sess.Token.Expiration)
			m.Authn(metrics.AuthnAuthenticated)

			ctx = withIdentity(ctx, sess.Identity())
			ctx = httpx.WithUserID(ctx, sess.User.ID)
			ctx = slogx.With(ctx, "user_id", sess.User.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
