package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/metrics"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/policy"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// PolicyDecider returns an allow decision for a policy input.
type PolicyDecider interface {
	Decide(ctx context.Context, in policy.Input) (bool, error)
}

// Authorize asks the policy engine about every request. A deny is answered
// with 403; anything short of a well-formed decision is answered with 500.
// When enabled is false every request passes.
func Authorize(enabled bool, decider PolicyDecider, m *metrics.Metrics) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			start := time.Now()
			allow, err := decider.Decide(ctx, PolicyInput(r))
			took := time.Since(start)

			if err != nil {
				m.Authz(metrics.AuthzError, took)
				log.Error("policy decision failed", "err", err)
				httpx.ErrServerError.WriteError(w)
				return
			}
			if !allow {
				m.Authz(metrics.AuthzDeny, took)
				log.Info("request denied by policy")
				httpx.ErrAccessDenied.WriteError(w)
				return
			}

			m.Authz(metrics.AuthzAllow, took)
			next.ServeHTTP(w, r)
		})
	}
}

// PolicyInput describes r to the policy engine.
func PolicyInput(r *http.Request) policy.Input {
	headers := make(map[string]string, len(r.Header)+1)
	for name, values := range r.Header {
		headers[strings.ToLower(name)] = strings.Join(values, ", ")
	}
	if r.Host != "" {
		headers["host"] = r.Host
	}

	in := policy.Input{
		Method:  r.Method,
		Path:    strings.Split(strings.Trim(r.URL.Path, "/"), "/"),
		Headers: headers,
	}

	if id, ok := IdentityFromContext(r.Context()); ok {
		in.User = &policy.UserInput{
			Email:       id.Email,
			TokenExpiry: id.TokenExpiry.UTC().Format(time.RFC3339),
		}
	}
	return in
}
