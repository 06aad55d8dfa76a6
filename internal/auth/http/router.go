package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/metrics"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/service"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"

	_ "github.com/aussiebroadwan/gatekeeper/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers. Exported fields must
// be set before ApplyRoutes.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware
	handler     http.Handler

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	Store store.Store
	// StateStore is pinged by /readyz when OAuth2 states live outside Store.
	StateStore Pinger

	Sessions *service.SessionService
	Login    *service.LoginService
	Policy   PolicyDecider
	Metrics  *metrics.Metrics

	Cookie              httpx.CookieConfig
	AuthzEnabled        bool
	DefaultRedirectPath string
	CORSOrigins         []string
	LoginLimit          httpx.RateLimitConfig
}

func NewRouter(buildVersion string, logger *slog.Logger) *Router {
	return &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		LoginLimit:   httpx.ModerateLimit,
	}
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSession()
	r.registerSystem()

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.CORS(r.CORSOrigins),
	}
	r.handler = httpx.Chain(r.Mux, r.middlewares...)
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Gatekeeper Session Service API
//	@version		0.1.0
//	@description	Cookie session authentication backed by an OAuth2 identity provider, with request authorization delegated to a policy engine.
//	@description
//	@description	Sessions are carried in an HttpOnly cookie holding an HMAC-SHA512 signed token that is re-issued with a later expiry on every authenticated request.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/gatekeeper
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@schemes		http https
//
//	@securityDefinitions.apikey	SessionCookie
//	@in							cookie
//	@name						auth-token
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

// app wraps an application route in session resolution and the policy check.
func (r *Router) app(h http.Handler, extra ...httpx.Middleware) http.Handler {
	mws := append([]httpx.Middleware{
		Authenticate(r.Sessions, r.Cookie, r.Metrics),
		Authorize(r.AuthzEnabled, r.Policy, r.Metrics),
	}, extra...)
	return httpx.Chain(h, mws...)
}

func (r *Router) registerAuth() {
	h := &LoginHandler{
		Login:               r.Login,
		Cookie:              r.Cookie,
		DefaultRedirectPath: r.DefaultRedirectPath,
		Metrics:             r.Metrics,
	}

	// Login and callback are rate limited by IP before any session work.
	limit := httpx.RateLimitByIP(r.LoginLimit)
	r.Mux.Handle("GET /login", httpx.Chain(r.app(http.HandlerFunc(h.HandleLogin)), limit))
	r.Mux.Handle("GET /auth/callback", httpx.Chain(r.app(http.HandlerFunc(h.HandleCallback)), limit))

	logout := r.app(http.HandlerFunc(h.HandleLogout))
	r.Mux.Handle("GET /logout", logout)
	r.Mux.Handle("POST /logout", logout)
}

func (r *Router) registerSession() {
	h := &SessionHandler{Sessions: r.Sessions, Cookie: r.Cookie}

	r.Mux.Handle("GET /protected", r.app(http.HandlerFunc(h.HandleProtected)))
	r.Mux.Handle("GET /v1/me", r.app(http.HandlerFunc(h.HandleMe),
		httpx.RateLimitByUser(httpx.LenientLimit),
	))
	r.Mux.Handle("POST /v1/sessions/revoke", r.app(http.HandlerFunc(h.HandleRevoke),
		httpx.RateLimitByUser(httpx.StrictLimit),
	))
}

func (r *Router) registerSystem() {
	// Probes, metrics and docs bypass session resolution and the policy check.
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.Store, r.StateStore),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /metrics", r.Metrics.Handler())
	r.Mux.Handle("GET /swagger/", httpSwagger.Handler())
}
