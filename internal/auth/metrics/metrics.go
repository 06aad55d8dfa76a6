// Package metrics holds the service's prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gatekeeper"

// Authn outcomes.
const (
	AuthnAnonymous     = "anonymous"
	AuthnAuthenticated = "authenticated"
	AuthnMalformed     = "malformed"
	AuthnUnknownUser   = "unknown_user"
	AuthnBadSignature  = "bad_signature"
	AuthnExpired       = "expired"
	AuthnError         = "error"
)

// Authz decisions.
const (
	AuthzAllow = "allow"
	AuthzDeny  = "deny"
	AuthzError = "error"
)

// Login results.
const (
	LoginStarted       = "started"
	LoginSucceeded     = "succeeded"
	LoginBadRequest    = "bad_request"
	LoginStateRejected = "state_rejected"
	LoginUnverified    = "unverified"
	LoginError         = "error"
)

// Metrics is a set of collectors bound to their own registry.
type Metrics struct {
	registry *prometheus.Registry

	authn          *prometheus.CounterVec
	authz          *prometheus.CounterVec
	policyDuration prometheus.Histogram
	logins         *prometheus.CounterVec
	statesPurged   prometheus.Counter
}

// New builds a registry with the service collectors plus the Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		authn: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authn_total",
			Help:      "Session cookie resolutions by outcome",
		}, []string{"outcome"}),
		authz: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authz_decisions_total",
			Help:      "Policy decisions by result",
		}, []string{"decision"}),
		policyDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "policy_duration_seconds",
			Help:      "Round trip time of policy decisions",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_total",
			Help:      "OAuth2 login steps by result",
		}, []string{"result"}),
		statesPurged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oauth2_states_purged_total",
			Help:      "Expired OAuth2 states removed by housekeeping",
		}),
	}
}

// The recording methods are no-ops on a nil *Metrics.

func (m *Metrics) Authn(outcome string) {
	if m == nil {
		return
	}
	m.authn.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Authz(decision string, took time.Duration) {
	if m == nil {
		return
	}
	m.authz.WithLabelValues(decision).Inc()
	m.policyDuration.Observe(took.Seconds())
}

func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

func (m *Metrics) StatesPurged(n int64) {
	if m != nil && n > 0 {
		m.statesPurged.Add(float64(n))
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
