package http

import "context"

// HealthResponse is returned by the liveness and readiness probes.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database   string `json:"database"`
	StateStore string `json:"state_store"`
}

// Pinger is anything whose connectivity readiness depends on.
type Pinger interface {
	Ping(ctx context.Context) error
}
