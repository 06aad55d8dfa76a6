// Package policy asks an external policy engine whether a request may proceed.
//
// The engine is spoken to the way OPA's data API expects it: the decision
// input is POSTed as {"input": ...} and the answer is read from
// {"result": {"allow": bool}}.
package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

var (
	ErrUnexpectedStatus  = errors.New("policy: unexpected status")
	ErrMalformedDecision = errors.New("policy: malformed decision")
	ErrUnavailable       = errors.New("policy: engine unavailable")
)

// maxDecisionBytes caps how much of a decision body is read.
const maxDecisionBytes = 1 << 20

// Input is the document evaluated by the policy engine.
type Input struct {
	Method  string            `json:"method"`
	Path    []string          `json:"path"`
	Headers map[string]string `json:"headers"`
	User    *UserInput        `json:"user,omitempty"`
}

// UserInput describes the authenticated caller, if there is one.
type UserInput struct {
	Email       string `json:"email"`
	TokenExpiry string `json:"token_expiry"`
}

type Config struct {
	URL string

	// Timeout bounds a single decision round trip. Zero means no timeout
	// beyond the request context.
	Timeout time.Duration

	// BreakerFailures is how many consecutive failures open the breaker.
	BreakerFailures int
	// BreakerCooldown is how long the breaker stays open.
	BreakerCooldown time.Duration

	// HTTPClient overrides the client used for decisions.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client is safe for concurrent use.
type Client struct {
	url     string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewClient(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	failures := cfg.BreakerFailures
	if failures <= 0 {
		failures = 5
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		url:  cfg.URL,
		http: hc,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "policy",
			Timeout: cooldown,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= uint32(failures) //nolint:gosec // bounded above
			},
			// A caller that went away says nothing about the engine.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("policy breaker state change", "name", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

// Decide returns the engine's allow decision for in. A deny is (false, nil);
// every failure to obtain a well-formed decision is an error, and callers
// must treat it as a deny.
func (c *Client) Decide(ctx context.Context, in Input) (bool, error) {
	res, err := c.breaker.Execute(func() (any, error) {
		return c.decide(ctx, in)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return false, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return false, err
	}
	return res.(bool), nil
}

type decisionRequest struct {
	Input Input `json:"input"`
}

type decisionResponse struct {
	Result *struct {
		Allow json.RawMessage `json:"allow"`
	} `json:"result"`
}

func (c *Client) decide(ctx context.Context, in Input) (bool, error) {
	body, err := json.Marshal(decisionRequest{Input: in})
	if err != nil {
		return false, fmt.Errorf("policy: encode input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("policy: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("policy: request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDecisionBytes))
		return false, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var dr decisionResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDecisionBytes)).Decode(&dr); err != nil {
		return false, fmt.Errorf("%w: %w", ErrMalformedDecision, err)
	}
	if dr.Result == nil || len(dr.Result.Allow) == 0 || bytes.Equal(dr.Result.Allow, []byte("null")) {
		return false, fmt.Errorf("%w: missing result.allow", ErrMalformedDecision)
	}

	var allow bool
	if err := json.Unmarshal(dr.Result.Allow, &allow); err != nil {
		return false, fmt.Errorf("%w: result.allow is not a boolean", ErrMalformedDecision)
	}
	return allow, nil
}
