package resilience

import (
	"context"
	"fmt"
	"net/http"
	"sync"
)

// HostGuard keeps one rate limiter and one circuit breaker per registry host.
type HostGuard struct {
	breakerConfig BreakerConfig
	limiterConfig LimiterConfig

	mu    sync.Mutex
	hosts map[string]*hostState
}

type hostState struct {
	breaker *CircuitBreaker
	limiter *TokenBucket
}

// NewHostGuard creates a guard with the given per-host configuration.
func NewHostGuard(breaker BreakerConfig, limiter LimiterConfig) *HostGuard {
	return &HostGuard{
		breakerConfig: breaker,
		limiterConfig: limiter,
		hosts:         make(map[string]*hostState),
	}
}

// NewDefaultHostGuard uses DefaultBreakerConfig and DefaultLimiterConfig.
func NewDefaultHostGuard() *HostGuard {
	return NewHostGuard(DefaultBreakerConfig(), DefaultLimiterConfig())
}

func (g *HostGuard) host(name string) *hostState {
	g.mu.Lock()
	defer g.mu.Unlock()

	h, ok := g.hosts[name]
	if !ok {
		h = &hostState{
			breaker: NewCircuitBreaker(g.breakerConfig),
			limiter: NewTokenBucket(g.limiterConfig),
		}
		g.hosts[name] = h
	}
	return h
}

// State returns the breaker state for host.
func (g *HostGuard) State(host string) CircuitState {
	return g.host(host).breaker.State()
}

// Do waits for a rate limit token of host, then runs op unless the host's
// circuit is open. Transport errors and 5xx responses count as failures.
func (g *HostGuard) Do(ctx context.Context, host string, op func(context.Context) (*http.Response, error)) (*http.Response, error) {
	h := g.host(host)
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if err := h.breaker.Allow(); err != nil {
		return nil, fmt.Errorf("registry host %s: %w", host, err)
	}

	resp, err := op(ctx)
	switch {
	case err != nil && ctx.Err() != nil:
		h.breaker.Abandon()
	case err != nil, resp.StatusCode >= http.StatusInternalServerError:
		h.breaker.RecordFailure()
	default:
		h.breaker.RecordSuccess()
	}
	return resp, err
}
