// Package resilience protects registry hosts from request bursts and stops
// sending requests to hosts that keep failing.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// CircuitState is the state of a CircuitBreaker.
type CircuitState int

const (
	StateClosed   CircuitState = iota // requests pass
	StateOpen                         // requests are rejected
	StateHalfOpen                     // a probe request is in flight
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateHalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

// ErrCircuitOpen is returned while a host's breaker rejects requests.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerConfig configures a CircuitBreaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures uint
	// Cooldown is how long the circuit stays open before a probe is allowed.
	Cooldown time.Duration
}

// DefaultBreakerConfig opens after 5 consecutive failures for 30 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{MaxFailures: 5, Cooldown: 30 * time.Second}
}

// CircuitBreaker is a three-state breaker admitting one probe when half open.
type CircuitBreaker struct {
	config BreakerConfig
	now    func() time.Time

	mu       sync.Mutex
	state    CircuitState
	failures uint
	openedAt time.Time
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(config BreakerConfig) *CircuitBreaker {
	if config.MaxFailures == 0 {
		config.MaxFailures = 1
	}
	return &CircuitBreaker{config: config, now: time.Now}
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Allow reports whether a request may proceed. A successful Allow must be
// followed by RecordSuccess or RecordFailure.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.config.Cooldown {
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		return nil
	default:
		// A probe is already running
		return ErrCircuitOpen
	}
}

// RecordSuccess closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
}

// RecordFailure counts a failure; a failed probe reopens the circuit at once.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.config.MaxFailures {
		cb.state = StateOpen
		cb.openedAt = cb.now()
	}
}

// Abandon ends a request that neither succeeded nor failed, such as a canceled one.
// A pending probe is given back so the next request can probe again.
func (cb *CircuitBreaker) Abandon() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateHalfOpen {
		cb.state = StateOpen
	}
}
