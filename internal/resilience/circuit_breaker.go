// Package resilience provides circuit breaking for the external model
// backends so a dead service fails fast instead of stalling every page.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the state of a circuit breaker
type State int32

const (
	// StateClosed - requests flow normally
	StateClosed State = iota
	// StateOpen - requests are rejected immediately
	StateOpen
	// StateHalfOpen - a limited number of probe requests are allowed
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the circuit breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config holds configuration for a circuit breaker
type Config struct {
	// Name identifies this breaker in logs
	Name string

	// FailureThreshold is the consecutive failure count that trips the breaker
	FailureThreshold int

	// Cooldown is how long the breaker stays open before probing
	Cooldown time.Duration

	// ProbeSuccesses is the consecutive successful probes needed to close again
	ProbeSuccesses int

	// OnStateChange is called whenever the state changes
	OnStateChange func(name string, from, to State)
}

// DefaultConfig returns defaults tuned for local model backends
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 3,
		Cooldown:         30 * time.Second,
		ProbeSuccesses:   1,
	}
}

// Breaker implements the circuit breaker pattern around a single backend
type Breaker struct {
	name             string
	failureThreshold int
	cooldown         time.Duration
	probeSuccesses   int
	onStateChange    func(name string, from, to State)

	mu            sync.Mutex
	state         State
	failures      int
	probeOK       int
	openedAt      time.Time
	probeInFlight bool
}

// NewBreaker creates a circuit breaker with the given config
func NewBreaker(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.ProbeSuccesses <= 0 {
		cfg.ProbeSuccesses = 1
	}

	return &Breaker{
		name:             cfg.Name,
		failureThreshold: cfg.FailureThreshold,
		cooldown:         cfg.Cooldown,
		probeSuccesses:   cfg.ProbeSuccesses,
		onStateChange:    cfg.OnStateChange,
	}
}

// State returns the current state
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState(time.Now())
}

// Execute runs fn if the breaker allows it and records the outcome
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}

	if ctx.Err() != nil {
		// Caller gave up before the call started, not a backend failure
		b.release()
		return ctx.Err()
	}

	err := fn(ctx)
	b.record(err == nil)
	return err
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentState(time.Now()) {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if b.probeInFlight {
			return ErrCircuitOpen
		}
		b.probeInFlight = true
	}
	return nil
}

func (b *Breaker) release() {
	b.mu.Lock()
	b.probeInFlight = false
	b.mu.Unlock()
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state := b.currentState(now)
	b.probeInFlight = false

	if success {
		switch state {
		case StateClosed:
			b.failures = 0
		case StateHalfOpen:
			b.probeOK++
			if b.probeOK >= b.probeSuccesses {
				b.setState(StateClosed, now)
			}
		}
		return
	}

	switch state {
	case StateClosed:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.setState(StateOpen, now)
		}
	case StateHalfOpen:
		b.setState(StateOpen, now)
	}
}

// currentState transitions open -> half-open after the cooldown. Callers
// must hold the mutex.
func (b *Breaker) currentState(now time.Time) State {
	if b.state == StateOpen && now.Sub(b.openedAt) >= b.cooldown {
		b.setState(StateHalfOpen, now)
	}
	return b.state
}

func (b *Breaker) setState(state State, now time.Time) {
	if b.state == state {
		return
	}

	prev := b.state
	b.state = state
	b.failures = 0
	b.probeOK = 0
	b.probeInFlight = false

	if state == StateOpen {
		b.openedAt = now
	}

	if b.onStateChange != nil {
		b.onStateChange(b.name, prev, state)
	}
}
