package extract

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker is rejecting calls.
// Messages hitting it are redelivered with a delay rather than failed.
var ErrCircuitOpen = errors.New("llm circuit open")

// Breaker is a process-wide circuit breaker for the LLM endpoint.
// A run of consecutive failures opens the circuit for the recovery
// window; the first call after the window acts as the probe.
type Breaker struct {
	mu          sync.Mutex
	threshold   int
	recovery    time.Duration
	consecutive int
	openUntil   time.Time

	now func() time.Time
}

// BreakerOptions configures a Breaker.
type BreakerOptions struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// circuit. Default 5.
	FailureThreshold int

	// Recovery is how long the circuit stays open. Default 30s.
	Recovery time.Duration
}

// NewBreaker creates a closed breaker.
func NewBreaker(opts BreakerOptions) *Breaker {
	threshold := opts.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	recovery := opts.Recovery
	if recovery == 0 {
		recovery = 30 * time.Second
	}
	return &Breaker{threshold: threshold, recovery: recovery, now: time.Now}
}

// Allow reports whether a call may proceed. Returns ErrCircuitOpen
// while the recovery window is active.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.openUntil.IsZero() || b.now().After(b.openUntil) {
		return nil
	}
	return ErrCircuitOpen
}

// Success records a successful call, closing the circuit.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutive = 0
	b.openUntil = time.Time{}
}

// Failure records a failed call, opening the circuit once the
// threshold is reached.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutive++
	if b.consecutive >= b.threshold {
		b.openUntil = b.now().Add(b.recovery)
	}
}

// Open reports whether the circuit is currently rejecting calls.
func (b *Breaker) Open() bool {
	return b.Allow() != nil
}
