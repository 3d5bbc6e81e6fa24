package services

import (
	"sort"
	"sync"
	"time"
)

type BreakerStatus int

const (
	BreakerClosed BreakerStatus = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerStatus) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitState is a point-in-time copy of one adapter's breaker.
type CircuitState struct {
	Adapter     string
	Status      BreakerStatus
	Failures    int
	LastFailure time.Time
}

// CircuitBreaker tracks consecutive failures of one adapter.
type CircuitBreaker struct {
	mu          sync.Mutex
	status      BreakerStatus
	failures    int
	threshold   int
	cooldown    time.Duration
	lastFailure time.Time
	now         func() time.Time
}

func newCircuitBreaker(threshold int, cooldown time.Duration, now func() time.Time) *CircuitBreaker {
	return &CircuitBreaker{
		status:    BreakerClosed,
		threshold: threshold,
		cooldown:  cooldown,
		now:       now,
	}
}

// Allow reports whether a call may go through. Closed and half-open allow.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.maybeHalfOpen()
	return cb.status != BreakerOpen
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.status = BreakerClosed
	cb.failures = 0
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.maybeHalfOpen()
	// An open breaker ignores late failures so the cooldown is not extended.
	switch cb.status {
	case BreakerClosed:
		cb.lastFailure = cb.now()
		cb.failures++
		if cb.failures >= cb.threshold {
			cb.status = BreakerOpen
		}
	case BreakerHalfOpen:
		cb.lastFailure = cb.now()
		cb.failures++
		cb.status = BreakerOpen
	}
}

func (cb *CircuitBreaker) snapshot(name string) CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.maybeHalfOpen()
	return CircuitState{
		Adapter:     name,
		Status:      cb.status,
		Failures:    cb.failures,
		LastFailure: cb.lastFailure,
	}
}

// maybeHalfOpen moves an open breaker to half-open once the cooldown has
// elapsed. Must be called with mu held.
func (cb *CircuitBreaker) maybeHalfOpen() {
	if cb.status == BreakerOpen && cb.now().Sub(cb.lastFailure) >= cb.cooldown {
		cb.status = BreakerHalfOpen
	}
}

// CircuitBreakers owns one breaker per adapter name. One instance is shared
// by every request in the process.
type CircuitBreakers struct {
	mu        sync.Mutex
	breakers  map[string]*CircuitBreaker
	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

type BreakerOption func(*CircuitBreakers)

func WithBreakerThreshold(n int) BreakerOption {
	return func(b *CircuitBreakers) {
		if n > 0 {
			b.threshold = n
		}
	}
}

func WithBreakerCooldown(d time.Duration) BreakerOption {
	return func(b *CircuitBreakers) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

// WithBreakerClock replaces time.Now, for tests.
func WithBreakerClock(fn func() time.Time) BreakerOption {
	return func(b *CircuitBreakers) { b.now = fn }
}

// NewCircuitBreakers defaults to 5 failures and a 60s cooldown.
func NewCircuitBreakers(opts ...BreakerOption) *CircuitBreakers {
	b := &CircuitBreakers{
		breakers:  make(map[string]*CircuitBreaker),
		threshold: 5,
		cooldown:  60 * time.Second,
		now:       time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// For returns the breaker for an adapter, creating it on first use.
func (b *CircuitBreakers) For(adapter string) *CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	cb, ok := b.breakers[adapter]
	if !ok {
		cb = newCircuitBreaker(b.threshold, b.cooldown, b.now)
		b.breakers[adapter] = cb
	}
	return cb
}

func (b *CircuitBreakers) State(adapter string) CircuitState {
	return b.For(adapter).snapshot(adapter)
}

// States returns a snapshot of every breaker created so far, sorted by name.
func (b *CircuitBreakers) States() []CircuitState {
	b.mu.Lock()
	names := make([]string, 0, len(b.breakers))
	for name := range b.breakers {
		names = append(names, name)
	}
	b.mu.Unlock()

	sort.Strings(names)
	states := make([]CircuitState, 0, len(names))
	for _, name := range names {
		states = append(states, b.State(name))
	}
	return states
}
