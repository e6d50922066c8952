package completion

import (
	"sync"
	"sync/atomic"
	"time"
)

// BreakerState is the position of a Breaker.
type BreakerState int32

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Breaker opens after maxFailures consecutive failures and lets a single
// probe through once resetTimeout has elapsed.
type Breaker struct {
	maxFailures  int64
	resetTimeout time.Duration

	failures atomic.Int64
	state    atomic.Int32

	mu           sync.RWMutex
	lastFailTime time.Time
	now          func() time.Time
}

// NewBreaker creates a closed Breaker. maxFailures below 1 is treated as 1.
func NewBreaker(maxFailures int, resetTimeout time.Duration) *Breaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	b := &Breaker{
		maxFailures:  int64(maxFailures),
		resetTimeout: resetTimeout,
		now:          time.Now,
	}
	b.state.Store(int32(StateClosed))
	return b
}

// Call runs fn unless the breaker is open. It returns ErrCircuitOpen without
// calling fn while open, and while half-open for every caller except the one
// running the trial.
func (b *Breaker) Call(fn func() error) error {
	state := b.State()

	switch state {
	case StateHalfOpen:
		return ErrCircuitOpen
	case StateOpen:
		b.mu.RLock()
		elapsed := b.now().Sub(b.lastFailTime)
		b.mu.RUnlock()

		if elapsed < b.resetTimeout {
			return ErrCircuitOpen
		}
		if !b.state.CompareAndSwap(int32(StateOpen), int32(StateHalfOpen)) {
			return ErrCircuitOpen
		}
		state = StateHalfOpen
	}

	err := fn()
	if err != nil {
		failures := b.failures.Add(1)
		b.mu.Lock()
		b.lastFailTime = b.now()
		b.mu.Unlock()

		if state == StateHalfOpen || failures >= b.maxFailures {
			b.state.Store(int32(StateOpen))
		}
		return err
	}

	b.failures.Store(0)
	b.state.Store(int32(StateClosed))
	return nil
}

// State returns the current breaker position.
func (b *Breaker) State() BreakerState {
	return BreakerState(b.state.Load())
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int64 {
	return b.failures.Load()
}
