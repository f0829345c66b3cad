// Package resilience provides the circuit breaker guarding outbound
// content fetches.
package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrOpen reports a call rejected because the circuit is open.
	ErrOpen = errors.New("circuit open")
	// ErrProbeBudget reports a call rejected because the half-open probe
	// budget is spent.
	ErrProbeBudget = errors.New("probe budget exhausted")
)

// State is the breaker's position.
type State uint8

const (
	Closed State = iota
	Open
	HalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Options tunes one breaker. Zero values get sane defaults.
type Options struct {
	// TripAfter is the consecutive-failure count that opens the circuit.
	TripAfter uint32
	// Cooldown is how long the circuit stays open before probing.
	Cooldown time.Duration
	// Probes is how many trial calls half-open admits; that many
	// consecutive successes close the circuit again.
	Probes uint32
	// Window resets the closed-state failure streak when it elapses
	// without a trip.
	Window time.Duration
	// OnChange observes state transitions.
	OnChange func(name string, from, to State)
}

// Breaker is a consecutive-failure circuit breaker.
type Breaker struct {
	name string
	opt  Options

	mu       sync.Mutex
	state    State
	gen      uint64
	fails    uint32
	okStreak uint32
	probes   uint32
	deadline time.Time
}

// NewBreaker creates a breaker with defaulted options.
func NewBreaker(name string, opt Options) *Breaker {
	if opt.TripAfter == 0 {
		opt.TripAfter = 5
	}
	if opt.Cooldown == 0 {
		opt.Cooldown = 30 * time.Second
	}
	if opt.Probes == 0 {
		opt.Probes = 1
	}
	if opt.Window == 0 {
		opt.Window = time.Minute
	}
	b := &Breaker{name: name, opt: opt}
	b.deadline = time.Now().Add(opt.Window)
	return b
}

// Name returns the breaker's name.
func (b *Breaker) Name() string { return b.name }

// State returns the current state, advancing open→half-open when the
// cooldown has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance(time.Now())
	return b.state
}

// Do runs fn under the breaker. The returned error is either fn's own,
// or ErrOpen / ErrProbeBudget when the call was rejected up front.
func (b *Breaker) Do(fn func() error) error {
	gen, err := b.admit()
	if err != nil {
		return err
	}
	err = fn()
	b.settle(gen, err == nil)
	return err
}

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.advance(now)

	switch b.state {
	case Open:
		return b.gen, ErrOpen
	case HalfOpen:
		if b.probes >= b.opt.Probes {
			return b.gen, ErrProbeBudget
		}
		b.probes++
	}
	return b.gen, nil
}

func (b *Breaker) settle(gen uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance(time.Now())
	if gen != b.gen {
		// The circuit moved on while the call was in flight.
		return
	}

	switch {
	case success && b.state == HalfOpen:
		b.okStreak++
		if b.okStreak >= b.opt.Probes {
			b.shift(Closed)
		}
	case success:
		b.fails = 0
	case b.state == HalfOpen:
		b.shift(Open)
	default:
		b.fails++
		if b.fails >= b.opt.TripAfter {
			b.shift(Open)
		}
	}
}

// advance applies time-driven transitions. Caller holds the lock.
func (b *Breaker) advance(now time.Time) {
	switch b.state {
	case Closed:
		if now.After(b.deadline) {
			b.fails = 0
			b.deadline = now.Add(b.opt.Window)
		}
	case Open:
		if now.After(b.deadline) {
			b.shift(HalfOpen)
		}
	}
}

// shift moves to a new state. Caller holds the lock.
func (b *Breaker) shift(next State) {
	if b.state == next {
		return
	}
	prev := b.state
	b.state = next
	b.gen++
	b.fails = 0
	b.okStreak = 0
	b.probes = 0

	now := time.Now()
	switch next {
	case Closed:
		b.deadline = now.Add(b.opt.Window)
	case Open:
		b.deadline = now.Add(b.opt.Cooldown)
	case HalfOpen:
		b.deadline = time.Time{}
	}

	if b.opt.OnChange != nil {
		b.opt.OnChange(b.name, prev, next)
	}
}
