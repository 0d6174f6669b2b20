package clients

import (
	"sync"
	"time"

	"github.com/jsamuelsen/quotesync/internal/platform/config"
)

// State is the position of the circuit breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
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

type outcome int

const (
	succeeded outcome = iota
	failed
	// abandoned calls were cancelled by the caller and say nothing about the remote.
	abandoned
)

// breaker opens after MaxFailures consecutive failures, refuses calls for
// Timeout, then admits up to HalfOpenLimit probes. That many successful
// probes close it again; a failed probe reopens it.
type breaker struct {
	mu       sync.Mutex
	cfg      config.CircuitBreakerConfig
	state    State
	failures int
	probes   int
	passed   int
	openedAt time.Time

	now      func() time.Time
	onChange func(from, to State)
}

func newBreaker(cfg config.CircuitBreakerConfig, onChange func(from, to State)) *breaker {
	if cfg.MaxFailures < 1 {
		cfg.MaxFailures = config.DefaultClientCircuitMaxFailures
	}

	if cfg.HalfOpenLimit < 1 {
		cfg.HalfOpenLimit = 1
	}

	return &breaker{cfg: cfg, now: time.Now, onChange: onChange}
}

// allow reserves a call. Every nil return must be paired with done.
func (b *breaker) allow() error {
	b.mu.Lock()
	from := b.state

	var err error
	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) < b.cfg.Timeout {
			err = ErrCircuitOpen
		} else {
			b.enter(StateHalfOpen)
		}
	}

	if err == nil && b.state == StateHalfOpen {
		if b.probes >= b.cfg.HalfOpenLimit {
			err = ErrCircuitOpen
		} else {
			b.probes++
		}
	}

	to := b.state
	b.mu.Unlock()

	b.notify(from, to)

	return err
}

func (b *breaker) done(o outcome) {
	b.mu.Lock()
	from := b.state

	switch b.state {
	case StateClosed:
		switch o {
		case succeeded:
			b.failures = 0
		case failed:
			b.failures++
			if b.failures >= b.cfg.MaxFailures {
				b.enter(StateOpen)
			}
		}
	case StateHalfOpen:
		b.probes = max(b.probes-1, 0)

		switch o {
		case succeeded:
			b.passed++
			if b.passed >= b.cfg.HalfOpenLimit {
				b.enter(StateClosed)
			}
		case failed:
			b.enter(StateOpen)
		}
	}

	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
}

func (b *breaker) current() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

// enter must be called with mu held.
func (b *breaker) enter(s State) {
	b.state = s
	b.failures, b.probes, b.passed = 0, 0, 0

	if s == StateOpen {
		b.openedAt = b.now()
	}
}

func (b *breaker) notify(from, to State) {
	if from != to && b.onChange != nil {
		b.onChange(from, to)
	}
}
