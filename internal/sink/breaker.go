package sink

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrCircuitOpen is returned when a guarded sink is skipped because its
// breaker is open.
var ErrCircuitOpen = errors.New("sink circuit open")

// State represents the breaker state.
type State int

const (
	StateClosed   State = 0 // writes pass through
	StateOpen     State = 1 // writes rejected until the cooldown elapses
	StateHalfOpen State = 2 // one probe write in flight, others rejected
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

// Breaker stops calling a sink after maxFailures consecutive failed runs.
// Scheduled pipelines hit external sinks once per tick per symbol, so a
// dead Redis or Timescale would otherwise cost a connection timeout on
// every run.
type Breaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	maxFailures int
	cooldown    time.Duration
	lastFailure time.Time
	probing     bool
	now         func() time.Time

	OnStateChange func(from, to State)
}

// NewBreaker creates a closed breaker.
func NewBreaker(maxFailures int, cooldown time.Duration) *Breaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &Breaker{maxFailures: maxFailures, cooldown: cooldown, now: time.Now}
}

// Execute runs fn unless the breaker is open. In half-open state only the
// first caller runs fn; the rest get ErrCircuitOpen until it returns.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	if b.state == StateOpen {
		if b.now().Sub(b.lastFailure) < b.cooldown {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.transition(StateHalfOpen)
	}
	probe := b.state == StateHalfOpen
	if probe {
		if b.probing {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.probing = true
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if probe {
		b.probing = false
	}
	if err != nil {
		b.failures++
		b.lastFailure = b.now()
		if b.state == StateHalfOpen || b.failures >= b.maxFailures {
			b.transition(StateOpen)
		}
		return err
	}
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
	b.failures = 0
	return nil
}

// CurrentState returns the breaker state.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if to == StateClosed {
		b.failures = 0
	}
	if b.OnStateChange != nil {
		b.OnStateChange(from, to)
	}
}

// guarded wraps a sink with a breaker.
type guarded struct {
	Sink
	breaker *Breaker
}

// Guard returns s wrapped in a breaker that opens after maxFailures
// consecutive failed writes and probes again after cooldown.
func Guard(s Sink, maxFailures int, cooldown time.Duration, log *zap.Logger) Sink {
	b := NewBreaker(maxFailures, cooldown)
	name := s.Name()
	b.OnStateChange = func(from, to State) {
		log.Warn("sink breaker state change",
			zap.String("sink", name),
			zap.Stringer("from", from),
			zap.Stringer("to", to))
	}
	return &guarded{Sink: s, breaker: b}
}

func (g *guarded) Write(ctx context.Context, run *Run) error {
	return g.breaker.Execute(func() error { return g.Sink.Write(ctx, run) })
}
