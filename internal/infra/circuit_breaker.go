package infra

// Breaker shields the payment gateway call path. A flapping sidecar would
// otherwise stall every card payment behind its timeout; after enough
// consecutive failures the breaker fast-fails until a probe succeeds.
//
// closed → open after FailureThreshold consecutive failures
// open → half-open once OpenFor has elapsed
// half-open → closed after SuccessThreshold consecutive successes

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen is returned by Do while the breaker is fast-failing.
var ErrBreakerOpen = errors.New("breaker open")

type BreakerConfig struct {
	FailureThreshold int           // consecutive failures before tripping
	SuccessThreshold int           // consecutive probe successes before closing
	OpenFor          time.Duration // fast-fail window before the first probe
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenFor:          60 * time.Second,
	}
}

// Breaker is a named circuit breaker. The name shows up in transition logs
// so operators can tell a gateway brownout from a mailer outage.
type Breaker struct {
	name string
	cfg  BreakerConfig

	mu        sync.Mutex
	state     breakerState
	failures  int
	successes int
	openedAt  time.Time
}

func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 60 * time.Second
	}
	return &Breaker{name: name, cfg: cfg, state: breakerClosed}
}

// State reports the current state, promoting open to half-open once the
// fast-fail window has elapsed.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current().String()
}

// Do runs fn unless the breaker is open, in which case it returns
// ErrBreakerOpen without calling fn.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	if b.current() == breakerOpen {
		b.mu.Unlock()
		return ErrBreakerOpen
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.recordFailure()
		return err
	}
	b.recordSuccess()
	return nil
}

// current must be called under b.mu.
func (b *Breaker) current() breakerState {
	if b.state == breakerOpen && time.Since(b.openedAt) >= b.cfg.OpenFor {
		b.transition(breakerHalfOpen)
		b.successes = 0
	}
	return b.state
}

func (b *Breaker) recordFailure() {
	switch b.state {
	case breakerClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.transition(breakerOpen)
			b.openedAt = time.Now()
			b.successes = 0
		}
	case breakerHalfOpen:
		// Probe failed, back to fast-failing.
		b.transition(breakerOpen)
		b.openedAt = time.Now()
		b.failures = 0
	}
}

func (b *Breaker) recordSuccess() {
	switch b.state {
	case breakerClosed:
		b.failures = 0
	case breakerHalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.transition(breakerClosed)
			b.failures = 0
			b.successes = 0
		}
	}
}

func (b *Breaker) transition(to breakerState) {
	log.Warn().
		Str("breaker", b.name).
		Str("from", b.state.String()).
		Str("to", to.String()).
		Msg("breaker state change")
	b.state = to
}
