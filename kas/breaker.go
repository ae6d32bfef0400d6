// kas/breaker.go
package kas

import (
	"sync"
	"time"
)

// CircuitState represents the state of one KAS circuit breaker.
type CircuitState int

const (
	// CircuitClosed is the normal operating state where calls pass through.
	CircuitClosed CircuitState = iota

	// CircuitOpen is the tripped state where calls are skipped immediately.
	CircuitOpen

	// CircuitHalfOpen is the probing state after the cooldown: one call is
	// allowed through to test whether the KAS has recovered.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures the per-KAS circuit breakers.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before the
	// circuit opens.
	FailureThreshold int

	// Cooldown is how long an open circuit rejects calls before probing.
	Cooldown time.Duration
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 3,
		Cooldown:         30 * time.Second,
	}
}

// breaker tracks one KAS's health. One partner's KAS outage must not stall
// every decrypt that happens to prefer it, nor repeatedly pay its timeout.
type breaker struct {
	state            CircuitState
	consecutiveFails int
	lastFailureAt    time.Time
	cooldownUntil    time.Time
}

// BreakerSet owns the circuit breakers for every KAS this instance talks
// to, keyed by kasId. All mutation happens under one short-held mutex.
type BreakerSet struct {
	mu       sync.Mutex
	cfg      BreakerConfig
	breakers map[string]*breaker
}

func NewBreakerSet(cfg BreakerConfig) *BreakerSet {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &BreakerSet{
		cfg:      cfg,
		breakers: make(map[string]*breaker),
	}
}

// Allow reports whether a call to the given KAS may proceed. An open
// circuit within its cooldown rejects without any network I/O; once the
// cooldown elapses the circuit moves to half-open and one probe is allowed.
func (bs *BreakerSet) Allow(kasID string) bool {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	b := bs.get(kasID)
	switch b.state {
	case CircuitOpen:
		if time.Now().Before(b.cooldownUntil) {
			return false
		}
		b.state = CircuitHalfOpen
		return true
	default:
		return true
	}
}

// RecordSuccess closes the circuit and clears the failure count.
func (bs *BreakerSet) RecordSuccess(kasID string) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	b := bs.get(kasID)
	b.state = CircuitClosed
	b.consecutiveFails = 0
}

// RecordFailure increments the consecutive failure count and opens the
// circuit at the threshold. A failed half-open probe re-opens immediately.
func (bs *BreakerSet) RecordFailure(kasID string) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	b := bs.get(kasID)
	b.consecutiveFails++
	b.lastFailureAt = time.Now()

	if b.state == CircuitHalfOpen || b.consecutiveFails >= bs.cfg.FailureThreshold {
		b.state = CircuitOpen
		b.cooldownUntil = time.Now().Add(bs.cfg.Cooldown)
	}
}

// State returns the current state for the given KAS.
func (bs *BreakerSet) State(kasID string) CircuitState {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return bs.get(kasID).state
}

// Reset restores a KAS to closed. Supports administrative recovery after a
// known outage ends.
func (bs *BreakerSet) Reset(kasID string) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	b := bs.get(kasID)
	b.state = CircuitClosed
	b.consecutiveFails = 0
	b.cooldownUntil = time.Time{}
}

// get returns the breaker for kasID, creating it closed. Must be called
// with mu held.
func (bs *BreakerSet) get(kasID string) *breaker {
	b, ok := bs.breakers[kasID]
	if !ok {
		b = &breaker{state: CircuitClosed}
		bs.breakers[kasID] = b
	}
	return b
}
