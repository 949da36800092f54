package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("half-open probe already in flight")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// Threshold is the number of consecutive failures that opens the breaker
	Threshold int
	// ResetTimeout is how long the breaker stays open before allowing a probe
	ResetTimeout time.Duration
	// OnStateChange is called whenever the state changes
	OnStateChange func(name string, from State, to State)
	// Now overrides the clock, for tests
	Now func() time.Time
}

// Counts holds the statistics for the circuit breaker
type Counts struct {
	Requests            uint32
	TotalSuccesses      uint32
	TotalFailures       uint32
	ConsecutiveFailures uint32
}

// outcome of a request admitted by the breaker
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeFailure
	// outcomeIgnored releases the request without judging the peer, e.g.
	// when the caller cancelled
	outcomeIgnored
)

// Breaker implements the circuit breaker pattern:
//
//	closed --[Threshold consecutive failures]--> open
//	open --[ResetTimeout elapsed]--> half-open
//	half-open --[probe ok]--> closed
//	half-open --[probe failed]--> open
//
// Half-open admits exactly one probe; other calls are rejected until the
// probe settles.
type Breaker struct {
	name     string
	settings Settings

	mu            sync.Mutex
	state         State
	counts        Counts
	openedAt      time.Time
	probeInFlight bool
	generation    uint64
}

// New creates a new circuit breaker with the given settings
func New(name string, settings Settings) *Breaker {
	if settings.Threshold <= 0 {
		settings.Threshold = DefaultThreshold
	}
	if settings.ResetTimeout <= 0 {
		settings.ResetTimeout = DefaultResetTimeout
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}

	return &Breaker{
		name:     name,
		settings: settings,
		state:    StateClosed,
	}
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.currentState(b.settings.Now())
}

// Counts returns a copy of the internal counts
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.counts
}

// OpenedAt returns when the breaker last opened.
func (b *Breaker) OpenedAt() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.openedAt
}

// Execute runs req if the circuit breaker accepts it and records the outcome
// req reports. A panic in req counts as a failure and is re-raised.
func (b *Breaker) Execute(req func() outcome) error {
	generation, err := b.beforeRequest()
	if err != nil {
		return err
	}

	defer func() {
		e := recover()
		if e != nil {
			b.afterRequest(generation, outcomeFailure)
			panic(e)
		}
	}()

	b.afterRequest(generation, req())
	return nil
}

// beforeRequest is called before a request is executed
func (b *Breaker) beforeRequest() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.currentState(b.settings.Now())

	switch state {
	case StateOpen:
		return b.generation, ErrCircuitOpen
	case StateHalfOpen:
		if b.probeInFlight {
			return b.generation, ErrTooManyRequests
		}
		b.probeInFlight = true
	}

	b.counts.Requests++
	return b.generation, nil
}

// afterRequest is called after a request is executed. Results from an older
// generation (the breaker changed state meanwhile) are discarded.
func (b *Breaker) afterRequest(before uint64, result outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.settings.Now()
	state := b.currentState(now)

	if b.generation != before {
		return
	}

	switch result {
	case outcomeSuccess:
		b.onSuccess(state, now)
	case outcomeFailure:
		b.onFailure(state, now)
	case outcomeIgnored:
		if state == StateHalfOpen {
			b.probeInFlight = false
		}
	}
}

// onSuccess handles successful requests
func (b *Breaker) onSuccess(state State, now time.Time) {
	b.counts.TotalSuccesses++
	b.counts.ConsecutiveFailures = 0

	if state == StateHalfOpen {
		b.setState(StateClosed, now)
	}
}

// onFailure handles failed requests
func (b *Breaker) onFailure(state State, now time.Time) {
	b.counts.TotalFailures++

	switch state {
	case StateClosed:
		b.counts.ConsecutiveFailures++
		if int(b.counts.ConsecutiveFailures) >= b.settings.Threshold {
			b.setState(StateOpen, now)
		}
	case StateHalfOpen:
		b.setState(StateOpen, now)
	}
}

// currentState applies the time-based open -> half-open transition
func (b *Breaker) currentState(now time.Time) State {
	if b.state == StateOpen && now.Sub(b.openedAt) >= b.settings.ResetTimeout {
		b.setState(StateHalfOpen, now)
	}
	return b.state
}

// setState changes the state of the circuit breaker
func (b *Breaker) setState(state State, now time.Time) {
	if b.state == state {
		return
	}

	prev := b.state
	b.state = state
	b.generation++
	b.probeInFlight = false

	switch state {
	case StateClosed:
		b.counts.ConsecutiveFailures = 0
	case StateOpen:
		b.openedAt = now
	}

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, prev, state)
	}
}
