package resilience

import (
	"sort"
	"sync"
	"time"
)

// Module-wide defaults, overridable per service.
const (
	DefaultThreshold    = 3
	DefaultResetTimeout = 30 * time.Second
	DefaultCallTimeout  = 5 * time.Second
)

// ServiceSettings are the per-peer resilience parameters.
type ServiceSettings struct {
	Threshold    int
	ResetTimeout time.Duration
	CallTimeout  time.Duration
}

// DefaultServiceSettings returns threshold 3, reset 30s, timeout 5s.
func DefaultServiceSettings() ServiceSettings {
	return ServiceSettings{
		Threshold:    DefaultThreshold,
		ResetTimeout: DefaultResetTimeout,
		CallTimeout:  DefaultCallTimeout,
	}
}

// merge fills zero fields of s from def.
func (s ServiceSettings) merge(def ServiceSettings) ServiceSettings {
	if s.Threshold <= 0 {
		s.Threshold = def.Threshold
	}
	if s.ResetTimeout <= 0 {
		s.ResetTimeout = def.ResetTimeout
	}
	if s.CallTimeout <= 0 {
		s.CallTimeout = def.CallTimeout
	}
	return s
}

// BreakerStatus is a point-in-time view of one peer's breaker.
type BreakerStatus struct {
	Service             string    `json:"service"`
	State               string    `json:"state"`
	ConsecutiveFailures uint32    `json:"consecutive_failures"`
	TotalFailures       uint32    `json:"total_failures"`
	TotalSuccesses      uint32    `json:"total_successes"`
	OpenedAt            time.Time `json:"opened_at,omitempty"`
}

// Breakers owns one Breaker per peer service name, created on first use.
type Breakers struct {
	defaults      ServiceSettings
	overrides     map[string]ServiceSettings
	onStateChange func(name string, from, to State)
	now           func() time.Time

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// BreakersOption configures Breakers.
type BreakersOption func(*Breakers)

// WithOverride sets parameters for one service; zero fields use defaults.
func WithOverride(service string, s ServiceSettings) BreakersOption {
	return func(b *Breakers) {
		b.overrides[service] = s
	}
}

// WithStateChange registers a transition callback for every breaker.
func WithStateChange(fn func(name string, from, to State)) BreakersOption {
	return func(b *Breakers) {
		b.onStateChange = fn
	}
}

// WithClock overrides the clock of every breaker.
func WithClock(now func() time.Time) BreakersOption {
	return func(b *Breakers) {
		b.now = now
	}
}

// NewBreakers creates a registry with the given defaults.
func NewBreakers(defaults ServiceSettings, opts ...BreakersOption) *Breakers {
	b := &Breakers{
		defaults:  defaults.merge(DefaultServiceSettings()),
		overrides: make(map[string]ServiceSettings),
		breakers:  make(map[string]*Breaker),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Settings returns the effective parameters for service.
func (b *Breakers) Settings(service string) ServiceSettings {
	if s, ok := b.overrides[service]; ok {
		return s.merge(b.defaults)
	}
	return b.defaults
}

// Get returns the breaker for service, creating it if needed.
func (b *Breakers) Get(service string) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()

	if br, ok := b.breakers[service]; ok {
		return br
	}

	s := b.Settings(service)
	br := New(service, Settings{
		Threshold:     s.Threshold,
		ResetTimeout:  s.ResetTimeout,
		OnStateChange: b.onStateChange,
		Now:           b.now,
	})
	b.breakers[service] = br
	return br
}

// Snapshot returns the status of every breaker created so far, by name.
func (b *Breakers) Snapshot() []BreakerStatus {
	b.mu.Lock()
	list := make([]*Breaker, 0, len(b.breakers))
	for _, br := range b.breakers {
		list = append(list, br)
	}
	b.mu.Unlock()

	out := make([]BreakerStatus, 0, len(list))
	for _, br := range list {
		counts := br.Counts()
		out = append(out, BreakerStatus{
			Service:             br.Name(),
			State:               br.State().String(),
			ConsecutiveFailures: counts.ConsecutiveFailures,
			TotalFailures:       counts.TotalFailures,
			TotalSuccesses:      counts.TotalSuccesses,
			OpenedAt:            br.OpenedAt(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Service < out[j].Service })
	return out
}
