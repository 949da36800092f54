package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errPeer = errors.New("peer failed")

func run(b *Breaker, ok bool) error {
	err := b.Execute(func() outcome {
		if ok {
			return outcomeSuccess
		}
		return outcomeFailure
	})
	if err != nil {
		return err
	}
	if !ok {
		return errPeer
	}
	return nil
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		threshold     int
		requests      []bool // true = success, false = failure
		expectedState State
	}{
		{
			name:          "stays closed on successes",
			threshold:     3,
			requests:      []bool{true, true, true},
			expectedState: StateClosed,
		},
		{
			name:          "opens after consecutive failures",
			threshold:     3,
			requests:      []bool{false, false, false},
			expectedState: StateOpen,
		},
		{
			name:          "success resets the failure count",
			threshold:     3,
			requests:      []bool{false, false, true, false, false},
			expectedState: StateClosed,
		},
		{
			name:          "threshold of one opens immediately",
			threshold:     1,
			requests:      []bool{false},
			expectedState: StateOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaker := New("test", Settings{
				Threshold:    tt.threshold,
				ResetTimeout: time.Minute,
				Now:          newFakeClock().Now,
			})

			for _, success := range tt.requests {
				_ = run(breaker, success)
			}

			assert.Equal(t, tt.expectedState, breaker.State())
		})
	}
}

func TestBreakerRejectsWhileOpen(t *testing.T) {
	clock := newFakeClock()
	breaker := New("job-store", Settings{Threshold: 3, ResetTimeout: 30 * time.Second, Now: clock.Now})

	for range 3 {
		require.ErrorIs(t, run(breaker, false), errPeer)
	}
	require.Equal(t, StateOpen, breaker.State())
	assert.Equal(t, clock.Now(), breaker.OpenedAt())

	called := false
	err := breaker.Execute(func() outcome {
		called = true
		return outcomeSuccess
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	clock.Advance(29 * time.Second)
	assert.Equal(t, StateOpen, breaker.State())
}

func TestBreakerHalfOpen(t *testing.T) {
	t.Run("probe success closes", func(t *testing.T) {
		clock := newFakeClock()
		breaker := New("test", Settings{Threshold: 2, ResetTimeout: 30 * time.Second, Now: clock.Now})

		_ = run(breaker, false)
		_ = run(breaker, false)
		clock.Advance(30 * time.Second)
		require.Equal(t, StateHalfOpen, breaker.State())

		require.NoError(t, run(breaker, true))
		assert.Equal(t, StateClosed, breaker.State())
		assert.Zero(t, breaker.Counts().ConsecutiveFailures)
	})

	t.Run("probe failure reopens with fresh timestamp", func(t *testing.T) {
		clock := newFakeClock()
		breaker := New("test", Settings{Threshold: 2, ResetTimeout: 30 * time.Second, Now: clock.Now})

		_ = run(breaker, false)
		_ = run(breaker, false)
		firstOpen := breaker.OpenedAt()

		clock.Advance(31 * time.Second)
		require.ErrorIs(t, run(breaker, false), errPeer)

		assert.Equal(t, StateOpen, breaker.State())
		assert.True(t, breaker.OpenedAt().After(firstOpen))
	})

	t.Run("single probe admitted", func(t *testing.T) {
		clock := newFakeClock()
		breaker := New("test", Settings{Threshold: 1, ResetTimeout: time.Second, Now: clock.Now})

		_ = run(breaker, false)
		clock.Advance(time.Second)

		gen, err := breaker.beforeRequest()
		require.NoError(t, err)

		_, err = breaker.beforeRequest()
		assert.ErrorIs(t, err, ErrTooManyRequests)

		breaker.afterRequest(gen, outcomeSuccess)
		assert.Equal(t, StateClosed, breaker.State())
	})

	t.Run("ignored probe frees the slot", func(t *testing.T) {
		clock := newFakeClock()
		breaker := New("test", Settings{Threshold: 1, ResetTimeout: time.Second, Now: clock.Now})

		_ = run(breaker, false)
		clock.Advance(time.Second)

		gen, err := breaker.beforeRequest()
		require.NoError(t, err)
		breaker.afterRequest(gen, outcomeIgnored)

		assert.Equal(t, StateHalfOpen, breaker.State())
		_, err = breaker.beforeRequest()
		assert.NoError(t, err)
	})
}

func TestBreakerCounts(t *testing.T) {
	breaker := New("test", Settings{Threshold: 10, Now: newFakeClock().Now})

	_ = run(breaker, true)
	_ = run(breaker, false)
	_ = run(breaker, true)
	_ = run(breaker, false)
	_ = run(breaker, false)

	counts := breaker.Counts()
	assert.Equal(t, uint32(5), counts.Requests)
	assert.Equal(t, uint32(2), counts.TotalSuccesses)
	assert.Equal(t, uint32(3), counts.TotalFailures)
	assert.Equal(t, uint32(2), counts.ConsecutiveFailures)
}

func TestBreakerStaleOutcomeDiscarded(t *testing.T) {
	clock := newFakeClock()
	breaker := New("test", Settings{Threshold: 1, ResetTimeout: time.Second, Now: clock.Now})

	// Admitted while closed, completes after the breaker has opened.
	stale, err := breaker.beforeRequest()
	require.NoError(t, err)
	_ = run(breaker, false)
	require.Equal(t, StateOpen, breaker.State())

	breaker.afterRequest(stale, outcomeSuccess)
	assert.Equal(t, StateOpen, breaker.State())
}

func TestBreakerOnStateChange(t *testing.T) {
	clock := newFakeClock()
	var transitions []string
	breaker := New("search", Settings{
		Threshold:    1,
		ResetTimeout: time.Second,
		Now:          clock.Now,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})

	_ = run(breaker, false)
	clock.Advance(time.Second)
	_ = run(breaker, true)

	assert.Equal(t, []string{
		"search:closed->open",
		"search:open->half-open",
		"search:half-open->closed",
	}, transitions)
}

func TestBreakerPanicCountsAsFailure(t *testing.T) {
	breaker := New("test", Settings{Threshold: 1, Now: newFakeClock().Now})

	assert.Panics(t, func() {
		_ = breaker.Execute(func() outcome {
			panic("boom")
		})
	})
	assert.Equal(t, StateOpen, breaker.State())
}

func TestBreakersRegistry(t *testing.T) {
	breakers := NewBreakers(ServiceSettings{},
		WithOverride("search", ServiceSettings{CallTimeout: 2 * time.Second}),
	)

	assert.Equal(t, DefaultServiceSettings(), breakers.Settings("job-store"))
	assert.Equal(t, ServiceSettings{
		Threshold:    DefaultThreshold,
		ResetTimeout: DefaultResetTimeout,
		CallTimeout:  2 * time.Second,
	}, breakers.Settings("search"))

	a := breakers.Get("user")
	b := breakers.Get("user")
	assert.Same(t, a, b)

	breakers.Get("analytics")
	snapshot := breakers.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "analytics", snapshot[0].Service)
	assert.Equal(t, "user", snapshot[1].Service)
	assert.Equal(t, "closed", snapshot[1].State)
}
