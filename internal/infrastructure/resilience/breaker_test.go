package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSpawn = errors.New("fork/exec /bin/nope: no such file or directory")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(clock *fakeClock, trips uint32) *Breaker {
	return New("spawn", Settings{
		Cooldown: time.Second,
		ReadyToTrip: func(c Counts) bool {
			return c.ConsecutiveFailures >= trips
		},
		Now: clock.Now,
	})
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		outcomes      []bool // true = spawn succeeded
		expectedState State
	}{
		{"stays closed on successes", []bool{true, true, true}, StateClosed},
		{"stays closed below threshold", []bool{false, false, true, false}, StateClosed},
		{"opens after consecutive failures", []bool{false, false, false}, StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{now: time.Unix(0, 0)}
			breaker := newTestBreaker(clock, 3)

			for _, ok := range tt.outcomes {
				_ = breaker.Do(func() error {
					if ok {
						return nil
					}
					return errSpawn
				})
			}

			assert.Equal(t, tt.expectedState, breaker.State())
		})
	}
}

func TestBreakerFailsFastWhileOpen(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	breaker := newTestBreaker(clock, 2)

	for i := 0; i < 2; i++ {
		err := breaker.Do(func() error { return errSpawn })
		assert.ErrorIs(t, err, errSpawn)
	}

	called := false
	err := breaker.Do(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called, "open breaker must not run the spawn")
}

func TestBreakerHalfOpenRecovers(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	breaker := newTestBreaker(clock, 1)

	_ = breaker.Do(func() error { return errSpawn })
	require.Equal(t, StateOpen, breaker.State())

	clock.Advance(999 * time.Millisecond)
	assert.Equal(t, StateOpen, breaker.State())

	clock.Advance(time.Millisecond)
	assert.Equal(t, StateHalfOpen, breaker.State())

	require.NoError(t, breaker.Do(func() error { return nil }))
	assert.Equal(t, StateClosed, breaker.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	breaker := newTestBreaker(clock, 1)

	_ = breaker.Do(func() error { return errSpawn })
	clock.Advance(time.Second)

	err := breaker.Do(func() error { return errSpawn })
	assert.ErrorIs(t, err, errSpawn)
	assert.Equal(t, StateOpen, breaker.State())
}

func TestBreakerIsFailureFilter(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	ignored := errors.New("caller cancelled")
	breaker := New("spawn", Settings{
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
		IsFailure:   func(err error) bool { return err != nil && !errors.Is(err, ignored) },
		Now:         clock.Now,
	})

	err := breaker.Do(func() error { return ignored })
	assert.ErrorIs(t, err, ignored)
	assert.Equal(t, StateClosed, breaker.State())
	assert.Equal(t, uint32(1), breaker.Counts().TotalSuccesses)
}

func TestBreakerCounts(t *testing.T) {
	breaker := New("spawn", Settings{})

	require.NoError(t, breaker.Do(func() error { return nil }))
	counts := breaker.Counts()
	assert.Equal(t, uint32(1), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalSuccesses)

	assert.Error(t, breaker.Do(func() error { return errSpawn }))
	counts = breaker.Counts()
	assert.Equal(t, uint32(2), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalFailures)
	assert.Equal(t, uint32(1), counts.ConsecutiveFailures)
	assert.Equal(t, uint32(0), counts.ConsecutiveSuccesses)
}

func TestBreakerCallbacks(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	var transitions []string

	breaker := New("spawn", Settings{
		Cooldown:    time.Second,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
		Now:         clock.Now,
		OnStateChange: func(name string, from, to State) {
			assert.Equal(t, "spawn", name)
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_ = breaker.Do(func() error { return errSpawn })
	clock.Advance(time.Second)
	_ = breaker.Do(func() error { return nil })

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestBreakerRecordsPanics(t *testing.T) {
	breaker := New("spawn", Settings{})

	assert.Panics(t, func() {
		_ = breaker.Do(func() error { panic("boom") })
	})
	assert.Equal(t, uint32(1), breaker.Counts().TotalFailures)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
