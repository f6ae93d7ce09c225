package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errExchange = errors.New("exchange failed")

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(settings Settings) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := New("exchange", settings)
	b.now = clock.now
	b.toNewGeneration(clock.now())
	return b, clock
}

func exchange(b *Breaker, ok bool) (int64, error) {
	return Execute(b, func() (int64, error) {
		if ok {
			return 7, nil
		}
		return 0, errExchange
	})
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		settings      Settings
		requests      []bool // true = success, false = failure
		expectedState State
	}{
		{
			name:          "stays closed on successes",
			settings:      Settings{MaxRequests: 1, Timeout: time.Minute},
			requests:      []bool{true, true, true},
			expectedState: StateClosed,
		},
		{
			name: "opens after consecutive failures",
			settings: Settings{
				Timeout:     time.Minute,
				ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 3 },
			},
			requests:      []bool{false, false, false},
			expectedState: StateOpen,
		},
		{
			name: "success resets the failure streak",
			settings: Settings{
				Timeout:     time.Minute,
				ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 2 },
			},
			requests:      []bool{false, true, false},
			expectedState: StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBreaker(tt.settings)
			for _, ok := range tt.requests {
				_, _ = exchange(b, ok)
			}
			assert.Equal(t, tt.expectedState, b.State())
		})
	}
}

func TestExecuteReturnsResult(t *testing.T) {
	b, _ := newTestBreaker(Settings{})

	v, err := exchange(b, true)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	_, err = exchange(b, false)
	assert.ErrorIs(t, err, errExchange)

	counts := b.Counts()
	assert.Equal(t, uint32(2), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalSuccesses)
	assert.Equal(t, uint32(1), counts.TotalFailures)
	assert.Equal(t, uint32(1), counts.ConsecutiveFailures)
}

func TestOpenBreakerRejectsImmediately(t *testing.T) {
	b, _ := newTestBreaker(Settings{
		Timeout:     time.Minute,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 2 },
	})

	_, _ = exchange(b, false)
	_, _ = exchange(b, false)
	require.Equal(t, StateOpen, b.State())

	called := false
	_, err := Execute(b, func() (int64, error) {
		called = true
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestHalfOpenRecovery(t *testing.T) {
	var transitions []string
	b, clock := newTestBreaker(Settings{
		MaxRequests: 2,
		Timeout:     time.Second,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 2 },
		OnStateChange: func(_ string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_, _ = exchange(b, false)
	_, _ = exchange(b, false)
	require.Equal(t, StateOpen, b.State())

	clock.advance(2 * time.Second)
	assert.Equal(t, StateHalfOpen, b.State())

	for i := 0; i < 2; i++ {
		_, err := exchange(b, true)
		require.NoError(t, err)
	}
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(Settings{
		MaxRequests: 1,
		Timeout:     time.Second,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})

	_, _ = exchange(b, false)
	clock.advance(2 * time.Second)
	require.Equal(t, StateHalfOpen, b.State())

	_, _ = exchange(b, false)
	assert.Equal(t, StateOpen, b.State())
}

func TestHalfOpenLimitsProbes(t *testing.T) {
	b, clock := newTestBreaker(Settings{
		MaxRequests: 1,
		Timeout:     time.Second,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})

	_, _ = exchange(b, false)
	clock.advance(2 * time.Second)

	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = Execute(b, func() (int64, error) {
			<-release
			return 1, nil
		})
	}()

	require.Eventually(t, func() bool { return b.Counts().Requests == 1 }, time.Second, time.Millisecond)
	_, err := exchange(b, true)
	assert.ErrorIs(t, err, ErrTooManyRequests)

	close(release)
	<-done
	assert.Equal(t, StateClosed, b.State())
}

func TestIntervalClearsClosedCounts(t *testing.T) {
	b, clock := newTestBreaker(Settings{Interval: time.Second})

	_, _ = exchange(b, false)
	require.Equal(t, uint32(1), b.Counts().TotalFailures)

	clock.advance(2 * time.Second)
	assert.Equal(t, StateClosed, b.State())
	assert.Zero(t, b.Counts().TotalFailures)
}

func TestExecuteRecordsPanicAsFailure(t *testing.T) {
	b, _ := newTestBreaker(Settings{})

	assert.Panics(t, func() {
		_, _ = Execute(b, func() (int64, error) { panic("boom") })
	})
	assert.Equal(t, uint32(1), b.Counts().TotalFailures)
}
