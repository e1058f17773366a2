package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("broker unavailable")

func tripAfter(n uint32) func(Counts) bool {
	return func(c Counts) bool { return c.ConsecutiveFailures >= n }
}

func TestCircuitBreaker_ClosedState(t *testing.T) {
	cb := NewCircuitBreaker("test-closed", Config{ReadyToTrip: tripAfter(5)})

	for i := 0; i < 10; i++ {
		require.NoError(t, cb.Execute(func() error { return nil }))
	}

	assert.Equal(t, StateClosed, cb.State())
	assert.EqualValues(t, 10, cb.Counts().TotalSuccesses)
}

func TestCircuitBreaker_OpenState(t *testing.T) {
	cb := NewCircuitBreaker("test-open", Config{Timeout: time.Minute, ReadyToTrip: tripAfter(3)})

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return errDown }), errDown)
	}
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOpenState)
	assert.False(t, called, "熔断时不应调用下游")
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	cb := NewCircuitBreaker("test-half-open", Config{Timeout: 20 * time.Millisecond, ReadyToTrip: tripAfter(1)})

	_ = cb.Execute(func() error { return errDown })
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenToOpen(t *testing.T) {
	cb := NewCircuitBreaker("test-half-open-fail", Config{Timeout: 20 * time.Millisecond, ReadyToTrip: tripAfter(1)})

	_ = cb.Execute(func() error { return errDown })
	time.Sleep(30 * time.Millisecond)

	_ = cb.Execute(func() error { return errDown })
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_StateChangeCallback(t *testing.T) {
	cb := NewCircuitBreaker("test-callback", Config{Timeout: time.Minute, ReadyToTrip: tripAfter(2)})

	var transitions []string
	cb.SetStateChangeCallback(func(name string, from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	_ = cb.Execute(func() error { return errDown })
	_ = cb.Execute(func() error { return errDown })

	assert.Equal(t, []string{"CLOSED->OPEN"}, transitions)
}

func TestCircuitBreaker_CanceledIsNotFailure(t *testing.T) {
	cb := NewCircuitBreaker("test-canceled", Config{ReadyToTrip: tripAfter(1)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.ExecuteContext(ctx, func(ctx context.Context) error { return ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())
	assert.Zero(t, cb.Counts().TotalFailures)
}

func TestCounts_FailureRate(t *testing.T) {
	c := Counts{}
	assert.Zero(t, c.FailureRate())

	c = Counts{Requests: 4, TotalFailures: 1}
	assert.InDelta(t, 0.25, c.FailureRate(), 1e-9)
}
