package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xiebiao/bookstore-order/pkg/metrics"
)

var errBroker = errors.New("broker unavailable")

func newTestBreaker(t *testing.T, timeout time.Duration) *CircuitBreaker {
	metrics.InitMetrics()
	return New("test-publisher", Config{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             timeout,
		ConsecutiveFailures: 3,
	}, zaptest.NewLogger(t))
}

func TestCircuitBreaker_StaysClosedOnSuccess(t *testing.T) {
	cb := newTestBreaker(t, time.Second)

	for i := 0; i < 10; i++ {
		require.NoError(t, cb.Execute(func() error { return nil }))
	}

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, uint32(10), cb.Counts().TotalSuccesses)
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := newTestBreaker(t, time.Minute)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return errBroker }), errBroker)
	}
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOpenState)
	assert.False(t, called, "熔断时不应调用实际函数")
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	cb := newTestBreaker(t, 50*time.Millisecond)

	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errBroker })
	}
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := newTestBreaker(t, 50*time.Millisecond)

	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errBroker })
	}
	time.Sleep(80 * time.Millisecond)

	_ = cb.Execute(func() error { return errBroker })
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_IsSuccessful(t *testing.T) {
	errIgnored := errors.New("ignored")
	cb := New("custom", Config{
		Timeout:             time.Minute,
		ConsecutiveFailures: 1,
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errIgnored)
		},
	}, nil)

	_ = cb.Execute(func() error { return errIgnored })
	assert.Equal(t, StateClosed, cb.State(), "被判定为成功的错误不触发熔断")

	_ = cb.Execute(func() error { return errBroker })
	assert.Equal(t, StateOpen, cb.State())
}
