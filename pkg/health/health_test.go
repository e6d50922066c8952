package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCheck struct {
	name      string
	err       error
	sleepTime time.Duration
	calls     atomic.Int32
}

func (m *mockCheck) Name() string {
	return m.name
}

func (m *mockCheck) Check(ctx context.Context) error {
	m.calls.Add(1)
	if m.sleepTime > 0 {
		select {
		case <-time.After(m.sleepTime):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.err
}

func TestNew(t *testing.T) {
	t.Run("default configuration", func(t *testing.T) {
		h := New()
		assert.Equal(t, 5*time.Second, h.timeout)
		assert.Equal(t, 3, h.failureThreshold)
		assert.NotNil(t, h.logger)
	})

	t.Run("options", func(t *testing.T) {
		h := New(WithTimeout(time.Second), WithFailureThreshold(5))
		assert.Equal(t, time.Second, h.timeout)
		assert.Equal(t, 5, h.failureThreshold)
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		h := New(WithTimeout(0), WithFailureThreshold(0))
		assert.Equal(t, 5*time.Second, h.timeout)
		assert.Equal(t, 3, h.failureThreshold)
	})
}

func TestCheckFunc(t *testing.T) {
	expected := errors.New("amqp closed")
	check := NewCheckFunc("events", func(ctx context.Context) error { return expected })

	assert.Equal(t, "events", check.Name())
	assert.Equal(t, expected, check.Check(context.Background()))
}

func TestNoChecksIsHealthy(t *testing.T) {
	status, err := New().CheckLiveness(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.Empty(t, status.Checks)
}

func TestReadinessFailureThreshold(t *testing.T) {
	h := New(WithFailureThreshold(2))
	h.AddReadinessCheck(&mockCheck{name: "events", err: errors.New("down")})

	status, err := h.CheckReadiness(context.Background())
	require.NoError(t, err, "first failure is below threshold")
	assert.True(t, status.Healthy)

	status, err = h.CheckReadiness(context.Background())
	require.Error(t, err)
	assert.False(t, status.Healthy)
	assert.Equal(t, "down", status.Checks[0].Error)
}

func TestFailureCountResetsOnSuccess(t *testing.T) {
	h := New(WithFailureThreshold(2))
	check := &mockCheck{name: "flaky", err: errors.New("blip")}
	h.AddReadinessCheck(check)

	_, _ = h.CheckReadiness(context.Background())
	check.err = nil
	_, _ = h.CheckReadiness(context.Background())
	check.err = errors.New("blip")

	status, err := h.CheckReadiness(context.Background())
	assert.NoError(t, err)
	assert.True(t, status.Healthy)
}

func TestDegradedCheck(t *testing.T) {
	h := New(WithFailureThreshold(1))
	h.AddReadinessCheck(&mockCheck{name: "events"})
	h.AddDegradedCheck(&mockCheck{name: "completion", err: errors.New("breaker open")})

	status, err := h.CheckReadiness(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.True(t, status.Degraded)
}

func TestCheckTimeout(t *testing.T) {
	h := New(WithTimeout(20*time.Millisecond), WithFailureThreshold(1))
	h.AddLivenessCheck(&mockCheck{name: "slow", sleepTime: time.Second})

	start := time.Now()
	status, err := h.CheckLiveness(context.Background())

	assert.Error(t, err)
	assert.False(t, status.Healthy)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestChecksRunConcurrently(t *testing.T) {
	h := New()
	checks := []*mockCheck{
		{name: "a", sleepTime: 100 * time.Millisecond},
		{name: "b", sleepTime: 100 * time.Millisecond},
		{name: "c", sleepTime: 100 * time.Millisecond},
	}
	for _, c := range checks {
		h.AddReadinessCheck(c)
	}

	start := time.Now()
	status, err := h.CheckReadiness(context.Background())

	require.NoError(t, err)
	assert.Len(t, status.Checks, 3)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
	for _, c := range checks {
		assert.Equal(t, int32(1), c.calls.Load())
	}
}
