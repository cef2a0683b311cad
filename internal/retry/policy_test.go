package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/ddd/internal/foundation/errors"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, Linear, p.Mode)
	assert.Equal(t, time.Second, p.Initial)
	assert.Equal(t, 30*time.Second, p.Max)
	assert.Equal(t, 2, p.MaxRetries)
}

func TestNewPolicy_ClampsAndIgnoresUnknownMode(t *testing.T) {
	p := NewPolicy(Fixed, 5*time.Second, 2*time.Second, 5)
	assert.Equal(t, 2*time.Second, p.Initial)
	assert.Equal(t, Fixed, p.Mode)
	assert.Equal(t, 5, p.MaxRetries)

	assert.Equal(t, Linear, NewPolicy("wobbly", 0, 0, -1).Mode)
}

func TestDelayModes(t *testing.T) {
	ms := time.Millisecond
	tests := []struct {
		mode Mode
		want []time.Duration
	}{
		{Fixed, []time.Duration{100 * ms, 100 * ms, 100 * ms, 100 * ms}},
		{Linear, []time.Duration{100 * ms, 200 * ms, 250 * ms, 250 * ms}},
		{Exponential, []time.Duration{100 * ms, 200 * ms, 250 * ms, 250 * ms}},
	}
	for _, tt := range tests {
		p := NewPolicy(tt.mode, 100*ms, 250*ms, 5)
		for i, want := range tt.want {
			assert.Equal(t, want, p.Delay(i+1), "%s attempt %d", tt.mode, i+1)
		}
		assert.Zero(t, p.Delay(0))
	}
	assert.Equal(t, 250*ms, NewPolicy(Exponential, 100*ms, 250*ms, 5).Delay(80))
}

func TestDo(t *testing.T) {
	p := NewPolicy(Fixed, time.Millisecond, time.Millisecond, 2)

	calls := 0
	err := p.Do(t.Context(), nil, func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	permanent := errors.New("permanent")
	err = p.Do(t.Context(), func(error) bool { return false }, func() error { calls++; return permanent })
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDo_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	p := NewPolicy(Fixed, time.Hour, time.Hour, 3)
	err := p.Do(ctx, nil, func() error { return errors.New("down") })
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_FollowsErrorClassification(t *testing.T) {
	p := NewPolicy(Fixed, time.Hour, time.Hour, 3)

	calls := 0
	err := p.Do(t.Context(), nil, func() error {
		calls++
		return ferrors.ConfigError("bad settings").Build()
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "user-action errors are not retried")

	calls = 0
	err = p.Do(t.Context(), nil, func() error {
		calls++
		if calls < 3 {
			return ferrors.NewError(ferrors.CategoryNotify, "busy").WithRetry(ferrors.RetryImmediate).Build()
		}
		return nil
	})
	require.NoError(t, err, "immediate retries must not wait for the hour-long delay")
	assert.Equal(t, 3, calls)

	assert.True(t, Classified(errors.New("plain")))
	assert.True(t, Classified(ferrors.NotifyError("down").Build()))
	assert.False(t, Classified(ferrors.InternalError("bug").Build()))
}
