package daemon

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/ddd/internal/daemon/events"
	ferrors "git.home.luguber.info/inful/ddd/internal/foundation/errors"
	"git.home.luguber.info/inful/ddd/internal/pipeline"
)

type pipelineFunc func(ctx context.Context) (*pipeline.Result, error)

func (f pipelineFunc) Run(ctx context.Context) (*pipeline.Result, error) { return f(ctx) }

func TestRunner_PublishesCompleted(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	started, _ := events.Subscribe[events.RunStarted](bus, 1)
	completed, _ := events.Subscribe[events.RunCompleted](bus, 1)

	want := &pipeline.Result{RunID: "r1", Success: true}
	r := NewRunner(pipelineFunc(func(context.Context) (*pipeline.Result, error) { return want, nil }), bus, nil, nil)

	got, err := r.Run(t.Context(), "manual")
	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Equal(t, "manual", (<-started).Reason)
	evt := <-completed
	assert.Same(t, want, evt.Result)
}

func TestRunner_PublishesAborted(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	aborted, _ := events.Subscribe[events.RunAborted](bus, 1)

	cfgErr := ferrors.ConfigError("configuration file not found").Build()
	r := NewRunner(pipelineFunc(func(context.Context) (*pipeline.Result, error) { return nil, cfgErr }), bus, nil, nil)

	_, err := r.Run(t.Context(), "trigger")
	require.ErrorIs(t, err, cfgErr)
	evt := <-aborted
	assert.True(t, errors.Is(evt.Err, cfgErr))
}

func TestRunner_RecoversPanic(t *testing.T) {
	r := NewRunner(pipelineFunc(func(context.Context) (*pipeline.Result, error) { panic("boom") }), nil, nil, nil)

	res, err := r.Run(t.Context(), "trigger")
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryInternal))
}

func TestRunner_AbortLogLevelFollowsSeverity(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cfgErr := ferrors.ConfigError("configuration file not found").Build()
	r := NewRunner(pipelineFunc(func(context.Context) (*pipeline.Result, error) { return nil, cfgErr }), nil, nil, logger)
	_, _ = r.Run(t.Context(), "trigger")
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "category=config")

	buf.Reset()
	r = NewRunner(pipelineFunc(func(context.Context) (*pipeline.Result, error) { panic("boom") }), nil, nil, logger)
	_, _ = r.Run(t.Context(), "trigger")
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "category=internal")
}
