package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/ddd/internal/foundation/errors"
	"git.home.luguber.info/inful/ddd/internal/pipeline"
)

type outcome interface {
	eventReason() string
}

func (e RunCompleted) eventReason() string { return e.Reason }
func (e RunAborted) eventReason() string   { return e.Reason }

func TestBus_PublishSubscribe(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsubscribe := Subscribe[RunCompleted](b, 1)
	defer unsubscribe()

	res := &pipeline.Result{RunID: "abc", Success: true}
	require.NoError(t, b.Publish(t.Context(), RunCompleted{Reason: "trigger", Result: res}))

	select {
	case got := <-ch:
		assert.Same(t, res, got.Result)
	case <-time.After(250 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_InterfaceSubscriptionReceivesConcreteEvents(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsubscribe := Subscribe[outcome](b, 2)
	defer unsubscribe()

	require.NoError(t, b.Publish(t.Context(), RunCompleted{Reason: "a"}))
	require.NoError(t, b.Publish(t.Context(), RunAborted{Reason: "b"}))

	assert.Equal(t, "a", (<-ch).eventReason())
	assert.Equal(t, "b", (<-ch).eventReason())
}

func TestBus_PublishBackpressure(t *testing.T) {
	b := NewBus()
	defer b.Close()

	_, unsubscribe := Subscribe[RunStarted](b, 0)
	defer unsubscribe()

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	err := b.Publish(ctx, RunStarted{Reason: "x"})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryRuntime))
}

func TestBus_TryPublishDropsWhenFull(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsubscribe := Subscribe[TriggerReceived](b, 1)
	defer unsubscribe()

	assert.Equal(t, 1, b.TryPublish(TriggerReceived{Path: "first"}))
	assert.Equal(t, 0, b.TryPublish(TriggerReceived{Path: "second"}))
	assert.Equal(t, "first", (<-ch).Path)
	assert.Equal(t, 1, SubscriberCount[TriggerReceived](b))
}

func TestBus_Unsubscribe(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsubscribe := Subscribe[RunStarted](b, 1)
	unsubscribe()
	unsubscribe()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Zero(t, SubscriberCount[RunStarted](b))
	require.NoError(t, b.Publish(t.Context(), RunStarted{}))
}

func TestBus_Close(t *testing.T) {
	b := NewBus()

	ch, _ := Subscribe[RunCompleted](b, 1)
	b.Close()

	_, ok := <-ch
	require.False(t, ok)

	require.Error(t, b.Publish(t.Context(), RunCompleted{}))
	assert.Zero(t, b.TryPublish(RunCompleted{}))

	late, _ := Subscribe[RunCompleted](b, 1)
	_, ok = <-late
	assert.False(t, ok)
}
