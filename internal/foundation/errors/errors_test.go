package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "config.json").
			Build()

		assert.Equal(t, CategoryConfig, err.Category())
		assert.Equal(t, SeverityFatal, err.Severity())
		assert.Equal(t, "invalid configuration", err.Message())

		assert.Equal(t, "config.json", err.Context()["file"])
	})

	t.Run("Error string is stable", func(t *testing.T) {
		err := StageError("command failed").
			WithContext("stage", "build").
			WithContext("exit_code", 2).
			WithCause(errors.New("exit status 2")).
			Build()

		assert.Equal(t, "[stage:error] command failed (exit_code=2, stage=build): exit status 2", err.Error())
	})

	t.Run("Detection through wrapping", func(t *testing.T) {
		err := fmt.Errorf("loading: %w", ConfigError("target missing").Build())

		assert.True(t, HasCategory(err, CategoryConfig))
		assert.Equal(t, CategoryConfig, GetCategory(err))
		assert.Equal(t, CategoryInternal, GetCategory(errors.New("plain")))
	})
}

func TestErrorBuilder(t *testing.T) {
	originalErr := errors.New("disk full")
	err := WrapError(originalErr, CategoryFileSystem, "write log").
		Warning().
		Retryable().
		WithContext("path", "run/build.log").
		Build()

	assert.Equal(t, SeverityWarning, err.Severity())
	assert.Equal(t, RetryBackoff, err.RetryStrategy())
	assert.True(t, err.CanRetry())
	assert.False(t, err.IsFatal())
	assert.ErrorIs(t, err, originalErr)
}

func TestSentinelMatching(t *testing.T) {
	sentinel := NotFoundError("target not defined").Build()
	err := NotFoundError("target not defined").WithContext("target", "dev").Build()

	assert.ErrorIs(t, err, sentinel)
	assert.NotErrorIs(t, err, NotFoundError("other").Build())
}

func TestErrorContextMerge(t *testing.T) {
	a := ErrorContext{"a": 1, "shared": "left"}
	b := ErrorContext{"b": 2, "shared": "right"}

	merged := a.Merge(b)
	assert.Equal(t, ErrorContext{"a": 1, "b": 2, "shared": "right"}, merged)
	assert.Equal(t, "left", a["shared"], "merge must not mutate the receiver")

	var empty ErrorContext
	assert.Equal(t, b, empty.Merge(b))
}

func TestWithContextCopies(t *testing.T) {
	base := LockError("marker write failed").Build()
	derived := base.WithContext("path", "run/ipc.lock")

	assert.NotContains(t, base.Context(), "path")
	assert.Equal(t, "run/ipc.lock", derived.Context()["path"])
}
