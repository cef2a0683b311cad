package stage

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/ddd/internal/config"
	"git.home.luguber.info/inful/ddd/internal/filter"
)

func newTestExecutor(t *testing.T, reg *filter.Registry) (*Executor, *bytes.Buffer, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var console, raw, clean bytes.Buffer
	if reg == nil {
		reg = filter.NewBuiltinRegistry()
	}
	e := NewExecutor(filter.NewChain(reg, nil), Sinks{Console: &console, Raw: &raw, Clean: &clean}, WithDir(t.TempDir()))
	return e, &console, &raw, &clean
}

func TestRun_EmptyCommandIsNoopSuccess(t *testing.T) {
	e, console, raw, clean := newTestExecutor(t, nil)

	res := e.Run(t.Context(), "verify", &config.StageSpec{})
	assert.True(t, res.Success)
	assert.False(t, res.Ran)
	assert.Zero(t, res.RawBytes)
	assert.Empty(t, console.String())
	assert.Empty(t, raw.String())
	assert.Empty(t, clean.String())

	res = e.Run(t.Context(), "verify", nil)
	assert.True(t, res.Success)
}

func TestRun_MergesStderrInEmissionOrder(t *testing.T) {
	e, console, raw, clean := newTestExecutor(t, nil)

	cmd := "echo one; echo two >&2; echo three; printf '\\033[31mred\\033[0m\\n' >&2"
	res := e.Run(t.Context(), "build", &config.StageSpec{Cmd: cmd, Filters: []string{"raw"}})
	require.True(t, res.Success)
	assert.Equal(t, 0, res.ExitCode)

	wantRaw := "one\ntwo\nthree\n\x1b[31mred\x1b[0m\n"
	assert.Equal(t, wantRaw, console.String())
	assert.Equal(t, Header("build")+wantRaw, raw.String())
	assert.Equal(t, len(wantRaw), res.RawBytes)

	assert.Equal(t, "=== [BUILD] ===\none\ntwo\nthree\nred\n", clean.String())
	assert.Equal(t, len("one\ntwo\nthree\nred\n"), res.CleanBytes)
}

func TestRun_NonZeroExitIsFailure(t *testing.T) {
	e, _, _, clean := newTestExecutor(t, nil)

	res := e.Run(t.Context(), "build", &config.StageSpec{Cmd: "echo 'FAILING' && exit 3"})
	assert.False(t, res.Success)
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, clean.String(), "FAILING")
}

func TestRun_FilterOutputNeverChangesSuccess(t *testing.T) {
	e, _, _, clean := newTestExecutor(t, nil)

	res := e.Run(t.Context(), "build", &config.StageSpec{
		Cmd:     "echo 'main.c:1:1: error: nope'",
		Filters: []string{filter.DiagnosticsName},
	})
	assert.True(t, res.Success)
	assert.Contains(t, clean.String(), `"type": "error"`)
}

func TestRun_UnknownAndPanickingFiltersAreSkipped(t *testing.T) {
	reg := filter.NewBuiltinRegistry()
	require.NoError(t, reg.Register(filter.Registration{Name: "explode", Factory: func(map[string]any) (filter.Filter, error) {
		return filter.Func(func(string) (string, error) { panic("bad plugin") }), nil
	}}))
	e, _, _, clean := newTestExecutor(t, reg)

	res := e.Run(t.Context(), "build", &config.StageSpec{
		Cmd:     "echo kept",
		Filters: []string{"nope", "explode"},
	})
	assert.True(t, res.Success)
	assert.Equal(t, []string{"nope", "explode"}, res.SkippedFilters)
	assert.Equal(t, "=== [BUILD] ===\nkept\n", clean.String())
}

func TestRun_LongLinesAreNotSplit(t *testing.T) {
	e, _, raw, _ := newTestExecutor(t, nil)

	res := e.Run(t.Context(), "build", &config.StageSpec{Cmd: "head -c 200000 /dev/zero | tr '\\0' 'x'; echo"})
	require.True(t, res.Success)
	body := strings.TrimPrefix(raw.String(), Header("build"))
	assert.Equal(t, strings.Repeat("x", 200000)+"\n", body)
}

func TestRun_FilterSeesStageOptions(t *testing.T) {
	e, _, _, clean := newTestExecutor(t, nil)

	res := e.Run(t.Context(), "build", &config.StageSpec{
		Cmd:     "echo '/src/a.c:1: warning: w'; echo 'make[2]: Leaving directory'",
		Filters: []string{filter.MakeNoiseName},
		Options: map[string]any{"path_strip": "/src/"},
	})
	require.True(t, res.Success)
	assert.Equal(t, "=== [BUILD] ===\na.c:1: warning: w\nmake[2]: Leaving directory\n", clean.String())
}

func TestRun_CancelKillsGrandchildren(t *testing.T) {
	e, _, _, _ := newTestExecutor(t, nil)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	done := make(chan Result, 1)
	go func() {
		done <- e.Run(ctx, "build", &config.StageSpec{Cmd: "sleep 5; echo hi"})
	}()
	time.Sleep(300 * time.Millisecond)
	cancel()

	select {
	case res := <-done:
		assert.False(t, res.Success)
		assert.Zero(t, res.RawBytes)
	case <-time.After(3 * time.Second):
		t.Fatal("Run still blocked after cancellation")
	}
}
