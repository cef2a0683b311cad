package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/ddd/internal/config"
	"git.home.luguber.info/inful/ddd/internal/daemon/events"
	"git.home.luguber.info/inful/ddd/internal/history"
	"git.home.luguber.info/inful/ddd/internal/pipeline"
)

func testProject(t *testing.T, cfg string) (config.Layout, config.Settings) {
	t.Helper()
	layout := config.NewLayout(t.TempDir())
	require.NoError(t, layout.EnsureRunDir())
	require.NoError(t, os.WriteFile(layout.ConfigPath(), []byte(cfg), 0o644))

	settings := config.DefaultSettings()
	settings.Debounce = 0
	settings.UserFiltersDir = ""
	return layout, settings
}

func testOptions() []Option {
	return []Option{WithControllerOptions(
		pipeline.WithLineBuffering(false),
		pipeline.WithRevision(func(string) string { return "" }),
	)}
}

func TestDaemon_RunOnceRecordsHistory(t *testing.T) {
	layout, settings := testProject(t, `{"targets":{"dev":{"build":{"cmd":"echo hello"}}}}`)

	d, err := New(layout, settings, testOptions()...)
	require.NoError(t, err)
	store := d.History()
	require.NotNil(t, store)

	res, err := d.RunOnce(t.Context())
	require.NoError(t, err)
	assert.True(t, res.Success)

	reopened, err := historyFor(t, layout)
	require.NoError(t, err)
	runs, err := reopened.Recent(t.Context(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, res.RunID, runs[0].RunID)
}

func TestDaemon_RunOnceConfigError(t *testing.T) {
	layout, settings := testProject(t, `{"targets":{"prod":{"build":{"cmd":"true"}}}}`)
	settings.HistoryEnabled = false

	d, err := New(layout, settings, testOptions()...)
	require.NoError(t, err)
	_, err = d.RunOnce(t.Context())
	require.Error(t, err)
	assert.NoFileExists(t, layout.LockPath())
	assert.NoFileExists(t, layout.ResultPath())
}

func TestDaemon_TriggerRunsPipeline(t *testing.T) {
	layout, settings := testProject(t, `{"targets":{"dev":{"build":{"cmd":"echo built"}}}}`)
	settings.HistoryEnabled = false
	require.NoError(t, os.WriteFile(filepath.Join(layout.RunDir(), "stale.lock"), nil, 0o644))

	d, err := New(layout, settings, testOptions()...)
	require.NoError(t, err)
	completed, _ := events.Subscribe[events.RunCompleted](d.Bus(), 16)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(layout.RunDir(), "stale.lock"))
		return os.IsNotExist(err)
	}, 5*time.Second, 10*time.Millisecond)

	// The watcher may not be registered yet; keep poking until a run lands.
	var evt events.RunCompleted
	require.Eventually(t, func() bool {
		if err := Trigger(layout, time.Now()); err != nil {
			return false
		}
		select {
		case evt = <-completed:
			return true
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 10*time.Second, 50*time.Millisecond)

	require.NotNil(t, evt.Result)
	assert.True(t, evt.Result.Success)
	log, err := os.ReadFile(layout.CleanLogPath())
	require.NoError(t, err)
	assert.Contains(t, string(log), "built")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not stop")
	}
	assert.NoFileExists(t, layout.LockPath())
}

func TestStatusAndTrigger(t *testing.T) {
	layout := config.NewLayout(filepath.Join(t.TempDir(), "proj"))
	require.NoError(t, Trigger(layout, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)))
	data, err := os.ReadFile(layout.TriggerPath())
	require.NoError(t, err)
	assert.Equal(t, "2026-05-01T00:00:00Z\n", string(data))
}

func historyFor(t *testing.T, layout config.Layout) (*history.SQLiteStore, error) {
	t.Helper()
	store, err := history.NewSQLiteStore(layout.HistoryPath())
	if err == nil {
		t.Cleanup(func() { _ = store.Close() })
	}
	return store, err
}
