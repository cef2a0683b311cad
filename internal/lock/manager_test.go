package lock

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebounce_CooldownWindow(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "ipc.lock"), 2*time.Second)
	t0 := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, m.Debounce(t0))
	assert.False(t, m.Debounce(t0.Add(100*time.Millisecond)))
	assert.False(t, m.Debounce(t0.Add(1999*time.Millisecond)))
	assert.True(t, m.Debounce(t0.Add(2*time.Second)))
	assert.False(t, m.Debounce(t0.Add(3*time.Second)))
}

func TestDebounce_ConcurrentCallersAcceptOnce(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "ipc.lock"), time.Minute)
	now := time.Now()

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Debounce(now) {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), accepted.Load())
}

func TestAcquireRelease(t *testing.T) {
	dir := t.TempDir()
	stamp := time.Date(2025, 3, 4, 5, 6, 7, 8, time.UTC)
	m := New(filepath.Join(dir, "run", "ipc.lock"), time.Second, WithClock(func() time.Time { return stamp }))

	busy, _ := m.Busy()
	assert.False(t, busy)

	require.NoError(t, m.Acquire())
	busy, at := m.Busy()
	assert.True(t, busy)
	assert.True(t, stamp.Equal(at))

	data, err := os.ReadFile(m.Path())
	require.NoError(t, err)
	assert.Equal(t, stamp.Format(time.RFC3339Nano), string(data))

	// Acquire is advisory and may be repeated.
	require.NoError(t, m.Acquire())

	require.NoError(t, m.Release())
	require.NoError(t, m.Release())
	busy, _ = m.Busy()
	assert.False(t, busy)
}

func TestRecoverOnStartup_RemovesStaleMarkers(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ipc.lock"), []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.lock"), []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "build.log"), []byte("keep"), 0o644))

	m := New(filepath.Join(dir, "ipc.lock"), time.Second)
	removed, err := m.RecoverOnStartup()
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	busy, _ := m.Busy()
	assert.False(t, busy)
	assert.FileExists(t, filepath.Join(dir, "build.log"))

	removed, err = m.RecoverOnStartup()
	require.NoError(t, err)
	assert.Empty(t, removed)
}
