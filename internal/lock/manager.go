// Package lock provides the trigger debounce and the advisory busy marker
// that tells clients a run is in progress.
//
// The marker is a status signal, not a mutex: Acquire never blocks and never
// refuses. Re-entrancy is prevented by Debounce plus the single run worker.
package lock

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	ferrors "git.home.luguber.info/inful/ddd/internal/foundation/errors"
)

// Manager owns one run directory's lock marker.
type Manager struct {
	path     string
	cooldown time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastRun  time.Time
	accepted bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New returns a Manager for the marker at path.
func New(path string, cooldown time.Duration, opts ...Option) *Manager {
	m := &Manager{path: path, cooldown: cooldown, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the marker path.
func (m *Manager) Path() string { return m.path }

// Debounce reports whether a trigger seen at now should start a run. An
// accepted trigger starts a new cooldown window; rejected ones do not extend it.
func (m *Manager) Debounce(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.accepted && now.Sub(m.lastRun) < m.cooldown {
		return false
	}
	m.lastRun = now
	m.accepted = true
	return true
}

// Acquire writes the marker with the current time as content.
func (m *Manager) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return ferrors.LockError("create run directory").WithCause(err).
			WithContext("path", m.path).
			Build()
	}
	stamp := m.now().UTC().Format(time.RFC3339Nano)
	if err := os.WriteFile(m.path, []byte(stamp), 0o644); err != nil {
		return ferrors.LockError("write lock marker").WithCause(err).
			WithContext("path", m.path).
			Build()
	}
	return nil
}

// Release removes the marker. A missing marker is not an error.
func (m *Manager) Release() error {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return ferrors.LockError("remove lock marker").WithCause(err).
			WithContext("path", m.path).
			Build()
	}
	return nil
}

// Busy reports whether the marker exists and the time recorded in it. The
// file's modification time is used when the content cannot be parsed.
func (m *Manager) Busy() (bool, time.Time) {
	info, err := os.Stat(m.path)
	if err != nil {
		return false, time.Time{}
	}
	data, err := os.ReadFile(m.path)
	if err == nil {
		if ts, perr := time.Parse(time.RFC3339Nano, strings.TrimSpace(string(data))); perr == nil {
			return true, ts
		}
	}
	return true, info.ModTime()
}

// RecoverOnStartup deletes every *.lock file next to the marker. Any marker
// present before this process has run anything was left by a crashed one.
func (m *Manager) RecoverOnStartup() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(m.path), "*.lock"))
	if err != nil {
		return nil, ferrors.LockError("scan for stale locks").WithCause(err).Build()
	}
	var removed []string
	var errs []error
	for _, p := range matches {
		if err := os.Remove(p); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		removed = append(removed, p)
	}
	if len(errs) > 0 {
		return removed, ferrors.LockError("remove stale locks").WithCause(errors.Join(errs...)).Build()
	}
	return removed, nil
}
