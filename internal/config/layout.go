package config

import (
	"os"
	"path/filepath"
)

// Fixed names inside the project configuration directory.
const (
	DirName        = ".ddd"
	ConfigFileName = "config.json"
	EnvFileName    = ".env"
	HistoryDBName  = "history.db"
	FiltersDirName = "filters"
	RunDirName     = "run"

	TriggerFileName = "build.request"
	LockFileName    = "ipc.lock"
	CleanLogName    = "build.log"
	RawLogName      = "last_build.raw.log"
	ExitFileName    = "build.exit"
	ResultFileName  = "job_result.json"
)

// DefaultTarget is the only target the daemon runs.
const DefaultTarget = "dev"

// Layout resolves every path the daemon touches from a single project root.
type Layout struct {
	Root string
}

// NewLayout returns a Layout for root, made absolute when possible.
func NewLayout(root string) Layout {
	if root == "" {
		root = "."
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return Layout{Root: root}
}

func (l Layout) Dir() string          { return filepath.Join(l.Root, DirName) }
func (l Layout) ConfigPath() string   { return filepath.Join(l.Dir(), ConfigFileName) }
func (l Layout) EnvPath() string      { return filepath.Join(l.Dir(), EnvFileName) }
func (l Layout) HistoryPath() string  { return filepath.Join(l.Dir(), HistoryDBName) }
func (l Layout) FiltersDir() string   { return filepath.Join(l.Dir(), FiltersDirName) }
func (l Layout) RunDir() string       { return filepath.Join(l.Dir(), RunDirName) }
func (l Layout) TriggerPath() string  { return filepath.Join(l.RunDir(), TriggerFileName) }
func (l Layout) LockPath() string     { return filepath.Join(l.RunDir(), LockFileName) }
func (l Layout) CleanLogPath() string { return filepath.Join(l.RunDir(), CleanLogName) }
func (l Layout) RawLogPath() string   { return filepath.Join(l.RunDir(), RawLogName) }
func (l Layout) ExitPath() string     { return filepath.Join(l.RunDir(), ExitFileName) }
func (l Layout) ResultPath() string   { return filepath.Join(l.RunDir(), ResultFileName) }

// EnsureRunDir creates the run directory (and .ddd) if missing.
func (l Layout) EnsureRunDir() error {
	return os.MkdirAll(l.RunDir(), 0o755)
}

// UserFiltersDir is the per-user filter tier, ~/.config/ddd/filters.
// It returns "" when no home directory can be determined.
func UserFiltersDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".config", "ddd", FiltersDirName)
}
