package filter

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ferrors "git.home.luguber.info/inful/ddd/internal/foundation/errors"
	"git.home.luguber.info/inful/ddd/internal/logfields"
)

// Problem records a plugin file that could not be loaded.
type Problem struct {
	Tier Tier
	Path string
	Err  error
}

// Loader builds a fresh Registry from the built-ins plus the user and
// project plugin directories. Either directory may be empty or missing.
type Loader struct {
	userDir    string
	projectDir string
	logger     *slog.Logger
}

func NewLoader(userDir, projectDir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{userDir: userDir, projectDir: projectDir, logger: logger}
}

// Load returns a new registry. Broken plugin files are logged, reported in the
// returned problems and otherwise ignored; only context cancellation fails the
// load.
func (l *Loader) Load(ctx context.Context) (*Registry, []Problem, error) {
	reg := NewBuiltinRegistry()
	var problems []Problem

	for _, tier := range []struct {
		tier Tier
		dir  string
	}{
		{TierUser, l.userDir},
		{TierProject, l.projectDir},
	} {
		if err := ctx.Err(); err != nil {
			return nil, problems, err
		}
		problems = append(problems, l.loadDir(ctx, reg, tier.tier, tier.dir)...)
	}
	return reg, problems, nil
}

func (l *Loader) loadDir(ctx context.Context, reg *Registry, tier Tier, dir string) []Problem {
	if strings.TrimSpace(dir) == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		l.logger.Warn("Cannot read filter directory", logfields.Tier(tier.String()), logfields.Path(dir), logfields.Error(err))
		return []Problem{{Tier: tier, Path: dir, Err: err}}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var problems []Problem
	for _, entry := range entries {
		if ctx.Err() != nil {
			return problems
		}
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)

		var regs []Registration
		switch strings.ToLower(filepath.Ext(name)) {
		case ".go":
			regs, err = loadPluginFile(path, tier, loadGoPlugin)
		case ".yaml", ".yml":
			regs, err = loadPluginFile(path, tier, loadYAMLPlugin)
		default:
			continue
		}
		if err != nil {
			l.logger.Warn("Failed to load filter plugin", logfields.Tier(tier.String()), logfields.Path(path), logfields.Error(err))
			problems = append(problems, Problem{Tier: tier, Path: path, Err: err})
			continue
		}
		for _, r := range regs {
			if prev, ok := reg.Lookup(r.Name); ok {
				l.logger.Debug("Filter overridden",
					logfields.Filter(r.Name),
					slog.String("previous", prev.Origin),
					logfields.Path(path))
			}
			if err := reg.Register(r); err != nil {
				problems = append(problems, Problem{Tier: tier, Path: path, Err: err})
			}
		}
	}
	return problems
}

// loadPluginFile isolates one file: a panic inside the interpreter or parser
// becomes an error for that file only.
func loadPluginFile(path string, tier Tier, load func(string, Tier) ([]Registration, error)) (regs []Registration, err error) {
	defer func() {
		if r := recover(); r != nil {
			regs = nil
			err = ferrors.FilterError("plugin load panicked").
				WithContext("path", path).
				WithContext("panic", r).
				Build()
		}
	}()
	return load(path, tier)
}
