// Package pipeline sequences the build and verify stages of a target and
// writes the run's logs and result artifacts.
package pipeline

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/ddd/internal/config"
	"git.home.luguber.info/inful/ddd/internal/console"
	"git.home.luguber.info/inful/ddd/internal/filter"
	"git.home.luguber.info/inful/ddd/internal/git"
	"git.home.luguber.info/inful/ddd/internal/lock"
	"git.home.luguber.info/inful/ddd/internal/logfields"
	"git.home.luguber.info/inful/ddd/internal/stage"
)

// Stage names.
const (
	StageBuild  = "build"
	StageVerify = "verify"
)

// Controller runs one pipeline at a time for a project. It is not safe for
// concurrent Run calls; callers serialize through a single worker.
type Controller struct {
	layout       config.Layout
	target       string
	lock         *lock.Manager
	loader       *filter.Loader
	printer      *console.Printer
	echo         io.Writer
	revision     func(string) string
	now          func() time.Time
	lineBuffered bool
	logger       *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithTarget overrides the target name (default "dev").
func WithTarget(name string) Option { return func(c *Controller) { c.target = name } }

// WithEcho sets where live command output is mirrored. Nil silences it.
func WithEcho(w io.Writer) Option { return func(c *Controller) { c.echo = w } }

// WithPrinter sets the status line printer.
func WithPrinter(p *console.Printer) Option { return func(c *Controller) { c.printer = p } }

// WithRevision replaces the source revision lookup.
func WithRevision(fn func(root string) string) Option {
	return func(c *Controller) { c.revision = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

// WithLineBuffering toggles the stdbuf wrapper for stage commands.
func WithLineBuffering(on bool) Option { return func(c *Controller) { c.lineBuffered = on } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(c *Controller) { c.logger = l } }

func NewController(layout config.Layout, lm *lock.Manager, loader *filter.Loader, opts ...Option) *Controller {
	c := &Controller{
		layout:       layout,
		target:       config.DefaultTarget,
		lock:         lm,
		loader:       loader,
		echo:         io.Discard,
		revision:     git.Revision,
		now:          time.Now,
		lineBuffered: true,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.echo == nil {
		c.echo = io.Discard
	}
	if c.printer == nil {
		c.printer = console.New(io.Discard)
	}
	return c
}

// Run loads the configuration, marks the project busy and executes the
// target. Configuration problems are returned before any lock is taken.
// Stage failures are reported in the Result, not as an error.
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	cfg, err := config.Load(c.layout.ConfigPath())
	if err != nil {
		c.printer.Warning("Config error: %v", err)
		return nil, err
	}
	target, err := cfg.Target(c.target)
	if err != nil {
		c.printer.Warning("%v", err)
		return nil, err
	}
	if err := c.layout.EnsureRunDir(); err != nil {
		return nil, err
	}

	if err := c.lock.Acquire(); err != nil {
		return nil, err
	}
	defer func() {
		if err := c.lock.Release(); err != nil {
			c.logger.Error("Failed to release lock", logfields.Path(c.lock.Path()), logfields.Error(err))
		}
	}()

	return c.execute(ctx, target)
}

func (c *Controller) execute(ctx context.Context, target *config.Target) (*Result, error) {
	started := c.now()
	res := &Result{
		RunID:     uuid.NewString(),
		Target:    c.target,
		StartedAt: started.UTC(),
		Revision:  c.revision(c.layout.Root),
		Stages:    []StageOutcome{},
	}
	log := c.logger.With(logfields.RunID(res.RunID), logfields.Target(c.target))

	registry, problems, err := c.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range problems {
		c.printer.Warning("Filter plugin %s not loaded: %v", p.Path, p.Err)
	}

	logs, err := openRunLogs(c.layout.RawLogPath(), c.layout.CleanLogPath(),
		runHeader(res.RunID, c.target, res.Revision, started))
	if err != nil {
		return nil, err
	}
	defer func() { _ = logs.Close() }()

	exec := stage.NewExecutor(
		filter.NewChain(registry, log),
		stage.Sinks{Console: c.echo, Raw: logs.raw, Clean: logs.clean},
		stage.WithDir(c.layout.Root),
		stage.WithLineBuffering(c.lineBuffered),
		stage.WithLogger(log),
	)

	sent := newSentinel(c.layout.Root, target.SentinelFile)
	if err := sent.clear(); err != nil {
		log.Warn("Failed to clear sentinel file", logfields.Path(target.SentinelFile), logfields.Error(err))
	}

	var (
		failed   *StageOutcome
		rawSum   int
		cleanSum int
	)

	if target.Build.HasCommand() {
		c.printer.Step("Executing build: %s", target.Build.Cmd)
	} else {
		c.printer.Info("No build command defined.")
	}
	build := exec.Run(ctx, StageBuild, target.Build)
	buildOut := outcomeFrom(build)
	if !buildOut.Success && sent.present() {
		buildOut.Success = true
		buildOut.Overridden = true
		c.printer.Warning("Build exited %d but %s was produced; treating as success", build.ExitCode, target.SentinelFile)
		if err := sent.clear(); err != nil {
			log.Warn("Failed to remove sentinel file", logfields.Path(target.SentinelFile), logfields.Error(err))
		}
	}
	if build.Ran {
		res.Stages = append(res.Stages, buildOut)
		rawSum += buildOut.RawBytes
		cleanSum += buildOut.CleanBytes
	}

	if !buildOut.Success {
		failed = &buildOut
		c.printer.Failure("Build failed (exit %d).", buildOut.ExitCode)
	} else if target.Verify.HasCommand() {
		c.printer.Step("Verifying: %s", target.Verify.Cmd)
		verify := exec.Run(ctx, StageVerify, target.Verify)
		verifyOut := outcomeFrom(verify)
		res.Stages = append(res.Stages, verifyOut)
		rawSum += verifyOut.RawBytes
		cleanSum += verifyOut.CleanBytes
		if !verifyOut.Success {
			failed = &verifyOut
			c.printer.Failure("Verify failed (exit %d).", verifyOut.ExitCode)
		}
	} else {
		c.printer.Info("No verify stage defined.")
	}

	finished := c.now()
	elapsed := finished.Sub(started)
	res.FinishedAt = finished.UTC()
	res.DurationSeconds = roundSeconds(elapsed)
	res.Metrics = ComputeMetrics(rawSum, cleanSum)
	res.Success = failed == nil
	if failed != nil {
		res.ExitCode = failed.ExitCode
		if res.ExitCode <= 0 {
			res.ExitCode = 1
		}
	}

	if _, err := io.WriteString(logs.clean, StatsFooter(elapsed, res.Metrics)); err != nil {
		log.Warn("Failed to write stats footer", logfields.Error(err))
	}
	if err := logs.Close(); err != nil {
		log.Warn("Failed to close run logs", logfields.Error(err))
	}
	if err := WriteArtifacts(c.layout.ResultPath(), c.layout.ExitPath(), res); err != nil {
		return res, err
	}

	if res.Success {
		c.printer.Step("Done in %.2fs, noise reduction %.1f%%, ~%d tokens.",
			elapsed.Seconds(), res.Metrics.ReductionPct, res.Metrics.EstTokens)
	}
	log.Info("Pipeline finished",
		slog.Bool("success", res.Success),
		logfields.ExitCode(res.ExitCode),
		logfields.Duration(elapsed))
	return res, nil
}
