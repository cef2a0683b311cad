// Package stage runs one configured command, tees its merged output to the
// console and the raw log in emission order, and writes the filtered result
// to the clean log.
package stage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"git.home.luguber.info/inful/ddd/internal/config"
	"git.home.luguber.info/inful/ddd/internal/filter"
	ferrors "git.home.luguber.info/inful/ddd/internal/foundation/errors"
	"git.home.luguber.info/inful/ddd/internal/logfields"
)

// StartFailureExitCode is reported when the command could not be started.
const StartFailureExitCode = -1

// Result describes one executed stage.
type Result struct {
	Name           string
	Ran            bool
	Success        bool
	ExitCode       int
	RawBytes       int
	CleanBytes     int
	Duration       time.Duration
	AppliedFilters []string
	SkippedFilters []string
	Err            error
}

// Sinks are the destinations for stage output. Nil writers discard.
type Sinks struct {
	Console io.Writer
	Raw     io.Writer
	Clean   io.Writer
}

// Executor runs stages for a single pipeline run.
type Executor struct {
	chain        *filter.Chain
	sinks        Sinks
	dir          string
	lineBuffered bool
	logger       *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithDir sets the working directory of spawned commands.
func WithDir(dir string) Option { return func(e *Executor) { e.dir = dir } }

// WithLineBuffering toggles the stdbuf wrapper (on by default).
func WithLineBuffering(on bool) Option { return func(e *Executor) { e.lineBuffered = on } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(e *Executor) { e.logger = l } }

func NewExecutor(chain *filter.Chain, sinks Sinks, opts ...Option) *Executor {
	if sinks.Console == nil {
		sinks.Console = io.Discard
	}
	if sinks.Raw == nil {
		sinks.Raw = io.Discard
	}
	if sinks.Clean == nil {
		sinks.Clean = io.Discard
	}
	e := &Executor{chain: chain, sinks: sinks, lineBuffered: true, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if e.chain == nil {
		e.chain = filter.NewChain(nil, e.logger)
	}
	return e
}

// Run executes spec. A stage without a command succeeds without running
// anything. Success is exactly a zero exit status; filters never change it.
func (e *Executor) Run(ctx context.Context, name string, spec *config.StageSpec) Result {
	res := Result{Name: name}
	if !spec.HasCommand() {
		res.Success = true
		return res
	}
	res.Ran = true
	start := time.Now()
	log := e.logger.With(logfields.Stage(name))
	_, _ = io.WriteString(e.sinks.Raw, Header(name))

	raw, exitCode, err := e.capture(ctx, spec.Cmd)
	res.Duration = time.Since(start)
	res.ExitCode = exitCode
	res.Success = err == nil && exitCode == 0
	res.RawBytes = len(raw)
	if err != nil {
		res.Err = err
		log.Error("Stage command failed to start", logfields.Error(err))
	}

	chained := e.chain.Apply(spec.FilterChain(), spec.OptionsOrEmpty(), raw)
	res.AppliedFilters = chained.Applied
	for _, s := range chained.Skipped {
		res.SkippedFilters = append(res.SkippedFilters, s.Name)
	}
	res.CleanBytes = len(chained.Text)

	if err := writeSection(e.sinks.Clean, name, chained.Text); err != nil {
		log.Warn("Failed to write clean log", logfields.Error(err))
	}

	log.Info("Stage finished",
		logfields.ExitCode(res.ExitCode),
		logfields.Duration(res.Duration),
		slog.Int("raw_bytes", res.RawBytes),
		slog.Int("clean_bytes", res.CleanBytes))
	return res
}

// capture runs command with stderr merged into stdout through one pipe and
// copies every line, in order, to the console, the raw log and the returned
// buffer.
func (e *Executor) capture(ctx context.Context, command string) (string, int, error) {
	argv := shellArgv(command, e.lineBuffered)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = e.dir
	startInGroup(cmd)

	pr, pw, err := os.Pipe()
	if err != nil {
		return "", StartFailureExitCode, ferrors.StageError("create output pipe").WithCause(err).Build()
	}
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		_ = pr.Close()
		return "", StartFailureExitCode, ferrors.StageError("start command").
			WithCause(err).
			WithContext("command", command).
			Build()
	}
	// The child holds its own copy; ours must go so EOF arrives when it exits.
	_ = pw.Close()

	var buf strings.Builder
	reader := bufio.NewReader(pr)
	for {
		line, rerr := reader.ReadString('\n')
		if line != "" {
			e.tee(line)
			buf.WriteString(line)
		}
		if rerr != nil {
			break
		}
	}
	_ = pr.Close()

	err = cmd.Wait()
	if err == nil {
		return buf.String(), 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code == 0 {
			code = 1
		}
		return buf.String(), code, nil
	}
	return buf.String(), StartFailureExitCode, ferrors.StageError("wait for command").
		WithCause(err).
		WithContext("command", command).
		Build()
}

func (e *Executor) tee(line string) {
	_, _ = io.WriteString(e.sinks.Console, line)
	_, _ = io.WriteString(e.sinks.Raw, line)
}

// Header returns the clean-log header for a stage.
func Header(name string) string {
	return fmt.Sprintf("=== [%s] ===\n", strings.ToUpper(name))
}

func writeSection(w io.Writer, name, text string) error {
	if _, err := io.WriteString(w, Header(name)); err != nil {
		return err
	}
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err := io.WriteString(w, text)
	return err
}
