// Package commands holds the kong command tree of the ddd CLI.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/ddd/internal/config"
	"git.home.luguber.info/inful/ddd/internal/console"
)

// Global is bound into every command's Run.
type Global struct {
	Printer *console.Printer
	Out     io.Writer
}

// CLI definition and global flags.
type CLI struct {
	Project string           `short:"p" help:"Project root containing .ddd/" default:"." type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Daemon  DaemonCmd  `cmd:"" help:"Watch for build requests and run the pipeline"`
	Run     RunCmd     `cmd:"" help:"Run the pipeline once in the foreground"`
	Trigger TriggerCmd `cmd:"" help:"Request a run from a running daemon"`
	Status  StatusCmd  `cmd:"" help:"Show whether a run is in progress and the last result"`
	Filters FiltersCmd `cmd:"" help:"List the resolved filter registry"`
	History HistoryCmd `cmd:"" help:"Show recent runs"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// project resolves the layout and daemon settings for the selected root.
func (c *CLI) project() (config.Layout, config.Settings, error) {
	layout := config.NewLayout(c.Project)
	settings, err := config.LoadSettings(layout)
	if err != nil {
		return layout, settings, err
	}
	return layout, settings, nil
}

// ExitStatus makes the process exit with a specific code without printing
// an error.
type ExitStatus int

func (e ExitStatus) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return io.Discard
	}
	return g.Out
}

func (g *Global) printer() *console.Printer {
	if g == nil || g.Printer == nil {
		return console.New(io.Discard)
	}
	return g.Printer
}
