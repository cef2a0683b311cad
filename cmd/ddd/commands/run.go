package commands

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/ddd/internal/daemon"
)

// RunCmd implements the 'run' command: one pipeline run through the same
// lock, controller and observers the daemon uses.
type RunCmd struct {
	Quiet bool `short:"q" help:"Do not echo command output"`
}

func (r *RunCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	layout, settings, err := root.project()
	if err != nil {
		return err
	}
	if r.Quiet {
		settings.Quiet = true
	}
	dm, err := daemon.New(layout, settings,
		daemon.WithLogger(slog.Default()),
		daemon.WithPrinter(g.printer()),
		daemon.WithEcho(g.out()),
	)
	if err != nil {
		return err
	}
	res, err := dm.RunOnce(ctx)
	if err != nil {
		return err
	}
	if !res.Success {
		return ExitStatus(res.ExitCode)
	}
	return nil
}
