package commands

import (
	"context"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/ddd/internal/daemon"
)

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct{}

func (d *DaemonCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	layout, settings, err := root.project()
	if err != nil {
		return err
	}
	slog.Info("Starting daemon", slog.String("project", layout.Root), slog.Duration("debounce", settings.Debounce))

	dm, err := daemon.New(layout, settings,
		daemon.WithLogger(slog.Default()),
		daemon.WithPrinter(g.printer()),
		daemon.WithEcho(os.Stdout),
	)
	if err != nil {
		return err
	}
	if err := dm.Run(ctx); err != nil {
		return err
	}
	slog.Info("Daemon stopped")
	return nil
}
