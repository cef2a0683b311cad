package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"git.home.luguber.info/inful/ddd/internal/config"
	"git.home.luguber.info/inful/ddd/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int `short:"n" help:"Number of runs to show" default:"20"`
}

func (h *HistoryCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	layout := config.NewLayout(root.Project)
	if _, err := os.Stat(layout.HistoryPath()); os.IsNotExist(err) {
		g.printer().Info("No run history at %s", layout.HistoryPath())
		return nil
	}
	store, err := history.NewSQLiteStore(layout.HistoryPath())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.Recent(ctx, h.Limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tRUN\tTARGET\tEXIT\tDURATION\tREDUCTION\tREVISION")
	for _, r := range runs {
		rev := r.Revision
		if len(rev) > 8 {
			rev = rev[:8]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.2fs\t%.1f%%\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.RunID, r.Target,
			r.ExitCode, r.DurationSeconds, r.Metrics.ReductionPct, rev)
	}
	return tw.Flush()
}
