package commands

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"git.home.luguber.info/inful/ddd/internal/filter"
)

// FiltersCmd implements the 'filters' command.
type FiltersCmd struct{}

func (f *FiltersCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	layout, settings, err := root.project()
	if err != nil {
		return err
	}
	reg, problems, err := filter.NewLoader(settings.UserFiltersDir, layout.FiltersDir(), slog.Default()).Load(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTIER\tORIGIN\tDESCRIPTION")
	for _, r := range reg.List() {
		origin := r.Origin
		if origin == "" {
			origin = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, r.Tier, origin, r.Description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, p := range problems {
		g.printer().Warning("%s (%s): %v", p.Path, p.Tier, p.Err)
	}
	return nil
}
