package commands

import (
	"encoding/json"
	"fmt"

	"git.home.luguber.info/inful/ddd/internal/config"
	"git.home.luguber.info/inful/ddd/internal/daemon"
	"git.home.luguber.info/inful/ddd/internal/lock"
)

// StatusCmd implements the 'status' command.
type StatusCmd struct {
	JSON bool `help:"Print the status as JSON"`
}

func (s *StatusCmd) Run(g *Global, root *CLI) error {
	layout := config.NewLayout(root.Project)
	st, err := daemon.CurrentStatus(layout, lock.New(layout.LockPath(), 0))
	if err != nil {
		return err
	}
	if s.JSON {
		enc := json.NewEncoder(g.out())
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	p := g.printer()
	if st.Busy {
		since := "unknown"
		if st.BusySince != nil {
			since = st.BusySince.Local().Format("15:04:05")
		}
		p.Step("BUSY since %s", since)
	} else {
		p.Info("IDLE")
	}
	if st.Last == nil {
		p.Info("No runs recorded yet.")
		return nil
	}
	last := st.Last
	outcome := "succeeded"
	if !last.Success {
		outcome = fmt.Sprintf("failed (exit %d)", last.ExitCode)
	}
	p.Plain("Last run %s at %s: %s in %.2fs, noise reduction %.1f%%, ~%d tokens",
		last.RunID, last.StartedAt.Local().Format("2006-01-02 15:04:05"), outcome,
		last.DurationSeconds, last.Metrics.ReductionPct, last.Metrics.EstTokens)
	return nil
}
