package commands

import (
	"time"

	"git.home.luguber.info/inful/ddd/internal/config"
	"git.home.luguber.info/inful/ddd/internal/daemon"
)

// TriggerCmd implements the 'trigger' command.
type TriggerCmd struct{}

func (t *TriggerCmd) Run(g *Global, root *CLI) error {
	layout := config.NewLayout(root.Project)
	if err := daemon.Trigger(layout, time.Now()); err != nil {
		return err
	}
	g.printer().Signal("Build requested: %s", layout.TriggerPath())
	return nil
}
