package daemon

import (
	"os"
	"time"

	"git.home.luguber.info/inful/ddd/internal/config"
	ferrors "git.home.luguber.info/inful/ddd/internal/foundation/errors"
	"git.home.luguber.info/inful/ddd/internal/lock"
	"git.home.luguber.info/inful/ddd/internal/pipeline"
)

// Status is the externally visible state of a project.
type Status struct {
	Busy      bool             `json:"busy"`
	BusySince *time.Time       `json:"busy_since,omitempty"`
	Last      *pipeline.Result `json:"last,omitempty"`
}

// CurrentStatus reads the lock marker and the last result artifact.
func CurrentStatus(layout config.Layout, lm *lock.Manager) (Status, error) {
	var st Status
	if busy, since := lm.Busy(); busy {
		st.Busy = true
		if !since.IsZero() {
			st.BusySince = &since
		}
	}
	res, err := pipeline.ReadResult(layout.ResultPath())
	switch {
	case err == nil:
		st.Last = res
	case ferrors.HasCategory(err, ferrors.CategoryNotFound):
	default:
		return st, err
	}
	return st, nil
}

// Trigger requests a run by writing the trigger file.
func Trigger(layout config.Layout, now time.Time) error {
	if err := layout.EnsureRunDir(); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create run directory").
			WithContext("path", layout.RunDir()).
			Build()
	}
	if err := os.WriteFile(layout.TriggerPath(), []byte(now.UTC().Format(time.RFC3339Nano)+"\n"), 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write trigger file").
			WithContext("path", layout.TriggerPath()).
			Build()
	}
	return nil
}
