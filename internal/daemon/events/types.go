package events

import (
	"time"

	"git.home.luguber.info/inful/ddd/internal/pipeline"
)

// TriggerReceived is emitted for every trigger file event, accepted or not.
type TriggerReceived struct {
	Path      string
	At        time.Time
	Accepted  bool
	Coalesced bool
}

// RunStarted is emitted when the worker begins a pipeline run.
type RunStarted struct {
	Reason    string
	StartedAt time.Time
}

// RunCompleted carries the result of a pipeline run that reached the stages,
// successful or not.
type RunCompleted struct {
	Reason string
	Result *pipeline.Result
}

// RunAborted is emitted when a run stopped before producing a result, for
// example on a configuration error.
type RunAborted struct {
	Reason string
	Err    error
	At     time.Time
}
