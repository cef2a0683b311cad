package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/ddd/internal/daemon/events"
	ferrors "git.home.luguber.info/inful/ddd/internal/foundation/errors"
	"git.home.luguber.info/inful/ddd/internal/logfields"
	"git.home.luguber.info/inful/ddd/internal/metrics"
	"git.home.luguber.info/inful/ddd/internal/pipeline"
)

// pipelineRunner is satisfied by *pipeline.Controller.
type pipelineRunner interface {
	Run(ctx context.Context) (*pipeline.Result, error)
}

// Runner executes one pipeline run and announces its outcome on the bus.
type Runner struct {
	pipeline pipelineRunner
	bus      *events.Bus
	recorder metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewRunner wraps a controller. bus may be nil.
func NewRunner(p pipelineRunner, bus *events.Bus, rec metrics.Recorder, logger *slog.Logger) *Runner {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{pipeline: p, bus: bus, recorder: rec, logger: logger, now: time.Now}
}

// Run executes the pipeline. A panic inside the pipeline is converted to an
// internal error so the worker survives it.
func (r *Runner) Run(ctx context.Context, reason string) (res *pipeline.Result, err error) {
	r.publish(ctx, events.RunStarted{Reason: reason, StartedAt: r.now()})
	r.recorder.SetBusy(true)
	defer r.recorder.SetBusy(false)

	func() {
		defer func() {
			if rec := recover(); rec != nil {
				res = nil
				err = ferrors.InternalError("pipeline panicked").
					WithContext("panic", fmt.Sprint(rec)).
					Build()
			}
		}()
		res, err = r.pipeline.Run(ctx)
	}()

	if err != nil {
		level := slog.LevelWarn
		if ce, ok := ferrors.AsClassified(err); !ok || ce.IsFatal() {
			level = slog.LevelError
		}
		r.logger.Log(ctx, level, "Pipeline run aborted",
			slog.String("reason", reason),
			slog.String("category", string(ferrors.GetCategory(err))),
			logfields.Error(err))
		r.publish(ctx, events.RunAborted{Reason: reason, Err: err, At: r.now()})
		return res, err
	}
	r.publish(ctx, events.RunCompleted{Reason: reason, Result: res})
	return res, nil
}

func (r *Runner) publish(ctx context.Context, evt any) {
	if r.bus == nil {
		return
	}
	// Shutdown may already have canceled ctx; observers still get the outcome.
	if err := r.bus.Publish(context.WithoutCancel(ctx), evt); err != nil {
		r.logger.Warn("Failed to publish run event", slog.String("event", fmt.Sprintf("%T", evt)), logfields.Error(err))
	}
}
