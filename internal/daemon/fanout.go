package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/ddd/internal/daemon/events"
	ferrors "git.home.luguber.info/inful/ddd/internal/foundation/errors"
	"git.home.luguber.info/inful/ddd/internal/history"
	"git.home.luguber.info/inful/ddd/internal/logfields"
	"git.home.luguber.info/inful/ddd/internal/metrics"
	"git.home.luguber.info/inful/ddd/internal/notify"
	"git.home.luguber.info/inful/ddd/internal/pipeline"
)

const observerBuffer = 8

// Fanout runs observers of run events, each on its own goroutine. Observers
// drain their subscription until the bus is closed, so closing the bus and
// then calling Wait delivers every published event.
type Fanout struct {
	bus    *events.Bus
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewFanout(bus *events.Bus, logger *slog.Logger) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{bus: bus, logger: logger}
}

func observe[T any](f *Fanout, handle func(T)) {
	ch, _ := events.Subscribe[T](f.bus, observerBuffer)
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		for evt := range ch {
			handle(evt)
		}
	}()
}

// Wait blocks until every observer has drained its subscription.
func (f *Fanout) Wait() { f.wg.Wait() }

// AttachHistory records every completed run in store.
func (f *Fanout) AttachHistory(store history.Store) {
	if store == nil {
		return
	}
	observe(f, func(evt events.RunCompleted) {
		if evt.Result == nil {
			return
		}
		if err := store.Record(context.Background(), evt.Result); err != nil {
			f.logger.Warn("Failed to record run history", logfields.RunID(evt.Result.RunID), logfields.Error(err))
		}
	})
}

// AttachMetrics feeds run outcomes into rec.
func (f *Fanout) AttachMetrics(rec metrics.Recorder) {
	if rec == nil {
		return
	}
	observe(f, func(evt events.RunCompleted) { RecordRunMetrics(rec, evt.Result) })
	observe(f, func(evt events.RunAborted) {
		if ferrors.HasCategory(evt.Err, ferrors.CategoryConfig) {
			rec.IncRunOutcome(metrics.OutcomeConfigError)
			return
		}
		rec.IncRunOutcome(metrics.OutcomeFailed)
	})
}

// AttachNotifier publishes completed runs through pub.
func (f *Fanout) AttachNotifier(pub *notify.Publisher) {
	if pub == nil {
		return
	}
	observe(f, func(evt events.RunCompleted) {
		if err := pub.PublishResult(context.Background(), evt.Result); err != nil {
			f.logger.Warn("Failed to publish run notification", logfields.Error(err))
		}
	})
}

// RecordRunMetrics translates a run result into recorder calls.
func RecordRunMetrics(rec metrics.Recorder, res *pipeline.Result) {
	if res == nil {
		return
	}
	for _, st := range res.Stages {
		rec.ObserveStageDuration(st.Name, secondsToDuration(st.DurationSeconds))
		rec.AddStageBytes(st.Name, st.RawBytes, st.CleanBytes)
		switch {
		case st.Overridden:
			rec.IncStageResult(st.Name, metrics.ResultOverridden)
		case st.Success:
			rec.IncStageResult(st.Name, metrics.ResultSuccess)
		default:
			rec.IncStageResult(st.Name, metrics.ResultFailed)
		}
		for _, name := range st.SkippedFilters {
			rec.IncFilterSkipped(name)
		}
	}
	rec.ObserveRunDuration(secondsToDuration(res.DurationSeconds))
	rec.SetLastReduction(res.Metrics.ReductionPct)
	if res.Success {
		rec.IncRunOutcome(metrics.OutcomeSuccess)
	} else {
		rec.IncRunOutcome(metrics.OutcomeFailed)
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
