package daemon

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/ddd/internal/daemon/events"
	ferrors "git.home.luguber.info/inful/ddd/internal/foundation/errors"
	"git.home.luguber.info/inful/ddd/internal/lock"
	"git.home.luguber.info/inful/ddd/internal/logfields"
	"git.home.luguber.info/inful/ddd/internal/metrics"
)

// Request is one accepted trigger waiting for the worker.
type Request struct {
	Reason string
	At     time.Time
}

// TriggerWatcher observes a run directory for the trigger file and queues
// accepted triggers. The queue holds one request; triggers arriving while one
// is already queued are coalesced into it.
type TriggerWatcher struct {
	dir      string
	name     string
	lock     *lock.Manager
	bus      *events.Bus
	recorder metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time

	queue   chan Request
	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

// NewTriggerWatcher watches triggerPath's directory for triggerPath's basename.
func NewTriggerWatcher(triggerPath string, lm *lock.Manager, bus *events.Bus, rec metrics.Recorder, logger *slog.Logger) *TriggerWatcher {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TriggerWatcher{
		dir:      filepath.Dir(triggerPath),
		name:     filepath.Base(triggerPath),
		lock:     lm,
		bus:      bus,
		recorder: rec,
		logger:   logger,
		now:      time.Now,
		queue:    make(chan Request, 1),
	}
}

// Requests is the worker's queue.
func (w *TriggerWatcher) Requests() <-chan Request { return w.queue }

// Start begins watching. The directory must exist. Watching stops when ctx
// is done; Wait blocks until then.
func (w *TriggerWatcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryDaemon, "create file watcher").Build()
	}
	if err := fw.Add(w.dir); err != nil {
		_ = fw.Close()
		return ferrors.WrapError(err, ferrors.CategoryDaemon, "watch run directory").
			WithContext("path", w.dir).
			Build()
	}
	w.watcher = fw

	w.logger.Info("Watching for triggers", logfields.Path(filepath.Join(w.dir, w.name)))
	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Wait blocks until the watch loop has exited.
func (w *TriggerWatcher) Wait() { w.wg.Wait() }

func (w *TriggerWatcher) loop(ctx context.Context) {
	defer w.wg.Done()
	defer func() {
		if err := w.watcher.Close(); err != nil {
			w.logger.Error("Error closing file watcher", logfields.Error(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Trigger watcher error", logfields.Error(err))
		}
	}
}

// handle applies basename matching, debounce and coalescing to one event.
func (w *TriggerWatcher) handle(event fsnotify.Event) bool {
	if filepath.Base(event.Name) != w.name {
		return false
	}
	// touch on an existing file only changes its timestamps (Chmod).
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Chmod) {
		return false
	}

	now := w.now()
	accepted := w.lock.Debounce(now)
	w.recorder.IncTrigger(accepted)
	evt := events.TriggerReceived{Path: event.Name, At: now, Accepted: accepted}
	if !accepted {
		w.logger.Debug("Trigger debounced", logfields.Path(event.Name))
		w.bus.TryPublish(evt)
		return false
	}

	select {
	case w.queue <- Request{Reason: "trigger " + event.Op.String(), At: now}:
		w.logger.Info("Trigger accepted", logfields.Path(event.Name))
	default:
		evt.Coalesced = true
		w.logger.Info("Trigger coalesced into pending run", logfields.Path(event.Name))
	}
	w.bus.TryPublish(evt)
	return true
}
