package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/ddd/internal/config"
	"git.home.luguber.info/inful/ddd/internal/console"
	"git.home.luguber.info/inful/ddd/internal/daemon/events"
	"git.home.luguber.info/inful/ddd/internal/filter"
	ferrors "git.home.luguber.info/inful/ddd/internal/foundation/errors"
	"git.home.luguber.info/inful/ddd/internal/history"
	"git.home.luguber.info/inful/ddd/internal/lock"
	"git.home.luguber.info/inful/ddd/internal/logfields"
	"git.home.luguber.info/inful/ddd/internal/metrics"
	"git.home.luguber.info/inful/ddd/internal/notify"
	"git.home.luguber.info/inful/ddd/internal/pipeline"
)

const shutdownTimeout = 5 * time.Second

// Daemon owns every long-lived component for one project.
type Daemon struct {
	layout        config.Layout
	settings      config.Settings
	logger        *slog.Logger
	printer       *console.Printer
	echo          io.Writer
	ctrlOpts      []pipeline.Option
	pruneInterval time.Duration

	lock     *lock.Manager
	loader   *filter.Loader
	bus      *events.Bus
	fanout   *Fanout
	runner   *Runner
	store    history.Store
	notifier *notify.Publisher
	registry *prom.Registry
	recorder metrics.Recorder

	closeOnce sync.Once
	closeErr  error
}

// Option configures a Daemon.
type Option func(*Daemon)

func WithLogger(l *slog.Logger) Option { return func(d *Daemon) { d.logger = l } }

// WithPrinter sets the console status printer.
func WithPrinter(p *console.Printer) Option { return func(d *Daemon) { d.printer = p } }

// WithEcho sets where live command output is mirrored.
func WithEcho(w io.Writer) Option { return func(d *Daemon) { d.echo = w } }

// WithControllerOptions passes extra options to the pipeline controller.
func WithControllerOptions(opts ...pipeline.Option) Option {
	return func(d *Daemon) { d.ctrlOpts = append(d.ctrlOpts, opts...) }
}

// WithPruneInterval overrides DefaultPruneInterval.
func WithPruneInterval(iv time.Duration) Option { return func(d *Daemon) { d.pruneInterval = iv } }

// New assembles a daemon. Optional integrations that fail to come up
// (history, NATS) are logged and left disabled.
func New(layout config.Layout, settings config.Settings, opts ...Option) (*Daemon, error) {
	d := &Daemon{
		layout:        layout,
		settings:      settings,
		logger:        slog.Default(),
		echo:          io.Discard,
		pruneInterval: DefaultPruneInterval,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.printer == nil {
		d.printer = console.New(io.Discard)
	}
	if d.echo == nil || settings.Quiet {
		d.echo = io.Discard
	}

	d.lock = lock.New(layout.LockPath(), settings.Debounce)
	d.loader = filter.NewLoader(settings.UserFiltersDir, layout.FiltersDir(), d.logger)

	d.recorder = metrics.NoopRecorder{}
	if settings.MetricsAddr != "" {
		d.registry = metrics.NewRegistry()
		d.recorder = metrics.NewPrometheusRecorder(d.registry)
	}

	if settings.HistoryEnabled {
		if err := layout.EnsureRunDir(); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "create project directory").
				WithContext("path", layout.Dir()).
				Build()
		}
		store, err := history.NewSQLiteStore(layout.HistoryPath())
		if err != nil {
			d.logger.Warn("Run history disabled", logfields.Path(layout.HistoryPath()), logfields.Error(err))
		} else {
			d.store = store
		}
	}

	pub, err := notify.Connect(settings.NATSURL, settings.NATSSubject, d.logger)
	if err != nil {
		d.logger.Warn("Run notifications disabled", logfields.Error(err))
	}
	d.notifier = pub

	ctrlOpts := append([]pipeline.Option{
		pipeline.WithEcho(d.echo),
		pipeline.WithPrinter(d.printer),
		pipeline.WithLogger(d.logger),
	}, d.ctrlOpts...)
	ctrl := pipeline.NewController(layout, d.lock, d.loader, ctrlOpts...)

	d.bus = events.NewBus()
	d.fanout = NewFanout(d.bus, d.logger)
	if d.store != nil {
		d.fanout.AttachHistory(d.store)
	}
	d.fanout.AttachMetrics(d.recorder)
	d.fanout.AttachNotifier(d.notifier)
	d.runner = NewRunner(ctrl, d.bus, d.recorder, d.logger)

	return d, nil
}

// Bus exposes the event bus for additional observers.
func (d *Daemon) Bus() *events.Bus { return d.bus }

// Lock returns the project's lock manager.
func (d *Daemon) Lock() *lock.Manager { return d.lock }

// History returns the run history store, or nil when disabled.
func (d *Daemon) History() history.Store { return d.store }

// Run recovers stale locks, starts watching for triggers and serves runs
// until ctx is done. It closes the daemon before returning.
func (d *Daemon) Run(ctx context.Context) error {
	defer func() { _ = d.Close() }()

	if err := d.layout.EnsureRunDir(); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create run directory").
			WithContext("path", d.layout.RunDir()).
			Build()
	}
	removed, err := d.lock.RecoverOnStartup()
	if err != nil {
		return err
	}
	for _, path := range removed {
		d.printer.Warning("Removed stale lock %s", path)
		d.logger.Warn("Removed stale lock", logfields.Path(path))
	}

	watcher := NewTriggerWatcher(d.layout.TriggerPath(), d.lock, d.bus, d.recorder, d.logger)
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Wait()

	var sched *Scheduler
	if d.store != nil {
		sched, err = NewScheduler(d.logger)
		if err != nil {
			return err
		}
		if _, err := sched.ScheduleHistoryPrune(d.store, d.settings.HistoryKeep, d.pruneInterval); err != nil {
			return err
		}
		sched.Start(ctx)
	}

	var srv *HTTPServer
	if d.settings.MetricsAddr != "" {
		srv = NewHTTPServer(d.settings.MetricsAddr, d.layout, d.lock, d.registry, d.logger)
		if err := srv.Start(ctx); err != nil {
			if sched != nil {
				_ = sched.Stop(ctx)
			}
			return err
		}
	}

	d.printer.Daemon("Daemon active. Waiting for %s", d.layout.TriggerPath())
	d.work(ctx, watcher.Requests())

	d.printer.Info("Shutting down.")
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	var errs []error
	if srv != nil {
		errs = append(errs, srv.Stop(stopCtx))
	}
	if sched != nil {
		errs = append(errs, sched.Stop(stopCtx))
	}
	return errors.Join(errs...)
}

// work is the single run worker.
func (d *Daemon) work(ctx context.Context, requests <-chan Request) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-requests:
			d.printer.Signal("Trigger received (%s).", req.Reason)
			if _, err := d.runner.Run(ctx, req.Reason); err != nil {
				d.printer.Failure("Run aborted: %v", err)
			}
		}
	}
}

// RunOnce executes a single pipeline run in the foreground, delivers its
// outcome to every observer and closes the daemon.
func (d *Daemon) RunOnce(ctx context.Context) (*pipeline.Result, error) {
	res, err := d.runner.Run(ctx, "manual")
	if cerr := d.Close(); cerr != nil {
		d.logger.Warn("Shutdown error", logfields.Error(cerr))
	}
	return res, err
}

// Close stops the fan-out after draining pending events and releases
// history and NATS resources. Safe to call more than once.
func (d *Daemon) Close() error {
	d.closeOnce.Do(func() {
		d.bus.Close()
		d.fanout.Wait()
		if d.store != nil {
			d.closeErr = d.store.Close()
		}
		d.notifier.Close()
	})
	return d.closeErr
}
