package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/provision/internal/logfields"
)

// RunFunc executes one provisioning run against the current manifest.
type RunFunc func(ctx context.Context) error

// Daemon re-provisions whenever the manifest changes or a periodic interval
// elapses. Triggers are serialized: a run in progress absorbs triggers that
// arrive while it executes, and one more run follows.
type Daemon struct {
	manifestPath string
	runFunc      RunFunc
	interval     time.Duration
	debounce     time.Duration
	triggerChan  chan string
}

// New creates a Daemon. interval <= 0 disables the periodic schedule.
func New(manifestPath string, run RunFunc, interval time.Duration) *Daemon {
	return &Daemon{
		manifestPath: manifestPath,
		runFunc:      run,
		interval:     interval,
		debounce:     2 * time.Second,
		triggerChan:  make(chan string, 1),
	}
}

// WithDebounce overrides the manifest-change settle window.
func (d *Daemon) WithDebounce(debounce time.Duration) *Daemon {
	d.debounce = debounce
	return d
}

// Trigger requests a run. Coalesces with an already-pending trigger.
func (d *Daemon) Trigger(reason string) {
	select {
	case d.triggerChan <- reason:
	default:
		// A run is already pending; the coming run picks up this change too.
	}
}

// Run provisions once immediately, then blocks servicing triggers until the
// context is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	watcher, err := NewManifestWatcher(d.manifestPath, d.Trigger)
	if err != nil {
		return fmt.Errorf("starting manifest watcher: %w", err)
	}
	watcher.WithDebounce(d.debounce)
	if err := watcher.Start(ctx); err != nil {
		watcher.Stop()
		return err
	}
	defer watcher.Stop()

	if d.interval > 0 {
		scheduler, err := NewScheduler(d.Trigger)
		if err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
		if _, err := scheduler.ScheduleInterval(d.interval); err != nil {
			return err
		}
		scheduler.Start()
		defer func() {
			if err := scheduler.Stop(); err != nil {
				slog.Error("Error stopping scheduler", logfields.Error(err))
			}
		}()
		slog.Info("Periodic provisioning enabled", slog.Duration("interval", d.interval))
	}

	d.provision(ctx, "startup")

	for {
		select {
		case <-ctx.Done():
			slog.Info("Daemon shutting down")
			return ctx.Err()
		case reason := <-d.triggerChan:
			d.provision(ctx, reason)
		}
	}
}

// provision runs once; a failed run is logged and the daemon keeps serving
// future triggers.
func (d *Daemon) provision(ctx context.Context, reason string) {
	slog.Info("Provisioning", slog.String("reason", reason))
	if err := d.runFunc(ctx); err != nil {
		slog.Error("Provisioning run failed", slog.String("reason", reason), logfields.Error(err))
	}
}
