// Package provision coordinates a full run: each manifest entry is
// synchronized, installed, and reported in order.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/provision/internal/config"
	"git.home.luguber.info/inful/provision/internal/events"
	"git.home.luguber.info/inful/provision/internal/history"
	"git.home.luguber.info/inful/provision/internal/installer"
	"git.home.luguber.info/inful/provision/internal/logfields"
	"git.home.luguber.info/inful/provision/internal/metrics"
	"github.com/google/uuid"
)

// Syncer brings one repository's local clone to its pinned ref.
type Syncer interface {
	Sync(ctx context.Context, spec config.RepoSpec) (string, error)
}

// Installer executes a spec's install strategy against a synchronized clone.
type Installer interface {
	Install(ctx context.Context, spec config.RepoSpec, repoDir string) (string, error)
	SearchPath() *installer.SearchPath
}

// RunResult is the record produced for each processed repository.
type RunResult struct {
	Name string
	Path string
	Err  error
}

// Failed reports whether this repository's provisioning failed.
func (r RunResult) Failed() bool { return r.Err != nil }

// Coordinator drives a provisioning run across all manifest entries.
// By default a repository failure is recorded and the run continues, so one
// bad repository does not discard unrelated work; FailFast restores
// abort-on-first-failure.
type Coordinator struct {
	sync      Syncer
	install   Installer
	recorder  metrics.Recorder
	publisher events.Publisher
	store     *history.Store
	hooks     []RunHook
	failFast  bool
}

// NewCoordinator creates a Coordinator with no-op observability defaults.
func NewCoordinator(sync Syncer, install Installer) *Coordinator {
	return &Coordinator{
		sync:      sync,
		install:   install,
		recorder:  metrics.NoopRecorder{},
		publisher: events.NoopPublisher{},
	}
}

// WithRecorder injects a metrics recorder.
func (c *Coordinator) WithRecorder(r metrics.Recorder) *Coordinator {
	c.recorder = r
	return c
}

// WithPublisher injects an event publisher.
func (c *Coordinator) WithPublisher(p events.Publisher) *Coordinator {
	c.publisher = p
	return c
}

// WithHistory enables run persistence.
func (c *Coordinator) WithHistory(s *history.Store) *Coordinator {
	c.store = s
	return c
}

// WithHooks appends post-run hooks.
func (c *Coordinator) WithHooks(hooks ...RunHook) *Coordinator {
	c.hooks = append(c.hooks, hooks...)
	return c
}

// WithFailFast aborts the run at the first repository failure.
func (c *Coordinator) WithFailFast(enabled bool) *Coordinator {
	c.failFast = enabled
	return c
}

// Run processes specs in manifest order and returns the run summary. The
// returned error aggregates every failed repository; the summary still
// carries the results collected so far.
func (c *Coordinator) Run(ctx context.Context, specs []config.RepoSpec) (Summary, error) {
	runID := uuid.NewString()
	startedAt := time.Now()

	slog.Info("Starting provisioning run", logfields.RunID(runID), slog.Int("repositories", len(specs)))
	c.publishEvent(events.Event{Type: events.TypeRunStarted, RunID: runID})

	var results []RunResult
	var failures []error

	for _, spec := range specs {
		result := c.provisionOne(ctx, runID, spec)
		results = append(results, result)

		if result.Failed() {
			failures = append(failures, fmt.Errorf("repo %s: %w", spec.Name, result.Err))
			if c.failFast {
				slog.Error("Aborting run on first failure",
					logfields.RunID(runID), logfields.Repository(spec.Name), logfields.Error(result.Err))
				break
			}
			continue
		}
	}

	outcome := "success"
	if len(failures) > 0 {
		outcome = "failed"
	}
	c.recorder.IncRunOutcome(outcome)

	summary := Summary{
		RunID:      runID,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Outcome:    outcome,
		Results:    results,
		SearchPath: c.install.SearchPath().Entries(),
	}

	c.publishEvent(events.Event{Type: events.TypeRunCompleted, RunID: runID, Error: joinedMessage(failures)})
	c.persist(ctx, summary)
	c.runHooks(ctx, summary)

	slog.Info("Provisioning run finished",
		logfields.RunID(runID),
		slog.String("outcome", outcome),
		slog.Int("repositories", len(results)),
		logfields.DurationMS(float64(summary.FinishedAt.Sub(startedAt).Milliseconds())))

	return summary, errors.Join(failures...)
}

func (c *Coordinator) provisionOne(ctx context.Context, runID string, spec config.RepoSpec) RunResult {
	syncStart := time.Now()
	repoDir, err := c.sync.Sync(ctx, spec)
	c.recorder.ObserveSyncDuration(spec.Name, time.Since(syncStart), err == nil)
	c.recorder.IncSyncResult(err == nil)
	if err != nil {
		slog.Error("Repository synchronization failed", logfields.RunID(runID), logfields.Repository(spec.Name), logfields.Error(err))
		c.publishEvent(events.Event{Type: events.TypeRepoFailed, RunID: runID, Repo: spec.Name, Error: err.Error()})
		return RunResult{Name: spec.Name, Err: err}
	}

	installStart := time.Now()
	projectDir, err := c.install.Install(ctx, spec, repoDir)
	c.recorder.ObserveInstallDuration(string(spec.Install), time.Since(installStart), err == nil)
	c.recorder.IncInstallResult(string(spec.Install), err == nil)
	if err != nil {
		slog.Error("Repository install failed",
			logfields.RunID(runID), logfields.Repository(spec.Name),
			logfields.Strategy(string(spec.Install)), logfields.Error(err))
		c.publishEvent(events.Event{Type: events.TypeRepoFailed, RunID: runID, Repo: spec.Name, Error: err.Error()})
		return RunResult{Name: spec.Name, Path: repoDir, Err: err}
	}

	c.publishEvent(events.Event{Type: events.TypeRepoProvisioned, RunID: runID, Repo: spec.Name, Path: projectDir})
	return RunResult{Name: spec.Name, Path: projectDir}
}

func (c *Coordinator) publishEvent(e events.Event) {
	if err := c.publisher.Publish(e); err != nil {
		slog.Warn("Failed to publish event", slog.String("type", e.Type), logfields.Error(err))
	}
}

func (c *Coordinator) persist(ctx context.Context, summary Summary) {
	if c.store == nil {
		return
	}
	if err := c.store.RecordRun(ctx, summary.historyRun()); err != nil {
		slog.Warn("Failed to persist run history", logfields.RunID(summary.RunID), logfields.Error(err))
	}
}

func (c *Coordinator) runHooks(ctx context.Context, summary Summary) {
	for _, h := range c.hooks {
		if err := h.AfterRun(ctx, summary); err != nil {
			slog.Warn("Post-run hook failed", logfields.RunID(summary.RunID), logfields.Error(err))
		}
	}
}

func joinedMessage(errs []error) string {
	if len(errs) == 0 {
		return ""
	}
	return errors.Join(errs...).Error()
}
