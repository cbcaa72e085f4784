package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"git.home.luguber.info/inful/provision/internal/config"
	"git.home.luguber.info/inful/provision/internal/daemon"
	"git.home.luguber.info/inful/provision/internal/events"
	"git.home.luguber.info/inful/provision/internal/git"
	"git.home.luguber.info/inful/provision/internal/history"
	"git.home.luguber.info/inful/provision/internal/installer"
	"git.home.luguber.info/inful/provision/internal/metrics"
	"git.home.luguber.info/inful/provision/internal/provision"
	"git.home.luguber.info/inful/provision/internal/runner"
	"git.home.luguber.info/inful/provision/internal/workspace"
	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var CLI struct {
	Manifest  string `short:"m" help:"Manifest file path or URL" default:"repos.yaml"`
	Verbose   bool   `short:"v" help:"Enable verbose logging"`
	CacheRoot string `help:"Directory repositories are cloned into (defaults to the user cache dir)"`
	GhToken   string `env:"GH_TOKEN" help:"Bearer token used for github.com fetches"`
	Python    string `help:"Python interpreter used for install tooling" default:"python3"`
	NatsURL   string `help:"Publish run events to this NATS server"`
	HistoryDB string `help:"SQLite file recording run history (defaults to the cache directory)"`
	NoHistory bool   `help:"Disable run history recording"`
	EnvFile   string `help:"Write PYTHONPATH for provisioned repositories to this env file"`

	Up struct {
		JSON     bool `help:"Print the run summary as JSON"`
		FailFast bool `help:"Abort the run at the first repository failure"`
	} `cmd:"" help:"Provision all repositories in the manifest"`

	Init struct {
		Force bool `help:"Overwrite an existing manifest file"`
	} `cmd:"" help:"Write a starter manifest"`

	Watch struct {
		Interval    time.Duration `help:"Also re-provision on this interval (0 disables the schedule)"`
		MetricsAddr string        `help:"Serve Prometheus metrics on this address (e.g. :9090)"`
		FailFast    bool          `help:"Abort each run at the first repository failure"`
	} `cmd:"" help:"Provision continuously as the manifest changes"`

	History struct {
		Limit int  `default:"10" help:"Number of runs to show"`
		JSON  bool `help:"Print runs as JSON"`
	} `cmd:"" help:"Show recent provisioning runs"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	var err error
	switch ctx.Command() {
	case "up":
		err = runUp()
	case "init":
		err = config.Init(CLI.Manifest, CLI.Init.Force)
	case "watch":
		err = runWatch()
	case "history":
		err = runHistory()
	}
	if err != nil {
		slog.Error("Command failed", "command", ctx.Command(), "error", err)
		os.Exit(1)
	}
}

func runUp() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	coordinator, cleanup, err := buildCoordinator(metrics.NoopRecorder{}, CLI.Up.FailFast)
	if err != nil {
		return err
	}
	defer cleanup()

	summary, runErr := provisionOnce(ctx, coordinator)
	if summary.RunID != "" {
		if err := printSummary(os.Stdout, summary, CLI.Up.JSON); err != nil {
			return err
		}
	}
	return runErr
}

func runWatch() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	recorder := metrics.Recorder(metrics.NoopRecorder{})
	if CLI.Watch.MetricsAddr != "" {
		registry := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(registry)
		go serveMetrics(ctx, CLI.Watch.MetricsAddr, registry)
	}

	coordinator, cleanup, err := buildCoordinator(recorder, CLI.Watch.FailFast)
	if err != nil {
		return err
	}
	defer cleanup()

	d := daemon.New(CLI.Manifest, func(ctx context.Context) error {
		_, err := provisionOnce(ctx, coordinator)
		return err
	}, CLI.Watch.Interval)

	if err := d.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func runHistory() error {
	ctx := context.Background()

	dbPath, err := historyPath()
	if err != nil {
		return err
	}
	store, err := history.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.RecentRuns(ctx, CLI.History.Limit)
	if err != nil {
		return err
	}
	if CLI.History.JSON {
		return printRunsJSON(os.Stdout, runs)
	}
	printRunsText(os.Stdout, runs)
	return nil
}

// provisionOnce reloads the manifest so watch-triggered runs pick up edits.
func provisionOnce(ctx context.Context, coordinator *provision.Coordinator) (provision.Summary, error) {
	manifest, err := config.Load(CLI.Manifest)
	if err != nil {
		return provision.Summary{}, err
	}
	specs, err := config.Normalize(manifest)
	if err != nil {
		return provision.Summary{}, err
	}
	return coordinator.Run(ctx, specs)
}

func buildCoordinator(recorder metrics.Recorder, failFast bool) (*provision.Coordinator, func(), error) {
	var cache provision.CacheProvider = workspace.NewLocalCache(CLI.CacheRoot)
	root, err := cache.Root()
	if err != nil {
		return nil, nil, fmt.Errorf("preparing cache: %w", err)
	}

	run := runner.NewLocal()
	syncer := git.NewSyncer(root, run).WithToken(CLI.GhToken)
	dispatcher := installer.NewDispatcher(run, installer.NewSearchPath()).WithPython(CLI.Python)

	coordinator := provision.NewCoordinator(syncer, dispatcher).
		WithRecorder(recorder).
		WithFailFast(failFast)

	var cleanups []func()
	cleanup := func() {
		for _, f := range cleanups {
			f()
		}
	}

	if CLI.NatsURL != "" {
		publisher, err := events.NewNATSPublisher(CLI.NatsURL, events.DefaultSubject)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connecting event publisher: %w", err)
		}
		cleanups = append(cleanups, publisher.Close)
		coordinator.WithPublisher(publisher)
	}

	if !CLI.NoHistory {
		dbPath, err := historyPath()
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		store, err := history.NewStore(dbPath)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("opening history store: %w", err)
		}
		cleanups = append(cleanups, func() { _ = store.Close() })
		coordinator.WithHistory(store)
	}

	if CLI.EnvFile != "" {
		coordinator.WithHooks(provision.EnvFileHook{Path: CLI.EnvFile})
	}

	return coordinator, cleanup, nil
}

// historyPath resolves the run-history database location, defaulting to a
// sibling of the repository cache.
func historyPath() (string, error) {
	if CLI.HistoryDB != "" {
		return CLI.HistoryDB, nil
	}
	root, err := workspace.NewLocalCache(CLI.CacheRoot).Root()
	if err != nil {
		return "", fmt.Errorf("resolving history path: %w", err)
	}
	return filepath.Join(filepath.Dir(root), "history.db"), nil
}

func serveMetrics(ctx context.Context, addr string, registry *prom.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	slog.Info("Serving metrics", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Metrics server failed", "error", err)
	}
}
