// Package installer dispatches a synchronized repository to one of the
// supported install strategies and maintains the import search-path ledger.
package installer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/provision/internal/config"
	"git.home.luguber.info/inful/provision/internal/logfields"
	"git.home.luguber.info/inful/provision/internal/runner"
)

// UnknownStrategyError is defensive only: normalization validates the
// install field before any dispatch happens.
type UnknownStrategyError struct {
	Strategy config.InstallStrategy
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("unknown install strategy: %q", e.Strategy)
}

// Dispatcher installs a repository's project root using the strategy its
// spec selects. Environment from the spec is scoped to the spawned install
// commands; the process environment is never mutated.
type Dispatcher struct {
	run    runner.Runner
	python string
	paths  *SearchPath
}

// NewDispatcher creates a Dispatcher using the given runner and ledger.
func NewDispatcher(run runner.Runner, paths *SearchPath) *Dispatcher {
	return &Dispatcher{run: run, python: "python3", paths: paths}
}

// WithPython overrides the interpreter used for install tooling.
func (d *Dispatcher) WithPython(python string) *Dispatcher {
	if python != "" {
		d.python = python
	}
	return d
}

// SearchPath exposes the ledger for summary reporting and hooks.
func (d *Dispatcher) SearchPath() *SearchPath { return d.paths }

// Install runs the spec's strategy against repoDir and returns the resolved
// project root. The root is always made importable afterwards, and the
// optional post-install command runs with the project root as its working
// directory.
func (d *Dispatcher) Install(ctx context.Context, spec config.RepoSpec, repoDir string) (string, error) {
	projectDir, err := filepath.Abs(filepath.Join(repoDir, spec.Path))
	if err != nil {
		return "", fmt.Errorf("resolving project root: %w", err)
	}

	env := d.overlay(spec)

	slog.Debug("Dispatching install",
		logfields.Repository(spec.Name),
		logfields.Strategy(string(spec.Install)),
		logfields.Path(projectDir))

	switch spec.Install {
	case config.InstallNone:
		// Import visibility only; no package-manager command is issued.
	case config.InstallPip:
		err = d.pipInstall(ctx, spec, projectDir, env)
	case config.InstallUv:
		err = d.uvInstall(ctx, spec, projectDir, env)
	case config.InstallPoetry:
		err = d.poetryInstall(ctx, spec, projectDir, env)
	default:
		return "", &UnknownStrategyError{Strategy: spec.Install}
	}
	if err != nil {
		return "", err
	}

	if d.paths.Prepend(projectDir, spec.Name) {
		slog.Debug("Project root made importable", logfields.Repository(spec.Name), logfields.Path(projectDir))
	}

	if spec.PostInstall != "" {
		if _, err := d.run.Run(ctx, runner.Command{
			Argv: []string{"bash", "-lc", spec.PostInstall},
			Dir:  projectDir,
			Env:  d.overlay(spec), // ledger now includes this project root
		}); err != nil {
			return "", err
		}
	}

	return projectDir, nil
}

func (d *Dispatcher) pipInstall(ctx context.Context, spec config.RepoSpec, projectDir string, env map[string]string) error {
	if err := d.upgradePip(ctx, env); err != nil {
		return err
	}
	if spec.Editable {
		target := projectDir + bracketExtras(spec.Extras)
		_, err := d.run.Run(ctx, runner.Command{
			Argv: []string{d.python, "-m", "pip", "install", "-e", target},
			Env:  env,
		})
		return err
	}
	_, err := d.run.Run(ctx, runner.Command{
		Argv: []string{d.python, "-m", "pip", "install", "." + bracketExtras(spec.Extras)},
		Dir:  projectDir,
		Env:  env,
	})
	return err
}

func (d *Dispatcher) uvInstall(ctx context.Context, spec config.RepoSpec, projectDir string, env map[string]string) error {
	if err := d.ensureTool(ctx, "uv", env); err != nil {
		return err
	}
	if spec.Editable {
		// uv has no separate editable path worth diverging for.
		return d.pipInstall(ctx, spec, projectDir, env)
	}
	_, err := d.run.Run(ctx, runner.Command{
		Argv: []string{d.python, "-m", "uv", "pip", "install", "." + bracketExtras(spec.Extras)},
		Dir:  projectDir,
		Env:  env,
	})
	return err
}

func (d *Dispatcher) poetryInstall(ctx context.Context, spec config.RepoSpec, projectDir string, env map[string]string) error {
	if err := d.ensureTool(ctx, "poetry", env); err != nil {
		return err
	}
	argv := []string{d.python, "-m", "poetry", "install"}
	if len(spec.Extras) > 0 {
		argv = append(argv, "--with", strings.Join(spec.Extras, ","))
	}
	_, err := d.run.Run(ctx, runner.Command{Argv: argv, Dir: projectDir, Env: env})
	return err
	// poetry has no true editable install; the unconditional search-path
	// insertion after dispatch covers import visibility.
}

func (d *Dispatcher) upgradePip(ctx context.Context, env map[string]string) error {
	_, err := d.run.Run(ctx, runner.Command{
		Argv:  []string{d.python, "-m", "pip", "install", "-q", "-U", "pip"},
		Env:   env,
		Quiet: true,
	})
	return err
}

// ensureTool installs a module-level tool on demand when probing it fails.
func (d *Dispatcher) ensureTool(ctx context.Context, tool string, env map[string]string) error {
	res, err := d.run.Run(ctx, runner.Command{
		Argv:    []string{d.python, "-m", tool, "--version"},
		Env:     env,
		Quiet:   true,
		NoCheck: true,
	})
	if err != nil {
		return err
	}
	if res.ExitCode == 0 {
		return nil
	}
	slog.Info("Installing missing tool", slog.String("tool", tool))
	_, err = d.run.Run(ctx, runner.Command{
		Argv:  []string{d.python, "-m", "pip", "install", "-q", tool},
		Env:   env,
		Quiet: true,
	})
	return err
}

// overlay builds the child-process environment for one repository: its
// manifest env plus the current search-path ledger as PYTHONPATH.
func (d *Dispatcher) overlay(spec config.RepoSpec) map[string]string {
	env := make(map[string]string, len(spec.Env)+1)
	for k, v := range spec.Env {
		env[k] = v
	}
	if pp := d.paths.PythonPath(os.Getenv("PYTHONPATH")); pp != "" {
		env["PYTHONPATH"] = pp
	}
	return env
}

func bracketExtras(extras []string) string {
	if len(extras) == 0 {
		return ""
	}
	return "[" + strings.Join(extras, ",") + "]"
}
