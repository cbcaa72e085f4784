package installer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"git.home.luguber.info/inful/provision/internal/config"
	"git.home.luguber.info/inful/provision/internal/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipSpec(name string) config.RepoSpec {
	return config.RepoSpec{
		Name:     name,
		URL:      "https://example/" + name + ".git",
		Ref:      "main",
		Editable: true,
		Extras:   []string{},
		Install:  config.InstallPip,
		Path:     ".",
		Env:      map[string]string{},
	}
}

func newDispatcher(fake *runner.Fake) *Dispatcher {
	return NewDispatcher(fake, NewSearchPath()).WithPython("python3")
}

func TestInstallNoneIssuesNoCommands(t *testing.T) {
	fake := &runner.Fake{}
	d := newDispatcher(fake)

	sp := pipSpec("a")
	sp.Install = config.InstallNone
	repoDir := t.TempDir()

	projectDir, err := d.Install(context.Background(), sp, repoDir)
	require.NoError(t, err)
	assert.Empty(t, fake.Calls)
	assert.True(t, d.SearchPath().Contains(projectDir))

	// Dispatching twice still inserts the project root exactly once.
	_, err = d.Install(context.Background(), sp, repoDir)
	require.NoError(t, err)
	assert.Len(t, d.SearchPath().Entries(), 1)
}

func TestInstallPipEditableWithExtras(t *testing.T) {
	fake := &runner.Fake{}
	d := newDispatcher(fake)

	sp := pipSpec("a")
	sp.Extras = []string{"dev"}
	repoDir := t.TempDir()

	projectDir, err := d.Install(context.Background(), sp, repoDir)
	require.NoError(t, err)

	lines := fake.CommandLines()
	require.Len(t, lines, 2)
	assert.Equal(t, "python3 -m pip install -q -U pip", lines[0])
	assert.True(t, fake.Calls[0].Quiet)
	assert.Equal(t, "python3 -m pip install -e "+projectDir+"[dev]", lines[1])
	assert.True(t, strings.HasSuffix(lines[1], "[dev]"))
}

func TestInstallPipNonEditable(t *testing.T) {
	fake := &runner.Fake{}
	d := newDispatcher(fake)

	sp := pipSpec("a")
	sp.Editable = false
	sp.Extras = []string{"dev", "test"}
	repoDir := t.TempDir()

	projectDir, err := d.Install(context.Background(), sp, repoDir)
	require.NoError(t, err)

	install := fake.Calls[1]
	assert.Equal(t, []string{"python3", "-m", "pip", "install", ".[dev,test]"}, install.Argv)
	assert.Equal(t, projectDir, install.Dir)
}

func TestInstallUvProbesAndInstallsTool(t *testing.T) {
	fake := &runner.Fake{Handler: func(cmd runner.Command) (runner.Result, error) {
		if len(cmd.Argv) >= 4 && cmd.Argv[2] == "uv" && cmd.Argv[3] == "--version" {
			return runner.Result{ExitCode: 1}, nil // tool missing
		}
		return runner.Result{}, nil
	}}
	d := newDispatcher(fake)

	sp := pipSpec("a")
	sp.Install = config.InstallUv
	sp.Editable = false

	_, err := d.Install(context.Background(), sp, t.TempDir())
	require.NoError(t, err)

	lines := fake.CommandLines()
	assert.Equal(t, "python3 -m uv --version", lines[0])
	assert.Equal(t, "python3 -m pip install -q uv", lines[1])
	assert.Equal(t, "python3 -m uv pip install .", lines[2])
}

func TestInstallUvEditableDelegatesToPip(t *testing.T) {
	fake := &runner.Fake{} // probe returns exit 0: tool present
	d := newDispatcher(fake)

	sp := pipSpec("a")
	sp.Install = config.InstallUv

	projectDir, err := d.Install(context.Background(), sp, t.TempDir())
	require.NoError(t, err)

	lines := fake.CommandLines()
	require.Len(t, lines, 3)
	assert.Equal(t, "python3 -m uv --version", lines[0])
	assert.Equal(t, "python3 -m pip install -e "+projectDir, lines[2])
}

func TestInstallPoetryWithExtras(t *testing.T) {
	fake := &runner.Fake{}
	d := newDispatcher(fake)

	sp := pipSpec("a")
	sp.Install = config.InstallPoetry
	sp.Extras = []string{"docs", "dev"}
	repoDir := t.TempDir()

	projectDir, err := d.Install(context.Background(), sp, repoDir)
	require.NoError(t, err)

	install := fake.Calls[1]
	assert.Equal(t, []string{"python3", "-m", "poetry", "install", "--with", "docs,dev"}, install.Argv)
	assert.Equal(t, projectDir, install.Dir)
	// Poetry has no editable mode: the root is importable regardless.
	assert.True(t, d.SearchPath().Contains(projectDir))
}

func TestInstallUnknownStrategy(t *testing.T) {
	fake := &runner.Fake{}
	d := newDispatcher(fake)

	sp := pipSpec("a")
	sp.Install = config.InstallStrategy("conda")

	_, err := d.Install(context.Background(), sp, t.TempDir())
	var unknown *UnknownStrategyError
	require.ErrorAs(t, err, &unknown)
	assert.Empty(t, fake.Calls)
}

func TestInstallSubdirectoryPath(t *testing.T) {
	fake := &runner.Fake{}
	d := newDispatcher(fake)

	sp := pipSpec("a")
	sp.Install = config.InstallNone
	sp.Path = "packages/core"
	repoDir := t.TempDir()

	projectDir, err := d.Install(context.Background(), sp, repoDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(repoDir, "packages", "core"), projectDir)
}

func TestInstallPostInstall(t *testing.T) {
	fake := &runner.Fake{}
	d := newDispatcher(fake)

	sp := pipSpec("a")
	sp.Install = config.InstallNone
	sp.PostInstall = "make generate"
	sp.Env = map[string]string{"FOO": "bar"}
	repoDir := t.TempDir()

	projectDir, err := d.Install(context.Background(), sp, repoDir)
	require.NoError(t, err)

	require.Len(t, fake.Calls, 1)
	post := fake.Calls[0]
	assert.Equal(t, []string{"bash", "-lc", "make generate"}, post.Argv)
	assert.Equal(t, projectDir, post.Dir)
	assert.Equal(t, "bar", post.Env["FOO"])
	assert.Contains(t, post.Env["PYTHONPATH"], projectDir)
}

func TestInstallPostInstallFailurePropagates(t *testing.T) {
	fake := &runner.Fake{Handler: func(cmd runner.Command) (runner.Result, error) {
		if cmd.Argv[0] == "bash" {
			return runner.Result{ExitCode: 2}, &runner.CommandError{Argv: cmd.Argv, ExitCode: 2}
		}
		return runner.Result{}, nil
	}}
	d := newDispatcher(fake)

	sp := pipSpec("a")
	sp.Install = config.InstallNone
	sp.PostInstall = "false"

	_, err := d.Install(context.Background(), sp, t.TempDir())
	var cmdErr *runner.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 2, cmdErr.ExitCode)
}

func TestInstallEnvScopedToChild(t *testing.T) {
	fake := &runner.Fake{}
	d := newDispatcher(fake)

	sp := pipSpec("a")
	sp.Env = map[string]string{"PROVISION_SCOPED": "yes"}

	_, err := d.Install(context.Background(), sp, t.TempDir())
	require.NoError(t, err)

	for _, c := range fake.Calls {
		assert.Equal(t, "yes", c.Env["PROVISION_SCOPED"])
	}
	// Process environment stays untouched.
	_, present := os.LookupEnv("PROVISION_SCOPED")
	assert.False(t, present)
}
