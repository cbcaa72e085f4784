package provision

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"git.home.luguber.info/inful/provision/internal/config"
	"git.home.luguber.info/inful/provision/internal/events"
	"git.home.luguber.info/inful/provision/internal/history"
	"git.home.luguber.info/inful/provision/internal/installer"
	"git.home.luguber.info/inful/provision/internal/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSyncer struct {
	root    string
	calls   []string
	failOn  string
	failErr error
}

func (f *fakeSyncer) Sync(_ context.Context, spec config.RepoSpec) (string, error) {
	f.calls = append(f.calls, spec.Name)
	if spec.Name == f.failOn {
		return "", f.failErr
	}
	return filepath.Join(f.root, spec.Name), nil
}

type fakeInstaller struct {
	paths   *installer.SearchPath
	calls   []string
	failOn  string
	failErr error
}

func newFakeInstaller() *fakeInstaller {
	return &fakeInstaller{paths: installer.NewSearchPath()}
}

func (f *fakeInstaller) Install(_ context.Context, spec config.RepoSpec, repoDir string) (string, error) {
	f.calls = append(f.calls, spec.Name)
	if spec.Name == f.failOn {
		return "", f.failErr
	}
	projectDir := filepath.Join(repoDir, spec.Path)
	f.paths.Prepend(projectDir, spec.Name)
	return projectDir, nil
}

func (f *fakeInstaller) SearchPath() *installer.SearchPath { return f.paths }

type capturingPublisher struct {
	events []events.Event
}

func (p *capturingPublisher) Publish(e events.Event) error {
	p.events = append(p.events, e)
	return nil
}

func (p *capturingPublisher) Close() {}

type capturingHook struct {
	summaries []Summary
}

func (h *capturingHook) AfterRun(_ context.Context, s Summary) error {
	h.summaries = append(h.summaries, s)
	return nil
}

func specsFor(names ...string) []config.RepoSpec {
	specs := make([]config.RepoSpec, 0, len(names))
	for _, n := range names {
		specs = append(specs, config.RepoSpec{
			Name: n, URL: "https://example/" + n + ".git", Ref: "main",
			Editable: true, Install: config.InstallPip, Path: ".",
			Extras: []string{}, Env: map[string]string{},
		})
	}
	return specs
}

func TestRunHappyPath(t *testing.T) {
	sync := &fakeSyncer{root: "/repos"}
	install := newFakeInstaller()
	c := NewCoordinator(sync, install)

	summary, err := c.Run(context.Background(), specsFor("a", "b"))
	require.NoError(t, err)

	assert.Equal(t, "success", summary.Outcome)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, "a", summary.Results[0].Name)
	assert.Equal(t, filepath.Join("/repos", "a"), summary.Results[0].Path)
	assert.Equal(t, "b", summary.Results[1].Name)
	assert.NotEmpty(t, summary.RunID)
	assert.Len(t, summary.SearchPath, 2)
}

func TestRunContinuesPastFailure(t *testing.T) {
	sync := &fakeSyncer{root: "/repos", failOn: "b", failErr: errors.New("clone failed")}
	install := newFakeInstaller()
	c := NewCoordinator(sync, install)

	summary, err := c.Run(context.Background(), specsFor("a", "b", "c"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repo b")

	require.Len(t, summary.Results, 3)
	assert.False(t, summary.Results[0].Failed())
	assert.True(t, summary.Results[1].Failed())
	assert.False(t, summary.Results[2].Failed())
	assert.Equal(t, "failed", summary.Outcome)
	assert.Equal(t, []string{"a", "b", "c"}, sync.calls, "later repos still provisioned")
}

func TestRunFailFastStopsProcessing(t *testing.T) {
	sync := &fakeSyncer{root: "/repos", failOn: "b", failErr: errors.New("clone failed")}
	install := newFakeInstaller()
	c := NewCoordinator(sync, install).WithFailFast(true)

	summary, err := c.Run(context.Background(), specsFor("a", "b", "c"))
	require.Error(t, err)

	require.Len(t, summary.Results, 2)
	assert.Equal(t, []string{"a", "b"}, sync.calls, "entries after the failure are never attempted")
	assert.Equal(t, []string{"a"}, install.calls)
}

func TestRunInstallFailureRecorded(t *testing.T) {
	sync := &fakeSyncer{root: "/repos"}
	install := newFakeInstaller()
	install.failOn = "a"
	install.failErr = errors.New("pip exploded")
	c := NewCoordinator(sync, install)

	summary, err := c.Run(context.Background(), specsFor("a"))
	require.Error(t, err)
	assert.True(t, summary.Results[0].Failed())
	assert.Contains(t, summary.Results[0].Err.Error(), "pip exploded")
}

func TestRunPublishesEvents(t *testing.T) {
	sync := &fakeSyncer{root: "/repos", failOn: "b", failErr: errors.New("boom")}
	install := newFakeInstaller()
	pub := &capturingPublisher{}
	c := NewCoordinator(sync, install).WithPublisher(pub)

	_, _ = c.Run(context.Background(), specsFor("a", "b"))

	types := make([]string, 0, len(pub.events))
	for _, e := range pub.events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{
		events.TypeRunStarted,
		events.TypeRepoProvisioned,
		events.TypeRepoFailed,
		events.TypeRunCompleted,
	}, types)
}

func TestRunRecordsHistory(t *testing.T) {
	store, err := history.NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	sync := &fakeSyncer{root: "/repos"}
	c := NewCoordinator(sync, newFakeInstaller()).WithHistory(store)

	summary, err := c.Run(context.Background(), specsFor("a"))
	require.NoError(t, err)

	runs, err := store.RecentRuns(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, summary.RunID, runs[0].ID)
	require.Len(t, runs[0].Repos, 1)
	assert.Equal(t, "ok", runs[0].Repos[0].Status)
}

func TestRunInvokesHooks(t *testing.T) {
	sync := &fakeSyncer{root: "/repos"}
	hook := &capturingHook{}
	c := NewCoordinator(sync, newFakeInstaller()).WithHooks(hook)

	_, err := c.Run(context.Background(), specsFor("a"))
	require.NoError(t, err)
	require.Len(t, hook.summaries, 1)
	assert.NotEmpty(t, hook.summaries[0].SearchPath)
}

// TestRunWithRealDispatcher wires the coordinator to the real install
// dispatcher over a fake command runner: one pip editable repo and one
// import-only repo.
func TestRunWithRealDispatcher(t *testing.T) {
	root := t.TempDir()
	sync := &fakeSyncer{root: root}
	fake := &runner.Fake{}
	dispatcher := installer.NewDispatcher(fake, installer.NewSearchPath())
	c := NewCoordinator(sync, dispatcher)

	specs := specsFor("a", "b")
	specs[1].Install = config.InstallNone

	summary, err := c.Run(context.Background(), specs)
	require.NoError(t, err)

	require.Len(t, summary.Results, 2)
	assert.Equal(t, filepath.Join(root, "a"), summary.Results[0].Path)
	assert.Equal(t, filepath.Join(root, "b"), summary.Results[1].Path)

	var sawEditable bool
	for _, line := range fake.CommandLines() {
		assert.NotContains(t, line, filepath.Join(root, "b"), "install=none must not issue package commands")
		if strings.Contains(line, "pip install -e "+filepath.Join(root, "a")) {
			sawEditable = true
		}
	}
	assert.True(t, sawEditable, "expected an editable pip install for repo a")
}

func TestSummaryJSON(t *testing.T) {
	s := Summary{
		RunID:   "r1",
		Outcome: "failed",
		Results: []RunResult{
			{Name: "a", Path: "/repos/a"},
			{Name: "b", Err: fmt.Errorf("sync b: clone failed")},
		},
		SearchPath: []string{"/repos/a"},
	}

	data, err := s.JSON()
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, `"name": "a"`)
	assert.Contains(t, text, `"status": "ok"`)
	assert.Contains(t, text, `"status": "failed"`)
	assert.Contains(t, text, "clone failed")
}
