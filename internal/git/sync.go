package git

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/provision/internal/config"
	"git.home.luguber.info/inful/provision/internal/logfields"
	"git.home.luguber.info/inful/provision/internal/runner"
)

// DefaultTokenHost is the URL prefix for which an access token is injected
// as a clone authorization header.
const DefaultTokenHost = "https://github.com/"

// Syncer ensures local clones exist, are fetched, and are checked out at
// the manifest's pinned ref.
type Syncer struct {
	root      string
	run       runner.Runner
	token     string
	tokenHost string
}

// NewSyncer creates a Syncer rooted at the given cache directory.
func NewSyncer(root string, run runner.Runner) *Syncer {
	return &Syncer{root: root, run: run, tokenHost: DefaultTokenHost}
}

// WithToken sets a bearer token used for clones against the gated host.
// The token is passed as an http.extraheader config argument, never as a
// URL component, so it does not persist in the remote URL.
func (s *Syncer) WithToken(token string) *Syncer {
	s.token = token
	return s
}

// WithTokenHost overrides the URL prefix gating token injection.
func (s *Syncer) WithTokenHost(host string) *Syncer {
	s.tokenHost = host
	return s
}

// Dest returns the local path a spec synchronizes into.
func (s *Syncer) Dest(spec config.RepoSpec) string {
	return filepath.Join(s.root, spec.Name)
}

// Sync brings root/name to the spec's ref and returns the local path.
// Re-running with an unchanged manifest and remote is a no-op beyond the
// fetch: the working tree converges to the same ref.
func (s *Syncer) Sync(ctx context.Context, spec config.RepoSpec) (string, error) {
	dest := s.Dest(spec)

	if IsCloned(dest) {
		slog.Debug("Fetching repository", logfields.Repository(spec.Name), logfields.Path(dest))
		cmd := s.gitCommand(spec, "fetch", "--all", "--tags")
		cmd.Dir = dest
		if _, err := s.run.Run(ctx, cmd); err != nil {
			return "", &SyncError{Step: "fetch", Name: spec.Name, Err: err}
		}
	} else {
		slog.Debug("Cloning repository", logfields.Repository(spec.Name), logfields.URL(spec.URL), logfields.Path(dest))
		if _, err := s.run.Run(ctx, s.gitCommand(spec, "clone", spec.URL, dest)); err != nil {
			return "", &SyncError{Step: "clone", Name: spec.Name, Err: err}
		}
	}

	if _, err := s.run.Run(ctx, runner.Command{
		Argv: []string{"git", "checkout", "--force", spec.Ref},
		Dir:  dest,
	}); err != nil {
		return "", &SyncError{Step: "checkout", Name: spec.Name, Err: err}
	}

	if spec.Submodules {
		if _, err := s.run.Run(ctx, runner.Command{
			Argv: []string{"git", "submodule", "update", "--init", "--recursive"},
			Dir:  dest,
		}); err != nil {
			return "", &SyncError{Step: "submodules", Name: spec.Name, Err: err}
		}
	}

	if commit, err := HeadCommit(dest); err == nil {
		slog.Info("Repository synchronized",
			logfields.Repository(spec.Name),
			logfields.Ref(spec.Ref),
			slog.String("commit", commit),
			logfields.Path(dest))
	} else {
		slog.Info("Repository synchronized",
			logfields.Repository(spec.Name),
			logfields.Ref(spec.Ref),
			logfields.Path(dest))
	}

	return dest, nil
}

// gitCommand builds a git invocation, injecting the authorization header
// when the spec's URL targets the gated host. Clone and fetch both need it:
// the remote URL stays credential-free, so nothing is authenticated for free
// on later runs.
func (s *Syncer) gitCommand(spec config.RepoSpec, args ...string) runner.Command {
	if s.token != "" && strings.HasPrefix(spec.URL, s.tokenHost) {
		argv := append([]string{"git", "-c", "http.extraheader=AUTHORIZATION: bearer " + s.token}, args...)
		return runner.Command{Argv: argv, Redact: []string{s.token}}
	}
	return runner.Command{Argv: append([]string{"git"}, args...)}
}
