package config

import "fmt"

// InstallStrategy selects how a synchronized repository is installed.
type InstallStrategy string

const (
	InstallNone   InstallStrategy = "none"
	InstallPip    InstallStrategy = "pip"
	InstallUv     InstallStrategy = "uv"
	InstallPoetry InstallStrategy = "poetry"
)

// RepoSpec is the normalized, fully-defaulted description of one
// provisioning target. Immutable after normalization.
type RepoSpec struct {
	Name        string
	URL         string
	Ref         string
	Editable    bool
	Submodules  bool
	Extras      []string
	Install     InstallStrategy
	Path        string
	Env         map[string]string
	PostInstall string
}

// ManifestError reports a malformed or incomplete manifest entry. It is
// raised before any network or filesystem action is taken.
type ManifestError struct {
	Index  int
	Name   string
	Reason string
}

func (e *ManifestError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("manifest: repos[%d] (%s): %s", e.Index, e.Name, e.Reason)
	}
	return fmt.Sprintf("manifest: repos[%d]: %s", e.Index, e.Reason)
}

// Normalize validates every entry and applies defaults, producing the
// ordered spec list for a run. Duplicate names are rejected: a repeated
// name would silently reuse the same cache directory.
func Normalize(m *Manifest) ([]RepoSpec, error) {
	specs := make([]RepoSpec, 0, len(m.Repos))
	seen := make(map[string]bool, len(m.Repos))

	for i, e := range m.Repos {
		spec, err := normalizeEntry(i, e)
		if err != nil {
			return nil, err
		}
		if seen[spec.Name] {
			return nil, &ManifestError{Index: i, Name: spec.Name, Reason: "duplicate name"}
		}
		seen[spec.Name] = true
		specs = append(specs, spec)
	}
	return specs, nil
}

func normalizeEntry(i int, e Entry) (RepoSpec, error) {
	if e.Name == "" {
		return RepoSpec{}, &ManifestError{Index: i, Reason: "name is required"}
	}
	if e.URL == "" {
		return RepoSpec{}, &ManifestError{Index: i, Name: e.Name, Reason: "url is required"}
	}

	spec := RepoSpec{
		Name:        e.Name,
		URL:         e.URL,
		Ref:         e.Ref,
		Editable:    true,
		Submodules:  e.Submodules,
		Extras:      e.Extras,
		Install:     InstallPip,
		Path:        e.Path,
		Env:         e.Env,
		PostInstall: e.PostInstall,
	}

	if spec.Ref == "" {
		spec.Ref = "main"
	}
	if e.Editable != nil {
		spec.Editable = *e.Editable
	}
	if spec.Extras == nil {
		spec.Extras = []string{}
	}
	if e.Install != "" {
		spec.Install = InstallStrategy(e.Install)
	}
	switch spec.Install {
	case InstallNone, InstallPip, InstallUv, InstallPoetry:
	default:
		return RepoSpec{}, &ManifestError{Index: i, Name: e.Name, Reason: fmt.Sprintf("unknown install strategy %q", e.Install)}
	}
	if spec.Path == "" {
		spec.Path = "."
	}
	if spec.Env == nil {
		spec.Env = map[string]string{}
	}

	return spec, nil
}
