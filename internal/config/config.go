// Package config loads the repository manifest and normalizes its entries
// into fully-defaulted provisioning specs.
package config

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Manifest is the parsed manifest document.
type Manifest struct {
	Repos []Entry `yaml:"repos"`
}

// Entry is the raw manifest form of a single repository. Pointer fields
// distinguish "absent" from an explicit zero value.
type Entry struct {
	Name        string            `yaml:"name"`
	URL         string            `yaml:"url"`
	Ref         string            `yaml:"ref,omitempty"`
	Editable    *bool             `yaml:"editable,omitempty"`
	Submodules  bool              `yaml:"submodules,omitempty"`
	Extras      []string          `yaml:"extras,omitempty"`
	Install     string            `yaml:"install,omitempty"`
	Path        string            `yaml:"path,omitempty"`
	Env         map[string]string `yaml:"env,omitempty"`
	PostInstall string            `yaml:"post_install,omitempty"`
}

// Load reads a manifest from a local file path or an http(s) URL.
// Environment variables referenced in the document are expanded, and
// .env/.env.local files are loaded first so they can participate.
func Load(pathOrURL string) (*Manifest, error) {
	loadEnvFiles()

	data, err := read(pathOrURL)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	// Unknown manifest fields are rejected rather than silently ignored.
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if err == io.EOF {
			return &Manifest{}, nil
		}
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

func read(pathOrURL string) ([]byte, error) {
	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		resp, err := http.Get(pathOrURL) //nolint:gosec // manifest location is operator-supplied
		if err != nil {
			return nil, fmt.Errorf("fetching manifest: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetching manifest: unexpected status %s", resp.Status)
		}
		return io.ReadAll(resp.Body)
	}

	data, err := os.ReadFile(pathOrURL)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return data, nil
}

// loadEnvFiles loads the first available .env file. Existing process
// environment variables are never overwritten.
func loadEnvFiles() {
	for _, p := range []string{".env", ".env.local"} {
		if err := godotenv.Load(p); err == nil {
			fmt.Fprintf(os.Stderr, "Loaded environment variables from %s\n", p)
			return
		}
	}
}

const starterManifest = `# provision manifest
repos:
  - name: example
    url: https://github.com/example/example.git
    ref: main
    install: pip
    editable: true
    extras: [dev]
`

// Init writes a starter manifest to the given path.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("manifest already exists: %s (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, []byte(starterManifest), 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}
