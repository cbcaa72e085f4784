// Package workspace manages the persistent directory repositories are
// provisioned into. Clones survive across runs; re-provisioning fetches
// instead of recloning.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/provision/internal/logfields"
)

// LocalCache provides a repository cache root on the local filesystem.
// A remote-mounted cache satisfies the same capability interface; mounting
// it is an external concern.
type LocalCache struct {
	baseDir string
	created bool
}

// NewLocalCache creates a cache rooted at baseDir. An empty baseDir selects
// the user cache directory, falling back to the system temp directory.
func NewLocalCache(baseDir string) *LocalCache {
	if baseDir == "" {
		if ucd, err := os.UserCacheDir(); err == nil {
			baseDir = filepath.Join(ucd, "provision", "repos")
		} else {
			baseDir = filepath.Join(os.TempDir(), "provision-repos")
		}
	}
	return &LocalCache{baseDir: baseDir}
}

// Root ensures the cache directory exists and returns its absolute path.
func (c *LocalCache) Root() (string, error) {
	abs, err := filepath.Abs(c.baseDir)
	if err != nil {
		return "", fmt.Errorf("resolving cache root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return "", fmt.Errorf("creating cache root: %w", err)
	}
	if !c.created {
		slog.Info("Using repository cache", logfields.Path(abs))
		c.created = true
	}
	return abs, nil
}
