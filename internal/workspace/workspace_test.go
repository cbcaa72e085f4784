package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCreatesDirectory(t *testing.T) {
	base := filepath.Join(t.TempDir(), "nested", "repos")
	c := NewLocalCache(base)

	root, err := c.Root()
	require.NoError(t, err)

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRootIdempotent(t *testing.T) {
	c := NewLocalCache(t.TempDir())

	first, err := c.Root()
	require.NoError(t, err)
	second, err := c.Root()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRootIsAbsolute(t *testing.T) {
	t.Chdir(t.TempDir())
	c := NewLocalCache("relative-cache")

	root, err := c.Root()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(root))
}
