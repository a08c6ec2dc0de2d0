package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{
		"info.json",
		"b/info.json",
		"a/deeply/nested/pkg/info.json",
		"a/info.json",
		"build/_deps/x/info.json",
	} {
		writeFile(t, root, p, "{}")
	}
	writeFile(t, root, "c/info.json.bak", "")
	writeFile(t, root, "d/info.json/keep", "") // a directory named like the descriptor

	found, err := Discover(root, "info.json", false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"a/deeply/nested/pkg/info.json",
		"a/info.json",
		"b/info.json",
		"build/_deps/x/info.json",
		"info.json",
	}, found)
}

func TestDiscoverEmpty(t *testing.T) {
	found, err := Discover(t.TempDir(), "info.json", false)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestDiscoverRespectsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "# generated\nbuild/\n*.tmp\n")
	writeFile(t, root, "examples/.gitignore", "scratch\n")
	for _, p := range []string{
		"core/info.json",
		"build/_deps/x/info.json",
		"examples/a/info.json",
		"examples/scratch/info.json",
		"scratch/info.json",
	} {
		writeFile(t, root, p, "{}")
	}

	found, err := Discover(root, "info.json", true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"core/info.json",
		"examples/a/info.json",
		"scratch/info.json",
	}, found)

	all, err := Discover(root, "info.json", false)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func symlink(t *testing.T, target, link string) {
	t.Helper()
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
}

func TestDiscoverDoesNotFollowSymlinks(t *testing.T) {
	t.Run("loop", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "a/info.json", "{}")
		symlink(t, "..", filepath.Join(root, "a", "loop"))

		found, err := Discover(root, "info.json", false)
		require.NoError(t, err)
		assert.Equal(t, []string{"a/info.json"}, found)
	})

	t.Run("alias", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "real/info.json", "{}")
		symlink(t, "real", filepath.Join(root, "alias"))

		found, err := Discover(root, "info.json", false)
		require.NoError(t, err)
		assert.Equal(t, []string{"real/info.json"}, found)

		found, err = Discover(root, "info.json", true)
		require.NoError(t, err)
		assert.Equal(t, []string{"real/info.json"}, found)
	})
}
