package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("REPOVIEW_TEST_DIR", "projects")

	got, err := Expand("~/src")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "src"), got)

	got, err = Expand("~")
	require.NoError(t, err)
	assert.Equal(t, home, got)

	got, err = Expand("/data/$REPOVIEW_TEST_DIR")
	require.NoError(t, err)
	assert.Equal(t, "/data/projects", got)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	got, err = Expand("rel")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "rel"), got)
}

func TestCanonical(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	target := filepath.Join(dir, "repo")
	require.NoError(t, os.Mkdir(target, 0o755))
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(target, link))

	got, err := Canonical(link)
	require.NoError(t, err)
	assert.Equal(t, target, got)

	got, err = Canonical("/only/on/the/backend")
	require.NoError(t, err)
	assert.Equal(t, "/only/on/the/backend", got)
}
