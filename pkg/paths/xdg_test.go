package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepoviewHomeOverridesXDG(t *testing.T) {
	t.Setenv("REPOVIEW_HOME", "/tmp/rv")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	assert.Equal(t, filepath.Join("/tmp/rv", "config", "repoview"), ConfigDir())
	assert.Equal(t, filepath.Join("/tmp/rv", "state", "repoview"), StateDir())
	assert.Equal(t, filepath.Join("/tmp/rv", "state", "repoview", "logs"), LogDir())
}

func TestXDGDirs(t *testing.T) {
	t.Setenv("REPOVIEW_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	t.Setenv("XDG_STATE_HOME", "/tmp/xdg-state")

	assert.Equal(t, filepath.Join("/tmp/xdg-config", "repoview"), ConfigDir())
	assert.Equal(t, filepath.Join("/tmp/xdg-state", "repoview"), StateDir())
}
