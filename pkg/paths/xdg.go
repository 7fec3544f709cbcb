// Package paths provides XDG-compliant path resolution for repoview.
//
// Resolution order:
// 1. REPOVIEW_HOME (portable root) → $REPOVIEW_HOME/{config,state}
// 2. XDG env vars → $XDG_*_HOME/repoview
// 3. Platform defaults → ~/.config/repoview, ~/.local/state/repoview
package paths

import (
	"os"
	"path/filepath"
)

const appName = "repoview"

// getConfigHome returns the base config home directory.
func getConfigHome() string {
	if home := os.Getenv("REPOVIEW_HOME"); home != "" {
		return filepath.Join(home, "config")
	}
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config")
	}
	return ""
}

// getStateHome returns the base state home directory.
func getStateHome() string {
	if home := os.Getenv("REPOVIEW_HOME"); home != "" {
		return filepath.Join(home, "state")
	}
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "state")
	}
	return ""
}

// ConfigDir returns the repoview configuration directory.
// Used for the global repoview.yml / repoview.toml.
func ConfigDir() string {
	base := getConfigHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appName)
}

// StateDir returns the repoview state directory.
func StateDir() string {
	base := getStateHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appName)
}

// LogDir returns the directory for default log files.
func LogDir() string {
	state := StateDir()
	if state == "" {
		return ""
	}
	return filepath.Join(state, "logs")
}
