package config

import (
	"os"
	"path/filepath"
)

// appDirName is the directory name under the user config/state roots.
const appDirName = "shopbulk"

// DefaultConfigPath returns the default config file location,
// ~/.config/shopbulk/config.toml (respecting XDG_CONFIG_HOME).
func DefaultConfigPath() string {
	return filepath.Join(configRoot(), appDirName, "config.toml")
}

// DefaultHistoryPath returns the default run-history database location,
// ~/.local/state/shopbulk/history.db (respecting XDG_STATE_HOME).
func DefaultHistoryPath() string {
	if root := os.Getenv("XDG_STATE_HOME"); root != "" {
		return filepath.Join(root, appDirName, "history.db")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", appDirName, "history.db")
	}

	return filepath.Join(home, ".local", "state", appDirName, "history.db")
}

func configRoot() string {
	if root := os.Getenv("XDG_CONFIG_HOME"); root != "" {
		return root
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}

	return dir
}
