package config

import (
	"os"
	"path/filepath"
)

// DataPath returns the root directory for tasktrack data.
// It uses $TASKTRACK_PATH if set, otherwise defaults to ~/.tasktrack.
func DataPath() string {
	if v := os.Getenv("TASKTRACK_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".tasktrack")
	}
	return filepath.Join(home, ".tasktrack")
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(DataPath(), "config.jsonc")
}

// DotenvPath returns the path to the .env file.
func DotenvPath() string {
	return filepath.Join(DataPath(), ".env")
}

// HeartbeatPath returns the path of the liveness file written by `serve`.
func HeartbeatPath() string {
	return filepath.Join(DataPath(), "heartbeat.json")
}

// LogPath returns the file the TUI logs to.
func LogPath() string {
	return filepath.Join(DataPath(), "tui.log")
}
