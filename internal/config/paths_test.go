package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDataPath_Default(t *testing.T) {
	t.Setenv("TASKTRACK_PATH", "")

	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatal(err)
	}

	got := DataPath()
	want := filepath.Join(home, ".tasktrack")
	if got != want {
		t.Errorf("DataPath() = %q, want %q", got, want)
	}
}

func TestDataPath_EnvOverride(t *testing.T) {
	t.Setenv("TASKTRACK_PATH", "/tmp/custom-tasktrack")

	if got := DataPath(); got != "/tmp/custom-tasktrack" {
		t.Errorf("DataPath() = %q, want %q", got, "/tmp/custom-tasktrack")
	}
}

func TestDerivedPaths(t *testing.T) {
	t.Setenv("TASKTRACK_PATH", "/tmp/test-tasktrack")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"config", ConfigPath(), "/tmp/test-tasktrack/config.jsonc"},
		{"dotenv", DotenvPath(), "/tmp/test-tasktrack/.env"},
		{"heartbeat", HeartbeatPath(), "/tmp/test-tasktrack/heartbeat.json"},
		{"log", LogPath(), "/tmp/test-tasktrack/tui.log"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}
