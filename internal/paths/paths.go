// Package paths resolves the on-disk layout shared by the CLI, the hook
// binaries, and the dashboard: a single data root holding the memory
// database, the config file, and the advisory rate-limiter state file.
package paths

import (
	"os"
	"path/filepath"
)

// envDataDir overrides the default data root.
const envDataDir = "INFINITE_CONTEXT_DIR"

// envDatabasePath overrides the sqlite file path directly, independent of
// envDataDir.
const envDatabasePath = "INFINITE_CONTEXT_DB"

// DataDir resolves the data root: INFINITE_CONTEXT_DIR if set, else
// ~/.claude/infinite-context/.
func DataDir() string {
	if dir := os.Getenv(envDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".claude", "infinite-context")
	}
	return filepath.Join(home, ".claude", "infinite-context")
}

// Ensure creates the data root (and any missing parents) if it does not
// already exist.
func Ensure() (string, error) {
	dir := DataDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// DatabasePath is the sqlite file holding all memories, checkpoints, and
// sessions. INFINITE_CONTEXT_DB, if set, overrides it directly; otherwise
// it lives under the data root.
func DatabasePath() string {
	if override := os.Getenv(envDatabasePath); override != "" {
		return override
	}
	return filepath.Join(DataDir(), "memories.db")
}

// ConfigPath is the JSON configuration file.
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.json")
}

// RateLimitStatePath is the advisory per-project recall rate-limit state
// file.
func RateLimitStatePath() string {
	return filepath.Join(DataDir(), "prompt-state.json")
}
