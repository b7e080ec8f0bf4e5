package paths_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Elizarfish/infinite-context/internal/paths"
)

func TestDataDirDefaultsUnderHome(t *testing.T) {
	t.Setenv("INFINITE_CONTEXT_DIR", "")
	assert.Contains(t, paths.DataDir(), filepath.Join(".claude", "infinite-context"))
}

func TestDataDirHonorsOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("INFINITE_CONTEXT_DIR", dir)
	assert.Equal(t, dir, paths.DataDir())
}

func TestDatabasePathDerivesFromDataDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("INFINITE_CONTEXT_DIR", dir)
	t.Setenv("INFINITE_CONTEXT_DB", "")
	assert.Equal(t, filepath.Join(dir, "memories.db"), paths.DatabasePath())
}

func TestDatabasePathOverrideIsIndependentOfDataDir(t *testing.T) {
	t.Setenv("INFINITE_CONTEXT_DIR", t.TempDir())
	override := filepath.Join(t.TempDir(), "custom.db")
	t.Setenv("INFINITE_CONTEXT_DB", override)
	assert.Equal(t, override, paths.DatabasePath())
}

func TestConfigAndRateLimitPathsDeriveFromDataDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("INFINITE_CONTEXT_DIR", dir)
	assert.Equal(t, filepath.Join(dir, "config.json"), paths.ConfigPath())
	assert.Equal(t, filepath.Join(dir, "prompt-state.json"), paths.RateLimitStatePath())
}

func TestEnsureCreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	t.Setenv("INFINITE_CONTEXT_DIR", dir)
	got, err := paths.Ensure()
	assert.NoError(t, err)
	assert.Equal(t, dir, got)
	assert.DirExists(t, dir)
}
