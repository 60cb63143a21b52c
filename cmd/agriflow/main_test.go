package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI with args and returns what it printed to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, logLevel, storeKind, seed = "", "", "", 0

	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "agriflow.yaml")
	content := fmt.Sprintf(`
log:
  level: error
storage:
  backend: file
  dir: %s
market:
  seed: 11
`, filepath.Join(dir, "data"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "agriflow version "+version)
}

func TestPricesWithoutStoredState(t *testing.T) {
	out, err := execute(t, "prices", "--store", "memory", "--log-level", "error")
	require.NoError(t, err)
	for _, name := range []string{"Maize", "Soybean", "Cocoa", "Fertilizer (UREA)"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "42.00")
}

func TestRefreshPersistsBetweenRuns(t *testing.T) {
	cfg := writeConfig(t)

	refreshed, err := execute(t, "refresh", "-n", "3", "--config", cfg)
	require.NoError(t, err)

	stored, err := execute(t, "prices", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, refreshed, stored)
}

func TestRefreshRejectsBadCount(t *testing.T) {
	_, err := execute(t, "refresh", "-n", "0", "--store", "memory")
	assert.Error(t, err)
}

func TestExportResetImport(t *testing.T) {
	cfg := writeConfig(t)
	backup := filepath.Join(t.TempDir(), "backup.json")

	_, err := execute(t, "refresh", "--config", cfg)
	require.NoError(t, err)
	before, err := execute(t, "prices", "--config", cfg)
	require.NoError(t, err)

	_, err = execute(t, "export", backup, "--config", cfg)
	require.NoError(t, err)
	require.FileExists(t, backup)

	out, err := execute(t, "reset", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 2 keys")

	out, err = execute(t, "import", backup, "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "agriflow_market")

	after, err := execute(t, "prices", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestImportRejectsEmptyBackup(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(backup, []byte(`{"other": 1}`), 0o644))

	_, err := execute(t, "import", backup, "--store", "memory", "--log-level", "error")
	assert.Error(t, err)
}

func TestWeatherCmd(t *testing.T) {
	out, err := execute(t, "weather", "--store", "memory", "--lat", "0", "--lon", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Climate risk:")

	_, err = execute(t, "weather", "--store", "memory", "--lat", "120")
	assert.Error(t, err)
}

func TestProjectAndBrief(t *testing.T) {
	out, err := execute(t, "project", "--store", "memory", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Total")
	assert.Contains(t, out, "Wheat")

	out, err = execute(t, "brief", "--raw", "--store", "memory", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Market brief")
}

func TestBadConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage: [oops"), 0o644))

	_, err := execute(t, "prices", "--config", path)
	assert.Error(t, err)
}
