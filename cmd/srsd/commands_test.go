package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, driver, url string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf(`server:
  log_level: error
database:
  driver: %s
  url: %q
auth:
  jwt_secret: %s
`, driver, url, testSecret)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrateAndSeedCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "srs.db")
	cfgPath := writeConfig(t, driverSQLite, dbPath)

	_, err := execute(t, "--config", cfgPath, "migrate", "up")
	require.NoError(t, err)

	_, err = execute(t, "--config", cfgPath, "migrate", "status")
	require.NoError(t, err)

	cards := filepath.Join(t.TempDir(), "cards.json")
	require.NoError(t, os.WriteFile(cards, []byte(`[{"term":"uno","definition":"one"}]`), 0o600))

	out, err := execute(t, "--config", cfgPath, "seed",
		"--owner", uuid.NewString(), "--title", "Numbers", "--file", cards)
	require.NoError(t, err)
	assert.Contains(t, out, "with 1 cards")
}

func TestMigrateCommandRejectsUnknownAction(t *testing.T) {
	cfgPath := writeConfig(t, driverSQLite, filepath.Join(t.TempDir(), "srs.db"))
	_, err := execute(t, "--config", cfgPath, "migrate", "sideways")
	assert.Error(t, err)
}

func TestSeedCommandRejectsMemoryDriver(t *testing.T) {
	cfgPath := writeConfig(t, driverMemory, "")
	_, err := execute(t, "--config", cfgPath, "seed",
		"--owner", uuid.NewString(), "--title", "Numbers", "--file", "unused.json")
	assert.ErrorContains(t, err, "memory driver")
}

func TestMissingConfigFile(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "migrate", "up")
	assert.ErrorContains(t, err, "failed to load configuration")
}
