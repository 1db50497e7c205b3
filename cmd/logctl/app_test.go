package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"logctl"}, args...))
	return out.String(), err
}

func TestSweep_DryRun(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-60 * 24 * time.Hour)
	path := filepath.Join(dir, "app-2020-01-01.log")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0644))
	require.NoError(t, os.Chtimes(path, old, old))

	out, err := run(t, "--dir", dir, "sweep", "--days", "30", "--dry-run")
	require.NoError(t, err)

	var result struct {
		Deleted []string `json:"deleted"`
		Scanned int      `json:"scanned"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, []string{"app-2020-01-01.log"}, result.Deleted)
	assert.Equal(t, 1, result.Scanned)

	_, err = os.Stat(path)
	assert.NoError(t, err, "dry run must not delete")

	_, err = run(t, "--dir", dir, "sweep", "--days", "30")
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSweep_MissingDirectory(t *testing.T) {
	_, err := run(t, "--dir", filepath.Join(t.TempDir(), "nope"), "sweep")
	assert.Error(t, err)
}

func TestEmit_SecurityEvent(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "--dir", dir, "emit", "--env", "production",
		"--security", "brute_force", "--meta", "ip=10.0.0.7", "--meta", "password=hunter2", "--meta", "attempts=5")
	require.NoError(t, err)

	files, err := filepath.Glob(filepath.Join(dir, "*.log"))
	require.NoError(t, err)
	var kinds []string
	for _, f := range files {
		base := filepath.Base(f)
		kinds = append(kinds, base[:strings.Index(base, "-")])

		data, err := os.ReadFile(f)
		require.NoError(t, err)
		var entry map[string]any
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
		meta := entry["metadata"].(map[string]any)
		assert.Equal(t, "Security Event: brute_force", entry["message"])
		assert.Equal(t, "10.0.0.xxx", meta["ip"])
		assert.Equal(t, "[REDACTED]", meta["password"])
		assert.EqualValues(t, 5, meta["attempts"])
	}
	assert.ElementsMatch(t, []string{"app", "warn", "security"}, kinds)
}

func TestEmit_RejectsUnknownLevel(t *testing.T) {
	_, err := run(t, "--dir", t.TempDir(), "emit", "--env", "production", "--level", "loud", "--message", "x")
	assert.Error(t, err)
}

func TestParseMeta(t *testing.T) {
	meta, err := parseMeta([]string{"n=3", "ok=true", "name=alice", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": float64(3), "ok": true, "name": "alice", "empty": ""}, meta)

	_, err = parseMeta([]string{"novalue"})
	assert.Error(t, err)
}
