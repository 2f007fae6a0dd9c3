package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/koios/lockscreenr/pkg/models"
)

func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestPresetsCommand_Table(t *testing.T) {
	stdout, _, err := executeCommand(t, "presets")
	require.NoError(t, err)
	require.Contains(t, stdout, "NAME")
	require.Contains(t, stdout, "iOS Default")
	require.Contains(t, stdout, "WearOS Default")
	require.Contains(t, stdout, "built-in")
}

func TestPresetsCommand_JSON(t *testing.T) {
	stdout, _, err := executeCommand(t, "presets", "--json")
	require.NoError(t, err)

	var presets []models.PresetSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &presets))
	require.GreaterOrEqual(t, len(presets), 5)
}

func TestExportThenValidate(t *testing.T) {
	out := filepath.Join(t.TempDir(), models.ExportFileName)

	_, stderr, err := executeCommand(t, "export", "--preset", "Android Default", "--out", out)
	require.NoError(t, err)
	require.Contains(t, stderr, "wrote")

	stdout, _, err := executeCommand(t, "validate", "--strict", out)
	require.NoError(t, err)
	require.Contains(t, stdout, "ok: pixel/android")
}

func TestValidateCommand_Rejects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"device":"iphone"}`), 0o644))

	_, _, err := executeCommand(t, "validate", path)
	require.ErrorIs(t, err, models.ErrInvalidConfigFile)

	_, _, err = executeCommand(t, "validate")
	require.Error(t, err)
}

func TestExportCommand_UnknownPreset(t *testing.T) {
	_, _, err := executeCommand(t, "export", "--preset", "Nope")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown preset")
}

func TestRenderCommand(t *testing.T) {
	stdout, _, err := executeCommand(t, "render", "--preset", "iOS Default", "--at", "2026-10-19T09:41:00Z")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(strings.TrimSpace(stdout), "<!DOCTYPE html>") || strings.Contains(stdout, "<html"))
	require.Contains(t, stdout, "Monday, October 19")
	require.NotContains(t, stdout, "EventSource", "static previews must not open a live stream")
}

func TestRenderCommand_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "config.json")
	_, _, err := executeCommand(t, "export", "--preset", "WearOS Default", "--out", out)
	require.NoError(t, err)

	stdout, _, err := executeCommand(t, "render", "--config", out, "--fragment")
	require.NoError(t, err)
	require.NotContains(t, stdout, "<html")
	require.NotEmpty(t, strings.TrimSpace(stdout))
}

func TestRenderCommand_Exclusive(t *testing.T) {
	_, _, err := executeCommand(t, "render", "--preset", "iOS Default", "--config", "x.json")
	require.Error(t, err)
}

func TestPushCommand_RequiresInput(t *testing.T) {
	_, _, err := executeCommand(t, "push", "some-session")
	require.Error(t, err)
	require.Contains(t, err.Error(), "nothing to push")
}

func TestPushCommand_RejectsInvalidBeforeConnecting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o644))

	_, _, err := executeCommand(t, "push", "some-session", path, "--redis-addr", "localhost:1")
	require.ErrorIs(t, err, models.ErrInvalidConfigFile)
}
