package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootHelp(t *testing.T) {
	out, err := run(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "serve")
	assert.Contains(t, out, "migrate")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "habits dev"), out)
}

func TestMigrateUpThenStatus(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-test")
	path := filepath.Join(t.TempDir(), "habits.db")
	cfgPath := filepath.Join(t.TempDir(), "missing.json")

	out, err := run(t, "--config", cfgPath, "--db", path, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "Applied migration 001")
	assert.Contains(t, out, "Applied migration 004")

	out, err = run(t, "--config", cfgPath, "--db", path, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema is up to date")

	out, err = run(t, "--config", cfgPath, "--db", path, "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "create_entries")
	assert.NotContains(t, out, "pending")
}

func TestMigrateRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.json"), "--db", filepath.Join(t.TempDir(), "x.db"), "migrate", "status")
	assert.Error(t, err)
}
