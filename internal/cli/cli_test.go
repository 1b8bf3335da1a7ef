package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the command tree with defaults-only config.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd("test")
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.toml"), "--today", "2026-01-01"}, args...))
	err := root.Execute()
	return out.String(), err
}

// writeTemplate instantiates a built-in template into dir.
func writeTemplate(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	_, err := run(t, "template", "apply", "career-switch", "-o", path)
	require.NoError(t, err)
	return path
}

func TestTemplateList(t *testing.T) {
	out, err := run(t, "template", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "career-switch")
	assert.Contains(t, out, "KEY")
}

func TestTemplateApplyUnknown(t *testing.T) {
	_, err := run(t, "template", "apply", "astronaut")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplate(t, dir, "plan.yaml")

	out, err := run(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "nodes")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"nodes":[],"connections":[{"id":"c1","sourceId":"a","targetId":"b"}]}`), 0o644))
	_, err = run(t, "validate", bad)
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplate(t, dir, "plan.json")
	svg := filepath.Join(dir, "plan.svg")

	_, err := run(t, "render", path, "-o", svg, "--type", "goal")
	require.NoError(t, err)

	data, err := os.ReadFile(svg)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<svg"))

	_, err = run(t, "render", path, "--type", "epic")
	assert.Error(t, err)
}

func TestStatsAndCalendar(t *testing.T) {
	path := writeTemplate(t, t.TempDir(), "plan.json")

	out, err := run(t, "stats", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Nodes:")
	assert.Contains(t, out, "goal")

	out, err = run(t, "calendar", path)
	require.NoError(t, err)
	assert.Contains(t, out, "2026-")
	assert.Contains(t, out, "Land a role in the new field")
}

func TestInvalidToday(t *testing.T) {
	path := writeTemplate(t, t.TempDir(), "plan.json")
	_, err := run(t, "stats", path, "--today", "01/02/2026")
	assert.Error(t, err)
}

func TestPlansLifecycle(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "plans.db")
	path := writeTemplate(t, dir, "switch.json")

	out, err := run(t, "plans", "list", "--dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "No plans stored")

	out, err = run(t, "plans", "save", path, "--dsn", dsn, "--title", "Switch")
	require.NoError(t, err)
	assert.Contains(t, out, "saved switch v1")

	out, err = run(t, "plans", "save", path, "--dsn", dsn, "--id", "switch", "--reason", "tweak")
	require.NoError(t, err)
	assert.Contains(t, out, "saved switch v2")

	out, err = run(t, "plans", "history", "switch", "--dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "2*")
	assert.Contains(t, out, "tweak")

	out, err = run(t, "plans", "restore", "switch", "1", "--dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "restored switch v1 as v3")

	_, err = run(t, "plans", "restore", "switch", "9", "--dsn", dsn)
	assert.Error(t, err)

	exportDir := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(exportDir, 0o755))
	_, err = run(t, "plans", "export", "switch", "--dsn", dsn, "--dir", exportDir, "--format", "yaml")
	require.NoError(t, err)
	exported := filepath.Join(exportDir, "switch.yaml")
	require.FileExists(t, exported)

	out, err = run(t, "plans", "import", exported, "--dsn", dsn, "--id", "copy")
	require.NoError(t, err)
	assert.Contains(t, out, "imported copy v1")

	out, err = run(t, "plans", "list", "--dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "switch")
	assert.Contains(t, out, "copy")

	_, err = run(t, "plans", "history", "missing", "--dsn", dsn)
	assert.Error(t, err)
}
