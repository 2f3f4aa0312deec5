package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func demoFile(t *testing.T, name string, seed string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	out, err := run(t, "demo", "--out", path, "--learners", "9", "--questions", "5", "--seed", seed)
	require.NoError(t, err)
	assert.Contains(t, out, "9 learners, 5 questions")
	return path
}

func TestAnalyze(t *testing.T) {
	path := demoFile(t, "markbook.xlsx", "42")

	out, err := run(t, "analyze", path)
	require.NoError(t, err)
	assert.Contains(t, out, "markbook.xlsx: 9 learners, class average")
	assert.Contains(t, out, "Insights:")
	assert.Contains(t, out, "Recommendations:")
	assert.Contains(t, out, "2.2")

	_, err = run(t, "analyze")
	assert.Error(t, err, "a file argument is required")
}

func TestAnalyze_MarkerOverride(t *testing.T) {
	path := demoFile(t, "markbook.xlsx", "42")
	_, err := run(t, "analyze", path, "--header-marker", "no such heading")
	assert.Error(t, err)
}

func TestReport(t *testing.T) {
	path := demoFile(t, "term2.xlsx", "42")
	dir := t.TempDir()

	out, err := run(t, "report", path, "--format", "md", "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "term2_dashboard.md")

	data, err := os.ReadFile(filepath.Join(dir, "term2_dashboard.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "## Insights")

	_, err = run(t, "report", path, "--format", "odt")
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	a := demoFile(t, "class_a.xlsx", "1")
	b := demoFile(t, "class_b.xlsx", "2")

	out, err := run(t, "compare", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "DIFFERENCE")
	assert.Contains(t, out, "1.1")
}

func TestThresholdsFlag(t *testing.T) {
	path := demoFile(t, "markbook.xlsx", "42")
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("thresholds:\n  low_performer_fraction: 3\n"), 0o644))

	_, err := run(t, "analyze", path, "--thresholds", bad)
	assert.Error(t, err)
}

func TestThresholdsFlag_EnvironmentWins(t *testing.T) {
	path := demoFile(t, "markbook.xlsx", "42")
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("thresholds:\n  low_performer_fraction: 3\n"), 0o644))
	t.Setenv("LOW_PERFORMER_FRACTION", "0.5")

	_, err := run(t, "analyze", path, "--thresholds", bad)
	assert.NoError(t, err)
}
