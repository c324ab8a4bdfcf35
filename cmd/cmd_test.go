package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)

	site := filepath.Join(dir, "site")
	require.NoError(t, os.MkdirAll(filepath.Join(site, "guide"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(site, "index.html"),
		[]byte("<html><body><main><h1>Hello</h1><p>World</p></main></body></html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(site, "guide", "index.html"),
		[]byte("<html><body><main><h1>Guide</h1></main></body></html>"), 0o644))

	out, err := execute(t, "convert", "--docs-dir", "/site", "--generate-md-files=false",
		"--ledger", filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "Aggregate file generated")

	data, err := os.ReadFile(filepath.Join(site, "llms.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Guide")
	assert.Contains(t, string(data), "# Hello")
	assert.NoFileExists(t, filepath.Join(site, "index.md"))
}

func TestConvertCommandMissingDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)

	_, err := execute(t, "convert", "--docs-dir", "nope", "--ledger", filepath.Join(dir, "runs.db"))
	require.Error(t, err)
}

func TestRunsCommandEmpty(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)

	out, err := execute(t, "runs", "--ledger", filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "No crawl runs recorded.")
}

func TestCrawlCommandRequiresAPIKey(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("FIRECRAWL_API_KEY", "")
	t.Chdir(dir)

	_, err := execute(t, "crawl", "--url", "https://example.com", "--ledger", filepath.Join(dir, "runs.db"))
	require.ErrorContains(t, err, "FIRECRAWL_API_KEY")
}

func TestVersionJSONCarriesBuildInfo(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)

	out, err := execute(t, "version", "--json")
	require.NoError(t, err)

	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	for _, key := range []string{"version", "git_commit", "go_version", "platform", "compiler", "is_modified"} {
		assert.Contains(t, info, key)
	}
}

func TestBuildInfoFoldedIntoVersion(t *testing.T) {
	for _, c := range rootCmd.Commands() {
		assert.NotEqual(t, "buildinfo", c.Name())
	}
}
