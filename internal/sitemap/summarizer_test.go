package sitemap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLocalSummarizerMetaDescription(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "installation", "index.html"),
		`<html><head><meta name="description" content="How to install the tool"></head><body></body></html>`)

	s := NewLocalSummarizer(dir)
	summary, err := s.Summarize(context.Background(), "https://example.com/docling/installation/")
	require.NoError(t, err)
	assert.Equal(t, "How to install the tool", summary)
}

func TestLocalSummarizerFirstParagraph(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "usage.html"), `<html><body><p>x</p></body></html>`)
	writeFile(t, filepath.Join(dir, "usage.md"), "# Usage\n\nRun the **convert** command\non your site.\n\nMore text.")

	summary, err := NewLocalSummarizer(dir).Summarize(context.Background(), "https://example.com/usage")
	require.NoError(t, err)
	assert.Equal(t, "Run the convert command on your site.", summary)
}

func TestLocalSummarizerMissingPage(t *testing.T) {
	_, err := NewLocalSummarizer(t.TempDir()).Summarize(context.Background(), "https://example.com/missing")
	require.ErrorIs(t, err, ErrNoSummary)
}

func TestLocalSummarizerPageText(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "guide", "index.html"), `<html><body><main><h1>Guide</h1><p>Steps</p></main></body></html>`)

	s := NewLocalSummarizer(dir)
	text, err := s.PageText(context.Background(), "https://example.com/guide/")
	require.NoError(t, err)
	assert.Contains(t, text, "# Guide")

	writeFile(t, filepath.Join(dir, "guide", "index.md"), "cached markdown")
	text, err = s.PageText(context.Background(), "https://example.com/guide/")
	require.NoError(t, err)
	assert.Equal(t, "cached markdown", text)

	_, err = s.PageText(context.Background(), "https://example.com/nowhere")
	require.ErrorIs(t, err, ErrNoSummary)
}

func TestChain(t *testing.T) {
	failing := SummarizerFunc(func(context.Context, string) (string, error) {
		return "", errors.New("unavailable")
	})
	empty := SummarizerFunc(func(context.Context, string) (string, error) { return "", nil })

	summary, err := Chain{failing, empty, Placeholder{}}.Summarize(context.Background(), "https://x")
	require.NoError(t, err)
	assert.Equal(t, PlaceholderSummary, summary)

	_, err = Chain{failing, empty}.Summarize(context.Background(), "https://x")
	require.EqualError(t, err, "unavailable")

	_, err = Chain{}.Summarize(context.Background(), "https://x")
	require.ErrorIs(t, err, ErrNoSummary)
}

func TestFirstParagraph(t *testing.T) {
	assert.Equal(t, "", FirstParagraph([]byte("# Only a heading")))
	assert.Equal(t, "Plain intro with code.", FirstParagraph([]byte("Plain intro with `code`.")))
}
