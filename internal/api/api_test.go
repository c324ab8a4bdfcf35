package api

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesh254/llmstxt/internal/config"
	"github.com/tesh254/llmstxt/internal/crawlrun"
	"github.com/tesh254/llmstxt/internal/markdown"
	"github.com/tesh254/llmstxt/internal/sitemap"
	"github.com/tesh254/llmstxt/internal/storage"
)

type fakeCrawler struct {
	result *crawlrun.Result
	err    error
	gotURL string
	gotOpt crawlrun.Options
}

func (f *fakeCrawler) Crawl(_ context.Context, url string, opts crawlrun.Options) (*crawlrun.Result, error) {
	f.gotURL, f.gotOpt = url, opts
	return f.result, f.err
}

func clock() time.Time { return time.Date(2024, 12, 22, 16, 12, 50, 0, time.UTC) }

func newStorage(t *testing.T) *storage.Storage {
	t.Helper()
	st, err := storage.NewStorage(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestCrawlPersistsAndRecords(t *testing.T) {
	root := filepath.Join(t.TempDir(), "crawled")
	crawler := &fakeCrawler{result: &crawlrun.Result{
		Success: true, Status: "completed", Completed: 1, Total: 1, CreditsUsed: 1,
		Data: []crawlrun.Page{{HTML: "<p>x</p>", Markdown: "x", Metadata: map[string]any{"title": "X", "url": "https://x"}}},
	}}
	st := newStorage(t)
	a := NewAPI(Deps{Crawler: crawler, Writer: crawlrun.NewWriter(root, crawlrun.WithClock(clock)), Storage: st})

	opts := crawlrun.Options{Limit: 5, Formats: []string{"markdown"}}
	out, err := a.Crawl(context.Background(), "https://x", opts)
	require.NoError(t, err)
	assert.Equal(t, "https://x", crawler.gotURL)
	assert.Equal(t, opts, crawler.gotOpt)
	require.NotNil(t, out.Run)
	assert.DirExists(t, out.Run.Dir)

	latest, err := a.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, out.Run.ID, latest.ID)
	assert.Equal(t, out.Run.Dir, latest.Dir)
	assert.Equal(t, 1, latest.Pages)

	require.NoError(t, a.DeleteRun(out.Run.ID))
	require.ErrorIs(t, a.DeleteRun(out.Run.ID), storage.ErrNotFound)
	n, err := a.CleanRuns()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.DirExists(t, out.Run.Dir)
}

func TestCrawlFailureWritesNothing(t *testing.T) {
	root := filepath.Join(t.TempDir(), "crawled")
	a := NewAPI(Deps{
		Crawler: &fakeCrawler{result: &crawlrun.Result{Success: false, Status: "failed", Error: "Invalid URL"}},
		Writer:  crawlrun.NewWriter(root),
	})

	out, err := a.Crawl(context.Background(), "https://invalid-url", crawlrun.DefaultOptions())
	require.ErrorIs(t, err, ErrCrawlFailed)
	assert.Contains(t, err.Error(), "Invalid URL")
	require.NotNil(t, out)
	assert.Nil(t, out.Run)
	assert.NoDirExists(t, root)
}

func TestCrawlTransportError(t *testing.T) {
	a := NewAPI(Deps{Crawler: &fakeCrawler{err: errors.New("API Error")}, Writer: crawlrun.NewWriter(t.TempDir())})

	_, err := a.Crawl(context.Background(), "https://example.com", crawlrun.DefaultOptions())
	require.ErrorContains(t, err, "API Error")
}

func TestCrawlNotConfigured(t *testing.T) {
	_, err := NewAPI(Deps{}).Crawl(context.Background(), "https://x", crawlrun.DefaultOptions())
	require.Error(t, err)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestConvertDocsAggregatesAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.html"), "a")
	writeFile(t, filepath.Join(dir, "b", "c.html"), "c")

	conv := markdown.ConverterFunc(func(_ context.Context, path string) (string, error) {
		return "preamble\n# " + filepath.Base(path), nil
	})
	a := NewAPI(Deps{Converter: conv})

	out, err := a.ConvertDocs(context.Background(), config.Convert{
		DocsDir: dir, Aggregate: true, AggregateName: "llms.txt", KeepMarkdown: false,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Report.Succeeded)
	assert.True(t, out.Removed)
	assert.Equal(t, filepath.Join(dir, "llms.txt"), out.Aggregate)

	data, err := os.ReadFile(out.Aggregate)
	require.NoError(t, err)
	assert.Equal(t, "# a.html\n\n# c.html\n\n", string(data))
	assert.NoFileExists(t, filepath.Join(dir, "a.md"))
	assert.NoFileExists(t, filepath.Join(dir, "b", "c.md"))
}

func TestConvertDocsKeepsMarkdownWithoutAggregate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.html"), "a")

	conv := markdown.ConverterFunc(func(context.Context, string) (string, error) { return "# A", nil })
	out, err := NewAPI(Deps{Converter: conv}).ConvertDocs(context.Background(), config.Convert{
		DocsDir: dir, KeepMarkdown: true, AggregateName: "llms.txt",
	})
	require.NoError(t, err)
	assert.Empty(t, out.Aggregate)
	assert.False(t, out.Removed)
	assert.FileExists(t, filepath.Join(dir, "a.md"))
	assert.NoFileExists(t, filepath.Join(dir, "llms.txt"))
}

func TestConvertDocsInvalidDir(t *testing.T) {
	_, err := NewAPI(Deps{}).ConvertDocs(context.Background(), config.Convert{DocsDir: filepath.Join(t.TempDir(), "missing")})
	require.ErrorIs(t, err, markdown.ErrNotDirectory)
}

func TestGenerateIndex(t *testing.T) {
	dir := t.TempDir()
	sitemapPath := filepath.Join(dir, "sitemap.xml")
	writeFile(t, sitemapPath, `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
		<url><loc>https://example.com/docling/</loc></url>
		<url><loc>https://example.com/docling/page1</loc></url>
	</urlset>`)

	cfg := config.Index{Sitemap: sitemapPath, Output: filepath.Join(dir, "llms.txt"), Title: "Docling Documentation"}
	doc, err := NewAPI(Deps{}).GenerateIndex(context.Background(), cfg, sitemap.Placeholder{})
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	assert.Equal(t, doc, string(data))
	assert.Equal(t, 1, strings.Count(doc, "\n- "))
}

func TestIndexSummarizer(t *testing.T) {
	assert.IsType(t, sitemap.Placeholder{}, IndexSummarizer(config.Index{}))

	chain, ok := IndexSummarizer(config.Index{DocsDir: "site", WorkerURL: "http://worker"}).(sitemap.Chain)
	require.True(t, ok)
	assert.Len(t, chain, 2)
}

func TestRunsWithoutStorage(t *testing.T) {
	_, err := NewAPI(Deps{}).Runs(10)
	require.ErrorIs(t, err, ErrNoHistory)
	_, err = NewAPI(Deps{}).LatestRun()
	require.ErrorIs(t, err, ErrNoHistory)
}
