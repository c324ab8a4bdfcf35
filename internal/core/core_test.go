package core

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesh254/llmstxt/internal/api"
	"github.com/tesh254/llmstxt/internal/config"
	"github.com/tesh254/llmstxt/internal/crawlrun"
	"github.com/tesh254/llmstxt/internal/logger"
	"github.com/tesh254/llmstxt/internal/markdown"
	"github.com/tesh254/llmstxt/internal/storage"
)

type stubCrawler struct{ result *crawlrun.Result }

func (s stubCrawler) Crawl(context.Context, string, crawlrun.Options) (*crawlrun.Result, error) {
	return s.result, nil
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestConvertDocsTool(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>Hi</h1>"), 0o644))

	conv := markdown.ConverterFunc(func(context.Context, string) (string, error) { return "# Hi", nil })
	s := NewServer(api.NewAPI(api.Deps{Converter: conv}), Defaults{
		Convert: config.Convert{DocsDir: dir, Aggregate: true, AggregateName: "llms.txt"},
	}, nil)

	keep := true
	res, _, err := s.convertDocs(context.Background(), nil, ConvertDocsArgs{KeepMarkdown: &keep})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &got))
	assert.EqualValues(t, 1, got["succeeded"])
	assert.Equal(t, filepath.Join(dir, "llms.txt"), got["aggregate"])
	assert.Equal(t, false, got["removed"])
	assert.FileExists(t, filepath.Join(dir, "index.md"))
}

func TestGenerateIndexTool(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sitemap.xml")
	require.NoError(t, os.WriteFile(path, []byte(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
		<url><loc>https://example.com/docs/</loc></url>
		<url><loc>https://example.com/docs/getting-started</loc></url>
	</urlset>`), 0o644))

	s := NewServer(api.NewAPI(api.Deps{}), Defaults{Index: config.Index{Title: "Docs"}}, nil)
	res, _, err := s.generateIndex(context.Background(), nil, GenerateIndexArgs{Sitemap: path})
	require.NoError(t, err)

	text := textOf(t, res)
	assert.Contains(t, text, "# Docs\n\n## Docs\n")
	assert.Contains(t, text, "[Getting Started](https://example.com/docs/getting-started)")
}

func TestCrawlSiteAndListRunsTools(t *testing.T) {
	st, err := storage.NewStorage(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	crawler := stubCrawler{result: &crawlrun.Result{
		Success: true, Status: "completed", Completed: 1, Total: 1,
		Data: []crawlrun.Page{{Markdown: "# A", Metadata: map[string]any{"title": "A"}}},
	}}
	a := api.NewAPI(api.Deps{
		Crawler: crawler,
		Writer:  crawlrun.NewWriter(filepath.Join(t.TempDir(), "crawled")),
		Storage: st,
	})
	s := NewServer(a, Defaults{Crawl: crawlrun.DefaultOptions()}, nil)

	res, _, err := s.crawlSite(context.Background(), nil, CrawlSiteArgs{URL: "https://example.com"})
	require.NoError(t, err)
	var crawled map[string]any
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &crawled))
	assert.Equal(t, "completed", crawled["status"])
	assert.EqualValues(t, 1, crawled["written"])
	assert.DirExists(t, crawled["output_dir"].(string))

	res, _, err = s.listRuns(context.Background(), nil, ListRunsArgs{Limit: 5})
	require.NoError(t, err)
	var listed map[string]any
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &listed))
	assert.EqualValues(t, 1, listed["total"])
}

func TestCrawlSiteToolFailure(t *testing.T) {
	a := api.NewAPI(api.Deps{
		Crawler: stubCrawler{result: &crawlrun.Result{Success: false, Error: "Invalid URL"}},
		Writer:  crawlrun.NewWriter(t.TempDir()),
	})
	s := NewServer(a, Defaults{}, nil)

	_, _, err := s.crawlSite(context.Background(), nil, CrawlSiteArgs{URL: "https://invalid-url"})
	require.ErrorIs(t, err, api.ErrCrawlFailed)
}

func TestLoggingHandler(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.LevelDebug, &buf)

	h := loggingHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}), log)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	out := buf.String()
	assert.Contains(t, out, "incoming request")
	assert.Contains(t, out, "response sent")
	assert.Contains(t, out, "request_id=")
	assert.Contains(t, out, "status=418")
	assert.Contains(t, out, "size=15")
}
