package report

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesh254/llmstxt/internal/crawlrun"
	"github.com/tesh254/llmstxt/internal/markdown"
	"github.com/tesh254/llmstxt/internal/storage"
)

func TestCrawlResults(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).CrawlResults(&crawlrun.Result{Success: true, Status: "completed", Completed: 2, Total: 3, CreditsUsed: 4})

	out := buf.String()
	assert.Contains(t, out, "Crawl Results")
	assert.Contains(t, out, "✅")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "2/3")
	assert.Contains(t, out, "Credits Used")
}

func TestFileCounts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"page_0_html.html", "page_1_html.html", "page_0_md.md", "page_0_meta.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("a\nb\n"), 0o644))
	}

	var buf bytes.Buffer
	require.NoError(t, New(&buf).FileCounts(dir))

	out := buf.String()
	assert.Contains(t, out, "HTML")
	assert.Contains(t, out, "Metadata")
	assert.Contains(t, out, "2 lines (0.0 KB)")
	assert.NotContains(t, out, "LLMs Full")
}

func TestFileStatsGroupsThousands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.txt")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x\n"), 1500), 0o644))

	stats, err := FileStats(path)
	require.NoError(t, err)
	assert.Equal(t, "1,500 lines (2.9 KB)", stats)
}

func TestConvertSummary(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).ConvertSummary(&markdown.Report{
		Succeeded: 2,
		Failed:    1,
		Failures:  []markdown.Failure{{Path: "site/bad.html", Err: errors.New("boom")}},
	})

	out := buf.String()
	assert.Contains(t, out, "Converted")
	assert.Contains(t, out, "site/bad.html")
	assert.Contains(t, out, "boom")
}

func TestRuns(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Runs([]*storage.Run{{
		URL: "https://demodrive.tech", Status: "completed", Pages: 2, CreditsUsed: 2,
		Dir: "docs/crawled/20241222_161250", CreatedAt: time.Now(),
	}})
	assert.Contains(t, buf.String(), "docs/crawled/20241222_161250")
}

func TestErrorAndBanner(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	r.Error(errors.New("FIRECRAWL_API_KEY environment variable not set"))
	r.Banner("Crawl Complete", "Found 2 pages.")
	r.Field("📁 Output directory:", "docs/crawled/x")

	out := buf.String()
	assert.Contains(t, out, "FIRECRAWL_API_KEY environment variable not set")
	assert.Contains(t, out, "Crawl Complete")
	assert.Contains(t, out, "Found 2 pages.")
	assert.Contains(t, out, "docs/crawled/x")
}

func TestSpinner(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	var buf bytes.Buffer
	s := New(&buf).StartSpinner("Crawling")
	s.Update("Crawling 1/2")
	s.Stop(true)
	s.Stop(true)
	assert.Equal(t, "Crawling...\n", buf.String())

	var ibuf bytes.Buffer
	r := &Reporter{Out: &ibuf, Interactive: true}
	s = r.StartSpinner("Polling")
	s.Update("Polling 2/2")
	s.Stop(false)
	assert.Contains(t, ibuf.String(), "Polling 2/2... [✘]")
}
