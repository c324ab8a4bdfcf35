package sitemap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"

	"github.com/tesh254/llmstxt/internal/markdown"
)

// ErrNoSummary is returned by a summarizer with nothing to say about a page.
var ErrNoSummary = errors.New("no summary available")

// Summarizer produces a one-line summary for the page at loc.
type Summarizer interface {
	Summarize(ctx context.Context, loc string) (string, error)
}

// SummarizerFunc adapts a function to the Summarizer interface.
type SummarizerFunc func(ctx context.Context, loc string) (string, error)

func (f SummarizerFunc) Summarize(ctx context.Context, loc string) (string, error) {
	return f(ctx, loc)
}

// Placeholder returns PlaceholderSummary for every page.
type Placeholder struct{}

func (Placeholder) Summarize(context.Context, string) (string, error) {
	return PlaceholderSummary, nil
}

// Chain tries each summarizer in order and returns the first non-empty
// summary. The last error is returned when every summarizer fails.
type Chain []Summarizer

func (c Chain) Summarize(ctx context.Context, loc string) (string, error) {
	err := ErrNoSummary
	for _, s := range c {
		summary, serr := s.Summarize(ctx, loc)
		if serr == nil && summary != "" {
			return summary, nil
		}
		if serr != nil {
			err = serr
		}
	}
	return "", err
}

// LocalSummarizer summarizes pages from a local build of the site. It maps
// a URL path onto DocsDir and uses the page's meta description, or else the
// first paragraph of its converted Markdown.
type LocalSummarizer struct {
	DocsDir string
}

// NewLocalSummarizer returns a LocalSummarizer over dir.
func NewLocalSummarizer(dir string) *LocalSummarizer {
	return &LocalSummarizer{DocsDir: dir}
}

func (s *LocalSummarizer) Summarize(ctx context.Context, loc string) (string, error) {
	for _, candidate := range s.candidates(loc) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if data, err := os.ReadFile(candidate); err == nil {
			if doc, err := html.Parse(bytes.NewReader(data)); err == nil {
				if desc := markdown.Description(doc); desc != "" {
					return desc, nil
				}
			}
		}
		if data, err := os.ReadFile(markdown.MarkdownPath(candidate)); err == nil {
			if para := FirstParagraph(data); para != "" {
				return para, nil
			}
		}
	}
	return "", ErrNoSummary
}

// PageText returns the Markdown of the local page for loc, preferring an
// already converted sibling .md over converting the HTML.
func (s *LocalSummarizer) PageText(ctx context.Context, loc string) (string, error) {
	conv := markdown.NewHTMLConverter()
	for _, candidate := range s.candidates(loc) {
		if data, err := os.ReadFile(markdown.MarkdownPath(candidate)); err == nil {
			return string(data), nil
		}
		if _, err := os.Stat(candidate); err == nil {
			return conv.Convert(ctx, candidate)
		}
	}
	return "", fmt.Errorf("%w: no local page for %s", ErrNoSummary, loc)
}

// candidates lists the local HTML files that may hold loc, most specific
// first. Leading path segments are dropped one at a time so sites served
// under a prefix still resolve.
func (s *LocalSummarizer) candidates(loc string) []string {
	u, err := url.Parse(loc)
	if err != nil || s.DocsDir == "" {
		return nil
	}

	var segs []string
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" && seg != "." && seg != ".." {
			segs = append(segs, seg)
		}
	}

	var out []string
	for i := 0; i < len(segs); i++ {
		rel := filepath.Join(segs[i:]...)
		if filepath.Ext(rel) == ".html" {
			out = append(out, filepath.Join(s.DocsDir, rel))
			continue
		}
		out = append(out,
			filepath.Join(s.DocsDir, rel, "index.html"),
			filepath.Join(s.DocsDir, rel+".html"),
		)
	}
	return out
}

// FirstParagraph returns the plain text of the first Markdown paragraph.
func FirstParagraph(source []byte) string {
	root := goldmark.New().Parser().Parse(text.NewReader(source))

	var para gmast.Node
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if entering && n.Kind() == gmast.KindParagraph {
			para = n
			return gmast.WalkStop, nil
		}
		return gmast.WalkContinue, nil
	})
	if para == nil {
		return ""
	}

	var buf strings.Builder
	_ = gmast.Walk(para, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Text:
			buf.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *gmast.String:
			buf.Write(node.Value)
		}
		return gmast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}
