// Package sitemap builds an llms.txt index document from a sitemap.xml.
package sitemap

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tesh254/llmstxt/internal/logger"
)

const (
	DefaultTitle       = "Docling Documentation"
	PlaceholderSummary = "This is a placeholder summary for the documentation page."
)

// ErrParse is returned for sitemaps that are not well-formed XML.
var ErrParse = errors.New("failed to parse sitemap")

type urlset struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// Options controls index generation.
type Options struct {
	// Title is the top-level heading. Defaults to DefaultTitle.
	Title string
	// Root is the canonical root URL left out of the index. When empty the
	// shortest URL that prefixes every other URL is used.
	Root string
	// Summarizer produces the text after each link. Defaults to Placeholder.
	Summarizer Summarizer
	Log        logger.Logger
}

// Parse returns the <loc> of every <url> entry, in document order. The
// whole document must be well-formed: only whitespace, comments and
// processing instructions may follow the root element.
func Parse(r io.Reader) ([]string, error) {
	var set urlset
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&set); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return nil, fmt.Errorf("%w: text after root element", ErrParse)
			}
		default:
			return nil, fmt.Errorf("%w: content after root element", ErrParse)
		}
	}

	locs := make([]string, 0, len(set.URLs))
	for _, u := range set.URLs {
		if loc := strings.TrimSpace(u.Loc); loc != "" {
			locs = append(locs, loc)
		}
	}
	return locs, nil
}

// PageTitle derives a display title from the last path segment of loc.
func PageTitle(loc string) string {
	trimmed := strings.TrimRight(loc, "/")
	segment := trimmed[strings.LastIndex(trimmed, "/")+1:]
	segment = strings.ReplaceAll(segment, "-", " ")
	return cases.Title(language.English).String(segment)
}

// Generate reads a sitemap from r and renders the index document.
func Generate(ctx context.Context, r io.Reader, opts Options) (string, error) {
	locs, err := Parse(r)
	if err != nil {
		return "", err
	}

	title := opts.Title
	if title == "" {
		title = DefaultTitle
	}
	summarizer := opts.Summarizer
	if summarizer == nil {
		summarizer = Placeholder{}
	}
	log := logger.OrNull(opts.Log)

	root := normalize(opts.Root)
	if root == "" {
		root = detectRoot(locs)
	}

	lines := []string{fmt.Sprintf("# %s\n\n## Docs\n", title)}
	for _, loc := range locs {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if root != "" && normalize(loc) == root {
			continue
		}

		summary, err := summarizer.Summarize(ctx, loc)
		if err != nil || summary == "" {
			if err != nil {
				log.Warn("summary unavailable, using placeholder", logger.KeyURL, loc, logger.KeyError, err)
			}
			summary = PlaceholderSummary
		}
		lines = append(lines, fmt.Sprintf("- [%s](%s): %s", PageTitle(loc), loc, summary))
	}

	return strings.Join(lines, "\n"), nil
}

// GenerateFile is Generate for a sitemap on disk.
func GenerateFile(ctx context.Context, path string, opts Options) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open sitemap: %w", err)
	}
	defer f.Close()
	return Generate(ctx, f, opts)
}

func normalize(loc string) string {
	return strings.TrimRight(strings.TrimSpace(loc), "/")
}

// detectRoot returns the URL every other URL lives under, or "" when there
// is none or only one entry. A candidate must be a site root (empty or "/"
// path) or be written as a directory with a trailing slash, so a section
// page such as /guide next to /guide/intro is kept.
func detectRoot(locs []string) string {
	if len(locs) < 2 {
		return ""
	}
	root := ""
	for _, candidate := range locs {
		if !rootLike(candidate) {
			continue
		}
		c := normalize(candidate)
		if root != "" && len(c) >= len(root) {
			continue
		}
		if coversAll(c, locs) {
			root = c
		}
	}
	return root
}

func rootLike(loc string) bool {
	loc = strings.TrimSpace(loc)
	u, err := url.Parse(loc)
	if err != nil {
		return false
	}
	return u.Path == "" || u.Path == "/" || strings.HasSuffix(u.Path, "/")
}

func coversAll(root string, locs []string) bool {
	for _, loc := range locs {
		l := normalize(loc)
		if l != root && !strings.HasPrefix(l, root+"/") {
			return false
		}
	}
	return true
}
