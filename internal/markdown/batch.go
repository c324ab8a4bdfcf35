package markdown

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tesh254/llmstxt/internal/logger"
)

// DefaultPattern selects every HTML file below the root.
const DefaultPattern = "**/*.html"

// ErrNotDirectory is returned when the conversion root is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Failure records a file that could not be converted.
type Failure struct {
	Path string
	Err  error
}

// Report summarizes a batch conversion.
type Report struct {
	// Files lists the Markdown files written, in processing order.
	Files     []string
	Succeeded int
	Failed    int
	Failures  []Failure
}

// Batch converts every matching file below a root directory.
type Batch struct {
	Converter Converter
	// Pattern is a doublestar glob relative to the root.
	Pattern string
	// Exclude holds doublestar globs of relative paths to skip.
	Exclude []string

	log logger.Logger
}

// NewBatch returns a Batch using conv and the default pattern.
func NewBatch(conv Converter, log logger.Logger) *Batch {
	return &Batch{
		Converter: conv,
		Pattern:   DefaultPattern,
		log:       logger.OrNull(log),
	}
}

// MarkdownPath returns the sibling .md path for an HTML file.
func MarkdownPath(htmlPath string) string {
	return strings.TrimSuffix(htmlPath, filepath.Ext(htmlPath)) + ".md"
}

// Discover returns the files below root matching pattern and none of the
// exclude globs, sorted lexically.
func Discover(root, pattern string, exclude []string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}
	for _, ex := range exclude {
		if !doublestar.ValidatePattern(ex) {
			return nil, fmt.Errorf("invalid exclude pattern %q", ex)
		}
	}

	var rels []string
	err := doublestar.GlobWalk(os.DirFS(root), pattern, func(rel string, d fs.DirEntry) error {
		if d.IsDir() {
			return nil
		}
		for _, ex := range exclude {
			if ok, _ := doublestar.Match(ex, rel); ok {
				return nil
			}
		}
		rels = append(rels, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover files in %s: %w", root, err)
	}

	sort.Strings(rels)
	paths := make([]string, len(rels))
	for i, rel := range rels {
		paths[i] = filepath.Join(root, filepath.FromSlash(rel))
	}
	return paths, nil
}

// ConvertDir converts every matching file below root to a sibling Markdown
// file. A failing file is logged and recorded; it never aborts the batch.
// The call fails as a whole only when root is not a directory, discovery
// fails, or ctx is cancelled.
func (b *Batch) ConvertDir(ctx context.Context, root string) (*Report, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("input path %s: %w", root, ErrNotDirectory)
	}

	files, err := Discover(root, b.Pattern, b.Exclude)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		log := b.log.With(logger.KeyPath, path)
		log.Info("converting")

		out, err := b.convertFile(ctx, path)
		if err != nil {
			report.Failed++
			report.Failures = append(report.Failures, Failure{Path: path, Err: err})
			log.Error("failed to convert", logger.KeyError, err)
			continue
		}

		report.Succeeded++
		report.Files = append(report.Files, out)
		log.Debug("converted", "markdown", out)
	}

	b.log.Info("conversion complete", logger.KeySuccess, report.Succeeded, logger.KeyFailures, report.Failed)
	return report, nil
}

func (b *Batch) convertFile(ctx context.Context, path string) (string, error) {
	content, err := b.Converter.Convert(ctx, path)
	if err != nil {
		return "", err
	}

	out := MarkdownPath(path)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", out, err)
	}
	if err := os.WriteFile(out, []byte(StripPreamble(content)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", out, err)
	}
	return out, nil
}
