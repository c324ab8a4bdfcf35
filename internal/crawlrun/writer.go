// Package crawlrun materializes crawl results on disk: one timestamped
// directory per run holding per-page artifacts, a run summary and the
// llms-full.txt aggregate.
package crawlrun

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tesh254/llmstxt/internal/logger"
)

const (
	// TimestampLayout names run directories (UTC, seconds resolution).
	TimestampLayout = "20060102_150405"

	AggregateFile = "llms-full.txt"
	MetadataFile  = "crawl_metadata.json"

	// maxCollisions bounds the suffix search for same-second runs.
	maxCollisions = 1000
)

// ErrUnsuccessful is returned when asked to persist a result whose success
// flag is false. Nothing is written in that case.
var ErrUnsuccessful = errors.New("crawl was not successful")

// Writer persists crawl results below Root.
type Writer struct {
	Root string

	log   logger.Logger
	now   func() time.Time
	newID func() string
}

// Option configures a Writer.
type Option func(*Writer)

// WithLogger sets the logger used for per-page failures.
func WithLogger(l logger.Logger) Option {
	return func(w *Writer) { w.log = logger.OrNull(l) }
}

// WithClock overrides the clock used to name run directories.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// NewWriter returns a Writer rooted at root.
func NewWriter(root string, opts ...Option) *Writer {
	w := &Writer{
		Root:  root,
		log:   logger.NewNullLogger(),
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// PageFiles returns the html, markdown and metadata file names for page i.
func PageFiles(i int) (html, md, meta string) {
	return fmt.Sprintf("page_%d_html.html", i),
		fmt.Sprintf("page_%d_md.md", i),
		fmt.Sprintf("page_%d_meta.json", i)
}

// Write materializes result into a new run directory. sourceURL is recorded
// in the run metadata. A result with Success=false is not written at all.
func (w *Writer) Write(sourceURL string, result *Result) (*Run, error) {
	if result == nil {
		return nil, fmt.Errorf("%w: no result", ErrUnsuccessful)
	}
	if !result.Success {
		return nil, ErrUnsuccessful
	}

	if err := os.MkdirAll(w.Root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output root: %w", err)
	}

	timestamp := w.now().UTC().Format(TimestampLayout)
	dir, err := w.createRunDir(timestamp)
	if err != nil {
		return nil, err
	}

	run := &Run{ID: w.newID(), URL: sourceURL, Dir: dir, Timestamp: timestamp}
	log := w.log.With(logger.KeyDir, dir)

	var aggregate strings.Builder
	for i, page := range result.Data {
		if err := writePage(dir, i, page); err != nil {
			run.Failed++
			log.Error("failed to save page", logger.KeyPage, i, logger.KeyError, err)
			continue
		}
		run.Written++
		fmt.Fprintf(&aggregate, "# [%s](%s)\n\n%s\n\n", page.Title(), page.URL(), page.Markdown)
	}

	if err := os.WriteFile(filepath.Join(dir, AggregateFile), []byte(aggregate.String()), 0o644); err != nil {
		return run, fmt.Errorf("failed to write %s: %w", AggregateFile, err)
	}

	meta := Metadata{
		RunID:          run.ID,
		URL:            sourceURL,
		Timestamp:      timestamp,
		Success:        result.Success,
		Status:         result.Status,
		TotalPages:     result.Total,
		CompletedPages: result.Completed,
		CreditsUsed:    result.CreditsUsed,
		ExpiresAt:      result.ExpiresAt,
	}
	if err := writeJSON(filepath.Join(dir, MetadataFile), meta); err != nil {
		return run, fmt.Errorf("failed to write %s: %w", MetadataFile, err)
	}

	log.Info("crawl run saved", "pages", run.Written, logger.KeyFailures, run.Failed)
	return run, nil
}

// createRunDir creates root/timestamp exclusively. When a run from the same
// second already exists a numeric suffix is appended.
func (w *Writer) createRunDir(timestamp string) (string, error) {
	name := timestamp
	for n := 1; n <= maxCollisions; n++ {
		dir := filepath.Join(w.Root, name)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("failed to create run directory: %w", err)
		}
		name = fmt.Sprintf("%s_%d", timestamp, n)
	}
	return "", fmt.Errorf("failed to create run directory: too many runs at %s", timestamp)
}

// writePage writes the page triple. On failure the files already written
// for the page are removed so the run only holds whole triples.
func writePage(dir string, i int, page Page) (err error) {
	htmlName, mdName, metaName := PageFiles(i)
	var written []string
	defer func() {
		if err != nil {
			for _, path := range written {
				os.Remove(path)
			}
		}
	}()

	meta := page.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	files := []struct {
		name  string
		write func(path string) error
	}{
		{htmlName, func(path string) error { return os.WriteFile(path, []byte(page.HTML), 0o644) }},
		{mdName, func(path string) error { return os.WriteFile(path, []byte(page.Markdown), 0o644) }},
		{metaName, func(path string) error { return writeJSON(path, meta) }},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		written = append(written, path)
		if err := f.write(path); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// ReadMetadata loads crawl_metadata.json from a run directory.
func ReadMetadata(dir string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", MetadataFile, err)
	}
	return &meta, nil
}
