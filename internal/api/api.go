// Package api wires the crawl, convert and index pipelines to their
// collaborators. Commands and the MCP server both drive the pipelines
// through API.
package api

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tesh254/llmstxt/internal/config"
	"github.com/tesh254/llmstxt/internal/crawlrun"
	"github.com/tesh254/llmstxt/internal/llm"
	"github.com/tesh254/llmstxt/internal/logger"
	"github.com/tesh254/llmstxt/internal/markdown"
	"github.com/tesh254/llmstxt/internal/sitemap"
	"github.com/tesh254/llmstxt/internal/storage"
)

var (
	// ErrCrawlFailed is returned when the crawl service reports failure.
	ErrCrawlFailed = errors.New("crawl failed")
	// ErrNoOutput is returned when a successful crawl left no run directory.
	ErrNoOutput = errors.New("no output generated")
	// ErrNoHistory is returned when run history is not configured.
	ErrNoHistory = errors.New("run history is not configured")
)

// Crawler is the crawl service collaborator.
type Crawler interface {
	Crawl(ctx context.Context, url string, opts crawlrun.Options) (*crawlrun.Result, error)
}

// Deps are the collaborators behind an API. Any of them may be nil when the
// pipelines that need them are not used.
type Deps struct {
	Crawler   Crawler
	Writer    *crawlrun.Writer
	Converter markdown.Converter
	Storage   *storage.Storage
	Logger    logger.Logger
}

// API provides the pipeline operations.
type API struct {
	crawler   Crawler
	writer    *crawlrun.Writer
	converter markdown.Converter
	storage   *storage.Storage
	log       logger.Logger
}

// NewAPI creates a new API instance.
func NewAPI(d Deps) *API {
	conv := d.Converter
	if conv == nil {
		conv = markdown.NewHTMLConverter()
	}
	return &API{
		crawler:   d.Crawler,
		writer:    d.Writer,
		converter: conv,
		storage:   d.Storage,
		log:       logger.OrNull(d.Logger),
	}
}

// CrawlOutcome is what a crawl produced. Result is set whenever the service
// answered; Run only when the result was persisted.
type CrawlOutcome struct {
	Result *crawlrun.Result
	Run    *crawlrun.Run
}

// Crawl runs the crawl-and-persist pipeline for url.
func (a *API) Crawl(ctx context.Context, url string, opts crawlrun.Options) (*CrawlOutcome, error) {
	if a.crawler == nil || a.writer == nil {
		return nil, errors.New("crawl pipeline is not configured")
	}

	result, err := a.crawler.Crawl(ctx, url, opts)
	if err != nil {
		return nil, fmt.Errorf("crawl request failed: %w", err)
	}
	out := &CrawlOutcome{Result: result}

	if !result.Success {
		reason := result.Error
		if reason == "" {
			reason = result.Status
		}
		return out, fmt.Errorf("%w: %s", ErrCrawlFailed, reason)
	}

	run, err := a.writer.Write(url, result)
	if err != nil {
		return out, fmt.Errorf("failed to save crawl: %w", err)
	}
	out.Run = run

	if info, err := os.Stat(run.Dir); err != nil || !info.IsDir() {
		return out, ErrNoOutput
	}

	if a.storage != nil {
		rec := &storage.Run{
			ID:          run.ID,
			URL:         url,
			Dir:         run.Dir,
			Status:      result.Status,
			Success:     result.Success,
			Pages:       run.Written,
			Failed:      run.Failed,
			CreditsUsed: result.CreditsUsed,
		}
		if err := a.storage.RecordRun(rec); err != nil {
			a.log.Warn("failed to record crawl run", logger.KeyDir, run.Dir, logger.KeyError, err)
		}
	}
	return out, nil
}

// ConvertOutcome is what a convert run produced.
type ConvertOutcome struct {
	Report *markdown.Report
	// Aggregate is the aggregate file path, empty when not generated.
	Aggregate string
	// Removed reports whether the per-file Markdown outputs were deleted.
	Removed bool
}

// ConvertDocs runs the convert-and-concatenate pipeline.
func (a *API) ConvertDocs(ctx context.Context, cfg config.Convert) (*ConvertOutcome, error) {
	batch := markdown.NewBatch(a.converter, a.log)
	if cfg.Pattern != "" {
		batch.Pattern = cfg.Pattern
	}
	batch.Exclude = cfg.Exclude

	a.log.Info("generating markdown files", logger.KeyDir, cfg.DocsDir)
	report, err := batch.ConvertDir(ctx, cfg.DocsDir)
	if err != nil {
		return nil, err
	}
	out := &ConvertOutcome{Report: report}

	if cfg.Aggregate {
		path := cfg.AggregatePath()
		if err := markdown.Concatenate(report.Files, path); err != nil {
			return out, fmt.Errorf("failed to write aggregate file: %w", err)
		}
		out.Aggregate = path
		a.log.Info("aggregate file generated", logger.KeyPath, path)
	}

	if !cfg.KeepMarkdown {
		if err := markdown.RemoveFiles(report.Files); err != nil {
			return out, fmt.Errorf("failed to delete markdown files: %w", err)
		}
		out.Removed = true
		a.log.Info("markdown files deleted", "count", len(report.Files))
	}
	return out, nil
}

// IndexSummarizer builds the summarizer chain for cfg: the LLM worker when
// configured, then the local build of the site.
func IndexSummarizer(cfg config.Index) sitemap.Summarizer {
	var chain sitemap.Chain
	var local *sitemap.LocalSummarizer
	if cfg.DocsDir != "" {
		local = sitemap.NewLocalSummarizer(cfg.DocsDir)
	}
	if cfg.WorkerURL != "" {
		var content llm.ContentFunc
		if local != nil {
			content = local.PageText
		}
		chain = append(chain, llm.NewSummarizer(cfg.WorkerURL, content))
	}
	if local != nil {
		chain = append(chain, local)
	}
	if len(chain) == 0 {
		return sitemap.Placeholder{}
	}
	return chain
}

// GenerateIndex renders the sitemap index for cfg and writes it to
// cfg.Output when set. summarizer may be nil to use IndexSummarizer.
func (a *API) GenerateIndex(ctx context.Context, cfg config.Index, summarizer sitemap.Summarizer) (string, error) {
	if summarizer == nil {
		summarizer = IndexSummarizer(cfg)
	}
	doc, err := sitemap.GenerateFile(ctx, cfg.Sitemap, sitemap.Options{
		Title:      cfg.Title,
		Root:       cfg.Root,
		Summarizer: summarizer,
		Log:        a.log,
	})
	if err != nil {
		return "", err
	}

	if cfg.Output != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Output), 0o755); err != nil {
			return doc, fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(cfg.Output, []byte(doc), 0o644); err != nil {
			return doc, fmt.Errorf("failed to write index: %w", err)
		}
		a.log.Info("index generated", logger.KeyPath, cfg.Output)
	}
	return doc, nil
}

// Runs lists recorded crawl runs, newest first.
func (a *API) Runs(limit int) ([]*storage.Run, error) {
	if a.storage == nil {
		return nil, ErrNoHistory
	}
	return a.storage.ListRuns(limit)
}

// LatestRun returns the most recent crawl run.
func (a *API) LatestRun() (*storage.Run, error) {
	if a.storage == nil {
		return nil, ErrNoHistory
	}
	return a.storage.LatestRun()
}

// DeleteRun forgets a recorded run. The run directory is kept.
func (a *API) DeleteRun(id string) error {
	if a.storage == nil {
		return ErrNoHistory
	}
	return a.storage.DeleteRun(id)
}

// CleanRuns forgets every recorded run.
func (a *API) CleanRuns() (int64, error) {
	if a.storage == nil {
		return 0, ErrNoHistory
	}
	return a.storage.Clean()
}
