// Package core exposes the pipelines as MCP tools.
package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tesh254/llmstxt/internal/api"
	"github.com/tesh254/llmstxt/internal/config"
	"github.com/tesh254/llmstxt/internal/crawlrun"
	"github.com/tesh254/llmstxt/internal/logger"
	"github.com/tesh254/llmstxt/internal/version"
)

const serverName = "llmstxt MCP Server"

// Defaults are the configured values tool arguments fall back to.
type Defaults struct {
	Convert config.Convert
	Crawl   crawlrun.Options
	Index   config.Index
}

// Server serves the pipelines over MCP.
type Server struct {
	api      *api.API
	defaults Defaults
	log      logger.Logger
	server   *mcp.Server
}

type ConvertDocsArgs struct {
	DocsDir       string   `json:"docs_dir,omitempty"`
	KeepMarkdown  *bool    `json:"keep_markdown,omitempty"`
	Aggregate     *bool    `json:"aggregate,omitempty"`
	AggregateName string   `json:"aggregate_name,omitempty"`
	Pattern       string   `json:"pattern,omitempty"`
	Exclude       []string `json:"exclude,omitempty"`
}

type GenerateIndexArgs struct {
	Sitemap string `json:"sitemap" jsonschema:"required"`
	Output  string `json:"output,omitempty"`
	Title   string `json:"title,omitempty"`
	Root    string `json:"root,omitempty"`
	DocsDir string `json:"docs_dir,omitempty"`
}

type CrawlSiteArgs struct {
	URL     string   `json:"url" jsonschema:"required"`
	Limit   int      `json:"limit,omitempty"`
	Formats []string `json:"formats,omitempty"`
}

type ListRunsArgs struct {
	Limit int `json:"limit,omitempty"`
}

// NewServer creates a Server with every tool registered.
func NewServer(internalAPI *api.API, defaults Defaults, log logger.Logger) *Server {
	s := &Server{
		api:      internalAPI,
		defaults: defaults,
		log:      logger.OrNull(log),
		server:   mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version.GetVersion()}, nil),
	}
	s.registerTools()
	return s
}

// ServeStdio serves MCP over stdin/stdout until ctx is done.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.log.Info("starting MCP server with stdio transport")
	t := &mcp.LoggingTransport{Transport: &mcp.StdioTransport{}, Writer: os.Stderr}
	return s.server.Run(ctx, t)
}

// ServeHTTP serves MCP over streamable HTTP on addr until ctx is done.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
	srv := &http.Server{Addr: addr, Handler: loggingHandler(handler, s.log)}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("MCP handler listening", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "convert_docs",
		Description: "Convert the HTML files of a built documentation site to Markdown and concatenate them into an aggregate file.",
	}, s.convertDocs)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_index",
		Description: "Generate an llms.txt index from a sitemap.xml file.",
	}, s.generateIndex)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "crawl_site",
		Description: "Crawl a website with Firecrawl and persist every page to a timestamped run directory.",
	}, s.crawlSite)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_runs",
		Description: "List recorded crawl runs, newest first.",
	}, s.listRuns)
}

func (s *Server) convertDocs(ctx context.Context, _ *mcp.CallToolRequest, args ConvertDocsArgs) (*mcp.CallToolResult, any, error) {
	cfg := s.defaults.Convert
	if args.DocsDir != "" {
		cfg.DocsDir = args.DocsDir
	}
	if args.KeepMarkdown != nil {
		cfg.KeepMarkdown = *args.KeepMarkdown
	}
	if args.Aggregate != nil {
		cfg.Aggregate = *args.Aggregate
	}
	if args.AggregateName != "" {
		cfg.AggregateName = args.AggregateName
	}
	if args.Pattern != "" {
		cfg.Pattern = args.Pattern
	}
	if len(args.Exclude) > 0 {
		cfg.Exclude = args.Exclude
	}

	out, err := s.api.ConvertDocs(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(map[string]any{
		"files":     out.Report.Files,
		"succeeded": out.Report.Succeeded,
		"failed":    out.Report.Failed,
		"aggregate": out.Aggregate,
		"removed":   out.Removed,
	})
}

func (s *Server) generateIndex(ctx context.Context, _ *mcp.CallToolRequest, args GenerateIndexArgs) (*mcp.CallToolResult, any, error) {
	cfg := s.defaults.Index
	cfg.Sitemap = args.Sitemap
	cfg.Output = args.Output
	if args.Title != "" {
		cfg.Title = args.Title
	}
	if args.Root != "" {
		cfg.Root = args.Root
	}
	if args.DocsDir != "" {
		cfg.DocsDir = args.DocsDir
	}

	doc, err := s.api.GenerateIndex(ctx, cfg, nil)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: doc}}}, nil, nil
}

func (s *Server) crawlSite(ctx context.Context, _ *mcp.CallToolRequest, args CrawlSiteArgs) (*mcp.CallToolResult, any, error) {
	opts := s.defaults.Crawl
	if args.Limit > 0 {
		opts.Limit = args.Limit
	}
	if len(args.Formats) > 0 {
		opts.Formats = args.Formats
	}

	out, err := s.api.Crawl(ctx, args.URL, opts)
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(map[string]any{
		"run_id":          out.Run.ID,
		"output_dir":      out.Run.Dir,
		"status":          out.Result.Status,
		"total_pages":     out.Result.Total,
		"completed_pages": out.Result.Completed,
		"credits_used":    out.Result.CreditsUsed,
		"written":         out.Run.Written,
		"failed":          out.Run.Failed,
	})
}

func (s *Server) listRuns(_ context.Context, _ *mcp.CallToolRequest, args ListRunsArgs) (*mcp.CallToolResult, any, error) {
	runs, err := s.api.Runs(args.Limit)
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(map[string]any{"runs": runs, "total": len(runs)})
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	result, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(result)}}}, nil, nil
}
