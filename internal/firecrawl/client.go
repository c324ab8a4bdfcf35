// Package firecrawl is a minimal client for the Firecrawl crawl API. It
// starts a crawl job, polls it until it finishes and collects every page.
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tesh254/llmstxt/internal/crawlrun"
	"github.com/tesh254/llmstxt/internal/logger"
)

const (
	DefaultBaseURL = "https://api.firecrawl.dev"

	StatusScraping  = "scraping"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"

	defaultPollInterval = 2 * time.Second
)

// APIError is returned when the service answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("firecrawl: unexpected status code %d", e.StatusCode)
	}
	return fmt.Sprintf("firecrawl: %s (status %d)", e.Message, e.StatusCode)
}

// Progress is reported after every status poll.
type Progress struct {
	Status    string
	Completed int
	Total     int
}

// Client talks to the Firecrawl API.
type Client struct {
	apiKey   string
	baseURL  string
	client   *http.Client
	log      logger.Logger
	progress func(Progress)
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API host.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = logger.OrNull(l) }
}

// WithProgress registers a callback invoked after every poll.
func WithProgress(fn func(Progress)) Option {
	return func(c *Client) { c.progress = fn }
}

// NewClient returns a client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
		log:     logger.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type scrapeOptions struct {
	Formats []string `json:"formats,omitempty"`
}

type crawlRequest struct {
	URL           string        `json:"url"`
	Limit         int           `json:"limit,omitempty"`
	ScrapeOptions scrapeOptions `json:"scrapeOptions"`
}

type crawlStarted struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	URL     string `json:"url"`
	Error   string `json:"error"`
}

type crawlStatus struct {
	Status      string          `json:"status"`
	Total       int             `json:"total"`
	Completed   int             `json:"completed"`
	CreditsUsed int             `json:"creditsUsed"`
	ExpiresAt   string          `json:"expiresAt"`
	Next        string          `json:"next"`
	Error       string          `json:"error"`
	Data        []crawlrun.Page `json:"data"`
}

// Crawl starts a crawl of target and blocks until the job leaves the
// scraping state. A failed or cancelled job is returned as a Result with
// Success=false; transport and HTTP errors are returned as errors.
func (c *Client) Crawl(ctx context.Context, target string, opts crawlrun.Options) (*crawlrun.Result, error) {
	started, err := c.start(ctx, target, opts)
	if err != nil {
		return nil, err
	}
	if !started.Success || started.ID == "" {
		msg := started.Error
		if msg == "" {
			msg = "crawl was not started"
		}
		return &crawlrun.Result{Success: false, Status: StatusFailed, Error: msg}, nil
	}

	log := c.log.With(logger.KeyJobID, started.ID)
	log.Info("crawl started", logger.KeyURL, target)

	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	statusURL := fmt.Sprintf("%s/v1/crawl/%s", c.baseURL, started.ID)
	for {
		st, err := c.status(ctx, statusURL)
		if err != nil {
			return nil, err
		}
		if c.progress != nil {
			c.progress(Progress{Status: st.Status, Completed: st.Completed, Total: st.Total})
		}
		log.Debug("crawl status", logger.KeyStatus, st.Status, "completed", st.Completed, "total", st.Total)

		switch st.Status {
		case StatusCompleted:
			return c.collect(ctx, st)
		case StatusFailed, StatusCancelled:
			msg := st.Error
			if msg == "" {
				msg = "crawl " + st.Status
			}
			return &crawlrun.Result{
				Success:     false,
				Status:      st.Status,
				Completed:   st.Completed,
				Total:       st.Total,
				CreditsUsed: st.CreditsUsed,
				ExpiresAt:   st.ExpiresAt,
				Error:       msg,
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// collect follows the next links of a completed job and gathers every page.
func (c *Client) collect(ctx context.Context, st *crawlStatus) (*crawlrun.Result, error) {
	result := &crawlrun.Result{
		Success:     true,
		Status:      st.Status,
		Completed:   st.Completed,
		Total:       st.Total,
		CreditsUsed: st.CreditsUsed,
		ExpiresAt:   st.ExpiresAt,
		Data:        st.Data,
	}

	seen := map[string]bool{}
	for next := st.Next; next != "" && !seen[next]; {
		seen[next] = true
		page, err := c.status(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch next page of results: %w", err)
		}
		result.Data = append(result.Data, page.Data...)
		next = page.Next
	}
	return result, nil
}

func (c *Client) start(ctx context.Context, target string, opts crawlrun.Options) (*crawlStarted, error) {
	req := crawlRequest{
		URL:           target,
		Limit:         opts.Limit,
		ScrapeOptions: scrapeOptions{Formats: requestFormats(opts.Formats)},
	}
	var started crawlStarted
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/v1/crawl", req, &started); err != nil {
		return nil, err
	}
	return &started, nil
}

func (c *Client) status(ctx context.Context, statusURL string) (*crawlStatus, error) {
	var st crawlStatus
	if err := c.do(ctx, http.MethodGet, statusURL, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// requestFormats drops "metadata", which the service always returns and
// does not accept as a format.
func requestFormats(formats []string) []string {
	out := make([]string, 0, len(formats))
	for _, f := range formats {
		f = strings.TrimSpace(f)
		if f == "" || strings.EqualFold(f, "metadata") {
			continue
		}
		out = append(out, f)
	}
	return out
}

func (c *Client) do(ctx context.Context, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.New().String()
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Request-ID", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug("firecrawl request",
		"request_id", requestID,
		"method", method,
		logger.KeyURL, url,
		logger.KeyStatus, resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &apiErr)
		msg := apiErr.Error
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
