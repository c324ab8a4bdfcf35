package crawlrun

import "time"

// Page is one crawled page as returned by the crawl service.
type Page struct {
	HTML     string         `json:"html"`
	Markdown string         `json:"markdown"`
	Metadata map[string]any `json:"metadata"`
}

// Title returns the page title, or "Untitled" when the service sent none.
func (p Page) Title() string {
	if s, ok := p.metaString("title"); ok {
		return s
	}
	return "Untitled"
}

// URL returns the page URL, or "" when the service sent none.
func (p Page) URL() string {
	s, _ := p.metaString("url")
	return s
}

func (p Page) metaString(key string) (string, bool) {
	v, ok := p.Metadata[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Result is the outcome of one crawl as reported by the crawl service. It is
// never modified after it is received.
type Result struct {
	Success     bool   `json:"success"`
	Status      string `json:"status"`
	Completed   int    `json:"completed"`
	Total       int    `json:"total"`
	CreditsUsed int    `json:"creditsUsed"`
	ExpiresAt   string `json:"expiresAt"`
	Error       string `json:"error,omitempty"`
	Data        []Page `json:"data"`
}

// Options is the bundle passed to the crawl service.
type Options struct {
	Limit        int
	Formats      []string
	PollInterval time.Duration
}

// DefaultOptions mirrors the crawl command defaults.
func DefaultOptions() Options {
	return Options{
		Limit:        100,
		Formats:      []string{"markdown", "html"},
		PollInterval: 30 * time.Second,
	}
}

// Run describes a materialized crawl run directory.
type Run struct {
	ID        string
	URL       string
	Dir       string
	Timestamp string
	Written   int
	Failed    int
}

// Metadata is the summary written to crawl_metadata.json.
type Metadata struct {
	RunID          string `json:"run_id"`
	URL            string `json:"url"`
	Timestamp      string `json:"timestamp"`
	Success        bool   `json:"success"`
	Status         string `json:"status"`
	TotalPages     int    `json:"total_pages"`
	CompletedPages int    `json:"completed_pages"`
	CreditsUsed    int    `json:"credits_used"`
	ExpiresAt      string `json:"expires_at"`
}
