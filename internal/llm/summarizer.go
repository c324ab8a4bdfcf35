// Package llm talks to the LLM worker that writes page summaries.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// ContentFunc returns the text of the page at loc.
type ContentFunc func(ctx context.Context, loc string) (string, error)

// Summarizer asks an LLM worker for one-line page summaries.
type Summarizer struct {
	client  *http.Client
	url     string
	content ContentFunc
	// MaxChars caps the page text sent to the worker.
	MaxChars int
}

// NewSummarizer creates a Summarizer for the worker at workerURL. content
// supplies page text; when nil only the URL is sent.
func NewSummarizer(workerURL string, content ContentFunc) *Summarizer {
	return &Summarizer{
		client:   &http.Client{Timeout: 60 * time.Second},
		url:      workerURL,
		content:  content,
		MaxChars: 16000,
	}
}

type summaryRequest struct {
	URL  string `json:"url"`
	Text string `json:"text,omitempty"`
}

// summaryResponse matches the worker's JSON response structure.
type summaryResponse struct {
	Response string `json:"response"`
}

// Summarize sends the page to the worker and returns its summary.
func (s *Summarizer) Summarize(ctx context.Context, loc string) (string, error) {
	payload := summaryRequest{URL: loc}
	if s.content != nil {
		text, err := s.content(ctx, loc)
		if err != nil {
			return "", fmt.Errorf("failed to load page text: %w", err)
		}
		payload.Text = truncate(text, s.MaxChars)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var result summaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	summary := strings.Join(strings.Fields(result.Response), " ")
	if summary == "" {
		return "", fmt.Errorf("empty summary returned")
	}
	return summary, nil
}

// truncate cuts text to at most n bytes without splitting a rune.
func truncate(text string, n int) string {
	if n <= 0 || len(text) <= n {
		return text
	}
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}
