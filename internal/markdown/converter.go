// Package markdown turns directories of HTML documentation into Markdown
// files and aggregates them into a single text file.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	htm "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
)

// Converter turns the HTML file at path into Markdown text.
type Converter interface {
	Convert(ctx context.Context, path string) (string, error)
}

// ConverterFunc adapts a function to the Converter interface.
type ConverterFunc func(ctx context.Context, path string) (string, error)

func (f ConverterFunc) Convert(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// HTMLConverter converts local HTML files with html-to-markdown.
type HTMLConverter struct {
	// MainContentOnly narrows conversion to the page's main content node
	// (<main>, <article>, #content, #main, or <body>).
	MainContentOnly bool
}

// NewHTMLConverter returns a converter that keeps only the main content.
func NewHTMLConverter() *HTMLConverter {
	return &HTMLConverter{MainContentOnly: true}
}

// Convert reads the file at path and converts it to Markdown.
func (c *HTMLConverter) Convert(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return c.ConvertString(string(data))
}

// ConvertString converts HTML content to Markdown format.
func (c *HTMLConverter) ConvertString(input string) (string, error) {
	if c.MainContentOnly {
		doc, err := html.Parse(strings.NewReader(input))
		if err != nil {
			return "", fmt.Errorf("failed to parse HTML: %w", err)
		}
		if node := MainContent(doc); node != nil {
			var buf bytes.Buffer
			if err := html.Render(&buf, node); err != nil {
				return "", fmt.Errorf("failed to render main content: %w", err)
			}
			input = buf.String()
		}
	}

	markdown, err := htm.ConvertString(input)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}
	return markdown, nil
}

// StripPreamble drops everything before the first heading that starts a
// line after the first one. Content with no such heading is returned as is.
func StripPreamble(markdown string) string {
	if i := strings.Index(markdown, "\n#"); i >= 0 {
		return markdown[i+1:]
	}
	return markdown
}
