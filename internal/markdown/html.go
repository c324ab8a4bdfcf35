package markdown

import (
	"strings"

	"golang.org/x/net/html"
)

// Title returns the text of the first <title> element, or "".
func Title(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
		return strings.TrimSpace(n.FirstChild.Data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := Title(c); title != "" {
			return title
		}
	}

	return ""
}

// Description returns the content of <meta name="description">, or "".
func Description(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.ElementNode && n.Data == "meta" {
		var isDesc, hasContent bool
		var content string

		for _, a := range n.Attr {
			if a.Key == "name" && strings.EqualFold(a.Val, "description") {
				isDesc = true
			}
			if a.Key == "content" {
				content = a.Val
				hasContent = true
			}
		}

		if isDesc && hasContent {
			return strings.TrimSpace(content)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if desc := Description(c); desc != "" {
			return desc
		}
	}

	return ""
}

// MainContent finds the node holding a page's main content.
//
// It looks for <main>, <article>, or an element with id="content" or
// id="main". If none are found it falls back to <body>, and returns nil when
// the document has no body either.
func MainContent(doc *html.Node) *html.Node {
	if n := findFirst(doc, isContentContainer); n != nil {
		return n
	}
	return findFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "body"
	})
}

func isContentContainer(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if n.Data == "main" || n.Data == "article" {
		return true
	}
	for _, a := range n.Attr {
		if a.Key == "id" && (a.Val == "content" || a.Val == "main") {
			return true
		}
	}
	return false
}

// findFirst walks the tree depth-first and returns the first node matching fn.
func findFirst(n *html.Node, fn func(*html.Node) bool) *html.Node {
	if n == nil {
		return nil
	}
	if fn(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, fn); found != nil {
			return found
		}
	}
	return nil
}
