package acquire

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTMLExtractor handles HTML exports from lab portals. Each table row and each
// block element becomes one line.
type HTMLExtractor struct{}

func (e *HTMLExtractor) Extract(_ context.Context, r io.Reader, _ string) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var lines []string
	emit := func(s string) {
		if s = collapseSpace(s); s != "" {
			lines = append(lines, s)
		}
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "head", "noscript":
				return
			case "tr":
				var cells []string
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
						cells = append(cells, textContent(c))
					}
				}
				emit(strings.Join(cells, " "))
				return
			case "p", "li", "h1", "h2", "h3", "h4", "h5", "h6", "dt", "dd", "caption", "pre":
				emit(textContent(n))
				return
			case "div", "section", "article", "main", "body", "td", "th":
				if !hasBlockChild(n) {
					emit(textContent(n))
					return
				}
			}
		}
		if n.Type == html.TextNode {
			emit(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(lines, "\n"), nil
}

var blockTags = map[string]bool{
	"div": true, "section": true, "article": true, "main": true, "table": true,
	"tbody": true, "thead": true, "tr": true, "p": true, "ul": true, "ol": true,
	"li": true, "dl": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "pre": true, "header": true, "footer": true,
}

// hasBlockChild reports whether any descendant starts a new line.
func hasBlockChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (blockTags[c.Data] || hasBlockChild(c)) {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			buf.WriteString(n.Data)
		case n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style"):
			return
		case n.Type == html.ElementNode && n.Data == "br":
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return collapseSpace(buf.String())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
