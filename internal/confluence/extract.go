package confluence

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var reSpaces = regexp.MustCompile(`\s+`)

// ExtractText strips Confluence storage-format HTML down to plain text:
// script and style subtrees are dropped, the rest is concatenated with
// whitespace collapsed.
func ExtractText(htmlContent string) string {
	if strings.TrimSpace(htmlContent) == "" {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		// Storage format is occasionally malformed; fall back to a crude strip.
		return collapseWhitespace(stripTags(htmlContent))
	}

	var sb strings.Builder
	collectText(doc, &sb)
	return collapseWhitespace(sb.String())
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style":
			return
		}
	}
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, sb)
	}
}

var reTag = regexp.MustCompile(`<[^>]*>`)

func stripTags(s string) string {
	return reTag.ReplaceAllString(s, " ")
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}
