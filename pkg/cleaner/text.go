package cleaner

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultRemoveSelectors lists page chrome dropped before text extraction.
const DefaultRemoveSelectors = "script, style, nav, header, footer, aside, .ads, .comments, .navigation, .menu, noscript, iframe, svg"

// TextCleaner strips boilerplate elements and renders the remaining markup
// as plain text, one line per block element.
type TextCleaner struct {
	selectors string
}

// NewText creates a text cleaner using DefaultRemoveSelectors.
func NewText() *TextCleaner {
	return &TextCleaner{selectors: DefaultRemoveSelectors}
}

// NewTextWithSelectors creates a text cleaner that removes the given CSS
// selectors instead of the defaults.
func NewTextWithSelectors(selectors ...string) *TextCleaner {
	return &TextCleaner{selectors: strings.Join(selectors, ", ")}
}

// Clean removes noise elements and returns normalized text. Input without
// any markup is only normalized.
func (c *TextCleaner) Clean(content string) (string, error) {
	if !strings.Contains(content, "<") {
		return CleanHTMLText(content), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", err
	}

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	if c.selectors != "" {
		root.Find(c.selectors).Remove()
	}

	var b strings.Builder
	for _, n := range root.Nodes {
		renderText(&b, n)
	}
	return CleanHTMLText(b.String()), nil
}

// Name returns the cleaner type.
func (c *TextCleaner) Name() string {
	return NameText
}

var blockElements = map[string]bool{
	"address": true, "article": true, "blockquote": true, "dd": true, "div": true,
	"dl": true, "dt": true, "figcaption": true, "figure": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"hr": true, "li": true, "main": true, "ol": true, "p": true, "pre": true,
	"section": true, "table": true, "tr": true, "ul": true,
}

var inlineWhitespace = regexp.MustCompile(`\s+`)

func renderText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(inlineWhitespace.ReplaceAllString(n.Data, " "))
		return
	case html.ElementNode:
		if n.Data == "br" {
			b.WriteByte('\n')
			return
		}
	case html.DocumentNode:
	default:
		return
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		b.WriteByte('\n')
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		renderText(b, child)
	}
	switch {
	case block:
		b.WriteByte('\n')
	case n.Data == "td" || n.Data == "th":
		b.WriteByte(' ')
	}
}

var (
	spaceRun     = regexp.MustCompile(`[ \t]+`)
	dashSpacing  = regexp.MustCompile(`[ \t]+-[ \t]*|[ \t]*-[ \t]+`)
	lineEdges    = regexp.MustCompile(`[ \t]*\n[ \t]*`)
	newlineRun   = regexp.MustCompile(`\n{2,}`)
	htmlEntities = strings.NewReplacer("&nbsp;", " ", "\u00a0", " ", "\r\n", "\n", "•", "- ")
)

// CleanHTMLText normalizes text scraped from a web page: bullets become
// dashes, spacing around free-standing dashes is normalized and blank lines
// are removed. Hyphenated words are left intact.
func CleanHTMLText(s string) string {
	s = htmlEntities.Replace(s)
	s = spaceRun.ReplaceAllString(s, " ")
	s = dashSpacing.ReplaceAllString(s, " - ")
	s = lineEdges.ReplaceAllString(s, "\n")
	s = newlineRun.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
