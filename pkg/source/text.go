package source

import (
	"regexp"
	"strings"

	"mvdan.cc/xurls/v2"
)

// maxTitleLength bounds how long a first line may be to count as a title.
const maxTitleLength = 50

var (
	paragraphBreaks = regexp.MustCompile(`\n{3,}`)
	blankRuns       = regexp.MustCompile(`[ \t]+`)
	lineEdgeSpace   = regexp.MustCompile(`[ \t]*\n[ \t]*`)
	strictURLs      = xurls.Strict()
)

// FromText normalizes plain text input.
func FromText(text string) (*Document, error) {
	cleaned := CleanText(text)
	if cleaned == "" {
		return nil, ErrEmptyContent
	}

	return &Document{
		Type:      TypeText,
		Text:      cleaned,
		Title:     firstShortLine(cleaned),
		WordCount: WordCount(cleaned),
		Sections:  ExtractSections(cleaned, nil),
		Links:     uniqueStrings(strictURLs.FindAllString(cleaned, -1)),
	}, nil
}

// CleanText normalizes plain text while keeping paragraph breaks.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = paragraphBreaks.ReplaceAllString(text, "\n\n")
	text = blankRuns.ReplaceAllString(text, " ")
	text = lineEdgeSpace.ReplaceAllString(text, "\n")
	// trimming line edges can create new runs of blank lines
	text = paragraphBreaks.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// firstShortLine returns the first non-empty line short enough to be a title.
func firstShortLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && len([]rune(line)) < maxTitleLength {
			return line
		}
	}
	return ""
}

func uniqueStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
