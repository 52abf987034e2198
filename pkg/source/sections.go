package source

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// headerPatterns are tried in order; the first match decides the level.
var headerPatterns = []struct {
	re    *regexp.Regexp
	level int
}{
	{regexp.MustCompile(`^(?:CHAPTER|Chapter|SECTION|Section)\s+\d+[.:]\s*(.+)$`), 1},
	{regexp.MustCompile(`^\d+\.\d+\s+(.+)$`), 2},
	{regexp.MustCompile(`^\d+\.\s+(.+)$`), 1},
	{regexp.MustCompile(`^[A-Z][A-Z\s]+[A-Z]$`), 1},
	{regexp.MustCompile(`^[IVX]+\.\s+(.+)$`), 1},
}

// headerLevel returns the level of a header line, or 0 if it is not one.
func headerLevel(line string) int {
	for _, p := range headerPatterns {
		if p.re.MatchString(line) {
			return p.level
		}
	}
	return 0
}

// ExtractSections splits text at header lines. pageStarts holds the line
// index at which each page begins; pass nil for text without pages.
// Text before the first header becomes an untitled section.
func ExtractSections(text string, pageStarts []int) []Section {
	lines := strings.Split(text, "\n")

	type header struct {
		line  int
		title string
		level int
	}
	var headers []header
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if level := headerLevel(trimmed); level > 0 {
			headers = append(headers, header{line: i, title: trimmed, level: level})
		}
	}

	if len(headers) == 0 || strings.TrimSpace(strings.Join(lines[:headers[0].line], "\n")) != "" {
		headers = append([]header{{line: 0}}, headers...)
	}

	sections := make([]Section, 0, len(headers))
	for i, h := range headers {
		end := len(lines)
		if i+1 < len(headers) {
			end = headers[i+1].line
		}

		title := h.title
		if title == "" {
			title = fmt.Sprintf("Section %d", i+1)
		}
		sections = append(sections, Section{
			Title:      title,
			Content:    CleanText(strings.Join(lines[h.line:end], "\n")),
			Level:      h.level,
			PageNumber: pageAt(pageStarts, h.line),
		})
	}
	return sections
}

// pageAt returns the 1-based page containing line, or 0 without page data.
func pageAt(pageStarts []int, line int) int {
	if len(pageStarts) == 0 {
		return 0
	}
	// the index of the first page starting after line is the 1-based page number
	return sort.Search(len(pageStarts), func(i int) bool { return pageStarts[i] > line })
}
