package source

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/jmylchreest/distill/internal/logger"
)

var pdfMagic = []byte("%PDF")

// pdfInfo is what pdfcpu reports about a document.
type pdfInfo struct {
	pageCount int
	title     string
	metadata  Metadata
}

// FromPDF extracts text, metadata and sections from PDF bytes.
func FromPDF(data []byte, filename string) (*Document, error) {
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, fmt.Errorf("%w: missing %%PDF header", ErrInvalidPDF)
	}

	info, infoErr := readPDFInfo(data)
	if infoErr != nil {
		// ledongthuc reads some files pdfcpu's validation rejects
		logger.Debug("pdf info unavailable", "filename", filename, "error", infoErr)
	}

	pages, err := extractPDFPages(data)
	if err != nil {
		if infoErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
		}
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	text, pageStarts := joinPages(pages)
	if text == "" {
		return nil, fmt.Errorf("%w: %s has no extractable text", ErrEmptyContent, filename)
	}

	pageCount := info.pageCount
	if pageCount == 0 {
		pageCount = len(pages)
	}

	title := info.title
	if title == "" {
		title = firstShortLine(text)
	}
	if title == "" {
		title = strings.TrimSuffix(filename, filepath.Ext(filename))
	}

	logger.Debug("pdf normalized", "filename", filename, "pages", pageCount, "chars", len(text))

	return &Document{
		Type:      TypePDF,
		Text:      text,
		Title:     title,
		Filename:  filename,
		PageCount: pageCount,
		WordCount: WordCount(text),
		Metadata:  info.metadata,
		Sections:  ExtractSections(text, pageStarts),
		Links:     uniqueStrings(strictURLs.FindAllString(text, -1)),
	}, nil
}

// readPDFInfo reads the page count and info dictionary with pdfcpu.
func readPDFInfo(data []byte) (pdfInfo, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return pdfInfo{}, err
	}

	xref := ctx.XRefTable
	info := pdfInfo{
		pageCount: ctx.PageCount,
		title:     strings.TrimSpace(xref.Title),
		metadata: Metadata{
			Author:           strings.TrimSpace(xref.Author),
			Subject:          strings.TrimSpace(xref.Subject),
			Keywords:         splitKeywords(xref.Keywords),
			Creator:          strings.TrimSpace(xref.Creator),
			Producer:         strings.TrimSpace(xref.Producer),
			CreationDate:     strings.TrimSpace(xref.CreationDate),
			ModificationDate: strings.TrimSpace(xref.ModDate),
		},
	}
	return info, nil
}

func splitKeywords(s string) []string {
	var out []string
	for _, k := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// extractPDFPages returns the plain text of each page. ledongthuc/pdf panics
// on some malformed streams, so panics are turned into errors.
func extractPDFPages(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	n := reader.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Debug("pdf page text failed", "page", i, "error", err)
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// joinPages cleans each page and joins them with a blank line. It returns
// the line index at which every page starts.
func joinPages(pages []string) (string, []int) {
	var b strings.Builder
	starts := make([]int, 0, len(pages))
	line := 0

	for _, p := range pages {
		cleaned := CleanPDFText(p)
		if b.Len() > 0 && cleaned != "" {
			b.WriteString("\n\n")
			line += 2
		}
		starts = append(starts, line)
		if cleaned == "" {
			continue
		}
		b.WriteString(cleaned)
		line += strings.Count(cleaned, "\n")
	}
	return b.String(), starts
}

var (
	hyphenBreak = regexp.MustCompile(`(\w+)-[ \t]*\n\s*(\w+)`)
	indent      = regexp.MustCompile(`^ {1,4}`)
)

// CleanPDFText normalizes text extracted from a PDF. Page breaks become
// blank lines, words hyphenated across lines are joined and up to four
// spaces of indentation are kept.
func CleanPDFText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\f", "\n\n")
	text = hyphenBreak.ReplaceAllString(text, "${1}${2}")
	text = paragraphBreaks.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lead := indent.FindString(line)
		lines[i] = lead + strings.TrimRight(blankRuns.ReplaceAllString(line[len(lead):], " "), " ")
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
