package source

import (
	"bytes"
	"unicode/utf8"
)

// Kinds reported by DetectType.
const (
	KindPDF     = "pdf"
	KindHTML    = "html"
	KindText    = "text"
	KindUnknown = "unknown"
)

// DetectType sniffs the leading bytes of an upload.
func DetectType(data []byte) string {
	if len(data) == 0 {
		return KindUnknown
	}

	if bytes.HasPrefix(data, []byte("%PDF")) {
		return KindPDF
	}

	trimmed := bytes.TrimSpace(data)
	head := bytes.ToLower(trimmed[:min(len(trimmed), 15)])
	if bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html")) {
		return KindHTML
	}

	if isLikelyText(data) {
		return KindText
	}
	return KindUnknown
}

// isLikelyText checks a sample for NUL bytes, invalid UTF-8 and control characters.
func isLikelyText(data []byte) bool {
	sample := data[:min(len(data), 512)]
	if bytes.IndexByte(sample, 0) != -1 {
		return false
	}

	// a multi-byte rune may be cut at the sample boundary
	for i := 0; i < 3 && !utf8.Valid(sample) && len(sample) > 0; i++ {
		sample = sample[:len(sample)-1]
	}
	if !utf8.Valid(sample) {
		return false
	}

	control := 0
	for _, r := range string(sample) {
		if r < 32 && r != '\n' && r != '\r' && r != '\t' && r != '\f' {
			control++
		}
	}
	return control*10 < len(sample)
}
