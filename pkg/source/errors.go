package source

import "errors"

// Errors returned by the normalizer. Fetch failures wrap the fetcher
// package's errors, check those with errors.Is(err, fetcher.ErrTimeout).
var (
	ErrUnsupportedType = errors.New("unsupported source type")
	ErrMissingInput    = errors.New("missing input")
	ErrInvalidURL      = errors.New("invalid url")
	ErrInvalidPDF      = errors.New("invalid pdf")
	ErrEmptyContent    = errors.New("no text content could be extracted")
)
