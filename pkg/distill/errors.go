package distill

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jmylchreest/distill/pkg/fetcher"
	"github.com/jmylchreest/distill/pkg/llm"
	"github.com/jmylchreest/distill/pkg/prompt"
	"github.com/jmylchreest/distill/pkg/schema"
	"github.com/jmylchreest/distill/pkg/source"
)

// Kind classifies a failure for the transport layer. KindTimeout is a
// source fetch that ran out of time; KindModelTimeout is a model call that
// passed its deadline.
type Kind string

const (
	KindInvalid      Kind = "invalid"
	KindNotFound     Kind = "not_found"
	KindTimeout      Kind = "timeout"
	KindUpstream     Kind = "upstream"
	KindModelTimeout Kind = "model_timeout"
	KindRateLimit    Kind = "rate_limit"
	KindModel        Kind = "model"
	KindInternal     Kind = "internal"
)

// Error is a classified failure from a Distiller operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or KindInternal if it is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// classify wraps err with the kind its cause implies.
func classify(op string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: kindFor(err), Op: op, Err: err}
}

func kindFor(err error) Kind {
	var statusErr *fetcher.StatusError
	switch {
	case errors.Is(err, source.ErrUnsupportedType),
		errors.Is(err, source.ErrMissingInput),
		errors.Is(err, source.ErrInvalidURL),
		errors.Is(err, source.ErrInvalidPDF),
		errors.Is(err, source.ErrEmptyContent),
		errors.Is(err, fetcher.ErrUnknownMode),
		errors.Is(err, prompt.ErrUnknownMode),
		errors.Is(err, prompt.ErrMissingInstructions),
		errors.Is(err, prompt.ErrInvalidMaxLength),
		errors.Is(err, schema.ErrEmptySchema):
		return KindInvalid
	case errors.Is(err, fetcher.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound:
		return KindNotFound
	case errors.As(err, &statusErr),
		errors.Is(err, fetcher.ErrRequest):
		return KindUpstream
	case llm.IsRateLimited(err):
		return KindRateLimit
	default:
		return KindInternal
	}
}

// modelError classifies a failure talking to the model.
func modelError(op string, err error) *Error {
	switch {
	case llm.IsRateLimited(err):
		return &Error{Kind: KindRateLimit, Op: op, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindModelTimeout, Op: op, Err: err}
	default:
		return &Error{Kind: KindModel, Op: op, Err: err}
	}
}
