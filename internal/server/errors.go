package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/jmylchreest/distill/internal/logger"
	"github.com/jmylchreest/distill/pkg/distill"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// validationError is a malformed or incomplete request.
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

// statusError carries an explicit status code.
type statusError struct {
	code int
	msg  string
}

func (e *statusError) Error() string { return e.msg }

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		logger.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	if code >= 500 {
		logger.Error("request failed", "status", code, "error", err)
	}
	writeJSON(w, code, ErrorResponse{Error: ErrorDetail{
		Type:    errorType(code),
		Message: err.Error(),
	}})
}

func errorType(code int) string {
	switch {
	case code == http.StatusNotFound:
		return "not_found_error"
	case code == http.StatusRequestTimeout, code == http.StatusGatewayTimeout:
		return "timeout_error"
	case code == http.StatusTooManyRequests:
		return "rate_limit_error"
	case code >= 500:
		return "api_error"
	default:
		return "invalid_request_error"
	}
}

// writeRequestError reports a decoding or validation failure.
func writeRequestError(w http.ResponseWriter, err error) {
	var ve *validationError
	var se *statusError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.As(err, &se):
		writeError(w, se.code, err)
	default:
		writeError(w, http.StatusBadRequest, err)
	}
}

// writeServiceError maps a pipeline failure onto a status code.
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(distill.KindOf(err)), err)
}

func statusFor(kind distill.Kind) int {
	switch kind {
	case distill.KindInvalid, distill.KindUpstream:
		return http.StatusBadRequest
	case distill.KindNotFound:
		return http.StatusNotFound
	case distill.KindTimeout:
		return http.StatusRequestTimeout
	case distill.KindModelTimeout:
		return http.StatusGatewayTimeout
	case distill.KindRateLimit:
		return http.StatusTooManyRequests
	case distill.KindModel:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeError classifies a body read or parse failure. Unparseable bodies
// are 400; well-formed JSON with a mistyped field is a validation failure.
func decodeError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
		return &statusError{
			code: http.StatusRequestEntityTooLarge,
			msg:  fmt.Sprintf("request body exceeds %d bytes", maxBytes(maxErr)),
		}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return &statusError{code: http.StatusBadRequest, msg: "request body is empty"}
	case errors.As(err, &syntaxErr):
		return &statusError{code: http.StatusBadRequest, msg: fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)}
	case errors.Is(err, io.ErrUnexpectedEOF):
		return &statusError{code: http.StatusBadRequest, msg: "malformed JSON: unexpected end of body"}
	case errors.As(err, &typeErr):
		return &validationError{msg: fmt.Sprintf("field %s must be %s", typeErr.Field, typeErr.Type)}
	default:
		return fmt.Errorf("read request: %w", err)
	}
}

func maxBytes(err *http.MaxBytesError) int64 {
	if err == nil {
		return 0
	}
	return err.Limit
}

// validationMessage renders validator errors using JSON field names.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return strings.Join(msgs, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "required_if":
		field, value, _ := strings.Cut(fe.Param(), " ")
		return fmt.Sprintf("%s is required when %s is %s", name, snakeCase(field), value)
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", name, fe.Tag())
	}
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
