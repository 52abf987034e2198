package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/jmylchreest/distill/internal/logger"
	"github.com/jmylchreest/distill/internal/version"
	"github.com/jmylchreest/distill/pkg/distill"
	"github.com/jmylchreest/distill/pkg/fetcher"
	"github.com/jmylchreest/distill/pkg/prompt"
	"github.com/jmylchreest/distill/pkg/schema"
	"github.com/jmylchreest/distill/pkg/source"
)

// uploadField is the multipart field carrying the PDF.
const uploadField = "file"

// sourceFields are shared by both endpoints.
type sourceFields struct {
	SourceType string `json:"source_type" validate:"required,oneof=pdf url text"`
	Text       string `json:"text"        validate:"required_if=SourceType text"`
	URL        string `json:"url"         validate:"required_if=SourceType url"`
	FetchMode  string `json:"fetch_mode"  validate:"omitempty,oneof=static dynamic auto"`

	upload   []byte
	filename string
}

type summarizeRequest struct {
	sourceFields
	MaxLength       *int  `json:"max_length"       validate:"omitempty,gte=0,lte=10000"`
	IncludeMetadata *bool `json:"include_metadata"`
}

type extractRequest struct {
	sourceFields
	ExtractionType     string          `json:"extraction_type"     validate:"required"`
	CustomInstructions string          `json:"custom_instructions"`
	IncludeContext     *bool           `json:"include_context"`
	Schema             json.RawMessage `json:"schema"`

	schemaText string
}

type rootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{
		Message: "Welcome to Distill API",
		Version: version.String(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: version.String(),
	})
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := s.decode(w, r, &req, &req.sourceFields, func(form formValues) error {
		if v := form.get("max_length"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("max_length: %w", err)
			}
			req.MaxLength = &n
		}
		b, err := form.bool("include_metadata")
		req.IncludeMetadata = b
		return err
	}); err != nil {
		writeRequestError(w, err)
		return
	}

	input, err := req.input()
	if err != nil {
		writeRequestError(w, err)
		return
	}

	sr := distill.SummarizeRequest{
		Input:           input,
		IncludeMetadata: boolOr(req.IncludeMetadata, true),
	}
	if req.MaxLength != nil {
		sr.MaxLength = *req.MaxLength
	}

	resp, err := s.svc.Summarize(r.Context(), sr)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := s.decode(w, r, &req, &req.sourceFields, func(form formValues) error {
		req.ExtractionType = form.get("extraction_type")
		req.CustomInstructions = form.get("custom_instructions")
		req.schemaText = form.get("schema")
		b, err := form.bool("include_context")
		req.IncludeContext = b
		return err
	}); err != nil {
		writeRequestError(w, err)
		return
	}

	mode, err := prompt.ParseMode(req.ExtractionType)
	if err != nil || mode == prompt.ModeSummary {
		writeRequestError(w, &validationError{msg: fmt.Sprintf(
			"extraction_type must be one of key_points, entities, custom (got %q)", req.ExtractionType)})
		return
	}

	input, err := req.input()
	if err != nil {
		writeRequestError(w, err)
		return
	}

	sch, err := req.parseSchema()
	if err != nil {
		writeRequestError(w, err)
		return
	}
	if sch != nil && mode != prompt.ModeCustom {
		logger.Warn("schema ignored for non-custom extraction", "extraction_type", mode)
		sch = nil
	}

	resp, err := s.svc.Extract(r.Context(), distill.ExtractRequest{
		Input:              input,
		Mode:               mode,
		CustomInstructions: req.CustomInstructions,
		Schema:             sch,
		IncludeContext:     boolOr(req.IncludeContext, false),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// decode fills dst from a JSON body or a multipart form, then validates it.
// formFields reads the endpoint-specific form values.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any, src *sourceFields, formFields func(formValues) error) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.uploadLimit)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data", "application/x-www-form-urlencoded":
		if err := s.decodeForm(r, src); err != nil {
			return err
		}
		if err := formFields(formValues{r}); err != nil {
			return &validationError{msg: err.Error()}
		}
	case "application/json", "":
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(dst); err != nil {
			return decodeError(err)
		}
	default:
		return &statusError{code: http.StatusUnsupportedMediaType, msg: "unsupported content type " + mediaType}
	}

	src.SourceType = strings.ToLower(strings.TrimSpace(src.SourceType))
	if err := s.validate.Struct(dst); err != nil {
		return &validationError{msg: validationMessage(err)}
	}
	return nil
}

func (s *Server) decodeForm(r *http.Request, src *sourceFields) error {
	if err := r.ParseMultipartForm(s.uploadLimit); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return decodeError(err)
	}

	form := formValues{r}
	src.SourceType = form.get("source_type")
	src.Text = form.get("text")
	src.URL = form.get("url")
	src.FetchMode = form.get("fetch_mode")

	file, header, err := r.FormFile(uploadField)
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return nil
	case err != nil:
		return decodeError(err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return decodeError(err)
	}
	if kind := source.DetectType(data); kind != source.KindPDF {
		return &statusError{
			code: http.StatusUnsupportedMediaType,
			msg:  fmt.Sprintf("uploaded file %s is %s, only PDF uploads are supported", header.Filename, kind),
		}
	}

	src.upload = data
	src.filename = header.Filename
	if src.SourceType == "" {
		src.SourceType = string(source.TypePDF)
	}
	return nil
}

// input builds the source input after validation.
func (f *sourceFields) input() (source.Input, error) {
	mode, err := fetcher.ParseMode(f.FetchMode)
	if err != nil {
		return source.Input{}, &validationError{msg: err.Error()}
	}

	in := source.Input{
		Type:      source.Type(f.SourceType),
		FetchMode: mode,
	}
	switch in.Type {
	case source.TypeText:
		in.Text = f.Text
	case source.TypeURL:
		in.URL = f.URL
	case source.TypePDF:
		if len(f.upload) == 0 {
			return source.Input{}, &validationError{msg: "source_type pdf requires a multipart upload in the file field"}
		}
		in.Data = f.upload
		in.Filename = f.filename
	}
	return in, nil
}

// parseSchema parses the optional schema, given as a JSON object or as a string
// holding JSON or YAML.
func (r *extractRequest) parseSchema() (*schema.Schema, error) {
	raw := []byte(r.schemaText)
	if len(r.Schema) > 0 && string(r.Schema) != "null" {
		raw = r.Schema
		var text string
		if json.Unmarshal(r.Schema, &text) == nil {
			raw = []byte(text)
		}
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil, nil
	}

	s, err := schema.Parse(raw)
	if err != nil {
		return nil, &validationError{msg: "invalid schema: " + err.Error()}
	}
	return &s, nil
}

// formValues reads trimmed form values.
type formValues struct {
	r *http.Request
}

func (f formValues) get(key string) string {
	return strings.TrimSpace(f.r.FormValue(key))
}

func (f formValues) bool(key string) (*bool, error) {
	v := f.get(key)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &b, nil
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
