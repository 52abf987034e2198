package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/distill/internal/config"
	"github.com/jmylchreest/distill/pkg/distill"
	"github.com/jmylchreest/distill/pkg/fetcher"
	"github.com/jmylchreest/distill/pkg/prompt"
	"github.com/jmylchreest/distill/pkg/response"
	"github.com/jmylchreest/distill/pkg/source"
)

// stubService records requests and returns canned results.
type stubService struct {
	summarizeReq *distill.SummarizeRequest
	extractReq   *distill.ExtractRequest
	err          error
}

func (s *stubService) Summarize(_ context.Context, req distill.SummarizeRequest) (*response.SummaryResponse, error) {
	s.summarizeReq = &req
	if s.err != nil {
		return nil, s.err
	}
	return &response.SummaryResponse{Summary: "A short summary.", WordCount: 3}, nil
}

func (s *stubService) Extract(_ context.Context, req distill.ExtractRequest) (*response.ExtractionResponse, error) {
	s.extractReq = &req
	if s.err != nil {
		return nil, s.err
	}
	resp := response.NewExtractionResponse(req.Mode, req.Input.Type)
	resp.Apply(response.Result{KeyValuePairs: []response.KeyValuePair{{Key: "k", Value: "v"}}})
	return resp, nil
}

const minimalPDF = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n"

func newTestServer(t *testing.T, svc Service, mutate ...func(*config.Config)) http.Handler {
	t.Helper()
	cfg, err := config.LoadFrom(map[string]string{})
	require.NoError(t, err)
	for _, m := range mutate {
		m(cfg)
	}
	s, err := New(cfg, svc)
	require.NoError(t, err)
	return s.Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func doMultipart(t *testing.T, h http.Handler, path string, fields map[string]string, file []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		fw, err := mw.CreateFormFile("file", "report.pdf")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestRootAndHealth(t *testing.T) {
	h := newTestServer(t, &stubService{})

	rec := doJSON(t, h, http.MethodGet, "/api/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"message":"Welcome to Distill API"`)

	rec = doJSON(t, h, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "ok", health.Status)
	require.NotEmpty(t, health.Version)
}

func TestNotFound(t *testing.T) {
	h := newTestServer(t, &stubService{})

	rec := doJSON(t, h, http.MethodGet, "/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "not_found_error", decodeErrorBody(t, rec).Type)
}

func TestCustomPrefix(t *testing.T) {
	h := newTestServer(t, &stubService{}, func(c *config.Config) { c.Server.APIPrefix = "/v1" })

	rec := doJSON(t, h, http.MethodGet, "/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummarize_JSON(t *testing.T) {
	svc := &stubService{}
	h := newTestServer(t, svc)

	rec := doJSON(t, h, http.MethodPost, "/api/summarize", map[string]any{
		"source_type": "text",
		"text":        "Some content to summarize.",
		"max_length":  200,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp response.SummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "A short summary.", resp.Summary)

	require.NotNil(t, svc.summarizeReq)
	require.Equal(t, source.TypeText, svc.summarizeReq.Input.Type)
	require.Equal(t, "Some content to summarize.", svc.summarizeReq.Input.Text)
	require.Equal(t, 200, svc.summarizeReq.MaxLength)
	require.True(t, svc.summarizeReq.IncludeMetadata)
}

func TestSummarize_URLWithFetchMode(t *testing.T) {
	svc := &stubService{}
	h := newTestServer(t, svc)

	rec := doJSON(t, h, http.MethodPost, "/api/summarize", map[string]any{
		"source_type":      "URL",
		"url":              "https://example.com/article",
		"fetch_mode":       "dynamic",
		"include_metadata": false,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, source.TypeURL, svc.summarizeReq.Input.Type)
	require.Equal(t, fetcher.ModeDynamic, svc.summarizeReq.Input.FetchMode)
	require.False(t, svc.summarizeReq.IncludeMetadata)
}

func TestSummarize_PDFUpload(t *testing.T) {
	svc := &stubService{}
	h := newTestServer(t, svc)

	rec := doMultipart(t, h, "/api/summarize", map[string]string{"max_length": "150"}, []byte(minimalPDF))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	in := svc.summarizeReq.Input
	require.Equal(t, source.TypePDF, in.Type)
	require.Equal(t, "report.pdf", in.Filename)
	require.Equal(t, []byte(minimalPDF), in.Data)
	require.Equal(t, 150, svc.summarizeReq.MaxLength)
}

func TestSummarize_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    map[string]any
		message string
	}{
		{"missing source type", map[string]any{"text": "x"}, "source_type is required"},
		{"bad source type", map[string]any{"source_type": "docx"}, "source_type must be one of pdf, url, text"},
		{"missing text", map[string]any{"source_type": "text"}, "text is required when source_type is text"},
		{"missing url", map[string]any{"source_type": "url"}, "url is required when source_type is url"},
		{"negative max length", map[string]any{"source_type": "text", "text": "x", "max_length": -5}, "max_length must be at least 0"},
		{"huge max length", map[string]any{"source_type": "text", "text": "x", "max_length": 20000}, "max_length must be at most 10000"},
		{"bad fetch mode", map[string]any{"source_type": "url", "url": "https://example.com", "fetch_mode": "warp"}, "fetch_mode must be one of"},
		{"pdf without upload", map[string]any{"source_type": "pdf"}, "requires a multipart upload"},
		{"wrong type", map[string]any{"source_type": "text", "text": "x", "max_length": "long"}, "max_length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{}
			h := newTestServer(t, svc)

			rec := doJSON(t, h, http.MethodPost, "/api/summarize", tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

			detail := decodeErrorBody(t, rec)
			require.Equal(t, "invalid_request_error", detail.Type)
			require.Contains(t, detail.Message, tt.message)
			require.Nil(t, svc.summarizeReq)
		})
	}
}

func TestSummarize_MalformedJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"truncated", `{"source_type":`, "unexpected end of body"},
		{"unquoted value", `{"source_type": text}`, "malformed JSON at offset"},
		{"bare key", `{bad json}`, "malformed JSON at offset"},
		{"not json", `not json`, "malformed JSON at offset"},
		{"empty body", ``, "request body is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{}
			h := newTestServer(t, svc)

			req := httptest.NewRequest(http.MethodPost, "/api/summarize", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			detail := decodeErrorBody(t, rec)
			require.Equal(t, "invalid_request_error", detail.Type)
			require.Contains(t, detail.Message, tt.message)
			require.Nil(t, svc.summarizeReq)
		})
	}
}

func TestSummarize_ZeroMaxLengthUsesDefault(t *testing.T) {
	svc := &stubService{}
	h := newTestServer(t, svc)

	rec := doJSON(t, h, http.MethodPost, "/api/summarize", map[string]any{
		"source_type": "text",
		"text":        "Some text.",
		"max_length":  0,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, 0, svc.summarizeReq.MaxLength)
}

func TestUpload_NotPDF(t *testing.T) {
	svc := &stubService{}
	h := newTestServer(t, svc)

	rec := doMultipart(t, h, "/api/summarize", nil, []byte("just some plain text"))
	require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	require.Contains(t, decodeErrorBody(t, rec).Message, "only PDF uploads are supported")
	require.Nil(t, svc.summarizeReq)
}

func TestUpload_TooLarge(t *testing.T) {
	h := newTestServer(t, &stubService{}, func(c *config.Config) { c.Server.MaxUploadSize = "1KB" })

	rec := doJSON(t, h, http.MethodPost, "/api/summarize", map[string]any{
		"source_type": "text",
		"text":        strings.Repeat("word ", 1000),
	})
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUnsupportedContentType(t *testing.T) {
	h := newTestServer(t, &stubService{})

	req := httptest.NewRequest(http.MethodPost, "/api/summarize", strings.NewReader("text"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestExtract_JSON(t *testing.T) {
	svc := &stubService{}
	h := newTestServer(t, svc)

	rec := doJSON(t, h, http.MethodPost, "/api/extract", map[string]any{
		"source_type":     "text",
		"text":            "Acme Corp opened in Berlin.",
		"extraction_type": "key-points",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp response.ExtractionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, prompt.ModeKeyPoints, resp.ExtractionType)
	require.Len(t, resp.KeyValuePairs, 1)

	require.Equal(t, prompt.ModeKeyPoints, svc.extractReq.Mode)
	require.False(t, svc.extractReq.IncludeContext, "include_context defaults to false")
	require.Nil(t, svc.extractReq.Schema)
}

func TestExtract_CustomSchema(t *testing.T) {
	tests := []struct {
		name   string
		schema any
	}{
		{"json object", map[string]any{
			"type":       "object",
			"properties": map[string]any{"city": map[string]any{"type": "string"}},
		}},
		{"yaml string", "name: place\nfields:\n  - name: city\n    type: string\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{}
			h := newTestServer(t, svc)

			rec := doJSON(t, h, http.MethodPost, "/api/extract", map[string]any{
				"source_type":         "text",
				"text":                "Acme Corp opened in Berlin.",
				"extraction_type":     "custom",
				"custom_instructions": "Find the city.",
				"include_context":     true,
				"schema":              tt.schema,
			})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			req := svc.extractReq
			require.Equal(t, prompt.ModeCustom, req.Mode)
			require.Equal(t, "Find the city.", req.CustomInstructions)
			require.True(t, req.IncludeContext)
			require.NotNil(t, req.Schema)
			props, ok := req.Schema.ToJSONSchema()["properties"].(map[string]any)
			require.True(t, ok)
			require.Contains(t, props, "city")
		})
	}
}

func TestExtract_Multipart(t *testing.T) {
	svc := &stubService{}
	h := newTestServer(t, svc)

	rec := doMultipart(t, h, "/api/extract", map[string]string{
		"extraction_type": "entities",
		"include_context": "true",
	}, []byte(minimalPDF))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, source.TypePDF, svc.extractReq.Input.Type)
	require.Equal(t, prompt.ModeEntities, svc.extractReq.Mode)
	require.True(t, svc.extractReq.IncludeContext)
}

func TestExtract_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    map[string]any
		message string
	}{
		{"missing mode", map[string]any{"source_type": "text", "text": "x"}, "extraction_type is required"},
		{"summary mode", map[string]any{"source_type": "text", "text": "x", "extraction_type": "summary"}, "extraction_type must be one of"},
		{"unknown mode", map[string]any{"source_type": "text", "text": "x", "extraction_type": "topics"}, "extraction_type must be one of"},
		{"bad schema", map[string]any{"source_type": "text", "text": "x", "extraction_type": "custom", "schema": "{not yaml: ["}, "invalid schema"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{}
			h := newTestServer(t, svc)

			rec := doJSON(t, h, http.MethodPost, "/api/extract", tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
			require.Contains(t, decodeErrorBody(t, rec).Message, tt.message)
			require.Nil(t, svc.extractReq)
		})
	}
}

func TestServiceErrors(t *testing.T) {
	tests := []struct {
		kind     distill.Kind
		status   int
		errorTyp string
	}{
		{distill.KindInvalid, http.StatusBadRequest, "invalid_request_error"},
		{distill.KindUpstream, http.StatusBadRequest, "invalid_request_error"},
		{distill.KindNotFound, http.StatusNotFound, "not_found_error"},
		{distill.KindTimeout, http.StatusRequestTimeout, "timeout_error"},
		{distill.KindModelTimeout, http.StatusGatewayTimeout, "timeout_error"},
		{distill.KindRateLimit, http.StatusTooManyRequests, "rate_limit_error"},
		{distill.KindModel, http.StatusBadGateway, "api_error"},
		{distill.KindInternal, http.StatusInternalServerError, "api_error"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			svc := &stubService{err: &distill.Error{Kind: tt.kind, Op: "summarize", Err: fmt.Errorf("boom")}}
			h := newTestServer(t, svc)

			rec := doJSON(t, h, http.MethodPost, "/api/summarize", map[string]any{"source_type": "text", "text": "x"})
			require.Equal(t, tt.status, rec.Code)

			detail := decodeErrorBody(t, rec)
			require.Equal(t, tt.errorTyp, detail.Type)
			require.Equal(t, "summarize: boom", detail.Message)
		})
	}
}

func TestCORS(t *testing.T) {
	h := newTestServer(t, &stubService{}, func(c *config.Config) {
		c.Server.CORSOrigins = []string{"https://app.example"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/summarize", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNew_InvalidUploadSize(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{})
	require.NoError(t, err)
	cfg.Server.MaxUploadSize = "huge"

	_, err = New(cfg, &stubService{})
	require.Error(t, err)
}
