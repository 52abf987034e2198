package config

import (
	"strings"
	"testing"
	"time"

	"github.com/jmylchreest/distill/pkg/fetcher"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Addr != ":8000" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.APIPrefix != "/api" {
		t.Errorf("APIPrefix = %q", cfg.Server.APIPrefix)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "*" {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Server.WriteTimeout != 180*time.Second {
		t.Errorf("WriteTimeout = %v", cfg.Server.WriteTimeout)
	}
	if cfg.LLM.Temperature != 0.1 || cfg.LLM.TopP != 0.95 || cfg.LLM.MaxTokens != 1024 {
		t.Errorf("LLM sampling = %+v", cfg.LLM)
	}
	if !cfg.LLM.StructuredOutput {
		t.Error("StructuredOutput should default to true")
	}
	if cfg.Fetch.Mode != "static" || cfg.Fetch.Cleaner != "text" {
		t.Errorf("Fetch = %+v", cfg.Fetch)
	}
	if cfg.Extraction.DefaultMaxLength != 1000 {
		t.Errorf("DefaultMaxLength = %d", cfg.Extraction.DefaultMaxLength)
	}

	limit, err := cfg.UploadLimit()
	if err != nil || limit != 10_000_000 {
		t.Errorf("UploadLimit() = %d, %v", limit, err)
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"DISTILL_SERVER_ADDR":                 "127.0.0.1:9000",
		"DISTILL_SERVER_CORS_ORIGINS":         "https://a.example,https://b.example",
		"DISTILL_LLM_PROVIDER":                "ollama",
		"DISTILL_LLM_MODEL":                   "mistral",
		"DISTILL_LLM_TEMPERATURE":             "0.5",
		"DISTILL_LLM_STRUCTURED_OUTPUT":       "false",
		"DISTILL_FETCH_MODE":                  "auto",
		"DISTILL_FETCH_TIMEOUT":               "3s",
		"DISTILL_EXTRACTION_MAX_CONTENT_SIZE": "1MB",
	})
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if len(cfg.Server.CORSOrigins) != 2 {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}

	dc, err := cfg.DistillConfig()
	if err != nil {
		t.Fatalf("DistillConfig() error = %v", err)
	}
	if dc.Provider != "ollama" || dc.Model != "mistral" || dc.Temperature != 0.5 {
		t.Errorf("llm settings = %q %q %v", dc.Provider, dc.Model, dc.Temperature)
	}
	if dc.StructuredOutput {
		t.Error("StructuredOutput should be false")
	}
	if dc.FetchMode != fetcher.ModeAuto || dc.Timeout != 3*time.Second {
		t.Errorf("fetch settings = %q %v", dc.FetchMode, dc.Timeout)
	}
	if dc.MaxContentSize != 1_000_000 {
		t.Errorf("MaxContentSize = %d", dc.MaxContentSize)
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"unknown provider", map[string]string{"DISTILL_LLM_PROVIDER": "bard"}, "Provider"},
		{"temperature range", map[string]string{"DISTILL_LLM_TEMPERATURE": "3"}, "Temperature"},
		{"top p range", map[string]string{"DISTILL_LLM_TOP_P": "1.5"}, "TopP"},
		{"fetch mode", map[string]string{"DISTILL_FETCH_MODE": "headless"}, "Mode"},
		{"cleaner", map[string]string{"DISTILL_FETCH_CLEANER": "magic"}, "Cleaner"},
		{"prefix", map[string]string{"DISTILL_SERVER_API_PREFIX": "api"}, "APIPrefix"},
		{"upload size", map[string]string{"DISTILL_SERVER_MAX_UPLOAD_SIZE": "lots"}, "max upload size"},
		{"zero upload size", map[string]string{"DISTILL_SERVER_MAX_UPLOAD_SIZE": "0"}, "must be positive"},
		{"content size", map[string]string{"DISTILL_EXTRACTION_MAX_CONTENT_SIZE": "big"}, "max content size"},
		{"not a number", map[string]string{"DISTILL_LLM_MAX_TOKENS": "many"}, "parse environment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.env)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestContentLimit_Unlimited(t *testing.T) {
	for _, v := range []string{"", "0", " 0 "} {
		cfg := &Config{Extraction: ExtractionConfig{MaxContentSize: v}}
		n, err := cfg.ContentLimit()
		if err != nil || n != 0 {
			t.Errorf("ContentLimit(%q) = %d, %v", v, n, err)
		}
	}
}
