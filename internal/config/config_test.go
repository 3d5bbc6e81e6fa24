package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"alfredoptarigan/resume-ingest/internal/services"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "MAX_FILE_SIZE", "MIN_TEXT_LENGTH", "MAX_RETRIES", "RETRY_DELAY", "CONFIDENCE_THRESHOLD", "BREAKER_COOLDOWN", "ALLOWED_MEDIA_TYPES"} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()
	if cfg.Server.Port != "3000" {
		t.Errorf("Port = %q", cfg.Server.Port)
	}
	if cfg.Upload.MaxFileSize != 20971520 {
		t.Errorf("MaxFileSize = %d", cfg.Upload.MaxFileSize)
	}
	if cfg.Parse.MinTextLength != 50 || cfg.Parse.MaxRetries != 3 {
		t.Errorf("parse defaults = %+v", cfg.Parse)
	}
	if cfg.Parse.RetryDelay != time.Second {
		t.Errorf("RetryDelay = %v", cfg.Parse.RetryDelay)
	}
	if cfg.Parse.ConfidenceThreshold != 0.1 {
		t.Errorf("ConfidenceThreshold = %v", cfg.Parse.ConfidenceThreshold)
	}
	if cfg.Breaker.FailureThreshold != 5 || cfg.Breaker.Cooldown != time.Minute {
		t.Errorf("breaker = %+v", cfg.Breaker)
	}
	if len(cfg.Upload.AllowedMediaTypes) != 3 {
		t.Errorf("AllowedMediaTypes = %v", cfg.Upload.AllowedMediaTypes)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("RETRY_DELAY", "250ms")
	t.Setenv("RETRY_BACKOFF", "fixed")
	t.Setenv("ALLOWED_MEDIA_TYPES", "application/pdf, Image/PNG")
	t.Setenv("LOG_JSON", "true")
	t.Setenv("MIN_TEXT_LENGTH", "not-a-number")

	cfg := FromEnv()
	if cfg.Parse.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d", cfg.Parse.MaxRetries)
	}
	if cfg.Parse.RetryDelay != 250*time.Millisecond {
		t.Errorf("RetryDelay = %v", cfg.Parse.RetryDelay)
	}
	if cfg.Parse.MinTextLength != 50 {
		t.Errorf("MinTextLength should fall back to default, got %d", cfg.Parse.MinTextLength)
	}
	if !cfg.Log.JSON {
		t.Errorf("LOG_JSON not applied")
	}
	if diff := cmp.Diff([]string{"application/pdf", "image/png"}, cfg.Upload.AllowedMediaTypes); diff != "" {
		t.Errorf("AllowedMediaTypes mismatch (-want +got):\n%s", diff)
	}

	p := cfg.Pipeline()
	if p.Orchestrator.Backoff != services.BackoffFixed || p.Orchestrator.MaxRetries != 5 {
		t.Errorf("pipeline orchestrator = %+v", p.Orchestrator)
	}
}

func TestApplyAdapterYAML(t *testing.T) {
	doc := []byte(`
adapters:
  - name: pdf
    enabled: false
  - name: ocr
    priority: 15
    media_types: [application/pdf, IMAGE/PNG]
    options:
      language: deu
`)

	got, err := ApplyAdapterYAML(services.DefaultAdapterDescriptors(), doc)
	if err != nil {
		t.Fatalf("ApplyAdapterYAML: %v", err)
	}

	pdf := got[indexOf(got, "pdf")]
	if pdf.Enabled {
		t.Errorf("pdf should be disabled")
	}
	if pdf.Priority != 30 {
		t.Errorf("pdf priority changed to %d", pdf.Priority)
	}

	ocr := got[indexOf(got, "ocr")]
	if ocr.Priority != 15 {
		t.Errorf("ocr priority = %d", ocr.Priority)
	}
	if diff := cmp.Diff([]string{"application/pdf", "image/png"}, ocr.MediaTypes); diff != "" {
		t.Errorf("ocr media types (-want +got):\n%s", diff)
	}
	if ocr.Options["language"] != "deu" {
		t.Errorf("ocr options = %v", ocr.Options)
	}
}

func TestApplyAdapterYAMLErrors(t *testing.T) {
	cases := map[string]string{
		"unknown adapter": "adapters:\n  - name: nope\n",
		"bad confidence":  "adapters:\n  - name: pdf\n    confidence: 1.5\n",
		"bad yaml":        "adapters: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ApplyAdapterYAML(services.DefaultAdapterDescriptors(), []byte(doc)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestApplyAdapterEnv(t *testing.T) {
	env := map[string]string{
		"ADAPTER_PDF_STRUCTURE_PRIORITY": "5",
		"ADAPTER_VENDOR_ENABLED":         "true",
	}
	got, err := applyAdapterEnv(services.DefaultAdapterDescriptors(), func(k string) string { return env[k] })
	if err != nil {
		t.Fatalf("applyAdapterEnv: %v", err)
	}
	if p := got[indexOf(got, "pdf-structure")].Priority; p != 5 {
		t.Errorf("pdf-structure priority = %d", p)
	}
	if !got[indexOf(got, "vendor")].Enabled {
		t.Errorf("vendor should be enabled")
	}

	env["ADAPTER_TEXT_ENABLED"] = "maybe"
	if _, err := applyAdapterEnv(services.DefaultAdapterDescriptors(), func(k string) string { return env[k] }); err == nil {
		t.Fatalf("expected error for invalid bool")
	}
}

func TestLoadAdapters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adapters.yaml")
	if err := os.WriteFile(path, []byte("adapters:\n  - name: docx\n    priority: 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ADAPTER_DOCX_PRIORITY", "2")

	cfg := FromEnv()
	cfg.OCR.Enabled = false
	cfg.Vendor.Enabled = false
	cfg.Storage.AdaptersConfig = path

	got, err := LoadAdapters(cfg)
	if err != nil {
		t.Fatalf("LoadAdapters: %v", err)
	}
	if p := got[indexOf(got, "docx")].Priority; p != 2 {
		t.Errorf("env should win over file, docx priority = %d", p)
	}
	if got[indexOf(got, "ocr")].Enabled {
		t.Errorf("OCR_ENABLED=false not applied")
	}
}
