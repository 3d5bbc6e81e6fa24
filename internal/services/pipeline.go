package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/resume-ingest/internal/models"
)

const (
	AdapterText         = "text"
	AdapterDocx         = "docx"
	AdapterPDF          = "pdf"
	AdapterPDFStructure = "pdf-structure"
	AdapterOCR          = "ocr"
	AdapterVendor       = "vendor"
)

const (
	VendorProviderHTTP   = "http"
	VendorProviderGemini = "gemini"
)

// DefaultAdapterDescriptors is the built-in adapter table. Callers override
// entries by name through Registry.Configure.
func DefaultAdapterDescriptors() []AdapterDescriptor {
	return []AdapterDescriptor{
		{Name: AdapterText, Priority: 10, Enabled: true, MediaTypes: []string{models.MediaTypeText}, Confidence: 0.95, Source: models.SourceTextFile},
		{Name: AdapterDocx, Priority: 20, Enabled: true, MediaTypes: []string{models.MediaTypeDOCX}, Confidence: 0.9, Source: models.SourceDOCX},
		{Name: AdapterPDF, Priority: 30, Enabled: true, MediaTypes: []string{models.MediaTypePDF}, Confidence: 0.85, Source: models.SourcePDF},
		{Name: AdapterPDFStructure, Priority: 40, Enabled: true, MediaTypes: []string{models.MediaTypePDF}, Confidence: 0.75, Source: models.SourcePDF},
		{Name: AdapterOCR, Priority: 50, Enabled: true, MediaTypes: []string{models.MediaTypePDF, models.MediaTypePNG, models.MediaTypeJPEG, models.MediaTypeTIFF}, Confidence: 0.6, Source: models.SourceOCR},
		{Name: AdapterVendor, Priority: 60, Enabled: false, MediaTypes: []string{models.MediaTypePDF, models.MediaTypeDOCX, models.MediaTypeText}, Confidence: 0.9, Source: models.SourceVendor},
	}
}

type VendorConfig struct {
	Provider     string
	Endpoint     string
	APIKey       string
	Timeout      time.Duration
	GeminiAPIKey string
	GeminiModel  string
}

type PipelineConfig struct {
	Parser           ParserConfig
	Orchestrator     OrchestratorConfig
	BreakerThreshold int
	BreakerCooldown  time.Duration
	OCR              OCRConfig
	Vendor           VendorConfig
	SpoolPath        string
	// Adapters replaces the default descriptors of the same name.
	Adapters []AdapterDescriptor
}

// Pipeline is the wired parse stack shared by the API and the CLI.
type Pipeline struct {
	Registry Registry
	Breakers *CircuitBreakers
	Storage  StorageService
	Parser   ParserService
}

// NewPipeline registers every built-in adapter and applies configured
// descriptors. The vendor client is built whenever the vendor config allows
// it, so a disabled vendor can be enabled later through Reload. An enabled
// vendor with an unusable config is an error.
func NewPipeline(ctx context.Context, cfg PipelineConfig, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	descs := mergeDescriptors(DefaultAdapterDescriptors(), cfg.Adapters)
	storage := NewStorageService(cfg.SpoolPath)
	fields := NewFieldEngine()

	registry := NewRegistry()
	for _, desc := range descs {
		adapter, err := buildAdapter(ctx, desc, cfg, storage, fields, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to build adapter %s: %w", desc.Name, err)
		}
		if err := registry.Register(desc, adapter); err != nil {
			return nil, err
		}
	}

	var breakerOpts []BreakerOption
	if cfg.BreakerThreshold > 0 {
		breakerOpts = append(breakerOpts, WithBreakerThreshold(cfg.BreakerThreshold))
	}
	if cfg.BreakerCooldown > 0 {
		breakerOpts = append(breakerOpts, WithBreakerCooldown(cfg.BreakerCooldown))
	}
	breakers := NewCircuitBreakers(breakerOpts...)

	orch := NewOrchestrator(registry, breakers, cfg.Orchestrator, logger.Named("orchestrator"))
	parser := NewParserService(orch, fields, cfg.Parser, logger.Named("parser"))

	return &Pipeline{
		Registry: registry,
		Breakers: breakers,
		Storage:  storage,
		Parser:   parser,
	}, nil
}

func buildAdapter(ctx context.Context, desc AdapterDescriptor, cfg PipelineConfig, storage StorageService, fields FieldExtractor, logger *zap.Logger) (Adapter, error) {
	switch desc.Name {
	case AdapterText:
		return NewTextAdapter(), nil
	case AdapterDocx:
		return NewDocxAdapter(), nil
	case AdapterPDF:
		return NewPDFParserService(), nil
	case AdapterPDFStructure:
		return NewPDFStructureAdapter(), nil
	case AdapterOCR:
		ocr := cfg.OCR
		if v := desc.Options["language"]; v != "" {
			ocr.Language = v
		}
		if v := desc.Options["whitelist"]; v != "" {
			ocr.Whitelist = v
		}
		if v, err := strconv.Atoi(desc.Options["max_pages"]); err == nil {
			ocr.MaxPages = v
		}
		if ocr.DefaultConfidence <= 0 {
			ocr.DefaultConfidence = desc.Confidence
		}
		return NewOCRAdapter(ocr, storage, nil, logger.Named("ocr")), nil
	case AdapterVendor:
		return buildVendorAdapter(ctx, desc, cfg.Vendor, fields, logger)
	default:
		return nil, fmt.Errorf("no built-in implementation named %s", desc.Name)
	}
}

func buildVendorAdapter(ctx context.Context, desc AdapterDescriptor, cfg VendorConfig, fields FieldExtractor, logger *zap.Logger) (Adapter, error) {
	normalizer, err := NewVendorNormalizer(fields)
	if err != nil {
		return nil, err
	}

	client, err := newVendorClient(ctx, cfg, logger)
	if err != nil {
		if desc.Enabled {
			return nil, err
		}
		// Listed for status reporting only; Configure refuses to enable it.
		return &unavailableAdapter{reason: err.Error()}, nil
	}
	return NewVendorAdapter(client, normalizer, cfg.Timeout), nil
}

func newVendorClient(ctx context.Context, cfg VendorConfig, logger *zap.Logger) (VendorClient, error) {
	switch cfg.Provider {
	case VendorProviderGemini:
		return NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger.Named("gemini"))
	case VendorProviderHTTP, "":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("vendor endpoint is required for the http provider")
		}
		return NewHTTPVendorClient(cfg.Endpoint, cfg.APIKey, cfg.Timeout, logger.Named("vendor")), nil
	default:
		return nil, fmt.Errorf("unknown vendor provider %q", cfg.Provider)
	}
}

// Reload applies descriptors to the running registry. Adapters missing from
// descs go back to their defaults. Nothing changes when an error is returned.
func (p *Pipeline) Reload(descs []AdapterDescriptor) error {
	return p.Registry.Configure(mergeDescriptors(DefaultAdapterDescriptors(), descs))
}

// mergeDescriptors replaces defaults by name and appends nothing new: only
// built-in adapters can be configured.
func mergeDescriptors(defaults, overrides []AdapterDescriptor) []AdapterDescriptor {
	out := make([]AdapterDescriptor, len(defaults))
	copy(out, defaults)
	for _, o := range overrides {
		for i := range out {
			if out[i].Name == o.Name {
				out[i] = o
			}
		}
	}
	return out
}
