package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/resume-ingest/internal/models"
)

type ParserConfig struct {
	MaxFileSize         int64
	AllowedMediaTypes   []string
	ConfidenceThreshold float64
	Timeout             time.Duration
}

func (c *ParserConfig) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 20 << 20
	}
	if len(c.AllowedMediaTypes) == 0 {
		c.AllowedMediaTypes = []string{models.MediaTypePDF, models.MediaTypeDOCX, models.MediaTypeText}
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = 0.1
	}
}

// ParseResult is what a caller gets back. Candidate is set on success and on
// PARSE_FAILED (as the error candidate).
type ParseResult struct {
	RequestID string
	Candidate *models.ParsedCandidate
	Adapter   string
	Weak      bool
	Attempts  []ExtractionAttempt
}

type ParserService interface {
	Parse(ctx context.Context, doc *models.UploadedDocument) (*ParseResult, error)
}

type parserService struct {
	orchestrator Orchestrator
	fields       FieldExtractor
	cfg          ParserConfig
	logger       *zap.Logger
}

func NewParserService(orchestrator Orchestrator, fields FieldExtractor, cfg ParserConfig, logger *zap.Logger) ParserService {
	cfg.defaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &parserService{
		orchestrator: orchestrator,
		fields:       fields,
		cfg:          cfg,
		logger:       logger,
	}
}

func (p *parserService) Parse(ctx context.Context, doc *models.UploadedDocument) (*ParseResult, error) {
	if err := p.validate(doc); err != nil {
		return nil, err
	}

	result := &ParseResult{RequestID: uuid.New().String()}
	log := p.logger.With(
		zap.String("request_id", result.RequestID),
		zap.String("file", doc.FileName),
		zap.String("media_type", doc.MediaType),
		zap.Int64("size", doc.Size),
	)

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	extraction, err := p.orchestrator.Extract(ctx, doc)
	if err != nil {
		result.Candidate = models.ErrorCandidate(0)
		var failed *ExtractionFailedError
		if errors.As(err, &failed) {
			result.Attempts = failed.Attempts
		}
		log.Warn("❌ extraction failed", zap.Error(err), zap.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return result, NewPipelineError(CodeParseFailed, "no usable text could be extracted", err)
	}

	result.Adapter = extraction.Adapter
	result.Weak = extraction.Weak
	result.Attempts = extraction.Attempts

	var fields *models.ParsedCandidate
	if extraction.Source == models.SourceVendor && extraction.Candidate != nil {
		fields = extraction.Candidate
	} else {
		fields = p.fields.ExtractFields(extraction.Text)
	}

	result.Candidate = Assemble(extraction, fields, p.cfg.ConfidenceThreshold)
	if result.Candidate.Source == models.SourceError {
		log.Warn("⚠️ candidate rejected, low confidence",
			zap.String("adapter", extraction.Adapter),
			zap.Float64("confidence", result.Candidate.Confidence),
		)
		return result, NewPipelineError(CodeParseFailed,
			fmt.Sprintf("confidence %.3f below threshold %.2f", result.Candidate.Confidence, p.cfg.ConfidenceThreshold), nil)
	}

	log.Info("✅ candidate parsed",
		zap.String("adapter", extraction.Adapter),
		zap.Bool("weak", extraction.Weak),
		zap.Float64("confidence", result.Candidate.Confidence),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return result, nil
}

// validate rejects input errors before any adapter runs.
func (p *parserService) validate(doc *models.UploadedDocument) error {
	if doc == nil {
		return NewPipelineError(CodeNoFile, "no file present in the request", nil)
	}
	if doc.Size > p.cfg.MaxFileSize {
		return NewPipelineError(CodeFileTooLarge,
			fmt.Sprintf("file is %d bytes, limit is %d", doc.Size, p.cfg.MaxFileSize), nil)
	}
	for _, mt := range p.cfg.AllowedMediaTypes {
		if mt == doc.MediaType {
			return nil
		}
	}
	return NewPipelineError(CodeUnsupportedType,
		fmt.Sprintf("media type %q is not accepted", doc.MediaType), nil)
}
