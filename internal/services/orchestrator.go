package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"alfredoptarigan/resume-ingest/internal/logger"
	"alfredoptarigan/resume-ingest/internal/models"
)

const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
)

type OrchestratorConfig struct {
	MaxRetries    int
	RetryDelay    time.Duration
	Backoff       string
	MinTextLength int
}

func (c *OrchestratorConfig) defaults() {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.Backoff != BackoffFixed {
		c.Backoff = BackoffExponential
	}
	if c.MinTextLength <= 0 {
		c.MinTextLength = 50
	}
}

// ExtractionResult is the text chosen by the orchestrator and where it came from.
type ExtractionResult struct {
	Text       string
	Confidence float64
	Source     models.Source
	Adapter    string
	Weak       bool
	Candidate  *models.ParsedCandidate
	Attempts   []ExtractionAttempt
}

type Orchestrator interface {
	Extract(ctx context.Context, doc *models.UploadedDocument) (*ExtractionResult, error)
}

type orchestrator struct {
	registry Registry
	breakers *CircuitBreakers
	cfg      OrchestratorConfig
	logger   *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

type OrchestratorOption func(*orchestrator)

// WithSleep replaces the retry wait, for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) OrchestratorOption {
	return func(o *orchestrator) { o.sleep = fn }
}

func NewOrchestrator(registry Registry, breakers *CircuitBreakers, cfg OrchestratorConfig, logger *zap.Logger, opts ...OrchestratorOption) Orchestrator {
	cfg.defaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if breakers == nil {
		breakers = NewCircuitBreakers()
	}
	o := &orchestrator{
		registry: registry,
		breakers: breakers,
		cfg:      cfg,
		logger:   logger,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Extract walks the eligible adapters in priority order and stops at the
// first one whose text reaches MinTextLength. Shorter text is kept as a weak
// candidate and returned only when nothing better turns up.
func (o *orchestrator) Extract(ctx context.Context, doc *models.UploadedDocument) (*ExtractionResult, error) {
	adapters, err := o.registry.ListAdapters(doc.MediaType)
	if err != nil {
		return nil, err
	}

	var attempts []ExtractionAttempt
	var best *ExtractionResult

	for _, ra := range adapters {
		if ctx.Err() != nil {
			break
		}

		name := ra.Descriptor.Name
		if !o.breakers.For(name).Allow() {
			o.logger.Warn("adapter skipped, circuit open", zap.String("adapter", name))
			attempts = append(attempts, ExtractionAttempt{
				Adapter: name,
				Skipped: true,
				Err:     &AdapterUnavailableError{Adapter: name},
			})
			continue
		}

		out, err := o.invoke(ctx, ra, doc, &attempts)
		if err != nil {
			o.logger.Info("adapter gave no text",
				zap.String("adapter", name),
				zap.Error(err),
			)
			continue
		}

		text := strings.TrimSpace(out.Text)
		length := utf8.RuneCountInString(text)
		res := &ExtractionResult{
			Text:       text,
			Confidence: adapterConfidence(out.Confidence, ra.Descriptor.Confidence),
			Source:     ra.Descriptor.Source,
			Adapter:    name,
			Candidate:  out.Candidate,
		}

		if length >= o.cfg.MinTextLength {
			res.Attempts = attempts
			o.logger.Debug("adapter accepted",
				zap.String("adapter", name),
				zap.Int("text_length", length),
				zap.Float64("confidence", res.Confidence),
				zap.String("preview", logger.Preview(text, 80)),
			)
			return res, nil
		}

		if length > 0 && (best == nil || length > utf8.RuneCountInString(best.Text) ||
			(length == utf8.RuneCountInString(best.Text) && res.Confidence > best.Confidence)) {
			best = res
		}
		o.logger.Info("weak extraction, escalating",
			zap.String("adapter", name),
			zap.Int("text_length", length),
			zap.Int("min_text_length", o.cfg.MinTextLength),
		)
	}

	if best != nil {
		// Weak text is discounted by how far it falls short of the minimum.
		ratio := float64(utf8.RuneCountInString(best.Text)) / float64(o.cfg.MinTextLength)
		best.Confidence = clamp01(best.Confidence * ratio)
		best.Weak = true
		best.Attempts = attempts
		return best, nil
	}

	return nil, &ExtractionFailedError{MediaType: doc.MediaType, Attempts: attempts}
}

// invoke calls one adapter with bounded retries. Declines and permanent
// failures end the loop at once; every non-decline outcome feeds the breaker.
func (o *orchestrator) invoke(ctx context.Context, ra RegisteredAdapter, doc *models.UploadedDocument, attempts *[]ExtractionAttempt) (*AdapterOutput, error) {
	name := ra.Descriptor.Name
	cb := o.breakers.For(name)

	var lastErr error
	for attempt := 1; attempt <= o.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			if !cb.Allow() {
				err := &AdapterUnavailableError{Adapter: name}
				*attempts = append(*attempts, ExtractionAttempt{Adapter: name, Attempt: attempt, Skipped: true, Err: err})
				return nil, err
			}
			wait := o.retryDelay(attempt - 1)
			o.logger.Warn("retrying adapter",
				zap.String("adapter", name),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", o.cfg.MaxRetries),
				zap.Int64("backoff_ms", wait.Milliseconds()),
				zap.Error(lastErr),
			)
			if err := o.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		start := time.Now()
		out, err := ra.Adapter.Extract(ctx, doc)
		elapsed := time.Since(start)

		if err == nil {
			if out == nil {
				out = &AdapterOutput{}
			}
			cb.RecordSuccess()
			*attempts = append(*attempts, ExtractionAttempt{
				Adapter:    name,
				Attempt:    attempt,
				Text:       out.Text,
				Confidence: out.Confidence,
				Success:    true,
				Elapsed:    elapsed,
			})
			return out, nil
		}

		*attempts = append(*attempts, ExtractionAttempt{Adapter: name, Attempt: attempt, Err: err, Elapsed: elapsed})
		if errors.Is(err, ErrDeclined) {
			return nil, err
		}

		cb.RecordFailure()
		lastErr = err
		if isPermanent(err) || ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (o *orchestrator) retryDelay(retry int) time.Duration {
	if o.cfg.Backoff == BackoffFixed {
		return o.cfg.RetryDelay
	}
	return o.cfg.RetryDelay * time.Duration(1<<uint(retry-1))
}

func adapterConfidence(reported, base float64) float64 {
	if reported > 0 {
		return clamp01(reported)
	}
	return clamp01(base)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
