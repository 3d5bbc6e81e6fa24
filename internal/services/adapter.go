package services

import (
	"context"
	"fmt"
	"time"

	"alfredoptarigan/resume-ingest/internal/models"
)

// Adapter is one text extraction strategy.
type Adapter interface {
	Extract(ctx context.Context, doc *models.UploadedDocument) (*AdapterOutput, error)
}

// AdapterFunc lets a plain function act as an Adapter.
type AdapterFunc func(ctx context.Context, doc *models.UploadedDocument) (*AdapterOutput, error)

func (f AdapterFunc) Extract(ctx context.Context, doc *models.UploadedDocument) (*AdapterOutput, error) {
	return f(ctx, doc)
}

// unavailableAdapter holds the place of an adapter that could not be built.
// It declines everything and the registry will not enable it.
type unavailableAdapter struct {
	reason string
}

func (a *unavailableAdapter) Extract(context.Context, *models.UploadedDocument) (*AdapterOutput, error) {
	return nil, fmt.Errorf("%w: adapter unavailable: %s", ErrDeclined, a.reason)
}

// AdapterOutput is what an adapter returns on success. Confidence of zero
// means "use the descriptor's base confidence". Candidate is set only by
// adapters that already return structured fields (the vendor).
type AdapterOutput struct {
	Text       string
	Confidence float64
	Candidate  *models.ParsedCandidate
}

// AdapterDescriptor is the configuration of one registered adapter.
type AdapterDescriptor struct {
	Name       string            `yaml:"name" json:"name"`
	Priority   int               `yaml:"priority" json:"priority"`
	Enabled    bool              `yaml:"enabled" json:"enabled"`
	MediaTypes []string          `yaml:"media_types" json:"media_types"`
	Confidence float64           `yaml:"confidence" json:"confidence"`
	Source     models.Source     `yaml:"source" json:"source"`
	Options    map[string]string `yaml:"options" json:"options,omitempty"`
}

// Supports reports whether the descriptor lists mediaType.
func (d AdapterDescriptor) Supports(mediaType string) bool {
	for _, mt := range d.MediaTypes {
		if mt == mediaType {
			return true
		}
	}
	return false
}

// ExtractionAttempt records one adapter invocation inside a single extraction.
type ExtractionAttempt struct {
	Adapter    string
	Attempt    int
	Text       string
	Confidence float64
	Success    bool
	Skipped    bool
	Err        error
	Elapsed    time.Duration
}
