package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"alfredoptarigan/resume-ingest/internal/models"
)

type vendorAdapter struct {
	client     VendorClient
	normalizer VendorNormalizer
	timeout    time.Duration
}

// NewVendorAdapter wraps a remote parser. Each call gets its own deadline
// so a slow vendor surfaces as a VendorUnavailableError.
func NewVendorAdapter(client VendorClient, normalizer VendorNormalizer, timeout time.Duration) Adapter {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &vendorAdapter{client: client, normalizer: normalizer, timeout: timeout}
}

func (a *vendorAdapter) Extract(ctx context.Context, doc *models.UploadedDocument) (*AdapterOutput, error) {
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrDeclined)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.client.Parse(callCtx, doc)
	if err != nil {
		var vu *VendorUnavailableError
		if errors.As(err, &vu) || isPermanent(err) {
			return nil, err
		}
		return nil, &VendorUnavailableError{Cause: err}
	}

	candidate, text, err := a.normalizer.Normalize(raw)
	if err != nil {
		return nil, err
	}
	return &AdapterOutput{Text: text, Candidate: candidate}, nil
}
