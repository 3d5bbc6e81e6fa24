package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/resume-ingest/internal/models"
)

const maxVendorResponse = 10 << 20

// VendorClient submits a document to a remote résumé parser and returns its
// raw JSON answer. Transport failures come back as *VendorUnavailableError.
type VendorClient interface {
	Parse(ctx context.Context, doc *models.UploadedDocument) ([]byte, error)
}

type vendorRequest struct {
	FileName  string `json:"fileName"`
	MediaType string `json:"mediaType"`
	Content   string `json:"content"`
}

type httpVendorClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *zap.Logger
}

// NewHTTPVendorClient posts base64 documents to endpoint. The timeout is
// enforced by the http.Client so a slow vendor cannot hold a request.
func NewHTTPVendorClient(endpoint, apiKey string, timeout time.Duration, logger *zap.Logger) VendorClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &httpVendorClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

func (c *httpVendorClient) Parse(ctx context.Context, doc *models.UploadedDocument) ([]byte, error) {
	body, err := json.Marshal(vendorRequest{
		FileName:  doc.FileName,
		MediaType: doc.MediaType,
		Content:   base64.StdEncoding.EncodeToString(doc.Content),
	})
	if err != nil {
		return nil, fmt.Errorf("encode vendor request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, Permanent(fmt.Errorf("build vendor request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("vendor request failed",
			zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
			zap.Error(err),
		)
		return nil, &VendorUnavailableError{Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxVendorResponse))
	if err != nil {
		return nil, &VendorUnavailableError{Status: resp.StatusCode, Cause: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug("vendor response",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(raw)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)

	if resp.StatusCode/100 != 2 {
		return nil, &VendorUnavailableError{
			Status: resp.StatusCode,
			Cause:  fmt.Errorf("non-2xx status: %s", truncate(strings.TrimSpace(string(raw)), 256)),
		}
	}
	return raw, nil
}

// extractJSON strips markdown fences and any prose around a JSON object.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}
	return strings.TrimSpace(text)
}
