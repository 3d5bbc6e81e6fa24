package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"alfredoptarigan/resume-ingest/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type textAdapter struct{}

// NewTextAdapter passes plain text through with line cleanup.
func NewTextAdapter() Adapter {
	return &textAdapter{}
}

func (a *textAdapter) Extract(ctx context.Context, doc *models.UploadedDocument) (*AdapterOutput, error) {
	content := bytes.TrimPrefix(doc.Content, utf8BOM)
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, fmt.Errorf("%w: empty text file", ErrDeclined)
	}
	if bytes.IndexByte(content, 0) >= 0 {
		return nil, fmt.Errorf("%w: binary content in text file", ErrDeclined)
	}

	text := strings.ToValidUTF8(string(content), "")
	return &AdapterOutput{Text: CleanText(text)}, nil
}
