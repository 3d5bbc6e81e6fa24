package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"alfredoptarigan/resume-ingest/internal/models"
)

// PDFContent is the plain text of a PDF plus its page count.
type PDFContent struct {
	Text      string
	PageCount int
}

type PDFParserService interface {
	Adapter
	ExtractText(content []byte) (*PDFContent, error)
}

type pdfParserService struct{}

func NewPDFParserService() PDFParserService {
	return &pdfParserService{}
}

// Extract implements Adapter. Unreadable or text-less PDFs are declined so
// the next adapter (usually OCR) gets its turn without tripping the breaker.
func (p *pdfParserService) Extract(ctx context.Context, doc *models.UploadedDocument) (*AdapterOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := p.ExtractText(doc.Content)
	if err != nil {
		return nil, err
	}
	return &AdapterOutput{Text: content.Text}, nil
}

func (p *pdfParserService) ExtractText(content []byte) (result *PDFContent, err error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty PDF", ErrDeclined)
	}

	// The reader panics on some malformed xref tables.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: malformed PDF: %v", ErrDeclined, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open PDF: %v", ErrDeclined, err)
	}

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip the page, keep the rest
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	text := CleanText(textBuilder.String())
	if text == "" {
		return nil, fmt.Errorf("%w: no text content found in PDF", ErrDeclined)
	}

	return &PDFContent{
		Text:      text,
		PageCount: totalPage,
	}, nil
}

// CleanText trims every line and drops blank ones.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	var cleanedLines []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleanedLines = append(cleanedLines, line)
		}
	}

	return strings.Join(cleanedLines, "\n")
}
