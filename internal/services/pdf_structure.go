package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"alfredoptarigan/resume-ingest/internal/models"
)

// pdfStructureAdapter reads text straight from page content streams with
// pdfcpu. It copes with some files the primary PDF reader rejects.
type pdfStructureAdapter struct{}

func NewPDFStructureAdapter() Adapter {
	return &pdfStructureAdapter{}
}

func (a *pdfStructureAdapter) Extract(ctx context.Context, doc *models.UploadedDocument) (*AdapterOutput, error) {
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty PDF", ErrDeclined)
	}

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(doc.Content), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: pdfcpu read: %v", ErrDeclined, err)
	}

	var sb strings.Builder
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
		if err != nil || r == nil {
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil || len(data) == 0 {
			continue
		}
		sb.WriteString(textFromContentStream(data))
		sb.WriteByte('\n')
	}

	text := CleanText(sb.String())
	if text == "" {
		return nil, fmt.Errorf("%w: no text operators in PDF", ErrDeclined)
	}
	return &AdapterOutput{Text: text}, nil
}

var pdfStringRe = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)

// textFromContentStream pulls string operands of the text-showing operators
// out of a content stream. Line moves become newlines.
func textFromContentStream(data []byte) string {
	var sb strings.Builder

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("'")), bytes.HasSuffix(line, []byte("\"")):
			sb.WriteByte('\n')
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteString(decodePDFString(m[1]))
			}
		case bytes.Equal(line, []byte("T*")), bytes.Equal(line, []byte("ET")),
			bytes.HasSuffix(line, []byte("TD")):
			sb.WriteByte('\n')
		case bytes.HasSuffix(line, []byte("Td")):
			if isVerticalMove(line) {
				sb.WriteByte('\n')
			} else {
				sb.WriteByte(' ')
			}
		}
	}
	return sb.String()
}

// isVerticalMove reports whether a "tx ty Td" operator changes the line.
func isVerticalMove(line []byte) bool {
	fields := strings.Fields(string(line))
	if len(fields) < 3 {
		return false
	}
	ty := strings.TrimLeft(fields[len(fields)-2], "-+")
	return strings.Trim(ty, "0.") != ""
}

// decodePDFString resolves the escape sequences of a PDF literal string.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] < '0' || raw[i] > '7' {
				sb.WriteByte(raw[i])
				continue
			}
			val := int(raw[i] - '0')
			for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			sb.WriteByte(byte(val))
		}
	}
	return sb.String()
}
