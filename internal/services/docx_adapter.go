package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"alfredoptarigan/resume-ingest/internal/models"
)

const docxBodyPart = "word/document.xml"

type docxAdapter struct {
	maxXMLSize int64
}

// NewDocxAdapter reads paragraphs from word/document.xml, one line each.
func NewDocxAdapter() Adapter {
	return &docxAdapter{maxXMLSize: 50 << 20}
}

func (a *docxAdapter) Extract(ctx context.Context, doc *models.UploadedDocument) (*AdapterOutput, error) {
	zr, err := zip.NewReader(bytes.NewReader(doc.Content), int64(len(doc.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: open docx archive: %v", ErrDeclined, err)
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBodyPart {
			body = f
			break
		}
	}
	if body == nil {
		return nil, fmt.Errorf("%w: %s not found in archive", ErrDeclined, docxBodyPart)
	}

	rc, err := body.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", docxBodyPart, err)
	}
	defer rc.Close()

	text, err := docxParagraphs(io.LimitReader(rc, a.maxXMLSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeclined, err)
	}
	return &AdapterOutput{Text: CleanText(text)}, nil
}

// docxParagraphs joins the w:t runs of each w:p into one line.
func docxParagraphs(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var out strings.Builder
	var para strings.Builder
	inText := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				para.Reset()
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if line := strings.TrimSpace(para.String()); line != "" {
					out.WriteString(line)
					out.WriteByte('\n')
				}
				para.Reset()
			}
		}
	}
	return out.String(), nil
}
