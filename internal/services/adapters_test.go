package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"

	"alfredoptarigan/resume-ingest/internal/models"
)

func TestTextAdapter(t *testing.T) {
	a := NewTextAdapter()

	content := append([]byte{0xEF, 0xBB, 0xBF}, []byte("  Jane Doe  \r\n\r\n jane@example.com\n")...)
	out, err := a.Extract(context.Background(), models.NewUploadedDocument(content, models.MediaTypeText, "cv.txt"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if out.Text != "Jane Doe\njane@example.com" {
		t.Errorf("text = %q", out.Text)
	}

	for name, content := range map[string][]byte{
		"empty":  nil,
		"blank":  []byte(" \n\t"),
		"binary": {'a', 0, 'b'},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := a.Extract(context.Background(), models.NewUploadedDocument(content, models.MediaTypeText, "cv.txt"))
			if !errors.Is(err, ErrDeclined) {
				t.Fatalf("want ErrDeclined, got %v", err)
			}
		})
	}
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(docxBodyPart)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDocxAdapter(t *testing.T) {
	xml := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Jane</w:t></w:r><w:r><w:t xml:space="preserve"> Doe</w:t></w:r></w:p>
    <w:p></w:p>
    <w:p><w:r><w:t>Policy Manager</w:t><w:tab/><w:t>2020 - Present</w:t></w:r></w:p>
    <w:p><w:r><w:t>Line one</w:t><w:br/><w:t>Line two</w:t></w:r></w:p>
    <w:p><w:r><w:instrText>IGNORED</w:instrText></w:r></w:p>
  </w:body>
</w:document>`

	out, err := NewDocxAdapter().Extract(context.Background(),
		models.NewUploadedDocument(buildDocx(t, xml), models.MediaTypeDOCX, "cv.docx"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "Jane Doe\nPolicy Manager\t2020 - Present\nLine one\nLine two"
	if out.Text != want {
		t.Errorf("text = %q, want %q", out.Text, want)
	}
}

func TestDocxAdapterDeclinesNonArchives(t *testing.T) {
	a := NewDocxAdapter()
	_, err := a.Extract(context.Background(), models.NewUploadedDocument([]byte("not a zip"), models.MediaTypeDOCX, "cv.docx"))
	if !errors.Is(err, ErrDeclined) {
		t.Fatalf("want ErrDeclined, got %v", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.Create("word/other.xml")
	zw.Close()
	_, err = a.Extract(context.Background(), models.NewUploadedDocument(buf.Bytes(), models.MediaTypeDOCX, "cv.docx"))
	if !errors.Is(err, ErrDeclined) {
		t.Fatalf("want ErrDeclined for missing body part, got %v", err)
	}
}

func TestPDFParserDeclinesGarbage(t *testing.T) {
	_, err := NewPDFParserService().Extract(context.Background(),
		models.NewUploadedDocument([]byte("definitely not a pdf"), models.MediaTypePDF, "cv.pdf"))
	if !errors.Is(err, ErrDeclined) {
		t.Fatalf("want ErrDeclined, got %v", err)
	}
}

func TestPDFStructureDeclinesGarbage(t *testing.T) {
	_, err := NewPDFStructureAdapter().Extract(context.Background(),
		models.NewUploadedDocument([]byte("definitely not a pdf"), models.MediaTypePDF, "cv.pdf"))
	if !errors.Is(err, ErrDeclined) {
		t.Fatalf("want ErrDeclined, got %v", err)
	}
}

func TestTextFromContentStream(t *testing.T) {
	stream := strings.Join([]string{
		"BT",
		"/F1 12 Tf",
		"72 720 Td",
		"(Jane Doe) Tj",
		"0 -14 Td",
		"[(Senior ) -250 (Policy Manager)] TJ",
		"T*",
		`(Ministry of \(Example\)) Tj`,
		"ET",
	}, "\n")

	got := CleanText(textFromContentStream([]byte(stream)))
	want := "Jane Doe\nSenior Policy Manager\nMinistry of (Example)"
	if got != want {
		t.Errorf("text = %q, want %q", got, want)
	}
}

func TestDecodePDFString(t *testing.T) {
	cases := map[string]string{
		`plain`:       "plain",
		`a\(b\)`:      "a(b)",
		`tab\there`:   "tab\there",
		`\101\102`:    "AB",
		`back\\slash`: `back\slash`,
		`trailing\`:   `trailing\`,
	}
	for in, want := range cases {
		if got := decodePDFString([]byte(in)); got != want {
			t.Errorf("decodePDFString(%q) = %q, want %q", in, got, want)
		}
	}
}

// stubRunner fakes pdftoppm and tesseract.
type stubRunner struct {
	mu      sync.Mutex
	calls   []string
	pages   int
	tsv     string
	failBin string
	failErr error
}

func (r *stubRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, name)
	r.mu.Unlock()

	if name == r.failBin {
		return nil, nil, r.failErr
	}
	switch name {
	case "pdftoppm":
		prefix := args[len(args)-1]
		for i := 1; i <= r.pages; i++ {
			if err := os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, i), []byte("png"), 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case "tesseract":
		return []byte(r.tsv), nil, nil
	}
	return nil, nil, fmt.Errorf("unexpected binary %s", name)
}

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t100\t100\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t10\t10\t40\t10\t90\tJane\n" +
	"5\t1\t1\t1\t1\t2\t60\t10\t40\t10\t80\tDoe\n" +
	"5\t1\t1\t1\t2\t1\t10\t30\t40\t10\t70\tManager\n"

func TestParseTesseractTSV(t *testing.T) {
	text, conf := parseTesseractTSV([]byte(sampleTSV))
	if text != "Jane Doe\nManager" {
		t.Errorf("text = %q", text)
	}
	if conf < 0.799 || conf > 0.801 {
		t.Errorf("conf = %v, want 0.8", conf)
	}
}

func TestOCRAdapterImage(t *testing.T) {
	runner := &stubRunner{tsv: sampleTSV}
	a := NewOCRAdapter(OCRConfig{}, NewStorageService(t.TempDir()), runner, nil)

	out, err := a.Extract(context.Background(), models.NewUploadedDocument([]byte("png"), models.MediaTypePNG, "scan.png"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if out.Text != "Jane Doe\nManager" {
		t.Errorf("text = %q", out.Text)
	}
	if len(runner.calls) != 1 || runner.calls[0] != "tesseract" {
		t.Errorf("calls = %v", runner.calls)
	}
}

func TestOCRAdapterPDF(t *testing.T) {
	runner := &stubRunner{pages: 2, tsv: sampleTSV}
	a := NewOCRAdapter(OCRConfig{}, NewStorageService(t.TempDir()), runner, nil)

	out, err := a.Extract(context.Background(), pdfDoc())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if out.Text != "Jane Doe\nManager\nJane Doe\nManager" {
		t.Errorf("text = %q", out.Text)
	}
	if len(runner.calls) != 3 {
		t.Errorf("calls = %v, want pdftoppm + 2x tesseract", runner.calls)
	}
}

func TestOCRAdapterMissingBinaryIsPermanent(t *testing.T) {
	runner := &stubRunner{failBin: "tesseract", failErr: exec.ErrNotFound}
	a := NewOCRAdapter(OCRConfig{}, NewStorageService(t.TempDir()), runner, nil)

	_, err := a.Extract(context.Background(), models.NewUploadedDocument([]byte("png"), models.MediaTypePNG, "scan.png"))
	if err == nil || !isPermanent(err) {
		t.Fatalf("want permanent error, got %v", err)
	}
}

func TestOCRAdapterDeclinesOtherTypes(t *testing.T) {
	a := NewOCRAdapter(OCRConfig{}, NewStorageService(t.TempDir()), &stubRunner{}, nil)
	_, err := a.Extract(context.Background(), models.NewUploadedDocument([]byte("x"), models.MediaTypeDOCX, "cv.docx"))
	if !errors.Is(err, ErrDeclined) {
		t.Fatalf("want ErrDeclined, got %v", err)
	}
}
