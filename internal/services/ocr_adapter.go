package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"alfredoptarigan/resume-ingest/internal/models"
)

// Runner runs an external command. Tests swap it for a stub.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct {
	logger *zap.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	if err != nil {
		r.logger.Warn("exec failed",
			zap.String("cmd", name),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("stderr", truncate(errb.String(), 4<<10)),
			zap.Error(err),
		)
	} else {
		r.logger.Debug("exec ok",
			zap.String("cmd", name),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int("stdout_bytes", out.Len()),
		)
	}
	return out.Bytes(), errb.Bytes(), err
}

type OCRConfig struct {
	Tesseract      string
	Pdftoppm       string
	Language       string
	Whitelist      string
	DPI            int
	MaxPages       int
	MaxConcurrency int
	// DefaultConfidence is used when tesseract reports no word confidences.
	DefaultConfidence float64
}

func (c *OCRConfig) defaults() {
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Language == "" {
		c.Language = "eng"
	}
	if c.DPI <= 0 {
		c.DPI = 300
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 2
	}
	if c.DefaultConfidence <= 0 {
		c.DefaultConfidence = 0.6
	}
}

type ocrAdapter struct {
	cfg     OCRConfig
	storage StorageService
	runner  Runner
	sem     *semaphore.Weighted
	logger  *zap.Logger
}

// NewOCRAdapter runs tesseract over images, and over PDFs rasterised with
// pdftoppm. A nil runner means real processes.
func NewOCRAdapter(cfg OCRConfig, storage StorageService, runner Runner, logger *zap.Logger) Adapter {
	cfg.defaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if runner == nil {
		runner = execRunner{logger: logger}
	}
	return &ocrAdapter{
		cfg:     cfg,
		storage: storage,
		runner:  runner,
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrency)),
		logger:  logger,
	}
}

func (a *ocrAdapter) Extract(ctx context.Context, doc *models.UploadedDocument) (*AdapterOutput, error) {
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrDeclined)
	}

	if err := a.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer a.sem.Release(1)

	path, cleanup, err := a.storage.Spool(doc)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	var images []string
	switch doc.MediaType {
	case models.MediaTypePDF:
		pages, done, err := a.rasterize(ctx, path)
		if err != nil {
			return nil, err
		}
		defer done()
		images = pages
	case models.MediaTypePNG, models.MediaTypeJPEG, models.MediaTypeTIFF:
		images = []string{path}
	default:
		return nil, fmt.Errorf("%w: ocr does not read %s", ErrDeclined, doc.MediaType)
	}

	var text strings.Builder
	var confSum float64
	var confPages int
	for _, img := range images {
		pageText, conf, err := a.recognize(ctx, img)
		if err != nil {
			return nil, err
		}
		if text.Len() > 0 {
			text.WriteByte('\n')
		}
		text.WriteString(pageText)
		if conf > 0 {
			confSum += conf
			confPages++
		}
	}

	confidence := a.cfg.DefaultConfidence
	if confPages > 0 {
		confidence = confSum / float64(confPages)
	}

	return &AdapterOutput{Text: CleanText(text.String()), Confidence: confidence}, nil
}

// rasterize renders each PDF page to PNG and returns the images in page order.
func (a *ocrAdapter) rasterize(ctx context.Context, pdfPath string) ([]string, func(), error) {
	dir, cleanup, err := a.storage.TempDir("ocr")
	if err != nil {
		return nil, nil, err
	}

	prefix := filepath.Join(dir, "page")
	args := []string{"-r", strconv.Itoa(a.cfg.DPI), "-png"}
	if a.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(a.cfg.MaxPages))
	}
	args = append(args, pdfPath, prefix)

	if _, _, err := a.runner.Run(ctx, a.cfg.Pdftoppm, args...); err != nil {
		cleanup()
		return nil, nil, classifyExecError(a.cfg.Pdftoppm, err)
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("%w: pdftoppm rendered no pages", ErrDeclined)
	}
	return matches, cleanup, nil
}

// recognize runs tesseract in TSV mode, rebuilding lines from word rows and
// averaging word confidences into [0,1].
func (a *ocrAdapter) recognize(ctx context.Context, imagePath string) (string, float64, error) {
	args := []string{imagePath, "stdout", "-l", a.cfg.Language}
	if a.cfg.Whitelist != "" {
		args = append(args, "-c", "tessedit_char_whitelist="+a.cfg.Whitelist)
	}
	args = append(args, "tsv")

	out, _, err := a.runner.Run(ctx, a.cfg.Tesseract, args...)
	if err != nil {
		return "", 0, classifyExecError(a.cfg.Tesseract, err)
	}

	text, conf := parseTesseractTSV(out)
	return text, conf, nil
}

// parseTesseractTSV turns tesseract's TSV output into text and a mean word
// confidence. Columns: level page block par line word left top width height conf text.
func parseTesseractTSV(out []byte) (string, float64) {
	var sb strings.Builder
	var lineKey string
	var sum float64
	var n int

	for i, row := range strings.Split(string(out), "\n") {
		if i == 0 || row == "" {
			continue
		}
		cols := strings.Split(row, "\t")
		if len(cols) < 12 {
			continue
		}
		word := strings.TrimSpace(cols[11])
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 || word == "" {
			continue
		}

		key := strings.Join(cols[1:5], ".")
		switch {
		case sb.Len() == 0:
		case key != lineKey:
			sb.WriteByte('\n')
		default:
			sb.WriteByte(' ')
		}
		lineKey = key
		sb.WriteString(word)

		sum += conf
		n++
	}

	if n == 0 {
		return sb.String(), 0
	}
	return sb.String(), sum / float64(n) / 100
}

// classifyExecError marks a missing binary as permanent; crashes stay retryable.
func classifyExecError(bin string, err error) error {
	if errors.Is(err, exec.ErrNotFound) {
		return Permanent(fmt.Errorf("%s not installed: %w", bin, err))
	}
	return fmt.Errorf("%s: %w", bin, err)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
