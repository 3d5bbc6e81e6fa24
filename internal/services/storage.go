package services

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"alfredoptarigan/resume-ingest/internal/models"
)

// StorageService spools uploads to disk for tools that only read files
// (tesseract, pdftoppm). Nothing written here outlives the request.
type StorageService interface {
	Spool(doc *models.UploadedDocument) (string, func(), error)
	TempDir(prefix string) (string, func(), error)
	EnsureSpoolDir() error
}

type storageService struct {
	spoolPath string
}

func NewStorageService(spoolPath string) StorageService {
	if spoolPath == "" {
		spoolPath = filepath.Join(os.TempDir(), "resume-ingest")
	}
	return &storageService{
		spoolPath: spoolPath,
	}
}

func (s *storageService) EnsureSpoolDir() error {
	if err := os.MkdirAll(s.spoolPath, 0o755); err != nil {
		return fmt.Errorf("failed to create spool directory: %w", err)
	}

	return nil
}

// Spool writes the document to a uniquely named file and returns its path
// and a cleanup func that removes it.
func (s *storageService) Spool(doc *models.UploadedDocument) (string, func(), error) {
	if err := s.EnsureSpoolDir(); err != nil {
		return "", nil, err
	}

	filePath := filepath.Join(s.spoolPath, uuid.New().String()+spoolExtension(doc))
	if err := os.WriteFile(filePath, doc.Content, 0o600); err != nil {
		return "", nil, fmt.Errorf("failed to spool file: %w", err)
	}

	cleanup := func() { _ = os.Remove(filePath) }
	return filePath, cleanup, nil
}

func (s *storageService) TempDir(prefix string) (string, func(), error) {
	if err := s.EnsureSpoolDir(); err != nil {
		return "", nil, err
	}
	dir, err := os.MkdirTemp(s.spoolPath, prefix+"-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

func spoolExtension(doc *models.UploadedDocument) string {
	switch doc.MediaType {
	case models.MediaTypePDF:
		return ".pdf"
	case models.MediaTypeDOCX:
		return ".docx"
	case models.MediaTypeText:
		return ".txt"
	case models.MediaTypePNG:
		return ".png"
	case models.MediaTypeJPEG:
		return ".jpg"
	case models.MediaTypeTIFF:
		return ".tiff"
	}
	if ext := filepath.Ext(doc.FileName); ext != "" {
		return ext
	}
	return ".bin"
}
