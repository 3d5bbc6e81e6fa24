package handlers

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/resume-ingest/internal/models"
	"alfredoptarigan/resume-ingest/internal/services"
)

// FileField is the multipart field carrying the resume.
const FileField = "file"

type ParseHandler struct {
	parser      services.ParserService
	maxFileSize int64
	logger      *zap.Logger
}

func NewParseHandler(parser services.ParserService, maxFileSize int64, logger *zap.Logger) *ParseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParseHandler{
		parser:      parser,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

func (h *ParseHandler) HandleParse(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile(FileField)
	if err != nil {
		return WriteError(c, services.NewPipelineError(services.CodeNoFile,
			fmt.Sprintf("multipart field %q is required", FileField), err), nil)
	}

	if h.maxFileSize > 0 && fileHeader.Size > h.maxFileSize {
		return WriteError(c, services.NewPipelineError(services.CodeFileTooLarge,
			fmt.Sprintf("file too large. Max size: %d bytes", h.maxFileSize), nil), nil)
	}

	f, err := fileHeader.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to open uploaded file")
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to read uploaded file")
	}

	mediaType := models.NormalizeMediaType(fileHeader.Header.Get(fiber.HeaderContentType))
	if mediaType == "" || mediaType == models.MediaTypeOctet {
		if byExt := models.MediaTypeFromExtension(filepath.Ext(fileHeader.Filename)); byExt != "" {
			mediaType = byExt
		}
	}

	h.logger.Debug("📥 upload received",
		zap.String("file", fileHeader.Filename),
		zap.String("media_type", mediaType),
		zap.Int("size", len(content)),
	)

	doc := models.NewUploadedDocument(content, mediaType, fileHeader.Filename)
	result, err := h.parser.Parse(c.UserContext(), doc)
	if err != nil {
		var candidate *models.ParsedCandidate
		if result != nil {
			candidate = result.Candidate
		}
		return WriteError(c, err, candidate)
	}

	return c.Status(fiber.StatusOK).JSON(models.ParseResponse{
		RequestID: result.RequestID,
		FileName:  doc.FileName,
		Candidate: result.Candidate,
	})
}

// StatusFor maps a pipeline error code to its HTTP status.
func StatusFor(code services.ErrorCode) int {
	switch code {
	case services.CodeNoFile:
		return fiber.StatusBadRequest
	case services.CodeFileTooLarge:
		return fiber.StatusRequestEntityTooLarge
	case services.CodeUnsupportedType:
		return fiber.StatusUnsupportedMediaType
	case services.CodeParseFailed:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// WriteError renders the error envelope. Errors that are not pipeline errors
// are handed to the app error handler.
func WriteError(c *fiber.Ctx, err error, candidate *models.ParsedCandidate) error {
	var pe *services.PipelineError
	if !errors.As(err, &pe) {
		return err
	}
	return c.Status(StatusFor(pe.Code)).JSON(models.ErrorResponse{
		Error: models.ErrorBody{
			Code:    string(pe.Code),
			Message: pe.Message,
		},
		Candidate: candidate,
	})
}
