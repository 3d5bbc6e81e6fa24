package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"alfredoptarigan/resume-ingest/internal/models"
)

// GeminiService sends the document to Gemini and asks for vendor-shaped JSON.
type GeminiService interface {
	VendorClient
	GenerateText(ctx context.Context, parts []*genai.Part, temperature float32) (string, error)
}

type geminiService struct {
	client        *genai.Client
	modelName     string
	promptBuilder *PromptBuilder
	logger        *zap.Logger
}

func NewGeminiService(ctx context.Context, apiKey, model string, logger *zap.Logger) (GeminiService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiService{
		client:        client,
		modelName:     model,
		promptBuilder: NewPromptBuilder(),
		logger:        logger,
	}, nil
}

// Parse implements VendorClient.
func (g *geminiService) Parse(ctx context.Context, doc *models.UploadedDocument) ([]byte, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(g.promptBuilder.BuildResumeExtractionPrompt(doc.FileName)),
	}
	if doc.MediaType == models.MediaTypeText {
		parts = append(parts, genai.NewPartFromText(string(doc.Content)))
	} else {
		parts = append(parts, genai.NewPartFromBytes(doc.Content, doc.MediaType))
	}

	text, err := g.GenerateText(ctx, parts, 0)
	if err != nil {
		return nil, &VendorUnavailableError{Cause: err}
	}
	return []byte(extractJSON(text)), nil
}

// GenerateText implements GeminiService.
func (g *geminiService) GenerateText(ctx context.Context, parts []*genai.Part, temperature float32) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  8192,
		ResponseMIMEType: "application/json",
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, config)
	if err != nil {
		g.logger.Warn("gemini request failed", zap.String("model", g.modelName), zap.Error(err))
		return "", fmt.Errorf("failed to generate text: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("no response generated (nil response)")
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no text content in response")
	}

	g.logger.Debug("gemini response received", zap.Int("bytes", len(text)))
	return text, nil
}
