package services

import (
	"math"

	"alfredoptarigan/resume-ingest/internal/models"
)

// Assemble merges extraction confidence with field completeness. Anything
// under threshold becomes an error candidate with every field cleared.
func Assemble(res *ExtractionResult, fields *models.ParsedCandidate, threshold float64) *models.ParsedCandidate {
	if res == nil || fields == nil {
		return models.ErrorCandidate(0)
	}

	confidence := clamp01(res.Confidence * fields.Completeness())
	confidence = math.Round(confidence*1000) / 1000
	if confidence < threshold {
		return models.ErrorCandidate(confidence)
	}

	out := *fields
	if out.Tags == nil {
		out.Tags = []string{}
	}
	out.Source = res.Source
	out.Confidence = confidence
	return &out
}
