package services

import (
	"fmt"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildResumeExtractionPrompt asks the model to behave like a résumé parsing
// vendor and answer in the vendor JSON shape the normalizer reads.
func (pb *PromptBuilder) BuildResumeExtractionPrompt(fileName string) string {
	return fmt.Sprintf(`You are a résumé parsing service. The attached document is a candidate's CV (file name: %s).

Extract the candidate's details and return ONLY a JSON object in this format:
{
  "firstName": "<given name>",
  "lastName": "<family name>",
  "email": "<primary email address>",
  "phone": "<primary phone number as written>",
  "workExperience": [
    {"jobTitle": "<title>", "employer": "<organisation>", "isCurrent": <true|false>}
  ],
  "skills": ["<skill>", "..."],
  "rawText": "<the full plain text of the document>"
}

Rules:
- List workExperience newest first.
- Use an empty string for any field that is not present. Do not invent values.
- Do not wrap the JSON in markdown.`, fileName)
}
