package models

type Source string

const (
	SourceTextFile Source = "text-file"
	SourcePDF      Source = "pdf"
	SourceDOCX     Source = "docx"
	SourceOCR      Source = "ocr"
	SourceVendor   Source = "vendor"
	SourceError    Source = "error"
)

// SkillFlags are the boolean skill signals derived from keyword taxonomies.
type SkillFlags struct {
	Communications bool `json:"communications"`
	Campaigns      bool `json:"campaigns"`
	Policy         bool `json:"policy"`
	PublicAffairs  bool `json:"publicAffairs"`
}

// SkillLevels carries the same skills on a 0-5 scale for callers that rate them.
type SkillLevels struct {
	Communications int `json:"communications"`
	Campaigns      int `json:"campaigns"`
	Policy         int `json:"policy"`
	PublicAffairs  int `json:"publicAffairs"`
}

// Flags collapses levels into booleans: any non-zero level is a set flag.
func (l SkillLevels) Flags() SkillFlags {
	return SkillFlags{
		Communications: l.Communications > 0,
		Campaigns:      l.Campaigns > 0,
		Policy:         l.Policy > 0,
		PublicAffairs:  l.PublicAffairs > 0,
	}
}

type ParsedCandidate struct {
	FirstName       string      `json:"firstName"`
	LastName        string      `json:"lastName"`
	Email           string      `json:"email"`
	Phone           string      `json:"phone"`
	CurrentTitle    string      `json:"currentTitle"`
	CurrentEmployer string      `json:"currentEmployer"`
	Skills          SkillFlags  `json:"skills"`
	SkillLevels     SkillLevels `json:"skillLevels"`
	Tags            []string    `json:"tags"`
	Source          Source      `json:"source"`
	Confidence      float64     `json:"confidence"`
}

// CompletenessFields is the number of identity fields that count toward
// field completeness.
const CompletenessFields = 5

// PopulatedFields counts the non-empty identity fields among name, email,
// phone, title and employer.
func (c *ParsedCandidate) PopulatedFields() int {
	n := 0
	if c.FirstName != "" || c.LastName != "" {
		n++
	}
	for _, v := range []string{c.Email, c.Phone, c.CurrentTitle, c.CurrentEmployer} {
		if v != "" {
			n++
		}
	}
	return n
}

// Completeness is the fraction of identity fields populated, in [0,1].
func (c *ParsedCandidate) Completeness() float64 {
	return float64(c.PopulatedFields()) / float64(CompletenessFields)
}

// ErrorCandidate is the terminal value for a rejected parse: every field is
// empty and the source is "error".
func ErrorCandidate(confidence float64) *ParsedCandidate {
	return &ParsedCandidate{
		Tags:       []string{},
		Source:     SourceError,
		Confidence: confidence,
	}
}
