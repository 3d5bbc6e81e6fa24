package services

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"alfredoptarigan/resume-ingest/internal/models"
)

const janeDoe = "Jane Doe\njane.doe@example.com\n+44 7700 900123\nSenior Policy Manager\nMinistry of Example"

func TestExtractFieldsPlainResume(t *testing.T) {
	got := NewFieldEngine().ExtractFields(janeDoe)

	want := &models.ParsedCandidate{
		FirstName:       "Jane",
		LastName:        "Doe",
		Email:           "jane.doe@example.com",
		Phone:           "+44 7700 900123",
		CurrentTitle:    "Senior Policy Manager",
		CurrentEmployer: "Ministry of Example",
		Skills:          models.SkillFlags{Policy: true},
		SkillLevels:     models.SkillLevels{Policy: 1},
		Tags:            []string{"policy", "senior", "management"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExtractFields mismatch (-want +got):\n%s", diff)
	}
	if got.Completeness() != 1 {
		t.Errorf("completeness = %v", got.Completeness())
	}
}

func TestExtractFieldsEmploymentSection(t *testing.T) {
	text := `John Smith
john@example.org
Profile
Experienced campaigner and organiser.
Employment History
Head of Campaigns at Green Alliance   2019 - Present
Campaigns Officer, Friends Trust   Mar 2015 - Jan 2019
Education
University of Somewhere`

	got := NewFieldEngine().ExtractFields(text)
	if got.CurrentTitle != "Head of Campaigns" {
		t.Errorf("title = %q", got.CurrentTitle)
	}
	if got.CurrentEmployer != "Green Alliance" {
		t.Errorf("employer = %q", got.CurrentEmployer)
	}
	if !got.Skills.Campaigns || got.Skills.Policy {
		t.Errorf("skills = %+v", got.Skills)
	}
	if diff := cmp.Diff([]string{"campaigns", "leadership"}, got.Tags); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}
}

func TestExtractFieldsRoleAndEmployer(t *testing.T) {
	cases := []struct {
		name, text, title, employer string
	}{
		{
			name:     "employer line with a role keyword",
			text:     "Jane Doe\njane@example.com\nSenior Policy Manager\nOffice of the Director of Public Prosecutions",
			title:    "Senior Policy Manager",
			employer: "Office of the Director of Public Prosecutions",
		},
		{
			name:     "title containing a heading word",
			text:     "Sam Lee\nsam@example.com\nCustomer Experience Manager\nNorthern Rail Ltd",
			title:    "Customer Experience Manager",
			employer: "Northern Rail Ltd",
		},
		{
			name:     "real heading still starts the section",
			text:     "Sam Lee\nWork Experience\nPress Officer, Green Party   2021 - Present",
			title:    "Press Officer",
			employer: "Green Party",
		},
	}
	e := NewFieldEngine()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := e.ExtractFields(tc.text)
			if got.CurrentTitle != tc.title || got.CurrentEmployer != tc.employer {
				t.Errorf("got title=%q employer=%q, want %q %q", got.CurrentTitle, got.CurrentEmployer, tc.title, tc.employer)
			}
		})
	}
}

func TestIsEmploymentHeading(t *testing.T) {
	for line, want := range map[string]bool{
		"Work Experience":             true,
		"EMPLOYMENT HISTORY:":         true,
		"Customer Experience Manager": false,
		"Career Development Officer":  false,
		"Education":                   false,
	} {
		if got := isEmploymentHeading(line); got != want {
			t.Errorf("isEmploymentHeading(%q) = %v, want %v", line, got, want)
		}
	}
}

func TestExtractFieldsIsDeterministic(t *testing.T) {
	e := NewFieldEngine()
	first := e.ExtractFields(janeDoe)
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(first, e.ExtractFields(janeDoe)); diff != "" {
			t.Fatalf("run %d differs (-first +got):\n%s", i, diff)
		}
	}
}

func TestExtractFieldsEmptyText(t *testing.T) {
	got := NewFieldEngine().ExtractFields("")
	if got.PopulatedFields() != 0 {
		t.Errorf("expected no fields, got %+v", got)
	}
	if got.Tags == nil {
		t.Errorf("tags should be an empty list, not nil")
	}
}

func TestFindPhone(t *testing.T) {
	e := NewFieldEngine()
	cases := []struct {
		name, text, want string
	}{
		{"uk mobile", "call +44 7700 900123 today", "+44 7700 900123"},
		{"us dashed", "Phone: (555) 123-4567 ext", "(555) 123-4567"},
		{"years only", "2015 - 2019  2019 - 2023", ""},
		{"too few digits", "ref 123-456-78", ""},
		{"none", "no numbers here", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := e.FindPhone(tc.text); got != tc.want {
				t.Errorf("FindPhone(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestDetectSkillsCapsAtFive(t *testing.T) {
	text := "policy policy policy policy policy policy policy legislation"
	levels := NewFieldEngine().DetectSkills(text)
	if levels.Policy != 5 {
		t.Errorf("policy level = %d, want 5", levels.Policy)
	}
	if levels.Communications != 0 {
		t.Errorf("communications level = %d", levels.Communications)
	}
}

func TestDetectSkillsWordBoundaries(t *testing.T) {
	// "impress" and "approve" must not count as "press" or "pr".
	levels := NewFieldEngine().DetectSkills("impress approve")
	if levels.Communications != 0 {
		t.Errorf("communications level = %d, want 0", levels.Communications)
	}
}

func TestTagsOrder(t *testing.T) {
	tags := NewFieldEngine().Tags(
		models.SkillFlags{Communications: true, PublicAffairs: true},
		"Junior Press Assistant",
	)
	if diff := cmp.Diff([]string{"communications", "public-affairs", "junior"}, tags); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}
}

func TestSplitRoleLine(t *testing.T) {
	title, employer, ok := splitRoleLine("Policy Adviser | Department for Transport")
	if !ok || title != "Policy Adviser" || employer != "Department for Transport" {
		t.Errorf("got %q %q %v", title, employer, ok)
	}
	if _, _, ok := splitRoleLine("Green Alliance, London"); ok {
		t.Errorf("line without a role keyword should not split")
	}
}
