package services

import (
	"regexp"
	"strings"
	"unicode"

	"alfredoptarigan/resume-ingest/internal/models"
)

// FieldExtractor derives candidate fields from extracted text. It never
// fails: a missing signal leaves the field empty.
type FieldExtractor interface {
	ExtractFields(text string) *models.ParsedCandidate
	FindEmail(text string) string
	FindPhone(text string) string
	DetectSkills(text string) models.SkillLevels
	Tags(skills models.SkillFlags, title string) []string
}

const defaultRoleScanLines = 20

const monthPattern = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

var (
	emailRe     = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRunRe  = regexp.MustCompile(`[0-9+()\- ]{10,}`)
	yearsOnlyRe = regexp.MustCompile(`^(?:(?:19|20)\d{2}[\s\-–()]*)+$`)

	nameRe     = regexp.MustCompile(`^\p{Lu}[\p{L}'’.\-]*(?:\s+\p{Lu}[\p{L}'’.\-]*){0,4}$`)
	shortCapRe = regexp.MustCompile(`^\p{Lu}[\p{L}'’&.\-]*(?:\s+\p{Lu}[\p{L}'’&.\-]*){0,3}$`)
	longCapRe  = regexp.MustCompile(`^\p{Lu}[\p{L}'’&.,\-]*(?:\s+(?:\p{Lu}[\p{L}'’&.,\-]*|of|and|&|the|for|de|du|la|on|in)){1,7}$`)

	dateRangeRe = regexp.MustCompile(`(?i)[\s,(|–—-]*(?:\b` + monthPattern + `\.?\s+)?(?:19|20)\d{2}\s*(?:[-–—]|to)\s*(?:(?:\b` + monthPattern + `\.?\s+)?(?:19|20)\d{2}|present|current|now|date)\)?\s*$`)

	roleKeywordRe = wordListRe(
		"manager", "director", "officer", "head of", "lead", "coordinator", "co-ordinator",
		"advisor", "adviser", "consultant", "analyst", "specialist", "executive", "assistant",
		"associate", "secretary", "chief", "president", "vice president", "engineer", "developer",
		"strategist", "researcher", "editor", "writer", "producer", "campaigner", "organiser",
		"organizer", "counsel", "lobbyist", "intern", "founder", "partner", "administrator",
		"representative", "spokesperson", "press secretary", "trainee", "fellow", "planner",
	)
	entityKeywordRe = wordListRe(
		"ltd", "limited", "inc", "llc", "llp", "plc", "gmbh", "group", "foundation", "ministry",
		"department", "council", "agency", "association", "trust", "society", "institute",
		"corporation", "corp", "company", "partners", "party", "parliament", "commission",
		"authority", "office", "bank", "charity", "union", "network", "consulting",
		"consultancy", "ngo", "government", "cabinet", "assembly", "federation", "alliance",
	)
	educationKeywordRe = wordListRe(
		"university", "college", "school", "academy", "polytechnic", "degree", "diploma",
		"bsc", "msc", "mba", "phd", "ba", "ma", "gcse", "a-levels",
	)

	employmentHeadingRe = wordListRe(
		"employment", "experience", "work history", "career history", "professional history",
		"employment history", "work experience", "professional experience", "career", "positions held",
	)
	otherHeadings = map[string]bool{
		"education": true, "skills": true, "key skills": true, "profile": true, "summary": true,
		"personal statement": true, "personal profile": true, "contact": true, "contact details": true,
		"references": true, "interests": true, "languages": true, "qualifications": true,
		"certifications": true, "achievements": true, "publications": true, "volunteering": true,
		"training": true, "objective": true, "about me": true, "personal details": true,
		"hobbies": true, "awards": true, "memberships": true,
	}

	roleSeparators = []string{" at ", " | ", " – ", " — ", " - ", ", "}
)

type skillTaxonomy struct {
	tag      string
	keywords *regexp.Regexp
}

var skillTaxonomies = []skillTaxonomy{
	{"communications", wordListRe(`communicat\w*`, "media", "pr", "press", "public relations", `journalis\w*`, `spokes\w*`, "comms", "messaging")},
	{"campaigns", wordListRe(`campaign\w*`, "outreach", "advocacy", `mobili[sz]\w*`, "grassroots", `fundrais\w*`, `canvass\w*`)},
	{"policy", wordListRe("policy", "policies", `legislat\w*`, `regulat\w*`, `parliamentar\w*`, "white paper", `consultation\w*`)},
	{"public-affairs", wordListRe("public affairs", `stakeholder\w*`, `lobby\w*`, "government relations", "government affairs", "political monitoring")},
}

var seniorityTags = []struct {
	tag      string
	keywords *regexp.Regexp
}{
	{"senior", wordListRe("senior", "sr", "principal", "lead")},
	{"management", wordListRe(`manag\w*`)},
	{"leadership", wordListRe("director", "head of", "chief", "vp", "vice president")},
	{"junior", wordListRe("junior", "jr", "assistant", "intern", "graduate", "trainee")},
}

// wordListRe builds a case-insensitive alternation anchored on word
// boundaries. Entries are regular expression fragments.
func wordListRe(words ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(words, "|") + `)\b`)
}

type fieldEngine struct {
	scanLines int
}

func NewFieldEngine() FieldExtractor {
	return &fieldEngine{scanLines: defaultRoleScanLines}
}

func (e *fieldEngine) ExtractFields(text string) *models.ParsedCandidate {
	lines := nonEmptyLines(text)
	c := &models.ParsedCandidate{Tags: []string{}}

	nameLine := -1
	if len(lines) > 0 {
		if first, last, ok := splitName(lines[0]); ok {
			c.FirstName, c.LastName = first, last
			nameLine = 0
		}
	}

	c.Email = e.FindEmail(text)
	c.Phone = e.FindPhone(text)
	c.CurrentTitle, c.CurrentEmployer = e.findRole(lines, nameLine)

	c.SkillLevels = e.DetectSkills(text)
	c.Skills = c.SkillLevels.Flags()
	c.Tags = e.Tags(c.Skills, c.CurrentTitle)
	return c
}

func (e *fieldEngine) FindEmail(text string) string {
	return emailRe.FindString(text)
}

// FindPhone returns the first run of at least ten phone characters that
// carries enough digits to be a number rather than a date range.
func (e *fieldEngine) FindPhone(text string) string {
	for _, m := range phoneRunRe.FindAllString(text, -1) {
		m = strings.TrimSpace(m)
		if len(m) < 10 || yearsOnlyRe.MatchString(m) {
			continue
		}
		if countDigits(m) >= 9 {
			return m
		}
	}
	return ""
}

// DetectSkills counts keyword hits per taxonomy, capped at 5.
func (e *fieldEngine) DetectSkills(text string) models.SkillLevels {
	level := func(re *regexp.Regexp) int {
		n := len(re.FindAllStringIndex(text, -1))
		if n > 5 {
			return 5
		}
		return n
	}
	return models.SkillLevels{
		Communications: level(skillTaxonomies[0].keywords),
		Campaigns:      level(skillTaxonomies[1].keywords),
		Policy:         level(skillTaxonomies[2].keywords),
		PublicAffairs:  level(skillTaxonomies[3].keywords),
	}
}

// Tags lists skill tags in taxonomy order, then seniority tags from the title.
func (e *fieldEngine) Tags(skills models.SkillFlags, title string) []string {
	tags := []string{}
	for i, set := range []bool{skills.Communications, skills.Campaigns, skills.Policy, skills.PublicAffairs} {
		if set {
			tags = append(tags, skillTaxonomies[i].tag)
		}
	}
	for _, s := range seniorityTags {
		if title != "" && s.keywords.MatchString(title) {
			tags = append(tags, s.tag)
		}
	}
	return tags
}

// findRole scans the employment section, or the top of the document when
// there is none, for the current title and employer.
func (e *fieldEngine) findRole(lines []string, nameLine int) (title, employer string) {
	start, end, inSection := 0, len(lines), false
	for i, line := range lines {
		if isEmploymentHeading(line) {
			start, inSection = i+1, true
			break
		}
	}
	if start+e.scanLines < end {
		end = start + e.scanLines
	}

	for i := start; i < end; i++ {
		line := lines[i]
		if i == nameLine {
			continue
		}
		if isHeading(line) {
			if inSection {
				break
			}
			continue
		}
		if emailRe.MatchString(line) || countDigits(line) >= 9 {
			continue
		}
		if educationKeywordRe.MatchString(line) {
			continue
		}

		line = strings.TrimSpace(dateRangeRe.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}

		hasRole := roleKeywordRe.MatchString(line)
		hasEntity := entityKeywordRe.MatchString(line)

		switch {
		case hasRole && title == "":
			if t, emp, ok := splitRoleLine(line); ok {
				title = t
				if employer == "" {
					employer = emp
				}
			} else {
				title = line
			}
		case hasEntity && employer == "":
			employer = line
		case !hasRole && !hasEntity && title == "" && isShortCapPhrase(line):
			title = line
		case !hasRole && !hasEntity && employer == "" && longCapRe.MatchString(line):
			employer = line
		}

		if title != "" && employer != "" {
			break
		}
	}
	return title, employer
}

// splitRoleLine splits "Policy Manager at Ministry of Example" style lines.
func splitRoleLine(line string) (string, string, bool) {
	for _, sep := range roleSeparators {
		idx := strings.Index(line, sep)
		if idx <= 0 {
			continue
		}
		left := strings.TrimSpace(line[:idx])
		right := strings.TrimSpace(line[idx+len(sep):])
		if left == "" || right == "" || !roleKeywordRe.MatchString(left) {
			continue
		}
		if entityKeywordRe.MatchString(right) || longCapRe.MatchString(right) {
			return left, right, true
		}
	}
	return "", "", false
}

func splitName(line string) (string, string, bool) {
	if len(line) > 60 || !nameRe.MatchString(line) {
		return "", "", false
	}
	tokens := strings.Fields(line)
	return tokens[0], strings.Join(tokens[1:], " "), true
}

func isShortCapPhrase(line string) bool {
	return countDigits(line) == 0 && !strings.Contains(line, "@") && shortCapRe.MatchString(line)
}

func headingKey(line string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimRight(line, ":.-–— ")))
}

// isEmploymentHeading matches "Work Experience" but not a title such as
// "Customer Experience Manager".
func isEmploymentHeading(line string) bool {
	key := headingKey(line)
	return len(strings.Fields(key)) <= 4 && employmentHeadingRe.MatchString(key) && !roleKeywordRe.MatchString(key)
}

func isHeading(line string) bool {
	return otherHeadings[headingKey(line)] || isEmploymentHeading(line)
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
