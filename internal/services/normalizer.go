package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"sort"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"alfredoptarigan/resume-ingest/internal/models"
)

// vendorFields maps each canonical field to the vendor keys that may carry
// it, in probe order. Every key is tried as written and in PascalCase.
var vendorFields = struct {
	wrapper, firstName, lastName, fullName, email, phone, title, employer, experience, skills, rawText []string
}{
	wrapper:    []string{"data", "result", "resume", "candidate"},
	firstName:  []string{"firstName", "givenName", "first_name", "first"},
	lastName:   []string{"lastName", "familyName", "surname", "last_name", "last"},
	fullName:   []string{"name", "fullName", "candidateName", "formattedName"},
	email:      []string{"email", "emailAddress", "emails", "emailAddresses"},
	phone:      []string{"phone", "phoneNumber", "phoneNumbers", "phones", "mobile", "telephone"},
	title:      []string{"currentTitle", "jobTitle", "currentJobTitle", "headline"},
	employer:   []string{"currentEmployer", "employer", "currentCompany", "company"},
	experience: []string{"workExperience", "employmentHistory", "experience", "positions"},
	skills:     []string{"skills", "skillSet"},
	rawText:    []string{"rawText", "resumeText", "plainText", "text"},
}

// vendorPayloadSchema rejects payloads that are not objects or whose
// experience/skills are not lists.
const vendorPayloadSchema = `{
  "type": "object",
  "properties": {
    "workExperience": {"type": "array", "items": {"type": "object"}},
    "WorkExperience": {"type": "array", "items": {"type": "object"}},
    "skills": {"type": "array"},
    "Skills": {"type": "array"}
  }
}`

// vendorPosition is one experience entry. mapstructure matches keys
// case-insensitively, so jobTitle and JobTitle both land here.
type vendorPosition struct {
	JobTitle     string `mapstructure:"jobTitle"`
	Title        string `mapstructure:"title"`
	Position     string `mapstructure:"position"`
	Employer     string `mapstructure:"employer"`
	Company      string `mapstructure:"company"`
	CompanyName  string `mapstructure:"companyName"`
	Organization string `mapstructure:"organization"`
	IsCurrent    bool   `mapstructure:"isCurrent"`
	Current      bool   `mapstructure:"current"`
}

func (p vendorPosition) title() string {
	return firstNonEmpty(p.JobTitle, p.Title, p.Position)
}

func (p vendorPosition) employer() string {
	return firstNonEmpty(p.Employer, p.Company, p.CompanyName, p.Organization)
}

type VendorNormalizer interface {
	Normalize(raw []byte) (*models.ParsedCandidate, string, error)
}

type vendorNormalizer struct {
	fields FieldExtractor
	schema *jsonschema.Schema
	policy *bluemonday.Policy
}

func NewVendorNormalizer(fields FieldExtractor) (VendorNormalizer, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("vendor.json", strings.NewReader(vendorPayloadSchema)); err != nil {
		return nil, fmt.Errorf("add vendor schema: %w", err)
	}
	schema, err := compiler.Compile("vendor.json")
	if err != nil {
		return nil, fmt.Errorf("compile vendor schema: %w", err)
	}
	return &vendorNormalizer{
		fields: fields,
		schema: schema,
		policy: bluemonday.StrictPolicy(),
	}, nil
}

// Normalize maps a vendor payload onto ParsedCandidate and also returns the
// text the orchestrator measures. Malformed payloads are VendorUnavailable.
func (n *vendorNormalizer) Normalize(raw []byte) (*models.ParsedCandidate, string, error) {
	var payload any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, "", &VendorUnavailableError{Cause: fmt.Errorf("malformed vendor JSON: %w", err)}
	}
	if err := n.schema.Validate(payload); err != nil {
		return nil, "", &VendorUnavailableError{Cause: fmt.Errorf("unexpected vendor payload: %w", err)}
	}

	m := payload.(map[string]any)
	if inner, ok := probe(m, vendorFields.wrapper...); ok {
		if obj, ok := inner.(map[string]any); ok {
			m = obj
		}
	}

	c := &models.ParsedCandidate{Tags: []string{}}
	c.FirstName = n.probeString(m, vendorFields.firstName...)
	c.LastName = n.probeString(m, vendorFields.lastName...)
	if c.FirstName == "" && c.LastName == "" {
		c.FirstName, c.LastName = n.probeName(m)
	}

	c.Email = n.probeString(m, vendorFields.email...)
	c.Phone = n.probeString(m, vendorFields.phone...)
	c.CurrentTitle = n.probeString(m, vendorFields.title...)
	c.CurrentEmployer = n.probeString(m, vendorFields.employer...)

	if c.CurrentTitle == "" || c.CurrentEmployer == "" {
		if pos, ok := n.currentPosition(m); ok {
			if c.CurrentTitle == "" {
				c.CurrentTitle = n.clean(pos.title())
			}
			if c.CurrentEmployer == "" {
				c.CurrentEmployer = n.clean(pos.employer())
			}
		}
	}

	text := n.probeString(m, vendorFields.rawText...)
	flat := flattenStrings(payload)
	if text == "" {
		text = flat
	}

	if c.Phone == "" {
		c.Phone = n.fields.FindPhone(flat)
	}
	if c.Email == "" {
		c.Email = n.fields.FindEmail(flat)
	}

	skillText := strings.Join(n.probeStrings(m, vendorFields.skills...), "\n")
	c.SkillLevels = n.fields.DetectSkills(skillText + "\n" + c.CurrentTitle + "\n" + text)
	c.Skills = c.SkillLevels.Flags()
	c.Tags = n.fields.Tags(c.Skills, c.CurrentTitle)

	return c, text, nil
}

// probeString returns the first non-empty cleaned value. A key present with
// an empty value does not hide the keys after it.
func (n *vendorNormalizer) probeString(m map[string]any, keys ...string) string {
	if out := n.probeStrings(m, keys...); len(out) > 0 {
		return out[0]
	}
	return ""
}

func (n *vendorNormalizer) probeStrings(m map[string]any, keys ...string) []string {
	for _, k := range keys {
		for _, variant := range keyVariants(k) {
			v, ok := m[variant]
			if !ok || v == nil {
				continue
			}
			var out []string
			for _, s := range stringValues(v) {
				if s = n.clean(s); s != "" {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

// probeName handles "name" given as a single string or as a nested object.
func (n *vendorNormalizer) probeName(m map[string]any) (string, string) {
	v, ok := probe(m, vendorFields.fullName...)
	if !ok {
		return "", ""
	}
	if obj, ok := v.(map[string]any); ok {
		first := n.probeString(obj, vendorFields.firstName...)
		last := n.probeString(obj, vendorFields.lastName...)
		if first != "" || last != "" {
			return first, last
		}
		v, ok = probe(obj, vendorFields.fullName...)
		if !ok {
			return "", ""
		}
	}
	s, _ := v.(string)
	tokens := strings.Fields(n.clean(s))
	if len(tokens) == 0 {
		return "", ""
	}
	return tokens[0], strings.Join(tokens[1:], " ")
}

// currentPosition picks the entry flagged current, else the first one.
func (n *vendorNormalizer) currentPosition(m map[string]any) (vendorPosition, bool) {
	v, ok := probe(m, vendorFields.experience...)
	if !ok {
		return vendorPosition{}, false
	}
	entries, ok := v.([]any)
	if !ok {
		return vendorPosition{}, false
	}

	var positions []vendorPosition
	for _, e := range entries {
		obj, ok := e.(map[string]any)
		if !ok {
			continue
		}
		var pos vendorPosition
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &pos,
		})
		if err != nil {
			continue
		}
		if err := decoder.Decode(flattenNamed(obj)); err != nil {
			continue
		}
		if pos.IsCurrent || pos.Current {
			return pos, true
		}
		positions = append(positions, pos)
	}
	if len(positions) == 0 {
		return vendorPosition{}, false
	}
	return positions[0], true
}

func (n *vendorNormalizer) clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(n.policy.Sanitize(s)))
}

// probe looks keys up in order, each as written and then in PascalCase.
func probe(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		for _, variant := range keyVariants(k) {
			if v, ok := m[variant]; ok && v != nil {
				return v, true
			}
		}
	}
	return nil, false
}

func keyVariants(k string) []string {
	if p := pascalCase(k); p != k {
		return []string{k, p}
	}
	return []string{k}
}

func pascalCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// stringValues reads a scalar, a list of scalars or a list of small objects
// such as {"value": "..."} or {"name": "..."}.
func stringValues(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case json.Number:
		return []string{t.String()}
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, stringValues(item)...)
		}
		return out
	case map[string]any:
		if inner, ok := probe(t, "value", "name", "address", "number", "raw", "formattedNumber"); ok {
			return stringValues(inner)
		}
	}
	return nil
}

// flattenNamed replaces nested {"name": ...} objects with their name so
// mapstructure can decode them into string fields.
func flattenNamed(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		inner, ok := v.(map[string]any)
		if !ok {
			out[k] = v
			continue
		}
		if name, ok := probe(inner, "name", "value"); ok {
			out[k] = name
		}
	}
	return out
}

// flattenStrings serialises every string in the payload, sorted by key, one
// per line. It is the fallback haystack for regex probing.
func flattenStrings(v any) string {
	var sb strings.Builder
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				sb.WriteString(s)
				sb.WriteByte('\n')
			}
		case json.Number:
			sb.WriteString(t.String())
			sb.WriteByte('\n')
		case []any:
			for _, item := range t {
				walk(item)
			}
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				walk(t[k])
			}
		}
	}
	walk(v)
	return strings.TrimSpace(sb.String())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
