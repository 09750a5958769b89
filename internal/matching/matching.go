// Package matching maps skills to their spellings and scores resume text
// against job requirements.
package matching

import (
	_ "embed"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed skills.yaml
var skillsYAML []byte

// Table holds the synonym map and the ordered list of known tech skills.
type Table struct {
	Synonyms   map[string][]string
	TechSkills []string
}

type tableFile struct {
	Synonyms   map[string][]string `yaml:"synonyms"`
	TechSkills yaml.Node           `yaml:"tech_skills"`
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// Default returns the embedded skill table.
func Default() *Table {
	defaultOnce.Do(func() {
		defaultTable, defaultErr = ParseTable(skillsYAML)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("matching: embedded skills.yaml: %v", defaultErr))
	}
	return defaultTable
}

// ParseTable decodes a skill table. tech_skills is a mapping of category
// to skill list; category order is kept so extraction is deterministic.
func ParseTable(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse skill table: %w", err)
	}

	t := &Table{Synonyms: make(map[string][]string, len(f.Synonyms))}
	for k, v := range f.Synonyms {
		t.Synonyms[strings.ToLower(strings.TrimSpace(k))] = v
	}

	if f.TechSkills.Kind != 0 && f.TechSkills.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("tech_skills must be a mapping of category to skills")
	}
	seen := make(map[string]bool)
	for i := 1; i < len(f.TechSkills.Content); i += 2 {
		var skills []string
		if err := f.TechSkills.Content[i].Decode(&skills); err != nil {
			return nil, fmt.Errorf("tech_skills.%s: %w", f.TechSkills.Content[i-1].Value, err)
		}
		for _, s := range skills {
			s = strings.ToLower(strings.TrimSpace(s))
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			t.TechSkills = append(t.TechSkills, s)
		}
	}
	return t, nil
}

// Variations returns the skill as given, its lower-case form and its
// synonyms, without duplicates.
func (t *Table) Variations(skill string) []string {
	skill = strings.TrimSpace(skill)
	if skill == "" {
		return nil
	}
	lower := strings.ToLower(skill)
	out := []string{skill}
	add := func(v string) {
		for _, existing := range out {
			if existing == v {
				return
			}
		}
		out = append(out, v)
	}
	add(lower)
	for _, v := range t.Synonyms[lower] {
		add(v)
	}
	return out
}

// VariationsFor expands every skill in skills.
func (t *Table) VariationsFor(skills []string) []string {
	var out []string
	for _, s := range skills {
		out = append(out, t.Variations(s)...)
	}
	return out
}

// ExtractKeywords returns every known tech skill that occurs in any
// requirement, in table order.
func (t *Table) ExtractKeywords(requirements []string) []string {
	lowered := make([]string, 0, len(requirements))
	for _, r := range requirements {
		lowered = append(lowered, strings.ToLower(r))
	}

	var out []string
	for _, skill := range t.TechSkills {
		for _, r := range lowered {
			if strings.Contains(r, skill) {
				out = append(out, skill)
				break
			}
		}
	}
	return out
}

var whitespace = regexp.MustCompile(`\s+`)

// NormalizeText lower-cases text and collapses runs of whitespace.
func NormalizeText(text string) string {
	return whitespace.ReplaceAllString(strings.ToLower(text), " ")
}

// Contains reports whether normalized text mentions skill at a word
// boundary or as a plain substring.
func Contains(text, skill string) bool {
	if strings.Contains(text, skill) {
		return true
	}
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(skill) + `\b`)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

// Result is the outcome of scoring one resume.
type Result struct {
	Keywords []string
	Matched  []string
	Score    int
}

// Score matches keywords against normalized text. The score is the
// rounded share of matched keywords, with an empty keyword set counted
// as one.
func Score(text string, keywords []string) Result {
	r := Result{Keywords: keywords}
	for _, k := range keywords {
		if Contains(text, k) {
			r.Matched = append(r.Matched, k)
		}
	}
	total := len(keywords)
	if total == 0 {
		total = 1
	}
	r.Score = int(math.Round(float64(len(r.Matched)) / float64(total) * 100))
	return r
}
