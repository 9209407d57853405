package apply

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/jobreach/jobreach/internal/domain"
	"github.com/jobreach/jobreach/internal/llm"
)

// mappingRule binds one profile attribute to the patterns that identify
// it in field text. Rules are evaluated top to bottom and the first
// match wins, so more specific attributes must precede generic ones.
type mappingRule struct {
	attribute string
	patterns  []*regexp.Regexp
}

func rule(attribute string, patterns ...string) mappingRule {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile("(?i)" + p)
	}
	return mappingRule{attribute: attribute, patterns: compiled}
}

var mappingRules = []mappingRule{
	rule("first_name", `first.*name`, `given.*name`, `fname`, `f_name`, `firstname`, `vorname`),
	rule("last_name", `last.*name`, `surname`, `family.*name`, `lname`, `l_name`, `lastname`, `nachname`),
	rule("full_name", `^name$`, `full.*name`, `complete.*name`, `your.*name`),
	rule("email", `e-?mail`, `email.*address`, `contact.*email`, `work.*email`),
	rule("phone", `phone`, `telephone`, `mobile`, `contact.*number`, `\btel\b`, `telefon`),
	rule("address", `address`, `street`, `residence`),
	rule("city", `city`, `stadt`, `ville`),
	rule("state", `state`, `province`, `region`),
	rule("zip_code", `\bzip\b`, `postal`, `postcode`, `\bplz\b`),
	rule("country", `country`, `nation`),
	rule("linkedin_url", `linkedin`, `linked.*in`),
	rule("github_url", `github`, `git.*hub`),
	rule("website", `website`, `homepage`, `personal.*site`, `portfolio`),
	rule("resume", `resume`, `\bcv\b`, `curriculum.*vitae`),
	rule("cover_letter", `cover.*letter`, `motivation`, `why.*interested`, `tell.*us`, `message`),
	rule("experience_years", `years.*experience`, `experience.*years`, `work.*experience`),
	rule("salary_expectation", `salary`, `compensation`, `expected.*pay`, `desired.*rate`),
	rule("availability", `availability`, `start.*date`, `notice.*period`),
	rule("location", `location`, `where.*based`),
}

const (
	ruleConfidence  = 0.9
	modelConfidence = 0.3
)

// Suggester resolves ambiguous field text to a profile attribute
type Suggester interface {
	Suggest(ctx context.Context, fieldText string, candidates []string) (string, error)
}

// Mapper binds discovered fields to semantic profile attributes
type Mapper struct {
	suggester Suggester
	logger    *zap.Logger
}

// NewMapper creates a field mapper. suggester may be nil, in which case
// only rule matches produce mappings.
func NewMapper(suggester Suggester, logger *zap.Logger) *Mapper {
	return &Mapper{suggester: suggester, logger: logger}
}

// MapFields assigns each field a profile attribute. The returned slice
// has one entry per input field; fields nothing matched carry an empty
// attribute and zero confidence. Attributes never leave the profile's
// key set.
func (m *Mapper) MapFields(ctx context.Context, fields []domain.DiscoveredField, profile map[string]string) []domain.FieldMapping {
	candidates := make([]string, 0, len(profile))
	for attr := range profile {
		candidates = append(candidates, attr)
	}
	sort.Strings(candidates)

	mappings := make([]domain.FieldMapping, 0, len(fields))
	ruleHits, modelHits := 0, 0

	for _, field := range fields {
		mapping := domain.FieldMapping{Field: field}
		text := strings.ToLower(field.Text())

		if attr := matchRules(text, profile); attr != "" {
			mapping.Attribute = attr
			mapping.Method = domain.MappingRule
			mapping.Confidence = ruleConfidence
			ruleHits++
		} else if m.suggester != nil && text != "" {
			if attr := m.suggestAttribute(ctx, text, candidates, profile); attr != "" {
				mapping.Attribute = attr
				mapping.Method = domain.MappingModel
				mapping.Confidence = modelConfidence
				modelHits++
			}
		}

		mappings = append(mappings, mapping)
	}

	m.logger.Info("fields mapped",
		zap.Int("total", len(fields)),
		zap.Int("rule", ruleHits),
		zap.Int("model", modelHits),
		zap.Int("unmapped", len(fields)-ruleHits-modelHits),
	)
	return mappings
}

// matchRules returns the first attribute whose pattern matches the field
// text and whose profile value is non-empty
func matchRules(text string, profile map[string]string) string {
	if text == "" {
		return ""
	}
	for _, r := range mappingRules {
		for _, pattern := range r.patterns {
			if pattern.MatchString(text) {
				if profile[r.attribute] != "" {
					return r.attribute
				}
				break
			}
		}
	}
	return ""
}

func (m *Mapper) suggestAttribute(ctx context.Context, text string, candidates []string, profile map[string]string) string {
	attr, err := m.suggester.Suggest(ctx, text, candidates)
	if err != nil {
		m.logger.Debug("model field suggestion failed", zap.Error(err))
		return ""
	}
	if attr == llm.Unknown {
		return ""
	}
	// The suggester already constrains answers to the candidate set;
	// re-check membership so a misbehaving backend cannot widen it.
	if _, ok := profile[attr]; !ok {
		return ""
	}
	return attr
}
