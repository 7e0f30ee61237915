// Package detector classifies raw call text into a trader style used as a
// parsing hint. It is a pure function over fixed rule tables: deterministic,
// no side effects, and it never fails; unclassifiable text is StyleUnknown.
package detector

import (
	"fmt"
	"strings"

	"signalSimBot/internal/domain"
)

// Weighting of the score components. Exclusion hits subtract a flat penalty
// per match; the final score is clamped to [0,1].
const (
	requiredWeight   = 0.6
	keywordWeight    = 0.3
	optionalWeight   = 0.1
	exclusionPenalty = 0.3
)

// Detector scores text against the style rule tables.
type Detector struct {
	rules []styleRule
}

// New creates a detector over the built-in rule tables.
func New() *Detector {
	return &Detector{rules: styleRules}
}

// Detect returns the best-scoring style above its declared minimum
// confidence, or StyleUnknown. Evidence lists which rules fired.
func (d *Detector) Detect(text string) domain.StyleMatch {
	best := domain.StyleMatch{Style: domain.StyleUnknown}
	for _, rule := range d.rules {
		score, evidence := scoreStyle(text, rule)
		if score < rule.minConfidence {
			continue
		}
		if score > best.Confidence {
			best = domain.StyleMatch{Style: rule.style, Confidence: score, Evidence: evidence}
		}
	}
	return best
}

// PreferredParser maps a detected style to the parser the dispatcher should
// try first. Returns "" for StyleUnknown.
func (d *Detector) PreferredParser(style domain.TraderStyle) string {
	for _, rule := range d.rules {
		if rule.style == style {
			return rule.preferredParser
		}
	}
	return ""
}

func scoreStyle(text string, rule styleRule) (float64, []string) {
	var evidence []string
	lower := strings.ToLower(text)

	matchedRequired := 0
	for _, re := range rule.required {
		if re.MatchString(text) {
			matchedRequired++
			evidence = append(evidence, "required:"+re.String())
		}
	}
	matchedKeywords := 0
	for _, kw := range rule.keywords {
		if strings.Contains(lower, kw) {
			matchedKeywords++
			evidence = append(evidence, "keyword:"+kw)
		}
	}
	matchedOptional := 0
	for _, re := range rule.optional {
		if re.MatchString(text) {
			matchedOptional++
			evidence = append(evidence, "optional:"+re.String())
		}
	}

	score := 0.0
	if len(rule.required) > 0 {
		score += requiredWeight * float64(matchedRequired) / float64(len(rule.required))
	}
	if len(rule.keywords) > 0 {
		score += keywordWeight * float64(matchedKeywords) / float64(len(rule.keywords))
	}
	if len(rule.optional) > 0 {
		score += optionalWeight * float64(matchedOptional) / float64(len(rule.optional))
	}
	for _, re := range rule.exclusions {
		if re.MatchString(text) {
			score -= exclusionPenalty
			evidence = append(evidence, fmt.Sprintf("exclusion:%s", re.String()))
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, evidence
}
