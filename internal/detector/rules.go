package detector

import (
	"regexp"

	"signalSimBot/internal/domain"
)

// styleRule is the fixed rule table for one trader style. Rules are pure
// data; the classifier in detector.go owns all control flow so each table can
// be unit-tested on its own.
type styleRule struct {
	style           domain.TraderStyle
	preferredParser string // Parser the dispatcher should try first for this style
	required        []*regexp.Regexp
	keywords        []string
	optional        []*regexp.Regexp
	exclusions      []*regexp.Regexp
	minConfidence   float64
}

var styleRules = []styleRule{
	{
		style:           domain.StyleStructured,
		preferredParser: "trade-format-a",
		required: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bentry\s*[:@]`),
			regexp.MustCompile(`(?i)\b(?:tp\d?|target\s*\d?)\s*:`),
		},
		keywords: []string{"entry", "tp1", "sl", "leverage"},
		optional: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bsl\s*:`),
			regexp.MustCompile(`(?i)\blev(?:erage)?\s*[:x]`),
		},
		exclusions: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:closed|cancelled|canceled|results?)\b`),
		},
		minConfidence: 0.45,
	},
	{
		style:           domain.StyleZone,
		preferredParser: "trade-format-b",
		required: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bentry\s*zone\b`),
			regexp.MustCompile(`\d[\d.,]*\s*[-–]\s*\d[\d.,]*`),
		},
		keywords: []string{"zone", "targets", "stop loss"},
		optional: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\btargets?\s*:`),
			regexp.MustCompile(`[#$][A-Za-z]{2,10}`),
		},
		exclusions: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:giveaway|airdrop|pnl\s+update)\b`),
		},
		minConfidence: 0.45,
	},
	{
		style:           domain.StyleTerse,
		preferredParser: "trade-format-c",
		required: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:long|short)\s+[a-z]{2,6}\b`),
			regexp.MustCompile(`(?i)\d[\d.,]*k?\b`),
		},
		keywords: []string{"tp", "sl", "lev"},
		optional: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\d[\d.,]*k\b`),
		},
		exclusions: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:entry\s*zone|targets\s*:)\b`),
		},
		minConfidence: 0.5,
	},
}
