package parser

import (
	"regexp"
	"strconv"

	"signalSimBot/internal/domain"
	"signalSimBot/internal/validation"
)

// formatC handles terse shorthand calls: direction first, bare base symbol,
// k-suffixed prices, no labels beyond tp/sl/lev.
//
//	long btc 45k tp 47k 48.5k sl 44k lev 10x
//
// The author of this convention is loose about ordering, so this parser runs
// under the permissive policy: directional inconsistencies become warnings
// rather than rejections.
type formatC struct{}

var formatCRules = struct {
	header   *regexp.Regexp
	entry    *regexp.Regexp
	targets  *regexp.Regexp
	price    *regexp.Regexp
	stop     *regexp.Regexp
	leverage *regexp.Regexp
	weights  confidenceWeights
}{
	header:   regexp.MustCompile(`(?i)\b(long|short|buy|sell)\s+[#$]?([a-z]{2,8})\b`),
	entry:    regexp.MustCompile(`(?i)(?:\bentry\s*|@\s*)(` + priceToken + `)`),
	targets:  regexp.MustCompile(`(?i)\btps?\s+((?:` + priceToken + `)(?:\s+(?:` + priceToken + `))*)`),
	price:    regexp.MustCompile(priceToken),
	stop:     regexp.MustCompile(`(?i)\bsl\s+(` + priceToken + `)`),
	leverage: regexp.MustCompile(`(?i)\blev\s+(\d{1,3})\s*x?\b`),
	weights: confidenceWeights{
		symbol: 20, side: 15, entry: 20, entryZone: 2,
		targets: 16, stop: 10, leverage: 3, reason: 2, manyTargets: 5,
	},
}

// NewFormatC creates the terse shorthand parser.
func NewFormatC() Parser { return formatC{} }

func (formatC) Name() string              { return "trade-format-c" }
func (formatC) Priority() int             { return 3 }
func (formatC) Policy() validation.Policy { return validation.Permissive }

// CanParse requires the "<side> <symbol>" header plus at least one of the
// tp/sl shorthands so that ordinary chatter does not pass the gate.
func (formatC) CanParse(text string) bool {
	if !formatCRules.header.MatchString(text) {
		return false
	}
	return formatCRules.targets.MatchString(text) || formatCRules.stop.MatchString(text)
}

func (p formatC) Parse(text, traderID string) *domain.Signal {
	sig := &domain.Signal{
		TraderID:   traderID,
		Method:     domain.MethodRule,
		ParserUsed: p.Name(),
		RawText:    text,
	}

	m := formatCRules.header.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	side, ok := NormalizeSide(m[1])
	if !ok {
		return nil
	}
	sig.Side = side
	sig.Symbol = NormalizeSymbol(m[2])
	if sig.Symbol == "" {
		return nil
	}

	// The first bare price after the header is the entry unless an explicit
	// entry/@ marker names one.
	if em := formatCRules.entry.FindStringSubmatch(text); em != nil {
		if v, ok := parsePrice(em[1]); ok {
			sig.EntryLow, sig.EntryHigh = v, v
		}
	} else {
		rest := text[len(m[0]):]
		if loc := formatCRules.price.FindStringIndex(rest); loc != nil {
			// Ignore it when it already belongs to a tp/sl/lev clause.
			if tp := formatCRules.targets.FindStringIndex(rest); tp == nil || loc[0] < tp[0] {
				if sl := formatCRules.stop.FindStringIndex(rest); sl == nil || loc[0] < sl[0] {
					if v, ok := parsePrice(rest[loc[0]:loc[1]]); ok {
						sig.EntryLow, sig.EntryHigh = v, v
					}
				}
			}
		}
	}

	if tm := formatCRules.targets.FindStringSubmatch(text); tm != nil {
		for _, tok := range formatCRules.price.FindAllString(tm[1], -1) {
			if v, ok := parsePrice(tok); ok {
				sig.Targets = append(sig.Targets, v)
			}
		}
	}
	if sm := formatCRules.stop.FindStringSubmatch(text); sm != nil {
		if v, ok := parsePrice(sm[1]); ok {
			sig.Stop = v
		}
	}
	if lm := formatCRules.leverage.FindStringSubmatch(text); lm != nil {
		if v, err := strconv.Atoi(lm[1]); err == nil && v > 0 {
			sig.Leverage = v
		}
	}

	sig.Confidence = computeConfidence(sig, formatCRules.weights)
	return sig
}
