package parser

import (
	"regexp"
	"strconv"
	"strings"

	"signalSimBot/internal/domain"
	"signalSimBot/internal/validation"
)

// formatB handles the zone/channel convention: hashtag or slash symbols,
// an explicit entry zone, a comma-separated target list and a spelled-out
// stop loss, usually decorated with emojis.
//
//	🔥 #BTC/USDT LONG
//	Entry zone: 44000 - 45000
//	Targets: 46000, 47000, 48500
//	Stop loss: 43000
//	Lev: 10x
type formatB struct{}

var formatBRules = struct {
	symbol    *regexp.Regexp
	entryZone *regexp.Regexp
	entry     *regexp.Regexp
	targets   *regexp.Regexp
	priceList *regexp.Regexp
	stop      *regexp.Regexp
	leverage  *regexp.Regexp
	gate      []*regexp.Regexp
	weights   confidenceWeights
}{
	symbol:    regexp.MustCompile(`(?i)[#$]([a-z0-9]{2,8}(?:\s*/\s*[a-z]{3,5})?)|(?:^|\s)([a-z0-9]{2,8}\s*/\s*[a-z]{3,5})\b`),
	entryZone: regexp.MustCompile(`(?i)\bentry\s*zone\s*:?\s*(` + priceToken + `)\s*[-–]\s*(` + priceToken + `)`),
	entry:     regexp.MustCompile(`(?i)\bentry\s*:?\s*(` + priceToken + `)`),
	targets:   regexp.MustCompile(`(?i)\btargets?\s*:?\s*((?:` + priceToken + `)(?:\s*[,/]\s*(?:` + priceToken + `))*)`),
	priceList: regexp.MustCompile(priceToken),
	stop:      regexp.MustCompile(`(?i)\bstop\s*[-\s]?loss\s*:?\s*(` + priceToken + `)|\bsl\s*:?\s*(` + priceToken + `)`),
	leverage:  regexp.MustCompile(`(?i)\blev(?:erage)?\s*:?\s*(\d{1,3})(?:\s*[-–]\s*\d{1,3})?\s*x?\b`),
	gate: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bentry\s*zone\b`),
		regexp.MustCompile(`(?i)\btargets?\b`),
	},
	weights: confidenceWeights{
		symbol: 22, side: 16, entry: 20, entryZone: 5,
		targets: 20, stop: 12, leverage: 3, reason: 2, manyTargets: 5,
	},
}

// NewFormatB creates the zone/channel parser.
func NewFormatB() Parser { return formatB{} }

func (formatB) Name() string              { return "trade-format-b" }
func (formatB) Priority() int             { return 2 }
func (formatB) Policy() validation.Policy { return validation.Strict }

// CanParse requires the entry-zone wording plus a target list, the two
// markers of this channel format.
func (formatB) CanParse(text string) bool {
	for _, re := range formatBRules.gate {
		if !re.MatchString(text) {
			return false
		}
	}
	return true
}

func (p formatB) Parse(text, traderID string) *domain.Signal {
	sig := &domain.Signal{
		TraderID:   traderID,
		Method:     domain.MethodRule,
		ParserUsed: p.Name(),
		RawText:    text,
	}

	if m := formatBRules.symbol.FindStringSubmatch(text); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		sig.Symbol = NormalizeSymbol(raw)
	}
	if side, ok := detectSide(text); ok {
		sig.Side = side
	}
	if sig.Symbol == "" || sig.Side == "" {
		return nil
	}

	if m := formatBRules.entryZone.FindStringSubmatch(text); m != nil {
		low, okLow := parsePrice(m[1])
		high, okHigh := parsePrice(m[2])
		if okLow && okHigh {
			if high < low {
				low, high = high, low
			}
			sig.EntryLow, sig.EntryHigh = low, high
		}
	} else if m := formatBRules.entry.FindStringSubmatch(text); m != nil {
		if v, ok := parsePrice(m[1]); ok {
			sig.EntryLow, sig.EntryHigh = v, v
		}
	}

	if m := formatBRules.targets.FindStringSubmatch(text); m != nil {
		for _, tok := range formatBRules.priceList.FindAllString(m[1], -1) {
			if v, ok := parsePrice(tok); ok {
				sig.Targets = append(sig.Targets, v)
			}
		}
	}
	if m := formatBRules.stop.FindStringSubmatch(text); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if v, ok := parsePrice(raw); ok {
			sig.Stop = v
		}
	}
	if m := formatBRules.leverage.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil && v > 0 {
			sig.Leverage = v
		}
	}
	// Channel posts often end with a free-text comment after the stop line.
	if idx := strings.LastIndex(strings.ToLower(text), "note:"); idx >= 0 {
		sig.Reason = strings.TrimSpace(text[idx+len("note:"):])
	}

	sig.Confidence = computeConfidence(sig, formatBRules.weights)
	return sig
}
