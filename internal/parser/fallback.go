package parser

import (
	"regexp"
	"strconv"

	"signalSimBot/internal/domain"
	"signalSimBot/internal/validation"
)

// fallback is the source-agnostic extraction of last resort before the AI
// escalation. It accepts any text carrying something symbol-like and a
// direction keyword, and scavenges whatever labelled prices it can find.
// Deliberately permissive: its job is recall, not precision.
type fallback struct{}

var fallbackRules = struct {
	symbol   *regexp.Regexp
	entry    *regexp.Regexp
	target   *regexp.Regexp
	stop     *regexp.Regexp
	leverage *regexp.Regexp
	weights  confidenceWeights
}{
	symbol:   regexp.MustCompile(`(?i)[#$]([a-z0-9]{2,8})\b|\b([a-z0-9]{2,8}(?:usdt|usdc|busd|usd))\b|\b([a-z0-9]{2,8}\s*/\s*[a-z]{3,5})\b`),
	entry:    regexp.MustCompile(`(?i)\b(?:entry|buy(?:\s*in)?|open)\s*(?:price)?\s*[:@]?\s*(` + priceToken + `)(?:\s*[-–]\s*(` + priceToken + `))?`),
	target:   regexp.MustCompile(`(?i)\b(?:tp\s*\d?|targets?\s*\d?|take\s*profit)\s*[:@]?\s*(` + priceToken + `)`),
	stop:     regexp.MustCompile(`(?i)\b(?:sl|stop(?:\s*[-\s]?loss)?)\s*[:@]?\s*(` + priceToken + `)`),
	leverage: regexp.MustCompile(`(?i)\b(\d{1,3})\s*x\b|\blev(?:erage)?\s*[:@]?\s*(\d{1,3})\b`),
	weights: confidenceWeights{
		symbol: 20, side: 15, entry: 20, entryZone: 3,
		targets: 15, stop: 10, leverage: 3, reason: 2, manyTargets: 5,
	},
}

// NewFallback creates the generic fallback parser. It always sits last in the
// candidate order.
func NewFallback() Parser { return fallback{} }

func (fallback) Name() string              { return "generic-fallback" }
func (fallback) Priority() int             { return 99 }
func (fallback) Policy() validation.Policy { return validation.Permissive }

// CanParse only needs a symbol-shaped token and a direction keyword.
func (fallback) CanParse(text string) bool {
	if !fallbackRules.symbol.MatchString(text) {
		return false
	}
	_, ok := detectSide(text)
	return ok
}

func (p fallback) Parse(text, traderID string) *domain.Signal {
	sig := &domain.Signal{
		TraderID:   traderID,
		Method:     domain.MethodFallback,
		ParserUsed: p.Name(),
		RawText:    text,
	}

	if m := fallbackRules.symbol.FindStringSubmatch(text); m != nil {
		for _, g := range m[1:] {
			if g != "" {
				sig.Symbol = NormalizeSymbol(g)
				break
			}
		}
	}
	if side, ok := detectSide(text); ok {
		sig.Side = side
	}
	if sig.Symbol == "" || sig.Side == "" {
		return nil
	}

	if m := fallbackRules.entry.FindStringSubmatch(text); m != nil {
		if low, ok := parsePrice(m[1]); ok {
			sig.EntryLow, sig.EntryHigh = low, low
			if m[2] != "" {
				if high, ok := parsePrice(m[2]); ok && high > low {
					sig.EntryHigh = high
				}
			}
		}
	}
	for _, m := range fallbackRules.target.FindAllStringSubmatch(text, -1) {
		if v, ok := parsePrice(m[1]); ok {
			sig.Targets = append(sig.Targets, v)
		}
	}
	if m := fallbackRules.stop.FindStringSubmatch(text); m != nil {
		if v, ok := parsePrice(m[1]); ok {
			sig.Stop = v
		}
	}
	if m := fallbackRules.leverage.FindStringSubmatch(text); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			sig.Leverage = v
		}
	}

	sig.Confidence = computeConfidence(sig, fallbackRules.weights)
	return sig
}
