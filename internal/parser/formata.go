package parser

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"signalSimBot/internal/domain"
	"signalSimBot/internal/validation"
)

// formatA handles the structured labelled-field convention: an explicit pair,
// a direction keyword and one field per label ("Entry:", "TP1:", "SL:"),
// either on one line or one per line.
//
//	BTCUSDT LONG Entry: 45000 TP1: 47000 TP2: 48500 SL: 44000 Leverage: 10x
type formatA struct{}

// Extraction rule table for format A. Kept as data so the rules can be
// inspected and tested independently of the control flow below.
var formatARules = struct {
	symbol   *regexp.Regexp
	entry    *regexp.Regexp
	target   *regexp.Regexp
	stop     *regexp.Regexp
	leverage *regexp.Regexp
	reason   *regexp.Regexp
	gate     []*regexp.Regexp
	weights  confidenceWeights
}{
	symbol:   regexp.MustCompile(`(?i)(?:^|\s)[#$]?([a-z0-9]{2,8}\s*/\s*[a-z]{3,5}|[a-z0-9]{2,8}(?:usdt|usdc|busd|usd))\b`),
	entry:    regexp.MustCompile(`(?i)\bentry\s*[:@]\s*(` + priceToken + `)(?:\s*[-–]\s*(` + priceToken + `))?`),
	target:   regexp.MustCompile(`(?i)\b(?:tp|target)\s*(\d?)\s*[:@]\s*(` + priceToken + `)`),
	stop:     regexp.MustCompile(`(?i)\b(?:sl|stop[\s-]*loss|stop)\s*[:@]\s*(` + priceToken + `)`),
	leverage: regexp.MustCompile(`(?i)\blev(?:erage)?\s*[:@]?\s*(\d{1,3})\s*x?\b`),
	reason:   regexp.MustCompile(`(?i)\breason\s*:\s*(.+)`),
	gate: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bentry\s*[:@]`),
		regexp.MustCompile(`(?i)\b(?:tp\d?|target\s*\d?|sl|stop)\s*[:@]`),
	},
	weights: confidenceWeights{
		symbol: 25, side: 18, entry: 22, entryZone: 3,
		targets: 18, stop: 12, leverage: 3, reason: 2, manyTargets: 5,
	},
}

// NewFormatA creates the structured labelled-field parser.
func NewFormatA() Parser { return formatA{} }

func (formatA) Name() string              { return "trade-format-a" }
func (formatA) Priority() int             { return 1 }
func (formatA) Policy() validation.Policy { return validation.Strict }

// CanParse requires both a labelled entry and at least one labelled exit
// field, which is what separates this convention from looser formats.
func (formatA) CanParse(text string) bool {
	for _, re := range formatARules.gate {
		if !re.MatchString(text) {
			return false
		}
	}
	return true
}

func (p formatA) Parse(text, traderID string) *domain.Signal {
	sig := &domain.Signal{
		TraderID:   traderID,
		Method:     domain.MethodRule,
		ParserUsed: p.Name(),
		RawText:    text,
	}

	if m := formatARules.symbol.FindStringSubmatch(text); m != nil {
		sig.Symbol = NormalizeSymbol(m[1])
	}
	if side, ok := detectSide(text); ok {
		sig.Side = side
	}
	if sig.Symbol == "" || sig.Side == "" {
		return nil
	}

	if m := formatARules.entry.FindStringSubmatch(text); m != nil {
		if low, ok := parsePrice(m[1]); ok {
			sig.EntryLow, sig.EntryHigh = low, low
			if m[2] != "" {
				if high, ok := parsePrice(m[2]); ok && high > low {
					sig.EntryHigh = high
				}
			}
		}
	}

	sig.Targets = p.extractTargets(text)
	if m := formatARules.stop.FindStringSubmatch(text); m != nil {
		if v, ok := parsePrice(m[1]); ok {
			sig.Stop = v
		}
	}
	if m := formatARules.leverage.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil && v > 0 {
			sig.Leverage = v
		}
	}
	if m := formatARules.reason.FindStringSubmatch(text); m != nil {
		sig.Reason = strings.TrimSpace(m[1])
	}

	sig.Confidence = computeConfidence(sig, formatARules.weights)
	return sig
}

// extractTargets collects every labelled target in numeric label order where
// labels are present, falling back to occurrence order for bare "TP:" labels.
func (formatA) extractTargets(text string) []float64 {
	matches := formatARules.target.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	type tp struct {
		label int
		price float64
	}
	tps := make([]tp, 0, len(matches))
	for i, m := range matches {
		v, ok := parsePrice(m[2])
		if !ok {
			continue
		}
		label := i + 1
		if m[1] != "" {
			if n, err := strconv.Atoi(m[1]); err == nil {
				label = n
			}
		}
		tps = append(tps, tp{label: label, price: v})
	}
	sort.SliceStable(tps, func(i, j int) bool { return tps[i].label < tps[j].label })
	out := make([]float64, 0, len(tps))
	for _, t := range tps {
		out = append(out, t.price)
	}
	return out
}
