package parser

import (
	"regexp"
	"strconv"
	"strings"

	"signalSimBot/internal/domain"
)

// Shared extraction data and helpers. Per-parser rule tables live next to
// each parser; everything here is source-agnostic.

// Quote assets recognised as already-normalized suffixes. A symbol without
// one of these gets USDT appended.
var quoteAssets = []string{"USDT", "USDC", "BUSD", "USD", "PERP"}

var (
	sideLongRe  = regexp.MustCompile(`(?i)\b(?:long|buy|longing)\b`)
	sideShortRe = regexp.MustCompile(`(?i)\b(?:short|sell|shorting)\b`)

	// Price token: optional thousands separators, optional decimals, optional
	// k suffix (thousands shorthand). The separator branch must demand at
	// least one ,ddd group: Go alternation is leftmost-first, and a
	// zero-or-more separator branch would happily match only the first
	// three digits of a plain "45000".
	priceToken = `\d{1,3}(?:,\d{3})+(?:\.\d+)?[kK]?|\d+(?:\.\d+)?[kK]?`
)

// parsePrice converts a price token to a float. Thousands separators are
// stripped and a k/K suffix multiplies by 1000. Returns false on anything it
// cannot read, so callers can leave the field absent.
func parsePrice(raw string) (float64, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if s == "" {
		return 0, false
	}
	mult := 1.0
	if strings.HasSuffix(s, "k") || strings.HasSuffix(s, "K") {
		mult = 1000
		s = s[:len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v * mult, true
}

// NormalizeSymbol converts a raw symbol token into canonical BASEQUOTE form:
// uppercase, separators and prefixes stripped, USDT appended when no known
// quote asset is present. Returns "" when the token is not symbol-like.
func NormalizeSymbol(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.TrimLeft(s, "#$")
	s = strings.NewReplacer("/", "", "-", "", "_", "", " ", "").Replace(s)
	if s == "" || len(s) > 12 {
		return ""
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return ""
		}
	}
	for _, q := range quoteAssets {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return s
		}
	}
	return s + "USDT"
}

// NormalizeSide maps side synonyms (BUY/SELL and casing variants) onto the
// canonical LONG/SHORT values. Returns false for anything else.
func NormalizeSide(raw string) (domain.Side, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "LONG", "BUY", "LONGING":
		return domain.Long, true
	case "SHORT", "SELL", "SHORTING":
		return domain.Short, true
	}
	return "", false
}

// detectSide scans the whole text for direction keywords. When both
// directions appear the first occurrence wins.
func detectSide(text string) (domain.Side, bool) {
	longIdx := sideLongRe.FindStringIndex(text)
	shortIdx := sideShortRe.FindStringIndex(text)
	switch {
	case longIdx == nil && shortIdx == nil:
		return "", false
	case shortIdx == nil || (longIdx != nil && longIdx[0] < shortIdx[0]):
		return domain.Long, true
	default:
		return domain.Short, true
	}
}

// normalizeText lowercases and collapses whitespace. Used for fingerprinting
// and for whitespace-insensitive matching.
func normalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// NormalizeText is the canonical text normalization used by the dispatcher's
// fingerprinting.
func NormalizeText(text string) string { return normalizeText(text) }
