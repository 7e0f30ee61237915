// Package parser turns free-form trading-call text into draft signals.
//
// Each specialized parser owns a private table of extraction rules tuned to
// one source's formatting conventions and implements the same two-step
// contract: a cheap CanParse gate and a Parse that either returns a draft
// signal or nil. Parse never propagates an internal failure: a field that
// cannot be extracted is simply absent, and a draft missing the mandatory
// symbol or direction is dropped by returning nil.
package parser

import (
	"signalSimBot/internal/domain"
	"signalSimBot/internal/validation"
)

// Parser is the common contract of all deterministic parsers, specialized and
// fallback alike. Implementations must be stateless and safe for reuse.
type Parser interface {
	// Name returns the stable identifier recorded in Signal.ParserUsed.
	Name() string
	// Priority orders parsers in the dispatcher's candidate list; lower runs first.
	Priority() int
	// Policy declares how validation treats this parser's rule violations.
	Policy() validation.Policy
	// CanParse is a cheap, side-effect-free predicate over the raw text.
	CanParse(text string) bool
	// Parse extracts a draft signal, or nil when mandatory fields are missing.
	Parse(text, traderID string) *domain.Signal
}

// DefaultParsers returns the full deterministic parser set in priority order,
// generic fallback last.
func DefaultParsers() []Parser {
	return []Parser{
		NewFormatA(),
		NewFormatB(),
		NewFormatC(),
		NewFallback(),
	}
}
