package domain

import "time"

// Signal is the canonical structured representation of a trading instruction
// extracted from free text. It is created by the dispatcher, enriched by the
// validator, and handed read-only to the simulation engine. Invalid signals
// are never traded but are always retained for audit.
type Signal struct {
	ID          int64       // Assigned by the store
	TraderID    string      // Trader attribution
	Symbol      string      // Normalized BASEQUOTE form (e.g., "BTCUSDT")
	Side        Side        // LONG or SHORT
	EntryLow    float64     // Lower bound of the entry zone (0 if no entry given)
	EntryHigh   float64     // Upper bound; equals EntryLow for a single price
	Targets     []float64   // Ordered take-profit targets
	Stop        float64     // Stop price (0 if absent)
	Leverage    int         // Leverage hint (0 if absent)
	Reason      string      // Free-text rationale recovered from the message
	Confidence  float64     // 0-100
	Method      ParseMethod // rule, fallback or ai
	ParserUsed  string      // Identifier of the parser that produced the signal
	IsValid     bool        // Set by the validator
	Errors      []string    // Hard validation errors
	Warnings    []string    // Soft validation findings (permissive policy)
	Fingerprint string      // Dedup fingerprint over (traderID, normalized text)
	RawText     string      // Original message text, kept for audit
	ReceivedAt  time.Time
}

// HasEntry reports whether the signal carries an entry price or zone.
func (s *Signal) HasEntry() bool {
	return s.EntryLow > 0
}

// HasEntryZone reports whether the entry is a genuine range rather than a
// single price.
func (s *Signal) HasEntryZone() bool {
	return s.EntryLow > 0 && s.EntryHigh > s.EntryLow
}

// EntryAverage returns the midpoint of the entry zone, or the single entry
// price. Returns 0 when no entry is present.
func (s *Signal) EntryAverage() float64 {
	if !s.HasEntry() {
		return 0
	}
	return (s.EntryLow + s.EntryHigh) / 2
}
