package parser

import "signalSimBot/internal/domain"

// confidenceWeights is the per-parser table of field contributions. Each
// parser tunes how much it trusts its own extraction of a field; the totals
// stay within 0-100.
type confidenceWeights struct {
	symbol      float64
	side        float64
	entry       float64
	entryZone   float64 // Extra on top of entry when a full zone was recovered
	targets     float64
	stop        float64
	leverage    float64
	reason      float64
	manyTargets float64 // Applies at four or more targets
}

// computeConfidence sums the weights of the fields actually recovered,
// capped at 100. Adding an optional field can only raise the score.
func computeConfidence(sig *domain.Signal, w confidenceWeights) float64 {
	score := 0.0
	if sig.Symbol != "" {
		score += w.symbol
	}
	if sig.Side == domain.Long || sig.Side == domain.Short {
		score += w.side
	}
	if sig.HasEntry() {
		score += w.entry
		if sig.HasEntryZone() {
			score += w.entryZone
		}
	}
	if len(sig.Targets) > 0 {
		score += w.targets
	}
	if sig.Stop > 0 {
		score += w.stop
	}
	if sig.Leverage > 0 {
		score += w.leverage
	}
	if sig.Reason != "" {
		score += w.reason
	}
	if len(sig.Targets) >= 4 {
		score += w.manyTargets
	}
	if score > 100 {
		score = 100
	}
	return score
}
