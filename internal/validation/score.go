package validation

import "signalSimBot/internal/domain"

// Canonical present-field weights. The score is monotonically non-decreasing
// as optional fields are recovered, capped at 100. When the parsing method is
// "ai" the provider's own confidence takes precedence and the local score is
// not applied.
const (
	symbolWeight     = 20.0
	sideWeight       = 15.0
	entryWeight      = 20.0
	entryZoneBonus   = 5.0
	targetsWeight    = 20.0
	stopWeight       = 15.0
	leverageBonus    = 3.0
	reasonBonus      = 2.0
	manyTargetsBonus = 5.0
	manyTargetsFloor = 4 // Bonus applies at this many targets or more
	maxConfidence    = 100.0
)

// Score computes the confidence of a signal from which fields are present.
func Score(sig *domain.Signal) float64 {
	score := 0.0
	if sig.Symbol != "" {
		score += symbolWeight
	}
	if sig.Side == domain.Long || sig.Side == domain.Short {
		score += sideWeight
	}
	if sig.HasEntry() {
		score += entryWeight
		if sig.HasEntryZone() {
			score += entryZoneBonus
		}
	}
	if len(sig.Targets) > 0 {
		score += targetsWeight
	}
	if sig.Stop > 0 {
		score += stopWeight
	}
	if sig.Leverage > 0 {
		score += leverageBonus
	}
	if sig.Reason != "" {
		score += reasonBonus
	}
	if len(sig.Targets) >= manyTargetsFloor {
		score += manyTargetsBonus
	}
	if score > maxConfidence {
		score = maxConfidence
	}
	return score
}
