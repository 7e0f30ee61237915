package domain

// TraderStyle classifies the formatting conventions of a call's author. It is
// only ever used as a parsing hint, never as a trading decision input.
type TraderStyle string

const (
	StyleStructured TraderStyle = "structured" // Labelled fields, one per line
	StyleZone       TraderStyle = "zone"       // Entry zones, emoji-heavy channel format
	StyleTerse      TraderStyle = "terse"      // Shorthand, k-suffixed prices
	StyleUnknown    TraderStyle = "unknown"
)

// StyleMatch is the result of running the trader style detector over a text.
type StyleMatch struct {
	Style      TraderStyle
	Confidence float64  // 0-1
	Evidence   []string // Which rules fired, for diagnostics
}
