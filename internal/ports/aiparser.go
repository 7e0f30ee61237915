package ports

import "context"

// AIParseResult is the provider-agnostic answer of the external language-model
// parsing service. Field names follow what providers commonly return; alias
// normalization (side synonyms, symbol suffixing) is the dispatcher's job.
type AIParseResult struct {
	IsSignal   bool
	Symbol     string
	Side       string // Provider wording; may be "BUY"/"SELL"/"LONG"/"SHORT"
	EntryLow   float64
	EntryHigh  float64
	Targets    []float64
	Stop       float64
	Leverage   int
	Reason     string
	Confidence float64 // 0-100, overrides the locally computed score
}

// AIParser is the external language-model parsing service used as the last
// escalation step of the dispatcher. At most one call is made per dispatch
// attempt, and the call must be bounded by the caller's context deadline.
type AIParser interface {
	// ParseFreeform asks the service to extract a structured signal.
	// Returns ErrNotASignal (wrapped) when the service declares the text is
	// not a trading signal.
	ParseFreeform(ctx context.Context, text string) (*AIParseResult, error)
}
