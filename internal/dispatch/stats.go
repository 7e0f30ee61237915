package dispatch

// Stats is a point-in-time snapshot of the dispatcher's counters.
type Stats struct {
	Processed     int64
	ParsedByRule  int64 // Specialized parsers and the generic fallback
	ParsedByAI    int64
	Failed        int64
	Duplicates    int64
	SuccessRate   float64 // (rule+ai) / processed
	AvgConfidence float64 // Rolling mean over the last confidenceWindowSize signals
}

const confidenceWindowSize = 100

// confidenceWindow is a fixed-size ring holding the confidence of the most
// recent signals. Append and mean are O(1); the window never reallocates.
type confidenceWindow struct {
	vals [confidenceWindowSize]float64
	sum  float64
	n    int
	idx  int
}

func (w *confidenceWindow) add(v float64) {
	if w.n == len(w.vals) {
		w.sum -= w.vals[w.idx]
	} else {
		w.n++
	}
	w.vals[w.idx] = v
	w.sum += v
	w.idx = (w.idx + 1) % len(w.vals)
}

func (w *confidenceWindow) mean() float64 {
	if w.n == 0 {
		return 0
	}
	return w.sum / float64(w.n)
}
