package domain

import "time"

// Position is a virtual trade opened from a validated signal. It is
// exclusively owned and mutated by the simulation engine; everyone else sees
// persisted snapshots.
type Position struct {
	ID            int64
	SignalID      int64          // Signal this position was opened from
	TraderID      string         // Carried over from the signal for attribution
	Symbol        string         // Trading symbol (e.g., "BTCUSDT")
	Side          Side           // LONG or SHORT
	SizeUSD       float64        // Original notional in USD
	RemainingUSD  float64        // Notional still open after partial closes
	Leverage      int            // Leverage used for the simulation
	MarginUSD     float64        // SizeUSD / Leverage
	EntryLow      float64        // Entry zone lower bound
	EntryHigh     float64        // Entry zone upper bound
	TakeProfits   []float64      // TP1..TP3 ladder, ordered
	Stop          float64        // Stop-loss price (0 if none)
	AvgEntryPrice float64        // Size-weighted average fill price
	CurrentPrice  float64        // Last observed price
	PnLPercent    float64        // Leveraged PnL in percent, recomputed per tick
	PnLUSD        float64        // PnL in USD over the remaining notional
	FilledPct     float64        // 0-100, portion of SizeUSD that got filled
	Status        PositionStatus // Lifecycle state
	SignalTime    time.Time      // When the originating signal was received
	EntryDeadline time.Time      // PENDING past this instant expires the position
	FirstFillAt   time.Time      // Zero until the first fill
	LastUpdateAt  time.Time      // Last mutation by the engine
	ClosedAt      time.Time      // Zero while the position is not terminal
}

// IsOpen reports whether the engine still monitors this position.
func (p *Position) IsOpen() bool {
	return !p.Status.IsTerminal()
}

// RemainingPct returns the open portion of the position as a percentage of
// the original notional.
func (p *Position) RemainingPct() float64 {
	if p.SizeUSD <= 0 {
		return 0
	}
	return p.RemainingUSD / p.SizeUSD * 100
}
