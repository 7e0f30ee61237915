package domain

import "time"

// PositionEvent is a write-once audit entry emitted by the simulation engine.
// Exactly one event is written per lifecycle transition; price ticks are
// recorded for filled positions as well.
type PositionEvent struct {
	ID         int64
	PositionID int64
	Type       EventType
	Price      float64 // Price that caused the event (0 where not applicable)
	ClosedUSD  float64 // Notional closed by this event, if any
	Detail     string  // Human-readable context (e.g., "TP2 reached")
	CreatedAt  time.Time
}
