package domain

// Side represents the direction of a signal or position.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// Sign returns +1 for LONG and -1 for SHORT, used in PnL math.
func (s Side) Sign() float64 {
	if s == Short {
		return -1
	}
	return 1
}

// ParseMethod identifies which stage of the parsing pipeline produced a signal.
type ParseMethod string

const (
	MethodRule     ParseMethod = "rule"
	MethodFallback ParseMethod = "fallback"
	MethodAI       ParseMethod = "ai"
)

// PositionStatus represents the lifecycle state of a virtual position.
type PositionStatus string

const (
	StatusPending     PositionStatus = "PENDING"
	StatusPartialFill PositionStatus = "PARTIAL_FILL"
	StatusFilled      PositionStatus = "FILLED"
	StatusTP1Hit      PositionStatus = "TP1_HIT"
	StatusTP2Hit      PositionStatus = "TP2_HIT"
	StatusTP3Hit      PositionStatus = "TP3_HIT"
	StatusSLHit       PositionStatus = "SL_HIT"
	StatusClosed      PositionStatus = "CLOSED"
	StatusExpired     PositionStatus = "EXPIRED"
)

// IsTerminal reports whether a position in this status is done and must leave
// the active set.
func (s PositionStatus) IsTerminal() bool {
	return s == StatusClosed || s == StatusExpired
}

// IsFilled reports whether a position in this status holds any exposure.
func (s PositionStatus) IsFilled() bool {
	switch s {
	case StatusPartialFill, StatusFilled, StatusTP1Hit, StatusTP2Hit, StatusTP3Hit:
		return true
	}
	return false
}

// EventType classifies position audit events.
type EventType string

const (
	EventCreated     EventType = "created"
	EventPartialFill EventType = "partial_fill"
	EventFilled      EventType = "filled"
	EventPriceTick   EventType = "price_tick"
	EventTakeProfit  EventType = "take_profit"
	EventStopLoss    EventType = "stop_loss"
	EventClosed      EventType = "closed"
	EventExpired     EventType = "expired"
)
