package ports

import (
	"context"

	"signalSimBot/internal/domain"
)

// SignalRepository persists parsed signals and parse failures for audit.
// Writes are append-only; signals are never updated after creation.
type SignalRepository interface {
	// CreateSignal saves a parsed signal (valid or invalid) and returns its ID.
	CreateSignal(ctx context.Context, sig *domain.Signal) (int64, error)
	// RecordFailedParse saves an audit record for a message no parser could handle.
	RecordFailedParse(ctx context.Context, traderID, text, reason string) error
	// FindRecentByTrader retrieves the most recent signals for a trader, up to a limit.
	FindRecentByTrader(ctx context.Context, traderID string, limit int) ([]*domain.Signal, error)
}

// PositionRepository persists virtual positions. The simulation engine is the
// only writer; updates are upserts keyed by position ID.
type PositionRepository interface {
	// CreatePosition saves a new position and returns its assigned ID.
	CreatePosition(ctx context.Context, pos *domain.Position) (int64, error)
	// UpdatePosition modifies an existing position.
	UpdatePosition(ctx context.Context, pos *domain.Position) error
	// FindPositionByID retrieves a position by its unique ID.
	// Returns nil, nil if not found.
	FindPositionByID(ctx context.Context, id int64) (*domain.Position, error)
	// FindActivePositions retrieves all positions in a non-terminal status.
	FindActivePositions(ctx context.Context) ([]*domain.Position, error)
}

// EventRepository is the append-only log of position lifecycle events.
type EventRepository interface {
	// AppendEvent saves an event and returns its assigned ID.
	AppendEvent(ctx context.Context, ev *domain.PositionEvent) (int64, error)
	// FindEventsByPosition retrieves all events for a position in insertion order.
	FindEventsByPosition(ctx context.Context, positionID int64) ([]*domain.PositionEvent, error)
}
