// Package engine drives virtual positions through their entry/TP/SL
// lifecycle under a polled price feed. No real orders are placed anywhere;
// fills and closes only mutate in-memory state and the persisted snapshots.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"signalSimBot/internal/domain"
	"signalSimBot/internal/metrics"
	"signalSimBot/internal/ports"
)

// Config holds the engine's simulation tunables.
type Config struct {
	// PollInterval is the price monitoring cadence.
	PollInterval time.Duration
	// EntryTimeout expires a position whose entry zone is never reached.
	EntryTimeout time.Duration
	// EntryTolerance widens the entry zone by this fraction on both sides
	// (0.005 = ±0.5%). A price inside the zone fills fully; a price only
	// inside the tolerance band fills partially.
	EntryTolerance float64
	// PartialFillPct is the portion filled on a tolerance-band touch.
	PartialFillPct float64
	// TPClosePcts is the ladder of partial closes for TP1..TP3, as
	// percentages of the original notional. TP3 always closes the rest.
	TPClosePcts [3]float64
	// DefaultLeverage applies when neither the caller nor the signal
	// carries a leverage hint.
	DefaultLeverage int
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.EntryTimeout <= 0 {
		c.EntryTimeout = 48 * time.Hour
	}
	if c.EntryTolerance <= 0 {
		c.EntryTolerance = 0.005
	}
	if c.PartialFillPct <= 0 || c.PartialFillPct > 100 {
		c.PartialFillPct = 50
	}
	if c.TPClosePcts == [3]float64{} {
		c.TPClosePcts = [3]float64{50, 30, 20}
	}
	if c.DefaultLeverage <= 0 {
		c.DefaultLeverage = 1
	}
}

// Engine is the trade simulation service. One long-lived monitoring goroutine
// owns all position mutation; the mutex only guards the active set against
// concurrent CreateFromSignal calls.
type Engine struct {
	cfg     Config
	logger  ports.Logger
	feed    ports.PriceFeed
	posRepo ports.PositionRepository
	events  ports.EventRepository
	metrics *metrics.Recorder

	mu     sync.Mutex
	active map[int64]*domain.Position
}

// New creates the simulation engine. Logger, feed and both repositories are
// required; the metrics recorder is optional.
func New(cfg Config, logger ports.Logger, feed ports.PriceFeed, posRepo ports.PositionRepository, events ports.EventRepository, rec *metrics.Recorder) (*Engine, error) {
	if logger == nil || feed == nil || posRepo == nil || events == nil {
		return nil, fmt.Errorf("missing required dependencies for Engine")
	}
	cfg.applyDefaults()
	return &Engine{
		cfg:     cfg,
		logger:  logger,
		feed:    feed,
		posRepo: posRepo,
		events:  events,
		metrics: rec,
		active:  make(map[int64]*domain.Position),
	}, nil
}

// CreateFromSignal opens a virtual position for a validated signal and puts
// it under monitoring. The signal is read-only here; rejected inputs (invalid
// signal, missing entry zone, non-positive size) return an error and create
// nothing.
func (e *Engine) CreateFromSignal(ctx context.Context, sig *domain.Signal, sizeUSD float64, leverage int) (int64, error) {
	if sig == nil || !sig.IsValid {
		return 0, fmt.Errorf("signal is missing or invalid: %w", ports.ErrValidationFailed)
	}
	if !sig.HasEntry() {
		return 0, fmt.Errorf("signal has no entry zone to simulate: %w", ports.ErrInvalidRequest)
	}
	if sizeUSD <= 0 {
		return 0, fmt.Errorf("position size must be positive: %w", ports.ErrInvalidRequest)
	}
	if leverage <= 0 {
		leverage = sig.Leverage
	}
	if leverage <= 0 {
		leverage = e.cfg.DefaultLeverage
	}

	tps := sig.Targets
	if len(tps) > 3 {
		tps = tps[:3]
	}
	now := time.Now().UTC()
	signalTime := sig.ReceivedAt
	if signalTime.IsZero() {
		signalTime = now
	}

	pos := &domain.Position{
		SignalID:      sig.ID,
		TraderID:      sig.TraderID,
		Symbol:        sig.Symbol,
		Side:          sig.Side,
		SizeUSD:       sizeUSD,
		Leverage:      leverage,
		MarginUSD:     sizeUSD / float64(leverage),
		EntryLow:      sig.EntryLow,
		EntryHigh:     sig.EntryHigh,
		TakeProfits:   append([]float64(nil), tps...),
		Stop:          sig.Stop,
		Status:        domain.StatusPending,
		SignalTime:    signalTime,
		EntryDeadline: now.Add(e.cfg.EntryTimeout),
		LastUpdateAt:  now,
	}

	id, err := e.posRepo.CreatePosition(ctx, pos)
	if err != nil {
		return 0, fmt.Errorf("failed to persist new position for %s: %w", sig.Symbol, err)
	}
	pos.ID = id
	e.emit(ctx, pos, domain.EventCreated, 0, 0, "position created from signal")

	e.mu.Lock()
	e.active[id] = pos
	n := len(e.active)
	e.mu.Unlock()
	e.metrics.SetOpenPositions(n)

	e.logger.Info(ctx, "Position created", map[string]interface{}{
		"positionID": id,
		"symbol":     pos.Symbol,
		"side":       pos.Side,
		"sizeUSD":    pos.SizeUSD,
		"leverage":   pos.Leverage,
	})
	return id, nil
}

// Start recovers active positions from the store and runs the monitoring
// loop until the context is canceled. An unreachable store at startup aborts;
// per-tick faults never do.
func (e *Engine) Start(ctx context.Context) error {
	recovered, err := e.posRepo.FindActivePositions(ctx)
	if err != nil {
		return fmt.Errorf("failed to recover active positions: %w", err)
	}
	e.mu.Lock()
	for _, pos := range recovered {
		e.active[pos.ID] = pos
	}
	n := len(e.active)
	e.mu.Unlock()
	e.metrics.SetOpenPositions(n)
	e.logger.Info(ctx, "Simulation engine started", map[string]interface{}{
		"recoveredPositions": n,
		"pollInterval":       e.cfg.PollInterval.String(),
	})

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			e.logger.Info(ctx, "Simulation engine stopping", map[string]interface{}{"reason": ctx.Err().Error()})
			return nil
		case <-ticker.C:
			e.pollOnce(ctx, time.Now().UTC())
		}
	}
}

// ActiveCount returns the number of positions currently monitored.
func (e *Engine) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

// pollOnce runs one monitoring pass: batch the price request over all
// distinct symbols, update every position, retire terminal ones.
func (e *Engine) pollOnce(ctx context.Context, now time.Time) {
	e.mu.Lock()
	positions := make([]*domain.Position, 0, len(e.active))
	for _, pos := range e.active {
		positions = append(positions, pos)
	}
	e.mu.Unlock()
	if len(positions) == 0 {
		return
	}

	symbolSet := make(map[string]struct{}, len(positions))
	symbols := make([]string, 0, len(positions))
	for _, pos := range positions {
		if _, ok := symbolSet[pos.Symbol]; !ok {
			symbolSet[pos.Symbol] = struct{}{}
			symbols = append(symbols, pos.Symbol)
		}
	}

	quotes, err := e.feed.GetPrices(ctx, symbols)
	if err != nil {
		e.logger.Warn(ctx, "Price feed batch request failed, skipping tick", map[string]interface{}{"error": err.Error()})
		return
	}

	for _, pos := range positions {
		quote, ok := quotes[pos.Symbol]
		if !ok {
			// Feed miss for one symbol skips only that symbol's
			// positions; no mutation happens for them this tick.
			e.logger.Debug(ctx, "No quote for symbol, skipping position this tick", map[string]interface{}{
				"symbol": pos.Symbol, "positionID": pos.ID,
			})
			continue
		}
		e.tick(ctx, pos, quote.Price, now)
	}

	e.mu.Lock()
	for id, pos := range e.active {
		if !pos.IsOpen() {
			delete(e.active, id)
		}
	}
	n := len(e.active)
	e.mu.Unlock()
	e.metrics.SetOpenPositions(n)
}
