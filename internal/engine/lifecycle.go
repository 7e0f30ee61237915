package engine

import (
	"context"
	"fmt"
	"time"

	"signalSimBot/internal/domain"
)

// Notional below this is treated as fully closed; avoids float dust keeping
// a position alive.
const closeEpsilonUSD = 0.01

// tick advances one position under one observed price. Checks run in a fixed
// order: expiry (pending only), entry fill, then for filled
// positions PnL refresh, stop-loss before take-profits, stop short-circuiting
// the rest of the tick.
func (e *Engine) tick(ctx context.Context, pos *domain.Position, price float64, now time.Time) {
	pos.CurrentPrice = price
	pos.LastUpdateAt = now
	statusBefore := pos.Status

	switch pos.Status {
	case domain.StatusPending:
		if now.After(pos.EntryDeadline) {
			e.expire(ctx, pos, now)
			return
		}
		e.tryEnter(ctx, pos, price, now)
	case domain.StatusPartialFill:
		if e.insideZone(pos, price) {
			e.fill(ctx, pos, price, 100-pos.FilledPct, now)
		}
	}

	if !pos.Status.IsFilled() {
		e.persist(ctx, pos)
		return
	}

	e.updatePnL(pos, price)

	if e.stopCrossed(pos, price) {
		e.hitStop(ctx, pos, price, now)
		return
	}
	if e.checkTakeProfits(ctx, pos, price, now) {
		return
	}

	e.persist(ctx, pos)
	// The entry fill already produced its own event this tick.
	if pos.Status == statusBefore {
		e.emit(ctx, pos, domain.EventPriceTick, price, 0, "")
	}
}

// insideZone reports whether the price sits strictly within the entry zone.
func (e *Engine) insideZone(pos *domain.Position, price float64) bool {
	return price >= pos.EntryLow && price <= pos.EntryHigh
}

// withinTolerance reports whether the price sits inside the ±tolerance band
// around the zone without being inside the zone itself.
func (e *Engine) withinTolerance(pos *domain.Position, price float64) bool {
	low := pos.EntryLow * (1 - e.cfg.EntryTolerance)
	high := pos.EntryHigh * (1 + e.cfg.EntryTolerance)
	return price >= low && price <= high
}

// tryEnter fills a pending position: fully when the price is inside the
// entry zone, partially when it only touches the tolerance band.
func (e *Engine) tryEnter(ctx context.Context, pos *domain.Position, price float64, now time.Time) {
	switch {
	case e.insideZone(pos, price):
		e.fill(ctx, pos, price, 100, now)
	case e.withinTolerance(pos, price):
		e.fill(ctx, pos, price, e.cfg.PartialFillPct, now)
	}
}

// fill records a (possibly partial) entry at the given price, recomputing
// the size-weighted average entry.
func (e *Engine) fill(ctx context.Context, pos *domain.Position, price, pct float64, now time.Time) {
	if pct <= 0 {
		return
	}
	if pos.FilledPct+pct > 100 {
		pct = 100 - pos.FilledPct
	}
	addedUSD := pos.SizeUSD * pct / 100
	filledUSD := pos.SizeUSD * pos.FilledPct / 100
	if filledUSD+addedUSD > 0 {
		pos.AvgEntryPrice = (pos.AvgEntryPrice*filledUSD + price*addedUSD) / (filledUSD + addedUSD)
	}
	pos.FilledPct += pct
	pos.RemainingUSD += addedUSD
	if pos.FirstFillAt.IsZero() {
		pos.FirstFillAt = now
	}

	if pos.FilledPct >= 100-1e-9 {
		pos.FilledPct = 100
		e.transition(ctx, pos, domain.StatusFilled, domain.EventFilled, price, 0,
			fmt.Sprintf("entry filled at %.8g (avg %.8g)", price, pos.AvgEntryPrice))
	} else {
		e.transition(ctx, pos, domain.StatusPartialFill, domain.EventPartialFill, price, 0,
			fmt.Sprintf("partial entry %.0f%% at %.8g", pct, price))
	}
}

// updatePnL recomputes the running PnL from the average entry.
func (e *Engine) updatePnL(pos *domain.Position, price float64) {
	if pos.AvgEntryPrice <= 0 {
		return
	}
	pct := (price - pos.AvgEntryPrice) / pos.AvgEntryPrice * 100 * pos.Side.Sign() * float64(pos.Leverage)
	pos.PnLPercent = pct
	pos.PnLUSD = pos.RemainingUSD * pct / 100
}

// stopCrossed reports whether the stop level has been breached.
func (e *Engine) stopCrossed(pos *domain.Position, price float64) bool {
	if pos.Stop <= 0 {
		return false
	}
	if pos.Side == domain.Long {
		return price <= pos.Stop
	}
	return price >= pos.Stop
}

// tpCrossed reports whether the given take-profit level has been reached.
func tpCrossed(side domain.Side, price, tp float64) bool {
	if side == domain.Long {
		return price >= tp
	}
	return price <= tp
}

// nextTPIndex derives the next take-profit level to evaluate from the
// current status.
func nextTPIndex(status domain.PositionStatus) int {
	switch status {
	case domain.StatusTP1Hit:
		return 1
	case domain.StatusTP2Hit:
		return 2
	case domain.StatusTP3Hit:
		return 3
	default:
		return 0
	}
}

// hitStop closes the whole remaining notional and finalizes the position.
func (e *Engine) hitStop(ctx context.Context, pos *domain.Position, price float64, now time.Time) {
	closed := pos.RemainingUSD
	pos.RemainingUSD = 0
	e.transition(ctx, pos, domain.StatusSLHit, domain.EventStopLoss, price, closed,
		fmt.Sprintf("stop %.8g crossed, closed %.2f USD", pos.Stop, closed))
	e.finalize(ctx, pos, price, now)
}

// checkTakeProfits walks the remaining TP ladder at this price. Each level
// closes its ladder share of the original notional; the last level closes
// whatever remains. Returns true when the position finished this tick.
func (e *Engine) checkTakeProfits(ctx context.Context, pos *domain.Position, price float64, now time.Time) bool {
	transitioned := false
	for k := nextTPIndex(pos.Status); k < len(pos.TakeProfits); k++ {
		if !tpCrossed(pos.Side, price, pos.TakeProfits[k]) {
			break
		}
		closed := pos.SizeUSD * e.cfg.TPClosePcts[k] / 100
		if k == len(pos.TakeProfits)-1 || closed > pos.RemainingUSD {
			closed = pos.RemainingUSD
		}
		pos.RemainingUSD -= closed
		var status domain.PositionStatus
		switch k {
		case 0:
			status = domain.StatusTP1Hit
		case 1:
			status = domain.StatusTP2Hit
		default:
			status = domain.StatusTP3Hit
		}
		e.transition(ctx, pos, status, domain.EventTakeProfit, price, closed,
			fmt.Sprintf("TP%d %.8g reached, closed %.2f USD", k+1, pos.TakeProfits[k], closed))
		transitioned = true
		if pos.RemainingUSD <= closeEpsilonUSD {
			e.finalize(ctx, pos, price, now)
			return true
		}
	}
	if transitioned {
		e.updatePnL(pos, price)
		e.persist(ctx, pos)
	}
	return transitioned
}

// finalize moves a position with no remaining notional to CLOSED.
func (e *Engine) finalize(ctx context.Context, pos *domain.Position, price float64, now time.Time) {
	pos.ClosedAt = now
	pos.PnLUSD = 0
	e.transition(ctx, pos, domain.StatusClosed, domain.EventClosed, price, 0, "position closed")
}

// expire retires a pending position whose entry zone was never reached.
func (e *Engine) expire(ctx context.Context, pos *domain.Position, now time.Time) {
	pos.ClosedAt = now
	e.transition(ctx, pos, domain.StatusExpired, domain.EventExpired, 0, 0, "entry never reached within timeout")
}

// transition applies a status change, persists the position and appends
// exactly one audit event.
func (e *Engine) transition(ctx context.Context, pos *domain.Position, status domain.PositionStatus, evType domain.EventType, price, closedUSD float64, detail string) {
	pos.Status = status
	e.metrics.IncTransition(string(status))
	e.persist(ctx, pos)
	e.emit(ctx, pos, evType, price, closedUSD, detail)
	e.logger.Info(ctx, "Position transition", map[string]interface{}{
		"positionID": pos.ID,
		"symbol":     pos.Symbol,
		"status":     status,
		"price":      price,
		"remaining":  pos.RemainingUSD,
	})
}

// persist upserts the position snapshot. Store failures are logged and do
// not roll back in-memory state (at-least-once external writes).
func (e *Engine) persist(ctx context.Context, pos *domain.Position) {
	if err := e.posRepo.UpdatePosition(ctx, pos); err != nil {
		e.logger.Error(ctx, err, "Failed to persist position update", map[string]interface{}{"positionID": pos.ID})
	}
}

// emit appends one audit event. Failures are logged only.
func (e *Engine) emit(ctx context.Context, pos *domain.Position, evType domain.EventType, price, closedUSD float64, detail string) {
	ev := &domain.PositionEvent{
		PositionID: pos.ID,
		Type:       evType,
		Price:      price,
		ClosedUSD:  closedUSD,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := e.events.AppendEvent(ctx, ev); err != nil {
		e.logger.Error(ctx, err, "Failed to append position event", map[string]interface{}{
			"positionID": pos.ID, "type": evType,
		})
	}
}
