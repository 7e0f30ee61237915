package ports

import (
	"context"
	"time"
)

// Quote is a single observed price for a symbol.
type Quote struct {
	Symbol     string
	Price      float64
	Timestamp  time.Time
	Provenance string // Which upstream produced the quote (e.g., "binance-futures")
}

// PriceFeed exposes current prices per instrument. A feed may legitimately
// not know a symbol; callers must treat a missing symbol as a per-symbol
// condition, not a feed failure.
type PriceFeed interface {
	// GetPrice retrieves the current price for a single symbol.
	// Returns ErrPriceUnavailable (wrapped) when the symbol is unknown.
	GetPrice(ctx context.Context, symbol string) (Quote, error)

	// GetPrices retrieves current prices for a batch of symbols in one
	// upstream round trip where the backend allows it. Symbols the feed
	// cannot price are simply absent from the result map.
	GetPrices(ctx context.Context, symbols []string) (map[string]Quote, error)
}
