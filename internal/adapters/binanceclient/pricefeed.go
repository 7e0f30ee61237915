// Package binanceclient implements the PriceFeed port on Binance futures
// ticker prices via the go-binance library.
package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"signalSimBot/internal/ports"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
)

const (
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"

	provenance = "binance-futures"
)

// Feed implements the ports.PriceFeed interface using the go-binance library.
// Ticker price endpoints are public; API keys are only needed when the same
// credentials are reused for private endpoints elsewhere.
type Feed struct {
	futuresClient *futures.Client
	logger        ports.Logger
}

// Config holds configuration specific to the Binance price feed adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	Logger     ports.Logger
}

// New creates a new Binance price feed adapter.
func New(cfg Config) (*Feed, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance price feed")
	}
	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
	} else {
		client.BaseURL = baseURLProduction
	}
	cfg.Logger.Info(context.Background(), "Binance price feed configured", map[string]interface{}{"baseURL": client.BaseURL})
	return &Feed{futuresClient: client, logger: cfg.Logger}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (f *Feed) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}
	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		var mappedErr error
		switch apiErr.Code {
		case -1003:
			mappedErr = ports.ErrRateLimited
		case -1121: // Invalid symbol
			mappedErr = ports.ErrPriceUnavailable
		case -2014, -2015:
			mappedErr = ports.ErrAuthenticationFailed
		default:
			mappedErr = ports.ErrFeedUnavailable
		}
		finalErr := fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
		f.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}

	var finalErr error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		finalErr = fmt.Errorf("%s canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	case strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer"):
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	default:
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrFeedUnavailable, err)
	}
	f.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// GetPrice retrieves the current ticker price for a single symbol.
func (f *Feed) GetPrice(ctx context.Context, symbol string) (ports.Quote, error) {
	op := "GetPrice"
	prices, err := f.futuresClient.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return ports.Quote{}, f.handleError(ctx, err, op)
	}
	if len(prices) == 0 {
		return ports.Quote{}, fmt.Errorf("%s: no price returned for %s: %w", op, symbol, ports.ErrPriceUnavailable)
	}
	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		parseErr := fmt.Errorf("could not parse price '%s': %w", prices[0].Price, err)
		return ports.Quote{}, f.handleError(ctx, parseErr, op)
	}
	return ports.Quote{
		Symbol:     symbol,
		Price:      price,
		Timestamp:  time.Now().UTC(),
		Provenance: provenance,
	}, nil
}

// GetPrices retrieves current prices for a batch of symbols in one upstream
// call. The unfiltered list endpoint returns every traded symbol; unknown
// symbols are simply absent from the result map.
func (f *Feed) GetPrices(ctx context.Context, symbols []string) (map[string]ports.Quote, error) {
	op := "GetPrices"
	if len(symbols) == 0 {
		return map[string]ports.Quote{}, nil
	}
	prices, err := f.futuresClient.NewListPricesService().Do(ctx)
	if err != nil {
		return nil, f.handleError(ctx, err, op)
	}

	wanted := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		wanted[s] = struct{}{}
	}
	now := time.Now().UTC()
	out := make(map[string]ports.Quote, len(symbols))
	for _, p := range prices {
		if _, ok := wanted[p.Symbol]; !ok {
			continue
		}
		price, perr := strconv.ParseFloat(p.Price, 64)
		if perr != nil {
			f.logger.Warn(ctx, "Skipping unparseable price", map[string]interface{}{"symbol": p.Symbol, "raw": p.Price})
			continue
		}
		out[p.Symbol] = ports.Quote{Symbol: p.Symbol, Price: price, Timestamp: now, Provenance: provenance}
	}
	return out, nil
}
