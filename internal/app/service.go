// Package app wires the inbound message flow to the parsing pipeline and the
// simulation engine, and owns the process lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"signalSimBot/internal/dispatch"
	"signalSimBot/internal/domain"
	"signalSimBot/internal/engine"
	"signalSimBot/internal/ports"
)

// Config holds the service-level settings.
type Config struct {
	// DefaultSizeUSD is the virtual notional assigned to each simulated
	// position.
	DefaultSizeUSD float64
	// DefaultLeverage applies when the signal carries no leverage hint.
	DefaultLeverage int
}

// SignalService consumes raw messages, routes them through the dispatcher
// and opens virtual positions for the signals that survive validation.
type SignalService struct {
	cfg        Config
	logger     ports.Logger
	source     ports.MessageSource
	dispatcher *dispatch.Dispatcher
	engine     *engine.Engine
}

// NewSignalService creates the application service.
func NewSignalService(cfg Config, logger ports.Logger, source ports.MessageSource, d *dispatch.Dispatcher, e *engine.Engine) (*SignalService, error) {
	if logger == nil || source == nil || d == nil || e == nil {
		return nil, fmt.Errorf("missing required dependencies for SignalService")
	}
	if cfg.DefaultSizeUSD <= 0 {
		cfg.DefaultSizeUSD = 1000
	}
	if cfg.DefaultLeverage < 1 {
		cfg.DefaultLeverage = 1
	}
	return &SignalService{cfg: cfg, logger: logger, source: source, dispatcher: d, engine: e}, nil
}

// Start runs the service until the context is canceled, the message source
// is exhausted, or a shutdown signal arrives.
func (s *SignalService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting signal service...")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	messages, err := s.source.Messages(ctx)
	if err != nil {
		return fmt.Errorf("failed to open message source: %w", err)
	}

	engineDone := make(chan error, 1)
	go func() {
		engineDone <- s.engine.Start(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			return <-engineDone
		case err := <-engineDone:
			if err != nil {
				return fmt.Errorf("simulation engine exited: %w", err)
			}
			return nil
		case msg, ok := <-messages:
			if !ok {
				s.logger.Info(ctx, "Message source exhausted, keeping engine running")
				// Source is done but open positions still need
				// monitoring; block until shutdown.
				messages = nil
				continue
			}
			s.handleMessage(ctx, msg)
		}
	}
}

// handleMessage runs one message through parse and, when it validates, into
// the simulation engine. Per-message faults are logged and swallowed; a bad
// message never stops the loop.
func (s *SignalService) handleMessage(ctx context.Context, msg domain.RawMessage) {
	sig, err := s.dispatcher.Route(ctx, msg.Text, msg.TraderIDHint, msg.SourceID)
	if err != nil {
		switch {
		case errors.Is(err, ports.ErrDuplicateSignal):
			s.logger.Debug(ctx, "Dropped duplicate message", map[string]interface{}{"traderID": msg.TraderIDHint})
		case errors.Is(err, ports.ErrParseFailed):
			s.logger.Info(ctx, "Message did not parse as a signal", map[string]interface{}{"traderID": msg.TraderIDHint})
		default:
			s.logger.Error(ctx, err, "Message routing failed", map[string]interface{}{"traderID": msg.TraderIDHint})
		}
		return
	}
	if sig == nil || !sig.IsValid {
		return
	}

	leverage := s.cfg.DefaultLeverage
	if sig.Leverage > 0 {
		leverage = sig.Leverage
	}
	posID, err := s.engine.CreateFromSignal(ctx, sig, s.cfg.DefaultSizeUSD, leverage)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to open virtual position", map[string]interface{}{
			"signalID": sig.ID,
			"symbol":   sig.Symbol,
		})
		return
	}
	s.logger.Info(ctx, "Virtual position opened", map[string]interface{}{
		"positionID": posID,
		"symbol":     sig.Symbol,
		"side":       string(sig.Side),
		"parser":     sig.ParserUsed,
		"confidence": sig.Confidence,
	})
}
