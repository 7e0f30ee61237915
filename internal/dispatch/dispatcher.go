// Package dispatch orchestrates the parsing pipeline: dedup check, ordered
// deterministic parser attempts, escalation to the external AI parsing
// service, and running statistics.
package dispatch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"signalSimBot/internal/detector"
	"signalSimBot/internal/domain"
	"signalSimBot/internal/metrics"
	"signalSimBot/internal/parser"
	"signalSimBot/internal/ports"
	"signalSimBot/internal/validation"
)

const aiParserName = "ai"

// Config holds the dispatcher's tunables. The dedup window is not configured
// here; the injected FingerprintStore owns it.
type Config struct {
	// AITimeout bounds the single AI parsing call per dispatch attempt.
	AITimeout time.Duration
}

// Dispatcher routes raw call text through the parser chain. Dispatch is
// synchronous per message; the only shared mutable state (counters and the
// confidence window) sits behind one mutex so concurrent sources are safe.
type Dispatcher struct {
	cfg          Config
	logger       ports.Logger
	parsers      []parser.Parser // Priority order, generic fallback last
	det          *detector.Detector
	fingerprints ports.FingerprintStore
	ai           ports.AIParser // Optional; nil disables the AI escalation
	signals      ports.SignalRepository
	metrics      *metrics.Recorder

	mu         sync.Mutex
	processed  int64
	byRule     int64
	byAI       int64
	failed     int64
	duplicates int64
	confWindow confidenceWindow
}

// Deps bundles the dispatcher's collaborators.
type Deps struct {
	Logger       ports.Logger
	Parsers      []parser.Parser
	Detector     *detector.Detector
	Fingerprints ports.FingerprintStore
	AI           ports.AIParser
	Signals      ports.SignalRepository
	Metrics      *metrics.Recorder
}

// New creates a dispatcher. Logger, parsers, fingerprint store and signal
// repository are required; the AI parser and metrics recorder are optional.
func New(cfg Config, deps Deps) (*Dispatcher, error) {
	if deps.Logger == nil || deps.Fingerprints == nil || deps.Signals == nil {
		return nil, fmt.Errorf("missing required dependencies for Dispatcher")
	}
	if len(deps.Parsers) == 0 {
		return nil, fmt.Errorf("at least one parser is required")
	}
	if cfg.AITimeout <= 0 {
		cfg.AITimeout = 20 * time.Second
	}
	det := deps.Detector
	if det == nil {
		det = detector.New()
	}
	return &Dispatcher{
		cfg:          cfg,
		logger:       deps.Logger,
		parsers:      deps.Parsers,
		det:          det,
		fingerprints: deps.Fingerprints,
		ai:           deps.AI,
		signals:      deps.Signals,
		metrics:      deps.Metrics,
	}, nil
}

// Fingerprint computes the dedup fingerprint over the trader attribution and
// the normalized message text.
func Fingerprint(traderID, text string) string {
	h := sha256.Sum256([]byte(traderID + "|" + parser.NormalizeText(text)))
	return hex.EncodeToString(h[:])
}

// Route converts one raw message into a canonical signal.
//
// Returns (nil, ErrDuplicateSignal) for a message already seen within the
// dedup window and (nil, ErrParseFailed) when every stage came up empty. A
// signal that parsed but failed validation is returned with IsValid=false;
// it has been persisted for audit and must not reach the simulation engine.
func (d *Dispatcher) Route(ctx context.Context, rawText, traderID, sourceHint string) (*domain.Signal, error) {
	fp := Fingerprint(traderID, rawText)
	dup, err := d.fingerprints.CheckAndRecord(ctx, fp, time.Now().UTC())
	if err != nil {
		// A broken dedup store must not stall the pipeline; treat the
		// message as new and keep going.
		d.logger.Warn(ctx, "Fingerprint store check failed, assuming not duplicate", map[string]interface{}{"error": err.Error()})
	}
	if dup {
		d.mu.Lock()
		d.duplicates++
		d.mu.Unlock()
		d.metrics.IncDuplicate()
		d.logger.Debug(ctx, "Duplicate message dropped", map[string]interface{}{"traderID": traderID, "fingerprint": fp})
		return nil, ports.ErrDuplicateSignal
	}

	d.mu.Lock()
	d.processed++
	d.mu.Unlock()
	d.metrics.IncProcessed()

	var invalid *domain.Signal
	for _, p := range d.candidates(rawText, sourceHint) {
		if !p.CanParse(rawText) {
			continue
		}
		sig := p.Parse(rawText, traderID)
		if sig == nil {
			continue
		}
		sig.Fingerprint = fp
		sig.ReceivedAt = time.Now().UTC()
		validation.Validate(sig, p.Policy())
		if sig.IsValid {
			d.recordParsed(ctx, sig)
			return sig, nil
		}
		// Invalid drafts are retained for audit but do not stop the
		// chain: a later parser may read the same text correctly.
		d.persistSignal(ctx, sig)
		if invalid == nil {
			invalid = sig
		}
		d.logger.Debug(ctx, "Parser produced an invalid draft, trying next candidate", map[string]interface{}{
			"parser": p.Name(), "errors": sig.Errors,
		})
	}

	if sig := d.routeAI(ctx, rawText, traderID, fp); sig != nil {
		return sig, nil
	}

	if invalid != nil {
		// Already persisted above. Surface it so the caller can audit,
		// but it never reaches the engine (IsValid is false).
		d.mu.Lock()
		d.failed++
		d.mu.Unlock()
		d.metrics.IncFailed()
		return invalid, nil
	}

	if err := d.signals.RecordFailedParse(ctx, traderID, rawText, "no parser matched"); err != nil {
		d.logger.Error(ctx, err, "Failed to persist failed-parse audit record")
	}
	d.mu.Lock()
	d.failed++
	d.mu.Unlock()
	d.metrics.IncFailed()
	return nil, ports.ErrParseFailed
}

// candidates builds the ordered parser list: the source-hinted parser first,
// then the detector's suggestion, then the rest in priority order with the
// generic fallback last. First structurally valid result wins; dispatch is
// deliberately first-match, not best-match.
func (d *Dispatcher) candidates(text, sourceHint string) []parser.Parser {
	ordered := make([]parser.Parser, 0, len(d.parsers)+2)
	seen := make(map[string]bool, len(d.parsers))

	appendByName := func(name string) {
		if name == "" || seen[name] {
			return
		}
		for _, p := range d.parsers {
			if p.Name() == name {
				ordered = append(ordered, p)
				seen[name] = true
				return
			}
		}
	}

	appendByName(sourceHint)
	if match := d.det.Detect(text); match.Style != domain.StyleUnknown {
		appendByName(d.det.PreferredParser(match.Style))
	}
	for _, p := range d.parsers {
		if !seen[p.Name()] {
			ordered = append(ordered, p)
			seen[p.Name()] = true
		}
	}
	return ordered
}

// routeAI escalates to the external AI parsing service. Any failure (a
// timeout, a transport error, or a "not a signal" verdict) degrades to a
// plain parse failure for this stage.
func (d *Dispatcher) routeAI(ctx context.Context, rawText, traderID, fp string) *domain.Signal {
	if d.ai == nil {
		return nil
	}
	aiCtx, cancel := context.WithTimeout(ctx, d.cfg.AITimeout)
	defer cancel()

	res, err := d.ai.ParseFreeform(aiCtx, rawText)
	if err != nil {
		if errors.Is(err, ports.ErrNotASignal) {
			d.logger.Debug(ctx, "AI parser declared text not a signal")
		} else {
			d.logger.Warn(ctx, "AI parsing call failed", map[string]interface{}{"error": err.Error()})
		}
		return nil
	}
	sig := d.signalFromAI(res, rawText, traderID)
	if sig == nil {
		d.logger.Debug(ctx, "AI result rejected: missing mandatory fields")
		return nil
	}
	sig.Fingerprint = fp
	sig.ReceivedAt = time.Now().UTC()
	validation.Validate(sig, validation.Strict)
	if !sig.IsValid {
		d.persistSignal(ctx, sig)
		return nil
	}
	d.recordParsed(ctx, sig)
	return sig
}

// signalFromAI normalizes a provider answer into the canonical form. The
// answer is accepted only when it declares itself a signal and supplies
// symbol, side and either an entry or at least one target.
func (d *Dispatcher) signalFromAI(res *ports.AIParseResult, rawText, traderID string) *domain.Signal {
	if res == nil || !res.IsSignal {
		return nil
	}
	side, ok := parser.NormalizeSide(res.Side)
	if !ok {
		return nil
	}
	symbol := parser.NormalizeSymbol(res.Symbol)
	if symbol == "" {
		return nil
	}
	if res.EntryLow <= 0 && len(res.Targets) == 0 {
		return nil
	}

	sig := &domain.Signal{
		TraderID:   traderID,
		Symbol:     symbol,
		Side:       side,
		EntryLow:   res.EntryLow,
		EntryHigh:  res.EntryHigh,
		Targets:    res.Targets,
		Stop:       res.Stop,
		Leverage:   res.Leverage,
		Reason:     res.Reason,
		Confidence: res.Confidence, // AI confidence overrides the local score
		Method:     domain.MethodAI,
		ParserUsed: aiParserName,
		RawText:    rawText,
	}
	if sig.EntryHigh < sig.EntryLow {
		sig.EntryHigh = sig.EntryLow
	}
	return sig
}

// recordParsed persists a winning signal and updates counters.
func (d *Dispatcher) recordParsed(ctx context.Context, sig *domain.Signal) {
	d.persistSignal(ctx, sig)
	d.mu.Lock()
	if sig.Method == domain.MethodAI {
		d.byAI++
	} else {
		d.byRule++
	}
	d.confWindow.add(sig.Confidence)
	d.mu.Unlock()
	d.metrics.IncParsed(string(sig.Method))
	d.logger.Info(ctx, "Signal parsed", map[string]interface{}{
		"symbol":     sig.Symbol,
		"side":       sig.Side,
		"parser":     sig.ParserUsed,
		"confidence": sig.Confidence,
		"valid":      sig.IsValid,
	})
}

// persistSignal writes a signal for audit. Store failures are logged and do
// not abort dispatch.
func (d *Dispatcher) persistSignal(ctx context.Context, sig *domain.Signal) {
	id, err := d.signals.CreateSignal(ctx, sig)
	if err != nil {
		d.logger.Error(ctx, err, "Failed to persist signal", map[string]interface{}{"symbol": sig.Symbol})
		return
	}
	sig.ID = id
}

// Stats returns a snapshot of the running counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := Stats{
		Processed:     d.processed,
		ParsedByRule:  d.byRule,
		ParsedByAI:    d.byAI,
		Failed:        d.failed,
		Duplicates:    d.duplicates,
		AvgConfidence: d.confWindow.mean(),
	}
	if d.processed > 0 {
		s.SuccessRate = float64(d.byRule+d.byAI) / float64(d.processed)
	}
	return s
}
