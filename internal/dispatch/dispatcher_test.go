package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"signalSimBot/internal/adapters/memdedup"
	"signalSimBot/internal/detector"
	"signalSimBot/internal/domain"
	"signalSimBot/internal/parser"
	"signalSimBot/internal/ports"
	"signalSimBot/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// mockSignalRepo records persisted signals and parse failures in memory.
type mockSignalRepo struct {
	mu      sync.Mutex
	signals []*domain.Signal
	failed  []string
	nextID  int64
}

func (m *mockSignalRepo) CreateSignal(ctx context.Context, sig *domain.Signal) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.signals = append(m.signals, sig)
	return m.nextID, nil
}

func (m *mockSignalRepo) RecordFailedParse(ctx context.Context, traderID, text, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, text)
	return nil
}

func (m *mockSignalRepo) FindRecentByTrader(ctx context.Context, traderID string, limit int) ([]*domain.Signal, error) {
	return nil, nil
}

// mockAIParser returns a canned result or error.
type mockAIParser struct {
	result *ports.AIParseResult
	err    error
	calls  int
}

func (m *mockAIParser) ParseFreeform(ctx context.Context, text string) (*ports.AIParseResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// stubParser gates and parses with canned behavior so the chain-continuation
// paths can be exercised directly.
type stubParser struct {
	name  string
	parse func(text, traderID string) *domain.Signal
}

func (s stubParser) Name() string              { return s.name }
func (s stubParser) Priority() int             { return 0 }
func (s stubParser) Policy() validation.Policy { return validation.Strict }
func (s stubParser) CanParse(string) bool      { return true }
func (s stubParser) Parse(text, traderID string) *domain.Signal {
	return s.parse(text, traderID)
}

// failingFingerprintStore always errors.
type failingFingerprintStore struct{}

func (failingFingerprintStore) CheckAndRecord(ctx context.Context, fingerprint string, at time.Time) (bool, error) {
	return false, errors.New("store down")
}

func newTestDispatcher(t *testing.T, ai ports.AIParser) (*Dispatcher, *mockSignalRepo) {
	t.Helper()
	repo := &mockSignalRepo{}
	d, err := New(Config{AITimeout: time.Second}, Deps{
		Logger:       &mockLogger{},
		Parsers:      parser.DefaultParsers(),
		Detector:     detector.New(),
		Fingerprints: memdedup.New(2*time.Hour, 100),
		AI:           ai,
		Signals:      repo,
	})
	require.NoError(t, err)
	return d, repo
}

func TestDispatcher_RouteStructuredCall(t *testing.T) {
	d, repo := newTestDispatcher(t, nil)

	sig, err := d.Route(context.Background(), "BTCUSDT LONG Entry: 45000 TP1: 47000 SL: 44000", "trader-1", "")
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.True(t, sig.IsValid)
	assert.Equal(t, "trade-format-a", sig.ParserUsed)
	assert.Equal(t, "BTCUSDT", sig.Symbol)
	assert.NotEmpty(t, sig.Fingerprint)
	assert.False(t, sig.ReceivedAt.IsZero())
	assert.Len(t, repo.signals, 1, "winning signal is persisted")

	stats := d.Stats()
	assert.Equal(t, int64(1), stats.Processed)
	assert.Equal(t, int64(1), stats.ParsedByRule)
	assert.InDelta(t, 1.0, stats.SuccessRate, 1e-9)
	assert.InDelta(t, sig.Confidence, stats.AvgConfidence, 1e-9)
}

func TestDispatcher_DuplicateWithinWindow(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)
	text := "BTCUSDT LONG Entry: 45000 TP1: 47000 SL: 44000"

	_, err := d.Route(context.Background(), text, "trader-1", "")
	require.NoError(t, err)

	// Same trader, same text up to whitespace and casing.
	sig, err := d.Route(context.Background(), "btcusdt  long\nentry: 45000 tp1: 47000 sl: 44000", "trader-1", "")
	assert.Nil(t, sig)
	assert.ErrorIs(t, err, ports.ErrDuplicateSignal)

	// Same text from another trader is not a duplicate.
	sig, err = d.Route(context.Background(), text, "trader-2", "")
	require.NoError(t, err)
	assert.NotNil(t, sig)

	stats := d.Stats()
	assert.Equal(t, int64(2), stats.Processed)
	assert.Equal(t, int64(1), stats.Duplicates)
}

func TestDispatcher_BrokenDedupStoreDoesNotStall(t *testing.T) {
	repo := &mockSignalRepo{}
	d, err := New(Config{}, Deps{
		Logger:       &mockLogger{},
		Parsers:      parser.DefaultParsers(),
		Fingerprints: failingFingerprintStore{},
		Signals:      repo,
	})
	require.NoError(t, err)

	sig, err := d.Route(context.Background(), "BTCUSDT LONG Entry: 45000 TP1: 47000 SL: 44000", "t", "")
	require.NoError(t, err)
	assert.True(t, sig.IsValid)
}

func TestDispatcher_DetectorSteersTerseText(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	sig, err := d.Route(context.Background(), "long btc 45k tp 47k 48.5k sl 44k lev 10x", "degen", "")
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.True(t, sig.IsValid)
	assert.Equal(t, "trade-format-c", sig.ParserUsed)
	assert.InDelta(t, 45000, sig.EntryLow, 1e-9)
}

func TestDispatcher_SourceHintRunsFirst(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	// Parseable by both the fallback and format C; the hint decides.
	sig, err := d.Route(context.Background(), "long btcusdt 45000 tp 47000 sl 44000", "t", "generic-fallback")
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, "generic-fallback", sig.ParserUsed)
}

func TestDispatcher_FallbackCatchesLooseProse(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	sig, err := d.Route(context.Background(), "Thinking about longing #BTC, buy in 44500, take profit 47000, stop 43000", "t", "")
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.True(t, sig.IsValid)
	assert.Equal(t, "generic-fallback", sig.ParserUsed)
	assert.Equal(t, domain.MethodFallback, sig.Method)
}

func TestDispatcher_ChainContinuesPastNilParse(t *testing.T) {
	// Gates true but recovers nothing; the chain must move on, not stop.
	empty := stubParser{name: "empty-handed", parse: func(string, string) *domain.Signal { return nil }}
	repo := &mockSignalRepo{}
	d, err := New(Config{}, Deps{
		Logger:       &mockLogger{},
		Parsers:      append([]parser.Parser{empty}, parser.DefaultParsers()...),
		Fingerprints: memdedup.New(2*time.Hour, 100),
		Signals:      repo,
	})
	require.NoError(t, err)

	sig, err := d.Route(context.Background(), "BTCUSDT LONG Entry: 45000 TP1: 47000 SL: 44000", "t", "empty-handed")
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.True(t, sig.IsValid)
	assert.Equal(t, "trade-format-a", sig.ParserUsed, "a later parser wins, never the one that returned nothing")
	assert.Len(t, repo.signals, 1, "a nil parse leaves no audit row")
	assert.Equal(t, int64(0), d.Stats().Failed)
}

func TestDispatcher_LaterParserOverridesInvalidDraft(t *testing.T) {
	// Misreads the levels: targets land on the wrong side of the entry, so
	// the strict policy rejects the draft and the chain must keep going.
	crossed := stubParser{name: "crossed-levels", parse: func(text, traderID string) *domain.Signal {
		return &domain.Signal{
			TraderID:   traderID,
			Symbol:     "BTCUSDT",
			Side:       domain.Long,
			EntryLow:   45000,
			EntryHigh:  45000,
			Targets:    []float64{44000},
			Stop:       46000,
			Method:     domain.MethodRule,
			ParserUsed: "crossed-levels",
			RawText:    text,
		}
	}}
	repo := &mockSignalRepo{}
	d, err := New(Config{}, Deps{
		Logger:       &mockLogger{},
		Parsers:      append([]parser.Parser{crossed}, parser.DefaultParsers()...),
		Fingerprints: memdedup.New(2*time.Hour, 100),
		Signals:      repo,
	})
	require.NoError(t, err)

	sig, err := d.Route(context.Background(), "BTCUSDT LONG Entry: 45000 TP1: 47000 SL: 44000", "t", "crossed-levels")
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.True(t, sig.IsValid)
	assert.Equal(t, "trade-format-a", sig.ParserUsed)

	require.Len(t, repo.signals, 2, "the rejected draft is still kept for audit")
	assert.Equal(t, "crossed-levels", repo.signals[0].ParserUsed)
	assert.False(t, repo.signals[0].IsValid)
	assert.NotEmpty(t, repo.signals[0].Errors)

	stats := d.Stats()
	assert.Equal(t, int64(1), stats.ParsedByRule)
	assert.Equal(t, int64(0), stats.Failed)
}

func TestDispatcher_AIEscalation(t *testing.T) {
	t.Run("accepts a well-formed AI answer", func(t *testing.T) {
		ai := &mockAIParser{result: &ports.AIParseResult{
			IsSignal:   true,
			Symbol:     "BTC",
			Side:       "BUY",
			EntryLow:   44500,
			EntryHigh:  44500,
			Targets:    []float64{47000},
			Stop:       43000,
			Confidence: 72,
		}}
		d, repo := newTestDispatcher(t, ai)

		sig, err := d.Route(context.Background(), "btc gonna rip, loading at 44.5k, out at 47, cut below 43", "t", "")
		require.NoError(t, err)
		require.NotNil(t, sig)
		assert.Equal(t, 1, ai.calls)
		assert.True(t, sig.IsValid)
		assert.Equal(t, domain.MethodAI, sig.Method)
		assert.Equal(t, "ai", sig.ParserUsed)
		assert.Equal(t, "BTCUSDT", sig.Symbol, "AI symbol is normalized")
		assert.Equal(t, domain.Long, sig.Side, "BUY maps to LONG")
		assert.InDelta(t, 72, sig.Confidence, 1e-9, "provider confidence is kept")
		assert.Len(t, repo.signals, 1)

		stats := d.Stats()
		assert.Equal(t, int64(1), stats.ParsedByAI)
		assert.Equal(t, int64(0), stats.ParsedByRule)
	})

	t.Run("not-a-signal verdict becomes a parse failure", func(t *testing.T) {
		ai := &mockAIParser{err: ports.ErrNotASignal}
		d, repo := newTestDispatcher(t, ai)

		sig, err := d.Route(context.Background(), "what a day for the markets", "t", "")
		assert.Nil(t, sig)
		assert.ErrorIs(t, err, ports.ErrParseFailed)
		assert.Len(t, repo.failed, 1, "failure is recorded for audit")
		assert.Equal(t, int64(1), d.Stats().Failed)
	})

	t.Run("missing mandatory fields reject the AI answer", func(t *testing.T) {
		ai := &mockAIParser{result: &ports.AIParseResult{IsSignal: true, Symbol: "BTC", Side: "sideways"}}
		d, _ := newTestDispatcher(t, ai)

		sig, err := d.Route(context.Background(), "just vibes", "t", "")
		assert.Nil(t, sig)
		assert.ErrorIs(t, err, ports.ErrParseFailed)
	})

	t.Run("deterministic win skips the AI call", func(t *testing.T) {
		ai := &mockAIParser{result: &ports.AIParseResult{IsSignal: true}}
		d, _ := newTestDispatcher(t, ai)

		_, err := d.Route(context.Background(), "BTCUSDT LONG Entry: 45000 TP1: 47000 SL: 44000", "t", "")
		require.NoError(t, err)
		assert.Equal(t, 0, ai.calls)
	})
}

func TestDispatcher_NoParserMatches(t *testing.T) {
	d, repo := newTestDispatcher(t, nil)

	sig, err := d.Route(context.Background(), "gm, charts look sideways today", "t", "")
	assert.Nil(t, sig)
	assert.ErrorIs(t, err, ports.ErrParseFailed)
	assert.Len(t, repo.failed, 1)

	stats := d.Stats()
	assert.Equal(t, int64(1), stats.Processed)
	assert.Equal(t, int64(1), stats.Failed)
	assert.InDelta(t, 0, stats.SuccessRate, 1e-9)
}

func TestDispatcher_RollingConfidenceAverage(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	a, err := d.Route(context.Background(), "BTCUSDT LONG Entry: 45000 TP1: 47000 SL: 44000", "t1", "")
	require.NoError(t, err)
	b, err := d.Route(context.Background(), "ETHUSDT SHORT Entry: 3300 TP1: 3000", "t2", "")
	require.NoError(t, err)
	require.NotNil(t, b)

	want := (a.Confidence + b.Confidence) / 2
	assert.InDelta(t, want, d.Stats().AvgConfidence, 1e-9)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("trader-1", "LONG  BTC\n45k")
	b := Fingerprint("trader-1", "long btc 45k")
	c := Fingerprint("trader-2", "long btc 45k")

	assert.Equal(t, a, b, "whitespace and casing do not change the fingerprint")
	assert.NotEqual(t, a, c, "trader attribution is part of the fingerprint")
	assert.Len(t, a, 64)
}
