package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"signalSimBot/internal/domain"

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

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) *Repository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	repo, err := NewRepository(Config{
		DBPath:      dbPath,
		Logger:      &mockLogger{},
		DedupWindow: time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleSignal() *domain.Signal {
	return &domain.Signal{
		TraderID:    "trader-1",
		Symbol:      "BTCUSDT",
		Side:        domain.Long,
		EntryLow:    44000,
		EntryHigh:   45000,
		Targets:     []float64{46000, 47000},
		Stop:        43000,
		Leverage:    10,
		Reason:      "breakout retest",
		Confidence:  95,
		Method:      domain.MethodRule,
		ParserUsed:  "trade-format-a",
		IsValid:     true,
		Fingerprint: "fp-abc",
		RawText:     "BTCUSDT LONG Entry: 44000 - 45000 ...",
		ReceivedAt:  time.Now().UTC().Truncate(time.Second),
	}
}

func samplePosition() *domain.Position {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Position{
		SignalID:      1,
		TraderID:      "trader-1",
		Symbol:        "BTCUSDT",
		Side:          domain.Long,
		SizeUSD:       1000,
		Leverage:      10,
		MarginUSD:     100,
		EntryLow:      44000,
		EntryHigh:     45000,
		TakeProfits:   []float64{46000, 47000, 48000},
		Stop:          43000,
		Status:        domain.StatusPending,
		SignalTime:    now,
		EntryDeadline: now.Add(48 * time.Hour),
		LastUpdateAt:  now,
	}
}

func TestRepository_SignalRoundTrip(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	sig := sampleSignal()
	sig.Errors = []string{"stop (45000) is not below entry average"}
	sig.Warnings = []string{"target 1 close to entry"}
	sig.IsValid = false

	id, err := repo.CreateSignal(ctx, sig)
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := repo.FindRecentByTrader(ctx, "trader-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, sig.Symbol, got[0].Symbol)
	assert.Equal(t, sig.Side, got[0].Side)
	assert.Equal(t, sig.Targets, got[0].Targets)
	assert.Equal(t, sig.Errors, got[0].Errors)
	assert.Equal(t, sig.Warnings, got[0].Warnings)
	assert.False(t, got[0].IsValid)
	assert.Equal(t, sig.Fingerprint, got[0].Fingerprint)
	assert.InDelta(t, 95, got[0].Confidence, 1e-9)
}

func TestRepository_FindRecentByTrader(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		sig := sampleSignal()
		sig.ReceivedAt = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		_, err := repo.CreateSignal(ctx, sig)
		require.NoError(t, err)
	}
	other := sampleSignal()
	other.TraderID = "trader-2"
	_, err := repo.CreateSignal(ctx, other)
	require.NoError(t, err)

	got, err := repo.FindRecentByTrader(ctx, "trader-1", 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.True(t, !got[i].ReceivedAt.After(got[i-1].ReceivedAt), "most recent first")
	}

	got, err = repo.FindRecentByTrader(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRepository_RecordFailedParse(t *testing.T) {
	repo := setupTestDB(t)
	err := repo.RecordFailedParse(context.Background(), "trader-1", "gm everyone", "no parser matched")
	require.NoError(t, err)
}

func TestRepository_PositionLifecyclePersistence(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	pos := samplePosition()
	id, err := repo.CreatePosition(ctx, pos)
	require.NoError(t, err)
	pos.ID = id

	got, err := repo.FindPositionByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, pos.TakeProfits, got.TakeProfits)
	assert.True(t, got.FirstFillAt.IsZero(), "null timestamp reads back as zero")
	assert.True(t, got.ClosedAt.IsZero())

	// Simulate a fill then a close.
	pos.Status = domain.StatusFilled
	pos.FilledPct = 100
	pos.RemainingUSD = 1000
	pos.AvgEntryPrice = 44500
	pos.FirstFillAt = time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdatePosition(ctx, pos))

	got, err = repo.FindPositionByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFilled, got.Status)
	assert.InDelta(t, 44500, got.AvgEntryPrice, 1e-9)
	assert.False(t, got.FirstFillAt.IsZero())

	pos.Status = domain.StatusClosed
	pos.RemainingUSD = 0
	pos.ClosedAt = time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdatePosition(ctx, pos))

	active, err := repo.FindActivePositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, active, "closed positions are not active")
}

func TestRepository_FindActivePositions(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	open := samplePosition()
	_, err := repo.CreatePosition(ctx, open)
	require.NoError(t, err)

	closed := samplePosition()
	closed.Status = domain.StatusClosed
	closed.ClosedAt = time.Now().UTC()
	_, err = repo.CreatePosition(ctx, closed)
	require.NoError(t, err)

	expired := samplePosition()
	expired.Status = domain.StatusExpired
	expired.ClosedAt = time.Now().UTC()
	_, err = repo.CreatePosition(ctx, expired)
	require.NoError(t, err)

	tp1 := samplePosition()
	tp1.Status = domain.StatusTP1Hit
	_, err = repo.CreatePosition(ctx, tp1)
	require.NoError(t, err)

	active, err := repo.FindActivePositions(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	for _, pos := range active {
		assert.True(t, pos.IsOpen())
	}
}

func TestRepository_FindPositionByID_NotFound(t *testing.T) {
	repo := setupTestDB(t)
	got, err := repo.FindPositionByID(context.Background(), 9999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRepository_EventsAppendOnly(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	id, err := repo.CreatePosition(ctx, samplePosition())
	require.NoError(t, err)

	for i, evType := range []domain.EventType{domain.EventCreated, domain.EventFilled, domain.EventTakeProfit} {
		_, err := repo.AppendEvent(ctx, &domain.PositionEvent{
			PositionID: id,
			Type:       evType,
			Price:      44000 + float64(i),
			CreatedAt:  time.Now().UTC(),
		})
		require.NoError(t, err)
	}
	// Events for another position stay separate.
	_, err = repo.AppendEvent(ctx, &domain.PositionEvent{PositionID: id + 1, Type: domain.EventCreated, CreatedAt: time.Now().UTC()})
	require.NoError(t, err)

	events, err := repo.FindEventsByPosition(ctx, id)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, domain.EventCreated, events[0].Type)
	assert.Equal(t, domain.EventFilled, events[1].Type)
	assert.Equal(t, domain.EventTakeProfit, events[2].Type)
}

func TestRepository_FingerprintWindow(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	dup, err := repo.CheckAndRecord(ctx, "fp-1", now)
	require.NoError(t, err)
	assert.False(t, dup)

	dup, err = repo.CheckAndRecord(ctx, "fp-1", now.Add(10*time.Minute))
	require.NoError(t, err)
	assert.True(t, dup, "inside the one hour window")

	dup, err = repo.CheckAndRecord(ctx, "fp-1", now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, dup, "expired rows are pruned and the fingerprint is new again")

	dup, err = repo.CheckAndRecord(ctx, "fp-2", now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, dup)
}
