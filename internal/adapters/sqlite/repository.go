package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"signalSimBot/internal/domain"
	"signalSimBot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the signal, position, event and fingerprint
// persistence ports using SQLite.
type Repository struct {
	db          *sql.DB
	logger      ports.Logger
	dedupWindow time.Duration
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath      string
	Logger      ports.Logger
	DedupWindow time.Duration // Fingerprint retention window
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/signal_sim.db"
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = 2 * time.Hour
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally; the Go driver benefits from a
	// single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger, dedupWindow: cfg.DedupWindow}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite database ready", map[string]interface{}{"path": dbPath})
	return repo, nil
}

// initializeSchema creates tables if they don't exist.
// NOTE: This is a basic approach. A proper migration tool is recommended for production.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS signals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		trader_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		entry_low REAL NOT NULL,
		entry_high REAL NOT NULL,
		targets TEXT NOT NULL,
		stop REAL NOT NULL,
		leverage INTEGER NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		confidence REAL NOT NULL,
		method TEXT NOT NULL,
		parser_used TEXT NOT NULL,
		is_valid INTEGER NOT NULL,
		errors TEXT NOT NULL DEFAULT '[]',
		warnings TEXT NOT NULL DEFAULT '[]',
		fingerprint TEXT NOT NULL,
		raw_text TEXT NOT NULL,
		received_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS failed_signals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		trader_id TEXT NOT NULL,
		raw_text TEXT NOT NULL,
		failure_reason TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS positions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		signal_id INTEGER NOT NULL,
		trader_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		size_usd REAL NOT NULL,
		remaining_usd REAL NOT NULL,
		leverage INTEGER NOT NULL,
		margin_usd REAL NOT NULL,
		entry_low REAL NOT NULL,
		entry_high REAL NOT NULL,
		take_profits TEXT NOT NULL,
		stop REAL NOT NULL,
		avg_entry_price REAL NOT NULL,
		current_price REAL NOT NULL,
		pnl_percent REAL NOT NULL,
		pnl_usd REAL NOT NULL,
		filled_pct REAL NOT NULL,
		status TEXT NOT NULL,
		signal_time TIMESTAMP NOT NULL,
		entry_deadline TIMESTAMP NOT NULL,
		first_fill_at TIMESTAMP DEFAULT NULL,
		last_update_at TIMESTAMP NOT NULL,
		closed_at TIMESTAMP DEFAULT NULL
	);

	CREATE TABLE IF NOT EXISTS position_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		position_id INTEGER NOT NULL,
		event_type TEXT NOT NULL,
		price REAL NOT NULL,
		closed_usd REAL NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS fingerprints (
		fingerprint TEXT PRIMARY KEY,
		seen_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_signals_trader_received ON signals (trader_id, received_at);
	CREATE INDEX IF NOT EXISTS idx_positions_status ON positions (status);
	CREATE INDEX IF NOT EXISTS idx_position_events_position ON position_events (position_id);
	CREATE INDEX IF NOT EXISTS idx_fingerprints_seen ON fingerprints (seen_at);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- SignalRepository Implementation ---

// CreateSignal saves a parsed signal (valid or invalid) and returns its ID.
func (r *Repository) CreateSignal(ctx context.Context, sig *domain.Signal) (int64, error) {
	const query = `
	INSERT INTO signals (trader_id, symbol, side, entry_low, entry_high, targets, stop,
	                     leverage, reason, confidence, method, parser_used, is_valid,
	                     errors, warnings, fingerprint, raw_text, received_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		sig.TraderID, sig.Symbol, sig.Side, sig.EntryLow, sig.EntryHigh,
		marshalFloats(sig.Targets), sig.Stop, sig.Leverage, sig.Reason,
		sig.Confidence, sig.Method, sig.ParserUsed, sig.IsValid,
		marshalStrings(sig.Errors), marshalStrings(sig.Warnings),
		sig.Fingerprint, sig.RawText, sig.ReceivedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert signal for symbol %s: %w", sig.Symbol, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for signal %s: %w", sig.Symbol, err)
	}
	sig.ID = id
	r.logger.Debug(ctx, "Signal persisted", map[string]interface{}{"signalID": id, "symbol": sig.Symbol, "valid": sig.IsValid})
	return id, nil
}

// RecordFailedParse saves an audit record for a message no parser could handle.
func (r *Repository) RecordFailedParse(ctx context.Context, traderID, text, reason string) error {
	const query = `INSERT INTO failed_signals (trader_id, raw_text, failure_reason, created_at) VALUES (?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, traderID, text, reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to insert failed-parse record: %w", err)
	}
	return nil
}

// FindRecentByTrader retrieves the most recent signals for a trader, up to a limit.
func (r *Repository) FindRecentByTrader(ctx context.Context, traderID string, limit int) ([]*domain.Signal, error) {
	const query = `
	SELECT id, trader_id, symbol, side, entry_low, entry_high, targets, stop, leverage,
	       reason, confidence, method, parser_used, is_valid, errors, warnings,
	       fingerprint, raw_text, received_at
	FROM signals WHERE trader_id = ? ORDER BY received_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, traderID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals for trader %s: %w", traderID, err)
	}
	defer rows.Close()

	signals := make([]*domain.Signal, 0)
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal during FindRecentByTrader: %w", err)
		}
		signals = append(signals, sig)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signal rows: %w", err)
	}
	return signals, nil
}

// --- PositionRepository Implementation ---

// CreatePosition saves a new position and returns its assigned ID.
func (r *Repository) CreatePosition(ctx context.Context, pos *domain.Position) (int64, error) {
	const query = `
	INSERT INTO positions (signal_id, trader_id, symbol, side, size_usd, remaining_usd,
	                       leverage, margin_usd, entry_low, entry_high, take_profits, stop,
	                       avg_entry_price, current_price, pnl_percent, pnl_usd, filled_pct,
	                       status, signal_time, entry_deadline, first_fill_at, last_update_at, closed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		pos.SignalID, pos.TraderID, pos.Symbol, pos.Side, pos.SizeUSD, pos.RemainingUSD,
		pos.Leverage, pos.MarginUSD, pos.EntryLow, pos.EntryHigh,
		marshalFloats(pos.TakeProfits), pos.Stop,
		pos.AvgEntryPrice, pos.CurrentPrice, pos.PnLPercent, pos.PnLUSD, pos.FilledPct,
		pos.Status, pos.SignalTime, pos.EntryDeadline,
		nullableTime(pos.FirstFillAt), pos.LastUpdateAt, nullableTime(pos.ClosedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to insert position for symbol %s: %w", pos.Symbol, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for position %s: %w", pos.Symbol, err)
	}
	pos.ID = id
	r.logger.Debug(ctx, "Position created", map[string]interface{}{"positionID": id, "symbol": pos.Symbol})
	return id, nil
}

// UpdatePosition modifies an existing position based on its ID.
func (r *Repository) UpdatePosition(ctx context.Context, pos *domain.Position) error {
	const query = `
	UPDATE positions
	SET remaining_usd = ?, avg_entry_price = ?, current_price = ?, pnl_percent = ?,
	    pnl_usd = ?, filled_pct = ?, status = ?, first_fill_at = ?, last_update_at = ?,
	    closed_at = ?
	WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		pos.RemainingUSD, pos.AvgEntryPrice, pos.CurrentPrice, pos.PnLPercent,
		pos.PnLUSD, pos.FilledPct, pos.Status,
		nullableTime(pos.FirstFillAt), pos.LastUpdateAt, nullableTime(pos.ClosedAt),
		pos.ID)
	if err != nil {
		return fmt.Errorf("failed to update position ID %d: %w", pos.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for update position ID %d: %w", pos.ID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("position ID %d not found for update: %w", pos.ID, ports.ErrNotFound)
	}
	return nil
}

// FindPositionByID retrieves a position by its unique ID.
func (r *Repository) FindPositionByID(ctx context.Context, id int64) (*domain.Position, error) {
	const query = positionSelect + ` WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	pos, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query position by ID %d: %w", id, err)
	}
	return pos, nil
}

// FindActivePositions retrieves all positions in a non-terminal status.
func (r *Repository) FindActivePositions(ctx context.Context) ([]*domain.Position, error) {
	const query = positionSelect + ` WHERE status NOT IN (?, ?) ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, domain.StatusClosed, domain.StatusExpired)
	if err != nil {
		return nil, fmt.Errorf("failed to query active positions: %w", err)
	}
	defer rows.Close()

	positions := make([]*domain.Position, 0)
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position during FindActivePositions: %w", err)
		}
		positions = append(positions, pos)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating position rows: %w", err)
	}
	return positions, nil
}

// --- EventRepository Implementation ---

// AppendEvent saves an event and returns its assigned ID.
func (r *Repository) AppendEvent(ctx context.Context, ev *domain.PositionEvent) (int64, error) {
	const query = `
	INSERT INTO position_events (position_id, event_type, price, closed_usd, detail, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		ev.PositionID, ev.Type, ev.Price, ev.ClosedUSD, ev.Detail, ev.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert event for position %d: %w", ev.PositionID, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for position event: %w", err)
	}
	ev.ID = id
	return id, nil
}

// FindEventsByPosition retrieves all events for a position in insertion order.
func (r *Repository) FindEventsByPosition(ctx context.Context, positionID int64) ([]*domain.PositionEvent, error) {
	const query = `
	SELECT id, position_id, event_type, price, closed_usd, detail, created_at
	FROM position_events WHERE position_id = ? ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, positionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for position %d: %w", positionID, err)
	}
	defer rows.Close()

	events := make([]*domain.PositionEvent, 0)
	for rows.Next() {
		ev := &domain.PositionEvent{}
		var evType string
		if err := rows.Scan(&ev.ID, &ev.PositionID, &evType, &ev.Price, &ev.ClosedUSD, &ev.Detail, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan position event: %w", err)
		}
		ev.Type = domain.EventType(evType)
		events = append(events, ev)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}
	return events, nil
}

// --- FingerprintStore Implementation ---

// CheckAndRecord reports whether the fingerprint was seen within the dedup
// window, recording it when it was not. Expired rows are pruned on the way
// in so the table stays bounded by the window.
func (r *Repository) CheckAndRecord(ctx context.Context, fingerprint string, at time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin fingerprint transaction: %w", err)
	}
	defer tx.Rollback()

	cutoff := at.Add(-r.dedupWindow)
	if _, err := tx.ExecContext(ctx, `DELETE FROM fingerprints WHERE seen_at < ?`, cutoff); err != nil {
		return false, fmt.Errorf("failed to prune expired fingerprints: %w", err)
	}

	var seenAt time.Time
	err = tx.QueryRowContext(ctx, `SELECT seen_at FROM fingerprints WHERE fingerprint = ?`, fingerprint).Scan(&seenAt)
	switch {
	case err == nil:
		return true, tx.Commit()
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("failed to query fingerprint: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO fingerprints (fingerprint, seen_at) VALUES (?, ?)`, fingerprint, at); err != nil {
		return false, fmt.Errorf("failed to record fingerprint: %w", err)
	}
	return false, tx.Commit()
}

// --- Helper Scan Functions ---

const positionSelect = `
	SELECT id, signal_id, trader_id, symbol, side, size_usd, remaining_usd, leverage,
	       margin_usd, entry_low, entry_high, take_profits, stop, avg_entry_price,
	       current_price, pnl_percent, pnl_usd, filled_pct, status, signal_time,
	       entry_deadline, first_fill_at, last_update_at, closed_at
	FROM positions`

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanPosition scans a row into a domain.Position struct.
func scanPosition(s scanner) (*domain.Position, error) {
	p := &domain.Position{}
	var side, status, takeProfits string
	var firstFill, closedAt sql.NullTime
	err := s.Scan(
		&p.ID, &p.SignalID, &p.TraderID, &p.Symbol, &side, &p.SizeUSD, &p.RemainingUSD,
		&p.Leverage, &p.MarginUSD, &p.EntryLow, &p.EntryHigh, &takeProfits, &p.Stop,
		&p.AvgEntryPrice, &p.CurrentPrice, &p.PnLPercent, &p.PnLUSD, &p.FilledPct,
		&status, &p.SignalTime, &p.EntryDeadline, &firstFill, &p.LastUpdateAt, &closedAt)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	p.Side = domain.Side(side)
	p.Status = domain.PositionStatus(status)
	p.TakeProfits = unmarshalFloats(takeProfits)
	if firstFill.Valid {
		p.FirstFillAt = firstFill.Time
	}
	if closedAt.Valid {
		p.ClosedAt = closedAt.Time
	}
	return p, nil
}

// scanSignal scans a row into a domain.Signal struct.
func scanSignal(s scanner) (*domain.Signal, error) {
	sig := &domain.Signal{}
	var side, method, targets, errs, warnings string
	err := s.Scan(
		&sig.ID, &sig.TraderID, &sig.Symbol, &side, &sig.EntryLow, &sig.EntryHigh,
		&targets, &sig.Stop, &sig.Leverage, &sig.Reason, &sig.Confidence, &method,
		&sig.ParserUsed, &sig.IsValid, &errs, &warnings, &sig.Fingerprint,
		&sig.RawText, &sig.ReceivedAt)
	if err != nil {
		return nil, err
	}
	sig.Side = domain.Side(side)
	sig.Method = domain.ParseMethod(method)
	sig.Targets = unmarshalFloats(targets)
	sig.Errors = unmarshalStrings(errs)
	sig.Warnings = unmarshalStrings(warnings)
	return sig, nil
}

func nullableTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

// List columns are stored as JSON text; SQLite has no array type and the
// lists are never queried by element.
func marshalFloats(v []float64) string {
	if len(v) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func unmarshalFloats(s string) []float64 {
	var out []float64
	if err := json.Unmarshal([]byte(s), &out); err != nil || len(out) == 0 {
		return nil
	}
	return out
}

func marshalStrings(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func unmarshalStrings(s string) []string {
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil || len(out) == 0 {
		return nil
	}
	return out
}
