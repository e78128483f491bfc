package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mtgateway/internal/domain"
	"mtgateway/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Journal implements the ports.TradeJournal interface using SQLite.
type Journal struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite journal.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewJournal creates a new SQLite journal instance.
func NewJournal(cfg Config) (*Journal, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite journal")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/trade_journal.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite journal initialization failed")
		return nil, err
	}

	// Open database connection
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite journal initialization failed")
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite journal initialization failed")
		return nil, err
	}

	// Set connection pool settings (important for SQLite)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	j := &Journal{db: db, logger: cfg.Logger}

	if err := j.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize journal schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite journal initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Trade journal database ready", map[string]interface{}{"path": dbPath})

	return j, nil
}

// initializeSchema creates the journal table if it doesn't exist.
func (j *Journal) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trade_journal (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		symbol TEXT NOT NULL DEFAULT '',
		side TEXT NOT NULL DEFAULT '',
		volume REAL NOT NULL DEFAULT 0,
		price REAL NOT NULL DEFAULT 0,
		ticket INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trade_journal_created_at ON trade_journal (created_at);
	CREATE INDEX IF NOT EXISTS idx_trade_journal_symbol ON trade_journal (symbol, created_at);
	`
	_, err := j.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		j.logger.Info(context.Background(), "Closing trade journal database")
		return j.db.Close()
	}
	return nil
}

// Record appends a journal entry and returns its assigned ID.
func (j *Journal) Record(ctx context.Context, entry *domain.JournalEntry) (int64, error) {
	if entry == nil {
		return 0, fmt.Errorf("cannot record nil journal entry")
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	const query = `
	INSERT INTO trade_journal (request_id, kind, symbol, side, volume, price, ticket, success, message, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := j.db.ExecContext(ctx, query,
		entry.RequestID, string(entry.Kind), entry.Symbol, string(entry.Side),
		entry.Volume, entry.Price, entry.Ticket, entry.Success, entry.Message, createdAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert journal entry: %w: %w", ports.ErrUpdateFailed, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get journal entry ID: %w", err)
	}
	entry.ID = id
	return id, nil
}

// Recent retrieves the most recent entries, newest first, up to a limit.
func (j *Journal) Recent(ctx context.Context, limit int) ([]*domain.JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
	SELECT id, request_id, kind, symbol, side, volume, price, ticket, success, message, created_at
	FROM trade_journal ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var entries []*domain.JournalEntry
	for rows.Next() {
		var e domain.JournalEntry
		var kind, side string
		if err := rows.Scan(&e.ID, &e.RequestID, &kind, &e.Symbol, &side,
			&e.Volume, &e.Price, &e.Ticket, &e.Success, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		e.Kind = domain.IntentKind(kind)
		e.Side = domain.Side(side)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal rows: %w", err)
	}
	return entries, nil
}

// CountToday counts entries recorded since midnight UTC.
func (j *Journal) CountToday(ctx context.Context) (int, error) {
	midnight := time.Now().UTC().Truncate(24 * time.Hour)
	const query = `SELECT COUNT(*) FROM trade_journal WHERE created_at >= ?`
	var count int
	if err := j.db.QueryRowContext(ctx, query, midnight).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count today's journal entries: %w: %w", ports.ErrQueryFailed, err)
	}
	return count, nil
}
