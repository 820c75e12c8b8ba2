package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Entry is one logged check result.
type Entry struct {
	// ID is the row identifier, assigned on append.
	ID int64

	// CheckedAt is when the check ran.
	CheckedAt time.Time

	// Cycle is the billing cycle key the check belonged to ("2006-01").
	Cycle string

	// RxBytes and TxBytes are the cycle totals at check time.
	RxBytes uint64
	TxBytes uint64

	// BillableBytes is the portion counted against the limit.
	BillableBytes uint64

	// UsagePercent is BillableBytes as a percentage of the limit.
	UsagePercent float64

	// State is the enforcement state after the check ("normal" or "blocked").
	State string

	// Event describes what the check did beyond accounting, if anything.
	// Examples: "warning_80", "blocked", "unblocked", "report". Empty for
	// a routine check.
	Event string
}

// Config configures the history log.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// Retention is how long entries are kept.
	// Default: 90 days
	Retention time.Duration

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// Log is an append-only check log backed by SQLite.
type Log struct {
	db        *sql.DB
	retention time.Duration
	mu        sync.Mutex
	closeOnce sync.Once

	appendStmt *sql.Stmt
	recentStmt *sql.Stmt
	pruneStmt  *sql.Stmt
}

// Open opens (creating if necessary) the history log at cfg.DBPath.
func Open(cfg Config) (*Log, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.Retention == 0 {
		cfg.Retention = 90 * 24 * time.Hour
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	l := &Log{
		db:        db,
		retention: cfg.Retention,
	}

	if err := l.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := l.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return l, nil
}

func (l *Log) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS checks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		checked_at INTEGER NOT NULL,
		cycle TEXT NOT NULL,
		rx_bytes INTEGER NOT NULL,
		tx_bytes INTEGER NOT NULL,
		billable_bytes INTEGER NOT NULL,
		usage_percent REAL NOT NULL,
		state TEXT NOT NULL,
		event TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_checked_at ON checks(checked_at);
	CREATE INDEX IF NOT EXISTS idx_cycle ON checks(cycle);
	`

	_, err := l.db.Exec(schema)
	return err
}

func (l *Log) prepareStatements() error {
	var err error

	l.appendStmt, err = l.db.Prepare(`
		INSERT INTO checks (checked_at, cycle, rx_bytes, tx_bytes, billable_bytes, usage_percent, state, event)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare append statement: %w", err)
	}

	l.recentStmt, err = l.db.Prepare(`
		SELECT id, checked_at, cycle, rx_bytes, tx_bytes, billable_bytes, usage_percent, state, event
		FROM checks
		ORDER BY id DESC
		LIMIT ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare recent statement: %w", err)
	}

	l.pruneStmt, err = l.db.Prepare(`
		DELETE FROM checks
		WHERE checked_at < ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare prune statement: %w", err)
	}

	return nil
}

// Append logs one check result and opportunistically prunes expired rows.
func (l *Log) Append(ctx context.Context, e Entry) error {
	if e.Cycle == "" {
		return fmt.Errorf("cycle cannot be empty")
	}
	if e.CheckedAt.IsZero() {
		e.CheckedAt = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.appendStmt.ExecContext(ctx,
		e.CheckedAt.Unix(),
		e.Cycle,
		int64(e.RxBytes),
		int64(e.TxBytes),
		int64(e.BillableBytes),
		e.UsagePercent,
		e.State,
		e.Event,
	)
	if err != nil {
		return fmt.Errorf("failed to append entry: %w", err)
	}

	// Retention pruning piggybacks on the write path. Failures here do
	// not fail the append.
	cutoff := e.CheckedAt.Add(-l.retention)
	_, _ = l.pruneStmt.ExecContext(ctx, cutoff.Unix())

	return nil
}

// Recent returns up to n entries, newest first.
func (l *Log) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, fmt.Errorf("n must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.recentStmt.QueryContext(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			checkedAt int64
			rx        int64
			tx        int64
			billable  int64
		)
		if err := rows.Scan(&e.ID, &checkedAt, &e.Cycle, &rx, &tx, &billable, &e.UsagePercent, &e.State, &e.Event); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		e.CheckedAt = time.Unix(checkedAt, 0)
		e.RxBytes = uint64(rx)
		e.TxBytes = uint64(tx)
		e.BillableBytes = uint64(billable)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return entries, nil
}

// Prune removes entries older than cutoff and reports how many were deleted.
func (l *Log) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	result, err := l.pruneStmt.ExecContext(ctx, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(deleted), nil
}

// Close releases the underlying database. Close is idempotent.
func (l *Log) Close() error {
	var closeErr error

	l.closeOnce.Do(func() {
		if l.appendStmt != nil {
			l.appendStmt.Close()
		}
		if l.recentStmt != nil {
			l.recentStmt.Close()
		}
		if l.pruneStmt != nil {
			l.pruneStmt.Close()
		}
		if l.db != nil {
			_, _ = l.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = l.db.Close()
		}
	})

	return closeErr
}
