package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore implements Store using SQLite for persistence.
//
// The store uses a write-ahead log (WAL) for better concurrent performance
// and runs periodic passive checkpoints to balance write performance with
// durability. SQLite supports a single writer, so the connection pool is
// pinned to one connection.
type SQLiteStore struct {
	db                 *sql.DB
	dbPath             string
	checkpointInterval time.Duration
	done               chan struct{}
	mu                 sync.RWMutex
	closeOnce          sync.Once

	// prepared statements, compiled once at startup
	getBalanceStmt     *sql.Stmt
	saveBalanceStmt    *sql.Stmt
	latestSnapshotStmt *sql.Stmt
	appendSnapshotStmt *sql.Stmt
	addRecipientStmt   *sql.Stmt
	listRecipientsStmt *sql.Stmt
}

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	// Path is the path to the SQLite database file.
	Path string

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5 minutes
	CheckpointInterval time.Duration

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteStore creates a new SQLite store with default settings.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteConfig{Path: path})
}

// NewSQLiteStoreWithConfig creates a new SQLite store with custom configuration.
func NewSQLiteStoreWithConfig(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{
		db:                 db,
		dbPath:             cfg.Path,
		checkpointInterval: cfg.CheckpointInterval,
		done:               make(chan struct{}),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	go store.checkpointLoop()

	return store, nil
}

// initSchema creates the database schema if it doesn't exist.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS balance (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		remaining_credits REAL NOT NULL,
		threshold REAL NOT NULL,
		last_usage_value REAL NOT NULL DEFAULT 0,
		last_checked_ts INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS usage_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp INTEGER NOT NULL,
		raw_response BLOB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_timestamp ON usage_snapshots(timestamp);

	CREATE TABLE IF NOT EXISTS alert_recipients (
		email TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// prepareStatements prepares SQL statements for reuse.
func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.getBalanceStmt, err = s.db.Prepare(`
		SELECT remaining_credits, threshold, last_usage_value, last_checked_ts
		FROM balance WHERE id = 1
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get balance statement: %w", err)
	}

	s.saveBalanceStmt, err = s.db.Prepare(`
		INSERT INTO balance (id, remaining_credits, threshold, last_usage_value, last_checked_ts)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			remaining_credits = excluded.remaining_credits,
			threshold = excluded.threshold,
			last_usage_value = excluded.last_usage_value,
			last_checked_ts = excluded.last_checked_ts
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare save balance statement: %w", err)
	}

	s.latestSnapshotStmt, err = s.db.Prepare(`
		SELECT id, timestamp, raw_response
		FROM usage_snapshots
		ORDER BY id DESC LIMIT 1
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare latest snapshot statement: %w", err)
	}

	s.appendSnapshotStmt, err = s.db.Prepare(`
		INSERT INTO usage_snapshots (timestamp, raw_response) VALUES (?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare append snapshot statement: %w", err)
	}

	s.addRecipientStmt, err = s.db.Prepare(`
		INSERT INTO alert_recipients (email, created_at) VALUES (?, ?)
		ON CONFLICT (email) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare add recipient statement: %w", err)
	}

	s.listRecipientsStmt, err = s.db.Prepare(`
		SELECT email FROM alert_recipients ORDER BY created_at, email LIMIT ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list recipients statement: %w", err)
	}

	return nil
}

// GetBalance returns the singleton balance record, or (nil, nil) if it has
// not been created yet.
func (s *SQLiteStore) GetBalance(ctx context.Context) (*BalanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec := &BalanceRecord{}
	err := s.getBalanceStmt.QueryRowContext(ctx).Scan(
		&rec.RemainingCredits,
		&rec.Threshold,
		&rec.LastUsageValue,
		&rec.LastCheckedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load balance: %w", err)
	}

	return rec, nil
}

// SaveBalance creates or replaces the singleton balance record.
func (s *SQLiteStore) SaveBalance(ctx context.Context, rec *BalanceRecord) error {
	if rec == nil {
		return fmt.Errorf("balance record cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.saveBalanceStmt.ExecContext(ctx,
		rec.RemainingCredits,
		rec.Threshold,
		rec.LastUsageValue,
		rec.LastCheckedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save balance: %w", err)
	}

	return nil
}

// LatestSnapshot returns the most recent usage snapshot, or (nil, nil) if
// the log is empty.
func (s *SQLiteStore) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{}
	err := s.latestSnapshotStmt.QueryRowContext(ctx).Scan(&snap.ID, &snap.Timestamp, &snap.Raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest snapshot: %w", err)
	}

	return snap, nil
}

// AppendSnapshot appends a new usage snapshot to the log.
func (s *SQLiteStore) AppendSnapshot(ctx context.Context, timestamp int64, raw []byte) (*Snapshot, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("raw response cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.appendSnapshotStmt.ExecContext(ctx, timestamp, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to append snapshot: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot id: %w", err)
	}

	return &Snapshot{ID: id, Timestamp: timestamp, Raw: raw}, nil
}

// AddRecipient registers an alert email address. Duplicate registrations
// are ignored.
func (s *SQLiteStore) AddRecipient(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.addRecipientStmt.ExecContext(ctx, email, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to add recipient: %w", err)
	}

	return nil
}

// ListRecipients returns up to limit registered addresses. A non-positive
// limit returns all addresses.
func (s *SQLiteStore) ListRecipients(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.listRecipientsStmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan recipient row: %w", err)
		}
		emails = append(emails, email)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipient rows: %w", err)
	}

	return emails, nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases database resources.
// Close is idempotent and safe to call multiple times.
func (s *SQLiteStore) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		close(s.done)

		for _, stmt := range []*sql.Stmt{
			s.getBalanceStmt,
			s.saveBalanceStmt,
			s.latestSnapshotStmt,
			s.appendSnapshotStmt,
			s.addRecipientStmt,
			s.listRecipientsStmt,
		} {
			if stmt != nil {
				stmt.Close()
			}
		}

		if s.db != nil {
			// Run final checkpoint
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}

// checkpointLoop runs periodic WAL checkpoints.
func (s *SQLiteStore) checkpointLoop() {
	ticker := time.NewTicker(s.checkpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-s.done:
			return
		}
	}
}
