package artifacts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"crawshaw.io/sqlite"
	"github.com/google/uuid"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteStore is an implementation of Store that uses SQLite. A single
// connection is shared and guarded by a mutex.
type SQLiteStore struct {
	mu     sync.Mutex
	conn   *sqlite.Conn
	dbPath string
	ttl    time.Duration
}

// NewSQLiteStore creates a new SQLiteStore. Artifacts stored without an
// explicit expiry expire after ttl; a non-positive ttl keeps them forever.
func NewSQLiteStore(ttl time.Duration) *SQLiteStore {
	return &SQLiteStore{ttl: ttl}
}

// Initialize initializes the store with the given database path.
func (s *SQLiteStore) Initialize(dbPath string) error {
	if dbPath == "" {
		dbPath = MemoryPath
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dbPath = dbPath

	conn, err := sqlite.OpenConn(dbPath, sqlite.SQLITE_OPEN_CREATE|sqlite.SQLITE_OPEN_READWRITE)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}
	s.conn = conn

	if err := s.createTable(); err != nil {
		s.conn.Close()
		s.conn = nil
		return fmt.Errorf("failed to create table: %w", err)
	}

	return nil
}

func (s *SQLiteStore) createTable() error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS artifacts (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		file_name TEXT NOT NULL,
		content_type TEXT NOT NULL,
		content BLOB,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);`

	stmt, err := s.conn.Prepare(createTableSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare create table statement: %w", err)
	}
	defer stmt.Reset()

	if _, err := stmt.Step(); err != nil {
		return fmt.Errorf("failed to execute create table statement: %w", err)
	}
	return nil
}

// Close closes the store and releases any resources.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// Put stores an artifact, replacing any artifact with the same ID.
func (s *SQLiteStore) Put(ctx context.Context, a Artifact) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	if a.ExpiresAt.IsZero() && s.ttl > 0 {
		a.ExpiresAt = a.CreatedAt.Add(s.ttl)
	}
	if a.ContentType == "" {
		a.ContentType = "text/plain; charset=utf-8"
	}
	if a.Content == nil {
		a.Content = []byte{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, fmt.Errorf("artifact store is not initialized")
	}

	insertSQL := `
	INSERT OR REPLACE INTO artifacts (id, kind, file_name, content_type, content, created_at, expires_at)
	VALUES (?, ?, ?, ?, ?, ?, ?);`

	stmt, err := s.conn.Prepare(insertSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Reset()

	// Bind parameters - indices in sqlite are 1-based
	stmt.BindText(1, a.ID)
	stmt.BindText(2, a.Kind)
	stmt.BindText(3, a.FileName)
	stmt.BindText(4, a.ContentType)
	stmt.BindBytes(5, a.Content)
	stmt.BindInt64(6, a.CreatedAt.UnixNano())
	stmt.BindInt64(7, unixNano(a.ExpiresAt))

	if _, err := stmt.Step(); err != nil {
		return nil, fmt.Errorf("failed to insert artifact: %w", err)
	}

	return &a, nil
}

// Get returns the artifact with the given ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, fmt.Errorf("artifact store is not initialized")
	}

	selectSQL := `
	SELECT id, kind, file_name, content_type, content, created_at, expires_at
	FROM artifacts WHERE id = ?;`

	stmt, err := s.conn.Prepare(selectSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Reset()

	stmt.BindText(1, id)

	hasRow, err := stmt.Step()
	if err != nil {
		return nil, fmt.Errorf("failed to execute select statement: %w", err)
	}
	if !hasRow {
		return nil, ErrNotFound
	}

	// Column indices are 0-based
	content := make([]byte, stmt.ColumnLen(4))
	stmt.ColumnBytes(4, content)

	a := &Artifact{
		ID:          stmt.ColumnText(0),
		Kind:        stmt.ColumnText(1),
		FileName:    stmt.ColumnText(2),
		ContentType: stmt.ColumnText(3),
		Content:     content,
		CreatedAt:   time.Unix(0, stmt.ColumnInt64(5)),
		ExpiresAt:   fromUnixNano(stmt.ColumnInt64(6)),
	}

	if a.Expired(time.Now()) {
		return nil, ErrNotFound
	}
	return a, nil
}

// PurgeExpired deletes every artifact whose expiry is at or before now.
func (s *SQLiteStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return 0, fmt.Errorf("artifact store is not initialized")
	}

	stmt, err := s.conn.Prepare(`DELETE FROM artifacts WHERE expires_at > 0 AND expires_at <= ?;`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare delete statement: %w", err)
	}
	defer stmt.Reset()

	stmt.BindInt64(1, now.UnixNano())
	if _, err := stmt.Step(); err != nil {
		return 0, fmt.Errorf("failed to purge artifacts: %w", err)
	}

	return s.conn.Changes(), nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
