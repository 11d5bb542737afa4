// Package sqlite implements the storage interface using SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	// Import SQLite driver
	sqlite3 "github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/tetratelabs/wazero"

	"github.com/loomworks/loom/internal/storage"
)

// Verify SQLiteStorage implements storage.Store at compile time
var _ storage.Store = (*SQLiteStorage)(nil)

// memSeq numbers in-memory databases so each New(":memory:") is isolated.
var memSeq atomic.Int64

// SQLiteStorage implements the Store interface using SQLite
type SQLiteStorage struct {
	queries // pool-backed read surface

	db     *sql.DB
	dbPath string
	log    *slog.Logger
	closed atomic.Bool
}

// Option configures a SQLiteStorage.
type Option func(*SQLiteStorage)

// WithLogger sets the logger used for transaction and replay warnings.
func WithLogger(log *slog.Logger) Option {
	return func(s *SQLiteStorage) {
		if log != nil {
			s.log = log
		}
	}
}

// setupWASMCache configures WASM compilation caching to cut SQLite startup
// time on repeated process starts. Falls back to an in-memory cache when the
// user cache directory is unavailable.
func setupWASMCache() {
	var cache wazero.CompilationCache
	if userCache, err := os.UserCacheDir(); err == nil {
		dir := filepath.Join(userCache, "loom", "wasm")
		if c, err := wazero.NewCompilationCacheWithDir(dir); err == nil {
			cache = c
		}
	}
	if cache == nil {
		cache = wazero.NewCompilationCache()
	}
	sqlite3.RuntimeConfig = wazero.NewRuntimeConfig().WithCompilationCache(cache)
}

func init() {
	setupWASMCache()
}

// New creates a new SQLite storage backend
func New(ctx context.Context, path string, opts ...Option) (*SQLiteStorage, error) {
	// Build connection string with proper URI syntax.
	// For :memory: databases, use shared cache so multiple connections see
	// the same data; WAL does not work there, so journal mode stays DELETE.
	var connStr string
	if path == ":memory:" {
		// Each open gets its own named shared-cache database so separate
		// stores in one process stay isolated.
		name := fmt.Sprintf("memdb%d", memSeq.Add(1))
		connStr = "file:" + name + "?mode=memory&cache=shared&_pragma=journal_mode(DELETE)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)&_time_format=sqlite"
	} else if strings.HasPrefix(path, "file:") {
		connStr = path
		if !strings.Contains(path, "_pragma=foreign_keys") {
			connStr += "&_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)&_time_format=sqlite"
		}
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		connStr = "file:" + path + "?_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)&_time_format=sqlite"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// In-memory databases are isolated per connection; force a single
	// connection so pool members see each other's writes.
	isInMemory := path == ":memory:" ||
		(strings.HasPrefix(path, "file:") && strings.Contains(path, "mode=memory"))
	if isInMemory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		// WAL supports one writer plus readers; bound the pool so write lock
		// contention does not pile up goroutines.
		db.SetMaxOpenConns(runtime.NumCPU() + 1)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(0)
	}

	if !isInMemory {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	absPath := path
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		absPath, err = filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}
	}

	s := &SQLiteStorage{
		db:     db,
		dbPath: absPath,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.queries = queries{q: db, log: s.log}

	return s, nil
}

// Close closes the database connection.
// It checkpoints the WAL so writes are flushed to the main database file.
func (s *SQLiteStorage) Close() error {
	s.closed.Store(true)
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// Path returns the location of the backing database
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// IsClosed returns true if Close() has been called on this storage
func (s *SQLiteStorage) IsClosed() bool {
	return s.closed.Load()
}

// UnderlyingDB returns the underlying *sql.DB connection pool.
// Do not Close it or alter its pool settings; use storage.Close() instead.
func (s *SQLiteStorage) UnderlyingDB() *sql.DB {
	return s.db
}
