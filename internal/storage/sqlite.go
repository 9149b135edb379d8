package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// ErrStoreClosed is returned by calls made while the store is disconnected.
var ErrStoreClosed = errors.New("store is disconnected")

// SQLiteStore is the persistence layer for the site content. Every statement
// is timed and reported to the configured Observer.
type SQLiteStore struct {
	mu       sync.RWMutex // guards db across Disconnect/Connect
	db       *sql.DB
	opts     Options
	observer Observer
}

// Open opens (creating if needed) the database file and applies migrations.
func Open(opts Options) (*SQLiteStore, error) {
	if opts.DBPath == "" {
		return nil, errors.New("database path is required")
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}
	if err := os.MkdirAll(filepath.Dir(opts.DBPath), 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create database directory")
	}

	s := &SQLiteStore{opts: opts, observer: opts.Observer}
	if err := s.Connect(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	err := runSQLiteMigrations(s.db)
	s.mu.RUnlock()

	if err != nil {
		s.Close()
		return nil, errors.Wrap(err, "failed to run migrations")
	}
	return s, nil
}

// SetObserver replaces the statement observer. A nil observer disables reporting.
func (s *SQLiteStore) SetObserver(o Observer) {
	s.mu.Lock()
	s.observer = o
	s.mu.Unlock()
}

// Path returns the primary database file location.
func (s *SQLiteStore) Path() string {
	return s.opts.DBPath
}

// Connect opens the connection pool if it is not already open.
func (s *SQLiteStore) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=%d", s.opts.DBPath, s.opts.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}

	// SQLite works best with single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return errors.Wrap(err, "failed to ping database")
	}

	s.db = db
	return nil
}

// Disconnect closes the connection pool. Calls made before the next Connect
// fail with ErrStoreClosed.
func (s *SQLiteStore) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return errors.Wrap(err, "failed to close database")
}

// Close is an alias of Disconnect for owners tearing the store down.
func (s *SQLiteStore) Close() error {
	return s.Disconnect()
}

// OpenConnections reports the pool's open connections, 0 when disconnected.
func (s *SQLiteStore) OpenConnections() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return 0
	}
	return s.db.Stats().OpenConnections
}

// Exec runs a raw statement (DDL, pragma, write).
func (s *SQLiteStore) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := time.Now()
	if s.db == nil {
		s.observe(query, 0, ErrStoreClosed)
		return nil, ErrStoreClosed
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	s.observe(query, time.Since(start), err)
	return res, err
}

// Query runs a raw introspection or read query. Callers must close the rows
// before issuing another statement: the pool holds a single connection.
func (s *SQLiteStore) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := time.Now()
	if s.db == nil {
		s.observe(query, 0, ErrStoreClosed)
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	s.observe(query, time.Since(start), err)
	return rows, err
}

// Checkpoint flushes write-ahead-log content into the main database file.
func (s *SQLiteStore) Checkpoint(ctx context.Context) error {
	_, err := s.Exec(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
	return errors.Wrap(err, "checkpoint failed")
}

func (s *SQLiteStore) observe(query string, d time.Duration, err error) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveQuery(query, d, err)
}
