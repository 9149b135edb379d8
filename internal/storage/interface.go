package storage

import (
	"context"
	"database/sql"
	"time"
)

// Observer is notified after every statement the store executes. The label is
// the raw statement text; observers are expected to sanitize it.
type Observer interface {
	ObserveQuery(label string, duration time.Duration, err error)
}

// Executor is the raw statement surface consumed by the index advisor.
type Executor interface {
	Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Lifecycle is the connection surface consumed by the backup manager.
type Lifecycle interface {
	Path() string
	Checkpoint(ctx context.Context) error
	Connect() error
	Disconnect() error
}
