package storage

import "time"

// Options holds configuration for the SQLite store
type Options struct {
	DBPath      string
	BusyTimeout time.Duration
	Observer    Observer
}

// TestOptions returns options suitable for a store under path in tests.
func TestOptions(path string) Options {
	return Options{
		DBPath:      path,
		BusyTimeout: time.Second,
	}
}
