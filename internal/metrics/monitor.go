// Package metrics implements the query performance monitor: a bounded
// history of database operations with rolling aggregates and slow-query
// detection.
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/thisdougb/sitedb/internal/config"
)

const (
	DefaultSlowThreshold = 100 * time.Millisecond
	DefaultHistorySize   = 1000
	// CleanupAge is the age past which Cleanup drops history entries.
	CleanupAge = time.Hour
)

// QueryMetric is one observed database operation.
type QueryMetric struct {
	Query      string    `json:"query"`
	DurationMs float64   `json:"duration"`
	Timestamp  time.Time `json:"timestamp"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
}

// ConnectionMetrics is the aggregate view over all recorded operations.
type ConnectionMetrics struct {
	ActiveConnections int     `json:"activeConnections"`
	TotalQueries      int64   `json:"totalQueries"`
	AverageQueryTime  float64 `json:"averageQueryTime"`
	SlowQueries       int64   `json:"slowQueries"`
	Errors            int64   `json:"errors"`
	Uptime            int64   `json:"uptime"` // milliseconds
}

// Options configure a Monitor. Zero values select the defaults.
type Options struct {
	SlowThreshold time.Duration
	HistorySize   int
	Clock         clockwork.Clock
	// Connections reports open store connections for ActiveConnections.
	Connections func() int
}

// Monitor records every database operation it is told about. It never
// returns errors and never panics into its caller.
type Monitor struct {
	mu            sync.Mutex
	history       *rollingHistory
	totals        ConnectionMetrics
	started       time.Time
	slowThreshold time.Duration
	clock         clockwork.Clock
	connections   func() int
}

// New creates a monitor; its uptime starts now.
func New(opts Options) *Monitor {
	if opts.SlowThreshold <= 0 {
		opts.SlowThreshold = DefaultSlowThreshold
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = DefaultHistorySize
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	return &Monitor{
		history:       newRollingHistory(opts.HistorySize),
		started:       opts.Clock.Now(),
		slowThreshold: opts.SlowThreshold,
		clock:         opts.Clock,
		connections:   opts.Connections,
	}
}

// SlowThreshold returns the duration above which an operation is slow.
func (m *Monitor) SlowThreshold() time.Duration {
	return m.slowThreshold
}

// Record adds one observed operation. A nil err marks it successful.
func (m *Monitor) Record(label string, duration time.Duration, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("query monitor failed to record")
		}
	}()

	metric := QueryMetric{
		Query:      Sanitize(label),
		DurationMs: float64(duration) / float64(time.Millisecond),
		Timestamp:  m.clock.Now(),
		Success:    err == nil,
	}
	if err != nil {
		metric.Error = err.Error()
	}
	slow := duration > m.slowThreshold

	m.mu.Lock()
	m.history.add(metric)
	m.totals.TotalQueries++
	if !metric.Success {
		m.totals.Errors++
	}
	if slow {
		m.totals.SlowQueries++
	}
	m.totals.AverageQueryTime = m.history.average()
	m.mu.Unlock()

	if slow {
		config.Entry(context.Background()).WithFields(log.Fields{
			"query":     metric.Query,
			"duration":  duration.String(),
			"timestamp": metric.Timestamp.UTC().Format(time.RFC3339Nano),
		}).Warn("slow query detected")
	}
}

// ObserveQuery lets the monitor subscribe to the store's statement hook.
func (m *Monitor) ObserveQuery(label string, duration time.Duration, err error) {
	m.Record(label, duration, err)
}

// Metrics returns a snapshot of the aggregates with uptime recomputed.
func (m *Monitor) Metrics() ConnectionMetrics {
	m.mu.Lock()
	snapshot := m.totals
	m.mu.Unlock()

	snapshot.Uptime = m.clock.Since(m.started).Milliseconds()
	if m.connections != nil {
		snapshot.ActiveConnections = m.connections()
	}
	return snapshot
}

// History returns the most recent limit entries, newest last. A limit <= 0
// returns the whole retained history.
func (m *Monitor) History(limit int) []QueryMetric {
	m.mu.Lock()
	defer m.mu.Unlock()

	size := m.history.size
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]QueryMetric, 0, limit)
	for i := size - limit; i < size; i++ {
		out = append(out, m.history.at(i))
	}
	return out
}

// SlowQueries returns the most recent limit slow entries, newest last.
func (m *Monitor) SlowQueries(limit int) []QueryMetric {
	m.mu.Lock()
	defer m.mu.Unlock()

	thresholdMs := float64(m.slowThreshold) / float64(time.Millisecond)

	var slow []QueryMetric
	for i := m.history.size - 1; i >= 0; i-- {
		if limit > 0 && len(slow) == limit {
			break
		}
		if metric := m.history.at(i); metric.DurationMs > thresholdMs {
			slow = append(slow, metric)
		}
	}

	// collected newest first
	for i, j := 0, len(slow)-1; i < j; i, j = i+1, j-1 {
		slow[i], slow[j] = slow[j], slow[i]
	}
	return slow
}

// Cleanup drops history entries older than CleanupAge and returns how many
// were removed. Aggregate counters are left untouched.
func (m *Monitor) Cleanup() int {
	cutoff := m.clock.Now().Add(-CleanupAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.history.retain(func(metric QueryMetric) bool {
		return metric.Timestamp.After(cutoff)
	})
}
