package metrics

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMonitor() (*Monitor, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	return New(Options{Clock: clock}), clock
}

func TestSanitize(t *testing.T) {

	var TestCases = []struct {
		description string
		label       string
		want        string
	}{
		{"positional params", "SELECT * FROM t WHERE a = $1 AND b = $23", "SELECT * FROM t WHERE a = ? AND b = ?"},
		{"single quoted literal", "SELECT * FROM t WHERE email = 'a@b.c'", "SELECT * FROM t WHERE email = ?"},
		{"quoted identifiers kept", `SELECT "order" FROM "GameFeature" WHERE "isActive" = 1`, `SELECT "order" FROM "GameFeature" WHERE "isActive" = 1`},
		{"escaped quote in literal", "SELECT * FROM t WHERE name = 'O''Brien' AND role = 'admin'", "SELECT * FROM t WHERE name = ? AND role = ?"},
		{"identifier and literal", `SELECT * FROM "User" WHERE email = 'a@b.c'`, `SELECT * FROM "User" WHERE email = ?`},
		{"placeholders untouched", "SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = ?"},
		{"model action label", "GameFeature.findMany", "GameFeature.findMany"},
	}

	for _, tc := range TestCases {
		assert.Equal(t, tc.want, Sanitize(tc.label), tc.description)
	}

	long := strings.Repeat("x", 500)
	assert.Len(t, Sanitize(long), MaxLabelLength)
}

func TestRecordUpdatesAggregates(t *testing.T) {
	m, _ := newTestMonitor()

	m.Record("SELECT 1", 10*time.Millisecond, nil)
	m.Record("SELECT 2", 30*time.Millisecond, errors.New("boom"))
	m.Record("SELECT 3", 150*time.Millisecond, nil)

	metrics := m.Metrics()
	assert.Equal(t, int64(3), metrics.TotalQueries)
	assert.Equal(t, int64(1), metrics.Errors)
	assert.Equal(t, int64(1), metrics.SlowQueries)
	assert.InDelta(t, 190.0/3, metrics.AverageQueryTime, 1e-9)

	history := m.History(0)
	require.Len(t, history, 3)
	assert.False(t, history[1].Success)
	assert.Equal(t, "boom", history[1].Error)
	assert.True(t, history[2].Success)
	assert.Empty(t, history[2].Error)
}

func TestBoundedHistory(t *testing.T) {
	m, _ := newTestMonitor()

	total := DefaultHistorySize + 250
	for i := 0; i < total; i++ {
		m.Record(fmt.Sprintf("op-%d", i), time.Millisecond, nil)
	}

	history := m.History(0)
	require.Len(t, history, DefaultHistorySize)
	for i, metric := range history {
		assert.Equal(t, fmt.Sprintf("op-%d", i+250), metric.Query)
	}
	assert.Equal(t, int64(total), m.Metrics().TotalQueries)

	recent := m.History(5)
	require.Len(t, recent, 5)
	assert.Equal(t, fmt.Sprintf("op-%d", total-1), recent[4].Query)
}

func TestAverageOverRetainedWindow(t *testing.T) {
	m := New(Options{HistorySize: 2, Clock: clockwork.NewFakeClock()})

	m.Record("a", 100*time.Millisecond, nil)
	m.Record("b", 10*time.Millisecond, nil)
	m.Record("c", 20*time.Millisecond, nil)

	assert.InDelta(t, 15.0, m.Metrics().AverageQueryTime, 1e-9)
}

func TestSlowQueryFlagging(t *testing.T) {
	m, _ := newTestMonitor()

	m.Record("at threshold", DefaultSlowThreshold, nil)
	m.Record("below", DefaultSlowThreshold-time.Millisecond, nil)
	m.Record("above", DefaultSlowThreshold+time.Microsecond, nil)
	m.Record("way above", 2*time.Second, nil)

	slow := m.SlowQueries(0)
	require.Len(t, slow, 2)
	assert.Equal(t, "above", slow[0].Query)
	assert.Equal(t, "way above", slow[1].Query)
	assert.Equal(t, int64(2), m.Metrics().SlowQueries)

	latest := m.SlowQueries(1)
	require.Len(t, latest, 1)
	assert.Equal(t, "way above", latest[0].Query)
}

func TestCleanupDropsOldEntries(t *testing.T) {
	m, clock := newTestMonitor()

	m.Record("old", time.Millisecond, nil)
	clock.Advance(2 * time.Hour)
	m.Record("new", time.Millisecond, nil)

	assert.Equal(t, 1, m.Cleanup())

	history := m.History(0)
	require.Len(t, history, 1)
	assert.Equal(t, "new", history[0].Query)

	// aggregates are not rewritten
	assert.Equal(t, int64(2), m.Metrics().TotalQueries)
}

func TestUptimeAndConnections(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := New(Options{Clock: clock, Connections: func() int { return 1 }})

	clock.Advance(90 * time.Second)

	metrics := m.Metrics()
	assert.Equal(t, int64(90000), metrics.Uptime)
	assert.Equal(t, 1, metrics.ActiveConnections)
}

func TestObserveQuerySanitizes(t *testing.T) {
	m, _ := newTestMonitor()

	m.ObserveQuery("SELECT * FROM \"User\" WHERE email = 'x@y.z'", time.Millisecond, nil)

	history := m.History(1)
	require.Len(t, history, 1)
	assert.Equal(t, `SELECT * FROM "User" WHERE email = ?`, history[0].Query)
}

func TestCollector(t *testing.T) {
	m, _ := newTestMonitor()
	m.Record("a", time.Second, nil)

	assert.Equal(t, 6, testutil.CollectAndCount(m))
	assert.NoError(t, testutil.CollectAndCompare(m, strings.NewReader(`
# HELP sitedb_slow_queries_total Cumulative number of database operations slower than the slow threshold.
# TYPE sitedb_slow_queries_total counter
sitedb_slow_queries_total 1
`), "sitedb_slow_queries_total"))
}
