package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thisdougb/sitedb/internal/config"
	"github.com/thisdougb/sitedb/internal/indexes"
	"github.com/thisdougb/sitedb/internal/metrics"
)

// MockMonitor implements MonitorInterface for testing
type MockMonitor struct {
	history     []metrics.QueryMetric
	historyArg  int
	slowArg     int
	cleanups    int
	panicOnRead bool
}

func (m *MockMonitor) Metrics() metrics.ConnectionMetrics {
	if m.panicOnRead {
		panic("monitor unavailable")
	}
	return metrics.ConnectionMetrics{TotalQueries: 42, SlowQueries: 3, Errors: 1, ActiveConnections: 1}
}

func (m *MockMonitor) History(limit int) []metrics.QueryMetric {
	m.historyArg = limit
	return m.history
}

func (m *MockMonitor) SlowQueries(limit int) []metrics.QueryMetric {
	m.slowArg = limit
	return nil
}

func (m *MockMonitor) Cleanup() int {
	m.cleanups++
	return 7
}

// MockOptimizer implements OptimizerInterface for testing
type MockOptimizer struct {
	optimized, indexed bool
}

func (o *MockOptimizer) OptimizeDatabase(ctx context.Context) []indexes.Result {
	o.optimized = true
	config.LogInfo(ctx, "optimizing database settings")
	return []indexes.Result{{Name: "journal_mode", Statement: "PRAGMA journal_mode=WAL", Success: true}}
}

func (o *MockOptimizer) CreateAllIndexes(ctx context.Context) []indexes.Result {
	o.indexed = true
	return []indexes.Result{{Name: "idx_user_email", Success: false, Error: "no such table: User"}}
}

func serve(h http.HandlerFunc, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestDBMonitorMetrics(t *testing.T) {
	monitor := &MockMonitor{history: []metrics.QueryMetric{{Query: "SELECT ?", DurationMs: 1.5, Success: true}}}
	h := DBMonitorHandler(monitor, &MockOptimizer{})

	rec := serve(h, http.MethodGet, "/admin/db-monitor?action=metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "metrics")
	assert.Contains(t, body, "queryHistory")
	assert.JSONEq(t, "[]", string(body["slowQueries"]))

	var resp MetricsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.Metrics.TotalQueries)
	require.Len(t, resp.QueryHistory, 1)
	assert.Equal(t, "SELECT ?", resp.QueryHistory[0].Query)

	assert.Equal(t, 20, monitor.historyArg)
	assert.Equal(t, 10, monitor.slowArg)
}

func TestDBMonitorOptimize(t *testing.T) {
	optimizer := &MockOptimizer{}
	h := DBMonitorHandler(&MockMonitor{}, optimizer)

	rec := serve(h, http.MethodGet, "/admin/db-monitor?action=optimize")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ActionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success, "item failures are reported, not fatal")
	assert.True(t, optimizer.optimized)
	assert.True(t, optimizer.indexed)
	require.Len(t, resp.Indexes, 1)
	assert.False(t, resp.Indexes[0].Success)

	require.NotEmpty(t, resp.Logs)
	assert.Equal(t, "optimizing database settings", resp.Logs[0].Message)
}

func TestDBMonitorCleanup(t *testing.T) {
	monitor := &MockMonitor{}
	h := DBMonitorHandler(monitor, &MockOptimizer{})

	rec := serve(h, http.MethodGet, "/admin/db-monitor?action=cleanup")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ActionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Removed)
	assert.Equal(t, 7, *resp.Removed)
	assert.Equal(t, 1, monitor.cleanups)
}

func TestDBMonitorDefault(t *testing.T) {
	h := DBMonitorHandler(&MockMonitor{}, &MockOptimizer{})

	for _, target := range []string{"/admin/db-monitor", "/admin/db-monitor?action=bogus"} {
		rec := serve(h, http.MethodGet, target)
		require.Equal(t, http.StatusOK, rec.Code, target)

		var resp SnapshotResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(42), resp.Metrics.TotalQueries)
		assert.WithinDuration(t, time.Now(), resp.Timestamp, time.Minute)
	}
}

func TestDBMonitorFailure(t *testing.T) {
	h := DBMonitorHandler(&MockMonitor{panicOnRead: true}, &MockOptimizer{})

	rec := serve(h, http.MethodGet, "/admin/db-monitor?action=metrics")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error": "failed to fetch monitor data"}`, rec.Body.String())
}
