package handlers

import (
	"net/http"
	"time"

	"github.com/thisdougb/sitedb/internal/config"
	"github.com/thisdougb/sitedb/internal/indexes"
	"github.com/thisdougb/sitedb/internal/metrics"
)

const (
	// history and slow query sizes returned by action=metrics
	MetricsHistoryLimit = 20
	MetricsSlowLimit    = 10

	monitorErrorMessage = "failed to fetch monitor data"
)

// MetricsResponse is returned by action=metrics.
type MetricsResponse struct {
	Metrics      metrics.ConnectionMetrics `json:"metrics"`
	QueryHistory []metrics.QueryMetric     `json:"queryHistory"`
	SlowQueries  []metrics.QueryMetric     `json:"slowQueries"`
}

// ActionResponse is returned by the maintenance actions.
type ActionResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Pragmas []indexes.Result      `json:"pragmas,omitempty"`
	Indexes []indexes.Result      `json:"indexes,omitempty"`
	Removed *int                  `json:"removed,omitempty"`
	Logs    []config.CollectedLog `json:"logs,omitempty"`
}

// SnapshotResponse is returned when no action is given.
type SnapshotResponse struct {
	Metrics   metrics.ConnectionMetrics `json:"metrics"`
	Timestamp time.Time                 `json:"timestamp"`
}

// DBMonitorHandler serves the database inspection endpoint. The action query
// parameter selects metrics, optimize or cleanup; anything else returns the
// raw metrics with the server time.
func DBMonitorHandler(monitor MonitorInterface, optimizer OptimizerInterface) http.HandlerFunc {
	return recoverWith(monitorErrorMessage, func(w http.ResponseWriter, r *http.Request) {
		ctx := config.SetContextCorrelationId(r.Context(), "db-monitor")
		action := r.URL.Query().Get("action")
		if action != "" {
			ctx = config.AppendToContextCorrelationId(ctx, action)
		}

		switch action {
		case "metrics":
			writeJSON(w, http.StatusOK, MetricsResponse{
				Metrics:      monitor.Metrics(),
				QueryHistory: nonNil(monitor.History(MetricsHistoryLimit)),
				SlowQueries:  nonNil(monitor.SlowQueries(MetricsSlowLimit)),
			})

		case "optimize":
			ctx = config.EnableLogCollection(ctx)
			pragmas := optimizer.OptimizeDatabase(ctx)
			idx := optimizer.CreateAllIndexes(ctx)

			writeJSON(w, http.StatusOK, ActionResponse{
				Success: true,
				Message: "database optimization complete",
				Pragmas: pragmas,
				Indexes: idx,
				Logs:    config.CollectedLogs(ctx),
			})

		case "cleanup":
			removed := monitor.Cleanup()
			config.LogInfo(ctx, "monitor history cleaned up")

			writeJSON(w, http.StatusOK, ActionResponse{
				Success: true,
				Message: "monitor data cleanup complete",
				Removed: &removed,
			})

		default:
			writeJSON(w, http.StatusOK, SnapshotResponse{
				Metrics:   monitor.Metrics(),
				Timestamp: time.Now().UTC(),
			})
		}
	})
}

func nonNil(m []metrics.QueryMetric) []metrics.QueryMetric {
	if m == nil {
		return []metrics.QueryMetric{}
	}
	return m
}
