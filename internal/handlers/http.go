package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/thisdougb/sitedb/internal/backup"
	"github.com/thisdougb/sitedb/internal/config"
	"github.com/thisdougb/sitedb/internal/indexes"
	"github.com/thisdougb/sitedb/internal/metrics"
)

// MonitorInterface defines what the inspection endpoint needs from the query monitor
type MonitorInterface interface {
	Metrics() metrics.ConnectionMetrics
	History(limit int) []metrics.QueryMetric
	SlowQueries(limit int) []metrics.QueryMetric
	Cleanup() int
}

// OptimizerInterface defines the maintenance routines the inspection endpoint can run
type OptimizerInterface interface {
	OptimizeDatabase(ctx context.Context) []indexes.Result
	CreateAllIndexes(ctx context.Context) []indexes.Result
}

// BackupInterface defines the backup operations exposed over HTTP
type BackupInterface interface {
	ListBackups() ([]backup.Record, error)
	Stats() (backup.Stats, error)
	CreateBackup(ctx context.Context, kind backup.Kind, description string) (backup.Record, error)
	RestoreBackup(ctx context.Context, filename string) error
	DeleteBackup(filename string) error
}

// ErrorResponse is the body of every failed admin request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// recoverWith turns a panic in h into a fixed 500 response.
func recoverWith(msg string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				config.LogError(r.Context(), fmt.Sprintf("%s: %v", msg, p))
				writeError(w, http.StatusInternalServerError, msg)
			}
		}()
		h(w, r)
	}
}
