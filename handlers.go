package sitedb

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thisdougb/sitedb/internal/backup"
	"github.com/thisdougb/sitedb/internal/handlers"
)

// DBMonitorHandler serves /admin/db-monitor.
func (s *Site) DBMonitorHandler() http.HandlerFunc {
	return handlers.DBMonitorHandler(s.impl.Monitor(), s.impl.Advisor())
}

// siteBackups routes restores through the Site so cached content is dropped.
type siteBackups struct {
	*backup.Manager
	site *Site
}

func (b siteBackups) RestoreBackup(ctx context.Context, filename string) error {
	return b.site.RestoreBackup(ctx, filename)
}

// BackupsHandler serves /admin/backups.
func (s *Site) BackupsHandler() http.HandlerFunc {
	return handlers.BackupsHandler(siteBackups{Manager: s.impl.Backups(), site: s})
}

// PrometheusHandler serves the monitor and cache collectors in the
// Prometheus exposition format.
func (s *Site) PrometheusHandler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Routes returns a mux with every admin endpoint registered.
func (s *Site) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/db-monitor", s.DBMonitorHandler())
	mux.HandleFunc("/admin/backups", s.BackupsHandler())
	mux.Handle("/metrics", s.PrometheusHandler())
	return mux
}
