package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	queriesDesc = prometheus.NewDesc("sitedb_queries_total",
		"Cumulative number of database operations observed.", nil, nil)
	queryErrorsDesc = prometheus.NewDesc("sitedb_query_errors_total",
		"Cumulative number of failed database operations.", nil, nil)
	slowQueriesDesc = prometheus.NewDesc("sitedb_slow_queries_total",
		"Cumulative number of database operations slower than the slow threshold.", nil, nil)
	avgQueryDesc = prometheus.NewDesc("sitedb_query_duration_average_milliseconds",
		"Average duration of the retained query history.", nil, nil)
	historyDesc = prometheus.NewDesc("sitedb_query_history_size",
		"Number of query metrics currently retained.", nil, nil)
	connectionsDesc = prometheus.NewDesc("sitedb_open_connections",
		"Open connections to the site database.", nil, nil)
)

// Describe implements prometheus.Collector.
func (m *Monitor) Describe(ch chan<- *prometheus.Desc) {
	ch <- queriesDesc
	ch <- queryErrorsDesc
	ch <- slowQueriesDesc
	ch <- avgQueryDesc
	ch <- historyDesc
	ch <- connectionsDesc
}

// Collect implements prometheus.Collector.
func (m *Monitor) Collect(ch chan<- prometheus.Metric) {
	snapshot := m.Metrics()

	m.mu.Lock()
	size := m.history.size
	m.mu.Unlock()

	ch <- prometheus.MustNewConstMetric(queriesDesc, prometheus.CounterValue, float64(snapshot.TotalQueries))
	ch <- prometheus.MustNewConstMetric(queryErrorsDesc, prometheus.CounterValue, float64(snapshot.Errors))
	ch <- prometheus.MustNewConstMetric(slowQueriesDesc, prometheus.CounterValue, float64(snapshot.SlowQueries))
	ch <- prometheus.MustNewConstMetric(avgQueryDesc, prometheus.GaugeValue, snapshot.AverageQueryTime)
	ch <- prometheus.MustNewConstMetric(historyDesc, prometheus.GaugeValue, float64(size))
	ch <- prometheus.MustNewConstMetric(connectionsDesc, prometheus.GaugeValue, float64(snapshot.ActiveConnections))
}
