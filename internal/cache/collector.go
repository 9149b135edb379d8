package cache

import "github.com/prometheus/client_golang/prometheus"

var (
	hitsDesc = prometheus.NewDesc("sitedb_cache_hits_total",
		"Cache lookups that found a live entry.", nil, nil)
	missesDesc = prometheus.NewDesc("sitedb_cache_misses_total",
		"Cache lookups that found no live entry.", nil, nil)
	setsDesc = prometheus.NewDesc("sitedb_cache_sets_total",
		"Entries written to the cache.", nil, nil)
	deletesDesc = prometheus.NewDesc("sitedb_cache_deletes_total",
		"Entries removed from the cache, including expiry.", nil, nil)
	entriesDesc = prometheus.NewDesc("sitedb_cache_entries",
		"Entries currently held by the cache.", nil, nil)
	hitRateDesc = prometheus.NewDesc("sitedb_cache_hit_rate_percent",
		"Hits as a percentage of all lookups.", nil, nil)
)

// Describe implements prometheus.Collector.
func (c *Cache) Describe(ch chan<- *prometheus.Desc) {
	ch <- hitsDesc
	ch <- missesDesc
	ch <- setsDesc
	ch <- deletesDesc
	ch <- entriesDesc
	ch <- hitRateDesc
}

// Collect implements prometheus.Collector.
func (c *Cache) Collect(ch chan<- prometheus.Metric) {
	s := c.Stats()

	ch <- prometheus.MustNewConstMetric(hitsDesc, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(missesDesc, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(setsDesc, prometheus.CounterValue, float64(s.Sets))
	ch <- prometheus.MustNewConstMetric(deletesDesc, prometheus.CounterValue, float64(s.Deletes))
	ch <- prometheus.MustNewConstMetric(entriesDesc, prometheus.GaugeValue, float64(c.Size()))
	ch <- prometheus.MustNewConstMetric(hitRateDesc, prometheus.GaugeValue, s.HitRate)
}
