/*
Package sitedb is the database operations layer of the game server website.

The site content lives in a single SQLite file. A Site wraps it with:

  - a query monitor that times every statement, keeps a bounded history and
    flags slow queries,
  - a TTL cache in front of the read-heavy content queries,
  - an index advisor that applies tuning pragmas and recommended indexes,
  - a backup manager that snapshots, restores and retires copies of the file.

Example:

	site, err := sitedb.New() // reads SITEDB_* from the environment
	if err != nil {
		log.Fatal(err)
	}
	defer site.Close()

	if _, err := site.Initialize(ctx); err != nil {
		log.Fatal(err)
	}
	site.ScheduleAutoBackups()

	features, err := site.ActiveGameFeatures(ctx) // served from cache after the first call

	http.ListenAndServe(":8080", site.Routes())

Routes serves:

	GET  /admin/db-monitor?action=metrics|optimize|cleanup
	GET  /admin/backups
	POST /admin/backups?action=create|restore|delete
	GET  /metrics

Configuration:

	SITEDB_DB_PATH="./data/site.db"
	SITEDB_BACKUP_DIR="./backups"
	SITEDB_MAX_AUTO_BACKUPS=10
	SITEDB_AUTO_BACKUP_INTERVAL="24h"
	SITEDB_CACHE_TTL="5m"
	SITEDB_SLOW_QUERY_MS=100
*/
package sitedb
