package indexes

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	"github.com/thisdougb/sitedb/internal/config"
)

// PlanStep is one row of EXPLAIN QUERY PLAN output.
type PlanStep struct {
	ID     int    `json:"id"`
	Parent int    `json:"parent"`
	Detail string `json:"detail"`
}

// QueryPlan is the plan SQLite chose for one of the hot queries.
type QueryPlan struct {
	Name  string     `json:"name"`
	Query string     `json:"query"`
	Steps []PlanStep `json:"steps"`
	Error string     `json:"error,omitempty"`
}

// IndexInfo describes a user-created index.
type IndexInfo struct {
	Name  string `json:"name"`
	Table string `json:"table"`
	SQL   string `json:"sql"`
}

// TableStats is the shape and size of one table.
type TableStats struct {
	Name    string `json:"name"`
	Columns int    `json:"columns"`
	Rows    int64  `json:"rows"`
}

// DatabaseStats summarises the schema and file layout.
type DatabaseStats struct {
	Tables    []TableStats `json:"tables"`
	PageSize  int64        `json:"pageSize"`
	PageCount int64        `json:"pageCount"`
	SizeBytes int64        `json:"sizeBytes"`
}

type hotQuery struct {
	name  string
	query string
	args  []interface{}
}

// hotQueries are the busiest public and login queries.
var hotQueries = []hotQuery{
	{"user by email", `SELECT * FROM "User" WHERE email = ?`, []interface{}{"admin@example.com"}},
	{"active game features", `SELECT * FROM "GameFeature" WHERE isActive = 1 ORDER BY "order" ASC`, nil},
	{"job classes by category", `SELECT * FROM "JobClass" WHERE category = ? AND isActive = 1 ORDER BY "order" ASC`, []interface{}{"warrior"}},
	{"published news", `SELECT * FROM "NewsPost" WHERE isPublished = 1 ORDER BY publishedAt DESC`, nil},
}

// AnalyzeQueryPerformance explains each hot query. A query that fails is
// logged and reported with its error.
func (a *Advisor) AnalyzeQueryPerformance(ctx context.Context) []QueryPlan {
	plans := make([]QueryPlan, 0, len(hotQueries))
	for _, p := range hotQueries {
		plan := QueryPlan{Name: p.name, Query: p.query}

		steps, err := a.explain(ctx, p)
		if err != nil {
			plan.Error = err.Error()
			config.LogWarn(ctx, fmt.Sprintf("failed to explain %s: %s", p.name, err))
		}
		plan.Steps = steps

		for _, s := range steps {
			config.LogDebug(ctx, fmt.Sprintf("plan %s: %s", p.name, s.Detail))
		}
		plans = append(plans, plan)
	}
	return plans
}

func (a *Advisor) explain(ctx context.Context, p hotQuery) ([]PlanStep, error) {
	rows, err := a.exec.Query(ctx, "EXPLAIN QUERY PLAN "+p.query, p.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []PlanStep
	for rows.Next() {
		var (
			s       PlanStep
			notused int
		)
		if err := rows.Scan(&s.ID, &s.Parent, &notused, &s.Detail); err != nil {
			return steps, err
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

// CheckIndexUsage lists the user-created indexes. Failures are logged and
// yield an empty list.
func (a *Advisor) CheckIndexUsage(ctx context.Context) []IndexInfo {
	infos, err := a.listIndexes(ctx)
	if err != nil {
		config.LogError(ctx, fmt.Sprintf("failed to list indexes: %s", err))
		return []IndexInfo{}
	}
	return infos
}

func (a *Advisor) listIndexes(ctx context.Context) ([]IndexInfo, error) {
	rows, err := a.exec.Query(ctx, `SELECT name, tbl_name, sql FROM sqlite_master
		WHERE type = 'index' AND name NOT LIKE 'sqlite_%'
		ORDER BY tbl_name, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	infos := []IndexInfo{}
	for rows.Next() {
		var (
			info IndexInfo
			stmt sql.NullString
		)
		if err := rows.Scan(&info.Name, &info.Table, &stmt); err != nil {
			return nil, err
		}
		info.SQL = stmt.String
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// GetDatabaseStats reports per-table column and row counts plus the page
// layout. Failures are logged and yield empty stats.
func (a *Advisor) GetDatabaseStats(ctx context.Context) DatabaseStats {
	stats, err := a.databaseStats(ctx)
	if err != nil {
		config.LogError(ctx, fmt.Sprintf("failed to read database stats: %s", err))
		return DatabaseStats{Tables: []TableStats{}}
	}
	return stats
}

func (a *Advisor) databaseStats(ctx context.Context) (DatabaseStats, error) {
	stats := DatabaseStats{}

	tables, err := a.listTables(ctx)
	if err != nil {
		return stats, errors.Wrap(err, "list tables")
	}

	// rows must be closed before the next statement on the single connection
	for i := range tables {
		name, err := quoteIdent(tables[i].Name)
		if err != nil {
			return stats, err
		}
		tables[i].Rows, err = a.queryInt(ctx, "SELECT COUNT(*) FROM "+name)
		if err != nil {
			return stats, errors.Wrapf(err, "count rows in %s", tables[i].Name)
		}
	}
	stats.Tables = tables

	if stats.PageSize, err = a.queryInt(ctx, "PRAGMA page_size"); err != nil {
		return stats, errors.Wrap(err, "page size")
	}
	if stats.PageCount, err = a.queryInt(ctx, "PRAGMA page_count"); err != nil {
		return stats, errors.Wrap(err, "page count")
	}
	stats.SizeBytes = stats.PageSize * stats.PageCount
	return stats, nil
}

func (a *Advisor) listTables(ctx context.Context) ([]TableStats, error) {
	rows, err := a.exec.Query(ctx, `SELECT m.name, (SELECT COUNT(*) FROM pragma_table_info(m.name))
		FROM sqlite_master AS m
		WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite_%' AND m.name != 'schema_migrations'
		ORDER BY m.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := []TableStats{}
	for rows.Next() {
		var t TableStats
		if err := rows.Scan(&t.Name, &t.Columns); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}
