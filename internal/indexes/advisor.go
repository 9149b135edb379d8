// Package indexes applies the recommended indexes and tuning pragmas to the
// site database and reports on how the schema is being used.
package indexes

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	"github.com/thisdougb/sitedb/internal/config"
	"github.com/thisdougb/sitedb/internal/storage"
)

// Result is the outcome of one maintenance statement.
type Result struct {
	Name      string `json:"name"`
	Statement string `json:"statement"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// Advisor runs maintenance and introspection statements through an Executor.
type Advisor struct {
	exec    storage.Executor
	catalog []IndexSpec
}

// NewAdvisor returns an advisor using the recommended index catalog.
func NewAdvisor(exec storage.Executor) *Advisor {
	return &Advisor{exec: exec, catalog: Catalog()}
}

// CreateAllIndexes applies every catalog entry. A failing index is logged and
// reported; the remaining entries are still attempted.
func (a *Advisor) CreateAllIndexes(ctx context.Context) []Result {
	config.LogInfo(ctx, "creating recommended indexes")

	results := make([]Result, 0, len(a.catalog))
	for _, spec := range a.catalog {
		r := Result{Name: spec.Name}

		stmt, err := spec.Statement()
		if err == nil {
			r.Statement = stmt
			_, err = a.exec.Exec(ctx, stmt)
		}

		if err != nil {
			r.Error = err.Error()
			config.LogWarn(ctx, fmt.Sprintf("failed to create index %s: %s", spec.Name, err))
		} else {
			r.Success = true
			config.LogDebug(ctx, fmt.Sprintf("index %s ready (%s)", spec.Name, spec.Reason))
		}
		results = append(results, r)
	}

	config.LogInfo(ctx, fmt.Sprintf("index creation finished: %d/%d applied", succeeded(results), len(results)))
	return results
}

// OptimizeDatabase applies the tuning pragmas, each independently of the others.
func (a *Advisor) OptimizeDatabase(ctx context.Context) []Result {
	config.LogInfo(ctx, "optimizing database settings")

	results := make([]Result, 0, len(pragmas))
	for _, p := range pragmas {
		r := Result{Name: p.Name, Statement: p.Statement()}

		if _, err := a.exec.Exec(ctx, r.Statement); err != nil {
			r.Error = err.Error()
			config.LogWarn(ctx, fmt.Sprintf("failed to apply %s: %s", r.Statement, err))
		} else {
			r.Success = true
			config.LogDebug(ctx, fmt.Sprintf("applied %s", r.Statement))
		}
		results = append(results, r)
	}

	config.LogInfo(ctx, fmt.Sprintf("database optimization finished: %d/%d applied", succeeded(results), len(results)))
	return results
}

func succeeded(results []Result) int {
	var n int
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return n
}

// queryInt runs a query returning a single integer column.
func (a *Advisor) queryInt(ctx context.Context, query string, args ...interface{}) (int64, error) {
	rows, err := a.exec.Query(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, errors.Wrap(sql.ErrNoRows, query)
	}

	var n int64
	if err := rows.Scan(&n); err != nil {
		return 0, err
	}
	return n, rows.Err()
}
