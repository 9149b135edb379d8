package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/thisdougb/sitedb/internal/handlers"
	"github.com/thisdougb/sitedb/internal/metrics"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "show query metrics from a running server",
	Long: `Fetch /admin/db-monitor?action=metrics from a running "sitedb serve" and
print the aggregates, the recent queries and the recent slow queries.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		url, _ := cmd.Flags().GetString("url")

		resp, err := fetchMetrics(cmd, url)
		if err != nil {
			return err
		}

		m := resp.Metrics
		fmt.Printf("queries: %d total, %d slow, %d errors, %.2fms average\n",
			m.TotalQueries, m.SlowQueries, m.Errors, m.AverageQueryTime)
		fmt.Printf("connections: %d, up %s\n", m.ActiveConnections,
			(time.Duration(m.Uptime) * time.Millisecond).Round(time.Second))

		for _, section := range []struct {
			title string
			rows  []queryRow
		}{
			{"recent queries", toRows(resp.QueryHistory)},
			{"slow queries", toRows(resp.SlowQueries)},
		} {
			fmt.Printf("\n%s\n", section.title)
			rows := make([][]string, 0, len(section.rows))
			for _, r := range section.rows {
				rows = append(rows, []string{r.when, r.duration, r.ok, r.query})
			}
			if err := renderTable(os.Stdout, []string{"When", "Duration", "OK", "Query"}, rows); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	monitorCmd.Flags().String("url", "http://localhost:8080", "base URL of the running server")
}

type queryRow struct {
	when, duration, ok, query string
}

func toRows(history []metrics.QueryMetric) []queryRow {
	out := make([]queryRow, 0, len(history))
	for _, q := range history {
		ok := "yes"
		if !q.Success {
			ok = q.Error
		}
		out = append(out, queryRow{
			when:     humanize.Time(q.Timestamp),
			duration: fmt.Sprintf("%.2fms", q.DurationMs),
			ok:       ok,
			query:    q.Query,
		})
	}
	return out
}

func fetchMetrics(cmd *cobra.Command, base string) (*handlers.MetricsResponse, error) {
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, base+"/admin/db-monitor?action=metrics", nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to reach server")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("server returned %s", resp.Status)
	}

	var body handlers.MetricsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "failed to decode metrics")
	}
	return &body, nil
}
