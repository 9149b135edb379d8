package main

import (
	"context"
	"fmt"
	"io"
	"os"

	humanize "github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/thisdougb/sitedb"
	"github.com/thisdougb/sitedb/internal/indexes"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "tune the database, apply indexes and take the initial backup",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withSite(cmd, func(ctx context.Context, site *sitedb.Site) error {
			report, err := site.Initialize(ctx)
			if err != nil {
				return err
			}
			return printInitReport(os.Stdout, report)
		})
	},
}

func printInitReport(out io.Writer, report sitedb.InitReport) error {
	if err := printResults(out, report.Pragmas); err != nil {
		return err
	}
	if err := printResults(out, report.Indexes); err != nil {
		return err
	}

	fmt.Fprintf(out, "\ninitial backup: %s (%s)\n", report.Backup.Filename, humanize.Bytes(uint64(report.Backup.Size)))
	fmt.Fprintf(out, "backups: %d total, %d auto, %d manual, %s\n",
		report.BackupStats.TotalBackups, report.BackupStats.AutoBackups, report.BackupStats.ManualBackups,
		humanize.Bytes(uint64(report.BackupStats.TotalSize)))
	fmt.Fprintf(out, "cache: %d hits, %d misses, %.1f%% hit rate\n",
		report.CacheStats.Hits, report.CacheStats.Misses, report.CacheStats.HitRate)
	fmt.Fprintf(out, "queries: %d total, %d slow, %d errors, %.2fms average\n",
		report.Metrics.TotalQueries, report.Metrics.SlowQueries, report.Metrics.Errors, report.Metrics.AverageQueryTime)
	return nil
}

func printResults(out io.Writer, results []indexes.Result) error {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := "ok"
		if !r.Success {
			status = r.Error
		}
		rows = append(rows, []string{r.Name, r.Statement, status})
	}
	return renderTable(out, []string{"Name", "Statement", "Status"}, rows)
}

// renderTable writes rows under header as a text table.
func renderTable(out io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewWriter(out)
	table.Header(header)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}
