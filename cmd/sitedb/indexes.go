package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/thisdougb/sitedb"
	"github.com/thisdougb/sitedb/internal/indexes"
)

var (
	indexesCmd = &cobra.Command{
		Use:   "indexes",
		Short: "apply and inspect the recommended indexes",
	}

	indexesApplyCmd = &cobra.Command{
		Use:   "apply",
		Short: "create every recommended index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSite(cmd, func(ctx context.Context, site *sitedb.Site) error {
				return printResults(os.Stdout, site.State().Advisor().CreateAllIndexes(ctx))
			})
		},
	}

	indexesListCmd = &cobra.Command{
		Use:   "list",
		Short: "list the indexes present in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSite(cmd, func(ctx context.Context, site *sitedb.Site) error {
				var rows [][]string
				for _, info := range site.State().Advisor().CheckIndexUsage(ctx) {
					rows = append(rows, []string{info.Table, info.Name, info.SQL})
				}
				return renderTable(os.Stdout, []string{"Table", "Index", "SQL"}, rows)
			})
		},
	}

	indexesAnalyzeCmd = &cobra.Command{
		Use:   "analyze",
		Short: "show query plans for the hot queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSite(cmd, func(ctx context.Context, site *sitedb.Site) error {
				for _, plan := range site.State().Advisor().AnalyzeQueryPerformance(ctx) {
					fmt.Printf("%s\n  %s\n", plan.Name, plan.Query)
					if plan.Error != "" {
						fmt.Printf("  error: %s\n", plan.Error)
					}
					for _, step := range plan.Steps {
						fmt.Printf("  %s%s\n", strings.Repeat("  ", depth(plan.Steps, step.Parent)), step.Detail)
					}
				}
				return nil
			})
		},
	}

	indexesStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "show table sizes and the page layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSite(cmd, func(ctx context.Context, site *sitedb.Site) error {
				stats := site.State().Advisor().GetDatabaseStats(ctx)

				var rows [][]string
				for _, t := range stats.Tables {
					rows = append(rows, []string{t.Name, strconv.Itoa(t.Columns), humanize.Comma(t.Rows)})
				}
				if err := renderTable(os.Stdout, []string{"Table", "Columns", "Rows"}, rows); err != nil {
					return err
				}

				fmt.Printf("%s in %s pages of %s\n", humanize.Bytes(uint64(stats.SizeBytes)),
					humanize.Comma(stats.PageCount), humanize.Bytes(uint64(stats.PageSize)))
				return nil
			})
		},
	}
)

func init() {
	indexesCmd.AddCommand(indexesApplyCmd, indexesListCmd, indexesAnalyzeCmd, indexesStatsCmd)
}

// depth is the nesting level of a plan step under parent.
func depth(steps []indexes.PlanStep, parent int) int {
	var d int
	for parent != 0 && d < len(steps) {
		found := false
		for _, s := range steps {
			if s.ID == parent {
				parent = s.Parent
				found = true
				break
			}
		}
		d++
		if !found {
			break
		}
	}
	return d
}
