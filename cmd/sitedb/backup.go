package main

import (
	"context"
	"fmt"
	"os"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/thisdougb/sitedb"
	"github.com/thisdougb/sitedb/internal/backup"
)

var (
	backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "create, list, restore and delete database backups",
	}

	backupCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "snapshot the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, _ := cmd.Flags().GetString("type")
			description, _ := cmd.Flags().GetString("description")

			return withSite(cmd, func(ctx context.Context, site *sitedb.Site) error {
				record, err := site.State().Backups().CreateBackup(ctx, backup.Kind(kind), description)
				if err != nil {
					return err
				}
				fmt.Printf("created %s (%s)\n", record.Filename, humanize.Bytes(uint64(record.Size)))
				return nil
			})
		},
	}

	backupListCmd = &cobra.Command{
		Use:   "list",
		Short: "list backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSite(cmd, func(_ context.Context, site *sitedb.Site) error {
				records, err := site.State().Backups().ListBackups()
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(records))
				for _, r := range records {
					rows = append(rows, []string{
						r.Filename,
						string(r.Type),
						humanize.Bytes(uint64(r.Size)),
						humanize.Time(r.Timestamp),
						r.Description,
					})
				}
				return renderTable(os.Stdout, []string{"Filename", "Type", "Size", "Created", "Description"}, rows)
			})
		},
	}

	backupRestoreCmd = &cobra.Command{
		Use:   "restore <filename>",
		Short: "replace the database with a backup, saving the current state first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSite(cmd, func(ctx context.Context, site *sitedb.Site) error {
				if err := site.RestoreBackup(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("restored %s\n", args[0])
				return nil
			})
		},
	}

	backupDeleteCmd = &cobra.Command{
		Use:   "delete <filename>",
		Short: "delete a backup and its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSite(cmd, func(_ context.Context, site *sitedb.Site) error {
				return site.State().Backups().DeleteBackup(args[0])
			})
		},
	}

	backupStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "summarise the backup directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSite(cmd, func(_ context.Context, site *sitedb.Site) error {
				s, err := site.State().Backups().Stats()
				if err != nil {
					return err
				}

				fmt.Printf("total:  %d (%d auto, %d manual)\n", s.TotalBackups, s.AutoBackups, s.ManualBackups)
				fmt.Printf("size:   %s\n", humanize.Bytes(uint64(s.TotalSize)))
				if s.LatestBackup != nil {
					fmt.Printf("latest: %s\n", humanize.Time(*s.LatestBackup))
					fmt.Printf("oldest: %s\n", humanize.Time(*s.OldestBackup))
				}
				return nil
			})
		},
	}
)

func init() {
	backupCreateCmd.Flags().String("type", string(backup.Manual), "backup type: manual or auto")
	backupCreateCmd.Flags().String("description", "", "free-form note stored with the backup")

	backupCmd.AddCommand(backupCreateCmd, backupListCmd, backupRestoreCmd, backupDeleteCmd, backupStatsCmd)
}
