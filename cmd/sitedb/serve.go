package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/thisdougb/sitedb"
	"github.com/thisdougb/sitedb/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve the admin endpoints with scheduled backups",
	Long: `Open the database, optionally run the initialization sequence, start
automatic backups and serve /admin/db-monitor, /admin/backups and /metrics
until interrupted.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		initialize, _ := cmd.Flags().GetBool("init")

		return withSite(cmd, func(ctx context.Context, site *sitedb.Site) error {
			if initialize {
				if _, err := site.Initialize(ctx); err != nil {
					return err
				}
			}
			site.ScheduleAutoBackups()

			return serve(ctx, cfg.Listen, site.Routes())
		})
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "admin listen address (SITEDB_LISTEN)")
	serveCmd.Flags().Bool("init", false, "run the optimization sequence, including its manual backup, before serving")
}

// serve runs the HTTP server until SIGINT or SIGTERM.
func serve(ctx context.Context, addr string, h http.Handler) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		config.LogInfo(ctx, fmt.Sprintf("listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		config.LogInfo(ctx, "shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
