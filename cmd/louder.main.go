package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SukhvirKooner/Louder/internal/config"
	"github.com/SukhvirKooner/Louder/internal/server"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "louder:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "louder",
		Short:         "Event listing scraper with OTP-gated email subscriptions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newIngestCommand(), newPurgeCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background ingest cycle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, app *server.App) error {
				return app.Serve(ctx)
			})
		},
	}
}

func newIngestCommand() *cobra.Command {
	var purge bool
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Scrape every configured source once and print the report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, app *server.App) error {
				report, err := app.Events.Ingest(ctx)
				if err != nil {
					return err
				}
				if purge {
					if report.Purged, err = app.Events.PurgePast(ctx); err != nil {
						return err
					}
				}
				return printJSON(cmd, report)
			})
		},
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "also delete events that already started")
	return cmd
}

func newPurgeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete events whose start time has passed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, app *server.App) error {
				n, err := app.Events.PurgePast(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]int64{"deleted": n})
			})
		},
	}
}

// withApp loads configuration, builds the app and runs fn until SIGINT/SIGTERM.
func withApp(fn func(ctx context.Context, app *server.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := server.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}
	defer app.Close()

	return fn(ctx, app)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
