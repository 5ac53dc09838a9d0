package cmd

import (
	"context"
	"github.com/spf13/cobra"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"ticketer/common/constant"
	"ticketer/common/otel"
)

func Start() {
	cfg := newCfg("env")
	slog.SetLogLoggerLevel(slog.Level(cfg.GetInt("log.level")))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	shutdownTracer := otel.Setup(ctx, cfg)
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			slog.Warn("failed to flush traces", slog.Any(constant.LogFieldErr, err))
		}
	}()

	rootCmd := &cobra.Command{}
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", "", "queue store driver: redis or memory (default store.driver)")

	cmd := []*cobra.Command{
		{
			Use:   "serve-http",
			Short: "Run HTTP server",
			Run: func(cmd *cobra.Command, args []string) {
				runHttpServerCmd(ctx)
			},
		},
		{
			Use:   "serve-queue:history",
			Short: "Run queue history consumer",
			Run: func(cmd *cobra.Command, args []string) {
				runQueueHistoryCmd(ctx)
			},
		},
		{
			Use:   "serve-cron",
			Short: "Run day rollover cron",
			Run: func(cmd *cobra.Command, args []string) {
				runCronCmd(ctx)
			},
		},
		{
			Use:   "watch",
			Short: "Log every change of the public board",
			Run: func(cmd *cobra.Command, args []string) {
				runWatchCmd(ctx)
			},
		},
		{
			Use:   "dev",
			Short: "Run dev server, for testing purpose",
			Run: func(cmd *cobra.Command, args []string) {
				runHttpServerCmd(ctx)
			},
			PreRun: func(cmd *cobra.Command, args []string) {
				go func() {
					runQueueHistoryCmd(ctx)
				}()
				go func() {
					runCronCmd(ctx)
				}()
			},
		},
	}

	rootCmd.AddCommand(cmd...)
	if err := rootCmd.Execute(); err != nil {
		log.Fatalln(err)
	}
}
