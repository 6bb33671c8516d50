package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rsaa/lunations/internal/affiliation"
	"github.com/rsaa/lunations/internal/lunation"
	"github.com/rsaa/lunations/internal/pipeline"
	"github.com/rsaa/lunations/internal/schedule"
)

// shutdownTimeout bounds how long serve waits for a running digest.
const shutdownTimeout = 30 * time.Second

var serveSchedule string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run digests on a monthly schedule",
	Long: `Run as a long-lived process producing a digest on a cron schedule.

The schedule comes from lunations.yml (10:00 on the first of the month
by default) and uses cron syntax with a leading seconds field. Each
firing covers the month before the firing time.

Examples:
  lunations serve
  lunations serve --schedule "0 0 10 1 * *"`,
	Args: cobra.NoArgs,
	Run:  runServeCmd,
}

func init() {
	serveCmd.Flags().StringVar(&serveSchedule, "schedule", "", "Cron expression overriding the configured schedule")
	rootCmd.AddCommand(serveCmd)
}

func runServeCmd(cmd *cobra.Command, args []string) {
	root := mustRepoRoot()
	cfg := mustLoadConfig(root)

	expr := cfg.Schedule
	if serveSchedule != "" {
		expr = serveSchedule
	}
	if err := schedule.ValidateExpression(expr); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	client := mustNewClient(cfg)
	store := mustOpenStore(root, cfg)
	defer store.Close()

	p := &pipeline.Pipeline{
		Client:  client,
		Matcher: affiliation.NewMatcher(cfg.MatchTerms...),
		Store:   store,
		Git:     mustGitRepo(root),
		Config:  cfg,
		Root:    root,
		Logger:  slog.Default(),
	}

	job := &schedule.MonthlyJob{
		Logger: slog.Default(),
		Run: func(ctx context.Context, lun lunation.Lunation) error {
			_, err := p.Run(ctx, lun)
			return err
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := schedule.NewService(expr, job, slog.Default())
	if err := svc.Start(ctx); err != nil {
		exitWithError(ExitConfigError, "starting scheduler: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	slog.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	svc.Stop(shutdownCtx)
}
