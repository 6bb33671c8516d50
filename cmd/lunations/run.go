package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rsaa/lunations/internal/ads"
	"github.com/rsaa/lunations/internal/affiliation"
	"github.com/rsaa/lunations/internal/pipeline"
)

var (
	runYear     int
	runMonth    int
	runDate     string
	runDryRun   bool
	runNoCommit bool
	runNoPush   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Produce and publish one month's digest",
	Long: `Search ADS for the month's articles, keep the ones with a school
author, write the digest file, and commit it.

Without flags the run covers the month before the current one. Articles
already published in an earlier digest are skipped, so reruns are safe.

Examples:
  lunations run
  lunations run --year 2024 --month 2
  lunations run --dry-run
  lunations run --no-push`,
	Args: cobra.NoArgs,
	Run:  runRunCmd,
}

func init() {
	runCmd.Flags().IntVar(&runYear, "year", 0, "Digest year (requires --month)")
	runCmd.Flags().IntVar(&runMonth, "month", 0, "Digest month (requires --year)")
	runCmd.Flags().StringVar(&runDate, "date", "", "Cover the month before this date (YYYY-MM-DD)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Report what the run would do without writing")
	runCmd.Flags().BoolVar(&runNoCommit, "no-commit", false, "Write the digest but don't commit")
	runCmd.Flags().BoolVar(&runNoPush, "no-push", false, "Commit but don't push")
	rootCmd.AddCommand(runCmd)
}

func runRunCmd(cmd *cobra.Command, args []string) {
	lun := resolveLunation(runYear, runMonth, runDate)

	root := mustRepoRoot()
	cfg := mustLoadConfig(root)
	client := mustNewClient(cfg)

	store := mustOpenStore(root, cfg)
	defer store.Close()

	p := &pipeline.Pipeline{
		Client:   client,
		Matcher:  affiliation.NewMatcher(cfg.MatchTerms...),
		Store:    store,
		Git:      mustGitRepo(root),
		Config:   cfg,
		Root:     root,
		Logger:   slog.Default(),
		DryRun:   runDryRun,
		NoCommit: runNoCommit,
		NoPush:   runNoPush,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := p.Run(ctx, lun)
	if err != nil {
		exitWithError(runExitCode(err), "digest run failed: %v", err)
	}

	if humanOutput {
		printRunResultHuman(result)
		return
	}
	outputJSON(result)
}

// runExitCode maps a pipeline failure onto an exit code.
func runExitCode(err error) int {
	switch {
	case ads.IsAuthError(err):
		return ExitAuthError
	case ads.IsRateLimited(err),
		errors.Is(err, ads.ErrNetworkError),
		errors.Is(err, ads.ErrInvalidResponse):
		return ExitDataError
	default:
		return ExitError
	}
}

func printRunResultHuman(r *pipeline.Result) {
	outputHuman("%s: %d new articles (%d matched of %d fetched)\n",
		r.Lunation.String(), r.New, r.Matched, r.Fetched)
	if r.DryRun {
		outputHuman("dry run, nothing written\n")
		return
	}
	if r.OutputPath != "" {
		outputHuman("wrote %s\n", r.OutputPath)
	}
	switch {
	case r.Pushed:
		outputHuman("committed and pushed\n")
	case r.Committed:
		outputHuman("committed\n")
	default:
		outputHuman("nothing to commit\n")
	}
}
