// Package main provides the lunations CLI entry point.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rsaa/lunations/internal/ads"
	"github.com/rsaa/lunations/internal/config"
	"github.com/rsaa/lunations/internal/gitops"
	"github.com/rsaa/lunations/internal/records"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(),
	}))
	slog.SetDefault(logger)

	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

// logLevel reads LOG_LEVEL from the environment, defaulting to info.
func logLevel() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var rootCmd = &cobra.Command{
	Use:   "lunations",
	Short: "Monthly digest of the school's refereed publications",
	Long: `lunations collects the school's publications from the NASA ADS
search API and publishes a monthly digest file.

Each run searches one month, keeps the articles with an author at the
Research School of Astronomy and Astrophysics, writes them to a digest
file under lunations/, records them in a ledger so later runs skip
them, and commits the result.

Digests are committed to git with a fixed author so scheduled runs are
easy to tell apart from human edits.

Environment Variables:
  ADS_API_TOKEN  Your ADS API token (required for search and run)`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Load .env file if present (for ADS_API_TOKEN)
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}

// mustRepoRoot finds the enclosing publications repository, exits on error.
func mustRepoRoot() string {
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	root, err := config.FindRepository(cwd)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return root
}

// mustLoadConfig loads and validates configuration, exits on error.
func mustLoadConfig(root string) *config.Config {
	cfg, err := config.Load(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return cfg
}

// mustOpenStore opens the published-records store, exits on error.
// The caller is responsible for calling Close() on the returned store.
func mustOpenStore(root string, cfg *config.Config) *records.Store {
	store, err := records.Open(cfg.LedgerPath(root), config.DBPath(root))
	if err != nil {
		exitWithError(ExitDataError, "opening records store: %v", err)
	}
	return store
}

// mustNewClient builds an ADS client, exiting when no token is available.
// The token comes from ADS_API_TOKEN or from the global config file.
func mustNewClient(cfg *config.Config) *ads.Client {
	token := os.Getenv(ads.TokenEnvVar)
	if token == "" {
		token = config.GetADSAPIToken()
	}
	if token == "" {
		fmt.Fprintln(os.Stderr, config.HelpfulTokenMessage())
		os.Exit(ExitAuthError)
	}
	return ads.NewClient(ads.WithToken(token), ads.WithRows(cfg.Rows))
}

// mustGitRepo opens the git repository at root, exits on error.
func mustGitRepo(root string) *gitops.Repo {
	repo, err := gitops.New(root)
	if err != nil {
		exitWithError(ExitConfigError, "opening git repository: %v", err)
	}
	return repo
}
