package main

import (
	"github.com/spf13/cobra"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect the ledger of published articles",
	Long: `Commands for inspecting which articles earlier digests published.

The ledger is the source of truth and lives in the repository; a SQLite
cache under .lunations/cache answers queries and is rebuilt whenever
the ledger changes.`,
}

func init() {
	rootCmd.AddCommand(recordsCmd)
}
