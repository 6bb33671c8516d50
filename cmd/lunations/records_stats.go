package main

import (
	"github.com/spf13/cobra"

	"github.com/rsaa/lunations/internal/records"
)

var recordsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Article counts per month",
	Args:  cobra.NoArgs,
	Run:   runRecordsStats,
}

func init() {
	recordsCmd.AddCommand(recordsStatsCmd)
}

type recordsStatsResponse struct {
	Months []records.LunationCount `json:"months"`
}

func runRecordsStats(cmd *cobra.Command, args []string) {
	root := mustRepoRoot()
	cfg := mustLoadConfig(root)
	store := mustOpenStore(root, cfg)
	defer store.Close()

	counts, err := store.Stats()
	if err != nil {
		exitWithError(ExitDataError, "reading stats: %v", err)
	}

	if humanOutput {
		for _, lc := range counts {
			outputHuman("%s  %d\n", lc.Lunation, lc.Articles)
		}
		return
	}

	if counts == nil {
		counts = []records.LunationCount{}
	}
	outputJSON(recordsStatsResponse{Months: counts})
}
