package main

import (
	"github.com/spf13/cobra"

	"github.com/rsaa/lunations/internal/records"
)

var recordsListLimit int

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List published articles, newest first",
	Long: `List the articles recorded by earlier digest runs.

Examples:
  lunations records list
  lunations records list --limit 10 --human`,
	Args: cobra.NoArgs,
	Run:  runRecordsList,
}

func init() {
	recordsListCmd.Flags().IntVar(&recordsListLimit, "limit", 20, "Maximum records to list (0 for all)")
	recordsCmd.AddCommand(recordsListCmd)
}

type recordsListResponse struct {
	Total   int              `json:"total"`
	Records []records.Record `json:"records"`
}

func runRecordsList(cmd *cobra.Command, args []string) {
	root := mustRepoRoot()
	cfg := mustLoadConfig(root)
	store := mustOpenStore(root, cfg)
	defer store.Close()

	total, err := store.Count()
	if err != nil {
		exitWithError(ExitDataError, "counting records: %v", err)
	}
	recs, err := store.List(recordsListLimit)
	if err != nil {
		exitWithError(ExitDataError, "listing records: %v", err)
	}

	if humanOutput {
		outputHuman("%d articles recorded\n", total)
		for _, rec := range recs {
			outputHuman("%s  %s  %s\n", rec.RecordedAt.Format("2006-01-02"), rec.Bibcode, rec.Title)
		}
		return
	}

	if recs == nil {
		recs = []records.Record{}
	}
	outputJSON(recordsListResponse{Total: total, Records: recs})
}
