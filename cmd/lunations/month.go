package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/rsaa/lunations/internal/lunation"
)

var monthDate string

var monthCmd = &cobra.Command{
	Use:   "month",
	Short: "Print the month the next run will cover",
	Long: `Print the month a digest run started now would cover.

Runs cover the month before the current one, so articles have had the
whole month to appear in ADS.

Examples:
  lunations month
  lunations month --date 2024-01-01
  lunations month --human`,
	Args: cobra.NoArgs,
	Run:  runMonthCmd,
}

func init() {
	monthCmd.Flags().StringVar(&monthDate, "date", "", "Compute from this date instead of today (YYYY-MM-DD)")
	rootCmd.AddCommand(monthCmd)
}

type monthResponse struct {
	Year     int    `json:"year"`
	Month    int    `json:"month"`
	Lunation string `json:"lunation"`
}

func runMonthCmd(cmd *cobra.Command, args []string) {
	now := time.Now()
	if monthDate != "" {
		t, err := time.Parse("2006-01-02", monthDate)
		if err != nil {
			exitWithError(ExitError, "parsing --date %q: %v", monthDate, err)
		}
		now = t
	}

	lun := lunation.Previous(now)
	if humanOutput {
		outputHuman("%s\n", lun.String())
		return
	}
	outputJSON(monthResponse{Year: lun.Year, Month: lun.Month, Lunation: lun.String()})
}

// resolveLunation picks the month a command works on: an explicit
// --year/--month pair, the month before --date, or the month before
// today.
func resolveLunation(year, month int, date string) lunation.Lunation {
	if date != "" {
		if year != 0 || month != 0 {
			exitWithError(ExitError, "--date cannot be combined with --year/--month")
		}
		t, err := time.Parse("2006-01-02", date)
		if err != nil {
			exitWithError(ExitError, "parsing --date %q: %v", date, err)
		}
		return lunation.Previous(t)
	}

	if year != 0 || month != 0 {
		if year == 0 || month == 0 {
			exitWithError(ExitError, "--year and --month must be given together")
		}
		lun, err := lunation.New(year, month)
		if err != nil {
			exitWithError(ExitError, "invalid month %d-%d: %v", year, month, err)
		}
		return lun
	}

	return lunation.Previous(time.Now())
}
