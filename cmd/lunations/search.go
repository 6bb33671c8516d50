package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rsaa/lunations/internal/ads"
	"github.com/rsaa/lunations/internal/affiliation"
	"github.com/rsaa/lunations/internal/clipboard"
	"github.com/rsaa/lunations/internal/config"
	"github.com/rsaa/lunations/internal/digest"
	"github.com/rsaa/lunations/internal/records"
)

// clipboardUnavailableMsg is the standard warning when clipboard is not available.
const clipboardUnavailableMsg = "clipboard unavailable (install xclip or xsel on Linux)"

var (
	searchYear  int
	searchMonth int
	searchDate  string
	searchAll   bool
	searchCopy  bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search one month without writing anything",
	Long: `Search ADS for a month's articles and show the ones with a school
author, exactly as a run would select them. Nothing is written, recorded,
or committed.

Articles already published in an earlier digest are hidden unless --all
is given. Outside a repository the ledger is unavailable, so nothing is
hidden.

Examples:
  lunations search
  lunations search --year 2024 --month 2
  lunations search --all --human
  lunations search --copy`,
	Args: cobra.NoArgs,
	Run:  runSearchCmd,
}

func init() {
	searchCmd.Flags().IntVar(&searchYear, "year", 0, "Search year (requires --month)")
	searchCmd.Flags().IntVar(&searchMonth, "month", 0, "Search month (requires --year)")
	searchCmd.Flags().StringVar(&searchDate, "date", "", "Search the month before this date (YYYY-MM-DD)")
	searchCmd.Flags().BoolVar(&searchAll, "all", false, "Include articles already published in earlier digests")
	searchCmd.Flags().BoolVar(&searchCopy, "copy", false, "Copy the rendered digest to the clipboard")
	rootCmd.AddCommand(searchCmd)
}

type searchArticle struct {
	Bibcode       string   `json:"bibcode"`
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	SchoolAuthors []string `json:"school_authors"`
}

type searchResponse struct {
	Lunation         string          `json:"lunation"`
	Query            string          `json:"query"`
	Fetched          int             `json:"fetched"`
	Matched          int             `json:"matched"`
	AlreadyPublished int             `json:"already_published"`
	Articles         []searchArticle `json:"articles"`
	Copied           bool            `json:"copied,omitempty"`
}

// searchConfig loads the repository config when run inside one, and the
// defaults otherwise, so search works anywhere. The returned root is ""
// outside a repository.
func searchConfig() (*config.Config, string) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.Default(), ""
	}
	root, err := config.FindRepository(cwd)
	if err != nil {
		return config.Default(), ""
	}
	return mustLoadConfig(root), root
}

func runSearchCmd(cmd *cobra.Command, args []string) {
	lun := resolveLunation(searchYear, searchMonth, searchDate)
	cfg, root := searchConfig()
	client := mustNewClient(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	query := ads.MonthQuery(cfg.Query, lun)
	docs, err := client.SearchAll(ctx, query)
	if err != nil {
		exitWithError(runExitCode(err), "searching articles: %v", err)
	}

	var store *records.Store
	if root != "" && !searchAll {
		store = mustOpenStore(root, cfg)
		defer store.Close()
	}

	matcher := affiliation.NewMatcher(cfg.MatchTerms...)
	var articles []digest.Article
	matched, published := 0, 0
	for _, doc := range docs {
		matches := matcher.MatchingAuthors(doc.Author, doc.Aff)
		if len(matches) == 0 {
			continue
		}
		matched++
		if store != nil {
			seen, err := store.Seen(doc.Bibcode, doc.ID)
			if err != nil {
				exitWithError(ExitDataError, "checking published records: %v", err)
			}
			if seen {
				published++
				continue
			}
		}
		articles = append(articles, digest.Article{Doc: doc, Matches: matches})
	}
	articles = digest.Order(articles)

	copied := false
	var clipboardWarning string
	if searchCopy && len(articles) > 0 {
		if err := clipboard.Copy(digest.Render(articles)); err != nil {
			if errors.Is(err, clipboard.ErrUnavailable) {
				clipboardWarning = clipboardUnavailableMsg
			} else {
				clipboardWarning = fmt.Sprintf("clipboard error: %v", err)
			}
		} else {
			copied = true
		}
	}

	if humanOutput {
		outputHuman("%s: %d matched of %d fetched, %d already published\n",
			lun.String(), matched, len(docs), published)
		if len(articles) > 0 {
			outputHuman("%s\n", digest.Render(articles))
		}
		if copied {
			fmt.Fprintln(os.Stderr, "Copied to clipboard")
		} else if clipboardWarning != "" {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", clipboardWarning)
		}
		return
	}

	if clipboardWarning != "" {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", clipboardWarning)
	}

	resp := searchResponse{
		Lunation:         lun.String(),
		Query:            query,
		Fetched:          len(docs),
		Matched:          matched,
		AlreadyPublished: published,
		Articles:         make([]searchArticle, len(articles)),
		Copied:           copied,
	}
	for i, a := range articles {
		names := make([]string, len(a.Matches))
		for j, m := range a.Matches {
			names[j] = m.Name
		}
		resp.Articles[i] = searchArticle{
			Bibcode:       a.Doc.Bibcode,
			Title:         a.Doc.TitleText(),
			URL:           a.Doc.AbstractURL(),
			SchoolAuthors: names,
		}
	}
	outputJSON(resp)
}
