// Package pipeline runs a digest end to end: search the month's
// articles, keep the ones with school authors, write the digest file,
// record what was published, and commit the result.
package pipeline

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rsaa/lunations/internal/ads"
	"github.com/rsaa/lunations/internal/affiliation"
	"github.com/rsaa/lunations/internal/config"
	"github.com/rsaa/lunations/internal/digest"
	"github.com/rsaa/lunations/internal/gitops"
	"github.com/rsaa/lunations/internal/lunation"
	"github.com/rsaa/lunations/internal/records"
)

// entropy feeds run ID generation; Monotonic keeps IDs ordered within
// a process.
var entropy = ulid.Monotonic(rand.Reader, 0)

// newRunID returns a unique, sortable identifier for one digest run.
func newRunID() string {
	return ulid.MustNew(ulid.Now(), entropy).String()
}

// Searcher fetches every result page for a query.
type Searcher interface {
	SearchAll(ctx context.Context, query string) ([]ads.Document, error)
}

// RecordStore tracks which articles have already been published.
type RecordStore interface {
	Seen(bibcode, adsID string) (bool, error)
	Add(recs []records.Record) error
}

// Publisher stages, commits, and pushes digest output.
type Publisher interface {
	Stage(paths ...string) error
	Commit(authorName, authorEmail, message string) error
	Push(remote string) error
}

// Pipeline wires the pieces of a digest run together.
type Pipeline struct {
	Client  Searcher
	Matcher *affiliation.Matcher
	Store   RecordStore
	Git     Publisher
	Config  *config.Config
	Root    string
	Logger  *slog.Logger

	// Now supplies the clock; nil means time.Now.
	Now func() time.Time

	// DryRun reports what a run would do without writing anything.
	DryRun bool
	// NoCommit writes the digest and ledger but leaves git alone.
	NoCommit bool
	// NoPush commits without publishing.
	NoPush bool
}

// Result summarizes one digest run.
type Result struct {
	RunID      string            `json:"run_id"`
	Lunation   lunation.Lunation `json:"lunation"`
	Query      string            `json:"query"`
	Fetched    int               `json:"fetched"`
	Matched    int               `json:"matched"`
	New        int               `json:"new"`
	OutputPath string            `json:"output_path,omitempty"`
	Committed  bool              `json:"committed"`
	Pushed     bool              `json:"pushed"`
	DryRun     bool              `json:"dry_run,omitempty"`
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Run produces and publishes the digest for one month.
func (p *Pipeline) Run(ctx context.Context, lun lunation.Lunation) (*Result, error) {
	if !lun.Valid() {
		return nil, lunation.ErrInvalidLunation
	}

	result := &Result{
		RunID:    newRunID(),
		Lunation: lun,
		Query:    ads.MonthQuery(p.Config.Query, lun),
		DryRun:   p.DryRun,
	}
	log := p.logger().With("run_id", result.RunID, "lunation", lun.String())

	log.Info("searching for articles", "query", result.Query)
	docs, err := p.Client.SearchAll(ctx, result.Query)
	if err != nil {
		return nil, fmt.Errorf("searching articles: %w", err)
	}
	result.Fetched = len(docs)

	articles, err := p.selectNew(docs, result)
	if err != nil {
		return nil, err
	}
	log.Info("matched articles",
		"fetched", result.Fetched, "matched", result.Matched, "new", result.New)

	if p.DryRun {
		log.Info("dry run, nothing written")
		return result, nil
	}

	if result.New > 0 {
		path, err := p.writeDigest(lun, articles)
		if err != nil {
			return nil, err
		}
		result.OutputPath = path
		log.Info("wrote digest", "path", path, "articles", result.New)

		if err := p.record(articles, result.RunID); err != nil {
			return nil, err
		}
	} else {
		log.Info("no new articles, digest not written")
	}

	if p.NoCommit {
		return result, nil
	}

	if err := p.publish(lun, result, log); err != nil {
		return nil, err
	}

	return result, nil
}

// selectNew keeps documents with a school author that haven't been
// published before, in search-result order.
func (p *Pipeline) selectNew(docs []ads.Document, result *Result) ([]digest.Article, error) {
	var articles []digest.Article
	seenThisRun := make(map[string]bool)

	for _, doc := range docs {
		matches := p.Matcher.MatchingAuthors(doc.Author, doc.Aff)
		if len(matches) == 0 {
			continue
		}
		result.Matched++

		if doc.Bibcode == "" || seenThisRun[doc.Bibcode] {
			continue
		}
		seenThisRun[doc.Bibcode] = true

		published, err := p.Store.Seen(doc.Bibcode, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("checking published records: %w", err)
		}
		if published {
			continue
		}

		articles = append(articles, digest.Article{Doc: doc, Matches: matches})
	}

	result.New = len(articles)
	return articles, nil
}

// writeDigest renders the digest and writes it to the month's file.
func (p *Pipeline) writeDigest(lun lunation.Lunation, articles []digest.Article) (string, error) {
	dir := p.Config.OutputPath(p.Root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	body := digest.Render(digest.Order(articles))
	path := filepath.Join(dir, lun.FileName(p.Config.FilePrefix))
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		return "", fmt.Errorf("writing digest: %w", err)
	}

	return path, nil
}

// record appends the published articles to the ledger.
func (p *Pipeline) record(articles []digest.Article, runID string) error {
	now := p.now().UTC()
	recs := make([]records.Record, len(articles))
	for i, a := range articles {
		recs[i] = records.Record{
			Bibcode:    a.Doc.Bibcode,
			ADSID:      a.Doc.ID,
			Title:      a.Doc.TitleText(),
			Pubdate:    a.Doc.Pubdate,
			RecordedAt: now,
			RunID:      runID,
		}
	}

	if err := p.Store.Add(recs); err != nil {
		return fmt.Errorf("recording articles: %w", err)
	}
	return nil
}

// publish stages and commits the run's output. A clean index is
// success: the month produced nothing new.
func (p *Pipeline) publish(lun lunation.Lunation, result *Result, log *slog.Logger) error {
	digestPath := filepath.Join(p.Config.OutputPath(p.Root), lun.FileName(p.Config.FilePrefix))
	ledgerPath := p.Config.LedgerPath(p.Root)

	if err := p.Git.Stage(digestPath, ledgerPath); err != nil {
		return fmt.Errorf("staging output: %w", err)
	}

	err := p.Git.Commit(p.Config.Git.AuthorName, p.Config.Git.AuthorEmail, p.Config.Git.Message)
	if err != nil {
		if errors.Is(err, gitops.ErrNothingToCommit) {
			log.Info("nothing to commit")
			return nil
		}
		return fmt.Errorf("committing digest: %w", err)
	}
	result.Committed = true
	log.Info("committed digest", "message", p.Config.Git.Message)

	if p.NoPush || !p.Config.Git.Push {
		return nil
	}

	if err := p.Git.Push(p.Config.Git.Remote); err != nil {
		return fmt.Errorf("pushing digest: %w", err)
	}
	result.Pushed = true
	log.Info("pushed digest", "remote", p.Config.Git.Remote)

	return nil
}
