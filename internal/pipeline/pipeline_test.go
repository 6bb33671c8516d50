package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rsaa/lunations/internal/ads"
	"github.com/rsaa/lunations/internal/affiliation"
	"github.com/rsaa/lunations/internal/config"
	"github.com/rsaa/lunations/internal/gitops"
	"github.com/rsaa/lunations/internal/lunation"
	"github.com/rsaa/lunations/internal/records"
)

const stromlo = "Research School of Astronomy and Astrophysics, Australian National University, Canberra, ACT 2611, Australia"

type fakeSearcher struct {
	docs     []ads.Document
	err      error
	gotQuery string
}

func (f *fakeSearcher) SearchAll(ctx context.Context, query string) ([]ads.Document, error) {
	f.gotQuery = query
	return f.docs, f.err
}

type fakeStore struct {
	published map[string]bool
	added     []records.Record
	seenErr   error
}

func (f *fakeStore) Seen(bibcode, adsID string) (bool, error) {
	if f.seenErr != nil {
		return false, f.seenErr
	}
	return f.published[bibcode] || (adsID != "" && f.published[adsID]), nil
}

func (f *fakeStore) Add(recs []records.Record) error {
	f.added = append(f.added, recs...)
	return nil
}

type fakePublisher struct {
	staged    []string
	commits   int
	pushes    int
	commitErr error
	pushErr   error
}

func (f *fakePublisher) Stage(paths ...string) error {
	f.staged = append(f.staged, paths...)
	return nil
}

func (f *fakePublisher) Commit(authorName, authorEmail, message string) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.commits++
	return nil
}

func (f *fakePublisher) Push(remote string) error {
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushes++
	return nil
}

func matchedDoc(bibcode, title string) ads.Document {
	return ads.Document{
		ID:      "id-" + bibcode,
		Bibcode: bibcode,
		Title:   []string{title},
		Author:  []string{"Stromlo, S."},
		Aff:     []string{stromlo},
		Pub:     "MNRAS",
		Volume:  "527",
		Pubdate: "2024-02-00",
	}
}

func unmatchedDoc(bibcode string) ads.Document {
	return ads.Document{
		ID:      "id-" + bibcode,
		Bibcode: bibcode,
		Title:   []string{"Elsewhere"},
		Author:  []string{"Visiting, V."},
		Aff:     []string{"Institute of Physics, University of Somewhere, Germany"},
		Pub:     "A&A",
		Pubdate: "2024-02-00",
	}
}

// newPipeline builds a pipeline over fakes rooted in a temp directory.
func newPipeline(t *testing.T, searcher *fakeSearcher, store *fakeStore, git *fakePublisher) *Pipeline {
	t.Helper()
	if store.published == nil {
		store.published = make(map[string]bool)
	}
	return &Pipeline{
		Client:  searcher,
		Matcher: affiliation.NewMatcher(),
		Store:   store,
		Git:     git,
		Config:  config.Default(),
		Root:    t.TempDir(),
		Now:     func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) },
	}
}

func mustLunation(t *testing.T, year, month int) lunation.Lunation {
	t.Helper()
	lun, err := lunation.New(year, month)
	if err != nil {
		t.Fatalf("New(%d, %d): %v", year, month, err)
	}
	return lun
}

func TestRunWritesDigestAndPublishes(t *testing.T) {
	searcher := &fakeSearcher{docs: []ads.Document{
		matchedDoc("2024MNRAS.527.1234S", "On Things"),
		unmatchedDoc("2024A&A...684..100V"),
	}}
	store := &fakeStore{}
	git := &fakePublisher{}
	p := newPipeline(t, searcher, store, git)

	result, err := p.Run(context.Background(), mustLunation(t, 2024, 2))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !strings.Contains(searcher.gotQuery, "pubdate:2024-02") {
		t.Errorf("query %q missing month clause", searcher.gotQuery)
	}
	if result.Fetched != 2 || result.Matched != 1 || result.New != 1 {
		t.Errorf("counts = %d/%d/%d, want 2/1/1", result.Fetched, result.Matched, result.New)
	}

	wantPath := filepath.Join(p.Root, "lunations", "RSAA_Papers_2024_2.txt")
	if result.OutputPath != wantPath {
		t.Errorf("OutputPath = %q, want %q", result.OutputPath, wantPath)
	}
	data, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("reading digest: %v", err)
	}
	body := string(data)
	if !strings.Contains(body, "On Things") || !strings.Contains(body, "*STROMLO, S.*") {
		t.Errorf("digest body = %q", body)
	}
	if strings.HasSuffix(body, "\n") {
		t.Error("digest should not end with a trailing newline")
	}

	if len(store.added) != 1 {
		t.Fatalf("recorded %d articles, want 1", len(store.added))
	}
	rec := store.added[0]
	if rec.Bibcode != "2024MNRAS.527.1234S" || rec.RunID != result.RunID {
		t.Errorf("record = %+v", rec)
	}
	if rec.RecordedAt.IsZero() {
		t.Error("record should carry the run time")
	}

	if len(git.staged) != 2 {
		t.Errorf("staged %d paths, want digest and ledger", len(git.staged))
	}
	if git.commits != 1 || !result.Committed {
		t.Error("run should commit")
	}
	if git.pushes != 1 || !result.Pushed {
		t.Error("run should push")
	}
}

func TestRunNothingNewCommitsNothing(t *testing.T) {
	searcher := &fakeSearcher{docs: []ads.Document{matchedDoc("2024MNRAS.527.1234S", "Old News")}}
	store := &fakeStore{published: map[string]bool{"2024MNRAS.527.1234S": true}}
	git := &fakePublisher{commitErr: gitops.ErrNothingToCommit}
	p := newPipeline(t, searcher, store, git)

	result, err := p.Run(context.Background(), mustLunation(t, 2024, 2))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.New != 0 {
		t.Errorf("New = %d, want 0", result.New)
	}
	if result.OutputPath != "" {
		t.Errorf("no digest should be written, got %q", result.OutputPath)
	}
	if result.Committed || result.Pushed {
		t.Error("nothing to commit should leave the result unpublished")
	}
	if git.pushes != 0 {
		t.Error("push should be skipped without a commit")
	}
}

func TestRunSkipsPreviouslyPublishedByADSID(t *testing.T) {
	doc := matchedDoc("2024MNRAS.527.9999S", "Renamed")
	searcher := &fakeSearcher{docs: []ads.Document{doc}}
	store := &fakeStore{published: map[string]bool{doc.ID: true}}
	git := &fakePublisher{commitErr: gitops.ErrNothingToCommit}
	p := newPipeline(t, searcher, store, git)

	result, err := p.Run(context.Background(), mustLunation(t, 2024, 2))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.New != 0 {
		t.Errorf("article already published under its ADS ID should be skipped, New = %d", result.New)
	}
}

func TestRunDeduplicatesWithinRun(t *testing.T) {
	doc := matchedDoc("2024MNRAS.527.1234S", "Twice")
	searcher := &fakeSearcher{docs: []ads.Document{doc, doc}}
	store := &fakeStore{}
	git := &fakePublisher{}
	p := newPipeline(t, searcher, store, git)

	result, err := p.Run(context.Background(), mustLunation(t, 2024, 2))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.New != 1 {
		t.Errorf("New = %d, want 1 after in-run dedupe", result.New)
	}
	if len(store.added) != 1 {
		t.Errorf("recorded %d articles, want 1", len(store.added))
	}
}

func TestRunDryRun(t *testing.T) {
	searcher := &fakeSearcher{docs: []ads.Document{matchedDoc("2024MNRAS.527.1234S", "On Things")}}
	store := &fakeStore{}
	git := &fakePublisher{}
	p := newPipeline(t, searcher, store, git)
	p.DryRun = true

	result, err := p.Run(context.Background(), mustLunation(t, 2024, 2))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.New != 1 {
		t.Errorf("dry run should still count, New = %d", result.New)
	}
	if result.OutputPath != "" {
		t.Error("dry run should not write a digest")
	}
	if len(store.added) != 0 {
		t.Error("dry run should not record articles")
	}
	if len(git.staged) != 0 || git.commits != 0 || git.pushes != 0 {
		t.Error("dry run should not touch git")
	}
}

func TestRunNoCommit(t *testing.T) {
	searcher := &fakeSearcher{docs: []ads.Document{matchedDoc("2024MNRAS.527.1234S", "On Things")}}
	store := &fakeStore{}
	git := &fakePublisher{}
	p := newPipeline(t, searcher, store, git)
	p.NoCommit = true

	result, err := p.Run(context.Background(), mustLunation(t, 2024, 2))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.OutputPath == "" {
		t.Error("digest should still be written")
	}
	if len(store.added) != 1 {
		t.Error("articles should still be recorded")
	}
	if len(git.staged) != 0 || git.commits != 0 {
		t.Error("git should not be touched with NoCommit")
	}
}

func TestRunNoPush(t *testing.T) {
	searcher := &fakeSearcher{docs: []ads.Document{matchedDoc("2024MNRAS.527.1234S", "On Things")}}
	store := &fakeStore{}
	git := &fakePublisher{}
	p := newPipeline(t, searcher, store, git)
	p.NoPush = true

	result, err := p.Run(context.Background(), mustLunation(t, 2024, 2))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Committed {
		t.Error("run should commit")
	}
	if result.Pushed || git.pushes != 0 {
		t.Error("push should be skipped with NoPush")
	}
}

func TestRunConfigDisablesPush(t *testing.T) {
	searcher := &fakeSearcher{docs: []ads.Document{matchedDoc("2024MNRAS.527.1234S", "On Things")}}
	store := &fakeStore{}
	git := &fakePublisher{}
	p := newPipeline(t, searcher, store, git)
	p.Config.Git.Push = false

	result, err := p.Run(context.Background(), mustLunation(t, 2024, 2))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Pushed || git.pushes != 0 {
		t.Error("push should honor git.push: false")
	}
}

func TestRunSearchError(t *testing.T) {
	wantErr := errors.New("upstream down")
	searcher := &fakeSearcher{err: wantErr}
	p := newPipeline(t, searcher, &fakeStore{}, &fakePublisher{})

	_, err := p.Run(context.Background(), mustLunation(t, 2024, 2))
	if !errors.Is(err, wantErr) {
		t.Errorf("Run error = %v, want wrapped %v", err, wantErr)
	}
}

func TestRunCommitErrorPropagates(t *testing.T) {
	searcher := &fakeSearcher{docs: []ads.Document{matchedDoc("2024MNRAS.527.1234S", "On Things")}}
	git := &fakePublisher{commitErr: errors.New("index locked")}
	p := newPipeline(t, searcher, &fakeStore{}, git)

	_, err := p.Run(context.Background(), mustLunation(t, 2024, 2))
	if err == nil || !strings.Contains(err.Error(), "committing digest") {
		t.Errorf("Run error = %v, want commit failure", err)
	}
}

func TestRunInvalidLunation(t *testing.T) {
	p := newPipeline(t, &fakeSearcher{}, &fakeStore{}, &fakePublisher{})

	_, err := p.Run(context.Background(), lunation.Lunation{Year: 2024, Month: 13})
	if !errors.Is(err, lunation.ErrInvalidLunation) {
		t.Errorf("Run error = %v, want ErrInvalidLunation", err)
	}
}
