package records

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setupStore opens a store over a fresh temp ledger and cache.
func setupStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()

	ledgerPath := filepath.Join(dir, "records.jsonl")
	dbPath := filepath.Join(dir, "cache", "records.db")

	s, err := Open(ledgerPath, dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s, ledgerPath
}

func testRecord(bibcode, pubdate string, at time.Time) Record {
	return Record{
		Bibcode:    bibcode,
		ADSID:      "id-" + bibcode,
		Title:      "Title " + bibcode,
		Pubdate:    pubdate,
		RecordedAt: at,
		RunID:      "run-1",
	}
}

func TestReadLedgerMissing(t *testing.T) {
	recs, err := ReadLedger(filepath.Join(t.TempDir(), "absent.jsonl"))
	if err != nil {
		t.Fatalf("ReadLedger: %v", err)
	}
	if recs != nil {
		t.Errorf("missing ledger should read as nil, got %v", recs)
	}
}

func TestLedgerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	now := time.Now().UTC().Truncate(time.Second)

	want := []Record{
		testRecord("2024A", "2024-02-00", now),
		testRecord("2024B", "2024-02-00", now),
	}
	if err := AppendLedger(path, want); err != nil {
		t.Fatalf("AppendLedger: %v", err)
	}

	got, err := ReadLedger(path)
	if err != nil {
		t.Fatalf("ReadLedger: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("read %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Bibcode != want[i].Bibcode {
			t.Errorf("record %d bibcode = %q, want %q", i, got[i].Bibcode, want[i].Bibcode)
		}
		if !got[i].RecordedAt.Equal(want[i].RecordedAt) {
			t.Errorf("record %d recorded_at = %v, want %v", i, got[i].RecordedAt, want[i].RecordedAt)
		}
	}
}

func TestLedgerHash(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.jsonl")
	empty := filepath.Join(dir, "empty.jsonl")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatalf("writing empty ledger: %v", err)
	}

	missingHash, err := LedgerHash(missing)
	if err != nil {
		t.Fatalf("LedgerHash(missing): %v", err)
	}
	emptyHash, err := LedgerHash(empty)
	if err != nil {
		t.Fatalf("LedgerHash(empty): %v", err)
	}
	if missingHash != emptyHash {
		t.Errorf("missing ledger hash %q should equal empty ledger hash %q", missingHash, emptyHash)
	}

	if err := AppendLedger(empty, []Record{testRecord("2024A", "2024-02-00", time.Now())}); err != nil {
		t.Fatalf("AppendLedger: %v", err)
	}
	changedHash, err := LedgerHash(empty)
	if err != nil {
		t.Fatalf("LedgerHash after append: %v", err)
	}
	if changedHash == emptyHash {
		t.Error("hash should change after append")
	}
}

func TestStoreSeen(t *testing.T) {
	s, _ := setupStore(t)

	now := time.Now().UTC()
	if err := s.Add([]Record{testRecord("2024A", "2024-02-00", now)}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	tests := []struct {
		name    string
		bibcode string
		adsID   string
		want    bool
	}{
		{"by bibcode", "2024A", "", true},
		{"by ads id", "renamed-bibcode", "id-2024A", true},
		{"both unknown", "2024B", "id-2024B", false},
		{"empty ads id ignored", "2024B", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Seen(tt.bibcode, tt.adsID)
			if err != nil {
				t.Fatalf("Seen: %v", err)
			}
			if got != tt.want {
				t.Errorf("Seen(%q, %q) = %v, want %v", tt.bibcode, tt.adsID, got, tt.want)
			}
		})
	}
}

func TestStoreAddPersists(t *testing.T) {
	s, ledgerPath := setupStore(t)

	now := time.Now().UTC()
	recs := []Record{
		testRecord("2024A", "2024-02-00", now),
		testRecord("2024B", "2024-02-00", now),
	}
	if err := s.Add(recs); err != nil {
		t.Fatalf("Add: %v", err)
	}

	onDisk, err := ReadLedger(ledgerPath)
	if err != nil {
		t.Fatalf("ReadLedger: %v", err)
	}
	if len(onDisk) != 2 {
		t.Errorf("ledger holds %d records, want 2", len(onDisk))
	}

	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Errorf("Count = %d, want 2", count)
	}
}

func TestStoreRebuildsFromEditedLedger(t *testing.T) {
	dir := t.TempDir()
	ledgerPath := filepath.Join(dir, "records.jsonl")
	dbPath := filepath.Join(dir, "cache", "records.db")

	s, err := Open(ledgerPath, dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Add([]Record{testRecord("2024A", "2024-02-00", time.Now().UTC())}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Edit the ledger behind the cache's back, as a merge would.
	if err := AppendLedger(ledgerPath, []Record{testRecord("2024B", "2024-03-00", time.Now().UTC())}); err != nil {
		t.Fatalf("AppendLedger: %v", err)
	}

	s, err = Open(ledgerPath, dbPath)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer s.Close()

	seen, err := s.Seen("2024B", "")
	if err != nil {
		t.Fatalf("Seen: %v", err)
	}
	if !seen {
		t.Error("record added directly to the ledger should be visible after reopen")
	}

	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Errorf("Count = %d, want 2", count)
	}
}

func TestStoreList(t *testing.T) {
	s, _ := setupStore(t)

	base := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)
	recs := []Record{
		testRecord("2024A", "2024-01-00", base),
		testRecord("2024B", "2024-01-00", base.Add(time.Hour)),
		testRecord("2024C", "2024-02-00", base.Add(2*time.Hour)),
	}
	if err := s.Add(recs); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := s.List(2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List(2) returned %d records", len(got))
	}
	if got[0].Bibcode != "2024C" || got[1].Bibcode != "2024B" {
		t.Errorf("List order = %q, %q; want newest first", got[0].Bibcode, got[1].Bibcode)
	}

	all, err := s.List(0)
	if err != nil {
		t.Fatalf("List(0): %v", err)
	}
	if len(all) != 3 {
		t.Errorf("List(0) returned %d records, want all 3", len(all))
	}
}

func TestStoreStats(t *testing.T) {
	s, _ := setupStore(t)

	now := time.Now().UTC()
	recs := []Record{
		testRecord("2024A", "2024-01-00", now),
		testRecord("2024B", "2024-01-00", now),
		testRecord("2024C", "2024-02-00", now),
	}
	if err := s.Add(recs); err != nil {
		t.Fatalf("Add: %v", err)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("Stats returned %d months, want 2", len(stats))
	}
	if stats[0].Lunation != "2024-02" || stats[0].Articles != 1 {
		t.Errorf("stats[0] = %+v, want 2024-02 with 1 article", stats[0])
	}
	if stats[1].Lunation != "2024-01" || stats[1].Articles != 2 {
		t.Errorf("stats[1] = %+v, want 2024-01 with 2 articles", stats[1])
	}
}
