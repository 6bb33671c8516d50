// Package records persists the set of articles already published in a
// digest. The JSONL ledger is the source of truth and lives in the
// repository; the SQLite cache is derived from it and rebuilt whenever
// the ledger changes underneath it.
package records

import "time"

// Record is one published article in the ledger.
type Record struct {
	Bibcode    string    `json:"bibcode"`
	ADSID      string    `json:"ads_id,omitempty"`
	Title      string    `json:"title,omitempty"`
	Pubdate    string    `json:"pubdate,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
	RunID      string    `json:"run_id,omitempty"`
}

// LunationCount is the number of recorded articles for one month.
type LunationCount struct {
	Lunation string `json:"lunation"`
	Articles int    `json:"articles"`
}
