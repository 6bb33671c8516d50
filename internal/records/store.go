package records

import (
	"database/sql"
	"fmt"
	"time"
)

// Store answers "have we published this article before?" against the
// ledger, through the SQLite cache.
type Store struct {
	ledgerPath string
	db         *sql.DB
}

// Open opens the store and rebuilds the cache if the ledger changed
// since the last run (fresh checkout, manual edit, merge).
func Open(ledgerPath, dbPath string) (*Store, error) {
	db, err := openCache(dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{ledgerPath: ledgerPath, db: db}
	if err := s.sync(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the cache database.
func (s *Store) Close() error {
	return s.db.Close()
}

// sync rebuilds the cache from the ledger when their hashes disagree.
func (s *Store) sync() error {
	currentHash, err := LedgerHash(s.ledgerPath)
	if err != nil {
		return fmt.Errorf("hashing ledger: %w", err)
	}

	storedHash, err := getStoredHash(s.db)
	if err != nil {
		return fmt.Errorf("reading stored hash: %w", err)
	}

	if currentHash == storedHash {
		return nil
	}

	recs, err := ReadLedger(s.ledgerPath)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM records"); err != nil {
		return fmt.Errorf("clearing records table: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO records (bibcode, ads_id, title, pubdate, recorded_at, run_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		if _, err := stmt.Exec(rec.Bibcode, rec.ADSID, rec.Title, rec.Pubdate,
			rec.RecordedAt.Format(time.RFC3339), rec.RunID); err != nil {
			return fmt.Errorf("inserting record %s: %w", rec.Bibcode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rebuild: %w", err)
	}

	if err := setStoredHash(s.db, currentHash); err != nil {
		return fmt.Errorf("updating stored hash: %w", err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO _meta (key, value) VALUES ('last_sync', ?)`,
		time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("updating sync time: %w", err)
	}

	return nil
}

// Seen reports whether an article was already published, matching by
// bibcode or, when known, by the ADS identifier the record carried at
// publication time.
func (s *Store) Seen(bibcode, adsID string) (bool, error) {
	var n int
	var err error
	if adsID != "" {
		err = s.db.QueryRow(
			"SELECT COUNT(*) FROM records WHERE bibcode = ? OR ads_id = ?",
			bibcode, adsID).Scan(&n)
	} else {
		err = s.db.QueryRow(
			"SELECT COUNT(*) FROM records WHERE bibcode = ?", bibcode).Scan(&n)
	}
	if err != nil {
		return false, fmt.Errorf("checking record: %w", err)
	}
	return n > 0, nil
}

// Add appends records to the ledger and mirrors them into the cache.
// The ledger write comes first: if the cache write fails, the next Open
// rebuilds it from the ledger.
func (s *Store) Add(recs []Record) error {
	if len(recs) == 0 {
		return nil
	}

	if err := AppendLedger(s.ledgerPath, recs); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO records (bibcode, ads_id, title, pubdate, recorded_at, run_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		if _, err := stmt.Exec(rec.Bibcode, rec.ADSID, rec.Title, rec.Pubdate,
			rec.RecordedAt.Format(time.RFC3339), rec.RunID); err != nil {
			return fmt.Errorf("inserting record %s: %w", rec.Bibcode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing insert: %w", err)
	}

	hash, err := LedgerHash(s.ledgerPath)
	if err != nil {
		return fmt.Errorf("hashing ledger: %w", err)
	}
	if err := setStoredHash(s.db, hash); err != nil {
		return fmt.Errorf("updating stored hash: %w", err)
	}

	return nil
}

// Count returns the total number of recorded articles.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM records").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// List returns the most recently recorded articles, newest first. A
// limit of 0 returns everything.
func (s *Store) List(limit int) ([]Record, error) {
	query := "SELECT bibcode, ads_id, title, pubdate, recorded_at, run_id FROM records ORDER BY recorded_at DESC, bibcode"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var rec Record
		var adsID, title, pubdate, recordedAt, runID sql.NullString
		if err := rows.Scan(&rec.Bibcode, &adsID, &title, &pubdate, &recordedAt, &runID); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		rec.ADSID = adsID.String
		rec.Title = title.String
		rec.Pubdate = pubdate.String
		rec.RunID = runID.String
		if recordedAt.Valid {
			t, err := time.Parse(time.RFC3339, recordedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parsing recorded_at for %s: %w", rec.Bibcode, err)
			}
			rec.RecordedAt = t
		}
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

// Stats returns per-month article counts, newest month first.
func (s *Store) Stats() ([]LunationCount, error) {
	rows, err := s.db.Query(`
		SELECT substr(pubdate, 1, 7) AS lunation, COUNT(*)
		FROM records
		WHERE pubdate != ''
		GROUP BY lunation
		ORDER BY lunation DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying stats: %w", err)
	}
	defer rows.Close()

	var counts []LunationCount
	for rows.Next() {
		var lc LunationCount
		if err := rows.Scan(&lc.Lunation, &lc.Articles); err != nil {
			return nil, fmt.Errorf("scanning stats: %w", err)
		}
		counts = append(counts, lc)
	}

	return counts, rows.Err()
}
